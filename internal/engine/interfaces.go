package engine

import (
	"context"

	"backport.dev/backport/internal/config"
	"backport.dev/backport/internal/git"
)

// WorkspaceManager creates and reopens on-disk clones
type WorkspaceManager interface {
	Provision(ctx context.Context, repoURL, branch string, depth int) (*git.Workspace, error)
	Reopen(ctx context.Context, path, branch string) (*git.Workspace, error)
}

// SessionStore persists suspended backports between runs
type SessionStore interface {
	Save(state *config.SessionState) error
	Load(kind string, prNumber int) (*config.SessionState, error)
	FindByMergeSHA(kind, sha string) (*config.SessionState, error)
	Clear(kind string, prNumber int) error
}

var (
	_ WorkspaceManager = (*git.Manager)(nil)
	_ SessionStore     = (*config.SessionStore)(nil)
)
