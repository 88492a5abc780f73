package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	bperrors "backport.dev/backport/internal/errors"
)

// workDirName is the clone directory created inside each temporary workspace root.
const workDirName = "work"

// Workspace is an on-disk clone of the target repository owned by one backport run.
// It is never deleted by this package so the operator can inspect or resolve it.
type Workspace struct {
	Path   string
	Branch string
	runner *CommandRunner
}

// Manager creates and reopens workspaces.
type Manager struct {
	// TempDir is the parent directory for new workspaces. Empty means os.TempDir().
	TempDir string
	// Trace, when set, receives every git command the workspaces run.
	Trace Tracer
}

// NewManager creates a Manager that places workspaces in the system temp directory.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) runner(dir string) *CommandRunner {
	r := NewCommandRunner(dir)
	if m.Trace != nil {
		r = r.WithTracer(m.Trace)
	}
	return r
}

// Provision clones the single maintenance branch of repoURL into a fresh,
// uniquely named temporary directory. A depth of zero clones full history.
func (m *Manager) Provision(ctx context.Context, repoURL, branch string, depth int) (*Workspace, error) {
	root, err := os.MkdirTemp(m.TempDir, "bp-")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create workspace directory: %w", bperrors.ErrDiskFailure, err)
	}
	path := filepath.Join(root, workDirName)

	args := []string{"clone", "--single-branch", "--branch", branch}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	args = append(args, repoURL, path)

	if _, err := m.runner(root).Run(ctx, args...); err != nil {
		return nil, fmt.Errorf("%w: failed to clone %s (branch %s) into %s: %w", bperrors.ErrCloneFailure, repoURL, branch, path, err)
	}

	return &Workspace{
		Path:   path,
		Branch: branch,
		runner: m.runner(path),
	}, nil
}

// Reopen validates that path is still a clone carrying branch and returns it.
// It performs no writes.
func (m *Manager) Reopen(_ context.Context, path, branch string) (*Workspace, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: working tree %s no longer exists", bperrors.ErrSessionNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", bperrors.ErrCorruptWorkspace, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", bperrors.ErrCorruptWorkspace, path)
	}

	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a git repository: %w", bperrors.ErrCorruptWorkspace, path, err)
	}
	if _, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true); err != nil {
		return nil, fmt.Errorf("%w: branch %s not found in %s: %w", bperrors.ErrCorruptWorkspace, branch, path, err)
	}

	return &Workspace{
		Path:   path,
		Branch: branch,
		runner: m.runner(path),
	}, nil
}

// Runner returns the command runner bound to the workspace directory.
func (w *Workspace) Runner() *CommandRunner {
	return w.runner
}

// CreateBranch creates a local branch off the current HEAD and checks it out.
func (w *Workspace) CreateBranch(ctx context.Context, branchName string) error {
	if _, err := w.runner.Run(ctx, "checkout", "-b", branchName); err != nil {
		return fmt.Errorf("failed to create and checkout branch %s: %w", branchName, err)
	}
	w.Branch = branchName
	return nil
}

// CurrentBranch returns the branch HEAD points at.
func (w *Workspace) CurrentBranch() (string, error) {
	repo, err := gogit.PlainOpen(w.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", bperrors.ErrCorruptWorkspace, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}

// HeadSHA returns the commit HEAD points at.
func (w *Workspace) HeadSHA(ctx context.Context) (string, error) {
	sha, err := w.runner.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return sha, nil
}

// CommitsAhead counts the commits on HEAD that are not reachable from base.
func (w *Workspace) CommitsAhead(ctx context.Context, base string) (int, error) {
	out, err := w.runner.Run(ctx, "rev-list", "--count", base+"..HEAD")
	if err != nil {
		return 0, fmt.Errorf("failed to count commits since %s: %w", base, err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("failed to parse commit count %q: %w", out, err)
	}
	return n, nil
}
