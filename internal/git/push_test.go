package git_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/testhelpers"
)

func TestPush(t *testing.T) {
	t.Run("pushes HEAD to the named branch", func(t *testing.T) {
		up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
		fork := up.NewFork(testhelpers.ForkOwner)
		sha := up.MergePR(1, "fix", "fix.txt", "fixed\n")
		ws := provisionBranch(t, up, "backport-1")
		ctx := context.Background()

		require.NoError(t, ws.FetchCommit(ctx, "origin", sha, 0))
		_, err := ws.CherryPick(ctx, sha)
		require.NoError(t, err)
		require.NoError(t, ws.Push(ctx, fork, "backport-1"))

		head, err := ws.HeadSHA(ctx)
		require.NoError(t, err)
		require.Equal(t, head, testhelpers.BareRevision(fork, "refs/heads/backport-1"))
	})

	t.Run("pushing the same commit again succeeds", func(t *testing.T) {
		up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
		fork := up.NewFork(testhelpers.ForkOwner)
		ws := provisionBranch(t, up, "backport-1")
		ctx := context.Background()

		require.NoError(t, ws.Push(ctx, fork, "backport-1"))
		require.NoError(t, ws.Push(ctx, fork, "backport-1"))
	})

	t.Run("missing remote is rejected", func(t *testing.T) {
		up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
		ws := provisionBranch(t, up, "backport-1")

		err := ws.Push(context.Background(), filepath.Join(t.TempDir(), "missing.git"), "backport-1")
		require.ErrorIs(t, err, bperrors.ErrPushRejected)
	})

	t.Run("diverged remote branch is rejected", func(t *testing.T) {
		up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
		fork := up.NewFork(testhelpers.ForkOwner)
		ctx := context.Background()

		up.CommitOnMaintenance("other.txt", "other\n", "other")
		require.NoError(t, up.Dev.RunGitCommand("push", fork, "v3:refs/heads/backport-1"))

		ws := provisionBranch(t, up, "backport-1")
		_, err := ws.Runner().Run(ctx, "reset", "--hard", "HEAD~1")
		require.NoError(t, err)
		require.NoError(t, testhelpers.NewGitRepoAt(ws.Path).CommitFile("mine.txt", "mine\n", "mine"))

		err = ws.Push(ctx, fork, "backport-1")
		require.ErrorIs(t, err, bperrors.ErrPushRejected)
		require.Contains(t, err.Error(), "non-fast-forward")
	})
}
