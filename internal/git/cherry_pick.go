package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CherryPickResult represents the result of a cherry-pick operation
type CherryPickResult int

const (
	// CherryPickDone indicates the commit applied cleanly
	CherryPickDone CherryPickResult = iota
	// CherryPickConflict indicates the cherry-pick stopped with unresolved paths
	CherryPickConflict
)

func (r CherryPickResult) String() string {
	switch r {
	case CherryPickDone:
		return "done"
	case CherryPickConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// FetchCommit fetches a single commit from remote so it can be cherry-picked
// onto a single-branch clone. A positive depth keeps the fetch shallow but deep
// enough to include the commit's parents.
func (w *Workspace) FetchCommit(ctx context.Context, remote, sha string, depth int) error {
	args := []string{"fetch"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth+1))
	}
	args = append(args, remote, sha)
	if _, err := w.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", sha, remote, err)
	}
	return nil
}

// IsMergeCommit reports whether sha has more than one parent.
func (w *Workspace) IsMergeCommit(ctx context.Context, sha string) (bool, error) {
	out, err := w.runner.Run(ctx, "rev-list", "--parents", "-n", "1", sha)
	if err != nil {
		return false, fmt.Errorf("failed to read parents of %s: %w", sha, err)
	}
	// Output is "<sha> <parent1> [<parent2>...]"
	return len(strings.Fields(out)) > 2, nil
}

// CherryPick applies sha on top of HEAD. Merge commits are picked against
// their first parent. A stop on unresolved paths is reported as
// CherryPickConflict with a nil error; any other failure is returned.
func (w *Workspace) CherryPick(ctx context.Context, sha string) (CherryPickResult, error) {
	merge, err := w.IsMergeCommit(ctx, sha)
	if err != nil {
		return CherryPickConflict, err
	}

	args := []string{"cherry-pick"}
	if merge {
		args = append(args, "-m1")
	}
	args = append(args, sha)

	if _, err := w.runner.Run(ctx, args...); err != nil {
		inProgress, unmerged, stateErr := w.ConflictState(ctx)
		if stateErr == nil && (inProgress || len(unmerged) > 0) {
			return CherryPickConflict, nil
		}
		return CherryPickConflict, fmt.Errorf("cherry-pick of %s failed: %w", sha, err)
	}
	return CherryPickDone, nil
}

// ConflictState reports whether a cherry-pick is still in progress and which
// paths are unmerged.
func (w *Workspace) ConflictState(ctx context.Context) (bool, []string, error) {
	inProgress, err := w.IsCherryPickInProgress(ctx)
	if err != nil {
		return false, nil, err
	}
	unmerged, err := w.UnmergedFiles(ctx)
	if err != nil {
		return inProgress, nil, err
	}
	return inProgress, unmerged, nil
}

// IsCherryPickInProgress checks for CHERRY_PICK_HEAD in the git directory
func (w *Workspace) IsCherryPickInProgress(ctx context.Context) (bool, error) {
	headPath, err := w.runner.Run(ctx, "rev-parse", "--git-path", "CHERRY_PICK_HEAD")
	if err != nil {
		return false, fmt.Errorf("failed to locate git directory: %w", err)
	}
	if !filepath.IsAbs(headPath) {
		headPath = filepath.Join(w.Path, headPath)
	}
	if _, err := os.Stat(headPath); err == nil {
		return true, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check cherry-pick state: %w", err)
	}
	return false, nil
}

// UnmergedFiles returns the paths git still reports as conflicted
func (w *Workspace) UnmergedFiles(ctx context.Context) ([]string, error) {
	lines, err := w.runner.RunLines(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("failed to list unmerged files: %w", err)
	}
	return lines, nil
}
