package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bperrors "backport.dev/backport/internal/errors"
)

// Push pushes HEAD to branchName on remote. Any refusal by the remote is
// reported as ErrPushRejected.
func (w *Workspace) Push(ctx context.Context, remote, branchName string) error {
	_, err := w.runner.Run(ctx, "push", remote, "HEAD:refs/heads/"+branchName)
	if err == nil {
		return nil
	}

	reason := "push failed"
	var gitErr *bperrors.GitCommandError
	if errors.As(err, &gitErr) {
		reason = pushRejectionReason(gitErr.Stderr)
	}
	return fmt.Errorf("%w: %s of %s to %s: %w", bperrors.ErrPushRejected, reason, branchName, remote, err)
}

// pushRejectionReason classifies git's push stderr into a short reason
func pushRejectionReason(stderr string) string {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "non-fast-forward") || strings.Contains(s, "fetch first"):
		return "non-fast-forward"
	case strings.Contains(s, "permission denied") || strings.Contains(s, "403") || strings.Contains(s, "authentication failed"):
		return "permission denied"
	case strings.Contains(s, "rejected"):
		return "rejected"
	default:
		return "push failed"
	}
}
