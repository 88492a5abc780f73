package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"backport.dev/backport/internal/config"
	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/github"
	"backport.dev/backport/internal/output"
)

// publish pushes the backport branch to the operator's fork and opens the pull request
func (e *Engine) publish(ctx context.Context, r *run) (*Result, error) {
	owner, repo, base := r.target.Owner, r.target.Repo, r.target.Branch

	user, err := e.client.CurrentUser(ctx)
	if err != nil {
		return r.result(), bperrors.NewStepError("resolve fork owner", r.ws.Path, err)
	}
	head := user + ":" + r.ws.Branch

	existing, err := e.client.FindOpenPullRequest(ctx, owner, repo, head, base)
	if err != nil {
		return r.result(), bperrors.NewStepError("check for existing pull request", r.ws.Path, err)
	}
	if existing != nil {
		if r.req.Mode != ModeContinue {
			return r.result(), bperrors.NewStepError("check for existing pull request", r.ws.Path,
				bperrors.NewDuplicateBranchError(head, existing.HTMLURL))
		}
		return e.adopt(ctx, r, user, existing)
	}

	if err := e.push(ctx, r, user); err != nil {
		return r.result(), err
	}

	pr, reused, err := e.createPullRequest(ctx, r, head)
	if err != nil {
		return r.result(), bperrors.NewStepError("create pull request", r.ws.Path, err)
	}
	r.pr = pr
	r.reused = reused
	return e.finish(ctx, r)
}

// adopt takes over an open pull request for the backport branch. The branch
// is pushed first unless the pull request already carries the local HEAD.
func (e *Engine) adopt(ctx context.Context, r *run, user string, existing *github.PullRequestInfo) (*Result, error) {
	local, err := r.ws.HeadSHA(ctx)
	if err != nil {
		return r.result(), bperrors.NewStepError("read HEAD", r.ws.Path, err)
	}
	if existing.HeadSHA != local {
		if err := e.push(ctx, r, user); err != nil {
			return r.result(), err
		}
	} else {
		e.splog.Debug("%s already points at %s", existing.HTMLURL, local)
		e.transition(r, StatePushed)
	}

	e.splog.Info("Pull request %s already exists for %s:%s.", output.ColorURL(existing.HTMLURL), user, r.ws.Branch)
	r.pr = existing
	r.reused = true
	return e.finish(ctx, r)
}

func (e *Engine) push(ctx context.Context, r *run, user string) error {
	forkURL := e.cfg.RepoURL(user, r.target.Repo, r.req.HTTPS)
	e.splog.Info("Pushing %s to %s.", output.ColorBranch(r.ws.Branch), forkURL)
	if err := r.ws.Push(ctx, forkURL, r.ws.Branch); err != nil {
		return bperrors.NewStepError("push", r.ws.Path, err)
	}
	e.transition(r, StatePushed)
	return nil
}

// createPullRequest opens the backport pull request. A transient failure is
// followed by one lookup, in case the request reached GitHub, and one retry.
func (e *Engine) createPullRequest(ctx context.Context, r *run, head string) (*github.PullRequestInfo, bool, error) {
	owner, repo := r.target.Owner, r.target.Repo
	opts := github.CreatePROptions{
		Title: "[backport] " + r.info.Title,
		Body:  fmt.Sprintf("Backport of #%d", r.prNumber),
		Head:  head,
		Base:  r.target.Branch,
	}

	pr, err := e.client.CreatePullRequest(ctx, owner, repo, opts)
	if err == nil || !errors.Is(err, bperrors.ErrRemoteUnavailable) {
		return pr, false, err
	}
	e.splog.Warn("Creating the pull request failed: %v. Retrying once.", err)

	existing, findErr := e.client.FindOpenPullRequest(ctx, owner, repo, head, opts.Base)
	if findErr != nil {
		e.splog.Debug("looking up %s after the failed create: %v", head, findErr)
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	pr, err = e.client.CreatePullRequest(ctx, owner, repo, opts)
	if errors.Is(err, bperrors.ErrDuplicateBranch) {
		if existing, findErr := e.client.FindOpenPullRequest(ctx, owner, repo, head, opts.Base); findErr == nil && existing != nil {
			return existing, true, nil
		}
	}
	return pr, false, err
}

// finish decorates the pull request and clears the session.
// Labels and comments are best effort.
func (e *Engine) finish(ctx context.Context, r *run) (*Result, error) {
	e.transition(r, StatePRCreated)
	owner, repo := r.target.Owner, r.target.Repo

	if labels := BackportLabels(r.info.Labels, r.target); len(labels) > 0 {
		if err := e.client.SetLabels(ctx, owner, repo, r.pr.Number, labels); err != nil {
			e.splog.Warn("Failed to set labels %s on #%d: %v", strings.Join(labels, ", "), r.pr.Number, err)
		}
	}

	if !r.reused {
		if comment := r.target.PostComment; comment != "" {
			if err := e.client.AddComment(ctx, owner, repo, r.pr.Number, comment); err != nil {
				e.splog.Warn("Failed to comment on #%d: %v", r.pr.Number, err)
			}
		}
		crossLink := fmt.Sprintf("Backported to `%s` in #%d.", r.target.Branch, r.pr.Number)
		if err := e.client.AddComment(ctx, owner, repo, r.prNumber, crossLink); err != nil {
			e.splog.Warn("Failed to comment on #%d: %v", r.prNumber, err)
		}
	}

	if err := e.sessions.Clear(r.req.RepoKind, r.prNumber); err != nil {
		e.splog.Warn("Failed to clear session for #%d: %v", r.prNumber, err)
	}

	e.splog.Info("Backport of %s is open: %s", output.ColorPRNumber(r.prNumber), output.ColorURL(r.pr.HTMLURL))
	return r.result(), nil
}

// BackportLabels returns the labels for a backport pull request: the
// target's backport label followed by the original labels that are copied.
func BackportLabels(original []string, t config.Target) []string {
	var labels []string
	if t.BackportLabel != "" {
		labels = append(labels, t.BackportLabel)
	}
	for _, label := range original {
		if label == t.RequiredLabel || slices.Contains(t.DropLabels, label) || slices.Contains(labels, label) {
			continue
		}
		if slices.ContainsFunc(t.DropLabelPrefixes, func(p string) bool { return strings.HasPrefix(label, p) }) {
			continue
		}
		labels = append(labels, label)
	}
	return labels
}
