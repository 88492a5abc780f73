package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"backport.dev/backport/internal/config"
	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/git"
	"backport.dev/backport/internal/github"
	"backport.dev/backport/internal/output"
)

// DefaultProgram is the command name used in resume instructions
const DefaultProgram = "backport"

// upstreamRemote is the remote name a fresh clone gives the upstream repository
const upstreamRemote = "origin"

// Options configures an Engine
type Options struct {
	Config     *config.Config
	Client     github.Client
	Workspaces WorkspaceManager
	Sessions   SessionStore
	Splog      *output.Splog
	// Program is the command printed in resume instructions
	Program string
	Now     func() time.Time
}

// Engine runs backports
type Engine struct {
	cfg        *config.Config
	client     github.Client
	workspaces WorkspaceManager
	sessions   SessionStore
	splog      *output.Splog
	program    string
	now        func() time.Time
}

// New creates an Engine. Client may be nil for an engine that only discards sessions.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Workspaces == nil {
		opts.Workspaces = git.NewManager()
	}
	if opts.Sessions == nil {
		opts.Sessions = config.NewSessionStore(opts.Config.SessionDir())
	}
	if opts.Splog == nil {
		opts.Splog = output.NewSplog(io.Discard, false)
	}
	if opts.Program == "" {
		opts.Program = DefaultProgram
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		cfg:        opts.Config,
		client:     opts.Client,
		workspaces: opts.Workspaces,
		sessions:   opts.Sessions,
		splog:      opts.Splog,
		program:    opts.Program,
		now:        opts.Now,
	}, nil
}

// run is the mutable state of one Run call
type run struct {
	req      Request
	target   config.Target
	prNumber int
	info     *github.MergeInfo
	session  *config.SessionState
	ws       *git.Workspace
	state    State
	pr       *github.PullRequestInfo
	reused   bool
}

func (r *run) workspacePath() string {
	if r.ws == nil {
		return ""
	}
	return r.ws.Path
}

func (r *run) result() *Result {
	res := &Result{
		State:       r.state,
		PRNumber:    r.prNumber,
		Workspace:   r.workspacePath(),
		PullRequest: r.pr,
		Reused:      r.reused,
	}
	if r.ws != nil {
		res.Branch = r.ws.Branch
	}
	return res
}

func (e *Engine) transition(r *run, to State) {
	e.splog.Debug("state: %s -> %s", r.state, to)
	r.state = to
}

// Run executes req. A run that stops for a manual step returns both a
// Result and a *ConflictError or *AbortedError.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if e.client == nil {
		return nil, fmt.Errorf("engine requires a GitHub client")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	target, err := e.cfg.Targets.Lookup(req.RepoKind)
	if err != nil {
		return nil, err
	}
	r := &run{req: req, target: target, prNumber: req.PRNumber, state: StateInit}

	session, err := e.findSession(req)
	switch {
	case err == nil:
		r.session = session
	case errors.Is(err, bperrors.ErrSessionNotFound):
		if req.Mode == ModeContinue {
			return nil, bperrors.NewStepError("load session", "", err)
		}
	default:
		return nil, bperrors.NewStepError("load session", "", err)
	}

	if req.Mode == ModeContinue {
		return e.resume(ctx, r)
	}
	if r.session != nil {
		return nil, sessionConflict(r.session)
	}
	return e.fresh(ctx, r)
}

// Discard drops the session matching req and returns it. The workspace stays on disk.
func (e *Engine) Discard(req Request) (*config.SessionState, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := e.cfg.Targets.Lookup(req.RepoKind); err != nil {
		return nil, err
	}
	session, err := e.findSession(req)
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Clear(session.RepoKind, session.PRNumber); err != nil {
		return nil, err
	}
	return session, nil
}

func (e *Engine) findSession(req Request) (*config.SessionState, error) {
	if req.PRNumber > 0 {
		return e.sessions.Load(req.RepoKind, req.PRNumber)
	}
	return e.sessions.FindByMergeSHA(req.RepoKind, req.MergeSHA)
}

func sessionConflict(s *config.SessionState) error {
	return fmt.Errorf("%w: %s #%d is suspended (%s) in %s; rerun with --continue or drop it with --discard",
		bperrors.ErrSessionConflict, s.RepoKind, s.PRNumber, s.Phase, s.Workspace)
}

func (e *Engine) fresh(ctx context.Context, r *run) (*Result, error) {
	owner, repo := r.target.Owner, r.target.Repo

	if r.prNumber == 0 {
		number, err := e.client.FindPRNumberForCommit(ctx, owner, repo, r.req.MergeSHA)
		if err != nil {
			return nil, bperrors.NewStepError("resolve pull request", "", err)
		}
		e.splog.Debug("commit %s is the merge of #%d", r.req.MergeSHA, number)
		r.prNumber = number
		s, err := e.sessions.Load(r.req.RepoKind, number)
		switch {
		case err == nil:
			return nil, sessionConflict(s)
		case !errors.Is(err, bperrors.ErrSessionNotFound):
			return nil, bperrors.NewStepError("load session", "", err)
		}
	}

	info, err := e.client.FetchMergeInfo(ctx, owner, repo, r.prNumber)
	if err != nil {
		return nil, bperrors.NewStepError("fetch pull request", "", err)
	}
	r.info = info

	if label := r.target.RequiredLabel; label != "" && !slices.Contains(info.Labels, label) {
		return r.result(), fmt.Errorf("%w: #%d is not labeled %q", bperrors.ErrNoActionRequired, r.prNumber, label)
	}

	e.splog.Info("Backporting %s %q to %s.", output.ColorPRNumber(r.prNumber), info.Title, output.ColorBranch(r.target.Branch))

	ws, err := e.workspaces.Provision(ctx, e.cfg.RepoURL(owner, repo, r.req.HTTPS), r.target.Branch, e.cfg.CloneDepth)
	if err != nil {
		return nil, bperrors.NewStepError("clone", "", err)
	}
	r.ws = ws
	e.splog.Debug("working tree: %s", ws.Path)
	e.transition(r, StateCloned)

	if err := ws.CreateBranch(ctx, BranchName(r.prNumber)); err != nil {
		return r.result(), bperrors.NewStepError("create branch", ws.Path, err)
	}
	e.transition(r, StateBranchCreated)

	if err := ws.FetchCommit(ctx, upstreamRemote, info.MergeCommitSHA, e.cfg.CloneDepth); err != nil {
		return r.result(), bperrors.NewStepError("fetch merge commit", ws.Path, err)
	}
	e.transition(r, StateCherryPicking)

	picked, err := ws.CherryPick(ctx, info.MergeCommitSHA)
	if err != nil {
		return r.result(), bperrors.NewStepError("cherry-pick", ws.Path, err)
	}
	if picked == git.CherryPickConflict {
		_, unmerged, err := ws.ConflictState(ctx)
		if err != nil {
			return r.result(), bperrors.NewStepError("inspect conflict", ws.Path, err)
		}
		return e.halt(r, unmerged)
	}
	return e.picked(ctx, r)
}

func (e *Engine) resume(ctx context.Context, r *run) (*Result, error) {
	s := r.session
	r.prNumber = s.PRNumber
	info := s.MergeInfo
	r.info = &info

	ws, err := e.workspaces.Reopen(ctx, s.Workspace, s.Branch)
	if err != nil {
		return nil, bperrors.NewStepError("reopen workspace", "", err)
	}
	r.ws = ws
	e.splog.Info("Resuming backport of %s in %s.", output.ColorPRNumber(r.prNumber), output.ColorPath(ws.Path))

	current, err := ws.CurrentBranch()
	if err != nil {
		return r.result(), bperrors.NewStepError("reopen workspace", ws.Path, err)
	}
	if current != s.Branch {
		return r.result(), bperrors.NewStepError("reopen workspace", ws.Path,
			fmt.Errorf("%w: expected branch %s to be checked out, found %s", bperrors.ErrCorruptWorkspace, s.Branch, current))
	}
	e.transition(r, StateCherryPicking)

	inProgress, unmerged, err := ws.ConflictState(ctx)
	if err != nil {
		return r.result(), bperrors.NewStepError("inspect conflict", ws.Path, err)
	}
	if inProgress || len(unmerged) > 0 {
		return e.halt(r, unmerged)
	}

	ahead, err := ws.CommitsAhead(ctx, upstreamRemote+"/"+r.target.Branch)
	if err != nil {
		return r.result(), bperrors.NewStepError("verify resolution", ws.Path, err)
	}
	if ahead == 0 {
		return r.result(), bperrors.NewStepError("verify resolution", ws.Path,
			fmt.Errorf("%w: %s has no commits ahead of %s/%s", bperrors.ErrCorruptWorkspace, s.Branch, upstreamRemote, r.target.Branch))
	}
	return e.picked(ctx, r)
}

// halt records a conflict session and stops the run for manual resolution
func (e *Engine) halt(r *run, unmerged []string) (*Result, error) {
	e.transition(r, StateConflict)
	if err := e.saveSession(r, config.PhaseConflict); err != nil {
		return r.result(), bperrors.NewStepError("save session", r.ws.Path, err)
	}

	instructions := e.conflictInstructions(r, unmerged)
	e.splog.Warn("%s is not cleanly cherry-picked to %s.", output.ColorPRNumber(r.prNumber), output.ColorBranch(r.target.Branch))
	e.splog.Page(instructions)

	e.transition(r, StateHaltedForManualResolution)
	return r.result(), bperrors.NewConflictError(r.ws.Path, unmerged, instructions)
}

func (e *Engine) picked(ctx context.Context, r *run) (*Result, error) {
	e.transition(r, StatePicked)

	if r.req.Mode == ModeAbortBeforePush {
		if err := e.saveSession(r, config.PhaseAbortedBeforePush); err != nil {
			return r.result(), bperrors.NewStepError("save session", r.ws.Path, err)
		}
		instructions := e.abortInstructions(r)
		e.splog.Info("Stopped before push as requested.")
		e.splog.Page(instructions)
		e.transition(r, StateAbortedBeforePush)
		return r.result(), bperrors.NewAbortedError(r.ws.Path, instructions)
	}

	if err := e.saveSession(r, config.PhasePicked); err != nil {
		return r.result(), bperrors.NewStepError("save session", r.ws.Path, err)
	}
	res, err := e.publish(ctx, r)
	var stepErr *bperrors.StepError
	if errors.As(err, &stepErr) {
		stepErr.Resume = e.ResumeCommand(r.req.RepoKind, r.prNumber, r.req.HTTPS)
	}
	return res, err
}

func (e *Engine) saveSession(r *run, phase config.SessionPhase) error {
	return e.sessions.Save(&config.SessionState{
		RepoKind:  r.req.RepoKind,
		PRNumber:  r.prNumber,
		Workspace: r.ws.Path,
		Branch:    r.ws.Branch,
		Phase:     phase,
		MergeInfo: *r.info,
		UpdatedAt: e.now().UTC(),
	})
}
