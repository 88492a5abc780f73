package engine

import (
	"fmt"

	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/github"
)

// State is a step of the backport state machine
type State int

const (
	StateInit State = iota
	StateCloned
	StateBranchCreated
	StateCherryPicking
	StateConflict
	StatePicked
	StateHaltedForManualResolution
	StateAbortedBeforePush
	StatePushed
	StatePRCreated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateCloned:
		return "Cloned"
	case StateBranchCreated:
		return "BranchCreated"
	case StateCherryPicking:
		return "CherryPicking"
	case StateConflict:
		return "Conflict"
	case StatePicked:
		return "Picked"
	case StateHaltedForManualResolution:
		return "HaltedForManualResolution"
	case StateAbortedBeforePush:
		return "AbortedBeforePush"
	case StatePushed:
		return "Pushed"
	case StatePRCreated:
		return "PRCreated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode selects how a run treats an existing session
type Mode int

const (
	// ModeFresh starts a new backport and refuses to run over a suspended one
	ModeFresh Mode = iota
	// ModeContinue resumes a suspended backport from its saved workspace
	ModeContinue
	// ModeAbortBeforePush stops after a clean cherry-pick without touching the remote
	ModeAbortBeforePush
)

func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModeContinue:
		return "continue"
	case ModeAbortBeforePush:
		return "abort-before-push"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Request is one backport invocation
type Request struct {
	RepoKind string
	// PRNumber or MergeSHA identifies the original pull request. Exactly one is set.
	PRNumber int
	MergeSHA string
	Mode     Mode
	// HTTPS selects the HTTPS git URL template instead of SSH
	HTTPS bool
	Debug bool
}

// Validate checks the request shape. Known repository kinds are checked by the engine.
func (r Request) Validate() error {
	if r.RepoKind == "" {
		return fmt.Errorf("%w: repository kind is required", bperrors.ErrInvalidRequest)
	}
	if r.PRNumber != 0 && r.MergeSHA != "" {
		return fmt.Errorf("%w: pull request number and merge commit are mutually exclusive", bperrors.ErrInvalidRequest)
	}
	if r.PRNumber == 0 && r.MergeSHA == "" {
		return fmt.Errorf("%w: a pull request number or merge commit is required", bperrors.ErrInvalidRequest)
	}
	if r.PRNumber < 0 {
		return fmt.Errorf("%w: pull request number must be positive, got %d", bperrors.ErrInvalidRequest, r.PRNumber)
	}
	switch r.Mode {
	case ModeFresh, ModeContinue, ModeAbortBeforePush:
	default:
		return fmt.Errorf("%w: unknown mode %v", bperrors.ErrInvalidRequest, r.Mode)
	}
	return nil
}

// BranchName returns the deterministic backport branch for a pull request
func BranchName(prNumber int) string {
	return fmt.Sprintf("backport-%d", prNumber)
}

// Result describes where a run ended
type Result struct {
	State     State
	PRNumber  int
	Workspace string
	Branch    string
	// PullRequest is set once the backport pull request exists
	PullRequest *github.PullRequestInfo
	// Reused is true when an existing pull request was adopted instead of created
	Reused bool
}
