// Package errors provides sentinel errors and custom error types for the backport tool.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrInvalidRequest indicates that the backport request is malformed
	ErrInvalidRequest = errors.New("invalid backport request")

	// ErrNotMerged indicates that the original pull request has no merge commit
	ErrNotMerged = errors.New("pull request is not merged")

	// ErrNotFound indicates that the pull request or commit does not exist
	ErrNotFound = errors.New("not found")

	// ErrAuthFailure indicates that the credential was rejected
	ErrAuthFailure = errors.New("authentication failed")

	// ErrDuplicateBranch indicates that a pull request from the head branch already exists
	ErrDuplicateBranch = errors.New("pull request for branch already exists")

	// ErrRemoteUnavailable indicates a transient network or service failure
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrCloneFailure indicates that the upstream repository could not be cloned
	ErrCloneFailure = errors.New("clone failed")

	// ErrDiskFailure indicates a local I/O error while preparing a workspace
	ErrDiskFailure = errors.New("disk failure")

	// ErrSessionNotFound indicates that no suspended backport exists to resume
	ErrSessionNotFound = errors.New("no suspended backport session found")

	// ErrCorruptWorkspace indicates that a saved workspace is no longer a usable clone
	ErrCorruptWorkspace = errors.New("workspace is corrupt")

	// ErrPushRejected indicates that the remote refused the backport branch
	ErrPushRejected = errors.New("push rejected")

	// ErrSessionConflict indicates that a fresh run was started while a session is suspended
	ErrSessionConflict = errors.New("a suspended backport session already exists")

	// ErrCherryPickConflict indicates that the cherry-pick stopped on unresolved paths
	ErrCherryPickConflict = errors.New("cherry-pick conflict")

	// ErrAbortedBeforePush indicates that the run stopped before pushing as requested
	ErrAbortedBeforePush = errors.New("aborted before push")

	// ErrNoActionRequired indicates that the pull request is not marked for backporting
	ErrNoActionRequired = errors.New("no action required")
)

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// StepError names the backport step that failed and, when one exists, the
// workspace left behind for inspection.
type StepError struct {
	Step      string
	Workspace string
	// Resume is the command that picks the suspended run back up
	Resume string
	Err    error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Step, e.Err)
	if e.Workspace != "" {
		msg += fmt.Sprintf("\nworking tree is preserved at: %s", e.Workspace)
	}
	if e.Resume != "" {
		msg += fmt.Sprintf("\nthe backport is suspended: rerun %s, or drop it with --discard", e.Resume)
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new StepError
func NewStepError(step, workspace string, err error) *StepError {
	return &StepError{Step: step, Workspace: workspace, Err: err}
}

// ConflictError is returned when a cherry-pick halts on unresolved paths.
// The run is suspended, not failed.
type ConflictError struct {
	Workspace     string
	UnmergedPaths []string
	Instructions  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("not cleanly cherry-picked (working tree: %s)", e.Workspace)
}

// Is returns true if the target error is ErrCherryPickConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrCherryPickConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(workspace string, unmerged []string, instructions string) *ConflictError {
	return &ConflictError{Workspace: workspace, UnmergedPaths: unmerged, Instructions: instructions}
}

// AbortedError is returned when a run stops before push because the
// operator asked for it.
type AbortedError struct {
	Workspace    string
	Instructions string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("backport aborted before push (working tree: %s)", e.Workspace)
}

// Is returns true if the target error is ErrAbortedBeforePush
func (e *AbortedError) Is(target error) bool {
	return target == ErrAbortedBeforePush
}

// NewAbortedError creates a new AbortedError
func NewAbortedError(workspace, instructions string) *AbortedError {
	return &AbortedError{Workspace: workspace, Instructions: instructions}
}

// DuplicateBranchError represents an existing pull request for the backport head
type DuplicateBranchError struct {
	Head string
	URL  string
}

func (e *DuplicateBranchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("pull request for %s already exists: %s", e.Head, e.URL)
	}
	return fmt.Sprintf("pull request for %s already exists", e.Head)
}

// Is returns true if the target error is ErrDuplicateBranch
func (e *DuplicateBranchError) Is(target error) bool {
	return target == ErrDuplicateBranch
}

// NewDuplicateBranchError creates a new DuplicateBranchError
func NewDuplicateBranchError(head, url string) *DuplicateBranchError {
	return &DuplicateBranchError{Head: head, URL: url}
}

// IsManualStep reports whether err ends a run that the operator is expected
// to resume after a manual step.
func IsManualStep(err error) bool {
	return errors.Is(err, ErrCherryPickConflict) || errors.Is(err, ErrAbortedBeforePush)
}
