package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	bperrors "backport.dev/backport/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// Tracer receives every command before it runs. It is used for --debug output.
type Tracer func(dir string, name string, args []string)

// CommandRunner handles execution of git commands
type CommandRunner struct {
	workingDir string
	trace      Tracer
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// WithTracer returns a copy of the runner that reports each command to trace.
func (r *CommandRunner) WithTracer(trace Tracer) *CommandRunner {
	cp := *r
	cp.trace = trace
	return &cp
}

// Run executes a git command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, "git", args...)
}

// RunLines executes a git command and returns output as lines
func (r *CommandRunner) RunLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// runInternal is the internal implementation that handles directory, timeout and environment
func (r *CommandRunner) runInternal(ctx context.Context, name string, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	if r.trace != nil {
		r.trace(r.workingDir, name, args)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	// Never block on a credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", bperrors.NewGitCommandError(name, args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", bperrors.NewGitCommandError(name, args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunGHCommandWithContext executes a gh command with the given context.
func RunGHCommandWithContext(ctx context.Context, args ...string) (string, error) {
	runner := &CommandRunner{}
	return runner.runInternal(ctx, "gh", args...)
}
