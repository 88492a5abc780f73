package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backport.dev/backport/internal/config"
	"backport.dev/backport/internal/engine"
	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/github"
	"backport.dev/backport/internal/output"
	"backport.dev/backport/internal/runtime"
	"backport.dev/backport/internal/tui"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFatal      = 1
	ExitManualStep = 2
)

// ClientFactory creates the GitHub client for a run
type ClientFactory func(ctx context.Context, token string, cfg *config.Config, splog *output.Splog) (github.Client, error)

func newGitHubClient(ctx context.Context, token string, cfg *config.Config, splog *output.Splog) (github.Client, error) {
	return github.NewRealClient(ctx, token, github.ClientOptions{
		BaseURL: cfg.APIBaseURL,
		Debug:   splog.Debug,
	})
}

type options struct {
	repo            string
	token           string
	pr              int
	sha             string
	resume          bool
	abortBeforePush bool
	discard         bool
	debug           bool
	https           bool
	yes             bool
	open            bool
}

func (o *options) request() engine.Request {
	req := engine.Request{
		RepoKind: o.repo,
		PRNumber: o.pr,
		MergeSHA: o.sha,
		HTTPS:    o.https,
		Debug:    o.debug,
	}
	switch {
	case o.resume:
		req.Mode = engine.ModeContinue
	case o.abortBeforePush:
		req.Mode = engine.ModeAbortBeforePush
	}
	return req
}

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	return newRootCmd(fmt.Sprintf("%s (commit %s, built %s)", version, commit, date), newGitHubClient)
}

func newRootCmd(version string, newClient ClientFactory) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   engine.DefaultProgram + " --repo <kind> (--pr <number> | --sha <commit>)",
		Short: "Backport a merged pull request to a maintenance branch",
		Long: `Backport cherry-picks the merge commit of a pull request onto the
maintenance branch of its repository and opens a pull request from your fork.

When the cherry-pick conflicts, the working tree is kept on disk. Resolve the
conflict, run "git cherry-pick --continue" and rerun with --continue.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, newClient)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.repo, "repo", "", "Repository kind to backport to (see the config file for kinds)")
	flags.StringVar(&opts.token, "token", "", "GitHub access token (defaults to $BACKPORT_GITHUB_TOKEN, $GITHUB_TOKEN or gh auth token)")
	flags.IntVar(&opts.pr, "pr", 0, "Number of the merged pull request")
	flags.StringVar(&opts.sha, "sha", "", "Merge commit of the pull request")
	flags.BoolVar(&opts.resume, "continue", false, "Resume a backport after resolving its conflict")
	flags.BoolVar(&opts.abortBeforePush, "abort-before-push", false, "Stop after the cherry-pick without pushing")
	flags.BoolVar(&opts.discard, "discard", false, "Forget a suspended backport and keep its working tree")
	flags.BoolVar(&opts.debug, "debug", false, "Print git commands and API requests")
	flags.BoolVar(&opts.https, "https", false, "Clone and push over HTTPS instead of SSH")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not prompt for confirmation")
	flags.BoolVar(&opts.open, "open", false, "Open the created pull request in a browser")

	_ = cmd.MarkFlagRequired("repo")
	cmd.MarkFlagsMutuallyExclusive("pr", "sha")
	cmd.MarkFlagsOneRequired("pr", "sha")
	cmd.MarkFlagsMutuallyExclusive("continue", "abort-before-push", "discard")

	return cmd
}

// reportedError has already been written to the console and the log file
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func (o *options) run(cmd *cobra.Command, newClient ClientFactory) (err error) {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		output.ConfigureColor(f)
	}

	rt, err := runtime.NewContext(runtime.Options{
		Writer:  cmd.ErrOrStderr(),
		Debug:   o.debug,
		Program: cmd.Root().Name(),
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	defer func() {
		if ExitCode(err) == ExitFatal {
			rt.Splog.Error("%v", err)
			err = &reportedError{err: err}
		}
	}()

	req := o.request()
	if err := req.Validate(); err != nil {
		return err
	}
	if o.discard {
		return o.runDiscard(rt, req)
	}

	ctx := cmd.Context()
	token, err := github.ResolveToken(ctx, o.token)
	if err != nil {
		return err
	}
	client, err := newClient(ctx, token, rt.Config, rt.Splog)
	if err != nil {
		return err
	}
	eng, err := rt.NewEngine(client)
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx, req)
	if errors.Is(err, bperrors.ErrSessionConflict) && req.Mode == engine.ModeFresh && !o.yes && tui.IsInteractive() {
		res, err = o.resolveSessionConflict(ctx, rt, eng, req, err)
	}
	if errors.Is(err, bperrors.ErrNoActionRequired) {
		rt.Splog.Info("Nothing to do: %v", err)
		return nil
	}
	if err != nil {
		return err
	}

	if o.open && res.PullRequest != nil && res.PullRequest.HTMLURL != "" {
		if err := openBrowser(res.PullRequest.HTMLURL); err != nil {
			rt.Splog.Warn("Failed to open browser: %v", err)
		}
	}
	return nil
}

// resolveSessionConflict asks the operator what to do with a suspended
// session. A failed prompt returns the conflict unchanged.
func (o *options) resolveSessionConflict(ctx context.Context, rt *runtime.Context, eng *engine.Engine, req engine.Request, conflict error) (*engine.Result, error) {
	rt.Splog.Warn("%v", conflict)
	choice, err := tui.PromptSessionConflict("What do you want to do?")
	if err != nil {
		return nil, conflict
	}

	switch choice {
	case tui.ChoiceContinue:
		req.Mode = engine.ModeContinue
		return eng.Run(ctx, req)
	case tui.ChoiceDiscard:
		if _, err := eng.Discard(req); err != nil {
			return nil, err
		}
		return eng.Run(ctx, req)
	default:
		return nil, conflict
	}
}

func (o *options) runDiscard(rt *runtime.Context, req engine.Request) error {
	eng, err := rt.NewEngine(nil)
	if err != nil {
		return err
	}

	if !o.yes && tui.IsInteractive() {
		confirmed, err := tui.PromptConfirm(fmt.Sprintf("Discard the suspended %s backport?", req.RepoKind), false)
		if err != nil {
			return err
		}
		if !confirmed {
			rt.Splog.Info("Kept the session.")
			return nil
		}
	}

	session, err := eng.Discard(req)
	if err != nil {
		return err
	}
	rt.Splog.Info("Discarded the %s session for %s.", session.RepoKind, output.ColorPRNumber(session.PRNumber))
	rt.Splog.Tip("The working tree is still at %s.", output.ColorPath(session.Workspace))
	return nil
}

// Execute runs cmd and returns the process exit code
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	code := ExitCode(err)
	var reported *reportedError
	if code == ExitFatal && !errors.As(err, &reported) {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)
	}
	return code
}

// ExitCode maps a run error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, bperrors.ErrNoActionRequired):
		return ExitOK
	case bperrors.IsManualStep(err):
		return ExitManualStep
	default:
		return ExitFatal
	}
}
