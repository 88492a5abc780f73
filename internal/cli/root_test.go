package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"backport.dev/backport/internal/config"
	bperrors "backport.dev/backport/internal/errors"
	"backport.dev/backport/internal/github"
	"backport.dev/backport/internal/output"
	"backport.dev/backport/testhelpers"
)

const (
	testKind = "alpha"
	testPR   = 1234
)

type cliScene struct {
	t        *testing.T
	up       *testhelpers.Upstream
	gh       *testhelpers.MockGitHubServerConfig
	sessions *config.SessionStore
	tokens   []string
}

func newCLIScene(t *testing.T) *cliScene {
	t.Helper()
	up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
	up.NewFork(testhelpers.ForkOwner)

	dir := t.TempDir()
	cfg := config.Config{
		Targets: config.TargetBranchConfig{
			testKind: {
				Owner:         "owner",
				Repo:          "repo",
				Branch:        "v3",
				RequiredLabel: config.DefaultRequiredLabel,
				BackportLabel: config.DefaultBackportLabel,
			},
		},
		SSHURLTemplate:   up.URLTemplate(),
		HTTPSURLTemplate: up.URLTemplate(),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	t.Setenv("BACKPORT_CONFIG", configPath)
	t.Setenv("BACKPORT_STATE_DIR", filepath.Join(dir, "sessions"))
	t.Setenv("BACKPORT_LOG_FILE", filepath.Join(dir, "backport.log"))
	t.Setenv("BACKPORT_NO_INTERACTIVE", "1")
	t.Setenv("BACKPORT_GITHUB_TOKEN", "test-token")
	t.Setenv("TMPDIR", t.TempDir())
	t.Setenv("DEBUG", "")

	return &cliScene{
		t:        t,
		up:       up,
		gh:       testhelpers.NewMockGitHubServerConfig(),
		sessions: config.NewSessionStore(filepath.Join(dir, "sessions")),
	}
}

func (s *cliScene) factory(_ context.Context, token string, _ *config.Config, _ *output.Splog) (github.Client, error) {
	s.tokens = append(s.tokens, token)
	client, _, _ := testhelpers.NewMockGitHubClient(s.t, s.gh)
	return github.NewClientFromGitHub(client), nil
}

func (s *cliScene) run(args ...string) (int, string) {
	s.t.Helper()
	cmd := newRootCmd("test", s.factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return Execute(context.Background(), cmd), out.String()
}

func prArgs(extra ...string) []string {
	return append([]string{"--repo", testKind, "--pr", fmt.Sprint(testPR)}, extra...)
}

func TestCLICleanBackport(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.MergePR(testPR, "fix-overflow", "fix.txt", "fixed\n")
	s.gh.AddMergedPR(testPR, "Fix overflow", sha, config.DefaultRequiredLabel)

	code, out := s.run(prArgs()...)
	require.Equal(t, ExitOK, code, out)
	require.Contains(t, out, "https://github.com/owner/repo/pull/5001")
	require.Equal(t, []string{"test-token"}, s.tokens)
	require.Len(t, s.gh.Created(), 1)
}

func TestCLIBackportBySHA(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.MergePR(testPR, "fix-overflow", "fix.txt", "fixed\n")
	s.gh.AddMergedPR(testPR, "Fix overflow", sha, config.DefaultRequiredLabel)

	code, out := s.run("--repo", testKind, "--sha", sha)
	require.Equal(t, ExitOK, code, out)
	require.Len(t, s.gh.Created(), 1)
}

func TestCLINoActionRequired(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.MergePR(testPR, "fix-overflow", "fix.txt", "fixed\n")
	s.gh.AddMergedPR(testPR, "Fix overflow", sha, "cat:bug")

	code, out := s.run(prArgs()...)
	require.Equal(t, ExitOK, code, out)
	require.Contains(t, out, "Nothing to do")
	require.Empty(t, s.gh.Created())
}

func TestCLIConflictThenContinue(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.ConflictingMerge(testPR, "fix-lib")
	s.gh.AddMergedPR(testPR, "Fix lib", sha, config.DefaultRequiredLabel)

	code, out := s.run(prArgs()...)
	require.Equal(t, ExitManualStep, code, out)
	require.Contains(t, out, "git cherry-pick --continue")
	require.Contains(t, out, "backport --repo alpha --pr 1234 --continue")
	require.NotContains(t, out, "❌")

	session, err := s.sessions.Load(testKind, testPR)
	require.NoError(t, err)

	t.Run("fresh run is refused while suspended", func(t *testing.T) {
		code, out := s.run(prArgs()...)
		require.Equal(t, ExitFatal, code)
		require.Contains(t, out, "--discard")
	})

	repo := testhelpers.NewGitRepoAt(session.Workspace)
	require.NoError(t, repo.WriteFile(testhelpers.ConflictFile, "one resolved\n"))
	require.NoError(t, repo.RunGitCommand("cherry-pick", "--continue"))

	code, out = s.run(prArgs("--continue")...)
	require.Equal(t, ExitOK, code, out)
	require.Len(t, s.gh.Created(), 1)

	_, err = s.sessions.Load(testKind, testPR)
	require.ErrorIs(t, err, bperrors.ErrSessionNotFound)
}

func TestCLIAbortBeforePush(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.MergePR(testPR, "fix-overflow", "fix.txt", "fixed\n")
	s.gh.AddMergedPR(testPR, "Fix overflow", sha, config.DefaultRequiredLabel)

	code, out := s.run(prArgs("--abort-before-push")...)
	require.Equal(t, ExitManualStep, code, out)
	require.Empty(t, s.gh.Created())
}

func TestCLIContinueWithoutSession(t *testing.T) {
	s := newCLIScene(t)

	code, out := s.run(prArgs("--continue")...)
	require.Equal(t, ExitFatal, code)
	require.Contains(t, out, bperrors.ErrSessionNotFound.Error())
	require.Equal(t, 1, strings.Count(out, "❌"))
	require.Empty(t, s.gh.Requests)

	logged, err := os.ReadFile(os.Getenv("BACKPORT_LOG_FILE"))
	require.NoError(t, err)
	require.Contains(t, string(logged), bperrors.ErrSessionNotFound.Error())
}

func TestCLIDiscard(t *testing.T) {
	s := newCLIScene(t)
	t.Setenv("BACKPORT_GITHUB_TOKEN", "")
	require.NoError(t, s.sessions.Save(&config.SessionState{
		RepoKind:  testKind,
		PRNumber:  testPR,
		Workspace: "/tmp/bp-kept/work",
		Branch:    "backport-1234",
		Phase:     config.PhaseConflict,
	}))

	code, out := s.run(prArgs("--discard")...)
	require.Equal(t, ExitOK, code, out)
	require.Contains(t, out, "/tmp/bp-kept/work")
	require.Empty(t, s.tokens)

	_, err := s.sessions.Load(testKind, testPR)
	require.ErrorIs(t, err, bperrors.ErrSessionNotFound)

	code, _ = s.run(prArgs("--discard")...)
	require.Equal(t, ExitFatal, code)
}

func TestCLIOpenBrowser(t *testing.T) {
	s := newCLIScene(t)
	sha := s.up.MergePR(testPR, "fix-overflow", "fix.txt", "fixed\n")
	s.gh.AddMergedPR(testPR, "Fix overflow", sha, config.DefaultRequiredLabel)

	dir := t.TempDir()
	opened := filepath.Join(dir, "opened")
	script := filepath.Join(dir, "browser")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\" > "+opened+"\n"), 0700))
	t.Setenv("BROWSER", script)

	code, out := s.run(prArgs("--open")...)
	require.Equal(t, ExitOK, code, out)

	data, err := os.ReadFile(opened)
	require.NoError(t, err)
	require.Equal(t, "https://github.com/owner/repo/pull/5001", strings.TrimSpace(string(data)))
}

func TestCLIFlagValidation(t *testing.T) {
	s := newCLIScene(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "repo is required", args: []string{"--pr", "1"}, want: `"repo"`},
		{name: "pr or sha is required", args: []string{"--repo", testKind}, want: "pr"},
		{name: "pr and sha are exclusive", args: []string{"--repo", testKind, "--pr", "1", "--sha", "abc"}, want: "sha"},
		{name: "modes are exclusive", args: prArgs("--continue", "--discard"), want: "continue"},
		{name: "unknown kind", args: []string{"--repo", "numpy", "--pr", "1"}, want: testKind},
		{name: "negative pr", args: []string{"--repo", testKind, "--pr", "-3"}, want: "positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := s.run(tt.args...)
			require.Equal(t, ExitFatal, code)
			require.Contains(t, out, tt.want)
		})
	}
	require.Empty(t, s.gh.Requests)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "no action", err: fmt.Errorf("%w: unlabeled", bperrors.ErrNoActionRequired), want: ExitOK},
		{name: "conflict", err: bperrors.NewConflictError("/tmp/ws", []string{"lib.txt"}, "resolve"), want: ExitManualStep},
		{name: "aborted", err: bperrors.NewAbortedError("/tmp/ws", "push it"), want: ExitManualStep},
		{name: "push rejected", err: bperrors.NewStepError("push", "/tmp/ws", bperrors.ErrPushRejected), want: ExitFatal},
		{name: "anything else", err: errors.New("boom"), want: ExitFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestBrowserCommand(t *testing.T) {
	t.Setenv("BROWSER", "")
	require.Equal(t, []string{"open", "https://x"}, browserCommand("darwin", "https://x").Args)
	require.Equal(t, []string{"cmd", "/c", "start", "https://x"}, browserCommand("windows", "https://x").Args)
	require.Equal(t, []string{"xdg-open", "https://x"}, browserCommand("linux", "https://x").Args)

	t.Setenv("BROWSER", "firefox")
	require.Equal(t, []string{"firefox", "https://x"}, browserCommand("linux", "https://x").Args)
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCmd("1.2.3", "abc123", "2026-10-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--version"})

	require.Equal(t, ExitOK, Execute(context.Background(), cmd))
	require.Contains(t, out.String(), "1.2.3 (commit abc123, built 2026-10-01)")
}
