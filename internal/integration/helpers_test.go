package integration

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"backport.dev/backport/internal/config"
	"backport.dev/backport/testhelpers"
)

const (
	kind     = "alpha"
	prNumber = 1234
	token    = "integration-token"
)

// TestShell runs the backport binary the way an operator would from a terminal
type TestShell struct {
	t          *testing.T
	binaryPath string
	env        []string
	Upstream   *testhelpers.Upstream
	Fork       string
	GitHub     *testhelpers.MockGitHubServerConfig
	Sessions   *config.SessionStore
	lastOutput string
	lastCode   int
}

// NewTestShell creates an upstream with a v3 maintenance branch, a fork and
// a mock GitHub API, and writes a config pointing the binary at them.
func NewTestShell(t *testing.T) *TestShell {
	t.Helper()
	up := testhelpers.NewUpstream(t, "owner", "repo", "v3")
	fork := up.NewFork(testhelpers.ForkOwner)

	gh := testhelpers.NewMockGitHubServerConfig()
	gh.Token = token
	server := testhelpers.NewMockGitHubServer(t, gh)

	dir := t.TempDir()
	cfg := config.Config{
		Targets: config.TargetBranchConfig{
			kind: {
				Owner:         "owner",
				Repo:          "repo",
				Branch:        "v3",
				RequiredLabel: config.DefaultRequiredLabel,
				BackportLabel: config.DefaultBackportLabel,
				PostComment:   "[automatic post] Jenkins, test this please.",
			},
		},
		SSHURLTemplate:   up.URLTemplate(),
		HTTPSURLTemplate: up.URLTemplate(),
		APIBaseURL:       server.URL,
		StateDir:         filepath.Join(dir, "sessions"),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	return &TestShell{
		t:          t,
		binaryPath: getBackportBinary(t),
		env: append(os.Environ(),
			"BACKPORT_CONFIG="+configPath,
			"BACKPORT_LOG_FILE="+filepath.Join(dir, "backport.log"),
			"BACKPORT_GITHUB_TOKEN="+token,
			"BACKPORT_NO_INTERACTIVE=1",
			"NO_COLOR=1",
			"TMPDIR="+t.TempDir(),
		),
		Upstream: up,
		Fork:     fork,
		GitHub:   gh,
		Sessions: config.NewSessionStore(cfg.StateDir),
	}
}

// SetEnv overrides an environment variable for later runs
func (s *TestShell) SetEnv(key, value string) *TestShell {
	s.env = append(s.env, key+"="+value)
	return s
}

// Run executes backport with args and records the output and exit code
func (s *TestShell) Run(args ...string) *TestShell {
	s.t.Helper()
	cmd := exec.Command(s.binaryPath, args...)
	cmd.Env = s.env
	out, err := cmd.CombinedOutput()
	s.lastOutput = string(out)
	s.lastCode = 0
	if err != nil {
		var exitErr *exec.ExitError
		require.True(s.t, errors.As(err, &exitErr), "failed to run backport: %v", err)
		s.lastCode = exitErr.ExitCode()
	}
	return s
}

// ExpectCode asserts the exit code of the last run
func (s *TestShell) ExpectCode(code int) *TestShell {
	s.t.Helper()
	require.Equal(s.t, code, s.lastCode, "unexpected exit code, output:\n%s", s.lastOutput)
	return s
}

// OutputContains asserts the output of the last run contains text
func (s *TestShell) OutputContains(text string) *TestShell {
	s.t.Helper()
	require.Contains(s.t, s.lastOutput, text)
	return s
}
