package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	bperrors "backport.dev/backport/internal/errors"
)

const (
	// DefaultSSHURLTemplate is the git URL used for clone and push
	DefaultSSHURLTemplate = "git@github.com:{owner}/{repo}"
	// DefaultHTTPSURLTemplate is the git URL used with --https
	DefaultHTTPSURLTemplate = "https://github.com/{owner}/{repo}"
	// DefaultRequiredLabel marks pull requests that should be backported
	DefaultRequiredLabel = "to-be-backported"
	// DefaultBackportLabel is added to every backport pull request
	DefaultBackportLabel = "backport"
)

// Target describes one repository the tool can backport into.
type Target struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	// RequiredLabel, when set, must be present on the original pull request
	RequiredLabel string `json:"requiredLabel,omitempty"`
	// BackportLabel is added to the backport pull request
	BackportLabel string `json:"backportLabel,omitempty"`
	// DropLabels and DropLabelPrefixes are not copied from the original pull request
	DropLabels        []string `json:"dropLabels,omitempty"`
	DropLabelPrefixes []string `json:"dropLabelPrefixes,omitempty"`
	// PostComment is posted on the backport pull request after it is opened
	PostComment string `json:"postComment,omitempty"`
}

// Validate checks that the target names a repository and a maintenance branch
func (t Target) Validate() error {
	if t.Owner == "" || t.Repo == "" {
		return fmt.Errorf("target must set owner and repo")
	}
	if t.Branch == "" {
		return fmt.Errorf("target %s/%s must set a maintenance branch", t.Owner, t.Repo)
	}
	return nil
}

// FullName returns "owner/repo"
func (t Target) FullName() string {
	return t.Owner + "/" + t.Repo
}

// TargetBranchConfig maps a repository kind to its target
type TargetBranchConfig map[string]Target

// DefaultTargets returns the compiled-in target table
func DefaultTargets() TargetBranchConfig {
	defaults := func(owner, repo string) Target {
		return Target{
			Owner:             owner,
			Repo:              repo,
			Branch:            "v8",
			RequiredLabel:     DefaultRequiredLabel,
			BackportLabel:     DefaultBackportLabel,
			DropLabels:        []string{"reviewer-team"},
			DropLabelPrefixes: []string{"st:"},
			PostComment:       "[automatic post] Jenkins, test this please.",
		}
	}
	return TargetBranchConfig{
		"chainer": defaults("chainer", "chainer"),
		"cupy":    defaults("cupy", "cupy"),
	}
}

// Lookup returns the target for kind
func (c TargetBranchConfig) Lookup(kind string) (Target, error) {
	t, ok := c[kind]
	if !ok {
		return Target{}, fmt.Errorf("%w: unknown repository %q (choose from %s)", bperrors.ErrInvalidRequest, kind, strings.Join(c.Kinds(), ", "))
	}
	return t, nil
}

// Kinds returns the configured repository kinds in sorted order
func (c TargetBranchConfig) Kinds() []string {
	kinds := make([]string, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Config is the user configuration
type Config struct {
	Targets          TargetBranchConfig `json:"targets,omitempty"`
	SSHURLTemplate   string             `json:"sshUrlTemplate,omitempty"`
	HTTPSURLTemplate string             `json:"httpsUrlTemplate,omitempty"`
	// CloneDepth limits clone history. Zero clones the full maintenance branch.
	CloneDepth int `json:"cloneDepth,omitempty"`
	// APIBaseURL points the client at GitHub Enterprise
	APIBaseURL string `json:"apiBaseUrl,omitempty"`
	// StateDir overrides where session state is kept
	StateDir string `json:"stateDir,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		Targets:          DefaultTargets(),
		SSHURLTemplate:   DefaultSSHURLTemplate,
		HTTPSURLTemplate: DefaultHTTPSURLTemplate,
	}
}

// DefaultConfigPath returns the path to the config file.
// If BACKPORT_CONFIG is set, uses that path.
// Otherwise, uses ~/.backport/config.json
func DefaultConfigPath() string {
	if customPath := os.Getenv("BACKPORT_CONFIG"); customPath != "" {
		return customPath
	}
	return filepath.Join(homeDir(), ".backport", "config.json")
}

// LoadConfig reads the config file at path and layers it over the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	for kind, t := range file.Targets {
		if strings.ContainsAny(kind, `/\`) || kind == "" {
			return nil, fmt.Errorf("invalid repository kind %q in %s", kind, path)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("repository %q in %s: %w", kind, path, err)
		}
		cfg.Targets[kind] = t
	}
	if file.SSHURLTemplate != "" {
		cfg.SSHURLTemplate = file.SSHURLTemplate
	}
	if file.HTTPSURLTemplate != "" {
		cfg.HTTPSURLTemplate = file.HTTPSURLTemplate
	}
	if file.CloneDepth < 0 {
		return nil, fmt.Errorf("cloneDepth in %s must not be negative", path)
	}
	cfg.CloneDepth = file.CloneDepth
	cfg.APIBaseURL = file.APIBaseURL
	cfg.StateDir = file.StateDir

	return cfg, nil
}

// RepoURL expands the git URL template for owner/repo
func (c *Config) RepoURL(owner, repo string, https bool) string {
	tmpl := c.SSHURLTemplate
	if https {
		tmpl = c.HTTPSURLTemplate
	}
	return strings.NewReplacer("{owner}", owner, "{repo}", repo).Replace(tmpl)
}

// SessionDir returns the directory session state is stored in
func (c *Config) SessionDir() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	return DefaultSessionDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if we can't get home dir
		return "."
	}
	return home
}
