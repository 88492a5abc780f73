package runtime

import (
	"fmt"
	"io"
	"strings"

	"backport.dev/backport/internal/config"
	"backport.dev/backport/internal/engine"
	"backport.dev/backport/internal/git"
	"backport.dev/backport/internal/github"
	"backport.dev/backport/internal/output"
)

// Options configures NewContext
type Options struct {
	// ConfigPath is the config file to load. Empty means config.DefaultConfigPath().
	ConfigPath string
	// LogFilePath is the rotating log file. Empty means output.DefaultLogFilePath().
	LogFilePath string
	// Writer receives console output
	Writer io.Writer
	Debug  bool
	// Program is the command shown in resume instructions
	Program string
}

// Context provides access to configuration and output for commands
type Context struct {
	Config   *config.Config
	Splog    *output.Splog
	Sessions *config.SessionStore
	program  string
}

// NewContext loads configuration and opens the logger. A log file that
// cannot be opened degrades to console-only logging with a warning.
func NewContext(opts Options) (*Context, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultConfigPath()
	}
	if opts.LogFilePath == "" {
		opts.LogFilePath = output.DefaultLogFilePath()
	}

	splog, err := output.NewSplogWithConfig(opts.Writer, opts.LogFilePath, opts.Debug)
	if err != nil {
		splog = output.NewSplog(opts.Writer, opts.Debug)
		splog.Warn("Logging to the console only: %v", err)
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		_ = splog.Close()
		return nil, err
	}
	splog.Debug("config: %s (%d targets)", opts.ConfigPath, len(cfg.Targets))

	return &Context{
		Config:   cfg,
		Splog:    splog,
		Sessions: config.NewSessionStore(cfg.SessionDir()),
		program:  opts.Program,
	}, nil
}

// NewEngine builds an engine that talks to client. A nil client is
// enough for discarding sessions.
func (c *Context) NewEngine(client github.Client) (*engine.Engine, error) {
	manager := git.NewManager()
	manager.Trace = func(dir, name string, args []string) {
		c.Splog.Debug("%s %s (in %s)", name, strings.Join(args, " "), dir)
	}

	eng, err := engine.New(engine.Options{
		Config:     c.Config,
		Client:     client,
		Workspaces: manager,
		Sessions:   c.Sessions,
		Splog:      c.Splog,
		Program:    c.program,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}

// Close flushes and closes the log file
func (c *Context) Close() error {
	return c.Splog.Close()
}
