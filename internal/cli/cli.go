// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// TUIRunner starts the full-screen interface on an app.
type TUIRunner func(ctx context.Context, app *App) error

// CLI holds state shared by every command of one invocation.
type CLI struct {
	configPath string
	jsonOut    bool
	debug      bool

	cfg *config.Config
	log *zap.Logger
	app *App

	loadConfig func(path string) (*config.Config, error)
	newApp     func(cfg *config.Config, log *zap.Logger) (*App, error)
	newLogger  func(cfg *config.Config, debug bool) (*zap.Logger, error)
	prompt     Prompter
	runTUI     TUIRunner
}

// Option customizes a CLI.
type Option func(*CLI)

// WithConfigLoader replaces configuration loading.
func WithConfigLoader(fn func(path string) (*config.Config, error)) Option {
	return func(c *CLI) { c.loadConfig = fn }
}

// WithAppFactory replaces App construction.
func WithAppFactory(fn func(cfg *config.Config, log *zap.Logger) (*App, error)) Option {
	return func(c *CLI) { c.newApp = fn }
}

// WithPrompter replaces interactive prompts.
func WithPrompter(p Prompter) Option {
	return func(c *CLI) { c.prompt = p }
}

// WithTUI sets the function that runs the full-screen interface.
func WithTUI(fn TUIRunner) Option {
	return func(c *CLI) { c.runTUI = fn }
}

// WithLogger uses log instead of building one from the configuration.
func WithLogger(log *zap.Logger) Option {
	return func(c *CLI) {
		c.newLogger = func(*config.Config, bool) (*zap.Logger, error) { return log, nil }
	}
}

// New creates a CLI.
func New(opts ...Option) *CLI {
	c := &CLI{
		loadConfig: loadConfig,
		newApp:     NewApp,
		newLogger:  newLogger,
		prompt:     surveyPrompter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		if err := config.LoadDotEnv(); err != nil {
			return nil, err
		}
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return logging.New(logging.Options{File: path, Level: level, Console: debug})
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// Command builds the command tree.
func (c *CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Chat with local Ollama models",
		Long: `rigchat is a terminal chat client for a local Ollama server.

Run without a command to open the full-screen interface.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.startTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.rigchat/config.toml)")
	flags.BoolVar(&c.jsonOut, "json", false, "print machine-readable JSON")
	flags.BoolVar(&c.debug, "debug", false, "log at debug level to stderr as well as the log file")

	root.AddCommand(
		c.newChatCmd(),
		c.newModelsCmd(),
		c.newStatusCmd(),
		c.newToolCmd(),
		c.newChatsCmd(),
		c.newProjectsCmd(),
		c.newKeysCmd(),
		c.newConfigCmd(),
	)
	return root
}

func (c *CLI) setup() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := c.loadConfig(c.configPath)
	if err != nil {
		return err
	}
	log, err := c.newLogger(cfg, c.debug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	c.cfg = cfg
	c.log = logging.OrNop(log)
	return nil
}

// App returns the wired components, building them on first use.
func (c *CLI) App() (*App, error) {
	if c.app != nil {
		return c.app, nil
	}
	if err := c.setup(); err != nil {
		return nil, err
	}
	app, err := c.newApp(c.cfg, c.log)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

// Close releases the app if one was built.
func (c *CLI) Close() error {
	if c.app == nil {
		if c.log != nil {
			_ = c.log.Sync()
		}
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *CLI) startTUI(ctx context.Context) error {
	if c.runTUI == nil {
		return fmt.Errorf("interface not available in this build")
	}
	if err := RequiresTTY("open the interface"); err != nil {
		return err
	}
	app, err := c.App()
	if err != nil {
		return err
	}
	return c.runTUI(ctx, app)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	c := New(opts...)
	root := c.Command()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		return ExitCode(err)
	}
	return ExitSuccess
}
