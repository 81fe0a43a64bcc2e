// Package cli implements the trikot command-line interface.
//
// # Commands
//
//   - theme: derive and show the colors a note produces
//   - render: export an invitation shirt to PNG and deliver it
//   - serve: run the HTTP service
//   - cache: inspect and clear the artifact cache
//   - completion: shell completion scripts
//
// Settings come from a TOML file (see [config.Load]); flags override them.
// All commands support --verbose (-v) for debug logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trikot/pkg/buildinfo"
	"github.com/matzehuels/trikot/pkg/cache"
	"github.com/matzehuels/trikot/pkg/config"
	"github.com/matzehuels/trikot/pkg/fonts"
	"github.com/matzehuels/trikot/pkg/observability"
	"github.com/matzehuels/trikot/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "trikot"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag; empty means the default location.
	ConfigPath string
	// Config is loaded before any command runs.
	Config config.Config

	out io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "trikot turns party answers into a personalised invitation shirt",
		Long:         `trikot derives a deterministic color theme from a guest's note, composes it with their name and age onto the shirt artwork, and exports the result as a PNG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/trikot/config.toml)")

	root.AddCommand(c.themeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Cache.Dir == "" {
		if dir, err := cacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}
	c.Config = cfg
	observability.Install(observability.NewLogHooks(c.Logger))
	c.Logger.Debug("loaded config", "path", c.ConfigPath, "backend", cfg.Render.Backend, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner wired to the configured cache, fonts
// and template. The caller closes it.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, nil, c.Logger)
	r.Fonts = c.fontRegistry()
	r.TemplatePath = c.Config.Assets.Template
	r.ChromeURL = c.Config.Render.ChromeURL
	r.AttachFrames = c.Config.Render.AttachFrames
	r.SettleFrames = c.Config.Render.SettleFrames
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cache.New(ctx, cache.Options{
		Backend:   c.Config.Cache.Backend,
		Dir:       c.Config.Cache.Dir,
		RedisAddr: c.Config.Cache.RedisAddr,
	})
}

func (c *CLI) fontRegistry() *fonts.Registry {
	a := c.Config.Assets
	return fonts.NewRegistry(fonts.Sources(a.UIFont, a.UIItalicFont, a.DisplayFont)...)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/trikot/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
