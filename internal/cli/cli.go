// Package cli implements the patchgrid command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/patchgrid/patchgrid/pkg/buildinfo"
	"github.com/patchgrid/patchgrid/pkg/cache"
	"github.com/patchgrid/patchgrid/pkg/config"
	"github.com/patchgrid/patchgrid/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "patchgrid"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config
}

// New creates a new CLI instance with a default logger and loaded config.
func New(w io.Writer, level log.Level) *CLI {
	cfg, err := config.Load()
	c := &CLI{
		Logger: newLogger(w, level),
		Config: cfg,
	}
	if err != nil {
		c.Logger.Warn("failed to load config, using defaults", "err", err)
	}
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "patchgrid",
		Short:        "Patchgrid arranges patchbay canvases into tidy columns",
		Long:         `Patchgrid computes deterministic column arrangements for audio patchbay canvases: hardware capture on the left, hardware playback on the right, and everything else flowing between them.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.arrangeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if c.Config.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(nil, c.Config.Cache.Scope)
	}
	return pipeline.NewRunner(cch, keyer, c.Logger), nil
}

// newCache selects the cache backend from flags and config: disabled,
// Redis when configured, file cache otherwise.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if c.Config.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, c.Config.Cache.RedisURL)
		if err != nil {
			c.Logger.Warn("redis unavailable, falling back to file cache", "err", err)
		} else {
			return rc, nil
		}
	}
	dir := c.Config.Cache.Dir
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/patchgrid/).
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

// pipelineOptions builds pipeline options from the loaded config.
func (c *CLI) pipelineOptions() pipeline.Options {
	a := c.Config.Arrange
	return pipeline.Options{
		HardwareOnSides: a.HardwareOnSides,
		MinColumns:      a.MinColumns,
		BoxSpacing:      a.BoxSpacing,
		ColumnSpacing:   a.ColumnSpacing,
		CellWidth:       a.CellWidth,
		CellHeight:      a.CellHeight,
		Logger:          c.Logger,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
