// Package config loads patchgrid configuration from TOML files.
//
// Configuration is optional: every field has a working default, and a
// missing config file is not an error. The file is looked up at
// $PATCHGRID_CONFIG, then $XDG_CONFIG_HOME/patchgrid/config.toml, then
// ~/.config/patchgrid/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/patchgrid/patchgrid/pkg/arrange"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "PATCHGRID_CONFIG"

// Config holds user-tunable settings for arrangement and caching.
type Config struct {
	Arrange ArrangeConfig `toml:"arrange"`
	Cache   CacheConfig   `toml:"cache"`
	Server  ServerConfig  `toml:"server"`
}

// ArrangeConfig tunes the arrangement engine.
type ArrangeConfig struct {
	HardwareOnSides *bool   `toml:"hardware_on_sides"`
	MinColumns      int     `toml:"min_columns"`
	BoxSpacing      float64 `toml:"box_spacing"`
	ColumnSpacing   float64 `toml:"column_spacing"`
	CellWidth       int     `toml:"cell_width"`
	CellHeight      int     `toml:"cell_height"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	// Disabled turns caching off entirely.
	Disabled bool `toml:"disabled"`

	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`

	// RedisURL switches to the Redis backend when set.
	RedisURL string `toml:"redis_url"`

	// Scope prefixes all cache keys, isolating instances that share a backend.
	Scope string `toml:"scope"`
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	MongoURL string `toml:"mongo_url"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Arrange: ArrangeConfig{
			MinColumns:    arrange.DefaultMinColumns,
			BoxSpacing:    arrange.DefaultBoxSpacing,
			ColumnSpacing: arrange.DefaultColumnSpacing,
			CellWidth:     arrange.DefaultCellWidth,
			CellHeight:    arrange.DefaultCellHeight,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the config file from the standard locations and merges it
// over the defaults. A missing file returns the defaults without error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file and merges it over the defaults.
// A missing file returns the defaults without error.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the config file location without checking it exists.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "patchgrid", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", "patchgrid", "config.toml"), nil
}

// applyDefaults fills zero-valued fields after a partial file load.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Arrange.MinColumns == 0 {
		c.Arrange.MinColumns = def.Arrange.MinColumns
	}
	if c.Arrange.BoxSpacing == 0 {
		c.Arrange.BoxSpacing = def.Arrange.BoxSpacing
	}
	if c.Arrange.ColumnSpacing == 0 {
		c.Arrange.ColumnSpacing = def.Arrange.ColumnSpacing
	}
	if c.Arrange.CellWidth == 0 {
		c.Arrange.CellWidth = def.Arrange.CellWidth
	}
	if c.Arrange.CellHeight == 0 {
		c.Arrange.CellHeight = def.Arrange.CellHeight
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

// HardwareOnSides resolves the arrange option, defaulting to true.
func (c ArrangeConfig) HardwareSides() bool {
	if c.HardwareOnSides == nil {
		return true
	}
	return *c.HardwareOnSides
}
