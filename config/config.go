// Package config loads the flatfs configuration file and turns backend
// addresses into stores.
//
// The file is selected by the FLATFS_CONFIG environment variable or the
// --config flag of the cli. Without either the defaults are used, which
// mount an in-memory store.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mwantia/flatfs"
	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/backend/namespace"
	"github.com/mwantia/flatfs/backend/readonly"
	"github.com/mwantia/flatfs/log"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a flatfs instance.
type Config struct {
	// Backend is the address of the object store, e.g. "sqlite:///var/lib/flatfs.db".
	// Default: memory://
	Backend string `yaml:"backend"`

	Log   LogConfig   `yaml:"log"`
	Mount MountConfig `yaml:"mount"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error or fatal.
	// Default: info
	Level string `yaml:"level"`

	// File additionally writes every message into a rotated log file.
	File string `yaml:"file"`

	// JSON writes one JSON object per message.
	JSON bool `yaml:"json"`

	// Quiet disables terminal output.
	Quiet bool `yaml:"quiet"`
}

// MountConfig configures the filesystem layer.
type MountConfig struct {
	// LossyRename lets rename replace a destination that is still open.
	// Default: false
	LossyRename bool `yaml:"lossy_rename"`

	// ReadOnly rejects every modification of the backend with EROFS.
	ReadOnly bool `yaml:"read_only"`

	// Namespace confines the filesystem to the keys prefixed with "namespace:",
	// so several filesystems can share one backend.
	Namespace string `yaml:"namespace"`
}

func Default() *Config {
	return &Config{
		Backend: "memory://",
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by FLATFS_CONFIG, or returns the defaults if it is unset.
func Load() (*Config, error) {
	path := os.Getenv("FLATFS_CONFIG")
	if path == "" {
		return Default(), nil
	}

	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, on top of the defaults.
// Environment variables in the backend address and the log file are expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}

	cfg.Backend = os.ExpandEnv(cfg.Backend)
	cfg.Log.File = os.ExpandEnv(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("no backend address defined: %w", ErrMalformedBackendAddress)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if strings.Contains(c.Mount.Namespace, namespace.Separator) {
		return fmt.Errorf("namespace '%s' must not contain '%s'", c.Mount.Namespace, namespace.Separator)
	}

	return nil
}

// Store creates the backend named by the address and wraps it as
// configured by the mount section.
func (c *Config) Store(ctx context.Context) (backend.Store, error) {
	store, err := ParseBackendAddress(ctx, c.Backend)
	if err != nil {
		return nil, err
	}

	if c.Mount.Namespace != "" {
		store, err = namespace.NewNamespace(store, c.Mount.Namespace)
		if err != nil {
			return nil, err
		}
	}
	if c.Mount.ReadOnly {
		store = readonly.NewReadOnly(store)
	}

	return store, nil
}

// Options returns the filesystem options described by the configuration.
func (c *Config) Options() ([]flatfs.Option, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	opts := []flatfs.Option{
		flatfs.WithLogLevel(level),
		flatfs.WithLogFile(c.Log.File),
	}
	if c.Log.JSON {
		opts = append(opts, flatfs.WithJSONLog())
	}
	if c.Log.Quiet {
		opts = append(opts, flatfs.WithoutTerminalLog())
	}
	if c.Mount.LossyRename {
		opts = append(opts, flatfs.WithLossyRename())
	}

	return opts, nil
}
