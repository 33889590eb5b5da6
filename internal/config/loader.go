package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config)
	ConfigDir string
	// Environment overrides automatic environment detection
	Environment string
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads configuration with automatic environment detection: it looks
// for "<ConfigDir>/<environment>.yaml", falling back to "<ConfigDir>/default.yaml".
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	candidate := filepath.Join(options.ConfigDir, env+".yaml")
	if _, err := os.Stat(candidate); err == nil {
		return LoadFromFile(candidate)
	}

	fallback := filepath.Join(options.ConfigDir, "default.yaml")
	if _, err := os.Stat(fallback); err == nil {
		return LoadFromFile(fallback)
	}

	return nil, fmt.Errorf("no configuration file found in %q for environment %q", options.ConfigDir, env)
}
