// Package config loads ctoint's workspace settings from .ctoint.yaml:
// allocator allow-list extensions, logging, and CLI defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ctoint/internal/alloc"
	"ctoint/internal/logging"
)

// Config holds all ctoint configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Allocators extends the built-in allocator allow-list with
	// project-specific wrappers around malloc/calloc/strdup/etc.
	Allocators []AllocatorOverride `yaml:"allocators"`

	Logging LoggingConfig `yaml:"logging"`

	// InPlaceBackup controls whether `ctoint fix --in-place` writes a
	// `.orig` backup before overwriting a file.
	InPlaceBackup bool `yaml:"in_place_backup"`
}

// AllocatorOverride names one additional recognized allocator.
type AllocatorOverride struct {
	Name        string `yaml:"name"`
	ResultShape string `yaml:"result_shape"` // "returned_pointer" | "out_param_pointer"
	CheckStyle  string `yaml:"check_style"`  // "ptr_null" | "int_negative" | "int_nonzero"
}

// LoggingConfig mirrors internal/logging's on-disk shape so both packages
// can parse the same .ctoint.yaml without internal/logging importing this
// package.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns ctoint's built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:          "ctoint",
		Version:       "0.1.0",
		InPlaceBackup: true,
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads .ctoint.yaml at path, falling back to DefaultConfig when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	logging.Boot("config loaded: %d allocator override(s)", len(cfg.Allocators))
	return cfg, nil
}

// Save writes c to path as YAML, creating its parent directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ResolveAllocators merges the built-in allocator allow-list with the
// project's overrides, letting .ctoint.yaml teach the analyzer about
// in-house allocation wrappers.
func (c *Config) ResolveAllocators() []alloc.AllocatorSpec {
	specs := make([]alloc.AllocatorSpec, len(alloc.DefaultAllocators))
	copy(specs, alloc.DefaultAllocators)

	for _, o := range c.Allocators {
		spec := alloc.AllocatorSpec{
			Name:        o.Name,
			ResultShape: resolveResultShape(o.ResultShape),
			CheckStyle:  resolveCheckStyle(o.CheckStyle),
		}
		specs = append(specs, spec)
	}
	return specs
}

func resolveResultShape(s string) alloc.ResultShape {
	if s == "out_param_pointer" {
		return alloc.OutParamPointer
	}
	return alloc.ReturnedPointer
}

func resolveCheckStyle(s string) alloc.CheckStyle {
	switch s {
	case "int_negative":
		return alloc.CheckIntNegative
	case "int_nonzero":
		return alloc.CheckIntNonzero
	default:
		return alloc.CheckPtrNull
	}
}
