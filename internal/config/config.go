// Package config provides configuration defaults and loading from a YAML
// file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usestring/flowdoc/internal/logging"
	"github.com/usestring/flowdoc/internal/pattern"
	"github.com/usestring/flowdoc/pkg/jsoncompact"
)

// ErrInvalidConfig is wrapped by errors from parsing or validating a file.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all settings of a conversion run.
type Config struct {
	Include []string `yaml:"include"` // path patterns to include
	Exclude []string `yaml:"exclude"` // path patterns to exclude
	Select  string   `yaml:"select"`  // jq expression selecting flows

	// Body options
	Compact              bool `yaml:"compact"`
	CompactMaxArrayItems int  `yaml:"compact_max_array_items"`
	CompactMaxStringLen  int  `yaml:"compact_max_string_len"`
	CompactMaxDepth      int  `yaml:"compact_max_depth"`
	Schema               bool `yaml:"schema"`

	Workers          int `yaml:"workers"`            // render workers, default runtime.NumCPU()
	PatternCacheSize int `yaml:"pattern_cache_size"` // compiled pattern cache entries

	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level"`        // debug, info, warn, error
	File       string `yaml:"file"`         // empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`  // size before rotation
	MaxBackups int    `yaml:"max_backups"`  // rotated files kept
	MaxAgeDays int    `yaml:"max_age_days"` // days rotated files are kept
	Compress   bool   `yaml:"compress"`     // gzip rotated files
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	lc := logging.DefaultConfig()
	return &Config{
		CompactMaxArrayItems: jsoncompact.DefaultMaxArrayItems,
		CompactMaxStringLen:  jsoncompact.DefaultMaxStringLen,
		CompactMaxDepth:      jsoncompact.DefaultMaxDepth,
		Workers:              runtime.NumCPU(),
		PatternCacheSize:     pattern.DefaultCacheSize,
		Log: LogConfig{
			Level:      lc.Level,
			File:       lc.FilePath,
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		},
	}
}

// Load returns Default overlaid with the YAML file at path. Keys missing
// from the file keep their defaults; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse returns Default overlaid with the YAML document in data.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}
	if c.PatternCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("pattern_cache_size must be at least 1, got %d", c.PatternCacheSize))
	}
	if c.CompactMaxArrayItems < 0 || c.CompactMaxStringLen < 0 || c.CompactMaxDepth < 0 {
		problems = append(problems, "compact limits must not be negative")
	}
	if !logging.ValidLevel(c.Log.Level) {
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CompactOptions returns the JSON compaction settings, or nil when
// compaction is off.
func (c *Config) CompactOptions() *jsoncompact.Options {
	if !c.Compact {
		return nil
	}
	return &jsoncompact.Options{
		MaxArrayItems: c.CompactMaxArrayItems,
		MaxStringLen:  c.CompactMaxStringLen,
		MaxDepth:      c.CompactMaxDepth,
	}
}

// Logging returns the logging package configuration.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		FilePath:   c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
