// Package config loads the settings shared by the seqlog commands from YAML
// and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-seqlog/pkg/logging"
	"github.com/dd0wney/cluso-seqlog/pkg/navigator"
	"github.com/dd0wney/cluso-seqlog/pkg/persistence"
	"github.com/dd0wney/cluso-seqlog/pkg/validation"
	"github.com/dd0wney/cluso-seqlog/pkg/wal"
)

// Environment variables that override file settings.
const (
	EnvDataDir      = "SEQLOG_DATA_DIR"
	EnvMaxEntrySeek = "SEQLOG_MAX_ENTRY_SEEK"
	EnvLogLevel     = "LOG_LEVEL"
)

const (
	DefaultDataDir  = "./data"
	DefaultLogLevel = "info"

	// MaxEntrySeekLimit bounds max_entry_seek.
	MaxEntrySeekLimit = 1 << 20
)

// Config holds log storage settings.
type Config struct {
	DataDir      string `yaml:"data_dir" validate:"required"`
	MaxEntrySeek int    `yaml:"max_entry_seek"`
	Compression  string `yaml:"compression" validate:"oneof=none snappy zstd lz4"`
	SyncOnAppend bool   `yaml:"sync_on_append"`
	Backend      string `yaml:"backend" validate:"oneof=file mmap memory"`
	LogLevel     string `yaml:"log_level" validate:"oneof=debug info warn error"`
	MetricsAddr  string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      DefaultDataDir,
		MaxEntrySeek: navigator.DefaultMaxEntrySeek,
		Compression:  wal.CompressionNone.String(),
		SyncOnAppend: false,
		Backend:      string(persistence.BackendFile),
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. An empty path skips the file. Keys
// absent from the file keep their defaults; a max_entry_seek that is present
// but not positive is rejected.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyStringDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvMaxEntrySeek); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxEntrySeek, err)
		}
		c.MaxEntrySeek = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// ApplyDefaults fills unset fields from DefaultConfig. A zero MaxEntrySeek
// counts as unset; a negative one is left for Validate to reject.
func (c *Config) ApplyDefaults() {
	c.MaxEntrySeek = validation.DefaultOr(c.MaxEntrySeek, navigator.DefaultMaxEntrySeek)
	c.applyStringDefaults()
}

func (c *Config) applyStringDefaults() {
	d := DefaultConfig()
	c.DataDir = validation.DefaultOr(c.DataDir, d.DataDir)
	c.Compression = validation.DefaultOr(c.Compression, d.Compression)
	c.Backend = validation.DefaultOr(c.Backend, d.Backend)
	c.LogLevel = validation.DefaultOr(c.LogLevel, d.LogLevel)
}

// Validate checks every field.
func (c *Config) Validate() error {
	return validation.NewConfigValidator("Config").
		Struct(c).
		RangeInt("MaxEntrySeek", c.MaxEntrySeek, 1, MaxEntrySeekLimit).
		When(c.Backend == string(persistence.BackendMmap), func(v *validation.ConfigValidator) {
			v.Custom("SyncOnAppend", func() error {
				if c.SyncOnAppend {
					return fmt.Errorf("mmap backend is read-only")
				}
				return nil
			})
		}).
		Validate()
}

// CompressionType returns the parsed compression.
func (c *Config) CompressionType() (wal.Compression, error) {
	return wal.ParseCompression(c.Compression)
}

// BackendType returns the byte store backend.
func (c *Config) BackendType() persistence.Backend {
	return persistence.Backend(c.Backend)
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Logger returns a JSON logger to stderr at the configured level.
func (c *Config) Logger() logging.Logger {
	return logging.NewJSONLogger(os.Stderr, c.Level())
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
