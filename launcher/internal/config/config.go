// Package config provides configuration types, loading, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. LAUNCHER_LOG_LEVEL.
const EnvPrefix = "LAUNCHER"

// Config is the root configuration structure.
type Config struct {
	Transfer TransferConfig `yaml:"transfer" json:"transfer"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// TransferConfig controls how the pumps drain pipes into files.
type TransferConfig struct {
	// ChunkSize is the maximum number of bytes moved by one transfer call.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// PollInterval bounds how long a pump waits for shutdown before
	// draining its pipe again.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// OutputConfig contains settings for the captured output files.
type OutputConfig struct {
	FileMode os.FileMode `yaml:"file_mode" json:"file_mode"`
}

// LoggingConfig contains logging settings for the launcher's own diagnostics.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
	// MaxSize and KeepSize bound the diagnostic log file between runs.
	MaxSize  int64 `yaml:"max_size" json:"max_size"`
	KeepSize int64 `yaml:"keep_size" json:"keep_size"`
}

// MetricsConfig contains metrics export settings.
type MetricsConfig struct {
	// Textfile is written in Prometheus text format after the launch.
	Textfile string `yaml:"textfile" json:"textfile"`
}

// Overrides holds values read from LAUNCHER_* environment variables.
// Nil fields were not set.
type Overrides struct {
	LogLevel        *string        `split_words:"true"`
	LogFormat       *string        `split_words:"true"`
	LogFile         *string        `split_words:"true"`
	ChunkSize       *int           `split_words:"true"`
	PollInterval    *time.Duration `split_words:"true"`
	MetricsTextfile *string        `split_words:"true"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Transfer: TransferConfig{
			ChunkSize:    1024,
			PollInterval: time.Second,
		},
		Output: OutputConfig{
			FileMode: 0644,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			MaxSize:  500 * 1024, // 500 KB
			KeepSize: 10 * 1024,  // 10 KB
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when path is empty or
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays LAUNCHER_* environment variables onto c and validates
// the result.
func (c *Config) ApplyEnv() error {
	var o Overrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	c.Apply(o)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Apply copies every set override onto c.
func (c *Config) Apply(o Overrides) {
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.Logging.Format = *o.LogFormat
	}
	if o.LogFile != nil {
		c.Logging.File = *o.LogFile
	}
	if o.ChunkSize != nil {
		c.Transfer.ChunkSize = *o.ChunkSize
	}
	if o.PollInterval != nil {
		c.Transfer.PollInterval = *o.PollInterval
	}
	if o.MetricsTextfile != nil {
		c.Metrics.Textfile = *o.MetricsTextfile
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Transfer.ChunkSize <= 0 {
		return errors.New("transfer chunk_size must be positive")
	}
	if c.Transfer.PollInterval <= 0 {
		return errors.New("transfer poll_interval must be positive")
	}

	if c.Output.FileMode&^os.ModePerm != 0 {
		return fmt.Errorf("invalid output file_mode: %#o", c.Output.FileMode)
	}
	if c.Output.FileMode&0200 == 0 {
		return errors.New("output file_mode must be owner-writable")
	}

	// Validate logging level
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate logging format
	switch c.Logging.Format {
	case "text", "json":
		// Valid
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Logging.File != "" {
		if c.Logging.MaxSize <= 0 {
			return errors.New("logging max_size must be positive")
		}
		if c.Logging.KeepSize < 0 || c.Logging.KeepSize > c.Logging.MaxSize {
			return errors.New("logging keep_size must be between 0 and max_size")
		}
	}

	return nil
}
