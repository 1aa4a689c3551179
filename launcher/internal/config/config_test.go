package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transfer.ChunkSize != 1024 {
		t.Errorf("Default transfer.chunk_size = %d, want 1024", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.PollInterval != time.Second {
		t.Errorf("Default transfer.poll_interval = %v, want 1s", cfg.Transfer.PollInterval)
	}
	if cfg.Output.FileMode != 0644 {
		t.Errorf("Default output.file_mode = %#o, want 0644", cfg.Output.FileMode)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Default logging.level = %q, want %q", cfg.Logging.Level, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(_ *Config) {},
			wantErr: false,
		},
		{
			name: "zero chunk size",
			modify: func(c *Config) {
				c.Transfer.ChunkSize = 0
			},
			wantErr: true,
		},
		{
			name: "negative poll interval",
			modify: func(c *Config) {
				c.Transfer.PollInterval = -time.Second
			},
			wantErr: true,
		},
		{
			name: "file mode with type bits",
			modify: func(c *Config) {
				c.Output.FileMode = os.ModeDir | 0755
			},
			wantErr: true,
		},
		{
			name: "file mode not owner writable",
			modify: func(c *Config) {
				c.Output.FileMode = 0444
			},
			wantErr: true,
		},
		{
			name: "restrictive file mode",
			modify: func(c *Config) {
				c.Output.FileMode = 0600
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			modify: func(c *Config) {
				c.Logging.Format = "invalid"
			},
			wantErr: true,
		},
		{
			name: "log file with keep size above max size",
			modify: func(c *Config) {
				c.Logging.File = "/tmp/launcher.log"
				c.Logging.MaxSize = 100
				c.Logging.KeepSize = 200
			},
			wantErr: true,
		},
		{
			name: "log file with zero max size",
			modify: func(c *Config) {
				c.Logging.File = "/tmp/launcher.log"
				c.Logging.MaxSize = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
transfer:
  chunk_size: 4096
  poll_interval: 250ms

output:
  file_mode: 0600

logging:
  level: debug
  format: json

metrics:
  textfile: /var/lib/node_exporter/launcher.prom
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transfer.ChunkSize != 4096 {
		t.Errorf("Transfer.ChunkSize = %d, want 4096", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.PollInterval != 250*time.Millisecond {
		t.Errorf("Transfer.PollInterval = %v, want 250ms", cfg.Transfer.PollInterval)
	}
	if cfg.Output.FileMode != 0600 {
		t.Errorf("Output.FileMode = %#o, want 0600", cfg.Output.FileMode)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	// Unset keys keep their defaults.
	if cfg.Logging.MaxSize != 500*1024 {
		t.Errorf("Logging.MaxSize = %d, want %d", cfg.Logging.MaxSize, 500*1024)
	}
	if cfg.Metrics.Textfile != "/var/lib/node_exporter/launcher.prom" {
		t.Errorf("Metrics.Textfile = %q", cfg.Metrics.Textfile)
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for nonexistent file")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
transfer:
  chunk_size: invalid
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") error = %v", err)
	}
	if cfg.Transfer.ChunkSize != 1024 {
		t.Errorf("ChunkSize = %d, want default 1024", cfg.Transfer.ChunkSize)
	}

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault(missing) error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LAUNCHER_LOG_LEVEL", "warn")
	t.Setenv("LAUNCHER_CHUNK_SIZE", "65536")
	t.Setenv("LAUNCHER_POLL_INTERVAL", "50ms")
	t.Setenv("LAUNCHER_METRICS_TEXTFILE", "/tmp/launcher.prom")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want unchanged %q", cfg.Logging.Format, "text")
	}
	if cfg.Transfer.ChunkSize != 65536 {
		t.Errorf("Transfer.ChunkSize = %d, want 65536", cfg.Transfer.ChunkSize)
	}
	if cfg.Transfer.PollInterval != 50*time.Millisecond {
		t.Errorf("Transfer.PollInterval = %v, want 50ms", cfg.Transfer.PollInterval)
	}
	if cfg.Metrics.Textfile != "/tmp/launcher.prom" {
		t.Errorf("Metrics.Textfile = %q, want %q", cfg.Metrics.Textfile, "/tmp/launcher.prom")
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable chunk size", "LAUNCHER_CHUNK_SIZE", "lots"},
		{"zero chunk size", "LAUNCHER_CHUNK_SIZE", "0"},
		{"bad level", "LAUNCHER_LOG_LEVEL", "verbose"},
		{"bad duration", "LAUNCHER_POLL_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if err := Default().ApplyEnv(); err == nil {
				t.Errorf("ApplyEnv() with %s=%q expected error", tt.key, tt.value)
			}
		})
	}
}
