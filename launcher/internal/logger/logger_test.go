package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/obot-platform/redirect-launcher/launcher/internal/config"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.log")
	log, err := New(config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		File:     path,
		MaxSize:  1024,
		KeepSize: 128,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Debug("hidden")
	log.LogChildExit(42, 3)
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "child process finished" {
		t.Errorf("msg = %v, want %q", entry["msg"], "child process finished")
	}
	if entry["exit_code"] != float64(3) {
		t.Errorf("exit_code = %v, want 3", entry["exit_code"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("missing time key")
	}
}

func TestNewTruncatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("old line\n"), 100), 0600); err != nil {
		t.Fatalf("Failed to seed log file: %v", err)
	}

	log, err := New(config.LoggingConfig{
		Level:    "info",
		Format:   "text",
		File:     path,
		MaxSize:  100,
		KeepSize: 18,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.HasPrefix(string(data), "=== Log truncated") {
		t.Errorf("log file not truncated, starts with %q", data[:min(len(data), 20)])
	}
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.log")
	log, err := New(config.LoggingConfig{Level: "warn", Format: "json", File: path, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("before")
	log.SetLevel("debug")
	if log.Level() != "debug" {
		t.Errorf("Level() = %q, want %q", log.Level(), "debug")
	}
	log.Debug("after")
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), `"before"`) {
		t.Error("info entry logged while level was warn")
	}
	if !strings.Contains(string(data), `"after"`) {
		t.Error("debug entry missing after SetLevel(debug)")
	}
}

func TestWithSharesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.log")
	log, err := New(config.LoggingConfig{Level: "error", Format: "json", File: path, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	child := log.With("run_id", "abc")

	log.SetLevel("info")
	child.Info("from child")
	_ = log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"run_id":"abc"`) {
		t.Errorf("child entry missing run_id field: %s", data)
	}
}

func TestHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.LogLaunch("/bin/echo", []string{"/bin/echo", "hi"}, 10)
	log.LogTransfer("stdout", 5, "/tmp/out", 1024)
	log.LogTransferError("stderr", 6, "/tmp/err", errors.New("boom"))
	log.LogChildAbnormal(10, "signal: killed")

	tests := []struct {
		msg   string
		level zapcore.Level
	}{
		{"child process started", zapcore.InfoLevel},
		{"bytes transferred", zapcore.DebugLevel},
		{"transfer failed", zapcore.WarnLevel},
		{"child process finished abnormally", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			entries := logs.FilterMessage(tt.msg).All()
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Errorf("level = %v, want %v", entries[0].Level, tt.level)
			}
		})
	}

	transfer := logs.FilterMessage("bytes transferred").All()[0].ContextMap()
	if transfer["bytes"] != int64(1024) {
		t.Errorf("bytes = %v, want 1024", transfer["bytes"])
	}
}
