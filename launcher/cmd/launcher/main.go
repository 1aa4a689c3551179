// Package main is the entry point for the redirect launcher.
//
// Usage:
//
//	launcher [-config file] <stdout_file> <stderr_file> <main_file> [args...]
//
// The child is started as main_file with argv "main_file args...". Its
// standard output and standard error are copied into the two files and the
// launcher exits with the child's exit code.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/obot-platform/redirect-launcher/launcher/internal/config"
	"github.com/obot-platform/redirect-launcher/launcher/internal/logger"
	"github.com/obot-platform/redirect-launcher/launcher/internal/metrics"
	"github.com/obot-platform/redirect-launcher/launcher/internal/supervisor"
)

const exitUsage = 1

func main() {
	os.Exit(run(os.Args, os.Stderr))
}

type invocation struct {
	configFile string
	stdoutPath string
	stderrPath string
	path       string
	argv       []string
}

func parseArgs(args []string, stderr io.Writer) (*invocation, error) {
	name := "launcher"
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", os.Getenv("LAUNCHER_CONFIG"), "Path to configuration file")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [-config file] <stdout_file> <stderr_file> <main_file> [args...]\n", name)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) < 3 {
		fs.Usage()
		return nil, errors.New("expected stdout file, stderr file and program")
	}
	return &invocation{
		configFile: *configFile,
		stdoutPath: rest[0],
		stderrPath: rest[1],
		path:       rest[2],
		argv:       rest[2:],
	}, nil
}

func run(args []string, stderr io.Writer) int {
	// A missing .env file is normal. It may set LAUNCHER_CONFIG, so it is
	// loaded before the flags read their defaults.
	_ = godotenv.Load()

	inv, err := parseArgs(args, stderr)
	if err != nil {
		return exitUsage
	}

	cfg, err := config.LoadOrDefault(inv.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return supervisor.ExitSetupFailure
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(stderr, "Error applying environment: %v\n", err)
		return supervisor.ExitSetupFailure
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error creating logger: %v\n", err)
		return supervisor.ExitSetupFailure
	}
	defer func() { _ = log.Close() }()

	// Only the log level can change while a child runs.
	if inv.configFile != "" {
		watcher := config.NewWatcher(inv.configFile, func(newCfg *config.Config) {
			if err := newCfg.ApplyEnv(); err != nil {
				log.Warn("ignoring reloaded config", "error", err)
				return
			}
			log.SetLevel(newCfg.Logging.Level)
			log.Info("config reloaded", "level", log.Level())
		})
		watcher.OnError(func(err error) {
			log.Warn("config reload failed", "error", err)
		})
		if err := watcher.Start(); err != nil {
			log.Warn("config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	m := metrics.New()
	sup := supervisor.New(supervisor.Options{
		ChunkSize:    cfg.Transfer.ChunkSize,
		PollInterval: cfg.Transfer.PollInterval,
		FileMode:     cfg.Output.FileMode,
	}, log, m)

	res := sup.Launch(inv.stdoutPath, inv.stderrPath, inv.path, inv.argv)
	if res.Err != nil {
		log.Error("launch failed", "outcome", res.Outcome.String(), "exit_code", res.ExitCode, "error", res.Err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics textfile", "file", cfg.Metrics.Textfile, "error", err)
		}
	}
	return res.ExitCode
}
