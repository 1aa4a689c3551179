package supervisor

import (
	"os"
	"syscall"
	"time"

	"github.com/obot-platform/redirect-launcher/launcher/internal/pump"
)

// Exit codes reported when the launcher itself, rather than the child,
// decides the outcome. Any other value is the child's own exit status.
const (
	ExitSetupFailure    = 2
	ExitForkFailure     = 4
	ExitWaitFailure     = 5
	ExitIOSetupFailure  = 10
	ExitRedirectFailure = 20
	ExitExecFailure     = 127
	ExitAbnormal        = 255
)

// Outcome classifies how a launch ended.
type Outcome int

const (
	OutcomeExited Outcome = iota
	OutcomeAbnormal
	OutcomeSetupFailed
	OutcomeIOSetupFailed
	OutcomeForkFailed
	OutcomeExecFailed
	OutcomeRedirectFailed
	OutcomeWaitFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExited:
		return "exited"
	case OutcomeAbnormal:
		return "abnormal"
	case OutcomeSetupFailed:
		return "setup_failed"
	case OutcomeIOSetupFailed:
		return "io_setup_failed"
	case OutcomeForkFailed:
		return "fork_failed"
	case OutcomeExecFailed:
		return "exec_failed"
	case OutcomeRedirectFailed:
		return "redirect_failed"
	case OutcomeWaitFailed:
		return "wait_failed"
	default:
		return "unknown"
	}
}

// Result is the terminal status of one launch.
type Result struct {
	// ExitCode is what the launcher process should exit with.
	ExitCode int
	Outcome  Outcome
	// Signal is set when the child was terminated by a signal.
	Signal syscall.Signal
	// Err describes a launcher-side failure. A child exiting non-zero or
	// being killed is not an error.
	Err error
	// RunID correlates the launch's log lines.
	RunID string

	Stdout pump.Stats
	Stderr pump.Stats
}

// Options tune the pumps of every launch.
type Options struct {
	ChunkSize    int
	PollInterval time.Duration
	FileMode     os.FileMode
}

// DefaultOptions returns the settings used for zero-valued fields.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    1024,
		PollInterval: time.Second,
		FileMode:     0644,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.FileMode == 0 {
		o.FileMode = d.FileMode
	}
	return o
}

// Recorder receives launch and transfer observations.
type Recorder interface {
	pump.Recorder
	ObserveLaunch(outcome string, exitCode int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransfer(string, int)              {}
func (nopRecorder) ObserveTransferError(string)              {}
func (nopRecorder) ObserveLaunch(string, int, time.Duration) {}

func failed(outcome Outcome, code int, err error) Result {
	return Result{ExitCode: code, Outcome: outcome, Err: err}
}
