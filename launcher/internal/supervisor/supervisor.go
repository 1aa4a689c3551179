//go:build unix

// Package supervisor launches one child process with its standard output and
// standard error redirected into files.
//
// A launch allocates two close-on-exec pipes, opens both output files, starts
// one pump per stream and then the child, whose fd 1 and fd 2 are the pipe
// write ends. Once the child has been reaped the supervisor broadcasts
// shutdown, the pumps run a final drain, and both are joined before the exit
// code is returned.
package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/obot-platform/redirect-launcher/launcher/internal/logger"
	"github.com/obot-platform/redirect-launcher/launcher/internal/pipe"
	"github.com/obot-platform/redirect-launcher/launcher/internal/pump"
	"github.com/obot-platform/redirect-launcher/launcher/internal/shutdown"
)

// Supervisor runs launches. A Supervisor may be reused; launches do not share
// any state besides the logger and recorder.
type Supervisor struct {
	opts Options
	log  *logger.Logger
	rec  Recorder

	// waitChild reaps the started child. Replaced in tests.
	waitChild func(cmd *exec.Cmd) (*os.ProcessState, error)
}

// New creates a Supervisor. log and rec may be nil.
func New(opts Options, log *logger.Logger, rec Recorder) *Supervisor {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Supervisor{
		opts:      opts.withDefaults(),
		log:       log,
		rec:       rec,
		waitChild: waitChild,
	}
}

// Launch runs path with argv, writing its standard output to stdoutPath and
// its standard error to stderrPath, and blocks until the child has exited and
// both files hold everything it wrote. argv[0] is passed through unchanged;
// an empty argv is replaced by []string{path}.
func (s *Supervisor) Launch(stdoutPath, stderrPath, path string, argv []string) (res Result) {
	started := time.Now()
	runID := uuid.NewString()
	log := s.log.With("run_id", runID)

	defer func() {
		res.RunID = runID
		s.rec.ObserveLaunch(res.Outcome.String(), res.ExitCode, time.Since(started))
		log.Debug("launch state", "state", stateDone.String(), "outcome", res.Outcome.String(), "exit_code", res.ExitCode)
	}()
	log.Debug("launch state", "state", stateInit.String(), "path", path)

	pairs, err := pipe.Allocate()
	if err != nil {
		log.Error("failed to allocate pipes", "error", err)
		return failed(OutcomeSetupFailed, ExitSetupFailure, err)
	}
	defer func() {
		if err := pairs.Close(); err != nil {
			log.Warn("failed to close pipes", "error", err)
		}
	}()
	log.Debug("launch state", "state", statePipesReady.String())

	coord := shutdown.New()
	pumps := [2]*pump.Pump{
		s.newPump(pairs.Stdout, stdoutPath, coord, log),
		s.newPump(pairs.Stderr, stderrPath, coord, log),
	}
	for _, p := range pumps {
		if err := p.Open(); err != nil {
			for _, q := range pumps {
				q.Close()
			}
			log.Error("failed to open output file", "error", err)
			return failed(OutcomeIOSetupFailed, ExitIOSetupFailure, err)
		}
	}

	var (
		wg    sync.WaitGroup
		stats [2]pump.Stats
	)
	for i, p := range pumps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := p.Run()
			if err != nil {
				log.Error("pump failed", "stream", p.Stream(), "error", err)
			}
			stats[i] = st
		}()
	}
	log.Debug("launch state", "state", statePumpsStarted.String())

	defer func() {
		if !coord.Broadcast() {
			log.Warn("shutdown already broadcast")
		}
		log.Debug("launch state", "state", stateShutdownSignaled.String())
		wg.Wait()
		res.Stdout, res.Stderr = stats[0], stats[1]
		log.Debug("launch state", "state", statePumpsJoined.String())
	}()

	cmd := exec.Command(path)
	if len(argv) > 0 {
		cmd.Args = argv
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = pairs.Stdout.Writer()
	cmd.Stderr = pairs.Stderr.Writer()

	// The child stays in the launcher's process group so it shares the
	// terminal's foreground group. Signals sent to the launcher alone are
	// relayed once the child is running.
	signals := notifySignals()
	defer signal.Stop(signals)

	if err := cmd.Start(); err != nil {
		outcome, code := classifyStartError(err)
		err = fmt.Errorf("failed to start %s: %w", path, err)
		log.Error("failed to start child process", "path", path, "outcome", outcome.String(), "error", err)
		return failed(outcome, code, err)
	}

	// From here on only the child holds the write ends.
	if err := pairs.CloseWriters(); err != nil {
		log.Warn("failed to close pipe write ends", "error", err)
	}
	pid := cmd.Process.Pid
	log.LogLaunch(cmd.Path, cmd.Args, pid)
	log.Debug("launch state", "state", stateChildRunning.String(), "pid", pid)

	stopForwarding := forwardSignals(cmd.Process, signals, log)
	ps, err := s.waitChild(cmd)
	stopForwarding()
	if ps == nil {
		if err == nil {
			err = errors.New("no process state")
		}
		err = fmt.Errorf("wait for pid %d: %w", pid, err)
		log.Error("failed to wait for child process", "pid", pid, "error", err)
		if kerr := killGroup(pid); kerr != nil {
			log.Warn("failed to kill child process group", "pid", pid, "error", kerr)
		} else {
			log.Warn("killed child process group", "pid", pid)
		}
		// Reap if we still can so no zombie outlives the launch.
		_, _ = cmd.Process.Wait()
		return failed(OutcomeWaitFailed, ExitWaitFailure, err)
	}
	log.Debug("launch state", "state", stateChildExited.String(), "pid", pid)

	if ps.Exited() {
		code := ps.ExitCode()
		log.LogChildExit(pid, code)
		return Result{ExitCode: code, Outcome: OutcomeExited}
	}

	res = Result{ExitCode: ExitAbnormal, Outcome: OutcomeAbnormal}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		res.Signal = ws.Signal()
	}
	log.LogChildAbnormal(pid, ps.String())
	return res
}

func (s *Supervisor) newPump(pair *pipe.Pair, path string, coord *shutdown.Coordinator, log *logger.Logger) *pump.Pump {
	return pump.New(pump.Config{
		Stream:       pair.Stream,
		Path:         path,
		FD:           pair.DetachReader(),
		Coordinator:  coord,
		ChunkSize:    s.opts.ChunkSize,
		PollInterval: s.opts.PollInterval,
		FileMode:     s.opts.FileMode,
	}, log, s.rec)
}

// waitChild returns the child's state. A non-zero exit still yields a state;
// only a failed wait returns nil.
func waitChild(cmd *exec.Cmd) (*os.ProcessState, error) {
	err := cmd.Wait()
	if cmd.ProcessState != nil {
		return cmd.ProcessState, nil
	}
	return nil, err
}

func classifyStartError(err error) (Outcome, int) {
	switch {
	case errors.Is(err, exec.ErrNotFound),
		errors.Is(err, exec.ErrDot),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, unix.ENOEXEC),
		errors.Is(err, unix.ENOTDIR):
		return OutcomeExecFailed, ExitExecFailure
	case errors.Is(err, unix.EBADF):
		return OutcomeRedirectFailed, ExitRedirectFailure
	default:
		return OutcomeForkFailed, ExitForkFailure
	}
}
