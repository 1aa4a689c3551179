//go:build unix

package supervisor

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/obot-platform/redirect-launcher/launcher/internal/logger"
)

// relayedSignals are caught while a child runs so the launcher outlives the
// child and still drains and joins its pumps.
var relayedSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

func notifySignals() chan os.Signal {
	signals := make(chan os.Signal, len(relayedSignals))
	signal.Notify(signals, relayedSignals...)
	return signals
}

// forwardSignals sends every signal received on signals to proc until the
// returned stop function is called. A terminal-generated SIGINT already
// reaches the child through the shared process group; the extra copy is
// harmless.
func forwardSignals(proc *os.Process, signals <-chan os.Signal, log *logger.Logger) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-done:
				return
			case sig := <-signals:
				if err := proc.Signal(sig); err != nil {
					log.Warn("failed to forward signal", "pid", proc.Pid, "signal", sig.String(), "error", err)
					continue
				}
				log.Info("forwarded signal to child process", "pid", proc.Pid, "signal", sig.String())
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
