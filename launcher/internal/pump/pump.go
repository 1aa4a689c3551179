//go:build unix

// Package pump drains one pipe into one output file.
//
// A pump alternates between drain bursts and bounded waits on the shutdown
// coordinator. A burst issues non-blocking transfers back to back until the
// pipe reports it has nothing more (EAGAIN), the writer is gone (0 bytes), or
// a transfer fails. Once shutdown has been observed the pump runs exactly one
// more burst and stops, so anything the child wrote before exiting reaches
// the file.
package pump

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/obot-platform/redirect-launcher/launcher/internal/logger"
	"github.com/obot-platform/redirect-launcher/launcher/internal/shutdown"
)

// ErrNotOpen is returned by Run when Open has not succeeded.
var ErrNotOpen = errors.New("pump output not open")

// Config describes one pump. It is not modified after New.
type Config struct {
	// Stream is a label used in logs and metrics, e.g. "stdout".
	Stream string
	// Path is the output file, created or truncated by Open.
	Path string
	// FD is the pipe read end. The pump owns it and closes it when done.
	FD int
	// Coordinator is shared with the supervisor and the other pump.
	Coordinator *shutdown.Coordinator

	ChunkSize    int
	PollInterval time.Duration
	FileMode     os.FileMode
}

// Pump moves bytes from a pipe to a file.
type Pump struct {
	cfg Config
	log *logger.Logger
	rec Recorder

	out    *os.File
	outFD  int
	offset int64
	fd     int
	buf    []byte

	// pending holds bytes read from the pipe but not yet written. Only the
	// read+pwrite transfer uses it.
	pending []byte

	// move performs one transfer; it is transfer outside tests.
	move func(n int) (int, error)
}

// New creates a pump. log and rec may be nil.
func New(cfg Config, log *logger.Logger, rec Recorder) *Pump {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	p := &Pump{
		cfg:   cfg,
		log:   log.With("stream", cfg.Stream),
		rec:   rec,
		outFD: -1,
		fd:    cfg.FD,
	}
	p.move = p.transfer
	return p
}

// Stream returns the pump's stream label.
func (p *Pump) Stream() string {
	return p.cfg.Stream
}

// Open creates or truncates the output file. Prior contents are discarded.
func (p *Pump) Open() error {
	if p.out != nil {
		return nil
	}
	f, err := os.OpenFile(p.cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, p.cfg.FileMode)
	if err != nil {
		return fmt.Errorf("open %s output: %w", p.cfg.Stream, err)
	}
	p.out = f
	p.outFD = int(f.Fd())
	p.offset = 0
	return nil
}

// Run drains the pipe until shutdown has been observed and a final burst has
// completed, then closes the output file and the pipe read end.
func (p *Pump) Run() (Stats, error) {
	var stats Stats
	if p.out == nil {
		p.Close()
		return stats, ErrNotOpen
	}
	defer p.Close()

	observed := false
	for {
		p.drain(&stats)

		if observed {
			break
		}
		if p.cfg.Coordinator.Wait(p.cfg.PollInterval) {
			observed = true
		}
	}

	p.log.Debug("pump finished",
		"bytes", stats.Bytes,
		"transfers", stats.Transfers,
		"errors", stats.Errors,
	)
	return stats, nil
}

// drain performs one burst of back-to-back transfers.
func (p *Pump) drain(stats *Stats) {
	for {
		n, err := p.move(p.cfg.ChunkSize)
		// A failed transfer may still have moved some bytes.
		if n > 0 {
			stats.Bytes += int64(n)
			stats.Transfers++
			p.rec.ObserveTransfer(p.cfg.Stream, n)
			p.log.LogTransfer(p.cfg.Stream, p.fd, p.cfg.Path, n)
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return
			}
			stats.Errors++
			p.rec.ObserveTransferError(p.cfg.Stream)
			p.log.LogTransferError(p.cfg.Stream, p.fd, p.cfg.Path, err)
			return
		}
		if n == 0 {
			return
		}
	}
}

// Close releases the output file and the pipe read end. It is safe to call
// more than once; Run calls it on exit.
func (p *Pump) Close() {
	if len(p.pending) > 0 {
		p.log.Warn("dropping unwritten bytes", "file", p.cfg.Path, "bytes", len(p.pending))
		p.pending = nil
	}
	if p.out != nil {
		if err := p.out.Close(); err != nil {
			p.log.Warn("failed to close output file", "file", p.cfg.Path, "error", err)
		}
		p.out = nil
		p.outFD = -1
	}
	if p.fd >= 0 {
		if err := unix.Close(p.fd); err != nil {
			p.log.Warn("failed to close pipe", "pipe_fd", p.fd, "error", err)
		}
		p.fd = -1
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransfer(string, int) {}
func (nopRecorder) ObserveTransferError(string) {}
