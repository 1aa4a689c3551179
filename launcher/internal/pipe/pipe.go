//go:build unix

// Package pipe allocates the kernel pipes that carry a child's standard
// output and standard error back to the launcher.
//
// Every descriptor is created close-on-exec, so the only copies a launched
// program inherits are the ones explicitly installed as its fd 1 and fd 2.
// Read ends are non-blocking; write ends stay blocking because the child
// writes to them directly.
package pipe

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Stream names.
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// Pair is one unidirectional pipe. The read end is a raw descriptor meant to
// be handed to a pump with DetachReader; the write end is an *os.File meant
// to be installed as a child's standard stream.
type Pair struct {
	Stream string

	r int
	w *os.File
}

// Writer returns the write end, or nil once closed.
func (p *Pair) Writer() *os.File {
	return p.w
}

// DetachReader transfers ownership of the read descriptor to the caller.
// The pair will no longer close it.
func (p *Pair) DetachReader() int {
	fd := p.r
	p.r = -1
	return fd
}

// CloseReader closes the read end if the pair still owns it.
func (p *Pair) CloseReader() error {
	if p.r < 0 {
		return nil
	}
	fd := p.r
	p.r = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %s read end: %w", p.Stream, err)
	}
	return nil
}

// CloseWriter closes the write end if it is still open.
func (p *Pair) CloseWriter() error {
	if p.w == nil {
		return nil
	}
	w := p.w
	p.w = nil
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s write end: %w", p.Stream, err)
	}
	return nil
}

// Close closes whatever ends the pair still owns.
func (p *Pair) Close() error {
	return errors.Join(p.CloseReader(), p.CloseWriter())
}

// Pairs holds the stdout and stderr pipes of one launch.
type Pairs struct {
	Stdout *Pair
	Stderr *Pair
}

// Allocate creates the stdout pipe then the stderr pipe. On failure nothing
// is left open.
func Allocate() (*Pairs, error) {
	stdout, err := newPair(Stdout)
	if err != nil {
		return nil, err
	}
	stderr, err := newPair(Stderr)
	if err != nil {
		_ = stdout.Close()
		return nil, err
	}
	return &Pairs{Stdout: stdout, Stderr: stderr}, nil
}

// CloseWriters closes both write ends. The launcher calls it once the child
// holds its own copies.
func (p *Pairs) CloseWriters() error {
	return errors.Join(p.Stdout.CloseWriter(), p.Stderr.CloseWriter())
}

// Close closes every end still owned by either pair.
func (p *Pairs) Close() error {
	return errors.Join(p.Stdout.Close(), p.Stderr.Close())
}

func newPair(stream string) (*Pair, error) {
	r, w, err := pipeCloexec()
	if err != nil {
		return nil, fmt.Errorf("create %s pipe: %w", stream, err)
	}
	if err := unix.SetNonblock(r, true); err != nil {
		_ = unix.Close(r)
		_ = unix.Close(w)
		return nil, fmt.Errorf("set %s read end non-blocking: %w", stream, err)
	}
	return &Pair{
		Stream: stream,
		r:      r,
		w:      os.NewFile(uintptr(w), stream+"-pipe"),
	}, nil
}
