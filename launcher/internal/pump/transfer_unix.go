//go:build unix && !linux

package pump

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// transfer reads up to n bytes from the non-blocking pipe and writes them at
// the current offset. There is no splice outside Linux. Bytes that could not
// be written stay pending and are written by the next call before anything
// new is read.
func (p *Pump) transfer(n int) (int, error) {
	if len(p.pending) == 0 {
		if cap(p.buf) < n {
			p.buf = make([]byte, n)
		}
		read, err := unix.Read(p.fd, p.buf[:n])
		if err != nil || read == 0 {
			return 0, err
		}
		p.pending = p.buf[:read]
	}
	return p.flush()
}

// flush writes pending bytes and returns how many landed in the file.
func (p *Pump) flush() (int, error) {
	written := 0
	for len(p.pending) > 0 {
		w, err := unix.Pwrite(p.outFD, p.pending, p.offset)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return written, fmt.Errorf("write %d pending bytes: %w", len(p.pending), err)
		}
		written += w
		p.offset += int64(w)
		p.pending = p.pending[w:]
	}
	return written, nil
}
