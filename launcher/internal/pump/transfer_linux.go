//go:build linux

package pump

import "golang.org/x/sys/unix"

// transfer splices up to n bytes from the pipe into the output file at the
// current offset without copying through user space.
func (p *Pump) transfer(n int) (int, error) {
	moved, err := unix.Splice(p.fd, nil, p.outFD, &p.offset, n, unix.SPLICE_F_MOVE|unix.SPLICE_F_NONBLOCK)
	if err != nil {
		return 0, err
	}
	return int(moved), nil
}
