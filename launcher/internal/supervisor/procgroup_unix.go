//go:build unix

package supervisor

import "golang.org/x/sys/unix"

// killGroup sends SIGKILL to the process group led by pid. A child that
// shares the launcher's group, the default, is killed on its own.
func killGroup(pid int) error {
	pgid, err := unix.Getpgid(pid)
	if err == nil && pgid > 0 && pgid != unix.Getpgrp() {
		return unix.Kill(-pgid, unix.SIGKILL)
	}
	return unix.Kill(pid, unix.SIGKILL)
}
