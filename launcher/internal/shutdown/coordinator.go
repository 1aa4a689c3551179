// Package shutdown provides the broadcast-once signal that tells stream pumps
// the child has exited.
//
// The coordinator moves exactly once from running to shutdown-requested.
// Any number of goroutines may wait on it with a timeout; each wait ends
// either signaled or timed out, and both are normal outcomes.
package shutdown

import (
	"sync"
	"time"
)

// Coordinator is a mutex-guarded flag plus a channel that is closed when the
// flag is set. It is shared by reference between the supervisor and its pumps.
type Coordinator struct {
	mu        sync.Mutex
	requested bool
	done      chan struct{}
}

// New returns a coordinator in the running state.
func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Broadcast requests shutdown and wakes every waiter. It reports whether this
// call performed the transition; later calls are no-ops and return false.
func (c *Coordinator) Broadcast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requested {
		return false
	}
	c.requested = true
	close(c.done)
	return true
}

// Wait blocks until shutdown is broadcast or timeout elapses. It returns true
// when signaled and false on timeout.
func (c *Coordinator) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return true
	case <-timer.C:
		return false
	}
}
