package utils

import (
	"runtime"
	"sync/atomic"
)

// attemptsBeforeYielding is the number of failed acquisition attempts a Spinlock makes
// before it calls yieldFn
const attemptsBeforeYielding = 64

var yieldFn = runtime.Gosched

// Spinlock implements a lock where each caller trying to acquire it busy-waits
// till the lock becomes available. It has no owner and no fairness guarantee.
type Spinlock struct {
	state atomic.Uint32
}

// Acquire blocks until the lock can be acquired.
// Any attempt to re-acquire a lock already held by the current caller will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for {
		for attempt := 0; attempt < attemptsBeforeYielding; attempt++ {
			if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
				return
			}
		}

		yieldFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release relinquishes a held lock allowing other callers to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	l.state.Store(0)
}

// IsHeld reports whether the lock is currently held by anyone
func (l *Spinlock) IsHeld() bool {
	return l.state.Load() != 0
}
