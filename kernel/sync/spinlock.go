// Package sync provides the low-level spinlock that backs the kernel's
// interrupt-disable critical section.
package sync

import (
	"runtime"
	"sync/atomic"
)

// attemptsBeforeYielding is the number of failed acquisition attempts after
// which Acquire yields the processor.
const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked while spinning. It is mocked by tests.
	yieldFn = runtime.Gosched
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
//
// A Spinlock is not bound to the task that acquired it: the kernel hands a
// held lock over to the next task during a context switch and that task
// releases it.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired. Any attempt to re-acquire a
// lock already held by the current task will cause a deadlock.
func (l *Spinlock) Acquire() {
	for attempt := 1; !l.TryToAcquire(); attempt++ {
		if attempt%attemptsBeforeYielding == 0 {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Held returns true if the lock is currently acquired.
func (l *Spinlock) Held() bool {
	return atomic.LoadUint32(&l.state) == 1
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
