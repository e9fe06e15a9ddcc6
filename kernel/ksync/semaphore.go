package ksync

import (
	"threados/kernel"
	"threados/kernel/kobj"
	"threados/kernel/sched"
)

// Semaphore is a counting semaphore. Posting to a semaphore with waiters
// passes the unit directly to the longest waiting thread without
// incrementing the count.
type Semaphore struct {
	kobj.Header

	s       *sched.Scheduler
	count   int
	waiters sched.Queue
}

// NewSemaphore returns a semaphore with the given non-negative count.
func NewSemaphore(s *sched.Scheduler, initial int) (*Semaphore, *kernel.Error) {
	if initial < 0 {
		return nil, errInvalidValue
	}

	sem := &Semaphore{s: s, count: initial}
	sem.Init(kobj.KindSemaphore)
	s.InitQueue(&sem.waiters, nil)
	return sem, nil
}

// Wait decrements the semaphore, blocking while the count is zero.
func (sem *Semaphore) Wait() *kernel.Error {
	prev := sem.s.DisableInterrupts()
	err := sem.wait(true)
	sem.s.RestoreInterrupts(prev)
	return err
}

// TryWait decrements the semaphore if its count is positive or fails with
// EAGAIN.
func (sem *Semaphore) TryWait() *kernel.Error {
	prev := sem.s.DisableInterrupts()
	err := sem.wait(false)
	sem.s.RestoreInterrupts(prev)
	return err
}

func (sem *Semaphore) wait(block bool) *kernel.Error {
	if err := sem.CheckLive(); err != nil {
		return err
	}

	switch {
	case sem.count > 0:
		sem.count--
		return nil
	case !block || sem.s.Idle():
		return errWouldBlock
	}

	sem.s.Block(&sem.waiters)
	return nil
}

// Post increments the semaphore or wakes up a waiter.
func (sem *Semaphore) Post() *kernel.Error {
	prev := sem.s.DisableInterrupts()

	err := sem.CheckLive()
	if err == nil {
		if w := sem.waiters.First(); w != nil {
			sem.s.Wake(w, 0)
		} else {
			sem.count++
		}
	}

	sem.s.RestoreInterrupts(prev)
	return err
}

// Value returns the current count.
func (sem *Semaphore) Value() int {
	prev := sem.s.DisableInterrupts()
	count := sem.count
	sem.s.RestoreInterrupts(prev)
	return count
}

// Destroy implements kobj.Object.
func (sem *Semaphore) Destroy() *kernel.Error {
	prev := sem.s.DisableInterrupts()
	defer sem.s.RestoreInterrupts(prev)

	if sem.waiters.Len() != 0 {
		return errBusy
	}
	return nil
}
