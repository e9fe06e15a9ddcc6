package ksync

import (
	"threados/kernel"
	"threados/kernel/kobj"
	"threados/kernel/sched"
)

// Cond is a condition variable used together with a Mutex.
type Cond struct {
	kobj.Header

	s       *sched.Scheduler
	waiters sched.Queue
}

// NewCond returns a condition variable without waiters.
func NewCond(s *sched.Scheduler) *Cond {
	c := &Cond{s: s}
	c.Init(kobj.KindCond)
	s.InitQueue(&c.waiters, nil)
	return c
}

// Wait atomically unlocks m and blocks until the condition is signalled. The
// mutex is locked again before Wait returns. The caller must own m.
func (c *Cond) Wait(m *Mutex) *kernel.Error {
	prev := c.s.DisableInterrupts()

	err := c.CheckLive()
	switch {
	case err != nil:
	case m.owner != c.s.Current():
		err = errNotOwner
	case c.s.Idle():
		err = errWouldBlock
	default:
		// Unlocking and queueing happen with interrupts disabled so a
		// signal issued right after the unlock finds us queued.
		if err = m.unlock(); err == nil {
			c.s.Block(&c.waiters)
			err = m.lock(true)
		}
	}

	c.s.RestoreInterrupts(prev)
	return err
}

// Signal wakes up the longest waiting thread, if any.
func (c *Cond) Signal() *kernel.Error {
	prev := c.s.DisableInterrupts()

	err := c.CheckLive()
	if err == nil {
		if w := c.waiters.First(); w != nil {
			c.s.Wake(w, 0)
		}
	}

	c.s.RestoreInterrupts(prev)
	return err
}

// Broadcast wakes up all waiting threads.
func (c *Cond) Broadcast() *kernel.Error {
	prev := c.s.DisableInterrupts()

	err := c.CheckLive()
	if err == nil {
		for w := c.waiters.First(); w != nil; w = c.waiters.First() {
			c.s.Wake(w, 0)
		}
	}

	c.s.RestoreInterrupts(prev)
	return err
}

// Destroy implements kobj.Object.
func (c *Cond) Destroy() *kernel.Error {
	prev := c.s.DisableInterrupts()
	defer c.s.RestoreInterrupts(prev)

	if c.waiters.Len() != 0 {
		return errBusy
	}
	return nil
}
