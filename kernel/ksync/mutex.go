package ksync

import (
	"threados/kernel"
	"threados/kernel/kobj"
	"threados/kernel/sched"
)

// Mutex is a sleeping lock with an owner. Unlocking a contended mutex hands
// ownership to the longest waiting thread.
type Mutex struct {
	kobj.Header

	s       *sched.Scheduler
	owner   *sched.Thread
	waiters sched.Queue
}

// NewMutex returns an unlocked mutex.
func NewMutex(s *sched.Scheduler) *Mutex {
	m := &Mutex{s: s}
	m.Init(kobj.KindMutex)
	s.InitQueue(&m.waiters, nil)
	return m
}

// Lock acquires the mutex, blocking until it becomes available.
func (m *Mutex) Lock() *kernel.Error {
	prev := m.s.DisableInterrupts()
	err := m.lock(true)
	m.s.RestoreInterrupts(prev)
	return err
}

// TryLock acquires the mutex if it is available or fails with EAGAIN.
func (m *Mutex) TryLock() *kernel.Error {
	prev := m.s.DisableInterrupts()
	err := m.lock(false)
	m.s.RestoreInterrupts(prev)
	return err
}

func (m *Mutex) lock(block bool) *kernel.Error {
	if err := m.CheckLive(); err != nil {
		return err
	}

	cur := m.s.Current()
	switch {
	case m.owner == nil:
		m.owner = cur
		return nil
	case m.owner == cur:
		return errRecursive
	case !block || m.s.Idle():
		return errWouldBlock
	}

	// The unlocking thread makes us the owner before waking us up.
	m.s.Block(&m.waiters)
	return nil
}

// Unlock releases the mutex. Only the owner can unlock it.
func (m *Mutex) Unlock() *kernel.Error {
	prev := m.s.DisableInterrupts()
	err := m.unlock()
	m.s.RestoreInterrupts(prev)
	return err
}

func (m *Mutex) unlock() *kernel.Error {
	if err := m.CheckLive(); err != nil {
		return err
	}

	if m.owner != m.s.Current() {
		return errNotOwner
	}

	m.handoff()
	return nil
}

// handoff passes ownership to the longest waiting thread or leaves the mutex
// unlocked.
func (m *Mutex) handoff() {
	m.owner = m.waiters.First()
	if m.owner != nil {
		m.s.Wake(m.owner, 0)
	}
}

// Abandon releases the mutex on behalf of t if t holds it. It is used when t
// has exited without unlocking. Ownership passes to the longest waiting
// thread. Abandon returns true if the mutex was released.
func (m *Mutex) Abandon(t *sched.Thread) bool {
	prev := m.s.DisableInterrupts()

	held := t != nil && m.owner == t
	if held {
		m.handoff()
	}

	m.s.RestoreInterrupts(prev)
	return held
}

// Owner returns the thread holding the mutex or nil.
func (m *Mutex) Owner() *sched.Thread {
	prev := m.s.DisableInterrupts()
	owner := m.owner
	m.s.RestoreInterrupts(prev)
	return owner
}

// Destroy implements kobj.Object. A mutex with waiters is busy. Destroying
// a locked mutex drops its owner.
func (m *Mutex) Destroy() *kernel.Error {
	prev := m.s.DisableInterrupts()
	defer m.s.RestoreInterrupts(prev)

	if m.waiters.Len() != 0 {
		return errBusy
	}

	m.owner = nil
	return nil
}
