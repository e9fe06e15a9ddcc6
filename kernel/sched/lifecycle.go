package sched

import (
	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/kfmt"
)

// Create allocates a new thread that runs entry(arg) and makes it ready. A
// nil policy selects Plain. Returning from entry is equivalent to calling
// Exit with the returned value.
func (s *Scheduler) Create(entry cpu.Entry, arg uintptr, policy Policy, prio int, owner Owner) (*Thread, *kernel.Error) {
	if entry == nil {
		return nil, errNilEntry
	}
	if policy == nil {
		policy = Plain{}
	}
	if prio < 0 || prio >= s.cfg.PrioLevels {
		return nil, errInvalidPriority
	}
	if err := policy.validate(s, prio); err != nil {
		return nil, err
	}
	if rr, ok := policy.(RoundRobin); ok && rr.Quantum == 0 {
		rr.Quantum = s.cfg.Quantum
		policy = rr
	}

	stack, err := s.alloc.Alloc(s.cfg.StackSize)
	if err != nil {
		return nil, err
	}

	prev := s.DisableInterrupts()

	t := &Thread{
		basePrio: prio,
		prio:     prio,
		policy:   policy,
		owner:    owner,
		stack:    stack,
		tab:      &s.tab,
	}

	if !s.tab.insert(t) {
		s.RestoreInterrupts(prev)
		if err := s.alloc.Free(stack); err != nil {
			kfmt.Fprintf(log, "unable to free stack of rejected thread: %s\n", err.Message)
		}
		return nil, errTooManyThreads
	}

	s.nextID++
	t.id = s.nextID
	t.ctx = cpu.NewContext(
		func(arg uintptr) uintptr {
			// A new thread starts inside the scheduler with the guard
			// held on its behalf.
			s.RestoreInterrupts(false)
			return entry(arg)
		},
		arg,
		s.Exit,
		stack,
	)

	if edf, ok := policy.(EDF); ok {
		t.deadline = edf.firstDeadline(s.clock.Now())
	}

	s.ids[t.id] = t
	s.live++
	s.makeReady(t, false)

	kfmt.Fprintf(log, "created thread %d (prio %d, %s)\n", t.id, prio, policy.Name())

	s.RestoreInterrupts(prev)
	return t, nil
}

// Exit terminates the running thread with the supplied exit value and wakes
// up any threads joining it. Exit never returns.
//
// Deferred calls of the exiting thread run after the CPU has been handed
// over to another thread and must not touch kernel state.
func (s *Scheduler) Exit(retval uintptr) {
	s.DisableInterrupts()

	cur := s.current
	if cur == s.idle {
		panicFn(errExitIdle)
		return
	}

	cur.retval = retval
	cur.state = Zombie
	s.live--

	for j := cur.joiners.First(); j != nil; j = cur.joiners.First() {
		s.Wake(j, 0)
	}

	kfmt.Fprintf(log, "thread %d exited with status %d\n", cur.id, retval)

	if cur.detached {
		s.reap(cur)
	}

	s.dispatch(s.popReady())
}

// Join waits for the thread with the given id to exit, reaps it and returns
// its exit value. Only one joiner can obtain the exit value; any other
// threads joining the same thread fail with ESRCH.
func (s *Scheduler) Join(id ThreadID) (uintptr, *kernel.Error) {
	prev := s.DisableInterrupts()

	t, cur := s.ids[id], s.current
	switch {
	case t == nil:
		s.RestoreInterrupts(prev)
		return 0, errNoSuchThread
	case t == cur:
		s.RestoreInterrupts(prev)
		return 0, errJoinSelf
	case t.detached:
		s.RestoreInterrupts(prev)
		return 0, errJoinDetached
	}

	if t.state != Zombie {
		if cur == s.idle {
			s.RestoreInterrupts(prev)
			return 0, errWouldBlock
		}

		s.Block(&t.joiners)

		// Another joiner may have reaped the thread or it may have been
		// detached while we were waiting.
		if t.state != Zombie {
			s.RestoreInterrupts(prev)
			return 0, errNoSuchThread
		}
	}

	retval := t.retval
	s.reap(t)
	s.RestoreInterrupts(prev)
	return retval, nil
}

// Detach marks a thread so that it is reaped as soon as it exits. Threads
// blocked joining it fail with ESRCH. Detaching a zombie reaps it
// immediately.
func (s *Scheduler) Detach(id ThreadID) *kernel.Error {
	prev := s.DisableInterrupts()

	t := s.ids[id]
	switch {
	case t == nil:
		s.RestoreInterrupts(prev)
		return errNoSuchThread
	case t.detached:
		s.RestoreInterrupts(prev)
		return errAlreadyDetached
	}

	t.detached = true
	for j := t.joiners.First(); j != nil; j = t.joiners.First() {
		s.Wake(j, -1)
	}

	if t.state == Zombie {
		s.reap(t)
	}

	s.RestoreInterrupts(prev)
	return nil
}

// reap releases the resources of a zombie thread.
func (s *Scheduler) reap(t *Thread) {
	delete(s.ids, t.id)
	s.tab.remove(t)

	if t.stack != nil {
		if err := s.alloc.Free(t.stack); err != nil {
			kfmt.Fprintf(log, "unable to free stack of thread %d: %s\n", t.id, err.Message)
		}
		t.stack = nil
	}
	t.state = Reaped

	kfmt.Fprintf(log, "reaped thread %d\n", t.id)

	if t.owner != nil {
		t.owner.ThreadReaped(t)
	}
}

// Yield moves the running thread behind the other ready threads of its
// priority and runs the next one.
func (s *Scheduler) Yield() {
	prev := s.DisableInterrupts()
	if cur := s.current; cur != s.idle {
		cur.yielding = true
		s.schedule()
	}
	s.RestoreInterrupts(prev)
}

// Sleep blocks the running thread for at least the given number of ticks.
func (s *Scheduler) Sleep(ticks uint64) *kernel.Error {
	if ticks == 0 {
		s.Yield()
		return nil
	}

	prev := s.DisableInterrupts()
	if s.current == s.idle {
		s.RestoreInterrupts(prev)
		return errWouldBlock
	}

	s.sleepUntil(s.clock.Now() + ticks)
	s.RestoreInterrupts(prev)
	return nil
}

func (s *Scheduler) sleepUntil(wakeAt uint64) {
	s.current.wakeAt = wakeAt
	s.Block(&s.sleepers)
}

// WaitPeriod ends the current cycle of an EDF thread. If the deadline of the
// cycle has not passed, the thread sleeps until the deadline and then starts
// the next cycle with its deadline advanced by one period.
//
// If the deadline has already passed, the miss policy of the thread is
// applied and WaitPeriod returns true, unless the policy is MissTerminate, in
// which case the thread exits with ExitDeadlineMiss.
func (s *Scheduler) WaitPeriod() (bool, *kernel.Error) {
	prev := s.DisableInterrupts()

	cur := s.current
	edf, ok := cur.policy.(EDF)
	if !ok {
		s.RestoreInterrupts(prev)
		return false, errNotEDF
	}

	now, deadline := s.clock.Now(), cur.deadline
	if now <= deadline {
		cur.deadline = deadline + edf.Period
		if now < deadline {
			s.sleepUntil(deadline)
		} else {
			s.checkPreempt(cur)
		}
		s.RestoreInterrupts(prev)
		return false, nil
	}

	s.stats.DeadlineMisses++
	kfmt.Fprintf(log, "thread %d missed deadline %d at tick %d (%s)\n", cur.id, deadline, now, edf.Miss.String())

	switch edf.Miss {
	case MissTerminate:
		s.Exit(ExitDeadlineMiss)
	case MissContinue:
		cur.deadline = now + edf.Period
		s.checkPreempt(cur)
	case MissSkip:
		for deadline <= now {
			deadline += edf.Period
		}
		cur.deadline = deadline + edf.Period
		s.sleepUntil(deadline)
	}

	s.RestoreInterrupts(prev)
	return true, nil
}

// SetPriority changes the priority of a thread. A ready thread is moved to
// the tail of its new ready queue.
func (s *Scheduler) SetPriority(id ThreadID, prio int) *kernel.Error {
	if prio < 0 || prio >= s.cfg.PrioLevels {
		return errInvalidPriority
	}

	prev := s.DisableInterrupts()

	t := s.ids[id]
	switch {
	case t == nil || t.state == Zombie:
		s.RestoreInterrupts(prev)
		return errNoSuchThread
	case t.isEDF() && prio != s.cfg.EDFBand:
		s.RestoreInterrupts(prev)
		return errEDFBand
	}

	t.basePrio = prio
	if t.state == Ready {
		t.queue.Remove(t)
		t.prio = prio
		s.makeReady(t, false)
	} else {
		t.prio = prio
	}

	if t == s.current {
		s.checkPreempt(t)
	}

	s.RestoreInterrupts(prev)
	return nil
}

// checkPreempt requests a reschedule if a ready thread outranks the running
// thread cur after its priority or deadline changed.
func (s *Scheduler) checkPreempt(cur *Thread) {
	if next := s.peekReady(); next != nil && s.outranks(next, cur) {
		s.needResched = true
	}
}
