// Package sched implements the thread scheduler of a single CPU.
//
// Threads are selected by strict priority: the head of the highest non-empty
// ready queue runs. Threads of equal priority share the CPU according to
// their policy. Plain threads run until they block or yield, RoundRobin
// threads are additionally rotated when their time slice expires, and EDF
// threads of the real-time band are ordered by absolute deadline.
//
// All scheduler state is protected by the interrupt guard acquired with
// DisableInterrupts. The guard belongs to the CPU rather than to a thread; a
// context switch hands it over to the resumed thread, which releases it with
// RestoreInterrupts. Releasing the guard is a safepoint where pending
// interrupts are delivered and preemption takes place.
package sched

import (
	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/irq"
	"threados/kernel/kfmt"
	"threados/kernel/mem"
	"threados/kernel/sync"
	"threados/kernel/timer"
)

var (
	// switchFn and panicFn are mocked by tests.
	switchFn = cpu.Switch
	panicFn  = kfmt.Panic

	log = kfmt.ModuleWriter("sched")

	errInvalidConfig   = &kernel.Error{Module: "sched", Message: "invalid scheduler configuration", Errno: kernel.EINVAL}
	errInvalidPriority = &kernel.Error{Module: "sched", Message: "priority out of range", Errno: kernel.EINVAL}
	errInvalidPolicy   = &kernel.Error{Module: "sched", Message: "invalid scheduling policy parameters", Errno: kernel.EINVAL}
	errEDFBand         = &kernel.Error{Module: "sched", Message: "EDF threads must use the real-time priority band", Errno: kernel.EINVAL}
	errNilEntry        = &kernel.Error{Module: "sched", Message: "thread entry point is nil", Errno: kernel.EINVAL}
	errTooManyThreads  = &kernel.Error{Module: "sched", Message: "thread table is full", Errno: kernel.EAGAIN}
	errNoSuchThread    = &kernel.Error{Module: "sched", Message: "no such thread", Errno: kernel.ESRCH}
	errJoinSelf        = &kernel.Error{Module: "sched", Message: "thread cannot join itself", Errno: kernel.EDEADLK}
	errJoinDetached    = &kernel.Error{Module: "sched", Message: "cannot join a detached thread", Errno: kernel.EINVAL}
	errAlreadyDetached = &kernel.Error{Module: "sched", Message: "thread is already detached", Errno: kernel.EINVAL}
	errNotEDF          = &kernel.Error{Module: "sched", Message: "calling thread does not use the EDF policy", Errno: kernel.EINVAL}
	errWouldBlock      = &kernel.Error{Module: "sched", Message: "the idle context cannot block", Errno: kernel.EAGAIN}
	errDeadlock        = &kernel.Error{Module: "sched", Message: "all threads are blocked and no interrupt source can wake them", Errno: kernel.EDEADLK}

	// Fatal scheduler invariant violations.
	errAlreadyQueued = &kernel.Error{Module: "sched", Message: "thread is already linked into a queue"}
	errBlockInIdle   = &kernel.Error{Module: "sched", Message: "idle context attempted to block"}
	errExitIdle      = &kernel.Error{Module: "sched", Message: "idle context attempted to exit"}
	errWakeRunnable  = &kernel.Error{Module: "sched", Message: "attempted to wake a thread that is not blocked"}
)

// Config holds the scheduler tunables.
type Config struct {
	// PrioLevels is the number of priority levels; priorities range from
	// 0 (lowest) to PrioLevels-1.
	PrioLevels int

	// EDFBand is the priority level reserved for EDF threads.
	EDFBand int

	// Quantum is the default RoundRobin time slice in ticks.
	Quantum uint64

	// StackSize is the size of the stack allocated for each thread.
	StackSize mem.Size

	// MaxThreads bounds the number of threads that have not been reaped.
	MaxThreads int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		PrioLevels: 32,
		EDFBand:    31,
		Quantum:    4,
		StackSize:  8 * mem.Kb,
		MaxThreads: 256,
	}
}

func (c Config) validate() *kernel.Error {
	switch {
	case c.PrioLevels < 1,
		c.EDFBand < 0 || c.EDFBand >= c.PrioLevels,
		c.Quantum == 0,
		c.StackSize < cpu.MinStackSize,
		c.MaxThreads < 1:
		return errInvalidConfig
	}
	return nil
}

// Stats contains scheduler counters.
type Stats struct {
	Switches       uint64
	Ticks          uint64
	IdleTicks      uint64
	DeadlineMisses uint64

	// Live is the number of threads that have not exited yet.
	Live int
}

// Scheduler multiplexes threads on the CPU.
type Scheduler struct {
	cfg   Config
	clock timer.Clock
	irqs  *irq.Controller
	alloc mem.Allocator

	guard       sync.Spinlock
	started     bool
	needResched bool

	tab      table
	ids      map[ThreadID]*Thread
	nextID   ThreadID
	ready    []Queue
	sleepers Queue

	idle     *Thread
	current  *Thread
	live     int
	lastTick uint64
	stats    Stats
}

// New creates a scheduler and registers its timer interrupt handler with
// irqs. Thread stacks are obtained from alloc.
func New(cfg Config, clock timer.Clock, irqs *irq.Controller, alloc mem.Allocator) (*Scheduler, *kernel.Error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:   cfg,
		clock: clock,
		irqs:  irqs,
		alloc: alloc,
		tab:   table{limit: cfg.MaxThreads},
		ids:   make(map[ThreadID]*Thread),
		ready: make([]Queue, cfg.PrioLevels),
	}

	s.InitQueue(&s.ready[cfg.EDFBand], edfLess)
	s.InitQueue(&s.sleepers, wakeAtLess)

	s.idle = &Thread{
		state:    Running,
		prio:     -1,
		basePrio: -1,
		policy:   Plain{},
		ctx:      cpu.BootContext(),
		tab:      &s.tab,
	}
	s.current = s.idle

	if err := irqs.Register(irq.Timer, &tickHandler{s: s}); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns the scheduler configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Clock returns the clock that drives the scheduler.
func (s *Scheduler) Clock() timer.Clock { return s.clock }

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	prev := s.DisableInterrupts()
	stats := s.stats
	stats.Live = s.live
	s.RestoreInterrupts(prev)
	return stats
}

// InitQueue prepares q for use as a wait queue. If less is not nil, the
// queue keeps its threads sorted by it.
func (s *Scheduler) InitQueue(q *Queue, less LessFn) {
	q.tab = &s.tab
	q.less = less
}

// DisableInterrupts acquires the interrupt guard. It returns true if the
// guard was already held, in which case the matching RestoreInterrupts call
// is a no-op.
func (s *Scheduler) DisableInterrupts() bool {
	if s.guard.Held() {
		return true
	}

	s.guard.Acquire()
	return false
}

// RestoreInterrupts undoes the matching DisableInterrupts call. Releasing
// the guard delivers any pending interrupts and switches to a higher
// priority thread if one became ready.
func (s *Scheduler) RestoreInterrupts(prev bool) {
	if prev {
		return
	}

	for s.started && s.current != s.idle {
		if s.irqs.Pending() {
			s.irqs.DeliverPending(s.current.Frame())
			continue
		}

		if !s.needResched {
			break
		}
		s.schedule()
	}

	s.guard.Release()
}

// PreemptPoint is a safepoint where the running thread can be preempted.
func (s *Scheduler) PreemptPoint() {
	s.RestoreInterrupts(s.DisableInterrupts())
}

// Current returns the running thread or the idle thread (ID 0) when no
// thread is running.
func (s *Scheduler) Current() *Thread {
	return s.current
}

// Idle returns true when called from the idle context, which cannot block.
func (s *Scheduler) Idle() bool {
	return s.current == s.idle
}

// Lookup returns the thread with the given id or nil if the id is unknown
// or the thread has been reaped.
func (s *Scheduler) Lookup(id ThreadID) *Thread {
	prev := s.DisableInterrupts()
	t := s.ids[id]
	s.RestoreInterrupts(prev)
	return t
}

// Run executes threads until all of them have exited. The calling goroutine
// becomes the idle context. Run returns an EDEADLK error if threads remain
// blocked while no interrupt can ever wake them up.
func (s *Scheduler) Run() *kernel.Error {
	var err *kernel.Error

	s.DisableInterrupts()
	s.started = true
	s.lastTick = s.clock.Now()
	s.clock.ScheduleInterrupt(1)

	for s.live > 0 {
		if s.irqs.Pending() {
			s.irqs.DeliverPending(s.idle.Frame())
			continue
		}

		if next := s.popReady(); next != nil {
			s.dispatch(next)
			continue
		}

		if s.irqs.AsyncSources() == 0 {
			s.reportDeadlock()
			err = errDeadlock
			break
		}

		<-s.irqs.Kick()
	}

	s.clock.ScheduleInterrupt(0)
	s.started = false
	s.needResched = false
	s.guard.Release()
	return err
}

func (s *Scheduler) reportDeadlock() {
	kfmt.Fprintf(log, "deadlock: %d threads cannot make progress\n", s.live)
	for _, t := range s.tab.slots {
		if t != nil && t.state == Blocked {
			kfmt.Fprintf(log, "  thread %d (prio %d) blocked\n", t.id, t.prio)
		}
	}
}

// Block links the running thread into q and switches to another thread. It
// returns the value passed to Wake once the thread is woken up. Block must
// be called with interrupts disabled.
func (s *Scheduler) Block(q *Queue) int64 {
	cur := s.current
	if cur == s.idle {
		panicFn(errBlockInIdle)
		return -1
	}

	cur.state = Blocked
	q.Insert(cur)
	s.schedule()
	return cur.Frame().RAX
}

// Wake unlinks a blocked thread from its wait queue and makes it ready. ret
// is returned by the Block call of the woken thread. The woken thread
// preempts the running thread at the next safepoint if it outranks it.
// Wake must be called with interrupts disabled.
func (s *Scheduler) Wake(t *Thread, ret int64) {
	if t.state != Blocked {
		panicFn(errWakeRunnable)
		return
	}

	if t.queue != nil {
		t.queue.Remove(t)
	}

	t.Frame().RAX = ret
	s.makeReady(t, false)
}

// outranks returns true if a should run instead of b.
func (s *Scheduler) outranks(a, b *Thread) bool {
	if a.prio != b.prio {
		return a.prio > b.prio
	}
	return a.isEDF() && (!b.isEDF() || a.deadline < b.deadline)
}

// makeReady links t into its ready queue. Preempted threads are queued ahead
// of their peers so they resume first.
func (s *Scheduler) makeReady(t *Thread, preempted bool) {
	t.state = Ready

	q := &s.ready[t.prio]
	if preempted {
		q.insertFront(t)
	} else {
		q.Insert(t)
	}

	if s.outranks(t, s.current) {
		s.needResched = true
	}
}

func (s *Scheduler) peekReady() *Thread {
	for prio := len(s.ready) - 1; prio >= 0; prio-- {
		if t := s.ready[prio].First(); t != nil {
			return t
		}
	}
	return nil
}

func (s *Scheduler) popReady() *Thread {
	t := s.peekReady()
	if t != nil {
		t.queue.Remove(t)
	}
	return t
}

// schedule selects the thread that should hold the CPU and switches to it.
// It returns once the calling thread is resumed.
func (s *Scheduler) schedule() {
	s.needResched = false

	if cur := s.current; cur != s.idle && cur.state == Running {
		next := s.peekReady()

		switch {
		case cur.yielding || cur.expired:
			if cur.expired {
				cur.slice = cur.policy.(RoundRobin).Quantum
			}
			cur.yielding, cur.expired = false, false

			if next == nil || next.prio < cur.prio {
				return
			}
			s.makeReady(cur, false)
		case next != nil && s.outranks(next, cur):
			s.makeReady(cur, true)
		default:
			return
		}
	}

	s.dispatch(s.popReady())
}

// dispatch transfers the CPU to next, or to the idle context if next is nil.
func (s *Scheduler) dispatch(next *Thread) {
	if next == nil {
		next = s.idle
	}

	prev := s.current
	next.state = Running
	s.current = next
	if next == prev {
		return
	}

	if rr, ok := next.policy.(RoundRobin); ok && next.slice == 0 {
		next.slice = rr.Quantum
	}

	s.stats.Switches++
	if prev.state == Zombie || prev.state == Reaped {
		switchFn(nil, next.ctx)
		return
	}
	switchFn(prev.ctx, next.ctx)
}

// tickHandler services the timer interrupt.
type tickHandler struct {
	s *Scheduler
}

// HandleInterrupt charges the elapsed ticks to the running thread, expires
// RoundRobin time slices and wakes up sleepers whose time has come.
func (h *tickHandler) HandleInterrupt(_ irq.Source, _ *cpu.Registers) {
	s := h.s
	now := s.clock.Now()
	elapsed := now - s.lastTick
	s.lastTick = now
	s.stats.Ticks += elapsed

	if cur := s.current; cur == s.idle {
		s.stats.IdleTicks += elapsed
	} else {
		cur.runTicks += elapsed
		if _, ok := cur.policy.(RoundRobin); ok {
			if elapsed >= cur.slice {
				cur.slice = 0
				cur.expired = true
				s.needResched = true
			} else {
				cur.slice -= elapsed
			}
		}
	}

	for t := s.sleepers.First(); t != nil && t.wakeAt <= now; t = s.sleepers.First() {
		s.Wake(t, 0)
	}
}
