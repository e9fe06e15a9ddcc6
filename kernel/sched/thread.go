package sched

import (
	"threados/kernel"
	"threados/kernel/cpu"
)

// ThreadID uniquely identifies a thread for the lifetime of the scheduler.
// IDs are never reused.
type ThreadID uint32

// State describes where a thread is in its lifecycle.
type State uint8

const (
	// Ready threads are linked into a ready queue.
	Ready State = iota

	// Running is the state of the thread that holds the CPU.
	Running

	// Blocked threads are linked into the wait queue of a primitive, the
	// sleeper queue or the join queue of another thread.
	Blocked

	// Zombie threads have exited and keep their exit value until they are
	// joined.
	Zombie

	// Reaped threads have released their stack and table slot.
	Reaped
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Zombie:
		return "zombie"
	case Reaped:
		return "reaped"
	default:
		return "unknown"
	}
}

// Owner is implemented by the process that a thread belongs to.
type Owner interface {
	// ThreadReaped is invoked with interrupts disabled after t has
	// released its resources.
	ThreadReaped(t *Thread)
}

// Thread is the unit of scheduling.
type Thread struct {
	id    ThreadID
	state State

	basePrio int
	prio     int
	policy   Policy

	owner  Owner
	ctx    *cpu.Context
	stack  []byte
	errno  kernel.Errno
	retval uintptr

	joiners  Queue
	detached bool

	// RR accounting.
	slice    uint64
	expired  bool
	yielding bool

	// EDF absolute deadline and sleeper wake-up time, in ticks.
	deadline uint64
	wakeAt   uint64

	runTicks uint64
	waitInfo interface{}

	// queue linkage; see Queue.
	tab        *table
	slot       int32
	prev, next slotRef
	queue      *Queue
}

// ID returns the thread id.
func (t *Thread) ID() ThreadID { return t.id }

// State returns the current thread state.
func (t *Thread) State() State { return t.state }

// Priority returns the effective priority of the thread.
func (t *Thread) Priority() int { return t.prio }

// BasePriority returns the priority the thread was created with or the
// last one assigned with SetPriority.
func (t *Thread) BasePriority() int { return t.basePrio }

// Policy returns the scheduling policy of the thread.
func (t *Thread) Policy() Policy { return t.policy }

// Owner returns the process that owns the thread. The boot thread has no
// owner.
func (t *Thread) Owner() Owner { return t.owner }

// Frame returns the saved trap frame of the thread.
func (t *Thread) Frame() *cpu.Registers { return t.ctx.Frame() }

// Stack returns the stack region of the thread. It is nil once the thread
// has been reaped.
func (t *Thread) Stack() []byte { return t.stack }

// Errno returns the error code of the last failed system call.
func (t *Thread) Errno() kernel.Errno { return t.errno }

// SetErrno sets the per-thread error code.
func (t *Thread) SetErrno(errno kernel.Errno) { t.errno = errno }

// Detached returns true if the thread will be reaped as soon as it exits.
func (t *Thread) Detached() bool { return t.detached }

// Deadline returns the absolute deadline of an EDF thread.
func (t *Thread) Deadline() uint64 { return t.deadline }

// RunTicks returns the number of timer ticks the thread has been charged
// with while running.
func (t *Thread) RunTicks() uint64 { return t.runTicks }

// SetWaitInfo attaches primitive specific data to a thread that is about
// to block. The primitive that wakes the thread uses WaitInfo to complete
// the operation on its behalf.
func (t *Thread) SetWaitInfo(info interface{}) { t.waitInfo = info }

// WaitInfo returns the data attached by SetWaitInfo.
func (t *Thread) WaitInfo() interface{} { return t.waitInfo }

func (t *Thread) isEDF() bool {
	_, ok := t.policy.(EDF)
	return ok
}
