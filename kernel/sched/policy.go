package sched

import "threados/kernel"

// Policy selects how a thread shares the CPU with threads of equal
// priority. The available policies are Plain, RoundRobin and EDF.
type Policy interface {
	// Name returns a short description of the policy for log output.
	Name() string

	validate(s *Scheduler, prio int) *kernel.Error
}

// Plain threads run until they block, yield or are preempted by a thread
// with a higher priority.
type Plain struct{}

// Name implements Policy.
func (Plain) Name() string { return "plain" }

func (Plain) validate(*Scheduler, int) *kernel.Error { return nil }

// RoundRobin threads are additionally preempted once they consume their
// time slice, if another thread with the same priority is ready.
type RoundRobin struct {
	// Quantum is the time slice in ticks. Zero selects the scheduler
	// default.
	Quantum uint64
}

// Name implements Policy.
func (RoundRobin) Name() string { return "rr" }

func (RoundRobin) validate(*Scheduler, int) *kernel.Error { return nil }

// MissPolicy selects the action taken when an EDF thread waits for its next
// period after its deadline has already passed.
type MissPolicy uint8

const (
	// MissTerminate terminates the thread with ExitDeadlineMiss.
	MissTerminate MissPolicy = iota

	// MissContinue lets the thread continue immediately with a new
	// deadline one period from now.
	MissContinue

	// MissSkip drops the missed periods and waits for the next period
	// boundary that is still in the future.
	MissSkip
)

func (m MissPolicy) String() string {
	switch m {
	case MissTerminate:
		return "terminate"
	case MissContinue:
		return "continue"
	case MissSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ExitDeadlineMiss is the exit value of threads terminated by MissTerminate.
const ExitDeadlineMiss = ^uintptr(0)

// EDF threads are ordered by absolute deadline among the threads of the
// real-time priority band.
type EDF struct {
	// Deadline is the first relative deadline in ticks. Zero means one
	// period.
	Deadline uint64

	// Period is the length of each cycle in ticks.
	Period uint64

	Miss MissPolicy
}

// Name implements Policy.
func (EDF) Name() string { return "edf" }

func (p EDF) validate(s *Scheduler, prio int) *kernel.Error {
	switch {
	case p.Period == 0, p.Miss > MissSkip:
		return errInvalidPolicy
	case prio != s.cfg.EDFBand:
		return errEDFBand
	}
	return nil
}

func (p EDF) firstDeadline(now uint64) uint64 {
	if p.Deadline == 0 {
		return now + p.Period
	}
	return now + p.Deadline
}

// edfLess orders EDF threads by deadline ahead of any non-EDF threads that
// share their priority level.
func edfLess(a, b *Thread) bool {
	switch aEDF, bEDF := a.isEDF(), b.isEDF(); {
	case aEDF && bEDF:
		return a.deadline < b.deadline
	default:
		return aEDF && !bEDF
	}
}

// wakeAtLess orders sleepers by wake-up time.
func wakeAtLess(a, b *Thread) bool {
	return a.wakeAt < b.wakeAt
}
