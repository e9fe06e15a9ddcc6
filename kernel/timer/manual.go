package timer

import (
	"sync/atomic"

	"threados/kernel/irq"
)

// ManualClock is a Clock that only advances when told to. Calls to Tick and
// Advance raise the timer interrupt synchronously, which makes scheduling
// fully deterministic.
type ManualClock struct {
	irqs *irq.Controller

	now      uint64
	interval uint64
	next     uint64
}

// NewManualClock returns a clock that raises its interrupts on irqs.
func NewManualClock(irqs *irq.Controller) *ManualClock {
	return &ManualClock{irqs: irqs}
}

// Now implements Clock.
func (c *ManualClock) Now() uint64 {
	return atomic.LoadUint64(&c.now)
}

// ScheduleInterrupt implements Clock.
func (c *ManualClock) ScheduleInterrupt(interval uint64) {
	c.interval = interval
	c.next = c.Now() + interval
}

// Tick advances the clock by one tick.
func (c *ManualClock) Tick() {
	c.Advance(1)
}

// Advance moves the clock forward by n ticks. If an armed interrupt falls
// within the advanced window it is raised once; the interrupt handler is
// expected to account for all elapsed ticks using Now.
func (c *ManualClock) Advance(n uint64) {
	now := atomic.AddUint64(&c.now, n)
	if c.interval == 0 || now < c.next {
		return
	}

	for c.next <= now {
		c.next += c.interval
	}
	c.irqs.Raise(irq.Timer)
}
