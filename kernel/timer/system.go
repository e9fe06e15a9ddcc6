package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"threados/kernel/irq"
)

// SystemClock is a Clock driven by the host's monotonic time. A background
// goroutine advances the tick count every period and raises the timer
// interrupt while the clock is armed.
type SystemClock struct {
	irqs   *irq.Controller
	period time.Duration

	now      uint64
	interval uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSystemClock returns a clock whose tick lasts period.
func NewSystemClock(irqs *irq.Controller, period time.Duration) *SystemClock {
	return &SystemClock{irqs: irqs, period: period}
}

// Now implements Clock.
func (c *SystemClock) Now() uint64 {
	return atomic.LoadUint64(&c.now)
}

// ScheduleInterrupt implements Clock. Arming the clock starts its ticker and
// registers it as an asynchronous interrupt source; disarming stops it.
func (c *SystemClock) ScheduleInterrupt(interval uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreUint64(&c.interval, interval)

	switch {
	case interval != 0 && c.stop == nil:
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		c.irqs.AttachSource()
		go c.run(c.stop, c.done)
	case interval == 0 && c.stop != nil:
		close(c.stop)
		<-c.done
		c.stop, c.done = nil, nil
		c.irqs.DetachSource()
	}
}

func (c *SystemClock) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	var sinceLast uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			atomic.AddUint64(&c.now, 1)
			sinceLast++
			if interval := atomic.LoadUint64(&c.interval); interval != 0 && sinceLast >= interval {
				sinceLast = 0
				c.irqs.Raise(irq.Timer)
			}
		}
	}
}
