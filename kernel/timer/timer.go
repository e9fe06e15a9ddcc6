// Package timer provides the monotonic clock sources that drive the timer
// interrupt.
package timer

// Clock is a monotonic tick counter that can periodically raise the timer
// interrupt.
type Clock interface {
	// Now returns the number of ticks elapsed since the clock was created.
	Now() uint64

	// ScheduleInterrupt arms the clock to raise the timer interrupt every
	// interval ticks. An interval of 0 disarms it.
	ScheduleInterrupt(interval uint64)
}
