// Package irq implements the interrupt controller. Interrupt sources may be
// raised from any goroutine; raised interrupts are latched and delivered to
// their registered handlers by the CPU at its next safepoint.
package irq

import (
	"io"
	"sync/atomic"

	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/kfmt"
)

// Source identifies an interrupt line or trap vector.
type Source uint8

const (
	// MaxSources is the number of interrupt sources supported by the
	// controller.
	MaxSources = 64

	// Timer is the periodic timer interrupt line.
	Timer = Source(0)

	// Syscall is the software trap vector used by user threads to enter
	// the kernel.
	Syscall = Source(48)
)

// Handler is implemented by kernel components that service an interrupt
// source. The supplied registers are the trap frame of the interrupted
// context.
type Handler interface {
	HandleInterrupt(src Source, regs *cpu.Registers)
}

var (
	// panicFn is mocked by tests.
	panicFn = kfmt.Panic

	errUnroutedTrap      = &kernel.Error{Module: "irq", Message: "no handler registered for raised interrupt"}
	errInvalidSource     = &kernel.Error{Module: "irq", Message: "interrupt source out of range", Errno: kernel.EINVAL}
	errAlreadyRegistered = &kernel.Error{Module: "irq", Message: "handler already registered for interrupt source", Errno: kernel.EBUSY}
	errNotRegistered     = &kernel.Error{Module: "irq", Message: "handler not registered for interrupt source", Errno: kernel.EINVAL}
)

// Controller routes interrupt sources to handlers.
type Controller struct {
	// handlers is only modified by code running on the CPU.
	handlers [MaxSources][]Handler

	// enabled and pending are bitmasks indexed by Source.
	enabled uint64
	pending uint64

	// kick is signalled whenever an interrupt is raised so an idle CPU
	// can wake up.
	kick chan struct{}

	// asyncSources counts attached interrupt sources that raise
	// interrupts from outside the CPU (e.g. a hardware timer).
	asyncSources int32
}

// NewController returns a controller with all sources enabled and no
// handlers registered.
func NewController() *Controller {
	return &Controller{
		enabled: ^uint64(0),
		kick:    make(chan struct{}, 1),
	}
}

// Register installs h as a handler for src.
func (c *Controller) Register(src Source, h Handler) *kernel.Error {
	if src >= MaxSources || h == nil {
		return errInvalidSource
	}

	for _, existing := range c.handlers[src] {
		if existing == h {
			return errAlreadyRegistered
		}
	}

	c.handlers[src] = append(c.handlers[src], h)
	return nil
}

// Unregister removes h from the handler list of src.
func (c *Controller) Unregister(src Source, h Handler) *kernel.Error {
	if src >= MaxSources {
		return errInvalidSource
	}

	list := c.handlers[src]
	for i, existing := range list {
		if existing == h {
			c.handlers[src] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}

	return errNotRegistered
}

// Enable unmasks src.
func (c *Controller) Enable(src Source) {
	updateMask(&c.enabled, func(mask uint64) uint64 { return mask | 1<<src })
}

// Disable masks src. Raised interrupts for a masked source stay latched until
// the source is enabled again.
func (c *Controller) Disable(src Source) {
	updateMask(&c.enabled, func(mask uint64) uint64 { return mask &^ (1 << src) })
}

// Ack clears any latched instance of src.
func (c *Controller) Ack(src Source) {
	updateMask(&c.pending, func(mask uint64) uint64 { return mask &^ (1 << src) })
}

// Raise latches src and wakes up the CPU if it is idle. Raise may be called
// from any goroutine.
func (c *Controller) Raise(src Source) {
	if src >= MaxSources {
		return
	}

	updateMask(&c.pending, func(mask uint64) uint64 { return mask | 1<<src })

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Pending returns true if an enabled source has a latched interrupt.
func (c *Controller) Pending() bool {
	return atomic.LoadUint64(&c.pending)&atomic.LoadUint64(&c.enabled) != 0
}

// Kick returns a channel that receives a value after an interrupt is raised.
func (c *Controller) Kick() <-chan struct{} {
	return c.kick
}

// AttachSource records that an asynchronous interrupt source is active.
func (c *Controller) AttachSource() {
	atomic.AddInt32(&c.asyncSources, 1)
}

// DetachSource reverses a call to AttachSource.
func (c *Controller) DetachSource() {
	atomic.AddInt32(&c.asyncSources, -1)
}

// AsyncSources returns the number of attached asynchronous interrupt sources.
func (c *Controller) AsyncSources() int {
	return int(atomic.LoadInt32(&c.asyncSources))
}

// DeliverPending dispatches every latched interrupt of an enabled source, in
// ascending source order. regs is the frame of the interrupted context.
func (c *Controller) DeliverPending(regs *cpu.Registers) {
	for {
		ready := atomic.LoadUint64(&c.pending) & atomic.LoadUint64(&c.enabled)
		if ready == 0 {
			return
		}

		for src := Source(0); src < MaxSources; src++ {
			bit := uint64(1) << src
			if ready&bit == 0 {
				continue
			}

			c.Ack(src)
			c.Dispatch(src, regs)
		}
	}
}

// Dispatch synchronously invokes the handlers registered for src. A raised
// source without any handler is an unrecoverable fault that halts the
// kernel.
func (c *Controller) Dispatch(src Source, regs *cpu.Registers) {
	if src >= MaxSources || len(c.handlers[src]) == 0 {
		w := kfmt.ModuleWriter("irq")
		kfmt.Fprintf(w, "unrouted interrupt %d\n", uint8(src))
		dumpFrame(w, regs)
		panicFn(errUnroutedTrap)
		return
	}

	for _, h := range c.handlers[src] {
		h.HandleInterrupt(src, regs)
	}
}

// dumpFrame outputs the trap frame contents to w.
func dumpFrame(w io.Writer, regs *cpu.Registers) {
	if regs == nil {
		return
	}
	kfmt.Fprintf(w, "INFO = %16x RAX = %16x\n", regs.Info, regs.RAX)
}

func updateMask(mask *uint64, fn func(uint64) uint64) {
	for {
		old := atomic.LoadUint64(mask)
		if atomic.CompareAndSwapUint64(mask, old, fn(old)) {
			return
		}
	}
}
