package cpu

import "runtime"

// Entry is the function executed the first time a context is resumed. Its
// return value is passed to the context's exit trampoline.
type Entry func(arg uintptr) uintptr

// Context holds the saved execution state of a thread. The state itself is
// kept by the goroutine backing the context; a suspended context is parked
// on its baton channel until another context switches to it.
type Context struct {
	frame Registers

	baton   chan struct{}
	started bool

	entry Entry
	arg   uintptr
	exit  func(retval uintptr)
	stack []byte
}

// NewContext builds a context whose first resumption invokes entry(arg) on
// the supplied stack region. When entry returns, exit is invoked with its
// return value; exit must never return.
//
// A nil entry/exit or an undersized stack is a programming error and causes
// NewContext to panic.
func NewContext(entry Entry, arg uintptr, exit func(retval uintptr), stack []byte) *Context {
	if entry == nil || exit == nil {
		panic(errNilEntry)
	}
	if len(stack) < MinStackSize {
		panic(errStackTooSmall)
	}

	return &Context{
		baton: make(chan struct{}),
		entry: entry,
		arg:   arg,
		exit:  exit,
		stack: stack,
	}
}

// BootContext returns a context describing the calling goroutine. It is used
// for the boot code which later becomes the idle loop.
func BootContext() *Context {
	return &Context{
		baton:   make(chan struct{}),
		started: true,
	}
}

// Frame returns the trap frame of the context.
func (c *Context) Frame() *Registers {
	return &c.frame
}

// Stack returns the stack region the context was created with.
func (c *Context) Stack() []byte {
	return c.stack
}

// Switch saves the state of the running context into from and resumes to.
// Switch returns only when some other context switches back to from. If from
// is nil, the calling context is discarded and Switch never returns.
//
// to must not be nil; Switch panics otherwise.
func Switch(from, to *Context) {
	if to == nil {
		panic(errNilTarget)
	}

	if from == to {
		return
	}

	if !to.started {
		to.started = true
		go to.trampoline()
	} else {
		to.baton <- struct{}{}
	}

	if from == nil {
		runtime.Goexit()
	}

	<-from.baton
}

// trampoline is the first code executed by a new context.
func (c *Context) trampoline() {
	c.exit(c.entry(c.arg))

	// exit must switch away from this context.
	panic(errExitReturned)
}
