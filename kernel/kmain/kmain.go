// Package kmain boots the kernel: it parses the boot command line, wires the
// interrupt controller, clock, allocator, scheduler, process manager and
// syscall dispatcher together and runs the init program.
package kmain

import (
	"io"
	"time"

	"threados/kernel"
	"threados/kernel/irq"
	"threados/kernel/kfmt"
	"threados/kernel/mem"
	"threados/kernel/proc"
	"threados/kernel/sched"
	"threados/kernel/syscall"
	"threados/kernel/timer"
)

var (
	log = kfmt.ModuleWriter("kmain")

	// The following functions are mocked by tests.
	panicFn    = kfmt.Panic
	newClockFn = func(irqs *irq.Controller, period time.Duration) timer.Clock {
		return timer.NewSystemClock(irqs, period)
	}

	active *Kernel
)

// Kernel holds the components wired together at boot.
type Kernel struct {
	Config Config

	IRQ      *irq.Controller
	Clock    timer.Clock
	Alloc    *mem.Pool
	Sched    *sched.Scheduler
	Procs    *proc.Manager
	Syscalls *syscall.Dispatcher
}

// Active returns the kernel started by Kmain or nil. Programs use it to
// reach the syscall interface.
func Active() *Kernel {
	return active
}

// Boot wires a kernel for cfg. No thread runs until Start is called.
func Boot(cfg Config) (*Kernel, *kernel.Error) {
	k := &Kernel{
		Config: cfg,
		IRQ:    irq.NewController(),
		Alloc:  mem.NewPool(cfg.MemLimit),
	}
	k.Clock = newClockFn(k.IRQ, cfg.TickPeriod)

	var err *kernel.Error
	if k.Sched, err = sched.New(cfg.Sched, k.Clock, k.IRQ, k.Alloc); err != nil {
		return nil, err
	}

	k.Procs = proc.NewManager(k.Sched, k.Alloc)
	if k.Syscalls, err = syscall.New(k.Procs, k.IRQ, cfg.Limits); err != nil {
		return nil, err
	}

	kfmt.Fprintf(log, "priority levels: %d, EDF band: %d, RR quantum: %d ticks\n",
		cfg.Sched.PrioLevels, cfg.Sched.EDFBand, cfg.Sched.Quantum)
	kfmt.Fprintf(log, "memory: %dKb, stack: %dKb, max threads: %d\n",
		uint64(cfg.MemLimit/mem.Kb), uint64(cfg.Sched.StackSize/mem.Kb), cfg.Sched.MaxThreads)

	return k, nil
}

// Usys returns the user-side syscall interface of the kernel.
func (k *Kernel) Usys() *syscall.Usys {
	return k.Syscalls.Usys()
}

// Start runs the init program and schedules threads until all of them have
// exited.
func (k *Kernel) Start() *kernel.Error {
	p, err := k.Procs.Exec(k.Config.Init)
	if err != nil {
		kfmt.Fprintf(log, "unable to start init program '%s'\n", k.Config.Init)
		return err
	}
	kfmt.Fprintf(log, "started %s as process %d\n", p.Name(), p.PID())

	if err = k.Sched.Run(); err != nil {
		return err
	}

	stats := k.Sched.Stats()
	kfmt.Fprintf(log, "all threads exited after %d ticks (%d context switches)\n", stats.Ticks, stats.Switches)
	return nil
}

// Kmain is the kernel entrypoint invoked by the boot trampoline with the boot
// command line and the console that receives the kernel log. Kmain returns
// once every thread has exited; boot and scheduling errors are fatal.
func Kmain(cmdLine string, console io.Writer) {
	cfg, err := ParseConfig(ParseCmdLine(cmdLine))
	if err != nil {
		kfmt.SetOutputSink(console)
		panicFn(err)
		return
	}

	if cfg.Quiet {
		console = io.Discard
	}
	kfmt.SetOutputSink(console)

	if active, err = Boot(cfg); err != nil {
		panicFn(err)
		return
	}

	if err = active.Start(); err != nil {
		panicFn(err)
	}
}
