// Package proc tracks processes: the owners of threads, memory regions and
// kernel object handles.
package proc

import (
	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/kfmt"
	"threados/kernel/kobj"
	"threados/kernel/ksync"
	"threados/kernel/mem"
	"threados/kernel/sched"
)

// PID identifies a process.
type PID uint32

var (
	log = kfmt.ModuleWriter("proc")

	errNoProgram    = &kernel.Error{Module: "proc", Message: "no such program", Errno: kernel.ENOENT}
	errBadImage     = &kernel.Error{Module: "proc", Message: "program image has no entry point", Errno: kernel.EINVAL}
	errExiting      = &kernel.Error{Module: "proc", Message: "process is exiting", Errno: kernel.ESRCH}
	errNotMember    = &kernel.Error{Module: "proc", Message: "calling thread does not belong to the process", Errno: kernel.EPERM}
	errNoSuchThread = &kernel.Error{Module: "proc", Message: "thread does not belong to the process", Errno: kernel.ESRCH}
)

// Process owns a memory region, a table of kernel object handles and one or
// more threads. A process is destroyed once all of its threads have been
// reaped.
type Process struct {
	pid  PID
	name string
	m    *Manager

	region  mem.Region
	handles kobj.Table
	threads []*sched.Thread

	exiting   bool
	destroyed bool
	status    uintptr
}

// PID returns the process id.
func (p *Process) PID() PID { return p.pid }

// Name returns the name of the program the process runs.
func (p *Process) Name() string { return p.name }

// Region returns the memory region of the process.
func (p *Process) Region() mem.Region { return p.region }

// Destroyed returns true once the process resources have been released.
func (p *Process) Destroyed() bool { return p.destroyed }

// ExitStatus returns the status passed to Exit.
func (p *Process) ExitStatus() uintptr { return p.status }

// Threads returns the number of threads that have not been reaped.
func (p *Process) Threads() int {
	s := p.m.s
	prev := s.DisableInterrupts()
	n := len(p.threads)
	s.RestoreInterrupts(prev)
	return n
}

// CreateThread starts a new thread in the process.
func (p *Process) CreateThread(entry cpu.Entry, arg uintptr, policy sched.Policy, prio int) (*sched.Thread, *kernel.Error) {
	s := p.m.s
	prev := s.DisableInterrupts()

	if p.exiting || p.destroyed {
		s.RestoreInterrupts(prev)
		return nil, errExiting
	}

	t, err := s.Create(entry, arg, policy, prio, p)
	if err == nil {
		p.threads = append(p.threads, t)
	}

	s.RestoreInterrupts(prev)
	return t, err
}

// Member returns true if t belongs to the process.
func (p *Process) Member(t *sched.Thread) bool {
	return t != nil && t.Owner() == sched.Owner(p)
}

// Join waits for a thread of the process to exit and returns its exit value.
func (p *Process) Join(id sched.ThreadID) (uintptr, *kernel.Error) {
	if !p.Member(p.m.s.Lookup(id)) {
		return 0, errNoSuchThread
	}
	return p.m.s.Join(id)
}

// Detach detaches a thread of the process.
func (p *Process) Detach(id sched.ThreadID) *kernel.Error {
	if !p.Member(p.m.s.Lookup(id)) {
		return errNoSuchThread
	}
	return p.m.s.Detach(id)
}

// Exit terminates the process. Threads of the process other than the caller
// are detached so they are reaped as soon as they exit, and zombies are
// reaped immediately. The calling thread then exits with status and Exit
// does not return. Calling Exit from a thread of another process fails.
func (p *Process) Exit(status uintptr) *kernel.Error {
	s := p.m.s
	prev := s.DisableInterrupts()

	cur := s.Current()
	if !p.Member(cur) {
		s.RestoreInterrupts(prev)
		return errNotMember
	}

	p.exiting = true
	p.status = status
	kfmt.Fprintf(log, "process %d (%s) exiting with status %d\n", p.pid, p.name, status)

	threads := append([]*sched.Thread(nil), p.threads...)
	for _, t := range threads {
		if !t.Detached() {
			if err := s.Detach(t.ID()); err != nil {
				kfmt.Fprintf(log, "process %d: unable to detach thread %d: %s\n", p.pid, t.ID(), err.Message)
			}
		}
	}

	s.Exit(status)
	return nil
}

// ThreadReaped implements sched.Owner. Mutexes the thread still holds are
// released. Reaping the last thread of the process destroys it.
func (p *Process) ThreadReaped(t *sched.Thread) {
	p.handles.Each(func(h kobj.Handle, obj kobj.Object) {
		if m, ok := obj.(*ksync.Mutex); ok && m.Abandon(t) {
			kfmt.Fprintf(log, "process %d: thread %d exited holding mutex handle %d\n", p.pid, t.ID(), h)
		}
	})

	for i, member := range p.threads {
		if member == t {
			p.threads = append(p.threads[:i], p.threads[i+1:]...)
			break
		}
	}

	if len(p.threads) == 0 {
		p.destroy()
	}
}

// destroy releases the process resources. It is invoked with interrupts
// disabled.
func (p *Process) destroy() {
	p.handles.Each(func(h kobj.Handle, obj kobj.Object) {
		if err := kobj.Release(obj); err != nil {
			kfmt.Fprintf(log, "process %d: %s handle %d not released: %s\n", p.pid, obj.Hdr().Kind(), h, err.Message)
		}
		p.handles.Remove(h)
	})

	if p.region.Data != nil {
		if err := p.m.alloc.Free(p.region.Data); err != nil {
			kfmt.Fprintf(log, "process %d: unable to free memory region: %s\n", p.pid, err.Message)
		}
		p.region.Data = nil
	}

	p.destroyed = true
	delete(p.m.procs, p.pid)
	kfmt.Fprintf(log, "process %d (%s) destroyed\n", p.pid, p.name)
}

// AddObject stores a new kernel object in the handle table. The creation
// reference of obj is transferred to the table.
func (p *Process) AddObject(obj kobj.Object) (kobj.Handle, *kernel.Error) {
	s := p.m.s
	prev := s.DisableInterrupts()
	h, err := p.handles.Insert(obj)
	s.RestoreInterrupts(prev)
	return h, err
}

// Object returns the kernel object referenced by h.
func (p *Process) Object(h kobj.Handle) (kobj.Object, *kernel.Error) {
	s := p.m.s
	prev := s.DisableInterrupts()
	obj, err := p.handles.Get(h)
	s.RestoreInterrupts(prev)
	return obj, err
}

// CloseHandle drops the reference held by h. Closing the last handle of an
// object destroys it unless threads are blocked on it, in which case the
// handle remains open and an EBUSY error is returned.
func (p *Process) CloseHandle(h kobj.Handle) *kernel.Error {
	s := p.m.s
	prev := s.DisableInterrupts()
	err := p.handles.Close(h)
	s.RestoreInterrupts(prev)
	return err
}

// DupHandle returns a new handle to the object referenced by h.
func (p *Process) DupHandle(h kobj.Handle) (kobj.Handle, *kernel.Error) {
	s := p.m.s
	prev := s.DisableInterrupts()
	dup, err := p.handles.Dup(h)
	s.RestoreInterrupts(prev)
	return dup, err
}

// ShareHandle gives dst a handle to the object referenced by h.
func (p *Process) ShareHandle(h kobj.Handle, dst *Process) (kobj.Handle, *kernel.Error) {
	s := p.m.s
	prev := s.DisableInterrupts()
	defer s.RestoreInterrupts(prev)

	if dst.exiting || dst.destroyed {
		return -1, errExiting
	}

	obj, err := p.handles.Get(h)
	if err != nil {
		return -1, err
	}

	if err = obj.Hdr().Acquire(); err != nil {
		return -1, err
	}

	return dst.handles.Insert(obj)
}

// Handles returns the number of open handles.
func (p *Process) Handles() int {
	s := p.m.s
	prev := s.DisableInterrupts()
	n := p.handles.Len()
	s.RestoreInterrupts(prev)
	return n
}
