package proc

import (
	"threados/kernel"
	"threados/kernel/kfmt"
	"threados/kernel/mem"
	"threados/kernel/sched"
)

// Manager creates processes and tracks the live ones.
type Manager struct {
	s     *sched.Scheduler
	alloc mem.Allocator

	procs   map[PID]*Process
	nextPID PID
}

// NewManager returns a process manager that runs process threads on s and
// allocates process regions from alloc.
func NewManager(s *sched.Scheduler, alloc mem.Allocator) *Manager {
	return &Manager{
		s:     s,
		alloc: alloc,
		procs: make(map[PID]*Process),
	}
}

// Scheduler returns the scheduler used by the manager.
func (m *Manager) Scheduler() *sched.Scheduler { return m.s }

// Allocator returns the allocator used by the manager.
func (m *Manager) Allocator() mem.Allocator { return m.alloc }

// Spawn creates a process for img and starts its main thread.
func (m *Manager) Spawn(img *Image) (*Process, *kernel.Error) {
	if img == nil || img.Entry == nil {
		return nil, errBadImage
	}

	p := &Process{name: img.Name, m: m}
	if img.MemSize != 0 {
		data, err := m.alloc.Alloc(img.MemSize)
		if err != nil {
			return nil, err
		}
		p.region.Data = data
	}

	prev := m.s.DisableInterrupts()

	m.nextPID++
	p.pid = m.nextPID
	m.procs[p.pid] = p

	if _, err := p.CreateThread(img.Entry, img.Arg, img.Policy, img.Priority); err != nil {
		delete(m.procs, p.pid)
		if p.region.Data != nil {
			if ferr := m.alloc.Free(p.region.Data); ferr != nil {
				kfmt.Fprintf(log, "unable to free memory region of %s: %s\n", p.name, ferr.Message)
			}
		}
		m.s.RestoreInterrupts(prev)
		return nil, err
	}

	kfmt.Fprintf(log, "spawned process %d (%s)\n", p.pid, p.name)

	m.s.RestoreInterrupts(prev)
	return p, nil
}

// Exec loads the registered program called name and spawns a process for
// it.
func (m *Manager) Exec(name string) (*Process, *kernel.Error) {
	info := LookupProgram(name)
	if info == nil {
		return nil, errNoProgram
	}

	img, err := info.Load()
	if err != nil {
		return nil, err
	}

	if img.Name == "" {
		img.Name = name
	}
	return m.Spawn(img)
}

// Lookup returns the live process with the given pid or nil.
func (m *Manager) Lookup(pid PID) *Process {
	prev := m.s.DisableInterrupts()
	p := m.procs[pid]
	m.s.RestoreInterrupts(prev)
	return p
}

// Current returns the process of the running thread or nil.
func (m *Manager) Current() *Process {
	p, _ := m.s.Current().Owner().(*Process)
	return p
}

// Len returns the number of live processes.
func (m *Manager) Len() int {
	prev := m.s.DisableInterrupts()
	n := len(m.procs)
	m.s.RestoreInterrupts(prev)
	return n
}
