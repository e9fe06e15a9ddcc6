package proc

import (
	"sort"

	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/mem"
	"threados/kernel/sched"
)

// Image describes a loaded program: the entry point of its main thread and
// the resources the process needs.
type Image struct {
	Name string

	Entry cpu.Entry
	Arg   uintptr

	// Priority and Policy of the main thread. A nil policy selects
	// sched.Plain.
	Priority int
	Policy   sched.Policy

	// MemSize is the size of the memory region reserved for the process.
	MemSize mem.Size
}

// LoadFn returns the image of a registered program.
type LoadFn func() (*Image, *kernel.Error)

// ProgramInfo is a registry entry describing a program that can be started
// by name.
type ProgramInfo struct {
	Name string
	Load LoadFn
}

// ProgramInfoList is a list of registered programs that can be sorted by
// name.
type ProgramInfoList []*ProgramInfo

// Len returns the length of the program info list.
func (l ProgramInfoList) Len() int { return len(l) }

// Swap exchanges 2 elements in the program info list.
func (l ProgramInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares 2 elements of the program info list.
func (l ProgramInfoList) Less(i, j int) bool { return l[i].Name < l[j].Name }

var (
	// registeredPrograms tracks the programs registered with RegisterProgram.
	registeredPrograms ProgramInfoList
)

// RegisterProgram adds a program to the registry. A program registered with
// the name of an existing entry replaces it.
func RegisterProgram(info *ProgramInfo) {
	for i, existing := range registeredPrograms {
		if existing.Name == info.Name {
			registeredPrograms[i] = info
			return
		}
	}

	registeredPrograms = append(registeredPrograms, info)
	sort.Sort(registeredPrograms)
}

// ProgramList returns the registered programs sorted by name.
func ProgramList() ProgramInfoList {
	return registeredPrograms
}

// LookupProgram returns the registry entry for name or nil.
func LookupProgram(name string) *ProgramInfo {
	idx := sort.Search(len(registeredPrograms), func(i int) bool {
		return registeredPrograms[i].Name >= name
	})

	if idx < len(registeredPrograms) && registeredPrograms[idx].Name == name {
		return registeredPrograms[idx]
	}
	return nil
}
