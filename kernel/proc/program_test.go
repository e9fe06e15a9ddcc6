package proc

import (
	"testing"

	"threados/kernel"
)

func TestProgramRegistry(t *testing.T) {
	defer func() {
		registeredPrograms = nil
	}()

	load := func() (*Image, *kernel.Error) { return nil, nil }
	origList := []*ProgramInfo{
		{Name: "sh", Load: load},
		{Name: "init", Load: load},
		{Name: "echo", Load: load},
	}

	for _, info := range origList {
		RegisterProgram(info)
	}

	registeredList := ProgramList()
	if exp, got := len(origList), len(registeredList); got != exp {
		t.Fatalf("expected ProgramList() to return %d entries; got %d", exp, got)
	}

	expOrder := []int{2, 1, 0}
	for i, exp := range expOrder {
		if registeredList[i] != origList[exp] {
			t.Errorf("expected sorted entry %d to be %q; got %q", i, origList[exp].Name, registeredList[i].Name)
		}
	}

	if got := LookupProgram("init"); got != origList[1] {
		t.Fatal("expected LookupProgram to find the registered program")
	}

	if got := LookupProgram("missing"); got != nil {
		t.Fatal("expected LookupProgram to return nil for an unknown program")
	}

	replacement := &ProgramInfo{Name: "init", Load: load}
	RegisterProgram(replacement)
	if LookupProgram("init") != replacement || len(ProgramList()) != len(origList) {
		t.Fatal("expected registering an existing name to replace the entry")
	}
}
