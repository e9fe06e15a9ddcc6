package cpu

// Registers contains the trap frame of a context: the values the kernel reads
// when a context traps into it and the slot it writes results to.
type Registers struct {
	// Info contains the syscall number for syscall entries or the IRQ
	// number for HW interrupts.
	Info uint64

	// Params points to the parameter block supplied with a syscall.
	Params interface{}

	// RAX holds the return value delivered to the context when it
	// resumes from a trap.
	RAX int64
}
