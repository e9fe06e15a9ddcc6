// Package cpu models the single processor the kernel runs on. Execution
// contexts are goroutines; exactly one of them holds the processor at any
// time and control is transferred between them with Switch.
package cpu

import "threados/kernel"

// MinStackSize is the smallest stack region accepted by NewContext.
const MinStackSize = 512

var (
	errNilEntry      = &kernel.Error{Module: "cpu", Message: "context entry point or exit trampoline is nil", Errno: kernel.EINVAL}
	errStackTooSmall = &kernel.Error{Module: "cpu", Message: "context stack region is smaller than MinStackSize", Errno: kernel.EINVAL}
	errExitReturned  = &kernel.Error{Module: "cpu", Message: "exit trampoline returned to a finished context"}
	errNilTarget     = &kernel.Error{Module: "cpu", Message: "switch target context is nil"}
)

// Halt stops instruction execution on the calling context. Calls to Halt
// never return.
func Halt() {
	select {}
}
