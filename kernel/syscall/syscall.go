// Package syscall implements the trap boundary between user threads and the
// kernel. A user thread loads a syscall number and a parameter block into
// its trap frame and raises the syscall trap; the dispatcher looks up the
// handler in a fixed table and stores the result in the frame's return
// value slot. Failed calls return -1 and set the thread's errno cell.
package syscall

import (
	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/irq"
	"threados/kernel/kfmt"
	"threados/kernel/proc"
	"threados/kernel/sched"
)

// Num is a syscall number.
type Num uint64

// Supported syscalls.
const (
	SysThreadCreate Num = iota
	SysThreadExit
	SysThreadJoin
	SysThreadDetach
	SysThreadSelf
	SysThreadYield
	SysThreadSleep
	SysThreadWaitPeriod
	SysThreadSetPriority
	SysMutexCreate
	SysMutexLock
	SysMutexTryLock
	SysMutexUnlock
	SysCondCreate
	SysCondWait
	SysCondSignal
	SysCondBroadcast
	SysSemCreate
	SysSemWait
	SysSemTryWait
	SysSemPost
	SysMqCreate
	SysMqSend
	SysMqTrySend
	SysMqReceive
	SysMqTryReceive
	SysHandleClose
	SysHandleDup
	SysProcessExit

	// NumSyscalls is the size of the dispatch table.
	NumSyscalls
)

var (
	log = kfmt.ModuleWriter("syscall")

	errNoSys          = &kernel.Error{Module: "syscall", Message: "unknown syscall", Errno: kernel.ENOSYS}
	errFault          = &kernel.Error{Module: "syscall", Message: "malformed parameter block", Errno: kernel.EFAULT}
	errBadHandle      = &kernel.Error{Module: "syscall", Message: "handle does not reference an object of the expected type", Errno: kernel.EBADF}
	errNoProcess      = &kernel.Error{Module: "syscall", Message: "calling thread does not belong to a process", Errno: kernel.EPERM}
	errDeadlineMissed = &kernel.Error{Module: "syscall", Message: "deadline missed", Errno: kernel.ETIMEDOUT}
	errMqLimits       = &kernel.Error{Module: "syscall", Message: "message queue geometry exceeds the system limits", Errno: kernel.EINVAL}
	errNoSuchThread   = &kernel.Error{Module: "syscall", Message: "no such thread", Errno: kernel.ESRCH}
)

// call carries the state of a syscall invocation.
type call struct {
	d      *Dispatcher
	thread *sched.Thread
	proc   *proc.Process
	params interface{}
}

// handlerFn services a syscall. The returned value is stored in the trap
// frame unless an error is returned.
type handlerFn func(c *call) (int64, *kernel.Error)

// dispatchTable maps syscall numbers to their handlers.
var dispatchTable = [NumSyscalls]handlerFn{
	SysThreadCreate:      sysThreadCreate,
	SysThreadExit:        sysThreadExit,
	SysThreadJoin:        sysThreadJoin,
	SysThreadDetach:      sysThreadDetach,
	SysThreadSelf:        sysThreadSelf,
	SysThreadYield:       sysThreadYield,
	SysThreadSleep:       sysThreadSleep,
	SysThreadWaitPeriod:  sysThreadWaitPeriod,
	SysThreadSetPriority: sysThreadSetPriority,
	SysMutexCreate:       sysMutexCreate,
	SysMutexLock:         sysMutexLock,
	SysMutexTryLock:      sysMutexTryLock,
	SysMutexUnlock:       sysMutexUnlock,
	SysCondCreate:        sysCondCreate,
	SysCondWait:          sysCondWait,
	SysCondSignal:        sysCondSignal,
	SysCondBroadcast:     sysCondBroadcast,
	SysSemCreate:         sysSemCreate,
	SysSemWait:           sysSemWait,
	SysSemTryWait:        sysSemTryWait,
	SysSemPost:           sysSemPost,
	SysMqCreate:          sysMqCreate,
	SysMqSend:            sysMqSend,
	SysMqTrySend:         sysMqTrySend,
	SysMqReceive:         sysMqReceive,
	SysMqTryReceive:      sysMqTryReceive,
	SysHandleClose:       sysHandleClose,
	SysHandleDup:         sysHandleDup,
	SysProcessExit:       sysProcessExit,
}

// Limits bounds the resources user threads can request.
type Limits struct {
	MaxMsg  int
	MsgSize int
}

// Dispatcher services the syscall trap.
type Dispatcher struct {
	m      *proc.Manager
	s      *sched.Scheduler
	irqs   *irq.Controller
	limits Limits
}

// New creates a dispatcher for the processes of m and registers it as the
// handler of the syscall trap.
func New(m *proc.Manager, irqs *irq.Controller, limits Limits) (*Dispatcher, *kernel.Error) {
	d := &Dispatcher{
		m:      m,
		s:      m.Scheduler(),
		irqs:   irqs,
		limits: limits,
	}

	if err := irqs.Register(irq.Syscall, d); err != nil {
		return nil, err
	}
	return d, nil
}

// HandleInterrupt implements irq.Handler. It decodes the syscall number and
// parameter block from the trap frame of the calling thread and invokes the
// matching handler.
func (d *Dispatcher) HandleInterrupt(_ irq.Source, regs *cpu.Registers) {
	var (
		ret int64
		err *kernel.Error
		num = Num(regs.Info)
		cur = d.s.Current()
	)

	if num >= NumSyscalls || dispatchTable[num] == nil {
		kfmt.Fprintf(log, "thread %d: unknown syscall %d\n", cur.ID(), regs.Info)
		err = errNoSys
	} else {
		c := &call{d: d, thread: cur, params: regs.Params}
		c.proc, _ = cur.Owner().(*proc.Process)
		ret, err = dispatchTable[num](c)
	}

	if err != nil {
		cur.SetErrno(kernel.ErrnoOf(err))
		ret = -1
	}

	regs.RAX = ret
}

// Trap enters the kernel from the running thread. It stores num and params
// in the thread's trap frame, raises the syscall trap and returns the value
// left in the return slot. Returning from the trap is a preemption point.
func (d *Dispatcher) Trap(num Num, params interface{}) int64 {
	frame := d.s.Current().Frame()
	frame.Info = uint64(num)
	frame.Params = params

	d.irqs.Dispatch(irq.Syscall, frame)
	d.s.PreemptPoint()

	frame.Params = nil
	return frame.RAX
}
