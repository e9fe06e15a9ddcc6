package syscall

import (
	"threados/kernel/cpu"
	"threados/kernel/kobj"
	"threados/kernel/sched"
)

// ThreadCreateParams is the parameter block of SysThreadCreate.
type ThreadCreateParams struct {
	Entry    cpu.Entry
	Arg      uintptr
	Policy   sched.Policy
	Priority int
}

// ThreadParams is the parameter block of SysThreadJoin and SysThreadDetach.
// RetVal receives the exit value of a joined thread.
type ThreadParams struct {
	ID     sched.ThreadID
	RetVal uintptr
}

// ExitParams is the parameter block of SysThreadExit and SysProcessExit.
type ExitParams struct {
	Status uintptr
}

// SleepParams is the parameter block of SysThreadSleep.
type SleepParams struct {
	Ticks uint64
}

// PriorityParams is the parameter block of SysThreadSetPriority.
type PriorityParams struct {
	ID       sched.ThreadID
	Priority int
}

// HandleParams is the parameter block of syscalls operating on a single
// kernel object.
type HandleParams struct {
	Handle kobj.Handle
}

// CondWaitParams is the parameter block of SysCondWait.
type CondWaitParams struct {
	Cond  kobj.Handle
	Mutex kobj.Handle
}

// SemCreateParams is the parameter block of SysSemCreate.
type SemCreateParams struct {
	Initial int
}

// MqCreateParams is the parameter block of SysMqCreate.
type MqCreateParams struct {
	MaxMsg  int
	MsgSize int
}

// MqSendParams is the parameter block of SysMqSend and SysMqTrySend.
type MqSendParams struct {
	Handle kobj.Handle
	Data   []byte
	Prio   uint
}

// MqReceiveParams is the parameter block of SysMqReceive and
// SysMqTryReceive. Prio receives the priority of the received message.
type MqReceiveParams struct {
	Handle kobj.Handle
	Buf    []byte
	Prio   uint
}
