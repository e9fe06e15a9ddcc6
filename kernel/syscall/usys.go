package syscall

import (
	"threados/kernel"
	"threados/kernel/cpu"
	"threados/kernel/kobj"
	"threados/kernel/sched"
)

// Usys exposes the syscalls as functions callable from user threads. Each
// call traps into the kernel and returns the result together with the errno
// left by a failed call.
type Usys struct {
	d *Dispatcher
}

// Usys returns the user-side interface of the dispatcher.
func (d *Dispatcher) Usys() *Usys { return &Usys{d: d} }

func (u *Usys) syscall(num Num, params interface{}) (int64, kernel.Errno) {
	ret := u.d.Trap(num, params)
	if ret < 0 {
		return ret, u.d.s.Current().Errno()
	}
	return ret, 0
}

// ThreadCreate starts a thread in the calling process. A nil policy selects
// the plain policy.
func (u *Usys) ThreadCreate(entry cpu.Entry, arg uintptr, policy sched.Policy, prio int) (sched.ThreadID, kernel.Errno) {
	ret, errno := u.syscall(SysThreadCreate, &ThreadCreateParams{Entry: entry, Arg: arg, Policy: policy, Priority: prio})
	return sched.ThreadID(ret), errno
}

// ThreadExit terminates the calling thread.
func (u *Usys) ThreadExit(status uintptr) {
	u.syscall(SysThreadExit, &ExitParams{Status: status})
}

// ThreadJoin waits for a thread to exit and returns its exit value.
func (u *Usys) ThreadJoin(id sched.ThreadID) (uintptr, kernel.Errno) {
	params := &ThreadParams{ID: id}
	_, errno := u.syscall(SysThreadJoin, params)
	return params.RetVal, errno
}

// ThreadDetach detaches a thread.
func (u *Usys) ThreadDetach(id sched.ThreadID) kernel.Errno {
	_, errno := u.syscall(SysThreadDetach, &ThreadParams{ID: id})
	return errno
}

// ThreadSelf returns the id of the calling thread.
func (u *Usys) ThreadSelf() sched.ThreadID {
	ret, _ := u.syscall(SysThreadSelf, nil)
	return sched.ThreadID(ret)
}

// ThreadYield gives up the CPU.
func (u *Usys) ThreadYield() {
	u.syscall(SysThreadYield, nil)
}

// ThreadSleep blocks the calling thread for the given number of ticks.
func (u *Usys) ThreadSleep(ticks uint64) kernel.Errno {
	_, errno := u.syscall(SysThreadSleep, &SleepParams{Ticks: ticks})
	return errno
}

// ThreadWaitPeriod ends the current cycle of an EDF thread. ETIMEDOUT is
// returned when the deadline of the cycle was missed.
func (u *Usys) ThreadWaitPeriod() kernel.Errno {
	_, errno := u.syscall(SysThreadWaitPeriod, nil)
	return errno
}

// ThreadSetPriority changes the priority of a thread.
func (u *Usys) ThreadSetPriority(id sched.ThreadID, prio int) kernel.Errno {
	_, errno := u.syscall(SysThreadSetPriority, &PriorityParams{ID: id, Priority: prio})
	return errno
}

// ProcessExit terminates the calling process.
func (u *Usys) ProcessExit(status uintptr) kernel.Errno {
	_, errno := u.syscall(SysProcessExit, &ExitParams{Status: status})
	return errno
}

func (u *Usys) create(num Num, params interface{}) (kobj.Handle, kernel.Errno) {
	ret, errno := u.syscall(num, params)
	return kobj.Handle(ret), errno
}

func (u *Usys) onHandle(num Num, h kobj.Handle) kernel.Errno {
	_, errno := u.syscall(num, &HandleParams{Handle: h})
	return errno
}

// MutexCreate creates a mutex.
func (u *Usys) MutexCreate() (kobj.Handle, kernel.Errno) { return u.create(SysMutexCreate, nil) }

// MutexLock locks a mutex.
func (u *Usys) MutexLock(h kobj.Handle) kernel.Errno { return u.onHandle(SysMutexLock, h) }

// MutexTryLock locks a mutex without blocking.
func (u *Usys) MutexTryLock(h kobj.Handle) kernel.Errno { return u.onHandle(SysMutexTryLock, h) }

// MutexUnlock unlocks a mutex.
func (u *Usys) MutexUnlock(h kobj.Handle) kernel.Errno { return u.onHandle(SysMutexUnlock, h) }

// CondCreate creates a condition variable.
func (u *Usys) CondCreate() (kobj.Handle, kernel.Errno) { return u.create(SysCondCreate, nil) }

// CondWait atomically unlocks m and waits on cv. The mutex is locked again
// before CondWait returns.
func (u *Usys) CondWait(cv, m kobj.Handle) kernel.Errno {
	_, errno := u.syscall(SysCondWait, &CondWaitParams{Cond: cv, Mutex: m})
	return errno
}

// CondSignal wakes one waiter of a condition variable.
func (u *Usys) CondSignal(h kobj.Handle) kernel.Errno { return u.onHandle(SysCondSignal, h) }

// CondBroadcast wakes all waiters of a condition variable.
func (u *Usys) CondBroadcast(h kobj.Handle) kernel.Errno { return u.onHandle(SysCondBroadcast, h) }

// SemCreate creates a counting semaphore.
func (u *Usys) SemCreate(initial int) (kobj.Handle, kernel.Errno) {
	return u.create(SysSemCreate, &SemCreateParams{Initial: initial})
}

// SemWait decrements a semaphore, blocking while it is zero.
func (u *Usys) SemWait(h kobj.Handle) kernel.Errno { return u.onHandle(SysSemWait, h) }

// SemTryWait decrements a semaphore without blocking.
func (u *Usys) SemTryWait(h kobj.Handle) kernel.Errno { return u.onHandle(SysSemTryWait, h) }

// SemPost increments a semaphore.
func (u *Usys) SemPost(h kobj.Handle) kernel.Errno { return u.onHandle(SysSemPost, h) }

// MqCreate creates a message queue.
func (u *Usys) MqCreate(maxMsg, msgSize int) (kobj.Handle, kernel.Errno) {
	return u.create(SysMqCreate, &MqCreateParams{MaxMsg: maxMsg, MsgSize: msgSize})
}

// MqSend sends a message, blocking while the queue is full.
func (u *Usys) MqSend(h kobj.Handle, data []byte, prio uint) kernel.Errno {
	_, errno := u.syscall(SysMqSend, &MqSendParams{Handle: h, Data: data, Prio: prio})
	return errno
}

// MqTrySend sends a message without blocking.
func (u *Usys) MqTrySend(h kobj.Handle, data []byte, prio uint) kernel.Errno {
	_, errno := u.syscall(SysMqTrySend, &MqSendParams{Handle: h, Data: data, Prio: prio})
	return errno
}

// MqReceive receives the highest priority message into buf, blocking while
// the queue is empty. It returns the message length and priority.
func (u *Usys) MqReceive(h kobj.Handle, buf []byte) (int, uint, kernel.Errno) {
	params := &MqReceiveParams{Handle: h, Buf: buf}
	ret, errno := u.syscall(SysMqReceive, params)
	if errno != 0 {
		return 0, 0, errno
	}
	return int(ret), params.Prio, 0
}

// MqTryReceive receives a message without blocking.
func (u *Usys) MqTryReceive(h kobj.Handle, buf []byte) (int, uint, kernel.Errno) {
	params := &MqReceiveParams{Handle: h, Buf: buf}
	ret, errno := u.syscall(SysMqTryReceive, params)
	if errno != 0 {
		return 0, 0, errno
	}
	return int(ret), params.Prio, 0
}

// Close closes a handle.
func (u *Usys) Close(h kobj.Handle) kernel.Errno { return u.onHandle(SysHandleClose, h) }

// Dup duplicates a handle.
func (u *Usys) Dup(h kobj.Handle) (kobj.Handle, kernel.Errno) {
	return u.create(SysHandleDup, &HandleParams{Handle: h})
}
