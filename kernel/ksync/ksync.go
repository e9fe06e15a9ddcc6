// Package ksync implements the blocking synchronization primitives available
// to kernel threads: mutexes, condition variables, counting semaphores and
// priority message queues.
//
// Every primitive follows the same discipline. The caller disables
// interrupts, inspects the primitive state and either completes the
// operation or blocks on one of the primitive's wait queues. The thread that
// satisfies a blocked request completes it on behalf of the waiter before
// waking it up, so a woken thread never has to retry.
package ksync

import "threados/kernel"

var (
	errNotOwner     = &kernel.Error{Module: "ksync", Message: "calling thread does not own the mutex", Errno: kernel.EPERM}
	errRecursive    = &kernel.Error{Module: "ksync", Message: "calling thread already owns the mutex", Errno: kernel.EDEADLK}
	errBusy         = &kernel.Error{Module: "ksync", Message: "object is in use", Errno: kernel.EBUSY}
	errWouldBlock   = &kernel.Error{Module: "ksync", Message: "operation would block", Errno: kernel.EAGAIN}
	errInvalidValue = &kernel.Error{Module: "ksync", Message: "invalid initial value", Errno: kernel.EINVAL}
	errMsgSize      = &kernel.Error{Module: "ksync", Message: "message size exceeds the queue limit", Errno: kernel.EMSGSIZE}
	errBufSize      = &kernel.Error{Module: "ksync", Message: "receive buffer is smaller than the queue message size", Errno: kernel.EMSGSIZE}
)
