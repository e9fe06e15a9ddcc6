// Package kobj provides the bookkeeping shared by all kernel objects that
// user threads can reference through handles.
package kobj

import "threados/kernel"

// Kind identifies the type of a kernel object.
type Kind uint8

const (
	KindMutex Kind = iota + 1
	KindCond
	KindSemaphore
	KindMsgQueue
)

func (k Kind) String() string {
	switch k {
	case KindMutex:
		return "mutex"
	case KindCond:
		return "cond"
	case KindSemaphore:
		return "semaphore"
	case KindMsgQueue:
		return "mqueue"
	default:
		return "unknown"
	}
}

// Flags describe the state of a kernel object.
type Flags uint8

const (
	// FlagDestroyed is set once the object has been torn down.
	FlagDestroyed Flags = 1 << iota
)

var (
	errDestroyed = &kernel.Error{Module: "kobj", Message: "kernel object has been destroyed", Errno: kernel.EBADF}
)

// Header is embedded by every kernel object. The reference count tracks the
// number of open handles to the object.
//
// Header fields are protected by the scheduler's interrupt guard.
type Header struct {
	kind  Kind
	refs  int
	flags Flags
}

// Init prepares the header of a new object holding a single reference.
func (h *Header) Init(kind Kind) {
	h.kind = kind
	h.refs = 1
	h.flags = 0
}

// Hdr implements Object.
func (h *Header) Hdr() *Header { return h }

// Kind returns the object type.
func (h *Header) Kind() Kind { return h.kind }

// Refs returns the number of references to the object.
func (h *Header) Refs() int { return h.refs }

// Flags returns the object flags.
func (h *Header) Flags() Flags { return h.flags }

// Destroyed returns true once the object has been torn down.
func (h *Header) Destroyed() bool { return h.flags&FlagDestroyed != 0 }

// Acquire adds a reference to the object.
func (h *Header) Acquire() *kernel.Error {
	if h.Destroyed() {
		return errDestroyed
	}

	h.refs++
	return nil
}

// CheckLive returns an EBADF error if the object has been destroyed.
func (h *Header) CheckLive() *kernel.Error {
	if h.Destroyed() {
		return errDestroyed
	}
	return nil
}

// Object is implemented by all kernel objects.
type Object interface {
	Hdr() *Header

	// Destroy tears down the object. It fails with an EBUSY error while
	// threads are blocked on the object.
	Destroy() *kernel.Error
}

// Release drops a reference to obj. Dropping the last reference destroys
// the object; if the object cannot be destroyed the reference is kept and
// the error is returned.
func Release(obj Object) *kernel.Error {
	h := obj.Hdr()
	if h.Destroyed() {
		return errDestroyed
	}

	if h.refs > 1 {
		h.refs--
		return nil
	}

	if err := obj.Destroy(); err != nil {
		return err
	}

	h.refs = 0
	h.flags |= FlagDestroyed
	return nil
}
