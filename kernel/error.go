package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that callers can
// compare them by identity.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Errno is the status code reported to user threads when this error
	// is returned through the syscall boundary.
	Errno Errno
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ErrnoOf returns the errno associated with err or 0 if err is nil. Errors
// without an explicit errno map to EINVAL.
func ErrnoOf(err *Error) Errno {
	switch {
	case err == nil:
		return 0
	case err.Errno == 0:
		return EINVAL
	default:
		return err.Errno
	}
}
