package kernel

// Errno is a numeric status code stored in the per-thread error cell when a
// syscall fails.
type Errno int

// The error taxonomy exposed to user threads. Values follow the Linux
// numbering.
const (
	EPERM     Errno = 1  // caller does not own the object (NotOwner)
	ENOENT    Errno = 2  // unknown program
	ESRCH     Errno = 3  // unknown or already reaped thread (NoSuchThread)
	EBADF     Errno = 9  // unknown kernel object handle
	EAGAIN    Errno = 11 // a non-blocking operation would block (Full/Empty)
	ENOMEM    Errno = 12 // allocator exhausted
	EFAULT    Errno = 14 // malformed syscall parameter block
	EBUSY     Errno = 16 // object still has waiters (Busy)
	EINVAL    Errno = 22 // bad priority, policy, size or value (InvalidArgument)
	EDEADLK   Errno = 35 // operation would deadlock the caller
	ENOSYS    Errno = 38 // unknown syscall number
	EMSGSIZE  Errno = 90 // message does not fit the queue or the buffer
	ETIMEDOUT Errno = 110
)

var errnoNames = map[Errno]string{
	EPERM:     "EPERM",
	ENOENT:    "ENOENT",
	ESRCH:     "ESRCH",
	EBADF:     "EBADF",
	EAGAIN:    "EAGAIN",
	ENOMEM:    "ENOMEM",
	EFAULT:    "EFAULT",
	EBUSY:     "EBUSY",
	EINVAL:    "EINVAL",
	EDEADLK:   "EDEADLK",
	ENOSYS:    "ENOSYS",
	EMSGSIZE:  "EMSGSIZE",
	ETIMEDOUT: "ETIMEDOUT",
}

// String returns the symbolic name of the errno.
func (e Errno) String() string {
	if e == 0 {
		return "OK"
	}
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return "EUNKNOWN"
}
