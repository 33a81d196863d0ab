package svc

// Errno is a POSIX error number. Handlers return its negation in R0.
type Errno int32

const (
	EPERM  Errno = 1
	ENOENT Errno = 2
	EIO    Errno = 5
	EBADF  Errno = 9
	EAGAIN Errno = 11
	EFAULT Errno = 14
	EINVAL Errno = 22
	ENOSYS Errno = 38
)

// Neg returns the value written to the result slot for this error.
func (e Errno) Neg() int32 { return -int32(e) }

func (e Errno) Error() string {
	switch e {
	case EPERM:
		return "operation not permitted"
	case ENOENT:
		return "no such file or directory"
	case EIO:
		return "input/output error"
	case EBADF:
		return "bad file descriptor"
	case EAGAIN:
		return "resource temporarily unavailable"
	case EFAULT:
		return "bad address"
	case EINVAL:
		return "invalid argument"
	case ENOSYS:
		return "function not implemented"
	default:
		return "unknown error"
	}
}

// Result splits a raw result slot into a value and an error. Negative values
// are errors.
func Result(r0 uint32) (int32, error) {
	v := int32(r0)
	if v < 0 {
		return v, Errno(-v)
	}
	return v, nil
}
