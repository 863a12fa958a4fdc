package backend

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrNotFound = errors.New("backend: object not found")
	ErrLocked   = errors.New("backend: object is locked by an open handle")
	ErrExists   = errors.New("backend: object already exists")
	ErrClosed   = errors.New("backend: handle is closed")
	ErrNegative = errors.New("backend: negative offset or length")
)

// Error is a classified native failure of a store, e.g. a failed query or
// an unreachable server. Errno is the closest POSIX code.
type Error struct {
	Op    string
	Key   string
	Code  string
	Errno syscall.Errno
	Err   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s '%s' failed (%s): %v", e.Op, e.Key, e.Code, e.Err)
	}
	return fmt.Sprintf("backend: %s '%s' failed: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a native failure. The errno defaults to EIO and is
// taken from err when it carries a syscall.Errno.
func NewError(op, key, code string, err error) *Error {
	errno := syscall.EIO

	var native syscall.Errno
	if errors.As(err, &native) {
		errno = native
	}

	return &Error{
		Op:    op,
		Key:   key,
		Code:  code,
		Errno: errno,
		Err:   err,
	}
}

// CheckOffset validates the offset of a positional access or a new length.
func CheckOffset(off int64) error {
	if off < 0 {
		return ErrNegative
	}
	return nil
}
