package data

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
)

// Error kinds returned by every flatfs operation.
// Use errors.Is to match them; the concrete value is usually an *ErrnoError.
var (
	ErrNotExist      = errors.New("flatfs: no such file or directory")
	ErrInvalid       = errors.New("flatfs: invalid argument")
	ErrBusy          = errors.New("flatfs: device or resource busy")
	ErrUnsupported   = errors.New("flatfs: operation not supported")
	ErrBadDescriptor = errors.New("flatfs: bad file descriptor")
	ErrIO            = errors.New("flatfs: backend i/o error")
	ErrExist         = errors.New("flatfs: file already exists")

	ErrNotDirectory = errors.New("flatfs: not a directory")
	ErrIsDirectory  = errors.New("flatfs: is a directory")
	ErrNotEmpty     = errors.New("flatfs: directory not empty")

	ErrNotMounted = errors.New("flatfs: filesystem not mounted")
	ErrMounted    = errors.New("flatfs: filesystem already mounted")
)

var kindErrno = map[error]syscall.Errno{
	ErrNotExist:      syscall.ENOENT,
	ErrInvalid:       syscall.EINVAL,
	ErrBusy:          syscall.EBUSY,
	ErrUnsupported:   syscall.ENOSYS,
	ErrBadDescriptor: syscall.EBADF,
	ErrIO:            syscall.EIO,
	ErrExist:         syscall.EEXIST,
	ErrNotDirectory:  syscall.ENOTDIR,
	ErrIsDirectory:   syscall.EISDIR,
	ErrNotEmpty:      syscall.ENOTEMPTY,
	ErrNotMounted:    syscall.ENXIO,
	ErrMounted:       syscall.EBUSY,
}

// ErrnoError is a classified failure carrying a POSIX error code.
// It matches both its kind and its cause with errors.Is.
type ErrnoError struct {
	Op    string
	Path  string
	Kind  error
	Errno syscall.Errno
	Err   error
}

func (e *ErrnoError) Error() string {
	text := fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Kind)
	if e.Err != nil {
		text = fmt.Sprintf("%s: %v", text, e.Err)
	}

	return text
}

func (e *ErrnoError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Is matches a bare syscall.Errno as well as the kind sentinels.
func (e *ErrnoError) Is(target error) bool {
	if errno, ok := target.(syscall.Errno); ok {
		return errno == e.Errno
	}

	return false
}

// NewError classifies err under kind. The errno defaults to the one of kind.
func NewError(op, path string, kind error, err error) *ErrnoError {
	return &ErrnoError{
		Op:    op,
		Path:  path,
		Kind:  kind,
		Errno: kindErrno[kind],
		Err:   err,
	}
}

func NotFound(op, path string, err error) error {
	return NewError(op, path, ErrNotExist, err)
}

func InvalidArgument(op, path string, err error) error {
	return NewError(op, path, ErrInvalid, err)
}

func Busy(op, path string, err error) error {
	return NewError(op, path, ErrBusy, err)
}

func Exist(op, path string, err error) error {
	return NewError(op, path, ErrExist, err)
}

func BadDescriptor(op, path string) error {
	return NewError(op, path, ErrBadDescriptor, nil)
}

func NotDirectory(op, path string) error {
	return NewError(op, path, ErrNotDirectory, nil)
}

func IsDirectory(op, path string) error {
	return NewError(op, path, ErrIsDirectory, nil)
}

func NotEmpty(op, path string) error {
	return NewError(op, path, ErrNotEmpty, nil)
}

// Unsupported reports a permanently unsupported operation.
// errno is usually ENOSYS or EOPNOTSUPP.
func Unsupported(op, path string, errno syscall.Errno) error {
	e := NewError(op, path, ErrUnsupported, nil)
	e.Errno = errno
	return e
}

// BackendIO wraps an opaque backend failure with its native code.
func BackendIO(op, path string, errno syscall.Errno, err error) error {
	e := NewError(op, path, ErrIO, err)
	if errno != 0 {
		e.Errno = errno
	}
	return e
}

// Errno extracts the POSIX code from err, or 0 if err is not classified.
func Errno(err error) syscall.Errno {
	var e *ErrnoError
	if errors.As(err, &e) {
		return e.Errno
	}

	return 0
}

// Errors collects multiple failures, e.g. while closing every open handle.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
