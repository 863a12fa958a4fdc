package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/mwantia/flatfs/backend"
)

// LocalBackend stores every object as a single file inside one directory.
// Keys are used as file names and must therefore be valid base names.
type LocalBackend struct {
	mu    sync.RWMutex
	path  string
	locks *backend.LockTable
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{
		path:  filepath.Clean(path),
		locks: backend.NewLockTable(),
	}
}

// Name returns the identifier name defined for this backend.
func (*LocalBackend) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
// The directory is created if it does not exist.
func (lb *LocalBackend) Open(ctx context.Context) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	info, err := os.Stat(lb.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(lb.path, 0o755); err != nil {
			return backend.NewError("open", lb.path, "mkdir", err)
		}
		return nil
	}
	if err != nil {
		return backend.NewError("open", lb.path, "stat", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("local backend path '%s' is not a directory", lb.path)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying directory persists independently
	return nil
}

// resolvePath maps key to its file inside the backend directory.
func (lb *LocalBackend) resolvePath(op, key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", &backend.Error{
			Op:    op,
			Key:   key,
			Code:  "invalid_key",
			Errno: syscall.EINVAL,
			Err:   fs.ErrInvalid,
		}
	}

	return filepath.Join(lb.path, key), nil
}

// translate maps os errors to the backend taxonomy.
func translate(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return backend.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return backend.ErrExists
	case errors.Is(err, fs.ErrClosed):
		return backend.ErrClosed
	default:
		return backend.NewError(op, key, "os", err)
	}
}
