package readonly

import (
	"context"
	"errors"
	"syscall"

	"github.com/mwantia/flatfs/backend"
)

var ErrReadOnly = errors.New("backend: store is read-only")

// ReadOnlyStore wraps any store to make it read-only.
// All read operations are passed through to the underlying store.
// All write operations fail with EROFS.
type ReadOnlyStore struct {
	store backend.Store
}

// NewReadOnly creates a new read-only wrapper around the given store.
func NewReadOnly(store backend.Store) *ReadOnlyStore {
	return &ReadOnlyStore{
		store: store,
	}
}

func denied(op, key string) error {
	return &backend.Error{
		Op:    op,
		Key:   key,
		Code:  "readonly",
		Errno: syscall.EROFS,
		Err:   ErrReadOnly,
	}
}

func (rs *ReadOnlyStore) Name() string {
	return rs.store.Name()
}

func (rs *ReadOnlyStore) Open(ctx context.Context) error {
	return rs.store.Open(ctx)
}

func (rs *ReadOnlyStore) Close(ctx context.Context) error {
	return rs.store.Close(ctx)
}

func (rs *ReadOnlyStore) CreateObject(ctx context.Context, key string) error {
	return denied("create", key)
}

func (rs *ReadOnlyStore) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	handle, err := rs.store.OpenObject(ctx, key)
	if err != nil {
		return nil, err
	}

	return &readOnlyHandle{Handle: handle}, nil
}

func (rs *ReadOnlyStore) DeleteObject(ctx context.Context, key string) error {
	return denied("delete", key)
}

func (rs *ReadOnlyStore) RenameObject(ctx context.Context, oldKey, newKey string) error {
	return denied("rename", oldKey)
}

func (rs *ReadOnlyStore) ListKeys(ctx context.Context) ([]string, error) {
	return rs.store.ListKeys(ctx)
}

func (rs *ReadOnlyStore) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return backend.ListByPrefix(ctx, rs.store, prefix)
}

type readOnlyHandle struct {
	backend.Handle
}

func (h *readOnlyHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	return 0, denied("write", h.Key())
}

func (h *readOnlyHandle) SetLength(ctx context.Context, size int64) error {
	return denied("truncate", h.Key())
}
