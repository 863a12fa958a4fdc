package sqlite

import (
	"context"
	"sync/atomic"

	"github.com/mwantia/flatfs/backend"
)

type sqliteHandle struct {
	backend *SQLiteBackend
	id      string
	key     string
	closed  atomic.Bool
}

func (h *sqliteHandle) ID() string {
	return h.id
}

func (h *sqliteHandle) Key() string {
	return h.key
}

func (h *sqliteHandle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	var chunk []byte
	// substr works on bytes for blobs and is 1-indexed
	err := h.backend.db.QueryRowContext(ctx,
		"SELECT substr(content, ?, ?) FROM flatfs_objects WHERE key = ?",
		off+1, len(p), h.key).Scan(&chunk)
	if err != nil {
		return 0, translate("read", h.key, err)
	}

	return copy(p, chunk), nil
}

func (h *sqliteHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()

	err := h.backend.update(ctx, "write", h.key, func(content []byte) []byte {
		end := off + int64(len(p))
		if end > int64(len(content)) {
			buffer := make([]byte, end)
			copy(buffer, content)
			content = buffer
		}
		copy(content[off:], p)
		return content
	})
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

func (h *sqliteHandle) Length(ctx context.Context) (int64, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	var length int64
	err := h.backend.db.QueryRowContext(ctx,
		"SELECT COALESCE(length(content), 0) FROM flatfs_objects WHERE key = ?", h.key).Scan(&length)
	if err != nil {
		return 0, translate("length", h.key, err)
	}

	return length, nil
}

func (h *sqliteHandle) SetLength(ctx context.Context, size int64) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	if err := backend.CheckOffset(size); err != nil {
		return err
	}

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()

	return h.backend.update(ctx, "truncate", h.key, func(content []byte) []byte {
		if size <= int64(len(content)) {
			return content[:size]
		}
		buffer := make([]byte, size)
		copy(buffer, content)
		return buffer
	})
}

// Flush is a no-op, every write is committed immediately.
func (h *sqliteHandle) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	return nil
}

func (h *sqliteHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return backend.ErrClosed
	}

	h.backend.locks.Unlock(h.key)
	return nil
}
