package postgres

import (
	"context"
	"sync/atomic"

	"github.com/mwantia/flatfs/backend"
)

type postgresHandle struct {
	backend *PostgresBackend
	id      string
	key     string
	closed  atomic.Bool
}

func (h *postgresHandle) ID() string {
	return h.id
}

func (h *postgresHandle) Key() string {
	return h.key
}

func (h *postgresHandle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	var chunk []byte
	err := h.backend.pool.QueryRow(ctx,
		"SELECT substring(content FROM $1::int FOR $2::int) FROM flatfs_objects WHERE key = $3",
		off+1, len(p), h.key).Scan(&chunk)
	if err != nil {
		return 0, translate("read", h.key, err)
	}

	return copy(p, chunk), nil
}

func (h *postgresHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
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

func (h *postgresHandle) Length(ctx context.Context) (int64, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	var length int64
	err := h.backend.pool.QueryRow(ctx,
		"SELECT octet_length(content) FROM flatfs_objects WHERE key = $1", h.key).Scan(&length)
	if err != nil {
		return 0, translate("length", h.key, err)
	}

	return length, nil
}

func (h *postgresHandle) SetLength(ctx context.Context, size int64) error {
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

// Flush is a no-op, every write is committed with its transaction.
func (h *postgresHandle) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	return nil
}

func (h *postgresHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return backend.ErrClosed
	}

	h.backend.locks.Unlock(h.key)
	return nil
}
