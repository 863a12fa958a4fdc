package consul

import (
	"context"
	"sync/atomic"

	"github.com/mwantia/flatfs/backend"
)

type consulHandle struct {
	backend *ConsulBackend
	id      string
	key     string
	closed  atomic.Bool
}

func (h *consulHandle) ID() string {
	return h.id
}

func (h *consulHandle) Key() string {
	return h.key
}

func (h *consulHandle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	pair, err := h.backend.get(ctx, "read", h.key)
	if err != nil {
		return 0, err
	}
	if off >= int64(len(pair.Value)) {
		return 0, nil
	}

	return copy(p, pair.Value[off:]), nil
}

func (h *consulHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
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

func (h *consulHandle) Length(ctx context.Context) (int64, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	pair, err := h.backend.get(ctx, "length", h.key)
	if err != nil {
		return 0, err
	}

	return int64(len(pair.Value)), nil
}

func (h *consulHandle) SetLength(ctx context.Context, size int64) error {
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

// Flush is a no-op, every write is stored immediately.
func (h *consulHandle) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	return nil
}

func (h *consulHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return backend.ErrClosed
	}

	h.backend.locks.Unlock(h.key)
	return nil
}
