package memory

import (
	"context"
	"sync/atomic"

	"github.com/mwantia/flatfs/backend"
)

type memoryHandle struct {
	backend *MemoryBackend
	id      string
	key     string
	closed  atomic.Bool
}

func (h *memoryHandle) ID() string {
	return h.id
}

func (h *memoryHandle) Key() string {
	return h.key
}

// object must be called while holding the backend lock.
func (h *memoryHandle) object() (*object, error) {
	if h.closed.Load() {
		return nil, backend.ErrClosed
	}

	obj, exists := h.backend.objects.Get(h.key)
	if !exists {
		return nil, backend.ErrNotFound
	}

	return obj, nil
}

func (h *memoryHandle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	obj, err := h.object()
	if err != nil {
		return 0, err
	}

	if off >= int64(len(obj.content)) {
		return 0, nil
	}

	return copy(p, obj.content[off:]), nil
}

func (h *memoryHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()

	obj, err := h.object()
	if err != nil {
		return 0, err
	}

	end := off + int64(len(p))
	if end > int64(len(obj.content)) {
		buffer := make([]byte, end)
		copy(buffer, obj.content)
		obj.content = buffer
	}

	return copy(obj.content[off:], p), nil
}

func (h *memoryHandle) Length(ctx context.Context) (int64, error) {
	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()

	obj, err := h.object()
	if err != nil {
		return 0, err
	}

	return int64(len(obj.content)), nil
}

func (h *memoryHandle) SetLength(ctx context.Context, size int64) error {
	if err := backend.CheckOffset(size); err != nil {
		return err
	}

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()

	obj, err := h.object()
	if err != nil {
		return err
	}

	if size <= int64(len(obj.content)) {
		obj.content = obj.content[:size:size]
		return nil
	}

	buffer := make([]byte, size)
	copy(buffer, obj.content)
	obj.content = buffer
	return nil
}

func (h *memoryHandle) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	return nil
}

func (h *memoryHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return backend.ErrClosed
	}

	h.backend.locks.Unlock(h.key)
	return nil
}
