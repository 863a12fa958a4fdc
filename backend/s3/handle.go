package s3

import (
	"context"
	"sync"

	"github.com/mwantia/flatfs/backend"
)

type s3Handle struct {
	mu      sync.Mutex
	backend *S3Backend
	id      string
	key     string
	content []byte
	dirty   bool
	closed  bool
}

func (h *s3Handle) ID() string {
	return h.id
}

func (h *s3Handle) Key() string {
	return h.key
}

func (h *s3Handle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, backend.ErrClosed
	}
	if off >= int64(len(h.content)) {
		return 0, nil
	}

	return copy(p, h.content[off:]), nil
}

func (h *s3Handle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, backend.ErrClosed
	}

	end := off + int64(len(p))
	if end > int64(len(h.content)) {
		buffer := make([]byte, end)
		copy(buffer, h.content)
		h.content = buffer
	}

	h.dirty = true
	return copy(h.content[off:], p), nil
}

func (h *s3Handle) Length(ctx context.Context) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, backend.ErrClosed
	}

	return int64(len(h.content)), nil
}

func (h *s3Handle) SetLength(ctx context.Context, size int64) error {
	if err := backend.CheckOffset(size); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return backend.ErrClosed
	}

	if size <= int64(len(h.content)) {
		h.content = h.content[:size:size]
	} else {
		buffer := make([]byte, size)
		copy(buffer, h.content)
		h.content = buffer
	}

	h.dirty = true
	return nil
}

// Flush uploads the buffered content if it was modified.
func (h *s3Handle) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return backend.ErrClosed
	}

	return h.flush(ctx)
}

func (h *s3Handle) flush(ctx context.Context) error {
	if !h.dirty {
		return nil
	}

	if err := h.backend.put(ctx, h.key, h.content); err != nil {
		return err
	}

	h.dirty = false
	return nil
}

func (h *s3Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return backend.ErrClosed
	}

	h.closed = true
	defer h.backend.locks.Unlock(h.key)

	return h.flush(ctx)
}
