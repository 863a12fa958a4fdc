package local

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/mwantia/flatfs/backend"
)

type localHandle struct {
	backend *LocalBackend
	id      string
	key     string
	file    *os.File
	closed  atomic.Bool
}

func (h *localHandle) ID() string {
	return h.id
}

func (h *localHandle) Key() string {
	return h.key
}

func (h *localHandle) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	n, err := h.file.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		return n, nil
	}

	return n, translate("read", h.key, err)
}

func (h *localHandle) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}
	if err := backend.CheckOffset(off); err != nil {
		return 0, err
	}

	n, err := h.file.WriteAt(p, off)
	return n, translate("write", h.key, err)
}

func (h *localHandle) Length(ctx context.Context) (int64, error) {
	if h.closed.Load() {
		return 0, backend.ErrClosed
	}

	info, err := h.file.Stat()
	if err != nil {
		return 0, translate("stat", h.key, err)
	}

	return info.Size(), nil
}

func (h *localHandle) SetLength(ctx context.Context, size int64) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}
	if err := backend.CheckOffset(size); err != nil {
		return err
	}

	return translate("truncate", h.key, h.file.Truncate(size))
}

func (h *localHandle) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return backend.ErrClosed
	}

	return translate("sync", h.key, h.file.Sync())
}

func (h *localHandle) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return backend.ErrClosed
	}
	defer h.backend.locks.Unlock(h.key)

	return translate("close", h.key, h.file.Close())
}
