package memory

import (
	"context"
	"strings"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

func (mb *MemoryBackend) CreateObject(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.objects.Get(key); exists {
		return backend.ErrExists
	}

	mb.objects.Set(key, &object{})
	return nil
}

func (mb *MemoryBackend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if _, exists := mb.objects.Get(key); !exists {
		return nil, backend.ErrNotFound
	}

	mb.locks.Lock(key)
	return &memoryHandle{
		backend: mb,
		id:      data.NewID(),
		key:     key,
	}, nil
}

func (mb *MemoryBackend) DeleteObject(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.objects.Get(key); !exists {
		return backend.ErrNotFound
	}
	if mb.locks.Locked(key) {
		return backend.ErrLocked
	}

	mb.objects.Delete(key)
	return nil
}

func (mb *MemoryBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(oldKey)
	if !exists {
		return backend.ErrNotFound
	}
	if mb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}
	if _, exists := mb.objects.Get(newKey); exists {
		return backend.ErrExists
	}

	mb.objects.Delete(oldKey)
	mb.objects.Set(newKey, obj)
	return nil
}

func (mb *MemoryBackend) ListKeys(ctx context.Context) ([]string, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	return mb.objects.Keys(), nil
}

// ListKeysWithPrefix walks the B-tree starting at prefix and stops at the
// first key outside of it.
func (mb *MemoryBackend) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	keys := make([]string, 0)
	mb.objects.Ascend(prefix, func(key string, _ *object) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		keys = append(keys, key)
		return true
	})

	return keys, nil
}
