package memory

import (
	"context"
	"sync"

	"github.com/mwantia/flatfs/backend"
	"github.com/tidwall/btree"
)

type object struct {
	content []byte
}

// MemoryBackend keeps every object in process memory. Keys are held in an
// ordered B-tree so prefix scans only visit matching keys.
type MemoryBackend struct {
	mu sync.RWMutex

	objects *btree.Map[string, *object]
	locks   *backend.LockTable
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: btree.NewMap[string, *object](0),
		locks:   backend.NewLockTable(),
	}
}

// Name returns the identifier name defined for this backend.
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
// All objects are dropped.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.objects.Clear()
	return nil
}
