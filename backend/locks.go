package backend

import "sync"

// LockTable counts open handles per key so every store refuses to delete or
// rename an object while it is open.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]int
}

func NewLockTable() *LockTable {
	return &LockTable{
		locks: make(map[string]int),
	}
}

// Lock registers one more open handle for key.
func (lt *LockTable) Lock(key string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.locks[key]++
}

// Unlock drops one open handle for key.
func (lt *LockTable) Unlock(key string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if lt.locks[key] <= 1 {
		delete(lt.locks, key)
		return
	}
	lt.locks[key]--
}

func (lt *LockTable) Locked(key string) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return lt.locks[key] > 0
}

// Count returns the number of open handles for key.
func (lt *LockTable) Count(key string) int {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return lt.locks[key]
}
