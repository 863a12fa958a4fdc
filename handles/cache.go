// Package handles shares one open backend handle between every logical open
// of the same path.
package handles

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
	"github.com/mwantia/flatfs/log"
)

type entry struct {
	handle backend.Handle
	refs   int
}

// Cache is a refcounted registry of open handles keyed by real path.
// The first Acquire of a path opens the object, the last Release closes it.
// Its mutex is held across backend calls, so the lifecycle of a handle is
// never raced by concurrent opens and closes of the same path.
type Cache struct {
	mu      sync.Mutex
	store   backend.Store
	log     *log.Logger
	entries map[string]*entry
}

func New(store backend.Store, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Discard()
	}

	return &Cache{
		store:   store,
		log:     logger,
		entries: make(map[string]*entry),
	}
}

// Acquire returns the shared handle of path, opening the object if no
// entry exists. Every successful call must be paired with one Release.
func (c *Cache) Acquire(ctx context.Context, path string) (backend.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[path]; exists {
		e.refs++
		c.log.Debug("Acquire: '%s' shared by %d", path, e.refs)
		return e.handle, nil
	}

	handle, err := c.store.OpenObject(ctx, data.EncodePath(path))
	if err != nil {
		return nil, err
	}

	c.entries[path] = &entry{
		handle: handle,
		refs:   1,
	}
	c.log.Debug("Acquire: opened handle '%s' for '%s'", handle.ID(), path)

	return handle, nil
}

// Retain adds a reference to an existing entry without touching the backend.
func (c *Cache) Retain(path string) (backend.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[path]
	if !exists {
		return nil, false
	}

	e.refs++
	return e.handle, true
}

// Release drops one reference of path and closes the handle with the last one.
func (c *Cache) Release(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[path]
	if !exists {
		return data.BadDescriptor("release", path)
	}

	e.refs--
	if e.refs > 0 {
		return nil
	}

	delete(c.entries, path)
	c.log.Debug("Release: closing handle '%s' for '%s'", e.handle.ID(), path)

	return e.handle.Close(ctx)
}

// Peek returns the handle of path without adding a reference.
func (c *Cache) Peek(path string) (backend.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[path]
	if !exists {
		return nil, false
	}

	return e.handle, true
}

// Refs returns the reference count of path, 0 if it is not open.
func (c *Cache) Refs(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[path]; exists {
		return e.refs
	}
	return 0
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Rekey runs move, which renames the backend object of oldPath, and carries
// an open entry of oldPath over to newPath with its reference count.
// Keys cannot be renamed while open, so the handle is closed before move
// and reopened at the new key afterwards.
//
// Without an entry for oldPath only move runs and Rekey returns nil, false.
// If move fails the entry is reopened at its old key.
func (c *Cache) Rekey(ctx context.Context, oldPath, newPath string, move func(ctx context.Context) error) (backend.Handle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[oldPath]
	if !exists {
		return nil, false, move(ctx)
	}
	if _, taken := c.entries[newPath]; taken && newPath != oldPath {
		return nil, false, data.Busy("rekey", newPath, nil)
	}

	if err := e.handle.Close(ctx); err != nil {
		return nil, false, err
	}
	delete(c.entries, oldPath)

	target := newPath
	moveErr := move(ctx)
	if moveErr != nil {
		target = oldPath
	}

	handle, err := c.store.OpenObject(ctx, data.EncodePath(target))
	if err != nil {
		// The entry is lost; every holder observes a closed handle
		return nil, false, fmt.Errorf("failed to reopen '%s': %w", target, err)
	}

	e.handle = handle
	c.entries[target] = e
	c.log.Debug("Rekey: '%s' -> '%s' with handle '%s' (%d refs)", oldPath, target, handle.ID(), e.refs)

	if moveErr != nil {
		return handle, false, moveErr
	}
	return handle, true, nil
}

// Evict force-closes the entry of path regardless of its reference count.
// Holders of the handle observe backend.ErrClosed afterwards.
func (c *Cache) Evict(ctx context.Context, path string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[path]
	if !exists {
		return false, nil
	}

	delete(c.entries, path)
	c.log.Debug("Evict: closing handle '%s' for '%s' with %d refs", e.handle.ID(), path, e.refs)

	return true, e.handle.Close(ctx)
}

// CloseAll closes every entry and returns the joined failures.
func (c *Cache) CloseAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs data.Errors
	for path, e := range c.entries {
		if err := e.handle.Close(ctx); err != nil {
			errs.Add(fmt.Errorf("failed to close '%s': %w", path, err))
		}
		delete(c.entries, path)
	}

	return errs.Errors()
}
