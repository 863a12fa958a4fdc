package local

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

func (lb *LocalBackend) CreateObject(ctx context.Context, key string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	path, err := lb.resolvePath("create", key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return translate("create", key, err)
	}

	return translate("create", key, f.Close())
}

func (lb *LocalBackend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	path, err := lb.resolvePath("open", key)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, translate("open", key, err)
	}

	lb.locks.Lock(key)
	return &localHandle{
		backend: lb,
		id:      data.NewID(),
		key:     key,
		file:    f,
	}, nil
}

func (lb *LocalBackend) DeleteObject(ctx context.Context, key string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	path, err := lb.resolvePath("delete", key)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		return translate("delete", key, err)
	}
	if lb.locks.Locked(key) {
		return backend.ErrLocked
	}

	return translate("delete", key, os.Remove(path))
}

func (lb *LocalBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	oldPath, err := lb.resolvePath("rename", oldKey)
	if err != nil {
		return err
	}
	newPath, err := lb.resolvePath("rename", newKey)
	if err != nil {
		return err
	}

	if _, err := os.Stat(oldPath); err != nil {
		return translate("rename", oldKey, err)
	}
	if lb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}

	_, err = os.Stat(newPath)
	if err == nil {
		return backend.ErrExists
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return translate("rename", newKey, err)
	}

	return translate("rename", oldKey, os.Rename(oldPath, newPath))
}

func (lb *LocalBackend) ListKeys(ctx context.Context) ([]string, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	entries, err := os.ReadDir(lb.path)
	if err != nil {
		return nil, translate("list", lb.path, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			keys = append(keys, entry.Name())
		}
	}

	return keys, nil
}
