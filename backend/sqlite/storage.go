package sqlite

import (
	"context"
	"time"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// exists must be called while holding the backend lock.
func (sb *SQLiteBackend) exists(ctx context.Context, key string) (bool, error) {
	var count int
	err := sb.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM flatfs_objects WHERE key = ?", key).Scan(&count)
	if err != nil {
		return false, translate("exists", key, err)
	}

	return count > 0, nil
}

func (sb *SQLiteBackend) CreateObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return backend.ErrExists
	}

	_, err = sb.db.ExecContext(ctx,
		"INSERT INTO flatfs_objects (key, content, modify_time) VALUES (?, zeroblob(0), ?)",
		key, time.Now().Unix())
	return translate("create", key, err)
}

func (sb *SQLiteBackend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	exists, err := sb.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, backend.ErrNotFound
	}

	sb.locks.Lock(key)
	return &sqliteHandle{
		backend: sb,
		id:      data.NewID(),
		key:     key,
	}, nil
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return backend.ErrNotFound
	}
	if sb.locks.Locked(key) {
		return backend.ErrLocked
	}

	_, err = sb.db.ExecContext(ctx, "DELETE FROM flatfs_objects WHERE key = ?", key)
	return translate("delete", key, err)
}

func (sb *SQLiteBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, oldKey)
	if err != nil {
		return err
	}
	if !exists {
		return backend.ErrNotFound
	}
	if sb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}

	exists, err = sb.exists(ctx, newKey)
	if err != nil {
		return err
	}
	if exists {
		return backend.ErrExists
	}

	_, err = sb.db.ExecContext(ctx,
		"UPDATE flatfs_objects SET key = ?, modify_time = ? WHERE key = ?",
		newKey, time.Now().Unix(), oldKey)
	return translate("rename", oldKey, err)
}

func (sb *SQLiteBackend) ListKeys(ctx context.Context) ([]string, error) {
	return sb.ListKeysWithPrefix(ctx, "")
}

func (sb *SQLiteBackend) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	rows, err := sb.db.QueryContext(ctx,
		"SELECT key FROM flatfs_objects WHERE substr(key, 1, ?) = ? ORDER BY key",
		len(prefix), prefix)
	if err != nil {
		return nil, translate("list", prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, translate("list", prefix, err)
		}
		keys = append(keys, key)
	}

	return keys, translate("list", prefix, rows.Err())
}

// update rewrites the content of key inside a single transaction.
func (sb *SQLiteBackend) update(ctx context.Context, op, key string, modify func([]byte) []byte) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(op, key, err)
	}
	defer tx.Rollback()

	var content []byte
	err = tx.QueryRowContext(ctx,
		"SELECT content FROM flatfs_objects WHERE key = ?", key).Scan(&content)
	if err != nil {
		return translate(op, key, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE flatfs_objects SET content = ?, modify_time = ? WHERE key = ?",
		modify(content), time.Now().Unix(), key)
	if err != nil {
		return translate(op, key, err)
	}

	return translate(op, key, tx.Commit())
}
