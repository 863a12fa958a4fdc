package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

func (pb *PostgresBackend) exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := pb.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM flatfs_objects WHERE key = $1)", key).Scan(&exists)
	if err != nil {
		return false, translate("exists", key, err)
	}

	return exists, nil
}

func (pb *PostgresBackend) CreateObject(ctx context.Context, key string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	tag, err := pb.pool.Exec(ctx,
		"INSERT INTO flatfs_objects (key, modify_time) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING",
		key, time.Now().Unix())
	if err != nil {
		return translate("create", key, err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrExists
	}

	return nil
}

func (pb *PostgresBackend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	exists, err := pb.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, backend.ErrNotFound
	}

	pb.locks.Lock(key)
	return &postgresHandle{
		backend: pb,
		id:      data.NewID(),
		key:     key,
	}, nil
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if pb.locks.Locked(key) {
		exists, err := pb.exists(ctx, key)
		if err != nil {
			return err
		}
		if !exists {
			return backend.ErrNotFound
		}
		return backend.ErrLocked
	}

	tag, err := pb.pool.Exec(ctx, "DELETE FROM flatfs_objects WHERE key = $1", key)
	if err != nil {
		return translate("delete", key, err)
	}
	if tag.RowsAffected() == 0 {
		return backend.ErrNotFound
	}

	return nil
}

func (pb *PostgresBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	exists, err := pb.exists(ctx, oldKey)
	if err != nil {
		return err
	}
	if !exists {
		return backend.ErrNotFound
	}
	if pb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}

	// A unique violation on the primary key reports an existing destination
	_, err = pb.pool.Exec(ctx,
		"UPDATE flatfs_objects SET key = $1, modify_time = $2 WHERE key = $3",
		newKey, time.Now().Unix(), oldKey)
	return translate("rename", oldKey, err)
}

func (pb *PostgresBackend) ListKeys(ctx context.Context) ([]string, error) {
	return pb.ListKeysWithPrefix(ctx, "")
}

func (pb *PostgresBackend) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	rows, err := pb.pool.Query(ctx,
		"SELECT key FROM flatfs_objects WHERE starts_with(key, $1) ORDER BY key", prefix)
	if err != nil {
		return nil, translate("list", prefix, err)
	}

	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translate("list", prefix, err)
	}

	return keys, nil
}

// update rewrites the content of key while holding its row lock.
func (pb *PostgresBackend) update(ctx context.Context, op, key string, modify func([]byte) []byte) error {
	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return translate(op, key, err)
	}
	defer tx.Rollback(ctx)

	var content []byte
	err = tx.QueryRow(ctx,
		"SELECT content FROM flatfs_objects WHERE key = $1 FOR UPDATE", key).Scan(&content)
	if err != nil {
		return translate(op, key, err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE flatfs_objects SET content = $1, modify_time = $2 WHERE key = $3",
		modify(content), time.Now().Unix(), key)
	if err != nil {
		return translate(op, key, err)
	}

	return translate(op, key, tx.Commit(ctx))
}
