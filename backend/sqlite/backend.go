package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/mwantia/flatfs/backend"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores every object as one row of the flatfs_objects table.
// The dbPath can be ":memory:" for an in-memory database or a file path.
type SQLiteBackend struct {
	mu    sync.RWMutex
	db    *sql.DB
	locks *backend.LockTable
}

// NewSQLiteBackend creates a new SQLite-backed store and initializes its schema.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if strings.Contains(dbPath, ":memory:") {
		// Every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	sb := &SQLiteBackend{
		db:    db,
		locks: backend.NewLockTable(),
	}

	if err := sb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return sb, nil
}

func (sb *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS flatfs_objects (
		key TEXT PRIMARY KEY,
		content BLOB,
		modify_time INTEGER NOT NULL
	);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend.
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err := sb.db.PingContext(ctx); err != nil {
		return backend.NewError("open", "", "sqlite", err)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

func translate(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case err == sql.ErrNoRows:
		return backend.ErrNotFound
	default:
		return backend.NewError(op, key, "sqlite", err)
	}
}
