package backend

import "context"

// Backend is used as lifecycle entrypoint for every store implementation.
type Backend interface {
	// Name returns the identifier name defined for this backend.
	Name() string
	// Open is part of the lifecycle behaviour and gets called when mounting this backend.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
	Close(ctx context.Context) error
}

// Store is a flat, key-addressed object store without any notion of directories.
//
// An object is locked while at least one Handle for its key is open:
// DeleteObject and RenameObject of a locked key fail with ErrLocked.
type Store interface {
	Backend

	// CreateObject creates an empty object. Fails with ErrExists if key is present.
	CreateObject(ctx context.Context, key string) error
	// OpenObject opens an existing object. Fails with ErrNotFound.
	OpenObject(ctx context.Context, key string) (Handle, error)
	// DeleteObject removes an object. Fails with ErrNotFound or ErrLocked.
	DeleteObject(ctx context.Context, key string) error
	// RenameObject moves the content of oldKey to newKey.
	// Fails with ErrNotFound, ErrLocked if oldKey is open or ErrExists if newKey is present.
	RenameObject(ctx context.Context, oldKey, newKey string) error
	// ListKeys returns every key currently stored, in no particular order.
	ListKeys(ctx context.Context) ([]string, error)
}

// PrefixLister is implemented by stores able to filter keys server-side.
type PrefixLister interface {
	ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Handle is an open object. Positional reads past the end return a short
// count and no error; io.EOF is never returned.
// Every method fails with ErrClosed after Close.
type Handle interface {
	ID() string
	Key() string

	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)

	Length(ctx context.Context) (int64, error)
	SetLength(ctx context.Context, size int64) error

	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}
