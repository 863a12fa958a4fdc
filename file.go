package flatfs

import (
	"context"
	"io"
	"sync"

	"github.com/mwantia/flatfs/data"
	"github.com/mwantia/flatfs/mount"
)

// File is an open file of the filesystem. It keeps a cursor on top of a
// mount stream and implements io.Reader, io.Writer, io.Seeker, io.ReaderAt,
// io.WriterAt and io.Closer. Every call is bound to the context it was opened with.
type File struct {
	mu     sync.Mutex
	ctx    context.Context
	fs     *FileSystem
	stream *mount.Stream
	path   string
	closed bool
}

func (f *File) Name() string {
	return f.path
}

// check must be called while holding the file lock.
func (f *File) check() error {
	if f.closed {
		return ErrClosed
	}

	select {
	case <-f.ctx.Done():
		return f.ctx.Err()
	default:
	}

	return nil
}

// Read reads up to len(p) bytes at the cursor and advances it.
// Returns io.EOF once the cursor reached the end of the object.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return 0, err
	}

	n, err := f.stream.Read(f.ctx, p, f.stream.Position())
	if n > 0 {
		if _, err := f.stream.Llseek(f.ctx, int64(n), io.SeekCurrent); err != nil {
			return n, err
		}
	}
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}

	return n, nil
}

// ReadAt reads len(p) bytes at off without moving the cursor.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return 0, err
	}

	n, err := f.stream.Read(f.ctx, p, off)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Write writes p at the cursor, or at the end of the object if the file
// was opened with AccessModeAppend, and advances the cursor.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return 0, err
	}

	position := f.stream.Position()
	if f.stream.Flags().HasAppend() {
		end, err := f.stream.Llseek(f.ctx, 0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		position = end
	}

	n, err := f.stream.Write(f.ctx, p, position)
	if _, serr := f.stream.Llseek(f.ctx, position+int64(n), io.SeekStart); serr != nil && err == nil {
		err = serr
	}

	return n, err
}

// WriteAt writes p at off without moving the cursor.
// It is not allowed on files opened with AccessModeAppend.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return 0, err
	}
	if f.stream.Flags().HasAppend() {
		return 0, data.InvalidArgument("writeat", f.path, nil)
	}

	return f.stream.Write(f.ctx, p, off)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return 0, err
	}

	return f.stream.Llseek(f.ctx, offset, whence)
}

// Truncate changes the size of the object. The cursor is left untouched.
func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return err
	}
	if !f.stream.Flags().CanWrite() {
		return data.BadDescriptor("truncate", f.path)
	}

	return f.fs.mount.Setattr(f.ctx, f.stream.Node(), data.WithSize(size))
}

// Sync flushes buffered writes to the backend.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return err
	}

	return f.stream.Fsync(f.ctx)
}

func (f *File) Stat() (*FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check(); err != nil {
		return nil, err
	}

	node := f.stream.Node()
	attr, err := f.fs.mount.Getattr(f.ctx, node)
	if err != nil {
		return nil, err
	}

	return newFileInfo(node.Name(), f.path, attr), nil
}

// Close closes the stream. Closing a file twice returns ErrClosed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	f.closed = true

	// The handle is released even if the context is already cancelled
	return f.stream.Close(context.WithoutCancel(f.ctx))
}
