package mount

import (
	"context"
	"io"
	"sync"
	"syscall"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// Stream is a file descriptor-like view of a node. Reads and writes take an
// explicit position; the cursor is only moved by Llseek.
// Every stream of the same file shares one backend handle.
type Stream struct {
	mu sync.Mutex

	mnt      *Mount
	id       string
	node     *Node
	flags    data.AccessMode
	position int64
	handle   backend.Handle
}

// NewStream creates a closed stream of node. Call Open before any I/O.
func (m *Mount) NewStream(node *Node, flags data.AccessMode) *Stream {
	return &Stream{
		mnt:   m,
		id:    data.NewID(),
		node:  node,
		flags: flags,
	}
}

// OpenStream creates and opens a stream of node.
func (m *Mount) OpenStream(ctx context.Context, node *Node, flags data.AccessMode) (*Stream, error) {
	stream := m.NewStream(node, flags)
	if err := stream.Open(ctx); err != nil {
		return nil, err
	}

	return stream, nil
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) Node() *Node {
	return s.node
}

func (s *Stream) Flags() data.AccessMode {
	return s.flags
}

// Position returns the cursor set by the last Llseek.
func (s *Stream) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.position
}

// current returns the attached handle or fails with a bad descriptor.
func (s *Stream) current(op string) (backend.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil, data.BadDescriptor(op, s.id)
	}

	return s.handle, nil
}

// Open attaches the shared handle of the node, opening it through the
// handle cache if no other stream holds it yet.
func (s *Stream) Open(ctx context.Context) error {
	m := s.mnt

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mounted {
		return data.NewError("open", s.id, data.ErrNotMounted, nil)
	}

	path := s.node.realPath()
	if !s.node.Mode().IsRegular() {
		m.log.Error("Open: only regular files can be opened, '%s' is %s", path, s.node.Mode())
		return data.Unsupported("open", path, syscall.ENOSYS)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return nil
	}

	s.node.mu.Lock()
	defer s.node.mu.Unlock()

	var handle backend.Handle
	if s.node.handle != nil {
		if retained, ok := m.cache.Retain(path); ok {
			handle = retained
		}
	}
	if handle == nil {
		acquired, err := m.cache.Acquire(ctx, path)
		if err != nil {
			m.log.Error("Open: failed to acquire handle for '%s': %v", path, err)
			return translate("open", path, err)
		}
		handle = acquired
	}

	s.handle = handle
	s.node.handle = handle
	s.node.refcount++
	m.streams[s.id] = s

	m.log.Debug("Open: stream '%s' for '%s' (%d open)", s.id, path, s.node.refcount)
	return nil
}

// Close releases the shared handle; the last stream of a file closes it.
func (s *Stream) Close(ctx context.Context) error {
	m := s.mnt

	m.mu.Lock()
	defer m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.node.realPath()
	if s.handle == nil {
		return data.BadDescriptor("close", path)
	}

	s.node.mu.Lock()
	defer s.node.mu.Unlock()

	s.handle = nil
	delete(m.streams, s.id)

	s.node.refcount--
	if s.node.refcount <= 0 {
		s.node.refcount = 0
		s.node.handle = nil
	}

	m.log.Debug("Close: stream '%s' for '%s' (%d open)", s.id, path, s.node.refcount)
	return translate("close", path, m.cache.Release(ctx, path))
}

// Read reads into p at pos. Reads past the end return a short count and no error.
func (s *Stream) Read(ctx context.Context, p []byte, pos int64) (int, error) {
	handle, err := s.current("read")
	if err != nil {
		return 0, err
	}
	if !s.flags.CanRead() {
		return 0, data.BadDescriptor("read", s.id)
	}
	if pos < 0 {
		return 0, data.InvalidArgument("read", s.id, nil)
	}

	n, err := handle.ReadAt(ctx, p, pos)
	if err != nil {
		s.mnt.log.Error("Read: failed to read %d bytes at %d: %v", len(p), pos, err)
		return n, translate("read", s.id, err)
	}

	return n, nil
}

// Write writes p at pos and updates the timestamp of the node.
func (s *Stream) Write(ctx context.Context, p []byte, pos int64) (int, error) {
	handle, err := s.current("write")
	if err != nil {
		return 0, err
	}
	if !s.flags.CanWrite() {
		return 0, data.BadDescriptor("write", s.id)
	}
	if pos < 0 {
		return 0, data.InvalidArgument("write", s.id, nil)
	}

	s.node.touch()

	n, err := handle.WriteAt(ctx, p, pos)
	if err != nil {
		s.mnt.log.Error("Write: failed to write %d bytes at %d: %v", len(p), pos, err)
		return n, translate("write", s.id, err)
	}

	return n, nil
}

// Llseek moves the cursor relative to the start (io.SeekStart), the cursor
// (io.SeekCurrent) or the end of the object (io.SeekEnd).
func (s *Stream) Llseek(ctx context.Context, offset int64, whence int) (int64, error) {
	position := offset
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		position += s.Position()
	case io.SeekEnd:
		handle, err := s.current("llseek")
		if err != nil {
			return 0, err
		}
		length, err := handle.Length(ctx)
		if err != nil {
			return 0, translate("llseek", s.id, err)
		}
		position += length
	default:
		return 0, data.InvalidArgument("llseek", s.id, nil)
	}

	if position < 0 {
		return 0, data.InvalidArgument("llseek", s.id, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.position = position
	return position, nil
}

// Fsync flushes the shared handle.
func (s *Stream) Fsync(ctx context.Context) error {
	handle, err := s.current("fsync")
	if err != nil {
		return err
	}

	return translate("fsync", s.id, handle.Flush(ctx))
}

// Mmap always fails: memory mapped I/O is not supported.
func (s *Stream) Mmap(ctx context.Context, length int, offset int64) ([]byte, error) {
	return nil, data.Unsupported("mmap", s.id, syscall.EOPNOTSUPP)
}

// Msync always fails: memory mapped I/O is not supported.
func (s *Stream) Msync(ctx context.Context, buffer []byte) error {
	return data.Unsupported("msync", s.id, syscall.EOPNOTSUPP)
}

// Munmap always fails: memory mapped I/O is not supported.
func (s *Stream) Munmap(ctx context.Context) error {
	return data.Unsupported("munmap", s.id, syscall.EOPNOTSUPP)
}
