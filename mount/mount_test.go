package mount

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/backend/local"
	"github.com/mwantia/flatfs/backend/memory"
	"github.com/mwantia/flatfs/backend/sqlite"
	"github.com/mwantia/flatfs/data"
	"github.com/mwantia/flatfs/log"
)

// TestStoreFactory creates a new store instance for testing.
type TestStoreFactory func(t *testing.T) (backend.Store, error)

func GetTestStoreFactories() map[string]TestStoreFactory {
	return map[string]TestStoreFactory{
		"memory": func(t *testing.T) (backend.Store, error) {
			return memory.NewMemoryBackend(), nil
		},
		"local": func(t *testing.T) (backend.Store, error) {
			return local.NewLocalBackend(t.TempDir()), nil
		},
		"sqlite": func(t *testing.T) (backend.Store, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
	}
}

// countingStore counts the closes of handles opened through it.
type countingStore struct {
	backend.Store
	closes atomic.Int32
}

type countingHandle struct {
	backend.Handle
	store *countingStore
}

func (s *countingStore) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	h, err := s.Store.OpenObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &countingHandle{Handle: h, store: s}, nil
}

func (h *countingHandle) Close(ctx context.Context) error {
	h.store.closes.Add(1)
	return h.Handle.Close(ctx)
}

var errRenameFailed = errors.New("rename failed")

// failingRenameStore fails the n-th call of RenameObject.
type failingRenameStore struct {
	backend.Store
	failOn int32
	calls  atomic.Int32
}

func (s *failingRenameStore) RenameObject(ctx context.Context, oldKey, newKey string) error {
	if s.calls.Add(1) == s.failOn {
		return errRenameFailed
	}
	return s.Store.RenameObject(ctx, oldKey, newKey)
}

func newTestMount(t *testing.T, store backend.Store, opts ...MountOption) *Mount {
	t.Helper()

	m, err := NewMount(store, opts...)
	if err != nil {
		t.Fatalf("NewMount failed: %v", err)
	}
	if err := m.Mount(t.Context()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	t.Cleanup(func() {
		m.Unmount(context.Background(), true)
	})

	return m
}

// forEachStore runs fn against a mount over every store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, m *Mount)) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			store, err := factory(t)
			if err != nil {
				t.Fatalf("Store init failed: %v", err)
			}
			fn(t, newTestMount(t, store))
		})
	}
}

func mknod(t *testing.T, m *Mount, parent *Node, name string, mode data.FileMode) *Node {
	t.Helper()

	node, err := m.Mknod(t.Context(), parent, name, mode)
	if err != nil {
		t.Fatalf("Mknod(%s) failed: %v", name, err)
	}
	return node
}

func writeFile(t *testing.T, m *Mount, node *Node, content string) {
	t.Helper()
	ctx := t.Context()

	s, err := m.OpenStream(ctx, node, data.AccessModeReadWrite)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	if _, err := s.Write(ctx, []byte(content), 0); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func readAll(t *testing.T, s *Stream) string {
	t.Helper()

	buffer := make([]byte, 256)
	n, err := s.Read(t.Context(), buffer, 0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return string(buffer[:n])
}

func TestMount_ReaddirCompleteness(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Mount) {
		ctx := t.Context()
		root := m.Root()

		dir := mknod(t, m, root, "dir", data.ModeDir|0o755)
		for _, name := range []string{"c", "a", "b"} {
			mknod(t, m, dir, name, 0o644)
		}
		// A sibling sharing the name prefix must not leak into the listing
		dirx := mknod(t, m, root, "dirx", data.ModeDir|0o755)
		mknod(t, m, dirx, "z", 0o644)

		names, err := m.Readdir(ctx, dir)
		if err != nil {
			t.Fatalf("Readdir failed: %v", err)
		}
		if want := []string{"a", "b", "c"}; !slices.Equal(names, want) {
			t.Errorf("Readdir = %v, want %v", names, want)
		}

		names, err = m.Readdir(ctx, root)
		if err != nil {
			t.Fatalf("Readdir(root) failed: %v", err)
		}
		if want := []string{"dir", "dirx"}; !slices.Equal(names, want) {
			t.Errorf("Readdir(root) = %v, want %v", names, want)
		}
	})
}

func TestMount_LookupInference(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryBackend()
	for _, path := range []string{"_file", "_dir_nested_deep", "_dir_other"} {
		if err := store.CreateObject(ctx, data.EncodePath(path)); err != nil {
			t.Fatalf("CreateObject failed: %v", err)
		}
	}
	m := newTestMount(t, store)

	file, err := m.Lookup(ctx, m.Root(), "file")
	if err != nil || !file.Mode().IsRegular() {
		t.Fatalf("Lookup(file) = %v, %v; want regular file", file, err)
	}

	dir, err := m.Lookup(ctx, m.Root(), "dir")
	if err != nil || !dir.IsDir() {
		t.Fatalf("Lookup(dir) = %v, %v; want directory", dir, err)
	}

	nested, err := m.Lookup(ctx, dir, "nested")
	if err != nil || !nested.IsDir() {
		t.Fatalf("Lookup(nested) = %v, %v; want directory", nested, err)
	}
	if got := m.RealPath(nested); got != "_dir_nested" {
		t.Errorf("RealPath = %q, want _dir_nested", got)
	}

	if _, err := m.Lookup(ctx, m.Root(), "di"); !errors.Is(err, data.ErrNotExist) {
		t.Errorf("Lookup of a name prefix: expected ErrNotExist, got %v", err)
	}
	if _, err := m.Lookup(ctx, m.Root(), "a_b"); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Lookup with delimiter: expected ErrInvalid, got %v", err)
	}
	if _, err := m.Lookup(ctx, file, "x"); !errors.Is(err, data.ErrNotDirectory) {
		t.Errorf("Lookup below a file: expected ErrNotDirectory, got %v", err)
	}

	again, err := m.Lookup(ctx, m.Root(), "file")
	if err != nil || again != file {
		t.Errorf("second Lookup returned a different node")
	}
}

func TestMount_Mknod(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend())
	root := m.Root()

	mknod(t, m, root, "file", 0o644)

	if _, err := m.Mknod(ctx, root, "file", 0o644); !errors.Is(err, data.ErrExist) {
		t.Errorf("Mknod of existing file: expected ErrExist, got %v", err)
	}
	if _, err := m.Mknod(ctx, root, "link", data.ModeSymlink|0o777); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Mknod of symlink: expected ErrInvalid, got %v", err)
	}
	for _, name := range []string{"", ".", "..", "a_b", "a/b"} {
		if _, err := m.Mknod(ctx, root, name, 0o644); !errors.Is(err, data.ErrInvalid) {
			t.Errorf("Mknod(%q): expected ErrInvalid, got %v", name, err)
		}
	}

	// Directories are not persisted
	mknod(t, m, root, "empty", data.ModeDir|0o755)
	keys, err := m.Store().ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != data.EncodePath("_file") {
		t.Errorf("backend keys = %v, want only the file", keys)
	}
}

func TestMount_RefcountCorrectness(t *testing.T) {
	ctx := t.Context()
	store := &countingStore{Store: memory.NewMemoryBackend()}
	m := newTestMount(t, store)

	node := mknod(t, m, m.Root(), "file", 0o644)

	const n = 4
	streams := make([]*Stream, 0, n)
	for i := 0; i < n; i++ {
		s, err := m.OpenStream(ctx, node, data.AccessModeRead)
		if err != nil {
			t.Fatalf("OpenStream #%d failed: %v", i, err)
		}
		streams = append(streams, s)
	}

	if got := m.Cache().Refs("_file"); got != n {
		t.Errorf("cache refs = %d, want %d", got, n)
	}
	if node.Refcount() != n {
		t.Errorf("node refcount = %d, want %d", node.Refcount(), n)
	}

	for i, s := range streams {
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close #%d failed: %v", i, err)
		}
		if i < n-1 && store.closes.Load() != 0 {
			t.Fatalf("handle closed after %d of %d closes", i+1, n)
		}
	}

	if got := store.closes.Load(); got != 1 {
		t.Errorf("backend closes = %d, want 1", got)
	}
	if m.Cache().Len() != 0 || m.Streams() != 0 {
		t.Errorf("entries left: cache=%d streams=%d", m.Cache().Len(), m.Streams())
	}

	if err := streams[0].Close(ctx); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("second Close: expected ErrBadDescriptor, got %v", err)
	}
}

func TestMount_BusyOnUnlink(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Mount) {
		ctx := t.Context()
		node := mknod(t, m, m.Root(), "file", 0o644)
		writeFile(t, m, node, "intact")

		s, err := m.OpenStream(ctx, node, data.AccessModeRead)
		if err != nil {
			t.Fatalf("OpenStream failed: %v", err)
		}

		err = m.Unlink(ctx, m.Root(), "file")
		if !errors.Is(err, data.ErrBusy) || data.Errno(err) != syscall.EBUSY {
			t.Fatalf("Unlink of open file: expected ErrBusy, got %v", err)
		}
		if got := readAll(t, s); got != "intact" {
			t.Errorf("content after refused unlink = %q", got)
		}

		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := m.Unlink(ctx, m.Root(), "file"); err != nil {
			t.Fatalf("Unlink failed: %v", err)
		}
		if _, err := m.Lookup(ctx, m.Root(), "file"); !errors.Is(err, data.ErrNotExist) {
			t.Errorf("Lookup after unlink: expected ErrNotExist, got %v", err)
		}
		if err := m.Unlink(ctx, m.Root(), "file"); !errors.Is(err, data.ErrNotExist) {
			t.Errorf("second Unlink: expected ErrNotExist, got %v", err)
		}
	})
}

func TestMount_RenameThrough(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Mount) {
		ctx := t.Context()
		root := m.Root()

		src := mknod(t, m, root, "src", data.ModeDir|0o755)
		dst := mknod(t, m, root, "dst", data.ModeDir|0o755)
		node := mknod(t, m, src, "file", 0o644)

		s, err := m.OpenStream(ctx, node, data.AccessModeReadWrite)
		if err != nil {
			t.Fatalf("OpenStream failed: %v", err)
		}
		defer s.Close(ctx)

		if _, err := s.Write(ctx, []byte("before"), 0); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		if err := m.Rename(ctx, node, dst, "x"); err != nil {
			t.Fatalf("Rename failed: %v", err)
		}

		if _, err := s.Write(ctx, []byte("-after"), 6); err != nil {
			t.Fatalf("Write after rename failed: %v", err)
		}
		if got := readAll(t, s); got != "before-after" {
			t.Errorf("content = %q, want before-after", got)
		}

		if err := s.Fsync(ctx); err != nil {
			t.Fatalf("Fsync failed: %v", err)
		}

		// The stream writes against the object stored under the new key
		handle, ok := m.Cache().Peek("_dst_x")
		if !ok || handle.Key() != data.EncodePath("_dst_x") {
			t.Fatalf("cache entry not moved to the new path")
		}
		if _, ok := m.Cache().Peek("_src_file"); ok {
			t.Errorf("cache entry left at the old path")
		}

		if _, err := m.Lookup(ctx, src, "file"); !errors.Is(err, data.ErrNotExist) {
			t.Errorf("Lookup at old location: expected ErrNotExist, got %v", err)
		}
		moved, err := m.Lookup(ctx, dst, "x")
		if err != nil || moved != node {
			t.Errorf("Lookup at new location = %v, %v", moved, err)
		}
	})
}

func TestMount_RenameDirectory(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend())
	root := m.Root()

	dir := mknod(t, m, root, "dir", data.ModeDir|0o755)
	sub := mknod(t, m, dir, "sub", data.ModeDir|0o755)
	file := mknod(t, m, sub, "file", 0o644)
	mknod(t, m, dir, "other", 0o644)

	s, err := m.OpenStream(ctx, file, data.AccessModeReadWrite)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer s.Close(ctx)

	if err := m.Rename(ctx, dir, root, "moved"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if _, err := s.Write(ctx, []byte("still open"), 0); err != nil {
		t.Fatalf("Write after rename failed: %v", err)
	}

	keys, err := backend.ListByPrefix(ctx, m.Store(), "")
	if err != nil {
		t.Fatalf("ListByPrefix failed: %v", err)
	}
	want := []string{data.EncodePath("_moved_other"), data.EncodePath("_moved_sub_file")}
	slices.Sort(want)
	if !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	if got := m.RealPath(file); got != "_moved_sub_file" {
		t.Errorf("RealPath = %q", got)
	}
	if err := m.Rename(ctx, sub, file, "x"); !errors.Is(err, data.ErrNotDirectory) {
		t.Errorf("Rename below a file: expected ErrNotDirectory, got %v", err)
	}
	moved, _ := m.Lookup(ctx, root, "moved")
	if err := m.Rename(ctx, moved, sub, "loop"); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Rename into own subtree: expected ErrInvalid, got %v", err)
	}
}

func TestMount_RenameFailureKeepsStreams(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, &failingRenameStore{Store: memory.NewMemoryBackend(), failOn: 1})
	root := m.Root()

	file := mknod(t, m, root, "f", 0o644)
	s, err := m.OpenStream(ctx, file, data.AccessModeReadWrite)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer s.Close(ctx)

	if _, err := s.Write(ctx, []byte("hi"), 0); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := m.Rename(ctx, file, root, "g"); !errors.Is(err, errRenameFailed) {
		t.Fatalf("expected rename failure, got %v", err)
	}

	if got := readAll(t, s); got != "hi" {
		t.Errorf("expected hi, got %q", got)
	}
	if _, err := s.Write(ctx, []byte("!"), 2); err != nil {
		t.Errorf("Write after failed rename: %v", err)
	}
	if refs := m.Cache().Refs("_f"); refs != 1 {
		t.Errorf("expected 1 ref at _f, got %d", refs)
	}
	if refs := m.Cache().Refs("_g"); refs != 0 {
		t.Errorf("expected no entry at _g, got %d refs", refs)
	}
	if _, err := m.Lookup(ctx, root, "g"); !errors.Is(err, data.ErrNotExist) {
		t.Errorf("Lookup(g): expected ErrNotExist, got %v", err)
	}
}

func TestMount_RenameDirectoryRollback(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, &failingRenameStore{Store: memory.NewMemoryBackend(), failOn: 2})
	root := m.Root()

	dir := mknod(t, m, root, "d", data.ModeDir|0o755)
	a := mknod(t, m, dir, "a", 0o644)
	mknod(t, m, dir, "b", 0o644)

	s, err := m.OpenStream(ctx, a, data.AccessModeReadWrite)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer s.Close(ctx)

	if _, err := s.Write(ctx, []byte("kept"), 0); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := m.Rename(ctx, dir, root, "e"); !errors.Is(err, errRenameFailed) {
		t.Fatalf("expected rename failure, got %v", err)
	}

	names, err := m.Readdir(ctx, root)
	if err != nil || !slices.Equal(names, []string{"d"}) {
		t.Errorf("Readdir(root) = %v, %v", names, err)
	}
	names, err = m.Readdir(ctx, dir)
	if err != nil || !slices.Equal(names, []string{"a", "b"}) {
		t.Errorf("Readdir(d) = %v, %v", names, err)
	}

	if got := readAll(t, s); got != "kept" {
		t.Errorf("expected kept, got %q", got)
	}
	if refs := m.Cache().Refs("_d_a"); refs != 1 {
		t.Errorf("expected 1 ref at _d_a, got %d", refs)
	}
	if got := m.RealPath(a); got != "_d_a" {
		t.Errorf("RealPath = %q", got)
	}
}

func TestMount_RenameClobber(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend())
	root := m.Root()

	a := mknod(t, m, root, "a", 0o644)
	b := mknod(t, m, root, "b", 0o644)
	writeFile(t, m, a, "from a")
	writeFile(t, m, b, "from b")

	s, err := m.OpenStream(ctx, b, data.AccessModeRead)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	if err := m.Rename(ctx, a, root, "b"); !errors.Is(err, data.ErrBusy) {
		t.Fatalf("Rename onto open file: expected ErrBusy, got %v", err)
	}
	if got := readAll(t, s); got != "from b" {
		t.Errorf("destination changed by a refused rename: %q", got)
	}

	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Rename(ctx, a, root, "b"); err != nil {
		t.Fatalf("Rename onto closed file failed: %v", err)
	}

	node, err := m.Lookup(ctx, root, "b")
	if err != nil || node != a {
		t.Fatalf("Lookup(b) = %v, %v; want the renamed node", node, err)
	}
	s, err = m.OpenStream(ctx, node, data.AccessModeRead)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer s.Close(ctx)
	if got := readAll(t, s); got != "from a" {
		t.Errorf("content = %q, want from a", got)
	}
}

func TestMount_RenameClobberLossy(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend(), WithLossyRename())
	root := m.Root()

	a := mknod(t, m, root, "a", 0o644)
	b := mknod(t, m, root, "b", 0o644)
	writeFile(t, m, a, "from a")

	s, err := m.OpenStream(ctx, b, data.AccessModeRead)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	if err := m.Rename(ctx, a, root, "b"); err != nil {
		t.Fatalf("lossy Rename failed: %v", err)
	}

	if _, err := s.Read(ctx, make([]byte, 8), 0); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Read on clobbered stream: expected ErrBadDescriptor, got %v", err)
	}
	if m.Streams() != 0 {
		t.Errorf("clobbered stream still registered")
	}
}

func TestMount_PermanentUnsupported(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend())
	node := mknod(t, m, m.Root(), "file", 0o644)

	s, err := m.OpenStream(ctx, node, data.AccessModeRead)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer s.Close(ctx)

	_, mmapErr := s.Mmap(ctx, 16, 0)
	_, readlinkErr := m.Readlink(ctx, node)

	tests := map[string]struct {
		err   error
		errno syscall.Errno
	}{
		"rmdir":        {m.Rmdir(ctx, m.Root(), "file"), syscall.ENOSYS},
		"rmdir-nil":    {m.Rmdir(ctx, nil, ""), syscall.ENOSYS},
		"symlink":      {m.Symlink(ctx, m.Root(), "link", "_file"), syscall.ENOSYS},
		"readlink":     {readlinkErr, syscall.ENOSYS},
		"mmap":         {mmapErr, syscall.EOPNOTSUPP},
		"msync":        {s.Msync(ctx, nil), syscall.EOPNOTSUPP},
		"munmap":       {s.Munmap(ctx), syscall.EOPNOTSUPP},
		"munmap-unopened": {m.NewStream(node, 0).Munmap(ctx), syscall.EOPNOTSUPP},
	}

	for name, tt := range tests {
		if !errors.Is(tt.err, data.ErrUnsupported) {
			t.Errorf("%s: expected ErrUnsupported, got %v", name, tt.err)
		}
		if got := data.Errno(tt.err); got != tt.errno {
			t.Errorf("%s: errno = %v, want %v", name, got, tt.errno)
		}
	}

	dir := mknod(t, m, m.Root(), "dir", data.ModeDir|0o755)
	if _, err := m.OpenStream(ctx, dir, data.AccessModeRead); !errors.Is(err, data.ErrUnsupported) {
		t.Errorf("OpenStream of a directory: expected ErrUnsupported, got %v", err)
	}
}

func TestMount_UnsupportedLogsQuietly(t *testing.T) {
	ctx := t.Context()

	var output bytes.Buffer
	logger, err := log.New("mount", log.WithLevel(log.Info), log.WithWriter(&output))
	if err != nil {
		t.Fatalf("log.New failed: %v", err)
	}

	m := newTestMount(t, memory.NewMemoryBackend(), WithLogger(logger))
	node := mknod(t, m, m.Root(), "file", 0o644)
	output.Reset()

	for range 3 {
		m.Rmdir(ctx, m.Root(), "dir")
		m.Symlink(ctx, m.Root(), "link", "file")
		m.Readlink(ctx, node)
	}

	if output.Len() != 0 {
		t.Errorf("expected no log output at info level, got:\n%s", output.String())
	}
}

func TestMount_Attributes(t *testing.T) {
	forEachStore(t, func(t *testing.T, m *Mount) {
		ctx := t.Context()
		root := m.Root()

		attr, err := m.Getattr(ctx, root)
		if err != nil {
			t.Fatalf("Getattr(root) failed: %v", err)
		}
		if attr.Size != data.DirectorySize || !attr.Mode.IsDir() || attr.Blocks != 1 {
			t.Errorf("root attributes = %+v", attr)
		}

		node := mknod(t, m, root, "file", 0o644)
		writeFile(t, m, node, string(make([]byte, 5000)))

		// Transient handle
		attr, err = m.Getattr(ctx, node)
		if err != nil {
			t.Fatalf("Getattr failed: %v", err)
		}
		if attr.Size != 5000 || attr.Blocks != 2 || attr.BlockSize != data.BlockSize {
			t.Errorf("file attributes = %+v", attr)
		}
		if !attr.AccessTime.Equal(attr.ModifyTime) || !attr.ModifyTime.Equal(attr.ChangeTime) {
			t.Errorf("timestamps differ: %+v", attr)
		}
		if attr.Nlink != 1 || attr.Dev != 1 || attr.Ino != node.Ino() {
			t.Errorf("identity attributes = %+v", attr)
		}
		if m.Cache().Len() != 0 {
			t.Errorf("transient handle left in cache")
		}

		// Cached handle
		s, err := m.OpenStream(ctx, node, data.AccessModeReadWrite)
		if err != nil {
			t.Fatalf("OpenStream failed: %v", err)
		}
		if err := m.Setattr(ctx, node, data.WithSize(10)); err != nil {
			t.Fatalf("Setattr size failed: %v", err)
		}
		attr, _ = m.Getattr(ctx, node)
		if attr.Size != 10 || attr.Blocks != 1 {
			t.Errorf("size after truncate = %d blocks %d", attr.Size, attr.Blocks)
		}
		if err := s.Close(ctx); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		if err := m.Setattr(ctx, node, data.WithSize(0)); err != nil {
			t.Fatalf("Setattr transient size failed: %v", err)
		}
		attr, _ = m.Getattr(ctx, node)
		if attr.Size != 0 || attr.Blocks != 0 {
			t.Errorf("size after transient truncate = %d", attr.Size)
		}

		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		update := &data.AttrUpdate{
			Mask:      data.AttrUpdateMode | data.AttrUpdateTimestamp,
			Mode:      data.ModeDir | 0o600,
			Timestamp: ts,
		}
		if err := m.Setattr(ctx, node, update); err != nil {
			t.Fatalf("Setattr mode failed: %v", err)
		}
		attr, _ = m.Getattr(ctx, node)
		if attr.Mode != 0o600 || !attr.ModifyTime.Equal(ts) {
			t.Errorf("attributes after setattr = mode %v time %v", attr.Mode, attr.ModifyTime)
		}

		if err := m.Setattr(ctx, node, data.WithSize(-1)); !errors.Is(err, data.ErrInvalid) {
			t.Errorf("negative size: expected ErrInvalid, got %v", err)
		}
		if err := m.Setattr(ctx, root, data.WithSize(0)); !errors.Is(err, data.ErrIsDirectory) {
			t.Errorf("truncate directory: expected ErrIsDirectory, got %v", err)
		}
	})
}

func TestMount_GetattrMissingObject(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryBackend()
	m := newTestMount(t, store)

	node := mknod(t, m, m.Root(), "file", 0o644)
	if err := store.DeleteObject(ctx, data.EncodePath("_file")); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}

	_, err := m.Getattr(ctx, node)
	if !errors.Is(err, data.ErrNotExist) || !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotExist wrapping backend.ErrNotFound, got %v", err)
	}
}

func TestStream_Llseek(t *testing.T) {
	ctx := t.Context()
	m := newTestMount(t, memory.NewMemoryBackend())
	node := mknod(t, m, m.Root(), "file", 0o644)
	writeFile(t, m, node, "0123456789")

	s := m.NewStream(node, data.AccessModeRead)
	if err := s.Fsync(ctx); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Fsync without handle: expected ErrBadDescriptor, got %v", err)
	}
	if _, err := s.Read(ctx, make([]byte, 1), 0); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Read without handle: expected ErrBadDescriptor, got %v", err)
	}
	if _, err := s.Llseek(ctx, 0, io.SeekEnd); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Llseek end without handle: expected ErrBadDescriptor, got %v", err)
	}

	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close(ctx)

	tests := []struct {
		offset int64
		whence int
		want   int64
	}{
		{4, io.SeekStart, 4},
		{2, io.SeekCurrent, 6},
		{-3, io.SeekEnd, 7},
		{5, io.SeekEnd, 15},
	}
	for _, tt := range tests {
		got, err := s.Llseek(ctx, tt.offset, tt.whence)
		if err != nil || got != tt.want {
			t.Errorf("Llseek(%d, %d) = %d, %v; want %d", tt.offset, tt.whence, got, err, tt.want)
		}
	}

	if _, err := s.Llseek(ctx, -20, io.SeekCurrent); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("negative position: expected ErrInvalid, got %v", err)
	}
	if _, err := s.Llseek(ctx, 0, 7); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("unknown whence: expected ErrInvalid, got %v", err)
	}
	if s.Position() != 15 {
		t.Errorf("failed seeks moved the cursor to %d", s.Position())
	}

	// Position is always explicit for reads
	buffer := make([]byte, 4)
	n, err := s.Read(ctx, buffer, 2)
	if err != nil || string(buffer[:n]) != "2345" {
		t.Errorf("Read = %q, %v", buffer[:n], err)
	}
	n, err = s.Read(ctx, buffer, 100)
	if err != nil || n != 0 {
		t.Errorf("Read past end = %d, %v", n, err)
	}

	if _, err := s.Write(ctx, []byte("x"), 0); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Write on read-only stream: expected ErrBadDescriptor, got %v", err)
	}
}

func TestMount_Unmount(t *testing.T) {
	ctx := t.Context()
	m, err := NewMount(memory.NewMemoryBackend())
	if err != nil {
		t.Fatalf("NewMount failed: %v", err)
	}
	if err := m.Mount(ctx); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if err := m.Mount(ctx); !errors.Is(err, data.ErrMounted) {
		t.Errorf("second Mount: expected ErrMounted, got %v", err)
	}

	node := mknod(t, m, m.Root(), "file", 0o644)
	s, err := m.OpenStream(ctx, node, data.AccessModeRead)
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	if err := m.Unmount(ctx, false); !errors.Is(err, data.ErrBusy) {
		t.Fatalf("Unmount with open stream: expected ErrBusy, got %v", err)
	}
	if err := m.Unmount(ctx, true); err != nil {
		t.Fatalf("forced Unmount failed: %v", err)
	}

	if m.Root() != nil {
		t.Errorf("root still set after unmount")
	}
	if _, err := s.Read(ctx, make([]byte, 1), 0); !errors.Is(err, data.ErrBadDescriptor) {
		t.Errorf("Read after unmount: expected ErrBadDescriptor, got %v", err)
	}
	if err := m.Unmount(ctx, false); !errors.Is(err, data.ErrNotMounted) {
		t.Errorf("second Unmount: expected ErrNotMounted, got %v", err)
	}
}
