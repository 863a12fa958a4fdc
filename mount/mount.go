package mount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
	"github.com/mwantia/flatfs/handles"
	"github.com/mwantia/flatfs/log"
)

// Mount presents a flat object store as a tree of nodes.
//
// Directories are never persisted: a directory exists while its node is
// attached to the tree or while at least one key lies beneath its path.
type Mount struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	store   backend.Store
	cache   *handles.Cache
	log     *log.Logger
	options *MountOptions

	root    *Node
	inodes  atomic.Uint64
	mounted bool

	MountTime time.Time // When the mount was created.
}

func NewMount(store backend.Store, opts ...MountOption) (*Mount, error) {
	if store == nil {
		return nil, fmt.Errorf("mount requires a backend store")
	}

	options := newDefaultMountOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.Discard()
	}

	cache := options.Cache
	if cache == nil {
		cache = handles.New(store, logger.Named("handles"))
	}

	return &Mount{
		streams: make(map[string]*Stream),
		store:   store,
		cache:   cache,
		log:     logger,
		options: options,
	}, nil
}

// Mount opens the backend and creates the root node.
func (m *Mount) Mount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mounted {
		return data.NewError("mount", data.RootPath, data.ErrMounted, nil)
	}

	if err := m.store.Open(ctx); err != nil {
		m.log.Error("Mount: failed to open backend '%s': %v", m.store.Name(), err)
		return translate("mount", data.RootPath, err)
	}

	m.root = m.newNode(nil, "", data.ModeDir|data.ModePerm)
	m.mounted = true
	m.MountTime = time.Now()

	m.log.Info("Mount: mounted backend '%s'", m.store.Name())
	return nil
}

// Unmount closes every handle and the backend. Without force it fails with
// busy while streams are open; with force open streams are closed first.
func (m *Mount) Unmount(ctx context.Context, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mounted {
		return data.NewError("unmount", data.RootPath, data.ErrNotMounted, nil)
	}

	if len(m.streams) > 0 && !force {
		m.log.Warn("Unmount: %d streams are still open", len(m.streams))
		return data.Busy("unmount", data.RootPath, nil)
	}

	errs := data.Errors{}
	for id, stream := range m.streams {
		stream.mu.Lock()
		stream.node.mu.Lock()
		stream.handle = nil
		stream.node.handle = nil
		stream.node.refcount = 0
		stream.node.mu.Unlock()
		stream.mu.Unlock()

		delete(m.streams, id)
	}

	if err := m.cache.CloseAll(ctx); err != nil {
		errs.Add(err)
	}
	if err := m.store.Close(ctx); err != nil {
		errs.Add(translate("unmount", data.RootPath, err))
	}

	m.root = nil
	m.mounted = false

	m.log.Info("Unmount: unmounted backend '%s'", m.store.Name())
	return errs.Errors()
}

// Root returns the root node, or nil if the mount is not mounted.
func (m *Mount) Root() *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.root
}

func (m *Mount) Store() backend.Store {
	return m.store
}

func (m *Mount) Cache() *handles.Cache {
	return m.cache
}

// Streams returns the number of open streams.
func (m *Mount) Streams() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.streams)
}

// RealPath returns the path of node joined by the path delimiter.
func (m *Mount) RealPath(node *Node) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return node.realPath()
}

func (m *Mount) newNode(parent *Node, name string, mode data.FileMode) *Node {
	node := &Node{
		ino:       m.inodes.Add(1),
		name:      name,
		parent:    parent,
		mode:      mode,
		timestamp: time.Now(),
	}
	if mode.IsDir() {
		node.children = make(map[string]*Node)
	}

	return node
}

// translate maps backend failures to the error kinds of this filesystem.
// Unclassified errors are returned unchanged.
func translate(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var classified *data.ErrnoError
	if errors.As(err, &classified) {
		return err
	}

	var native *backend.Error
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return data.NotFound(op, path, err)
	case errors.Is(err, backend.ErrLocked):
		return data.Busy(op, path, err)
	case errors.Is(err, backend.ErrExists):
		return data.Exist(op, path, err)
	case errors.Is(err, backend.ErrClosed):
		return data.NewError(op, path, data.ErrBadDescriptor, err)
	case errors.Is(err, backend.ErrNegative):
		return data.InvalidArgument(op, path, err)
	case errors.As(err, &native):
		return data.BackendIO(op, path, native.Errno, err)
	default:
		return err
	}
}
