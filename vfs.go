package flatfs

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
	"github.com/mwantia/flatfs/log"
	"github.com/mwantia/flatfs/mount"
)

// FileSystem is a path based facade over a mount. Paths are slash
// separated and always resolved from the root of the mount.
type FileSystem struct {
	mount   *mount.Mount
	log     *log.Logger
	ownsLog bool
	options *Options
}

func New(store backend.Store, opts ...Option) (*FileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	ownsLog := false
	if logger == nil {
		logOpts := []log.Option{log.WithLevel(options.LogLevel)}
		if options.NoTerminalLog {
			logOpts = append(logOpts, log.WithWriter(io.Discard))
		}
		if options.LogJSON {
			logOpts = append(logOpts, log.WithJSON())
		}
		logOpts = append(logOpts, log.WithFile(options.LogFile, nil))

		created, err := log.New("flatfs", logOpts...)
		if err != nil {
			return nil, err
		}
		logger = created
		ownsLog = true
	}

	mountOpts := []mount.MountOption{mount.WithLogger(logger.Named("mount"))}
	if options.LossyRename {
		mountOpts = append(mountOpts, mount.WithLossyRename())
	}

	m, err := mount.NewMount(store, mountOpts...)
	if err != nil {
		return nil, err
	}

	return &FileSystem{
		mount:   m,
		log:     logger,
		ownsLog: ownsLog,
		options: options,
	}, nil
}

// Layer returns the mount beneath the facade.
func (fs *FileSystem) Layer() *mount.Mount {
	return fs.mount
}

func (fs *FileSystem) Logger() *log.Logger {
	return fs.log
}

func (fs *FileSystem) Mount(ctx context.Context) error {
	return fs.mount.Mount(ctx)
}

// Unmount closes every handle and the backend. Without force it fails with
// ErrBusy while files are open.
func (fs *FileSystem) Unmount(ctx context.Context, force bool) error {
	if err := fs.mount.Unmount(ctx, force); err != nil {
		return err
	}

	if fs.ownsLog {
		return fs.log.Close()
	}
	return nil
}

// Resolve walks p from the root and returns its node.
func (fs *FileSystem) Resolve(ctx context.Context, p string) (*mount.Node, error) {
	names, err := SplitPath(p)
	if err != nil {
		return nil, err
	}

	node := fs.mount.Root()
	if node == nil {
		return nil, data.NewError("resolve", p, data.ErrNotMounted, nil)
	}

	for _, name := range names {
		child, err := fs.mount.Lookup(ctx, node, name)
		if err != nil {
			return nil, err
		}
		node = child
	}

	return node, nil
}

func (fs *FileSystem) Stat(ctx context.Context, p string) (*FileInfo, error) {
	node, err := fs.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	attr, err := fs.mount.Getattr(ctx, node)
	if err != nil {
		return nil, err
	}

	return newFileInfo(node.Name(), path.Clean("/"+p), attr), nil
}

// ReadDir lists the entries of the directory at p sorted by name.
func (fs *FileSystem) ReadDir(ctx context.Context, p string) ([]*FileInfo, error) {
	node, err := fs.Resolve(ctx, p)
	if err != nil {
		return nil, err
	}

	names, err := fs.mount.Readdir(ctx, node)
	if err != nil {
		return nil, err
	}

	dir := path.Clean("/" + p)
	infos := make([]*FileInfo, 0, len(names))
	for _, name := range names {
		child, err := fs.mount.Lookup(ctx, node, name)
		if err != nil {
			return nil, err
		}

		attr, err := fs.mount.Getattr(ctx, child)
		if err != nil {
			return nil, err
		}

		infos = append(infos, newFileInfo(name, path.Join(dir, name), attr))
	}

	return infos, nil
}

// Mkdir creates a directory. It is kept in memory until a file is created below it.
func (fs *FileSystem) Mkdir(ctx context.Context, p string, perm data.FileMode) error {
	parent, name, err := fs.resolveParent(ctx, p)
	if err != nil {
		return err
	}

	_, err = fs.mount.Mknod(ctx, parent, name, data.ModeDir|perm.Perm())
	return err
}

// Create creates or truncates the file at p and opens it for reading and writing.
func (fs *FileSystem) Create(ctx context.Context, p string) (*File, error) {
	return fs.OpenFile(ctx, p, data.AccessModeReadWrite|data.AccessModeCreate|data.AccessModeTrunc, 0o644)
}

// Open opens the file at p for reading.
func (fs *FileSystem) Open(ctx context.Context, p string) (*File, error) {
	return fs.OpenFile(ctx, p, data.AccessModeRead, 0)
}

// OpenFile opens the file at p with flags. With AccessModeCreate a missing
// file is created with perm; with AccessModeExcl an existing one fails with ErrExist.
func (fs *FileSystem) OpenFile(ctx context.Context, p string, flags data.AccessMode, perm data.FileMode) (*File, error) {
	parent, name, err := fs.resolveParent(ctx, p)
	if err != nil {
		return nil, err
	}

	node, err := fs.mount.Lookup(ctx, parent, name)
	switch {
	case errors.Is(err, data.ErrNotExist) && flags.HasCreate():
		node, err = fs.mount.Mknod(ctx, parent, name, perm.Perm())
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case flags.HasCreate() && flags.HasExcl():
		return nil, data.Exist("open", p, nil)
	}

	if node.IsDir() {
		return nil, data.IsDirectory("open", p)
	}

	stream, err := fs.mount.OpenStream(ctx, node, flags)
	if err != nil {
		return nil, err
	}

	if flags.HasTrunc() && flags.CanWrite() {
		if err := fs.mount.Setattr(ctx, node, data.WithSize(0)); err != nil {
			stream.Close(ctx)
			return nil, err
		}
	}

	fs.log.Debug("OpenFile: opened '%s' as stream '%s'", p, stream.ID())
	return &File{
		ctx:    ctx,
		fs:     fs,
		stream: stream,
		path:   path.Clean("/" + p),
	}, nil
}

func (fs *FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	file, err := fs.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// WriteFile replaces the content of the file at p, creating it with perm if needed.
func (fs *FileSystem) WriteFile(ctx context.Context, p string, content []byte, perm data.FileMode) error {
	file, err := fs.OpenFile(ctx, p, data.AccessModeWrite|data.AccessModeCreate|data.AccessModeTrunc, perm)
	if err != nil {
		return err
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}

func (fs *FileSystem) Truncate(ctx context.Context, p string, size int64) error {
	node, err := fs.Resolve(ctx, p)
	if err != nil {
		return err
	}

	return fs.mount.Setattr(ctx, node, data.WithSize(size))
}

// Chmod changes the permission bits. Modes are not persisted by the backend.
func (fs *FileSystem) Chmod(ctx context.Context, p string, mode data.FileMode) error {
	node, err := fs.Resolve(ctx, p)
	if err != nil {
		return err
	}

	return fs.mount.Setattr(ctx, node, data.WithMode(mode))
}

// Remove deletes the file at p. Directories cannot be removed.
func (fs *FileSystem) Remove(ctx context.Context, p string) error {
	parent, name, err := fs.resolveParent(ctx, p)
	if err != nil {
		return err
	}

	node, err := fs.mount.Lookup(ctx, parent, name)
	if err != nil {
		return err
	}
	if node.IsDir() {
		return fs.mount.Rmdir(ctx, parent, name)
	}

	return fs.mount.Unlink(ctx, parent, name)
}

// Rename moves the file or directory at oldPath to newPath.
func (fs *FileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	node, err := fs.Resolve(ctx, oldPath)
	if err != nil {
		return err
	}
	if node == fs.mount.Root() {
		return data.InvalidArgument("rename", oldPath, nil)
	}

	newParent, newName, err := fs.resolveParent(ctx, newPath)
	if err != nil {
		return err
	}

	return fs.mount.Rename(ctx, node, newParent, newName)
}

func (fs *FileSystem) resolveParent(ctx context.Context, p string) (*mount.Node, string, error) {
	dir, name, err := splitParent(p)
	if err != nil {
		return nil, "", err
	}

	parent, err := fs.Resolve(ctx, dir)
	if err != nil {
		return nil, "", err
	}

	return parent, name, nil
}
