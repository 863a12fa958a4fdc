package mount

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"syscall"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// scan returns the sorted real paths of every key starting with prefix.
// Keys not produced by the path codec are skipped.
func (m *Mount) scan(ctx context.Context, op, prefix string) ([]string, error) {
	keys, err := backend.ListByPrefix(ctx, m.store, data.EncodePath(prefix))
	if err != nil {
		return nil, translate(op, prefix, err)
	}

	paths := make([]string, 0, len(keys))
	for _, key := range keys {
		path, err := data.DecodeKey(key)
		if err != nil {
			m.log.Warn("%s: skipping foreign key '%s'", op, key)
			continue
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// infer reports whether path names a file or a directory in the backend.
// Only keys sharing path as prefix are scanned, so siblings are never listed.
func (m *Mount) infer(ctx context.Context, op, path string) (data.FileMode, bool, error) {
	paths, err := m.scan(ctx, op, path)
	if err != nil {
		return 0, false, err
	}

	dir := data.DirectoryPath(path)
	for _, candidate := range paths {
		if candidate == path {
			return data.ModePerm, true, nil
		}
		if strings.HasPrefix(candidate, dir) {
			return data.ModeDir | data.ModePerm, true, nil
		}
	}

	return 0, false, nil
}

func (m *Mount) checkParent(op string, parent *Node) error {
	if parent == nil {
		return data.InvalidArgument(op, "", nil)
	}
	if !parent.IsDir() {
		return data.NotDirectory(op, parent.realPath())
	}
	return nil
}

// Lookup resolves name below parent. Attached nodes are returned as they are;
// otherwise the node is inferred from the backend: an exact key is a file,
// a key below name is a directory.
func (m *Mount) Lookup(ctx context.Context, parent *Node, name string) (*Node, error) {
	if err := data.ValidName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent("lookup", parent); err != nil {
		return nil, err
	}
	if child, exists := parent.children[name]; exists {
		return child, nil
	}

	path := data.JoinPaths(parent.realPath(), name)
	mode, exists, err := m.infer(ctx, "lookup", path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, data.NotFound("lookup", path, nil)
	}

	node := m.newNode(parent, name, mode)
	parent.children[name] = node

	m.log.Debug("Lookup: inferred '%s' as %s", path, mode)
	return node, nil
}

// Mknod creates a regular file as an empty backend object or a directory as
// an attached, not persisted node. Other node types are invalid.
func (m *Mount) Mknod(ctx context.Context, parent *Node, name string, mode data.FileMode) (*Node, error) {
	if err := data.ValidName(name); err != nil {
		return nil, err
	}
	if !mode.IsDir() && !mode.IsRegular() {
		return nil, data.InvalidArgument("mknod", name, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent("mknod", parent); err != nil {
		return nil, err
	}

	path := data.JoinPaths(parent.realPath(), name)
	if _, exists := parent.children[name]; exists {
		return nil, data.Exist("mknod", path, nil)
	}

	_, exists, err := m.infer(ctx, "mknod", path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, data.Exist("mknod", path, nil)
	}

	if mode.IsRegular() {
		if err := m.store.CreateObject(ctx, data.EncodePath(path)); err != nil {
			m.log.Error("Mknod: failed to create object for '%s': %v", path, err)
			return nil, translate("mknod", path, err)
		}
	}

	node := m.newNode(parent, name, mode.Type()|mode.Perm())
	parent.children[name] = node
	parent.touch()

	m.log.Debug("Mknod: created '%s' as %s", path, node.mode)
	return node, nil
}

// Readdir lists the immediate children of node: every first segment of a
// key below it plus attached directories that are not persisted.
func (m *Mount) Readdir(ctx context.Context, node *Node) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkParent("readdir", node); err != nil {
		return nil, err
	}

	path := node.realPath()
	paths, err := m.scan(ctx, "readdir", data.DirectoryPath(path))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(paths)+len(node.children))
	for _, child := range paths {
		if name := data.ExtractFilename(path, child); name != "" {
			names = append(names, name)
		}
	}
	for name, child := range node.children {
		if child.IsDir() {
			names = append(names, name)
		}
	}

	slices.Sort(names)
	return slices.Compact(names), nil
}

// Unlink deletes the object of name below parent. An object that is still
// open fails with busy and stays intact.
func (m *Mount) Unlink(ctx context.Context, parent *Node, name string) error {
	if err := data.ValidName(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParent("unlink", parent); err != nil {
		return err
	}

	path := data.JoinPaths(parent.realPath(), name)
	if child, exists := parent.children[name]; exists && child.IsDir() {
		return data.IsDirectory("unlink", path)
	}

	if err := m.store.DeleteObject(ctx, data.EncodePath(path)); err != nil {
		if errors.Is(err, backend.ErrLocked) {
			m.log.Error("Unlink: cannot unlink open file '%s'", path)
		}
		return translate("unlink", path, err)
	}

	delete(parent.children, name)
	parent.touch()

	m.log.Debug("Unlink: removed '%s'", path)
	return nil
}

// move is a single backend rename performed as part of Rename.
type move struct {
	from string
	to   string
	node *Node
}

// Rename moves node below newParent as newName. Directories move every key
// beneath them. Open handles of moved files are carried over to the new keys
// and the streams holding them are repointed.
//
// An existing destination file is replaced. If it is still open the rename
// fails with busy, unless the mount was created WithLossyRename.
func (m *Mount) Rename(ctx context.Context, node, newParent *Node, newName string) error {
	if err := data.ValidName(newName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if node == nil || node.parent == nil {
		return data.InvalidArgument("rename", data.RootPath, nil)
	}
	if err := m.checkParent("rename", newParent); err != nil {
		return err
	}

	oldPath := node.realPath()
	newPath := data.JoinPaths(newParent.realPath(), newName)
	if oldPath == newPath {
		return nil
	}
	if strings.HasPrefix(newPath, data.DirectoryPath(oldPath)) {
		// A directory cannot become its own descendant
		return data.InvalidArgument("rename", newPath, nil)
	}

	m.log.Debug("Rename: '%s' -> '%s'", oldPath, newPath)

	moves, err := m.planMoves(ctx, node, oldPath, newPath)
	if err != nil {
		return err
	}

	if err := m.clearDestination(ctx, node, newParent, newName, newPath); err != nil {
		return err
	}

	for i, mv := range moves {
		if err := m.rekey(ctx, mv.from, mv.to, mv.node); err != nil {
			m.log.Error("Rename: failed to move '%s' -> '%s': %v", mv.from, mv.to, err)
			if i == 0 {
				return translate("rename", mv.from, err)
			}

			if rollbackErr := m.rollback(ctx, moves[:i]); rollbackErr != nil {
				m.log.Error("Rename: '%s' is left partially moved to '%s': %v", oldPath, newPath, rollbackErr)
				return translate("rename", mv.from,
					fmt.Errorf("partial rename, %d of %d keys moved: %w", i, len(moves), errors.Join(err, rollbackErr)))
			}
			return translate("rename", mv.from, err)
		}
	}

	delete(node.parent.children, node.name)
	node.parent.touch()

	node.name = newName
	node.parent = newParent
	newParent.children[newName] = node
	newParent.touch()

	return nil
}

// rekey renames the key of from to to and points node and its streams at
// the handle the cache holds afterwards. If the backend rename fails the
// handle is reopened at from and node is repointed to it.
func (m *Mount) rekey(ctx context.Context, from, to string, node *Node) error {
	handle, _, err := m.cache.Rekey(ctx, from, to, func(ctx context.Context) error {
		return m.store.RenameObject(ctx, data.EncodePath(from), data.EncodePath(to))
	})
	if handle != nil && node != nil {
		m.repoint(node, handle)
	}

	return err
}

// rollback undoes completed moves in reverse order.
func (m *Mount) rollback(ctx context.Context, done []move) error {
	var errs data.Errors
	for i := len(done) - 1; i >= 0; i-- {
		mv := done[i]
		if err := m.rekey(ctx, mv.to, mv.from, mv.node); err != nil {
			errs.Add(fmt.Errorf("failed to restore '%s': %w", mv.from, err))
			continue
		}
		m.log.Debug("Rename: restored '%s'", mv.from)
	}

	return errs.Errors()
}

// planMoves lists the backend renames for node, linking attached nodes so
// their streams can be repointed.
func (m *Mount) planMoves(ctx context.Context, node *Node, oldPath, newPath string) ([]move, error) {
	if !node.IsDir() {
		return []move{{from: oldPath, to: newPath, node: node}}, nil
	}

	attached := make(map[string]*Node)
	node.descendants(oldPath, func(path string, n *Node) {
		attached[path] = n
	})

	paths, err := m.scan(ctx, "rename", data.DirectoryPath(oldPath))
	if err != nil {
		return nil, err
	}

	moves := make([]move, 0, len(paths))
	for _, path := range paths {
		moves = append(moves, move{
			from: path,
			to:   newPath + strings.TrimPrefix(path, oldPath),
			node: attached[path],
		})
	}

	return moves, nil
}

// clearDestination removes whatever occupies newPath before node moves there.
func (m *Mount) clearDestination(ctx context.Context, node, newParent *Node, newName, newPath string) error {
	mode, exists, err := m.infer(ctx, "rename", newPath)
	if err != nil {
		return err
	}

	if existing, attached := newParent.children[newName]; attached && !exists {
		if existing.IsDir() && !node.IsDir() {
			return data.IsDirectory("rename", newPath)
		}
		if !existing.IsDir() && node.IsDir() {
			return data.NotDirectory("rename", newPath)
		}
	}
	if !exists {
		return nil
	}

	switch {
	case mode.IsDir() && !node.IsDir():
		return data.IsDirectory("rename", newPath)
	case mode.IsDir():
		return data.NotEmpty("rename", newPath)
	case node.IsDir():
		return data.NotDirectory("rename", newPath)
	}

	if _, open := m.cache.Peek(newPath); open {
		if !m.options.LossyRename {
			m.log.Error("Rename: destination '%s' is open", newPath)
			return data.Busy("rename", newPath, nil)
		}

		m.log.Warn("Rename: force-closing open destination '%s', its streams are detached", newPath)
		if _, err := m.cache.Evict(ctx, newPath); err != nil {
			return translate("rename", newPath, err)
		}
		if existing, attached := newParent.children[newName]; attached {
			m.detachStreams(existing)
		}
	}

	if err := m.store.DeleteObject(ctx, data.EncodePath(newPath)); err != nil {
		return translate("rename", newPath, err)
	}

	return nil
}

// repoint swaps the handle of node and all of its streams.
// Must be called while holding the mount lock.
func (m *Mount) repoint(node *Node, handle backend.Handle) {
	node.mu.Lock()
	node.handle = handle
	node.mu.Unlock()

	for _, stream := range m.streams {
		if stream.node != node {
			continue
		}

		stream.mu.Lock()
		stream.handle = handle
		stream.mu.Unlock()
	}
}

// detachStreams drops the handle of every stream of node after a lossy
// rename closed it. Must be called while holding the mount lock.
func (m *Mount) detachStreams(node *Node) {
	node.mu.Lock()
	node.handle = nil
	node.refcount = 0
	node.mu.Unlock()

	for id, stream := range m.streams {
		if stream.node != node {
			continue
		}

		stream.mu.Lock()
		stream.handle = nil
		stream.mu.Unlock()
		delete(m.streams, id)
	}
}

// Rmdir always fails: directories have no backend object to remove.
func (m *Mount) Rmdir(ctx context.Context, parent *Node, name string) error {
	m.log.Debug("Rmdir: not supported for '%s'", name)
	return data.Unsupported("rmdir", name, syscall.ENOSYS)
}

// Symlink always fails: symbolic links are not supported.
func (m *Mount) Symlink(ctx context.Context, parent *Node, name, target string) error {
	m.log.Debug("Symlink: not supported for '%s'", name)
	return data.Unsupported("symlink", name, syscall.ENOSYS)
}

// Readlink always fails: symbolic links are not supported.
func (m *Mount) Readlink(ctx context.Context, node *Node) (string, error) {
	m.log.Debug("Readlink: not supported")
	return "", data.Unsupported("readlink", "", syscall.ENOSYS)
}
