package mount

import (
	"context"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// Getattr derives the attributes of node. Access, modify and change time
// all report the single logical timestamp of the node.
func (m *Mount) Getattr(ctx context.Context, node *Node) (*data.Attributes, error) {
	path := m.RealPath(node)

	node.mu.Lock()
	mode := node.mode
	timestamp := node.timestamp
	handle := node.handle
	node.mu.Unlock()

	var size int64
	switch {
	case mode.IsDir():
		size = data.DirectorySize
	case mode.IsRegular():
		length, err := m.length(ctx, path, handle)
		if err != nil {
			m.log.Debug("Getattr: failed to query length of '%s': %v", path, err)
			return nil, err
		}
		size = length
	}

	return &data.Attributes{
		Dev:        1,
		Ino:        node.ino,
		Mode:       mode,
		Nlink:      1,
		Size:       size,
		AccessTime: timestamp,
		ModifyTime: timestamp,
		ChangeTime: timestamp,
		BlockSize:  data.BlockSize,
		Blocks:     data.BlockCount(size),
	}, nil
}

// length resolves the size of a file from the handle cached on its node,
// the handle cache or a transient handle, in that order.
func (m *Mount) length(ctx context.Context, path string, handle backend.Handle) (int64, error) {
	if handle != nil {
		length, err := handle.Length(ctx)
		return length, translate("getattr", path, err)
	}

	var length int64
	err := m.withHandle(ctx, "getattr", path, func(h backend.Handle) error {
		var err error
		length, err = h.Length(ctx)
		return err
	})

	return length, err
}

// withHandle runs fn against the shared handle of path, opening a transient
// one through the cache if none is open. The handle is released on every exit path.
func (m *Mount) withHandle(ctx context.Context, op, path string, fn func(backend.Handle) error) error {
	handle, err := m.cache.Acquire(ctx, path)
	if err != nil {
		return translate(op, path, err)
	}

	errs := data.Errors{}
	errs.Add(translate(op, path, fn(handle)))
	errs.Add(translate(op, path, m.cache.Release(ctx, path)))

	return errs.Errors()
}

// Setattr applies the fields selected by the mask of update. Mode and
// timestamp only change in memory; a size truncates or extends the object.
func (m *Mount) Setattr(ctx context.Context, node *Node, update *data.AttrUpdate) error {
	if update == nil {
		return nil
	}

	path := m.RealPath(node)
	m.log.Debug("Setattr: '%s' with mask %d", path, update.Mask)

	node.mu.Lock()
	if update.Has(data.AttrUpdateMode) {
		// The type of a node never changes
		node.mode = node.mode.Type() | update.Mode.Perm()
	}
	if update.Has(data.AttrUpdateTimestamp) {
		node.timestamp = update.Timestamp
	}
	mode := node.mode
	handle := node.handle
	node.mu.Unlock()

	if !update.Has(data.AttrUpdateSize) {
		return nil
	}
	if mode.IsDir() {
		return data.IsDirectory("setattr", path)
	}
	if update.Size < 0 {
		return data.InvalidArgument("setattr", path, nil)
	}

	if handle != nil {
		return translate("setattr", path, handle.SetLength(ctx, update.Size))
	}

	return m.withHandle(ctx, "setattr", path, func(h backend.Handle) error {
		return h.SetLength(ctx, update.Size)
	})
}
