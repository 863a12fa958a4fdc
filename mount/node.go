package mount

import (
	"sync"
	"time"

	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// Node is an in-memory tree node. Name, parent and children are guarded by
// the mount lock; mode, timestamp and the cached handle by the node lock.
type Node struct {
	mu sync.Mutex

	ino      uint64
	name     string
	parent   *Node
	children map[string]*Node

	mode      data.FileMode
	timestamp time.Time

	// Shared handle of the open streams of this file, nil if none is open
	handle   backend.Handle
	refcount int
}

func (n *Node) Ino() uint64 {
	return n.ino
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Mode() data.FileMode {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.mode
}

func (n *Node) IsDir() bool {
	return n.Mode().IsDir()
}

func (n *Node) Timestamp() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.timestamp
}

// Refcount returns the number of open streams of this node.
func (n *Node) Refcount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.refcount
}

func (n *Node) touch() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.timestamp = time.Now()
}

// realPath must be called while holding the mount lock.
func (n *Node) realPath() string {
	if n.parent == nil {
		return data.RootPath
	}

	return data.JoinPaths(n.parent.realPath(), n.name)
}

// descendants must be called while holding the mount lock.
func (n *Node) descendants(path string, visit func(path string, node *Node)) {
	visit(path, n)
	for name, child := range n.children {
		child.descendants(data.JoinPaths(path, name), visit)
	}
}
