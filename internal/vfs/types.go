package vfs

import "time"

// NodeKind is the kind of a namespace entry
type NodeKind int

const (
	// KindFile is a regular file carrying byte content
	KindFile NodeKind = iota
	// KindDirectory is a container; its content is always empty
	KindDirectory
)

func (k NodeKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Node is a single file or directory. Nodes are owned by exactly one
// Namespace; values handed out by Lookup are copies.
type Node struct {
	ID        uint64 // stable across moves, fresh on copy
	Kind      NodeKind
	Content   []byte
	CreatedAt time.Time // informational only
}

// IsDir reports whether the node is a directory
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// Size returns the content length in bytes (0 for directories)
func (n *Node) Size() int64 {
	return int64(len(n.Content))
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Content != nil {
		c.Content = append([]byte(nil), n.Content...)
	}
	return &c
}
