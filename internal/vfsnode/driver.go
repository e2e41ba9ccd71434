package vfsnode

// DirEntry is one directory entry, returned by DriverOps.ReadEntry.
type DirEntry struct {
	ID   uint64
	Name string
}

// NodeInfo is the stat-style record populated by DriverOps.Info.
type NodeInfo struct {
	ID    uint64
	Type  NodeType
	Size  int64
	Links int
}

// CacheObject stands in for a page-cache-like object backing mmap
// support; this repo's scope stops at the trivial page-fetch callback
// and doesn't model memory-mapped I/O beyond it.
type CacheObject interface {
	FetchPage(offset int64) ([]byte, error)
}

// DriverOps is the polymorphic per-node callback table a filesystem driver
// implements. Any method a driver leaves nil is treated as unimplemented;
// the corresponding public operation returns NotSupported, except for
// EntryCount (see below).
//
// Implementations are invoked without the mount lock held except where
// individually noted.
type DriverOps struct {
	// ReadNode is the driver side of a lookup miss: given a mount and a
	// node ID, return a referenced node with its operations filled in.
	ReadNode func(mount *Mount, id uint64) (*Node, Status)

	// LookupEntry resolves name within the directory node to a node ID.
	LookupEntry func(node *Node, name string) (uint64, Status)

	// ReadEntry returns the directory entry at the given index.
	ReadEntry func(node *Node, index int) (DirEntry, Status)

	// Create makes a new entry of the given type under parent. linkTarget
	// is only meaningful when typ == TypeSymlink.
	Create func(parent *Node, name string, typ NodeType, linkTarget string) (*Node, Status)

	// Unlink removes name (referring to node) from parent.
	Unlink func(parent *Node, name string, node *Node) Status

	// Read/Write transfer count bytes at offset; n is the number of bytes
	// actually transferred, which may be less than count on a partial
	// result.
	Read  func(node *Node, buf []byte, offset int64, nonblock bool) (n int, status Status)
	Write func(node *Node, buf []byte, offset int64, nonblock bool) (n int, status Status)

	// Resize changes a file's length.
	Resize func(node *Node, newSize int64) Status

	// ReadLink returns a symlink's target string.
	ReadLink func(node *Node) (string, Status)

	// Flush persists any buffered state; Free releases driver-side
	// storage. When the node cache destroys a node, both are called with
	// the mount lock held, before the node is removed from the mount's
	// maps.
	Flush func(node *Node) Status
	Free  func(node *Node) Status

	// GetCache returns the page-cache-like object backing mmap, if any.
	GetCache func(node *Node) (CacheObject, Status)

	// Info populates *out with the node's stat information. EntryCount,
	// when supported, is used by SeekEnd on directories.
	Info func(node *Node, out *NodeInfo) Status

	// EntryCount reports the number of directory entries, required for
	// SeekEnd on a directory handle; a driver that cannot report this
	// leaves it nil (NotImplemented).
	EntryCount func(node *Node) (int, Status)

	// Unmount is invoked once a mount's node tree has been fully drained,
	// after the mount is detached from its mountpoint.
	Unmount func(mount *Mount) Status
}
