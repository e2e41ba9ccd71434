package vfsnode

import (
	"container/list"
	"sync"
	"unsafe"

	"github.com/google/btree"
	"golang.org/x/sync/singleflight"
)

// NodeType tags what kind of filesystem entry a Node represents.
type NodeType int

const (
	TypeFile NodeType = iota
	TypeDirectory
	TypeSymlink
	TypeOther
)

// MountFlag bits attached to a Mount, notably read-only.
type MountFlag int

const (
	MountReadOnly MountFlag = 1 << iota
)

// MountOption is a parsed name/value pair from the comma-separated
// key=value mount option grammar.
type MountOption struct {
	Name     string
	Value    string
	HasValue bool
}

// FsType is the globally registered filesystem driver descriptor. Probe
// and Mount are supplied by the concrete driver (e.g. internal/memfs).
type FsType struct {
	Name        string
	Description string

	// Probe reports whether the filesystem on device looks like this
	// type. uuid is optional (nil if the caller didn't supply one).
	Probe func(device BlockDevice, uuid *string) bool

	// Mount populates mount's operations table and root node.
	Mount func(mount *Mount, options []MountOption) Status

	mu       sync.Mutex
	refCount int
}

func (t *FsType) addRef() {
	t.mu.Lock()
	t.refCount++
	t.mu.Unlock()
}

func (t *FsType) release() {
	t.mu.Lock()
	t.refCount--
	t.mu.Unlock()
}

func (t *FsType) inUse() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refCount > 0
}

// BlockDevice is the minimal handle to an underlying block device a mount
// may reference; concrete drivers interpret it, the core never looks
// inside it.
type BlockDevice interface {
	Name() string
}

// nodeEntry is the value type stored in a Mount's by-ID btree: a thin
// wrapper so the tree can be keyed purely by ID without requiring *Node
// itself to implement btree.LessFunc semantics elsewhere.
type nodeEntry struct {
	id   uint64
	node *Node
}

func nodeEntryLess(a, b nodeEntry) bool { return a.id < b.id }

// Mount is one mounted filesystem instance.
type Mount struct {
	ID    uint16
	Flags MountFlag
	Type  *FsType

	Device BlockDevice // optional

	Ops  *DriverOps
	Root *Node

	// Mountpoint is the node this mount shadows (nil for the root mount).
	Mountpoint *Node

	parent *Mount // the mount owning Mountpoint, nil for the root mount

	mu    sync.Mutex
	nodes *btree.BTreeG[nodeEntry]

	used   *list.List // of *Node
	unused *list.List // of *Node

	registry *Registry

	// sfGroup deduplicates concurrent read_node misses for the same ID.
	sfGroup singleflight.Group
}

func (m *Mount) ReadOnly() bool { return m.Flags&MountReadOnly != 0 }

// Node is the in-memory representation of a filesystem entry. All
// mutable fields are protected by the owning mount's lock;
// nodes with no mount (Mount == nil) are not reachable from two threads
// concurrently by construction (only memfs-internal bootstrap nodes are
// ever mount-less, and none are exposed that way in this repo).
type Node struct {
	ID   uint64
	Type NodeType

	Mount *Mount

	refCount int
	removed  bool
	detached bool // already pulled from the mount's maps by an in-progress unmount sweep
	inUnused bool // currently spliced onto the mount's and global unused lists

	Ops  *DriverOps
	Data any // opaque driver state

	// Mounted is set when another filesystem's root replaces this node.
	Mounted *Mount

	usedElem   *list.Element // this node's element in Mount.used or Mount.unused
	globalElem *list.Element // this node's element in the global unused LRU

	slabPtr unsafe.Pointer // bookkeeping slot in Registry.nodeCache, see registry.go
}

// IOContext is the per-process root/cwd pair the path lookup algorithm
// and the setroot/setcwd operations operate on. Real kernels have one per
// process; this repo models a single process context.
type IOContext struct {
	mu   sync.RWMutex
	root *Node
	cwd  *Node
}

// SeekWhence selects the reference point for Seek.
type SeekWhence int

const (
	SeekSet SeekWhence = 0
	SeekAdd SeekWhence = 1
	SeekEnd SeekWhence = 2
)

// OpenFlag bits for FileHandle.Flags.
type OpenFlag int

const (
	OpenRead OpenFlag = 1 << iota
	OpenWrite
	OpenAppend
	OpenNonBlock
)

// FileHandle is the per-open-session state tracking a handle's offset
// and the flags it was opened with.
type FileHandle struct {
	mu     sync.RWMutex
	offset int64
	Flags  OpenFlag
	Node   *Node
	isDir  bool
}
