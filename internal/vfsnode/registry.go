package vfsnode

import (
	"container/list"
	"sync"

	"github.com/aejsmith/kiwi-sub001/internal/idalloc"
	"github.com/aejsmith/kiwi-sub001/internal/slab"
)

// Metrics receives node-cache observability counters; internal/metrics
// supplies the OpenTelemetry-backed implementation.
type Metrics interface {
	NodeHit()
	NodeMiss()
	NodeEvicted(n int)
}

type noopMetrics struct{}

func (noopMetrics) NodeHit()        {}
func (noopMetrics) NodeMiss()       {}
func (noopMetrics) NodeEvicted(int) {}

// Registry is the mount registry plus the global unused-node LRU the
// reclaim hook drains, generalized to an arbitrary number of mounted
// FsType instances rather than a single backing filesystem.
type Registry struct {
	fsTypesMu sync.Mutex
	fsTypes   map[string]*FsType

	// mu is the global mount-registry lock: always acquired before any
	// individual Mount's lock.
	mu        sync.Mutex
	mounts    map[uint16]*Mount
	rootMount *Mount
	mountIDs  *idalloc.Allocator

	// unusedMu is the global unused-node list lock: it is always taken
	// after, never before, a mount lock.
	unusedMu    sync.Mutex
	unused      *list.List // of *Node, LRU-ordered, oldest at the back
	unusedCount int

	// IO is the single process I/O context; a real kernel would key this
	// per-process, but this repo models exactly one process.
	IO *IOContext

	// nodeCache tracks node allocation/free bookkeeping through
	// internal/slab. The *Node Go struct itself cannot be carved out of
	// the cache's raw byte storage -- it holds Go pointers, interfaces
	// and a btree.BTreeG, none of which are safe to place in
	// GC-untracked memory (the same reasoning slab/magazine.go and
	// slab/slab_internal.go already document for Magazine and slabPage).
	// nodeCache therefore allocates and frees a same-sized placeholder
	// buffer alongside every real *Node construction/destruction purely
	// to keep the slab's accounting, magazine traffic and reclaim
	// behavior exercised by the node cache's own lifecycle.
	nodeCache *slab.Cache

	metrics Metrics
}

// nodePlaceholderSize is the per-node bookkeeping allocation drawn from
// the slab cache alongside every real Node construction.
const nodePlaceholderSize = 64

// NewRegistry constructs an empty mount/node registry. slabRegistry, if
// non-nil, receives the internal node-bookkeeping cache so the reclaim
// worker ages its magazines too.
func NewRegistry(slabRegistry *slab.Registry, metrics Metrics) *Registry {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	r := &Registry{
		fsTypes:  make(map[string]*FsType),
		mounts:   make(map[uint16]*Mount),
		mountIDs: idalloc.New(1 << 16),
		unused:   list.New(),
		IO:       &IOContext{},
		metrics:  metrics,
	}

	// If the caller's Metrics also satisfies slab.Metrics (internal/metrics'
	// OTelMetrics implements both), wire it into the node placeholder
	// cache too, so a single metrics instance observes both the node
	// cache and the slab allocator it allocates through.
	var slabMetrics slab.Metrics
	if sm, ok := metrics.(slab.Metrics); ok {
		slabMetrics = sm
	}

	// Large forces the off-slab bufctl layout regardless of page size, so
	// the allocation hash-table path is exercised by ordinary node
	// traffic rather than only by caches that happen to cross the
	// large-object threshold.
	r.nodeCache = slab.NewCache(slab.Config{
		Name:     "vfs_node",
		Size:     nodePlaceholderSize,
		Align:    8,
		Flags:    slab.Large,
		Priority: 10,
		Metrics:  slabMetrics,
	})
	if slabRegistry != nil {
		slabRegistry.Register(r.nodeCache)
	}

	return r
}

// RegisterFsType is register_fs_type.
func (r *Registry) RegisterFsType(t *FsType) Status {
	if t == nil || t.Name == "" || t.Mount == nil {
		return InvalidArg
	}

	r.fsTypesMu.Lock()
	defer r.fsTypesMu.Unlock()

	if _, exists := r.fsTypes[t.Name]; exists {
		return AlreadyExists
	}
	r.fsTypes[t.Name] = t
	return Ok
}

// UnregisterFsType is unregister_fs_type.
func (r *Registry) UnregisterFsType(name string) Status {
	r.fsTypesMu.Lock()
	defer r.fsTypesMu.Unlock()

	t, ok := r.fsTypes[name]
	if !ok {
		return NotFound
	}
	if t.inUse() {
		return InUse
	}
	delete(r.fsTypes, name)
	return Ok
}

func (r *Registry) lookupFsType(name string) *FsType {
	r.fsTypesMu.Lock()
	defer r.fsTypesMu.Unlock()
	return r.fsTypes[name]
}

func (r *Registry) probeFsType(device BlockDevice, uuid *string) *FsType {
	r.fsTypesMu.Lock()
	defer r.fsTypesMu.Unlock()

	for _, t := range r.fsTypes {
		if t.Probe != nil && t.Probe(device, uuid) {
			return t
		}
	}
	return nil
}

// allocNode allocates a *Node, exercising the node-bookkeeping slab cache
// alongside the real Go allocation (see nodeCache's doc comment).
func (r *Registry) allocNode() *Node {
	n := &Node{}
	if r.nodeCache != nil {
		n.slabPtr = r.nodeCache.Alloc(slab.MMKernel)
	}
	return n
}

// freeNode releases a *Node's slab-side bookkeeping slot. The real Go
// struct is left to the garbage collector.
func (r *Registry) freeNode(n *Node) {
	if r.nodeCache != nil && n.slabPtr != nil {
		r.nodeCache.Free(n.slabPtr)
		n.slabPtr = nil
	}
}
