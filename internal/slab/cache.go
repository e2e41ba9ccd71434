package slab

import (
	"sort"
	"sync"
	"time"
	"unsafe"

	"github.com/aejsmith/kiwi-sub001/internal/arena"
	"github.com/aejsmith/kiwi-sub001/internal/clock"
	"github.com/aejsmith/kiwi-sub001/internal/logger"
	"github.com/aejsmith/kiwi-sub001/internal/randsrc"
)

// Flags configures a Cache's behavior at creation time.
type Flags int

const (
	// NoMagazine disables the per-CPU magazine layer entirely, so every
	// Alloc and Free goes straight to the slab layer. Magazines and
	// bufctls are ordinary Go heap objects, not drawn from a Cache.
	NoMagazine Flags = 1 << iota
	// Large forces the off-slab buffer-control layout even if the object
	// size would not otherwise cross the large-object threshold.
	Large
)

const minAlign = 16

// Cache is an object pool for one specific fixed-size object kind,
// combining the slab layer with an optional per-CPU magazine fast path
// and depot.
type Cache struct {
	name  string
	size  int // object size, rounded up to align
	align int

	ctor func(obj unsafe.Pointer)
	dtor func(obj unsafe.Pointer)

	data any // opaque context handed to ctor/dtor, mirrors the source's cc_private

	flags    Flags
	large    bool
	priority int

	arena     arena.Arena
	slabSize  int
	objsPer   int
	colorNext int
	colorMax  int

	rnd randsrc.Random

	mu         sync.Mutex // guards the slab layer: partial/full lists, hash table, creation
	partial    []*slabPage
	full       []*slabPage
	hash       map[uintptr]*bufctl   // large mode only: object address -> bufctl
	smallOwner map[uintptr]*slabPage // small mode only: object address -> owning page

	depot *depot

	shards []perCPUSlot

	// live tracks every pointer currently owned by a caller, maintained at
	// the public Alloc/Free boundary (the magazine layer keeps freed
	// objects in circulation below it, so the slab-layer bookkeeping alone
	// cannot tell a double free from a legitimate recycled round).
	live sync.Map // uintptr -> struct{}

	metrics Metrics
	clk     clock.Clock

	allocated uint64 // lifetime allocs, for invariant checking in tests
	freed     uint64
}

// Config bundles the cache_create arguments.
type Config struct {
	Name     string
	Size     int
	Align    int
	Ctor     func(obj unsafe.Pointer)
	Dtor     func(obj unsafe.Pointer)
	Data     any
	Flags    Flags
	Arena    arena.Arena
	Random   randsrc.Random
	Clock    clock.Clock
	Metrics  Metrics
	Priority int // lower reclaims first
}

// NewCache is the Go realization of cache_create. A freshly created cache
// is globally registered (see Registry) in priority-sorted order by the
// caller.
func NewCache(cfg Config) *Cache {
	align := cfg.Align
	if align < minAlign {
		align = minAlign
	}
	size := roundUp(cfg.Size, align)
	if size <= 0 {
		size = align
	}

	a := cfg.Arena
	if a == nil {
		a = arena.NewHeapArena(0)
	}
	pageSize := a.PageSize()

	rnd := cfg.Random
	if rnd == nil {
		rnd = randsrc.NewMT19937_64(1)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	c := &Cache{
		name:     cfg.Name,
		size:     size,
		align:    align,
		ctor:     cfg.Ctor,
		dtor:     cfg.Dtor,
		data:     cfg.Data,
		flags:    cfg.Flags,
		priority: cfg.Priority,
		arena:    a,
		rnd:      rnd,
		depot:    newDepot(),
		hash:     nil,
		metrics:  m,
		clk:      clk,
	}

	c.large = cfg.Flags&Large != 0 || size >= pageSize/8
	if c.large {
		c.hash = make(map[uintptr]*bufctl)
		c.slabSize = largeSlabSize(size, pageSize)
		c.objsPer = c.slabSize / size
	} else {
		c.slabSize = pageSize
		// One machine word of every object is reserved for the
		// embedded free-list pointer in small mode; the Go port uses
		// a parallel slice instead (see slab_internal.go), so the
		// whole slab size is available for objects.
		c.objsPer = c.slabSize / size
	}
	if c.objsPer < 1 {
		c.objsPer = 1
	}

	leftover := c.slabSize - c.objsPer*size
	c.colorMax = leftover - leftover%align
	if c.colorMax < 0 {
		c.colorMax = 0
	}

	if cfg.Flags&NoMagazine == 0 {
		c.shards = make([]perCPUSlot, numShards())
	}

	// Start the coloring sequence at a generator-chosen offset so caches
	// created in the same order don't all begin at color zero.
	if c.colorMax > 0 {
		steps := uintptr(c.colorMax/c.align) + 1
		c.colorNext = int(uintptr(c.rnd.Uint64())%steps) * c.align
	}

	return c
}

func roundUp(n, align int) int {
	if align <= 0 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// largeSlabSize grows the slab size one page at a time, starting from
// size rounded to a page multiple, until the leftover space per slab is
// at most slabSize/8.
func largeSlabSize(size, pageSize int) int {
	slabSize := roundUp(size, pageSize)
	for {
		objs := slabSize / size
		leftover := slabSize - objs*size
		if leftover <= slabSize/8 {
			return slabSize
		}
		slabSize += pageSize
	}
}

func (c *Cache) Name() string { return c.name }
func (c *Cache) Size() int    { return c.size }
func (c *Cache) Align() int   { return c.align }
func (c *Cache) Large() bool  { return c.large }

// Alloc is the Go realization of the public slab alloc() entry point. It
// tries the magazine fast path first and falls through to the slab layer
// on a miss.
func (c *Cache) Alloc(policy arena.MMFlag) unsafe.Pointer {
	if c.shards != nil {
		if ptr, ok := c.magazineAlloc(policy); ok {
			c.live.Store(uintptr(ptr), struct{}{})
			c.metrics.Alloc(c.name)
			return ptr
		}
	}

	ptr := c.slabAlloc(policy)
	if ptr == nil {
		if policy.NoFail() {
			fatalf(c.name, "NO-FAIL allocation of size %d failed", c.size)
		}
		return nil
	}
	c.live.Store(uintptr(ptr), struct{}{})
	c.metrics.Alloc(c.name)
	return ptr
}

// Free is the Go realization of the public slab free() entry point.
func (c *Cache) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if _, ok := c.live.LoadAndDelete(uintptr(ptr)); !ok {
		fatalf(c.name, "double free of object %#x", uintptr(ptr))
	}
	c.metrics.Free(c.name)
	if c.shards != nil {
		if c.magazineFree(ptr) {
			return
		}
	}
	c.slabFree(ptr)
}

// Registry groups a set of caches for priority-ordered iteration by the
// reclaim worker.
type Registry struct {
	mu     sync.Mutex
	caches []*Cache
	stop   chan struct{}
	stopMu sync.Mutex
}

// NewRegistry returns an empty cache registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds c to the registry, keeping caches sorted by ascending
// reclaim priority (lower reclaims first).
func (r *Registry) Register(c *Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.caches = append(r.caches, c)
	sort.SliceStable(r.caches, func(i, j int) bool {
		return r.caches[i].priority < r.caches[j].priority
	})
}

// Unregister removes c from the registry.
func (r *Registry) Unregister(c *Cache) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cc := range r.caches {
		if cc == c {
			r.caches = append(r.caches[:i], r.caches[i+1:]...)
			return
		}
	}
}

// Caches returns a snapshot of the registered caches in priority order.
func (r *Registry) Caches() []*Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Cache, len(r.caches))
	copy(out, r.caches)
	return out
}

// reclaimOnce ages magazines out of every registered cache's depot.
func (r *Registry) reclaimOnce(now time.Time) {
	for _, c := range r.Caches() {
		n := c.depot.reclaim(now, 5*time.Second, 20*time.Second, func(m *Magazine) {
			c.drainMagazine(m)
		})
		if n > 0 {
			c.metrics.Reclaimed(c.name, n)
			logger.Debugf("slab: reclaimed %d aged magazines from cache %q", n, c.name)
		}
	}
}

// ReclaimNow runs one reclaim pass immediately, ages out of band with
// StartReclaimWorker's interval. internal/lowresource calls this when the
// low-resource manager signals advisory/low/critical pressure, the slab
// side of that same external trigger.
func (r *Registry) ReclaimNow(clk clock.Clock) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	r.reclaimOnce(clk.Now())
}

// StartReclaimWorker starts a background goroutine that wakes every
// interval (driven by clk, so tests can use a SimulatedClock) and reclaims
// aged-out magazines across every registered cache. It returns a stop
// function.
func (r *Registry) StartReclaimWorker(clk clock.Clock, interval time.Duration) (stop func()) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	stopCh := make(chan struct{})

	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-clk.After(interval):
				r.reclaimOnce(clk.Now())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
	}
}

// Destroy is the Go realization of cache_destroy: it is fatal to destroy a
// cache with live allocations outstanding.
func (c *Cache) Destroy() {
	// Count at the public Alloc/Free boundary: rounds parked in magazines
	// were freed by their callers but never reached slabFree.
	live := 0
	c.live.Range(func(_, _ any) bool {
		live++
		return true
	})
	if live != 0 {
		fatalf(c.name, "cache_destroy with %d live allocations", live)
	}
}

// nextColor steps the cache's coloring counter, handed to each newly
// created slab as its color offset.
func (c *Cache) nextColor() int {
	if c.colorMax == 0 {
		return 0
	}
	color := c.colorNext
	c.colorNext += c.align
	if c.colorNext > c.colorMax {
		c.colorNext = 0
	}
	return color
}
