package slab

import (
	"unsafe"

	"github.com/aejsmith/kiwi-sub001/internal/arena"
)

// slabAlloc is the slow path: take the head of the partial list (creating
// a new slab if none), pop a free buffer, move lists as needed, and invoke
// the constructor outside the slab lock.
func (c *Cache) slabAlloc(policy arena.MMFlag) unsafe.Pointer {
	c.mu.Lock()

	page := c.headPartial()
	if page == nil {
		var err error
		page, err = c.createSlabLocked(policy)
		if err != nil {
			c.mu.Unlock()
			return nil
		}
	}

	addr, ok := page.takeFree()
	if !ok {
		// Shouldn't happen: a page only sits on the partial list while
		// it has free objects.
		c.mu.Unlock()
		return nil
	}

	if page.full() {
		c.removeFromList(&c.partial, page)
		c.full = append(c.full, page)
	}

	c.allocated++
	ptr := unsafe.Pointer(addr)

	if c.large {
		c.hash[addr] = &bufctl{addr: ptr, page: page}
	} else {
		if c.smallOwner == nil {
			c.smallOwner = make(map[uintptr]*slabPage)
		}
		c.smallOwner[addr] = page
	}
	c.mu.Unlock()

	if c.ctor != nil {
		c.ctor(ptr)
	}

	return ptr
}

// slabFree is the slow path symmetric to slabAlloc.
func (c *Cache) slabFree(ptr unsafe.Pointer) {
	if c.dtor != nil {
		c.dtor(ptr)
	}

	addr := uintptr(ptr)

	c.mu.Lock()
	defer c.mu.Unlock()

	var page *slabPage
	if c.large {
		bc, ok := c.hash[addr]
		if !ok {
			fatalf(c.name, "free of unknown object %#x (double free or corruption)", addr)
		}
		page = bc.page
		delete(c.hash, addr)
	} else {
		page = c.findSmallPage(addr)
		if page == nil {
			fatalf(c.name, "free of object %#x not owned by any slab (double free or corruption)", addr)
		}
		delete(c.smallOwner, addr)
	}

	if page.owner != c {
		fatalf(c.name, "back-pointer mismatch freeing %#x: slab belongs to a different cache", addr)
	}

	wasFull := page.full()
	page.giveFree(addr)
	c.freed++

	if page.empty() {
		c.destroySlabLocked(page)
	} else if wasFull {
		c.removeFromList(&c.full, page)
		c.partial = append(c.partial, page)
	}
}

// headPartial returns the most recently appended partial page (the last
// element of c.partial), or nil.
func (c *Cache) headPartial() *slabPage {
	if len(c.partial) == 0 {
		return nil
	}
	return c.partial[len(c.partial)-1]
}

// removeFromList splices page out of *list, wherever it is. Both the
// partial and full lists are small Go slices rather than intrusive list
// pointers; list membership is small enough per cache that a linear
// splice is cheap.
func (c *Cache) removeFromList(list *[]*slabPage, page *slabPage) {
	for i, p := range *list {
		if p == page {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// findSmallPage locates the owning page for a small-mode object address.
// A C slab allocator rounds the address down to the slab boundary, since
// both are the base of the same contiguous arena page; Go's GC does not
// guarantee page-granular alignment of heap slices, so this instead keeps
// an explicit address->page index maintained at the alloc/free boundary,
// which gives the identical O(1) lookup without relying on pointer
// arithmetic across a garbage-collected region. The index only holds
// currently-allocated addresses, so a stale address here is the same
// double-free signal the large-mode hash table gives.
func (c *Cache) findSmallPage(addr uintptr) *slabPage {
	return c.smallOwner[addr]
}

// createSlabLocked allocates a new slab from the backing arena and carves
// it into c.objsPer free objects, assigning the next color offset. Called
// with c.mu held; it drops the lock across the arena call so a blocking
// page allocation never holds up other callers touching the cache.
func (c *Cache) createSlabLocked(policy arena.MMFlag) (*slabPage, error) {
	npages := c.slabSize / c.arena.PageSize()
	if npages < 1 {
		npages = 1
	}

	color := c.nextColor()

	c.mu.Unlock()
	region, err := c.arena.AllocPages(npages, policy)
	c.mu.Lock()

	if err != nil {
		return nil, err
	}

	page := &slabPage{
		region: region,
		color:  color,
		owner:  c,
	}

	usable := len(region) - color
	n := usable / c.size
	if n > c.objsPer {
		n = c.objsPer
	}

	for i := 0; i < n; i++ {
		off := color + i*c.size
		addr := uintptr(addrOf(region, off))
		page.freeList = append(page.freeList, addr)
	}

	c.partial = append(c.partial, page)
	return page, nil
}

// destroySlabLocked releases an empty slab's pages back to the arena.
// Called with c.mu held.
func (c *Cache) destroySlabLocked(page *slabPage) {
	c.removeFromList(&c.partial, page)
	c.removeFromList(&c.full, page)
	c.arena.FreePages(page.region)
}
