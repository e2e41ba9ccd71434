package slab

import (
	"unsafe"

	"github.com/aejsmith/kiwi-sub001/internal/arena"
)

// magazineCapacity is the number of rounds a magazine holds.
const magazineCapacity = 16

// magazineAlloc implements the per-CPU allocation fast path. ok is false
// if neither the loaded/previous magazines nor the depot can satisfy the
// request, meaning the caller should fall through to the slab layer.
func (c *Cache) magazineAlloc(policy arena.MMFlag) (unsafe.Pointer, bool) {
	shard := &c.shards[shardIndex(len(c.shards))]

	for {
		shard.mu.Lock()

		if shard.loaded != nil {
			if ptr, ok := shard.loaded.Pop(); ok {
				shard.version++
				shard.mu.Unlock()
				c.metrics.MagazineHit(c.name)
				return ptr, true
			}
		}

		if shard.previous != nil && !shard.previous.Empty() {
			shard.loaded, shard.previous = shard.previous, shard.loaded
			shard.mu.Unlock()
			continue
		}

		// Step 4: neither magazine can serve the request locally.
		// Remember the version and release the shard lock before the
		// (possibly blocking) depot call.
		ver := shard.version
		shard.mu.Unlock()

		full, ok := c.depot.getFull()
		if !ok {
			c.metrics.DepotMiss(c.name)
			return nil, false
		}

		shard.mu.Lock()
		if shard.version != ver {
			// Another thread ran on this shard while we were in the
			// depot: undo and restart.
			shard.mu.Unlock()
			c.depot.putFull(full, c.clk.Now())
			continue
		}

		displaced := shard.previous
		shard.previous = shard.loaded
		shard.loaded = full
		ptr, _ := shard.loaded.Pop()
		shard.version++
		shard.mu.Unlock()

		if displaced != nil {
			// The displaced previous magazine, having already failed
			// to serve step 3, is empty; return it to the depot.
			c.depot.putEmpty(displaced, c.clk.Now())
		}

		c.metrics.MagazineHit(c.name)
		return ptr, true
	}
}

// magazineFree implements the free fast path, symmetric to
// magazineAlloc, using empty magazines and returning full ones.
func (c *Cache) magazineFree(ptr unsafe.Pointer) bool {
	shard := &c.shards[shardIndex(len(c.shards))]

	for {
		shard.mu.Lock()

		if shard.loaded != nil && shard.loaded.Push(ptr) {
			shard.version++
			shard.mu.Unlock()
			return true
		}

		if shard.previous != nil && !shard.previous.Full() {
			shard.loaded, shard.previous = shard.previous, shard.loaded
			shard.mu.Unlock()
			continue
		}

		ver := shard.version
		shard.mu.Unlock()

		empty, ok := c.depot.getEmpty()
		if !ok {
			// Allocate a fresh magazine structure. This is an
			// ordinary Go heap allocation (see magazine.go), not one
			// drawn from an ATOMIC-constrained arena, so unlike the
			// source it cannot fail here under memory pressure.
			empty = newMagazine(magazineCapacity)
		}

		shard.mu.Lock()
		if shard.version != ver {
			shard.mu.Unlock()
			c.depot.putEmpty(empty, c.clk.Now())
			continue
		}

		displaced := shard.previous
		shard.previous = shard.loaded
		shard.loaded = empty
		shard.loaded.Push(ptr)
		shard.version++
		shard.mu.Unlock()

		if displaced != nil {
			c.depot.putFull(displaced, c.clk.Now())
		}

		return true
	}
}

// drainMagazine returns every round in m to the slab layer; used by the
// reclaim worker when a magazine ages out of the depot. Must be called
// without the depot lock held, since slabFree acquires the slab lock.
func (c *Cache) drainMagazine(m *Magazine) {
	for {
		ptr, ok := m.Pop()
		if !ok {
			return
		}
		c.slabFree(ptr)
	}
}
