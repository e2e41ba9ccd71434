// Package idalloc implements a bitmap-backed monotonic small-integer ID
// allocator, used both for 16-bit mount IDs and for handle IDs. It is
// backed by github.com/bits-and-blooms/bitset rather than a hand-rolled
// bit array, the same package several container and hypervisor projects
// reach for when they need exactly this kind of bitmap bookkeeping.
package idalloc

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Allocator hands out IDs in [0, limit) with explicit reserve/free. It is
// safe for concurrent use.
type Allocator struct {
	mu    sync.Mutex
	bits  *bitset.BitSet
	limit uint32
	next  uint32 // low-water hint: no bit below next is known free
}

// New returns an allocator over the ID space [0, limit).
func New(limit uint32) *Allocator {
	return &Allocator{
		bits:  bitset.New(uint(limit)),
		limit: limit,
	}
}

// Reserve allocates the lowest-numbered free ID. ok is false if the space
// is exhausted (callers in this repo translate that to FsFull for mount
// IDs and NoMemory for handle IDs).
func (a *Allocator) Reserve() (id uint32, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := a.next; i < a.limit; i++ {
		if !a.bits.Test(uint(i)) {
			a.bits.Set(uint(i))
			a.next = i + 1
			return i, true
		}
	}

	// The hint was stale (ids below `next` may have been freed); fall back
	// to a full scan before declaring exhaustion.
	for i := uint32(0); i < a.next; i++ {
		if !a.bits.Test(uint(i)) {
			a.bits.Set(uint(i))
			a.next = i + 1
			return i, true
		}
	}

	return 0, false
}

// ReserveAt reserves a specific ID, failing if it is out of range or
// already in use.
func (a *Allocator) ReserveAt(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id >= a.limit || a.bits.Test(uint(id)) {
		return false
	}
	a.bits.Set(uint(id))
	return true
}

// Free releases id back to the pool.
func (a *Allocator) Free(id uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bits.Clear(uint(id))
	if id < a.next {
		a.next = id
	}
}

// Count returns the number of IDs currently reserved.
func (a *Allocator) Count() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return uint32(a.bits.Count())
}
