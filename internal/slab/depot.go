package slab

import (
	"container/list"
	"sync"
	"time"
)

// depot is the per-cache pool of full and empty magazines shared across all
// CPU shards. It is the handoff point between the fast per-CPU path and the
// slow slab layer, and the thing the reclaim worker ages magazines out of.
type depot struct {
	mu    sync.Mutex
	full  *list.List // of *Magazine, front = most recently returned
	empty *list.List // of *Magazine
}

func newDepot() *depot {
	return &depot{full: list.New(), empty: list.New()}
}

// getFull removes and returns a full magazine, or reports none available.
func (d *depot) getFull() (*Magazine, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.full.Front()
	if e == nil {
		return nil, false
	}
	d.full.Remove(e)
	return e.Value.(*Magazine), true
}

// getEmpty removes and returns an empty magazine, or reports none available.
func (d *depot) getEmpty() (*Magazine, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.empty.Front()
	if e == nil {
		return nil, false
	}
	d.empty.Remove(e)
	return e.Value.(*Magazine), true
}

func (d *depot) putFull(m *Magazine, now time.Time) {
	m.lastUsed = now
	d.mu.Lock()
	d.full.PushFront(m)
	d.mu.Unlock()
}

func (d *depot) putEmpty(m *Magazine, now time.Time) {
	m.lastUsed = now
	d.mu.Lock()
	d.empty.PushFront(m)
	d.mu.Unlock()
}

// reclaim drops magazines older than the given age thresholds, invoking
// drain on each magazine's remaining rounds before discarding it (a full
// magazine still holds live objects that must be returned to the slab
// layer; an empty one has none). Typical thresholds are ~5s for full
// magazines and ~20s for empty ones, parameterized here so tests can use
// a SimulatedClock instead.
//
// drain is called after the depot lock is released: drain ultimately
// calls slabFree, which takes the slab lock, and the depot lock and the
// slab lock of a cache must never be held at the same time.
func (d *depot) reclaim(now time.Time, fullAge, emptyAge time.Duration, drain func(*Magazine)) (reclaimed int) {
	d.mu.Lock()
	aged := popAged(d.full, now, fullAge)
	aged = append(aged, popAged(d.empty, now, emptyAge)...)
	d.mu.Unlock()

	if drain != nil {
		for _, m := range aged {
			drain(m)
		}
	}
	return len(aged)
}

// popAged removes and returns every magazine in l older than maxAge. It
// must be called with the depot lock held.
func popAged(l *list.List, now time.Time, maxAge time.Duration) []*Magazine {
	var aged []*Magazine
	for e := l.Back(); e != nil; {
		prev := e.Prev()
		m := e.Value.(*Magazine)
		if now.Sub(m.lastUsed) >= maxAge {
			l.Remove(e)
			aged = append(aged, m)
		}
		e = prev
	}
	return aged
}
