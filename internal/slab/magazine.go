package slab

import (
	"time"
	"unsafe"
)

// Magazine is a small stack of objects, the unit the per-CPU layer and the
// depot exchange in bulk. Unlike the slab metadata, a Magazine holds a Go
// slice header, which cannot safely be carved out of a raw byte arena
// without violating the garbage collector's tracking of pointers;
// magazines are therefore ordinary Go heap allocations rather than
// objects drawn from a slab cache.
type Magazine struct {
	rounds   []unsafe.Pointer
	lastUsed time.Time
}

func newMagazine(capacity int) *Magazine {
	return &Magazine{rounds: make([]unsafe.Pointer, 0, capacity)}
}

// Push stores ptr in the magazine, returning false if it is already full.
func (m *Magazine) Push(ptr unsafe.Pointer) bool {
	if len(m.rounds) == cap(m.rounds) {
		return false
	}
	m.rounds = append(m.rounds, ptr)
	return true
}

// Pop removes and returns the most recently pushed object.
func (m *Magazine) Pop() (unsafe.Pointer, bool) {
	n := len(m.rounds)
	if n == 0 {
		return nil, false
	}
	ptr := m.rounds[n-1]
	m.rounds[n-1] = nil
	m.rounds = m.rounds[:n-1]
	return ptr, true
}

func (m *Magazine) Len() int { return len(m.rounds) }

func (m *Magazine) Full() bool { return len(m.rounds) == cap(m.rounds) }

func (m *Magazine) Empty() bool { return len(m.rounds) == 0 }
