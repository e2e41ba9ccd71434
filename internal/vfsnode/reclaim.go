package vfsnode

// ReclaimLevel is the low-resource-manager pressure level passed to
// Reclaim.
type ReclaimLevel int

const (
	ReclaimAdvisory ReclaimLevel = iota
	ReclaimLow
	ReclaimCritical
)

// targetFraction is the proportion of the global unused count each level
// targets: advisory ≈2%, low ≈10%, critical all of it.
func (lvl ReclaimLevel) targetFraction() float64 {
	switch lvl {
	case ReclaimAdvisory:
		return 0.02
	case ReclaimLow:
		return 0.10
	default:
		return 1.0
	}
}

// Reclaim is the registered low-memory reclaimer callback: it walks the
// global unused-node list oldest-first, freeing nodes until it reaches
// level's target fraction. It returns the number of nodes actually
// destroyed.
func (r *Registry) Reclaim(level ReclaimLevel) int {
	r.unusedMu.Lock()
	total := r.unusedCount
	r.unusedMu.Unlock()

	target := int(float64(total) * level.targetFraction())
	if level == ReclaimCritical {
		target = total
	}
	if target <= 0 {
		return 0
	}

	freed := 0
	attempts := 0
	maxAttempts := target * 4 // bound the loop against unflushable nodes cycling forever

	for freed < target && attempts < maxAttempts {
		attempts++

		// Step 1: take the head (oldest) of the global unused list.
		r.unusedMu.Lock()
		front := r.unused.Front()
		if front == nil {
			r.unusedMu.Unlock()
			break
		}
		n := front.Value.(*Node)
		r.unusedMu.Unlock()

		mount := n.Mount
		if mount == nil {
			// Can't happen for a node on the unused list (only
			// attached nodes are filed there), but guard anyway.
			continue
		}

		// Step 2: mount lock before re-checking refcount, since a mount
		// lock must always be acquired before the global unused-node
		// list lock; the global list was already released above.
		mount.mu.Lock()
		if n.refCount != 0 {
			// Looked up by someone else meanwhile; nothing to do,
			// the lookup path already unfiled it from both lists.
			mount.mu.Unlock()
			continue
		}

		st := r.nodeFreeLocked(mount, n)
		if st != Ok {
			// Step 3: can't spin on an unflushable node -- put it
			// back at the tail without decrementing the counter.
			r.unusedMu.Lock()
			r.unused.MoveToBack(front)
			r.unusedMu.Unlock()
			mount.mu.Unlock()
			continue
		}
		mount.mu.Unlock()

		freed++
		r.metrics.NodeEvicted(1)
	}

	return freed
}

// UnusedCount returns the current size of the global unused-node list.
func (r *Registry) UnusedCount() int {
	r.unusedMu.Lock()
	defer r.unusedMu.Unlock()
	return r.unusedCount
}
