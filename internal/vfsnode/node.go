package vfsnode

import "container/list"

// isDetachable reports whether a node whose last reference drops must be
// destroyed via nodeFreeLocked rather than filed onto the unused list: it
// has no mount, it has been removed, or its detached field marks it as
// already pulled out of its mount's maps by an in-progress unmount sweep.
func (n *Node) isDetachable() bool {
	return n.Mount == nil || n.removed || n.detached
}

// NodeGet is node_get: the node must already carry at least one
// reference; a zero-to-one transition is a caller bug and is fatal,
// since those must go through mount-locked lookup instead.
func (r *Registry) NodeGet(n *Node) {
	if n.Mount != nil {
		n.Mount.mu.Lock()
		defer n.Mount.mu.Unlock()
	}

	if n.refCount < 1 {
		fatalf("node_get", "zero-to-one reference transition on node %d outside lookup", n.ID)
	}
	n.refCount++
}

// NodeRelease is node_release. On a refcount reaching zero it either
// files the node onto the unused lists (if it is still attached to a live
// mount) or destroys it immediately via node_free.
func (r *Registry) NodeRelease(n *Node) Status {
	var mount *Mount
	if n.Mount != nil {
		mount = n.Mount
		mount.mu.Lock()
		defer mount.mu.Unlock()
	}

	n.refCount--
	if n.refCount > 0 {
		return Ok
	}
	if n.refCount < 0 {
		fatalf("node_release", "refcount underflow on node %d", n.ID)
	}

	if !n.isDetachable() {
		r.fileUnusedLocked(mount, n)
		return Ok
	}

	// Destroying a node with no cached fallback (no mount, already
	// removed, or already detached) is a fatal invariant violation on
	// driver failure: there is nowhere else to leave the node.
	if st := r.nodeFreeLocked(mount, n); st != Ok {
		fatalf("node_free", "destruction of unattached node %d failed: %s", n.ID, st)
	}
	return Ok
}

// fileUnusedLocked splices n onto its mount's unused list and the global
// LRU-ordered unused list, tracking the global count. Called with
// mount.mu held.
func (r *Registry) fileUnusedLocked(mount *Mount, n *Node) {
	if n.inUnused {
		return
	}

	if n.usedElem != nil {
		mount.used.Remove(n.usedElem)
	}
	n.usedElem = mount.unused.PushBack(n)
	n.inUnused = true

	r.unusedMu.Lock()
	n.globalElem = r.unused.PushBack(n)
	r.unusedCount++
	r.unusedMu.Unlock()
}

// unfileUnusedLocked reverses fileUnusedLocked, used when a lookup finds
// a previously-unused node and promotes it back to used: it splices the
// node off the unused list and appends it to the used list. It is a
// no-op for a node
// that is not currently filed as unused -- a freshly created node (a
// mount's root, or a just-inserted lookup-miss result) sits at refCount 0
// in the used list from the moment it's created, never having gone
// through fileUnusedLocked, so there is nothing to splice. Called with
// mount.mu held.
func (r *Registry) unfileUnusedLocked(mount *Mount, n *Node) {
	if !n.inUnused {
		return
	}

	if n.usedElem != nil {
		mount.unused.Remove(n.usedElem)
	}
	n.usedElem = mount.used.PushBack(n)
	n.inUnused = false

	if n.globalElem != nil {
		r.unusedMu.Lock()
		r.unused.Remove(n.globalElem)
		r.unusedCount--
		r.unusedMu.Unlock()
		n.globalElem = nil
	}
}

// nodeFreeLocked is node_free: driver flush then free, detach from the
// mount's maps, release the node-cache bookkeeping slot. Called with
// mount.mu held if mount != nil. It reports the driver's status rather
// than panicking itself -- callers decide whether a failure is fatal
// (NodeRelease, destroying an unattached node) or recoverable (the
// reclaim hook, which re-queues the node instead).
func (r *Registry) nodeFreeLocked(mount *Mount, n *Node) Status {
	if n.Ops != nil {
		if n.Ops.Flush != nil {
			if st := n.Ops.Flush(n); st != Ok {
				return st
			}
		}
		if n.Ops.Free != nil {
			if st := n.Ops.Free(n); st != Ok {
				return st
			}
		}
	}

	if mount != nil {
		// Delete by ID only if the map entry is actually this node: the
		// entry may point at a different live object for the same ID (a
		// lookup-miss founder that lost a race), and removing it here
		// would strand that node unreachable while still referenced.
		if entry, ok := mount.nodes.Get(nodeEntry{id: n.ID}); ok && entry.node == n {
			mount.nodes.Delete(nodeEntry{id: n.ID})
		}
		removeListElem(mount.used, n.usedElem)
		removeListElem(mount.unused, n.usedElem)
		n.usedElem = nil
	}

	if n.globalElem != nil {
		r.unusedMu.Lock()
		r.unused.Remove(n.globalElem)
		r.unusedCount--
		r.unusedMu.Unlock()
		n.globalElem = nil
	}

	r.freeNode(n)
	return Ok
}

func removeListElem(l *list.List, e *list.Element) {
	if e == nil || e.Value == nil {
		return
	}
	// Only remove if e actually belongs to l; container/list.Remove on a
	// foreign element corrupts both lists, so this is deliberately
	// defensive given a node's usedElem may point into either used or
	// unused depending on its current state.
	for cur := l.Front(); cur != nil; cur = cur.Next() {
		if cur == e {
			l.Remove(e)
			return
		}
	}
}
