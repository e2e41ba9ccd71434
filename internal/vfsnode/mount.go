package vfsnode

import (
	"container/list"

	"github.com/google/btree"

	"github.com/aejsmith/kiwi-sub001/internal/logger"
)

const rootPath = "/"

// MountRequest bundles the mount() arguments.
type MountRequest struct {
	Device     BlockDevice // optional
	TargetPath string
	TypeName   string  // optional; empty means probe
	UUID       *string // optional volume UUID hint handed to Probe
	Options    string  // comma-separated key=value
}

// Mount is the mount() operation. It returns the new Mount on success.
func (r *Registry) Mount(req MountRequest) (*Mount, Status) {
	opts, readOnly := extractReadOnly(ParseMountOptions(req.Options))

	r.mu.Lock()

	var mountpoint *Node
	if r.rootMount == nil {
		if req.TargetPath != rootPath {
			r.mu.Unlock()
			return nil, InvalidArg
		}
	} else {
		r.mu.Unlock()
		root := r.IO.root
		r.nodeGetUnchecked(root)
		wantDir := TypeDirectory
		target, status := r.Lookup(root, req.TargetPath, true, &wantDir)
		if status != Ok {
			return nil, status
		}
		// Lookup crosses into a mounted filesystem, so a path naming an
		// existing mountpoint resolves to that mount's root.
		if target.Mounted != nil || (target.Mount != nil && target == target.Mount.Root) {
			r.NodeRelease(target)
			return nil, AlreadyExists
		}
		mountpoint = target
		r.mu.Lock()
	}

	fsType := r.lookupFsType(req.TypeName)
	if req.TypeName != "" && fsType == nil {
		r.mu.Unlock()
		if mountpoint != nil {
			r.NodeRelease(mountpoint)
		}
		return nil, UnknownFs
	}
	if fsType == nil {
		if req.Device == nil {
			r.mu.Unlock()
			if mountpoint != nil {
				r.NodeRelease(mountpoint)
			}
			return nil, InvalidArg
		}
		fsType = r.probeFsType(req.Device, req.UUID)
		if fsType == nil {
			r.mu.Unlock()
			if mountpoint != nil {
				r.NodeRelease(mountpoint)
			}
			return nil, UnknownFs
		}
	}

	id, ok := r.mountIDs.Reserve()
	if !ok {
		r.mu.Unlock()
		if mountpoint != nil {
			r.NodeRelease(mountpoint)
		}
		return nil, FsFull
	}

	m := &Mount{
		ID:         uint16(id),
		Type:       fsType,
		Device:     req.Device,
		Mountpoint: mountpoint,
		nodes:      btree.NewG(8, nodeEntryLess),
		used:       list.New(),
		unused:     list.New(),
		registry:   r,
	}
	if readOnly {
		m.Flags |= MountReadOnly
	}
	if mountpoint != nil {
		m.parent = mountpoint.Mount
	}

	fsType.addRef()

	status := fsType.Mount(m, opts)
	if status != Ok {
		fsType.release()
		r.mountIDs.Free(id)
		r.mu.Unlock()
		if mountpoint != nil {
			r.NodeRelease(mountpoint)
		}
		return nil, status
	}

	if m.Root == nil || m.Ops == nil {
		fsType.release()
		r.mountIDs.Free(id)
		r.mu.Unlock()
		if mountpoint != nil {
			r.NodeRelease(mountpoint)
		}
		return nil, FormatInvalid
	}

	m.Root.Mount = m
	m.Root.Ops = m.Ops
	// Baseline 0, same convention as a lookup-miss result: nobody holds a
	// reference yet, the root simply sits live in the used list until a
	// lookup (or, for the very first mount below, the process I/O
	// context) takes one.
	m.Root.refCount = 0
	m.nodes.ReplaceOrInsert(nodeEntry{id: m.Root.ID, node: m.Root})
	m.Root.usedElem = m.used.PushBack(m.Root)

	r.mounts[m.ID] = m
	firstMount := r.rootMount == nil
	if firstMount {
		r.rootMount = m
	}
	r.mu.Unlock()

	if mountpoint != nil {
		mountpoint.Mount.mu.Lock()
		mountpoint.Mounted = m
		mountpoint.Mount.mu.Unlock()
	}

	if firstMount {
		r.IO.mu.Lock()
		r.nodeGetUnchecked(m.Root)
		r.nodeGetUnchecked(m.Root)
		r.IO.root = m.Root
		r.IO.cwd = m.Root
		r.IO.mu.Unlock()
	}

	logger.Debugf("vfs: mounted %q (id %d) at %q", fsType.Name, m.ID, req.TargetPath)
	return m, Ok
}

// Unmount is the unmount() operation.
func (r *Registry) Unmount(targetPath string) Status {
	r.mu.Lock()
	root := r.IO.root
	r.nodeGetUnchecked(root)
	r.mu.Unlock()

	wantDir := TypeDirectory
	target, status := r.Lookup(root, targetPath, true, &wantDir)
	if status != Ok {
		return status
	}

	m := target.Mount
	if m == nil || target != m.Root || m == r.rootMount {
		r.NodeRelease(target)
		return NotMount
	}

	parent := m.parent

	// Parent mount's lock before the child's, consistent with the global
	// mount-registry lock always being acquired outermost.
	if parent != nil {
		parent.mu.Lock()
	}
	m.mu.Lock()

	// Step: drop the reference the resolution above acquired.
	m.Root.refCount--
	if m.Root.refCount != 0 {
		m.mu.Unlock()
		if parent != nil {
			parent.mu.Unlock()
		}
		return InUse
	}

	// Any node elsewhere in the mount still holding a reference (an open
	// handle, or a concurrent lookup in flight) keeps the whole mount
	// busy, not just the root.
	for e := m.used.Front(); e != nil; e = e.Next() {
		if n := e.Value.(*Node); n != m.Root {
			m.mu.Unlock()
			if parent != nil {
				parent.mu.Unlock()
			}
			return InUse
		}
	}

	for e := m.unused.Front(); e != nil; {
		next := e.Next()
		n := e.Value.(*Node)
		if n != m.Root {
			n.detached = true
			if st := r.nodeFreeLocked(m, n); st != Ok {
				m.mu.Unlock()
				if parent != nil {
					parent.mu.Unlock()
				}
				return st
			}
		}
		e = next
	}

	m.Root.detached = true
	if st := r.nodeFreeLocked(m, m.Root); st != Ok {
		m.mu.Unlock()
		if parent != nil {
			parent.mu.Unlock()
		}
		return st
	}

	if m.Mountpoint != nil {
		m.Mountpoint.Mounted = nil
	}

	m.mu.Unlock()
	if parent != nil {
		parent.mu.Unlock()
	}

	// Drop the reference Mount() took on the mountpoint when it attached;
	// deferred until after the locks are released since NodeRelease takes
	// the mountpoint's own mount lock.
	if m.Mountpoint != nil {
		r.NodeRelease(m.Mountpoint)
	}

	if m.Ops != nil && m.Ops.Unmount != nil {
		if st := m.Ops.Unmount(m); st != Ok {
			return st
		}
	}

	r.mu.Lock()
	delete(r.mounts, m.ID)
	r.mountIDs.Free(uint32(m.ID))
	r.mu.Unlock()

	m.Type.release()

	logger.Debugf("vfs: unmounted %q (id %d)", m.Type.Name, m.ID)
	return Ok
}

// CheckInvariants walks the mount's node map and used/unused lists and
// panics on any bookkeeping violation. Call it from tests after an
// observable operation completes; it takes the mount lock itself, so it
// must not be called while the caller already holds it.
//
// Checked invariants:
//   - every node on the used or unused list is present in the by-ID map;
//   - the unused list holds only nodes with refcount 0, and every
//     refcount-0 node outside it is the mount root (which sits in the
//     used list at refcount 0 until something references it);
//   - a node with a non-nil Mounted pointer carries at least one
//     reference;
//   - a node is on exactly one of the two lists.
func (m *Mount) CheckInvariants() {
	m.mu.Lock()
	defer m.mu.Unlock()

	inMap := make(map[*Node]bool)
	m.nodes.Ascend(func(e nodeEntry) bool {
		if e.node.ID != e.id {
			fatalf("check_invariants", "map key %d disagrees with node ID %d", e.id, e.node.ID)
		}
		if e.node.Mounted != nil && e.node.refCount < 1 {
			fatalf("check_invariants", "mountpoint node %d has refcount %d", e.node.ID, e.node.refCount)
		}
		inMap[e.node] = true
		return true
	})

	seen := make(map[*Node]bool)
	for e := m.used.Front(); e != nil; e = e.Next() {
		n := e.Value.(*Node)
		if !inMap[n] {
			fatalf("check_invariants", "used node %d missing from the by-ID map", n.ID)
		}
		if seen[n] {
			fatalf("check_invariants", "node %d filed twice", n.ID)
		}
		seen[n] = true
		if n.refCount == 0 && n != m.Root {
			fatalf("check_invariants", "node %d has refcount 0 on the used list", n.ID)
		}
		if n.inUnused {
			fatalf("check_invariants", "node %d marked unused but filed on the used list", n.ID)
		}
	}
	for e := m.unused.Front(); e != nil; e = e.Next() {
		n := e.Value.(*Node)
		if !inMap[n] {
			fatalf("check_invariants", "unused node %d missing from the by-ID map", n.ID)
		}
		if seen[n] {
			fatalf("check_invariants", "node %d filed twice", n.ID)
		}
		seen[n] = true
		if n.refCount != 0 {
			fatalf("check_invariants", "node %d has refcount %d on the unused list", n.ID, n.refCount)
		}
		if !n.inUnused {
			fatalf("check_invariants", "node %d on the unused list without its unused mark", n.ID)
		}
	}

	for n := range inMap {
		if !seen[n] {
			fatalf("check_invariants", "node %d in the by-ID map but on neither list", n.ID)
		}
	}
}
