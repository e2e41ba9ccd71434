package vfsnode

// Create is the driver-facing half of fs_file_create/fs_dir_create/
// fs_symlink_create: it calls the driver's Create callback and wires the
// result into the owning mount's node map exactly like a lookup miss
// would, then releases its own reference -- the caller gets nothing
// back, since the create-by-path operations only report status.
func (r *Registry) Create(parent *Node, name string, typ NodeType, linkTarget string) Status {
	if parent.Mount != nil && parent.Mount.ReadOnly() {
		return ReadOnly
	}
	if parent.Ops == nil || parent.Ops.Create == nil {
		return NotSupported
	}

	node, status := parent.Ops.Create(parent, name, typ, linkTarget)
	if status != Ok {
		return status
	}

	mount := parent.Mount
	if mount != nil {
		mount.mu.Lock()
		node.Mount = mount
		node.Ops = parent.Ops
		node.refCount = 1
		mount.nodes.ReplaceOrInsert(nodeEntry{id: node.ID, node: node})
		node.usedElem = mount.used.PushBack(node)
		mount.mu.Unlock()
	}

	// The create call produced a referenced node but the path-based
	// create operations don't hand a reference back to the caller;
	// release it immediately (mirrors the pattern create+close would
	// otherwise require of every caller).
	return r.NodeRelease(node)
}

// Unlink is fs_unlink's driver-facing half.
func (r *Registry) Unlink(parent *Node, name string, node *Node) Status {
	if parent.Mount != nil && parent.Mount.ReadOnly() {
		r.NodeRelease(node)
		return ReadOnly
	}
	if parent.Ops == nil || parent.Ops.Unlink == nil {
		r.NodeRelease(node)
		return NotSupported
	}

	mount := node.Mount
	if mount != nil {
		mount.mu.Lock()
		if node.refCount > 1 {
			mount.mu.Unlock()
			r.NodeRelease(node)
			return InUse
		}
		mount.mu.Unlock()
	}

	status := parent.Ops.Unlink(parent, name, node)
	if status != Ok {
		r.NodeRelease(node)
		return status
	}

	if mount != nil {
		mount.mu.Lock()
		node.removed = true
		mount.mu.Unlock()
	}

	return r.NodeRelease(node)
}

// Info populates out via the driver's Info callback (fs_info,
// fs_handle_info).
func (r *Registry) Info(node *Node, out *NodeInfo) Status {
	if node.Ops == nil || node.Ops.Info == nil {
		return NotSupported
	}
	return node.Ops.Info(node, out)
}
