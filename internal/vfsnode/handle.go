package vfsnode

// OpenHandle wraps an already-referenced node in a FileHandle: the
// returned handle owns the reference the caller passed in. isDir selects
// directory-entry semantics for Seek and the Read path below.
func OpenHandle(node *Node, flags OpenFlag, isDir bool) *FileHandle {
	return &FileHandle{Flags: flags, Node: node, isDir: isDir}
}

// Close releases the handle's node reference.
func (r *Registry) Close(h *FileHandle) Status {
	return r.NodeRelease(h.Node)
}

// Read reads from the handle's current offset and advances it by the
// number of bytes actually transferred. A zero-length buffer returns Ok
// with n == 0 without advancing the offset or touching the driver.
func (h *FileHandle) Read(buf []byte) (int, Status) {
	if len(buf) == 0 {
		return 0, Ok
	}
	if h.Flags&OpenRead == 0 {
		return 0, PermDenied
	}
	if h.isDir {
		return 0, NotSupported
	}
	if h.Node.Ops == nil || h.Node.Ops.Read == nil {
		return 0, NotSupported
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, status := h.Node.Ops.Read(h.Node, buf, h.offset, h.Flags&OpenNonBlock != 0)
	if n > 0 {
		h.offset += int64(n)
	}
	return n, status
}

// PRead is pread: an explicit-offset read that never touches the
// handle's own offset.
func (h *FileHandle) PRead(buf []byte, offset int64) (int, Status) {
	if len(buf) == 0 {
		return 0, Ok
	}
	if offset < 0 {
		return 0, InvalidArg
	}
	if h.Flags&OpenRead == 0 {
		return 0, PermDenied
	}
	if h.isDir {
		return 0, NotSupported
	}
	if h.Node.Ops == nil || h.Node.Ops.Read == nil {
		return 0, NotSupported
	}
	return h.Node.Ops.Read(h.Node, buf, offset, h.Flags&OpenNonBlock != 0)
}

// Write writes at the handle's current offset and advances it; OpenAppend
// forces every write to the node's current end regardless of the
// handle's own offset, then advances the handle offset past it.
func (h *FileHandle) Write(buf []byte) (int, Status) {
	if len(buf) == 0 {
		return 0, Ok
	}
	if h.Flags&OpenWrite == 0 {
		return 0, PermDenied
	}
	if h.isDir {
		return 0, NotSupported
	}
	if h.Node.Mount != nil && h.Node.Mount.ReadOnly() {
		return 0, ReadOnly
	}
	if h.Node.Ops == nil || h.Node.Ops.Write == nil {
		return 0, NotSupported
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	offset := h.offset
	if h.Flags&OpenAppend != 0 {
		var info NodeInfo
		if h.Node.Ops.Info != nil {
			if st := h.Node.Ops.Info(h.Node, &info); st == Ok {
				offset = info.Size
			}
		}
	}

	n, status := h.Node.Ops.Write(h.Node, buf, offset, h.Flags&OpenNonBlock != 0)
	if n > 0 {
		h.offset = offset + int64(n)
	}
	return n, status
}

// PWrite is pwrite, symmetric with PRead.
func (h *FileHandle) PWrite(buf []byte, offset int64) (int, Status) {
	if len(buf) == 0 {
		return 0, Ok
	}
	if offset < 0 {
		return 0, InvalidArg
	}
	if h.Flags&OpenWrite == 0 {
		return 0, PermDenied
	}
	if h.isDir {
		return 0, NotSupported
	}
	if h.Node.Mount != nil && h.Node.Mount.ReadOnly() {
		return 0, ReadOnly
	}
	if h.Node.Ops == nil || h.Node.Ops.Write == nil {
		return 0, NotSupported
	}
	return h.Node.Ops.Write(h.Node, buf, offset, h.Flags&OpenNonBlock != 0)
}

// ReadEntry reads the directory entry at the handle's current offset and
// advances the offset by one. It patches ".." to the mountpoint's ID when
// the handle's node is a non-root mount's root, so a directory listing
// never exposes the shadowed node, and patches any forward entry that
// names an active mountpoint to read back as the shadowing mount's root
// ID instead of the underlying directory entry it replaced.
func (h *FileHandle) ReadEntry(node *Node) (DirEntry, Status) {
	if !h.isDir {
		return DirEntry{}, NotDir
	}
	if node.Ops == nil || node.Ops.ReadEntry == nil {
		return DirEntry{}, NotSupported
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, status := node.Ops.ReadEntry(node, int(h.offset))
	if status != Ok {
		return DirEntry{}, status
	}

	if entry.Name == ".." && node.Mount != nil && node == node.Mount.Root && node.Mount.Mountpoint != nil {
		entry.ID = node.Mount.Mountpoint.ID
	} else if entry.Name != "." && entry.Name != ".." && node.Mount != nil {
		node.Mount.mu.Lock()
		if cached, ok := node.Mount.nodes.Get(nodeEntry{id: entry.ID}); ok && cached.node.Mounted != nil {
			entry.ID = cached.node.Mounted.Root.ID
		}
		node.Mount.mu.Unlock()
	}

	h.offset++
	return entry, Ok
}

// Seek is the seek operation: SET with a negative offset is rejected; ADD
// adjusts relative to the current offset (also rejecting a negative
// result); END requires EntryCount on a directory handle (NotImplemented
// if the driver doesn't supply one) or Info.Size on a file handle.
func (h *FileHandle) Seek(whence SeekWhence, offset int64) (int64, Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekAdd:
		base = h.offset
	case SeekEnd:
		end, status := h.endPosition()
		if status != Ok {
			return 0, status
		}
		base = end
	default:
		return 0, InvalidArg
	}

	newOffset := base + offset
	if newOffset < 0 {
		return 0, InvalidArg
	}

	h.offset = newOffset
	return newOffset, Ok
}

func (h *FileHandle) endPosition() (int64, Status) {
	if h.isDir {
		if h.Node.Ops == nil || h.Node.Ops.EntryCount == nil {
			return 0, NotImplemented
		}
		count, status := h.Node.Ops.EntryCount(h.Node)
		return int64(count), status
	}

	if h.Node.Ops == nil || h.Node.Ops.Info == nil {
		return 0, NotSupported
	}
	var info NodeInfo
	status := h.Node.Ops.Info(h.Node, &info)
	return info.Size, status
}

// Resize is ftruncate-equivalent.
func (h *FileHandle) Resize(newSize int64) Status {
	if h.isDir {
		return NotSupported
	}
	if h.Flags&OpenWrite == 0 {
		return PermDenied
	}
	if h.Node.Mount != nil && h.Node.Mount.ReadOnly() {
		return ReadOnly
	}
	if h.Node.Ops == nil || h.Node.Ops.Resize == nil {
		return NotSupported
	}
	return h.Node.Ops.Resize(h.Node, newSize)
}

// Sync is fsync-equivalent, delegating to the driver's Flush callback.
func (h *FileHandle) Sync() Status {
	if h.Node.Ops == nil || h.Node.Ops.Flush == nil {
		return NotSupported
	}
	return h.Node.Ops.Flush(h.Node)
}

// Info populates out via the driver's Info callback (fs_handle_info).
func (h *FileHandle) Info(out *NodeInfo) Status {
	if h.Node.Ops == nil || h.Node.Ops.Info == nil {
		return NotSupported
	}
	return h.Node.Ops.Info(h.Node, out)
}
