package kernel

import "github.com/aejsmith/kiwi-sub001/internal/vfsnode"

func typeOf(t vfsnode.NodeType) *vfsnode.NodeType { return &t }

// FileCreate creates a plain file at path.
func (k *Kernel) FileCreate(path string) vfsnode.Status {
	return k.createAt(path, vfsnode.TypeFile, "")
}

// DirCreate creates a directory at path.
func (k *Kernel) DirCreate(path string) vfsnode.Status {
	return k.createAt(path, vfsnode.TypeDirectory, "")
}

// SymlinkCreate creates a symlink at path pointing at target.
func (k *Kernel) SymlinkCreate(path, target string) vfsnode.Status {
	return k.createAt(path, vfsnode.TypeSymlink, target)
}

func (k *Kernel) createAt(path string, typ vfsnode.NodeType, target string) vfsnode.Status {
	dir, name, status := k.splitParent(path)
	if status != vfsnode.Ok {
		return status
	}
	status = k.Nodes.Create(dir, name, typ, target)
	k.Nodes.NodeRelease(dir)
	return status
}

// splitParent resolves path's directory component and returns it as a
// referenced node, leaving the final path component unresolved for the
// caller (Create/Unlink only need the parent directory plus a name).
func (k *Kernel) splitParent(path string) (*vfsnode.Node, string, vfsnode.Status) {
	dirPath, name := splitPath(path)
	if name == "" {
		return nil, "", vfsnode.InvalidArg
	}

	cwd := k.Nodes.Cwd()
	wantDir := vfsnode.TypeDirectory
	dir, status := k.Nodes.Lookup(cwd, dirPath, true, &wantDir)
	if status != vfsnode.Ok {
		return nil, "", status
	}
	return dir, name, vfsnode.Ok
}

func splitPath(path string) (dir, name string) {
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ".", path
	}
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}

// Unlink removes the entry at path.
func (k *Kernel) Unlink(path string) vfsnode.Status {
	dir, name, status := k.splitParent(path)
	if status != vfsnode.Ok {
		return status
	}

	// Lookup consumes a reference; take an extra one so dir is still
	// valid afterwards to pass into Unlink as the parent.
	k.Nodes.NodeGet(dir)
	node, status := k.Nodes.Lookup(dir, name, false, nil)
	if status != vfsnode.Ok {
		k.Nodes.NodeRelease(dir)
		return status
	}

	status = k.Nodes.Unlink(dir, name, node)
	k.Nodes.NodeRelease(dir)
	return status
}

// FileOpen opens the file at path with the given flags.
func (k *Kernel) FileOpen(path string, flags vfsnode.OpenFlag) (HandleID, vfsnode.Status) {
	return k.openAt(path, typeOf(vfsnode.TypeFile), flags, false)
}

// DirOpen opens the directory at path for reading.
func (k *Kernel) DirOpen(path string) (HandleID, vfsnode.Status) {
	return k.openAt(path, typeOf(vfsnode.TypeDirectory), vfsnode.OpenRead, true)
}

// Close closes an open handle.
func (k *Kernel) Close(id HandleID) vfsnode.Status {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return status
	}
	k.removeHandle(id)
	return k.Nodes.Close(h)
}

// FileRead reads from the handle's current offset.
func (k *Kernel) FileRead(id HandleID, buf []byte) (int, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return 0, status
	}
	return h.Read(buf)
}

// FilePRead reads at an explicit offset.
func (k *Kernel) FilePRead(id HandleID, buf []byte, offset int64) (int, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return 0, status
	}
	return h.PRead(buf, offset)
}

// FileWrite writes at the handle's current offset.
func (k *Kernel) FileWrite(id HandleID, buf []byte) (int, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return 0, status
	}
	return h.Write(buf)
}

// FilePWrite writes at an explicit offset.
func (k *Kernel) FilePWrite(id HandleID, buf []byte, offset int64) (int, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return 0, status
	}
	return h.PWrite(buf, offset)
}

// FileResize is ftruncate-equivalent for an open handle.
func (k *Kernel) FileResize(id HandleID, newSize int64) vfsnode.Status {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return status
	}
	return h.Resize(newSize)
}

// DirRead reads the next directory entry from an open handle.
func (k *Kernel) DirRead(id HandleID) (vfsnode.DirEntry, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return vfsnode.DirEntry{}, status
	}
	return h.ReadEntry(h.Node)
}

// HandleSeek repositions an open handle's offset.
func (k *Kernel) HandleSeek(id HandleID, whence vfsnode.SeekWhence, offset int64) (int64, vfsnode.Status) {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return 0, status
	}
	return h.Seek(whence, offset)
}

// HandleInfo populates stat information for an open handle.
func (k *Kernel) HandleInfo(id HandleID, out *vfsnode.NodeInfo) vfsnode.Status {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return status
	}
	return h.Info(out)
}

// HandleSync flushes an open handle's buffered state.
func (k *Kernel) HandleSync(id HandleID) vfsnode.Status {
	h, status := k.getHandle(id)
	if status != vfsnode.Ok {
		return status
	}
	return h.Sync()
}

// SymlinkRead resolves path to a symlink and copies its target into buf,
// without requiring an already-open handle. An undersized buf is reported
// as TooSmall with nothing written, never a truncated target.
func (k *Kernel) SymlinkRead(path string, buf []byte) (int, vfsnode.Status) {
	cwd := k.Nodes.Cwd()
	wantSymlink := vfsnode.TypeSymlink
	node, status := k.Nodes.Lookup(cwd, path, false, &wantSymlink)
	if status != vfsnode.Ok {
		return 0, status
	}
	defer k.Nodes.NodeRelease(node)

	if node.Ops == nil || node.Ops.ReadLink == nil {
		return 0, vfsnode.NotSupported
	}
	target, status := node.Ops.ReadLink(node)
	if status != vfsnode.Ok {
		return 0, status
	}
	if len(target) > len(buf) {
		return 0, vfsnode.TooSmall
	}
	return copy(buf, target), vfsnode.Ok
}

// Info populates stat information for the node at path. follow selects
// whether a final symlink component is resolved or described itself.
func (k *Kernel) Info(path string, follow bool, out *vfsnode.NodeInfo) vfsnode.Status {
	cwd := k.Nodes.Cwd()
	node, status := k.Nodes.Lookup(cwd, path, follow, nil)
	if status != vfsnode.Ok {
		return status
	}
	defer k.Nodes.NodeRelease(node)
	return k.Nodes.Info(node, out)
}

// Link, Rename and Sync are out of scope: cross-mount hard links and
// rename, and a whole-filesystem sync, are not implemented. They exist
// so the facade's method set is complete.
func (k *Kernel) Link(oldPath, newPath string) vfsnode.Status   { return vfsnode.NotImplemented }
func (k *Kernel) Rename(oldPath, newPath string) vfsnode.Status { return vfsnode.NotImplemented }
func (k *Kernel) Sync() vfsnode.Status                          { return vfsnode.NotImplemented }
