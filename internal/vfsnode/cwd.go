package vfsnode

import "strings"

// Cwd returns a new reference to the process's current working
// directory, suitable as the starting node for Lookup (which consumes
// it). Callers outside this package (internal/kernel) use this instead
// of reaching into IOContext directly.
func (r *Registry) Cwd() *Node {
	r.IO.mu.RLock()
	defer r.IO.mu.RUnlock()
	r.nodeGetUnchecked(r.IO.cwd)
	return r.IO.cwd
}

// RootNode returns a new reference to the process root, mirroring Cwd.
func (r *Registry) RootNode() *Node {
	r.IO.mu.RLock()
	defer r.IO.mu.RUnlock()
	r.nodeGetUnchecked(r.IO.root)
	return r.IO.root
}

// Getcwd walks upward from the process cwd to its root, resolving each
// ancestor name via repeated ".." + linear directory scan, and writes the
// resulting absolute path into buf. It returns TooSmall if buf is
// undersized, leaving buf's contents unspecified in that case.
func (r *Registry) Getcwd(buf []byte) (int, Status) {
	r.IO.mu.RLock()
	defer r.IO.mu.RUnlock()

	if r.IO.cwd == r.IO.root {
		return copyPath(buf, "/")
	}

	var components []string

	r.nodeGetUnchecked(r.IO.cwd)
	cur := r.IO.cwd

	for cur != r.IO.root {
		// The name to scan for in the parent is the mountpoint's ID when
		// cur is the root of a sub-mount: the parent directory's entries
		// name the shadowed node, not the mounted root that replaced it.
		childID := cur.ID
		if cur.Mount != nil && cur == cur.Mount.Root && cur.Mount.Mountpoint != nil {
			childID = cur.Mount.Mountpoint.ID
		}

		// resolveDotDot consumes cur's reference on every path, success
		// or failure.
		parent, status := r.resolveDotDot(cur)
		if status != Ok {
			return 0, status
		}

		name, status := findNameIn(parent, childID)
		if status != Ok {
			r.NodeRelease(parent)
			return 0, status
		}
		components = append(components, name)
		cur = parent
	}
	r.NodeRelease(cur)

	// components were collected root-ward; reverse them into path order.
	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}

	return copyPath(buf, "/"+strings.Join(components, "/"))
}

// findNameIn performs a linear ReadEntry scan over dir looking for an
// entry whose ID matches id (the reverse of a LookupEntry, which this
// repo's driver table doesn't expose). Directory drivers are expected to
// keep entry counts small enough for this to be acceptable.
func findNameIn(dir *Node, id uint64) (string, Status) {
	if dir.Ops == nil || dir.Ops.ReadEntry == nil {
		return "", NotSupported
	}
	for i := 0; ; i++ {
		entry, status := dir.Ops.ReadEntry(dir, i)
		if status != Ok {
			return "", status
		}
		if entry.ID == id && entry.Name != "." && entry.Name != ".." {
			return entry.Name, Ok
		}
	}
}

func copyPath(buf []byte, path string) (int, Status) {
	if len(path) > len(buf) {
		return 0, TooSmall
	}
	copy(buf, path)
	return len(path), Ok
}

// Setcwd is setcwd: resolves path to a directory and installs it as the
// process cwd, releasing the previous one.
func (r *Registry) Setcwd(path string) Status {
	r.IO.mu.Lock()
	cwd := r.IO.cwd
	r.IO.mu.Unlock()

	r.NodeGet(cwd)
	wantDir := TypeDirectory
	node, status := r.Lookup(cwd, path, true, &wantDir)
	if status != Ok {
		return status
	}

	r.IO.mu.Lock()
	old := r.IO.cwd
	r.IO.cwd = node
	r.IO.mu.Unlock()

	return r.NodeRelease(old)
}

// Setroot is setroot: resolves path to a directory and installs it as
// the process root. The previous cwd is left untouched unless it was the
// previous root; setroot only repoints the root reference.
func (r *Registry) Setroot(path string) Status {
	r.IO.mu.Lock()
	cwd := r.IO.cwd
	r.IO.mu.Unlock()

	r.NodeGet(cwd)
	wantDir := TypeDirectory
	node, status := r.Lookup(cwd, path, true, &wantDir)
	if status != Ok {
		return status
	}

	r.IO.mu.Lock()
	old := r.IO.root
	r.IO.root = node
	r.IO.mu.Unlock()

	return r.NodeRelease(old)
}
