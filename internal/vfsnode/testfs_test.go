package vfsnode

import "sync"

// testFs is a minimal in-memory driver used only to exercise the vfsnode
// package's own mechanics (mount/lookup/refcount/reclaim) in isolation
// from internal/memfs.
type testFs struct {
	mu            sync.Mutex
	nextID        uint64
	entries       map[uint64]*testEntry
	freed         map[uint64]bool
	readNodeCalls int

	opsOnce sync.Once
	opsTab  *DriverOps
}

type testEntry struct {
	id       uint64
	typ      NodeType
	parent   uint64
	children []DirEntry // in creation order, excluding "." and ".."
	content  []byte
	target   string // symlink target
}

func newTestFs() *testFs {
	fs := &testFs{
		nextID:  1,
		entries: make(map[uint64]*testEntry),
		freed:   make(map[uint64]bool),
	}
	fs.entries[1] = &testEntry{id: 1, typ: TypeDirectory, parent: 1}
	fs.nextID = 2
	return fs
}

func (fs *testFs) ops() *DriverOps {
	fs.opsOnce.Do(func() {
		fs.opsTab = fs.buildOps()
	})
	return fs.opsTab
}

func (fs *testFs) buildOps() *DriverOps {
	return &DriverOps{
		ReadNode:    fs.readNode,
		LookupEntry: fs.lookupEntry,
		ReadEntry:  fs.readEntry,
		Create:     fs.create,
		Unlink:     fs.unlink,
		Read:       fs.read,
		Write:      fs.write,
		Resize:     fs.resize,
		ReadLink:   fs.readLink,
		Flush:      func(*Node) Status { return Ok },
		Free:       fs.free,
		Info:       fs.info,
		EntryCount: fs.entryCount,
	}
}

func (fs *testFs) mountFn(m *Mount, _ []MountOption) Status {
	m.Ops = fs.ops()
	m.Root = &Node{ID: 1, Type: TypeDirectory}
	return Ok
}

func (fs *testFs) readNode(mount *Mount, id uint64) (*Node, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.readNodeCalls++
	e, ok := fs.entries[id]
	if !ok {
		return nil, NotFound
	}
	return &Node{ID: id, Type: e.typ, Ops: fs.ops()}, Ok
}

func (fs *testFs) lookupEntry(node *Node, name string) (uint64, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if name == "." {
		return node.ID, Ok
	}
	e, ok := fs.entries[node.ID]
	if !ok {
		return 0, NotFound
	}
	if name == ".." {
		return e.parent, Ok
	}
	for _, c := range e.children {
		if c.Name == name {
			return c.ID, Ok
		}
	}
	return 0, NotFound
}

func (fs *testFs) readEntry(node *Node, index int) (DirEntry, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return DirEntry{}, NotFound
	}
	synthetic := []DirEntry{{ID: node.ID, Name: "."}, {ID: e.parent, Name: ".."}}
	if index < len(synthetic) {
		return synthetic[index], Ok
	}
	idx := index - len(synthetic)
	if idx >= len(e.children) {
		return DirEntry{}, NotFound
	}
	return e.children[idx], Ok
}

func (fs *testFs) entryCount(node *Node) (int, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return 0, NotFound
	}
	return len(e.children) + 2, Ok
}

func (fs *testFs) create(parent *Node, name string, typ NodeType, linkTarget string) (*Node, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	pe, ok := fs.entries[parent.ID]
	if !ok {
		return nil, NotFound
	}
	for _, c := range pe.children {
		if c.Name == name {
			return nil, AlreadyExists
		}
	}

	id := fs.nextID
	fs.nextID++
	fs.entries[id] = &testEntry{id: id, typ: typ, parent: parent.ID, target: linkTarget}
	pe.children = append(pe.children, DirEntry{ID: id, Name: name})

	return &Node{ID: id, Type: typ, Ops: fs.ops(), refCount: 1}, Ok
}

func (fs *testFs) unlink(parent *Node, name string, node *Node) Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	pe, ok := fs.entries[parent.ID]
	if !ok {
		return NotFound
	}
	for i, c := range pe.children {
		if c.Name == name {
			pe.children = append(pe.children[:i], pe.children[i+1:]...)
			return Ok
		}
	}
	return NotFound
}

func (fs *testFs) read(node *Node, buf []byte, offset int64, _ bool) (int, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return 0, NotFound
	}
	if offset >= int64(len(e.content)) {
		return 0, Ok
	}
	n := copy(buf, e.content[offset:])
	return n, Ok
}

func (fs *testFs) write(node *Node, buf []byte, offset int64, _ bool) (int, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return 0, NotFound
	}
	end := offset + int64(len(buf))
	if end > int64(len(e.content)) {
		grown := make([]byte, end)
		copy(grown, e.content)
		e.content = grown
	}
	n := copy(e.content[offset:end], buf)
	return n, Ok
}

func (fs *testFs) resize(node *Node, newSize int64) Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return NotFound
	}
	grown := make([]byte, newSize)
	copy(grown, e.content)
	e.content = grown
	return Ok
}

func (fs *testFs) readLink(node *Node) (string, Status) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return "", NotFound
	}
	return e.target, Ok
}

func (fs *testFs) free(node *Node) Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.freed[node.ID] = true
	return Ok
}

func (fs *testFs) info(node *Node, out *NodeInfo) Status {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, ok := fs.entries[node.ID]
	if !ok {
		return NotFound
	}
	out.ID = node.ID
	out.Type = e.typ
	out.Size = int64(len(e.content))
	out.Links = 1
	return Ok
}

// testDevice is a trivial BlockDevice used only to drive an explicit
// fs-type mount request through Registry.Mount.
type testDevice struct{ name string }

func (d testDevice) Name() string { return d.name }

// newMountedRegistry builds a Registry with a single root mount backed by
// testFs, ready for lookup/node tests.
func newMountedRegistry() (*Registry, *testFs, *Mount) {
	r := NewRegistry(nil, nil)
	fs := newTestFs()

	fsType := &FsType{
		Name: "testfs",
		Mount: fs.mountFn,
	}
	r.RegisterFsType(fsType)

	m, status := r.Mount(MountRequest{TargetPath: "/", TypeName: "testfs", Device: testDevice{"dev0"}})
	if status != Ok {
		panic("test setup: root mount failed: " + status.String())
	}
	return r, fs, m
}
