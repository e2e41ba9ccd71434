// Package memfs is an in-memory reference filesystem driver: it
// implements the full vfsnode.DriverOps table over plain Go maps and byte
// slices so internal/kernel's demo CLI and tests have something concrete
// to mount.
package memfs

import (
	"sync"

	"github.com/aejsmith/kiwi-sub001/internal/radix"
	"github.com/aejsmith/kiwi-sub001/internal/vfsnode"
)

const rootID = 1

// node is memfs's own bookkeeping record for one filesystem entry,
// keyed by the same 64-bit ID vfsnode.Node.ID carries. Directories hold
// a radix.Tree for fast name lookup plus a stable order slice so
// read_entry(index) returns entries in a consistent, index-stable
// sequence across calls.
type node struct {
	mu sync.RWMutex

	id     uint64
	typ    vfsnode.NodeType
	parent uint64

	names *radix.Tree        // directories only: child name -> uint64 id
	order []vfsnode.DirEntry // directories only, stable index order

	content []byte // files only
	target  string // symlinks only

	// removed is set by unlink; free only destroys backing storage for
	// removed nodes, since the node cache also calls free when it merely
	// evicts an unused node and the entry must survive for the next
	// read_node miss.
	removed bool
}

// Driver is a single in-memory filesystem instance. One Driver backs
// exactly one mount.
type Driver struct {
	mu     sync.Mutex
	nodes  map[uint64]*node
	nextID uint64

	opsOnce sync.Once
	opsTab  *vfsnode.DriverOps
}

// New constructs an empty memfs instance with a root directory.
func New() *Driver {
	d := &Driver{
		nodes:  make(map[uint64]*node),
		nextID: rootID + 1,
	}
	d.nodes[rootID] = &node{
		id:     rootID,
		typ:    vfsnode.TypeDirectory,
		parent: rootID,
		names:  radix.New(),
	}
	return d
}

// FsType returns a vfsnode.FsType descriptor for this driver, ready to
// pass to Registry.RegisterFsType.
func (d *Driver) FsType(name string) *vfsnode.FsType {
	return &vfsnode.FsType{
		Name:        name,
		Description: "in-memory reference filesystem",
		Probe:       d.probe,
		Mount:       d.mount,
	}
}

func (d *Driver) probe(device vfsnode.BlockDevice, _ *string) bool {
	return device != nil && device.Name() == "memfs"
}

func (d *Driver) mount(mount *vfsnode.Mount, _ []vfsnode.MountOption) vfsnode.Status {
	mount.Ops = d.ops()
	mount.Root = &vfsnode.Node{ID: rootID, Type: vfsnode.TypeDirectory}
	return vfsnode.Ok
}

func (d *Driver) ops() *vfsnode.DriverOps {
	d.opsOnce.Do(func() {
		d.opsTab = d.buildOps()
	})
	return d.opsTab
}

func (d *Driver) buildOps() *vfsnode.DriverOps {
	return &vfsnode.DriverOps{
		ReadNode:    d.readNode,
		LookupEntry: d.lookupEntry,
		ReadEntry:   d.readEntry,
		Create:      d.create,
		Unlink:      d.unlink,
		Read:        d.read,
		Write:       d.write,
		Resize:      d.resize,
		ReadLink:    d.readLink,
		Flush:       func(*vfsnode.Node) vfsnode.Status { return vfsnode.Ok },
		Free:        d.free,
		Info:        d.info,
		EntryCount:  d.entryCount,
		Unmount:     func(*vfsnode.Mount) vfsnode.Status { return vfsnode.Ok },
	}
}

func (d *Driver) get(id uint64) *node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.nodes[id]
}

func (d *Driver) readNode(_ *vfsnode.Mount, id uint64) (*vfsnode.Node, vfsnode.Status) {
	n := d.get(id)
	if n == nil {
		return nil, vfsnode.NotFound
	}
	return &vfsnode.Node{ID: id, Type: n.typ, Ops: d.ops()}, vfsnode.Ok
}

func (d *Driver) lookupEntry(node *vfsnode.Node, name string) (uint64, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return 0, vfsnode.NotFound
	}
	if name == "." {
		return n.id, vfsnode.Ok
	}
	if name == ".." {
		return n.parent, vfsnode.Ok
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.typ != vfsnode.TypeDirectory {
		return 0, vfsnode.NotDir
	}
	v, ok := n.names.Get(name)
	if !ok {
		return 0, vfsnode.NotFound
	}
	return v.(uint64), vfsnode.Ok
}

func (d *Driver) readEntry(node *vfsnode.Node, index int) (vfsnode.DirEntry, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return vfsnode.DirEntry{}, vfsnode.NotFound
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.typ != vfsnode.TypeDirectory {
		return vfsnode.DirEntry{}, vfsnode.NotDir
	}

	synthetic := [2]vfsnode.DirEntry{{ID: n.id, Name: "."}, {ID: n.parent, Name: ".."}}
	if index < len(synthetic) {
		return synthetic[index], vfsnode.Ok
	}
	idx := index - len(synthetic)
	if idx >= len(n.order) {
		return vfsnode.DirEntry{}, vfsnode.NotFound
	}
	return n.order[idx], vfsnode.Ok
}

func (d *Driver) entryCount(node *vfsnode.Node) (int, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return 0, vfsnode.NotFound
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.order) + 2, vfsnode.Ok
}

func (d *Driver) create(parent *vfsnode.Node, name string, typ vfsnode.NodeType, linkTarget string) (*vfsnode.Node, vfsnode.Status) {
	if name == "" || name == "." || name == ".." {
		return nil, vfsnode.InvalidArg
	}

	pn := d.get(parent.ID)
	if pn == nil {
		return nil, vfsnode.NotFound
	}

	pn.mu.Lock()
	if pn.typ != vfsnode.TypeDirectory {
		pn.mu.Unlock()
		return nil, vfsnode.NotDir
	}
	if _, exists := pn.names.Get(name); exists {
		pn.mu.Unlock()
		return nil, vfsnode.AlreadyExists
	}

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.mu.Unlock()

	child := &node{id: id, typ: typ, parent: parent.ID}
	if typ == vfsnode.TypeDirectory {
		child.names = radix.New()
	}
	if typ == vfsnode.TypeSymlink {
		child.target = linkTarget
	}

	pn.names.Insert(name, id)
	pn.order = append(pn.order, vfsnode.DirEntry{ID: id, Name: name})
	pn.mu.Unlock()

	d.mu.Lock()
	d.nodes[id] = child
	d.mu.Unlock()

	return &vfsnode.Node{ID: id, Type: typ, Ops: d.ops()}, vfsnode.Ok
}

func (d *Driver) unlink(parent *vfsnode.Node, name string, victim *vfsnode.Node) vfsnode.Status {
	pn := d.get(parent.ID)
	if pn == nil {
		return vfsnode.NotFound
	}

	cn := d.get(victim.ID)

	pn.mu.Lock()
	v, ok := pn.names.Get(name)
	if !ok || v.(uint64) != victim.ID {
		pn.mu.Unlock()
		return vfsnode.NotFound
	}

	if cn != nil && cn.typ == vfsnode.TypeDirectory {
		cn.mu.RLock()
		empty := len(cn.order) == 0
		cn.mu.RUnlock()
		if !empty {
			pn.mu.Unlock()
			return vfsnode.InUse
		}
	}

	pn.names.Delete(name)
	for i, e := range pn.order {
		if e.Name == name {
			pn.order = append(pn.order[:i], pn.order[i+1:]...)
			break
		}
	}
	pn.mu.Unlock()

	if cn != nil {
		cn.mu.Lock()
		cn.removed = true
		cn.mu.Unlock()
	}

	return vfsnode.Ok
}

func (d *Driver) read(node *vfsnode.Node, buf []byte, offset int64, _ bool) (int, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return 0, vfsnode.NotFound
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.typ != vfsnode.TypeFile {
		return 0, vfsnode.NotSupported
	}
	if offset < 0 {
		return 0, vfsnode.InvalidArg
	}
	if offset >= int64(len(n.content)) {
		return 0, vfsnode.Ok
	}
	return copy(buf, n.content[offset:]), vfsnode.Ok
}

func (d *Driver) write(node *vfsnode.Node, buf []byte, offset int64, _ bool) (int, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return 0, vfsnode.NotFound
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.typ != vfsnode.TypeFile {
		return 0, vfsnode.NotSupported
	}
	if offset < 0 {
		return 0, vfsnode.InvalidArg
	}

	end := offset + int64(len(buf))
	if end > int64(len(n.content)) {
		grown := make([]byte, end)
		copy(grown, n.content)
		n.content = grown
	}
	return copy(n.content[offset:end], buf), vfsnode.Ok
}

func (d *Driver) resize(node *vfsnode.Node, newSize int64) vfsnode.Status {
	if newSize < 0 {
		return vfsnode.InvalidArg
	}
	n := d.get(node.ID)
	if n == nil {
		return vfsnode.NotFound
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.typ != vfsnode.TypeFile {
		return vfsnode.NotSupported
	}
	grown := make([]byte, newSize)
	copy(grown, n.content)
	n.content = grown
	return vfsnode.Ok
}

func (d *Driver) readLink(node *vfsnode.Node) (string, vfsnode.Status) {
	n := d.get(node.ID)
	if n == nil {
		return "", vfsnode.NotFound
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.typ != vfsnode.TypeSymlink {
		return "", vfsnode.NotSymlink
	}
	return n.target, vfsnode.Ok
}

func (d *Driver) free(node *vfsnode.Node) vfsnode.Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.nodes[node.ID]
	if n == nil {
		return vfsnode.Ok
	}
	n.mu.RLock()
	removed := n.removed
	n.mu.RUnlock()
	if removed {
		delete(d.nodes, node.ID)
	}
	return vfsnode.Ok
}

func (d *Driver) info(node *vfsnode.Node, out *vfsnode.NodeInfo) vfsnode.Status {
	n := d.get(node.ID)
	if n == nil {
		return vfsnode.NotFound
	}
	n.mu.RLock()
	defer n.mu.RUnlock()

	out.ID = n.id
	out.Type = n.typ
	out.Links = 1
	if n.typ == vfsnode.TypeFile {
		out.Size = int64(len(n.content))
	}
	return vfsnode.Ok
}
