// Package kernel is the syscall-surface facade: it wires one
// vfsnode.Registry, one slab.Registry, and a handle table together
// behind methods named after the traditional filesystem syscalls they
// implement.
package kernel

import (
	"sync"

	"github.com/aejsmith/kiwi-sub001/internal/idalloc"
	"github.com/aejsmith/kiwi-sub001/internal/slab"
	"github.com/aejsmith/kiwi-sub001/internal/vfsnode"
)

// HandleID identifies an open FileHandle within a Kernel instance.
type HandleID uint32

// maxHandles bounds the handle ID space at 2^20 IDs.
const maxHandles = 1 << 20

// Kernel is the top-level facade. It owns the node cache's slab registry,
// the vfsnode mount/lookup registry, and the open-handle table.
type Kernel struct {
	Slab  *slab.Registry
	Nodes *vfsnode.Registry

	handlesMu sync.Mutex
	handles   map[HandleID]*vfsnode.FileHandle
	handleIDs *idalloc.Allocator
}

// New constructs a Kernel with empty registries. metrics, if non-nil, is
// handed to the vfsnode registry for its node-cache counters and, when it
// also implements slab.Metrics, to the slab cache that backs node
// allocation.
func New(metrics vfsnode.Metrics) *Kernel {
	slabRegistry := slab.NewRegistry()
	return &Kernel{
		Slab:      slabRegistry,
		Nodes:     vfsnode.NewRegistry(slabRegistry, metrics),
		handles:   make(map[HandleID]*vfsnode.FileHandle),
		handleIDs: idalloc.New(maxHandles),
	}
}

// RegisterFsType exposes Registry.RegisterFsType.
func (k *Kernel) RegisterFsType(t *vfsnode.FsType) vfsnode.Status {
	return k.Nodes.RegisterFsType(t)
}

// Mount mounts a filesystem.
func (k *Kernel) Mount(req vfsnode.MountRequest) (*vfsnode.Mount, vfsnode.Status) {
	return k.Nodes.Mount(req)
}

// Unmount unmounts the filesystem mounted at path.
func (k *Kernel) Unmount(path string) vfsnode.Status {
	return k.Nodes.Unmount(path)
}

// Getcwd, Setcwd and Setroot are the process I/O context operations.
func (k *Kernel) Getcwd(buf []byte) (int, vfsnode.Status) { return k.Nodes.Getcwd(buf) }
func (k *Kernel) Setcwd(path string) vfsnode.Status       { return k.Nodes.Setcwd(path) }
func (k *Kernel) Setroot(path string) vfsnode.Status      { return k.Nodes.Setroot(path) }

func (k *Kernel) addHandle(h *vfsnode.FileHandle) (HandleID, vfsnode.Status) {
	id, ok := k.handleIDs.Reserve()
	if !ok {
		return 0, vfsnode.NoMemory
	}

	k.handlesMu.Lock()
	k.handles[HandleID(id)] = h
	k.handlesMu.Unlock()

	return HandleID(id), vfsnode.Ok
}

func (k *Kernel) getHandle(id HandleID) (*vfsnode.FileHandle, vfsnode.Status) {
	k.handlesMu.Lock()
	defer k.handlesMu.Unlock()

	h, ok := k.handles[id]
	if !ok {
		return nil, vfsnode.InvalidHandle
	}
	return h, vfsnode.Ok
}

func (k *Kernel) removeHandle(id HandleID) {
	k.handlesMu.Lock()
	delete(k.handles, id)
	k.handlesMu.Unlock()
	k.handleIDs.Free(uint32(id))
}

// openAt resolves path relative to the process cwd, opens a handle of the
// requested kind and registers it in the handle table.
func (k *Kernel) openAt(path string, wantType *vfsnode.NodeType, flags vfsnode.OpenFlag, isDir bool) (HandleID, vfsnode.Status) {
	cwd := k.Nodes.Cwd()
	node, status := k.Nodes.Lookup(cwd, path, true, wantType)
	if status != vfsnode.Ok {
		return 0, status
	}

	h := vfsnode.OpenHandle(node, flags, isDir)
	id, status := k.addHandle(h)
	if status != vfsnode.Ok {
		k.Nodes.Close(h)
		return 0, status
	}
	return id, vfsnode.Ok
}
