package memfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aejsmith/kiwi-sub001/internal/vfsnode"
)

type fakeDevice struct{ name string }

func (d fakeDevice) Name() string { return d.name }

func newTestRegistry(t *testing.T) (*vfsnode.Registry, *Driver) {
	t.Helper()
	r := vfsnode.NewRegistry(nil, nil)
	d := New()
	require.Equal(t, vfsnode.Ok, r.RegisterFsType(d.FsType("memfs")))
	_, status := r.Mount(vfsnode.MountRequest{TargetPath: "/", TypeName: "memfs"})
	require.Equal(t, vfsnode.Ok, status)
	return r, d
}

// createAtRoot creates name under the root directory, handling the root
// reference Create needs.
func createAtRoot(t *testing.T, r *vfsnode.Registry, name string, typ vfsnode.NodeType, target string) {
	t.Helper()
	root := r.RootNode()
	require.Equal(t, vfsnode.Ok, r.Create(root, name, typ, target))
	require.Equal(t, vfsnode.Ok, r.NodeRelease(root))
}

func TestMemfs_CreateLookupReadWrite(t *testing.T) {
	r, _ := newTestRegistry(t)

	createAtRoot(t, r, "hello.txt", vfsnode.TypeFile, "")

	wantFile := vfsnode.TypeFile
	node, status := r.Lookup(r.RootNode(), "/hello.txt", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)

	h := vfsnode.OpenHandle(node, vfsnode.OpenRead|vfsnode.OpenWrite, false)
	n, status := h.Write([]byte("hi"))
	require.Equal(t, vfsnode.Ok, status)
	assert.Equal(t, 2, n)

	buf := make([]byte, 2)
	n, status = h.PRead(buf, 0)
	require.Equal(t, vfsnode.Ok, status)
	assert.Equal(t, "hi", string(buf[:n]))

	require.Equal(t, vfsnode.Ok, r.Close(h))
}

func TestMemfs_DirectoryListing(t *testing.T) {
	r, _ := newTestRegistry(t)

	createAtRoot(t, r, "a", vfsnode.TypeFile, "")
	createAtRoot(t, r, "b", vfsnode.TypeDirectory, "")

	h := vfsnode.OpenHandle(r.RootNode(), 0, true)

	names := map[string]bool{}
	for {
		entry, status := h.ReadEntry(h.Node)
		if status != vfsnode.Ok {
			break
		}
		names[entry.Name] = true
	}
	assert.True(t, names["."])
	assert.True(t, names[".."])
	assert.True(t, names["a"])
	assert.True(t, names["b"])

	require.Equal(t, vfsnode.Ok, r.Close(h))
}

func TestMemfs_SymlinkResolution(t *testing.T) {
	r, _ := newTestRegistry(t)

	createAtRoot(t, r, "target", vfsnode.TypeFile, "")
	createAtRoot(t, r, "link", vfsnode.TypeSymlink, "/target")

	wantFile := vfsnode.TypeFile
	node, status := r.Lookup(r.RootNode(), "/link", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)
	assert.Equal(t, vfsnode.TypeFile, node.Type)

	require.Equal(t, vfsnode.Ok, r.NodeRelease(node))
}

func TestMemfs_UnlinkRemovesEntry(t *testing.T) {
	r, _ := newTestRegistry(t)

	createAtRoot(t, r, "doomed", vfsnode.TypeFile, "")

	wantFile := vfsnode.TypeFile
	node, status := r.Lookup(r.RootNode(), "/doomed", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)

	root := r.RootNode()
	status = r.Unlink(root, "doomed", node)
	require.Equal(t, vfsnode.Ok, status)
	require.Equal(t, vfsnode.Ok, r.NodeRelease(root))

	_, status = r.Lookup(r.RootNode(), "/doomed", true, &wantFile)
	assert.Equal(t, vfsnode.NotFound, status)
}

// A node evicted from the cache while still linked must keep its backing
// data: only an unlinked node's storage is destroyed by free.
func TestMemfs_ReclaimKeepsLinkedData(t *testing.T) {
	r, _ := newTestRegistry(t)

	createAtRoot(t, r, "keep", vfsnode.TypeFile, "")

	wantFile := vfsnode.TypeFile
	node, status := r.Lookup(r.RootNode(), "/keep", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)

	h := vfsnode.OpenHandle(node, vfsnode.OpenWrite, false)
	_, status = h.Write([]byte("persist"))
	require.Equal(t, vfsnode.Ok, status)
	require.Equal(t, vfsnode.Ok, r.Close(h))

	// Evict the cached node, then look it up again through read_node.
	r.Reclaim(vfsnode.ReclaimCritical)

	node, status = r.Lookup(r.RootNode(), "/keep", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)

	h = vfsnode.OpenHandle(node, vfsnode.OpenRead, false)
	buf := make([]byte, 7)
	n, status := h.PRead(buf, 0)
	require.Equal(t, vfsnode.Ok, status)
	assert.Equal(t, "persist", string(buf[:n]))

	require.Equal(t, vfsnode.Ok, r.Close(h))
}

func TestMemfs_ResizeAndInfo(t *testing.T) {
	r, _ := newTestRegistry(t)
	createAtRoot(t, r, "sized", vfsnode.TypeFile, "")

	wantFile := vfsnode.TypeFile
	node, status := r.Lookup(r.RootNode(), "/sized", true, &wantFile)
	require.Equal(t, vfsnode.Ok, status)

	h := vfsnode.OpenHandle(node, vfsnode.OpenWrite, false)
	require.Equal(t, vfsnode.Ok, h.Resize(42))

	var info vfsnode.NodeInfo
	require.Equal(t, vfsnode.Ok, h.Info(&info))
	assert.EqualValues(t, 42, info.Size)

	require.Equal(t, vfsnode.Ok, r.Close(h))
}
