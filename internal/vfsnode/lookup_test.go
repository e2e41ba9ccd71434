package vfsnode

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_NestedPathAndDotDot(t *testing.T) {
	r, _, m := newMountedRegistry()

	require.Equal(t, Ok, r.Create(r.IO.root, "dir", TypeDirectory, ""))

	wantDir := TypeDirectory
	r.NodeGet(r.IO.root)
	dir, status := r.Lookup(r.IO.root, "/dir", true, &wantDir)
	require.Equal(t, Ok, status)

	require.Equal(t, Ok, r.Create(dir, "file", TypeFile, ""))

	wantFile := TypeFile
	r.NodeGet(dir)
	file, status := r.Lookup(dir, "file", true, &wantFile)
	require.Equal(t, Ok, status)
	assert.Equal(t, TypeFile, file.Type)

	// from dir, ".." should land back at root.
	r.NodeGet(dir)
	back, status := r.Lookup(dir, "..", true, nil)
	require.Equal(t, Ok, status)
	assert.Equal(t, r.IO.root.ID, back.ID)

	require.Equal(t, Ok, r.NodeRelease(back))
	require.Equal(t, Ok, r.NodeRelease(file))
	require.Equal(t, Ok, r.NodeRelease(dir))
	m.CheckInvariants()
}

func TestLookup_EmptyPathIsInvalidArg(t *testing.T) {
	r, _, _ := newMountedRegistry()

	r.NodeGet(r.IO.root)
	node, status := r.Lookup(r.IO.root, "", true, nil)
	assert.Nil(t, node)
	assert.Equal(t, InvalidArg, status)
}

func TestLookup_WantTypeMismatch(t *testing.T) {
	r, _, _ := newMountedRegistry()
	require.Equal(t, Ok, r.Create(r.IO.root, "f", TypeFile, ""))

	wantDir := TypeDirectory
	r.NodeGet(r.IO.root)
	node, status := r.Lookup(r.IO.root, "/f", true, &wantDir)
	assert.Nil(t, node)
	assert.Equal(t, NotDir, status)
}

func TestLookup_SymlinkRecursionLimit(t *testing.T) {
	r, _, _ := newMountedRegistry()

	// a -> b -> a: an unbroken symlink cycle must hit SymlinkLimit rather
	// than recursing forever.
	require.Equal(t, Ok, r.Create(r.IO.root, "a", TypeSymlink, "/b"))
	require.Equal(t, Ok, r.Create(r.IO.root, "b", TypeSymlink, "/a"))

	r.NodeGet(r.IO.root)
	node, status := r.Lookup(r.IO.root, "/a", true, nil)
	assert.Nil(t, node)
	assert.Equal(t, SymlinkLimit, status)
}

// A chain of exactly SymlinkLimitMax links resolves; one more hop is
// rejected with SymlinkLimit.
func TestLookup_SymlinkDepthBoundary(t *testing.T) {
	r, _, _ := newMountedRegistry()

	require.Equal(t, Ok, r.Create(r.IO.root, "t0", TypeFile, ""))
	prev := "t0"
	for i := 1; i <= SymlinkLimitMax; i++ {
		name := fmt.Sprintf("l%d", i)
		require.Equal(t, Ok, r.Create(r.IO.root, name, TypeSymlink, prev))
		prev = name
	}

	wantFile := TypeFile
	r.NodeGet(r.IO.root)
	node, status := r.Lookup(r.IO.root, "/"+prev, true, &wantFile)
	require.Equal(t, Ok, status)
	assert.Equal(t, TypeFile, node.Type)
	require.Equal(t, Ok, r.NodeRelease(node))

	require.Equal(t, Ok, r.Create(r.IO.root, "over", TypeSymlink, prev))
	r.NodeGet(r.IO.root)
	node, status = r.Lookup(r.IO.root, "/over", true, nil)
	assert.Nil(t, node)
	assert.Equal(t, SymlinkLimit, status)
}

func TestLookup_SlashesOnlyResolvesProcessRoot(t *testing.T) {
	r, _, _ := newMountedRegistry()

	r.NodeGet(r.IO.root)
	node, status := r.Lookup(r.IO.root, "///", true, nil)
	require.Equal(t, Ok, status)
	assert.Equal(t, r.IO.root.ID, node.ID)
	require.Equal(t, Ok, r.NodeRelease(node))
}

func TestLookup_ConcurrentMissDeduplicates(t *testing.T) {
	r, _, _ := newMountedRegistry()
	require.Equal(t, Ok, r.Create(r.IO.root, "shared", TypeFile, ""))

	const n = 50
	var wg sync.WaitGroup
	nodes := make([]*Node, n)
	statuses := make([]Status, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wantFile := TypeFile
			r.NodeGet(r.IO.root)
			nodes[i], statuses[i] = r.Lookup(r.IO.root, "/shared", true, &wantFile)
		}(i)
	}
	wg.Wait()

	var id uint64
	for i := 0; i < n; i++ {
		require.Equal(t, Ok, statuses[i])
		require.NotNil(t, nodes[i])
		id = nodes[i].ID
		assert.Equal(t, id, nodes[i].ID)
	}

	entry, ok := r.rootMount.nodes.Get(nodeEntry{id: id})
	require.True(t, ok)
	assert.Equal(t, n, entry.node.refCount)

	for i := 0; i < n; i++ {
		require.Equal(t, Ok, r.NodeRelease(nodes[i]))
	}
}

// A miss whose map check raced a completing founder re-enters the miss
// path for an ID that is already cached (the singleflight key has
// cleared by then). The second founder must reuse the cached node, never
// invoke the driver again, and never evict the live entry from the map.
func TestLookup_SecondFounderReusesCachedNode(t *testing.T) {
	r, fs, m := newMountedRegistry()
	require.Equal(t, Ok, r.Create(r.IO.root, "raced", TypeFile, ""))

	id, status := fs.lookupEntry(r.IO.root, "raced")
	require.Equal(t, Ok, status)

	// The create above already cached the node, so each of these calls is
	// a fresh singleflight founder that finds the ID present -- the exact
	// state a lost map-check race produces.
	n1, status := r.resolveChildMiss(m, id)
	require.Equal(t, Ok, status)
	n2, status := r.resolveChildMiss(m, id)
	require.Equal(t, Ok, status)

	assert.Same(t, n1, n2)
	assert.Equal(t, 0, fs.readNodeCalls, "driver read_node must not re-run for a cached ID")

	entry, ok := m.nodes.Get(nodeEntry{id: id})
	require.True(t, ok)
	assert.Same(t, n1, entry.node)
	assert.Equal(t, 2, n1.refCount)

	require.Equal(t, Ok, r.NodeRelease(n1))
	require.Equal(t, Ok, r.NodeRelease(n2))
	m.CheckInvariants()
}

func TestLookup_AcrossMountBoundary(t *testing.T) {
	r, _, _ := newMountedRegistry()
	require.Equal(t, Ok, r.Create(r.IO.root, "mnt", TypeDirectory, ""))

	subFs := newTestFs()
	subType := &FsType{Name: "subfs", Mount: subFs.mountFn}
	r.RegisterFsType(subType)

	sub, status := r.Mount(MountRequest{TargetPath: "/mnt", TypeName: "subfs", Device: testDevice{"dev1"}})
	require.Equal(t, Ok, status)

	wantDir := TypeDirectory
	r.NodeGet(r.IO.root)
	mnt, status := r.Lookup(r.IO.root, "/mnt", true, &wantDir)
	require.Equal(t, Ok, status)
	assert.Equal(t, sub.Root.ID, mnt.ID)
	assert.Equal(t, sub, mnt.Mount)

	require.Equal(t, Ok, r.NodeRelease(mnt))
}
