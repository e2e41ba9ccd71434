// Package radix implements a string-keyed name → value map suited to
// directory-entry caches and similar name → value lookups. It wraps
// github.com/hashicorp/go-immutable-radix, swapping the tree's root under
// a mutex on each mutation. Readers (Get/Len/WalkPrefix) take the same
// mutex only long enough to copy the current root pointer, then search
// that immutable snapshot without the lock. A reader can therefore wait
// while a writer holds the mutex for its Insert or Delete, but never for
// the duration of another reader's search.
package radix

import (
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// Tree is a concurrent-read, serialized-write name → value map.
type Tree struct {
	mu   sync.Mutex
	root *iradix.Tree
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: iradix.New()}
}

// Insert associates value with key, returning the previous value (if any).
func (t *Tree) Insert(key string, value any) (prev any, replaced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	newRoot, prev, replaced := t.root.Insert([]byte(key), value)
	t.root = newRoot
	return prev, replaced
}

// Get looks up key. Safe to call concurrently with Insert/Delete.
func (t *Tree) Get(key string) (value any, ok bool) {
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()

	return root.Get([]byte(key))
}

// Delete removes key, returning the value that was present (if any).
func (t *Tree) Delete(key string) (prev any, deleted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	newRoot, prev, deleted := t.root.Delete([]byte(key))
	t.root = newRoot
	return prev, deleted
}

// Len returns the number of entries currently in the tree.
func (t *Tree) Len() int {
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()

	return root.Len()
}

// WalkPrefix calls fn for every key having the given prefix, in
// lexicographic order, stopping early if fn returns true.
func (t *Tree) WalkPrefix(prefix string, fn func(key string, value any) (stop bool)) {
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()

	root.Root().WalkPrefix([]byte(prefix), func(k []byte, v any) bool {
		return fn(string(k), v)
	})
}
