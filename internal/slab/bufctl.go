package slab

import "unsafe"

// bufctl is the per-object tracking record used only in "large" mode,
// where the object is too big (or the cache demands it) to host its own
// free-list linkage inline, so it needs a separate allocation and a hash
// table keyed by object address. Small-mode objects never get one of
// these (invariant: the cache's allocation hash table only ever contains
// large-mode entries).
type bufctl struct {
	addr unsafe.Pointer
	page *slabPage
}
