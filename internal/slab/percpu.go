package slab

import (
	"sync"
	"unsafe"
)

// numShards is the width of the per-CPU magazine array. Real hardware would
// size this to the number of CPUs; it is fixed for the lifetime of a Cache,
// same as the number of CPUs is fixed for the lifetime of a boot, rather
// than resized dynamically.
func numShards() int {
	n := numCPUHint()
	if n < 1 {
		n = 1
	}
	return n
}

// perCPUSlot holds the two magazines (loaded, previous) and a version
// counter for a single logical CPU. Go has no supported way to pin a
// goroutine to a CPU and disable its preemption, so this repo serializes
// a slot with an ordinary mutex instead; the version counter is kept
// anyway, since it is what lets the slow path detect that a shard was
// mutated by someone else while it slept inside a depot call, whether the
// serialization mechanism is a disabled-preemption window or a mutex. The
// trailing padding brings each slot to 128 bytes, so the 32 bytes of
// fields in neighboring slots never share a 64-byte cache line under real
// concurrent access.
type perCPUSlot struct {
	mu       sync.Mutex
	loaded   *Magazine
	previous *Magazine
	version  uint64
	_        [96]byte
}

// shardIndex picks a pseudo-CPU for the calling goroutine. It hashes the
// address of a stack-local variable, which is cheap and — usefully for
// this model — not guaranteed to be stable across calls from the same
// goroutine, since Go may relocate growing stacks between calls. That
// mirrors real preemption moving a thread to a different CPU mid-operation,
// which is exactly the race the version counter exists to catch.
func shardIndex(n int) int {
	var x byte
	h := uintptr(unsafe.Pointer(&x))
	return int((h >> 4) % uintptr(n))
}
