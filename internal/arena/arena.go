// Package arena abstracts the backing store the slab allocator obtains
// page-sized, page-multiple regions from. The underlying kernel
// virtual-memory arena is out of scope here; only this facade is. A real
// kernel would wire this to kmem_alloc/kmem_free; this repo ships a
// heap-backed implementation used by tests and the demo CLI.
package arena

import "golang.org/x/sys/unix"

// MMFlag is the allocation policy passed to AllocPages.
type MMFlag int

const (
	// MMBoot is permitted before the scheduler exists.
	MMBoot MMFlag = iota
	// MMKernel may sleep.
	MMKernel
	// MMAtomic forbids the backing arena from sleeping.
	MMAtomic
	// MMNoWait is like MMAtomic but used for a best-effort fast path.
	MMNoWait

	// MMNoFailBit, OR'd into any of the above, means the caller cannot
	// proceed if the allocation fails; the allocator aborts the kernel
	// rather than returning nil.
	MMNoFailBit MMFlag = 1 << 8
)

// CanSleep reports whether policy permits the arena to block.
func (f MMFlag) CanSleep() bool {
	base := f &^ MMNoFailBit
	return base == MMBoot || base == MMKernel
}

// NoFail reports whether the MMNoFailBit is set.
func (f MMFlag) NoFail() bool {
	return f&MMNoFailBit != 0
}

// Arena is the interface the slab allocator's slab layer consumes.
type Arena interface {
	// AllocPages returns a zeroed region of npages*PageSize() bytes, or an
	// error if the policy disallows the request (e.g. an atomic caller
	// hitting a path that must sleep).
	AllocPages(npages int, policy MMFlag) ([]byte, error)

	// FreePages releases a region previously returned by AllocPages.
	FreePages(region []byte)

	// PageSize returns the arena's page granularity.
	PageSize() int
}

// DefaultPageSize returns the host's page size via
// golang.org/x/sys/unix.Getpagesize, falling back to 4096 if the
// platform call fails.
func DefaultPageSize() int {
	if sz := unix.Getpagesize(); sz > 0 {
		return sz
	}
	return 4096
}
