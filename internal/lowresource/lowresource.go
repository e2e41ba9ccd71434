// Package lowresource models a low-resource manager (LRM): a supervisor
// that invokes registered reclaim callbacks at advisory, low and critical
// memory pressure. A real kernel's LRM watches free-page counts and wakes
// reclaimers asynchronously; this package stops at the callback-dispatch
// contract itself, so Manager only exposes the synchronous Notify entry
// point a caller (the demo CLI, a test, or a future real monitor) drives.
//
// The node cache allocates its bookkeeping structures from the slab
// allocator and registers a reclaimer that frees unused nodes, so one
// external pressure signal needs to drain both the node cache and the
// slab depots; Manager is the single call site that does both.
package lowresource

import (
	"github.com/aejsmith/kiwi-sub001/internal/clock"
	"github.com/aejsmith/kiwi-sub001/internal/slab"
	"github.com/aejsmith/kiwi-sub001/internal/vfsnode"
)

// Level mirrors vfsnode.ReclaimLevel; it is redeclared here rather than
// aliased so this package's public surface doesn't leak a vfsnode import
// requirement onto callers that only care about triggering reclaim.
type Level int

const (
	Advisory Level = iota
	Low
	Critical
)

func (l Level) toVFS() vfsnode.ReclaimLevel {
	switch l {
	case Low:
		return vfsnode.ReclaimLow
	case Critical:
		return vfsnode.ReclaimCritical
	default:
		return vfsnode.ReclaimAdvisory
	}
}

// Manager fans a single pressure notification out to every registered
// reclaimer. It is deliberately tiny: it is only a call site, not a
// memory-pressure monitor.
type Manager struct {
	slabs *slab.Registry
	nodes *vfsnode.Registry
	clk   clock.Clock
}

// New wires a Manager to the slab cache registry and the node cache
// registry whose reclaim hooks it will drive.
func New(slabs *slab.Registry, nodes *vfsnode.Registry, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{slabs: slabs, nodes: nodes, clk: clk}
}

// Notify is the LRM's callback-dispatch entry point for the given
// pressure level. It reclaims the node cache first (freeing Node structs
// back to the slab layer) and then ages the slab depots, so a slab slot
// freed by a node reclaim in this pass can also be reclaimed in the same
// call, rather than waiting for the next interval tick.
func (m *Manager) Notify(level Level) (nodesFreed int) {
	if m.nodes != nil {
		nodesFreed = m.nodes.Reclaim(level.toVFS())
	}
	if m.slabs != nil {
		m.slabs.ReclaimNow(m.clk)
	}
	return nodesFreed
}
