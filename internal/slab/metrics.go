package slab

// Metrics receives counters from every Cache that has one attached.
// internal/metrics provides the OpenTelemetry-backed implementation; tests
// and code that doesn't care about observability use noopMetrics.
type Metrics interface {
	Alloc(cacheName string)
	Free(cacheName string)
	MagazineHit(cacheName string)
	DepotMiss(cacheName string)
	Reclaimed(cacheName string, n int)
}

type noopMetrics struct{}

func (noopMetrics) Alloc(string)          {}
func (noopMetrics) Free(string)           {}
func (noopMetrics) MagazineHit(string)    {}
func (noopMetrics) DepotMiss(string)      {}
func (noopMetrics) Reclaimed(string, int) {}
