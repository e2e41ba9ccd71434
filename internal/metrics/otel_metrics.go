// Package metrics is the OpenTelemetry-backed observability layer:
// package-level meters, per-label-set attribute caching via sync.Map
// (avoiding a fresh attribute.Set allocation on every hot-path counter
// increment), and a constructor that registers every instrument up front
// and joins their creation errors.
//
// OTelMetrics implements both internal/slab.Metrics and
// internal/vfsnode.Metrics, so a single instance wired by internal/kernel
// observes both subsystems, which allocate through the same node cache.
package metrics

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const cacheNameKey = "cache_name"

var (
	slabMeter    = otel.Meter("slab")
	vfsnodeMeter = otel.Meter("vfsnode")

	cacheAttributeSets sync.Map
)

func cacheAttrs(cacheName string) metric.MeasurementOption {
	if v, ok := cacheAttributeSets.Load(cacheName); ok {
		return v.(metric.MeasurementOption)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(attribute.String(cacheNameKey, cacheName)))
	v, _ := cacheAttributeSets.LoadOrStore(cacheName, opt)
	return v.(metric.MeasurementOption)
}

// OTelMetrics is the concrete Metrics implementation for both
// internal/slab and internal/vfsnode.
type OTelMetrics struct {
	cacheAllocCount       metric.Int64Counter
	cacheFreeCount        metric.Int64Counter
	cacheMagazineHitCount metric.Int64Counter
	cacheDepotMissCount   metric.Int64Counter
	cacheReclaimedCount   metric.Int64Counter

	nodeHitCount     metric.Int64Counter
	nodeMissCount    metric.Int64Counter
	nodeEvictedCount metric.Int64Counter
}

// NewOTelMetrics creates and registers every instrument this package
// reports, joining any per-instrument creation error with errors.Join.
func NewOTelMetrics() (*OTelMetrics, error) {
	cacheAllocCount, err1 := slabMeter.Int64Counter("slab/cache_alloc_count",
		metric.WithDescription("The cumulative number of objects allocated from a slab cache."))
	cacheFreeCount, err2 := slabMeter.Int64Counter("slab/cache_free_count",
		metric.WithDescription("The cumulative number of objects freed to a slab cache."))
	cacheMagazineHitCount, err3 := slabMeter.Int64Counter("slab/magazine_hit_count",
		metric.WithDescription("The cumulative number of allocations served by the per-CPU magazine fast path."))
	cacheDepotMissCount, err4 := slabMeter.Int64Counter("slab/depot_miss_count",
		metric.WithDescription("The cumulative number of magazine-layer requests that missed the depot and fell through to the slab layer."))
	cacheReclaimedCount, err5 := slabMeter.Int64Counter("slab/reclaimed_magazine_count",
		metric.WithDescription("The cumulative number of depot magazines aged out by the reclaim worker."))

	nodeHitCount, err6 := vfsnodeMeter.Int64Counter("vfsnode/node_hit_count",
		metric.WithDescription("The cumulative number of lookups served from the per-mount node map."))
	nodeMissCount, err7 := vfsnodeMeter.Int64Counter("vfsnode/node_miss_count",
		metric.WithDescription("The cumulative number of lookups that required a driver read_node call."))
	nodeEvictedCount, err8 := vfsnodeMeter.Int64Counter("vfsnode/node_evicted_count",
		metric.WithDescription("The cumulative number of unused nodes destroyed by the reclaim hook."))

	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7, err8); err != nil {
		return nil, err
	}

	return &OTelMetrics{
		cacheAllocCount:       cacheAllocCount,
		cacheFreeCount:        cacheFreeCount,
		cacheMagazineHitCount: cacheMagazineHitCount,
		cacheDepotMissCount:   cacheDepotMissCount,
		cacheReclaimedCount:   cacheReclaimedCount,
		nodeHitCount:          nodeHitCount,
		nodeMissCount:         nodeMissCount,
		nodeEvictedCount:      nodeEvictedCount,
	}, nil
}

// --- internal/slab.Metrics ---

func (m *OTelMetrics) Alloc(cacheName string) {
	m.cacheAllocCount.Add(context.Background(), 1, cacheAttrs(cacheName))
}

func (m *OTelMetrics) Free(cacheName string) {
	m.cacheFreeCount.Add(context.Background(), 1, cacheAttrs(cacheName))
}

func (m *OTelMetrics) MagazineHit(cacheName string) {
	m.cacheMagazineHitCount.Add(context.Background(), 1, cacheAttrs(cacheName))
}

func (m *OTelMetrics) DepotMiss(cacheName string) {
	m.cacheDepotMissCount.Add(context.Background(), 1, cacheAttrs(cacheName))
}

func (m *OTelMetrics) Reclaimed(cacheName string, n int) {
	m.cacheReclaimedCount.Add(context.Background(), int64(n), cacheAttrs(cacheName))
}

// --- internal/vfsnode.Metrics ---

func (m *OTelMetrics) NodeHit() {
	m.nodeHitCount.Add(context.Background(), 1)
}

func (m *OTelMetrics) NodeMiss() {
	m.nodeMissCount.Add(context.Background(), 1)
}

func (m *OTelMetrics) NodeEvicted(n int) {
	m.nodeEvictedCount.Add(context.Background(), int64(n))
}
