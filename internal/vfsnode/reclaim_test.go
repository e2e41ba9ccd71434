package vfsnode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileAndRelease(t *testing.T, r *Registry, name string) {
	t.Helper()
	require.Equal(t, Ok, r.Create(r.IO.root, name, TypeFile, ""))
}

func TestReclaim_AdvisoryTargetsSmallFraction(t *testing.T) {
	r, _, _ := newMountedRegistry()

	const n = 100
	for i := 0; i < n; i++ {
		fileAndRelease(t, r, string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	require.Equal(t, n, r.UnusedCount())

	freed := r.Reclaim(ReclaimAdvisory)
	assert.InDelta(t, float64(n)*0.02, float64(freed), 1)
	assert.Equal(t, n-freed, r.UnusedCount())
}

func TestReclaim_CriticalDrainsEverything(t *testing.T) {
	r, _, _ := newMountedRegistry()

	const n = 20
	for i := 0; i < n; i++ {
		fileAndRelease(t, r, string(rune('a'+i)))
	}
	require.Equal(t, n, r.UnusedCount())

	freed := r.Reclaim(ReclaimCritical)
	assert.Equal(t, n, freed)
	assert.Equal(t, 0, r.UnusedCount())
}

func TestReclaim_NoUnusedNodesIsNoop(t *testing.T) {
	r, _, _ := newMountedRegistry()
	assert.Equal(t, 0, r.Reclaim(ReclaimCritical))
}
