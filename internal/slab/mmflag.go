package slab

import "github.com/aejsmith/kiwi-sub001/internal/arena"

// MMFlag is re-exported from internal/arena so callers of this package
// never need to import arena directly just to name an allocation policy.
type MMFlag = arena.MMFlag

const (
	MMBoot    = arena.MMBoot
	MMKernel  = arena.MMKernel
	MMAtomic  = arena.MMAtomic
	MMNoWait  = arena.MMNoWait
	MMNoFail  = arena.MMNoFailBit
)
