package slab

import (
	"errors"
	"fmt"

	"github.com/aejsmith/kiwi-sub001/internal/logger"
)

// ErrNoMemory names the condition of an allocation that cannot be
// satisfied. Cache.Alloc does not return it: when the caller's policy
// permits failure (i.e. MMNoFailBit is clear) a failed Alloc returns nil.
var ErrNoMemory = errors.New("slab: no memory available")

// FatalError is the panic type raised for unrecoverable invariant
// violations: double free, corrupted allocation hash entry, a bufctl
// whose back-pointer doesn't match the slab it was taken from, or
// destroying a cache that still has live allocations. Nothing in this
// module recovers it; the panic propagates to the caller.
type FatalError struct {
	Cache string
	Msg   string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("slab: fatal: cache %q: %s", e.Cache, e.Msg)
}

func fatalf(cacheName, format string, args ...any) {
	err := &FatalError{Cache: cacheName, Msg: fmt.Sprintf(format, args...)}
	logger.Errorf("%s", err.Error())
	panic(err)
}
