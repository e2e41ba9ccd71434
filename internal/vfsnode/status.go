// Package vfsnode implements a filesystem node cache / VFS glue layer:
// mount registry, per-mount node map, the lookup engine (including
// symlink recursion), the handle + offset layer, and the reclaim hook
// that integrates with internal/slab. It follows an inode map,
// lookup-count refcounting and lock-ordering discipline generalized from
// a single backing filesystem to an abstract driver-table model.
package vfsnode

import "fmt"

// Status is the VFS-wide result code family. Every public operation
// returns one instead of a Go error: no exceptions are raised, and there
// are no out-of-band failure channels.
type Status int

const (
	Ok Status = iota
	InvalidArg
	InvalidHandle
	PermDenied
	ReadOnly
	AlreadyExists
	NotFound
	NotDir
	NotFile
	NotSymlink
	NotMount
	NotSupported
	NotImplemented
	InUse
	FsFull
	UnknownFs
	NoMemory
	SymlinkLimit
	TooSmall
	FormatInvalid
)

var statusNames = [...]string{
	"Ok", "InvalidArg", "InvalidHandle", "PermDenied", "ReadOnly",
	"AlreadyExists", "NotFound", "NotDir", "NotFile", "NotSymlink",
	"NotMount", "NotSupported", "NotImplemented", "InUse", "FsFull",
	"UnknownFs", "NoMemory", "SymlinkLimit", "TooSmall", "FormatInvalid",
}

// String implements fmt.Stringer by hand: this enum is small and stable
// enough that running a code generator over it would be ceremony (see
// DESIGN.md).
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// IsOk reports whether the status represents success.
func (s Status) IsOk() bool { return s == Ok }

// FatalError is the panic type raised for unrecoverable invariant
// violations: unused-node destruction failure for an unattached node, or
// any other condition the node cache treats as a programming error
// rather than a recoverable status. Mirrors internal/slab.FatalError.
type FatalError struct {
	Op  string
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("vfsnode: fatal: %s: %s", e.Op, e.Msg)
}

func fatalf(op, format string, args ...any) {
	panic(&FatalError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
