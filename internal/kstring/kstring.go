// Package kstring implements freestanding string/byte helpers in the
// style of a kernel's string library (memcpy/memset/memmove,
// kstrdup/kstrndup/kmemdup, kdirname/kbasename, numeric parsers, bounded
// vsnprintf). These are deliberately built on the standard library: Go's
// builtin copy()
// already implements overlap-safe memmove semantics, strconv already
// implements correctly-bounds-checked numeric parsing, and introducing a
// third-party string-utility package for what is a handful of one-line
// wrappers would be pure cargo-culting (see DESIGN.md).
package kstring

import (
	"fmt"
	"path"
	"strconv"
)

// Memcpy copies min(len(dst), len(src)) bytes from src to dst and returns
// the number of bytes copied. Source regions are assumed non-overlapping;
// callers needing overlap safety should use Memmove instead (both are the
// same call in Go, since copy() is already memmove-safe).
func Memcpy(dst, src []byte) int {
	return copy(dst, src)
}

// Memmove copies min(len(dst), len(src)) bytes from src to dst, safe for
// overlapping slices.
func Memmove(dst, src []byte) int {
	return copy(dst, src)
}

// Memset fills b with the low byte of v.
func Memset(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// KMemdup allocates len(b) bytes via alloc and copies b into it. A
// zero-length duplication returns nil rather than an allocated-but-empty
// buffer.
func KMemdup(b []byte, alloc func(n int) []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := alloc(len(b))
	copy(out, b)
	return out
}

// KStrdup duplicates a NUL-free Go string into a freshly allocated byte
// buffer via alloc.
func KStrdup(s string, alloc func(n int) []byte) []byte {
	return KMemdup([]byte(s), alloc)
}

// KStrndup duplicates at most n bytes of s.
func KStrndup(s string, n int, alloc func(n int) []byte) []byte {
	if n > len(s) {
		n = len(s)
	}
	return KMemdup([]byte(s[:n]), alloc)
}

// KDirname returns the directory portion of p, matching path.Dir except
// that an empty input yields "" rather than ".", matching the documented
// freestanding source behavior (which has no notion of "current
// directory").
func KDirname(p string) string {
	if p == "" {
		return ""
	}
	return path.Dir(p)
}

// KBasename returns the final path component of p.
func KBasename(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// ParseUint parses an unsigned integer in the given base (0 means infer
// from a "0x"/"0" prefix, matching C-style octal/hex literals).
func ParseUint(s string, base int) (uint64, error) {
	return strconv.ParseUint(s, base, 64)
}

// ParseInt parses a signed integer in the given base.
func ParseInt(s string, base int) (int64, error) {
	return strconv.ParseInt(s, base, 64)
}

// VSNPrintf formats format/args into a buffer of at most size bytes,
// truncating (never panicking on a too-small buffer) the way a bounded
// vsnprintf would.
func VSNPrintf(size int, format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	if len(s) > size {
		return s[:size]
	}
	return s
}
