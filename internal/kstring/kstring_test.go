package kstring

import "testing"

func heapAlloc(n int) []byte { return make([]byte, n) }

func TestKMemdupZeroLengthReturnsNil(t *testing.T) {
	if got := KMemdup(nil, heapAlloc); got != nil {
		t.Fatalf("expected nil for zero-length dup, got %v", got)
	}
	if got := KMemdup([]byte{}, heapAlloc); got != nil {
		t.Fatalf("expected nil for empty dup, got %v", got)
	}
}

func TestKMemdupCopiesContent(t *testing.T) {
	src := []byte("hello")
	got := KMemdup(src, heapAlloc)
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	// Must be an independent copy.
	src[0] = 'X'
	if got[0] != 'h' {
		t.Fatalf("KMemdup aliased source buffer")
	}
}

func TestKDirnameKBasename(t *testing.T) {
	cases := []struct{ in, dir, base string }{
		{"/a/b/c", "/a/b", "c"},
		{"/a", "/", "a"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := KDirname(c.in); got != c.dir {
			t.Errorf("KDirname(%q) = %q, want %q", c.in, got, c.dir)
		}
		if got := KBasename(c.in); got != c.base {
			t.Errorf("KBasename(%q) = %q, want %q", c.in, got, c.base)
		}
	}
}

func TestVSNPrintfTruncates(t *testing.T) {
	got := VSNPrintf(5, "%s", "hello world")
	if got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}
