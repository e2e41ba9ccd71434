package radix

import "testing"

func TestInsertGetDelete(t *testing.T) {
	tr := New()

	if _, replaced := tr.Insert("foo", 1); replaced {
		t.Fatalf("first insert should not report a replacement")
	}
	if _, replaced := tr.Insert("foo", 2); !replaced {
		t.Fatalf("second insert of the same key should report a replacement")
	}

	v, ok := tr.Get("foo")
	if !ok || v.(int) != 2 {
		t.Fatalf("Get(foo) = %v, %v; want 2, true", v, ok)
	}

	if _, ok := tr.Get("bar"); ok {
		t.Fatalf("Get(bar) should miss")
	}

	prev, deleted := tr.Delete("foo")
	if !deleted || prev.(int) != 2 {
		t.Fatalf("Delete(foo) = %v, %v; want 2, true", prev, deleted)
	}
	if _, ok := tr.Get("foo"); ok {
		t.Fatalf("foo should be gone after delete")
	}
}

func TestWalkPrefix(t *testing.T) {
	tr := New()
	tr.Insert("dir/a", 1)
	tr.Insert("dir/b", 2)
	tr.Insert("other", 3)

	var seen []string
	tr.WalkPrefix("dir/", func(key string, value any) bool {
		seen = append(seen, key)
		return false
	})

	if len(seen) != 2 {
		t.Fatalf("expected 2 entries under dir/, got %v", seen)
	}
}
