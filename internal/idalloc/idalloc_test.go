package idalloc

import "testing"

func TestReserveFreeRoundTrip(t *testing.T) {
	a := New(4)

	ids := make([]uint32, 0, 4)
	for i := 0; i < 4; i++ {
		id, ok := a.Reserve()
		if !ok {
			t.Fatalf("unexpected exhaustion reserving id %d", i)
		}
		ids = append(ids, id)
	}

	if _, ok := a.Reserve(); ok {
		t.Fatalf("expected exhaustion after reserving all 4 ids")
	}

	a.Free(ids[1])
	id, ok := a.Reserve()
	if !ok || id != ids[1] {
		t.Fatalf("expected freed id %d to be reused, got %d (ok=%v)", ids[1], id, ok)
	}
}

func TestReserveAtRejectsDuplicateAndOutOfRange(t *testing.T) {
	a := New(4)

	if !a.ReserveAt(2) {
		t.Fatalf("expected to reserve id 2")
	}
	if a.ReserveAt(2) {
		t.Fatalf("expected duplicate reservation of id 2 to fail")
	}
	if a.ReserveAt(10) {
		t.Fatalf("expected out-of-range reservation to fail")
	}
}

func TestMountIDWrapReturnsExhaustion(t *testing.T) {
	// Exercises the 16-bit mount ID space's exhaustion boundary.
	const limit = 1 << 16
	a := New(limit)
	for i := 0; i < limit; i++ {
		if _, ok := a.Reserve(); !ok {
			t.Fatalf("unexpected exhaustion at id %d", i)
		}
	}
	if _, ok := a.Reserve(); ok {
		t.Fatalf("expected exhaustion at the 16-bit boundary")
	}
}
