package gc

import "testing"

func TestValueRoundTrip(t *testing.T) {
	if got := I32(-7).AsI32(); got != -7 {
		t.Fatalf("I32 round trip: got %d", got)
	}
	if got := I64(1 << 40).AsI64(); got != 1<<40 {
		t.Fatalf("I64 round trip: got %d", got)
	}
	if got := F32(1.5).AsF32(); got != 1.5 {
		t.Fatalf("F32 round trip: got %v", got)
	}
	if got := F64(3.25).AsF64(); got != 3.25 {
		t.Fatalf("F64 round trip: got %v", got)
	}
}

func TestI31Truncation(t *testing.T) {
	ref := I31(-1)
	if ref.I31Val != -1 {
		t.Fatalf("expected -1, got %d", ref.I31Val)
	}
	// Only the low 31 bits are significant: a value whose bit 31 is set
	// but whose low 31 bits are all zero still truncates to 0.
	ref = I31(-1 << 31)
	if ref.I31Val != 0 {
		t.Fatalf("expected truncation to 0, got %d", ref.I31Val)
	}
}

func TestRefEqualPointerIdentity(t *testing.T) {
	st := NewStore()
	a := st.NewStructFromValues(0, []Value{I32(1)})
	b := st.NewStructFromValues(0, []Value{I32(1)})

	ra := HeapRef(a, 0)
	rb := HeapRef(b, 0)
	raAgain := HeapRef(a, 0)

	if refEqual(ra, raAgain) != true {
		t.Fatalf("same object must be ref.eq")
	}
	if refEqual(ra, rb) != false {
		t.Fatalf("distinct objects with equal fields must not be ref.eq")
	}
}

func TestRefEqualNullAndI31(t *testing.T) {
	if !refEqual(Null(HeapAny), Null(HeapStruct)) {
		t.Fatalf("two nulls of different static type are still ref.eq")
	}
	if !refEqual(I31(5), I31(5)) {
		t.Fatalf("i31 refs compare by value")
	}
	if refEqual(I31(5), I31(6)) {
		t.Fatalf("distinct i31 values must not be ref.eq")
	}
}
