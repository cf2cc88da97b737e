package gc

import "testing"

func TestStackUnderflow(t *testing.T) {
	s := NewStack()
	if _, err := s.Pop(); err == nil {
		t.Fatalf("pop on empty stack must error")
	}
	if _, err := s.PopN(2); err == nil {
		t.Fatalf("PopN beyond available values must error")
	}
}

func TestStackOrderPreserved(t *testing.T) {
	s := NewStack()
	s.Push(I32(1))
	s.Push(I32(2))
	s.Push(I32(3))
	vals, err := s.PopN(2)
	if err != nil {
		t.Fatalf("PopN: %v", err)
	}
	if vals[0].AsI32() != 2 || vals[1].AsI32() != 3 {
		t.Fatalf("PopN must preserve bottom-to-top order, got %v", vals)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 value remaining, got %d", s.Len())
	}
}

func TestStackTypeMismatch(t *testing.T) {
	s := NewStack()
	s.Push(F32(1.0))
	if _, err := s.PopI32(); err == nil {
		t.Fatalf("PopI32 on an f32 value must error")
	}
}
