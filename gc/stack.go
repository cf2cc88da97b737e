package gc

import wrterrors "github.com/wippyai/wasm-runtime/errors"

// Stack is the WebAssembly operand stack as seen by the GC instruction
// set: every struct.new/array.new/ref.* operation only ever pushes or
// pops from the top.
type Stack struct {
	vals []Value
}

// NewStack creates an empty operand stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push pushes v onto the stack.
func (s *Stack) Push(v Value) {
	s.vals = append(s.vals, v)
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (Value, error) {
	if len(s.vals) == 0 {
		return Value{}, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindOutOfBounds).
			Detail("operand stack underflow").Build()
	}
	v := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return v, nil
}

// PopN removes and returns the top n values in stack order (bottom to top).
func (s *Stack) PopN(n int) ([]Value, error) {
	if len(s.vals) < n {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindOutOfBounds).
			Detail("operand stack underflow: need %d, have %d", n, len(s.vals)).Build()
	}
	out := make([]Value, n)
	copy(out, s.vals[len(s.vals)-n:])
	s.vals = s.vals[:len(s.vals)-n]
	return out, nil
}

// PopRef pops the top value and requires it to be a reference.
func (s *Stack) PopRef() (RefValue, error) {
	v, err := s.Pop()
	if err != nil {
		return RefValue{}, err
	}
	if v.Kind != KindRef {
		return RefValue{}, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("expected reference operand").Build()
	}
	return v.Ref, nil
}

// PopI32 pops the top value and requires it to be an i32.
func (s *Stack) PopI32() (int32, error) {
	v, err := s.Pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != KindI32 {
		return 0, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("expected i32 operand").Build()
	}
	return v.AsI32(), nil
}

// Len returns the number of values currently on the stack.
func (s *Stack) Len() int { return len(s.vals) }
