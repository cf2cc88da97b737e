package gc

import "math"

// Kind discriminates the representation carried by a Value.
type Kind byte

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
	KindV128
	KindRef
)

// Value is a single WebAssembly operand: one of the four numeric types,
// a 128-bit vector lane, or a reference. Numeric payloads are stored in
// bits so zero Value{} is a valid i32 0.
type Value struct {
	Ref   RefValue
	bits  uint64
	v128  [16]byte
	Kind  Kind
}

// I32 constructs an i32 value.
func I32(v int32) Value { return Value{Kind: KindI32, bits: uint64(uint32(v))} }

// I64 constructs an i64 value.
func I64(v int64) Value { return Value{Kind: KindI64, bits: uint64(v)} }

// F32 constructs an f32 value.
func F32(v float32) Value { return Value{Kind: KindF32, bits: uint64(math.Float32bits(v))} }

// F64 constructs an f64 value.
func F64(v float64) Value { return Value{Kind: KindF64, bits: math.Float64bits(v)} }

// V128 constructs a 128-bit vector value from its raw little-endian bytes.
func V128(b [16]byte) Value { return Value{Kind: KindV128, v128: b} }

// RefVal wraps a reference as a Value.
func RefVal(r RefValue) Value { return Value{Kind: KindRef, Ref: r} }

// AsI32 returns the value interpreted as i32. Panics if Kind != KindI32.
func (v Value) AsI32() int32 {
	v.mustBe(KindI32)
	return int32(uint32(v.bits))
}

// AsI64 returns the value interpreted as i64. Panics if Kind != KindI64.
func (v Value) AsI64() int64 {
	v.mustBe(KindI64)
	return int64(v.bits)
}

// AsF32 returns the value interpreted as f32. Panics if Kind != KindF32.
func (v Value) AsF32() float32 {
	v.mustBe(KindF32)
	return math.Float32frombits(uint32(v.bits))
}

// AsF64 returns the value interpreted as f64. Panics if Kind != KindF64.
func (v Value) AsF64() float64 {
	v.mustBe(KindF64)
	return math.Float64frombits(v.bits)
}

// AsV128 returns the raw vector bytes. Panics if Kind != KindV128.
func (v Value) AsV128() [16]byte {
	v.mustBe(KindV128)
	return v.v128
}

func (v Value) mustBe(k Kind) {
	if v.Kind != k {
		panic("gc: value kind mismatch")
	}
}

// RefValue is a WebAssembly reference: null, an unboxed i31, a function
// index, or a pointer to a heap object allocated through a Store.
//
// HeapTypeIdx carries the flat type index the reference was produced as
// (the "scheme" supertype chain walks up from here); it is meaningless
// when Null is true and ignored for i31 refs, which are always exactly
// typed i31ref.
type RefValue struct {
	Obj         HeapObject
	HeapTypeIdx int64 // flat type index, or one of the wasm.HeapTypeXxx negative codes
	FuncIdx     uint32
	I31Val      int32
	Null        bool
	IsI31       bool
	IsFunc      bool
}

// Null returns the null reference typed at the given abstract or concrete
// heap type (one of wasm.HeapTypeXxx, or a non-negative flat type index).
func Null(heapType int64) RefValue {
	return RefValue{Null: true, HeapTypeIdx: heapType}
}

// I31 wraps a 31-bit signed payload as an i31ref. Only the low 31 bits of
// v are significant; ref.i31 truncates its i32 operand to them.
func I31(v int32) RefValue {
	return RefValue{IsI31: true, I31Val: v << 1 >> 1, HeapTypeIdx: HeapI31}
}

// FuncRef wraps a function index as a funcref/typed-func reference.
func FuncRef(funcIdx uint32, typeIdx int64) RefValue {
	return RefValue{IsFunc: true, FuncIdx: funcIdx, HeapTypeIdx: typeIdx}
}

// HeapRef wraps a heap-allocated struct or array.
func HeapRef(obj HeapObject, typeIdx int64) RefValue {
	return RefValue{Obj: obj, HeapTypeIdx: typeIdx}
}

// IsNull reports whether the reference is null.
func (r RefValue) IsNull() bool { return r.Null }

// HeapObject is implemented by heap-allocated GC values: StructObj and
// ArrayObj. Reclamation is delegated to the host Go garbage collector, so
// the interface carries no refcounting or free method; a Store simply
// stops referencing an object once nothing on the WebAssembly side does.
type HeapObject interface {
	// TypeIdx returns the flat type index the object was allocated at.
	TypeIdx() uint32
	// isHeapObject restricts implementations to this package's own types.
	isHeapObject()
}
