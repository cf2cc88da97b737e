package gc

import (
	"testing"

	"github.com/wippyai/wasm-runtime/wasm"
)

func packedStructModule() *wasm.Module {
	fields := []wasm.FieldType{
		{Type: wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI8}, Mutable: true},
		{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}, Mutable: true},
	}
	sub := wasm.SubType{
		Final:    true,
		CompType: wasm.CompType{Kind: wasm.CompKindStruct, Struct: &wasm.StructType{Fields: fields}},
	}
	return &wasm.Module{TypeDefs: []wasm.TypeDef{{Kind: wasm.TypeDefKindSub, Sub: &sub}}}
}

func arrayModule(elem wasm.FieldType) *wasm.Module {
	sub := wasm.SubType{
		Final:    true,
		CompType: wasm.CompType{Kind: wasm.CompKindArray, Array: &wasm.ArrayType{Element: elem}},
	}
	return &wasm.Module{TypeDefs: []wasm.TypeDef{{Kind: wasm.TypeDefKindSub, Sub: &sub}}}
}

// TestStructPackedRoundTrip mirrors the "pack a byte, read it back signed
// and unsigned" scenario: struct.new with an i8 field, struct.get_s and
// struct.get_u must recover -1 and 255 respectively for a field written
// as all-ones.
func TestStructPackedRoundTrip(t *testing.T) {
	mod := packedStructModule()
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(-1)) // field 0: i8, will be truncated to 0xFF on write
	s.Push(I32(42)) // field 1: plain i32
	if err := ops.StructNew(s, 0); err != nil {
		t.Fatalf("struct.new: %v", err)
	}

	ref, err := s.PopRef()
	if err != nil {
		t.Fatalf("pop struct ref: %v", err)
	}
	s.Push(RefVal(ref))
	if err := ops.StructGetS(s, 0, 0); err != nil {
		t.Fatalf("struct.get_s: %v", err)
	}
	if got, err := s.PopI32(); err != nil || got != -1 {
		t.Fatalf("struct.get_s: got %d, %v, want -1", got, err)
	}

	s.Push(RefVal(ref))
	if err := ops.StructGetU(s, 0, 0); err != nil {
		t.Fatalf("struct.get_u: %v", err)
	}
	if got, err := s.PopI32(); err != nil || got != 255 {
		t.Fatalf("struct.get_u: got %d, %v, want 255", got, err)
	}

	s.Push(RefVal(ref))
	if err := ops.StructGet(s, 0, 1); err != nil {
		t.Fatalf("struct.get: %v", err)
	}
	if got, err := s.PopI32(); err != nil || got != 42 {
		t.Fatalf("struct.get field 1: got %d, %v, want 42", got, err)
	}
}

func TestStructSetOnNullTraps(t *testing.T) {
	mod := packedStructModule()
	ops := NewOps(mod, NewStore())
	s := NewStack()
	s.Push(RefVal(Null(HeapStruct)))
	s.Push(I32(1))
	if err := ops.StructSet(s, 0, 1); err == nil {
		t.Fatalf("struct.set on null must trap")
	}
}

func TestArrayNewGetSetFillCopy(t *testing.T) {
	elem := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}, Mutable: true}
	mod := arrayModule(elem)
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(7))
	s.Push(I32(4))
	if err := ops.ArrayNew(s, 0); err != nil {
		t.Fatalf("array.new: %v", err)
	}
	ref, _ := s.PopRef()

	s.Push(RefVal(ref))
	if err := ops.ArrayLen(s); err != nil {
		t.Fatalf("array.len: %v", err)
	}
	if got, _ := s.PopI32(); got != 4 {
		t.Fatalf("array.len = %d, want 4", got)
	}

	s.Push(RefVal(ref))
	s.Push(I32(2))
	s.Push(I32(99))
	if err := ops.ArraySet(s, 0); err != nil {
		t.Fatalf("array.set: %v", err)
	}

	s.Push(RefVal(ref))
	s.Push(I32(2))
	if err := ops.ArrayGet(s, 0); err != nil {
		t.Fatalf("array.get: %v", err)
	}
	if got, _ := s.PopI32(); got != 99 {
		t.Fatalf("array.get[2] = %d, want 99", got)
	}

	// array.fill the tail with 5.
	s.Push(RefVal(ref))
	s.Push(I32(1))
	s.Push(I32(5))
	s.Push(I32(3))
	if err := ops.ArrayFill(s, 0); err != nil {
		t.Fatalf("array.fill: %v", err)
	}
	s.Push(RefVal(ref))
	s.Push(I32(3))
	_ = ops.ArrayGet(s, 0)
	if got, _ := s.PopI32(); got != 5 {
		t.Fatalf("array.fill: index 3 = %d, want 5", got)
	}

	// array.copy within the same array.
	s.Push(RefVal(ref))
	s.Push(I32(0))
	s.Push(RefVal(ref))
	s.Push(I32(1))
	s.Push(I32(2))
	if err := ops.ArrayCopy(s, 0, 0); err != nil {
		t.Fatalf("array.copy: %v", err)
	}
	s.Push(RefVal(ref))
	s.Push(I32(0))
	_ = ops.ArrayGet(s, 0)
	if got, _ := s.PopI32(); got != 5 {
		t.Fatalf("array.copy: index 0 = %d, want 5", got)
	}
}

func TestArrayOutOfBoundsGet(t *testing.T) {
	elem := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}}
	mod := arrayModule(elem)
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(0))
	s.Push(I32(2))
	_ = ops.ArrayNew(s, 0)
	ref, _ := s.PopRef()

	s.Push(RefVal(ref))
	s.Push(I32(5))
	if err := ops.ArrayGet(s, 0); err == nil {
		t.Fatalf("out-of-bounds array.get must error")
	}
}

func TestRefTestAndCast(t *testing.T) {
	mod := packedStructModule()
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(1))
	s.Push(I32(1))
	_ = ops.StructNew(s, 0)
	structRef, _ := s.PopRef()

	s.Push(RefVal(structRef))
	if err := ops.RefTest(s, HeapStruct, false); err != nil {
		t.Fatalf("ref.test: %v", err)
	}
	if got, _ := s.PopI32(); got != 1 {
		t.Fatalf("ref.test struct against structref = %d, want 1", got)
	}

	s.Push(RefVal(structRef))
	if err := ops.RefTest(s, HeapArray, false); err != nil {
		t.Fatalf("ref.test: %v", err)
	}
	if got, _ := s.PopI32(); got != 0 {
		t.Fatalf("ref.test struct against arrayref = %d, want 0", got)
	}

	s.Push(RefVal(structRef))
	if err := ops.RefCast(s, HeapStruct, false); err != nil {
		t.Fatalf("ref.cast to structref should succeed: %v", err)
	}
	s.Pop()

	s.Push(RefVal(structRef))
	if err := ops.RefCast(s, HeapArray, false); err == nil {
		t.Fatalf("ref.cast to arrayref must trap on a struct")
	}
}

func TestRefI31RoundTrip(t *testing.T) {
	ops := NewOps(&wasm.Module{}, NewStore())
	s := NewStack()
	s.Push(I32(-1))
	if err := ops.RefI31(s); err != nil {
		t.Fatalf("ref.i31: %v", err)
	}
	if err := ops.I31GetS(s); err != nil {
		t.Fatalf("i31.get_s: %v", err)
	}
	if got, _ := s.PopI32(); got != -1 {
		t.Fatalf("i31.get_s round trip = %d, want -1", got)
	}

	s.Push(I32(-1))
	_ = ops.RefI31(s)
	if err := ops.I31GetU(s); err != nil {
		t.Fatalf("i31.get_u: %v", err)
	}
	if got, _ := s.PopI32(); got != 0x7FFFFFFF {
		t.Fatalf("i31.get_u round trip = %#x, want 0x7FFFFFFF", got)
	}
}

func TestAnyExternConvertRoundTrip(t *testing.T) {
	ops := NewOps(&wasm.Module{}, NewStore())
	s := NewStack()

	s.Push(I32(5))
	_ = ops.RefI31(s)
	if err := ops.ExternConvertAny(s); err != nil {
		t.Fatalf("extern.convert_any: %v", err)
	}
	if err := ops.AnyConvertExtern(s); err != nil {
		t.Fatalf("any.convert_extern: %v", err)
	}
	ref, _ := s.PopRef()
	if !ref.IsI31 || ref.I31Val != 5 {
		t.Fatalf("round trip through extern/any must preserve the i31 payload")
	}
}

func TestAnyConvertExternNull(t *testing.T) {
	ops := NewOps(&wasm.Module{}, NewStore())
	s := NewStack()
	s.Push(RefVal(Null(HeapNoExtern)))
	if err := ops.AnyConvertExtern(s); err != nil {
		t.Fatalf("any.convert_extern: %v", err)
	}
	ref, _ := s.PopRef()
	if !ref.Null {
		t.Fatalf("any.convert_extern of null externref must stay null")
	}
}

func TestArrayNewDataReadsSegment(t *testing.T) {
	elem := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI8}, Mutable: false}
	mod := arrayModule(elem)
	mod.Data = []wasm.DataSegment{{Init: []byte{10, 20, 30, 40}}}
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(1)) // offset
	s.Push(I32(2)) // count
	if err := ops.ArrayNewData(s, 0, 0); err != nil {
		t.Fatalf("array.new_data: %v", err)
	}
	ref, _ := s.PopRef()
	obj := ref.Obj.(*ArrayObj)
	if obj.Len() != 2 || obj.Get(0).AsI32() != 20 || obj.Get(1).AsI32() != 30 {
		t.Fatalf("array.new_data read wrong bytes: len=%d [0]=%d [1]=%d", obj.Len(), obj.Get(0).AsI32(), obj.Get(1).AsI32())
	}
}

// TestArrayNewDataByteOffsetNotElementIndex pins the source-range rule for a
// multi-byte element width: offset is a byte offset into the segment, not an
// element index. segment = 6 bytes, i16 elements (width 2), offset=1, n=2
// must read bytes [1:5), i.e. elements {0x1312, 0x1514}, not bytes [2:6).
func TestArrayNewDataByteOffsetNotElementIndex(t *testing.T) {
	elem := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI16}, Mutable: false}
	mod := arrayModule(elem)
	mod.Data = []wasm.DataSegment{{Init: []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16}}}
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(1)) // offset, in bytes
	s.Push(I32(2)) // count
	if err := ops.ArrayNewData(s, 0, 0); err != nil {
		t.Fatalf("array.new_data: %v", err)
	}
	ref, _ := s.PopRef()
	obj := ref.Obj.(*ArrayObj)
	want0 := int32(uint16(0x13)<<8 | uint16(0x12))
	want1 := int32(uint16(0x15)<<8 | uint16(0x14))
	if obj.Len() != 2 || obj.Get(0).AsI32() != want0 || obj.Get(1).AsI32() != want1 {
		t.Fatalf("array.new_data byte-offset read wrong: len=%d [0]=%#x [1]=%#x, want [0]=%#x [1]=%#x",
			obj.Len(), obj.Get(0).AsI32(), obj.Get(1).AsI32(), want0, want1)
	}

	// offset=1, n=3 spans byte [1:7) against a 6-byte segment: must fail.
	s2 := NewStack()
	s2.Push(I32(1))
	s2.Push(I32(3))
	if err := ops.ArrayNewData(s2, 0, 0); err == nil {
		t.Fatalf("array.new_data reading past segment end must error")
	}
}

func TestArrayNewDataOutOfBounds(t *testing.T) {
	elem := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}}
	mod := arrayModule(elem)
	mod.Data = []wasm.DataSegment{{Init: []byte{1, 2, 3}}}
	ops := NewOps(mod, NewStore())

	s := NewStack()
	s.Push(I32(0))
	s.Push(I32(5))
	if err := ops.ArrayNewData(s, 0, 0); err == nil {
		t.Fatalf("array.new_data beyond segment length must error")
	}
}

func TestRefEqOp(t *testing.T) {
	ops := NewOps(&wasm.Module{}, NewStore())
	s := NewStack()
	s.Push(RefVal(Null(HeapAny)))
	s.Push(RefVal(Null(HeapAny)))
	if err := ops.RefEq(s); err != nil {
		t.Fatalf("ref.eq: %v", err)
	}
	if got, _ := s.PopI32(); got != 1 {
		t.Fatalf("ref.eq of two nulls = %d, want 1", got)
	}
}
