package gc

import (
	"math"

	wrterrors "github.com/wippyai/wasm-runtime/errors"
	"github.com/wippyai/wasm-runtime/wasm"
)

// Ops executes the GC proposal's instruction set against an operand
// Stack: struct/array allocation, field access, casts, i31 boxing, and the
// any/extern conversion operators. One Ops is bound to a single module's
// type space, data/element segments, and heap store. array.new_data and
// array.init_data read directly from the module's data section, the same
// segment bytes memory.init draws from; no linear-memory access is needed.
type Ops struct {
	ts   TypeSpace
	mod  *wasm.Module
	st   *Store
	data map[uint32]bool // dropped data segments
	elem map[uint32]bool // dropped element segments
}

// NewOps creates an Ops bound to mod's types and segments, allocating
// objects in st.
func NewOps(mod *wasm.Module, st *Store) *Ops {
	return &Ops{ts: mod, mod: mod, st: st, data: map[uint32]bool{}, elem: map[uint32]bool{}}
}

func (o *Ops) compType(typeIdx uint32) (wasm.CompType, error) {
	st, ok := o.ts.SubTypeByIndex(typeIdx)
	if !ok {
		return wasm.CompType{}, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindNotFound).
			Detail("no type at index %d", typeIdx).Build()
	}
	return st.CompType, nil
}

func (o *Ops) structType(typeIdx uint32) (*wasm.StructType, error) {
	ct, err := o.compType(typeIdx)
	if err != nil {
		return nil, err
	}
	if ct.Kind != wasm.CompKindStruct || ct.Struct == nil {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("type %d is not a struct type", typeIdx).Build()
	}
	return ct.Struct, nil
}

func (o *Ops) arrayType(typeIdx uint32) (*wasm.ArrayType, error) {
	ct, err := o.compType(typeIdx)
	if err != nil {
		return nil, err
	}
	if ct.Kind != wasm.CompKindArray || ct.Array == nil {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("type %d is not an array type", typeIdx).Build()
	}
	return ct.Array, nil
}

// --- struct.* ---

// StructNew implements struct.new: pops len(fields) values (in declared
// field order, so the last field is the one on the stack's top) and
// pushes a (ref typeIdx).
func (o *Ops) StructNew(s *Stack, typeIdx uint32) error {
	st, err := o.structType(typeIdx)
	if err != nil {
		return err
	}
	vals, err := s.PopN(len(st.Fields))
	if err != nil {
		return err
	}
	for i, f := range st.Fields {
		vals[i] = narrowForStorage(vals[i], f.Type)
	}
	obj := o.st.NewStructFromValues(typeIdx, vals)
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// StructNewDefault implements struct.new_default: every field set to its
// storage type's zero value.
func (o *Ops) StructNewDefault(s *Stack, typeIdx uint32) error {
	st, err := o.structType(typeIdx)
	if err != nil {
		return err
	}
	obj := o.st.NewStructDefault(typeIdx, st)
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// StructGet implements struct.get: no sign/zero extension, for fields
// that are not packed.
func (o *Ops) StructGet(s *Stack, typeIdx, fieldIdx uint32) error {
	return o.structGet(s, typeIdx, fieldIdx, 0)
}

// StructGetS implements struct.get_s: sign-extends a packed field.
func (o *Ops) StructGetS(s *Stack, typeIdx, fieldIdx uint32) error {
	return o.structGet(s, typeIdx, fieldIdx, 1)
}

// StructGetU implements struct.get_u: zero-extends a packed field.
func (o *Ops) StructGetU(s *Stack, typeIdx, fieldIdx uint32) error {
	return o.structGet(s, typeIdx, fieldIdx, 2)
}

// extend: 0 = none, 1 = sign, 2 = zero.
func (o *Ops) structGet(s *Stack, typeIdx, fieldIdx uint32, extend int) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	st, err := o.structType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireStruct(ref, "struct.get")
	if err != nil {
		return err
	}
	v := obj.Get(fieldIdx)
	bits := PackedBits(st.Fields[fieldIdx].Type)
	if bits < 32 {
		raw := v.AsI32()
		switch extend {
		case 1:
			v = I32(PackSignExtend(raw, bits))
		case 2:
			v = I32(PackZeroExtend(raw, bits))
		}
	}
	s.Push(v)
	return nil
}

// StructSet implements struct.set.
func (o *Ops) StructSet(s *Stack, typeIdx, fieldIdx uint32) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	st, err := o.structType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireStruct(ref, "struct.set")
	if err != nil {
		return err
	}
	obj.Set(fieldIdx, narrowForStorage(v, st.Fields[fieldIdx].Type))
	return nil
}

func requireStruct(ref RefValue, op string) (*StructObj, error) {
	if ref.Null {
		return nil, wrterrors.CastNullToNonNull(op)
	}
	obj, ok := ref.Obj.(*StructObj)
	if !ok {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("%s: reference is not a struct", op).Build()
	}
	return obj, nil
}

func narrowForStorage(v Value, s wasm.StorageType) Value {
	bits := PackedBits(s)
	if bits < 32 && v.Kind == KindI32 {
		return I32(Truncate(v.AsI32(), bits))
	}
	return v
}

// --- array.* ---

// ArrayNew implements array.new: pops a count, then a single value, and
// splats it into a new array of that length.
func (o *Ops) ArrayNew(s *Stack, typeIdx uint32) error {
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	n, err := s.PopI32()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	obj := o.st.NewArraySplat(typeIdx, narrowForStorage(v, at.Element.Type), uint32(n))
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// ArrayNewDefault implements array.new_default: pops a count and fills
// with the element type's zero value.
func (o *Ops) ArrayNewDefault(s *Stack, typeIdx uint32) error {
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	n, err := s.PopI32()
	if err != nil {
		return err
	}
	obj := o.st.NewArrayDefault(typeIdx, at.Element, uint32(n))
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// ArrayNewFixed implements array.new_fixed: pops exactly size values.
func (o *Ops) ArrayNewFixed(s *Stack, typeIdx, size uint32) error {
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	vals, err := s.PopN(int(size))
	if err != nil {
		return err
	}
	for i := range vals {
		vals[i] = narrowForStorage(vals[i], at.Element.Type)
	}
	obj := o.st.NewArrayFromValues(typeIdx, vals)
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// ArrayNewData implements array.new_data: pops (offset, count), reading
// count elements of the array's element width from the data segment
// dataIdx starting at byte offset offset.
func (o *Ops) ArrayNewData(s *Stack, typeIdx, dataIdx uint32) error {
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	offset, err := s.PopI32()
	if err != nil {
		return err
	}
	bytes, err := o.dataBytes(dataIdx, uint32(offset), uint32(count), elemByteWidth(at.Element.Type))
	if err != nil {
		return err
	}
	vals := unpackNumeric(bytes, at.Element.Type, uint32(count))
	obj := o.st.NewArrayFromValues(typeIdx, vals)
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// ArrayNewElem implements array.new_elem: pops (offset, count), reading
// count function references from element segment elemIdx.
func (o *Ops) ArrayNewElem(s *Stack, typeIdx, elemIdx uint32) error {
	_, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	offset, err := s.PopI32()
	if err != nil {
		return err
	}
	funcIdxs, err := o.elemFuncIdxs(elemIdx, uint32(offset), uint32(count))
	if err != nil {
		return err
	}
	vals := make([]Value, len(funcIdxs))
	for i, fi := range funcIdxs {
		vals[i] = RefVal(FuncRef(fi, wasm.HeapTypeFunc))
	}
	obj := o.st.NewArrayFromValues(typeIdx, vals)
	s.Push(RefVal(HeapRef(obj, int64(typeIdx))))
	return nil
}

// ArrayGet/ArrayGetS/ArrayGetU implement array.get and its packed
// sign/zero-extending variants.
func (o *Ops) ArrayGet(s *Stack, typeIdx uint32) error  { return o.arrayGet(s, typeIdx, 0) }
func (o *Ops) ArrayGetS(s *Stack, typeIdx uint32) error { return o.arrayGet(s, typeIdx, 1) }
func (o *Ops) ArrayGetU(s *Stack, typeIdx uint32) error { return o.arrayGet(s, typeIdx, 2) }

func (o *Ops) arrayGet(s *Stack, typeIdx uint32, extend int) error {
	idx, err := s.PopI32()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.get")
	if err != nil {
		return err
	}
	if uint32(idx) >= obj.Len() {
		return wrterrors.OutOfBounds(wrterrors.PhaseGC, nil, int(idx), int(obj.Len()))
	}
	v := obj.Get(uint32(idx))
	bits := PackedBits(at.Element.Type)
	if bits < 32 {
		raw := v.AsI32()
		switch extend {
		case 1:
			v = I32(PackSignExtend(raw, bits))
		case 2:
			v = I32(PackZeroExtend(raw, bits))
		}
	}
	s.Push(v)
	return nil
}

// ArraySet implements array.set.
func (o *Ops) ArraySet(s *Stack, typeIdx uint32) error {
	v, err := s.Pop()
	if err != nil {
		return err
	}
	idx, err := s.PopI32()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.set")
	if err != nil {
		return err
	}
	if uint32(idx) >= obj.Len() {
		return wrterrors.OutOfBounds(wrterrors.PhaseGC, nil, int(idx), int(obj.Len()))
	}
	obj.Set(uint32(idx), narrowForStorage(v, at.Element.Type))
	return nil
}

// ArrayLen implements array.len.
func (o *Ops) ArrayLen(s *Stack) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.len")
	if err != nil {
		return err
	}
	s.Push(I32(int32(obj.Len())))
	return nil
}

// ArrayFill implements array.fill: pops (arrayref, offset, value, count).
func (o *Ops) ArrayFill(s *Stack, typeIdx uint32) error {
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	v, err := s.Pop()
	if err != nil {
		return err
	}
	offset, err := s.PopI32()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.fill")
	if err != nil {
		return err
	}
	if uint64(offset)+uint64(count) > uint64(obj.Len()) {
		return wrterrors.LengthOutOfBounds("array.fill", uint64(offset), uint64(count), uint64(obj.Len()))
	}
	nv := narrowForStorage(v, at.Element.Type)
	for i := uint32(0); i < uint32(count); i++ {
		obj.Set(uint32(offset)+i, nv)
	}
	return nil
}

// ArrayCopy implements array.copy: pops (dst, dstOffset, src, srcOffset,
// count). Overlapping ranges within the same array copy as if through a
// temporary buffer.
func (o *Ops) ArrayCopy(s *Stack, dstTypeIdx, srcTypeIdx uint32) error {
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	srcOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	srcRef, err := s.PopRef()
	if err != nil {
		return err
	}
	dstOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	dstRef, err := s.PopRef()
	if err != nil {
		return err
	}
	if _, err := o.arrayType(dstTypeIdx); err != nil {
		return err
	}
	if _, err := o.arrayType(srcTypeIdx); err != nil {
		return err
	}
	dst, err := requireArray(dstRef, "array.copy")
	if err != nil {
		return err
	}
	src, err := requireArray(srcRef, "array.copy")
	if err != nil {
		return err
	}
	if uint64(dstOffset)+uint64(count) > uint64(dst.Len()) {
		return wrterrors.LengthOutOfBounds("array.copy", uint64(dstOffset), uint64(count), uint64(dst.Len()))
	}
	if uint64(srcOffset)+uint64(count) > uint64(src.Len()) {
		return wrterrors.LengthOutOfBounds("array.copy", uint64(srcOffset), uint64(count), uint64(src.Len()))
	}
	n := int(count)
	buf := make([]Value, n)
	for i := 0; i < n; i++ {
		buf[i] = src.Get(uint32(srcOffset) + uint32(i))
	}
	for i := 0; i < n; i++ {
		dst.Set(uint32(dstOffset)+uint32(i), buf[i])
	}
	return nil
}

// ArrayInitData implements array.init_data: pops (arrayref, dstOffset,
// srcOffset, count). dstOffset is an array element index; srcOffset is a
// byte offset into the data segment.
func (o *Ops) ArrayInitData(s *Stack, typeIdx, dataIdx uint32) error {
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	srcOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	dstOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	at, err := o.arrayType(typeIdx)
	if err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.init_data")
	if err != nil {
		return err
	}
	if uint64(dstOffset)+uint64(count) > uint64(obj.Len()) {
		return wrterrors.LengthOutOfBounds("array.init_data", uint64(dstOffset), uint64(count), uint64(obj.Len()))
	}
	bytes, err := o.dataBytes(dataIdx, uint32(srcOffset), uint32(count), elemByteWidth(at.Element.Type))
	if err != nil {
		return err
	}
	vals := unpackNumeric(bytes, at.Element.Type, uint32(count))
	for i, v := range vals {
		obj.Set(uint32(dstOffset)+uint32(i), v)
	}
	return nil
}

// ArrayInitElem implements array.init_elem: pops (arrayref, dstOffset,
// srcOffset, count).
func (o *Ops) ArrayInitElem(s *Stack, typeIdx, elemIdx uint32) error {
	count, err := s.PopI32()
	if err != nil {
		return err
	}
	srcOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	dstOffset, err := s.PopI32()
	if err != nil {
		return err
	}
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if _, err := o.arrayType(typeIdx); err != nil {
		return err
	}
	obj, err := requireArray(ref, "array.init_elem")
	if err != nil {
		return err
	}
	if uint64(dstOffset)+uint64(count) > uint64(obj.Len()) {
		return wrterrors.LengthOutOfBounds("array.init_elem", uint64(dstOffset), uint64(count), uint64(obj.Len()))
	}
	funcIdxs, err := o.elemFuncIdxs(elemIdx, uint32(srcOffset), uint32(count))
	if err != nil {
		return err
	}
	for i, fi := range funcIdxs {
		obj.Set(uint32(dstOffset)+uint32(i), RefVal(FuncRef(fi, wasm.HeapTypeFunc)))
	}
	return nil
}

// DropData implements data.drop for a data segment array.new_data and
// array.init_data read from.
func (o *Ops) DropData(dataIdx uint32) { o.data[dataIdx] = true }

// DropElem implements elem.drop for an element segment array.new_elem
// and array.init_elem read from.
func (o *Ops) DropElem(elemIdx uint32) { o.elem[elemIdx] = true }

func requireArray(ref RefValue, op string) (*ArrayObj, error) {
	if ref.Null {
		return nil, wrterrors.CastNullToNonNull(op)
	}
	obj, ok := ref.Obj.(*ArrayObj)
	if !ok {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("%s: reference is not an array", op).Build()
	}
	return obj, nil
}

// dataBytes reads count elements of the given byte width starting at the
// byte offset offset (not an element index) within data segment dataIdx,
// per the array.new_data/array.init_data source-range rule.
func (o *Ops) dataBytes(dataIdx, offset, count, width uint32) ([]byte, error) {
	if o.data[dataIdx] {
		return nil, wrterrors.LengthOutOfBounds("array.new_data", uint64(offset), uint64(count)*uint64(width), 0)
	}
	if int(dataIdx) >= len(o.mod.Data) {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindNotFound).
			Detail("no data segment %d", dataIdx).Build()
	}
	seg := o.mod.Data[dataIdx].Init
	start := uint64(offset)
	needed := start + uint64(count)*uint64(width)
	if needed > uint64(len(seg)) {
		return nil, wrterrors.LengthOutOfBounds("array.new_data", start, uint64(count)*uint64(width), uint64(len(seg)))
	}
	return seg[start:needed], nil
}

// elemFuncIdxs reads count function indices starting at the element index
// offset (not a byte offset, unlike dataBytes) within element segment
// elemIdx: element segments are addressed per-element, data segments per-byte.
func (o *Ops) elemFuncIdxs(elemIdx, offset, count uint32) ([]uint32, error) {
	if o.elem[elemIdx] {
		return nil, wrterrors.LengthOutOfBounds("array.new_elem", uint64(offset), uint64(count), 0)
	}
	if int(elemIdx) >= len(o.mod.Elements) {
		return nil, wrterrors.New(wrterrors.PhaseGC, wrterrors.KindNotFound).
			Detail("no element segment %d", elemIdx).Build()
	}
	seg := o.mod.Elements[elemIdx].FuncIdxs
	if uint64(offset)+uint64(count) > uint64(len(seg)) {
		return nil, wrterrors.LengthOutOfBounds("array.new_elem", uint64(offset), uint64(count), uint64(len(seg)))
	}
	return seg[offset : offset+count], nil
}

func elemByteWidth(s wasm.StorageType) uint32 {
	switch PackedBits(s) {
	case 8:
		return 1
	case 16:
		return 2
	default:
		vt, _, _ := FromStorageType(s)
		switch vt.Num {
		case wasm.ValI64, wasm.ValF64:
			return 8
		default:
			return 4
		}
	}
}

func unpackNumeric(b []byte, s wasm.StorageType, count uint32) []Value {
	vals := make([]Value, count)
	width := elemByteWidth(s)
	for i := uint32(0); i < count; i++ {
		off := i * width
		switch width {
		case 1:
			vals[i] = I32(int32(b[off]))
		case 2:
			vals[i] = I32(int32(uint16(b[off]) | uint16(b[off+1])<<8))
		case 8:
			var u uint64
			for k := 0; k < 8; k++ {
				u |= uint64(b[off+uint32(k)]) << (8 * k)
			}
			vt, _, _ := FromStorageType(s)
			if vt.Num == wasm.ValF64 {
				vals[i] = F64(math.Float64frombits(u))
			} else {
				vals[i] = I64(int64(u))
			}
		default:
			var u uint32
			for k := 0; k < 4; k++ {
				u |= uint32(b[off+uint32(k)]) << (8 * k)
			}
			vt, _, _ := FromStorageType(s)
			if vt.Num == wasm.ValF32 {
				vals[i] = F32(math.Float32frombits(u))
			} else {
				vals[i] = I32(int32(u))
			}
		}
	}
	return vals
}

// --- ref.* ---

// RefTest implements ref.test (and ref.test null when nullable is true):
// pops a reference, pushes i32 1/0 for whether it matches heapType.
func (o *Ops) RefTest(s *Stack, heapType int64, nullable bool) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	s.Push(I32(boolToI32(o.refMatches(ref, heapType, nullable))))
	return nil
}

// RefCast implements ref.cast (and ref.cast null when nullable is true):
// pops a reference, traps (returns an error) if it does not match
// heapType, otherwise pushes it back unchanged.
func (o *Ops) RefCast(s *Stack, heapType int64, nullable bool) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if !o.refMatches(ref, heapType, nullable) {
		return wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("ref.cast: value does not match target type").Build()
	}
	s.Push(RefVal(ref))
	return nil
}

// BrOnCast implements br_on_cast: pops a reference; if it matches
// heapType, pushes it back and reports taken=true (caller branches),
// otherwise pushes it back untouched and reports taken=false.
func (o *Ops) BrOnCast(s *Stack, heapType int64, nullable bool) (taken bool, err error) {
	ref, err := s.PopRef()
	if err != nil {
		return false, err
	}
	taken = o.refMatches(ref, heapType, nullable)
	s.Push(RefVal(ref))
	return taken, nil
}

// BrOnCastFail implements br_on_cast_fail: branches when the reference
// does NOT match heapType.
func (o *Ops) BrOnCastFail(s *Stack, heapType int64, nullable bool) (taken bool, err error) {
	ref, err := s.PopRef()
	if err != nil {
		return false, err
	}
	taken = !o.refMatches(ref, heapType, nullable)
	s.Push(RefVal(ref))
	return taken, nil
}

func (o *Ops) refMatches(ref RefValue, heapType int64, nullable bool) bool {
	if ref.Null {
		return nullable
	}
	return MatchHeap(o.ts, refRuntimeHeap(ref), heapOf(heapType))
}

func heapOf(code int64) HeapType {
	if code < 0 {
		return AbstractHeap(code)
	}
	return ConcreteHeap(uint32(code))
}

func refRuntimeHeap(ref RefValue) HeapType {
	if ref.IsI31 {
		return AbstractHeap(HeapI31)
	}
	if ref.IsFunc {
		return heapOf(ref.HeapTypeIdx)
	}
	if obj, ok := ref.Obj.(*StructObj); ok {
		return ConcreteHeap(obj.TypeIdx())
	}
	if obj, ok := ref.Obj.(*ArrayObj); ok {
		return ConcreteHeap(obj.TypeIdx())
	}
	return heapOf(ref.HeapTypeIdx)
}

// AnyConvertExtern implements any.convert_extern: reinterprets an
// externref (or null externref) as the corresponding anyref.
func (o *Ops) AnyConvertExtern(s *Stack) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if ref.Null {
		s.Push(RefVal(Null(HeapNone)))
		return nil
	}
	out := ref
	out.HeapTypeIdx = HeapAny
	s.Push(RefVal(out))
	return nil
}

// ExternConvertAny implements extern.convert_any: reinterprets an anyref
// (or null anyref) as the corresponding externref.
func (o *Ops) ExternConvertAny(s *Stack) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if ref.Null {
		s.Push(RefVal(Null(HeapNoExtern)))
		return nil
	}
	out := ref
	out.HeapTypeIdx = HeapExtern
	s.Push(RefVal(out))
	return nil
}

// RefFunc implements ref.func: resolves funcIdx against the module's
// function index space and pushes a typed, non-null funcref. funcIdx must
// name a valid function (imported or declared); the caller's validation
// pass is expected to have checked this already, so a missing type here
// indicates a malformed module rather than a normal runtime condition.
func (o *Ops) RefFunc(s *Stack, funcIdx uint32) error {
	ft := o.mod.GetFuncType(funcIdx)
	if ft == nil {
		return wrterrors.New(wrterrors.PhaseGC, wrterrors.KindNotFound).
			Detail("ref.func: no type for function index %d", funcIdx).Build()
	}
	s.Push(RefVal(FuncRef(funcIdx, wasm.HeapTypeFunc)))
	return nil
}

// RefI31 implements ref.i31: truncates an i32 to its low 31 bits and
// boxes it as a non-null i31ref.
func (o *Ops) RefI31(s *Stack) error {
	v, err := s.PopI32()
	if err != nil {
		return err
	}
	s.Push(RefVal(I31(v)))
	return nil
}

// I31GetS implements i31.get_s: sign-extends the 31-bit payload to i32.
func (o *Ops) I31GetS(s *Stack) error { return o.i31Get(s, true) }

// I31GetU implements i31.get_u: zero-extends (masks) the 31-bit payload.
func (o *Ops) I31GetU(s *Stack) error { return o.i31Get(s, false) }

func (o *Ops) i31Get(s *Stack, signed bool) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if ref.Null {
		return wrterrors.CastNullToNonNull("i31.get")
	}
	if !ref.IsI31 {
		return wrterrors.New(wrterrors.PhaseGC, wrterrors.KindTypeMismatch).
			Detail("i31.get: reference is not an i31ref").Build()
	}
	if signed {
		s.Push(I32(ref.I31Val))
		return nil
	}
	s.Push(I32(ref.I31Val & 0x7FFFFFFF))
	return nil
}

// RefEq implements ref.eq: pointer identity for heap objects, value
// equality for i31, both-null for two nulls, and false across different
// representations.
func (o *Ops) RefEq(s *Stack) error {
	b, err := s.PopRef()
	if err != nil {
		return err
	}
	a, err := s.PopRef()
	if err != nil {
		return err
	}
	s.Push(I32(boolToI32(refEqual(a, b))))
	return nil
}

func refEqual(a, b RefValue) bool {
	if a.Null || b.Null {
		return a.Null && b.Null
	}
	if a.IsI31 != b.IsI31 {
		return false
	}
	if a.IsI31 {
		return a.I31Val == b.I31Val
	}
	if a.IsFunc != b.IsFunc {
		return false
	}
	if a.IsFunc {
		return a.FuncIdx == b.FuncIdx
	}
	return a.Obj == b.Obj
}

// RefIsNull implements ref.is_null.
func (o *Ops) RefIsNull(s *Stack) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	s.Push(I32(boolToI32(ref.Null)))
	return nil
}

// RefAsNonNull implements ref.as_non_null: traps on a null reference.
func (o *Ops) RefAsNonNull(s *Stack) error {
	ref, err := s.PopRef()
	if err != nil {
		return err
	}
	if ref.Null {
		return wrterrors.CastNullToNonNull("ref.as_non_null")
	}
	s.Push(RefVal(ref))
	return nil
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
