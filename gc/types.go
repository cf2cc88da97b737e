package gc

import "github.com/wippyai/wasm-runtime/wasm"

// HeapType names either one of the abstract heap types of the
// any/func/extern/exn lattices (listed below), or a concrete composite
// type by its flat index into a TypeSpace.
type HeapType struct {
	Idx      int64 // flat type index when !Abstract
	Abstract bool
}

// Abstract heap type codes, mirroring wasm.HeapTypeXxx so callers never
// need to import wasm just to build a HeapType.
const (
	HeapAny      int64 = wasm.HeapTypeAny
	HeapEq       int64 = wasm.HeapTypeEq
	HeapI31      int64 = wasm.HeapTypeI31
	HeapStruct   int64 = wasm.HeapTypeStruct
	HeapArray    int64 = wasm.HeapTypeArray
	HeapNone     int64 = wasm.HeapTypeNone
	HeapFunc     int64 = wasm.HeapTypeFunc
	HeapNoFunc   int64 = wasm.HeapTypeNoFunc
	HeapExtern   int64 = wasm.HeapTypeExtern
	HeapNoExtern int64 = wasm.HeapTypeNoExtern
	HeapExn      int64 = wasm.HeapTypeExn
	HeapNoExn    int64 = wasm.HeapTypeNoExn
)

// AbstractHeap builds a HeapType for one of the wasm.HeapTypeXxx codes.
func AbstractHeap(code int64) HeapType { return HeapType{Abstract: true, Idx: code} }

// ConcreteHeap builds a HeapType referencing a flat type-section index.
func ConcreteHeap(typeIdx uint32) HeapType { return HeapType{Abstract: false, Idx: int64(typeIdx)} }

// RefT is a reference type: nullable flag plus heap type.
type RefT struct {
	Heap     HeapType
	Nullable bool
}

// VT is a runtime value type: either a plain numeric/vector type or a
// reference type. It normalizes the several encodings the binary format
// uses (bare funcref/externref bytes, the GC (ref null? ht) form, and the
// ExtValType carrier) into one shape for the matcher and the
// operation semantics to consume.
type VT struct {
	Ref    RefT
	Num    wasm.ValType
	IsRef  bool
}

// FromValType converts a plain wasm.ValType byte (used for i32/i64/f32/f64
// and the abstract reference shorthands funcref/externref/eqref/...) into
// a VT.
func FromValType(v wasm.ValType) VT {
	switch v {
	case wasm.ValI32, wasm.ValI64, wasm.ValF32, wasm.ValF64, wasm.ValV128:
		return VT{Num: v}
	case wasm.ValFuncRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapFunc)}}
	case wasm.ValExtern:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapExtern)}}
	case wasm.ValEqRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapEq)}}
	case wasm.ValI31Ref:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapI31)}}
	case wasm.ValStructRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapStruct)}}
	case wasm.ValArrayRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapArray)}}
	case wasm.ValAnyRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapAny)}}
	case wasm.ValNullRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapNone)}}
	case wasm.ValNullFuncRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapNoFunc)}}
	case wasm.ValNullExternRef:
		return VT{IsRef: true, Ref: RefT{Nullable: true, Heap: AbstractHeap(HeapNoExtern)}}
	default:
		return VT{Num: v}
	}
}

// FromExtValType converts a wasm.ExtValType (the GC-aware value type
// carrier used in function signatures, locals, and globals) into a VT,
// resolving its heap type from the (ref null? ht) encoding when present.
func FromExtValType(e wasm.ExtValType) VT {
	if e.Kind == wasm.ExtValKindSimple {
		return FromValType(e.ValType)
	}
	return VT{IsRef: true, Ref: fromRefType(e.RefType)}
}

// FromStorageType converts a struct/array field's storage type (which may
// be i8/i16 packed) into a VT plus whether it is packed and at what width.
func FromStorageType(s wasm.StorageType) (vt VT, packed bool, bits int) {
	switch s.Kind {
	case wasm.StorageKindPacked:
		return VT{Num: wasm.ValI32}, true, packedBits(s.Packed)
	case wasm.StorageKindRef:
		return VT{IsRef: true, Ref: fromRefType(s.RefType)}, false, 0
	default:
		return FromValType(s.ValType), false, 0
	}
}

func packedBits(p byte) int {
	if p == wasm.PackedI8 {
		return 8
	}
	return 16
}

func fromRefType(rt wasm.RefType) RefT {
	if rt.HeapType < 0 {
		return RefT{Nullable: rt.Nullable, Heap: AbstractHeap(rt.HeapType)}
	}
	return RefT{Nullable: rt.Nullable, Heap: ConcreteHeap(uint32(rt.HeapType))}
}

// family identifies which of the three disjoint top hierarchies
// (any/func/extern) a heap type belongs to. Exception refs form a fourth,
// but the GC proposal proper only defines the first three as storable
// struct/array/i31 hosts; family is still reported for exnref so br_on_cast
// style checks can reject cross-family casts uniformly.
type family byte

const (
	familyAny family = iota
	familyFunc
	familyExtern
	familyExn
)

func (h HeapType) family(ts TypeSpace) family {
	if !h.Abstract {
		return familyOfConcrete(ts, uint32(h.Idx))
	}
	switch h.Idx {
	case HeapFunc, HeapNoFunc:
		return familyFunc
	case HeapExtern, HeapNoExtern:
		return familyExtern
	case HeapExn, HeapNoExn:
		return familyExn
	default:
		return familyAny
	}
}

func familyOfConcrete(ts TypeSpace, idx uint32) family {
	st, ok := ts.SubTypeByIndex(idx)
	if !ok {
		return familyAny
	}
	if st.CompType.Kind == wasm.CompKindFunc {
		return familyFunc
	}
	return familyAny
}
