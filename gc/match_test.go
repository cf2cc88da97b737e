package gc

import (
	"testing"

	"github.com/wippyai/wasm-runtime/wasm"
)

type fakeTypeSpace map[uint32]wasm.SubType

func (f fakeTypeSpace) SubTypeByIndex(idx uint32) (wasm.SubType, bool) {
	st, ok := f[idx]
	return st, ok
}

func structSub(fields []wasm.FieldType, parents ...uint32) wasm.SubType {
	return wasm.SubType{
		CompType: wasm.CompType{Kind: wasm.CompKindStruct, Struct: &wasm.StructType{Fields: fields}},
		Parents:  parents,
	}
}

func i32Field(mutable bool) wasm.FieldType {
	return wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}, Mutable: mutable}
}

func TestMatchReflexiveAndLattice(t *testing.T) {
	ts := fakeTypeSpace{0: structSub([]wasm.FieldType{i32Field(false)})}

	concrete := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(0)}}
	anyT := VT{IsRef: true, Ref: RefT{Heap: AbstractHeap(HeapAny)}}
	eqT := VT{IsRef: true, Ref: RefT{Heap: AbstractHeap(HeapEq)}}
	structT := VT{IsRef: true, Ref: RefT{Heap: AbstractHeap(HeapStruct)}}
	noneT := VT{IsRef: true, Ref: RefT{Heap: AbstractHeap(HeapNone)}}

	if !Match(ts, concrete, concrete) {
		t.Fatalf("reflexivity: concrete <: concrete must hold")
	}
	if !Match(ts, concrete, structT) {
		t.Fatalf("concrete struct <: structref must hold")
	}
	if !Match(ts, structT, eqT) {
		t.Fatalf("structref <: eqref must hold")
	}
	if !Match(ts, concrete, anyT) {
		t.Fatalf("concrete struct <: anyref must hold (transitivity)")
	}
	if !Match(ts, noneT, concrete) {
		t.Fatalf("nullref (bottom) <: concrete struct must hold")
	}
	if Match(ts, anyT, concrete) {
		t.Fatalf("anyref must NOT be a subtype of a concrete struct type")
	}
}

func TestMatchNominalChain(t *testing.T) {
	base := structSub([]wasm.FieldType{i32Field(false)})
	derived := structSub([]wasm.FieldType{i32Field(false), i32Field(false)}, 0)
	ts := fakeTypeSpace{0: base, 1: derived}

	baseT := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(0)}}
	derivedT := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(1)}}

	if !Match(ts, derivedT, baseT) {
		t.Fatalf("derived struct (declared sub of base) must match base")
	}
	if Match(ts, baseT, derivedT) {
		t.Fatalf("antisymmetry: base must not match derived")
	}
}

func TestMatchNullability(t *testing.T) {
	ts := fakeTypeSpace{0: structSub([]wasm.FieldType{i32Field(false)})}
	nonNull := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(0), Nullable: false}}
	nullable := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(0), Nullable: true}}

	if !Match(ts, nonNull, nullable) {
		t.Fatalf("non-null ref must match a nullable expectation")
	}
	if Match(ts, nullable, nonNull) {
		t.Fatalf("nullable ref must not match a non-null expectation")
	}
}

func TestMatchCycleTerminates(t *testing.T) {
	// Two struct types declared as mutual subtypes (as an equirecursive
	// group would produce): matching must terminate via the
	// cycle-as-success coinductive rule rather than looping forever.
	a := structSub([]wasm.FieldType{i32Field(false)}, 1)
	b := structSub([]wasm.FieldType{i32Field(false)}, 0)
	ts := fakeTypeSpace{0: a, 1: b}

	aT := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(0)}}
	bT := VT{IsRef: true, Ref: RefT{Heap: ConcreteHeap(1)}}

	if !Match(ts, aT, bT) {
		t.Fatalf("expected a <: b to hold through the cycle")
	}
	if !Match(ts, bT, aT) {
		t.Fatalf("expected b <: a to hold through the cycle")
	}
}

func TestMatchFuncIdenticalSignatures(t *testing.T) {
	wide := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	narrow := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}
	ts := fakeTypeSpace{}

	ok := matchFunc(ts, &narrow, &wide, map[heapPairKey]bool{})
	if !ok {
		t.Fatalf("identical signatures must match")
	}
}

func TestMatchFieldMutabilityInvariance(t *testing.T) {
	ts := fakeTypeSpace{0: structSub(nil)}
	mutA := i32Field(true)
	mutB := wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI64}, Mutable: true}

	if matchField(ts, mutA, mutB, map[heapPairKey]bool{}) {
		t.Fatalf("mutable fields of different storage types must not match")
	}
}
