package gc

import (
	"testing"

	"github.com/wippyai/wasm-runtime/wasm"
)

func TestFromValTypeAbstractRefs(t *testing.T) {
	cases := []struct {
		in   wasm.ValType
		heap int64
	}{
		{wasm.ValFuncRef, HeapFunc},
		{wasm.ValExtern, HeapExtern},
		{wasm.ValEqRef, HeapEq},
		{wasm.ValI31Ref, HeapI31},
		{wasm.ValStructRef, HeapStruct},
		{wasm.ValArrayRef, HeapArray},
		{wasm.ValAnyRef, HeapAny},
	}
	for _, c := range cases {
		vt := FromValType(c.in)
		if !vt.IsRef || !vt.Ref.Heap.Abstract || vt.Ref.Heap.Idx != c.heap {
			t.Fatalf("FromValType(%v) = %+v, want abstract heap %d", c.in, vt, c.heap)
		}
	}
}

func TestFromValTypeNumeric(t *testing.T) {
	vt := FromValType(wasm.ValI32)
	if vt.IsRef || vt.Num != wasm.ValI32 {
		t.Fatalf("FromValType(i32) = %+v, want plain i32", vt)
	}
}

func TestFromExtValTypeConcreteHeap(t *testing.T) {
	ext := wasm.ExtValType{Kind: wasm.ExtValKindRef, RefType: wasm.RefType{Nullable: false, HeapType: 3}}
	vt := FromExtValType(ext)
	if !vt.IsRef || vt.Ref.Heap.Abstract || vt.Ref.Heap.Idx != 3 || vt.Ref.Nullable {
		t.Fatalf("FromExtValType concrete = %+v", vt)
	}
}

func TestFromStorageTypePacked(t *testing.T) {
	s := wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI16}
	vt, packed, bits := FromStorageType(s)
	if !packed || bits != 16 || vt.Num != wasm.ValI32 {
		t.Fatalf("FromStorageType(i16) = %+v packed=%v bits=%d", vt, packed, bits)
	}
}
