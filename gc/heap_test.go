package gc

import (
	"testing"

	"github.com/wippyai/wasm-runtime/wasm"
)

func TestStoreDefaultStructZeroesFields(t *testing.T) {
	st := NewStore()
	structType := &wasm.StructType{Fields: []wasm.FieldType{
		{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI64}},
		{Type: wasm.StorageType{Kind: wasm.StorageKindRef, RefType: wasm.RefType{Nullable: true, HeapType: wasm.HeapTypeAny}}},
	}}
	obj := st.NewStructDefault(0, structType)
	if obj.NumFields() != 2 {
		t.Fatalf("expected 2 fields, got %d", obj.NumFields())
	}
	if obj.Get(0).AsI64() != 0 {
		t.Fatalf("default i64 field must be zero")
	}
	if !obj.Get(1).Ref.Null {
		t.Fatalf("default reference field must be null")
	}
}

func TestStoreAllocationCounter(t *testing.T) {
	st := NewStore()
	st.NewStructFromValues(0, []Value{I32(1)})
	st.NewArraySplat(1, I32(0), 3)
	if got := st.Allocated(); got != 2 {
		t.Fatalf("expected 2 allocations, got %d", got)
	}
}
