package gc

import (
	"testing"

	"github.com/wippyai/wasm-runtime/wasm"
)

func TestPackingSignAndZeroExtend(t *testing.T) {
	packed := Truncate(-1, 8) // i8 lane full of 1 bits: 0xFF
	if got := PackSignExtend(packed, 8); got != -1 {
		t.Fatalf("sign-extend of 0xFF@i8 = %d, want -1", got)
	}
	if got := PackZeroExtend(packed, 8); got != 255 {
		t.Fatalf("zero-extend of 0xFF@i8 = %d, want 255", got)
	}

	packed16 := Truncate(-1, 16)
	if got := PackSignExtend(packed16, 16); got != -1 {
		t.Fatalf("sign-extend of 0xFFFF@i16 = %d, want -1", got)
	}
	if got := PackZeroExtend(packed16, 16); got != 65535 {
		t.Fatalf("zero-extend of 0xFFFF@i16 = %d, want 65535", got)
	}
}

func TestPackingIdempotent(t *testing.T) {
	v := int32(0x1234ABCD)
	once := Truncate(v, 8)
	twice := Truncate(once, 8)
	if once != twice {
		t.Fatalf("truncation must be idempotent: %d != %d", once, twice)
	}
}

func TestPackedBitsFromStorageType(t *testing.T) {
	i8 := wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI8}
	i16 := wasm.StorageType{Kind: wasm.StorageKindPacked, Packed: wasm.PackedI16}
	plain := wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}

	if got := PackedBits(i8); got != 8 {
		t.Fatalf("i8 storage width = %d, want 8", got)
	}
	if got := PackedBits(i16); got != 16 {
		t.Fatalf("i16 storage width = %d, want 16", got)
	}
	if got := PackedBits(plain); got != 32 {
		t.Fatalf("plain i32 storage width = %d, want 32", got)
	}
}
