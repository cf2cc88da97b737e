package gc

import "github.com/wippyai/wasm-runtime/wasm"

// PackedBits returns the storage width of a packed field (8 or 16), or 32
// for any unpacked storage type.
func PackedBits(s wasm.StorageType) int {
	if s.Kind != wasm.StorageKindPacked {
		return 32
	}
	return packedBits(s.Packed)
}

// PackZeroExtend narrows v to the given bit width and zero-extends it back
// to i32, as struct.get_u/array.get_u require.
func PackZeroExtend(v int32, bits int) int32 {
	switch bits {
	case 8:
		return int32(uint8(v))
	case 16:
		return int32(uint16(v))
	default:
		return v
	}
}

// PackSignExtend narrows v to the given bit width and sign-extends it back
// to i32, as struct.get_s/array.get_s require.
func PackSignExtend(v int32, bits int) int32 {
	switch bits {
	case 8:
		return int32(int8(v))
	case 16:
		return int32(int16(v))
	default:
		return v
	}
}

// Truncate narrows an i32 to the given storage width, discarding the high
// bits, as struct.set/array.set do when writing into a packed field.
func Truncate(v int32, bits int) int32 {
	switch bits {
	case 8:
		return int32(uint8(v))
	case 16:
		return int32(uint16(v))
	default:
		return v
	}
}
