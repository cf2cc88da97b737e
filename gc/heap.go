package gc

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/wasm-runtime/wasm"
)

// StructObj is a heap-allocated instance of a GC struct type.
type StructObj struct {
	fields []Value
	idx    uint32
}

// TypeIdx returns the flat type index the struct was allocated at.
func (s *StructObj) TypeIdx() uint32 { return s.idx }
func (s *StructObj) isHeapObject()   {}

// NumFields returns the number of fields.
func (s *StructObj) NumFields() int { return len(s.fields) }

// Get returns the value stored at field i.
func (s *StructObj) Get(i uint32) Value { return s.fields[i] }

// Set overwrites the value stored at field i.
func (s *StructObj) Set(i uint32, v Value) { s.fields[i] = v }

// ArrayObj is a heap-allocated instance of a GC array type.
type ArrayObj struct {
	elems []Value
	idx   uint32
}

// TypeIdx returns the flat type index the array was allocated at.
func (a *ArrayObj) TypeIdx() uint32 { return a.idx }
func (a *ArrayObj) isHeapObject()   {}

// Len returns the number of elements.
func (a *ArrayObj) Len() uint32 { return uint32(len(a.elems)) }

// Get returns the value at index i.
func (a *ArrayObj) Get(i uint32) Value { return a.elems[i] }

// Set overwrites the value at index i.
func (a *ArrayObj) Set(i uint32, v Value) { a.elems[i] = v }

// Store allocates struct and array objects, counting each allocation under
// its mutex. Rather than integer handles into a table it owns, Store returns
// plain Go pointers: ref.eq compares them by pointer identity and
// reclamation is whatever the host Go runtime's collector does once a
// WebAssembly instance stops referencing an object, rather than a
// hand-rolled refcount or generational scheme. allocated is kept purely
// for diagnostics and tests.
type Store struct {
	mu        sync.Mutex
	allocated uint64
}

// NewStore creates an empty heap object store.
func NewStore() *Store {
	return &Store{}
}

// Allocated returns the number of objects allocated by this store so far.
func (st *Store) Allocated() uint64 {
	return atomic.LoadUint64(&st.allocated)
}

func (st *Store) count() {
	st.mu.Lock()
	defer st.mu.Unlock()
	atomic.AddUint64(&st.allocated, 1)
}

// NewStructFromValues allocates a struct with explicit field values, as
// struct.new consumes from the stack.
func (st *Store) NewStructFromValues(typeIdx uint32, fields []Value) *StructObj {
	st.count()
	cp := make([]Value, len(fields))
	copy(cp, fields)
	return &StructObj{idx: typeIdx, fields: cp}
}

// NewStructDefault allocates a struct with every field set to its type's
// zero value, as struct.new_default requires. Every field's storage type
// must be defaultable (no non-nullable reference field), which the caller
// is expected to have checked against the module's validation pass.
func (st *Store) NewStructDefault(typeIdx uint32, structType *wasm.StructType) *StructObj {
	fields := make([]Value, len(structType.Fields))
	for i, f := range structType.Fields {
		fields[i] = zeroValue(f.Type)
	}
	st.count()
	return &StructObj{idx: typeIdx, fields: fields}
}

// NewArrayFromValues allocates an array from explicit element values, as
// array.new_fixed and array.new_data/array.new_elem (after reading their
// source) consume.
func (st *Store) NewArrayFromValues(typeIdx uint32, elems []Value) *ArrayObj {
	st.count()
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return &ArrayObj{idx: typeIdx, elems: cp}
}

// NewArraySplat allocates an array of n copies of v, as array.new requires.
func (st *Store) NewArraySplat(typeIdx uint32, v Value, n uint32) *ArrayObj {
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = v
	}
	st.count()
	return &ArrayObj{idx: typeIdx, elems: elems}
}

// NewArrayDefault allocates an array of n zero values for elemType, as
// array.new_default requires.
func (st *Store) NewArrayDefault(typeIdx uint32, elemType wasm.FieldType, n uint32) *ArrayObj {
	zero := zeroValue(elemType.Type)
	return st.NewArraySplat(typeIdx, zero, n)
}

func zeroValue(s wasm.StorageType) Value {
	vt, packed, _ := FromStorageType(s)
	if packed {
		return I32(0)
	}
	if vt.IsRef {
		return RefVal(Null(vt.Ref.Heap.Idx))
	}
	switch vt.Num {
	case wasm.ValI64:
		return I64(0)
	case wasm.ValF32:
		return F32(0)
	case wasm.ValF64:
		return F64(0)
	case wasm.ValV128:
		return V128([16]byte{})
	default:
		return I32(0)
	}
}
