// Package wasmruntime is the module root for a WebAssembly GC-proposal type
// system and executor core.
//
// The module is organized into three packages:
//
//	wasm/    Binary module codec: sections, recursion groups, composite
//	         types (struct/array/func), abstract and defined heap types,
//	         reference-type and storage-type encoding.
//	gc/      The GC proposal's runtime core: tagged values (gc.Value),
//	         the runtime type model (gc.VT/gc.HeapType), the coinductive
//	         subtype matcher (gc.Match/gc.MatchHeap), the heap object
//	         store (gc.Store), and per-opcode operation semantics
//	         (gc.Ops) for struct.*, array.*, ref.*, and i31.*.
//	errors/  The structured error model (phase + kind + detail) both
//	         packages raise.
//
// wasm.Module satisfies gc.TypeSpace directly (via SubTypeByIndex), so a
// decoded module's type section can be handed straight to gc.Match and
// gc.Ops with no adapter layer in between.
//
// The full instruction dispatch loop, function calls, control flow, and
// the component-model loader are out of scope: gc.Ops exposes each GC
// operation as an independently callable method exactly so a dispatch
// loop built elsewhere can call into it opcode-by-opcode.
package wasmruntime
