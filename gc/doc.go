// Package gc implements the WebAssembly GC proposal's value model, type
// matcher, heap object store, and instruction semantics: struct and array
// allocation, field access, ref.test/ref.cast, i31 packing, and the
// any/extern conversion operators.
//
// The package builds on the module and type definitions decoded by the
// wasm package (wasm.Module, wasm.SubType, wasm.ValType) rather than
// redefining them; a *wasm.Module satisfies TypeSpace directly.
package gc
