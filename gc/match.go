package gc

import "github.com/wippyai/wasm-runtime/wasm"

// TypeSpace resolves a flat type-section index to its declared SubType.
// *wasm.Module implements this directly via SubTypeByIndex, so callers
// never need an adapter between the decoder and the matcher.
type TypeSpace interface {
	SubTypeByIndex(typeIdx uint32) (wasm.SubType, bool)
}

// Match reports whether sub is a valid WebAssembly subtype of sup under
// ts: every value producible as sub can be used wherever sup is expected.
// Numeric types match only when identical; reference types match when
// nullability is respected (non-null sub may satisfy a nullable sup, but
// not vice versa) and their heap types are related by MatchHeap.
func Match(ts TypeSpace, sub, sup VT) bool {
	if sub.IsRef != sup.IsRef {
		return false
	}
	if !sub.IsRef {
		return sub.Num == sup.Num
	}
	if sub.Ref.Nullable && !sup.Ref.Nullable {
		return false
	}
	return MatchHeap(ts, sub.Ref.Heap, sup.Ref.Heap)
}

type heapPairKey struct {
	sub, sup int64
	subAbs, supAbs bool
}

// MatchHeap decides heap-type subtyping coinductively: a pair of types
// currently being proven is assumed to match (the cycle-as-success rule),
// which is what lets recursive type groups terminate instead of looping
// forever walking a declared-supertype cycle.
func MatchHeap(ts TypeSpace, sub, sup HeapType) bool {
	return matchHeap(ts, sub, sup, map[heapPairKey]bool{})
}

func matchHeap(ts TypeSpace, sub, sup HeapType, seen map[heapPairKey]bool) bool {
	if sub.Abstract == sup.Abstract && sub.Idx == sup.Idx {
		return true
	}

	key := heapPairKey{sub: sub.Idx, subAbs: sub.Abstract, sup: sup.Idx, supAbs: sup.Abstract}
	if ok, inProgress := seen[key]; inProgress {
		return ok
	}
	seen[key] = true // assume success; corrected below only on a hard mismatch

	if sub.family(ts) != sup.family(ts) {
		seen[key] = false
		return false
	}

	// sup is this family's top, or sub is this family's bottom: always matches.
	if isTop(sup) || isBottom(sub) {
		return true
	}
	// sub is a top or sup is a bottom and neither matched the reflexive
	// case above: no defined types cross this direction.
	if isTop(sub) || isBottom(sup) {
		seen[key] = false
		return false
	}

	if sup.Abstract {
		// sup names an abstract mid-lattice type (eq/i31/struct/array):
		// sub must be that same category or something known to sit
		// below it.
		ok := matchAbstractSup(ts, sub, sup, seen)
		seen[key] = ok
		return ok
	}

	if sub.Abstract {
		// An abstract sub (other than a bottom, already handled above)
		// can never be below a concrete sup.
		seen[key] = false
		return false
	}

	// Both concrete: walk sub's declared supertype chain.
	subDef, ok := ts.SubTypeByIndex(uint32(sub.Idx))
	if !ok {
		seen[key] = false
		return false
	}
	for _, parentIdx := range subDef.Parents {
		parentDef, ok := ts.SubTypeByIndex(parentIdx)
		if !ok {
			continue
		}
		if !matchComposite(ts, subDef.CompType, parentDef.CompType, seen) {
			continue
		}
		if matchHeap(ts, ConcreteHeap(parentIdx), sup, seen) {
			return true
		}
	}
	seen[key] = false
	return false
}

// matchAbstractSup handles a concrete or abstract sub against an abstract,
// non-top, non-bottom sup (eq, i31, struct, array).
func matchAbstractSup(ts TypeSpace, sub, sup HeapType, seen map[heapPairKey]bool) bool {
	switch sup.Idx {
	case HeapEq:
		// i31/struct/array (concrete or abstract) all sit below eq.
		if !sub.Abstract {
			return true
		}
		switch sub.Idx {
		case HeapI31, HeapStruct, HeapArray:
			return true
		}
		return false
	case HeapI31:
		return sub.Abstract && sub.Idx == HeapI31
	case HeapStruct:
		if sub.Abstract {
			return false
		}
		st, ok := ts.SubTypeByIndex(uint32(sub.Idx))
		return ok && st.CompType.Kind == wasm.CompKindStruct
	case HeapArray:
		if sub.Abstract {
			return false
		}
		st, ok := ts.SubTypeByIndex(uint32(sub.Idx))
		return ok && st.CompType.Kind == wasm.CompKindArray
	default:
		return false
	}
}

func isTop(h HeapType) bool {
	if !h.Abstract {
		return false
	}
	switch h.Idx {
	case HeapAny, HeapFunc, HeapExtern, HeapExn:
		return true
	default:
		return false
	}
}

func isBottom(h HeapType) bool {
	if !h.Abstract {
		return false
	}
	switch h.Idx {
	case HeapNone, HeapNoFunc, HeapNoExtern, HeapNoExn:
		return true
	default:
		return false
	}
}

// matchComposite checks that sub's composite shape is a structural
// subtype of sup's: contravariant parameters and covariant results for
// func, width/depth-compatible fields for struct (sub may add trailing
// fields; shared fields must match, mutable fields invariantly, immutable
// fields covariantly), and element compatibility for array (invariant if
// mutable, covariant if immutable).
func matchComposite(ts TypeSpace, sub, sup wasm.CompType, seen map[heapPairKey]bool) bool {
	if sub.Kind != sup.Kind {
		return false
	}
	switch sub.Kind {
	case wasm.CompKindFunc:
		return matchFunc(ts, sub.Func, sup.Func, seen)
	case wasm.CompKindStruct:
		return matchStruct(ts, sub.Struct, sup.Struct, seen)
	case wasm.CompKindArray:
		return matchField(ts, sub.Array.Element, sup.Array.Element, seen)
	default:
		return false
	}
}

func matchFunc(ts TypeSpace, sub, sup *wasm.FuncType, seen map[heapPairKey]bool) bool {
	if sub == nil || sup == nil {
		return sub == sup
	}
	subParams, supParams := extOrSimple(sub.ExtParams, sub.Params), extOrSimple(sup.ExtParams, sup.Params)
	subResults, supResults := extOrSimple(sub.ExtResults, sub.Results), extOrSimple(sup.ExtResults, sup.Results)
	if len(subParams) != len(supParams) || len(subResults) != len(supResults) {
		return false
	}
	// Contravariant: sup's parameter types must be subtypes of sub's.
	for i := range subParams {
		if !matchVTPair(ts, supParams[i], subParams[i], seen) {
			return false
		}
	}
	// Covariant: sub's result types must be subtypes of sup's.
	for i := range subResults {
		if !matchVTPair(ts, subResults[i], supResults[i], seen) {
			return false
		}
	}
	return true
}

func extOrSimple(ext []wasm.ExtValType, simple []wasm.ValType) []VT {
	if len(ext) > 0 {
		out := make([]VT, len(ext))
		for i, e := range ext {
			out[i] = FromExtValType(e)
		}
		return out
	}
	out := make([]VT, len(simple))
	for i, v := range simple {
		out[i] = FromValType(v)
	}
	return out
}

func matchVTPair(ts TypeSpace, sub, sup VT, seen map[heapPairKey]bool) bool {
	if sub.IsRef != sup.IsRef {
		return false
	}
	if !sub.IsRef {
		return sub.Num == sup.Num
	}
	if sub.Ref.Nullable && !sup.Ref.Nullable {
		return false
	}
	return matchHeap(ts, sub.Ref.Heap, sup.Ref.Heap, seen)
}

func matchStruct(ts TypeSpace, sub, sup *wasm.StructType, seen map[heapPairKey]bool) bool {
	if sub == nil || sup == nil {
		return sub == sup
	}
	if len(sub.Fields) < len(sup.Fields) {
		return false
	}
	for i := range sup.Fields {
		if !matchField(ts, sub.Fields[i], sup.Fields[i], seen) {
			return false
		}
	}
	return true
}

// matchField applies the mutability-dependent field rule: mutable fields
// are invariant (storage type must match exactly in both directions),
// immutable fields are covariant.
func matchField(ts TypeSpace, sub, sup wasm.FieldType, seen map[heapPairKey]bool) bool {
	if sub.Mutable != sup.Mutable {
		return false
	}
	subVT, subPacked, subBits := FromStorageType(sub.Type)
	supVT, supPacked, supBits := FromStorageType(sup.Type)
	if subPacked != supPacked {
		return false
	}
	if subPacked {
		return subBits == supBits
	}
	if sub.Mutable {
		// Invariant: must match both ways.
		return matchVTPair(ts, subVT, supVT, seen) && matchVTPair(ts, supVT, subVT, seen)
	}
	return matchVTPair(ts, subVT, supVT, seen)
}
