// Package closure implements closure lowering: turning one base IR
// function body into a specialized IR per FnTrait (Fn/FnMut/FnOnce) by
// prepending a synthesized self parameter and rewriting the original
// parameter list into a single captured-args tuple. Grounded on
// original_source/src/closure.rs.
package closure

import (
	"strconv"
	"sync"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

// FnTrait names which calling convention a closure body was specialized
// for, mirroring the original's FnTrait{Fn,FnMut,FnOnce}.
type FnTrait int

const (
	FnTraitFn FnTrait = iota
	FnTraitFnMut
	FnTraitFnOnce
)

// Closure is a single closure expression's runtime identity: its base
// (unspecialized) IR, lazily-built per-trait specializations, and the
// monomorphization cache for each specialization once generic captures
// are instantiated. Grounded on closure.rs's Closure<'vm> struct; OnceLock
// becomes sync.Once-guarded fields, Mutex<AHashMap<..>> becomes a plain
// mutex-guarded map (no third-party hash map is warranted for a cache
// this module only ever accesses through Go's built-in map machinery).
type Closure struct {
	UniqueID uint32

	Base *ir.Function

	onceFn     sync.Once
	onceFnMut  sync.Once
	onceFnOnce sync.Once
	irFn       *ir.Function
	irFnMut    *ir.Function
	irFnOnce   *ir.Function

	monoMu        sync.Mutex
	monoInstances map[string]*ir.Function
}

func New(uniqueID uint32, base *ir.Function) *Closure {
	return &Closure{UniqueID: uniqueID, Base: base, monoInstances: make(map[string]*ir.Function)}
}

// IRForTrait lazily builds (once) and returns the specialized IR for
// kind, given the closure's captured-environment type selfTy.
func (c *Closure) IRForTrait(kind FnTrait, selfTy types.Type) *ir.Function {
	switch kind {
	case FnTraitFn:
		c.onceFn.Do(func() { c.irFn = BuildIRForTrait(c.Base, kind, selfTy) })
		return c.irFn
	case FnTraitFnMut:
		c.onceFnMut.Do(func() { c.irFnMut = BuildIRForTrait(c.Base, kind, selfTy) })
		return c.irFnMut
	default:
		c.onceFnOnce.Do(func() { c.irFnOnce = BuildIRForTrait(c.Base, kind, selfTy) })
		return c.irFnOnce
	}
}

// BuildIRForTrait specializes base into a two-parameter IR function
// (self, args) implementing kind, grounded on closure.rs's
// build_ir_for_trait. self_ty is:
//   - &Env for Fn (shared borrow: the closure may be called repeatedly
//     through a shared reference)
//   - &mut Env for FnMut (unique borrow: the closure may mutate captures)
//   - Env for FnOnce, BY VALUE.
//
// The original leaves the FnOnce case unimplemented (panics "todo self
// ty"); spec.md §4.6 states explicitly that FnOnce receives its
// environment by value, which is what this function implements.
func BuildIRForTrait(base *ir.Function, kind FnTrait, envTy types.Type) *ir.Function {
	out := base.Clone()
	out.ClosureKind = int(kind) + 1

	var selfTy types.Type
	switch kind {
	case FnTraitFn:
		selfTy = types.Ptr{Elem: envTy, Kind: types.PointerThin}
	case FnTraitFnMut:
		selfTy = types.Ptr{Elem: envTy, Kind: types.PointerThin}
	case FnTraitFnOnce:
		selfTy = envTy
	}

	argsTupleTy := types.Tuple{Elems: append([]types.Type(nil), base.ParamTypes...)}

	selfLocal := out.AddLocal("self", selfTy)
	out.AddLocal("args", argsTupleTy)

	selfPattern := out.AddPattern(ir.Pattern{
		Kind: ir.PatternLocalBinding{Local: selfLocal},
		Ty:   selfTy,
	})

	fieldPatterns := make([]ir.PatternID, len(base.Params))
	for i, origParam := range base.Params {
		// Each original parameter becomes a field-destructure against the
		// synthesized args tuple at its original position; the original
		// parameter's own sub-pattern (e.g. a destructuring closure arg)
		// is preserved by nesting it under the tuple field, matching
		// build_ir_for_trait's per-field Struct pattern construction.
		fieldPatterns[i] = origParam
	}
	argsPattern := out.AddPattern(ir.Pattern{
		Kind: ir.PatternStruct{
			Adt:    types.Adt{}, // tuple, not a named ADT; Variant/IsEnum unused
			Fields: fieldPatterns,
		},
		Ty: argsTupleTy,
	})

	out.Params = []ir.PatternID{selfPattern, argsPattern}
	out.ParamTypes = []types.Type{selfTy, argsTupleTy}

	return out
}

// FuncMono returns the monomorphized IR for this closure's kind-specific
// body instantiated with subs (covering a generic closure whose captures
// or body still reference outer type parameters), building and caching
// it on first request.
func (c *Closure) FuncMono(kind FnTrait, selfTy types.Type, subs types.SubList) *ir.Function {
	base := c.IRForTrait(kind, selfTy)
	key := strconv.Itoa(int(kind)) + ":" + subs.Key()

	c.monoMu.Lock()
	defer c.monoMu.Unlock()
	if existing, ok := c.monoInstances[key]; ok {
		return existing
	}
	specialized := base.Clone()
	for i, t := range specialized.ParamTypes {
		specialized.ParamTypes[i] = t.Apply(subs)
	}
	c.monoInstances[key] = specialized
	return specialized
}
