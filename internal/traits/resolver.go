// Package traits implements trait-impl resolution: given a trait item and
// the concrete types it's being invoked with, find the matching TraitImpl
// and the SubList that instantiates its own generics. Grounded on
// Item::find_trait_impl / check_trait_impl / trait_match / subs_match /
// type_match in original_source/src/items.rs.
package traits

import (
	"errors"
	"fmt"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/types"
)

// ErrNotFound is one of spec.md §7's three recoverable error classes:
// trait resolution found no matching impl.
var ErrNotFound = errors.New("traits: no matching impl")

// BuiltinCandidate lets the resolver short-circuit to a builtin
// implementation (e.g. derived/structural equality, Display for
// primitives) before searching user-defined impls, mirroring items.rs's
// builtin.find_candidate check that runs before the impl_list scan.
type BuiltinCandidate func(forTys []types.Type) (types.ItemID, types.SubList, bool)

// Resolver finds trait implementations against a shared item Context.
type Resolver struct {
	ctx     *items.Context
	builtin BuiltinCandidate
}

func NewResolver(ctx *items.Context, builtin BuiltinCandidate) *Resolver {
	return &Resolver{ctx: ctx, builtin: builtin}
}

// FindImpl resolves trait(forTys...) to a concrete AssocFn item and the
// SubList that instantiates the winning impl's own generics. It checks
// the builtin short-circuit first, then iterates the trait's registered
// impls looking for the first structural match whose bounds all resolve.
func (r *Resolver) FindImpl(trait types.ItemID, forTys []types.Type) (types.ItemID, types.SubList, error) {
	if r.builtin != nil {
		if assocFn, subs, ok := r.builtin(forTys); ok {
			return assocFn, subs, nil
		}
	}

	impls, err := r.ctx.TraitImpls(trait)
	if err != nil {
		return types.ItemID{}, nil, fmt.Errorf("traits: fetching impl list for %s: %w", trait, err)
	}

	for _, candidate := range impls {
		subs, ok := r.checkImpl(candidate, forTys)
		if ok {
			return candidate.AssocFn, subs, nil
		}
	}

	return types.ItemID{}, nil, fmt.Errorf("%w: %s for %v", ErrNotFound, trait, forTys)
}

// checkImpl attempts to unify candidate.ForTypes against forTys, then
// resolves every where-clause bound the candidate's own generics carry.
// On success it returns the concrete SubList for the candidate's
// generics.
func (r *Resolver) checkImpl(candidate ir.TraitImpl, forTys []types.Type) (types.SubList, bool) {
	if len(candidate.ForTypes) != len(forTys) {
		return nil, false
	}

	m := newSubMap(candidate.Generics)
	for i := range forTys {
		if !m.unify(candidate.ForTypes[i], forTys[i]) {
			return nil, false
		}
	}

	subs := m.resolve()
	if subs == nil {
		return nil, false
	}

	for _, bound := range candidate.Bounds {
		if !r.resolveBound(bound, subs) {
			return nil, false
		}
	}

	if !subs.IsConcrete() {
		return nil, false
	}
	return subs, true
}

// resolveBound checks that a candidate's where-clause bound holds given
// the SubList resolved so far: a BoundTrait bound recurses into FindImpl
// (mirrors trait_has_impl); a BoundProjection bound requires the
// associated type to equal Value (mirrors resolve_associated_ty +
// type_match).
func (r *Resolver) resolveBound(b ir.Bound, subs types.SubList) bool {
	if b.ParamIndex >= len(subs) {
		return false
	}
	boundTy := subs[b.ParamIndex]

	switch b.Kind {
	case ir.BoundTrait:
		_, _, err := r.FindImpl(b.Trait, []types.Type{boundTy})
		return err == nil
	case ir.BoundProjection:
		// Simplification: this collapses associated-type resolution to a
		// concrete type_match equality instead of running the full
		// resolve_associated_ty -> update_tys recursion (the projection's
		// own impl lookup, then unifying its result back into subs). No
		// candidate here has a where-clause that needs the recursive form,
		// so the bound type is compared directly against the required
		// concrete Value.
		return typeMatch(b.Value, boundTy)
	default:
		return false
	}
}

// subMap accumulates Param -> concrete Type bindings while unifying a
// candidate impl's declared (possibly generic) ForTypes against the
// caller-supplied concrete forTys, grounded on items.rs's SubMap/SubSide.
type subMap struct {
	bindings map[uint32]types.Type
	arity    int
}

func newSubMap(arity int) *subMap {
	return &subMap{bindings: make(map[uint32]types.Type), arity: arity}
}

// unify attempts to unify pattern (from the impl's declared ForTypes,
// possibly containing Params referring to the impl's own generics)
// against concrete (the caller's actual argument type). Unlike a full
// bidirectional unifier, this is one-directional: only pattern may
// contain Params, exactly as trait_match in items.rs only ever binds the
// impl side.
func (m *subMap) unify(pattern, concrete types.Type) bool {
	if p, ok := pattern.(types.Param); ok {
		if existing, bound := m.bindings[p.Index]; bound {
			return typeMatch(existing, concrete)
		}
		m.bindings[p.Index] = concrete
		return true
	}

	switch pv := pattern.(type) {
	case types.Bool:
		_, ok := concrete.(types.Bool)
		return ok
	case types.Int:
		cv, ok := concrete.(types.Int)
		return ok && cv == pv
	case types.Float:
		cv, ok := concrete.(types.Float)
		return ok && cv == pv
	case types.Tuple:
		cv, ok := concrete.(types.Tuple)
		if !ok || len(cv.Elems) != len(pv.Elems) {
			return false
		}
		for i := range pv.Elems {
			if !m.unify(pv.Elems[i], cv.Elems[i]) {
				return false
			}
		}
		return true
	case types.Array:
		cv, ok := concrete.(types.Array)
		return ok && cv.Len == pv.Len && m.unify(pv.Elem, cv.Elem)
	case types.Slice:
		cv, ok := concrete.(types.Slice)
		return ok && m.unify(pv.Elem, cv.Elem)
	case types.Ptr:
		cv, ok := concrete.(types.Ptr)
		return ok && cv.Kind == pv.Kind && m.unify(pv.Elem, cv.Elem)
	case types.Adt:
		cv, ok := concrete.(types.Adt)
		if !ok || cv.Item != pv.Item || len(cv.Subs) != len(pv.Subs) {
			return false
		}
		for i := range pv.Subs {
			if !m.unify(pv.Subs[i], cv.Subs[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (m *subMap) resolve() types.SubList {
	out := make(types.SubList, m.arity)
	for i := 0; i < m.arity; i++ {
		t, ok := m.bindings[uint32(i)]
		if !ok {
			return nil
		}
		out[i] = t
	}
	return out
}

// typeMatch requires a and b to be structurally identical concrete types,
// mirroring items.rs's type_match fallback for concrete/concrete pairs.
func typeMatch(a, b types.Type) bool {
	return a.String() == b.String()
}
