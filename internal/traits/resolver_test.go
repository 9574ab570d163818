package traits

import (
	"errors"
	"testing"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/types"
)

type stubProvider struct {
	impls map[types.ItemID][]ir.TraitImpl
}

func (p *stubProvider) ItemByID(id types.ItemID) (ir.ItemMeta, bool) {
	return ir.ItemMeta{Path: "x", IsFunction: true}, true
}
func (p *stubProvider) ItemByPath(uint32, string) (types.ItemID, bool) { return types.ItemID{}, false }
func (p *stubProvider) BuildIR(types.ItemID) (*ir.Function, error)     { return &ir.Function{}, nil }
func (p *stubProvider) BuildADT(types.ItemID) (*ir.AdtInfo, error)     { return &ir.AdtInfo{}, nil }
func (p *stubProvider) TraitImpl(trait types.ItemID) ([]ir.TraitImpl, error) {
	return p.impls[trait], nil
}
func (p *stubProvider) InherentImpl(types.ItemID) ([]ir.TraitImpl, error) { return nil, nil }

func TestFindImplMatchesGenericImpl(t *testing.T) {
	trait := types.ItemID{Crate: 0, Item: 10}
	assocFn := types.ItemID{Crate: 0, Item: 11}

	p := &stubProvider{impls: map[types.ItemID][]ir.TraitImpl{
		trait: {{
			Generics: 1,
			ForTypes: []types.Type{types.Param{Index: 0}},
			AssocFn:  assocFn,
		}},
	}}
	ctx := items.NewContext(p)
	r := NewResolver(ctx, nil)

	gotFn, subs, err := r.FindImpl(trait, []types.Type{types.Int{Width: types.Width32, Signed: true}})
	if err != nil {
		t.Fatal(err)
	}
	if gotFn != assocFn {
		t.Fatalf("expected assoc fn %v, got %v", assocFn, gotFn)
	}
	if len(subs) != 1 || subs[0].String() != "i32" {
		t.Fatalf("unexpected resolved subs: %v", subs)
	}
}

func TestFindImplNoMatchReturnsErrNotFound(t *testing.T) {
	trait := types.ItemID{Crate: 0, Item: 20}
	p := &stubProvider{impls: map[types.ItemID][]ir.TraitImpl{
		trait: {{
			Generics: 0,
			ForTypes: []types.Type{types.Bool{}},
			AssocFn:  types.ItemID{Crate: 0, Item: 21},
		}},
	}}
	ctx := items.NewContext(p)
	r := NewResolver(ctx, nil)

	_, _, err := r.FindImpl(trait, []types.Type{types.Int{Width: types.Width64, Signed: true}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindImplPrefersBuiltinCandidate(t *testing.T) {
	trait := types.ItemID{Crate: 0, Item: 30}
	builtinFn := types.ItemID{Crate: 0, Item: 31}
	p := &stubProvider{impls: map[types.ItemID][]ir.TraitImpl{}}
	ctx := items.NewContext(p)
	r := NewResolver(ctx, func(forTys []types.Type) (types.ItemID, types.SubList, bool) {
		return builtinFn, nil, true
	})

	gotFn, _, err := r.FindImpl(trait, []types.Type{types.Bool{}})
	if err != nil {
		t.Fatal(err)
	}
	if gotFn != builtinFn {
		t.Fatalf("expected builtin fn %v, got %v", builtinFn, gotFn)
	}
}
