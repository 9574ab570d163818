package closure

import (
	"testing"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

func baseFn() *ir.Function {
	return &ir.Function{
		Params:     []ir.PatternID{0},
		ParamTypes: []types.Type{types.Int{Width: types.Width64, Signed: true}},
		Patterns:   []ir.Pattern{{Kind: ir.PatternLocalBinding{Local: 0}}},
	}
}

func TestBuildIRForTraitFnUsesSharedRef(t *testing.T) {
	env := types.Int{Width: types.Width32, Signed: true}
	out := BuildIRForTrait(baseFn(), FnTraitFn, env)
	selfTy := out.ParamTypes[0]
	ptr, ok := selfTy.(types.Ptr)
	if !ok {
		t.Fatalf("expected Fn's self type to be a pointer, got %T", selfTy)
	}
	if ptr.Elem.String() != env.String() {
		t.Fatalf("expected pointer to env type, got %s", ptr.Elem.String())
	}
}

func TestBuildIRForTraitFnOnceTakesEnvByValue(t *testing.T) {
	env := types.Int{Width: types.Width32, Signed: true}
	out := BuildIRForTrait(baseFn(), FnTraitFnOnce, env)
	selfTy := out.ParamTypes[0]
	if _, isPtr := selfTy.(types.Ptr); isPtr {
		t.Fatal("expected FnOnce's self type to be the env by value, not a pointer")
	}
	if selfTy.String() != env.String() {
		t.Fatalf("expected self type to equal env type, got %s", selfTy.String())
	}
}

func TestBuildIRForTraitWrapsArgsIntoTuple(t *testing.T) {
	out := BuildIRForTrait(baseFn(), FnTraitFn, types.Bool{})
	if len(out.Params) != 2 {
		t.Fatalf("expected exactly (self, args), got %d params", len(out.Params))
	}
	argsTy, ok := out.ParamTypes[1].(types.Tuple)
	if !ok || len(argsTy.Elems) != 1 {
		t.Fatalf("expected single-element args tuple, got %+v", out.ParamTypes[1])
	}
}

func TestIRForTraitBuildsOnlyOnce(t *testing.T) {
	c := New(1, baseFn())
	a := c.IRForTrait(FnTraitFnMut, types.Bool{})
	b := c.IRForTrait(FnTraitFnMut, types.Bool{})
	if a != b {
		t.Fatal("expected the cached specialization to be reused")
	}
}
