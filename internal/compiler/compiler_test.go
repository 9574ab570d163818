package compiler

import (
	"testing"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/traits"
	"github.com/polyvm/polyvm/internal/types"
)

type emptyProvider struct{}

func (emptyProvider) ItemByID(types.ItemID) (ir.ItemMeta, bool)         { return ir.ItemMeta{}, false }
func (emptyProvider) ItemByPath(uint32, string) (types.ItemID, bool)    { return types.ItemID{}, false }
func (emptyProvider) BuildIR(types.ItemID) (*ir.Function, error)        { return &ir.Function{}, nil }
func (emptyProvider) BuildADT(types.ItemID) (*ir.AdtInfo, error)        { return &ir.AdtInfo{}, nil }
func (emptyProvider) TraitImpl(types.ItemID) ([]ir.TraitImpl, error)    { return nil, nil }
func (emptyProvider) InherentImpl(types.ItemID) ([]ir.TraitImpl, error) { return nil, nil }

func newTestCompiler() *Compiler {
	ctx := items.NewContext(emptyProvider{})
	resolver := traits.NewResolver(ctx, nil)
	return New(ctx, resolver, nil)
}

// buildArithmeticExpr builds the IR for 2 + 3 * 4, matching spec.md §8's
// arithmetic literal scenario.
func buildArithmeticExpr() *ir.Function {
	fn := &ir.Function{ReturnType: types.Int{Width: types.Width64, Signed: true}}
	two := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 2}, Ty: types.Int{Width: types.Width64, Signed: true}})
	three := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 3}, Ty: types.Int{Width: types.Width64, Signed: true}})
	four := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 4}, Ty: types.Int{Width: types.Width64, Signed: true}})
	mul := fn.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinMul, Lhs: three, Rhs: four}, Ty: types.Int{Width: types.Width64, Signed: true}})
	add := fn.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinAdd, Lhs: two, Rhs: mul}, Ty: types.Int{Width: types.Width64, Signed: true}})
	fn.Body = add
	return fn
}

func TestCompileArithmeticLiteral(t *testing.T) {
	c := newTestCompiler()
	fn := buildArithmeticExpr()

	chunk, err := c.CompileFunction(fn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if chunk.Len() == 0 {
		t.Fatal("expected non-empty chunk")
	}

	var sawMul, sawAdd, sawReturn bool
	for _, instr := range chunk.Code {
		switch instr.Op {
		case bytecode.OpIntMul:
			sawMul = true
		case bytecode.OpIntAdd:
			sawAdd = true
		case bytecode.OpReturn:
			sawReturn = true
		}
	}
	if !sawMul || !sawAdd || !sawReturn {
		t.Fatalf("expected Mul, Add and Return in chunk: %+v", chunk.Code)
	}
}

// buildArrayIndexExpr builds the IR for [10, 20, 30][1], matching
// spec.md §8's array indexing scenario.
func buildArrayIndexExpr() *ir.Function {
	i64 := types.Int{Width: types.Width64, Signed: true}
	arrTy := types.Array{Elem: i64, Len: 3}
	fn := &ir.Function{ReturnType: i64}

	e0 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 10}, Ty: i64})
	e1 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 20}, Ty: i64})
	e2 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 30}, Ty: i64})
	arr := fn.AddExpr(ir.Expr{Kind: ir.ExprArray{Elems: []ir.ExprID{e0, e1, e2}}, Ty: arrTy})

	letPattern := fn.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: fn.AddLocal("a", arrTy)}, Ty: arrTy})
	letExpr := fn.AddExpr(ir.Expr{Kind: ir.ExprLet{Pattern: letPattern, Init: arr}, Ty: arrTy})

	localRef := fn.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: 0}, Ty: arrTy})
	idx := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 1}, Ty: i64})
	index := fn.AddExpr(ir.Expr{Kind: ir.ExprIndex{Base: localRef, Index: idx}, Ty: i64})

	block := fn.AddExpr(ir.Expr{Kind: ir.ExprBlock{Stmts: []ir.ExprID{letExpr}, Result: index}, Ty: i64})
	fn.Body = block
	return fn
}

func TestCompileArrayIndex(t *testing.T) {
	c := newTestCompiler()
	fn := buildArrayIndexExpr()

	chunk, err := c.CompileFunction(fn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if chunk.Len() == 0 {
		t.Fatal("expected non-empty chunk")
	}
}
