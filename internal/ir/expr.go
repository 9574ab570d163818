// Package ir defines the intermediate representation the compiler lowers:
// arena-indexed expression and pattern trees, and the external provider
// interface that supplies them. This IR is produced by a frontend outside
// this module's scope (see spec.md §1/§6); package ir only defines the
// shapes the compiler consumes.
package ir

import "github.com/polyvm/polyvm/internal/types"

// ExprID indexes into a Function's Exprs arena.
type ExprID int

// PatternID indexes into a Function's Patterns arena.
type PatternID int

// LocalID identifies a local variable/parameter binding within a
// function, independent of its eventual slot assignment.
type LocalID int

// BinOp enumerates the binary operators expression lowering handles.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinAnd
	BinOr
	BinXor
	BinShiftL
	BinShiftR
	BinEq
	BinNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
)

// Expr is one node of the expression tree. Exactly one of the Kind-
// specific fields is meaningful, selected by Kind.
type Expr struct {
	Kind ExprKind
	Ty   types.Type
}

// ExprKind is the sealed set of expression shapes lower_expr switches on,
// grounded on bytecode_compiler.rs's lower_expr match arms.
type ExprKind interface{ exprKind() }

type ExprLiteralInt struct{ Value int64 }
type ExprLiteralFloat struct{ Value float64 }
type ExprLiteralBool struct{ Value bool }

type ExprLocal struct{ Local LocalID }

type ExprBlock struct {
	Stmts  []ExprID
	Result ExprID // -1 if the block has no trailing value
}

type ExprLet struct {
	Pattern PatternID
	Init    ExprID
}

type ExprAssign struct {
	Target ExprID // must be a place expr
	Value  ExprID
}

type ExprBinary struct {
	Op          BinOp
	Lhs, Rhs    ExprID
}

type ExprUnaryNeg struct{ Operand ExprID }
type ExprUnaryNot struct{ Operand ExprID }

type ExprCast struct {
	Operand ExprID
	To      types.Type
}

// ExprField accesses a named/positional struct field; FieldIndex is
// resolved against the base's ADT layout at lowering time.
type ExprField struct {
	Base       ExprID
	FieldIndex int
}

// ExprIndex accesses base[index] of an array or slice.
type ExprIndex struct {
	Base  ExprID
	Index ExprID
}

type ExprDeref struct{ Operand ExprID }
type ExprAddrOf struct{ Operand ExprID }

type ExprTuple struct{ Elems []ExprID }

type ExprArray struct{ Elems []ExprID }

// ExprAdtCtor constructs a struct or a specific enum variant.
type ExprAdtCtor struct {
	Adt       types.Adt
	Variant   int // 0 for structs
	FieldVals []ExprID
}

type ExprIf struct {
	Cond ExprID
	Then ExprID
	Else ExprID // -1 if absent
}

// ExprMatch drives pattern compilation: each arm's Pattern is matched
// against Scrutinee in order, first refutable-success wins.
type ExprMatch struct {
	Scrutinee ExprID
	Arms      []MatchArm
}

type MatchArm struct {
	Pattern PatternID
	Body    ExprID
}

type ExprLoop struct{ Body ExprID }
type ExprBreak struct{ Value ExprID } // -1 if no value
type ExprContinue struct{}

// ExprCall invokes a resolved Function (already monomorphized or still
// carrying a SubList to resolve through the provider/trait resolver).
type ExprCall struct {
	Callee ExprID
	Args   []ExprID
}

// ExprItemRef names a top-level item (function, const, or an unresolved
// trait method to be resolved via the trait resolver at lowering time),
// possibly still generic over Subs. When IsTraitMethod is set, Item names
// the trait itself rather than a concrete associated function, and the
// compiler resolves it against ReceiverTypes through the trait resolver
// before emitting the call (spec.md §8's generic trait-dispatch scenario).
type ExprItemRef struct {
	Item          types.ItemID
	Subs          types.SubList
	IsTraitMethod bool
	ReceiverTypes []types.Type
}

// ExprClosure captures a list of locals by value or by reference and
// refers to the closure's base (unspecialized) IR function by item id;
// closure.BuildIRForTrait specializes it per FnTrait at call sites.
type ExprClosure struct {
	Captures []ClosureCapture
	Base     types.ItemID
}

// ExprClosureCall invokes a previously-lowered closure value (Env, which
// must evaluate to the same captured-environment tuple an ExprClosure
// with item id Base produced earlier in this function) through one of
// its FnTrait specializations. Trait is an int rather than
// closure.FnTrait to avoid an ir<->closure import cycle; its values
// mirror closure.FnTrait's ordering (0=Fn, 1=FnMut, 2=FnOnce).
type ExprClosureCall struct {
	Env    ExprID
	Base   types.ItemID
	Trait  int
	Args   []ExprID
}

type ClosureCapture struct {
	Local  LocalID
	ByRef  bool
}

// ExprPromotedConst marks a sub-expression to be constant-evaluated once
// and replaced by a pointer literal into the constant arena.
type ExprPromotedConst struct{ Inner ExprID }

func (ExprLiteralInt) exprKind()      {}
func (ExprLiteralFloat) exprKind()    {}
func (ExprLiteralBool) exprKind()     {}
func (ExprLocal) exprKind()           {}
func (ExprBlock) exprKind()           {}
func (ExprLet) exprKind()             {}
func (ExprAssign) exprKind()          {}
func (ExprBinary) exprKind()          {}
func (ExprUnaryNeg) exprKind()        {}
func (ExprUnaryNot) exprKind()        {}
func (ExprCast) exprKind()            {}
func (ExprField) exprKind()           {}
func (ExprIndex) exprKind()           {}
func (ExprDeref) exprKind()           {}
func (ExprAddrOf) exprKind()          {}
func (ExprTuple) exprKind()           {}
func (ExprArray) exprKind()           {}
func (ExprAdtCtor) exprKind()         {}
func (ExprIf) exprKind()              {}
func (ExprMatch) exprKind()           {}
func (ExprLoop) exprKind()            {}
func (ExprBreak) exprKind()           {}
func (ExprContinue) exprKind()        {}
func (ExprCall) exprKind()            {}
func (ExprItemRef) exprKind()         {}
func (ExprClosure) exprKind()         {}
func (ExprClosureCall) exprKind()     {}
func (ExprPromotedConst) exprKind()   {}
