package main

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

// demoCrate is the only crate the demo program's item ids are drawn from.
const demoCrate = 0

func itemID(n uint32) types.ItemID { return types.ItemID{Crate: demoCrate, Item: n} }

var (
	pairAdtID            = itemID(0)
	scaffoldDriverID     = itemID(1)
	arithDriverID        = itemID(2)
	indexFnID            = itemID(3)
	indexDriverID        = itemID(4)
	optionAdtID          = itemID(5)
	matchSomeDriverID    = itemID(6)
	matchNoneDriverID    = itemID(7)
	showableTraitID      = itemID(8)
	idI32FnID            = itemID(9)
	idBoolFnID           = itemID(10)
	genericDispatchFnID  = itemID(11)
	dispatchI32DriverID  = itemID(12)
	dispatchBoolDriverID = itemID(13)
	closureAddBaseID     = itemID(14)
	closureOnceDriverID  = itemID(15)
	closureCounterBaseID = itemID(16)
	closureMutDriverID   = itemID(17)
)

var (
	i32Ty   = types.Int{Width: types.Width32, Signed: true}
	usizeTy = types.Int{Width: types.Width64, Signed: false}
	boolTy  = types.Bool{}
	unitTy  = types.Tuple{}
)

// demoProgram is a hand-built, in-memory ir.Provider standing in for a
// real frontend: it backs the six end-to-end scenarios the driver walks
// (struct scaffolding, arithmetic, dynamic array indexing, enum
// matching, generic trait dispatch, and FnOnce/FnMut closures) with
// directly-constructed IR rather than anything parsed from source.
type demoProgram struct {
	meta       map[types.ItemID]ir.ItemMeta
	functions  map[types.ItemID]*ir.Function
	adts       map[types.ItemID]*ir.AdtInfo
	traitImpls map[types.ItemID][]ir.TraitImpl
}

func newDemoProgram() *demoProgram {
	p := &demoProgram{
		meta:       make(map[types.ItemID]ir.ItemMeta),
		functions:  make(map[types.ItemID]*ir.Function),
		adts:       make(map[types.ItemID]*ir.AdtInfo),
		traitImpls: make(map[types.ItemID][]ir.TraitImpl),
	}
	p.buildScaffolding()
	p.buildArithmetic()
	p.buildIndexing()
	p.buildEnumMatch()
	p.buildTraitDispatch()
	p.buildClosures()
	return p
}

func (p *demoProgram) registerFn(id types.ItemID, path string, generics int, f *ir.Function) {
	p.functions[id] = f
	p.meta[id] = ir.ItemMeta{Path: path, GenericCount: generics, IsFunction: true}
}

func (p *demoProgram) registerAdt(id types.ItemID, path string, info *ir.AdtInfo) {
	p.adts[id] = info
	p.meta[id] = ir.ItemMeta{Path: path, IsAdt: true}
}

// --- ir.Provider / provider.Source ---

func (p *demoProgram) ItemByID(id types.ItemID) (ir.ItemMeta, bool) {
	m, ok := p.meta[id]
	return m, ok
}

func (p *demoProgram) ItemByPath(crate uint32, path string) (types.ItemID, bool) {
	for id, m := range p.meta {
		if id.Crate == crate && m.Path == path {
			return id, true
		}
	}
	return types.ItemID{}, false
}

func (p *demoProgram) BuildIR(id types.ItemID) (*ir.Function, error) {
	f, ok := p.functions[id]
	if !ok {
		return nil, fmt.Errorf("demo: no IR registered for item %s", id)
	}
	return f, nil
}

func (p *demoProgram) BuildADT(id types.ItemID) (*ir.AdtInfo, error) {
	info, ok := p.adts[id]
	if !ok {
		return nil, fmt.Errorf("demo: no ADT info registered for item %s", id)
	}
	return info, nil
}

func (p *demoProgram) TraitImpl(trait types.ItemID) ([]ir.TraitImpl, error) {
	return p.traitImpls[trait], nil
}

func (p *demoProgram) InherentImpl(types.ItemID) ([]ir.TraitImpl, error) {
	return nil, nil
}

// --- scenario 1: struct scaffolding ---
//
// struct Pair { a: i32, b: i32 }
//
// fn scaffold() -> i32 {
//     let p = Pair { a: 1, b: 2 };
//     p.a = 99;
//     p = Pair { a: 7, b: 8 };
//     p.a
// }
func (p *demoProgram) buildScaffolding() {
	p.registerAdt(pairAdtID, "demo::Pair", &ir.AdtInfo{
		IsEnum:   false,
		Variants: [][]types.Type{{i32Ty, i32Ty}},
	})
	pairTy := types.Adt{Item: pairAdtID}

	fn := &ir.Function{ReturnType: i32Ty}
	pLocal := fn.AddLocal("p", pairTy)

	lit1 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 1}, Ty: i32Ty})
	lit2 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 2}, Ty: i32Ty})
	ctor1 := fn.AddExpr(ir.Expr{Kind: ir.ExprAdtCtor{Adt: pairTy, FieldVals: []ir.ExprID{lit1, lit2}}, Ty: pairTy})
	pPattern := fn.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: pLocal}, Ty: pairTy})
	letP := fn.AddExpr(ir.Expr{Kind: ir.ExprLet{Pattern: pPattern, Init: ctor1}, Ty: unitTy})

	pRef1 := fn.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: pLocal}, Ty: pairTy})
	assignTargetA := fn.AddExpr(ir.Expr{Kind: ir.ExprField{Base: pRef1, FieldIndex: 0}, Ty: i32Ty})
	lit99 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 99}, Ty: i32Ty})
	assignA := fn.AddExpr(ir.Expr{Kind: ir.ExprAssign{Target: assignTargetA, Value: lit99}, Ty: unitTy})

	lit7 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 7}, Ty: i32Ty})
	lit8 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 8}, Ty: i32Ty})
	ctor2 := fn.AddExpr(ir.Expr{Kind: ir.ExprAdtCtor{Adt: pairTy, FieldVals: []ir.ExprID{lit7, lit8}}, Ty: pairTy})
	assignTargetWhole := fn.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: pLocal}, Ty: pairTy})
	assignWhole := fn.AddExpr(ir.Expr{Kind: ir.ExprAssign{Target: assignTargetWhole, Value: ctor2}, Ty: unitTy})

	pRef2 := fn.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: pLocal}, Ty: pairTy})
	resultField := fn.AddExpr(ir.Expr{Kind: ir.ExprField{Base: pRef2, FieldIndex: 0}, Ty: i32Ty})

	fn.Body = fn.AddExpr(ir.Expr{
		Kind: ir.ExprBlock{Stmts: []ir.ExprID{letP, assignA, assignWhole}, Result: resultField},
		Ty:   i32Ty,
	})

	p.registerFn(scaffoldDriverID, "demo::scaffold", 0, fn)
}

// --- scenario 2: arithmetic ---
//
// fn arith() -> i32 { 2 + 3 * 4 }
func (p *demoProgram) buildArithmetic() {
	fn := &ir.Function{ReturnType: i32Ty}
	lit2 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 2}, Ty: i32Ty})
	lit3 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 3}, Ty: i32Ty})
	lit4 := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 4}, Ty: i32Ty})
	mul := fn.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinMul, Lhs: lit3, Rhs: lit4}, Ty: i32Ty})
	add := fn.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinAdd, Lhs: lit2, Rhs: mul}, Ty: i32Ty})
	fn.Body = add

	p.registerFn(arithDriverID, "demo::arith", 0, fn)
}

// --- scenario 3: dynamic array indexing ---
//
// fn at(a: [i32; 4], i: usize) -> i32 { a[i] }
// fn indexDemo() -> i32 { at([10, 20, 30, 40], 2) }
func (p *demoProgram) buildIndexing() {
	arrayTy := types.Array{Elem: i32Ty, Len: 4}

	at := &ir.Function{ReturnType: i32Ty, ParamTypes: []types.Type{arrayTy, usizeTy}}
	aLocal := at.AddLocal("a", arrayTy)
	iLocal := at.AddLocal("i", usizeTy)
	aPattern := at.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: aLocal}, Ty: arrayTy})
	iPattern := at.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: iLocal}, Ty: usizeTy})
	at.Params = []ir.PatternID{aPattern, iPattern}

	aRef := at.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: aLocal}, Ty: arrayTy})
	iRef := at.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: iLocal}, Ty: usizeTy})
	at.Body = at.AddExpr(ir.Expr{Kind: ir.ExprIndex{Base: aRef, Index: iRef}, Ty: i32Ty})

	p.registerFn(indexFnID, "demo::at", 0, at)

	driver := &ir.Function{ReturnType: i32Ty}
	var elems []ir.ExprID
	for _, v := range []int64{10, 20, 30, 40} {
		elems = append(elems, driver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: v}, Ty: i32Ty}))
	}
	arrExpr := driver.AddExpr(ir.Expr{Kind: ir.ExprArray{Elems: elems}, Ty: arrayTy})
	idxLit := driver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 2}, Ty: usizeTy})
	callee := driver.AddExpr(ir.Expr{Kind: ir.ExprItemRef{Item: indexFnID}, Ty: i32Ty})
	driver.Body = driver.AddExpr(ir.Expr{Kind: ir.ExprCall{Callee: callee, Args: []ir.ExprID{arrExpr, idxLit}}, Ty: i32Ty})

	p.registerFn(indexDriverID, "demo::indexDemo", 0, driver)
}

// --- scenario 4: enum matching ---
//
// enum Option { Some(i32), None }
//
// fn matchSome() -> i32 { match Option::Some(7) { Some(x) => x + 1, None => 0 } }
// fn matchNone() -> i32 { match Option::None    { Some(x) => x + 1, None => 0 } }
func (p *demoProgram) buildEnumMatch() {
	p.registerAdt(optionAdtID, "demo::Option", &ir.AdtInfo{
		IsEnum:   true,
		Variants: [][]types.Type{{i32Ty}, {}},
	})
	optionTy := types.Adt{Item: optionAdtID}

	buildMatcher := func(ctorVariant int, ctorFields func(fn *ir.Function) []ir.ExprID) *ir.Function {
		fn := &ir.Function{ReturnType: i32Ty}
		var fieldVals []ir.ExprID
		if ctorFields != nil {
			fieldVals = ctorFields(fn)
		}
		scrutinee := fn.AddExpr(ir.Expr{Kind: ir.ExprAdtCtor{Adt: optionTy, Variant: ctorVariant, FieldVals: fieldVals}, Ty: optionTy})

		xLocal := fn.AddLocal("x", i32Ty)
		xPattern := fn.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: xLocal}, Ty: i32Ty})
		somePattern := fn.AddPattern(ir.Pattern{
			Kind: ir.PatternStruct{Adt: optionTy, Variant: 0, IsEnum: true, Fields: []ir.PatternID{xPattern}},
			Ty:   optionTy,
		})
		nonePattern := fn.AddPattern(ir.Pattern{Kind: ir.PatternEnum{Adt: optionTy, Variant: 1}, Ty: optionTy})

		xRef := fn.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: xLocal}, Ty: i32Ty})
		one := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 1}, Ty: i32Ty})
		someBody := fn.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinAdd, Lhs: xRef, Rhs: one}, Ty: i32Ty})
		noneBody := fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 0}, Ty: i32Ty})

		fn.Body = fn.AddExpr(ir.Expr{
			Kind: ir.ExprMatch{Scrutinee: scrutinee, Arms: []ir.MatchArm{
				{Pattern: somePattern, Body: someBody},
				{Pattern: nonePattern, Body: noneBody},
			}},
			Ty: i32Ty,
		})
		return fn
	}

	someCtorFields := func(fn *ir.Function) []ir.ExprID {
		return []ir.ExprID{fn.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 7}, Ty: i32Ty})}
	}
	p.registerFn(matchSomeDriverID, "demo::matchSome", 0, buildMatcher(0, someCtorFields))
	p.registerFn(matchNoneDriverID, "demo::matchNone", 0, buildMatcher(1, nil))
}

// --- scenario 5: generic trait dispatch ---
//
// trait Showable { fn showAsInt(self) -> i32; }
// impl Showable for i32  { fn showAsInt(self) -> i32 { self } }
// impl Showable for bool { fn showAsInt(self) -> i32 { if self { 1 } else { 0 } } }
//
// fn dispatch<X>(x: X) -> i32 { x.showAsInt() }
// fn dispatchI32()  -> i32 { dispatch::<i32>(42) }
// fn dispatchBool() -> i32 { dispatch::<bool>(true) }
func (p *demoProgram) buildTraitDispatch() {
	xParamTy := types.Param{Index: 0}

	idI32 := &ir.Function{ReturnType: i32Ty, ParamTypes: []types.Type{i32Ty}}
	selfLocalI32 := idI32.AddLocal("self", i32Ty)
	selfPatternI32 := idI32.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: selfLocalI32}, Ty: i32Ty})
	idI32.Params = []ir.PatternID{selfPatternI32}
	idI32.Body = idI32.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: selfLocalI32}, Ty: i32Ty})
	p.registerFn(idI32FnID, "demo::Showable::i32::showAsInt", 0, idI32)

	idBool := &ir.Function{ReturnType: i32Ty, ParamTypes: []types.Type{boolTy}}
	selfLocalBool := idBool.AddLocal("self", boolTy)
	selfPatternBool := idBool.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: selfLocalBool}, Ty: boolTy})
	idBool.Params = []ir.PatternID{selfPatternBool}
	cond := idBool.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: selfLocalBool}, Ty: boolTy})
	thenVal := idBool.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 1}, Ty: i32Ty})
	elseVal := idBool.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 0}, Ty: i32Ty})
	idBool.Body = idBool.AddExpr(ir.Expr{Kind: ir.ExprIf{Cond: cond, Then: thenVal, Else: elseVal}, Ty: i32Ty})
	p.registerFn(idBoolFnID, "demo::Showable::bool::showAsInt", 0, idBool)

	p.traitImpls[showableTraitID] = []ir.TraitImpl{
		{ForTypes: []types.Type{i32Ty}, AssocFn: idI32FnID},
		{ForTypes: []types.Type{boolTy}, AssocFn: idBoolFnID},
	}

	dispatch := &ir.Function{ReturnType: i32Ty, GenericCount: 1, ParamTypes: []types.Type{xParamTy}}
	xLocal := dispatch.AddLocal("x", xParamTy)
	xPattern := dispatch.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: xLocal}, Ty: xParamTy})
	dispatch.Params = []ir.PatternID{xPattern}
	xRef := dispatch.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: xLocal}, Ty: xParamTy})
	traitRef := dispatch.AddExpr(ir.Expr{Kind: ir.ExprItemRef{
		Item:          showableTraitID,
		IsTraitMethod: true,
		ReceiverTypes: []types.Type{xParamTy},
	}, Ty: i32Ty})
	dispatch.Body = dispatch.AddExpr(ir.Expr{Kind: ir.ExprCall{Callee: traitRef, Args: []ir.ExprID{xRef}}, Ty: i32Ty})
	p.registerFn(genericDispatchFnID, "demo::dispatch", 1, dispatch)

	i32Driver := &ir.Function{ReturnType: i32Ty}
	lit42 := i32Driver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 42}, Ty: i32Ty})
	calleeI32 := i32Driver.AddExpr(ir.Expr{Kind: ir.ExprItemRef{Item: genericDispatchFnID, Subs: types.SubList{i32Ty}}, Ty: i32Ty})
	i32Driver.Body = i32Driver.AddExpr(ir.Expr{Kind: ir.ExprCall{Callee: calleeI32, Args: []ir.ExprID{lit42}}, Ty: i32Ty})
	p.registerFn(dispatchI32DriverID, "demo::dispatchI32", 0, i32Driver)

	boolDriver := &ir.Function{ReturnType: i32Ty}
	litTrue := boolDriver.AddExpr(ir.Expr{Kind: ir.ExprLiteralBool{Value: true}, Ty: boolTy})
	calleeBool := boolDriver.AddExpr(ir.Expr{Kind: ir.ExprItemRef{Item: genericDispatchFnID, Subs: types.SubList{boolTy}}, Ty: i32Ty})
	boolDriver.Body = boolDriver.AddExpr(ir.Expr{Kind: ir.ExprCall{Callee: calleeBool, Args: []ir.ExprID{litTrue}}, Ty: i32Ty})
	p.registerFn(dispatchBoolDriverID, "demo::dispatchBool", 0, boolDriver)
}

// --- scenario 6: closures ---
//
// fn closureOnce() -> i32 {
//     let add = |a: i32, b: i32| a + b; // captures nothing, called FnOnce
//     add(3, 4)
// }
//
// fn closureMut() -> i32 {
//     let mut count = 10;
//     let mut bump = || { count = count + 1; count }; // captures count by ref, FnMut
//     bump();
//     bump()
// }
func (p *demoProgram) buildClosures() {
	addBase := &ir.Function{ReturnType: i32Ty, ParamTypes: []types.Type{i32Ty, i32Ty}}
	aLocal := addBase.AddLocal("a", i32Ty)
	bLocal := addBase.AddLocal("b", i32Ty)
	aPattern := addBase.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: aLocal}, Ty: i32Ty})
	bPattern := addBase.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: bLocal}, Ty: i32Ty})
	addBase.Params = []ir.PatternID{aPattern, bPattern}
	aRef := addBase.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: aLocal}, Ty: i32Ty})
	bRef := addBase.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: bLocal}, Ty: i32Ty})
	addBase.Body = addBase.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinAdd, Lhs: aRef, Rhs: bRef}, Ty: i32Ty})
	p.registerFn(closureAddBaseID, "demo::closureAddBase", 0, addBase)

	onceEnvTy := unitTy
	onceDriver := &ir.Function{ReturnType: i32Ty}
	envLocal := onceDriver.AddLocal("add", onceEnvTy)
	closureExpr := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprClosure{Base: closureAddBaseID}, Ty: onceEnvTy})
	envPattern := onceDriver.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: envLocal}, Ty: onceEnvTy})
	letEnv := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprLet{Pattern: envPattern, Init: closureExpr}, Ty: unitTy})
	envRef := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: envLocal}, Ty: onceEnvTy})
	lit3 := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 3}, Ty: i32Ty})
	lit4 := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 4}, Ty: i32Ty})
	callOnce := onceDriver.AddExpr(ir.Expr{Kind: ir.ExprClosureCall{
		Env: envRef, Base: closureAddBaseID, Trait: 2, Args: []ir.ExprID{lit3, lit4},
	}, Ty: i32Ty})
	onceDriver.Body = onceDriver.AddExpr(ir.Expr{Kind: ir.ExprBlock{Stmts: []ir.ExprID{letEnv}, Result: callOnce}, Ty: i32Ty})
	p.registerFn(closureOnceDriverID, "demo::closureOnce", 0, onceDriver)

	// The counter base takes no original parameters (an FnMut closure with
	// zero args). It accesses its capture through the synthesized self
	// parameter directly: self has local id 0 since this function declares
	// no locals of its own before closure.BuildIRForTrait appends "self"
	// and "args" to a clone of it.
	countPtrTy := types.Ptr{Elem: i32Ty, Kind: types.PointerThin}
	counterEnvTy := types.Tuple{Elems: []types.Type{countPtrTy}}
	selfTy := types.Ptr{Elem: counterEnvTy, Kind: types.PointerThin}

	counterBase := &ir.Function{ReturnType: i32Ty}
	selfExpr := counterBase.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: 0}, Ty: selfTy})
	envDeref := counterBase.AddExpr(ir.Expr{Kind: ir.ExprDeref{Operand: selfExpr}, Ty: counterEnvTy})
	countPtrField := counterBase.AddExpr(ir.Expr{Kind: ir.ExprField{Base: envDeref, FieldIndex: 0}, Ty: countPtrTy})
	readCount := counterBase.AddExpr(ir.Expr{Kind: ir.ExprDeref{Operand: countPtrField}, Ty: i32Ty})
	one := counterBase.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 1}, Ty: i32Ty})
	incremented := counterBase.AddExpr(ir.Expr{Kind: ir.ExprBinary{Op: ir.BinAdd, Lhs: readCount, Rhs: one}, Ty: i32Ty})
	assignTarget := counterBase.AddExpr(ir.Expr{Kind: ir.ExprDeref{Operand: countPtrField}, Ty: i32Ty})
	assign := counterBase.AddExpr(ir.Expr{Kind: ir.ExprAssign{Target: assignTarget, Value: incremented}, Ty: unitTy})
	finalRead := counterBase.AddExpr(ir.Expr{Kind: ir.ExprDeref{Operand: countPtrField}, Ty: i32Ty})
	counterBase.Body = counterBase.AddExpr(ir.Expr{Kind: ir.ExprBlock{Stmts: []ir.ExprID{assign}, Result: finalRead}, Ty: i32Ty})
	p.registerFn(closureCounterBaseID, "demo::closureCounterBase", 0, counterBase)

	mutDriver := &ir.Function{ReturnType: i32Ty}
	countLocal := mutDriver.AddLocal("count", i32Ty)
	lit10 := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprLiteralInt{Value: 10}, Ty: i32Ty})
	countPattern := mutDriver.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: countLocal}, Ty: i32Ty})
	letCount := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprLet{Pattern: countPattern, Init: lit10}, Ty: unitTy})

	counterEnvLocal := mutDriver.AddLocal("bump", counterEnvTy)
	counterClosureExpr := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprClosure{
		Captures: []ir.ClosureCapture{{Local: countLocal, ByRef: true}},
		Base:     closureCounterBaseID,
	}, Ty: counterEnvTy})
	counterEnvPattern := mutDriver.AddPattern(ir.Pattern{Kind: ir.PatternLocalBinding{Local: counterEnvLocal}, Ty: counterEnvTy})
	letCounterEnv := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprLet{Pattern: counterEnvPattern, Init: counterClosureExpr}, Ty: unitTy})

	envRef1 := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: counterEnvLocal}, Ty: counterEnvTy})
	call1 := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprClosureCall{Env: envRef1, Base: closureCounterBaseID, Trait: 1}, Ty: i32Ty})
	envRef2 := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprLocal{Local: counterEnvLocal}, Ty: counterEnvTy})
	call2 := mutDriver.AddExpr(ir.Expr{Kind: ir.ExprClosureCall{Env: envRef2, Base: closureCounterBaseID, Trait: 1}, Ty: i32Ty})

	mutDriver.Body = mutDriver.AddExpr(ir.Expr{
		Kind: ir.ExprBlock{Stmts: []ir.ExprID{letCount, letCounterEnv, call1}, Result: call2},
		Ty:   i32Ty,
	})
	p.registerFn(closureMutDriverID, "demo::closureMut", 0, mutDriver)
}
