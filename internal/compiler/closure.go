package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/closure"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// lowerClosure materializes a closure's captured-environment tuple into
// dst. The closure's specialized Fn/FnMut/FnOnce bodies (built lazily via
// package closure when a call site needs one, not eagerly here) are
// registered against the closure's base IR the first time this
// expression is lowered, grounded on closure.rs's Closure<'vm> construction.
func (c *Compiler) lowerClosure(k ir.ExprClosure, dst Slot) (Slot, error) {
	cl, ok := c.Closures[k.Base]
	if !ok {
		base, err := c.Items.Item(k.Base)
		if err != nil {
			return 0, fmt.Errorf("compiler: resolving closure base %s: %w", k.Base, err)
		}
		baseIR, err := base.IR()
		if err != nil {
			return 0, err
		}
		cl = closure.New(uint32(len(c.Closures)), baseIR)
		c.Closures[k.Base] = cl
	}

	offset := int32(0)
	for _, cap := range k.Captures {
		local, ok := c.findLocal(cap.Local)
		if !ok {
			return 0, fmt.Errorf("compiler: capturing undefined local %d", cap.Local)
		}
		fieldSlot := slotstack.OffsetBy(dst, offset)
		capTy := local.ty
		if cap.ByRef {
			c.chunk.Write(bytecode.SlotAddr(fieldSlot, local.slot))
			offset += 8
		} else {
			c.chunk.Write(bytecode.MovSS(fieldSlot, local.slot, c.sizeOf(capTy)))
			offset += int32(c.sizeOf(capTy))
		}
	}
	return dst, nil
}

// lowerClosureCall invokes a previously-lowered closure value through
// its Fn/FnMut/FnOnce specialization: it builds (or reuses, via
// closure.Closure's per-kind sync.Once) the specialized IR, compiles it
// to its own Chunk, and emits a Call instruction whose Callee is that
// Chunk directly — an indirect call resolved at compile time to a
// concrete body, the same way a generic trait method call resolves to a
// concrete impl (spec.md §8's closure scenario).
func (c *Compiler) lowerClosureCall(k ir.ExprClosureCall, resultTy types.Type, dst Slot) (Slot, error) {
	cl, ok := c.Closures[k.Base]
	if !ok {
		return 0, fmt.Errorf("compiler: calling closure %s before its literal was lowered in this function", k.Base)
	}

	envTy := c.applySubs(c.fn.Expr(k.Env).Ty)
	kind := closure.FnTrait(k.Trait)

	selfTy := envTy
	if kind != closure.FnTraitFnOnce {
		selfTy = types.Ptr{Elem: envTy, Kind: types.PointerThin}
	}

	specializedIR := cl.FuncMono(kind, envTy, c.subs)

	sub := &Compiler{Items: c.Items, Traits: c.Traits, Consts: c.Consts, Closures: c.Closures}
	chunk, err := sub.CompileFunction(specializedIR, nil)
	if err != nil {
		return 0, err
	}

	c.stack.AlignForCall()
	frameBase := c.stack.Alloc(0, 16)
	retSlot := frameBase
	c.stack.Alloc(c.sizeOf(resultTy), c.alignOf(resultTy))

	selfSlot := c.stack.Alloc(c.sizeOf(selfTy), c.alignOf(selfTy))
	if kind == closure.FnTraitFnOnce {
		if _, err := c.lowerExpr(k.Env, slotstack.SomeSlot(selfSlot)); err != nil {
			return 0, err
		}
	} else {
		envPlace, err := c.exprToPlace(k.Env)
		if err != nil {
			return 0, err
		}
		if !envPlace.Indirect {
			c.chunk.Write(bytecode.SlotAddr(selfSlot, slotstack.OffsetBy(envPlace.Slot, envPlace.AddrDelta)))
		} else {
			c.chunk.Write(bytecode.MovSS(selfSlot, envPlace.Slot, 8))
		}
	}

	argsTupleTy := specializedIR.ParamTypes[1]
	argsSlot := c.stack.Alloc(c.sizeOf(argsTupleTy), c.alignOf(argsTupleTy))
	layout := types.LayoutOf(argsTupleTy, c.adtFieldsForLayout)
	for i, argExpr := range k.Args {
		fieldSlot := slotstack.OffsetBy(argsSlot, int32(layout.FieldOffsets[i]))
		if _, err := c.lowerExpr(argExpr, slotstack.SomeSlot(fieldSlot)); err != nil {
			return 0, err
		}
	}

	c.chunk.Write(bytecode.Call(retSlot, chunk))

	if dst != retSlot {
		c.chunk.Write(bytecode.MovSS(dst, retSlot, c.sizeOf(resultTy)))
	}
	return dst, nil
}

// closureEnvType computes the captured-environment tuple type for a
// closure literal. Nothing in this package calls it: lowerClosureCall
// takes the environment type from the call's Env expression instead.
func closureEnvType(captures []ir.ClosureCapture, localTypes func(ir.LocalID) types.Type) types.Type {
	elems := make([]types.Type, len(captures))
	for i, cap := range captures {
		t := localTypes(cap.Local)
		if cap.ByRef {
			t = types.Ptr{Elem: t, Kind: types.PointerThin}
		}
		elems[i] = t
	}
	return types.Tuple{Elems: elems}
}
