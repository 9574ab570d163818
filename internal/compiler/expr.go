package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// lowerExpr lowers exprID, writing its result either into dst (if
// provided) or a freshly allocated slot, and returns the slot the result
// actually ended up in. Grounded on lower_expr's full ExprKind match in
// bytecode_compiler.rs.
func (c *Compiler) lowerExpr(exprID ir.ExprID, dst slotstack.OptSlot) (Slot, error) {
	expr := c.fn.Expr(exprID)
	ty := c.applySubs(expr.Ty)

	resultSlot := func() Slot {
		if dst.Valid {
			return dst.Slot
		}
		return c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
	}

	switch k := expr.Kind.(type) {
	case ir.ExprLiteralInt:
		s := resultSlot()
		it, _ := ty.(types.Int)
		c.chunk.Write(bytecode.IntConst(s, it.Width, it.Signed, k.Value))
		return s, nil

	case ir.ExprLiteralFloat:
		s := resultSlot()
		ft, _ := ty.(types.Float)
		c.chunk.Write(bytecode.FloatConst(s, ft.Width, k.Value))
		return s, nil

	case ir.ExprLiteralBool:
		s := resultSlot()
		c.chunk.Write(bytecode.BoolConst(s, k.Value))
		return s, nil

	case ir.ExprLocal:
		local, ok := c.findLocal(k.Local)
		if !ok {
			return 0, fmt.Errorf("compiler: use of local %d before its binding", k.Local)
		}
		if !dst.Valid {
			return local.slot, nil
		}
		s := dst.Slot
		c.chunk.Write(bytecode.MovSS(s, local.slot, c.sizeOf(local.ty)))
		return s, nil

	case ir.ExprBlock:
		for _, stmt := range k.Stmts {
			if _, err := c.lowerExpr(stmt, slotstack.NoSlot()); err != nil {
				return 0, err
			}
		}
		if k.Result < 0 {
			return resultSlot(), nil
		}
		return c.lowerExpr(k.Result, dst)

	case ir.ExprLet:
		_, err := c.lowerAndBind(k.Pattern, k.Init)
		if err != nil {
			return 0, err
		}
		return Slot(0), nil

	case ir.ExprAssign:
		place, err := c.exprToPlace(k.Target)
		if err != nil {
			return 0, err
		}
		if _, err := c.lowerExprIntoPlace(k.Value, place); err != nil {
			return 0, err
		}
		return Slot(0), nil

	case ir.ExprBinary:
		return c.lowerBinary(k, ty, resultSlot())

	case ir.ExprUnaryNeg:
		operand, err := c.lowerExpr(k.Operand, slotstack.NoSlot())
		if err != nil {
			return 0, err
		}
		s := resultSlot()
		switch t := ty.(type) {
		case types.Int:
			c.chunk.Write(bytecode.IntUnOp(bytecode.OpIntNeg, s, operand, t.Width, t.Signed))
		case types.Float:
			c.chunk.Write(bytecode.FloatUnOp(bytecode.OpFloatNeg, s, operand, t.Width))
		default:
			return 0, fmt.Errorf("compiler: negation of non-numeric type %s", ty)
		}
		return s, nil

	case ir.ExprUnaryNot:
		operand, err := c.lowerExpr(k.Operand, slotstack.NoSlot())
		if err != nil {
			return 0, err
		}
		s := resultSlot()
		if it, ok := ty.(types.Int); ok {
			c.chunk.Write(bytecode.IntUnOp(bytecode.OpIntNot, s, operand, it.Width, it.Signed))
		} else {
			c.chunk.Write(Instr0(bytecode.OpBoolNot, s, operand))
		}
		return s, nil

	case ir.ExprTuple:
		return c.lowerAggregate(k.Elems, fieldTypesOf(ty), resultSlot())

	case ir.ExprArray:
		elemTy := elemTypeOf(ty)
		fts := make([]types.Type, len(k.Elems))
		for i := range fts {
			fts[i] = elemTy
		}
		return c.lowerAggregate(k.Elems, fts, resultSlot())

	case ir.ExprAdtCtor:
		adt := k.Adt.Apply(c.subs).(types.Adt)
		fieldTys, err := c.adtFieldTypes(adt, k.Variant)
		if err != nil {
			return 0, err
		}
		dst := resultSlot()
		isEnum, err := c.adtIsEnum(adt)
		if err != nil {
			return 0, err
		}
		fieldBase := dst
		if isEnum {
			// Enum payloads are laid out after a fixed 4-byte discriminant
			// (matching variantFieldOffset's enum field offsets), so
			// construction writes the variant tag before its fields.
			c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: dst, Width: types.Width32, ImmInt: int64(k.Variant)})
			fieldBase = slotstack.OffsetBy(dst, 4)
		}
		if _, err := c.lowerAggregate(k.FieldVals, fieldTys, fieldBase); err != nil {
			return 0, err
		}
		return dst, nil

	case ir.ExprField:
		place, err := c.exprToPlace(exprID)
		if err != nil {
			return 0, err
		}
		return c.loadPlace(place, ty, resultSlot())

	case ir.ExprIndex:
		place, err := c.exprToPlace(exprID)
		if err != nil {
			return 0, err
		}
		return c.loadPlace(place, ty, resultSlot())

	case ir.ExprDeref:
		place, err := c.exprToPlace(exprID)
		if err != nil {
			return 0, err
		}
		return c.loadPlace(place, ty, resultSlot())

	case ir.ExprAddrOf:
		place, err := c.exprToPlace(k.Operand)
		if err != nil {
			return 0, err
		}
		s := resultSlot()
		if place.Indirect {
			// Taking the address of an already-indirect place copies the
			// pointer and adds the place's accumulated offset to it.
			c.chunk.Write(bytecode.MovSS(s, place.Slot, 8))
			if place.AddrDelta != 0 {
				deltaSlot := c.stack.Alloc(4, 4)
				c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: deltaSlot, Width: types.Width32, ImmInt: int64(place.AddrDelta)})
				c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntAdd, Dst: s, A: s, B: deltaSlot, Width: types.Width32})
			}
		} else {
			c.chunk.Write(bytecode.SlotAddr(s, slotstack.OffsetBy(place.Slot, place.AddrDelta)))
		}
		return s, nil

	case ir.ExprIf:
		return c.lowerIf(k, dst, resultSlot)

	case ir.ExprMatch:
		return c.lowerMatch(k, dst, resultSlot)

	case ir.ExprLoop:
		return c.lowerLoop(k)

	case ir.ExprBreak:
		return c.lowerBreak(k)

	case ir.ExprContinue:
		return c.lowerContinue()

	case ir.ExprCall:
		return c.lowerCall(k, resultSlot())

	case ir.ExprItemRef:
		// A bare reference to a function item with no call: resolved the
		// same way a call's callee is, but lowering here only needs a
		// stable handle; since this module has no function-value slot
		// representation independent of a Call site, references that
		// aren't immediately called are rejected rather than silently
		// mis-lowered.
		return 0, fmt.Errorf("compiler: function item reference used outside of a call")

	case ir.ExprClosure:
		return c.lowerClosure(k, resultSlot())

	case ir.ExprClosureCall:
		return c.lowerClosureCall(k, ty, resultSlot())

	case ir.ExprPromotedConst:
		return c.lowerPromotedConst(k, ty, resultSlot())

	case ir.ExprCast:
		return c.lowerCast(k, ty, resultSlot())

	default:
		return 0, fmt.Errorf("compiler: lower_expr: unhandled expr kind %T", k)
	}
}

// Instr0 is a tiny helper for single-operand ops not otherwise templated
// by bytecode's constructors (BoolNot takes no width).
func Instr0(op bytecode.Op, dst, a Slot) bytecode.Instr {
	return bytecode.Instr{Op: op, Dst: dst, A: a}
}

func (c *Compiler) lowerAndBind(pattern ir.PatternID, init ir.ExprID) (Slot, error) {
	initTy := c.applySubs(c.fn.Pattern(pattern).Ty)
	slot := c.stack.Alloc(c.sizeOf(initTy), c.alignOf(initTy))
	if _, err := c.lowerExpr(init, slotstack.SomeSlot(slot)); err != nil {
		return 0, err
	}
	if _, err := c.matchPattern(pattern, DirectPlace(slot), false, slotstack.NoSlot()); err != nil {
		return 0, err
	}
	return slot, nil
}

func (c *Compiler) lowerAggregate(elems []ir.ExprID, fieldTys []types.Type, dst Slot) (Slot, error) {
	offset := int32(0)
	for i, e := range elems {
		ft := fieldTys[i]
		offset = alignUpI32(offset, int32(c.alignOf(ft)))
		fieldSlot := slotstack.OffsetBy(dst, offset)
		if _, err := c.lowerExpr(e, slotstack.SomeSlot(fieldSlot)); err != nil {
			return 0, err
		}
		offset += int32(c.sizeOf(ft))
	}
	return dst, nil
}

func alignUpI32(v, align int32) int32 {
	if align <= 1 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

func fieldTypesOf(t types.Type) []types.Type {
	if tup, ok := t.(types.Tuple); ok {
		return tup.Elems
	}
	return nil
}

func elemTypeOf(t types.Type) types.Type {
	switch v := t.(type) {
	case types.Array:
		return v.Elem
	case types.Slice:
		return v.Elem
	default:
		return t
	}
}

func (c *Compiler) adtIsEnum(adt types.Adt) (bool, error) {
	item, err := c.Items.Item(adt.Item)
	if err != nil {
		return false, err
	}
	info, err := item.AdtInfo()
	if err != nil {
		return false, err
	}
	return info.IsEnum, nil
}

func (c *Compiler) adtFieldTypes(adt types.Adt, variant int) ([]types.Type, error) {
	item, err := c.Items.Item(adt.Item)
	if err != nil {
		return nil, err
	}
	info, err := item.AdtInfo()
	if err != nil {
		return nil, err
	}
	if variant >= len(info.Variants) {
		return nil, fmt.Errorf("compiler: variant %d out of range for %s", variant, adt)
	}
	fields := make([]types.Type, len(info.Variants[variant]))
	for i, f := range info.Variants[variant] {
		fields[i] = f.Apply(adt.Subs)
	}
	return fields, nil
}

func (c *Compiler) lowerBinary(k ir.ExprBinary, resultTy types.Type, dst Slot) (Slot, error) {
	lhs, err := c.lowerExpr(k.Lhs, slotstack.NoSlot())
	if err != nil {
		return 0, err
	}
	rhs, err := c.lowerExpr(k.Rhs, slotstack.NoSlot())
	if err != nil {
		return 0, err
	}

	operandTy := c.applySubs(c.fn.Expr(k.Lhs).Ty)

	// a > b and a >= b have no dedicated int opcode; they lower to the
	// Lt/LtEq family with operands swapped (a > b  ==  b < a).
	a, b := lhs, rhs
	if k.Op == ir.BinGt || k.Op == ir.BinGtEq {
		a, b = rhs, lhs
	}

	if it, ok := operandTy.(types.Int); ok {
		op, err := intBinOp(k.Op)
		if err != nil {
			return 0, err
		}
		c.chunk.Write(bytecode.IntBinOp(op, dst, a, b, it.Width, it.Signed))
		return dst, nil
	}
	if ft, ok := operandTy.(types.Float); ok {
		op, err := floatBinOp(k.Op)
		if err != nil {
			return 0, err
		}
		c.chunk.Write(bytecode.FloatBinOp(op, dst, lhs, rhs, ft.Width))
		return dst, nil
	}
	return 0, fmt.Errorf("compiler: binary op on unsupported operand type %s", operandTy)
}

func intBinOp(op ir.BinOp) (bytecode.Op, error) {
	switch op {
	case ir.BinAdd:
		return bytecode.OpIntAdd, nil
	case ir.BinSub:
		return bytecode.OpIntSub, nil
	case ir.BinMul:
		return bytecode.OpIntMul, nil
	case ir.BinDiv:
		return bytecode.OpIntDiv, nil
	case ir.BinRem:
		return bytecode.OpIntRem, nil
	case ir.BinAnd:
		return bytecode.OpIntAnd, nil
	case ir.BinOr:
		return bytecode.OpIntOr, nil
	case ir.BinXor:
		return bytecode.OpIntXor, nil
	case ir.BinShiftL:
		return bytecode.OpIntShiftL, nil
	case ir.BinShiftR:
		return bytecode.OpIntShiftR, nil
	case ir.BinEq:
		return bytecode.OpIntEq, nil
	case ir.BinNotEq:
		return bytecode.OpIntNotEq, nil
	case ir.BinLt:
		return bytecode.OpIntLt, nil
	case ir.BinLtEq:
		return bytecode.OpIntLtEq, nil
	case ir.BinGt:
		// a > b lowers as b < a.
		return bytecode.OpIntLt, nil
	case ir.BinGtEq:
		return bytecode.OpIntLtEq, nil
	default:
		return 0, fmt.Errorf("compiler: unknown int binop %v", op)
	}
}

func floatBinOp(op ir.BinOp) (bytecode.Op, error) {
	switch op {
	case ir.BinAdd:
		return bytecode.OpFloatAdd, nil
	case ir.BinSub:
		return bytecode.OpFloatSub, nil
	case ir.BinMul:
		return bytecode.OpFloatMul, nil
	case ir.BinDiv:
		return bytecode.OpFloatDiv, nil
	case ir.BinRem:
		return bytecode.OpFloatRem, nil
	case ir.BinEq:
		return bytecode.OpFloatEq, nil
	case ir.BinNotEq:
		return bytecode.OpFloatNotEq, nil
	case ir.BinLt:
		return bytecode.OpFloatLt, nil
	case ir.BinLtEq:
		return bytecode.OpFloatLtEq, nil
	case ir.BinGt:
		return bytecode.OpFloatGt, nil
	case ir.BinGtEq:
		return bytecode.OpFloatGtEq, nil
	default:
		return 0, fmt.Errorf("compiler: unknown float binop %v", op)
	}
}
