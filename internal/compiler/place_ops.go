package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// exprIsPlace reports whether exprID denotes a place (an addressable
// storage location) rather than a pure value, mirroring expr_is_place.
func (c *Compiler) exprIsPlace(exprID ir.ExprID) bool {
	switch c.fn.Expr(exprID).Kind.(type) {
	case ir.ExprLocal, ir.ExprField, ir.ExprIndex, ir.ExprDeref:
		return true
	default:
		return false
	}
}

// exprToPlace lowers exprID as a place rather than a value, grounded on
// expr_to_place's full match over place-expression kinds.
func (c *Compiler) exprToPlace(exprID ir.ExprID) (Place, error) {
	expr := c.fn.Expr(exprID)
	switch k := expr.Kind.(type) {
	case ir.ExprLocal:
		local, ok := c.findLocal(k.Local)
		if !ok {
			return Place{}, fmt.Errorf("compiler: use of local %d before its binding", k.Local)
		}
		return DirectPlace(local.slot), nil

	case ir.ExprField:
		basePlace, err := c.exprToPlace(k.Base)
		if err != nil {
			return Place{}, err
		}
		baseTy := c.applySubs(c.fn.Expr(k.Base).Ty)
		offset, err := c.fieldOffset(baseTy, k.FieldIndex)
		if err != nil {
			return Place{}, err
		}
		return basePlace.OffsetBy(int32(offset)), nil

	case ir.ExprIndex:
		basePlace, err := c.exprToPlace(k.Base)
		if err != nil {
			return Place{}, err
		}
		baseTy := c.applySubs(c.fn.Expr(k.Base).Ty)
		elemTy := elemTypeOf(baseTy)
		stride := int32(c.sizeOf(elemTy))

		// Constant-fold literal indices directly into the static offset;
		// this is the common case (struct-literal-style access) and keeps
		// the emitted code to a single Mov.
		if lit, ok := c.fn.Expr(k.Index).Kind.(ir.ExprLiteralInt); ok {
			return basePlace.OffsetBy(int32(lit.Value) * stride), nil
		}

		// Dynamic index: materialize the base's address, then add
		// index*stride to it at runtime, producing a fresh indirect
		// place. Addresses are carried as Width32 ints throughout (the
		// VM's address space never exceeds 32 bits of stack offset).
		idxSlot, err := c.lowerExpr(k.Index, slotstack.NoSlot())
		if err != nil {
			return Place{}, err
		}
		idxTy := c.applySubs(c.fn.Expr(k.Index).Ty)
		idxWidth := types.Width64
		if it, ok := idxTy.(types.Int); ok {
			idxWidth = it.Width
		}

		idx32 := c.stack.Alloc(4, 4)
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntNarrow, Dst: idx32, A: idxSlot, Width: types.Width32, SrcWidth: idxWidth})

		strideSlot := c.stack.Alloc(4, 4)
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: strideSlot, Width: types.Width32, ImmInt: int64(stride)})

		byteOffset := c.stack.Alloc(4, 4)
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntMul, Dst: byteOffset, A: idx32, B: strideSlot, Width: types.Width32})

		baseAddr := c.stack.Alloc(8, 8)
		if !basePlace.Indirect {
			c.chunk.Write(bytecode.SlotAddr(baseAddr, slotstack.OffsetBy(basePlace.Slot, basePlace.AddrDelta)))
		} else {
			c.chunk.Write(bytecode.MovSS(baseAddr, basePlace.Slot, 4))
			if basePlace.AddrDelta != 0 {
				deltaSlot := c.stack.Alloc(4, 4)
				c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: deltaSlot, Width: types.Width32, ImmInt: int64(basePlace.AddrDelta)})
				c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntAdd, Dst: baseAddr, A: baseAddr, B: deltaSlot, Width: types.Width32})
			}
		}

		addr := c.stack.Alloc(8, 8)
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntAdd, Dst: addr, A: baseAddr, B: byteOffset, Width: types.Width32})

		return IndirectPlace(addr, types.PointerThin), nil

	case ir.ExprDeref:
		inner, err := c.lowerExpr(k.Operand, slotstack.NoSlot())
		if err != nil {
			return Place{}, err
		}
		innerTy := c.applySubs(c.fn.Expr(k.Operand).Ty)
		ptrTy, ok := innerTy.(types.Ptr)
		if !ok {
			return Place{}, fmt.Errorf("compiler: deref of non-pointer type %s", innerTy)
		}
		return IndirectPlace(inner, ptrTy.Kind), nil

	default:
		return Place{}, fmt.Errorf("compiler: expr_to_place: expression kind %T is not a place", k)
	}
}

func (c *Compiler) fieldOffset(baseTy types.Type, fieldIndex int) (uint32, error) {
	switch t := baseTy.(type) {
	case types.Tuple:
		layout := types.LayoutOf(t, c.adtFieldsForLayout)
		return layout.FieldOffsets[fieldIndex], nil
	case types.Adt:
		fields, err := c.adtFieldTypes(t, 0)
		if err != nil {
			return 0, err
		}
		layout := types.LayoutOf(types.Tuple{Elems: fields}, c.adtFieldsForLayout)
		return layout.FieldOffsets[fieldIndex], nil
	default:
		return 0, fmt.Errorf("compiler: field access on non-aggregate type %s", baseTy)
	}
}

// variantFieldOffset computes the byte offset of field fieldIndex within
// the given variant of adt, used by enum pattern matching (where, unlike
// a struct field-access expression, the relevant variant is not always 0).
func (c *Compiler) variantFieldOffset(adt types.Adt, variant, fieldIndex int) (uint32, error) {
	fields, err := c.adtFieldTypes(adt, variant)
	if err != nil {
		return 0, err
	}
	// Enum payload fields are laid out after a fixed 4-byte discriminant
	// (matching emitDiscriminantTest's 4-byte discriminant slots).
	const discriminantSize = 4
	layout := types.LayoutOf(types.Tuple{Elems: fields}, c.adtFieldsForLayout)
	return discriminantSize + layout.FieldOffsets[fieldIndex], nil
}

func (c *Compiler) adtFieldsForLayout(adt types.Adt) ([]types.Type, bool) {
	fields, err := c.adtFieldTypes(adt, 0)
	if err != nil {
		return nil, false
	}
	if isEnum, err := c.adtIsEnum(adt); err != nil || !isEnum {
		return fields, err == nil
	}
	// Enums: a 4-byte discriminant, then room for the largest variant payload.
	payload := types.Tuple{Elems: fields}
	for v := 1; ; v++ {
		vf, err := c.adtFieldTypes(adt, v)
		if err != nil {
			break
		}
		if t := (types.Tuple{Elems: vf}); c.sizeOf(t) > c.sizeOf(payload) {
			payload = t
		}
	}
	return []types.Type{types.Int{Width: types.Width32}, payload}, true
}

// loadPlace copies place's value into dst, adding AddrDelta into the
// effective address for indirect places.
func (c *Compiler) loadPlace(place Place, ty types.Type, dst Slot) (Slot, error) {
	size := c.sizeOf(ty)
	if !place.Indirect {
		c.chunk.Write(bytecode.MovSS(dst, slotstack.OffsetBy(place.Slot, place.AddrDelta), size))
		return dst, nil
	}
	instr := bytecode.MovPS(dst, place.Slot, size)
	instr.AddrOffset = place.AddrDelta
	c.chunk.Write(instr)
	return dst, nil
}

// lowerExprIntoPlace lowers value and stores the result into place.
func (c *Compiler) lowerExprIntoPlace(value ir.ExprID, place Place) (Slot, error) {
	ty := c.applySubs(c.fn.Expr(value).Ty)
	if !place.Indirect {
		return c.lowerExpr(value, slotstack.SomeSlot(slotstack.OffsetBy(place.Slot, place.AddrDelta)))
	}
	tmp := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
	if _, err := c.lowerExpr(value, slotstack.SomeSlot(tmp)); err != nil {
		return 0, err
	}
	instr := bytecode.MovSP(place.Slot, tmp, c.sizeOf(ty))
	instr.AddrOffset = place.AddrDelta
	c.chunk.Write(instr)
	return tmp, nil
}
