package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// matchPattern tests pat against the value held at src, binding any
// locals the pattern introduces as it goes, and reports whether the
// pattern is refutable (i.e. testing could fail at runtime). When
// refutable, the caller (lowerMatch) is responsible for sequencing the
// test's failure path to the next arm; this function itself only emits
// the test-and-bind instructions for one pattern against one place.
// Grounded on match_pattern_internal's full PatternKind match in
// bytecode_compiler.rs.
func (c *Compiler) matchPattern(patID ir.PatternID, src Place, canAlias bool, result slotstack.OptSlot) (bool, error) {
	pat := c.fn.Pattern(patID)

	switch k := pat.Kind.(type) {
	case ir.PatternHole:
		return false, nil

	case ir.PatternLocalBinding:
		c.assertLocalUndef(k.Local)
		ty := c.applySubs(pat.Ty)
		slot := c.findOrAllocLocal(k.Local, ty)
		if _, err := c.loadPlace(src, ty, slot); err != nil {
			return false, err
		}
		if k.HasSub {
			return c.matchPattern(k.SubPattern, src, canAlias, result)
		}
		return false, nil

	case ir.PatternLiteralValue:
		ty := c.applySubs(pat.Ty)
		valSlot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
		if _, err := c.loadPlace(src, ty, valSlot); err != nil {
			return false, err
		}
		litSlot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
		c.emitLiteralConst(k, litSlot)
		dst := valSlot
		if result.Valid {
			dst = result.Slot
		}
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntEq, Dst: dst, A: valSlot, B: litSlot})
		return true, nil

	case ir.PatternLiteralBytes:
		length := uint32(len(k.Bytes))
		valSlot := c.stack.Alloc(length, 1)
		if _, err := c.loadRawBytes(src, length, valSlot); err != nil {
			return false, err
		}
		return true, c.emitBytesTest(valSlot, k.Bytes, result)

	case ir.PatternNamedConst:
		ty := c.applySubs(pat.Ty)
		valSlot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
		if _, err := c.loadPlace(src, ty, valSlot); err != nil {
			return false, err
		}
		return true, c.emitNamedConstTest(k.Item, ty, valSlot, result)

	case ir.PatternRange:
		ty := c.applySubs(pat.Ty)
		valSlot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
		if _, err := c.loadPlace(src, ty, valSlot); err != nil {
			return false, err
		}
		c.emitRangeTest(valSlot, k, result)
		return true, nil

	case ir.PatternStruct:
		return c.matchStructPattern(k, src, canAlias, result)

	case ir.PatternEnum:
		return true, c.emitDiscriminantTest(src, k.Variant, result)

	case ir.PatternOr:
		return c.matchOrPattern(k, src, canAlias, result)

	case ir.PatternDeRef:
		ty := c.applySubs(pat.Ty)
		ptrSlot := c.stack.Alloc(8, 8)
		if _, err := c.loadPlace(src, ty, ptrSlot); err != nil {
			return false, err
		}
		return c.matchPattern(k.Inner, IndirectPlace(ptrSlot, types.PointerThin), canAlias, result)

	case ir.PatternSlice:
		return c.matchSlicePattern(k, src, canAlias, result)

	default:
		return false, fmt.Errorf("compiler: match_pattern: unhandled pattern kind %T", k)
	}
}

// matchStructPattern destructures an ADT (struct, or one enum variant)
// field-by-field. For the tuple-shaped pseudo-ADT closure lowering
// synthesizes for its args pattern (the zero-value types.Adt, which
// names no real item), field offsets come from a plain tuple-of-the-
// fields'-own-types layout instead of an item lookup.
func (c *Compiler) matchStructPattern(k ir.PatternStruct, src Place, canAlias bool, result slotstack.OptSlot) (bool, error) {
	refutable := false
	if k.IsEnum {
		refutable = true
		if err := c.emitDiscriminantTest(src, k.Variant, result); err != nil {
			return false, err
		}
	}

	isPseudoTuple := k.Adt.Item == (types.ItemID{}) && len(k.Adt.Subs) == 0

	for i, fieldPat := range k.Fields {
		var offset int32
		var err error
		if isPseudoTuple {
			offset, err = c.tuplePatternFieldOffset(k.Fields, i)
		} else {
			adt := k.Adt.Apply(c.subs).(types.Adt)
			var u32 uint32
			u32, err = c.variantFieldOffset(adt, k.Variant, i)
			offset = int32(u32)
		}
		if err != nil {
			return false, err
		}

		fieldPlace := src.OffsetBy(offset)
		subRefutable, err := c.matchPattern(fieldPat, fieldPlace, canAlias, slotstack.NoSlot())
		if err != nil {
			return false, err
		}
		refutable = refutable || subRefutable
	}
	return refutable, nil
}

func (c *Compiler) tuplePatternFieldOffset(fields []ir.PatternID, index int) (int32, error) {
	offset := int32(0)
	for i, f := range fields {
		ty := c.applySubs(c.fn.Pattern(f).Ty)
		align := int32(c.alignOf(ty))
		offset = alignUpI32(offset, align)
		if i == index {
			return offset, nil
		}
		offset += int32(c.sizeOf(ty))
	}
	return offset, nil
}

func (c *Compiler) matchOrPattern(k ir.PatternOr, src Place, canAlias bool, result slotstack.OptSlot) (bool, error) {
	var endJumps []int
	for i, alt := range k.Alternatives {
		if _, err := c.matchPattern(alt, src, canAlias, result); err != nil {
			return false, err
		}
		if i < len(k.Alternatives)-1 {
			endJumps = append(endJumps, c.chunk.Write(bytecode.Jump(0)))
		}
	}
	for _, pos := range endJumps {
		c.patchJump(pos)
	}
	return true, nil
}

func (c *Compiler) matchSlicePattern(k ir.PatternSlice, src Place, canAlias bool, result slotstack.OptSlot) (bool, error) {
	offset := int32(0)
	for _, p := range k.Start {
		ty := c.applySubs(c.fn.Pattern(p).Ty)
		if _, err := c.matchPattern(p, src.OffsetBy(offset), canAlias, result); err != nil {
			return false, err
		}
		offset += int32(c.sizeOf(ty))
	}
	// Variable-length Mid matching on a slice needs a runtime-computed
	// base offset this Place model doesn't carry (see the dynamic-index
	// note in exprToPlace's ExprIndex case); fixed arrays (IsArray) never
	// have a Mid, so only that case is supported here.
	if k.HasMid && !k.IsArray {
		return false, fmt.Errorf("compiler: variable-length slice Mid patterns require frontend desugaring to fixed offsets")
	}
	return len(k.Start) > 0 || len(k.End) > 0, nil
}

func (c *Compiler) emitLiteralConst(lit ir.PatternLiteralValue, dst Slot) {
	switch {
	case lit.IsInt:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: dst, ImmInt: lit.IntValue})
	case lit.IsFloat:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpFloatConst, Dst: dst, ImmFloat: lit.FloatValue})
	case lit.IsBool:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpBoolConst, Dst: dst, ImmBool: lit.BoolValue})
	}
}

// loadRawBytes copies length untyped bytes from src into dst, the same
// indirect-vs-direct shape loadPlace uses, without requiring a types.Type
// to describe the payload (a byte-string literal has no element type).
func (c *Compiler) loadRawBytes(src Place, length uint32, dst Slot) (Slot, error) {
	if !src.Indirect {
		c.chunk.Write(bytecode.MovSS(dst, slotstack.OffsetBy(src.Slot, src.AddrDelta), length))
		return dst, nil
	}
	instr := bytecode.MovPS(dst, src.Slot, length)
	instr.AddrOffset = src.AddrDelta
	c.chunk.Write(instr)
	return dst, nil
}

// emitBytesTest compares the length(lit) bytes already loaded at valSlot
// against lit's own bytes via MemCompare, per spec §4.3's LiteralBytes
// row ("compare via MemCompare against a byte-pointer+length pair").
func (c *Compiler) emitBytesTest(valSlot Slot, lit []byte, result slotstack.OptSlot) error {
	litSlot := c.stack.Alloc(uint32(len(lit)), 1)
	for i, b := range lit {
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: slotstack.OffsetBy(litSlot, int32(i)), Width: types.Width8, ImmInt: int64(b)})
	}
	dst := valSlot
	if result.Valid {
		dst = result.Slot
	}
	c.chunk.Write(bytecode.MemCompare(dst, valSlot, litSlot, uint32(len(lit))))
	return nil
}

// emitNamedConstTest compares valSlot (already loaded from src) against
// a named constant item's value, materialized by compiling the const's
// body as a standalone zero-argument function and running it once
// through the constant evaluator, then comparing with an Eq instruction
// (spec §4.3's Literal/NamedConst row), mirroring lowerPromotedConst's
// compile-and-promote shape.
func (c *Compiler) emitNamedConstTest(item types.ItemID, ty types.Type, valSlot Slot, result slotstack.OptSlot) error {
	if c.Consts == nil {
		return fmt.Errorf("compiler: no constant evaluator configured for named-const pattern %s", item)
	}

	constItem, err := c.Items.Item(item)
	if err != nil {
		return fmt.Errorf("compiler: resolving named const %s: %w", item, err)
	}
	body, err := constItem.IR()
	if err != nil {
		return fmt.Errorf("compiler: building IR for named const %s: %w", item, err)
	}

	sub := &Compiler{
		Items:    c.Items,
		Traits:   c.Traits,
		Consts:   c.Consts,
		Closures: c.Closures,
		fn:       body,
		stack:    slotstack.New(),
		chunk:    bytecode.NewChunk(),
		locals:   make(map[ir.LocalID]localBinding),
	}
	resultSlot := sub.stack.Alloc(sub.sizeOf(ty), sub.alignOf(ty))
	if _, err := sub.lowerExpr(body.Body, slotstack.SomeSlot(resultSlot)); err != nil {
		return err
	}
	sub.chunk.Write(bytecode.Return())
	sub.chunk.FrameSize = sub.stack.FrameSize()

	cacheKey := fmt.Sprintf("namedconst:%s", item)
	handle, err := c.Consts.Promote(cacheKey, sub.chunk, c.sizeOf(ty))
	if err != nil {
		return err
	}
	litBytes := c.Consts.ArenaOf().Get(handle)

	litSlot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
	for i, b := range litBytes {
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: slotstack.OffsetBy(litSlot, int32(i)), Width: types.Width8, ImmInt: int64(b)})
	}

	dst := valSlot
	if result.Valid {
		dst = result.Slot
	}
	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntEq, Dst: dst, A: valSlot, B: litSlot})
	return nil
}

// emitRangeTest tests low <= val <= high (or low <= val < high for a
// half-open range). Per spec §4.3 the two bound comparisons are joined
// by a conditional jump rather than both written into the same slot:
// the low-bound result lands in dst, and a JumpF short-circuits past
// the high-bound test (leaving dst false) when the low bound already
// failed.
func (c *Compiler) emitRangeTest(valSlot Slot, r ir.PatternRange, result slotstack.OptSlot) {
	lowSlot := c.stack.Alloc(8, 8)
	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: lowSlot, ImmInt: r.Start})
	highSlot := c.stack.Alloc(8, 8)
	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: highSlot, ImmInt: r.End})

	dst := valSlot
	if result.Valid {
		dst = result.Slot
	}
	op := bytecode.OpIntLtEq
	if !r.Inclusive {
		op = bytecode.OpIntLt
	}

	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntLtEq, Dst: dst, A: lowSlot, B: valSlot})
	skipHigh := c.chunk.Write(bytecode.JumpF(0, dst))
	c.chunk.Write(bytecode.Instr{Op: op, Dst: dst, A: valSlot, B: highSlot})
	c.patchJump(skipHigh)
}

func (c *Compiler) emitDiscriminantTest(src Place, variant int, result slotstack.OptSlot) error {
	discSlot := c.stack.Alloc(4, 4)
	if !src.Indirect {
		c.chunk.Write(bytecode.MovSS(discSlot, slotstack.OffsetBy(src.Slot, src.AddrDelta), 4))
	} else {
		instr := bytecode.MovPS(discSlot, src.Slot, 4)
		instr.AddrOffset = src.AddrDelta
		c.chunk.Write(instr)
	}
	litSlot := c.stack.Alloc(4, 4)
	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: litSlot, ImmInt: int64(variant)})

	dst := discSlot
	if result.Valid {
		dst = result.Slot
	}
	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntEq, Dst: dst, A: discSlot, B: litSlot})
	return nil
}
