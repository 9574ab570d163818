package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

func (c *Compiler) lowerIf(k ir.ExprIf, dst slotstack.OptSlot, resultSlot func() Slot) (Slot, error) {
	cond, err := c.lowerExpr(k.Cond, slotstack.NoSlot())
	if err != nil {
		return 0, err
	}

	result := resultSlot()
	jumpToElse := c.chunk.Write(bytecode.JumpF(0, cond))

	if _, err := c.lowerExpr(k.Then, slotstack.SomeSlot(result)); err != nil {
		return 0, err
	}

	if k.Else < 0 {
		c.patchJump(jumpToElse)
		return result, nil
	}

	jumpToEnd := c.chunk.Write(bytecode.Jump(0))
	c.patchJump(jumpToElse)
	if _, err := c.lowerExpr(k.Else, slotstack.SomeSlot(result)); err != nil {
		return 0, err
	}
	c.patchJump(jumpToEnd)

	return result, nil
}

func (c *Compiler) patchJump(pos int) {
	target := c.chunk.CurrentOffset()
	instr := c.chunk.Code[pos]
	instr.JumpOffset = int32(target - pos)
	c.chunk.Patch(pos, instr)
}

func (c *Compiler) lowerMatch(k ir.ExprMatch, dst slotstack.OptSlot, resultSlot func() Slot) (Slot, error) {
	scrutineeTy := c.applySubs(c.fn.Expr(k.Scrutinee).Ty)
	scrutSlot := c.stack.Alloc(c.sizeOf(scrutineeTy), c.alignOf(scrutineeTy))
	if _, err := c.lowerExpr(k.Scrutinee, slotstack.SomeSlot(scrutSlot)); err != nil {
		return 0, err
	}

	result := resultSlot()
	var endJumps []int
	failJump := -1 // pending jump-to-next-arm-test left by the previous refutable arm

	for i, arm := range k.Arms {
		if failJump >= 0 {
			c.patchJump(failJump)
			failJump = -1
		}

		scope := c.stack.PushScope()
		testSlot := c.stack.Alloc(1, 1)
		refutable, err := c.matchPattern(arm.Pattern, DirectPlace(scrutSlot), true, slotstack.SomeSlot(testSlot))
		if err != nil {
			return 0, err
		}

		// matchPattern performs binding side effects eagerly as it tests
		// (this module's pattern compiler binds as it tests, rather than
		// deferring bindings to a separate success block, matching
		// match_pattern_internal's interleaved test-then-bind style); a
		// refutable pattern additionally leaves testSlot holding whether the
		// test passed, which gates the arm body with a JumpF to the next
		// arm's test.
		if refutable {
			failJump = c.chunk.Write(bytecode.JumpF(0, testSlot))
		}

		if _, err := c.lowerExpr(arm.Body, slotstack.SomeSlot(result)); err != nil {
			return 0, err
		}
		c.stack.PopScope(scope)

		if i < len(k.Arms)-1 {
			endJumps = append(endJumps, c.chunk.Write(bytecode.Jump(0)))
		}
	}
	if failJump >= 0 {
		c.patchJump(failJump)
	}
	for _, pos := range endJumps {
		c.patchJump(pos)
	}

	return result, nil
}

func (c *Compiler) lowerLoop(k ir.ExprLoop) (Slot, error) {
	start := c.chunk.CurrentOffset()
	c.loopStack = append(c.loopStack, loopContext{loopStart: start})

	if _, err := c.lowerExpr(k.Body, slotstack.NoSlot()); err != nil {
		return 0, err
	}
	backJump := c.chunk.Write(bytecode.Jump(0))
	instr := c.chunk.Code[backJump]
	instr.JumpOffset = int32(start - backJump)
	c.chunk.Patch(backJump, instr)

	top := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	for _, pos := range top.breakJumps {
		c.patchJump(pos)
	}
	return 0, nil
}

func (c *Compiler) lowerBreak(k ir.ExprBreak) (Slot, error) {
	if len(c.loopStack) == 0 {
		return 0, fmt.Errorf("compiler: break outside of a loop")
	}
	if k.Value >= 0 {
		if _, err := c.lowerExpr(k.Value, slotstack.NoSlot()); err != nil {
			return 0, err
		}
	}
	pos := c.chunk.Write(bytecode.Jump(0))
	top := len(c.loopStack) - 1
	c.loopStack[top].breakJumps = append(c.loopStack[top].breakJumps, pos)
	return 0, nil
}

func (c *Compiler) lowerContinue() (Slot, error) {
	if len(c.loopStack) == 0 {
		return 0, fmt.Errorf("compiler: continue outside of a loop")
	}
	start := c.loopStack[len(c.loopStack)-1].loopStart
	pos := c.chunk.Write(bytecode.Jump(0))
	instr := c.chunk.Code[pos]
	instr.JumpOffset = int32(start - pos)
	c.chunk.Patch(pos, instr)
	return 0, nil
}

func (c *Compiler) lowerCast(k ir.ExprCast, toTy types.Type, dst Slot) (Slot, error) {
	fromTy := c.applySubs(c.fn.Expr(k.Operand).Ty)
	operand, err := c.lowerExpr(k.Operand, slotstack.NoSlot())
	if err != nil {
		return 0, err
	}

	fi, fIsInt := fromTy.(types.Int)
	ti, tIsInt := toTy.(types.Int)
	ff, fIsFloat := fromTy.(types.Float)
	tf, tIsFloat := toTy.(types.Float)

	switch {
	case fIsInt && tIsInt && fi.Width < ti.Width:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntWiden, Dst: dst, A: operand, Width: ti.Width, SrcWidth: fi.Width, Signed: fi.Signed})
	case fIsInt && tIsInt:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntNarrow, Dst: dst, A: operand, Width: ti.Width, SrcWidth: fi.Width})
	case fIsFloat && tIsInt:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntFromFloat, Dst: dst, A: operand, Width: ti.Width, Signed: ti.Signed, SrcFWidth: ff.Width})
	case fIsInt && tIsFloat:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpFloatFromInt, Dst: dst, A: operand, FWidth: tf.Width, SrcWidth: fi.Width, Signed: fi.Signed})
	case fIsFloat && tIsFloat:
		c.chunk.Write(bytecode.Instr{Op: bytecode.OpFloatFromFloat, Dst: dst, A: operand, FWidth: tf.Width, SrcFWidth: ff.Width})
	default:
		return 0, fmt.Errorf("compiler: unsupported cast from %s to %s", fromTy, toTy)
	}
	return dst, nil
}
