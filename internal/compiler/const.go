package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/types"
)

// lowerPromotedConst compiles k.Inner as a standalone zero-argument
// function, hands that Chunk to the constant evaluator (which runs it
// once on a dedicated VM thread and interns the result), and emits a
// pointer literal into dst referencing the interned bytes. Grounded on
// Item::const_value in items.rs (spec.md §4.4).
func (c *Compiler) lowerPromotedConst(k ir.ExprPromotedConst, ty types.Type, dst Slot) (Slot, error) {
	if c.Consts == nil {
		return 0, fmt.Errorf("compiler: no constant evaluator configured for promoted const")
	}

	innerTy := c.applySubs(c.fn.Expr(k.Inner).Ty)

	sub := &Compiler{
		Items:    c.Items,
		Traits:   c.Traits,
		Consts:   c.Consts,
		Closures: c.Closures,
		fn:       c.fn,
		subs:     c.subs,
		stack:    slotstack.New(),
		chunk:    bytecode.NewChunk(),
		locals:   c.locals,
	}
	resultSlot := sub.stack.Alloc(c.sizeOf(innerTy), c.alignOf(innerTy))
	if _, err := sub.lowerExpr(k.Inner, slotstack.SomeSlot(resultSlot)); err != nil {
		return 0, err
	}
	sub.chunk.Write(bytecode.Return())
	sub.chunk.FrameSize = sub.stack.FrameSize()

	cacheKey := fmt.Sprintf("%p:%d:%s", c.fn, int(k.Inner), c.subs.Key())
	handle, err := c.Consts.Promote(cacheKey, sub.chunk, c.sizeOf(innerTy))
	if err != nil {
		return 0, err
	}

	c.chunk.Write(bytecode.Instr{Op: bytecode.OpIntConst, Dst: dst, Width: types.Width64, Signed: false, ImmInt: int64(handle)})
	return dst, nil
}
