// Package compiler lowers an ir.Function body into a bytecode.Chunk:
// expression lowering (lower_expr), pattern-match compilation
// (match_pattern), closure-trait specialization requests, and constant
// promotion. Grounded in full on
// original_source/src/bytecode_compiler.rs.
package compiler

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/closure"
	"github.com/polyvm/polyvm/internal/constant"
	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/slotstack"
	"github.com/polyvm/polyvm/internal/traits"
	"github.com/polyvm/polyvm/internal/types"
)

type Slot = slotstack.Slot

// Compiler lowers a single ir.Function (already monomorphized against a
// SubList) into bytecode. One Compiler is used per function body; what it
// shares with the Compilers of other functions is its collaborators (the
// item store, trait resolver, constant evaluator) and the Closures map,
// which lowerClosure adds entries to.
type Compiler struct {
	Items   *items.Context
	Traits  *traits.Resolver
	Consts  *constant.Evaluator
	Closures map[types.ItemID]*closure.Closure

	fn    *ir.Function
	subs  types.SubList
	stack *slotstack.Stack
	chunk *bytecode.Chunk

	locals map[ir.LocalID]localBinding

	loopStack []loopContext
}

type localBinding struct {
	slot Slot
	ty   types.Type
}

type loopContext struct {
	breakJumps []int
	loopStart  int
}

// New builds a Compiler sharing the given collaborators; call Compile
// once per function to lower it.
func New(itemsCtx *items.Context, resolver *traits.Resolver, consts *constant.Evaluator) *Compiler {
	return &Compiler{
		Items:    itemsCtx,
		Traits:   resolver,
		Consts:   consts,
		Closures: make(map[types.ItemID]*closure.Closure),
	}
}

// Compile lowers fn's body to a bytecode.Chunk, suitable for use as an
// items.Compiler callback (see items.Function.Bytecode).
func (c *Compiler) Compile(fn *items.Function) (*bytecode.Chunk, error) {
	body, err := fn.Item.IR()
	if err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return c.CompileFunction(body, fn.Subs)
}

// CompileFunction lowers an already-fetched ir.Function body with the
// given instantiation.
func (c *Compiler) CompileFunction(fn *ir.Function, subs types.SubList) (*bytecode.Chunk, error) {
	inner := &Compiler{
		Items:    c.Items,
		Traits:   c.Traits,
		Consts:   c.Consts,
		Closures: c.Closures,
		fn:       fn,
		subs:     subs,
		stack:    slotstack.New(),
		chunk:    bytecode.NewChunk(),
		locals:   make(map[ir.LocalID]localBinding),
	}

	// Slot 0 is always the return value (spec.md §8's invariant: "For
	// every monomorphic function executed, slot 0 at Return contains the
	// function's return value"), so it is allocated before any parameter
	// — matching the frame layout lowerCall builds at each call site
	// (return slot first, then arguments in declaration order).
	returnTy := inner.applySubs(fn.ReturnType)
	dst := slotstack.SomeSlot(inner.stack.Alloc(inner.sizeOf(returnTy), inner.alignOf(returnTy)))

	paramSlots := make([]Slot, len(fn.Params))
	for i := range fn.Params {
		ty := inner.applySubs(fn.ParamTypes[i])
		paramSlots[i] = inner.stack.Alloc(inner.sizeOf(ty), inner.alignOf(ty))
	}
	for i, paramPattern := range fn.Params {
		if _, err := inner.matchPattern(paramPattern, DirectPlace(paramSlots[i]), false, slotstack.NoSlot()); err != nil {
			return nil, err
		}
	}

	if _, err := inner.lowerExpr(fn.Body, dst); err != nil {
		return nil, err
	}
	inner.chunk.Write(bytecode.Return())
	inner.stack.CheckClosed()

	inner.chunk.FrameSize = inner.stack.FrameSize()
	return inner.chunk, nil
}

// applySubs resolves any Param in t against this compilation's SubList.
func (c *Compiler) applySubs(t types.Type) types.Type {
	if c.subs == nil {
		return t
	}
	return t.Apply(c.subs)
}

func (c *Compiler) findLocal(id ir.LocalID) (localBinding, bool) {
	b, ok := c.locals[id]
	return b, ok
}

func (c *Compiler) findOrAllocLocal(id ir.LocalID, ty types.Type) Slot {
	if b, ok := c.locals[id]; ok {
		return b.slot
	}
	slot := c.stack.Alloc(c.sizeOf(ty), c.alignOf(ty))
	c.locals[id] = localBinding{slot: slot, ty: ty}
	return slot
}

func (c *Compiler) assertLocalUndef(id ir.LocalID) {
	if _, ok := c.locals[id]; ok {
		panic(fmt.Sprintf("compiler: local %d bound twice in the same pattern", id))
	}
}

func (c *Compiler) sizeOf(t types.Type) uint32 {
	return types.LayoutOf(t, c.adtFieldsForLayout).Size
}
func (c *Compiler) alignOf(t types.Type) uint32 {
	return types.LayoutOf(t, c.adtFieldsForLayout).Align
}
