package items

import (
	"sync/atomic"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/types"
)

// Function is a monomorphized instance of an Item: a generic Item plus
// the concrete SubList binding its type parameters. Its compiled bytecode
// is published at most once via an atomic pointer swap, grounded on
// vm/vm.rs's Function{native: AtomicCell<...>, bytecode_id: AtomicCell<...>}
// publish-once pattern — completed here rather than copied, since the
// original's Function::bytecode() is an unfinished stub (see SPEC_FULL.md
// §9). Native-function interop (the original's AtomicCell<unsafe fn(...)>)
// has no counterpart: this module never calls into machine code.
type Function struct {
	Item *Item
	Subs types.SubList

	bytecode atomic.Pointer[bytecode.Chunk]
}

func newFunction(item *Item, subs types.SubList) *Function {
	return &Function{Item: item, Subs: subs}
}

// Compiler produces the bytecode Chunk for a Function on demand. vmengine
// supplies the concrete implementation (backed by package compiler); kept
// as a function type here, rather than an import of package compiler, to
// avoid items<->compiler import cycle (compiler already depends on items
// for Item/Function/TraitImpl lookups).
type Compiler func(fn *Function) (*bytecode.Chunk, error)

// Bytecode returns the compiled Chunk for fn, compiling it via compile on
// first access and atomically publishing the result. If two threads race
// to compile the same Function, both compiles run to completion but only
// one result is published; the other is silently discarded, which is
// safe because compilation is a pure function of (Item, Subs).
func (fn *Function) Bytecode(compile Compiler) (*bytecode.Chunk, error) {
	if c := fn.bytecode.Load(); c != nil {
		return c, nil
	}
	chunk, err := compile(fn)
	if err != nil {
		return nil, err
	}
	fn.bytecode.CompareAndSwap(nil, chunk)
	return fn.bytecode.Load(), nil
}

// IsCompiled reports whether bytecode has already been published, without
// triggering a compile.
func (fn *Function) IsCompiled() bool {
	return fn.bytecode.Load() != nil
}
