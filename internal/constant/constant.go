// Package constant implements constant evaluation and promotion: a
// sub-expression marked ir.ExprPromotedConst is compiled as a standalone
// zero-argument function, run once on a dedicated VM thread, and its
// result bytes are copied into a bump-allocated arena so later lowering
// can emit a plain pointer literal instead of re-evaluating the
// expression. Grounded on Item::const_value in
// original_source/src/items.rs (spec.md §4.4).
package constant

import (
	"errors"
	"fmt"
	"sync"

	"github.com/polyvm/polyvm/internal/bytecode"
)

// ErrEvalFailed is one of spec.md §7's three recoverable error classes.
var ErrEvalFailed = errors.New("constant: evaluation failed")

// Runner executes a compiled, zero-argument Chunk to completion and
// returns the raw bytes its single result slot held. Implemented by
// package vmengine's VM; kept as an interface here so this package never
// imports vmengine (constant evaluation is a user of the VM, not the
// other way around).
type Runner interface {
	RunToCompletion(chunk *bytecode.Chunk, resultSize uint32) ([]byte, error)
}

// Arena is a bump allocator for constant byte values: each Alloc call
// copies its input and returns a stable pointer-like handle (an index)
// that remains valid for the arena's lifetime, mirroring the original's
// constant arena that promoted consts are interned into.
type Arena struct {
	mu     sync.Mutex
	chunks [][]byte
}

func NewArena() *Arena { return &Arena{} }

// Alloc copies data into the arena and returns its handle.
func (a *Arena) Alloc(data []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := append([]byte(nil), data...)
	a.chunks = append(a.chunks, cp)
	return len(a.chunks) - 1
}

// Get returns the bytes stored at handle.
func (a *Arena) Get(handle int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chunks[handle]
}

// Evaluator promotes and memoizes constant expressions.
type Evaluator struct {
	runner Runner
	arena  *Arena

	mu    sync.Mutex
	cache map[string]int // cache key -> arena handle
}

func NewEvaluator(runner Runner, arena *Arena) *Evaluator {
	return &Evaluator{runner: runner, arena: arena, cache: make(map[string]int)}
}

// Promote runs chunk (the standalone zero-arg lowering of a
// ExprPromotedConst's inner expression) if it hasn't already been
// evaluated under cacheKey, interns the result into the arena, and
// returns a handle to it. Concurrent promotions of the same cacheKey are
// safe: the lock is not held while the chunk runs, so racing callers may
// each evaluate it, but only the first result stored is interned and
// every caller gets that handle.
func (e *Evaluator) Promote(cacheKey string, chunk *bytecode.Chunk, resultSize uint32) (int, error) {
	e.mu.Lock()
	if handle, ok := e.cache[cacheKey]; ok {
		e.mu.Unlock()
		return handle, nil
	}
	e.mu.Unlock()

	result, err := e.runner.RunToCompletion(chunk, resultSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEvalFailed, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if handle, ok := e.cache[cacheKey]; ok {
		return handle, nil
	}
	handle := e.arena.Alloc(result)
	e.cache[cacheKey] = handle
	return handle, nil
}

// Arena exposes the backing arena so the VM can resolve a promoted
// constant's pointer literal back to its bytes at run time.
func (e *Evaluator) ArenaOf() *Arena { return e.arena }
