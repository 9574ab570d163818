package vmengine

import (
	"testing"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/items"
	"github.com/polyvm/polyvm/internal/types"
)

func noopCompiler(*items.Function) (*bytecode.Chunk, error) {
	return bytecode.NewChunk(), nil
}

func TestRunToCompletionArithmetic(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.FrameSize = 32
	chunk.Write(bytecode.IntConst(0, types.Width64, true, 2))
	chunk.Write(bytecode.IntConst(8, types.Width64, true, 3))
	chunk.Write(bytecode.IntConst(16, types.Width64, true, 4))
	chunk.Write(bytecode.IntBinOp(bytecode.OpIntMul, 16, 8, 16, types.Width64, true))
	chunk.Write(bytecode.IntBinOp(bytecode.OpIntAdd, 0, 0, 16, types.Width64, true))
	chunk.Write(bytecode.Return())

	vm := New(DefaultConfig(), noopCompiler)
	result, err := vm.RunToCompletion(chunk, 8)
	if err != nil {
		t.Fatal(err)
	}
	got := int64(0)
	for i := 0; i < 8; i++ {
		got |= int64(result[i]) << (8 * i)
	}
	if got != 14 {
		t.Fatalf("expected 14, got %d", got)
	}
}

func TestRunToCompletionDivisionByZeroErrors(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.FrameSize = 32
	chunk.Write(bytecode.IntConst(0, types.Width64, true, 10))
	chunk.Write(bytecode.IntConst(8, types.Width64, true, 0))
	chunk.Write(bytecode.IntBinOp(bytecode.OpIntDiv, 0, 0, 8, types.Width64, true))
	chunk.Write(bytecode.Return())

	vm := New(DefaultConfig(), noopCompiler)
	if _, err := vm.RunToCompletion(chunk, 8); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestRunToCompletionJump(t *testing.T) {
	chunk := bytecode.NewChunk()
	chunk.FrameSize = 32
	chunk.Write(bytecode.BoolConst(0, true))
	chunk.Write(bytecode.JumpT(2, 0))
	chunk.Write(bytecode.IntConst(8, types.Width64, true, 99))
	chunk.Write(bytecode.IntConst(8, types.Width64, true, 7))
	chunk.Write(bytecode.Return())

	vm := New(DefaultConfig(), noopCompiler)
	result, err := vm.RunToCompletion(chunk, 16)
	if err != nil {
		t.Fatal(err)
	}
	got := int64(0)
	for i := 0; i < 8; i++ {
		got |= int64(result[8+i]) << (8 * i)
	}
	if got != 7 {
		t.Fatalf("expected jump to skip the 99 store, got %d", got)
	}
}
