package bytecode

import (
	"testing"

	"github.com/polyvm/polyvm/internal/types"
)

func TestChunkWriteAndPatch(t *testing.T) {
	c := NewChunk()
	c.Write(IntConst(0, types.Width64, true, 2))
	jmpPos := c.Write(Jump(0))
	c.Write(IntConst(1, types.Width64, true, 4))
	target := c.CurrentOffset()
	c.Patch(jmpPos, Jump(int32(target-jmpPos)))

	if c.Len() != 3 {
		t.Fatalf("expected 3 instructions, got %d", c.Len())
	}
	if c.Code[jmpPos].Op != OpJump || c.Code[jmpPos].JumpOffset != 2 {
		t.Fatalf("patch did not apply: %+v", c.Code[jmpPos])
	}
}

func TestOpString(t *testing.T) {
	if OpIntAdd.String() != "IntAdd" {
		t.Fatalf("unexpected op name: %s", OpIntAdd.String())
	}
}
