package vmengine

import (
	"fmt"

	"github.com/polyvm/polyvm/internal/bytecode"
)

func (vm *VM) execIntBinOp(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	a := readInt(stack, base+uint32(instr.A), instr.Width, instr.Signed)
	b := readInt(stack, base+uint32(instr.B), instr.Width, instr.Signed)
	var r int64
	switch instr.Op {
	case bytecode.OpIntAdd:
		r = a + b
	case bytecode.OpIntSub:
		r = a - b
	case bytecode.OpIntMul:
		r = a * b
	case bytecode.OpIntOr:
		r = a | b
	case bytecode.OpIntAnd:
		r = a & b
	case bytecode.OpIntXor:
		r = a ^ b
	case bytecode.OpIntShiftL:
		r = a << uint(b)
	case bytecode.OpIntShiftR:
		r = a >> uint(b)
	case bytecode.OpIntDiv:
		if b == 0 {
			return fmt.Errorf("vmengine: integer division by zero")
		}
		r = a / b
	case bytecode.OpIntRem:
		if b == 0 {
			return fmt.Errorf("vmengine: integer division by zero")
		}
		r = a % b
	default:
		return fmt.Errorf("vmengine: unhandled int binop %s", instr.Op)
	}
	writeInt(stack, base+uint32(instr.Dst), instr.Width, r)
	return nil
}

func (vm *VM) execIntCompare(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	a := readInt(stack, base+uint32(instr.A), instr.Width, instr.Signed)
	b := readInt(stack, base+uint32(instr.B), instr.Width, instr.Signed)
	var r bool
	switch instr.Op {
	case bytecode.OpIntEq:
		r = a == b
	case bytecode.OpIntNotEq:
		r = a != b
	case bytecode.OpIntLt:
		r = a < b
	case bytecode.OpIntLtEq:
		r = a <= b
	default:
		return fmt.Errorf("vmengine: unhandled int compare %s", instr.Op)
	}
	writeBool(stack, base+uint32(instr.Dst), r)
	return nil
}

func (vm *VM) execIntUnOp(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	a := readInt(stack, base+uint32(instr.A), instr.Width, instr.Signed)
	var r int64
	switch instr.Op {
	case bytecode.OpIntNeg:
		r = -a
	case bytecode.OpIntNot:
		r = ^a
	default:
		return fmt.Errorf("vmengine: unhandled int unop %s", instr.Op)
	}
	writeInt(stack, base+uint32(instr.Dst), instr.Width, r)
	return nil
}

func (vm *VM) execFloatBinOp(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	a := readFloat(stack, base+uint32(instr.A), instr.FWidth)
	b := readFloat(stack, base+uint32(instr.B), instr.FWidth)
	var r float64
	switch instr.Op {
	case bytecode.OpFloatAdd:
		r = a + b
	case bytecode.OpFloatSub:
		r = a - b
	case bytecode.OpFloatMul:
		r = a * b
	case bytecode.OpFloatDiv:
		r = a / b
	case bytecode.OpFloatRem:
		r = floatMod(a, b)
	default:
		return fmt.Errorf("vmengine: unhandled float binop %s", instr.Op)
	}
	writeFloat(stack, base+uint32(instr.Dst), instr.FWidth, r)
	return nil
}

func (vm *VM) execFloatCompare(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	a := readFloat(stack, base+uint32(instr.A), instr.FWidth)
	b := readFloat(stack, base+uint32(instr.B), instr.FWidth)
	var r bool
	switch instr.Op {
	case bytecode.OpFloatEq:
		r = a == b
	case bytecode.OpFloatNotEq:
		r = a != b
	case bytecode.OpFloatLt:
		r = a < b
	case bytecode.OpFloatLtEq:
		r = a <= b
	case bytecode.OpFloatGt:
		r = a > b
	case bytecode.OpFloatGtEq:
		r = a >= b
	default:
		return fmt.Errorf("vmengine: unhandled float compare %s", instr.Op)
	}
	writeBool(stack, base+uint32(instr.Dst), r)
	return nil
}

func floatMod(a, b float64) float64 {
	for a >= b {
		a -= b
	}
	return a
}

func (vm *VM) execConvert(instr bytecode.Instr, stack *ThreadStack, base uint32) error {
	switch instr.Op {
	case bytecode.OpIntWiden, bytecode.OpIntNarrow:
		v := readInt(stack, base+uint32(instr.A), instr.SrcWidth, instr.Signed)
		writeInt(stack, base+uint32(instr.Dst), instr.Width, v)
		return nil
	case bytecode.OpFloatFromInt:
		v := readInt(stack, base+uint32(instr.A), instr.SrcWidth, instr.Signed)
		writeFloat(stack, base+uint32(instr.Dst), instr.FWidth, float64(v))
		return nil
	case bytecode.OpIntFromFloat:
		v := readFloat(stack, base+uint32(instr.A), instr.SrcFWidth)
		writeInt(stack, base+uint32(instr.Dst), instr.Width, int64(v))
		return nil
	case bytecode.OpFloatFromFloat:
		v := readFloat(stack, base+uint32(instr.A), instr.SrcFWidth)
		writeFloat(stack, base+uint32(instr.Dst), instr.FWidth, v)
		return nil
	default:
		return fmt.Errorf("vmengine: unhandled conversion %s", instr.Op)
	}
}
