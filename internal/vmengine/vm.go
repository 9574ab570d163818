// Package vmengine implements the VM interpreter: a stack-of-bytes
// thread frame and a dispatch loop over a compiled bytecode.Chunk.
// Grounded on original_source/src/vm/vm.rs's VM::call and its dispatch
// loop; the original's Function::bytecode() is an unfinished stub (see
// SPEC_FULL.md §9), which this package implements in full by delegating
// to a caller-supplied Compiler.
package vmengine

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/polyvm/polyvm/internal/bytecode"
	"github.com/polyvm/polyvm/internal/items"
)

// Config mirrors the stack/frame tuning knobs internal/vm/vm.go declares
// as package constants (InitialStackSize, MaxFrameCount, etc.), now
// loaded from YAML via internal/config rather than hardcoded, per
// SPEC_FULL.md §10.
type Config struct {
	InitialStackBytes uint32
	MaxStackBytes      uint32
	MaxFrames          int
}

func DefaultConfig() Config {
	return Config{
		InitialStackBytes: 64 * 1024,
		MaxStackBytes:     16 * 1024 * 1024,
		MaxFrames:         4096,
	}
}

// ErrStackOverflow is raised when a call would exceed MaxFrames/MaxStackBytes.
var ErrStackOverflow = errors.New("vmengine: stack overflow")

// ThreadStack is one VM thread's byte-addressed operand/locals stack.
// Grounded on VM.stack (a flat Vec<u128> in the original, generalized
// here to a growable []byte since this module's Slot offsets are byte
// offsets, not u128-word indices).
type ThreadStack struct {
	bytes  []byte
	config Config
}

func NewThreadStack(cfg Config) *ThreadStack {
	return &ThreadStack{bytes: make([]byte, cfg.InitialStackBytes), config: cfg}
}

func (s *ThreadStack) ensure(offset, size uint32) error {
	need := offset + size
	if uint32(len(s.bytes)) >= need {
		return nil
	}
	if need > s.config.MaxStackBytes {
		return ErrStackOverflow
	}
	grown := make([]byte, need*2)
	copy(grown, s.bytes)
	s.bytes = grown
	return nil
}

// Compiler produces bytecode for an items.Function; package compiler's
// Compiler.Compile satisfies this directly.
type Compiler = items.Compiler

// VM runs compiled bytecode against per-call ThreadStacks. It holds no
// mutable global state of its own beyond its configuration; all shared,
// concurrently-accessed state (the item store, mono cache, trait impl
// lists) lives in package items/traits, each behind its own lock, per
// spec.md §5.
type VM struct {
	config  Config
	compile Compiler
}

func New(cfg Config, compile Compiler) *VM {
	return &VM{config: cfg, compile: compile}
}

// Call invokes fn with its arguments already written into stack at
// frameBase (by the caller's compiled Call-site argument lowering),
// compiling fn's bytecode on first use via the publish-once path in
// items.Function.Bytecode.
func (vm *VM) Call(fn *items.Function, stack *ThreadStack, frameBase uint32) error {
	chunk, err := fn.Bytecode(vm.compile)
	if err != nil {
		return fmt.Errorf("vmengine: compiling %s: %w", fn.Item, err)
	}
	if err := stack.ensure(frameBase, chunk.FrameSize); err != nil {
		return err
	}
	return vm.run(chunk, stack, frameBase)
}

// RunToCompletion compiles nothing; it runs an already-compiled,
// zero-argument Chunk end to end and returns the bytes its frame-base
// result slot held, satisfying package constant's Runner interface for
// constant promotion (spec.md §4.4).
func (vm *VM) RunToCompletion(chunk *bytecode.Chunk, resultSize uint32) ([]byte, error) {
	stack := NewThreadStack(vm.config)
	if err := stack.ensure(0, chunk.FrameSize); err != nil {
		return nil, err
	}
	if err := vm.run(chunk, stack, 0); err != nil {
		return nil, err
	}
	result := make([]byte, resultSize)
	copy(result, stack.bytes[0:resultSize])
	return result, nil
}

// run is the dispatch loop, grounded on VM::call's `loop { match instr
// { ... } ; pc += 1 }` body (realized there via a build-script-generated
// exec_match.rs the original never checks in; this switch is the direct,
// hand-written equivalent).
func (vm *VM) run(chunk *bytecode.Chunk, stack *ThreadStack, base uint32) error {
	pc := 0
	for pc < len(chunk.Code) {
		instr := chunk.Code[pc]
		delta, err := vm.exec(instr, stack, base)
		if err != nil {
			return err
		}
		if instr.Op == bytecode.OpReturn {
			return nil
		}
		pc += delta
	}
	return nil
}

func (vm *VM) exec(instr bytecode.Instr, stack *ThreadStack, base uint32) (int, error) {
	switch instr.Op {
	case bytecode.OpReturn, bytecode.OpBad:
		return 1, nil

	case bytecode.OpIntConst:
		writeInt(stack, base+uint32(instr.Dst), instr.Width, instr.ImmInt)
		return 1, nil
	case bytecode.OpFloatConst:
		writeFloat(stack, base+uint32(instr.Dst), instr.FWidth, instr.ImmFloat)
		return 1, nil
	case bytecode.OpBoolConst:
		writeBool(stack, base+uint32(instr.Dst), instr.ImmBool)
		return 1, nil

	case bytecode.OpMovSS:
		copySlots(stack, base+uint32(instr.Dst), base+uint32(instr.A), uint32(instr.ImmInt))
		return 1, nil
	case bytecode.OpMovSP:
		ptr := uint32(int64(readPtr(stack, base+uint32(instr.Dst))) + int64(instr.AddrOffset))
		copy(stack.bytes[ptr:ptr+uint32(instr.ImmInt)], stack.bytes[base+uint32(instr.A):base+uint32(instr.A)+uint32(instr.ImmInt)])
		return 1, nil
	case bytecode.OpMovPS:
		ptr := uint32(int64(readPtr(stack, base+uint32(instr.A))) + int64(instr.AddrOffset))
		copy(stack.bytes[base+uint32(instr.Dst):base+uint32(instr.Dst)+uint32(instr.ImmInt)], stack.bytes[ptr:ptr+uint32(instr.ImmInt)])
		return 1, nil
	case bytecode.OpSlotAddr:
		writePtr(stack, base+uint32(instr.Dst), base+uint32(instr.A))
		return 1, nil
	case bytecode.OpMemCompare:
		n := uint32(instr.ImmInt)
		a := stack.bytes[base+uint32(instr.A) : base+uint32(instr.A)+n]
		b := stack.bytes[base+uint32(instr.B) : base+uint32(instr.B)+n]
		writeBool(stack, base+uint32(instr.Dst), bytes.Equal(a, b))
		return 1, nil

	case bytecode.OpIntAdd, bytecode.OpIntSub, bytecode.OpIntMul, bytecode.OpIntOr,
		bytecode.OpIntAnd, bytecode.OpIntXor, bytecode.OpIntShiftL, bytecode.OpIntShiftR,
		bytecode.OpIntDiv, bytecode.OpIntRem:
		return 1, vm.execIntBinOp(instr, stack, base)

	case bytecode.OpIntEq, bytecode.OpIntNotEq, bytecode.OpIntLt, bytecode.OpIntLtEq:
		return 1, vm.execIntCompare(instr, stack, base)

	case bytecode.OpIntNeg, bytecode.OpIntNot:
		return 1, vm.execIntUnOp(instr, stack, base)

	case bytecode.OpBoolNot:
		v := readBool(stack, base+uint32(instr.A))
		writeBool(stack, base+uint32(instr.Dst), !v)
		return 1, nil

	case bytecode.OpFloatAdd, bytecode.OpFloatSub, bytecode.OpFloatMul, bytecode.OpFloatDiv, bytecode.OpFloatRem:
		return 1, vm.execFloatBinOp(instr, stack, base)
	case bytecode.OpFloatEq, bytecode.OpFloatNotEq, bytecode.OpFloatLt, bytecode.OpFloatLtEq, bytecode.OpFloatGt, bytecode.OpFloatGtEq:
		return 1, vm.execFloatCompare(instr, stack, base)
	case bytecode.OpFloatNeg:
		v := readFloat(stack, base+uint32(instr.A), instr.FWidth)
		writeFloat(stack, base+uint32(instr.Dst), instr.FWidth, -v)
		return 1, nil

	case bytecode.OpIntWiden, bytecode.OpIntNarrow, bytecode.OpFloatFromInt, bytecode.OpIntFromFloat, bytecode.OpFloatFromFloat:
		return 1, vm.execConvert(instr, stack, base)

	case bytecode.OpJump:
		return int(instr.JumpOffset), nil
	case bytecode.OpJumpF:
		if !readBool(stack, base+uint32(instr.A)) {
			return int(instr.JumpOffset), nil
		}
		return 1, nil
	case bytecode.OpJumpT:
		if readBool(stack, base+uint32(instr.A)) {
			return int(instr.JumpOffset), nil
		}
		return 1, nil

	case bytecode.OpCall:
		switch callee := instr.Callee.(type) {
		case *items.Function:
			if err := vm.Call(callee, stack, base+uint32(instr.Dst)); err != nil {
				return 0, err
			}
		case *bytecode.Chunk:
			// A precompiled chunk invoked directly: a closure
			// specialization resolved to a concrete body at compile
			// time, the same kind of indirect dispatch a trait-method
			// call resolves to a concrete impl.
			callBase := base + uint32(instr.Dst)
			if err := stack.ensure(callBase, callee.FrameSize); err != nil {
				return 0, err
			}
			if err := vm.run(callee, stack, callBase); err != nil {
				return 0, err
			}
		default:
			return 0, fmt.Errorf("vmengine: Call instruction carries no callee")
		}
		return 1, nil

	case bytecode.OpDebug:
		return 1, nil

	default:
		return 0, fmt.Errorf("vmengine: unhandled opcode %s", instr.Op)
	}
}

func writeInt(s *ThreadStack, offset uint32, w interface{ Bytes() uint32 }, v int64) {
	n := w.Bytes()
	s.ensure(offset, n)
	for i := uint32(0); i < n; i++ {
		s.bytes[offset+i] = byte(v >> (8 * i))
	}
}

func writeFloat(s *ThreadStack, offset uint32, w interface{ Bytes() uint32 }, v float64) {
	n := w.Bytes()
	s.ensure(offset, n)
	if n == 4 {
		bits := math.Float32bits(float32(v))
		for i := uint32(0); i < 4; i++ {
			s.bytes[offset+i] = byte(bits >> (8 * i))
		}
		return
	}
	bits := math.Float64bits(v)
	for i := uint32(0); i < 8; i++ {
		s.bytes[offset+i] = byte(bits >> (8 * i))
	}
}

func writeBool(s *ThreadStack, offset uint32, v bool) {
	s.ensure(offset, 1)
	if v {
		s.bytes[offset] = 1
	} else {
		s.bytes[offset] = 0
	}
}

func readBool(s *ThreadStack, offset uint32) bool {
	return s.bytes[offset] != 0
}

func readFloat(s *ThreadStack, offset uint32, w interface{ Bytes() uint32 }) float64 {
	n := w.Bytes()
	if n == 4 {
		var bits uint32
		for i := uint32(0); i < 4; i++ {
			bits |= uint32(s.bytes[offset+i]) << (8 * i)
		}
		return float64(math.Float32frombits(bits))
	}
	var bits uint64
	for i := uint32(0); i < 8; i++ {
		bits |= uint64(s.bytes[offset+i]) << (8 * i)
	}
	return math.Float64frombits(bits)
}

func readInt(s *ThreadStack, offset uint32, w interface{ Bytes() uint32 }, signed bool) int64 {
	n := w.Bytes()
	var v uint64
	for i := uint32(0); i < n; i++ {
		v |= uint64(s.bytes[offset+i]) << (8 * i)
	}
	if signed && n < 8 {
		shift := 64 - n*8
		return int64(v<<shift) >> shift
	}
	return int64(v)
}

func copySlots(s *ThreadStack, dst, src, size uint32) {
	s.ensure(dst, size)
	s.ensure(src, size)
	copy(s.bytes[dst:dst+size], s.bytes[src:src+size])
}

func writePtr(s *ThreadStack, offset, addr uint32) {
	s.ensure(offset, 8)
	for i := uint32(0); i < 8; i++ {
		s.bytes[offset+i] = byte(addr >> (8 * i))
	}
}

func readPtr(s *ThreadStack, offset uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		v |= uint32(s.bytes[offset+i]) << (8 * i)
	}
	return v
}
