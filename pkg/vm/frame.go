package vm

import (
	"math"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/resolver"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// Frame is one activation record: locals and operand stack are untyped
// uint32 cells (grounded on original_source/run.rs's Vec<u32> model); a
// category-2 value (long/double) occupies two consecutive cells, high
// word pushed/stored first. Reinterpretation happens via an explicit
// bit-cast at each arithmetic or conversion site, never via a tagged
// Value type.
type Frame struct {
	Locals []uint32
	Stack  []uint32
	SP     int

	Pool           *resolver.Pool
	Code           []byte
	ExceptionTable []classfile.ExceptionHandler
	PC             int

	ClassName  string
	MethodName string
	Descriptor string
}

// NewFrame allocates a frame sized for a method's Code attribute.
func NewFrame(maxLocals, maxStack uint16, code *classfile.CodeAttribute, pool *resolver.Pool, className, methodName, descriptor string) *Frame {
	return &Frame{
		Locals:         make([]uint32, maxLocals),
		Stack:          make([]uint32, maxStack),
		Pool:           pool,
		Code:           code.Code,
		ExceptionTable: code.ExceptionTable,
		ClassName:      className,
		MethodName:     methodName,
		Descriptor:     descriptor,
	}
}

func (f *Frame) push1(v uint32) {
	if f.SP >= len(f.Stack) {
		panic("operand stack overflow")
	}
	f.Stack[f.SP] = v
	f.SP++
}

func (f *Frame) pop1() uint32 {
	if f.SP <= 0 {
		panic("operand stack underflow")
	}
	f.SP--
	return f.Stack[f.SP]
}

// Category-1 pushes/pops: int, float, reference.
func (f *Frame) PushInt(v int32)            { f.push1(uint32(v)) }
func (f *Frame) PopInt() int32              { return int32(f.pop1()) }
func (f *Frame) PushFloat(v float32)        { f.push1(math.Float32bits(v)) }
func (f *Frame) PopFloat() float32          { return math.Float32frombits(f.pop1()) }
func (f *Frame) PushRef(v heap.Reference)   { f.push1(uint32(v)) }
func (f *Frame) PopRef() heap.Reference     { return heap.Reference(f.pop1()) }
func (f *Frame) PushRaw(v uint32)           { f.push1(v) }
func (f *Frame) PopRaw() uint32             { return f.pop1() }

// Category-2 pushes/pops: long, double. High word pushed/stored first so
// that a subsequent category-1 pop still removes the most-recently-pushed
// half first (spec.md §3's cell-ordering rule).
func (f *Frame) PushLong(v int64) {
	f.push1(uint32(uint64(v) >> 32))
	f.push1(uint32(uint64(v)))
}

func (f *Frame) PopLong() int64 {
	lo := f.pop1()
	hi := f.pop1()
	return int64(uint64(hi)<<32 | uint64(lo))
}

func (f *Frame) PushDouble(v float64) {
	f.PushLong(int64(math.Float64bits(v)))
}

func (f *Frame) PopDouble() float64 {
	return math.Float64frombits(uint64(f.PopLong()))
}

func (f *Frame) Dup()     { v := f.pop1(); f.push1(v); f.push1(v) }
func (f *Frame) Peek() uint32 {
	if f.SP <= 0 {
		panic("operand stack underflow")
	}
	return f.Stack[f.SP-1]
}

// GetLocalRaw/SetLocalRaw access category-1 locals directly by index.
func (f *Frame) GetLocalRaw(index int) uint32 {
	f.checkLocal(index)
	return f.Locals[index]
}

func (f *Frame) SetLocalRaw(index int, v uint32) {
	f.checkLocal(index)
	f.Locals[index] = v
}

func (f *Frame) GetLocalLong(index int) int64 {
	f.checkLocal(index + 1)
	return int64(uint64(f.Locals[index])<<32 | uint64(f.Locals[index+1]))
}

func (f *Frame) SetLocalLong(index int, v int64) {
	f.checkLocal(index + 1)
	f.Locals[index] = uint32(uint64(v) >> 32)
	f.Locals[index+1] = uint32(uint64(v))
}

func (f *Frame) GetLocalDouble(index int) float64 {
	return math.Float64frombits(uint64(f.GetLocalLong(index)))
}

func (f *Frame) SetLocalDouble(index int, v float64) {
	f.SetLocalLong(index, int64(math.Float64bits(v)))
}

func (f *Frame) checkLocal(index int) {
	if index < 0 || index >= len(f.Locals) {
		panic("local variable index out of range")
	}
}

// ReadU8/ReadI8/ReadU16/ReadI16/ReadU32/ReadI32 read an operand from Code
// at PC and advance PC past it.
func (f *Frame) ReadU8() uint8 {
	v := f.Code[f.PC]
	f.PC++
	return v
}

func (f *Frame) ReadI8() int8 { return int8(f.ReadU8()) }

func (f *Frame) ReadU16() uint16 {
	v := uint16(f.Code[f.PC])<<8 | uint16(f.Code[f.PC+1])
	f.PC += 2
	return v
}

func (f *Frame) ReadI16() int16 { return int16(f.ReadU16()) }

func (f *Frame) ReadU32() uint32 {
	v := uint32(f.Code[f.PC])<<24 | uint32(f.Code[f.PC+1])<<16 | uint32(f.Code[f.PC+2])<<8 | uint32(f.Code[f.PC+3])
	f.PC += 4
	return v
}

func (f *Frame) ReadI32() int32 { return int32(f.ReadU32()) }

func vmPanicToError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return vmerrors.New(vmerrors.Format, "%v", r)
}
