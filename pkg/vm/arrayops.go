package vm

import (
	"github.com/mattstark/corevm/pkg/descriptor"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// arrayCategory2 reports whether descriptor is an array of long or
// double, whose elements occupy two uint32 cells each (spec.md §3).
func arrayCategory2(arrayDescriptor string) (bool, error) {
	elem, err := descriptor.ArrayElementDescriptor(arrayDescriptor)
	if err != nil {
		return false, err
	}
	return elem == "J" || elem == "D", nil
}

func (eng *Engine) loadArray(ref heap.Reference) (*heap.Object, error) {
	if eng.Heap.IsNull(ref) {
		return nil, eng.throwNew("java/lang/NullPointerException")
	}
	return eng.Heap.Load(ref)
}

func (eng *Engine) boundsCheck(obj *heap.Object, width, index int) error {
	length := len(obj.Cells) / width
	if index < 0 || index >= length {
		return eng.throwNew("java/lang/ArrayIndexOutOfBoundsException")
	}
	return nil
}

func (eng *Engine) execArrayLoad(frame *Frame, opcode byte) error {
	index := frame.PopInt()
	ref := frame.PopRef()
	obj, err := eng.loadArray(ref)
	if err != nil {
		return err
	}

	wide := opcode == opLaload || opcode == opDaload
	width := 1
	if wide {
		width = 2
	}
	if err := eng.boundsCheck(obj, width, int(index)); err != nil {
		return err
	}
	base := int(index) * width

	switch opcode {
	case opLaload:
		frame.PushLong(int64(uint64(obj.Cells[base])<<32 | uint64(obj.Cells[base+1])))
	case opDaload:
		frame.PushRaw(obj.Cells[base])
		frame.PushRaw(obj.Cells[base+1])
	case opIaload, opFaload, opAaload:
		frame.PushRaw(obj.Cells[base])
	case opBaload:
		frame.PushInt(int32(int8(obj.Cells[base])))
	case opCaload:
		frame.PushInt(int32(uint16(obj.Cells[base])))
	case opSaload:
		frame.PushInt(int32(int16(obj.Cells[base])))
	}
	return nil
}

func (eng *Engine) execArrayStore(frame *Frame, opcode byte) error {
	switch opcode {
	case opLastore, opDastore:
		lo, hi := frame.PopRaw(), frame.PopRaw()
		index := frame.PopInt()
		ref := frame.PopRef()
		obj, err := eng.loadArray(ref)
		if err != nil {
			return err
		}
		if err := eng.boundsCheck(obj, 2, int(index)); err != nil {
			return err
		}
		obj.Cells[int(index)*2] = hi
		obj.Cells[int(index)*2+1] = lo
	default:
		v := frame.PopRaw()
		index := frame.PopInt()
		ref := frame.PopRef()
		obj, err := eng.loadArray(ref)
		if err != nil {
			return err
		}
		if err := eng.boundsCheck(obj, 1, int(index)); err != nil {
			return err
		}
		switch opcode {
		case opBastore:
			obj.Cells[index] = uint32(uint8(v))
		case opCastore, opSastore:
			obj.Cells[index] = uint32(uint16(v))
		default:
			obj.Cells[index] = v
		}
	}
	return nil
}

func (eng *Engine) execArraylength(frame *Frame) error {
	ref := frame.PopRef()
	obj, err := eng.loadArray(ref)
	if err != nil {
		return err
	}
	width := 1
	if wide, werr := arrayCategory2(obj.TypeDescriptor); werr == nil && wide {
		width = 2
	}
	frame.PushInt(int32(len(obj.Cells) / width))
	return nil
}

func (eng *Engine) execNewarray(frame *Frame) error {
	atype := frame.ReadU8()
	count := frame.PopInt()
	if count < 0 {
		return eng.throwNew("java/lang/NegativeArraySizeException")
	}
	desc, width, err := primitiveArrayDescriptor(atype)
	if err != nil {
		return err
	}
	ref := eng.Heap.Store(desc, make([]uint32, int(count)*width))
	frame.PushRef(ref)
	return nil
}

func primitiveArrayDescriptor(atype uint8) (string, int, error) {
	switch atype {
	case atBoolean:
		return "[Z", 1, nil
	case atChar:
		return "[C", 1, nil
	case atFloat:
		return "[F", 1, nil
	case atDouble:
		return "[D", 2, nil
	case atByte:
		return "[B", 1, nil
	case atShort:
		return "[S", 1, nil
	case atInt:
		return "[I", 1, nil
	case atLong:
		return "[J", 2, nil
	default:
		return "", 0, vmerrors.New(vmerrors.Format, "newarray: unknown atype %d", atype)
	}
}

func (eng *Engine) execAnewarray(frame *Frame) error {
	index := frame.ReadU16()
	count := frame.PopInt()
	if count < 0 {
		return eng.throwNew("java/lang/NegativeArraySizeException")
	}
	className, err := frame.Pool.ResolveClassName(index)
	if err != nil {
		return err
	}
	desc := elementDescriptorFor(className)
	ref := eng.Heap.Store("["+desc, make([]uint32, count))
	frame.PushRef(ref)
	return nil
}

// elementDescriptorFor turns a resolved class name into the descriptor
// fragment used as an array element: array class names already carry
// their own leading '[', everything else is a plain class reference.
func elementDescriptorFor(className string) string {
	if len(className) > 0 && className[0] == '[' {
		return className
	}
	return "L" + className + ";"
}

// execMultianewarray supports exactly one dimension (spec.md's Non-goals
// exclude multi-dimensional array allocation); dims>1 is rejected rather
// than silently misallocated.
func (eng *Engine) execMultianewarray(frame *Frame) error {
	index := frame.ReadU16()
	dims := frame.ReadU8()
	if dims != 1 {
		return vmerrors.New(vmerrors.UnsupportedOpcode, "multianewarray: only single-dimension allocation is supported, got %d dimensions", dims)
	}
	count := frame.PopInt()
	if count < 0 {
		return eng.throwNew("java/lang/NegativeArraySizeException")
	}
	arrayDesc, err := frame.Pool.ResolveClassName(index)
	if err != nil {
		return err
	}
	width := 1
	if wide, werr := arrayCategory2(arrayDesc); werr == nil && wide {
		width = 2
	}
	ref := eng.Heap.Store(arrayDesc, make([]uint32, int(count)*width))
	frame.PushRef(ref)
	return nil
}
