package vm

import (
	"github.com/mattstark/corevm/pkg/descriptor"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

func (eng *Engine) execFieldAccess(frame *Frame, opcode byte) error {
	index := frame.ReadU16()
	fr, err := frame.Pool.ResolveFieldRef(index)
	if err != nil {
		return err
	}
	if _, err := eng.EnsureClass(fr.ClassName); err != nil {
		return err
	}
	ft, err := descriptor.ParseField(fr.Descriptor)
	if err != nil {
		return vmerrors.Wrap(vmerrors.Descriptor, err, "field %s.%s", fr.ClassName, fr.Name)
	}
	wide := ft.Category() == 2

	switch opcode {
	case opGetstatic:
		rec, offset, err := eng.resolveStaticField(fr.ClassName, fr.Name)
		if err != nil {
			return err
		}
		if wide {
			frame.PushLong(int64(uint64(rec.StaticStorage[offset])<<32 | uint64(rec.StaticStorage[offset+1])))
		} else {
			frame.PushRaw(rec.StaticStorage[offset])
		}
	case opPutstatic:
		rec, offset, err := eng.resolveStaticField(fr.ClassName, fr.Name)
		if err != nil {
			return err
		}
		if wide {
			lo, hi := frame.PopRaw(), frame.PopRaw()
			rec.StaticStorage[offset] = hi
			rec.StaticStorage[offset+1] = lo
		} else {
			rec.StaticStorage[offset] = frame.PopRaw()
		}
	case opGetfield:
		ref := frame.PopRef()
		obj, err := eng.loadInstance(ref)
		if err != nil {
			return err
		}
		offset, err := eng.Area.FieldOffset(fr.ClassName, fr.Name)
		if err != nil {
			return err
		}
		if wide {
			frame.PushLong(int64(uint64(obj.Cells[offset])<<32 | uint64(obj.Cells[offset+1])))
		} else {
			frame.PushRaw(obj.Cells[offset])
		}
	case opPutfield:
		var lo, hi uint32
		if wide {
			lo = frame.PopRaw()
			hi = frame.PopRaw()
		} else {
			lo = frame.PopRaw()
		}
		ref := frame.PopRef()
		obj, err := eng.loadInstance(ref)
		if err != nil {
			return err
		}
		offset, err := eng.Area.FieldOffset(fr.ClassName, fr.Name)
		if err != nil {
			return err
		}
		if wide {
			obj.Cells[offset] = hi
			obj.Cells[offset+1] = lo
		} else {
			obj.Cells[offset] = lo
		}
	}
	return nil
}

func (eng *Engine) loadInstance(ref heap.Reference) (*heap.Object, error) {
	if eng.Heap.IsNull(ref) {
		return nil, eng.throwNew("java/lang/NullPointerException")
	}
	return eng.Heap.Load(ref)
}

// resolveStaticField walks className's superclass chain for the record
// that actually declares the static field, since computeStaticLayout
// deliberately does not copy statics into subclass layouts.
func (eng *Engine) resolveStaticField(className, name string) (*methodarea.ClassRecord, int, error) {
	cur := className
	for cur != "" {
		rec, err := eng.EnsureClass(cur)
		if err != nil {
			return nil, 0, err
		}
		if offset, err := rec.OwnStaticOffset(name); err == nil {
			return rec, offset, nil
		}
		cur = rec.Parsed.SuperClass
	}
	return nil, 0, vmerrors.New(vmerrors.NoSuchField, "no static field %s.%s", className, name)
}

// execInvoke resolves the callee, builds its call-site cells off the
// caller's operand stack, and dispatches to invokeMethod.
func (eng *Engine) execInvoke(frame *Frame, opcode byte) ([]uint32, bool, error) {
	index := frame.ReadU16()
	if opcode == opInvokeinterface {
		frame.ReadU8() // count, historical; unused by this dispatcher
		frame.ReadU8() // zero byte
	}

	mr, err := frame.Pool.ResolveMethodRef(index)
	if err != nil {
		return nil, false, err
	}
	className, name, desc := mr.ClassName, mr.Name, mr.Descriptor

	md, err := descriptor.ParseMethod(desc)
	if err != nil {
		return nil, false, vmerrors.Wrap(vmerrors.Descriptor, err, "method %s.%s", className, name)
	}

	argWidth := md.ParamWidth()
	if opcode != opInvokestatic {
		argWidth++ // receiver
	}
	args := make([]uint32, argWidth)
	for i := argWidth - 1; i >= 0; i-- {
		args[i] = frame.PopRaw()
	}

	var receiverClass string
	if opcode != opInvokestatic {
		ref := heap.Reference(args[0])
		if opcode != opInvokespecial {
			if eng.Heap.IsNull(ref) {
				return nil, false, eng.throwNew("java/lang/NullPointerException")
			}
			obj, err := eng.Heap.Load(ref)
			if err != nil {
				return nil, false, err
			}
			receiverClass = obj.TypeDescriptor
		}
		if receiverClass == "" {
			receiverClass = className
		}
	} else {
		receiverClass = className
	}

	if _, err := eng.EnsureClass(className); err != nil {
		return nil, false, err
	}

	lookupClass := receiverClass
	if opcode == opInvokespecial || opcode == opInvokestatic {
		lookupClass = className
	}
	if _, err := eng.EnsureClass(lookupClass); err != nil {
		return nil, false, err
	}

	rec, method, err := eng.Area.ResolveMethod(lookupClass, name, desc)
	if err != nil {
		return nil, false, err
	}

	ret, err := eng.invokeMethod(rec, method, args)
	if err != nil {
		return nil, false, err
	}
	for _, cell := range ret {
		frame.push1(cell)
	}
	return nil, false, nil
}
