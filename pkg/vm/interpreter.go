package vm

import (
	"math"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/mattstark/corevm/pkg/natives"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// invokeMethod executes method (declared on rec) with args already laid
// out as call-site cells (each category-2 argument pre-expanded to two
// cells, high word first) and returns the callee's return cells: nil for
// void, one cell for int/float/reference, two for long/double.
func (eng *Engine) invokeMethod(rec *methodarea.ClassRecord, method *classfile.MethodInfo, args []uint32) ([]uint32, error) {
	if method.IsNative() {
		return natives.Invoke(eng, rec.Name, method.Name, method.Descriptor, args)
	}
	if method.IsAbstract() || method.Code == nil {
		return nil, vmerrors.New(vmerrors.NoSuchMethod, "%s.%s%s has no implementation", rec.Name, method.Name, method.Descriptor)
	}

	eng.depth++
	if eng.depth > maxFrameDepth {
		eng.depth--
		return nil, vmerrors.New(vmerrors.Format, "stack overflow: frame depth exceeded %d", maxFrameDepth)
	}
	defer func() { eng.depth-- }()

	frame := NewFrame(method.Code.MaxLocals, method.Code.MaxStack, method.Code, rec.Pool, rec.Name, method.Name, method.Descriptor)
	copy(frame.Locals, args)

	return eng.runFrame(frame)
}

// runFrame is the fetch-decode-execute loop (spec.md §4.8). Each step
// advances PC past the opcode before step() reads its operands, matching
// how original_source/run.rs's interpreter positions PC.
func (eng *Engine) runFrame(frame *Frame) (ret []uint32, err error) {
	for frame.PC < len(frame.Code) {
		instructionPC := frame.PC
		opcode := frame.Code[frame.PC]
		frame.PC++

		ret, done, stepErr := eng.catchStep(frame, opcode)
		if stepErr != nil {
			excClass, ok := excClassOf(stepErr)
			if !ok {
				kind, hasKind := vmerrors.KindOf(stepErr)
				if !hasKind {
					kind = vmerrors.Format
				}
				return nil, vmerrors.Wrap(kind, stepErr, "%s.%s%s at pc=%d", frame.ClassName, frame.MethodName, frame.Descriptor, instructionPC)
			}
			handlerPC, found := eng.findHandler(frame, instructionPC, excClass)
			if !found {
				return nil, stepErr
			}
			frame.SP = 0
			frame.push1(uint32(stepErr.(*thrown).Object))
			frame.PC = handlerPC
			continue
		}
		if done {
			return ret, nil
		}
	}
	return nil, nil
}

func excClassOf(err error) (string, bool) {
	t, ok := err.(*thrown)
	if !ok {
		return "", false
	}
	return t.Class, true
}

// catchStep recovers a Go panic raised by a bounds check in Frame (stack
// over/underflow, bad local index) and reports it as a host error instead
// of crashing the engine.
func (eng *Engine) catchStep(frame *Frame, opcode byte) (ret []uint32, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = vmPanicToError(r)
		}
	}()
	return eng.step(frame, opcode)
}

// step executes a single instruction. Returns (returnCells, true, nil) on
// a return opcode, (nil, false, nil) to continue, or a non-nil error
// (possibly a *thrown) otherwise.
func (eng *Engine) step(frame *Frame, opcode byte) ([]uint32, bool, error) {
	switch opcode {
	case opNop:

	case opAconstNull:
		frame.PushRaw(0)
	case opIconstM1, opIconst0, opIconst1, opIconst2, opIconst3, opIconst4, opIconst5:
		frame.PushInt(int32(opcode) - int32(opIconst0))
	case opLconst0, opLconst1:
		frame.PushLong(int64(opcode) - int64(opLconst0))
	case opFconst0, opFconst1, opFconst2:
		frame.PushFloat(float32(int(opcode) - opFconst0))
	case opDconst0, opDconst1:
		frame.PushDouble(float64(int(opcode) - opDconst0))

	case opBipush:
		frame.PushInt(int32(frame.ReadI8()))
	case opSipush:
		frame.PushInt(int32(frame.ReadI16()))

	case opLdc:
		return nil, false, eng.execLdc(frame, uint16(frame.ReadU8()))
	case opLdcW:
		return nil, false, eng.execLdc(frame, frame.ReadU16())
	case opLdc2W:
		return nil, false, eng.execLdc2(frame, frame.ReadU16())

	case opIload, opFload, opAload:
		frame.PushRaw(frame.GetLocalRaw(int(frame.ReadU8())))
	case opLload, opDload:
		frame.PushLong(frame.GetLocalLong(int(frame.ReadU8())))
	case opIload0, opIload0 + 1, opIload0 + 2, opIload0 + 3:
		frame.PushRaw(frame.GetLocalRaw(int(opcode - opIload0)))
	case opFload0, opFload0 + 1, opFload0 + 2, opFload0 + 3:
		frame.PushRaw(frame.GetLocalRaw(int(opcode - opFload0)))
	case opAload0, opAload0 + 1, opAload0 + 2, opAload0 + 3:
		frame.PushRaw(frame.GetLocalRaw(int(opcode - opAload0)))
	case opLload0, opLload0 + 1, opLload0 + 2, opLload0 + 3:
		frame.PushLong(frame.GetLocalLong(int(opcode - opLload0)))
	case opDload0, opDload0 + 1, opDload0 + 2, opDload0 + 3:
		frame.PushLong(frame.GetLocalLong(int(opcode - opDload0)))

	case opIstore, opFstore, opAstore:
		frame.SetLocalRaw(int(frame.ReadU8()), frame.PopRaw())
	case opLstore, opDstore:
		frame.SetLocalLong(int(frame.ReadU8()), frame.PopLong())
	case opIstore0, opIstore0 + 1, opIstore0 + 2, opIstore0 + 3:
		frame.SetLocalRaw(int(opcode-opIstore0), frame.PopRaw())
	case opFstore0, opFstore0 + 1, opFstore0 + 2, opFstore0 + 3:
		frame.SetLocalRaw(int(opcode-opFstore0), frame.PopRaw())
	case opAstore0, opAstore0 + 1, opAstore0 + 2, opAstore0 + 3:
		frame.SetLocalRaw(int(opcode-opAstore0), frame.PopRaw())
	case opLstore0, opLstore0 + 1, opLstore0 + 2, opLstore0 + 3:
		frame.SetLocalLong(int(opcode-opLstore0), frame.PopLong())
	case opDstore0, opDstore0 + 1, opDstore0 + 2, opDstore0 + 3:
		frame.SetLocalLong(int(opcode-opDstore0), frame.PopLong())

	case opIaload, opLaload, opFaload, opDaload, opAaload, opBaload, opCaload, opSaload:
		return nil, false, eng.execArrayLoad(frame, opcode)
	case opIastore, opLastore, opFastore, opDastore, opAastore, opBastore, opCastore, opSastore:
		return nil, false, eng.execArrayStore(frame, opcode)

	case opPop:
		frame.pop1()
	case opPop2:
		frame.pop1()
		frame.pop1()
	case opDup:
		frame.Dup()
	case opDupX1:
		v1, v2 := frame.pop1(), frame.pop1()
		frame.push1(v1)
		frame.push1(v2)
		frame.push1(v1)
	case opDupX2:
		v1, v2, v3 := frame.pop1(), frame.pop1(), frame.pop1()
		frame.push1(v1)
		frame.push1(v3)
		frame.push1(v2)
		frame.push1(v1)
	case opDup2:
		v1, v2 := frame.pop1(), frame.pop1()
		frame.push1(v2)
		frame.push1(v1)
		frame.push1(v2)
		frame.push1(v1)
	case opDup2X1:
		v1, v2, v3 := frame.pop1(), frame.pop1(), frame.pop1()
		frame.push1(v2)
		frame.push1(v1)
		frame.push1(v3)
		frame.push1(v2)
		frame.push1(v1)
	case opDup2X2:
		v1, v2, v3, v4 := frame.pop1(), frame.pop1(), frame.pop1(), frame.pop1()
		frame.push1(v2)
		frame.push1(v1)
		frame.push1(v4)
		frame.push1(v3)
		frame.push1(v2)
		frame.push1(v1)
	case opSwap:
		v1, v2 := frame.pop1(), frame.pop1()
		frame.push1(v1)
		frame.push1(v2)

	case opIadd:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a + b)
	case opIsub:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a - b)
	case opImul:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a * b)
	case opIdiv:
		b, a := frame.PopInt(), frame.PopInt()
		if b == 0 {
			return nil, false, eng.throwNew("java/lang/ArithmeticException")
		}
		frame.PushInt(a / b)
	case opIrem:
		b, a := frame.PopInt(), frame.PopInt()
		if b == 0 {
			return nil, false, eng.throwNew("java/lang/ArithmeticException")
		}
		frame.PushInt(a % b)
	case opIneg:
		frame.PushInt(-frame.PopInt())
	case opIshl:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a << (uint32(b) & 0x1f))
	case opIshr:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a >> (uint32(b) & 0x1f))
	case opIushr:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(int32(uint32(a) >> (uint32(b) & 0x1f)))
	case opIand:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a & b)
	case opIor:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a | b)
	case opIxor:
		b, a := frame.PopInt(), frame.PopInt()
		frame.PushInt(a ^ b)
	case opIinc:
		index := int(frame.ReadU8())
		delta := int32(frame.ReadI8())
		frame.SetLocalRaw(index, uint32(int32(frame.GetLocalRaw(index))+delta))

	case opLadd:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a + b)
	case opLsub:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a - b)
	case opLmul:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a * b)
	case opLdiv:
		b, a := frame.PopLong(), frame.PopLong()
		if b == 0 {
			return nil, false, eng.throwNew("java/lang/ArithmeticException")
		}
		frame.PushLong(a / b)
	case opLrem:
		b, a := frame.PopLong(), frame.PopLong()
		if b == 0 {
			return nil, false, eng.throwNew("java/lang/ArithmeticException")
		}
		frame.PushLong(a % b)
	case opLneg:
		frame.PushLong(-frame.PopLong())
	case opLshl:
		b, a := frame.PopInt(), frame.PopLong()
		frame.PushLong(a << (uint32(b) & 0x3f))
	case opLshr:
		b, a := frame.PopInt(), frame.PopLong()
		frame.PushLong(a >> (uint32(b) & 0x3f))
	case opLushr:
		b, a := frame.PopInt(), frame.PopLong()
		frame.PushLong(int64(uint64(a) >> (uint32(b) & 0x3f)))
	case opLand:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a & b)
	case opLor:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a | b)
	case opLxor:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushLong(a ^ b)
	case opLcmp:
		b, a := frame.PopLong(), frame.PopLong()
		frame.PushInt(cmp64(a, b))

	case opFadd:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushFloat(a + b)
	case opFsub:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushFloat(a - b)
	case opFmul:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushFloat(a * b)
	case opFdiv:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushFloat(a / b)
	case opFrem:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushFloat(float32(math.Mod(float64(a), float64(b))))
	case opFneg:
		frame.PushFloat(-frame.PopFloat())
	case opFcmpl:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushInt(fcmp(float64(a), float64(b), -1))
	case opFcmpg:
		b, a := frame.PopFloat(), frame.PopFloat()
		frame.PushInt(fcmp(float64(a), float64(b), 1))

	case opDadd:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushDouble(a + b)
	case opDsub:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushDouble(a - b)
	case opDmul:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushDouble(a * b)
	case opDdiv:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushDouble(a / b)
	case opDrem:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushDouble(math.Mod(a, b))
	case opDneg:
		frame.PushDouble(-frame.PopDouble())
	case opDcmpl:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushInt(fcmp(a, b, -1))
	case opDcmpg:
		b, a := frame.PopDouble(), frame.PopDouble()
		frame.PushInt(fcmp(a, b, 1))

	case opI2l:
		frame.PushLong(int64(frame.PopInt()))
	case opI2f:
		frame.PushFloat(float32(frame.PopInt()))
	case opI2d:
		frame.PushDouble(float64(frame.PopInt()))
	case opL2i:
		frame.PushInt(int32(frame.PopLong()))
	case opL2f:
		frame.PushFloat(float32(frame.PopLong()))
	case opL2d:
		frame.PushDouble(float64(frame.PopLong()))
	case opF2i:
		frame.PushInt(toInt32Sat(float64(frame.PopFloat())))
	case opF2l:
		frame.PushLong(toInt64Sat(float64(frame.PopFloat())))
	case opF2d:
		frame.PushDouble(float64(frame.PopFloat()))
	case opD2i:
		frame.PushInt(toInt32Sat(frame.PopDouble()))
	case opD2l:
		frame.PushLong(toInt64Sat(frame.PopDouble()))
	case opD2f:
		frame.PushFloat(float32(frame.PopDouble()))
	case opI2b:
		frame.PushInt(int32(int8(frame.PopInt())))
	case opI2c:
		frame.PushInt(int32(uint16(frame.PopInt())))
	case opI2s:
		frame.PushInt(int32(int16(frame.PopInt())))

	case opIfeq, opIfne, opIflt, opIfge, opIfgt, opIfle:
		return nil, false, eng.execIfUnary(frame, opcode)
	case opIfIcmpeq, opIfIcmpne, opIfIcmplt, opIfIcmpge, opIfIcmpgt, opIfIcmple:
		return nil, false, eng.execIfIcmp(frame, opcode)
	case opIfAcmpeq, opIfAcmpne:
		offset := frame.ReadI16()
		b, a := frame.PopRef(), frame.PopRef()
		taken := a == b
		if opcode == opIfAcmpne {
			taken = !taken
		}
		if taken {
			frame.PC = frame.PC - 3 + int(offset)
		}
	case opIfnull, opIfnonnull:
		offset := frame.ReadI16()
		r := frame.PopRef()
		taken := r == 0
		if opcode == opIfnonnull {
			taken = !taken
		}
		if taken {
			frame.PC = frame.PC - 3 + int(offset)
		}
	case opGoto:
		offset := frame.ReadI16()
		frame.PC = frame.PC - 3 + int(offset)
	case opGotoW:
		offset := frame.ReadI32()
		frame.PC = frame.PC - 5 + int(offset)

	case opTableswitch, opLookupswitch:
		return nil, false, eng.execSwitch(frame, opcode)

	case opIreturn, opFreturn, opAreturn:
		return []uint32{frame.PopRaw()}, true, nil
	case opLreturn, opDreturn:
		v := frame.PopLong()
		return []uint32{uint32(uint64(v) >> 32), uint32(uint64(v))}, true, nil
	case opReturn:
		return nil, true, nil

	case opGetstatic, opPutstatic, opGetfield, opPutfield:
		return nil, false, eng.execFieldAccess(frame, opcode)

	case opInvokevirtual, opInvokespecial, opInvokestatic, opInvokeinterface:
		return eng.execInvoke(frame, opcode)

	case opNew:
		return nil, false, eng.execNew(frame)
	case opNewarray:
		return nil, false, eng.execNewarray(frame)
	case opAnewarray:
		return nil, false, eng.execAnewarray(frame)
	case opMultianewarray:
		return nil, false, eng.execMultianewarray(frame)
	case opArraylength:
		return nil, false, eng.execArraylength(frame)

	case opAthrow:
		return nil, false, eng.execAthrow(frame)

	case opCheckcast:
		return nil, false, eng.execCheckcast(frame)
	case opInstanceof:
		return nil, false, eng.execInstanceof(frame)

	case opMonitorenter, opMonitorexit:
		frame.pop1()

	default:
		return nil, false, vmerrors.New(vmerrors.UnsupportedOpcode, "unsupported opcode 0x%02x at %s.%s%s", opcode, frame.ClassName, frame.MethodName, frame.Descriptor)
	}
	return nil, false, nil
}

func cmp64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg and dcmpl/dcmpg: nanResult is returned when
// either operand is NaN (-1 for *l variants, 1 for *g variants).
func fcmp(a, b float64, nanResult int32) int32 {
	if isNaN(a) || isNaN(b) {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func isNaN(f float64) bool { return f != f }

// toInt32Sat/toInt64Sat implement the f2i/f2l/d2i/d2l saturating
// conversion rules (JVM Specification §2.8.3): NaN becomes 0, and
// out-of-range values clamp to the target type's min/max instead of
// wrapping.
func toInt32Sat(f float64) int32 {
	if isNaN(f) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

func toInt64Sat(f float64) int64 {
	if isNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}
