package vm

import "github.com/mattstark/corevm/pkg/vmerrors"

// execIfUnary handles ifeq/ifne/iflt/ifge/ifgt/ifle: pop one int, compare
// against zero, branch on true.
func (eng *Engine) execIfUnary(frame *Frame, opcode byte) error {
	offset := frame.ReadI16()
	v := frame.PopInt()
	taken, err := unaryTaken(opcode, v, 0)
	if err != nil {
		return err
	}
	if taken {
		frame.PC = frame.PC - 3 + int(offset)
	}
	return nil
}

// execIfIcmp handles if_icmp<cond>: pop two ints, compare, branch on
// true.
func (eng *Engine) execIfIcmp(frame *Frame, opcode byte) error {
	offset := frame.ReadI16()
	b, a := frame.PopInt(), frame.PopInt()
	taken, err := unaryTaken(opcode-(opIfIcmpeq-opIfeq), a, b)
	if err != nil {
		return err
	}
	if taken {
		frame.PC = frame.PC - 3 + int(offset)
	}
	return nil
}

func unaryTaken(cmpOpcode byte, a, b int32) (bool, error) {
	switch cmpOpcode {
	case opIfeq:
		return a == b, nil
	case opIfne:
		return a != b, nil
	case opIflt:
		return a < b, nil
	case opIfge:
		return a >= b, nil
	case opIfgt:
		return a > b, nil
	case opIfle:
		return a <= b, nil
	default:
		return false, vmerrors.New(vmerrors.UnsupportedOpcode, "unrecognized comparison opcode 0x%02x", cmpOpcode)
	}
}
