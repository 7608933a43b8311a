// Package resolver implements symbolic resolution of a class's constant
// pool: a lazily-materialized, memoized parallel vector of typed Constant
// values built on demand from classfile.RawConstant entries. Grounded on
// original_source's parse_or_get_constant (read-if-placeholder, recurse on
// referenced indices, write back, return).
package resolver

import (
	"unicode/utf8"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// Constant is the resolved, tagged-variant form of a constant-pool entry.
// Every concrete type below implements it; unknown raw tags fail at decode
// time in pkg/classfile, so no catch-all variant is needed here.
type Constant interface {
	isConstant()
}

type Utf8 struct{ Text string }

func (Utf8) isConstant() {}

type Integer struct{ Value int32 }

func (Integer) isConstant() {}

type Long struct{ Value int64 }

func (Long) isConstant() {}

type Float struct{ Value float32 }

func (Float) isConstant() {}

type Double struct{ Value float64 }

func (Double) isConstant() {}

type Class struct{ Name string }

func (Class) isConstant() {}

type String struct{ Text string }

func (String) isConstant() {}

type NameAndType struct{ Name, Descriptor string }

func (NameAndType) isConstant() {}

type FieldRef struct{ ClassName, Name, Descriptor string }

func (FieldRef) isConstant() {}

type MethodRef struct{ ClassName, Name, Descriptor string }

func (MethodRef) isConstant() {}

type InterfaceMethodRef struct{ ClassName, Name, Descriptor string }

func (InterfaceMethodRef) isConstant() {}

type MethodHandle struct {
	ReferenceKind uint8
	Referenced    Constant // the resolved FieldRef/MethodRef/InterfaceMethodRef
}

func (MethodHandle) isConstant() {}

type MethodType struct{ Descriptor string }

func (MethodType) isConstant() {}

type InvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	Name, Descriptor         string
}

func (InvokeDynamic) isConstant() {}

type placeholder struct{}

func (placeholder) isConstant() {}

// Pool is a per-class resolved constant pool: a parallel vector the same
// length as the raw pool, initially all unset (nil), filled in lazily and
// memoized as bytecode references each index. A slot holds placeholder
// only while its own resolution is in progress.
type Pool struct {
	raw      []classfile.RawConstant
	resolved []Constant
}

// New wraps a decoded class's raw constant pool for lazy resolution.
func New(raw []classfile.RawConstant) *Pool {
	return &Pool{raw: raw, resolved: make([]Constant, len(raw))}
}

// Resolve resolves the entry at index, memoizing the result. Idempotent:
// repeated calls for the same index return the cached value without
// re-walking the raw entry.
func (p *Pool) Resolve(index uint16) (Constant, error) {
	if index == 0 || int(index) >= len(p.raw) {
		return nil, vmerrors.New(vmerrors.Resolution, "constant pool index %d out of range", index)
	}
	if existing := p.resolved[index]; existing != nil {
		if _, inProgress := existing.(placeholder); inProgress {
			return nil, vmerrors.New(vmerrors.Resolution, "constant pool index %d refers back to itself", index)
		}
		return existing, nil
	}
	// Mark as in-progress so a (malformed, self-referential) cycle fails
	// fast instead of recursing forever, rather than leaving the slot at
	// its zero value (nil), which would be indistinguishable from "not yet
	// visited" and would not break the cycle.
	p.resolved[index] = placeholder{}

	raw := p.raw[index]
	if raw == nil {
		p.resolved[index] = nil
		return nil, vmerrors.New(vmerrors.Resolution, "constant pool index %d is unused (second slot of a Long/Double)", index)
	}

	c, err := p.resolveRaw(raw)
	if err != nil {
		p.resolved[index] = nil
		return nil, err
	}
	p.resolved[index] = c
	return c, nil
}

func (p *Pool) resolveRaw(raw classfile.RawConstant) (Constant, error) {
	switch r := raw.(type) {
	case classfile.RawUtf8:
		if !utf8.Valid(r.Bytes) {
			return nil, vmerrors.New(vmerrors.Resolution, "Utf8 entry is not valid UTF-8")
		}
		return Utf8{Text: string(r.Bytes)}, nil

	case classfile.RawInteger:
		return Integer{Value: r.Value}, nil

	case classfile.RawLong:
		return Long{Value: r.Value}, nil

	case classfile.RawFloat:
		return Float{Value: r.Value}, nil

	case classfile.RawDouble:
		return Double{Value: r.Value}, nil

	case classfile.RawClass:
		name, err := p.resolveUtf8(r.NameIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving Class name")
		}
		return Class{Name: name}, nil

	case classfile.RawString:
		text, err := p.resolveUtf8(r.StringIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving String text")
		}
		return String{Text: text}, nil

	case classfile.RawNameAndType:
		name, err := p.resolveUtf8(r.NameIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving NameAndType name")
		}
		desc, err := p.resolveUtf8(r.DescriptorIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving NameAndType descriptor")
		}
		return NameAndType{Name: name, Descriptor: desc}, nil

	case classfile.RawFieldref:
		className, err := p.resolveClassName(r.ClassIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving Fieldref class")
		}
		nat, err := p.resolveNameAndType(r.NameAndTypeIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving Fieldref name-and-type")
		}
		return FieldRef{ClassName: className, Name: nat.Name, Descriptor: nat.Descriptor}, nil

	case classfile.RawMethodref:
		className, err := p.resolveClassName(r.ClassIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving Methodref class")
		}
		nat, err := p.resolveNameAndType(r.NameAndTypeIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving Methodref name-and-type")
		}
		return MethodRef{ClassName: className, Name: nat.Name, Descriptor: nat.Descriptor}, nil

	case classfile.RawInterfaceMethodref:
		className, err := p.resolveClassName(r.ClassIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving InterfaceMethodref class")
		}
		nat, err := p.resolveNameAndType(r.NameAndTypeIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving InterfaceMethodref name-and-type")
		}
		return InterfaceMethodRef{ClassName: className, Name: nat.Name, Descriptor: nat.Descriptor}, nil

	case classfile.RawMethodType:
		desc, err := p.resolveUtf8(r.DescriptorIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving MethodType descriptor")
		}
		return MethodType{Descriptor: desc}, nil

	case classfile.RawMethodHandle:
		ref, err := p.Resolve(r.ReferenceIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving MethodHandle reference")
		}
		return MethodHandle{ReferenceKind: r.ReferenceKind, Referenced: ref}, nil

	case classfile.RawInvokeDynamic:
		nat, err := p.resolveNameAndType(r.NameAndTypeIndex)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Resolution, err, "resolving InvokeDynamic name-and-type")
		}
		return InvokeDynamic{BootstrapMethodAttrIndex: r.BootstrapMethodAttrIndex, Name: nat.Name, Descriptor: nat.Descriptor}, nil

	default:
		return nil, vmerrors.New(vmerrors.Resolution, "unresolvable raw constant of type %T", raw)
	}
}

func (p *Pool) resolveUtf8(index uint16) (string, error) {
	c, err := p.Resolve(index)
	if err != nil {
		return "", err
	}
	u, ok := c.(Utf8)
	if !ok {
		return "", vmerrors.New(vmerrors.Resolution, "constant pool index %d is not Utf8", index)
	}
	return u.Text, nil
}

func (p *Pool) resolveClassName(index uint16) (string, error) {
	c, err := p.Resolve(index)
	if err != nil {
		return "", err
	}
	cl, ok := c.(Class)
	if !ok {
		return "", vmerrors.New(vmerrors.Resolution, "constant pool index %d is not Class", index)
	}
	return cl.Name, nil
}

func (p *Pool) resolveNameAndType(index uint16) (NameAndType, error) {
	c, err := p.Resolve(index)
	if err != nil {
		return NameAndType{}, err
	}
	nat, ok := c.(NameAndType)
	if !ok {
		return NameAndType{}, vmerrors.New(vmerrors.Resolution, "constant pool index %d is not NameAndType", index)
	}
	return nat, nil
}

// ResolveFieldRef is a typed convenience wrapper: resolve index and assert
// it is a FieldRef.
func (p *Pool) ResolveFieldRef(index uint16) (FieldRef, error) {
	c, err := p.Resolve(index)
	if err != nil {
		return FieldRef{}, err
	}
	fr, ok := c.(FieldRef)
	if !ok {
		return FieldRef{}, vmerrors.New(vmerrors.Resolution, "constant pool index %d is not Fieldref", index)
	}
	return fr, nil
}

// ResolveMethodRef resolves index as either a MethodRef or an
// InterfaceMethodRef (normalized to MethodRef's shape), matching spec.md §3:
// "InterfaceMethodRef materialized identically to MethodRef for the core".
func (p *Pool) ResolveMethodRef(index uint16) (MethodRef, error) {
	c, err := p.Resolve(index)
	if err != nil {
		return MethodRef{}, err
	}
	switch m := c.(type) {
	case MethodRef:
		return m, nil
	case InterfaceMethodRef:
		return MethodRef{ClassName: m.ClassName, Name: m.Name, Descriptor: m.Descriptor}, nil
	default:
		return MethodRef{}, vmerrors.New(vmerrors.Resolution, "constant pool index %d is not a method reference", index)
	}
}

// ResolveClassName resolves index and asserts it is a Class.
func (p *Pool) ResolveClassName(index uint16) (string, error) {
	return p.resolveClassName(index)
}

// ResolveUtf8 resolves index and asserts it is a Utf8.
func (p *Pool) ResolveUtf8(index uint16) (string, error) {
	return p.resolveUtf8(index)
}
