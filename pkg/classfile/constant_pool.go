package classfile

import "github.com/mattstark/corevm/pkg/vmerrors"

// Constant pool tags, JVM Specification SE 11 §4.4.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagInvokeDynamic      = 18
)

// RawConstant is a tag-discriminated, unresolved constant-pool entry exactly
// as decoded from the class file: indices into the pool, not yet followed.
// Symbolic resolution (class->name, methodref->class+nameAndType, ...)
// happens lazily and is memoized in pkg/resolver, not here.
type RawConstant interface {
	Tag() uint8
}

type RawUtf8 struct{ Bytes []byte }

func (RawUtf8) Tag() uint8 { return TagUtf8 }

type RawInteger struct{ Value int32 }

func (RawInteger) Tag() uint8 { return TagInteger }

type RawFloat struct{ Value float32 }

func (RawFloat) Tag() uint8 { return TagFloat }

type RawLong struct{ Value int64 }

func (RawLong) Tag() uint8 { return TagLong }

type RawDouble struct{ Value float64 }

func (RawDouble) Tag() uint8 { return TagDouble }

type RawClass struct{ NameIndex uint16 }

func (RawClass) Tag() uint8 { return TagClass }

type RawString struct{ StringIndex uint16 }

func (RawString) Tag() uint8 { return TagString }

type RawFieldref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawFieldref) Tag() uint8 { return TagFieldref }

type RawMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawMethodref) Tag() uint8 { return TagMethodref }

type RawInterfaceMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }

func (RawInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type RawNameAndType struct{ NameIndex, DescriptorIndex uint16 }

func (RawNameAndType) Tag() uint8 { return TagNameAndType }

type RawMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (RawMethodHandle) Tag() uint8 { return TagMethodHandle }

type RawMethodType struct{ DescriptorIndex uint16 }

func (RawMethodType) Tag() uint8 { return TagMethodType }

type RawInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (RawInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

// parseConstantPool decodes `count - 1` entries into a 1-indexed slice of
// length count; index 0 is unused. Long and Double entries consume two
// slots per the JVM spec, leaving the following slot nil.
func parseConstantPool(r *reader, count uint16) ([]RawConstant, error) {
	pool := make([]RawConstant, count)
	for i := uint16(1); i < count; i++ {
		tag, err := r.u8()
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Format, err, "reading constant pool tag at index %d", i)
		}
		switch tag {
		case TagUtf8:
			length, err := r.u16()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Utf8 length at index %d", i)
			}
			b, err := r.bytes(int(length))
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Utf8 bytes at index %d", i)
			}
			pool[i] = RawUtf8{Bytes: b}
		case TagInteger:
			v, err := r.i32()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Integer at index %d", i)
			}
			pool[i] = RawInteger{Value: v}
		case TagFloat:
			v, err := r.f32()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Float at index %d", i)
			}
			pool[i] = RawFloat{Value: v}
		case TagLong:
			v, err := r.i64()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Long at index %d", i)
			}
			pool[i] = RawLong{Value: v}
			i++
		case TagDouble:
			v, err := r.f64()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Double at index %d", i)
			}
			pool[i] = RawDouble{Value: v}
			i++
		case TagClass:
			idx, err := r.u16()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Class at index %d", i)
			}
			pool[i] = RawClass{NameIndex: idx}
		case TagString:
			idx, err := r.u16()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading String at index %d", i)
			}
			pool[i] = RawString{StringIndex: idx}
		case TagFieldref:
			c, n, err := readRef(r)
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Fieldref at index %d", i)
			}
			pool[i] = RawFieldref{ClassIndex: c, NameAndTypeIndex: n}
		case TagMethodref:
			c, n, err := readRef(r)
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading Methodref at index %d", i)
			}
			pool[i] = RawMethodref{ClassIndex: c, NameAndTypeIndex: n}
		case TagInterfaceMethodref:
			c, n, err := readRef(r)
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading InterfaceMethodref at index %d", i)
			}
			pool[i] = RawInterfaceMethodref{ClassIndex: c, NameAndTypeIndex: n}
		case TagNameAndType:
			n, d, err := readRef(r)
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading NameAndType at index %d", i)
			}
			pool[i] = RawNameAndType{NameIndex: n, DescriptorIndex: d}
		case TagMethodHandle:
			kind, err := r.u8()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading MethodHandle kind at index %d", i)
			}
			idx, err := r.u16()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading MethodHandle reference at index %d", i)
			}
			pool[i] = RawMethodHandle{ReferenceKind: kind, ReferenceIndex: idx}
		case TagMethodType:
			idx, err := r.u16()
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading MethodType at index %d", i)
			}
			pool[i] = RawMethodType{DescriptorIndex: idx}
		case TagInvokeDynamic:
			b, n, err := readRef(r)
			if err != nil {
				return nil, vmerrors.Wrap(vmerrors.Format, err, "reading InvokeDynamic at index %d", i)
			}
			pool[i] = RawInvokeDynamic{BootstrapMethodAttrIndex: b, NameAndTypeIndex: n}
		default:
			return nil, vmerrors.New(vmerrors.Format, "unknown constant pool tag %d at index %d", tag, i)
		}
	}
	return pool, nil
}

func readRef(r *reader) (uint16, uint16, error) {
	a, err := r.u16()
	if err != nil {
		return 0, 0, err
	}
	b, err := r.u16()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// rawUtf8 resolves a Utf8 entry eagerly, during skeleton decode (name and
// descriptor strings, this/super/interface names). This is distinct from
// pkg/resolver's lazy, memoized resolution of bytecode-referenced constants.
func rawUtf8(pool []RawConstant, index uint16) (string, error) {
	if int(index) <= 0 || int(index) >= len(pool) {
		return "", vmerrors.New(vmerrors.Format, "constant pool index %d out of range", index)
	}
	u, ok := pool[index].(RawUtf8)
	if !ok {
		return "", vmerrors.New(vmerrors.Format, "constant pool index %d is not Utf8", index)
	}
	return string(u.Bytes), nil
}

// rawClassName resolves a CONSTANT_Class entry's name. Index 0 is valid here
// only for super_class, meaning "no superclass" (java/lang/Object).
func rawClassName(pool []RawConstant, index uint16) (string, error) {
	if index == 0 {
		return "", nil
	}
	if int(index) >= len(pool) {
		return "", vmerrors.New(vmerrors.Format, "constant pool index %d out of range", index)
	}
	c, ok := pool[index].(RawClass)
	if !ok {
		return "", vmerrors.New(vmerrors.Format, "constant pool index %d is not Class", index)
	}
	return rawUtf8(pool, c.NameIndex)
}
