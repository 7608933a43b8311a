package classfile

import (
	"os"

	"github.com/mattstark/corevm/pkg/vmerrors"
)

const classMagic = 0xCAFEBABE

// ParseFile reads and decodes a .class file from disk.
func ParseFile(path string) (*ClassFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading class file %s", path)
	}
	return Parse(buf)
}

// Parse decodes a class-file byte buffer into a ClassFile. Fails with
// vmerrors.Format on a bad magic number, an unsupported major version, or
// any length-prefixed region overrunning the buffer.
func Parse(buf []byte) (*ClassFile, error) {
	r := newReader(buf)
	cf := &ClassFile{}

	magic, err := r.u32()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading magic number")
	}
	if magic != classMagic {
		return nil, vmerrors.New(vmerrors.Format, "invalid magic number 0x%08X (expected 0xCAFEBABE)", magic)
	}

	if cf.MinorVersion, err = r.u16(); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading minor version")
	}
	if cf.MajorVersion, err = r.u16(); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading major version")
	}
	if cf.MajorVersion > MaxSupportedMajorVersion {
		return nil, vmerrors.New(vmerrors.Format, "unsupported major version %d (max %d, Java SE 11)", cf.MajorVersion, MaxSupportedMajorVersion)
	}

	cpCount, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading constant pool count")
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "parsing constant pool")
	}
	cf.RawPool = pool

	if cf.AccessFlags, err = r.u16(); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading access flags")
	}

	thisIdx, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading this_class")
	}
	if cf.ThisClass, err = rawClassName(pool, thisIdx); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "resolving this_class")
	}

	superIdx, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading super_class")
	}
	if cf.SuperClass, err = rawClassName(pool, superIdx); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "resolving super_class")
	}

	interfacesCount, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading interfaces count")
	}
	cf.Interfaces = make([]string, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		idx, err := r.u16()
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Format, err, "reading interface %d", i)
		}
		name, err := rawClassName(pool, idx)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Format, err, "resolving interface %d", i)
		}
		cf.Interfaces[i] = name
	}

	fieldsCount, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading fields count")
	}
	if cf.Fields, err = parseFields(r, pool, fieldsCount); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "parsing fields")
	}

	methodsCount, err := r.u16()
	if err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "reading methods count")
	}
	if cf.Methods, err = parseMethods(r, pool, methodsCount); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "parsing methods")
	}

	// Class-level attributes (SourceFile, InnerClasses, BootstrapMethods,
	// ...) are stored opaquely; only the Code attribute is consumed
	// structurally, per spec.
	if err := skipAttributes(r); err != nil {
		return nil, vmerrors.Wrap(vmerrors.Format, err, "parsing class attributes")
	}

	return cf, nil
}

func parseFields(r *reader, pool []RawConstant, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := r.u16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := rawUtf8(pool, nameIdx)
		if err != nil {
			return nil, err
		}
		desc, err := rawUtf8(pool, descIdx)
		if err != nil {
			return nil, err
		}
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
		fields[i] = FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc}
	}
	return fields, nil
}

func parseMethods(r *reader, pool []RawConstant, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := r.u16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u16()
		if err != nil {
			return nil, err
		}
		name, err := rawUtf8(pool, nameIdx)
		if err != nil {
			return nil, err
		}
		desc, err := rawUtf8(pool, descIdx)
		if err != nil {
			return nil, err
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc}

		attrCount, err := r.u16()
		if err != nil {
			return nil, err
		}
		for a := uint16(0); a < attrCount; a++ {
			attrNameIdx, err := r.u16()
			if err != nil {
				return nil, err
			}
			length, err := r.u32()
			if err != nil {
				return nil, err
			}
			data, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			attrName, err := rawUtf8(pool, attrNameIdx)
			if err != nil {
				return nil, err
			}
			if attrName == "Code" {
				code, err := parseCodeAttribute(data)
				if err != nil {
					return nil, vmerrors.Wrap(vmerrors.Format, err, "parsing Code attribute for %s%s", name, desc)
				}
				m.Code = code
			}
		}
		methods[i] = m
	}
	return methods, nil
}

// skipAttributes reads an attribute_count followed by that many opaque
// (name_index, length, data) triples and discards the payload.
func skipAttributes(r *reader) error {
	count, err := r.u16()
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		if _, err := r.u16(); err != nil {
			return err
		}
		length, err := r.u32()
		if err != nil {
			return err
		}
		if err := r.skip(int(length)); err != nil {
			return err
		}
	}
	return nil
}

func parseCodeAttribute(data []byte) (*CodeAttribute, error) {
	cr := newReader(data)

	maxStack, err := cr.u16()
	if err != nil {
		return nil, err
	}
	maxLocals, err := cr.u16()
	if err != nil {
		return nil, err
	}
	codeLength, err := cr.u32()
	if err != nil {
		return nil, err
	}
	code, err := cr.bytes(int(codeLength))
	if err != nil {
		return nil, err
	}

	exTableLen, err := cr.u16()
	if err != nil {
		return nil, err
	}
	handlers := make([]ExceptionHandler, exTableLen)
	for i := uint16(0); i < exTableLen; i++ {
		startPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		endPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		handlerPC, err := cr.u16()
		if err != nil {
			return nil, err
		}
		catchType, err := cr.u16()
		if err != nil {
			return nil, err
		}
		handlers[i] = ExceptionHandler{StartPC: startPC, EndPC: endPC, HandlerPC: handlerPC, CatchType: catchType}
	}

	// Code attributes carry their own nested attributes (LineNumberTable,
	// StackMapTable, ...); none are consumed by this core.
	if err := skipAttributes(cr); err != nil {
		return nil, err
	}

	return &CodeAttribute{MaxStack: maxStack, MaxLocals: maxLocals, Code: code, ExceptionTable: handlers}, nil
}
