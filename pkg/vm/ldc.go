package vm

import (
	"github.com/mattstark/corevm/pkg/resolver"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// execLdc pushes a category-1 constant (int, float, String, or Class
// mirror) resolved from the constant pool at index.
func (eng *Engine) execLdc(frame *Frame, index uint16) error {
	c, err := frame.Pool.Resolve(index)
	if err != nil {
		return err
	}
	switch v := c.(type) {
	case resolver.Integer:
		frame.PushInt(v.Value)
	case resolver.Float:
		frame.PushFloat(v.Value)
	case resolver.String:
		ref, err := eng.internString(v.Text)
		if err != nil {
			return err
		}
		frame.PushRef(ref)
	case resolver.Class:
		rec, err := eng.EnsureClass(v.Name)
		if err != nil {
			return err
		}
		frame.PushRef(rec.Mirror)
	default:
		return vmerrors.New(vmerrors.Resolution, "ldc: unsupported constant kind at pool index %d", index)
	}
	return nil
}

// execLdc2 pushes a category-2 constant (long or double).
func (eng *Engine) execLdc2(frame *Frame, index uint16) error {
	c, err := frame.Pool.Resolve(index)
	if err != nil {
		return err
	}
	switch v := c.(type) {
	case resolver.Long:
		frame.PushLong(v.Value)
	case resolver.Double:
		frame.PushDouble(v.Value)
	default:
		return vmerrors.New(vmerrors.Resolution, "ldc2_w: unsupported constant kind at pool index %d", index)
	}
	return nil
}

// InternString exposes internString to pkg/natives (Class.initClassName
// needs to materialize a java/lang/String for a Go-native class name).
func (eng *Engine) InternString(text string) (uint32, error) { return eng.internString(text) }

// internString allocates a java/lang/String instance following the
// compact-strings layout declared in the bootstrap catalog: "value" is a
// "[B" byte array holding each UTF-16 code unit as a big-endian byte pair
// (StringUTF16's coding, not Latin1), and "coder" is set to 1 to record
// that choice. Each call allocates a fresh instance; string interning
// (identity-sharing equal literals) is not implemented.
func (eng *Engine) internString(text string) (uint32, error) {
	rec, err := eng.EnsureClass("java/lang/String")
	if err != nil {
		return 0, err
	}
	valueArrayRef := eng.Heap.Store("[B", utf16BytesOf(text))
	instance := make([]uint32, rec.InstanceWidth())
	if offset, err := eng.Area.FieldOffset("java/lang/String", "value"); err == nil && offset < len(instance) {
		instance[offset] = uint32(valueArrayRef)
	}
	if offset, err := eng.Area.FieldOffset("java/lang/String", "coder"); err == nil && offset < len(instance) {
		instance[offset] = 1
	}
	return uint32(eng.Heap.Store("java/lang/String", instance)), nil
}

// utf16BytesOf encodes text as one big-endian byte pair per UTF-16 code
// unit, one cell per byte, matching java/lang/String's "[B"-typed "value"
// field under coder==1.
func utf16BytesOf(text string) []uint32 {
	runes := []rune(text)
	cells := make([]uint32, len(runes)*2)
	for i, r := range runes {
		c := uint16(r)
		cells[i*2] = uint32(c >> 8)
		cells[i*2+1] = uint32(c & 0xff)
	}
	return cells
}
