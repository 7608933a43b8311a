package methodarea

import (
	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/descriptor"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// FieldLayoutEntry is one slot of an instance- or static-field layout: a
// (declaring-class, name, type, width) tuple, per spec.md §3.
type FieldLayoutEntry struct {
	DeclaringClass string
	Name           string
	Type           descriptor.FieldType
	Width          int
}

// computeInstanceLayout builds a class's instance-field layout: the
// superclass's layout verbatim (the prefix-property invariant, spec.md §8
// invariant 1), followed by this class's own declared non-static fields in
// declaration order.
func computeInstanceLayout(superLayout []FieldLayoutEntry, declaringClass string, fields []classfile.FieldInfo) ([]FieldLayoutEntry, error) {
	layout := make([]FieldLayoutEntry, 0, len(superLayout)+len(fields))
	layout = append(layout, superLayout...)
	for _, f := range fields {
		if f.IsStatic() {
			continue
		}
		ft, err := descriptor.ParseField(f.Descriptor)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Descriptor, err, "field %s.%s", declaringClass, f.Name)
		}
		layout = append(layout, FieldLayoutEntry{DeclaringClass: declaringClass, Name: f.Name, Type: ft, Width: ft.Category()})
	}
	return layout, nil
}

// computeStaticLayout builds a class's static-field layout: only this
// class's own declared static fields (statics are never inherited into a
// subclass's own storage).
func computeStaticLayout(declaringClass string, fields []classfile.FieldInfo) ([]FieldLayoutEntry, error) {
	var layout []FieldLayoutEntry
	for _, f := range fields {
		if !f.IsStatic() {
			continue
		}
		ft, err := descriptor.ParseField(f.Descriptor)
		if err != nil {
			return nil, vmerrors.Wrap(vmerrors.Descriptor, err, "static field %s.%s", declaringClass, f.Name)
		}
		layout = append(layout, FieldLayoutEntry{DeclaringClass: declaringClass, Name: f.Name, Type: ft, Width: ft.Category()})
	}
	return layout, nil
}

func layoutWidth(layout []FieldLayoutEntry) int {
	w := 0
	for _, e := range layout {
		w += e.Width
	}
	return w
}

// InstanceWidth is the number of uint32 cells a new instance of this class
// occupies on the heap.
func (r *ClassRecord) InstanceWidth() int { return layoutWidth(r.InstanceLayout) }

// StaticWidth is the number of uint32 cells this class's own static
// storage occupies.
func (r *ClassRecord) StaticWidth() int { return layoutWidth(r.StaticLayout) }

// OwnStaticOffset looks up name in this record's own static layout only
// (no superclass fallback) — used by callers that walk the superclass
// chain themselves to find the declaring class of an inherited static
// field reference.
func (r *ClassRecord) OwnStaticOffset(name string) (int, error) {
	offset, _, err := fieldOffsetIn(r.StaticLayout, r.Name, name)
	return offset, err
}

// fieldOffsetIn walks layout summing widths, matching on (declaringClass,
// name) exactly; see DESIGN.md for why this core keys offsets by declaring
// class rather than name alone. Falls back to a first-name match only when
// no declaring class match exists, to stay lenient with malformed lookups.
func fieldOffsetIn(layout []FieldLayoutEntry, declaringClass, name string) (int, descriptor.FieldType, error) {
	offset := 0
	fallbackOffset := -1
	var fallbackType descriptor.FieldType
	for _, e := range layout {
		if e.DeclaringClass == declaringClass && e.Name == name {
			return offset, e.Type, nil
		}
		if fallbackOffset == -1 && e.Name == name {
			fallbackOffset = offset
			fallbackType = e.Type
		}
		offset += e.Width
	}
	if fallbackOffset != -1 {
		return fallbackOffset, fallbackType, nil
	}
	return 0, descriptor.FieldType{}, vmerrors.New(vmerrors.NoSuchField, "no field %s.%s", declaringClass, name)
}
