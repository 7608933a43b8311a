package methodarea

import (
	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/resolver"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// MethodArea is the registry of loaded class and array-class records. It
// does not itself drive the Loaded->Linked->Initialized lifecycle (that's
// pkg/vm's job); it only computes and stores the structural data a class
// record needs at each stage.
type MethodArea struct {
	classes Loader
	arrays  map[string]*ArrayClassRecord
}

// Loader is the class-record map; split out only so tests can pre-seed it.
type Loader map[string]*ClassRecord

func New() *MethodArea {
	return &MethodArea{
		classes: make(Loader),
		arrays:  make(map[string]*ArrayClassRecord),
	}
}

// Get returns the class record for name, or (nil, false) if it isn't
// loaded yet.
func (ma *MethodArea) Get(name string) (*ClassRecord, bool) {
	rec, ok := ma.classes[name]
	return rec, ok
}

// GetArray returns the array-class record for a JVM array descriptor (e.g.
// "[I", "[Ljava/lang/String;"), or (nil, false) if not yet created.
func (ma *MethodArea) GetArray(descriptor string) (*ArrayClassRecord, bool) {
	rec, ok := ma.arrays[descriptor]
	return rec, ok
}

// AddArray registers a freshly-allocated array-class mirror.
func (ma *MethodArea) AddArray(descriptor string, mirror heap.Reference) *ArrayClassRecord {
	rec := &ArrayClassRecord{Descriptor: descriptor, Mirror: mirror}
	ma.arrays[descriptor] = rec
	return rec
}

// AddClass computes parsed's instance and static layouts against its
// already-loaded superclass (java/lang/Object's SuperClass is "", so its
// layout is computed against an empty super layout) and inserts a new
// Loaded class record. Returns vmerrors.ClassNotFound if the superclass
// isn't registered yet; callers are expected to have ensured superclasses
// load first (spec.md §4.6).
func (ma *MethodArea) AddClass(name string, parsed *classfile.ClassFile) (*ClassRecord, error) {
	var superInstanceLayout []FieldLayoutEntry
	if parsed.SuperClass != "" {
		superRec, ok := ma.classes[parsed.SuperClass]
		if !ok {
			return nil, vmerrors.New(vmerrors.ClassNotFound, "superclass %s of %s not loaded", parsed.SuperClass, name)
		}
		superInstanceLayout = superRec.InstanceLayout
	}

	instanceLayout, err := computeInstanceLayout(superInstanceLayout, name, parsed.Fields)
	if err != nil {
		return nil, err
	}
	staticLayout, err := computeStaticLayout(name, parsed.Fields)
	if err != nil {
		return nil, err
	}

	rec := &ClassRecord{
		Name:           name,
		Parsed:         parsed,
		InstanceLayout: instanceLayout,
		StaticLayout:   staticLayout,
		State:          Loaded,
	}
	ma.classes[name] = rec
	return rec, nil
}

// PrepareLink builds rec's resolved constant pool and zero-initializes its
// static storage. It does not advance rec.State or allocate rec.Mirror:
// those belong to the lifecycle driver, which must run <clinit> against
// the (already zeroed) static storage before the Initialized flag is
// meaningful (spec.md §4.6).
func (ma *MethodArea) PrepareLink(rec *ClassRecord) {
	rec.Pool = resolver.New(rec.Parsed.RawPool)
	rec.StaticStorage = make([]uint32, layoutWidth(rec.StaticLayout))
}

// FieldOffset resolves an instance field's byte-cell offset within the
// layout of its declaring class. Per the prefix-property invariant
// (spec.md §8 invariant 1), a field's offset is identical in every
// subclass's layout, so looking it up against the declaring class's own
// record (rather than some dynamic subclass's) is always correct.
func (ma *MethodArea) FieldOffset(declaringClass, name string) (int, error) {
	rec, ok := ma.classes[declaringClass]
	if !ok {
		return 0, vmerrors.New(vmerrors.ClassNotFound, "class %s not loaded", declaringClass)
	}
	offset, _, err := fieldOffsetIn(rec.InstanceLayout, declaringClass, name)
	return offset, err
}

// StaticFieldOffset resolves a static field's offset within its declaring
// class's own static storage.
func (ma *MethodArea) StaticFieldOffset(declaringClass, name string) (int, error) {
	rec, ok := ma.classes[declaringClass]
	if !ok {
		return 0, vmerrors.New(vmerrors.ClassNotFound, "class %s not loaded", declaringClass)
	}
	offset, _, err := fieldOffsetIn(rec.StaticLayout, declaringClass, name)
	return offset, err
}

// ResolveMethod walks declaringClass's superclass chain (starting at
// declaringClass itself) for the first exact name+descriptor match,
// returning the record that declares it alongside the MethodInfo. Used by
// the interpreter's invokevirtual/invokespecial/invokestatic handling.
func (ma *MethodArea) ResolveMethod(declaringClass, name, descriptor string) (*ClassRecord, *classfile.MethodInfo, error) {
	cur := declaringClass
	for cur != "" {
		rec, ok := ma.classes[cur]
		if !ok {
			return nil, nil, vmerrors.New(vmerrors.ClassNotFound, "class %s not loaded", cur)
		}
		if m := rec.Parsed.FindMethod(name, descriptor); m != nil {
			return rec, m, nil
		}
		cur = rec.Parsed.SuperClass
	}
	return nil, nil, vmerrors.New(vmerrors.NoSuchMethod, "no method %s%s in %s or its superclasses", name, descriptor, declaringClass)
}

// IsSubclassOf reports whether class is target, a (possibly transitive)
// subclass of it, or a (possibly transitive) implementor of it when
// target names an interface. Used by checkcast/instanceof and
// exception-table matching.
func (ma *MethodArea) IsSubclassOf(class, target string) bool {
	cur := class
	for cur != "" {
		if cur == target {
			return true
		}
		rec, ok := ma.classes[cur]
		if !ok {
			return false
		}
		for _, iface := range rec.Parsed.Interfaces {
			if ma.IsSubclassOf(iface, target) {
				return true
			}
		}
		cur = rec.Parsed.SuperClass
	}
	return false
}
