// Package vm drives the class lifecycle (load/link/initialize), owns the
// heap and method area for one running program, and interprets bytecode
// frame by frame. Grounded on daimatz-gojvm's vm.go (the VM struct, its
// frame-depth guard, and its executeMethod/executeInstruction split) with
// the JObject/map-of-Values model replaced throughout by
// pkg/heap+pkg/methodarea's cell-based model.
package vm

import (
	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/mattstark/corevm/pkg/vmerrors"
	log "github.com/sirupsen/logrus"
)

// maxFrameDepth bounds recursive invoke chains; exceeding it raises a
// StackOverflowError-flavored host error rather than exhausting the Go
// stack.
const maxFrameDepth = 1024

// Engine is the single running instance tying the method area, heap, and
// class loader together. One Engine corresponds to one spec.md "run"
// invocation.
type Engine struct {
	Loader methodarea.ClassLoader
	Area   *methodarea.MethodArea
	Heap   *heap.Heap

	depth int
}

// HeapRef and AreaRef satisfy pkg/natives' Host interface without
// creating an import cycle (natives must not import vm).
func (eng *Engine) HeapRef() *heap.Heap                { return eng.Heap }
func (eng *Engine) AreaRef() *methodarea.MethodArea    { return eng.Area }

// NewEngine wires a class loader to a fresh method area and heap.
func NewEngine(loader methodarea.ClassLoader) *Engine {
	return &Engine{
		Loader: loader,
		Area:   methodarea.New(),
		Heap:   heap.New(),
	}
}

// EnsureClass drives name through Loaded -> Linked -> Initialized
// (spec.md §4.6), returning the now-Initialized record. Idempotent: a
// class already past a stage is not redone. A class's mirror is allocated
// when the class is initialized, as a heap object whose type descriptor is
// the class's own name and whose cells follow the class's own instance
// layout. The mirror is not an instance of java/lang/Class, and
// java/lang/Class gets no special treatment in this sequence; the natives
// that take a mirror (Class.initClassName, Unsafe.objectFieldOffset1) read
// the class name from the mirror's type descriptor.
func (eng *Engine) EnsureClass(name string) (*methodarea.ClassRecord, error) {
	if rec, ok := eng.Area.Get(name); ok && rec.State == methodarea.Initialized {
		return rec, nil
	}

	rec, err := eng.load(name)
	if err != nil {
		return nil, err
	}

	if rec.State == methodarea.Loaded {
		if err := eng.link(rec); err != nil {
			return nil, err
		}
	}

	if rec.State == methodarea.Linked {
		if err := eng.initialize(rec); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

func (eng *Engine) load(name string) (*methodarea.ClassRecord, error) {
	if rec, ok := eng.Area.Get(name); ok {
		return rec, nil
	}

	if name != "" && name != "java/lang/Object" {
		super := superOf(name)
		if super != "" {
			if _, err := eng.load(super); err != nil {
				return nil, err
			}
		}
	}

	parsed, err := eng.parseClass(name)
	if err != nil {
		return nil, err
	}
	if parsed.SuperClass != "" {
		if _, err := eng.load(parsed.SuperClass); err != nil {
			return nil, err
		}
	}
	for _, iface := range parsed.Interfaces {
		if _, err := eng.load(iface); err != nil {
			return nil, err
		}
	}

	return eng.Area.AddClass(name, parsed)
}

// superOf peeks at a bootstrap class's declared superclass without fully
// loading it, so load's eager-superclass-load recursion has a name to
// recurse on before the class itself has been parsed. User classpath
// classes don't need this: their superclass is read directly off the
// parsed class file in load.
func superOf(name string) string {
	if cf, ok := methodarea.BootstrapClassFile(name); ok {
		return cf.SuperClass
	}
	return ""
}

// parseClass loads from the classpath first; a classpath miss falls back
// to the synthetic bootstrap catalog (spec.md §4.9's closed native set
// lives on these classes), per DESIGN.md's "Dropped teacher dependencies".
func (eng *Engine) parseClass(name string) (*classfile.ClassFile, error) {
	cf, err := eng.Loader.Load(name)
	if err == nil {
		return cf, nil
	}
	if bootCf, ok := methodarea.BootstrapClassFile(name); ok {
		return bootCf, nil
	}
	return nil, err
}

func (eng *Engine) link(rec *methodarea.ClassRecord) error {
	eng.Area.PrepareLink(rec)
	rec.State = methodarea.Linked
	log.WithField("class", rec.Name).Debug("class linked")
	return nil
}

func (eng *Engine) initialize(rec *methodarea.ClassRecord) error {
	if rec.Name != "java/lang/Object" && rec.Parsed.SuperClass != "" {
		superRec, err := eng.EnsureClass(rec.Parsed.SuperClass)
		if err != nil {
			return err
		}
		if superRec.State != methodarea.Initialized {
			return vmerrors.New(vmerrors.Resolution, "superclass %s of %s failed to initialize", rec.Parsed.SuperClass, rec.Name)
		}
	}

	rec.Mirror = eng.Heap.Store(rec.Name, make([]uint32, rec.InstanceWidth()))
	rec.State = methodarea.Initialized

	if rec.Name == "java/lang/System" {
		if err := eng.wireSystemOut(rec); err != nil {
			return err
		}
	}

	clinit := rec.Parsed.FindMethod("<clinit>", "()V")
	if clinit == nil || clinit.Code == nil {
		return nil
	}
	_, err := eng.invokeMethod(rec, clinit, nil)
	if err != nil {
		log.WithField("class", rec.Name).WithError(err).Error("<clinit> failed")
		return err
	}
	return nil
}

// wireSystemOut allocates a java/io/PrintStream instance and stores it into
// System.out's static slot, so getstatic System.out followed by an
// invokevirtual println/print dispatches through the native PrintStream
// catalog instead of reading a perpetually-null reference.
func (eng *Engine) wireSystemOut(systemRec *methodarea.ClassRecord) error {
	psRec, err := eng.EnsureClass("java/io/PrintStream")
	if err != nil {
		return err
	}
	offset, err := systemRec.OwnStaticOffset("out")
	if err != nil {
		return err
	}
	psRef := eng.Heap.Store("java/io/PrintStream", make([]uint32, psRec.InstanceWidth()))
	systemRec.StaticStorage[offset] = uint32(psRef)
	return nil
}

// EnsureArray returns (creating if necessary) the array-class record for
// a JVM array descriptor.
func (eng *Engine) EnsureArray(descriptor string) (*methodarea.ArrayClassRecord, error) {
	if rec, ok := eng.Area.GetArray(descriptor); ok {
		return rec, nil
	}
	mirror := eng.Heap.Store(descriptor, nil)
	return eng.Area.AddArray(descriptor, mirror), nil
}

// Run loads mainClass, resolves its public static void main(String[])
// method, and interprets it to completion.
func (eng *Engine) Run(mainClass string) error {
	rec, err := eng.EnsureClass(mainClass)
	if err != nil {
		return err
	}
	method := rec.Parsed.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return vmerrors.New(vmerrors.NoSuchMethod, "no main([Ljava/lang/String;)V in %s", mainClass)
	}

	argsArrayRef := heap.NullReference
	_, err = eng.invokeMethod(rec, method, []uint32{uint32(argsArrayRef)})
	return err
}
