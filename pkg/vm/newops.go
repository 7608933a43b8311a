package vm

// execNew resolves the class named by the constant-pool index and
// allocates a zeroed instance on the heap, pushing its reference. It does
// not invoke <init>: that happens via a subsequent invokespecial, exactly
// as the bytecode compiler emits it.
func (eng *Engine) execNew(frame *Frame) error {
	index := frame.ReadU16()
	className, err := frame.Pool.ResolveClassName(index)
	if err != nil {
		return err
	}
	rec, err := eng.EnsureClass(className)
	if err != nil {
		return err
	}
	ref := eng.Heap.Store(className, make([]uint32, rec.InstanceWidth()))
	frame.PushRef(ref)
	return nil
}

// execAthrow pops the exception reference and turns it into a *thrown
// value for runFrame's exception-table search.
func (eng *Engine) execAthrow(frame *Frame) error {
	ref := frame.PopRef()
	if eng.Heap.IsNull(ref) {
		return eng.throwNew("java/lang/NullPointerException")
	}
	obj, err := eng.Heap.Load(ref)
	if err != nil {
		return err
	}
	return &thrown{Object: ref, Class: obj.TypeDescriptor}
}
