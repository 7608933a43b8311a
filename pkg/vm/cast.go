package vm

// execCheckcast pops a reference, verifies it is null or an instance of
// the named class/array type, and pushes it back unchanged (JVM
// Specification §checkcast); a failing check raises ClassCastException.
func (eng *Engine) execCheckcast(frame *Frame) error {
	index := frame.ReadU16()
	className, err := frame.Pool.ResolveClassName(index)
	if err != nil {
		return err
	}
	ref := frame.PopRef()
	if !eng.Heap.IsNull(ref) {
		obj, err := eng.Heap.Load(ref)
		if err != nil {
			return err
		}
		if !eng.isInstanceOf(obj.TypeDescriptor, className) {
			return eng.throwNew("java/lang/ClassCastException")
		}
	}
	frame.PushRef(ref)
	return nil
}

// execInstanceof pops a reference and pushes 1 if it is a non-null
// instance of the named type, 0 otherwise.
func (eng *Engine) execInstanceof(frame *Frame) error {
	index := frame.ReadU16()
	className, err := frame.Pool.ResolveClassName(index)
	if err != nil {
		return err
	}
	ref := frame.PopRef()
	if eng.Heap.IsNull(ref) {
		frame.PushInt(0)
		return nil
	}
	obj, err := eng.Heap.Load(ref)
	if err != nil {
		return err
	}
	if eng.isInstanceOf(obj.TypeDescriptor, className) {
		frame.PushInt(1)
	} else {
		frame.PushInt(0)
	}
	return nil
}

// isInstanceOf handles both class-type and array-type targets. Array
// covariance (an Object[] target is satisfied by any reference-array
// instance; a matching element descriptor is satisfied by that array
// type or a narrower one) is resolved structurally on the descriptor
// strings rather than via the superclass walk used for class types.
func (eng *Engine) isInstanceOf(actual, target string) bool {
	if len(target) > 0 && target[0] == '[' {
		if len(actual) < 2 || actual[0] != '[' || len(target) < 2 {
			return false
		}
		ae, te := actual[1:], target[1:]
		switch {
		case ae == te:
			return true
		case ae[0] == '[' && te == "Ljava/lang/Object;":
			return true
		case ae[0] == 'L' && te[0] == 'L':
			return eng.Area.IsSubclassOf(ae[1:len(ae)-1], te[1:len(te)-1])
		case ae[0] == '[' && te[0] == '[':
			return eng.isInstanceOf(ae, te)
		}
		return false
	}
	if len(actual) > 0 && actual[0] == '[' {
		return false
	}
	return eng.Area.IsSubclassOf(actual, target)
}
