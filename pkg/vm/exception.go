package vm

import (
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// thrown wraps a live exception object reference as it propagates out of
// step, up through runFrame's exception-table search in each caller frame,
// and (if unhandled) out of Run entirely. It is distinct from vmerrors'
// host-level error taxonomy: a thrown value is guest (Java) state, not a
// host fault.
type thrown struct {
	Object heap.Reference
	Class  string
}

func (t *thrown) Error() string {
	return "uncaught exception: " + t.Class
}

// findHandler searches a method's exception table for the innermost
// handler whose [StartPC, EndPC) range covers pc and whose CatchType is
// either 0 ("catch all", used by finally blocks) or names a class that
// excClass is an instance of (spec.md §4.10). Table order matters: the
// compiler emits handlers innermost-first, so the first structural match
// is also the most specific one.
func (eng *Engine) findHandler(frame *Frame, pc int, excClass string) (int, bool) {
	for _, h := range frame.ExceptionTable {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return int(h.HandlerPC), true
		}
		catchName, err := frame.Pool.ResolveClassName(h.CatchType)
		if err != nil {
			continue
		}
		if eng.Area.IsSubclassOf(excClass, catchName) {
			return int(h.HandlerPC), true
		}
	}
	return 0, false
}

// throwNew allocates a fresh instance of className on the heap (zeroed
// fields) and returns it wrapped as a thrown value; used by the
// interpreter for VM-raised exceptions (NullPointerException,
// ArithmeticException, ArrayIndexOutOfBoundsException, ClassCastException,
// NegativeArraySizeException) where no user bytecode ever executes
// <init>.
func (eng *Engine) throwNew(className string) error {
	rec, err := eng.EnsureClass(className)
	if err != nil {
		return vmerrors.Wrap(vmerrors.Resolution, err, "allocating %s", className)
	}
	ref := eng.Heap.Store(className, make([]uint32, rec.InstanceWidth()))
	return &thrown{Object: ref, Class: className}
}
