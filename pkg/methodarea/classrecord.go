// Package methodarea implements the class registry: a name-keyed table of
// loaded class records carrying the parsed class, computed field layouts,
// static storage, mirror handle, and lifecycle state. Grounded on
// original_source's MethodArea/MethodAreaClassSpecificData (name-keyed map,
// a resolved-pool back-reference per class) and on daimatz-gojvm's
// ClassLoader shape for the directory-based loader below.
package methodarea

import (
	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/resolver"
)

// State is a class record's lifecycle stage (spec.md §3, §4.6).
type State int

const (
	Loaded State = iota
	Linked
	Initialized
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "Loaded"
	case Linked:
		return "Linked"
	case Initialized:
		return "Initialized"
	default:
		return "Unknown"
	}
}

// ClassRecord is a loaded class's entry in the method area.
type ClassRecord struct {
	Name           string
	Parsed         *classfile.ClassFile
	Pool           *resolver.Pool
	InstanceLayout []FieldLayoutEntry
	StaticLayout   []FieldLayoutEntry
	StaticStorage  []uint32
	Mirror         heap.Reference
	State          State
}

// ArrayClassRecord is the method area's entry for an array type: just a
// descriptor and a mirror handle (spec.md §3).
type ArrayClassRecord struct {
	Descriptor string
	Mirror     heap.Reference
}
