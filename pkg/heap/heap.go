// Package heap implements an append-only, index-addressed object store.
// Grounded on original_source's Heap/HeapItem (Vec<HeapItem>, store appends
// and returns the index). There is no GC in this core: references are
// stable for the life of the VM.
package heap

import "github.com/mattstark/corevm/pkg/vmerrors"

// Reference is an index into the heap. NullReference (0) is a permanently
// reserved, distinguished empty sentinel object representing Java `null`.
type Reference uint32

const NullReference Reference = 0

// Object is a heap-allocated value: a class instance or an array. Cells are
// indexed by the owning class's instance-field-layout for instances, or
// hold element values (two cells per category-2 element) for arrays.
type Object struct {
	TypeDescriptor string
	Cells          []uint32
}

// Heap is the process-wide object arena.
type Heap struct {
	objects []Object
}

// New returns a Heap with index 0 pre-allocated as the null sentinel.
func New() *Heap {
	return &Heap{objects: []Object{{}}}
}

// Store appends a new object and returns its stable reference.
func (h *Heap) Store(typeDescriptor string, cells []uint32) Reference {
	h.objects = append(h.objects, Object{TypeDescriptor: typeDescriptor, Cells: cells})
	return Reference(len(h.objects) - 1)
}

// Load returns a mutable pointer to the object at ref. Mutating through the
// returned pointer mutates the heap directly (there is no separate
// load/load_mut split in Go: a slice element's address is always mutable).
func (h *Heap) Load(ref Reference) (*Object, error) {
	if int(ref) >= len(h.objects) {
		return nil, vmerrors.New(vmerrors.Resolution, "heap reference %d out of range", ref)
	}
	return &h.objects[ref], nil
}

// IsNull reports whether ref is the null sentinel.
func (h *Heap) IsNull(ref Reference) bool { return ref == NullReference }
