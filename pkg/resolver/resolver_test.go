package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattstark/corevm/pkg/classfile"
)

// buildPool constructs a 1-indexed raw pool from a list of entries (index 0
// is always unused).
func buildPool(entries ...classfile.RawConstant) []classfile.RawConstant {
	pool := make([]classfile.RawConstant, len(entries)+1)
	for i, e := range entries {
		pool[i+1] = e
	}
	return pool
}

func TestResolveUtf8AndClass(t *testing.T) {
	pool := buildPool(
		classfile.RawUtf8{Bytes: []byte("java/lang/Object")}, // 1
		classfile.RawClass{NameIndex: 1},                     // 2
	)
	p := New(pool)

	c, err := p.Resolve(2)
	require.NoError(t, err)
	require.Equal(t, Class{Name: "java/lang/Object"}, c)
}

func TestResolveMemoizes(t *testing.T) {
	pool := buildPool(
		classfile.RawUtf8{Bytes: []byte("Foo")},
		classfile.RawClass{NameIndex: 1},
	)
	p := New(pool)

	first, err := p.Resolve(2)
	require.NoError(t, err)
	second, err := p.Resolve(2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolveFieldRef(t *testing.T) {
	pool := buildPool(
		classfile.RawUtf8{Bytes: []byte("Foo")},        // 1: class name
		classfile.RawClass{NameIndex: 1},                // 2: class
		classfile.RawUtf8{Bytes: []byte("x")},           // 3: field name
		classfile.RawUtf8{Bytes: []byte("I")},           // 4: field descriptor
		classfile.RawNameAndType{NameIndex: 3, DescriptorIndex: 4}, // 5
		classfile.RawFieldref{ClassIndex: 2, NameAndTypeIndex: 5},  // 6
	)
	p := New(pool)

	fr, err := p.ResolveFieldRef(6)
	require.NoError(t, err)
	require.Equal(t, FieldRef{ClassName: "Foo", Name: "x", Descriptor: "I"}, fr)
}

func TestResolveInterfaceMethodRefNormalizesToMethodRef(t *testing.T) {
	pool := buildPool(
		classfile.RawUtf8{Bytes: []byte("Comparable")},
		classfile.RawClass{NameIndex: 1},
		classfile.RawUtf8{Bytes: []byte("compareTo")},
		classfile.RawUtf8{Bytes: []byte("(Ljava/lang/Object;)I")},
		classfile.RawNameAndType{NameIndex: 3, DescriptorIndex: 4},
		classfile.RawInterfaceMethodref{ClassIndex: 2, NameAndTypeIndex: 5},
	)
	p := New(pool)

	mr, err := p.ResolveMethodRef(6)
	require.NoError(t, err)
	require.Equal(t, MethodRef{ClassName: "Comparable", Name: "compareTo", Descriptor: "(Ljava/lang/Object;)I"}, mr)
}

func TestResolveOutOfRange(t *testing.T) {
	pool := buildPool(classfile.RawInteger{Value: 1})
	p := New(pool)

	_, err := p.Resolve(0)
	require.Error(t, err)
	_, err = p.Resolve(5)
	require.Error(t, err)
}

func TestResolveWrongKind(t *testing.T) {
	pool := buildPool(classfile.RawInteger{Value: 42})
	p := New(pool)

	_, err := p.ResolveFieldRef(1)
	require.Error(t, err)
}

func TestResolveMethodHandle(t *testing.T) {
	pool := buildPool(
		classfile.RawUtf8{Bytes: []byte("Foo")},
		classfile.RawClass{NameIndex: 1},
		classfile.RawUtf8{Bytes: []byte("bar")},
		classfile.RawUtf8{Bytes: []byte("()V")},
		classfile.RawNameAndType{NameIndex: 3, DescriptorIndex: 4},
		classfile.RawMethodref{ClassIndex: 2, NameAndTypeIndex: 5},
		classfile.RawMethodHandle{ReferenceKind: 6, ReferenceIndex: 6},
	)
	p := New(pool)

	c, err := p.Resolve(7)
	require.NoError(t, err)
	mh, ok := c.(MethodHandle)
	require.True(t, ok)
	require.Equal(t, uint8(6), mh.ReferenceKind)
	require.Equal(t, MethodRef{ClassName: "Foo", Name: "bar", Descriptor: "()V"}, mh.Referenced)
}
