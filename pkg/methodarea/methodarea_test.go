package methodarea

import (
	"testing"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/stretchr/testify/require"
)

func mustAddBootstrapObject(t *testing.T, ma *MethodArea) {
	t.Helper()
	cf, ok := BootstrapClassFile("java/lang/Object")
	require.True(t, ok)
	_, err := ma.AddClass("java/lang/Object", cf)
	require.NoError(t, err)
}

func TestAddClassRequiresLoadedSuperclass(t *testing.T) {
	ma := New()
	cf := &classfile.ClassFile{ThisClass: "Sub", SuperClass: "java/lang/Object"}
	_, err := ma.AddClass("Sub", cf)
	require.Error(t, err)
}

func TestAddClassComputesPrefixLayout(t *testing.T) {
	ma := New()
	mustAddBootstrapObject(t, ma)

	base := &classfile.ClassFile{
		ThisClass:  "Base",
		SuperClass: "java/lang/Object",
		Fields: []classfile.FieldInfo{
			{Name: "x", Descriptor: "I"},
		},
	}
	_, err := ma.AddClass("Base", base)
	require.NoError(t, err)

	sub := &classfile.ClassFile{
		ThisClass:  "Sub",
		SuperClass: "Base",
		Fields: []classfile.FieldInfo{
			{Name: "y", Descriptor: "J"},
		},
	}
	rec, err := ma.AddClass("Sub", sub)
	require.NoError(t, err)
	require.Len(t, rec.InstanceLayout, 2)
	require.Equal(t, "Base", rec.InstanceLayout[0].DeclaringClass)
	require.Equal(t, "x", rec.InstanceLayout[0].Name)
	require.Equal(t, "Sub", rec.InstanceLayout[1].DeclaringClass)
	require.Equal(t, "y", rec.InstanceLayout[1].Name)

	offset, err := ma.FieldOffset("Sub", "y")
	require.NoError(t, err)
	require.Equal(t, 1, offset)

	offset, err = ma.FieldOffset("Base", "x")
	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestPrepareLinkZeroesStaticStorage(t *testing.T) {
	ma := New()
	mustAddBootstrapObject(t, ma)

	cf := &classfile.ClassFile{
		ThisClass:  "WithStatics",
		SuperClass: "java/lang/Object",
		Fields: []classfile.FieldInfo{
			{Name: "counter", Descriptor: "I", AccessFlags: classfile.AccStatic},
		},
	}
	rec, err := ma.AddClass("WithStatics", cf)
	require.NoError(t, err)

	ma.PrepareLink(rec)
	require.NotNil(t, rec.Pool)
	require.Equal(t, []uint32{0}, rec.StaticStorage)

	offset, err := ma.StaticFieldOffset("WithStatics", "counter")
	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestResolveMethodWalksSuperclassChain(t *testing.T) {
	ma := New()
	mustAddBootstrapObject(t, ma)

	base := &classfile.ClassFile{
		ThisClass:  "Base",
		SuperClass: "java/lang/Object",
		Methods: []classfile.MethodInfo{
			{Name: "greet", Descriptor: "()V"},
		},
	}
	_, err := ma.AddClass("Base", base)
	require.NoError(t, err)

	sub := &classfile.ClassFile{ThisClass: "Sub", SuperClass: "Base"}
	_, err = ma.AddClass("Sub", sub)
	require.NoError(t, err)

	rec, m, err := ma.ResolveMethod("Sub", "greet", "()V")
	require.NoError(t, err)
	require.Equal(t, "Base", rec.Name)
	require.Equal(t, "greet", m.Name)

	_, _, err = ma.ResolveMethod("Sub", "missing", "()V")
	require.Error(t, err)
}

func TestIsSubclassOf(t *testing.T) {
	ma := New()
	mustAddBootstrapObject(t, ma)

	base := &classfile.ClassFile{ThisClass: "Base", SuperClass: "java/lang/Object"}
	_, err := ma.AddClass("Base", base)
	require.NoError(t, err)

	sub := &classfile.ClassFile{ThisClass: "Sub", SuperClass: "Base"}
	_, err = ma.AddClass("Sub", sub)
	require.NoError(t, err)

	require.True(t, ma.IsSubclassOf("Sub", "Base"))
	require.True(t, ma.IsSubclassOf("Sub", "java/lang/Object"))
	require.True(t, ma.IsSubclassOf("Sub", "Sub"))
	require.False(t, ma.IsSubclassOf("Base", "Sub"))
	require.False(t, ma.IsSubclassOf("Sub", "Unrelated"))
}

func TestArrayClassRegistration(t *testing.T) {
	ma := New()
	_, ok := ma.GetArray("[I")
	require.False(t, ok)

	ma.AddArray("[I", 7)
	rec, ok := ma.GetArray("[I")
	require.True(t, ok)
	require.Equal(t, "[I", rec.Descriptor)
}
