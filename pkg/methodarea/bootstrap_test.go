package methodarea

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapClassFileObject(t *testing.T) {
	cf, ok := BootstrapClassFile("java/lang/Object")
	require.True(t, ok)
	require.Equal(t, "java/lang/Object", cf.ThisClass)
	require.Equal(t, "", cf.SuperClass)

	m := cf.FindMethod("hashCode", "()I")
	require.NotNil(t, m)
	require.True(t, m.IsNative())
	require.False(t, m.IsStatic())
}

func TestBootstrapClassFileString(t *testing.T) {
	cf, ok := BootstrapClassFile("java/lang/String")
	require.True(t, ok)
	require.Equal(t, "java/lang/Object", cf.SuperClass)

	f := cf.FindField("value")
	require.NotNil(t, f)
	require.Equal(t, "[B", f.Descriptor)

	m := cf.FindMethod("length", "()I")
	require.NotNil(t, m)
	require.True(t, m.IsNative())
}

func TestBootstrapClassFileUnknown(t *testing.T) {
	_, ok := BootstrapClassFile("com/example/NotBootstrap")
	require.False(t, ok)
	require.False(t, IsBootstrapClass("com/example/NotBootstrap"))
}

func TestBootstrapExceptionHierarchy(t *testing.T) {
	cases := []struct{ name, super string }{
		{"java/lang/Exception", "java/lang/Throwable"},
		{"java/lang/RuntimeException", "java/lang/Exception"},
		{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
		{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
	}
	for _, c := range cases {
		cf, ok := BootstrapClassFile(c.name)
		require.True(t, ok, c.name)
		require.Equal(t, c.super, cf.SuperClass, c.name)
	}
}
