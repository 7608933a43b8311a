package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFieldPrimitives(t *testing.T) {
	cases := map[string]Kind{
		"Z": Boolean, "B": Byte, "C": Char, "S": Short,
		"I": Int, "J": Long, "F": Float, "D": Double,
	}
	for desc, kind := range cases {
		ft, err := ParseField(desc)
		require.NoError(t, err, desc)
		require.Equal(t, kind, ft.Kind, desc)
		require.Equal(t, desc, ft.Descriptor())
	}
}

func TestParseFieldClass(t *testing.T) {
	ft, err := ParseField("Ljava/lang/String;")
	require.NoError(t, err)
	require.Equal(t, ClassRef, ft.Kind)
	require.Equal(t, "java/lang/String", ft.ClassName)
	require.Equal(t, "Ljava/lang/String;", ft.Descriptor())
}

func TestParseFieldArray(t *testing.T) {
	ft, err := ParseField("[[I")
	require.NoError(t, err)
	require.Equal(t, ArrayRef, ft.Kind)
	require.Equal(t, ArrayRef, ft.Element.Kind)
	require.Equal(t, Int, ft.Element.Element.Kind)
	require.Equal(t, "[[I", ft.Descriptor())
}

func TestParseFieldErrors(t *testing.T) {
	for _, desc := range []string{"", "Q", "Ljava/lang/String", "I garbage"} {
		_, err := ParseField(desc)
		require.Error(t, err, desc)
	}
}

func TestCategory(t *testing.T) {
	longT, _ := ParseField("J")
	doubleT, _ := ParseField("D")
	intT, _ := ParseField("I")
	require.Equal(t, 2, longT.Category())
	require.Equal(t, 2, doubleT.Category())
	require.Equal(t, 1, intT.Category())
}

func TestParseMethod(t *testing.T) {
	md, err := ParseMethod("(I[Ljava/lang/String;)Ljava/lang/String;")
	require.NoError(t, err)
	require.Len(t, md.Params, 2)
	require.Equal(t, Int, md.Params[0].Kind)
	require.Equal(t, ArrayRef, md.Params[1].Kind)
	require.NotNil(t, md.Return)
	require.Equal(t, ClassRef, md.Return.Kind)
}

func TestParseMethodVoid(t *testing.T) {
	md, err := ParseMethod("([Ljava/lang/String;)V")
	require.NoError(t, err)
	require.Len(t, md.Params, 1)
	require.Nil(t, md.Return)
}

func TestParseMethodParamWidth(t *testing.T) {
	md, err := ParseMethod("(IJD)V")
	require.NoError(t, err)
	require.Equal(t, 5, md.ParamWidth()) // I=1 + J=2 + D=2
}

func TestParseMethodErrors(t *testing.T) {
	for _, desc := range []string{"I)V", "(I", "(I)", "(I)Q"} {
		_, err := ParseMethod(desc)
		require.Error(t, err, desc)
	}
}
