package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReservesNullAtZero(t *testing.T) {
	h := New()
	require.True(t, h.IsNull(NullReference))
	obj, err := h.Load(NullReference)
	require.NoError(t, err)
	require.Empty(t, obj.Cells)
}

func TestStoreReturnsStableIndices(t *testing.T) {
	h := New()
	r1 := h.Store("Ljava/lang/Object;", []uint32{1, 2, 3})
	r2 := h.Store("[I", []uint32{4, 5})

	require.NotEqual(t, r1, r2)
	require.False(t, h.IsNull(r1))

	o1, err := h.Load(r1)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, o1.Cells)

	o2, err := h.Load(r2)
	require.NoError(t, err)
	require.Equal(t, []uint32{4, 5}, o2.Cells)
}

func TestLoadMutatesInPlace(t *testing.T) {
	h := New()
	ref := h.Store("Ljava/lang/Object;", []uint32{0})

	obj, err := h.Load(ref)
	require.NoError(t, err)
	obj.Cells[0] = 99

	reloaded, err := h.Load(ref)
	require.NoError(t, err)
	require.Equal(t, uint32(99), reloaded.Cells[0])
}

func TestLoadOutOfRange(t *testing.T) {
	h := New()
	_, err := h.Load(Reference(42))
	require.Error(t, err)
}
