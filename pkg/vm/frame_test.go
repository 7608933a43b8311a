package vm

import (
	"testing"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/heap"
	"github.com/stretchr/testify/require"
)

func newTestFrame(maxLocals, maxStack uint16) *Frame {
	code := &classfile.CodeAttribute{Code: []byte{0x00, 0x01, 0x02, 0x03, 0x04}}
	return NewFrame(maxLocals, maxStack, code, nil, "Test", "test", "()V")
}

func TestFrameCategory1PushPop(t *testing.T) {
	f := newTestFrame(0, 4)
	f.PushInt(-7)
	f.PushFloat(3.5)
	f.PushRef(heap.Reference(42))

	require.Equal(t, heap.Reference(42), f.PopRef())
	require.Equal(t, float32(3.5), f.PopFloat())
	require.Equal(t, int32(-7), f.PopInt())
}

func TestFrameCategory2PushPopRoundTrip(t *testing.T) {
	f := newTestFrame(0, 4)
	f.PushLong(-123456789012345)
	require.Equal(t, int64(-123456789012345), f.PopLong())

	f.PushDouble(2.718281828)
	require.Equal(t, 2.718281828, f.PopDouble())
}

func TestFrameCategory1PopRemovesMostRecentHalfOfCategory2(t *testing.T) {
	// Pushing a long then popping with a category-1 pop must remove the
	// most-recently-pushed cell (the low word), not the high word.
	f := newTestFrame(0, 4)
	f.PushLong(1)
	low := f.PopRaw()
	high := f.PopRaw()
	require.Equal(t, uint32(1), low)
	require.Equal(t, uint32(0), high)
}

func TestFrameDupAndPeek(t *testing.T) {
	f := newTestFrame(0, 4)
	f.PushInt(9)
	require.Equal(t, uint32(9), f.Peek())
	f.Dup()
	require.Equal(t, int32(9), f.PopInt())
	require.Equal(t, int32(9), f.PopInt())
}

func TestFrameLocalsCategory1And2(t *testing.T) {
	f := newTestFrame(4, 0)
	f.SetLocalRaw(0, 100)
	require.Equal(t, uint32(100), f.GetLocalRaw(0))

	f.SetLocalLong(1, -99)
	require.Equal(t, int64(-99), f.GetLocalLong(1))

	f.SetLocalDouble(1, 1.5)
	require.Equal(t, 1.5, f.GetLocalDouble(1))
}

func TestFrameLocalOutOfRangePanics(t *testing.T) {
	f := newTestFrame(2, 0)
	require.Panics(t, func() { f.GetLocalRaw(5) })
}

func TestFrameStackOverflowPanics(t *testing.T) {
	f := newTestFrame(0, 1)
	f.PushInt(1)
	require.Panics(t, func() { f.PushInt(2) })
}

func TestFrameCodeReaders(t *testing.T) {
	f := newTestFrame(0, 0)
	require.Equal(t, uint8(0x00), f.ReadU8())
	require.Equal(t, uint16(0x0102), f.ReadU16())
	require.Equal(t, int8(0x03), f.ReadI8())
	require.Equal(t, int(4), f.PC)
}
