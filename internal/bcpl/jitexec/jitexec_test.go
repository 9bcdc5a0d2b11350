package jitexec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBufferSizesRegionsCorrectly(t *testing.T) {
	b, err := NewBuffer(64, 16)
	require.NoError(t, err)
	defer b.Close()

	require.Len(t, b.Code, 64)
	require.Len(t, b.Data, dataRegionSize)
}

func TestNewBufferRejectsOversizedData(t *testing.T) {
	_, err := NewBuffer(64, runtimeTableOffset+1)
	require.Error(t, err)
}

func TestWriteCodeCopiesBytesAndRejectsOverflow(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.WriteCode([]byte{1, 2, 3, 4}))
	require.Equal(t, byte(1), b.Code[0])
	require.Equal(t, byte(4), b.Code[3])

	require.Error(t, b.WriteCode(make([]byte, 100)))
}

func TestWriteCodeRejectedAfterProtect(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Protect())
	require.Error(t, b.WriteCode([]byte{1}))
}

func TestWriteDataCopiesBytesAndRejectsOverflow(t *testing.T) {
	b, err := NewBuffer(8, 16)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.WriteData([]byte{9, 9}))
	require.Equal(t, byte(9), b.Data[0])

	require.Error(t, b.WriteData(make([]byte, runtimeTableOffset+1)))
}

func TestWriteRuntimeSlotWritesLittleEndianAddress(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.WriteRuntimeSlot(0, 0x1122334455667788))
	got := b.Data[runtimeTableOffset : runtimeTableOffset+8]
	require.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, got)
}

func TestWriteRuntimeSlotRejectsOutOfRangeOffset(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.Error(t, b.WriteRuntimeSlot(-8, 0))
	require.Error(t, b.WriteRuntimeSlot(maxRuntimeSlots*runtimeSlotSize, 0))
}

func TestCodeBaseAndDataBaseAreNonZero(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NotZero(t, b.CodeBase())
	require.NotZero(t, b.DataBase())
}

func TestExecuteBeforeProtectIsRejected(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Execute("START", 0)
	require.Error(t, err)
}

func TestExecuteRecoversOutOfRangeOffsetAsError(t *testing.T) {
	b, err := NewBuffer(8, 0)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Protect())

	_, err = b.Execute("START", 1000)
	require.Error(t, err, "an out-of-range jitOffset must be reported as an error, not crash the test process")
}
