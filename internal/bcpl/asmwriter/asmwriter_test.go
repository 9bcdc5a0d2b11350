package asmwriter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

func TestWriteEntryPointBecomesStartAliases(t *testing.T) {
	s := &arm64.Stream{}
	s.Label("START")
	s.RET()

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "_start:\n_START:\n")
	require.Contains(t, out, ".globl _start")
	require.Contains(t, out, ".globl _START")
}

func TestWriteRenamesLocalLabelsWithLPrefix(t *testing.T) {
	s := &arm64.Stream{}
	s.Label("MYFUNC_B0")
	s.RET()

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "L_MYFUNC_B0:")
}

func TestWriteDeclaresGlobalForCalledRuntimeFunction(t *testing.T) {
	s := &arm64.Stream{}
	s.BL("WRITES")
	s.RET()

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, ".globl _WRITES")
	require.Contains(t, out, "bl _WRITES")
}

func TestWriteOrdinaryBranchTargetsLocalLabel(t *testing.T) {
	s := &arm64.Stream{}
	s.B("MYFUNC_B1")
	s.Label("MYFUNC_B1")
	s.RET()

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "b L_MYFUNC_B1")
}

func TestWriteReEmitsAdrpAddAsPageAndPageOff(t *testing.T) {
	s := &arm64.Stream{}
	s.ADRP("X28", "L__data_segment_base")
	s.ADDImmReloc("X28", "X28", "L__data_segment_base")
	s.RET()

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "adrp X28, L__data_segment_base@PAGE")
	require.Contains(t, out, "add X28, X28, L__data_segment_base@PAGEOFF")
}

func TestWriteRendersStringLiteralAsQuadLengthLongsAndPadding(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("L_str_0")
	s.DataRaw64(2, arm64.SegRodata)
	s.DataWord32(uint32('h'), arm64.SegRodata)
	s.DataWord32(uint32('i'), arm64.SegRodata)
	for i := 0; i < 4; i++ {
		s.DataWord32(0, arm64.SegRodata)
	}

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "__TEXT,__const")
	require.Contains(t, out, "L_str_0:")
	require.Contains(t, out, ".quad 2")
	require.Contains(t, out, ".long 104") // 'h'
	require.Contains(t, out, ".long 105") // 'i'
	require.Equal(t, 4, strings.Count(out, ".long 0\n"))
}

func TestWriteRendersGlobalInitialValueAsSingleQuad(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("MY_GLOBAL")
	s.DataRaw64(42, arm64.SegData)

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.Contains(t, out, "__DATA,__data")
	require.Contains(t, out, "L_MY_GLOBAL:")
	require.Contains(t, out, ".quad 42")
}

func TestWriteElidesRuntimeTableDataWordPair(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("L_entry")
	s.DataWord64("L_entry", arm64.SegData)

	out, err := Write(s, runtimeabi.Standard(), "START")
	require.NoError(t, err)
	require.NotContains(t, out, "dword")
	require.NotContains(t, out, "L_entry:")
}

func TestWriteRejectsJITTaggedInstruction(t *testing.T) {
	s := &arm64.Stream{}
	inst := s.MOVZReloc("X28", "L__data_segment_base", 0)
	inst.IsJIT = true
	s.RET()

	_, err := Write(s, runtimeabi.Standard(), "START")
	require.Error(t, err)
}
