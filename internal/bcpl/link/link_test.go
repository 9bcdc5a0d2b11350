package link

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

func TestLinkResolvesForwardBranch(t *testing.T) {
	s := &arm64.Stream{}
	s.B("target")
	s.NOP()
	s.Label("target")
	s.RET()

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0x1000, 0x800000)
	require.NoError(t, err)

	b := s.Instructions[0]
	require.Equal(t, arm64.RelocBranch26, b.Reloc)
	// target is 8 bytes after the branch (one NOP in between).
	want := uint32(8>>2) & 0x3FFFFFF
	require.Equal(t, uint32(0x14000000)|want, b.Encoding)
}

func TestLinkResolvesBackwardBranch(t *testing.T) {
	s := &arm64.Stream{}
	s.Label("top")
	s.NOP()
	s.B("top")

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0x1000, 0x800000)
	require.NoError(t, err)

	br := s.Instructions[len(s.Instructions)-1]
	delta := int64(-4)
	want := uint32(delta>>2) & 0x3FFFFFF
	require.Equal(t, uint32(0x14000000)|want, br.Encoding)
}

func TestLinkUndefinedLabelIsFatal(t *testing.T) {
	s := &arm64.Stream{}
	s.B("nowhere")
	s.RET()

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0x1000, 0x800000)
	require.Error(t, err)
}

func TestLinkOutOfRangeBranchIsFatal(t *testing.T) {
	lk := New(runtimeabi.Standard())
	far := &arm64.Instruction{Reloc: arm64.RelocBranch26, Address: 0}
	err := lk.patchOne(far, uint64(branchRange)+8)
	require.Error(t, err)
}

func TestLinkStaticModeLeavesExternalRuntimeCallUnpatched(t *testing.T) {
	s := &arm64.Stream{}
	s.BL("WRITES")
	s.RET()

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0x1000, 0x800000)
	require.NoError(t, err, "a direct BL to a registered runtime function is deferred to the system linker, not an error")

	require.Equal(t, uint32(0x94000000), s.Instructions[0].Encoding, "unpatched: the low 26 bits stay zero for the external linker to fill in")
}

func TestLinkRodataStartsOnPageAfterCodeWithGap(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("L_float_0")
	s.DataRaw64(0, arm64.SegRodata)

	lk := New(runtimeabi.Standard())
	layout, err := lk.Link(s, 0, 0x800000)
	require.NoError(t, err)

	require.Equal(t, uint64(0), layout.CodeBase)
	require.Equal(t, 4, layout.CodeSize)
	require.Equal(t, uint64(20*1024), layout.RodataBase) // (0+4+16KiB) rounded up to 4KiB
	require.Zero(t, layout.RodataBase%4096)
}

func TestLinkPatchesDataSegmentBaseADRPAdd(t *testing.T) {
	s := &arm64.Stream{}
	s.ADRP("X28", "L__data_segment_base")
	s.ADDImmReloc("X28", "X28", "L__data_segment_base")
	s.RET()

	lk := New(runtimeabi.Standard())
	dataBase := uint64(0x100000000)
	_, err := lk.Link(s, 0x1000, dataBase)
	require.NoError(t, err)

	add := s.Instructions[1]
	require.NotZero(t, add.Encoding&(0xFFF<<10), "ADD's low-12 immediate should be patched from the data base")
}

func TestLinkPatchesMovWideAddressLoad(t *testing.T) {
	s := &arm64.Stream{}
	s.MOVZReloc("X28", "L__data_segment_base", 0)
	s.MOVKReloc("X28", "L__data_segment_base", 1)
	s.MOVKReloc("X28", "L__data_segment_base", 2)
	s.MOVKReloc("X28", "L__data_segment_base", 3)
	s.RET()

	lk := New(runtimeabi.Standard())
	dataBase := uint64(0x0000_1234_5678_9abc)
	_, err := lk.Link(s, 0x1000, dataBase)
	require.NoError(t, err)

	for hw := 0; hw < 4; hw++ {
		want := uint32((dataBase >> (16 * hw)) & 0xFFFF)
		got := (s.Instructions[hw].Encoding >> 5) & 0xFFFF
		require.Equal(t, want, got, "slice %d", hw)
	}
}

func TestLinkPatchesAbsoluteDataWordPair(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("L_entry")
	s.DataWord64("L_entry", arm64.SegData)

	lk := New(runtimeabi.Standard())
	layout, err := lk.Link(s, 0x1000, 0x800000)
	require.NoError(t, err)

	hi, lo := s.Instructions[1], s.Instructions[2]
	require.Equal(t, uint32(layout.DataBase>>32), hi.Encoding)
	require.Equal(t, uint32(layout.DataBase&0xFFFFFFFF), lo.Encoding)
}

func TestLinkDuplicateLabelIsFatal(t *testing.T) {
	s := &arm64.Stream{}
	s.Label("dup")
	s.RET()
	s.Label("dup")
	s.RET()

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0, 0)
	require.Error(t, err)
}

func TestLinkTrailingLabelWithNoFollowingInstructionIsFatal(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()
	s.Label("trailing")

	lk := New(runtimeabi.Standard())
	_, err := lk.Link(s, 0, 0)
	require.Error(t, err)
}

func TestLinkUnregisteredRuntimeSymbolStaysFatal(t *testing.T) {
	s := &arm64.Stream{}
	s.BL("NOT_A_RUNTIME_FUNCTION")
	s.RET()

	rt := runtimeabi.NewRegistry()
	lk := New(rt)
	_, err := lk.Link(s, 0, 0)
	require.Error(t, err)
}
