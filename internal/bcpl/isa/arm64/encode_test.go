package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMOVZEncodesRegisterAndShift(t *testing.T) {
	var s Stream
	instr := s.MOVZ("X3", 0x1234, 2)
	require.Equal(t, uint32(3), instr.Encoding&0x1F, "Rd field")
	require.Equal(t, uint32(2), (instr.Encoding>>21)&0x3, "hw field")
	require.Equal(t, uint32(0x1234), (instr.Encoding>>5)&0xFFFF, "imm16 field")
	require.Equal(t, RelocNone, instr.Reloc)
}

func TestADRPIsPendingPage21Relocation(t *testing.T) {
	var s Stream
	instr := s.ADRP("X0", "L_str_1")
	require.Equal(t, RelocPage21, instr.Reloc)
	require.Equal(t, "L_str_1", instr.Target)
}

func TestBranchIsPendingBranch26Relocation(t *testing.T) {
	var s Stream
	instr := s.B("block_5")
	require.Equal(t, RelocBranch26, instr.Reloc)
	require.Equal(t, "block_5", instr.Target)
	require.Equal(t, 4, instr.Size)
}

func TestBLUsesDistinctOpcodeFromB(t *testing.T) {
	var s Stream
	b := s.B("x")
	bl := s.BL("x")
	require.NotEqual(t, b.Encoding&0xFC000000, bl.Encoding&0xFC000000)
}

func TestBCondEncodesConditionInLowBits(t *testing.T) {
	var s Stream
	instr := s.BCond("EQ", "join")
	require.Equal(t, uint32(0), instr.Encoding&0xF)
	require.Equal(t, RelocCondBranch19, instr.Reloc)

	instr2 := s.BCond("NE", "join")
	require.Equal(t, uint32(1), instr2.Encoding&0xF)
}

func TestCSETInvertsConditionForEncoding(t *testing.T) {
	var s Stream
	instr := s.CSET("X0", "EQ")
	// CSET ... EQ encodes the inverted condition (NE) in bits 15:12.
	require.Equal(t, condCodes["NE"], (instr.Encoding>>12)&0xF)
}

func TestSTPPreIndexEncodesSP16Decrement(t *testing.T) {
	var s Stream
	instr := s.STP("X29", "X30", "SP", -2, StpPreIndex)
	rn, _ := regIndex("SP")
	require.Equal(t, rn, (instr.Encoding>>5)&0x1F)
	// imm7 field stores -2 (scaled by 8 = -16 bytes) in two's complement.
	require.Equal(t, uint32(-2)&0x7F, (instr.Encoding>>15)&0x7F)
}

func TestLabelIsZeroWidth(t *testing.T) {
	var s Stream
	s.Label("L_entry")
	require.True(t, s.Instructions[0].IsLabel)
	require.Equal(t, 0, s.Instructions[0].Size)
}

func TestDataWord64EmitsHiThenLoWithTargetTagged(t *testing.T) {
	var s Stream
	s.DataWord64("WRITES", SegData)
	require.Len(t, s.Instructions, 2)
	require.Equal(t, RelocAbsHi32, s.Instructions[0].Reloc)
	require.Equal(t, RelocAbsLo32, s.Instructions[1].Reloc)
	require.Equal(t, "WRITES", s.Instructions[0].Target)
}
