package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

func TestGetOffsetBeforeLayoutIsFatal(t *testing.T) {
	f := NewFrame("f", false)
	f.AddLocal("x", types.Integer)
	_, err := f.GetOffset("x")
	require.Error(t, err)
}

func TestGetOffsetAfterLayoutSucceeds(t *testing.T) {
	f := NewFrame("f", false)
	f.AddParameter("a", types.Integer)
	f.AddLocal("x", types.Integer)
	f.RunLayout()

	aOff, err := f.GetOffset("a")
	require.NoError(t, err)
	xOff, err := f.GetOffset("x")
	require.NoError(t, err)
	require.NotEqual(t, aOff, xOff)
	require.Less(t, aOff, 0)
}

func TestFrameSizeIsMultipleOf16(t *testing.T) {
	f := NewFrame("f", true)
	f.AddParameter("a", types.Integer)
	f.AddLocal("x", types.Integer)
	f.AddLocal("y", types.Float)
	f.ForceSaveRegister("X20")
	f.RunLayout()
	require.Equal(t, 0, f.FrameSize()%16)
}

func TestAcquireSpillSlotIsIdempotentPerName(t *testing.T) {
	f := NewFrame("f", false)
	f.RunLayout()
	o1 := f.AcquireSpillSlot("t", types.Integer)
	o2 := f.AcquireSpillSlot("t", types.Integer)
	require.Equal(t, o1, o2)
}

func TestMarkSpilledSatisfiesFrameSpillerInterface(t *testing.T) {
	f := NewFrame("f", false)
	f.MarkSpilled("v", types.Integer)
	f.RunLayout()
	_, err := f.GetOffset("v")
	require.NoError(t, err)
}

func TestPrologueAndEpilogueEmitBalancedFrameAdjustment(t *testing.T) {
	f := NewFrame("f", true)
	f.AddParameter("a", types.Integer)
	f.AddLocal("x", types.Integer)
	f.ForceSaveRegister("X20")
	f.ForceSaveRegister("X21")
	f.RunLayout()

	var s arm64.Stream
	f.GeneratePrologue(&s)
	f.GenerateEpilogue(&s)

	var mnemonics []string
	for _, i := range s.Instructions {
		mnemonics = append(mnemonics, i.Mnemonic)
	}
	require.Contains(t, mnemonics, "stp")
	require.Contains(t, mnemonics, "ldp")
	require.Contains(t, mnemonics, "ret")
}
