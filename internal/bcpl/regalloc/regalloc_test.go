package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/liveness"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

type fakeFrame struct {
	spilled []string
}

func (f *fakeFrame) MarkSpilled(name string, t types.VarType) {
	f.spilled = append(f.spilled, name)
}

func TestManagerAcquireScratchExhaustsPool(t *testing.T) {
	m := NewManager(nil)
	m.ResetForFunction(true)

	acquired := make([]ScratchHandle, 0, len(gpScratchNames))
	for range gpScratchNames {
		h, err := m.AcquireScratchReg(GP)
		require.NoError(t, err)
		acquired = append(acquired, h)
	}
	_, err := m.AcquireScratchReg(GP)
	require.Error(t, err)

	m.ReleaseScratch(acquired[0])
	_, err = m.AcquireScratchReg(GP)
	require.NoError(t, err)
}

func TestManagerStandardPoolReservesDataAndTableBase(t *testing.T) {
	m := NewManager(nil)
	m.ResetForFunction(true)
	require.Len(t, m.gpVariable, len(gpVariableStandard))
	for _, r := range m.gpVariable {
		require.NotEqual(t, "X19", r.Name)
		require.NotEqual(t, "X28", r.Name)
	}
}

func TestManagerExtendedPoolReclaimsX19AndX28(t *testing.T) {
	m := NewManager(nil)
	m.ResetForFunction(false)
	names := make(map[string]bool)
	for _, r := range m.gpVariable {
		names[r.Name] = true
	}
	require.True(t, names["X19"])
	require.True(t, names["X28"])
}

func TestManagerEvictsLRUAndSpillsThroughFrame(t *testing.T) {
	frame := &fakeFrame{}
	m := NewManager(frame)
	m.ResetForFunction(true)

	var last VariableHandle
	for i := 0; i < len(gpVariableStandard); i++ {
		last = m.AcquireVariableReg(GP, string(rune('a'+i)), types.Integer)
	}
	_ = last
	// Pool now full; next acquire must evict the least-recently-used
	// binding (the first one allocated) and spill it through frame.
	m.AcquireVariableReg(GP, "overflow", types.Integer)
	require.Contains(t, frame.spilled, "a")
}

func TestLinearScanAssignsDisjointIntervalsSameRegister(t *testing.T) {
	intervals := []liveness.LiveInterval{
		{Name: "x", Start: 0, End: 2, Type: types.Integer},
		{Name: "y", Start: 3, End: 5, Type: types.Integer},
	}
	decisions := Allocate(intervals, true, nil, nil, nil)
	require.Equal(t, decisions["x"].Register, decisions["y"].Register)
	require.False(t, decisions["x"].Spilled)
	require.False(t, decisions["y"].Spilled)
}

func TestLinearScanSpillsWhenPoolExhausted(t *testing.T) {
	// Build more overlapping GP intervals than the standard pool (8
	// registers) can hold, all live across the whole range.
	intervals := make([]liveness.LiveInterval, 0, 10)
	for i := 0; i < 10; i++ {
		intervals = append(intervals, liveness.LiveInterval{
			Name: string(rune('a' + i)), Start: 0, End: 100, Type: types.Integer,
		})
	}
	frame := &fakeFrame{}
	decisions := Allocate(intervals, false, nil, nil, frame)

	spilledCount := 0
	for _, d := range decisions {
		if d.Spilled {
			spilledCount++
		}
	}
	require.Greater(t, spilledCount, 0)
}

func TestLinearScanHonorsPrimedParameters(t *testing.T) {
	intervals := []liveness.LiveInterval{
		{Name: "p0", Start: 0, End: 10, Type: types.Integer},
	}
	primed := map[string]string{"p0": "X0"}
	decisions := Allocate(intervals, true, primed, nil, nil)
	require.Equal(t, "X0", decisions["p0"].Register)
}

func TestLinearScanHonorsPreSpilledParameters(t *testing.T) {
	intervals := []liveness.LiveInterval{
		{Name: "p9", Start: 0, End: 10, Type: types.Integer},
	}
	preSpilled := map[string]bool{"p9": true}
	decisions := Allocate(intervals, true, nil, preSpilled, nil)
	require.True(t, decisions["p9"].Spilled)
}

func TestFPIntervalsGoToFPPool(t *testing.T) {
	intervals := []liveness.LiveInterval{
		{Name: "f", Start: 0, End: 1, Type: types.Float},
	}
	decisions := Allocate(intervals, true, nil, nil, nil)
	require.Equal(t, "D8", decisions["f"].Register)
}
