package symtab

import (
	"testing"

	"github.com/albanread/bcplc-go/internal/bcpl/types"
	"github.com/stretchr/testify/require"
)

func TestScopedLookupShadowing(t *testing.T) {
	tab := New()
	tab.Declare(&Symbol{Name: "x", Kind: KindGlobal, Type: types.Integer})

	tab.Push()
	tab.Declare(&Symbol{Name: "x", Kind: KindLocal, Type: types.Float})

	sym, ok := tab.Lookup("x")
	require.True(t, ok)
	require.Equal(t, KindLocal, sym.Kind)
	require.Equal(t, 1, sym.ScopeLevel)

	tab.Pop()
	sym, ok = tab.Lookup("x")
	require.True(t, ok)
	require.Equal(t, KindGlobal, sym.Kind)
	require.Equal(t, 0, sym.ScopeLevel)
}

func TestLookupMissing(t *testing.T) {
	tab := New()
	_, ok := tab.Lookup("nope")
	require.False(t, ok)
}

func TestIsGlobalOrStatic(t *testing.T) {
	tab := New()
	tab.Declare(&Symbol{Name: "g", Kind: KindGlobal})
	tab.Push()
	tab.Declare(&Symbol{Name: "l", Kind: KindLocal})

	require.True(t, tab.IsGlobalOrStatic("g"))
	require.False(t, tab.IsGlobalOrStatic("l"))
	require.False(t, tab.IsGlobalOrStatic("missing"))
}

func TestPopGlobalPanics(t *testing.T) {
	tab := New()
	require.Panics(t, func() { tab.Pop() })
}

func TestLocationSetters(t *testing.T) {
	s := &Symbol{Name: "v"}
	s.SetStackLocation(-16)
	require.Equal(t, LocStack, s.Location.Kind)
	require.EqualValues(t, -16, s.Location.StackOffset)

	s.SetDataLocation(4)
	require.Equal(t, LocData, s.Location.Kind)

	s.SetAbsoluteLocation(42)
	require.Equal(t, LocAbsolute, s.Location.Kind)

	s.SetLabelLocation("L_foo")
	require.Equal(t, LocLabel, s.Location.Kind)
	require.Equal(t, "L_foo", s.Location.Label)
}
