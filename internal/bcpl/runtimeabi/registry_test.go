package runtimeabi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

func TestRegisterAssignsIncreasingSlots(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("WRITES", types.Unknown, types.PointerToString))
	require.NoError(t, r.Register("WRITEN", types.Unknown, types.Integer))

	a, _ := r.Lookup("WRITES")
	b, _ := r.Lookup("WRITEN")
	require.Equal(t, 0, a.SlotOffset)
	require.Equal(t, 8, b.SlotOffset)
}

func TestRegisterAfterFreezeErrors(t *testing.T) {
	r := NewRegistry()
	r.Freeze()
	err := r.Register("WRITES", types.Unknown)
	require.Error(t, err)
}

func TestDuplicateRegistrationErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("WRITES", types.Unknown))
	err := r.Register("WRITES", types.Unknown)
	require.Error(t, err)
}

func TestTableOffsetIncludesTableBase(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("WRITES", types.Unknown))
	off, ok := r.TableOffset("WRITES")
	require.True(t, ok)
	require.Equal(t, 524288, off)
}

func TestStandardRegistrySatisfiesCoreIntrinsics(t *testing.T) {
	r := Standard()
	for _, name := range []string{"WRITES", "WRITEN", "WRITEF", "SPLIT", "JOIN", "AS_INT", "AS_FLOAT", "AS_STRING", "AS_LIST"} {
		_, ok := r.Lookup(name)
		require.Truef(t, ok, "missing standard entry %q", name)
	}
	r.Freeze()
	require.True(t, r.Frozen())
}

func TestEntriesPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("B", types.Unknown))
	require.NoError(t, r.Register("A", types.Unknown))
	entries := r.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "B", entries[0].Name)
	require.Equal(t, "A", entries[1].Name)
}
