package link

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

func TestEmitPlacesCodeAndDataAtTheirOwnOffsets(t *testing.T) {
	s := &arm64.Stream{}
	s.Label("START")
	s.RET()
	s.Label("L_float_0")
	s.DataRaw64(0x1122334455667788, arm64.SegRodata)
	s.Label("MY_GLOBAL")
	s.DataRaw64(42, arm64.SegData)

	lk := New(runtimeabi.Standard())
	layout, err := lk.Link(s, 0, 0x800000)
	require.NoError(t, err)

	code, data := lk.Emit(s, layout)

	require.Equal(t, uint32(0xD65F03C0), binary.LittleEndian.Uint32(code[0:4]))
	require.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[0:8]))

	addr, ok := AddressOf(s, "START")
	require.True(t, ok)
	require.Equal(t, layout.CodeBase, addr)
}

func TestAddressOfMissingLabelIsNotFound(t *testing.T) {
	s := &arm64.Stream{}
	s.RET()

	_, ok := AddressOf(s, "NOWHERE")
	require.False(t, ok)
}
