package link

import (
	"encoding/binary"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
)

// Emit serializes s's patched code+rodata and data segments into two
// flat byte buffers, indexed by each instruction's own Address relative
// to layout's segment bases. Code and rodata share one buffer (spec.md
// §4.10: they are laid out contiguously, separated only by
// interSegmentGap); data is a separate buffer, matching jitexec's two
// mmap regions and the external assembler's two output sections. Must
// be called only after Link has patched every relocation.
func (lk *Linker) Emit(s *arm64.Stream, layout Layout) (codeAndRodata, data []byte) {
	codeAndRodata = make([]byte, int(layout.RodataBase-layout.CodeBase)+layout.RodataSize)
	data = make([]byte, layout.DataSize)

	for _, inst := range s.Instructions {
		if inst.IsLabel {
			continue
		}
		// A 64-bit data value is two records, hi32 first in stream
		// order; little-endian memory holds lo32 first, so the two
		// halves swap places in the image.
		shift := 0
		switch inst.Mnemonic {
		case "quad.hi", "dword.hi":
			shift = 4
		case "quad.lo", "dword.lo":
			shift = -4
		}
		switch inst.Segment {
		case arm64.SegCode, arm64.SegRodata:
			off := inst.Address - int(layout.CodeBase) + shift
			binary.LittleEndian.PutUint32(codeAndRodata[off:], inst.Encoding)
		case arm64.SegData:
			off := inst.Address - int(layout.DataBase) + shift
			binary.LittleEndian.PutUint32(data[off:], inst.Encoding)
		}
	}
	return codeAndRodata, data
}

// AddressOf returns the address layOut assigned to the instruction
// immediately following name's label definition — the same
// label-binds-to-next-instruction convention layOut itself uses to
// build its internal labels map, recomputed here directly from the
// now-address-stamped Stream rather than threading that unexported map
// out of Link's two-pass signature.
func AddressOf(s *arm64.Stream, name string) (uint64, bool) {
	pending := false
	for _, inst := range s.Instructions {
		if inst.IsLabel {
			if inst.LabelName == name {
				pending = true
			}
			continue
		}
		if pending {
			return uint64(inst.Address), true
		}
	}
	return 0, false
}
