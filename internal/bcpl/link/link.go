// Package link implements the two-pass Linker spec.md §4.10 describes:
// pass 1 assigns every instruction an address across the code, rodata,
// and data segments; pass 2 resolves each relocation's target and
// patches the instruction's encoding in place. The JIT executor
// consumes the patched Stream directly; the assembly writer re-derives
// symbolic operand text from Target/Reloc instead and never reads the
// patched Encoding bits.
package link

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

// dataSegmentBaseLabel mirrors codegen's unexported constant of the
// same name: the X28/X19 base load's ADRP/ADD (or MOVZ/MOVK, in JIT
// mode) never resolves against a Stream-defined label, since the data
// buffer is a separate allocation (spec.md §6) whose address is only
// known to the driver that calls Link.
const dataSegmentBaseLabel = "L__data_segment_base"

// interSegmentGap is the minimum byte distance spec.md §4.10 requires
// between the end of code and the start of rodata.
const interSegmentGap = 16 * 1024

const pageSize = 4096

func roundUpPage(n uint64) uint64 {
	if rem := n % pageSize; rem != 0 {
		return n + (pageSize - rem)
	}
	return n
}

// Layout reports where pass 1 placed each segment.
type Layout struct {
	CodeBase, RodataBase, DataBase uint64
	CodeSize, RodataSize, DataSize int
}

// Linker resolves relocations against a Stream's own labels, the
// data-segment base, and registered runtime functions.
type Linker struct {
	Runtime *runtimeabi.Registry
}

// New returns a Linker resolving runtime-call relocations against rt.
func New(rt *runtimeabi.Registry) *Linker {
	return &Linker{Runtime: rt}
}

// Link runs both passes over s. codeBase is where the code segment
// starts (code and rodata share one buffer, spec.md §6); dataBase is
// the separately allocated data buffer's address (X28 in JIT mode, the
// linked data segment's address in static mode).
func (lk *Linker) Link(s *arm64.Stream, codeBase, dataBase uint64) (Layout, error) {
	layout, labels, err := lk.layOut(s, codeBase, dataBase)
	if err != nil {
		return layout, err
	}
	if err := lk.patchAll(s, labels, dataBase); err != nil {
		return layout, err
	}
	return layout, nil
}

// layOut is pass 1: a first scan tallies each segment's total size so
// RodataBase can be computed, then a second scan assigns every
// instruction's Address and binds each label to the address of the
// next non-label record that follows it in stream order.
func (lk *Linker) layOut(s *arm64.Stream, codeBase, dataBase uint64) (Layout, map[string]uint64, error) {
	var codeSize, rodataSize, dataSize int
	for _, inst := range s.Instructions {
		if inst.IsLabel {
			continue
		}
		switch inst.Segment {
		case arm64.SegCode:
			codeSize += inst.Size
		case arm64.SegRodata:
			rodataSize += inst.Size
		case arm64.SegData:
			dataSize += inst.Size
		}
	}

	layout := Layout{
		CodeBase:   codeBase,
		RodataBase: roundUpPage(codeBase + uint64(codeSize) + interSegmentGap),
		DataBase:   dataBase,
	}
	bases := [3]uint64{layout.CodeBase, layout.RodataBase, layout.DataBase}
	var offsets [3]uint64

	labels := make(map[string]uint64)
	var pending []string
	for i := range s.Instructions {
		inst := &s.Instructions[i]
		if inst.IsLabel {
			pending = append(pending, inst.LabelName)
			continue
		}

		addr := bases[inst.Segment] + offsets[inst.Segment]
		inst.Address = int(addr)
		for _, name := range pending {
			if _, dup := labels[name]; dup {
				return layout, nil, errors.Errorf("link: label %q defined more than once", name)
			}
			labels[name] = addr
		}
		pending = nil
		offsets[inst.Segment] += uint64(inst.Size)
	}
	if len(pending) > 0 {
		return layout, nil, errors.Errorf("link: label(s) %v have no following instruction to bind an address to", pending)
	}

	layout.CodeSize = int(offsets[arm64.SegCode])
	layout.RodataSize = int(offsets[arm64.SegRodata])
	layout.DataSize = int(offsets[arm64.SegData])
	return layout, labels, nil
}
