package main

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/compile"
	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/jitexec"
	"github.com/albanread/bcplc-go/internal/bcpl/link"
)

// interSegmentGap and pageSize mirror link's own unexported constants
// of the same name (codeSegmentSizes needs them to size a JIT code
// buffer before a single real Link call can report the authoritative
// Layout; see codeSegmentSizes's doc comment for why the tally can't
// just call Link twice).
const (
	interSegmentGap = 16 * 1024
	pageSize        = 4096
)

// codeSegmentSizes tallies the code and rodata segment sizes link.Link
// would report in its Layout, without actually linking. link's own
// layOut pass computes these sizes independent of codeBase/dataBase (a
// segment's size is just the sum of its instructions' Size fields), so
// this reproduces that first pass directly against the unlinked Stream.
//
// This tally exists only because jitexec.NewBuffer needs a code-region
// size before it can mmap a buffer, and link.Link needs that buffer's
// real address (codeBase) before it can run — a real Link call can only
// happen once a buffer exists, and link.patchOne ORs relocation bits
// into each instruction's Encoding in place, so Link can never safely
// run twice against the same Stream to first learn sizes and then patch
// for real. Tallying here, then mmapping generously, then linking
// exactly once avoids that trap.
func codeSegmentSizes(s *arm64.Stream) (codeSize, rodataSize, dataSize int) {
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
	return codeSize, rodataSize, dataSize
}

// runJIT links unit's Stream exactly once against a freshly mmap'd
// jitexec.Buffer, resolves every registered runtime function's address
// through ResolveRuntimeSymbol, and executes entrySymbol at
// breakpointOffset past its resolved address (spec.md §6's --call/--offset
// flags).
func runJIT(unit *compile.Unit, entrySymbol string, breakpointOffset int) (exitCode int, err error) {
	codeSize, rodataSize, dataSize := codeSegmentSizes(unit.Stream)

	// Conservative padding: mmap'd regions are themselves page-aligned,
	// so the gap link.Link inserts between code and rodata is
	// independent of the buffer's actual numeric address. Rounding the
	// code region up by a full gap plus a page absorbs that insertion
	// and link's own roundUpPage calls without needing to know, ahead
	// of time, exactly where either segment will land.
	codeRegionSize := codeSize + rodataSize + interSegmentGap + pageSize

	buf, err := jitexec.NewBuffer(codeRegionSize, dataSize)
	if err != nil {
		return 0, errors.Wrap(err, "bcplc: allocate JIT buffer")
	}
	defer buf.Close()

	linker := link.New(unit.Runtime)
	layout, err := linker.Link(unit.Stream, buf.CodeBase(), buf.DataBase())
	if err != nil {
		return 0, errors.Wrap(err, "bcplc: link")
	}

	codeAndRodata, data := linker.Emit(unit.Stream, layout)
	if err := buf.WriteCode(codeAndRodata); err != nil {
		return 0, errors.Wrap(err, "bcplc: write JIT code")
	}
	if err := buf.WriteData(data); err != nil {
		return 0, errors.Wrap(err, "bcplc: write JIT data")
	}

	for _, entry := range unit.Runtime.Entries() {
		addr, err := ResolveRuntimeSymbol(entry.Name)
		if err != nil {
			return 0, err
		}
		if err := buf.WriteRuntimeSlot(entry.SlotOffset, addr); err != nil {
			return 0, errors.Wrapf(err, "bcplc: write runtime slot for %s", entry.Name)
		}
	}

	if err := buf.Protect(); err != nil {
		return 0, errors.Wrap(err, "bcplc: protect JIT buffer")
	}

	entryAddr, ok := link.AddressOf(unit.Stream, entrySymbol)
	if !ok {
		return 0, errors.Errorf("bcplc: entry symbol %q not found", entrySymbol)
	}

	jitOffset := int(entryAddr-layout.CodeBase) + breakpointOffset
	return buf.Execute(entrySymbol, jitOffset)
}
