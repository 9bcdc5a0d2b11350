package link

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
)

// branchRange is RelocBranch26's ±128 MiB testable property (spec.md
// §7). RelocCondBranch19's 19-bit field covers ±1 MiB; spec.md states
// the 128 MiB check explicitly only for the 26-bit case, but an
// out-of-range 19-bit field is exactly as fatal, so it gets the same
// treatment here.
const branchRange = 128 << 20
const condBranchRange = 1 << 20

// resolve finds target's address, special-casing the data-segment
// base (never a Stream label, spec.md §6) and, for a direct call
// relocation, an external runtime symbol the system linker resolves
// later (static-mode `--asm` output only — JIT mode never emits a
// direct BL to a runtime name, spec.md §4.9.2). ok is false only when
// neither a label, the data base, nor an external symbol matches.
func (lk *Linker) resolve(target string, labels map[string]uint64, dataBase uint64, allowExternal bool) (addr uint64, external, ok bool) {
	if target == dataSegmentBaseLabel {
		return dataBase, false, true
	}
	if a, found := labels[target]; found {
		return a, false, true
	}
	if allowExternal && lk.Runtime != nil {
		if _, found := lk.Runtime.Lookup(target); found {
			return 0, true, true
		}
	}
	return 0, false, false
}

// patchAll is pass 2: resolve and patch every relocated instruction.
func (lk *Linker) patchAll(s *arm64.Stream, labels map[string]uint64, dataBase uint64) error {
	for i := range s.Instructions {
		inst := &s.Instructions[i]
		if inst.IsLabel || inst.Reloc == arm64.RelocNone {
			continue
		}

		allowExternal := inst.Reloc == arm64.RelocBranch26
		addr, external, ok := lk.resolve(inst.Target, labels, dataBase, allowExternal)
		if !ok {
			return errors.Errorf("link: undefined label %q referenced at %s %s", inst.Target, inst.Mnemonic, inst.Operands)
		}
		if external {
			// Resolved by the system linker when assembling `--asm`
			// output; nothing for this pass to patch.
			continue
		}

		if err := lk.patchOne(inst, addr); err != nil {
			return err
		}
	}
	return nil
}

func (lk *Linker) patchOne(inst *arm64.Instruction, target uint64) error {
	switch inst.Reloc {
	case arm64.RelocBranch26:
		delta := int64(target) - int64(inst.Address)
		if delta%4 != 0 {
			return errors.Errorf("link: branch target %#x is not 4-byte aligned relative to %#x", target, inst.Address)
		}
		if delta > branchRange || delta < -branchRange {
			return errors.Errorf("link: branch from %#x to %#x exceeds the ±128 MiB range", inst.Address, target)
		}
		imm26 := uint32(delta>>2) & 0x3FFFFFF
		inst.Encoding |= imm26

	case arm64.RelocCondBranch19:
		delta := int64(target) - int64(inst.Address)
		if delta%4 != 0 {
			return errors.Errorf("link: branch target %#x is not 4-byte aligned relative to %#x", target, inst.Address)
		}
		if delta > condBranchRange || delta < -condBranchRange {
			return errors.Errorf("link: conditional branch from %#x to %#x exceeds the ±1 MiB range", inst.Address, target)
		}
		imm19 := uint32(delta>>2) & 0x7FFFF
		inst.Encoding |= imm19 << 5

	case arm64.RelocPage21:
		pcPage := int64(inst.Address) >> 12
		targetPage := int64(target) >> 12
		imm := uint32(targetPage-pcPage) & 0x1FFFFF
		immlo := imm & 0x3
		immhi := (imm >> 2) & 0x7FFFF
		inst.Encoding |= immlo<<29 | immhi<<5

	case arm64.RelocAdd12:
		imm12 := uint32(target) & 0xFFF
		inst.Encoding |= imm12 << 10

	case arm64.RelocMovWide:
		shift := uint(inst.MovSlice) * 16
		imm16 := uint32((target >> shift) & 0xFFFF)
		inst.Encoding |= imm16 << 5

	case arm64.RelocAbsHi32:
		inst.Encoding = uint32(target >> 32)

	case arm64.RelocAbsLo32:
		inst.Encoding = uint32(target & 0xFFFFFFFF)

	default:
		return errors.Errorf("link: unrecognized relocation kind %v", inst.Reloc)
	}
	return nil
}
