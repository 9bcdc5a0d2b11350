package frame

import "github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"

// canaryScratchReg is borrowed directly for the canary load/compare
// sequence; the prologue/epilogue run outside the normal register
// manager's bookkeeping (its pools aren't initialized yet when the
// prologue is emitted), so this is the one place in the generated code
// that claims a register by fiat rather than through Manager.
const canaryScratchReg = "X9"

// GeneratePrologue emits, in order: the frame-record push (`stp x29,
// x30, [sp, #-16]!`), `mov x29, sp` (as `add x29, sp, #0`), the frame
// reservation (`sub sp, sp, #frameSize`), a `stp` pair per two
// callee-saved registers the code generator declared via
// ForceSaveRegister, and — when enabled — the stack-canary write
// (spec.md §4.7). Must run after RunLayout.
func (f *Frame) GeneratePrologue(s *arm64.Stream) {
	s.STP("X29", "X30", "SP", -2, arm64.StpPreIndex)
	s.ADDImm("X29", "SP", 0)
	if f.frameSize > 0 {
		s.SUBImm("SP", "SP", uint16(f.frameSize))
	}

	for i := 0; i+1 < len(f.calleeSaved); i += 2 {
		offset := f.calleeOffset[f.calleeSaved[i]]
		s.STP(f.calleeSaved[i], f.calleeSaved[i+1], "X29", offset/8, arm64.StpSignedOffset)
	}
	if len(f.calleeSaved)%2 == 1 {
		last := f.calleeSaved[len(f.calleeSaved)-1]
		s.STUR(last, "X29", f.calleeOffset[last], 64)
	}

	if f.CanaryEnabled {
		s.ADRP(canaryScratchReg, stackCanaryLabel)
		s.ADDImmReloc(canaryScratchReg, canaryScratchReg, stackCanaryLabel)
		s.LDRImm(canaryScratchReg, canaryScratchReg, 0, 64)
		s.STUR(canaryScratchReg, "X29", f.canaryOffset, 64)
	}
}

// GenerateEpilogue emits, in order: the canary check (when enabled),
// restoring every callee-saved pair, restoring sp, the frame-record pop
// (`ldp x29, x30, [sp], #16`), and `ret` (spec.md §4.7).
func (f *Frame) GenerateEpilogue(s *arm64.Stream) {
	if f.CanaryEnabled {
		s.LDUR(canaryScratchReg, "X29", f.canaryOffset, 64)
		other := "X10"
		s.ADRP(other, stackCanaryLabel)
		s.ADDImmReloc(other, other, stackCanaryLabel)
		s.LDRImm(other, other, 0, 64)
		s.CMPReg(canaryScratchReg, other)
		s.BCond("NE", canaryCheckFailLabel)
	}

	for i := 0; i+1 < len(f.calleeSaved); i += 2 {
		offset := f.calleeOffset[f.calleeSaved[i]]
		s.LDP(f.calleeSaved[i], f.calleeSaved[i+1], "X29", offset/8, arm64.StpSignedOffset)
	}
	if len(f.calleeSaved)%2 == 1 {
		last := f.calleeSaved[len(f.calleeSaved)-1]
		s.LDUR(last, "X29", f.calleeOffset[last], 64)
	}

	if f.frameSize > 0 {
		s.ADDImm("SP", "SP", uint16(f.frameSize))
	}
	s.LDP("X29", "X30", "SP", 2, arm64.StpPostIndex)
	s.RET()
}
