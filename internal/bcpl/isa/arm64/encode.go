package arm64

import "fmt"

// condCodes maps the AArch64 condition mnemonics the code generator
// uses (spec.md §4.9: EQ for IF's "false" branch, NE for UNLESS, plus
// the comparison operators) to their 4-bit encoding.
var condCodes = map[string]uint32{
	"EQ": 0x0, "NE": 0x1, "CS": 0x2, "HS": 0x2, "CC": 0x3, "LO": 0x3,
	"MI": 0x4, "PL": 0x5, "VS": 0x6, "VC": 0x7,
	"HI": 0x8, "LS": 0x9, "GE": 0xA, "LT": 0xB, "GT": 0xC, "LE": 0xD, "AL": 0xE,
}

// invertCond returns the negated condition, used by CSET's CSINC-based
// encoding (CSET Rd, cond is CSINC Rd, XZR, XZR, invert(cond)).
var invertCond = map[string]string{
	"EQ": "NE", "NE": "EQ", "CS": "CC", "HS": "LO", "CC": "CS", "LO": "HS",
	"MI": "PL", "PL": "MI", "VS": "VC", "VC": "VS",
	"HI": "LS", "LS": "HI", "GE": "LT", "LT": "GE", "GT": "LE", "LE": "GT",
}

func operandText(mnemonic string, ops ...string) string {
	text := mnemonic
	for i, o := range ops {
		if i == 0 {
			text += " " + o
		} else {
			text += ", " + o
		}
	}
	return text
}

// MOVZ loads imm16 into rd's 16-bit slice at position hw*16, zeroing
// the rest (spec.md §4.9: "MOVZ/MOVK sequence into a newly acquired
// register").
func (s *Stream) MOVZ(rd string, imm16 uint16, hw int) *Instruction {
	rdIdx, _ := regIndex(rd)
	enc := uint32(0xD2800000) | (uint32(hw)&3)<<21 | uint32(imm16)<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "movz", Operands: operandText("movz", rd, fmt.Sprintf("#%d, lsl #%d", imm16, hw*16)), Encoding: enc})
}

// MOVK merges imm16 into rd's 16-bit slice at position hw*16, leaving
// the rest of rd unchanged.
func (s *Stream) MOVK(rd string, imm16 uint16, hw int) *Instruction {
	rdIdx, _ := regIndex(rd)
	enc := uint32(0xF2800000) | (uint32(hw)&3)<<21 | uint32(imm16)<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "movk", Operands: operandText("movk", rd, fmt.Sprintf("#%d, lsl #%d", imm16, hw*16)), Encoding: enc})
}

// MOVZReloc emits a MOVZ whose immediate slice is resolved by the
// Linker against target (the JIT-assigned base of a label, spec.md
// §4.9.2's "MOVZ/MOVK with the JIT-assigned base in JIT mode").
func (s *Stream) MOVZReloc(rd, target string, hw int) *Instruction {
	rdIdx, _ := regIndex(rd)
	return s.append(Instruction{
		Mnemonic: "movz", Operands: operandText("movz", rd, "#"+target),
		Encoding: uint32(0xD2800000) | (uint32(hw)&3)<<21 | rdIdx,
		Reloc:    RelocMovWide, Target: target, MovSlice: hw,
	})
}

// MOVKReloc is MOVZReloc's MOVK counterpart for the remaining slices
// of a JIT-tagged address load.
func (s *Stream) MOVKReloc(rd, target string, hw int) *Instruction {
	rdIdx, _ := regIndex(rd)
	return s.append(Instruction{
		Mnemonic: "movk", Operands: operandText("movk", rd, "#"+target),
		Encoding: uint32(0xF2800000) | (uint32(hw)&3)<<21 | rdIdx,
		Reloc:    RelocMovWide, Target: target, MovSlice: hw,
	})
}

// ADRP loads the page address of target into rd; the Linker computes
// (target_page - pc_page) and patches the 21-bit split immediate.
func (s *Stream) ADRP(rd, target string) *Instruction {
	rdIdx, _ := regIndex(rd)
	return s.append(Instruction{
		Mnemonic: "adrp", Operands: operandText("adrp", rd, target),
		Encoding: uint32(0x90000000) | rdIdx,
		Reloc:    RelocPage21, Target: target,
	})
}

// ADDImm emits ADD rd, rn, #imm12 with a literal, link-time-known
// immediate.
func (s *Stream) ADDImm(rd, rn string, imm12 uint16) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	enc := uint32(0x91000000) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "add", Operands: operandText("add", rd, rn, fmt.Sprintf("#%d", imm12)), Encoding: enc})
}

// ADDImmReloc emits ADD rd, rn, #:lo12:target — the page-offset
// remainder half of an ADRP+ADD address load, patched by the Linker.
func (s *Stream) ADDImmReloc(rd, rn, target string) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{
		Mnemonic: "add", Operands: operandText("add", rd, rn, ":lo12:"+target),
		Encoding: uint32(0x91000000) | rnIdx<<5 | rdIdx,
		Reloc:    RelocAdd12, Target: target,
	})
}

// SUBImm emits SUB rd, rn, #imm12.
func (s *Stream) SUBImm(rd, rn string, imm12 uint16) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	enc := uint32(0xD1000000) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "sub", Operands: operandText("sub", rd, rn, fmt.Sprintf("#%d", imm12)), Encoding: enc})
}

func dp3reg(base uint32, rd, rn, rm string) uint32 {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	return base | rmIdx<<16 | rnIdx<<5 | rdIdx
}

// ADDReg emits ADD rd, rn, rm (64-bit shifted-register form, shift 0).
func (s *Stream) ADDReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "add", Operands: operandText("add", rd, rn, rm), Encoding: dp3reg(0x8B000000, rd, rn, rm)})
}

// SUBReg emits SUB rd, rn, rm. SUB rd, xzr, rn is how the code
// generator lowers unary negation (spec.md §4.9).
func (s *Stream) SUBReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "sub", Operands: operandText("sub", rd, rn, rm), Encoding: dp3reg(0xCB000000, rd, rn, rm)})
}

func (s *Stream) ANDReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "and", Operands: operandText("and", rd, rn, rm), Encoding: dp3reg(0x8A000000, rd, rn, rm)})
}

func (s *Stream) ORRReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "orr", Operands: operandText("orr", rd, rn, rm), Encoding: dp3reg(0xAA000000, rd, rn, rm)})
}

func (s *Stream) EORReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "eor", Operands: operandText("eor", rd, rn, rm), Encoding: dp3reg(0xCA000000, rd, rn, rm)})
}

// MUL is the MADD Rd, Rn, Rm, XZR alias.
func (s *Stream) MUL(rd, rn, rm string) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	enc := uint32(0x9B000000) | rmIdx<<16 | 31<<10 | rnIdx<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "mul", Operands: operandText("mul", rd, rn, rm), Encoding: enc})
}

func (s *Stream) SDIV(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "sdiv", Operands: operandText("sdiv", rd, rn, rm), Encoding: dp3reg(0x9AC00C00, rd, rn, rm)})
}

// LSLReg/LSRReg are the register-shift forms (spec.md §4.9's bitfield
// fallback: "use LSR + LSL-mask + AND fallback" when start/width are
// not compile-time literals).
func (s *Stream) LSLReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "lsl", Operands: operandText("lsl", rd, rn, rm), Encoding: dp3reg(0x9AC02000, rd, rn, rm)})
}

func (s *Stream) LSRReg(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "lsr", Operands: operandText("lsr", rd, rn, rm), Encoding: dp3reg(0x9AC02400, rd, rn, rm)})
}

// CMPReg emits CMP rn, rm (SUBS XZR, rn, rm).
func (s *Stream) CMPReg(rn, rm string) *Instruction {
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	enc := uint32(0xEB000000) | rmIdx<<16 | rnIdx<<5 | 31
	return s.append(Instruction{Mnemonic: "cmp", Operands: operandText("cmp", rn, rm), Encoding: enc})
}

// CMPImm emits cmp rn, #imm12 (SUBS XZR, rn, #imm12), used for the
// compare-against-zero condition tests (spec.md §4.9.1).
func (s *Stream) CMPImm(rn string, imm12 uint16) *Instruction {
	rnIdx, _ := regIndex(rn)
	enc := uint32(0xF1000000) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | 31
	return s.append(Instruction{Mnemonic: "cmp", Operands: operandText("cmp", rn, fmt.Sprintf("#%d", imm12)), Encoding: enc})
}

// ADDImmShifted emits add rd, rn, #imm12, lsl #12 — the only extra
// addressing mode the runtime-call ABI's X19 = X28 + 524288 needs
// (524288 is 128 << 12, outside plain ADDImm's 12-bit range).
func (s *Stream) ADDImmShifted(rd, rn string, imm12 uint16) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	enc := uint32(0x91400000) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "add", Operands: operandText("add", rd, rn, fmt.Sprintf("#%d, lsl #12", imm12)), Encoding: enc})
}

// CSET rd, cond sets rd to 1 if cond holds, else 0 (CSINC Rd, XZR,
// XZR, invert(cond)).
func (s *Stream) CSET(rd, cond string) *Instruction {
	rdIdx, _ := regIndex(rd)
	inv := invertCond[cond]
	enc := uint32(0x9A9F07E0) | condCodes[inv]<<12 | rdIdx
	return s.append(Instruction{Mnemonic: "cset", Operands: operandText("cset", rd, cond), Encoding: enc})
}

func ldStBase(width int, isLoad, isFP bool) uint32 {
	switch {
	case isFP && width == 64:
		if isLoad {
			return 0xFD400000
		}
		return 0xFD000000
	case !isFP && width == 64:
		if isLoad {
			return 0xF9400000
		}
		return 0xF9000000
	default: // 32-bit GP, used for char-width (4 byte) accesses
		if isLoad {
			return 0xB9400000
		}
		return 0xB9000000
	}
}

func ldurSturBase(width int, isLoad, isFP bool) uint32 {
	switch {
	case isFP && width == 64:
		if isLoad {
			return 0xFC400000
		}
		return 0xFC000000
	case !isFP && width == 64:
		if isLoad {
			return 0xF8400000
		}
		return 0xF8000000
	default: // 32-bit GP, used for char-width (4 byte) accesses
		if isLoad {
			return 0xB8400000
		}
		return 0xB8000000
	}
}

// LDUR emits ldur rt, [rn, #imm9] — the unscaled, signed-offset form.
// Frame slots sit at negative offsets from X29 (frame.Frame assigns
// them that way), which the unsigned-offset LDR/STR form cannot
// address at all; every fp-relative load or store in this compiler
// (spilled variables, callee-saved odd tail, the stack canary) goes
// through LDUR/STUR instead. imm9 is the raw byte offset, range
// -256..255.
func (s *Stream) LDUR(rt, rn string, imm9 int, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	enc := ldurSturBase(width, true, isFPReg(rt)) | (uint32(imm9)&0x1FF)<<12 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "ldur", Operands: operandText("ldur", rt, fmt.Sprintf("[%s, #%d]", rn, imm9)), Encoding: enc})
}

// STUR is LDUR's store counterpart.
func (s *Stream) STUR(rt, rn string, imm9 int, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	enc := ldurSturBase(width, false, isFPReg(rt)) | (uint32(imm9)&0x1FF)<<12 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "stur", Operands: operandText("stur", rt, fmt.Sprintf("[%s, #%d]", rn, imm9)), Encoding: enc})
}

func ldStRegBase(width int, isLoad, isFP bool) uint32 {
	var base uint32
	if width == 64 {
		base = 0xF8207800
	} else {
		base = 0xB8207800
	}
	if isFP {
		base |= 0x04000000
	}
	if isLoad {
		base |= 0x00400000
	}
	return base
}

func scaleShift(width int) int {
	if width == 64 {
		return 3
	}
	return 2
}

// LDRReg emits ldr rt, [rn, rm, lsl #n] (register-offset form, n = 3
// for 64-bit or 2 for 32-bit width), the addressing mode a
// dynamically-indexed vector/table access (`v!i` with a non-literal
// i) needs — LDRImm's immediate form only covers a compile-time-known
// index (spec.md §4.9).
func (s *Stream) LDRReg(rt, rn, rm string, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	enc := ldStRegBase(width, true, isFPReg(rt)) | rmIdx<<16 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "ldr", Operands: operandText("ldr", rt, fmt.Sprintf("[%s, %s, lsl #%d]", rn, rm, scaleShift(width))), Encoding: enc})
}

// STRReg is LDRReg's store counterpart.
func (s *Stream) STRReg(rt, rn, rm string, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	enc := ldStRegBase(width, false, isFPReg(rt)) | rmIdx<<16 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "str", Operands: operandText("str", rt, fmt.Sprintf("[%s, %s, lsl #%d]", rn, rm, scaleShift(width))), Encoding: enc})
}

// LDRImm emits LDR rt, [rn, #imm12*scale] (unsigned offset form); width
// is 64 for int/float/list-pointer access, 32 for char access
// (spec.md §4.9: "index scaled by word size... 2 for chars"). Only
// valid for non-negative scaled offsets — ADRP/ADD-resolved absolute
// addresses and positive SP-relative argument-spill slots. Use
// LDUR/STUR for anything fp-relative.
func (s *Stream) LDRImm(rt, rn string, imm12 uint16, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	enc := ldStBase(width, true, isFPReg(rt)) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "ldr", Operands: operandText("ldr", rt, fmt.Sprintf("[%s, #%d]", rn, imm12)), Encoding: enc})
}

// STRImm is LDRImm's store counterpart.
func (s *Stream) STRImm(rt, rn string, imm12 uint16, width int) *Instruction {
	rtIdx, _ := regIndex(rt)
	rnIdx, _ := regIndex(rn)
	enc := ldStBase(width, false, isFPReg(rt)) | uint32(imm12&0xFFF)<<10 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "str", Operands: operandText("str", rt, fmt.Sprintf("[%s, #%d]", rn, imm12)), Encoding: enc})
}

// LDRLiteral emits LDR rt, label — a PC-relative literal-pool load
// (rodata float/string constants), 19-bit relocation.
func (s *Stream) LDRLiteral(rt, target string) *Instruction {
	rtIdx, _ := regIndex(rt)
	base := uint32(0x58000000)
	if isFPReg(rt) {
		base = 0x5C000000
	}
	return s.append(Instruction{
		Mnemonic: "ldr", Operands: operandText("ldr", rt, target),
		Encoding: base | rtIdx, Reloc: RelocCondBranch19, Target: target,
	})
}

// StpMode selects STP/LDP's addressing variant.
type StpMode int

const (
	StpSignedOffset StpMode = iota
	StpPreIndex
	StpPostIndex
)

func stpBase(mode StpMode, isLoad bool) uint32 {
	var base uint32
	switch mode {
	case StpPreIndex:
		base = 0xA9800000
	case StpPostIndex:
		base = 0xA8800000
	default:
		base = 0xA9000000
	}
	if isLoad {
		base |= 1 << 22
	}
	return base
}

// STP emits stp rt, rt2, [rn, #imm7*8] in the given addressing mode
// (spec.md §4.7's prologue uses StpPreIndex for `stp x29, x30,
// [sp, #-16]!`, StpSignedOffset for saving each callee-saved pair).
func (s *Stream) STP(rt, rt2, rn string, imm7 int, mode StpMode) *Instruction {
	rtIdx, _ := regIndex(rt)
	rt2Idx, _ := regIndex(rt2)
	rnIdx, _ := regIndex(rn)
	enc := stpBase(mode, false) | (uint32(imm7)&0x7F)<<15 | rt2Idx<<10 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "stp", Operands: operandText("stp", rt, rt2, fmt.Sprintf("[%s, #%d]", rn, imm7*8)), Encoding: enc})
}

// LDP is STP's load counterpart.
func (s *Stream) LDP(rt, rt2, rn string, imm7 int, mode StpMode) *Instruction {
	rtIdx, _ := regIndex(rt)
	rt2Idx, _ := regIndex(rt2)
	rnIdx, _ := regIndex(rn)
	enc := stpBase(mode, true) | (uint32(imm7)&0x7F)<<15 | rt2Idx<<10 | rnIdx<<5 | rtIdx
	return s.append(Instruction{Mnemonic: "ldp", Operands: operandText("ldp", rt, rt2, fmt.Sprintf("[%s, #%d]", rn, imm7*8)), Encoding: enc})
}

// B emits an unconditional branch to target (26-bit PC-relative,
// patched by the Linker).
func (s *Stream) B(target string) *Instruction {
	return s.append(Instruction{Mnemonic: "b", Operands: operandText("b", target), Encoding: 0x14000000, Reloc: RelocBranch26, Target: target})
}

// BL emits a branch-with-link to target, used for user-function direct
// calls (spec.md §4.9.2).
func (s *Stream) BL(target string) *Instruction {
	return s.append(Instruction{Mnemonic: "bl", Operands: operandText("bl", target), Encoding: 0x94000000, Reloc: RelocBranch26, Target: target})
}

// BR emits an indirect branch through rn.
func (s *Stream) BR(rn string) *Instruction {
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{Mnemonic: "br", Operands: operandText("br", rn), Encoding: 0xD61F0000 | rnIdx<<5})
}

// BLR emits an indirect branch-with-link through rn, used for every
// runtime call in JIT mode, through the runtime table slot; the choice
// does not depend on BL's ±128 MiB range (spec.md §4.9.2).
func (s *Stream) BLR(rn string) *Instruction {
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{Mnemonic: "blr", Operands: operandText("blr", rn), Encoding: 0xD63F0000 | rnIdx<<5})
}

// BCond emits B.cond target (19-bit PC-relative).
func (s *Stream) BCond(cond, target string) *Instruction {
	return s.append(Instruction{
		Mnemonic: "b." + cond, Operands: operandText("b."+cond, target),
		Encoding: 0x54000000 | condCodes[cond], Reloc: RelocCondBranch19, Target: target,
	})
}

// RET emits a return through X30.
func (s *Stream) RET() *Instruction {
	return s.append(Instruction{Mnemonic: "ret", Operands: "ret", Encoding: 0xD65F03C0})
}

// NOP emits a no-op.
func (s *Stream) NOP() *Instruction {
	return s.append(Instruction{Mnemonic: "nop", Operands: "nop", Encoding: 0xD503201F})
}

func fp2reg(base uint32, rd, rn, rm string) uint32 {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	return base | rmIdx<<16 | rnIdx<<5 | rdIdx
}

func (s *Stream) FADD(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "fadd", Operands: operandText("fadd", rd, rn, rm), Encoding: fp2reg(0x1E602800, rd, rn, rm)})
}

func (s *Stream) FSUB(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "fsub", Operands: operandText("fsub", rd, rn, rm), Encoding: fp2reg(0x1E603800, rd, rn, rm)})
}

func (s *Stream) FMUL(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "fmul", Operands: operandText("fmul", rd, rn, rm), Encoding: fp2reg(0x1E600800, rd, rn, rm)})
}

func (s *Stream) FDIV(rd, rn, rm string) *Instruction {
	return s.append(Instruction{Mnemonic: "fdiv", Operands: operandText("fdiv", rd, rn, rm), Encoding: fp2reg(0x1E601800, rd, rn, rm)})
}

// FMOV rd, rn copies a double between two FP registers, used to move a
// call argument or a live value into its required FP register without
// passing through the integer ALU.
func (s *Stream) FMOV(rd, rn string) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{Mnemonic: "fmov", Operands: operandText("fmov", rd, rn), Encoding: 0x1E604000 | rnIdx<<5 | rdIdx})
}

// SCVTF converts the 64-bit signed integer in rn to a double in rd
// (spec.md §4.9: "promote integer to float with SCVTF when mixing").
func (s *Stream) SCVTF(rd, rn string) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{Mnemonic: "scvtf", Operands: operandText("scvtf", rd, rn), Encoding: 0x9E620000 | rnIdx<<5 | rdIdx})
}

// FCVTZS converts the double in rn to a 64-bit signed integer in rd,
// rounding toward zero.
func (s *Stream) FCVTZS(rd, rn string) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	return s.append(Instruction{Mnemonic: "fcvtzs", Operands: operandText("fcvtzs", rd, rn), Encoding: 0x9E780000 | rnIdx<<5 | rdIdx})
}

// FCMP compares two doubles, setting condition flags for a following
// CSET.
func (s *Stream) FCMP(rn, rm string) *Instruction {
	rnIdx, _ := regIndex(rn)
	rmIdx, _ := regIndex(rm)
	return s.append(Instruction{Mnemonic: "fcmp", Operands: operandText("fcmp", rn, rm), Encoding: 0x1E602000 | rmIdx<<16 | rnIdx<<5})
}

// UBFX rd, rn, #lsb, #width extracts a bitfield when start and width
// are compile-time integer literals (spec.md §4.9).
func (s *Stream) UBFX(rd, rn string, lsb, width int) *Instruction {
	rdIdx, _ := regIndex(rd)
	rnIdx, _ := regIndex(rn)
	immr := uint32(lsb) & 0x3F
	imms := uint32(lsb+width-1) & 0x3F
	enc := uint32(0xD3400000) | immr<<16 | imms<<10 | rnIdx<<5 | rdIdx
	return s.append(Instruction{Mnemonic: "ubfx", Operands: operandText("ubfx", rd, rn, fmt.Sprintf("#%d", lsb), fmt.Sprintf("#%d", width)), Encoding: enc})
}

// DataWord64 appends two adjacent data-segment words holding target's
// absolute 64-bit address, hi32 then lo32 (spec.md §4.10's
// "absolute-address 64-bit, split into hi32/lo32 data words"), used by
// the runtime function-pointer table and JIT global-address slots.
func (s *Stream) DataWord64(target string, seg Segment) {
	s.append(Instruction{Mnemonic: "dword.hi", Reloc: RelocAbsHi32, Target: target, Segment: seg, Size: 4})
	s.append(Instruction{Mnemonic: "dword.lo", Reloc: RelocAbsLo32, Target: target, Segment: seg, Size: 4})
}

// DataRaw64 appends two adjacent data-segment words holding value's
// raw 64-bit pattern, hi32 then lo32, with no relocation: used for
// float literals (the bit pattern, not an address) and a global
// variable's literal initial value (spec.md §6: "each global variable
// appears as a single .quad of its initial value").
func (s *Stream) DataRaw64(value uint64, seg Segment) {
	s.append(Instruction{Mnemonic: "quad.hi", Encoding: uint32(value >> 32), Segment: seg, Size: 4})
	s.append(Instruction{Mnemonic: "quad.lo", Encoding: uint32(value), Segment: seg, Size: 4})
}

// DataWord32 appends a single 32-bit data-segment word with no
// relocation, used for a string literal's UTF-32 code points and its
// trailing NUL padding (spec.md §3, §6).
func (s *Stream) DataWord32(value uint32, seg Segment) *Instruction {
	return s.append(Instruction{Mnemonic: "long", Encoding: value, Segment: seg, Size: 4})
}
