package peephole

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
)

var (
	threeRegRe   = regexp.MustCompile(`^(?:add|sub|and|orr|eor|mul|lsl|lsr) (\S+), (\S+), (\S+)$`)
	fmovRe       = regexp.MustCompile(`^fmov (\S+), (\S+)$`)
	addImmRe     = regexp.MustCompile(`^add (\S+), (\S+), #(\d+)$`)
	movWideRe    = regexp.MustCompile(`^(movz|movk) (\S+), #(\d+), lsl #(\d+)$`)
	cmpRe        = regexp.MustCompile(`^cmp (\S+), (\S+)$`)
	csetRe       = regexp.MustCompile(`^cset (\S+), (\S+)$`)
	branchRe     = regexp.MustCompile(`^b (\S+)$`)
	condBranchRe = regexp.MustCompile(`^b\.(\S+) (\S+)$`)
	memRe        = regexp.MustCompile(`^(ldur|stur|ldr|str) (\S+), (\[.+\])$`)
)

// invertCond duplicates isa/arm64's unexported table of the same name:
// the peephole pass needs it to rewrite a CSET+branch pair into a
// single inverted conditional branch, and isa/arm64 doesn't export its
// own copy (condition-code inversion is an encoder-internal concern
// there; here it's a rewrite-rule concern).
var invertCond = map[string]string{
	"EQ": "NE", "NE": "EQ", "CS": "CC", "HS": "LO", "CC": "CS", "LO": "HS",
	"MI": "PL", "PL": "MI", "VS": "VC", "VC": "VS",
	"HI": "LS", "LS": "HI", "GE": "LT", "LT": "GE", "GT": "LE", "LE": "GT",
}

// isScratchReg reports whether name is one of the register manager's
// scratch-pool registers (regalloc/pool.go's gpScratchNames/
// fpScratchNames: X9-X15, D0-D7, D16-D31) — duplicated here by naming
// convention rather than imported, since regalloc's pools are
// unexported package vars. A scratch register is, by the allocator's
// own acquire-use-release discipline, never read again once consumed
// by the instruction that follows its definition, which is what lets
// the redundant-move pattern below treat it as dead without running
// full liveness analysis inside this pass.
func isScratchReg(name string) bool {
	if len(name) < 2 {
		return false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return false
	}
	switch name[0] {
	case 'X', 'x':
		return n >= 9 && n <= 15
	case 'D', 'd':
		return (n >= 0 && n <= 7) || (n >= 16 && n <= 31)
	default:
		return false
	}
}

// asRegMove reports the (dest, src) pair if inst is one of this
// compiler's two register-move idioms (codegen/expr.go's moveInto:
// `orr Rd, XZR, Rn` for GP, `fmov Rd, Rn` for FP).
func asRegMove(inst *arm64.Instruction) (dst, src string, ok bool) {
	if inst.Mnemonic == "orr" {
		if m := threeRegRe.FindStringSubmatch(inst.Operands); m != nil {
			rn := m[2]
			if rn == "XZR" || rn == "xzr" || rn == "WZR" || rn == "wzr" {
				return m[1], m[3], true
			}
		}
		return "", "", false
	}
	if inst.Mnemonic == "fmov" {
		if m := fmovRe.FindStringSubmatch(inst.Operands); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

func gpMove(dst, src string) arm64.Instruction {
	return arm64.Instruction{Mnemonic: "orr", Operands: fmt.Sprintf("orr %s, XZR, %s", dst, src)}
}

// matchRedundantMove: Rd1<-Rn ; Rd2<-Rd1 collapses to Rd2<-Rn when Rd1
// is a scratch register (spec.md §4.11's "when Rd1 dies" condition).
func matchRedundantMove(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	d1, n, ok1 := asRegMove(&reals[i].inst)
	d2, s2, ok2 := asRegMove(&reals[i+1].inst)
	if !ok1 || !ok2 || s2 != d1 || !isScratchReg(d1) {
		return 0, nil, false
	}
	if reals[i].inst.Mnemonic != reals[i+1].inst.Mnemonic {
		return 0, nil, false
	}
	var repl arm64.Instruction
	if reals[i].inst.Mnemonic == "fmov" {
		repl = arm64.Instruction{Mnemonic: "fmov", Operands: fmt.Sprintf("fmov %s, %s", d2, n)}
	} else {
		repl = gpMove(d2, n)
	}
	return 2, []arm64.Instruction{repl}, true
}

func memOperand(inst *arm64.Instruction) (kind, reg, addr string, ok bool) {
	m := memRe.FindStringSubmatch(inst.Operands)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

func isFPOperand(reg string) bool {
	return len(reg) > 0 && (reg[0] == 'D' || reg[0] == 'd' || reg[0] == 'V' || reg[0] == 'v')
}

// matchLoadAfterStore: a store immediately followed by a load from the
// identical memory operand becomes a register-to-register move — the
// store is kept (spec.md §4.11: "never delete; liveness of the loaded
// register is assumed").
func matchLoadAfterStore(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	sk, sReg, sAddr, sOK := memOperand(&reals[i].inst)
	lk, lReg, lAddr, lOK := memOperand(&reals[i+1].inst)
	if !sOK || !lOK || sAddr != lAddr {
		return 0, nil, false
	}
	if (sk != "stur" && sk != "str") || (lk != "ldur" && lk != "ldr") {
		return 0, nil, false
	}
	if lReg == sReg {
		return 0, nil, false
	}
	var mv arm64.Instruction
	if isFPOperand(lReg) {
		mv = arm64.Instruction{Mnemonic: "fmov", Operands: fmt.Sprintf("fmov %s, %s", lReg, sReg)}
	} else {
		mv = gpMove(lReg, sReg)
	}
	return 2, []arm64.Instruction{reals[i].inst, mv}, true
}

// matchDeadStore: two stores to the same memory operand in sequence —
// the first's value is never observed, so it is dropped.
func matchDeadStore(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	k1, _, a1, ok1 := memOperand(&reals[i].inst)
	k2, _, a2, ok2 := memOperand(&reals[i+1].inst)
	if !ok1 || !ok2 || a1 != a2 {
		return 0, nil, false
	}
	if (k1 != "stur" && k1 != "str") || (k2 != "stur" && k2 != "str") {
		return 0, nil, false
	}
	return 2, []arm64.Instruction{reals[i+1].inst}, true
}

// matchRedundantCompare: the same CMP repeated back to back — the
// second is a no-op, since nothing between them can have touched the
// flags register or either operand.
func matchRedundantCompare(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	a, b := &reals[i].inst, &reals[i+1].inst
	if a.Mnemonic != "cmp" || b.Mnemonic != "cmp" || a.Operands != b.Operands {
		return 0, nil, false
	}
	return 2, []arm64.Instruction{*a}, true
}

// matchConstantFold: MOVZ Rd,#a (slice 0) followed by ADD Rd,Rd,#b
// with a+b <= 65535 collapses to a single MOVZ Rd,#(a+b).
func matchConstantFold(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	mz := movWideRe.FindStringSubmatch(reals[i].inst.Operands)
	if mz == nil || mz[1] != "movz" || mz[4] != "0" {
		return 0, nil, false
	}
	add := addImmRe.FindStringSubmatch(reals[i+1].inst.Operands)
	if add == nil {
		return 0, nil, false
	}
	rd := mz[2]
	if add[1] != rd || add[2] != rd {
		return 0, nil, false
	}
	a, _ := strconv.ParseUint(mz[3], 10, 64)
	b, _ := strconv.ParseUint(add[3], 10, 64)
	sum := a + b
	if sum > 65535 {
		return 0, nil, false
	}
	repl := arm64.Instruction{Mnemonic: "movz", Operands: fmt.Sprintf("movz %s, #%d, lsl #0", rd, sum)}
	return 2, []arm64.Instruction{repl}, true
}

// matchStrengthReduction: this encoder has no immediate-operand MUL,
// so the multiply-by-2 idiom is MOVZ Rtmp,#2 (slice 0) immediately
// followed by MUL Rd,Rs,Rtmp; both collapse to ADD Rd,Rs,Rs.
func matchStrengthReduction(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+1 >= len(reals) {
		return 0, nil, false
	}
	mz := movWideRe.FindStringSubmatch(reals[i].inst.Operands)
	if mz == nil || mz[1] != "movz" || mz[4] != "0" || mz[3] != "2" {
		return 0, nil, false
	}
	mul := threeRegRe.FindStringSubmatch(reals[i+1].inst.Operands)
	if mul == nil || reals[i+1].inst.Mnemonic != "mul" || mul[3] != mz[2] {
		return 0, nil, false
	}
	rd, rs := mul[1], mul[2]
	repl := arm64.Instruction{Mnemonic: "add", Operands: fmt.Sprintf("add %s, %s, %s", rd, rs, rs), Encoding: 0}
	return 2, []arm64.Instruction{repl}, true
}

// matchCompareZeroCset collapses this compiler's own boolean-branch
// idiom (codegen/terminator.go's emitCondBranch, fed by
// codegen/expr.go's emitComparison): CMP A,B ; CSET Rd,cond ; CMP
// Rd,#0 ; B.<EQ|NE> target becomes CMP A,B ; B.<cond'> target, where
// cond' folds CSET's condition with the outer EQ/NE test directly
// (spec.md §4.11: "compare-zero-and-branch patterns combined with
// CSET").
func matchCompareZeroCset(reals []real, i int) (int, []arm64.Instruction, bool) {
	if i+3 >= len(reals) {
		return 0, nil, false
	}
	cmp1 := &reals[i].inst
	cs := csetRe.FindStringSubmatch(reals[i+1].inst.Operands)
	cmp2 := cmpRe.FindStringSubmatch(reals[i+2].inst.Operands)
	br := condBranchRe.FindStringSubmatch(reals[i+3].inst.Operands)
	if cmp1.Mnemonic != "cmp" || cs == nil || cmp2 == nil || br == nil {
		return 0, nil, false
	}
	rd := cs[1]
	cond := cs[2]
	if cmp2[1] != rd || cmp2[2] != "#0" {
		return 0, nil, false
	}
	branchCond := br[1]
	var folded string
	switch branchCond {
	case "NE":
		folded = cond
	case "EQ":
		folded = invertCond[cond]
	default:
		return 0, nil, false
	}
	if folded == "" {
		return 0, nil, false
	}
	target := br[2]
	repl := arm64.Instruction{
		Mnemonic: "b." + folded,
		Operands: fmt.Sprintf("b.%s %s", folded, target),
		Reloc:    arm64.RelocCondBranch19,
		Target:   target,
		Segment:  reals[i+3].inst.Segment,
	}
	return 4, []arm64.Instruction{*cmp1, repl}, true
}

// chainBranches rewrites every B/BL/B.cond whose Target resolves (via
// a fresh label->real-instruction map built from the current reals)
// to a real instruction that is itself an unconditional B to some
// other target, retargeting directly at that final destination. This
// never removes an instruction, so it carries no label-safety risk;
// it mutates in place and reports whether anything changed.
func chainBranches(reals []real) bool {
	boundTo := make(map[string]int, len(reals))
	for idx, r := range reals {
		for _, name := range r.labels {
			boundTo[name] = idx
		}
	}

	changed := false
	for i := range reals {
		inst := &reals[i].inst
		if inst.Reloc != arm64.RelocBranch26 && inst.Reloc != arm64.RelocCondBranch19 {
			continue
		}
		isCondBranch := len(inst.Mnemonic) > 2 && inst.Mnemonic[:2] == "b."
		if inst.Mnemonic != "b" && inst.Mnemonic != "bl" && !isCondBranch {
			// RelocCondBranch19 is also used by LDRLiteral, which isn't
			// a branch and has no chainable destination.
			continue
		}
		destIdx, ok := boundTo[inst.Target]
		if !ok {
			continue
		}
		dest := &reals[destIdx].inst
		if dest.Mnemonic != "b" || dest.Target == inst.Target {
			continue
		}
		inst.Target = dest.Target
		switch inst.Mnemonic {
		case "b":
			inst.Operands = fmt.Sprintf("b %s", dest.Target)
		case "bl":
			inst.Operands = fmt.Sprintf("bl %s", dest.Target)
		default:
			cond := inst.Mnemonic[2:]
			inst.Operands = fmt.Sprintf("b.%s %s", cond, dest.Target)
		}
		changed = true
	}
	return changed
}
