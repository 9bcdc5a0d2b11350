package codegen

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
)

var gpArgRegs = []string{"X0", "X1", "X2", "X3", "X4", "X5", "X6", "X7"}
var fpArgRegs = []string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7"}

// emitCall lowers a call to callee — a user function/routine or a
// runtime intrinsic — with args, returning its result (spec.md
// §4.9.2). Each argument is evaluated and moved into its ABI register
// immediately, one at a time, before the next is evaluated: no two
// pending argument values are ever live at once, which sidesteps the
// parallel-move hazard the FP scratch pool's aliasing with D0-D7
// would otherwise create.
func (fg *funcGen) emitCall(callee string, args []ast.Expr) (value, error) {
	gpIdx, fpIdx := 0, 0
	for _, a := range args {
		v, err := fg.emitExpr(a)
		if err != nil {
			return value{}, err
		}
		var target string
		if v.kind == regalloc.FP {
			if fpIdx >= len(fpArgRegs) {
				return value{}, errors.Errorf("codegen: function %s: call to %s passes more than %d float arguments", fg.plan.Name, callee, len(fpArgRegs))
			}
			target = fpArgRegs[fpIdx]
			fpIdx++
		} else {
			if gpIdx >= len(gpArgRegs) {
				return value{}, errors.Errorf("codegen: function %s: call to %s passes more than %d integer arguments", fg.plan.Name, callee, len(gpArgRegs))
			}
			target = gpArgRegs[gpIdx]
			gpIdx++
		}
		fg.moveInto(target, v)
	}

	saved := fg.mgr.InUseCallerSaved()
	fg.saveCallerSaved(saved)

	retFloat, err := fg.emitDispatch(callee)
	if err != nil {
		return value{}, err
	}

	fg.restoreCallerSaved(saved)

	kind := regalloc.GP
	if retFloat {
		kind = regalloc.FP
	}
	dst, err := fg.acquireScratch(kind)
	if err != nil {
		return value{}, err
	}
	if retFloat {
		fg.stream.FMOV(dst.reg, "D0")
	} else {
		fg.stream.ORRReg(dst.reg, "XZR", "X0")
	}
	return dst, nil
}

// emitDispatch emits the call instruction itself: a table-indirect
// BLR for a runtime intrinsic in JIT mode, a direct BL to the runtime
// symbol name otherwise, and always a direct BL for a user function
// (spec.md §4.9.2 — see DESIGN.md's codegen entry for why the
// JIT-vs-static choice only ever applies to runtime calls: a raw
// runtime address is unpredictable process memory not reachable by a
// link-time-resolved BL, while a user function's address is always
// known to the same linker pass that resolves everything else).
func (fg *funcGen) emitDispatch(callee string) (bool, error) {
	if e, ok := fg.gen.Runtime.Lookup(callee); ok {
		return fg.emitRuntimeCall(e), nil
	}
	fg.stream.BL(callee)
	if fg.gen.FunctionSignature != nil {
		if rf, ok := fg.gen.FunctionSignature(callee); ok {
			return rf, nil
		}
	}
	return false, nil
}

func (fg *funcGen) emitRuntimeCall(e runtimeabi.Entry) bool {
	if fg.gen.Config.JITMode {
		addr, _ := fg.acquireScratch(regalloc.GP)
		fg.stream.LDRImm(addr.reg, "X19", uint16(e.SlotOffset/8), 64)
		fg.stream.BLR(addr.reg)
		fg.release(addr)
	} else {
		fg.stream.BL(e.Name)
	}
	return e.Return.IsFloat()
}

// saveCallerSaved spills every register in regs to a fresh area below
// SP, for the duration of a call site; restoreCallerSaved reverses it.
// Each slot is addressed by LDUR/STUR's signed 9-bit immediate, which
// assumes fewer than ~32 simultaneously-live scratch registers — in
// practice this expression lowering never holds that many at once.
func (fg *funcGen) saveCallerSaved(regs []string) {
	if len(regs) == 0 {
		return
	}
	size := callSaveRound16(len(regs) * 8)
	fg.stream.SUBImm("SP", "SP", uint16(size))
	for i, r := range regs {
		fg.stream.STUR(r, "SP", i*8, 64)
	}
}

func (fg *funcGen) restoreCallerSaved(regs []string) {
	if len(regs) == 0 {
		return
	}
	for i, r := range regs {
		fg.stream.LDUR(r, "SP", i*8, 64)
	}
	size := callSaveRound16(len(regs) * 8)
	fg.stream.ADDImm("SP", "SP", uint16(size))
}

func callSaveRound16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}
