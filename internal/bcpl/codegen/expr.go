package codegen

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
)

// value is the result of lowering one expression: a register holding
// it, which pool it came from, and whether the caller owns it (must
// release it through the Manager once done). A variable already bound
// to a register by the linear-scan allocator is returned un-owned —
// reading it costs nothing, and the caller must never write through
// it or release it, since doing either would corrupt the live
// variable (spec.md §4.9: "if in-register, rename directly").
type value struct {
	reg     string
	kind    regalloc.Kind
	scratch regalloc.ScratchHandle
	owned   bool
}

func (fg *funcGen) acquireScratch(kind regalloc.Kind) (value, error) {
	h, err := fg.mgr.AcquireScratchReg(kind)
	if err != nil {
		return value{}, errors.Wrapf(err, "codegen: function %s", fg.plan.Name)
	}
	return value{reg: h.Reg, kind: kind, scratch: h, owned: true}, nil
}

func (fg *funcGen) release(v value) {
	if !v.owned {
		return
	}
	fg.mgr.ReleaseScratch(v.scratch)
}

// condForOp maps a comparison BinaryOperator to its AArch64 condition
// mnemonic, shared by binary-op lowering (CMP+CSET) and
// ConditionalBranchStatement lowering (CMP+B.cond).
func condForOp(op ast.BinaryOperator) string {
	switch op {
	case ast.OpEq:
		return "EQ"
	case ast.OpNe:
		return "NE"
	case ast.OpLt:
		return "LT"
	case ast.OpLe:
		return "LE"
	case ast.OpGt:
		return "GT"
	case ast.OpGe:
		return "GE"
	default:
		return "EQ"
	}
}

// emitIntoGP materializes a 64-bit integer literal into reg with a
// minimal MOVZ/MOVK sequence: a single MOVZ when v fits in 16
// unsigned bits, otherwise a full four-instruction load (spec.md
// §4.9: "MOVZ/MOVK sequence into a newly acquired register").
func (fg *funcGen) emitIntoGP(reg string, v int64) {
	u := uint64(v)
	if v >= 0 && u <= 0xFFFF {
		fg.stream.MOVZ(reg, uint16(u), 0)
		return
	}
	fg.stream.MOVZ(reg, uint16(u), 0)
	fg.stream.MOVK(reg, uint16(u>>16), 1)
	fg.stream.MOVK(reg, uint16(u>>32), 2)
	fg.stream.MOVK(reg, uint16(u>>48), 3)
}

// frameAccessWidth is always 64: every frame slot holds either a
// 64-bit integer/pointer or a double, never a packed char (chars live
// only inside a string literal's rodata record).
const frameAccessWidth = 64

// frameLoad reads name's frame slot into reg, using the compact
// LDUR/STUR unscaled-immediate form when the offset fits its 9-bit
// signed range and falling back to an explicit address computation
// otherwise (spec.md §4.7 offsets run as deep as the frame is large,
// well past LDUR's ±256-byte reach for any sizeable function).
func (fg *funcGen) frameLoad(reg, name string) error {
	off, err := fg.plan.Frame.GetOffset(name)
	if err != nil {
		return err
	}
	return fg.emitFrameAccess(reg, off, true)
}

// frameStore writes reg into name's frame slot.
func (fg *funcGen) frameStore(reg, name string) error {
	off, err := fg.plan.Frame.GetOffset(name)
	if err != nil {
		return err
	}
	return fg.emitFrameAccess(reg, off, false)
}

func (fg *funcGen) emitFrameAccess(reg string, offset int, isLoad bool) error {
	s := fg.stream
	if offset >= -256 && offset <= 255 {
		if isLoad {
			s.LDUR(reg, "X29", offset, frameAccessWidth)
		} else {
			s.STUR(reg, "X29", offset, frameAccessWidth)
		}
		return nil
	}

	addr, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return err
	}
	if offset < 0 {
		fg.emitIntoGP(addr.reg, int64(-offset))
		s.SUBReg(addr.reg, "X29", addr.reg)
	} else {
		fg.emitIntoGP(addr.reg, int64(offset))
		s.ADDReg(addr.reg, "X29", addr.reg)
	}
	if isLoad {
		s.LDRImm(reg, addr.reg, 0, frameAccessWidth)
	} else {
		s.STRImm(reg, addr.reg, 0, frameAccessWidth)
	}
	fg.release(addr)
	return nil
}

// emitExpr lowers e, returning the value it evaluates to.
func (fg *funcGen) emitExpr(e ast.Expr) (value, error) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		v, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.emitIntoGP(v.reg, n.Value)
		return v, nil

	case *ast.CharLiteral:
		v, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.emitIntoGP(v.reg, int64(n.Value))
		return v, nil

	case *ast.FloatLiteral:
		return fg.emitFloatLiteral(n.Value)

	case *ast.StringLiteral:
		v, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		lbl := fg.gen.Lits.String(n.Value)
		fg.stream.ADRP(v.reg, lbl)
		fg.stream.ADDImmReloc(v.reg, v.reg, lbl)
		return v, nil

	case *ast.VariableAccess:
		return fg.emitVariableAccess(n.Name)

	case *ast.BinaryOp:
		return fg.emitBinaryOp(n)

	case *ast.UnaryOp:
		return fg.emitUnaryOp(n)

	case *ast.ShiftExpr:
		return fg.emitShiftExpr(n)

	case *ast.VectorAccess:
		return fg.emitVectorAccess(n)

	case *ast.CharIndirection:
		return fg.emitCharIndirection(n)

	case *ast.FloatVectorIndirection:
		return fg.emitFloatVectorIndirection(n)

	case *ast.BitfieldAccess:
		return fg.emitBitfieldAccess(n)

	case *ast.FunctionCall:
		return fg.emitCall(n.Callee, n.Args)

	case *ast.ConditionalExpression:
		return fg.emitConditionalExpression(n)

	case *ast.VecAllocationExpression:
		return fg.emitCall("ALLOC", []ast.Expr{n.Size})

	case *ast.ListExpression:
		return fg.emitListExpression(n)

	case *ast.TableExpression:
		return fg.emitTableExpression(n)

	case *ast.ValofExpression:
		return fg.emitValof(n)

	default:
		return value{}, errors.Errorf("codegen: unsupported expression %T", e)
	}
}

func (fg *funcGen) emitFloatLiteral(v float64) (value, error) {
	dst, err := fg.acquireScratch(regalloc.FP)
	if err != nil {
		return value{}, err
	}
	lbl := fg.gen.Lits.Float(v)
	addr, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.stream.ADRP(addr.reg, lbl)
	fg.stream.ADDImmReloc(addr.reg, addr.reg, lbl)
	fg.stream.LDRImm(dst.reg, addr.reg, 0, 64)
	fg.release(addr)
	return dst, nil
}

// emitVariableAccess resolves name per spec.md §4.9's lookup chain: a
// register the allocator bound for the whole function (renamed, no
// copy), a spilled slot (load into a fresh scratch register), a
// manifest constant (materialize via MOVZ/MOVK), or a global (load
// through X28 at its fixed data-segment offset).
func (fg *funcGen) emitVariableAccess(name string) (value, error) {
	if d, ok := fg.plan.Decisions[name]; ok {
		if !d.Spilled {
			return value{reg: d.Register, kind: regalloc.KindOf(fg.plan.typeOf(name))}, nil
		}
		kind := regalloc.KindOf(fg.plan.typeOf(name))
		v, err := fg.acquireScratch(kind)
		if err != nil {
			return value{}, err
		}
		if err := fg.frameLoad(v.reg, name); err != nil {
			return value{}, err
		}
		return v, nil
	}

	if n, ok := fg.plan.ManifestValue(name); ok {
		v, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.emitIntoGP(v.reg, n)
		return v, nil
	}

	if off, t, ok := fg.plan.GlobalOffset(name); ok {
		kind := regalloc.KindOf(t)
		v, err := fg.acquireScratch(kind)
		if err != nil {
			return value{}, err
		}
		fg.emitGlobalAccess(v.reg, off, true)
		return v, nil
	}

	return value{}, errors.Errorf("codegen: function %s: unresolved variable %q", fg.plan.Name, name)
}

// emitGlobalAccess loads (or, with isLoad false, stores) reg at X28 +
// off, splitting the immediate across ADD/SUB + LDR/STR when it
// exceeds a single 12-bit scaled offset (spec.md §4.9.2: globals are
// always reached through X28, never the frame pointer).
func (fg *funcGen) emitGlobalAccess(reg string, off int64, isLoad bool) {
	s := fg.stream
	if off >= 0 && off/8 <= 0xFFF && off%8 == 0 {
		if isLoad {
			s.LDRImm(reg, "X28", uint16(off/8), 64)
		} else {
			s.STRImm(reg, "X28", uint16(off/8), 64)
		}
		return
	}
	addr, _ := fg.acquireScratch(regalloc.GP)
	fg.emitIntoGP(addr.reg, off)
	s.ADDReg(addr.reg, "X28", addr.reg)
	if isLoad {
		s.LDRImm(reg, addr.reg, 0, 64)
	} else {
		s.STRImm(reg, addr.reg, 0, 64)
	}
	fg.release(addr)
}

// emitBinaryOp evaluates both operands, promoting an integer operand
// to float with SCVTF when the other is float (spec.md §4.9), then
// emits the operator: a CMP/FCMP+CSET for comparisons (always integer
// result), otherwise the matching arithmetic instruction.
func (fg *funcGen) emitBinaryOp(n *ast.BinaryOp) (value, error) {
	left, err := fg.emitExpr(n.Left)
	if err != nil {
		return value{}, err
	}
	right, err := fg.emitExpr(n.Right)
	if err != nil {
		return value{}, err
	}

	if left.kind == regalloc.FP || right.kind == regalloc.FP {
		left, right, err = fg.promoteToFloat(left, right)
		if err != nil {
			return value{}, err
		}
	}

	if n.Op.IsComparison() {
		return fg.emitComparison(n.Op, left, right)
	}
	return fg.emitArithmetic(n.Op, left, right)
}

// promoteToFloat converts whichever of left/right is still integer
// into a freshly acquired FP register via SCVTF, releasing the
// integer scratch it replaces.
func (fg *funcGen) promoteToFloat(left, right value) (value, value, error) {
	conv := func(v value) (value, error) {
		if v.kind == regalloc.FP {
			return v, nil
		}
		dst, err := fg.acquireScratch(regalloc.FP)
		if err != nil {
			return value{}, err
		}
		fg.stream.SCVTF(dst.reg, v.reg)
		fg.release(v)
		return dst, nil
	}
	l, err := conv(left)
	if err != nil {
		return value{}, value{}, err
	}
	r, err := conv(right)
	if err != nil {
		return value{}, value{}, err
	}
	return l, r, nil
}

func (fg *funcGen) emitComparison(op ast.BinaryOperator, left, right value) (value, error) {
	if left.kind == regalloc.FP {
		fg.stream.FCMP(left.reg, right.reg)
	} else {
		fg.stream.CMPReg(left.reg, right.reg)
	}
	fg.release(left)
	fg.release(right)
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.stream.CSET(dst.reg, condForOp(op))
	return dst, nil
}

func (fg *funcGen) emitArithmetic(op ast.BinaryOperator, left, right value) (value, error) {
	s := fg.stream
	if left.kind == regalloc.FP {
		dst, err := fg.acquireScratch(regalloc.FP)
		if err != nil {
			return value{}, err
		}
		switch op {
		case ast.OpAdd:
			s.FADD(dst.reg, left.reg, right.reg)
		case ast.OpSub:
			s.FSUB(dst.reg, left.reg, right.reg)
		case ast.OpMul:
			s.FMUL(dst.reg, left.reg, right.reg)
		case ast.OpDiv:
			s.FDIV(dst.reg, left.reg, right.reg)
		default:
			fg.release(dst)
			return value{}, errors.Errorf("codegen: operator %s not supported on floats", op)
		}
		fg.release(left)
		fg.release(right)
		return dst, nil
	}

	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	switch op {
	case ast.OpAdd:
		s.ADDReg(dst.reg, left.reg, right.reg)
	case ast.OpSub:
		s.SUBReg(dst.reg, left.reg, right.reg)
	case ast.OpMul:
		s.MUL(dst.reg, left.reg, right.reg)
	case ast.OpDiv:
		s.SDIV(dst.reg, left.reg, right.reg)
	case ast.OpMod:
		s.SDIV(dst.reg, left.reg, right.reg)
		s.MUL(dst.reg, dst.reg, right.reg)
		s.SUBReg(dst.reg, left.reg, dst.reg)
	case ast.OpAnd:
		s.ANDReg(dst.reg, left.reg, right.reg)
	case ast.OpOr:
		s.ORRReg(dst.reg, left.reg, right.reg)
	case ast.OpXor:
		s.EORReg(dst.reg, left.reg, right.reg)
	case ast.OpShiftLeft:
		s.LSLReg(dst.reg, left.reg, right.reg)
	case ast.OpShiftRight:
		s.LSRReg(dst.reg, left.reg, right.reg)
	default:
		fg.release(dst)
		return value{}, errors.Errorf("codegen: unsupported binary operator %s", op)
	}
	fg.release(left)
	fg.release(right)
	return dst, nil
}

// emitUnaryOp lowers negation, logical-not, address-of, indirection,
// LENGTHOF, and HD/TL (spec.md §4.9; HD/TL reuse the list-node header
// layout's offset-16 `head` field).
func (fg *funcGen) emitUnaryOp(n *ast.UnaryOp) (value, error) {
	switch n.Op {
	case ast.OpNeg:
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		if operand.kind == regalloc.FP {
			zero, err := fg.acquireScratch(regalloc.FP)
			if err != nil {
				return value{}, err
			}
			fg.stream.FSUB(zero.reg, zero.reg, zero.reg) // 0.0
			dst, err := fg.acquireScratch(regalloc.FP)
			if err != nil {
				return value{}, err
			}
			fg.stream.FSUB(dst.reg, zero.reg, operand.reg)
			fg.release(zero)
			fg.release(operand)
			return dst, nil
		}
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.SUBReg(dst.reg, "XZR", operand.reg)
		fg.release(operand)
		return dst, nil

	case ast.OpNot:
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		fg.stream.CMPImm(operand.reg, 0)
		fg.release(operand)
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.CSET(dst.reg, "EQ")
		return dst, nil

	case ast.OpAddressOf:
		return fg.emitAddressOf(n.Operand)

	case ast.OpIndirect:
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.LDRImm(dst.reg, operand.reg, 0, 64)
		fg.release(operand)
		return dst, nil

	case ast.OpLengthOf:
		// Every container's length word sits at offset 0 (spec.md §6).
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.LDRImm(dst.reg, operand.reg, 0, 64)
		fg.release(operand)
		return dst, nil

	case ast.OpHeadOf:
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.LDRImm(dst.reg, operand.reg, 2, 64) // offset 16 / 8
		fg.release(operand)
		return dst, nil

	case ast.OpTailOf:
		operand, err := fg.emitExpr(n.Operand)
		if err != nil {
			return value{}, err
		}
		dst, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.LDRImm(dst.reg, operand.reg, 3, 64) // offset 24 / 8: node's next-pointer
		fg.release(operand)
		return dst, nil

	default:
		return value{}, errors.Errorf("codegen: unsupported unary operator %s", n.Op)
	}
}

// emitAddressOf handles `@v`: a register-bound variable has no memory
// address, so `@` is only valid on a variable the allocator already
// decided to spill (linear-scan must force every address-taken
// variable to spill before codegen runs — see DESIGN.md's codegen
// entry). Frame layout is already finalized by the time any block is
// emitted, so this looks the slot up rather than acquiring a fresh
// one.
func (fg *funcGen) emitAddressOf(operand ast.Expr) (value, error) {
	va, ok := operand.(*ast.VariableAccess)
	if !ok {
		return value{}, errors.New("codegen: @ operand must be a variable")
	}
	d, ok := fg.plan.Decisions[va.Name]
	if !ok || !d.Spilled {
		return value{}, errors.Errorf("codegen: function %s: @%s taken on a register-resident variable (allocator must force a spill)", fg.plan.Name, va.Name)
	}
	off, err := fg.plan.Frame.GetOffset(va.Name)
	if err != nil {
		return value{}, err
	}
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	// Every spill slot sits at a negative fp-relative offset (frame.go's
	// layout always assigns `-8*idx`), so this is always a SUB.
	if off >= -4095 && off <= 0 {
		fg.stream.SUBImm(dst.reg, "X29", uint16(-off))
	} else {
		fg.emitIntoGP(dst.reg, int64(-off))
		fg.stream.SUBReg(dst.reg, "X29", dst.reg)
	}
	return dst, nil
}

func (fg *funcGen) emitShiftExpr(n *ast.ShiftExpr) (value, error) {
	operand, err := fg.emitExpr(n.Operand)
	if err != nil {
		return value{}, err
	}
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	amount, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.emitIntoGP(amount.reg, int64(n.Amount))
	fg.stream.LSLReg(dst.reg, operand.reg, amount.reg)
	fg.release(amount)
	fg.release(operand)
	return dst, nil
}

// emitVectorAccess lowers `v!i`: every slot is a full 64-bit word
// regardless of element type (spec.md §4.9), addressed with the
// immediate form when i is a literal and the register-offset form
// otherwise.
func (fg *funcGen) emitVectorAccess(n *ast.VectorAccess) (value, error) {
	base, err := fg.emitExpr(n.Vector)
	if err != nil {
		return value{}, err
	}
	kind := regalloc.KindOf(n.ElementType)
	dst, err := fg.acquireScratch(kind)
	if err != nil {
		return value{}, err
	}
	if err := fg.emitIndexedAccess(dst.reg, base.reg, n.Index, 64, true); err != nil {
		return value{}, err
	}
	fg.release(base)
	return dst, nil
}

func (fg *funcGen) emitFloatVectorIndirection(n *ast.FloatVectorIndirection) (value, error) {
	base, err := fg.emitExpr(n.Vector)
	if err != nil {
		return value{}, err
	}
	dst, err := fg.acquireScratch(regalloc.FP)
	if err != nil {
		return value{}, err
	}
	if err := fg.emitIndexedAccess(dst.reg, base.reg, n.Index, 64, true); err != nil {
		return value{}, err
	}
	fg.release(base)
	return dst, nil
}

// emitCharIndirection lowers `s%i`: the codepoint array starts after
// the 8-byte length prefix, and each element is 32 bits wide
// (spec.md §3/§6).
func (fg *funcGen) emitCharIndirection(n *ast.CharIndirection) (value, error) {
	base, err := fg.emitExpr(n.String)
	if err != nil {
		return value{}, err
	}
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	arr, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.stream.ADDImm(arr.reg, base.reg, 8)
	if err := fg.emitIndexedAccess(dst.reg, arr.reg, n.Index, 32, true); err != nil {
		return value{}, err
	}
	fg.release(arr)
	fg.release(base)
	return dst, nil
}

// emitIndexedAccess loads (or stores, with isLoad false) reg at
// base[index], using LDRImm's scaled immediate form for a compile-time
// literal index and LDRReg's register-offset form otherwise.
func (fg *funcGen) emitIndexedAccess(reg, base string, index ast.Expr, width int, isLoad bool) error {
	if lit, ok := index.(*ast.IntLiteral); ok && lit.Value >= 0 && lit.Value <= 0xFFF {
		if isLoad {
			fg.stream.LDRImm(reg, base, uint16(lit.Value), width)
		} else {
			fg.stream.STRImm(reg, base, uint16(lit.Value), width)
		}
		return nil
	}
	idx, err := fg.emitExpr(index)
	if err != nil {
		return err
	}
	if isLoad {
		fg.stream.LDRReg(reg, base, idx.reg, width)
	} else {
		fg.stream.STRReg(reg, base, idx.reg, width)
	}
	fg.release(idx)
	return nil
}

// emitBitfieldAccess emits a single UBFX when start/width are both
// compile-time literals, falling back to LSR+AND otherwise (spec.md
// §4.9).
func (fg *funcGen) emitBitfieldAccess(n *ast.BitfieldAccess) (value, error) {
	base, err := fg.emitExpr(n.Base)
	if err != nil {
		return value{}, err
	}
	startLit, startOK := n.Start.(*ast.IntLiteral)
	widthLit, widthOK := n.Width.(*ast.IntLiteral)
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	if startOK && widthOK {
		fg.stream.UBFX(dst.reg, base.reg, int(startLit.Value), int(widthLit.Value))
		fg.release(base)
		return dst, nil
	}

	start, err := fg.emitExpr(n.Start)
	if err != nil {
		return value{}, err
	}
	width, err := fg.emitExpr(n.Width)
	if err != nil {
		return value{}, err
	}
	fg.stream.LSRReg(dst.reg, base.reg, start.reg)
	mask, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.emitIntoGP(mask.reg, 1)
	fg.stream.LSLReg(mask.reg, mask.reg, width.reg)
	fg.emitIntoGP2(mask.reg, mask.reg, -1) // (1<<width) - 1
	fg.stream.ANDReg(dst.reg, dst.reg, mask.reg)
	fg.release(mask)
	fg.release(start)
	fg.release(width)
	fg.release(base)
	return dst, nil
}

// emitIntoGP2 computes reg = reg + delta via SUBImm/ADDImm, used for
// the bitfield fallback's `(1<<width) - 1` mask construction.
func (fg *funcGen) emitIntoGP2(dst, src string, delta int) {
	if delta < 0 {
		fg.stream.SUBImm(dst, src, uint16(-delta))
		return
	}
	fg.stream.ADDImm(dst, src, uint16(delta))
}

func (fg *funcGen) emitConditionalExpression(n *ast.ConditionalExpression) (value, error) {
	cond, err := fg.emitExpr(n.Cond)
	if err != nil {
		return value{}, err
	}
	fg.stream.CMPReg(cond.reg, "XZR")
	fg.release(cond)

	elseLabel := fg.uniqueLabel("ternary_else")
	joinLabel := fg.uniqueLabel("ternary_join")
	fg.stream.BCond("EQ", elseLabel)

	thenVal, err := fg.emitExpr(n.Then)
	if err != nil {
		return value{}, err
	}
	dst, err := fg.acquireScratch(thenVal.kind)
	if err != nil {
		return value{}, err
	}
	fg.moveInto(dst.reg, thenVal)
	fg.stream.B(joinLabel)

	fg.stream.Label(elseLabel)
	elseVal, err := fg.emitExpr(n.Else)
	if err != nil {
		return value{}, err
	}
	fg.moveInto(dst.reg, elseVal)

	fg.stream.Label(joinLabel)
	return dst, nil
}

// moveInto copies v's value into dst (a register already acquired by
// the caller) and releases v if the caller owned it.
func (fg *funcGen) moveInto(dst string, v value) {
	if v.reg != dst {
		if v.kind == regalloc.FP {
			fg.stream.FMOV(dst, v.reg)
		} else {
			fg.stream.ORRReg(dst, "XZR", v.reg)
		}
	}
	fg.release(v)
}

// uniqueLabel returns a label scoped to this function and distinct
// from every block label, built from fg's running counter.
func (fg *funcGen) uniqueLabel(tag string) string {
	fg.valofCounter++
	return fg.plan.Name + "_" + tag + "_" + itoa(fg.valofCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
