package codegen

import (
	"math"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// emitListExpression lowers LIST(...) into a right-to-left chain of
// LIST_PREPEND runtime calls starting from the empty list MAKE_LIST()
// returns, each element boxed with its runtime atom tag (spec.md §6's
// tagged-atom layout is what lets AS_INT/AS_FLOAT/AS_STRING/AS_LIST
// check a value's dynamic type at extraction time).
func (fg *funcGen) emitListExpression(n *ast.ListExpression) (value, error) {
	head, err := fg.emitCall("MAKE_LIST", nil)
	if err != nil {
		return value{}, err
	}

	for i := len(n.Elements) - 1; i >= 0; i-- {
		elem := n.Elements[i]
		ev, err := fg.emitExpr(elem)
		if err != nil {
			return value{}, err
		}
		tag, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.emitIntoGP(tag.reg, int64(types.TagFor(fg.literalElementType(elem))))

		gpIdx, fpIdx := 0, 0
		for _, target := range []value{ev, tag, head} {
			var dst string
			if target.kind == regalloc.FP {
				dst = fpArgRegs[fpIdx]
				fpIdx++
			} else {
				dst = gpArgRegs[gpIdx]
				gpIdx++
			}
			fg.moveInto(dst, target)
		}

		saved := fg.mgr.InUseCallerSaved()
		fg.saveCallerSaved(saved)
		retFloat, err := fg.emitDispatch("LIST_PREPEND")
		if err != nil {
			return value{}, err
		}
		fg.restoreCallerSaved(saved)
		_ = retFloat

		head, err = fg.acquireScratch(regalloc.GP)
		if err != nil {
			return value{}, err
		}
		fg.stream.ORRReg(head.reg, "XZR", "X0")
	}

	return head, nil
}

// literalElementType answers a list element's runtime tag type: the
// literal kinds carry it directly, a variable carries it from its
// resolved type (sema fills VariableAccess.ResolvedType before
// codegen runs), and anything else defaults to Integer — good enough
// for the common case of a LIST of literals/variables this lowering
// targets (spec.md's Non-goals don't call for full type propagation
// through arbitrary sub-expressions here).
func (fg *funcGen) literalElementType(e ast.Expr) types.VarType {
	switch n := e.(type) {
	case *ast.IntLiteral, *ast.CharLiteral:
		return types.Integer
	case *ast.FloatLiteral:
		return types.Float
	case *ast.StringLiteral:
		return types.String
	case *ast.VariableAccess:
		if n.ResolvedType != types.Unknown {
			return n.ResolvedType
		}
	case *ast.ListExpression:
		return types.PointerToListNode
	}
	return types.Integer
}

// emitTableExpression lowers TABLE(...) into a rodata record of
// compile-time constant words (spec.md §4.9): every element must
// already be a literal, since a TABLE's whole point is to be a
// compiled constant rather than a runtime-built structure like LIST.
func (fg *funcGen) emitTableExpression(n *ast.TableExpression) (value, error) {
	words := make([]uint64, len(n.Elements))
	for i, e := range n.Elements {
		switch lit := e.(type) {
		case *ast.IntLiteral:
			words[i] = uint64(lit.Value)
		case *ast.CharLiteral:
			words[i] = uint64(lit.Value)
		case *ast.FloatLiteral:
			words[i] = math.Float64bits(lit.Value)
		default:
			return value{}, errors.Errorf("codegen: function %s: TABLE element %d is not a compile-time constant", fg.plan.Name, i)
		}
	}
	lbl := fg.gen.Lits.Table(words)
	dst, err := fg.acquireScratch(regalloc.GP)
	if err != nil {
		return value{}, err
	}
	fg.stream.ADRP(dst.reg, lbl)
	fg.stream.ADDImmReloc(dst.reg, dst.reg, lbl)
	return dst, nil
}
