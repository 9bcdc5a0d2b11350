package codegen

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
)

// emitStmt lowers one non-terminator statement. Terminator statements
// (IF/WHILE/FOR/SWITCHON/RETURN/... — anything EndsWithControlFlow
// recognizes) never reach here: emitBlock strips the last statement
// off and hands it to emitTerminator instead.
func (fg *funcGen) emitStmt(st ast.Stmt) error {
	switch n := st.(type) {
	case *ast.AssignmentStatement:
		return fg.emitAssignment(n)
	case *ast.RoutineCallStatement:
		v, err := fg.emitCall(n.Callee, n.Args)
		if err != nil {
			return err
		}
		fg.release(v)
		return nil
	case *ast.FreeStatement:
		v, err := fg.emitCall("FREE", []ast.Expr{n.Operand})
		if err != nil {
			return err
		}
		fg.release(v)
		return nil
	case *ast.ExprStatement:
		v, err := fg.emitExpr(n.Value)
		if err != nil {
			return err
		}
		fg.release(v)
		return nil
	case *ast.BlockStatement:
		for _, sub := range n.Statements {
			if err := fg.emitStmt(sub); err != nil {
				return err
			}
		}
		return nil
	case *ast.LabelStatement:
		fg.stream.Label(fg.plan.Name + "_L_" + n.Label)
		return fg.emitStmt(n.Stmt)
	default:
		return errors.Errorf("codegen: function %s: statement kind %T is not a recognized non-terminator", fg.plan.Name, st)
	}
}

// emitAssignment dispatches on the LHS shape (spec.md §4.9): a plain
// variable stores directly to its bound register or frame slot; an
// indexed or indirection LHS evaluates its base/index and stores
// through the resulting address. rhs is already resting in a register
// by construction (every value is), so each arm stores straight out
// of rhs.reg and releases rhs afterward — releasing a no-op for an
// un-owned register-bound variable passed through as the RHS.
func (fg *funcGen) emitAssignment(n *ast.AssignmentStatement) error {
	rhs, err := fg.emitExpr(n.RHS)
	if err != nil {
		return err
	}

	switch lhs := n.LHS.(type) {
	case *ast.VariableAccess:
		return fg.storeVariable(lhs.Name, rhs)

	case *ast.VectorAccess:
		base, err := fg.emitExpr(lhs.Vector)
		if err != nil {
			return err
		}
		err = fg.emitIndexedAccess(rhs.reg, base.reg, lhs.Index, 64, false)
		fg.release(base)
		fg.release(rhs)
		return err

	case *ast.FloatVectorIndirection:
		base, err := fg.emitExpr(lhs.Vector)
		if err != nil {
			return err
		}
		err = fg.emitIndexedAccess(rhs.reg, base.reg, lhs.Index, 64, false)
		fg.release(base)
		fg.release(rhs)
		return err

	case *ast.CharIndirection:
		base, err := fg.emitExpr(lhs.String)
		if err != nil {
			return err
		}
		arr, err := fg.acquireScratch(regalloc.GP)
		if err != nil {
			return err
		}
		fg.stream.ADDImm(arr.reg, base.reg, 8)
		err = fg.emitIndexedAccess(rhs.reg, arr.reg, lhs.Index, 32, false)
		fg.release(arr)
		fg.release(base)
		fg.release(rhs)
		return err

	case *ast.UnaryOp:
		if lhs.Op != ast.OpIndirect {
			return errors.Errorf("codegen: function %s: unary operator %v is not a valid assignment target", fg.plan.Name, lhs.Op)
		}
		ptr, err := fg.emitExpr(lhs.Operand)
		if err != nil {
			return err
		}
		fg.stream.STRImm(rhs.reg, ptr.reg, 0, 64)
		fg.release(ptr)
		fg.release(rhs)
		return nil

	default:
		return errors.Errorf("codegen: function %s: %T is not a valid assignment target", fg.plan.Name, lhs)
	}
}

// storeVariable writes rhs into name's register or frame slot per the
// allocator's decision, or a global's data-segment slot, erroring if
// name resolves to neither (sema rejects assigning to a manifest
// constant long before codegen runs).
func (fg *funcGen) storeVariable(name string, rhs value) error {
	if d, ok := fg.plan.Decisions[name]; ok {
		if !d.Spilled {
			fg.moveInto(d.Register, rhs)
			return nil
		}
		err := fg.frameStore(rhs.reg, name)
		fg.release(rhs)
		return err
	}

	if off, _, ok := fg.plan.GlobalOffset(name); ok {
		fg.emitGlobalAccess(rhs.reg, off, false)
		fg.release(rhs)
		return nil
	}

	return errors.Errorf("codegen: function %s: %q is not an assignable variable", fg.plan.Name, name)
}
