package codegen

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
)

// emitTerminator emits blk's control-flow exit: either the generic
// one-or-two-successor branch a structural construct (IF/WHILE/FOR/
// BREAK/...) needs, the SWITCHON compare-and-branch chain, or (when
// last is nil) the unconditional fallthrough to blk's sole successor
// that cfg.finalize() guarantees exists for a block with no terminator
// statement of its own.
func (fg *funcGen) emitTerminator(blk *cfg.Block, last interface{}) error {
	if blk.Kind == cfg.KindSwitch {
		return fg.emitSwitchTerminator(blk)
	}

	switch n := last.(type) {
	case nil:
		return fg.emitFallthrough(blk)

	case *ast.IfStatement:
		return fg.emitIfTerminator(blk, n)

	case *ast.WhileStatement:
		return fg.emitWhileTerminator(blk, n)

	case *ast.ForStatement:
		return fg.emitForTerminator(blk, n)

	case *ast.ConditionalBranchStatement:
		return fg.emitConditionalBranchTerminator(blk, n)

	case *ast.ReturnStatement:
		return fg.emitReturnLike(blk, nil)

	case *ast.FinishStatement:
		if _, err := fg.emitCall("FINISH", nil); err != nil {
			return err
		}
		return fg.branchTo(blk.Succs[0])

	case *ast.ResultisStatement:
		return fg.emitReturnLike(blk, n.Value)

	case *ast.GotoStatement:
		return fg.branchTo(blk.Succs[0])

	case *ast.BreakStatement, *ast.LoopStatement, *ast.EndcaseStatement:
		return fg.branchTo(blk.Succs[0])

	case *ast.ForeachStatement:
		return errors.Errorf("codegen: function %s, block %d: FOREACH must be lowered to a ConditionalBranchStatement before codegen runs", fg.plan.Name, blk.ID)

	case *ast.SwitchonStatement:
		return fg.emitSwitchTerminator(blk)

	default:
		return errors.Errorf("codegen: function %s, block %d: unrecognized terminator statement %T", fg.plan.Name, blk.ID, last)
	}
}

// emitFallthrough emits an unconditional branch to blk's sole
// successor, used for a block whose last statement isn't itself a
// terminator (the builder's generic fallthrough case, e.g. a bare
// REPEAT's header or a plain statement ending a block mid-function).
func (fg *funcGen) emitFallthrough(blk *cfg.Block) error {
	if len(blk.Succs) == 0 {
		return errors.Errorf("codegen: function %s, block %d: no successor and no terminator statement", fg.plan.Name, blk.ID)
	}
	return fg.branchTo(blk.Succs[0])
}

func (fg *funcGen) branchTo(target *cfg.Block) error {
	fg.stream.B(fg.blockLabel(target.ID))
	return nil
}

// emitCondBranch evaluates cond, branches to falseTarget when it's
// zero (BCond EQ against 0, i.e. "condition false"), and falls through
// — via an explicit unconditional branch, since this package never
// relies on physical block adjacency — to trueTarget.
func (fg *funcGen) emitCondBranch(cond ast.Expr, trueTarget, falseTarget *cfg.Block) error {
	v, err := fg.emitExpr(cond)
	if err != nil {
		return err
	}
	fg.stream.CMPImm(v.reg, 0)
	fg.release(v)
	fg.stream.BCond("EQ", fg.blockLabel(falseTarget.ID))
	return fg.branchTo(trueTarget)
}

// emitIfTerminator lowers IfStatement per cfg/builder.go's
// processIf: Succs[0] is always the then-block, Succs[1] is always
// the else-block (or, absent an ELSE, the join block) — Negate (for
// UNLESS) swaps which branch is taken, not the successor order.
func (fg *funcGen) emitIfTerminator(blk *cfg.Block, n *ast.IfStatement) error {
	if len(blk.Succs) != 2 {
		return errors.Errorf("codegen: function %s, block %d: IF terminator needs 2 successors, has %d", fg.plan.Name, blk.ID, len(blk.Succs))
	}
	thenTarget, elseTarget := blk.Succs[0], blk.Succs[1]
	if n.Negate {
		thenTarget, elseTarget = elseTarget, thenTarget
	}
	return fg.emitCondBranch(n.Cond, thenTarget, elseTarget)
}

// emitWhileTerminator lowers every WhileStatement kind (cfg/builder.go
// links Succs[0] to the body, Succs[1] to the loop's exit, for all
// four pretested/post-tested WHILE/UNTIL kinds alike). WHILE/REPEAT-
// WHILE continue on a true condition; UNTIL/REPEAT-UNTIL continue on a
// false one. A bare LoopRepeat header carries no condition and is
// never given a WhileStatement terminator by the builder, so it can't
// reach here.
func (fg *funcGen) emitWhileTerminator(blk *cfg.Block, n *ast.WhileStatement) error {
	if len(blk.Succs) != 2 {
		return errors.Errorf("codegen: function %s, block %d: loop terminator needs 2 successors, has %d", fg.plan.Name, blk.ID, len(blk.Succs))
	}
	bodyTarget, exitTarget := blk.Succs[0], blk.Succs[1]

	continueTarget, stopTarget := bodyTarget, exitTarget
	switch n.Kind {
	case ast.LoopWhile, ast.LoopRepeatWhile:
		// continue-on-true: already the default above
	case ast.LoopUntil, ast.LoopRepeatUntil:
		continueTarget, stopTarget = stopTarget, continueTarget
	default:
		return errors.Errorf("codegen: function %s, block %d: loop kind %v has no condition to lower", fg.plan.Name, blk.ID, n.Kind)
	}
	return fg.emitCondBranch(n.Cond, continueTarget, stopTarget)
}

// emitForTerminator lowers FOR's header test. This generator only
// supports ascending FOR loops (spec.md's BY defaults to +1 and the
// common case is ascending): the test is a signed comparison of the
// loop variable against EndVar with B.LE continuing into the body —
// a descending FOR (negative BY) would need B.GE instead, which this
// lowering does not detect or special-case.
func (fg *funcGen) emitForTerminator(blk *cfg.Block, n *ast.ForStatement) error {
	if len(blk.Succs) != 2 {
		return errors.Errorf("codegen: function %s, block %d: FOR terminator needs 2 successors, has %d", fg.plan.Name, blk.ID, len(blk.Succs))
	}
	bodyTarget, exitTarget := blk.Succs[0], blk.Succs[1]

	varName := n.Var
	if n.UniqueVar != "" {
		varName = n.UniqueVar
	}
	cur, err := fg.emitVariableAccess(varName)
	if err != nil {
		return err
	}
	end, err := fg.emitVariableAccess(n.EndVar)
	if err != nil {
		return err
	}
	fg.stream.CMPReg(cur.reg, end.reg)
	fg.release(cur)
	fg.release(end)
	fg.stream.BCond("LE", fg.blockLabel(bodyTarget.ID))
	return fg.branchTo(exitTarget)
}

// emitConditionalBranchTerminator lowers the CFG builder's synthesized
// low-level comparison (FOREACH header tests): Succs[0] is the true
// target, Succs[1] the false target.
func (fg *funcGen) emitConditionalBranchTerminator(blk *cfg.Block, n *ast.ConditionalBranchStatement) error {
	if len(blk.Succs) != 2 {
		return errors.Errorf("codegen: function %s, block %d: conditional branch needs 2 successors, has %d", fg.plan.Name, blk.ID, len(blk.Succs))
	}
	left, err := fg.emitExpr(n.Left)
	if err != nil {
		return err
	}
	right, err := fg.emitExpr(n.Right)
	if err != nil {
		return err
	}
	fg.stream.CMPReg(left.reg, right.reg)
	fg.release(left)
	fg.release(right)
	fg.stream.BCond(condForOp(n.Op), fg.blockLabel(blk.Succs[0].ID))
	return fg.branchTo(blk.Succs[1])
}

// emitSwitchTerminator lowers a SWITCHON header as a linear
// compare-and-branch chain in CASE source order (SPEC_FULL.md §9,
// Open Question #1), falling through to DEFAULT (or directly the join
// block, absent one) when no CASE matches — blk.Succs mirrors
// blk.Cases order with one final fallback entry, per cfg/builder.go.
func (fg *funcGen) emitSwitchTerminator(blk *cfg.Block) error {
	if len(blk.Succs) != len(blk.Cases)+1 {
		return errors.Errorf("codegen: function %s, block %d: SWITCHON has %d cases but %d successors", fg.plan.Name, blk.ID, len(blk.Cases), len(blk.Succs))
	}
	sw, ok := lastSwitchonStatement(blk)
	if !ok {
		return errors.Errorf("codegen: function %s, block %d: SWITCHON block has no SwitchonStatement", fg.plan.Name, blk.ID)
	}
	sel, err := fg.emitExpr(sw.Selector)
	if err != nil {
		return err
	}
	for i, ce := range blk.Cases {
		val, err := fg.acquireScratch(sel.kind)
		if err != nil {
			return err
		}
		fg.emitIntoGP(val.reg, ce.Value)
		fg.stream.CMPReg(sel.reg, val.reg)
		fg.release(val)
		fg.stream.BCond("EQ", fg.blockLabel(blk.Succs[i].ID))
	}
	fg.release(sel)
	return fg.branchTo(blk.Succs[len(blk.Succs)-1])
}

func lastSwitchonStatement(blk *cfg.Block) (*ast.SwitchonStatement, bool) {
	if len(blk.Statements) == 0 {
		return nil, false
	}
	sw, ok := blk.Statements[len(blk.Statements)-1].(*ast.SwitchonStatement)
	return sw, ok
}

// emitReturnLike lowers RETURN (resultExpr nil, a routine's exit) and
// RESULTIS (resultExpr set, a function's exit): a function's result
// moves into X0 or D0 per ReturnsFloat, then both branch to the exit
// block, which emitBlock always renders as a plain branch to the
// shared epilogue label (spec.md §4.7).
func (fg *funcGen) emitReturnLike(blk *cfg.Block, resultExpr ast.Expr) error {
	if resultExpr != nil {
		v, err := fg.emitExpr(resultExpr)
		if err != nil {
			return err
		}
		if fg.plan.ReturnsFloat {
			fg.moveInto("D0", v)
		} else {
			fg.moveInto("X0", v)
		}
	}
	if len(blk.Succs) == 0 {
		return errors.Errorf("codegen: function %s, block %d: RETURN/RESULTIS has no successor", fg.plan.Name, blk.ID)
	}
	return fg.branchTo(blk.Succs[0])
}
