package optimize

import "github.com/albanread/bcplc-go/internal/bcpl/ast"

// lowerShortCircuit rewrites an IfStatement whose condition is a `&` or
// `|` expression into nested IfStatements testing each operand
// separately, per SPEC_FULL.md §9's adoption of the Design Notes
// suggestion: this moves short-circuit evaluation out of the code
// generator and into the optimizer, so liveness sees each operand's
// evaluation as belonging to a distinct block.
//
//	IF a & b THEN S        =>  IF a THEN (IF b THEN S)
//	IF a | b THEN S        =>  IF a THEN S ELSE (IF b THEN S)
//	UNLESS a & b THEN S    =>  unchanged (a negated condition is not split)
//
// Only applied to IfStatement; WHILE/UNTIL headers keep their combined
// condition (hoisting them would require synthesizing new control flow
// at the AST level beyond what this pass does — see DESIGN.md).
func lowerShortCircuit(n *ast.IfStatement) ast.Stmt {
	bop, ok := n.Cond.(*ast.BinaryOp)
	if !ok || (bop.Op != ast.OpAnd && bop.Op != ast.OpOr) {
		return n
	}

	if n.Negate {
		// UNLESS (a & b) == IF NOT(a & b) == IF NOT a | NOT b; rather
		// than materialize a De Morgan rewrite, conservatively leave
		// UNLESS's combined condition as-is. This keeps the
		// transformation limited to the unambiguous IF/TEST case.
		return n
	}

	switch bop.Op {
	case ast.OpAnd:
		inner := &ast.IfStatement{Cond: bop.Right, Then: n.Then, Else: cloneStmt(n.Else)}
		return lowerShortCircuit(&ast.IfStatement{Cond: bop.Left, Then: inner, Else: n.Else})
	case ast.OpOr:
		inner := &ast.IfStatement{Cond: bop.Right, Then: cloneStmt(n.Then), Else: n.Else}
		return lowerShortCircuit(&ast.IfStatement{Cond: bop.Left, Then: n.Then, Else: inner})
	default:
		return n
	}
}

func cloneStmt(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	return s.Clone().(ast.Stmt)
}
