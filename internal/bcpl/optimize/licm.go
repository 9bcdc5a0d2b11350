package optimize

import "github.com/albanread/bcplc-go/internal/bcpl/ast"

// hoistLoopInvariants implements spec.md §4.2's loop-invariant code
// motion: for a loop body's *top-level* statements, an assignment whose
// RHS mentions no variable defined anywhere else in the loop body is
// moved out ahead of the loop, into the slice that becomes the loop's
// pre-header once the CFG is built.
//
// Returns the (possibly empty) slice of hoisted statements, to be
// spliced into the parent statement list immediately before the loop
// statement; body.Statements is mutated in place to remove them.
func hoistLoopInvariants(body *ast.BlockStatement) []ast.Stmt {
	defined := make(map[string]bool)
	for _, s := range body.Statements {
		if dv, ok := s.(ast.UsesDefines); ok {
			for _, name := range dv.DefinedVariables() {
				defined[name] = true
			}
		}
	}

	var hoisted []ast.Stmt
	kept := body.Statements[:0]
	for _, s := range body.Statements {
		assign, ok := s.(*ast.AssignmentStatement)
		if !ok {
			kept = append(kept, s)
			continue
		}
		va, isVar := assign.LHS.(*ast.VariableAccess)
		if !isVar || !isInvariant(assign.RHS, defined) {
			kept = append(kept, s)
			continue
		}
		// A variable defined more than once in the body cannot be
		// soundly hoisted even if its RHS happens to be invariant on
		// this occurrence; restrict to single-assignment locals.
		if assignCount(body.Statements, va.Name) > 1 {
			kept = append(kept, s)
			continue
		}
		hoisted = append(hoisted, assign)
	}
	body.Statements = kept
	return hoisted
}

func assignCount(stmts []ast.Stmt, name string) int {
	n := 0
	for _, s := range stmts {
		if a, ok := s.(*ast.AssignmentStatement); ok {
			if va, ok := a.LHS.(*ast.VariableAccess); ok && va.Name == name {
				n++
			}
		}
	}
	return n
}

// isInvariant reports whether e's used variables are all outside the
// set of names the loop body (re)defines.
func isInvariant(e ast.Expr, defined map[string]bool) bool {
	uses := usesOfExpr(e)
	for _, u := range uses {
		if defined[u] {
			return false
		}
	}
	return true
}

func usesOfExpr(e ast.Expr) []string {
	if uw, ok := e.(ast.UsesDefines); ok {
		return uw.UsedVariables()
	}
	var uses []string
	walkExprTree(e, func(sub ast.Expr) {
		if va, ok := sub.(*ast.VariableAccess); ok {
			uses = append(uses, va.Name)
		}
	})
	return uses
}
