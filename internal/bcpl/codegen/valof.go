package codegen

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
)

// flatten walks a straight-line VALOF body, unwrapping nested
// BlockStatements, appending every non-terminator statement to out in
// order, and capturing the final RESULTIS's value into result.
// Internal branching (IF/UNLESS/TEST, loops, SWITCHON) inside a VALOF
// body is deliberately not supported: a full nested-CFG architecture
// would need cfg.Build's function-scoped API reworked to admit a
// sub-CFG with its own join back into the enclosing block, which is
// out of scope here. A VALOF that needs branching should be rewritten
// by the caller as a helper function instead.
func flatten(s ast.Stmt, out *[]ast.Stmt, result *ast.Expr) error {
	switch n := s.(type) {
	case *ast.BlockStatement:
		for _, sub := range n.Statements {
			if err := flatten(sub, out, result); err != nil {
				return err
			}
		}
		return nil
	case *ast.ResultisStatement:
		if *result != nil {
			return errors.New("codegen: VALOF body has more than one RESULTIS at its top level")
		}
		*result = n.Value
		return nil
	case *ast.IfStatement, *ast.WhileStatement, *ast.ForStatement, *ast.SwitchonStatement, *ast.ForeachStatement:
		return errors.New("codegen: VALOF body contains branching, which this generator does not support inside VALOF")
	default:
		*out = append(*out, s)
		return nil
	}
}

// emitValof lowers a VALOF expression by flattening its straight-line
// body, emitting each statement in sequence, and evaluating the
// RESULTIS value as this expression's result.
func (fg *funcGen) emitValof(n *ast.ValofExpression) (value, error) {
	var stmts []ast.Stmt
	var result ast.Expr
	if err := flatten(n.Body, &stmts, &result); err != nil {
		return value{}, err
	}
	if result == nil {
		return value{}, errors.Errorf("codegen: function %s: VALOF body has no RESULTIS", fg.plan.Name)
	}
	for _, st := range stmts {
		if err := fg.emitStmt(st); err != nil {
			return value{}, err
		}
	}
	return fg.emitExpr(result)
}
