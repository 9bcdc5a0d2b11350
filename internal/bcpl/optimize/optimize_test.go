package optimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/sema"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
)

func v(name string) *ast.VariableAccess { return &ast.VariableAccess{Name: name} }
func i(n int64) *ast.IntLiteral         { return &ast.IntLiteral{Value: n} }

func TestConstantFoldingCollapsesLiteralArithmetic(t *testing.T) {
	e := foldExpr(&ast.BinaryOp{Op: ast.OpAdd, Left: i(2), Right: i(3)})
	lit, ok := e.(*ast.IntLiteral)
	require.True(t, ok)
	require.Equal(t, int64(5), lit.Value)
}

func TestStrengthReductionRewritesDoubling(t *testing.T) {
	e := reduceStrength(&ast.BinaryOp{Op: ast.OpMul, Left: v("x"), Right: i(2)})
	add, ok := e.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, add.Op)
}

func TestStrengthReductionRewritesPowerOfTwoToShift(t *testing.T) {
	e := reduceStrength(&ast.BinaryOp{Op: ast.OpMul, Left: v("x"), Right: i(8)})
	shift, ok := e.(*ast.ShiftExpr)
	require.True(t, ok)
	require.Equal(t, 3, shift.Amount)
}

func TestStrengthReductionLeavesNonPowerOfTwoAlone(t *testing.T) {
	e := reduceStrength(&ast.BinaryOp{Op: ast.OpMul, Left: v("x"), Right: i(3)})
	_, isShift := e.(*ast.ShiftExpr)
	require.False(t, isShift)
}

func TestCanonicalKeyCommutativeCollision(t *testing.T) {
	k1 := canonicalKey(&ast.BinaryOp{Op: ast.OpAdd, Left: v("a"), Right: v("b")})
	k2 := canonicalKey(&ast.BinaryOp{Op: ast.OpAdd, Left: v("b"), Right: v("a")})
	require.Equal(t, k1, k2)
}

func TestCanonicalKeyNonCommutativeDiffers(t *testing.T) {
	k1 := canonicalKey(&ast.BinaryOp{Op: ast.OpSub, Left: v("a"), Right: v("b")})
	k2 := canonicalKey(&ast.BinaryOp{Op: ast.OpSub, Left: v("b"), Right: v("a")})
	require.NotEqual(t, k1, k2)
}

// buildDuplicateExprProgram builds a routine whose body computes `a+b`
// twice into two different variables, exercising local CSE.
func buildDuplicateExprProgram() *ast.Program {
	sum := func() *ast.BinaryOp { return &ast.BinaryOp{Op: ast.OpAdd, Left: v("a"), Right: v("b")} }
	body := &ast.BlockStatement{
		Statements: []ast.Stmt{
			&ast.AssignmentStatement{LHS: v("x"), RHS: sum()},
			&ast.AssignmentStatement{LHS: v("y"), RHS: sum()},
		},
	}
	return &ast.Program{
		Declarations: []ast.Decl{
			&ast.RoutineDeclaration{Name: "main", Body: body},
		},
	}
}

func TestCSEEliminatesDuplicateSubexpression(t *testing.T) {
	prog := buildDuplicateExprProgram()
	ctx := sema.NewContext(tracing.New(nil))
	ctx.Analyze(prog)
	Run(ctx, prog, Options{EnableAdvanced: true})

	block := prog.Declarations[0].(*ast.RoutineDeclaration).Body.(*ast.BlockStatement)
	// A fresh temp assignment should have been inserted before the
	// first use, and both original assignments should now read it.
	require.Len(t, block.Statements, 3)

	tempAssign, ok := block.Statements[0].(*ast.AssignmentStatement)
	require.True(t, ok)
	tempVar, ok := tempAssign.LHS.(*ast.VariableAccess)
	require.True(t, ok)

	xAssign := block.Statements[1].(*ast.AssignmentStatement)
	yAssign := block.Statements[2].(*ast.AssignmentStatement)
	xRHS, ok := xAssign.RHS.(*ast.VariableAccess)
	require.True(t, ok)
	yRHS, ok := yAssign.RHS.(*ast.VariableAccess)
	require.True(t, ok)
	require.Equal(t, tempVar.Name, xRHS.Name)
	require.Equal(t, tempVar.Name, yRHS.Name)
}

func TestLICMHoistsInvariantAssignment(t *testing.T) {
	loopBody := &ast.BlockStatement{
		Statements: []ast.Stmt{
			&ast.AssignmentStatement{LHS: v("t"), RHS: &ast.BinaryOp{Op: ast.OpAdd, Left: v("a"), Right: v("b")}},
			&ast.AssignmentStatement{LHS: v("acc"), RHS: &ast.BinaryOp{Op: ast.OpAdd, Left: v("acc"), Right: v("t")}},
		},
	}
	outer := &ast.BlockStatement{
		Statements: []ast.Stmt{
			&ast.WhileStatement{Kind: ast.LoopWhile, Cond: v("cond"), Body: loopBody},
		},
	}
	prog := &ast.Program{
		Declarations: []ast.Decl{
			&ast.RoutineDeclaration{Name: "main", Body: outer},
		},
	}
	ctx := sema.NewContext(tracing.New(nil))
	ctx.Analyze(prog)
	Run(ctx, prog, Options{EnableAdvanced: true})

	require.Len(t, outer.Statements, 2, "the invariant `t := a+b` should be hoisted before the loop")
	hoisted, ok := outer.Statements[0].(*ast.AssignmentStatement)
	require.True(t, ok)
	hoistedLHS := hoisted.LHS.(*ast.VariableAccess)
	require.Equal(t, "t", hoistedLHS.Name)

	_, isWhile := outer.Statements[1].(*ast.WhileStatement)
	require.True(t, isWhile)
	require.Len(t, loopBody.Statements, 1, "only the acc update should remain in the loop body")
}

func TestShortCircuitLoweringSplitsAndCondition(t *testing.T) {
	ifStmt := &ast.IfStatement{
		Cond: &ast.BinaryOp{Op: ast.OpAnd, Left: v("a"), Right: v("b")},
		Then: &ast.ReturnStatement{},
	}
	lowered := lowerShortCircuit(ifStmt)

	outer, ok := lowered.(*ast.IfStatement)
	require.True(t, ok)
	outerCond, ok := outer.Cond.(*ast.VariableAccess)
	require.True(t, ok)
	require.Equal(t, "a", outerCond.Name)

	inner, ok := outer.Then.(*ast.IfStatement)
	require.True(t, ok)
	innerCond, ok := inner.Cond.(*ast.VariableAccess)
	require.True(t, ok)
	require.Equal(t, "b", innerCond.Name)
}
