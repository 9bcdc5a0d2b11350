package sema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

func intLit(v int64) *ast.IntLiteral { return &ast.IntLiteral{Value: v} }
func varRef(name string) *ast.VariableAccess { return &ast.VariableAccess{Name: name} }

// buildForeachProgram builds `LET main() BE FOREACH x IN v DO x := x` where
// v is a global const int list, exercising ForeachStatement element-type
// inference and the const-violation diagnostic path.
func buildForeachProgram() *ast.Program {
	body := &ast.ForeachStatement{
		Var:        "x",
		Collection: varRef("v"),
		Body: &ast.AssignmentStatement{
			LHS: varRef("x"),
			RHS: varRef("x"),
		},
	}
	return &ast.Program{
		Declarations: []ast.Decl{
			&ast.GlobalDeclaration{
				Name: "v",
				Type: types.ConstPointerToIntList,
			},
			&ast.RoutineDeclaration{
				Name: "main",
				Body: body,
			},
		},
	}
}

func TestWalkForeachInfersElementType(t *testing.T) {
	prog := buildForeachProgram()
	ctx := NewContext(tracing.New(nil))
	res := ctx.Analyze(prog)
	require.Empty(t, res.Errors)

	foreach := prog.Declarations[1].(*ast.RoutineDeclaration).Body.(*ast.ForeachStatement)
	require.Equal(t, ast.ForeachList, foreach.Kind)
	require.Equal(t, types.Integer, foreach.ElementType)
}

func TestWalkForRenamesLoopVariable(t *testing.T) {
	body := &ast.ForStatement{
		Var:  "i",
		From: intLit(0),
		To:   intLit(10),
		Body: &ast.ExprStatement{Value: varRef("i")},
	}
	prog := &ast.Program{
		Declarations: []ast.Decl{
			&ast.RoutineDeclaration{Name: "main", Body: body},
		},
	}
	ctx := NewContext(tracing.New(nil))
	ctx.Analyze(prog)

	require.NotEmpty(t, body.UniqueVar)
	require.NotEmpty(t, body.StepVar)
	require.NotEmpty(t, body.EndVar)
	require.NotEqual(t, body.Var, body.UniqueVar)
}

func TestWalkConstHeadAssignmentIsViolation(t *testing.T) {
	prog := &ast.Program{
		Declarations: []ast.Decl{
			&ast.GlobalDeclaration{Name: "lst", Type: types.ConstPointerToIntList},
			&ast.RoutineDeclaration{
				Name: "main",
				Body: &ast.AssignmentStatement{
					LHS: &ast.UnaryOp{Op: ast.OpHeadOf, Operand: varRef("lst")},
					RHS: intLit(1),
				},
			},
		},
	}
	ctx := NewContext(tracing.New(nil))
	res := ctx.Analyze(prog)
	require.Len(t, res.Errors, 1)
}

func TestWalkAccessesGlobalsFlag(t *testing.T) {
	prog := &ast.Program{
		Declarations: []ast.Decl{
			&ast.GlobalDeclaration{Name: "counter", Type: types.Integer},
			&ast.RoutineDeclaration{
				Name: "bump",
				Body: &ast.AssignmentStatement{
					LHS: varRef("counter"),
					RHS: &ast.BinaryOp{Op: ast.OpAdd, Left: varRef("counter"), Right: intLit(1)},
				},
			},
		},
	}
	ctx := NewContext(tracing.New(nil))
	res := ctx.Analyze(prog)
	require.True(t, res.Metrics["bump"].AccessesGlobals)
}

func TestWalkSwitchonResolvesManifestCase(t *testing.T) {
	prog := &ast.Program{
		Declarations: []ast.Decl{
			&ast.ManifestDeclaration{Name: "RED", Value: intLit(1)},
			&ast.RoutineDeclaration{
				Name: "main",
				Body: &ast.SwitchonStatement{
					Selector: varRef("x"),
					Cases: []ast.CaseLabel{
						{ConstExpr: varRef("RED"), Body: &ast.ReturnStatement{}},
					},
				},
			},
		},
	}
	ctx := NewContext(tracing.New(nil))
	ctx.Analyze(prog)

	sw := prog.Declarations[1].(*ast.RoutineDeclaration).Body.(*ast.SwitchonStatement)
	require.EqualValues(t, 1, sw.Cases[0].ResolvedValue)
}
