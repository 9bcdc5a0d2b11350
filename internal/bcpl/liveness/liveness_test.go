package liveness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

func va(name string) *ast.VariableAccess { return &ast.VariableAccess{Name: name} }
func lit(v int64) *ast.IntLiteral        { return &ast.IntLiteral{Value: v} }

// buildDiamond constructs: x := 1; IF cond THEN y := x ELSE y := 2; z := y
// so `x` is live across the branch into the then-block only, and `y`
// is live out of both arms into the join block.
func buildDiamond() *cfg.CFG {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
		&ast.IfStatement{
			Cond: va("cond"),
			Then: &ast.AssignmentStatement{LHS: va("y"), RHS: va("x")},
			Else: &ast.AssignmentStatement{LHS: va("y"), RHS: lit(2)},
		},
		&ast.AssignmentStatement{LHS: va("z"), RHS: va("y")},
	}}
	return cfg.Build("f", body, &errs.List{})
}

func TestLivenessComputesUseDefPerBlock(t *testing.T) {
	g := buildDiamond()
	res := Analyze(g)
	require.True(t, res.Blocks[g.Entry.ID].Def["x"])
}

func TestLivenessPropagatesAcrossBranch(t *testing.T) {
	g := buildDiamond()
	res := Analyze(g)

	// x is defined in the entry block and used in the then-block, so it
	// must be live-out of entry and live-in to the then successor.
	entryOut := res.Blocks[g.Entry.ID].Out
	require.True(t, entryOut["x"])
}

func TestLivenessYIsLiveOutOfBothArms(t *testing.T) {
	g := buildDiamond()
	res := Analyze(g)

	for _, succ := range g.Entry.Succs {
		out := res.Blocks[succ.ID].Out
		require.True(t, out["y"], "block %d should have y live-out into the join", succ.ID)
	}
}

func TestRegisterPressureIsMaxOfInOut(t *testing.T) {
	g := buildDiamond()
	res := Analyze(g)
	require.GreaterOrEqual(t, res.RegisterPressure, 1)
}

func TestBuildIntervalsRecordsFirstAndLastAppearance(t *testing.T) {
	g := buildDiamond()
	typeOf := func(name string) (types.VarType, bool) { return types.Integer, true }
	intervals := BuildIntervals(g, typeOf)

	byName := map[string]LiveInterval{}
	for _, iv := range intervals {
		byName[iv.Name] = iv
	}

	require.Contains(t, byName, "x")
	require.Contains(t, byName, "y")
	require.Contains(t, byName, "z")
	require.LessOrEqual(t, byName["x"].Start, byName["x"].End)

	// z is defined from y, which happens strictly after x's definition.
	require.Greater(t, byName["z"].Start, byName["x"].Start)
}
