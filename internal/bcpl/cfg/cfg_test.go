package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
)

func va(name string) *ast.VariableAccess { return &ast.VariableAccess{Name: name} }
func lit(v int64) *ast.IntLiteral        { return &ast.IntLiteral{Value: v} }

// reachable collects every block reachable from start via Succs.
func reachable(start *Block) map[int]*Block {
	seen := map[int]*Block{}
	var walk func(b *Block)
	walk = func(b *Block) {
		if _, ok := seen[b.ID]; ok {
			return
		}
		seen[b.ID] = b
		for _, s := range b.Succs {
			walk(s)
		}
	}
	walk(start)
	return seen
}

func requireInvariants(t *testing.T, g *CFG) {
	t.Helper()
	require.NotNil(t, g.Entry)
	require.Empty(t, g.Entry.Preds, "entry must have no predecessors")
	for _, b := range g.Blocks {
		if b == g.Exit {
			continue
		}
		require.NotEmpty(t, b.Succs, "block %d must have at least one successor", b.ID)
	}
	if g.Exit != nil {
		rs := reachable(g.Entry)
		_, ok := rs[g.Exit.ID]
		require.True(t, ok, "exit must be reachable from entry")
	}
}

func TestIfStatementBranchesAndJoins(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.IfStatement{
			Cond: va("cond"),
			Then: &ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
			Else: &ast.AssignmentStatement{LHS: va("x"), RHS: lit(2)},
		},
		&ast.AssignmentStatement{LHS: va("y"), RHS: va("x")},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	require.Empty(t, errors.Errors())
	requireInvariants(t, g)
	require.Len(t, g.Entry.Succs, 2)
}

func TestUnlessIsStillATwoWayBranch(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.IfStatement{
			Cond:   va("cond"),
			Negate: true,
			Then:   &ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
	require.Len(t, g.Entry.Succs, 2)
}

func TestWhileLoopHasBackEdgeAndExit(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.WhileStatement{
			Kind: ast.LoopWhile,
			Cond: va("cond"),
			Body: &ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
}

func TestRepeatWhileTestsAfterBody(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.WhileStatement{
			Kind: ast.LoopRepeatWhile,
			Cond: va("cond"),
			Body: &ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)

	// Entry falls straight into the body (one successor), unlike a
	// pretested loop's two-way header.
	require.Len(t, g.Entry.Succs, 1)
}

func TestBareRepeatOnlyExitsViaBreak(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.WhileStatement{
			Kind: ast.LoopRepeat,
			Body: &ast.BreakStatement{},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
}

func TestForLoopInitsHeaderBodyIncrement(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.ForStatement{
			Var: "i", UniqueVar: "_i_1", StepVar: "_step_1", EndVar: "_end_1",
			From: lit(1), To: lit(10),
			Body: &ast.AssignmentStatement{LHS: va("sum"), RHS: va("i")},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
}

func TestForeachVectorLowersToIndexLoop(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.ForeachStatement{
			Kind:       ast.ForeachVector,
			Var:        "e",
			Collection: va("v"),
			Body:       &ast.AssignmentStatement{LHS: va("sum"), RHS: va("e")},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
}

func TestForeachListLowersToCursorLoop(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.ForeachStatement{
			Kind:       ast.ForeachList,
			Var:        "e",
			SecondVar:  "node",
			Collection: va("l"),
			Body:       &ast.AssignmentStatement{LHS: va("sum"), RHS: va("e")},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
}

func TestSwitchonProducesOneCaseEdgePerArm(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.SwitchonStatement{
			Selector: va("n"),
			Cases: []ast.CaseLabel{
				{ResolvedValue: 1, Body: &ast.EndcaseStatement{}},
				{ResolvedValue: 2, Body: &ast.EndcaseStatement{}},
			},
			Default: &ast.EndcaseStatement{},
		},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)

	var header *Block
	for _, b := range g.Blocks {
		if b.Kind == KindSwitch {
			header = b
		}
	}
	require.NotNil(t, header)
	require.Len(t, header.Cases, 2)
	require.Len(t, header.Succs, 3) // 2 cases + default
}

func TestGotoForwardReferenceResolves(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.GotoStatement{Label: "done"},
		&ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
		&ast.LabelStatement{Label: "done", Stmt: &ast.ReturnStatement{}},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	require.Empty(t, errors.Errors())
	requireInvariants(t, g)
}

func TestGotoUnresolvedLabelIsReported(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.GotoStatement{Label: "nowhere"},
	}}
	errors := &errs.List{}
	Build("f", body, errors)
	require.NotEmpty(t, errors.Errors())
	require.Equal(t, errs.KindUnresolvedGoto, errors.Errors()[0].Kind)
}

func TestFunctionFallsOffEndLinksToExit(t *testing.T) {
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.AssignmentStatement{LHS: va("x"), RHS: lit(1)},
	}}
	errors := &errs.List{}
	g := Build("f", body, errors)
	requireInvariants(t, g)
	require.Contains(t, g.Entry.Succs, g.Exit)
}
