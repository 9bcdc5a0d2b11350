package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/data"
	"github.com/albanread/bcplc-go/internal/bcpl/frame"
	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
	"github.com/albanread/bcplc-go/internal/bcpl/sema"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

func newTestGenerator() *Generator {
	return NewGenerator(Config{JITMode: false}, runtimeabi.Standard(), data.NewBuilder(&arm64.Stream{}), nil)
}

// oneBlockCFG builds {entry} -> {exit}, with body's statements in the
// entry block and a plain RESULTIS/RETURN terminator.
func oneBlockCFG(name string, stmts []ast.Stmt) *cfg.CFG {
	entry := &cfg.Block{ID: 0, Statements: stmts, IsEntry: true}
	exit := &cfg.Block{ID: 1, IsExit: true}
	entry.Succs = []*cfg.Block{exit}
	exit.Preds = []*cfg.Block{entry}
	return &cfg.CFG{
		Function: name,
		Blocks:   map[int]*cfg.Block{0: entry, 1: exit},
		Entry:    entry,
		Exit:     exit,
	}
}

func TestGenerateAddFunction(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("add", false)
	fr.AddParameter("a", types.Integer)
	fr.AddParameter("b", types.Integer)

	body := []ast.Stmt{
		&ast.ResultisStatement{Value: &ast.BinaryOp{
			Op:    ast.OpAdd,
			Left:  &ast.VariableAccess{Name: "a"},
			Right: &ast.VariableAccess{Name: "b"},
		}},
	}

	plan := &FunctionPlan{
		Name:       "add",
		IsFunction: true,
		CFG:        oneBlockCFG("add", body),
		Metrics: &sema.FunctionMetrics{
			ParameterTypes: map[string]types.VarType{"a": types.Integer, "b": types.Integer},
		},
		Frame: fr,
		Decisions: map[string]regalloc.Decision{
			"a": {Register: "X20", Spilled: false},
			"b": {Register: "X21", Spilled: false},
		},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}

	s := &arm64.Stream{}
	require.NoError(t, g.Generate(s, plan))
	require.NotEmpty(t, s.Instructions)

	var sawRet bool
	for _, inst := range s.Instructions {
		if inst.Mnemonic == "ret" {
			sawRet = true
		}
	}
	require.True(t, sawRet, "add's epilogue must end in RET")
}

func TestGenerateIfElseFunction(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("max", false)
	fr.AddParameter("a", types.Integer)
	fr.AddParameter("b", types.Integer)

	thenBlk := &cfg.Block{ID: 1, Statements: []ast.Stmt{
		&ast.ResultisStatement{Value: &ast.VariableAccess{Name: "a"}},
	}}
	elseBlk := &cfg.Block{ID: 2, Statements: []ast.Stmt{
		&ast.ResultisStatement{Value: &ast.VariableAccess{Name: "b"}},
	}}
	entry := &cfg.Block{ID: 0, IsEntry: true, Statements: []ast.Stmt{
		&ast.IfStatement{
			Cond: &ast.BinaryOp{Op: ast.OpGt, Left: &ast.VariableAccess{Name: "a"}, Right: &ast.VariableAccess{Name: "b"}},
			Then: thenBlk.Statements[0],
			Else: elseBlk.Statements[0],
		},
	}}
	exit := &cfg.Block{ID: 3, IsExit: true}
	entry.Succs = []*cfg.Block{thenBlk, elseBlk}
	thenBlk.Succs = []*cfg.Block{exit}
	elseBlk.Succs = []*cfg.Block{exit}

	c := &cfg.CFG{
		Function: "max",
		Blocks:   map[int]*cfg.Block{0: entry, 1: thenBlk, 2: elseBlk, 3: exit},
		Entry:    entry,
		Exit:     exit,
	}

	plan := &FunctionPlan{
		Name:       "max",
		IsFunction: true,
		CFG:        c,
		Metrics: &sema.FunctionMetrics{
			ParameterTypes: map[string]types.VarType{"a": types.Integer, "b": types.Integer},
		},
		Frame: fr,
		Decisions: map[string]regalloc.Decision{
			"a": {Register: "X20"},
			"b": {Register: "X21"},
		},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}

	s := &arm64.Stream{}
	require.NoError(t, g.Generate(s, plan))

	var branches int
	for _, inst := range s.Instructions {
		if len(inst.Mnemonic) > 2 && inst.Mnemonic[:2] == "b." {
			branches++
		}
	}
	require.NotZero(t, branches, "IF must lower to at least one conditional branch")
}

func TestEmitAddressOfRequiresSpilledVariable(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("f", false)
	fr.AddLocal("x", types.Integer)
	fr.RunLayout()

	plan := &FunctionPlan{
		Name:    "f",
		CFG:     oneBlockCFG("f", nil),
		Metrics: &sema.FunctionMetrics{VariableTypes: map[string]types.VarType{"x": types.Integer}},
		Frame:   fr,
		Decisions: map[string]regalloc.Decision{
			"x": {Register: "X20", Spilled: false},
		},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}

	fg := &funcGen{gen: g, stream: &arm64.Stream{}, plan: plan, mgr: regalloc.NewManager(fr)}
	fg.mgr.ResetForFunction(false)

	_, err := fg.emitAddressOf(&ast.VariableAccess{Name: "x"})
	require.Error(t, err)
}

func TestEmitAddressOfUsesFrameOffsetWhenSpilled(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("f", false)
	fr.AddLocal("x", types.Integer)
	fr.AcquireSpillSlot("x", types.Integer)
	fr.RunLayout()

	plan := &FunctionPlan{
		Name:    "f",
		CFG:     oneBlockCFG("f", nil),
		Metrics: &sema.FunctionMetrics{VariableTypes: map[string]types.VarType{"x": types.Integer}},
		Frame:   fr,
		Decisions: map[string]regalloc.Decision{
			"x": {Spilled: true},
		},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}

	fg := &funcGen{gen: g, stream: &arm64.Stream{}, plan: plan, mgr: regalloc.NewManager(fr)}
	fg.mgr.ResetForFunction(false)

	v, err := fg.emitAddressOf(&ast.VariableAccess{Name: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, v.reg)
}

func TestEmitListExpressionChainsPrepend(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("f", false)
	fr.RunLayout()

	plan := &FunctionPlan{
		Name:          "f",
		CFG:           oneBlockCFG("f", nil),
		Metrics:       &sema.FunctionMetrics{},
		Frame:         fr,
		Decisions:     map[string]regalloc.Decision{},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}

	fg := &funcGen{gen: g, stream: &arm64.Stream{}, plan: plan, mgr: regalloc.NewManager(fr)}
	fg.mgr.ResetForFunction(false)

	_, err := fg.emitListExpression(&ast.ListExpression{
		Elements: []ast.Expr{&ast.IntLiteral{Value: 1}, &ast.IntLiteral{Value: 2}},
	})
	require.NoError(t, err)

	var calls int
	for _, inst := range fg.stream.Instructions {
		if inst.Mnemonic == "bl" {
			calls++
		}
	}
	require.Equal(t, 3, calls, "MAKE_LIST + 2 LIST_PREPEND calls")
}

func TestEmitTableExpressionRejectsNonConstant(t *testing.T) {
	g := newTestGenerator()
	fr := frame.NewFrame("f", false)
	fr.RunLayout()
	plan := &FunctionPlan{
		Name:          "f",
		CFG:           oneBlockCFG("f", nil),
		Metrics:       &sema.FunctionMetrics{},
		Frame:         fr,
		Decisions:     map[string]regalloc.Decision{},
		ManifestValue: func(string) (int64, bool) { return 0, false },
		GlobalOffset:  func(string) (int64, types.VarType, bool) { return 0, 0, false },
	}
	fg := &funcGen{gen: g, stream: &arm64.Stream{}, plan: plan, mgr: regalloc.NewManager(fr)}
	fg.mgr.ResetForFunction(false)

	_, err := fg.emitTableExpression(&ast.TableExpression{
		Elements: []ast.Expr{&ast.VariableAccess{Name: "notconst"}},
	})
	require.Error(t, err)
}

func TestFlattenRejectsBranchingValofBody(t *testing.T) {
	var out []ast.Stmt
	var result ast.Expr
	err := flatten(&ast.IfStatement{
		Cond: &ast.IntLiteral{Value: 1},
		Then: &ast.ResultisStatement{Value: &ast.IntLiteral{Value: 1}},
	}, &out, &result)
	require.Error(t, err)
}

func TestFlattenCollectsStraightLineBody(t *testing.T) {
	var out []ast.Stmt
	var result ast.Expr
	body := &ast.BlockStatement{Statements: []ast.Stmt{
		&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: "t"}, RHS: &ast.IntLiteral{Value: 1}},
		&ast.ResultisStatement{Value: &ast.VariableAccess{Name: "t"}},
	}}
	require.NoError(t, flatten(body, &out, &result))
	require.Len(t, out, 1)
	require.NotNil(t, result)
}
