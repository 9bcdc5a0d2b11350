package sema

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/symtab"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// intrinsicSignature captures the return-type rule for a special-cased
// runtime intrinsic, per spec.md §4.1's type-inference contract for
// function calls by name.
type intrinsicSignature struct {
	returns func(argTypes []types.VarType) types.VarType
}

var intrinsics = map[string]intrinsicSignature{
	"SPLIT":     {returns: constReturn(types.PointerToStringList)},
	"JOIN":      {returns: constReturn(types.PointerToString)},
	"FIND":      {returns: constReturn(types.PointerToListNode)},
	"REVERSE":   {returns: constReturn(types.PointerToListNode)},
	"AS_INT":    {returns: constReturn(types.Integer)},
	"AS_FLOAT":  {returns: constReturn(types.Float)},
	"AS_STRING": {returns: constReturn(types.PointerToString)},
	"AS_LIST":   {returns: constReturn(types.PointerToListNode)},
}

func constReturn(t types.VarType) func([]types.VarType) types.VarType {
	return func([]types.VarType) types.VarType { return t }
}

// Context threads the mutable state a full analysis run needs through
// every pass, per spec.md §9's Design Notes recommendation to replace
// global mutable state (the analyzer's singleton metrics map) with an
// explicit context struct.
type Context struct {
	Symbols *symtab.Table
	Errors  errs.List
	Tracer  *tracing.Tracer

	// Metrics maps function/routine name to its FunctionMetrics record.
	Metrics map[string]*FunctionMetrics

	// manifests maps a manifest's name to its resolved integer value,
	// filled in by resolveManifests.
	manifests map[string]int64

	// currentFunction is the name of the function/routine currently
	// being walked, used to attach a Function field to diagnostics and
	// to find the right FunctionMetrics entry.
	currentFunction string

	// forVarCounter generates the `<orig>_for_var_<counter>` unique
	// names spec.md §4.1 mandates for FOR-loop variables.
	forVarCounter int
}

// NewContext returns a Context with an empty global symbol scope.
func NewContext(tracer *tracing.Tracer) *Context {
	return &Context{
		Symbols:   symtab.New(),
		Metrics:   make(map[string]*FunctionMetrics),
		manifests: make(map[string]int64),
		Tracer:    tracer,
	}
}

// Result is what Analyze returns: the final error list and per-function
// metrics map, ready for CFG construction.
type Result struct {
	Errors  []errs.SemanticError
	Metrics map[string]*FunctionMetrics
}

// Analyze runs the five serial passes spec.md §4.1 specifies, in
// order: first-pass discovery; manifest resolution; semantic walk
// (including CASE constant-expression evaluation); the caller is
// expected to run optimizer passes next (package optimize) before
// final metrics update and CFG construction — this function performs
// only the analyzer's own three passes, returning control to the
// pipeline driver (package compile) between "semantic walk" and
// "optimizer passes" as spec.md §4.1 orders them.
func (c *Context) Analyze(prog *ast.Program) *Result {
	c.discoverFunctions(prog)
	c.resolveManifests(prog)
	c.semanticWalk(prog)
	return &Result{Errors: c.Errors.Errors(), Metrics: c.Metrics}
}

// nextForVarName allocates the next `<orig>_for_var_<counter>` unique
// name for a FOR-loop variable, per spec.md §4.1.
func (c *Context) nextForVarName(orig string) string {
	c.forVarCounter++
	return orig + "_for_var_" + itoa(c.forVarCounter)
}

// SetCurrentFunction points the context at name, so that later passes
// (the optimizer, which runs after the semantic walk has already reset
// currentFunction to "") can attribute synthesized temporaries and
// metrics updates to the right function.
func (c *Context) SetCurrentFunction(name string) { c.currentFunction = name }

// CurrentFunction returns the function name the context is presently
// attributing work to.
func (c *Context) CurrentFunction() string { return c.currentFunction }

// NextTempName allocates a globally unique CSE temporary name (spec.md
// §4.2: "temps have globally unique names"), shared with the FOR-var
// counter so no two compiler-synthesized names can collide.
func (c *Context) NextTempName() string {
	c.forVarCounter++
	return "_cse_tmp_" + itoa(c.forVarCounter)
}

// DeclareTemp registers a CSE-synthesized temporary in both the symbol
// table and the current function's variable-type map (spec.md §4.2).
func (c *Context) DeclareTemp(name string, t types.VarType) {
	c.Symbols.Declare(&symtab.Symbol{Name: name, Kind: symtab.KindLocal, Type: t})
	if m := c.Metrics[c.currentFunction]; m != nil {
		m.RecordVariable(name, t)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
