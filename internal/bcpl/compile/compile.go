// Package compile is the pipeline driver spec.md's own Context.Analyze
// doc comment points to: after the semantic analyzer's three passes, a
// single caller runs the optimizer, builds a CFG and liveness result per
// function, allocates registers, lays out a call frame, and generates
// code. This package is that caller. It stops at an unlinked
// arm64.Stream plus a frozen runtime registry and an entry name — it
// never links, assembles, or executes, since only the driver knows
// whether the final output is a static object, a raw assembly listing,
// or a JIT buffer.
package compile

import (
	"crypto/rand"
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/codegen"
	"github.com/albanread/bcplc-go/internal/bcpl/data"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/frame"
	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/liveness"
	"github.com/albanread/bcplc-go/internal/bcpl/optimize"
	"github.com/albanread/bcplc-go/internal/bcpl/peephole"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
	"github.com/albanread/bcplc-go/internal/bcpl/sema"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// stackCanaryLabel mirrors frame's unexported constant of the same
// name: the compile package emits the canary's initial rodata value
// under this label, and frame's prologue/epilogue emit the load/check
// sequence referencing it, so the two copies must agree byte-for-byte.
// This duplication-by-convention matches dataSegmentBaseLabel's split
// across codegen and link.
const stackCanaryLabel = "L__stack_canary"

// Options gathers every driver-level knob spec.md §6 lists as a CLI
// flag, minus the ones (--run/--asm/--exec, --call, --offset) that only
// matter after this package has already handed back a Stream.
type Options struct {
	// Optimize enables the optimizer's advanced passes: short-circuit
	// lowering, local CSE, loop-invariant code motion. Folding and
	// strength reduction always run (spec.md §4.2).
	Optimize bool

	// Peephole enables the post-codegen peephole pass.
	Peephole bool

	// StackCanaries enables per-function stack-canary insertion
	// (spec.md §4.7).
	StackCanaries bool

	// JITMode selects the data-base load sequence codegen emits: a
	// runtime MOVZ/MOVK sequence for JIT mode, or an ADRP/ADD pair for
	// static mode (spec.md §4.9.2).
	JITMode bool

	// Tracer receives structured trace output for every enabled
	// component. A nil Tracer disables tracing entirely.
	Tracer *tracing.Tracer
}

// Unit is one compiled translation unit: an unlinked instruction stream
// plus everything the driver needs to link, peephole, assemble, or JIT
// it, and the semantic errors (if any) collected along the way.
type Unit struct {
	Stream  *arm64.Stream
	Runtime *runtimeabi.Registry
	Plans   map[string]*codegen.FunctionPlan

	// Errors holds semantic diagnostics collected by Analyze. A
	// non-empty Errors means Stream and Plans are incomplete or absent
	// — spec.md §7: semantic errors never abort the walk that produced
	// them, but code generation never proceeds past them.
	Errors []errs.SemanticError
}

// globalInfo records one GLOBAL/STATIC declaration's assigned
// data-segment offset (8 bytes per global, from the X28 base) and type, looked up by codegen's emitGlobalAccess through
// FunctionPlan.GlobalOffset.
type globalInfo struct {
	offset int64
	t      types.VarType
}

// Build runs the full analyze-optimize-allocate-generate pipeline over
// prog and returns the resulting Unit. A non-nil error is returned only
// for an internal-consistency failure (spec.md §7's Fatal errors); a
// program with semantic errors returns a Unit with Errors populated and
// no Stream.
func Build(prog *ast.Program, opts Options) (*Unit, error) {
	ctx := sema.NewContext(opts.Tracer)
	res := ctx.Analyze(prog)
	if len(res.Errors) > 0 {
		return &Unit{Errors: res.Errors}, nil
	}

	optimize.Run(ctx, prog, optimize.Options{EnableAdvanced: opts.Optimize})

	rt := runtimeabi.Standard()
	rt.Freeze()

	stream := &arm64.Stream{}
	lits := data.NewBuilder(stream)

	globals := emitGlobals(prog, lits)

	if opts.StackCanaries {
		lits.Canary(stackCanaryLabel, randomCanary())
	}

	signatures := functionSignatures(ctx, prog)

	gen := codegen.NewGenerator(codegen.Config{JITMode: opts.JITMode}, rt, lits, opts.Tracer)
	gen.FunctionSignature = func(name string) (bool, bool) {
		rf, ok := signatures[name]
		return rf, ok
	}

	// Building every function's CFG (cfg.Build's own resolveGotos pass,
	// in particular) can still raise semantic errors the three Analyze
	// passes never see — an unresolved GOTO target is only known once a
	// function's whole body has been walked into blocks. Plans are
	// built in full before any codegen runs, so a late error here still
	// stops before a single instruction is emitted.
	order := make([]string, 0, len(prog.Declarations))
	plans := make(map[string]*codegen.FunctionPlan)

	for _, d := range prog.Declarations {
		var (
			name       string
			params     []ast.Param
			body       ast.Stmt
			isFunction bool
		)

		switch decl := d.(type) {
		case *ast.FunctionDeclaration:
			name = decl.Name
			params = decl.Params
			isFunction = true
			body = functionBody(decl.Body)
		case *ast.RoutineDeclaration:
			name = decl.Name
			params = decl.Params
			body = decl.Body
		default:
			continue
		}

		plan, err := buildFunctionPlan(ctx, name, params, body, isFunction, signatures[name], globals, opts.StackCanaries)
		if err != nil {
			return nil, errors.Wrapf(err, "compile: function %s", name)
		}

		plans[name] = plan
		order = append(order, name)
	}

	if ctx.Errors.HasErrors() {
		return &Unit{Errors: ctx.Errors.Errors()}, nil
	}

	for _, name := range order {
		if err := gen.Generate(stream, plans[name]); err != nil {
			return nil, errors.Wrapf(err, "compile: generate function %s", name)
		}
	}

	if opts.Peephole {
		peephole.Run(stream)
	}

	return &Unit{Stream: stream, Runtime: rt, Plans: plans}, nil
}

// functionBody extracts the ast.Stmt cfg.Build expects from a
// FunctionDeclaration's Body, per cfg.Build's own doc comment: the
// ValofExpression's inner Body for the common VALOF form, or a
// synthesized RESULTIS for the bare-expression form spec.md §2 also
// allows.
func functionBody(body ast.Expr) ast.Stmt {
	if v, ok := body.(*ast.ValofExpression); ok {
		return v.Body
	}
	return &ast.ResultisStatement{Value: body}
}

// functionSignatures determines, for every FunctionDeclaration in prog,
// whether it returns a float. symtab.KindFunctionFloat is never
// actually assigned by discoverFunctions, so this asks the type
// inferrer directly rather than trusting the symbol kind: Context.Infer
// consults c.Metrics[c.currentFunction], which Analyze has already
// populated and which persists after Analyze returns.
func functionSignatures(ctx *sema.Context, prog *ast.Program) map[string]bool {
	signatures := make(map[string]bool)
	for _, d := range prog.Declarations {
		decl, ok := d.(*ast.FunctionDeclaration)
		if !ok {
			continue
		}
		ctx.SetCurrentFunction(decl.Name)
		signatures[decl.Name] = ctx.Infer(decl.Body).IsFloat()
	}
	ctx.SetCurrentFunction("")
	return signatures
}

// emitGlobals assigns every GLOBAL/STATIC declaration a sequential
// 8-byte-aligned offset in declaration order and emits its initial
// value into the data segment via lits.Global, returning a lookup map
// for FunctionPlan.GlobalOffset.
func emitGlobals(prog *ast.Program, lits *data.Builder) map[string]globalInfo {
	globals := make(map[string]globalInfo)
	var offset int64

	for _, d := range prog.Declarations {
		decl, ok := d.(*ast.GlobalDeclaration)
		if !ok {
			continue
		}
		globals[decl.Name] = globalInfo{offset: offset, t: decl.Type}
		lits.Global(decl.Name, globalInitialValue(decl))
		offset += 8
	}

	return globals
}

// globalInitialValue returns the first integer/char literal of decl's
// initializer, or zero, per spec.md §3's "Data literals" rule.
func globalInitialValue(decl *ast.GlobalDeclaration) int64 {
	switch v := decl.Initializer.(type) {
	case *ast.IntLiteral:
		return v.Value
	case *ast.CharLiteral:
		return int64(v.Value)
	default:
		return 0
	}
}

// randomCanary returns a fresh random 64-bit canary value. Using
// crypto/rand rather than a fixed constant means a stack smash is
// vanishingly unlikely to leave the canary byte-pattern unchanged by
// coincidence.
func randomCanary() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0xDEADBEEFCAFEBABE
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// buildFunctionPlan runs one function's per-function pipeline stage:
// CFG, liveness, register allocation, frame construction. It does not
// call Frame.RunLayout — Generator.Generate does that itself.
func buildFunctionPlan(
	ctx *sema.Context,
	name string,
	params []ast.Param,
	body ast.Stmt,
	isFunction bool,
	returnsFloat bool,
	globals map[string]globalInfo,
	canary bool,
) (*codegen.FunctionPlan, error) {
	metrics := ctx.Metrics[name]
	if metrics == nil {
		return nil, errors.Errorf("compile: no metrics recorded for function %s", name)
	}

	fr := frame.NewFrame(name, canary)
	for _, p := range params {
		fr.AddParameter(p.Name, p.Type)
	}

	localNames := make([]string, 0, len(metrics.VariableTypes))
	for n := range metrics.VariableTypes {
		if _, isParam := metrics.ParameterTypes[n]; isParam {
			continue
		}
		localNames = append(localNames, n)
	}
	sort.Strings(localNames)
	for _, n := range localNames {
		fr.AddLocal(n, metrics.VariableTypes[n])
	}

	g := cfg.Build(name, body, &ctx.Errors)

	liveRes := liveness.Analyze(g)
	metrics.MaxLiveVariables = liveRes.RegisterPressure

	intervals := liveness.BuildIntervals(g, metrics.VariableOrParamType)

	primed, preSpilled := primeParameters(params)
	extendedGP := !metrics.AccessesGlobals

	decisions := regalloc.Allocate(intervals, extendedGP, primed, preSpilled, fr)

	if hint := metrics.MaxLiveVariables - len(regalloc.VariablePoolNames(regalloc.GP, extendedGP)); hint > 0 {
		fr.PreallocateSpillSlots(hint)
	}

	plan := &codegen.FunctionPlan{
		Name:          name,
		IsFunction:    isFunction,
		ReturnsFloat:  returnsFloat,
		CFG:           g,
		Metrics:       metrics,
		Frame:         fr,
		Decisions:     decisions,
		ManifestValue: ctx.ManifestValue,
		GlobalOffset: func(n string) (int64, types.VarType, bool) {
			g, ok := globals[n]
			if !ok {
				return 0, 0, false
			}
			return g.offset, g.t, true
		},
	}
	return plan, nil
}

// primeParameters assigns the first eight integer-kind and first eight
// float-kind parameters (counted independently, per spec.md §4.9's
// separate X0-X7/D0-D7 argument-register banks) straight to their
// argument registers, and marks every parameter beyond its kind's
// eighth as pre-spilled.
func primeParameters(params []ast.Param) (primed map[string]string, preSpilled map[string]bool) {
	primed = make(map[string]string)
	preSpilled = make(map[string]bool)

	var gpCount, fpCount int
	for _, p := range params {
		if p.Type.IsFloat() {
			if fpCount < 8 {
				primed[p.Name] = fpArgReg(fpCount)
				fpCount++
			} else {
				preSpilled[p.Name] = true
			}
			continue
		}
		if gpCount < 8 {
			primed[p.Name] = gpArgReg(gpCount)
			gpCount++
		} else {
			preSpilled[p.Name] = true
		}
	}
	return primed, preSpilled
}

var gpArgRegNames = [8]string{"X0", "X1", "X2", "X3", "X4", "X5", "X6", "X7"}
var fpArgRegNames = [8]string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7"}

func gpArgReg(i int) string { return gpArgRegNames[i] }
func fpArgReg(i int) string { return fpArgRegNames[i] }
