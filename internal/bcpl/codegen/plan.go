// Package codegen lowers one function's CFG into AArch64 instructions
// appended to a shared Stream, per spec.md §4.9: deterministic block
// traversal (entry first, then sorted by id), per-statement dispatch,
// and block-terminator emission per §4.9.1. The runtime-call ABI
// (§4.9.2) and the JIT-vs-static data-segment-base load are handled
// here too.
package codegen

import (
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/data"
	"github.com/albanread/bcplc-go/internal/bcpl/frame"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/runtimeabi"
	"github.com/albanread/bcplc-go/internal/bcpl/sema"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// dataSegmentBaseLabel is the rodata/data symbol ADRP+ADD (or, in JIT
// mode, MOVZ/MOVK) resolves against to obtain X28 (spec.md §4.9.2).
const dataSegmentBaseLabel = "L__data_segment_base"

// runtimeTableBaseOffset is X19's fixed distance from X28 (spec.md §6:
// "starting at offset 524288"); 524288 == 128 << 12, representable by
// a single shifted ADD immediate.
const runtimeTableBaseOffset = 128 // in units of 4096

// FunctionPlan bundles everything one function's code generation needs:
// its CFG, the linear-scan allocator's verdicts, its call frame, and
// enough of its semantic metrics to decide the runtime-call ABI and
// resolve manifests/globals. The compile pipeline (not this package)
// builds one FunctionPlan per declaration after sema, the optimizer,
// cfg, liveness, and regalloc have all run.
type FunctionPlan struct {
	Name         string
	IsFunction   bool // false for a routine: RETURN instead of RESULTIS, no result register
	ReturnsFloat bool

	CFG     *cfg.CFG
	Metrics *sema.FunctionMetrics
	Frame   *frame.Frame

	// Decisions is the linear-scan allocator's per-variable verdict
	// (register or spill), keyed by variable name. Every parameter and
	// local the function declares has an entry.
	Decisions map[string]regalloc.Decision

	// ManifestValue resolves a manifest constant's name to its
	// compile-time integer value (sema.Context.ManifestValue).
	ManifestValue func(name string) (int64, bool)

	// GlobalOffset resolves a global/static variable's byte offset into
	// the data segment (relative to X28) and its type, or ok=false if
	// name is not a global.
	GlobalOffset func(name string) (offset int64, t types.VarType, ok bool)
}

// typeOf answers the declared type of a local variable or parameter by
// name, consulting the function's metrics rather than a Decision's
// embedded LiveInterval (primed/preSpilled decisions carry a
// zero-value Interval, so the metrics maps are the only fully
// reliable source for every name).
func (p *FunctionPlan) typeOf(name string) types.VarType {
	if t, ok := p.Metrics.ParameterTypes[name]; ok {
		return t
	}
	if t, ok := p.Metrics.VariableTypes[name]; ok {
		return t
	}
	return types.Integer
}

// Config holds cross-function generation settings (spec.md §4.9.2,
// §6's JIT-vs-assembly-output distinction).
type Config struct {
	// JITMode selects the X28/X19 load sequence and the runtime-call
	// dispatch strategy: MOVZ/MOVK (tagged IsJIT) + table-indirect BLR
	// when true (spec.md §4.9.2's "JIT-assigned base... tagged
	// JitAddress" / "JitCall"), ADRP/ADD + direct BL to the runtime
	// symbol when false (static assembly output, where the system
	// linker resolves runtime symbols the way it resolves any other
	// external call).
	JITMode bool
}

// Generator lowers FunctionPlans into a shared Stream, using runtime to
// resolve runtime-call targets and lits to intern float/string
// literals into rodata.
type Generator struct {
	Config  Config
	Runtime *runtimeabi.Registry
	Lits    *data.Builder
	Tracer  *tracing.Tracer

	// FunctionSignature resolves a user function's return kind by name
	// (true if it returns a float), for a call site that isn't a
	// runtime intrinsic. Returns ok=false for a routine (no result) or
	// an unknown name, in which case the call site assumes an integer
	// result.
	FunctionSignature func(name string) (returnsFloat bool, ok bool)
}

// NewGenerator returns a Generator ready to lower functions, appending
// instructions and interned literals to the same underlying Stream.
func NewGenerator(cfg Config, runtime *runtimeabi.Registry, lits *data.Builder, tracer *tracing.Tracer) *Generator {
	return &Generator{Config: cfg, Runtime: runtime, Lits: lits, Tracer: tracer}
}
