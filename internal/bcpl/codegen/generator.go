package codegen

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/regalloc"
	"github.com/albanread/bcplc-go/internal/bcpl/tracing"
)

// funcGen carries the state one function's lowering accumulates:
// nothing here outlives a single Generate call.
type funcGen struct {
	gen    *Generator
	stream *arm64.Stream
	plan   *FunctionPlan
	mgr    *regalloc.Manager

	epilogueLabel string

	// valofCounter mints unique label suffixes for ternary join/else
	// labels and nested VALOF labels, scoped to this function.
	valofCounter int
}

// blockLabel scopes a block id to the owning function, since every
// function's instructions land in the same shared Stream (spec.md
// §4.10: "one Stream per compilation unit").
func (fg *funcGen) blockLabel(id int) string {
	return fmt.Sprintf("%s_B%d", fg.plan.Name, id)
}

// Generate lowers plan's whole function — prologue, optional runtime
// base-register load, every block in deterministic order, epilogue —
// appending to s.
func (g *Generator) Generate(s *arm64.Stream, plan *FunctionPlan) error {
	fg := &funcGen{
		gen:           g,
		stream:        s,
		plan:          plan,
		mgr:           regalloc.NewManager(plan.Frame),
		epilogueLabel: plan.Name + "_epilogue",
	}

	needsBase := plan.Metrics.AccessesGlobals || plan.Metrics.NumRuntimeCalls > 0
	fg.mgr.ResetForFunction(plan.Metrics.AccessesGlobals)
	if needsBase {
		fg.mgr.ReserveDataBase()
		fg.mgr.ReserveRuntimeTableBase()
		plan.Frame.ForceSaveRegister("X28")
		plan.Frame.ForceSaveRegister("X19")
	}

	plan.Frame.RunLayout()

	s.Label(plan.Name)
	plan.Frame.GeneratePrologue(s)

	if needsBase {
		fg.emitDataBaseLoad()
	}

	if g.Tracer != nil {
		g.Tracer.Tracef(tracing.Codegen, "generating %s: %d blocks, needsBase=%v", plan.Name, len(plan.CFG.Blocks), needsBase)
	}

	for _, id := range fg.orderedBlockIDs() {
		blk := plan.CFG.Blocks[id]
		if err := fg.emitBlock(blk); err != nil {
			return errors.Wrapf(err, "codegen: function %s, block %d", plan.Name, id)
		}
	}

	s.Label(fg.epilogueLabel)
	plan.Frame.GenerateEpilogue(s)
	return nil
}

// orderedBlockIDs returns every block id with the entry block first,
// then the rest in ascending id order — a deliberately simple,
// deterministic traversal chosen over reverse-post-order so that two
// runs of the same program always produce byte-identical output
// (SPEC_FULL.md §4.9; see DESIGN.md's codegen entry for why this
// diverges from the reverse-post-order block walk common in SSA
// backends).
func (fg *funcGen) orderedBlockIDs() []int {
	ids := make([]int, 0, len(fg.plan.CFG.Blocks))
	for id := range fg.plan.CFG.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	if fg.plan.CFG.Entry == nil {
		return ids
	}
	entryID := fg.plan.CFG.Entry.ID
	for i, id := range ids {
		if id == entryID {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return append([]int{entryID}, ids...)
}

// emitDataBaseLoad loads X28 with the data-segment base and derives
// X19 as the runtime function-pointer table base, X28 + 524288
// (spec.md §4.9.2). Only emitted for functions that touch globals or
// call a runtime function.
func (fg *funcGen) emitDataBaseLoad() {
	s := fg.stream
	if fg.gen.Config.JITMode {
		inst := s.MOVZReloc("X28", dataSegmentBaseLabel, 0)
		inst.IsJIT = true
		for hw := 1; hw < 4; hw++ {
			i := s.MOVKReloc("X28", dataSegmentBaseLabel, hw)
			i.IsJIT = true
		}
	} else {
		s.ADRP("X28", dataSegmentBaseLabel)
		s.ADDImmReloc("X28", "X28", dataSegmentBaseLabel)
	}
	s.ADDImmShifted("X19", "X28", runtimeTableBaseOffset)
}

// emitBlock emits blk's label, its non-terminator statements in order,
// and its terminator (generic control-flow edges for KindNormal, the
// compare-and-branch chain for KindSwitch).
func (fg *funcGen) emitBlock(blk *cfg.Block) error {
	fg.stream.Label(fg.blockLabel(blk.ID))

	if blk.IsExit {
		fg.stream.B(fg.epilogueLabel)
		return nil
	}

	stmts := blk.Statements
	hasTerminatorStmt := blk.EndsWithControlFlow()
	body := stmts
	if hasTerminatorStmt {
		body = stmts[:len(stmts)-1]
	}
	for _, st := range body {
		if err := fg.emitStmt(st); err != nil {
			return err
		}
	}

	var last interface{}
	if hasTerminatorStmt {
		last = stmts[len(stmts)-1]
	}
	return fg.emitTerminator(blk, last)
}
