package liveness

import (
	"sort"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// LiveInterval is one variable's [Start, End] instruction-number range
// within a single function, per spec.md §4.5.
type LiveInterval struct {
	Name  string
	Start int
	End   int
	Type  types.VarType
}

// TypeLookup resolves a variable or parameter's type within the
// function whose CFG is being linearized; callers pass
// (*sema.FunctionMetrics).VariableOrParamType.
type TypeLookup func(name string) (types.VarType, bool)

// BuildIntervals linearizes g by sorting block ids deterministically
// (spec.md §4.5's Open Question is resolved as sorted-by-id, not
// reverse-post-order — see DESIGN.md) and numbering every statement in
// that emission order, then records, per variable, the first
// instruction number it appears in and the last instruction number it
// is used or defined in.
func BuildIntervals(g *cfg.CFG, typeOf TypeLookup) []LiveInterval {
	ids := make([]int, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	starts := make(map[string]int)
	ends := make(map[string]int)
	order := make([]string, 0)

	instr := 0
	touch := func(name string) {
		if _, ok := starts[name]; !ok {
			starts[name] = instr
			order = append(order, name)
		}
		ends[name] = instr
	}

	for _, id := range ids {
		b := g.Blocks[id]
		for _, s := range b.Statements {
			if ud, ok := s.(ast.UsesDefines); ok {
				for _, name := range ud.UsedVariables() {
					touch(name)
				}
				for _, name := range ud.DefinedVariables() {
					touch(name)
				}
			}
			instr++
		}
	}

	intervals := make([]LiveInterval, 0, len(order))
	for _, name := range order {
		t, _ := typeOf(name)
		intervals = append(intervals, LiveInterval{
			Name:  name,
			Start: starts[name],
			End:   ends[name],
			Type:  t,
		})
	}
	return intervals
}
