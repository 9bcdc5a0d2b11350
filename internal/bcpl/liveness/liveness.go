// Package liveness computes per-block use/def sets and solves the
// backward dataflow equations spec.md §4.4 describes, then linearizes
// the result into per-variable live intervals (§4.5) that the linear-
// scan allocator consumes.
package liveness

import (
	"sort"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/cfg"
)

// Set is an unordered collection of variable names, used for a block's
// use/in/out/def sets.
type Set map[string]bool

func newSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s Set) union(other Set) {
	for k := range other {
		s[k] = true
	}
}

func (s Set) equals(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other[k] {
			return false
		}
	}
	return true
}

// BlockInfo holds one block's use/def/in/out sets.
type BlockInfo struct {
	Use Set
	Def Set
	In  Set
	Out Set
}

// Result is the liveness solution for one function's CFG: per-block
// in/out/use/def sets, plus the register-pressure metric spec.md §4.4
// says to feed back onto the function's metrics.
type Result struct {
	Blocks          map[int]*BlockInfo
	RegisterPressure int
}

// Analyze computes use/def per block by visiting each block's
// statements in order (a variable is "used" only if it is read before
// being (re)defined within the same block — spec.md §4.4), then solves
// `in[b] = use[b] ∪ (out[b] \ def[b])`, `out[b] = ∪ in[s]` over
// successors s to a fixed point.
func Analyze(g *cfg.CFG) *Result {
	res := &Result{Blocks: make(map[int]*BlockInfo, len(g.Blocks))}

	ids := make([]int, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		b := g.Blocks[id]
		use, def := blockUseDef(b)
		res.Blocks[id] = &BlockInfo{
			Use: use,
			Def: def,
			In:  newSet(),
			Out: newSet(),
		}
	}

	changed := true
	for changed {
		changed = false
		for _, id := range ids {
			b := g.Blocks[id]
			info := res.Blocks[id]

			out := newSet()
			for _, succ := range b.Succs {
				out.union(res.Blocks[succ.ID].In)
			}

			in := info.Use.clone()
			for name := range out {
				if !info.Def[name] {
					in[name] = true
				}
			}

			if !in.equals(info.In) || !out.equals(info.Out) {
				info.In = in
				info.Out = out
				changed = true
			}
		}
	}

	pressure := 0
	for _, info := range res.Blocks {
		if len(info.In) > pressure {
			pressure = len(info.In)
		}
		if len(info.Out) > pressure {
			pressure = len(info.Out)
		}
	}
	res.RegisterPressure = pressure

	return res
}

// blockUseDef visits b's statements in order, accumulating use and def
// sets: a name already defined earlier in the block no longer counts
// as a use when it reappears on a later RHS (it reads the
// block-local definition, not anything live-in).
func blockUseDef(b *cfg.Block) (use, def Set) {
	use, def = newSet(), newSet()
	for _, s := range b.Statements {
		ud, ok := s.(ast.UsesDefines)
		if !ok {
			continue
		}
		for _, name := range ud.UsedVariables() {
			if !def[name] {
				use[name] = true
			}
		}
		for _, name := range ud.DefinedVariables() {
			def[name] = true
		}
	}
	return use, def
}
