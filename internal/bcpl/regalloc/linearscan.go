package regalloc

import (
	"sort"

	"github.com/albanread/bcplc-go/internal/bcpl/liveness"
)

// Decision is the linear-scan allocator's verdict for one variable:
// either an assigned register or a frame-slot spill (spec.md §4.8).
type Decision struct {
	Interval liveness.LiveInterval
	Register string // empty when Spilled
	Spilled  bool
}

type active struct {
	reg      string
	interval liveness.LiveInterval
}

// Allocate runs linear-scan register allocation over intervals exactly
// as spec.md §4.8 specifies: sort by start point; walk expiring
// finished intervals before considering each new one; decide GP vs FP
// from the variable's VarType; assign a free register if the matching
// pool has one; otherwise spill either the current interval or the
// active interval in the same pool with the latest end point,
// whichever ends later.
//
// primed pre-assigns the function's first eight parameters straight to
// argument registers (caller passes a name→register map built from the
// parameter list in declaration order, X0-X7/D0-D7 by VarType);
// preSpilled names are parameters beyond the eighth, spilled by
// construction with no allocator consideration at all. The vector pool
// is never a linear-scan target: vector-typed temporaries are always
// scratch-acquired directly by the code generator, never bound to a
// named BCPL variable, so only GP and FP pools are walked here.
func Allocate(intervals []liveness.LiveInterval, extendedGP bool, primed map[string]string, preSpilled map[string]bool, frame FrameSpiller) map[string]Decision {
	sorted := make([]liveness.LiveInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	gpFree := availableAfterPriming(VariablePoolNames(GP, extendedGP), primed)
	fpFree := availableAfterPriming(VariablePoolNames(FP, extendedGP), primed)

	var gpActive, fpActive []active
	decisions := make(map[string]Decision, len(sorted))

	for name, reg := range primed {
		decisions[name] = Decision{Register: reg}
	}
	for name := range preSpilled {
		decisions[name] = Decision{Spilled: true}
	}

	for _, iv := range sorted {
		if _, done := decisions[iv.Name]; done {
			continue
		}

		if KindOf(iv.Type) == FP {
			fpActive = expire(fpActive, iv.Start, &fpFree)
			if len(fpFree) > 0 {
				reg := popFree(&fpFree)
				fpActive = append(fpActive, active{reg: reg, interval: iv})
				decisions[iv.Name] = Decision{Interval: iv, Register: reg}
				continue
			}
			var d Decision
			d, fpActive = spillOrAssign(iv, fpActive, frame)
			decisions[iv.Name] = d
			continue
		}

		gpActive = expire(gpActive, iv.Start, &gpFree)
		if len(gpFree) > 0 {
			reg := popFree(&gpFree)
			gpActive = append(gpActive, active{reg: reg, interval: iv})
			decisions[iv.Name] = Decision{Interval: iv, Register: reg}
			continue
		}
		var d Decision
		d, gpActive = spillOrAssign(iv, gpActive, frame)
		decisions[iv.Name] = d
	}

	return decisions
}

// expire removes from pool every active interval whose end point
// precedes start, returning its register to the front of free so it is
// the next one handed out.
func expire(pool []active, start int, free *[]string) []active {
	kept := pool[:0]
	for _, a := range pool {
		if a.interval.End < start {
			*free = append([]string{a.reg}, *free...)
		} else {
			kept = append(kept, a)
		}
	}
	return kept
}

// spillOrAssign implements spec.md §4.8 step 2d: the active interval in
// pool with the latest end point is the spill candidate; if its end
// exceeds iv's end, it is spilled and its register reused for iv,
// otherwise iv itself is spilled.
func spillOrAssign(iv liveness.LiveInterval, pool []active, frame FrameSpiller) (Decision, []active) {
	if len(pool) == 0 {
		if frame != nil {
			frame.MarkSpilled(iv.Name, iv.Type)
		}
		return Decision{Interval: iv, Spilled: true}, pool
	}

	worst := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].interval.End > pool[worst].interval.End {
			worst = i
		}
	}

	if pool[worst].interval.End > iv.End {
		if frame != nil {
			frame.MarkSpilled(pool[worst].interval.Name, pool[worst].interval.Type)
		}
		reg := pool[worst].reg
		pool[worst] = active{reg: reg, interval: iv}
		return Decision{Interval: iv, Register: reg}, pool
	}

	if frame != nil {
		frame.MarkSpilled(iv.Name, iv.Type)
	}
	return Decision{Interval: iv, Spilled: true}, pool
}

func popFree(free *[]string) string {
	reg := (*free)[0]
	*free = (*free)[1:]
	return reg
}

func availableAfterPriming(names []string, primed map[string]string) []string {
	used := make(map[string]bool, len(primed))
	for _, r := range primed {
		used[r] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !used[n] {
			out = append(out, n)
		}
	}
	return out
}
