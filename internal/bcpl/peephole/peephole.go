// Package peephole implements the pattern-based rewrite pass spec.md
// §4.11 describes: fixed-window matchers over the code generator's
// Instruction Stream, run to a fixed point (capped at maxPasses), each
// skipping any window whose rewrite would strand a label reference.
// Runs before the Linker (spec.md §4.10's pipeline diagram), so every
// matcher reasons about instructions purely by their Mnemonic/Operands
// text and Reloc/Target fields — never about an assigned Address.
package peephole

import (
	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
)

// maxPasses bounds the fixed-point loop (spec.md §4.11: "up to 20
// passes or until stable").
const maxPasses = 20

// real is one non-label instruction together with every label bound
// to it — the label(s) whose Stream position immediately precedes
// this instruction with nothing but other labels in between.
type real struct {
	inst   arm64.Instruction
	labels []string
}

// Run applies every mandatory pattern to s's instruction stream to a
// fixed point and reports whether anything changed.
func Run(s *arm64.Stream) bool {
	reals := realize(s.Instructions)

	everChanged := false
	for pass := 0; pass < maxPasses; pass++ {
		var changed bool
		reals, changed = runOnce(reals)
		if changed {
			everChanged = true
		}
		if !changed {
			break
		}
	}

	s.Instructions = flatten(reals)
	return everChanged
}

// realize groups s's raw instruction records into reals, associating
// each label definition with the next non-label record that follows
// it — the same grouping link.go's layOut pass uses to bind a label's
// eventual address.
func realize(raw []arm64.Instruction) []real {
	var out []real
	var pending []string
	for _, inst := range raw {
		if inst.IsLabel {
			pending = append(pending, inst.LabelName)
			continue
		}
		out = append(out, real{inst: inst, labels: pending})
		pending = nil
	}
	// A label with nothing following it (shouldn't happen in a
	// well-formed stream) is simply dropped rather than crashing the
	// pass; link.Link independently rejects this as fatal.
	return out
}

// flatten rebuilds a raw instruction slice from reals, re-emitting
// each entry's labels as Label records immediately before it.
func flatten(reals []real) []arm64.Instruction {
	var out []arm64.Instruction
	for _, r := range reals {
		for _, name := range r.labels {
			out = append(out, arm64.Instruction{IsLabel: true, LabelName: name, Mnemonic: "label", Operands: name})
		}
		out = append(out, r.inst)
	}
	return out
}

// matcher is one mandatory pattern: given reals starting at i, it
// either returns the window length it consumed, the replacement
// instructions, and true, or (0, nil, false) if it doesn't match here.
type matcher func(reals []real, i int) (windowLen int, replacement []arm64.Instruction, ok bool)

var matchers = []matcher{
	matchRedundantMove,
	matchLoadAfterStore,
	matchDeadStore,
	matchRedundantCompare,
	matchConstantFold,
	matchStrengthReduction,
	matchCompareZeroCset,
}

// runOnce makes one left-to-right sweep, applying the first matching
// pattern at each position (restarting at the same index after a
// rewrite, since the replacement may itself start a new match), then
// does one global branch-chaining sweep.
func runOnce(reals []real) ([]real, bool) {
	changed := false

	for i := 0; i < len(reals); {
		matched := false
		for _, m := range matchers {
			k, replacement, ok := m(reals, i)
			if !ok {
				continue
			}
			if !windowSafe(reals, i, k) {
				continue
			}
			reals = replaceWindow(reals, i, k, replacement)
			changed = true
			matched = true
			break
		}
		if !matched {
			i++
		}
	}

	if chainBranches(reals) {
		changed = true
	}

	return reals, changed
}

// windowSafe reports whether every real strictly after reals[i] within
// the k-long window carries no label — a label bound to anything but
// the window's first instruction would lose its target once the
// window is rewritten (spec.md §4.11: "skips any window whose
// replacement would break a label reference into the replaced range").
func windowSafe(reals []real, i, k int) bool {
	for j := i + 1; j < i+k && j < len(reals); j++ {
		if len(reals[j].labels) > 0 {
			return false
		}
	}
	return true
}

// replaceWindow swaps reals[i:i+k] for replacement, carrying the
// window's own labels onto the first surviving instruction — the next
// instruction after the window, if replacement is empty.
func replaceWindow(reals []real, i, k int, replacement []arm64.Instruction) []real {
	labels := reals[i].labels

	var newEntries []real
	for _, inst := range replacement {
		newEntries = append(newEntries, real{inst: inst})
	}

	out := make([]real, 0, len(reals)-k+len(newEntries))
	out = append(out, reals[:i]...)
	if len(newEntries) > 0 {
		newEntries[0].labels = append(append([]string(nil), labels...), newEntries[0].labels...)
		out = append(out, newEntries...)
		out = append(out, reals[i+k:]...)
	} else {
		tail := append([]real(nil), reals[i+k:]...)
		if len(labels) > 0 && len(tail) > 0 {
			tail[0].labels = append(append([]string(nil), labels...), tail[0].labels...)
		}
		out = append(out, tail...)
	}
	return out
}
