// Package frame implements the per-function Call Frame Manager spec.md
// §4.7 describes: parameter/local registration, spill-slot bookkeeping,
// callee-saved tracking, and prologue/epilogue emission including the
// optional stack canary.
package frame

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/isa/arm64"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// stackCanaryLabel is the rodata symbol holding the process-wide canary
// word every function's prologue/epilogue reads and compares.
const stackCanaryLabel = "L__stack_canary"

// canaryCheckFailLabel is where the epilogue branches when the canary
// comparison fails; the runtime-call ABI resolves it to the C runtime's
// abort path (out of scope here; only the branch target name matters).
const canaryCheckFailLabel = "L__stack_check_fail"

type slot struct {
	name   string
	t      types.VarType
	offset int
}

// Frame is one function's stack layout. Not concurrency-safe by
// design: owned by a single goroutine per function and reset via
// NewFrame between functions (spec.md §5).
type Frame struct {
	FuncName      string
	CanaryEnabled bool

	params []slot
	locals []slot
	spills []slot
	spillByName map[string]int // name -> index into spills

	calleeSaved []string

	preallocatedSpillSlots int

	frameSize    int
	canaryOffset int
	calleeOffset map[string]int
	laidOut      bool
}

// NewFrame starts a fresh Frame for funcName.
func NewFrame(funcName string, canary bool) *Frame {
	return &Frame{
		FuncName:      funcName,
		CanaryEnabled: canary,
		spillByName:   make(map[string]int),
		calleeOffset:  make(map[string]int),
	}
}

// AddParameter records a parameter in declaration order.
func (f *Frame) AddParameter(name string, t types.VarType) {
	f.params = append(f.params, slot{name: name, t: t})
}

// AddLocal records a local variable distinct from any parameter.
func (f *Frame) AddLocal(name string, t types.VarType) {
	f.locals = append(f.locals, slot{name: name, t: t})
}

// PreallocateSpillSlots records the register-pressure heuristic's slot
// count (`max_live_variables - |variable_regs|`, bounded below by
// zero — the caller computes and clamps this before calling). It is
// informational sizing only: actual slot identities are still
// assigned lazily, by first touch, in AcquireSpillSlot/MarkSpilled;
// this keeps layout() correct even though the exact set of spilled
// variable names isn't known until the allocator runs.
func (f *Frame) PreallocateSpillSlots(n int) {
	if n > f.preallocatedSpillSlots {
		f.preallocatedSpillSlots = n
	}
}

// AcquireSpillSlot returns name's frame offset, creating a new slot on
// first touch. Safe to call before or after layout(); if called after,
// the caller must not acquire a new (never-before-seen) name, since
// growing the frame after the prologue is generated would invalidate
// already-emitted offsets — RunLayout should always run after every
// intended spill is known.
func (f *Frame) AcquireSpillSlot(name string, t types.VarType) int {
	if i, ok := f.spillByName[name]; ok {
		return f.spills[i].offset
	}
	f.spillByName[name] = len(f.spills)
	f.spills = append(f.spills, slot{name: name, t: t})
	if f.laidOut {
		f.layout()
	}
	return f.spills[len(f.spills)-1].offset
}

// MarkSpilled implements regalloc.FrameSpiller: the register manager
// calls this when it evicts a binding to make room for another.
func (f *Frame) MarkSpilled(name string, t types.VarType) {
	f.AcquireSpillSlot(name, t)
}

// ForceSaveRegister declares that the code generator used a specific
// callee-saved register (e.g. X19 or X28 when globals are accessed),
// after the register manager has decided allocation (spec.md §4.7).
func (f *Frame) ForceSaveRegister(reg string) {
	for _, r := range f.calleeSaved {
		if r == reg {
			return
		}
	}
	f.calleeSaved = append(f.calleeSaved, reg)
}

func round16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// layout assigns fp-relative offsets to every parameter, local, and
// spill slot, plus the callee-saved save area and the optional canary
// slot, and fixes the total frame size (always a multiple of 16 —
// spec.md §4.7's invariant).
func (f *Frame) layout() {
	idx := 0
	assign := func(slots []slot) {
		for i := range slots {
			idx++
			slots[i].offset = -8 * idx
		}
	}
	assign(f.params)
	assign(f.locals)
	assign(f.spills)

	variableBytes := 8 * idx
	calleePairs := (len(f.calleeSaved) + 1) / 2
	calleeBytes := 16 * calleePairs
	canaryBytes := 0
	if f.CanaryEnabled {
		canaryBytes = 16
	}

	f.frameSize = round16(variableBytes + calleeBytes + canaryBytes)

	base := -variableBytes
	for i := 0; i < len(f.calleeSaved); i += 2 {
		pairOffset := base - 16*(i/2+1)
		f.calleeOffset[f.calleeSaved[i]] = pairOffset
		if i+1 < len(f.calleeSaved) {
			f.calleeOffset[f.calleeSaved[i+1]] = pairOffset + 8
		}
	}

	if f.CanaryEnabled {
		f.canaryOffset = -f.frameSize
	}

	f.laidOut = true
}

// RunLayout finalizes the frame's offsets. Must be called exactly once,
// after every parameter/local/spill slot and every ForceSaveRegister
// call has been made, and before GeneratePrologue/GetOffset.
func (f *Frame) RunLayout() {
	f.layout()
}

// GetOffset answers spec.md §4.7's get_offset(name): the final
// fp-relative byte offset, or a fatal internal-consistency error if
// layout hasn't run yet or name is unknown.
func (f *Frame) GetOffset(name string) (int, error) {
	if !f.laidOut {
		return 0, errors.Errorf("frame: GetOffset(%q) called before layout for function %s", name, f.FuncName)
	}
	for _, s := range f.params {
		if s.name == name {
			return s.offset, nil
		}
	}
	for _, s := range f.locals {
		if s.name == name {
			return s.offset, nil
		}
	}
	for _, s := range f.spills {
		if s.name == name {
			return s.offset, nil
		}
	}
	return 0, errors.Errorf("frame: unknown variable %q in function %s", name, f.FuncName)
}

// FrameSize returns the total stack reservation, valid after RunLayout.
func (f *Frame) FrameSize() int { return f.frameSize }
