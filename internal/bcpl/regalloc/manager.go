package regalloc

import (
	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// ScratchHandle identifies a caller-saved temporary register acquired
// for the lifetime of evaluating one sub-expression. Deliberately a
// distinct type from VariableHandle (spec.md §9 Design Notes: two
// handle types so the type system catches a scratch/variable release
// mix-up at compile time).
type ScratchHandle struct {
	Reg  string
	kind Kind
}

// VariableHandle identifies a register currently bound to a named
// BCPL variable.
type VariableHandle struct {
	Reg      string
	Variable string
	kind     Kind
}

// FrameSpiller is the call frame manager's view from the register
// manager's perspective (spec.md §4.6: eviction "spills via the call
// frame manager"). internal/bcpl/frame.Frame implements this.
type FrameSpiller interface {
	MarkSpilled(name string, t types.VarType)
}

// Manager is the six-pool register manager of spec.md §4.6. Owned by
// one goroutine per function; ResetForFunction must be called before
// reuse across functions (spec.md §5's concurrency model).
type Manager struct {
	gpScratch  []*regRecord
	gpVariable []*regRecord
	fpScratch  []*regRecord
	fpVariable []*regRecord
	vecScratch []*regRecord
	vecVariable []*regRecord

	frame FrameSpiller
	tick  int
}

// NewManager constructs a Manager that spills evicted variable
// bindings through frame.
func NewManager(frame FrameSpiller) *Manager {
	m := &Manager{frame: frame}
	m.ResetForFunction(false)
	return m
}

// ResetForFunction clears all bookkeeping and selects the GP variable
// pool: extended (10 registers) when the function never accesses
// globals, standard (8 registers, reserving X19/X28) otherwise
// (spec.md §4.6).
func (m *Manager) ResetForFunction(accessesGlobals bool) {
	m.gpScratch = newPool(gpScratchNames)
	if accessesGlobals {
		m.gpVariable = newPool(gpVariableStandard)
	} else {
		m.gpVariable = newPool(gpVariableExtended)
	}
	m.fpScratch = newPool(fpScratchNames)
	m.fpVariable = newPool(fpVariableNames)
	m.vecScratch = newPool(vecScratchNames)
	m.vecVariable = newPool(vecVariableNames)
	m.tick = 0
}

func (m *Manager) scratchPool(k Kind) []*regRecord {
	switch k {
	case FP:
		return m.fpScratch
	case Vector:
		return m.vecScratch
	default:
		return m.gpScratch
	}
}

func (m *Manager) variablePool(k Kind) []*regRecord {
	switch k {
	case FP:
		return m.fpVariable
	case Vector:
		return m.vecVariable
	default:
		return m.gpVariable
	}
}

// AcquireScratchReg returns a free scratch register from the pool
// matching kind, erroring if none are available (spec.md §4.6).
func (m *Manager) AcquireScratchReg(kind Kind) (ScratchHandle, error) {
	for _, r := range m.scratchPool(kind) {
		if r.Status == statusFree {
			r.Status = statusScratch
			return ScratchHandle{Reg: r.Name, kind: kind}, nil
		}
	}
	return ScratchHandle{}, errors.Errorf("regalloc: no free scratch register in pool %v", kind)
}

// ReleaseScratch frees h, routing to the correct pool by kind.
func (m *Manager) ReleaseScratch(h ScratchHandle) {
	for _, r := range m.scratchPool(h.kind) {
		if r.Name == h.Reg {
			r.Status = statusFree
			r.Dirty = false
			return
		}
	}
}

// AcquireVariableReg binds name to a free register in the variable
// pool matching kind; if the pool is full, evicts the
// least-recently-used binding, spilling it via m.frame and marking it
// free before reuse (spec.md §4.6's acquire_spillable_temp_reg /
// _fp_temp_reg, generalized here to also cover the vector pool).
func (m *Manager) AcquireVariableReg(kind Kind, name string, t types.VarType) VariableHandle {
	pool := m.variablePool(kind)

	for _, r := range pool {
		if r.Status == statusFree {
			return m.bind(r, kind, name)
		}
	}

	victim := pool[0]
	for _, r := range pool[1:] {
		if r.lruTick < victim.lruTick {
			victim = r
		}
	}
	if m.frame != nil {
		m.frame.MarkSpilled(victim.Bound, t)
	}
	return m.bind(victim, kind, name)
}

func (m *Manager) bind(r *regRecord, kind Kind, name string) VariableHandle {
	m.tick++
	r.Status = statusVariable
	r.Bound = name
	r.Dirty = false
	r.lruTick = m.tick
	return VariableHandle{Reg: r.Name, Variable: name, kind: kind}
}

// ReleaseVariable frees h's register, routing by kind.
func (m *Manager) ReleaseVariable(h VariableHandle) {
	for _, r := range m.variablePool(h.kind) {
		if r.Name == h.Reg {
			r.Status = statusFree
			r.Bound = ""
			r.Dirty = false
			return
		}
	}
}

// MarkDirty records that h's register has been written since its last
// load, as reported by IsDirty; eviction does not consult it.
func (m *Manager) MarkDirty(h VariableHandle) {
	for _, r := range m.variablePool(h.kind) {
		if r.Name == h.Reg {
			r.Dirty = true
			return
		}
	}
}

// IsDirty reports whether h's register has pending unwritten state.
func (m *Manager) IsDirty(h VariableHandle) bool {
	for _, r := range m.variablePool(h.kind) {
		if r.Name == h.Reg {
			return r.Dirty
		}
	}
	return false
}

// InUseCallerSaved returns the names of every GP/FP/vector scratch
// register currently in use, for the code generator to save/restore
// explicitly around a call site (spec.md §4.6: "Caller-saved
// preservation across calls is not the Register Manager's job").
func (m *Manager) InUseCallerSaved() []string {
	var names []string
	for _, pool := range [][]*regRecord{m.gpScratch, m.fpScratch, m.vecScratch} {
		for _, r := range pool {
			if r.Status != statusFree {
				names = append(names, r.Name)
			}
		}
	}
	return names
}

// ReserveDataBase marks X28 as permanently in-use-data-base for the
// duration of the function, so the variable pool allocator never hands
// it out (used only when the code generator has decided the function
// needs the data-segment base register; spec.md §4.9.2).
func (m *Manager) ReserveDataBase() {
	m.reserve(m.gpVariable, "X28", statusDataBase)
}

// ReserveRuntimeTableBase marks X19 as permanently in-use-routine-addr,
// analogous to ReserveDataBase.
func (m *Manager) ReserveRuntimeTableBase() {
	m.reserve(m.gpVariable, "X19", statusRoutineAddr)
}

func (m *Manager) reserve(pool []*regRecord, name string, s status) {
	for _, r := range pool {
		if r.Name == name {
			r.Status = s
			return
		}
	}
}
