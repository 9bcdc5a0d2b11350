package sema

import "github.com/albanread/bcplc-go/internal/bcpl/types"

// FunctionMetrics is the per-function record spec.md §3 describes:
// parameter count and indices, int and float local counts, per-variable
// VarType map, peak live-variable count, counts of local vs. runtime
// calls, vector-allocation flag, accesses-globals flag.
//
// Invariant: for every variable name referenced in a function's body,
// either the name is a parameter, a local recorded here, or a global
// resolved through the symbol table.
type FunctionMetrics struct {
	Name string

	NumParameters    int
	ParameterIndices map[string]int
	ParameterTypes   map[string]types.VarType

	NumIntVariables   int
	NumFloatVariables int
	VariableTypes     map[string]types.VarType

	NumLocalFunctionCalls int
	NumLocalRoutineCalls  int
	NumRuntimeCalls       int

	HasVectorAllocations bool
	AccessesGlobals      bool

	// MaxLiveVariables is the register-pressure metric computed by the
	// liveness pass (spec.md §4.4) and consumed by the call frame
	// manager's spill-slot preallocation heuristic (spec.md §4.7). It
	// starts at zero and is filled in after liveness runs.
	MaxLiveVariables int
}

func newFunctionMetrics(name string) *FunctionMetrics {
	return &FunctionMetrics{
		Name:             name,
		ParameterIndices: make(map[string]int),
		ParameterTypes:   make(map[string]types.VarType),
		VariableTypes:    make(map[string]types.VarType),
	}
}

// RecordVariable records (or updates) the inferred type of a local
// variable, and bumps the int/float local counters the first time the
// name is seen.
func (m *FunctionMetrics) RecordVariable(name string, t types.VarType) {
	if _, seen := m.VariableTypes[name]; !seen {
		if t.IsFloat() {
			m.NumFloatVariables++
		} else {
			m.NumIntVariables++
		}
	}
	m.VariableTypes[name] = t
}

// VariableOrParamType returns the type recorded for name, checking
// parameters first, then locals; ok is false if name is neither.
func (m *FunctionMetrics) VariableOrParamType(name string) (types.VarType, bool) {
	if t, ok := m.ParameterTypes[name]; ok {
		return t, true
	}
	if t, ok := m.VariableTypes[name]; ok {
		return t, true
	}
	return types.Unknown, false
}
