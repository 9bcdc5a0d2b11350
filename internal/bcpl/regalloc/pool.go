// Package regalloc implements the six-pool register manager (spec.md
// §4.6) and the linear-scan allocator that walks live intervals over
// it (spec.md §4.8).
package regalloc

import "github.com/albanread/bcplc-go/internal/bcpl/types"

// Kind distinguishes which of the three register families (general
// purpose, floating point, vector) a request is for.
type Kind int

const (
	GP Kind = iota
	FP
	Vector
)

// KindOf decides GP vs FP vs Vector from a variable's VarType, per
// spec.md §4.8 step 2b ("float → FP"). Any pointer/container type
// (list, vector, table, string) is a plain 64-bit address and goes in
// the GP pool.
func KindOf(t types.VarType) Kind {
	if t.IsFloat() {
		return FP
	}
	return GP
}

// status is a register record's occupancy state (spec.md §4.6: "status
// ∈ {free, in-use-variable, in-use-scratch, in-use-routine-addr,
// in-use-data-base}").
type status int

const (
	statusFree status = iota
	statusVariable
	statusScratch
	statusRoutineAddr
	statusDataBase
)

// regRecord is one physical register's bookkeeping entry.
type regRecord struct {
	Name    string // assembly register name, e.g. "X20", "D9", "V3"
	Status  status
	Bound   string // variable name, when Status == statusVariable
	Dirty   bool
	lruTick int
}

// gpScratchNames are the caller-saved AArch64 GP temporaries never
// used for parameter passing (X9-X15; X16/X17 are the platform's IP0/
// IP1 linker-reserved scratch registers and X18 is the platform
// register, so none of the three are available here).
var gpScratchNames = []string{"X9", "X10", "X11", "X12", "X13", "X14", "X15"}

// gpVariableStandard is the callee-saved GP variable pool when the
// function accesses globals or calls a runtime function: X19 and X28
// are reserved for the runtime-table base and data-segment base
// respectively (spec.md §4.9.2), leaving eight slots.
var gpVariableStandard = []string{"X20", "X21", "X22", "X23", "X24", "X25", "X26", "X27"}

// gpVariableExtended is the pool used when the function never accesses
// globals: X19 and X28 are not needed for the runtime table or data
// base and become two extra variable slots (spec.md §4.6's "extended
// pool that also borrows caller-saved slots when the function never
// accesses globals" — this port reads that as X19/X28 rejoining the
// variable pool, since those are the two specific registers the
// standard pool withholds for globals-awareness; see DESIGN.md).
var gpVariableExtended = []string{"X19", "X20", "X21", "X22", "X23", "X24", "X25", "X26", "X27", "X28"}

// fpScratchNames and vecScratchNames mirror each other per spec.md
// §4.6's "analogous partition": D0-D7/D16-D31 and V0-V7/V16-V31.
var fpScratchNames = []string{
	"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7",
	"D16", "D17", "D18", "D19", "D20", "D21", "D22", "D23",
	"D24", "D25", "D26", "D27", "D28", "D29", "D30", "D31",
}
var fpVariableNames = []string{"D8", "D9", "D10", "D11", "D12", "D13", "D14", "D15"}

var vecScratchNames = []string{
	"V0", "V1", "V2", "V3", "V4", "V5", "V6", "V7",
	"V16", "V17", "V18", "V19", "V20", "V21", "V22", "V23",
	"V24", "V25", "V26", "V27", "V28", "V29", "V30", "V31",
}
var vecVariableNames = []string{"V8", "V9", "V10", "V11", "V12", "V13", "V14", "V15"}

// VariablePoolNames returns a fresh copy of the register names in
// kind's variable pool, selecting the extended GP pool (10 registers)
// instead of the standard one (8) when extendedGP is set. Used by the
// linear-scan allocator, which tracks its own free-list independent of
// the runtime Manager's bookkeeping.
func VariablePoolNames(kind Kind, extendedGP bool) []string {
	switch kind {
	case FP:
		return append([]string(nil), fpVariableNames...)
	case Vector:
		return append([]string(nil), vecVariableNames...)
	default:
		if extendedGP {
			return append([]string(nil), gpVariableExtended...)
		}
		return append([]string(nil), gpVariableStandard...)
	}
}

func newPool(names []string) []*regRecord {
	pool := make([]*regRecord, len(names))
	for i, n := range names {
		pool[i] = &regRecord{Name: n, Status: statusFree}
	}
	return pool
}
