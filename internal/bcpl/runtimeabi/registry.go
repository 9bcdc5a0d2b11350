// Package runtimeabi implements the runtime function-pointer table
// registry spec.md §6 describes: a process-global, append-only table of
// {name, slot offset, type} entries the code generator resolves calls
// against and the linker/JIT driver use to lay out the actual table in
// memory. Built once per compilation (spec.md §9's Design Notes:
// global mutable state ported as an explicit, passed-in struct rather
// than a package-level singleton), then frozen and treated as
// read-only by every later pass.
package runtimeabi

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// tableBase is the runtime function-pointer table's offset from the
// data-segment base (spec.md §6: "starting at offset 524288"). X19 is
// set to X28 + tableBase at prologue time for any function that
// accesses globals or calls a runtime function (spec.md §4.9.2).
const tableBase = 524288

// slotSize is one table entry's width: a single absolute address.
const slotSize = 8

// maxSlots bounds the table per spec.md §6 ("up to 256 entries").
const maxSlots = 256

// Entry is one registered runtime function.
type Entry struct {
	Name       string
	SlotOffset int // byte offset from tableBase
	Return     types.VarType
	ParamTypes []types.VarType
}

// Registry accumulates Entry records in registration order and assigns
// each a fixed slot; the driver writes each function's resolved
// absolute address into its slot before invoking the JIT (spec.md §6).
type Registry struct {
	byName map[string]Entry
	order  []string
	frozen bool
}

// NewRegistry returns an empty, unfrozen Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Entry)}
}

// Register assigns name the next free slot. Calling Register after
// Freeze, registering the same name twice, or exceeding maxSlots is an
// internal-consistency error (spec.md §7): the set of runtime functions
// a compilation needs is fixed before code generation begins.
func (r *Registry) Register(name string, ret types.VarType, params ...types.VarType) error {
	if r.frozen {
		return errors.Errorf("runtimeabi: Register(%q) called after Freeze", name)
	}
	if _, dup := r.byName[name]; dup {
		return errors.Errorf("runtimeabi: %q registered twice", name)
	}
	if len(r.order) >= maxSlots {
		return errors.Errorf("runtimeabi: runtime function-pointer table exhausted (max %d entries)", maxSlots)
	}
	r.byName[name] = Entry{
		Name:       name,
		SlotOffset: len(r.order) * slotSize,
		Return:     ret,
		ParamTypes: append([]types.VarType(nil), params...),
	}
	r.order = append(r.order, name)
	return nil
}

// Freeze forbids further registration. The code generator and linker
// both require a frozen Registry, so that slot offsets are stable
// across every reference to the same name.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen }

// Lookup returns name's Entry, if registered.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// TableOffset returns the absolute byte offset of name's slot from the
// data-segment base (X28), i.e. tableBase + SlotOffset. The code
// generator does not call it.
func (r *Registry) TableOffset(name string) (int, bool) {
	e, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return tableBase + e.SlotOffset, true
}

// Entries returns every registered entry in registration order,
// deterministic for the driver's table-population pass and for
// asmwriter's `.globl` emission.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Names returns every registered name, sorted — used where only a
// deterministic iteration order matters and registration order isn't
// semantically significant (e.g. `--asm`'s `.globl` symbol list).
func (r *Registry) Names() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Standard registers the fixed set of runtime intrinsics spec.md §4.12
// (SPEC_FULL.md) names: I/O (WRITES/WRITEN/WRITEF), string/list
// manipulation (SPLIT/JOIN/REVERSE/APND/FILTER/CONCAT/FIND), heap alloc/free,
// the AS_* type-checked extractors, and the list/vector/table
// constructors. Returns the populated, still-unfrozen Registry so a
// caller (the driver) may add program-specific entries before Freeze.
func Standard() *Registry {
	r := NewRegistry()
	must := func(name string, ret types.VarType, params ...types.VarType) {
		if err := r.Register(name, ret, params...); err != nil {
			panic(err) // registering the fixed standard set can never fail
		}
	}

	must("WRITES", types.Unknown, types.PointerToString)
	must("WRITEN", types.Unknown, types.Integer)
	must("WRITEF", types.Unknown, types.PointerToString)

	must("SPLIT", types.PointerToStringList, types.PointerToString, types.Integer)
	must("JOIN", types.PointerToString, types.PointerToStringList, types.Integer)
	must("REVERSE", types.PointerToListNode, types.PointerToListNode)
	must("APND", types.PointerToListNode, types.PointerToListNode, types.PointerToListNode)
	must("FILTER", types.PointerToListNode, types.PointerToListNode, types.Integer)
	must("CONCAT", types.PointerToString, types.PointerToString, types.PointerToString)
	must("FIND", types.PointerToListNode, types.PointerToListNode, types.Integer)

	must("ALLOC", types.PointerToInt, types.Integer)
	must("FREE", types.Unknown, types.PointerToInt)

	must("AS_INT", types.Integer, types.Any)
	must("AS_FLOAT", types.Float, types.Any)
	must("AS_STRING", types.PointerToString, types.Any)
	must("AS_LIST", types.PointerToListNode, types.Any)

	must("MAKE_LIST", types.PointerToListNode)
	must("MAKE_VEC", types.PointerToIntVec, types.Integer)
	must("MAKE_TABLE", types.PointerToTable, types.Integer)
	must("LIST_PREPEND", types.PointerToListNode, types.Any, types.Integer, types.PointerToListNode)

	must("FINISH", types.Unknown)

	return r
}
