// Package symtab implements the lexically scoped map from name to
// symbol record (spec.md §3, "Symbol"). It is mutated only by the
// analyzer and the code generator, never concurrently (spec.md §5).
package symtab

import "github.com/albanread/bcplc-go/internal/bcpl/types"

// Kind enumerates the symbol kinds spec.md §3 lists.
type Kind int

const (
	KindLocal Kind = iota
	KindStatic
	KindGlobal
	KindParameter
	KindFunctionInt
	KindFunctionFloat
	KindRoutine
	KindLabel
	KindManifest
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindStatic:
		return "static"
	case KindGlobal:
		return "global"
	case KindParameter:
		return "parameter"
	case KindFunctionInt:
		return "function-int"
	case KindFunctionFloat:
		return "function-float"
	case KindRoutine:
		return "routine"
	case KindLabel:
		return "label"
	case KindManifest:
		return "manifest"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// LocationKind enumerates where a symbol ultimately lives, per spec.md
// §3: "location ∈ {stack(fp-relative offset), data(word offset),
// absolute(int value), label, unknown}".
type LocationKind int

const (
	LocUnknown LocationKind = iota
	LocStack
	LocData
	LocAbsolute
	LocLabel
)

// Location is a tagged union (Go has no sum types) over the possible
// storage locations of a Symbol. Only the field matching Kind is
// meaningful.
type Location struct {
	Kind       LocationKind
	StackOffset int64  // fp-relative byte offset, valid when Kind == LocStack
	DataOffset  int64  // word offset into the data segment, valid when Kind == LocData
	Absolute    int64  // valid when Kind == LocAbsolute (e.g. manifest value)
	Label       string // valid when Kind == LocLabel
}

// Symbol is the record spec.md §3 describes: name, kind, type, scope
// level, location, and (for array-like or function-like symbols)
// optional size/parameter metadata. Created by the analyzer and the
// code generator; mutated to record location once the frame is laid
// out; never destroyed before the owning compilation finishes.
type Symbol struct {
	Name       string
	Kind       Kind
	Type       types.VarType
	ScopeLevel int
	Location   Location
	// Size is set for array-like symbols (VEC allocations).
	Size int64
	// Params is set for function-like symbols (function/routine/runtime).
	Params []ParamInfo
}

// ParamInfo records a single parameter's name and type for a
// function-like symbol.
type ParamInfo struct {
	Name string
	Type types.VarType
}

// SetStackLocation records the symbol's fp-relative offset once the
// call frame has assigned it.
func (s *Symbol) SetStackLocation(offset int64) {
	s.Location = Location{Kind: LocStack, StackOffset: offset}
}

// SetDataLocation records the symbol's word offset into the data
// segment.
func (s *Symbol) SetDataLocation(wordOffset int64) {
	s.Location = Location{Kind: LocData, DataOffset: wordOffset}
}

// SetAbsoluteLocation records a compile-time absolute value (manifests).
func (s *Symbol) SetAbsoluteLocation(value int64) {
	s.Location = Location{Kind: LocAbsolute, Absolute: value}
}

// SetLabelLocation records a symbolic label (functions, routines,
// runtime entries).
func (s *Symbol) SetLabelLocation(label string) {
	s.Location = Location{Kind: LocLabel, Label: label}
}
