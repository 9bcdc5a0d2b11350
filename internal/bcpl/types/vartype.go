// Package types defines the compiler's internal type descriptor for BCPL
// values: a bitfield over primitive kinds, container modifiers, and
// attribute modifiers. The encoding mirrors the original C++ compiler's
// `enum class VarType : int64_t` (see original_source/DataTypes.h) so that
// bit values carried over from test fixtures or the (out of scope) parser
// stay meaningful.
package types

import "strings"

// VarType is a bitfield-coded sum over primitive kinds crossed with
// container and attribute modifiers. Combinations such as
// "const pointer-to list of integer" are legal; the type system is
// nominal-by-tag, with no structural subtyping.
type VarType uint32

// Primitive kinds.
const (
	Unknown VarType = 0
	Integer VarType = 1 << 0
	Float   VarType = 1 << 1
	String  VarType = 1 << 2
	Any     VarType = 1 << 3
)

// Container modifiers.
const (
	Vec   VarType = 1 << 8
	List  VarType = 1 << 9
	Table VarType = 1 << 10
)

// Attribute modifiers.
const (
	PointerTo VarType = 1 << 12
	Const     VarType = 1 << 13
)

// Convenience combinations, matching the original's named composites.
const (
	PointerToIntList    = PointerTo | List | Integer
	PointerToFloatList  = PointerTo | List | Float
	PointerToStringList = PointerTo | List | String
	PointerToAnyList    = PointerTo | List | Any

	ConstPointerToIntList    = Const | PointerTo | List | Integer
	ConstPointerToFloatList  = Const | PointerTo | List | Float
	ConstPointerToStringList = Const | PointerTo | List | String
	ConstPointerToAnyList    = Const | PointerTo | List | Any

	PointerToIntVec   = PointerTo | Vec | Integer
	PointerToFloatVec = PointerTo | Vec | Float
	PointerToString   = PointerTo | String
	PointerToTable     = PointerTo | Table
	PointerToFloat     = PointerTo | Float
	PointerToInt       = PointerTo | Integer
	PointerToListNode  = PointerTo | List
)

const primitiveMask = Integer | Float | String | Any

// Primitive returns the primitive-kind bits of t, discarding container
// and attribute modifiers.
func (t VarType) Primitive() VarType { return t & primitiveMask }

// IsFloat reports whether t carries the float primitive bit.
func (t VarType) IsFloat() bool { return t&Float != 0 }

// IsInteger reports whether t carries the integer primitive bit.
func (t VarType) IsInteger() bool { return t&Integer != 0 }

// IsString reports whether t carries the string primitive bit.
func (t VarType) IsString() bool { return t&String != 0 }

// IsAny reports whether t carries the any primitive bit.
func (t VarType) IsAny() bool { return t&Any != 0 }

// IsVec reports whether t is a vector container type.
func (t VarType) IsVec() bool { return t&Vec != 0 }

// IsList reports whether t is a list container type.
func (t VarType) IsList() bool { return t&List != 0 }

// IsTable reports whether t is a table container type.
func (t VarType) IsTable() bool { return t&Table != 0 }

// IsPointer reports whether t is a pointer-to type.
func (t VarType) IsPointer() bool { return t&PointerTo != 0 }

// IsConst reports whether t carries the const attribute.
func (t VarType) IsConst() bool { return t&Const != 0 }

// IsConstList reports whether t is a const list type. const list types
// forbid modifying intrinsics (REVERSE, APND, FILTER, CONCAT-to-self).
func (t VarType) IsConstList() bool { return t.IsConst() && t.IsList() }

// ElementOf returns the element type of a container type t: the same
// type with the container and const/pointer modifiers stripped, leaving
// only the primitive kind. Used when inferring the element type of a
// FOREACH target or a vector/list access.
func (t VarType) ElementOf() VarType { return t.Primitive() }

// WithConst returns t with the const attribute bit set.
func (t VarType) WithConst() VarType { return t | Const }

// WithPointer returns t lifted one level through address-of: a pointer
// to t.
func (t VarType) WithPointer() VarType { return t | PointerTo }

// Dereferenced returns t lowered one level through indirection: t with
// the outermost PointerTo bit cleared. Used by unary indirection
// (`!`/`@`-style operators) during type inference.
func (t VarType) Dereferenced() VarType { return t &^ PointerTo }

// RegisterClass identifies which physical register pool (general-purpose
// or floating point/vector) a VarType must be assigned to.
type RegisterClass int

const (
	// ClassGP is the general-purpose/integer/pointer register class.
	ClassGP RegisterClass = iota
	// ClassFP is the floating-point register class.
	ClassFP
)

// Class reports the register class a value of type t must be allocated
// into: float types go to the FP pool, everything else (integer,
// string/list/vec/table pointers, any) goes to the GP pool.
func (t VarType) Class() RegisterClass {
	if t.IsFloat() {
		return ClassFP
	}
	return ClassGP
}

// String renders t as a '|'-joined list of flag names, matching the
// original's vartype_to_string debug format.
func (t VarType) String() string {
	if t == Unknown {
		return "UNKNOWN"
	}
	var parts []string
	if t.IsConst() {
		parts = append(parts, "CONST")
	}
	if t.IsPointer() {
		parts = append(parts, "POINTER_TO")
	}
	if t.IsList() {
		parts = append(parts, "LIST")
	}
	if t.IsVec() {
		parts = append(parts, "VEC")
	}
	if t.IsTable() {
		parts = append(parts, "TABLE")
	}
	if t.IsInteger() {
		parts = append(parts, "INTEGER")
	}
	if t.IsFloat() {
		parts = append(parts, "FLOAT")
	}
	if t.IsString() {
		parts = append(parts, "STRING")
	}
	if t.IsAny() {
		parts = append(parts, "ANY")
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// AtomTag is the runtime type tag written at offset 0 of a heap-allocated
// "any" value, compared by the AS_INT/AS_FLOAT/AS_STRING/AS_LIST
// intrinsics before extracting the payload (spec.md §6).
type AtomTag int32

const (
	AtomInt    AtomTag = 1
	AtomFloat  AtomTag = 2
	AtomString AtomTag = 3
	AtomList   AtomTag = 4
)

// TagFor returns the runtime atom tag corresponding to the primitive
// kind of t, or 0 if t has no corresponding runtime tag (e.g. Unknown).
func TagFor(t VarType) AtomTag {
	switch {
	case t.IsInteger():
		return AtomInt
	case t.IsFloat():
		return AtomFloat
	case t.IsString():
		return AtomString
	case t.IsList():
		return AtomList
	default:
		return 0
	}
}
