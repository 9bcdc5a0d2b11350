package ast

// Param is one formal parameter of a function or routine declaration.
type Param struct {
	Name string
	Type VarType
}

// FunctionDeclaration is `LET name(params) = expr` or
// `LET name(params) = VALOF $( ... $)`: a function-like symbol that
// returns a value via RESULTIS.
type FunctionDeclaration struct {
	declBase
	Name   string
	Params []Param
	Body   Expr // typically a *ValofExpression, or a bare expression form
}

func (n *FunctionDeclaration) Clone() Node {
	c := *n
	c.Params = append([]Param(nil), n.Params...)
	c.Body = n.Body.Clone().(Expr)
	return &c
}

// RoutineDeclaration is `LET name(params) BE stmt`: a function-like
// symbol with no return value, terminated by RETURN.
type RoutineDeclaration struct {
	declBase
	Name   string
	Params []Param
	Body   Stmt
}

func (n *RoutineDeclaration) Clone() Node {
	c := *n
	c.Params = append([]Param(nil), n.Params...)
	c.Body = n.Body.Clone().(Stmt)
	return &c
}

// ManifestDeclaration is `MANIFEST $( name = const-expr ; ... $)`: named
// compile-time integer constants, resolved away before code generation
// (spec.md §3, GLOSSARY "Manifest").
type ManifestDeclaration struct {
	declBase
	Name  string
	Value Expr
}

func (n *ManifestDeclaration) Clone() Node {
	c := *n
	c.Value = n.Value.Clone().(Expr)
	return &c
}

// LocalDeclaration is `LET name = initializer` introducing a
// block-scoped local variable (as opposed to a FunctionDeclaration or
// RoutineDeclaration, which are also spelled `LET` but bind a
// function-like name). The analyzer infers Type from Initializer when
// it is not already set.
type LocalDeclaration struct {
	declBase
	Name        string
	Type        VarType
	Initializer Expr // nil implies a zero-initialized local
}

func (n *LocalDeclaration) Clone() Node {
	c := *n
	if n.Initializer != nil {
		c.Initializer = n.Initializer.Clone().(Expr)
	}
	return &c
}

// GlobalKind distinguishes GLOBAL (data-segment, word-offset addressed
// via X28) from STATIC (also data-segment, but function-scoped in the
// original language; both live in the same segment for this port).
type GlobalKind int

const (
	GlobalKindGlobal GlobalKind = iota
	GlobalKindStatic
)

// GlobalDeclaration is a top-level `GLOBAL $( name:offset ... $)` or
// `STATIC $( name = initializer ... $)` entry. Its initial value is the
// first integer literal of the initializer, or zero (spec.md §3, "Data
// literals").
type GlobalDeclaration struct {
	declBase
	Name        string
	Kind        GlobalKind
	Initializer Expr // nil implies zero
	Type        VarType
}

func (n *GlobalDeclaration) Clone() Node {
	c := *n
	if n.Initializer != nil {
		c.Initializer = n.Initializer.Clone().(Expr)
	}
	return &c
}
