// Package ast defines the tagged tree of BCPL declarations, statements
// and expressions that the (out-of-scope) parser hands to the semantic
// analyzer, plus the deep-clone operation optimizer passes use when they
// rewrite a subtree (spec.md §3, "AST Node").
//
// The original C++ compiler uses deep class inheritance with a
// visitor/accept pattern (see original_source/AST.h, ASTVisitor.h). This
// port follows spec.md §9's Design Notes: a flat set of concrete struct
// types implementing a single Node marker interface, dispatched with a
// type switch, and cloning as a plain data operation (Clone() Node) with
// no virtual call involved. Each node owns its children exclusively;
// Clone produces a fully independent subtree.
package ast

import "github.com/albanread/bcplc-go/internal/bcpl/types"

// Node is the marker interface every AST node implements.
type Node interface {
	// Clone returns a deep, fully independent copy of the subtree rooted
	// at this node.
	Clone() Node
	// astNode is unexported so only this package's types satisfy Node.
	astNode()
}

// Expr is any AST node that can appear where a value is expected.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any AST node that can appear in a statement position.
type Stmt interface {
	Node
	stmtNode()
}

// Decl is any top-level declaration (LET function/routine, manifest,
// global/static variable).
type Decl interface {
	Node
	declNode()
}

// base is embedded by every concrete node to provide the unexported
// astNode marker method without repeating it per type.
type base struct{}

func (base) astNode() {}

// exprBase is embedded by expression nodes.
type exprBase struct{ base }

func (exprBase) exprNode() {}

// stmtBase is embedded by statement nodes.
type stmtBase struct{ base }

func (stmtBase) stmtNode() {}

// declBase is embedded by declaration nodes.
type declBase struct{ base }

func (declBase) declNode() {}

// Program is the root of a compilation unit: an ordered list of
// top-level declarations.
type Program struct {
	base
	Declarations []Decl
}

func (p *Program) Clone() Node {
	if p == nil {
		return (*Program)(nil)
	}
	cp := &Program{Declarations: make([]Decl, len(p.Declarations))}
	for i, d := range p.Declarations {
		cp.Declarations[i] = d.Clone().(Decl)
	}
	return cp
}

// UsedDefinedVariables is implemented per statement/expression kind
// (spec.md §4.3, "Liveness helpers are stored on each AST node via
// get_used_variables / get_defined_variables"). Nodes that do not touch
// variables directly (literals, FINISH, BREAK, ...) return nil, nil.
type UsesDefines interface {
	// UsedVariables returns the names read by this node, not counting
	// names it also defines in the same statement (spec.md's liveness
	// pass treats a plain assignment `v := e` as using the names in `e`
	// and defining `v`).
	UsedVariables() []string
	// DefinedVariables returns the names this node assigns to.
	DefinedVariables() []string
}

// VarType is re-exported for callers that only import ast.
type VarType = types.VarType
