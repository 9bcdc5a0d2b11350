package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSample constructs a small routine body exercising nested blocks,
// a FOR loop and an IF, used by several tests in this package.
func buildSample() Stmt {
	return &BlockStatement{
		Statements: []Stmt{
			&ForStatement{
				Var:  "i",
				From: &IntLiteral{Value: 0},
				To:   &IntLiteral{Value: 10},
				Body: &IfStatement{
					Cond: &BinaryOp{Op: OpGt, Left: &VariableAccess{Name: "i"}, Right: &IntLiteral{Value: 5}},
					Then: &AssignmentStatement{
						LHS: &VariableAccess{Name: "total"},
						RHS: &BinaryOp{Op: OpAdd, Left: &VariableAccess{Name: "total"}, Right: &VariableAccess{Name: "i"}},
					},
				},
			},
		},
	}
}

// collectUses walks a statement tree gathering every used variable name
// per node, used to compare original vs. cloned trees structurally.
func collectUses(s Stmt) []string {
	var all []string
	WalkStatements(s, func(st Stmt) {
		if uw, ok := st.(UsesDefines); ok {
			all = append(all, uw.UsedVariables()...)
			all = append(all, uw.DefinedVariables()...)
		}
	})
	return all
}

func TestCloneIndependence(t *testing.T) {
	original := buildSample()
	cloned := original.Clone().(Stmt)

	require.Equal(t, collectUses(original), collectUses(cloned))

	// Mutating the clone must not affect the original: this is the
	// "fully independent subtree" invariant from spec.md §3.
	clonedBlock := cloned.(*BlockStatement)
	clonedFor := clonedBlock.Statements[0].(*ForStatement)
	clonedFor.Var = "mutated"

	originalBlock := original.(*BlockStatement)
	originalFor := originalBlock.Statements[0].(*ForStatement)
	require.Equal(t, "i", originalFor.Var)
	require.Equal(t, "mutated", clonedFor.Var)

	// Mutating a shared literal through the clone must not bleed back.
	clonedIf := clonedFor.Body.(*IfStatement)
	clonedLit := clonedIf.Cond.(*BinaryOp).Right.(*IntLiteral)
	clonedLit.Value = 999

	originalIf := originalFor.Body.(*IfStatement)
	originalLit := originalIf.Cond.(*BinaryOp).Right.(*IntLiteral)
	require.Equal(t, int64(5), originalLit.Value)
}

func TestCloneScopePairsMatchOriginal(t *testing.T) {
	// spec.md §8: "Cloning any AST subtree and then walking it yields
	// exactly the same set of (name -> definition-scope) pairs as
	// walking the original." We approximate "definition scope" with
	// the set of defined-variable names discovered by the walk, since
	// scope assignment itself is the semantic analyzer's job (tested in
	// package sema); this test guards the AST-level invariant that
	// cloning doesn't lose or duplicate any defining occurrence.
	original := buildSample()
	cloned := original.Clone().(Stmt)

	var origDefs, clonedDefs []string
	WalkStatements(original, func(s Stmt) {
		if uw, ok := s.(UsesDefines); ok {
			origDefs = append(origDefs, uw.DefinedVariables()...)
		}
	})
	WalkStatements(cloned, func(s Stmt) {
		if uw, ok := s.(UsesDefines); ok {
			clonedDefs = append(clonedDefs, uw.DefinedVariables()...)
		}
	})
	require.ElementsMatch(t, origDefs, clonedDefs)
}

func TestVarTypeRoundTrip(t *testing.T) {
	va := &VariableAccess{Name: "x"}
	clone := va.Clone().(*VariableAccess)
	require.Equal(t, va.Name, clone.Name)
	clone.Name = "y"
	require.Equal(t, "x", va.Name)
}
