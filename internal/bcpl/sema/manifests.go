package sema

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
)

// resolveManifests is pass 2 (spec.md §4.1b / §3): evaluates every
// MANIFEST constant's initializer and resolves it away to a plain
// int64, so later passes never need to re-walk a manifest's defining
// expression.
//
// A manifest's initializer may itself reference another manifest
// (`MANIFEST $( A = 1; B = A + 1 $)`); resolution therefore proceeds in
// dependency order, detecting cycles (spec.md/SPEC_FULL.md §3: a
// manifest cycle is undefined behavior in the original compiler — this
// port upgrades it to a reported KindManifestCycle error rather than
// risking infinite recursion).
func (c *Context) resolveManifests(prog *ast.Program) {
	decls := make(map[string]*ast.ManifestDeclaration)
	for _, d := range prog.Declarations {
		if m, ok := d.(*ast.ManifestDeclaration); ok {
			decls[m.Name] = m
		}
	}

	const (
		stateUnvisited = iota
		stateVisiting
		stateDone
	)
	state := make(map[string]int)

	var resolve func(name string) (int64, bool)
	resolve = func(name string) (int64, bool) {
		if v, ok := c.manifests[name]; ok {
			return v, true
		}
		decl, ok := decls[name]
		if !ok {
			return 0, false
		}
		switch state[name] {
		case stateVisiting:
			c.Errors.Add(errs.KindManifestCycle, "", "manifest %q depends on itself", name)
			return 0, false
		case stateDone:
			return c.manifests[name], true
		}
		state[name] = stateVisiting
		val, ok := c.evalManifestExpr(decl.Value, resolve)
		state[name] = stateDone
		if ok {
			c.manifests[name] = val
			if sym, found := c.Symbols.LookupGlobal(name); found {
				sym.SetAbsoluteLocation(val)
			}
		}
		return val, ok
	}

	for name := range decls {
		resolve(name)
	}
}

// evalManifestExpr evaluates a constant-expression subset sufficient
// for manifest initializers: integer literals, references to other
// manifests (via resolve), and the arithmetic/bitwise binary operators.
// Anything else is not a valid manifest initializer: evaluation returns
// ok false, the manifest stays unresolved, and no diagnostic is added.
func (c *Context) evalManifestExpr(e ast.Expr, resolve func(string) (int64, bool)) (int64, bool) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return n.Value, true
	case *ast.VariableAccess:
		return resolve(n.Name)
	case *ast.UnaryOp:
		v, ok := c.evalManifestExpr(n.Operand, resolve)
		if !ok {
			return 0, false
		}
		if n.Op == ast.OpNeg {
			return -v, true
		}
		return 0, false
	case *ast.BinaryOp:
		l, lok := c.evalManifestExpr(n.Left, resolve)
		r, rok := c.evalManifestExpr(n.Right, resolve)
		if !lok || !rok {
			return 0, false
		}
		return evalIntBinary(n.Op, l, r), true
	default:
		return 0, false
	}
}

func evalIntBinary(op ast.BinaryOperator, l, r int64) int64 {
	switch op {
	case ast.OpAdd:
		return l + r
	case ast.OpSub:
		return l - r
	case ast.OpMul:
		return l * r
	case ast.OpDiv:
		if r == 0 {
			return 0
		}
		return l / r
	case ast.OpMod:
		if r == 0 {
			return 0
		}
		return l % r
	case ast.OpAnd:
		return l & r
	case ast.OpOr:
		return l | r
	case ast.OpXor:
		return l ^ r
	case ast.OpShiftLeft:
		return l << uint(r)
	case ast.OpShiftRight:
		return l >> uint(r)
	default:
		return 0
	}
}

// ManifestValue exposes a resolved manifest's value, used by the code
// generator when lowering a manifest VariableAccess (spec.md §4.9:
// "if a manifest, MOVZ the absolute value").
func (c *Context) ManifestValue(name string) (int64, bool) {
	v, ok := c.manifests[name]
	return v, ok
}
