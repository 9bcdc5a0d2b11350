package optimize

import "github.com/albanread/bcplc-go/internal/bcpl/ast"

// reduceStrength rewrites multiply-by-constant into cheaper forms
// (spec.md §4.2, "strength reduction"): `x*2` becomes `x+x`, and
// `x*2^k` (k>1) becomes a ShiftExpr the code generator lowers to a
// single LSL. Only integer multiplication by a literal power of two on
// either side is eligible; everything else is left alone.
func reduceStrength(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.UnaryOp:
		n.Operand = reduceStrength(n.Operand)
		return n
	case *ast.BinaryOp:
		n.Left = reduceStrength(n.Left)
		n.Right = reduceStrength(n.Right)
		return reduceMul(n)
	case *ast.VectorAccess:
		n.Vector = reduceStrength(n.Vector)
		n.Index = reduceStrength(n.Index)
		return n
	case *ast.FunctionCall:
		for i, a := range n.Args {
			n.Args[i] = reduceStrength(a)
		}
		return n
	case *ast.ConditionalExpression:
		n.Cond = reduceStrength(n.Cond)
		n.Then = reduceStrength(n.Then)
		n.Else = reduceStrength(n.Else)
		return n
	default:
		return e
	}
}

func reduceMul(n *ast.BinaryOp) ast.Expr {
	if n.Op != ast.OpMul {
		return n
	}
	variable, lit, ok := splitMul(n.Left, n.Right)
	if !ok {
		return n
	}
	shift, isPow2 := powerOfTwo(lit)
	if !isPow2 {
		return n
	}
	if shift == 1 {
		return &ast.BinaryOp{Op: ast.OpAdd, Left: variable, Right: variable.Clone().(ast.Expr)}
	}
	return &ast.ShiftExpr{Operand: variable, Amount: shift}
}

// splitMul identifies which side of a multiplication is the literal
// integer power-of-two factor, returning (non-literal-operand,
// literal-value, ok).
func splitMul(left, right ast.Expr) (ast.Expr, int64, bool) {
	if lit, ok := right.(*ast.IntLiteral); ok {
		return left, lit.Value, true
	}
	if lit, ok := left.(*ast.IntLiteral); ok {
		return right, lit.Value, true
	}
	return nil, 0, false
}

// powerOfTwo reports whether v is 2^k for k>=1, returning k.
func powerOfTwo(v int64) (int, bool) {
	if v <= 1 {
		return 0, false
	}
	k := 0
	for v > 1 {
		if v&1 != 0 {
			return 0, false
		}
		v >>= 1
		k++
	}
	return k, true
}
