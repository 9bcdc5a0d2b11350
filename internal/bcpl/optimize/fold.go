package optimize

import (
	"math"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
)

// foldExpr constant-folds literal arithmetic bottom-up, returning a
// replacement expression when both operands of a binary/unary op are
// literals; otherwise returns e unchanged (spec.md §4.2, "constant
// folding").
func foldExpr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.UnaryOp:
		n.Operand = foldExpr(n.Operand)
		return foldUnary(n)
	case *ast.BinaryOp:
		n.Left = foldExpr(n.Left)
		n.Right = foldExpr(n.Right)
		return foldBinary(n)
	case *ast.VectorAccess:
		n.Vector = foldExpr(n.Vector)
		n.Index = foldExpr(n.Index)
		return n
	case *ast.CharIndirection:
		n.String = foldExpr(n.String)
		n.Index = foldExpr(n.Index)
		return n
	case *ast.FloatVectorIndirection:
		n.Vector = foldExpr(n.Vector)
		n.Index = foldExpr(n.Index)
		return n
	case *ast.BitfieldAccess:
		n.Base = foldExpr(n.Base)
		n.Start = foldExpr(n.Start)
		n.Width = foldExpr(n.Width)
		return n
	case *ast.FunctionCall:
		for i, a := range n.Args {
			n.Args[i] = foldExpr(a)
		}
		return n
	case *ast.ListExpression:
		for i, el := range n.Elements {
			n.Elements[i] = foldExpr(el)
		}
		return n
	case *ast.TableExpression:
		for i, el := range n.Elements {
			n.Elements[i] = foldExpr(el)
		}
		return n
	case *ast.VecAllocationExpression:
		n.Size = foldExpr(n.Size)
		return n
	case *ast.ConditionalExpression:
		n.Cond = foldExpr(n.Cond)
		n.Then = foldExpr(n.Then)
		n.Else = foldExpr(n.Else)
		return n
	default:
		return e
	}
}

func foldUnary(n *ast.UnaryOp) ast.Expr {
	switch n.Op {
	case ast.OpNeg:
		switch lit := n.Operand.(type) {
		case *ast.IntLiteral:
			return &ast.IntLiteral{Value: -lit.Value}
		case *ast.FloatLiteral:
			return &ast.FloatLiteral{Value: -lit.Value}
		}
	case ast.OpNot:
		if lit, ok := n.Operand.(*ast.IntLiteral); ok {
			if lit.Value == 0 {
				return &ast.IntLiteral{Value: 1}
			}
			return &ast.IntLiteral{Value: 0}
		}
	}
	return n
}

func foldBinary(n *ast.BinaryOp) ast.Expr {
	li, lIsInt := n.Left.(*ast.IntLiteral)
	ri, rIsInt := n.Right.(*ast.IntLiteral)
	if lIsInt && rIsInt {
		if v, ok := foldIntPair(n.Op, li.Value, ri.Value); ok {
			return &ast.IntLiteral{Value: v}
		}
		return n
	}

	lf, lIsFloat := n.Left.(*ast.FloatLiteral)
	rf, rIsFloat := n.Right.(*ast.FloatLiteral)
	if (lIsFloat || lIsInt) && (rIsFloat || rIsInt) && (lIsFloat || rIsFloat) {
		lv := asFloat(n.Left, lf, li, lIsFloat)
		rv := asFloat(n.Right, rf, ri, rIsFloat)
		if v, ok := foldFloatPair(n.Op, lv, rv); ok {
			return &ast.FloatLiteral{Value: v}
		}
	}
	return n
}

func asFloat(e ast.Expr, f *ast.FloatLiteral, i *ast.IntLiteral, isFloat bool) float64 {
	if isFloat {
		return f.Value
	}
	return float64(i.Value)
}

func foldIntPair(op ast.BinaryOperator, l, r int64) (int64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.OpAnd:
		return l & r, true
	case ast.OpOr:
		return l | r, true
	case ast.OpXor:
		return l ^ r, true
	case ast.OpShiftLeft:
		return l << uint(r), true
	case ast.OpShiftRight:
		return l >> uint(r), true
	case ast.OpEq:
		return boolInt(l == r), true
	case ast.OpNe:
		return boolInt(l != r), true
	case ast.OpLt:
		return boolInt(l < r), true
	case ast.OpLe:
		return boolInt(l <= r), true
	case ast.OpGt:
		return boolInt(l > r), true
	case ast.OpGe:
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func foldFloatPair(op ast.BinaryOperator, l, r float64) (float64, bool) {
	switch op {
	case ast.OpAdd:
		return l + r, true
	case ast.OpSub:
		return l - r, true
	case ast.OpMul:
		return l * r, true
	case ast.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.OpMod:
		if r == 0 {
			return 0, false
		}
		return math.Mod(l, r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
