// Package optimize implements the AST-level optimizer passes spec.md
// §4.2 groups together: local common-subexpression elimination,
// constant folding, loop-invariant code motion, strength reduction, and
// (per the Design Notes adoption recorded in SPEC_FULL.md §9)
// short-circuit lowering. All passes transform the AST in place between
// the semantic walk and CFG construction.
package optimize

import (
	"math"
	"strconv"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
)

// canonicalKey computes the canonical string key spec.md §4.2 describes:
// operator tag plus ordered operand keys, with commutative operators'
// operand keys sorted so `a+b` and `b+a` collide. Returns "" for any
// expression that is not safe to cache (a call, or anything with a
// side effect), since an available-expression entry for such a node
// would let the rewriter reuse a stale value across calls with
// observable effects.
func canonicalKey(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return "i:" + strconv.FormatInt(n.Value, 10)
	case *ast.FloatLiteral:
		return "f:" + strconv.FormatUint(math.Float64bits(n.Value), 10)
	case *ast.CharLiteral:
		return "c:" + strconv.Itoa(int(n.Value))
	case *ast.VariableAccess:
		return "v:" + n.Name
	case *ast.UnaryOp:
		operand := canonicalKey(n.Operand)
		if operand == "" {
			return ""
		}
		return "u" + strconv.Itoa(int(n.Op)) + "(" + operand + ")"
	case *ast.BinaryOp:
		left := canonicalKey(n.Left)
		right := canonicalKey(n.Right)
		if left == "" || right == "" {
			return ""
		}
		if n.Op.Commutative() && right < left {
			left, right = right, left
		}
		return "b" + strconv.Itoa(int(n.Op)) + "(" + left + "," + right + ")"
	default:
		return ""
	}
}
