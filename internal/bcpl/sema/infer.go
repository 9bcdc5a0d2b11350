package sema

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/symtab"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// Infer implements the type-inference contract of spec.md §4.1: for
// any expression e, Infer(e) returns a VarType, consulting (in order)
// literal kind, the current function's variable-type map, the symbol
// table, and the intrinsic/user-defined call tables.
func (c *Context) Infer(e ast.Expr) types.VarType {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return types.Integer
	case *ast.FloatLiteral:
		return types.Float
	case *ast.StringLiteral:
		return types.PointerToString
	case *ast.CharLiteral:
		return types.Integer

	case *ast.VariableAccess:
		t := c.inferVariable(n.Name)
		n.ResolvedType = t
		return t

	case *ast.UnaryOp:
		return c.inferUnary(n)

	case *ast.BinaryOp:
		if n.Op.IsComparison() {
			return types.Integer
		}
		lt, rt := c.Infer(n.Left), c.Infer(n.Right)
		if lt.IsFloat() || rt.IsFloat() {
			return types.Float
		}
		return types.Integer

	case *ast.FunctionCall:
		return c.inferCall(n)

	case *ast.ListExpression:
		return c.inferList(n)

	case *ast.VecAllocationExpression:
		if m, ok := c.Metrics[c.currentFunction]; ok {
			m.HasVectorAllocations = true
		}
		return types.PointerToIntVec

	case *ast.VectorAccess:
		return n.ElementType

	case *ast.CharIndirection:
		return types.Integer

	case *ast.FloatVectorIndirection:
		return types.Float

	case *ast.BitfieldAccess:
		return types.Integer

	case *ast.TableExpression:
		return types.PointerToTable

	case *ast.ValofExpression:
		return c.inferValof(n)

	case *ast.ConditionalExpression:
		tt, et := c.Infer(n.Then), c.Infer(n.Else)
		if tt.IsFloat() || et.IsFloat() {
			return types.Float
		}
		return tt

	case *ast.ShiftExpr:
		return c.Infer(n.Operand)

	default:
		return types.Unknown
	}
}

func (c *Context) inferVariable(name string) types.VarType {
	if m, ok := c.Metrics[c.currentFunction]; ok {
		if t, ok := m.VariableOrParamType(name); ok {
			return t
		}
	}
	if sym, ok := c.Symbols.Lookup(name); ok {
		return sym.Type
	}
	return types.Unknown
}

func (c *Context) inferUnary(n *ast.UnaryOp) types.VarType {
	operandType := c.Infer(n.Operand)
	switch n.Op {
	case ast.OpAddressOf:
		return operandType.WithPointer()
	case ast.OpIndirect:
		return operandType.Dereferenced()
	case ast.OpLengthOf:
		return types.Integer
	case ast.OpHeadOf:
		return operandType.ElementOf()
	case ast.OpTailOf:
		return operandType
	case ast.OpNeg:
		return operandType
	case ast.OpNot:
		return types.Integer
	default:
		return types.Unknown
	}
}

func (c *Context) inferCall(n *ast.FunctionCall) types.VarType {
	c.CheckModifyingIntrinsic(n.Callee, n.Args)

	if n.Callee == "SETTYPE" {
		return c.checkSetType(n.Args)
	}

	if sig, ok := intrinsics[n.Callee]; ok {
		argTypes := make([]types.VarType, len(n.Args))
		for i, a := range n.Args {
			argTypes[i] = c.Infer(a)
		}
		return sig.returns(argTypes)
	}
	if sym, ok := c.Symbols.Lookup(n.Callee); ok {
		switch sym.Kind {
		case symtab.KindFunctionInt:
			return types.Integer
		case symtab.KindFunctionFloat:
			return types.Float
		case symtab.KindRuntime:
			return sym.Type
		}
	}
	return types.Unknown
}

// checkSetType diagnoses SETTYPE called on a non-list operand (spec.md
// §4.1f, §7: "SETTYPE on a non-list operand"), then returns the
// reinterpreted type: args[0]'s own type, since SETTYPE only narrows an
// existing list pointer's declared element type rather than producing a
// new value.
func (c *Context) checkSetType(args []ast.Expr) types.VarType {
	if len(args) == 0 {
		return types.Unknown
	}
	t := c.Infer(args[0])
	if !t.IsList() {
		c.Errors.Add(errs.KindBadIntrinsicUse, c.currentFunction,
			"SETTYPE requires a list operand")
	}
	return t
}

// inferList infers the type of a list literal: the common element type
// if homogeneous, else `list of any` (spec.md §4.1). A manifest (all-
// literal) list literal yields the const variant.
func (c *Context) inferList(n *ast.ListExpression) types.VarType {
	var elem types.VarType
	uniform := true
	for i, e := range n.Elements {
		t := c.Infer(e).Primitive()
		if i == 0 {
			elem = t
		} else if t != elem {
			uniform = false
		}
	}
	result := types.PointerTo | types.List
	if uniform && len(n.Elements) > 0 {
		result |= elem
	} else {
		result |= types.Any
	}
	if n.Manifest {
		result |= types.Const
	}
	return result
}

// inferValof infers a VALOF expression's type by finding the type of
// its RESULTIS value(s); if none is found, Unknown.
func (c *Context) inferValof(n *ast.ValofExpression) types.VarType {
	var found types.VarType
	ast.WalkStatements(n.Body, func(s ast.Stmt) {
		if r, ok := s.(*ast.ResultisStatement); ok && found == types.Unknown {
			found = c.Infer(r.Value)
		}
	})
	return found
}

// checkVectorInitializer enforces spec.md §4.1's rule that a vector
// initializer's element type must be uniform; heterogeneous
// initializers are a semantic error.
func (c *Context) checkVectorInitializer(elems []ast.Expr) {
	if len(elems) == 0 {
		return
	}
	first := c.Infer(elems[0]).Primitive()
	for _, e := range elems[1:] {
		if c.Infer(e).Primitive() != first {
			c.Errors.Add(errs.KindHeterogeneousInitializer, c.currentFunction,
				"vector initializer elements must share a common type")
			return
		}
	}
}
