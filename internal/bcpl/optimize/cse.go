package optimize

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/sema"
)

// blockOwnedExprs returns the expressions a statement contributes to its
// *own* basic block, per the lowering rules of spec.md §4.3: a
// condition-bearing statement's condition is evaluated in the block
// that tests it, but its Then/Else/Body targets are separate blocks and
// must not be walked here.
func blockOwnedExprs(s ast.Stmt) []ast.Expr {
	switch n := s.(type) {
	case *ast.AssignmentStatement:
		return []ast.Expr{n.LHS, n.RHS}
	case *ast.IfStatement:
		return []ast.Expr{n.Cond}
	case *ast.WhileStatement:
		if n.Cond != nil {
			return []ast.Expr{n.Cond}
		}
	case *ast.ForStatement:
		exprs := []ast.Expr{n.From, n.To}
		if n.Step != nil {
			exprs = append(exprs, n.Step)
		}
		return exprs
	case *ast.ForeachStatement:
		return []ast.Expr{n.Collection}
	case *ast.SwitchonStatement:
		return []ast.Expr{n.Selector}
	case *ast.ReturnStatement, *ast.FinishStatement, *ast.BreakStatement,
		*ast.LoopStatement, *ast.EndcaseStatement, *ast.GotoStatement, *ast.LabelStatement:
		return nil
	case *ast.ResultisStatement:
		return []ast.Expr{n.Value}
	case *ast.RoutineCallStatement:
		exprs := make([]ast.Expr, len(n.Args))
		copy(exprs, n.Args)
		return exprs
	case *ast.FreeStatement:
		return []ast.Expr{n.Operand}
	case *ast.ExprStatement:
		return []ast.Expr{n.Value}
	}
	return nil
}

// walkExprTree calls visit on e and every subexpression it contains.
func walkExprTree(e ast.Expr, visit func(ast.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *ast.UnaryOp:
		walkExprTree(n.Operand, visit)
	case *ast.BinaryOp:
		walkExprTree(n.Left, visit)
		walkExprTree(n.Right, visit)
	case *ast.VectorAccess:
		walkExprTree(n.Vector, visit)
		walkExprTree(n.Index, visit)
	case *ast.CharIndirection:
		walkExprTree(n.String, visit)
		walkExprTree(n.Index, visit)
	case *ast.FloatVectorIndirection:
		walkExprTree(n.Vector, visit)
		walkExprTree(n.Index, visit)
	case *ast.BitfieldAccess:
		walkExprTree(n.Base, visit)
		walkExprTree(n.Start, visit)
		walkExprTree(n.Width, visit)
	case *ast.FunctionCall:
		for _, a := range n.Args {
			walkExprTree(a, visit)
		}
	case *ast.ListExpression:
		for _, el := range n.Elements {
			walkExprTree(el, visit)
		}
	case *ast.TableExpression:
		for _, el := range n.Elements {
			walkExprTree(el, visit)
		}
	case *ast.VecAllocationExpression:
		walkExprTree(n.Size, visit)
	case *ast.ConditionalExpression:
		walkExprTree(n.Cond, visit)
		walkExprTree(n.Then, visit)
		walkExprTree(n.Else, visit)
	case *ast.ShiftExpr:
		walkExprTree(n.Operand, visit)
	}
}

// rewriteOwnedExprs mirrors blockOwnedExprs, but writes rewrite's result
// back into the statement's own fields instead of only reading them —
// the counting pass only needs to see an expression once; the rewrite
// pass must replace it wherever it's anchored.
func rewriteOwnedExprs(s ast.Stmt, rewrite func(ast.Expr) ast.Expr) {
	switch n := s.(type) {
	case *ast.AssignmentStatement:
		n.LHS = rewrite(n.LHS)
		n.RHS = rewrite(n.RHS)
	case *ast.IfStatement:
		n.Cond = rewrite(n.Cond)
	case *ast.WhileStatement:
		if n.Cond != nil {
			n.Cond = rewrite(n.Cond)
		}
	case *ast.ForStatement:
		n.From = rewrite(n.From)
		n.To = rewrite(n.To)
		if n.Step != nil {
			n.Step = rewrite(n.Step)
		}
	case *ast.ForeachStatement:
		n.Collection = rewrite(n.Collection)
	case *ast.SwitchonStatement:
		n.Selector = rewrite(n.Selector)
	case *ast.ResultisStatement:
		n.Value = rewrite(n.Value)
	case *ast.RoutineCallStatement:
		for i := range n.Args {
			n.Args[i] = rewrite(n.Args[i])
		}
	case *ast.FreeStatement:
		n.Operand = rewrite(n.Operand)
	case *ast.ExprStatement:
		n.Value = rewrite(n.Value)
	}
}

// rewriteExprTree walks e the same way walkExprTree counts it, but
// top-down: a node is checked against counts/available *before* its
// children are visited, using the key computed from the node's
// still-original operands (so it matches the key the counting pass saw
// for every occurrence). A repeated *ast.BinaryOp is replaced wholesale
// by a reference to its shared temp, without descending into its own
// operands — those were counted and, if repeated elsewhere, are
// resolved at whichever other occurrence reaches them. An expression
// that isn't itself repeated is returned with its children rewritten in
// place, so a repeat nested two or more levels down (e.g. the `a+b`
// inside `(a+b)*(a+b)`) is still found and hoisted.
func rewriteExprTree(e ast.Expr, counts map[string]int, available map[string]string, ctx *sema.Context, pending *[]ast.Stmt) ast.Expr {
	if e == nil {
		return nil
	}

	if bop, ok := e.(*ast.BinaryOp); ok {
		if key := canonicalKey(bop); key != "" && counts[key] > 1 {
			if temp, seen := available[key]; seen {
				return &ast.VariableAccess{Name: temp}
			}
			temp := ctx.NextTempName()
			t := ctx.Infer(bop)
			*pending = append(*pending, &ast.AssignmentStatement{
				LHS: &ast.VariableAccess{Name: temp},
				RHS: bop,
			})
			ctx.DeclareTemp(temp, t)
			available[key] = temp
			return &ast.VariableAccess{Name: temp}
		}
	}

	rewrite := func(child ast.Expr) ast.Expr {
		return rewriteExprTree(child, counts, available, ctx, pending)
	}

	switch n := e.(type) {
	case *ast.UnaryOp:
		n.Operand = rewrite(n.Operand)
	case *ast.BinaryOp:
		n.Left = rewrite(n.Left)
		n.Right = rewrite(n.Right)
	case *ast.VectorAccess:
		n.Vector = rewrite(n.Vector)
		n.Index = rewrite(n.Index)
	case *ast.CharIndirection:
		n.String = rewrite(n.String)
		n.Index = rewrite(n.Index)
	case *ast.FloatVectorIndirection:
		n.Vector = rewrite(n.Vector)
		n.Index = rewrite(n.Index)
	case *ast.BitfieldAccess:
		n.Base = rewrite(n.Base)
		n.Start = rewrite(n.Start)
		n.Width = rewrite(n.Width)
	case *ast.FunctionCall:
		for i := range n.Args {
			n.Args[i] = rewrite(n.Args[i])
		}
	case *ast.ListExpression:
		for i := range n.Elements {
			n.Elements[i] = rewrite(n.Elements[i])
		}
	case *ast.TableExpression:
		for i := range n.Elements {
			n.Elements[i] = rewrite(n.Elements[i])
		}
	case *ast.VecAllocationExpression:
		n.Size = rewrite(n.Size)
	case *ast.ConditionalExpression:
		n.Cond = rewrite(n.Cond)
		n.Then = rewrite(n.Then)
		n.Else = rewrite(n.Else)
	case *ast.ShiftExpr:
		n.Operand = rewrite(n.Operand)
	}
	return e
}

// cseBlock implements spec.md §4.2's two sub-passes over one basic
// block's flat statement list (a BlockStatement's direct Statements, not
// recursing past a nested loop/if/switch body — those are separate
// blocks). ctx supplies the current function for temp-variable metrics
// recording and a source of globally unique temp names.
func cseBlock(ctx *sema.Context, stmts []ast.Stmt) []ast.Stmt {
	counts := make(map[string]int)
	for _, s := range stmts {
		for _, owned := range blockOwnedExprs(s) {
			walkExprTree(owned, func(e ast.Expr) {
				if _, ok := e.(*ast.BinaryOp); !ok {
					return
				}
				if key := canonicalKey(e); key != "" {
					counts[key]++
				}
			})
		}
	}

	available := make(map[string]string) // canonical key -> temp variable name
	result := make([]ast.Stmt, 0, len(stmts))

	invalidate := func(varName string) {
		for key := range available {
			if keyMentions(key, varName) {
				delete(available, key)
			}
		}
	}

	for _, s := range stmts {
		var pending []ast.Stmt
		rewriteOwnedExprs(s, func(e ast.Expr) ast.Expr {
			return rewriteExprTree(e, counts, available, ctx, &pending)
		})

		result = append(result, pending...)
		result = append(result, s)

		if assign, ok := s.(*ast.AssignmentStatement); ok {
			if va, ok := assign.LHS.(*ast.VariableAccess); ok {
				invalidate(va.Name)
			}
		}
	}
	return result
}

// keyMentions reports whether a canonical key's variable-access leaves
// include varName, used to invalidate available expressions that read a
// variable just reassigned.
func keyMentions(key, varName string) bool {
	needle := "v:" + varName
	for i := 0; i+len(needle) <= len(key); i++ {
		if key[i:i+len(needle)] == needle {
			end := i + len(needle)
			if end == len(key) || key[end] == ')' || key[end] == ',' {
				return true
			}
		}
	}
	return false
}
