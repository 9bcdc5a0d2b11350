package ast

// WalkStatements calls visit for every statement reachable from s,
// including s itself, in pre-order. It does not descend into nested
// function/routine declarations introduced by a BlockStatement's
// Locals (those get their own top-level walk). It descends into a VALOF
// body only where an IF or WHILE condition is itself a VALOF
// expression; a VALOF nested deeper inside an expression, or in any
// other statement's expressions, is not visited.
func WalkStatements(s Stmt, visit func(Stmt)) {
	if s == nil {
		return
	}
	visit(s)
	switch n := s.(type) {
	case *BlockStatement:
		for _, sub := range n.Statements {
			WalkStatements(sub, visit)
		}
	case *IfStatement:
		WalkStatements(n.Then, visit)
		if n.Else != nil {
			WalkStatements(n.Else, visit)
		}
		walkExprStatements(n.Cond, visit)
	case *WhileStatement:
		WalkStatements(n.Body, visit)
		if n.Cond != nil {
			walkExprStatements(n.Cond, visit)
		}
	case *ForStatement:
		WalkStatements(n.Body, visit)
	case *ForeachStatement:
		WalkStatements(n.Body, visit)
	case *SwitchonStatement:
		for _, cs := range n.Cases {
			WalkStatements(cs.Body, visit)
		}
		if n.Default != nil {
			WalkStatements(n.Default, visit)
		}
	case *LabelStatement:
		WalkStatements(n.Stmt, visit)
	}
}

// walkExprStatements walks e's body when e is itself a VALOF
// expression; it does not search e's subexpressions.
func walkExprStatements(e Expr, visit func(Stmt)) {
	if v, ok := e.(*ValofExpression); ok {
		WalkStatements(v.Body, visit)
	}
}
