package sema

import (
	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/symtab"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// semanticWalk is pass 3 (spec.md §4.1): walks every function body and
// records, for each variable name, its defining scope and inferred
// type; renames FOR-loop variables uniquely; sets accesses_globals;
// writes FOREACH element types; evaluates CASE constants; diagnoses
// const-list and SETTYPE misuse.
func (c *Context) semanticWalk(prog *ast.Program) {
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FunctionDeclaration:
			c.walkFunctionLike(decl.Name, decl.Params, nil, decl.Body)
		case *ast.RoutineDeclaration:
			c.walkFunctionLike(decl.Name, decl.Params, decl.Body, nil)
		case *ast.GlobalDeclaration:
			c.walkGlobalDecl(decl)
		}
	}
}

// walkGlobalDecl infers a GLOBAL/STATIC initializer's type and, when the
// declared type is a vector, enforces the uniform-element-type rule
// (spec.md §4.1, "Vector initializer").
func (c *Context) walkGlobalDecl(decl *ast.GlobalDeclaration) {
	if decl.Initializer == nil {
		return
	}
	t := c.Infer(decl.Initializer)
	if decl.Type == types.Unknown {
		decl.Type = t
	}
	if sym, ok := c.Symbols.LookupGlobal(decl.Name); ok && sym.Type == types.Unknown {
		sym.Type = decl.Type
	}
	if tbl, ok := decl.Initializer.(*ast.TableExpression); ok && decl.Type.IsVec() {
		c.checkVectorInitializer(tbl.Elements)
	}
}

// walkFunctionLike walks either a function body (bodyExpr, typically a
// ValofExpression) or a routine body (bodyStmt), pushing a fresh scope
// for its parameters.
func (c *Context) walkFunctionLike(name string, params []ast.Param, bodyStmt ast.Stmt, bodyExpr ast.Expr) {
	c.currentFunction = name
	c.Symbols.Push()
	defer c.Symbols.Pop()

	for _, p := range params {
		c.Symbols.Declare(&symtab.Symbol{Name: p.Name, Kind: symtab.KindParameter, Type: p.Type})
	}

	if bodyStmt != nil {
		c.walkStmt(bodyStmt)
	}
	if bodyExpr != nil {
		c.Infer(bodyExpr)
		if v, ok := bodyExpr.(*ast.ValofExpression); ok {
			c.walkStmt(v.Body)
		}
	}

	c.currentFunction = ""
}

func (c *Context) metrics() *FunctionMetrics { return c.Metrics[c.currentFunction] }

// walkStmt dispatches on statement kind, performing the scope and
// type-inference work spec.md §4.1 assigns to the semantic walk.
func (c *Context) walkStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ast.BlockStatement:
		c.Symbols.Push()
		for _, d := range n.Locals {
			c.walkLocalDecl(d)
		}
		for _, sub := range n.Statements {
			c.walkStmt(sub)
		}
		c.Symbols.Pop()

	case *ast.AssignmentStatement:
		c.walkAssignment(n)

	case *ast.IfStatement:
		c.markGlobalsUsed(n.Cond)
		c.Infer(n.Cond)
		c.walkStmt(n.Then)
		c.walkStmt(n.Else)

	case *ast.WhileStatement:
		if n.Cond != nil {
			c.markGlobalsUsed(n.Cond)
			c.Infer(n.Cond)
		}
		c.walkStmt(n.Body)

	case *ast.ForStatement:
		c.walkFor(n)

	case *ast.ForeachStatement:
		c.walkForeach(n)

	case *ast.SwitchonStatement:
		c.Infer(n.Selector)
		for i := range n.Cases {
			cs := &n.Cases[i]
			if v, ok := c.evalManifestExpr(cs.ConstExpr, c.resolveInline); ok {
				cs.ResolvedValue = v
			}
			c.walkStmt(cs.Body)
		}
		c.walkStmt(n.Default)

	case *ast.RoutineCallStatement:
		if m := c.metrics(); m != nil {
			if _, ok := c.Symbols.Lookup(n.Callee); ok && c.isLocalFunctionLike(n.Callee) {
				m.NumLocalRoutineCalls++
			} else {
				m.NumRuntimeCalls++
			}
		}
		for _, a := range n.Args {
			c.Infer(a)
		}
		c.CheckModifyingIntrinsic(n.Callee, n.Args)

	case *ast.ExprStatement:
		c.Infer(n.Value)

	case *ast.ResultisStatement:
		c.Infer(n.Value)

	case *ast.FreeStatement:
		c.Infer(n.Operand)

	case *ast.LabelStatement:
		c.walkStmt(n.Stmt)

	case *ast.ReturnStatement, *ast.FinishStatement, *ast.BreakStatement,
		*ast.LoopStatement, *ast.EndcaseStatement, *ast.GotoStatement:
		// no variable references to record
	}
}

// resolveInline adapts the manifest map lookup to evalManifestExpr's
// signature for use on CASE constants, which may reference manifests
// but never recursively define new ones.
func (c *Context) resolveInline(name string) (int64, bool) {
	return c.ManifestValue(name)
}

func (c *Context) isLocalFunctionLike(name string) bool {
	sym, ok := c.Symbols.Lookup(name)
	if !ok {
		return false
	}
	return sym.Kind == symtab.KindFunctionInt || sym.Kind == symtab.KindFunctionFloat || sym.Kind == symtab.KindRoutine
}

func (c *Context) walkLocalDecl(d ast.Decl) {
	switch decl := d.(type) {
	case *ast.LocalDeclaration:
		t := decl.Type
		if decl.Initializer != nil {
			inferred := c.Infer(decl.Initializer)
			if t == types.Unknown {
				t = inferred
			}
		}
		c.Symbols.Declare(&symtab.Symbol{Name: decl.Name, Kind: symtab.KindLocal, Type: t})
		if m := c.metrics(); m != nil {
			m.RecordVariable(decl.Name, t)
		}
	case *ast.FunctionDeclaration:
		c.seedFunction(decl.Name, decl.Params, symtab.KindFunctionInt)
		c.walkFunctionLike(decl.Name, decl.Params, nil, decl.Body)
	case *ast.RoutineDeclaration:
		c.seedFunction(decl.Name, decl.Params, symtab.KindRoutine)
		c.walkFunctionLike(decl.Name, decl.Params, decl.Body, nil)
	}
}

func (c *Context) walkAssignment(n *ast.AssignmentStatement) {
	c.checkConstViolation(n.LHS)
	rhsType := c.Infer(n.RHS)
	lhsType := c.Infer(n.LHS)
	c.checkAssignmentTypeMismatch(lhsType, rhsType)

	if va, ok := n.LHS.(*ast.VariableAccess); ok {
		t := lhsType
		if t == types.Unknown {
			t = rhsType
		}
		if sym, ok := c.Symbols.Lookup(va.Name); !ok || sym.Kind == symtab.KindLocal {
			c.Symbols.Declare(&symtab.Symbol{Name: va.Name, Kind: symtab.KindLocal, Type: t})
		}
		if m := c.metrics(); m != nil {
			m.RecordVariable(va.Name, t)
		}
	}
	c.markGlobalsUsed(n.LHS)
	c.markGlobalsUsed(n.RHS)
}

// checkAssignmentTypeMismatch diagnoses an assignment whose LHS already
// has an established scalar type that disagrees with the RHS's across
// int/float (spec.md §4.1f, §7: "type mismatch between LHS and RHS
// coerced across int/float"). A variable's first/defining assignment
// leaves lhsType Unknown and is exempt — there is nothing yet to
// coerce against. Pointer-typed operands (vectors, lists, strings) are
// exempt too: the Integer/Float bits there describe what's pointed at,
// not a scalar being coerced.
func (c *Context) checkAssignmentTypeMismatch(lhsType, rhsType types.VarType) {
	if lhsType == types.Unknown || rhsType == types.Unknown {
		return
	}
	if lhsType.IsPointer() || rhsType.IsPointer() {
		return
	}
	if !(lhsType.IsInteger() || lhsType.IsFloat()) || !(rhsType.IsInteger() || rhsType.IsFloat()) {
		return
	}
	if lhsType.IsFloat() != rhsType.IsFloat() {
		c.Errors.Add(errs.KindTypeMismatch, c.currentFunction,
			"assignment coerces %s across int/float", lhsType.String())
	}
}

// checkConstViolation diagnoses writes through HD/TL of a const list,
// and any modifying-intrinsic call on a const list operand (spec.md
// §4.1, §7).
func (c *Context) checkConstViolation(lhs ast.Expr) {
	uop, ok := lhs.(*ast.UnaryOp)
	if !ok {
		return
	}
	if uop.Op != ast.OpHeadOf && uop.Op != ast.OpTailOf {
		return
	}
	if c.Infer(uop.Operand).IsConstList() {
		op := "HD"
		if uop.Op == ast.OpTailOf {
			op = "TL"
		}
		c.Errors.Add(errs.KindConstViolation, c.currentFunction,
			"cannot assign through %s of a const list", op)
	}
}

// CheckModifyingIntrinsic diagnoses a call to a list-modifying
// intrinsic (REVERSE, APND, FILTER, CONCAT-to-self) whose target
// operand is a const list (spec.md §3, §4.1). Exported so the call-site
// walker in walkStmt/Infer's FunctionCall handling can invoke it
// without duplicating the const-list detection logic.
func (c *Context) CheckModifyingIntrinsic(name string, args []ast.Expr) {
	switch name {
	case "REVERSE", "APND", "FILTER", "CONCAT":
		if len(args) == 0 {
			return
		}
		if c.Infer(args[0]).IsConstList() {
			c.Errors.Add(errs.KindConstViolation, c.currentFunction,
				"%s cannot modify a const list", name)
		}
	}
}

// markGlobalsUsed sets accesses_globals on the current function if e
// (recursively) references a global or static variable (spec.md §4.1).
func (c *Context) markGlobalsUsed(e ast.Expr) {
	m := c.metrics()
	if m == nil || m.AccessesGlobals {
		return
	}
	var found bool
	var visit func(ast.Expr)
	visit = func(e ast.Expr) {
		if found || e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.VariableAccess:
			if c.Symbols.IsGlobalOrStatic(n.Name) {
				found = true
			}
		case *ast.BinaryOp:
			visit(n.Left)
			visit(n.Right)
		case *ast.UnaryOp:
			visit(n.Operand)
		case *ast.VectorAccess:
			visit(n.Vector)
			visit(n.Index)
		case *ast.CharIndirection:
			visit(n.String)
			visit(n.Index)
		case *ast.FloatVectorIndirection:
			visit(n.Vector)
			visit(n.Index)
		case *ast.FunctionCall:
			for _, a := range n.Args {
				visit(a)
			}
		case *ast.ConditionalExpression:
			visit(n.Cond)
			visit(n.Then)
			visit(n.Else)
		}
	}
	visit(e)
	if found {
		m.AccessesGlobals = true
	}
}

func (c *Context) walkFor(n *ast.ForStatement) {
	c.Infer(n.From)
	c.Infer(n.To)
	if n.Step != nil {
		c.Infer(n.Step)
	}
	c.markGlobalsUsed(n.From)
	c.markGlobalsUsed(n.To)

	n.UniqueVar = c.nextForVarName(n.Var)
	n.StepVar = c.nextForVarName(n.Var + "_step")
	n.EndVar = c.nextForVarName(n.Var + "_end")

	c.Symbols.Push()
	c.Symbols.Declare(&symtab.Symbol{Name: n.Var, Kind: symtab.KindLocal, Type: types.Integer})
	if m := c.metrics(); m != nil {
		m.RecordVariable(n.UniqueVar, types.Integer)
	}
	c.walkStmt(n.Body)
	c.Symbols.Pop()
}

func (c *Context) walkForeach(n *ast.ForeachStatement) {
	collType := c.Infer(n.Collection)
	c.markGlobalsUsed(n.Collection)

	// Write the inferred element type into the loop node so the CFG
	// builder can emit type-correct lowering (spec.md §4.1e).
	if collType.IsList() {
		n.Kind = ast.ForeachList
	} else {
		n.Kind = ast.ForeachVector
	}
	n.ElementType = collType.ElementOf()

	c.Symbols.Push()
	c.Symbols.Declare(&symtab.Symbol{Name: n.Var, Kind: symtab.KindLocal, Type: n.ElementType})
	if m := c.metrics(); m != nil {
		m.RecordVariable(n.Var, n.ElementType)
	}
	if n.SecondVar != "" {
		c.Symbols.Declare(&symtab.Symbol{Name: n.SecondVar, Kind: symtab.KindLocal, Type: types.PointerToListNode})
		if m := c.metrics(); m != nil {
			m.RecordVariable(n.SecondVar, types.PointerToListNode)
		}
	}
	c.walkStmt(n.Body)
	c.Symbols.Pop()
}
