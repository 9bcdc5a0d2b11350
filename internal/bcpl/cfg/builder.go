package cfg

import (
	"strconv"

	"github.com/albanread/bcplc-go/internal/bcpl/ast"
	"github.com/albanread/bcplc-go/internal/bcpl/errs"
	"github.com/albanread/bcplc-go/internal/bcpl/types"
)

// Builder constructs one function's CFG, tracking the break/loop/
// endcase target stacks and unresolved GOTOs spec.md §4.3 describes.
type Builder struct {
	cfg     *CFG
	nextID  int
	current *Block // nil once the current block has been terminated

	breakTargets   []*Block
	loopTargets    []*Block
	endcaseTargets []*Block

	labels       map[string]*Block
	pendingGotos []pendingGoto

	tempCounter int
}

type pendingGoto struct {
	from  *Block
	label string
}

// Build constructs the CFG for one function/routine body (a Stmt; a
// function expression's ValofExpression.Body for FunctionDeclaration,
// or the routine's body statement directly), reporting an unresolved
// GOTO into errors if a label is never defined in the function.
func Build(funcName string, body ast.Stmt, errors *errs.List) *CFG {
	b := &Builder{
		cfg: &CFG{
			Function: funcName,
			Blocks:   make(map[int]*Block),
		},
		labels: make(map[string]*Block),
	}
	entry := b.newBlock()
	entry.IsEntry = true
	b.cfg.Entry = entry
	b.current = entry

	b.processStmt(body)

	b.resolveGotos(errors, funcName)
	b.finalize()
	return b.cfg
}

func (b *Builder) newBlock() *Block {
	blk := &Block{ID: b.nextID}
	b.nextID++
	b.cfg.Blocks[blk.ID] = blk
	return blk
}

func (b *Builder) ensureExit() *Block {
	if b.cfg.Exit == nil {
		exit := b.newBlock()
		exit.IsExit = true
		b.cfg.Exit = exit
	}
	return b.cfg.Exit
}

// nextHidden allocates a unique hidden-variable name for a synthesized
// FOREACH loop control variable (spec.md §4.3: `_collection`, `_len`,
// `_idx`, `_cursor`), unique within the function being built.
func (b *Builder) nextHidden(base string) string {
	b.tempCounter++
	return "_" + base + "_" + strconv.Itoa(b.tempCounter)
}

// append adds s to the current block, lazily creating a fresh block if
// the previous statement terminated the block this package is
// currently filling (processStmt never calls append after a terminator
// without an intervening newBlock/current reassignment, but defends
// against it anyway since a nil current means "unreachable until a
// label retargets here").
func (b *Builder) append(s ast.Stmt) {
	if b.current == nil {
		b.current = b.newBlock()
	}
	b.current.Statements = append(b.current.Statements, s)
}

// processStmt lowers s into the block(s) currently being built,
// updating b.current to whatever block subsequent statements should
// land in (nil if s unconditionally terminates control flow).
func (b *Builder) processStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ast.BlockStatement:
		for _, sub := range n.Statements {
			b.processStmt(sub)
		}

	case *ast.AssignmentStatement, *ast.RoutineCallStatement, *ast.FreeStatement, *ast.ExprStatement:
		b.append(s)

	case *ast.IfStatement:
		b.processIf(n)

	case *ast.WhileStatement:
		b.processWhile(n)

	case *ast.ForStatement:
		b.processFor(n)

	case *ast.ForeachStatement:
		if n.Kind == ast.ForeachList {
			b.processForeachList(n)
		} else {
			b.processForeachVector(n)
		}

	case *ast.SwitchonStatement:
		b.processSwitchon(n)

	case *ast.GotoStatement:
		b.append(n)
		b.pendingGotos = append(b.pendingGotos, pendingGoto{from: b.current, label: n.Label})
		b.current = nil

	case *ast.LabelStatement:
		b.processLabel(n)

	case *ast.ReturnStatement, *ast.FinishStatement:
		b.append(s)
		link(b.current, b.ensureExit())
		b.current = nil

	case *ast.ResultisStatement:
		b.append(n)
		link(b.current, b.ensureExit())
		b.current = nil

	case *ast.BreakStatement:
		b.append(n)
		if len(b.breakTargets) > 0 {
			link(b.current, b.breakTargets[len(b.breakTargets)-1])
		}
		b.current = nil

	case *ast.LoopStatement:
		b.append(n)
		if len(b.loopTargets) > 0 {
			link(b.current, b.loopTargets[len(b.loopTargets)-1])
		}
		b.current = nil

	case *ast.EndcaseStatement:
		b.append(n)
		if len(b.endcaseTargets) > 0 {
			link(b.current, b.endcaseTargets[len(b.endcaseTargets)-1])
		}
		b.current = nil
	}
}

// processIf lowers IF/UNLESS/TEST: the condition block retains the
// IfStatement as its last statement and branches to a then-block and
// either an else-block or (if none) directly to the join block
// (spec.md §4.3).
func (b *Builder) processIf(n *ast.IfStatement) {
	cond := b.current
	b.append(n)

	thenBlock := b.newBlock()
	link(cond, thenBlock)
	b.current = thenBlock
	b.processStmt(n.Then)
	thenExit := b.current

	join := b.newBlock()

	if n.Else != nil {
		elseBlock := b.newBlock()
		link(cond, elseBlock)
		b.current = elseBlock
		b.processStmt(n.Else)
		elseExit := b.current
		if elseExit != nil {
			link(elseExit, join)
		}
	} else {
		link(cond, join)
	}

	if thenExit != nil {
		link(thenExit, join)
	}
	b.current = join
}

// processWhile dispatches the WHILE/UNTIL/REPEAT family to the lowering
// that matches where the test sits relative to the body: before it
// (WHILE/UNTIL), after it (REPEAT...WHILE/REPEAT...UNTIL), or never
// (bare REPEAT, which exits only via BREAK).
func (b *Builder) processWhile(n *ast.WhileStatement) {
	switch n.Kind {
	case ast.LoopRepeatWhile, ast.LoopRepeatUntil:
		b.processRepeatTested(n)
	case ast.LoopRepeat:
		b.processRepeatBare(n)
	default:
		b.processPretested(n)
	}
}

// processPretested lowers WHILE/UNTIL: a header carrying the
// condition-bearing statement, branching to the body or the exit; the
// body's fallthrough (and LOOP) target the header; BREAK targets the
// exit.
func (b *Builder) processPretested(n *ast.WhileStatement) {
	pre := b.current
	header := b.newBlock()
	link(pre, header)
	b.current = header
	b.append(n)

	bodyBlock := b.newBlock()
	exitBlock := b.newBlock()
	link(header, bodyBlock)
	link(header, exitBlock)

	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, header)

	b.current = bodyBlock
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, header)
	}

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// processRepeatTested lowers REPEAT...WHILE/REPEAT...UNTIL: the body
// always runs once, then a footer block carries the condition-bearing
// statement and branches back to the body or out to the exit. LOOP
// jumps to the footer (re-testing the condition), not back to the top
// of the body.
func (b *Builder) processRepeatTested(n *ast.WhileStatement) {
	pre := b.current
	bodyBlock := b.newBlock()
	link(pre, bodyBlock)

	footer := b.newBlock()
	exitBlock := b.newBlock()

	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, footer)

	b.current = bodyBlock
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, footer)
	}

	footer.Statements = append(footer.Statements, n)
	link(footer, bodyBlock)
	link(footer, exitBlock)

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// processRepeatBare lowers a bare REPEAT: no condition at all, so the
// header is the body itself and its sole successor is back to the top;
// the loop can only be escaped via BREAK.
func (b *Builder) processRepeatBare(n *ast.WhileStatement) {
	pre := b.current
	header := b.newBlock()
	link(pre, header)

	exitBlock := b.newBlock()
	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, header)

	b.current = header
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, header)
	}

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// processFor lowers FOR v = a TO b [BY s] DO body: init, header
// (carrying the ForStatement as terminator), body, increment, exit
// (spec.md §4.3). LOOP targets the increment block, not the header,
// so a `LOOP` re-runs the step before re-testing the bound.
func (b *Builder) processFor(n *ast.ForStatement) {
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: n.UniqueVar}, RHS: n.From})
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: n.EndVar}, RHS: n.To})
	step := n.Step
	if step == nil {
		step = &ast.IntLiteral{Value: 1}
	}
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: n.StepVar}, RHS: step})

	pre := b.current
	header := b.newBlock()
	link(pre, header)
	b.current = header
	b.append(n)

	bodyBlock := b.newBlock()
	incrBlock := b.newBlock()
	exitBlock := b.newBlock()
	link(header, bodyBlock)
	link(header, exitBlock)

	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, incrBlock)

	b.current = bodyBlock
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, incrBlock)
	}

	incrBlock.Statements = append(incrBlock.Statements, &ast.AssignmentStatement{
		LHS: &ast.VariableAccess{Name: n.UniqueVar},
		RHS: &ast.BinaryOp{Op: ast.OpAdd, Left: &ast.VariableAccess{Name: n.UniqueVar}, Right: &ast.VariableAccess{Name: n.StepVar}},
	})
	link(incrBlock, header)

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// processForeachVector lowers FOREACH over a vector/string/float-vector
// collection (spec.md §4.3): pre-header materializes `_collection`,
// `_len`, `_idx`; header tests `_idx >= _len`; body loads `v :=
// _collection!_idx`; increment bumps `_idx`.
func (b *Builder) processForeachVector(n *ast.ForeachStatement) {
	collectionVar := b.nextHidden("collection")
	lenVar := b.nextHidden("len")
	idxVar := b.nextHidden("idx")

	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: collectionVar}, RHS: n.Collection})
	b.append(&ast.AssignmentStatement{
		LHS: &ast.VariableAccess{Name: lenVar},
		RHS: &ast.UnaryOp{Op: ast.OpLengthOf, Operand: &ast.VariableAccess{Name: collectionVar}},
	})
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: idxVar}, RHS: &ast.IntLiteral{Value: 0}})

	pre := b.current
	header := b.newBlock()
	link(pre, header)
	b.current = header
	b.append(&ast.ConditionalBranchStatement{
		Left: &ast.VariableAccess{Name: idxVar}, Right: &ast.VariableAccess{Name: lenVar}, Op: ast.OpGe,
	})

	exitBlock := b.newBlock()
	bodyBlock := b.newBlock()
	link(header, exitBlock) // true: idx >= len
	link(header, bodyBlock) // false: idx < len

	incrBlock := b.newBlock()
	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, incrBlock)

	b.current = bodyBlock
	b.append(&ast.AssignmentStatement{
		LHS: &ast.VariableAccess{Name: n.Var},
		RHS: &ast.VectorAccess{Vector: &ast.VariableAccess{Name: collectionVar}, Index: &ast.VariableAccess{Name: idxVar}, ElementType: n.ElementType},
	})
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, incrBlock)
	}

	incrBlock.Statements = append(incrBlock.Statements, &ast.AssignmentStatement{
		LHS: &ast.VariableAccess{Name: idxVar},
		RHS: &ast.BinaryOp{Op: ast.OpAdd, Left: &ast.VariableAccess{Name: idxVar}, Right: &ast.IntLiteral{Value: 1}},
	})
	link(incrBlock, header)

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// foreachListNodeField is a `!2` word-offset access reading the list
// header's head field at byte offset 16 (spec.md §4.3, §6).
func foreachListNodeField(base ast.Expr) ast.Expr {
	return &ast.VectorAccess{Vector: base, Index: &ast.IntLiteral{Value: 2}, ElementType: types.PointerToListNode}
}

// processForeachList lowers FOREACH over a list collection (spec.md
// §4.3): pre-header initializes `_cursor` from the header's head
// field; header tests `_cursor = 0`; one-variable form loads HD(cursor)
// (with +8 for string elements to skip the length prefix); two-
// variable form additionally binds the node pointer itself; advance
// sets `_cursor := TL(_cursor)`.
func (b *Builder) processForeachList(n *ast.ForeachStatement) {
	cursorVar := b.nextHidden("cursor")
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: cursorVar}, RHS: foreachListNodeField(n.Collection)})

	pre := b.current
	header := b.newBlock()
	link(pre, header)
	b.current = header
	b.append(&ast.ConditionalBranchStatement{
		Left: &ast.VariableAccess{Name: cursorVar}, Right: &ast.IntLiteral{Value: 0}, Op: ast.OpEq,
	})

	exitBlock := b.newBlock()
	bodyBlock := b.newBlock()
	link(header, exitBlock) // true: cursor == 0
	link(header, bodyBlock)

	advanceBlock := b.newBlock()
	b.breakTargets = append(b.breakTargets, exitBlock)
	b.loopTargets = append(b.loopTargets, advanceBlock)

	b.current = bodyBlock
	var headValue ast.Expr = &ast.UnaryOp{Op: ast.OpHeadOf, Operand: &ast.VariableAccess{Name: cursorVar}}
	if n.ElementType.IsString() {
		headValue = &ast.BinaryOp{Op: ast.OpAdd, Left: headValue, Right: &ast.IntLiteral{Value: 8}}
	}
	b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: n.Var}, RHS: headValue})
	if n.SecondVar != "" {
		b.append(&ast.AssignmentStatement{LHS: &ast.VariableAccess{Name: n.SecondVar}, RHS: &ast.VariableAccess{Name: cursorVar}})
	}
	b.processStmt(n.Body)
	if b.current != nil {
		link(b.current, advanceBlock)
	}

	advanceBlock.Statements = append(advanceBlock.Statements, &ast.AssignmentStatement{
		LHS: &ast.VariableAccess{Name: cursorVar},
		RHS: &ast.UnaryOp{Op: ast.OpTailOf, Operand: &ast.VariableAccess{Name: cursorVar}},
	})
	link(advanceBlock, header)

	b.breakTargets = b.breakTargets[:len(b.breakTargets)-1]
	b.loopTargets = b.loopTargets[:len(b.loopTargets)-1]
	b.current = exitBlock
}

// processSwitchon lowers SWITCHON into a KindSwitch header block
// listing each CASE in source order, then DEFAULT if present; only
// without a DEFAULT is the join block the final successor (spec.md
// §4.3). The code generator later emits a
// compare+branch per CASE using its resolved constant value. ENDCASE
// inside a CASE/DEFAULT body targets the join block.
func (b *Builder) processSwitchon(n *ast.SwitchonStatement) {
	header := b.current
	header.Kind = KindSwitch
	b.append(n)

	join := b.newBlock()
	b.endcaseTargets = append(b.endcaseTargets, join)

	for _, cs := range n.Cases {
		caseBlock := b.newBlock()
		link(header, caseBlock)
		header.Cases = append(header.Cases, CaseEdge{Value: cs.ResolvedValue, Target: caseBlock})
		b.current = caseBlock
		b.processStmt(cs.Body)
		if b.current != nil {
			link(b.current, join)
		}
	}

	if n.Default != nil {
		defaultBlock := b.newBlock()
		link(header, defaultBlock)
		b.current = defaultBlock
		b.processStmt(n.Default)
		if b.current != nil {
			link(b.current, join)
		}
	} else {
		link(header, join)
	}

	b.endcaseTargets = b.endcaseTargets[:len(b.endcaseTargets)-1]
	b.current = join
}

// processLabel registers n.Label as the start of whatever block follows
// (splitting the current block first if it already owns statements,
// since a label is always a potential GOTO target and therefore a
// block boundary), then lowers the labeled statement itself.
func (b *Builder) processLabel(n *ast.LabelStatement) {
	if b.current == nil {
		b.current = b.newBlock()
	} else if len(b.current.Statements) > 0 {
		next := b.newBlock()
		link(b.current, next)
		b.current = next
	}
	b.labels[n.Label] = b.current
	b.processStmt(n.Stmt)
}

// resolveGotos links every queued GOTO's source block to its label's
// block, after the whole function has been built (spec.md §4.3: "a
// GOTO to a named label... is queued as unresolved; after the function
// is fully built, every queued GOTO edge is added"). A label with no
// matching LabelStatement anywhere in the function is reported via
// errs.KindUnresolvedGoto.
func (b *Builder) resolveGotos(errors *errs.List, funcName string) {
	for _, pg := range b.pendingGotos {
		target, ok := b.labels[pg.label]
		if !ok {
			if errors != nil {
				errors.Add(errs.KindUnresolvedGoto, funcName, "GOTO target %q is not defined in this function", pg.label)
			}
			continue
		}
		link(pg.from, target)
	}
}

// finalize ensures the invariant spec.md §3 requires of a Basic Block
// ("every block except the exit has ≥1 successor"): any block built
// during construction that ended up with zero successors (a dangling
// label target, or a function body that falls off the end without a
// RETURN/FINISH) is linked to the function's exit block.
func (b *Builder) finalize() {
	exit := b.ensureExit()
	for _, blk := range b.cfg.Blocks {
		if blk == exit {
			continue
		}
		if len(blk.Succs) == 0 {
			link(blk, exit)
		}
	}
}
