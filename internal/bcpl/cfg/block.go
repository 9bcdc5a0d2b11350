// Package cfg builds the control-flow graph spec.md §4.3 describes from
// a function or routine's statement tree, after the semantic walk and
// optimizer passes have run. One CFG is built per function and is never
// mutated again once liveness analysis has consumed it.
package cfg

import "github.com/albanread/bcplc-go/internal/bcpl/ast"

// Kind distinguishes a normal (≤2-successor) block from a SWITCHON
// header, which fans out to one successor per CASE plus the DEFAULT
// block if there is one, otherwise the join block (SPEC_FULL.md §9, Open Question #1: kept
// as a formalized multi-way block rather than lowered to a binary
// comparison chain before liveness runs).
type Kind int

const (
	KindNormal Kind = iota
	KindSwitch
)

// CaseEdge is one SWITCHON successor: the CASE's resolved constant
// value and the block it branches to.
type CaseEdge struct {
	Value  int64
	Target *Block
}

// Block is one basic block: {id, owned statements, predecessor/successor
// references, entry/exit flags} per spec.md §3's Basic Block entity.
// Predecessor and successor slices are non-owning (shared *Block
// pointers into the owning CFG's Blocks map).
type Block struct {
	ID         int
	Statements []ast.Stmt
	Preds      []*Block
	Succs      []*Block
	IsEntry    bool
	IsExit     bool

	// Kind and Cases are set only for a SWITCHON header block; Succs
	// still carries every case target plus DEFAULT (or join when there is
	// no DEFAULT) so callers that
	// only care about reachability need not special-case Kind.
	Kind  Kind
	Cases []CaseEdge
}

// EndsWithControlFlow reports whether b's last owned statement is one
// of the terminator kinds spec.md §3 lists (return, finish, goto,
// break, loop, endcase, conditional branch), or one of the
// multi-successor header statements this package's builder retains
// as a block terminator (if/while/for/foreach/switchon) — in every
// case the block already carries the successor edges its construct
// requires, so the builder must not add an implicit fallthrough edge
// past it.
func (b *Block) EndsWithControlFlow() bool {
	if len(b.Statements) == 0 {
		return false
	}
	switch b.Statements[len(b.Statements)-1].(type) {
	case *ast.ReturnStatement, *ast.FinishStatement, *ast.GotoStatement,
		*ast.BreakStatement, *ast.LoopStatement, *ast.EndcaseStatement,
		*ast.ConditionalBranchStatement, *ast.ResultisStatement,
		*ast.IfStatement, *ast.WhileStatement, *ast.ForStatement,
		*ast.ForeachStatement, *ast.SwitchonStatement:
		return true
	default:
		return false
	}
}

// CFG is the control-flow graph of one function (spec.md §3): an
// owned map of id to Block, plus the distinguished entry and (on
// demand) exit blocks.
type CFG struct {
	Function string
	Blocks   map[int]*Block
	Entry    *Block
	Exit     *Block
}

// Block looks up a block by id, for callers (liveness, codegen) that
// only have an id in hand (e.g. from a CaseEdge or a stored successor
// reference that was serialized and needs re-resolving).
func (c *CFG) Block(id int) (*Block, bool) {
	b, ok := c.Blocks[id]
	return b, ok
}

func link(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}
