package symtab

import "github.com/dolthub/swiss"

// scope is one lexical level's name -> *Symbol map. The analyzer's
// semantic walk pushes and pops scopes as it descends into blocks,
// function bodies, and FOR/FOREACH loop bodies (each of which
// introduces its own loop-variable scope). A swiss.Map is used instead
// of a plain Go map because the semantic walk re-looks-up the same
// handful of names repeatedly in tight loops (every VariableAccess in
// a hot function body), and swiss tables keep that lookup branch-
// predictable (grounded on mna/nenuphar's use of the same package for
// its own interpreter environment maps).
type scope struct {
	level int
	names *swiss.Map[string, *Symbol]
}

// Table is the lexically scoped symbol table. Scope level 0 is the
// global/top-level scope; each Push increases the level by one.
type Table struct {
	scopes []*scope
}

// New returns a Table with only the global scope (level 0) open.
func New() *Table {
	t := &Table{}
	t.Push()
	return t
}

// Push opens a new, empty lexical scope nested inside the current one.
func (t *Table) Push() {
	level := len(t.scopes)
	t.scopes = append(t.scopes, &scope{level: level, names: swiss.NewMap[string, *Symbol](8)})
}

// Pop closes the innermost lexical scope. Popping the global scope is
// a programming error and panics: the table must always have at least
// one open scope for the lifetime of a compilation unit.
func (t *Table) Pop() {
	if len(t.scopes) <= 1 {
		panic("symtab: cannot pop the global scope")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Level returns the current (innermost) scope level.
func (t *Table) Level() int { return len(t.scopes) - 1 }

// Declare inserts a new symbol into the innermost open scope, setting
// its ScopeLevel to match. Re-declaring the same name in the same
// scope overwrites the previous symbol (shadowing across scopes is
// handled naturally: an inner Declare never touches an outer scope's
// entry).
func (t *Table) Declare(sym *Symbol) {
	cur := t.scopes[len(t.scopes)-1]
	sym.ScopeLevel = cur.level
	cur.names.Put(sym.Name, sym)
}

// Lookup searches from the innermost scope outward and returns the
// first symbol found, or (nil, false) if name is not declared in any
// open scope.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].names.Get(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupInScope searches only the innermost open scope.
func (t *Table) LookupInScope(name string) (*Symbol, bool) {
	return t.scopes[len(t.scopes)-1].names.Get(name)
}

// LookupGlobal searches only scope level 0.
func (t *Table) LookupGlobal(name string) (*Symbol, bool) {
	return t.scopes[0].names.Get(name)
}

// IsGlobalOrStatic reports whether name resolves (from the innermost
// scope outward) to a symbol of kind global or static; used by the
// analyzer to set a function's accesses_globals flag (spec.md §4.1).
func (t *Table) IsGlobalOrStatic(name string) bool {
	sym, ok := t.Lookup(name)
	if !ok {
		return false
	}
	return sym.Kind == KindGlobal || sym.Kind == KindStatic
}
