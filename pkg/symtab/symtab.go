// Package symtab is the compiler's symbol table: a stack of named scopes,
// the global scope holding only functions, each function scope holding its
// parameters followed by its locals.
package symtab

import "github.com/usoler/asl/pkg/types"

type Kind int

const (
	LocalVar Kind = iota
	Parameter
	Function
)

// Symbol is one declared name: its kind and its type.
type Symbol struct {
	Name string
	Kind Kind
	Type types.ID
}

// ScopeID identifies a scope for push_existing_scope and for recording on
// tree nodes during the symbol pass.
type ScopeID int

type scope struct {
	name    string
	order   []string
	symbols map[string]*Symbol
}

func newScope(name string) *scope {
	return &scope{name: name, symbols: make(map[string]*Symbol)}
}

// Table is a stack of scopes. The global scope is created by NewTable and
// is always scope 0.
type Table struct {
	scopes []*scope   // every scope ever created, indexed by ScopeID
	stack  []ScopeID  // the current nesting, innermost last
}

func NewTable() *Table {
	t := &Table{}
	t.scopes = append(t.scopes, newScope("@global"))
	t.stack = []ScopeID{0}
	return t
}

// GlobalID is always 0.
const GlobalID ScopeID = 0

func (t *Table) current() *scope { return t.scopes[t.stack[len(t.stack)-1]] }

// PushNewScope creates and enters a fresh scope, returning its id.
func (t *Table) PushNewScope(name string) ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, newScope(name))
	t.stack = append(t.stack, id)
	return id
}

// PushExistingScope re-enters a previously created scope.
func (t *Table) PushExistingScope(id ScopeID) {
	t.stack = append(t.stack, id)
}

// Pop leaves the current scope.
func (t *Table) Pop() {
	t.stack = t.stack[:len(t.stack)-1]
}

func (t *Table) addInCurrent(name string, kind Kind, typ types.ID) bool {
	cur := t.current()
	if _, exists := cur.symbols[name]; exists {
		return false
	}
	cur.symbols[name] = &Symbol{Name: name, Kind: kind, Type: typ}
	cur.order = append(cur.order, name)
	return true
}

// AddLocal adds a local variable to the current scope; false if the name is
// already declared there.
func (t *Table) AddLocal(name string, typ types.ID) bool { return t.addInCurrent(name, LocalVar, typ) }

// AddParameter adds a parameter to the current scope; false if already
// declared there.
func (t *Table) AddParameter(name string, typ types.ID) bool { return t.addInCurrent(name, Parameter, typ) }

// AddFunction adds a function to the current scope (normally the global
// scope); false if already declared there.
func (t *Table) AddFunction(name string, fnType types.ID) bool { return t.addInCurrent(name, Function, fnType) }

// FindInCurrent looks up name only in the innermost scope.
func (t *Table) FindInCurrent(name string) (*Symbol, bool) {
	s, ok := t.current().symbols[name]
	return s, ok
}

// FindInStack walks the scope stack innermost-to-outermost.
func (t *Table) FindInStack(name string) (*Symbol, bool) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if s, ok := t.scopes[t.stack[i]].symbols[name]; ok {
			return s, true
		}
	}
	return nil, false
}

func (t *Table) IsFunction(name string) bool {
	s, ok := t.FindInStack(name)
	return ok && s.Kind == Function
}

func (t *Table) IsParameter(name string) bool {
	s, ok := t.FindInStack(name)
	return ok && s.Kind == Parameter
}

func (t *Table) IsLocal(name string) bool {
	s, ok := t.FindInStack(name)
	return ok && s.Kind == LocalVar
}

// HasProperMain reports whether the global scope has a function named
// "main" with zero parameters and Void return.
func (t *Table) HasProperMain(cat *types.Catalog) bool {
	s, ok := t.scopes[GlobalID].symbols["main"]
	if !ok || s.Kind != Function {
		return false
	}
	return cat.FuncArity(s.Type) == 0 && cat.IsVoid(cat.FuncRet(s.Type))
}
