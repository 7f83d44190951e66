// Package decoration is the side map from syntax-tree node identity to the
// attributes the three passes compute: scope id (on Program and Function
// nodes), type id (on declaration and expression nodes), and l-value flag
// (on expression nodes).
//
// Keeping this off the tree itself — rather than a Typ field on ast.Node as
// the teacher's single-pass checker does — is required so the tree, which
// is notionally produced by an external parser, never has a cyclic
// dependency on the passes that decorate it.
package decoration

import (
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/types"
)

// Record holds whichever attributes a pass has written for a given node.
// All three fields are optional; the second result of Scope, Type and
// LValue reports whether they were ever set.
type Record struct {
	Scope     symtab.ScopeID
	hasScope  bool
	Type      types.ID
	hasType   bool
	IsLValue  bool
	hasLValue bool
}

// Map keys by node identity (interface value holding a pointer), matching
// the tree's rule that nodes are always referred to by pointer.
type Map struct {
	records map[any]*Record
}

func New() *Map {
	return &Map{records: make(map[any]*Record)}
}

func (m *Map) recordFor(node any) *Record {
	r, ok := m.records[node]
	if !ok {
		r = &Record{}
		m.records[node] = r
	}
	return r
}

func (m *Map) SetScope(node any, id symtab.ScopeID) {
	r := m.recordFor(node)
	r.Scope, r.hasScope = id, true
}

func (m *Map) Scope(node any) (symtab.ScopeID, bool) {
	r, ok := m.records[node]
	if !ok || !r.hasScope {
		return 0, false
	}
	return r.Scope, true
}

func (m *Map) SetType(node any, id types.ID) {
	r := m.recordFor(node)
	r.Type, r.hasType = id, true
}

func (m *Map) Type(node any) (types.ID, bool) {
	r, ok := m.records[node]
	if !ok || !r.hasType {
		return 0, false
	}
	return r.Type, true
}

func (m *Map) SetLValue(node any, v bool) {
	r := m.recordFor(node)
	r.IsLValue, r.hasLValue = v, true
}

func (m *Map) LValue(node any) (bool, bool) {
	r, ok := m.records[node]
	if !ok || !r.hasLValue {
		return false, false
	}
	return r.IsLValue, true
}
