// Package check implements the symbol pass and the type pass: the two
// semantic passes that walk the syntax tree left-to-right, depth-first,
// writing scope ids, type ids and l-value flags into a decoration.Map and
// recording diagnostics as they go.
package check

import (
	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/decoration"
	"github.com/usoler/asl/pkg/diag"
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/types"
)

// SymbolPass builds scopes and function signatures and validates
// declarations, per §4.3. It owns no state beyond its constructor
// arguments; everything it learns is written to dec and tab.
type SymbolPass struct {
	cat *types.Catalog
	tab *symtab.Table
	dec *decoration.Map
	sk  *diag.Sink
}

func NewSymbolPass(cat *types.Catalog, tab *symtab.Table, dec *decoration.Map, sk *diag.Sink) *SymbolPass {
	return &SymbolPass{cat: cat, tab: tab, dec: dec, sk: sk}
}

// Run visits the whole program.
func (p *SymbolPass) Run(prog *ast.Program) {
	p.dec.SetScope(prog, symtab.GlobalID)
	for _, fn := range prog.Functions {
		p.visitFunction(fn)
	}
}

func (p *SymbolPass) visitFunction(fn *ast.Function) {
	fnType := p.functionType(fn)
	p.dec.SetType(fn, fnType)

	scopeID := p.tab.PushNewScope(fn.Name)
	p.dec.SetScope(fn, scopeID)

	for _, param := range fn.Params {
		p.visitParameter(param)
	}
	for _, decl := range fn.Decls {
		p.visitVariableDecl(decl)
	}

	p.tab.Pop()

	if !p.tab.AddFunction(fn.Name, fnType) {
		p.sk.Report(diag.DuplicateDeclaration, fn.NameTok.Line, fn.NameTok.Col, fn.Name)
	}
}

// functionType computes a function's type from its parameter declarations
// and optional return type, without touching the symbol table — it runs
// before the function's own scope is pushed, so parameter types are
// resolved twice (here, and again inside visitParameter) by design: the
// declared shape must exist before the scope does.
func (p *SymbolPass) functionType(fn *ast.Function) types.ID {
	params := make([]types.ID, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = p.resolveType(param.Type)
	}
	ret := p.cat.Void()
	if fn.ReturnType != nil {
		ret = p.resolveType(fn.ReturnType)
	}
	return p.cat.Function(params, ret)
}

func (p *SymbolPass) visitParameter(param *ast.Parameter) {
	t := p.resolveType(param.Type)
	p.dec.SetType(param, t)
	if !p.tab.AddParameter(param.Name, t) {
		p.sk.Report(diag.DuplicateDeclaration, param.Pos().Line, param.Pos().Col, param.Name)
	}
}

func (p *SymbolPass) visitVariableDecl(decl *ast.VariableDecl) {
	for i := range decl.Groups {
		group := &decl.Groups[i]
		t := p.resolveType(group.Type)
		p.dec.SetType(group, t)
		for j, name := range group.Names {
			if !p.tab.AddLocal(name, t) {
				pos := group.NamePos[j]
				p.sk.Report(diag.DuplicateDeclaration, pos.Line, pos.Col, name)
			}
		}
	}
}

// resolveType builds the Type for a type node. Type nodes in this grammar
// are always well-formed (sizes and basic kinds come straight from the
// token stream), so this never itself raises a diagnostic; it is the
// caller's declaration context that may.
func (p *SymbolPass) resolveType(tn ast.TypeNode) types.ID {
	switch t := tn.(type) {
	case *ast.BasicType:
		return p.basicType(t.Kind)
	case *ast.ArrayType:
		return p.cat.Array(t.Size, p.basicType(t.Elem.Kind))
	}
	return p.cat.Error()
}

func (p *SymbolPass) basicType(k ast.BasicKind) types.ID {
	switch k {
	case ast.KInt:
		return p.cat.Integer()
	case ast.KFloat:
		return p.cat.Float()
	case ast.KBool:
		return p.cat.Boolean()
	case ast.KChar:
		return p.cat.Character()
	}
	return p.cat.Error()
}
