package check

import (
	"io"

	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/decoration"
	"github.com/usoler/asl/pkg/diag"
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/types"
)

// TypePass assigns a type and an l-value flag to every expression node,
// validates statements, and emits the diagnostics the symbol pass doesn't,
// per §4.4. It re-enters the scopes the symbol pass created (it never
// creates new ones) so that identifier lookups see exactly the bindings
// the symbol pass recorded.
type TypePass struct {
	cat *types.Catalog
	tab *symtab.Table
	dec *decoration.Map
	sk  *diag.Sink

	curFnType types.ID // the enclosing function's type, for Return checking
}

func NewTypePass(cat *types.Catalog, tab *symtab.Table, dec *decoration.Map, sk *diag.Sink) *TypePass {
	return &TypePass{cat: cat, tab: tab, dec: dec, sk: sk}
}

// Run visits the whole program and, at the end, flushes accumulated
// diagnostics as required by §4.4's program rule.
func (p *TypePass) Run(prog *ast.Program, out io.Writer) {
	for _, fn := range prog.Functions {
		p.visitFunction(fn)
	}
	if !p.tab.HasProperMain(p.cat) {
		p.sk.Report(diag.NoMainProperlyDeclared, prog.Pos().Line, prog.Pos().Col)
	}
	p.sk.Flush(out)
}

func (p *TypePass) visitFunction(fn *ast.Function) {
	scopeID, _ := p.dec.Scope(fn)
	p.tab.PushExistingScope(scopeID)

	fnType, _ := p.dec.Type(fn)
	prevFn := p.curFnType
	p.curFnType = fnType

	p.visitStatements(fn.Body)

	p.curFnType = prevFn
	p.tab.Pop()
}

func (p *TypePass) visitStatements(block *ast.Statements) {
	for _, st := range block.List {
		p.visitStatement(st)
	}
}

func (p *TypePass) visitStatement(st ast.Statement) {
	switch s := st.(type) {
	case *ast.AssignStmt:
		p.visitAssign(s)
	case *ast.IfStmt:
		p.visitIf(s)
	case *ast.WhileStmt:
		p.visitWhile(s)
	case *ast.ProcCallStmt:
		p.visitFunctionCall(s.Call)
	case *ast.ReadStmt:
		p.visitRead(s)
	case *ast.WriteExprStmt:
		p.visitWriteExpr(s)
	case *ast.WriteStringStmt:
		// nothing to check; the literal is emitted verbatim.
	case *ast.ReturnStmt:
		p.visitReturn(s)
	}
}

func (p *TypePass) visitAssign(s *ast.AssignStmt) {
	leftType, leftLV := p.visitLeftExpr(s.Left)
	rightType := p.visitExpr(s.Right)

	if !p.cat.IsError(leftType) && !p.cat.IsError(rightType) && !p.cat.Copyable(leftType, rightType) {
		pos := s.AssignPos
		p.sk.Report(diag.IncompatibleAssignment, pos.Line, pos.Col, p.cat.String(rightType), p.cat.String(leftType))
	}
	if !p.cat.IsError(leftType) && !leftLV {
		pos := s.Left.Pos()
		p.sk.Report(diag.NonReferenceableLeft, pos.Line, pos.Col)
	}
}

func (p *TypePass) visitIf(s *ast.IfStmt) {
	condType := p.visitExpr(s.Cond)
	if !p.cat.IsError(condType) && condType != p.cat.Boolean() {
		pos := s.Cond.Pos()
		p.sk.Report(diag.BooleanRequired, pos.Line, pos.Col, p.cat.String(condType))
	}
	p.visitStatements(s.Then)
	if s.Else != nil {
		p.visitStatements(s.Else)
	}
}

func (p *TypePass) visitWhile(s *ast.WhileStmt) {
	condType := p.visitExpr(s.Cond)
	if !p.cat.IsError(condType) && condType != p.cat.Boolean() {
		pos := s.Cond.Pos()
		p.sk.Report(diag.BooleanRequired, pos.Line, pos.Col, p.cat.String(condType))
	}
	p.visitStatements(s.Body)
}

func (p *TypePass) visitRead(s *ast.ReadStmt) {
	leftType, leftLV := p.visitLeftExpr(s.Left)
	if p.cat.IsError(leftType) {
		return
	}
	if !leftLV {
		pos := s.Left.Pos()
		p.sk.Report(diag.NonReferenceableReadTarget, pos.Line, pos.Col)
		return
	}
	if !p.cat.Primitive(leftType) && !p.cat.IsFunc(leftType) {
		pos := s.Left.Pos()
		p.sk.Report(diag.ReadWriteRequiresBasic, pos.Line, pos.Col, "read", p.cat.String(leftType))
	}
}

func (p *TypePass) visitWriteExpr(s *ast.WriteExprStmt) {
	t := p.visitExpr(s.Value)
	if p.cat.IsError(t) {
		return
	}
	if !p.cat.Primitive(t) {
		pos := s.Value.Pos()
		p.sk.Report(diag.ReadWriteRequiresBasic, pos.Line, pos.Col, "write", p.cat.String(t))
	}
}

func (p *TypePass) visitReturn(s *ast.ReturnStmt) {
	t := p.cat.Void()
	if s.Value != nil {
		t = p.visitExpr(s.Value)
	}
	ret := p.cat.FuncRet(p.curFnType)
	if !p.cat.IsError(ret) && !p.cat.IsError(t) && !p.cat.Copyable(ret, t) {
		p.sk.Report(diag.IncompatibleReturn, s.RetPos.Line, s.RetPos.Col, p.cat.String(t), p.cat.String(ret))
	}
}

// visitLeftExpr resolves an assignment/read target, returning its type and
// l-value flag, and decorating the underlying node the same way visitExpr
// decorates general expressions.
func (p *TypePass) visitLeftExpr(le ast.LeftExpr) (types.ID, bool) {
	switch l := le.(type) {
	case *ast.LeftExprIdent:
		t, lv := p.visitIdent(l.Ident)
		p.dec.SetType(l, t)
		p.dec.SetLValue(l, lv)
		return t, lv
	case *ast.LeftArrayAccess:
		t, lv := p.visitArray(l.Array)
		p.dec.SetType(l, t)
		p.dec.SetLValue(l, lv)
		return t, lv
	}
	return p.cat.Error(), false
}

func (p *TypePass) visitExpr(e ast.Expr) types.ID {
	switch ex := e.(type) {
	case *ast.Literal:
		t := p.literalType(ex.Kind)
		p.decorate(ex, t, false)
		return t
	case *ast.Parenthesis:
		t := p.visitExpr(ex.Inner)
		p.decorate(ex, t, false)
		return t
	case *ast.ExprFunc:
		t := p.visitFunctionCall(ex.Call)
		if !p.cat.IsError(t) && p.cat.IsVoid(t) {
			pos := ex.Call.Callee.Pos()
			p.sk.Report(diag.NotAFunction, pos.Line, pos.Col, ex.Call.Callee.Name)
			t = p.cat.Error()
		}
		p.decorate(ex, t, false)
		return t
	case *ast.Unary:
		t := p.visitUnary(ex)
		p.decorate(ex, t, false)
		return t
	case *ast.Arithmetic:
		t := p.visitArithmetic(ex)
		p.decorate(ex, t, false)
		return t
	case *ast.Relational:
		t := p.visitRelational(ex)
		p.decorate(ex, t, false)
		return t
	case *ast.Logical:
		t := p.visitLogical(ex)
		p.decorate(ex, t, false)
		return t
	case *ast.ArrayAccess:
		t, lv := p.visitArray(ex.Array)
		p.decorate(ex, t, lv)
		return t
	case *ast.ExprIdent:
		t, lv := p.visitIdent(ex.Ident)
		p.decorate(ex, t, lv)
		return t
	}
	return p.cat.Error()
}

func (p *TypePass) decorate(node any, t types.ID, lv bool) {
	p.dec.SetType(node, t)
	p.dec.SetLValue(node, lv)
}

func (p *TypePass) literalType(k ast.LiteralKind) types.ID {
	switch k {
	case ast.LitInt:
		return p.cat.Integer()
	case ast.LitFloat:
		return p.cat.Float()
	case ast.LitBool:
		return p.cat.Boolean()
	case ast.LitChar:
		return p.cat.Character()
	}
	return p.cat.Error()
}

// visitIdent resolves a bare identifier reference shared by ExprIdent,
// LeftExprIdent and the base of Array productions.
func (p *TypePass) visitIdent(id *ast.Ident) (types.ID, bool) {
	sym, ok := p.tab.FindInStack(id.Name)
	if !ok {
		p.sk.Report(diag.UndeclaredIdentifier, id.Pos().Line, id.Pos().Col, id.Name)
		p.decorate(id, p.cat.Error(), true)
		return p.cat.Error(), true
	}
	lv := sym.Kind != symtab.Function
	p.decorate(id, sym.Type, lv)
	return sym.Type, lv
}

func (p *TypePass) visitUnary(u *ast.Unary) types.ID {
	t := p.visitExpr(u.Operand)
	if p.cat.IsError(t) {
		return p.cat.Error()
	}
	switch u.Op {
	case ast.UnaryNot:
		if t != p.cat.Boolean() {
			p.sk.Report(diag.IncompatibleOperator, u.OpPos.Line, u.OpPos.Col, "not", p.cat.String(t))
			return p.cat.Error()
		}
		return p.cat.Boolean()
	case ast.UnaryPlus, ast.UnaryMinus:
		if !p.cat.Numeric(t) {
			p.sk.Report(diag.IncompatibleOperator, u.OpPos.Line, u.OpPos.Col, unaryOpText(u.Op), p.cat.String(t))
			return p.cat.Error()
		}
		return t
	}
	return p.cat.Error()
}

func unaryOpText(op ast.UnaryOp) string {
	switch op {
	case ast.UnaryNot:
		return "not"
	case ast.UnaryPlus:
		return "+"
	case ast.UnaryMinus:
		return "-"
	}
	return "?"
}

func arithOpText(op ast.ArithOp) string {
	switch op {
	case ast.ArithMul:
		return "*"
	case ast.ArithDiv:
		return "/"
	case ast.ArithMod:
		return "%"
	case ast.ArithAdd:
		return "+"
	case ast.ArithSub:
		return "-"
	}
	return "?"
}

func (p *TypePass) visitArithmetic(a *ast.Arithmetic) types.ID {
	lt := p.visitExpr(a.Left)
	rt := p.visitExpr(a.Right)
	if p.cat.IsError(lt) || p.cat.IsError(rt) {
		return p.cat.Error()
	}
	if a.Op == ast.ArithMod {
		if lt != p.cat.Integer() || rt != p.cat.Integer() {
			p.sk.Report(diag.IncompatibleOperator, a.OpPos.Line, a.OpPos.Col, "%", p.cat.String(lt))
			return p.cat.Error()
		}
		return p.cat.Integer()
	}
	if !p.cat.Numeric(lt) || !p.cat.Numeric(rt) {
		p.sk.Report(diag.IncompatibleOperator, a.OpPos.Line, a.OpPos.Col, arithOpText(a.Op), p.cat.String(lt))
		return p.cat.Error()
	}
	if lt == p.cat.Float() || rt == p.cat.Float() {
		return p.cat.Float()
	}
	return p.cat.Integer()
}

func relOpKind(op ast.RelOp) types.RelOpKind {
	switch op {
	case ast.RelEq, ast.RelDiff:
		return types.RelOpEquality
	}
	return types.RelOpOrdered
}

func relOpText(op ast.RelOp) string {
	switch op {
	case ast.RelEq:
		return "=="
	case ast.RelDiff:
		return "!="
	case ast.RelLT:
		return "<"
	case ast.RelLE:
		return "<="
	case ast.RelGT:
		return ">"
	case ast.RelGE:
		return ">="
	}
	return "?"
}

func (p *TypePass) visitRelational(r *ast.Relational) types.ID {
	lt := p.visitExpr(r.Left)
	rt := p.visitExpr(r.Right)
	if p.cat.IsError(lt) || p.cat.IsError(rt) {
		return p.cat.Error()
	}
	if !p.cat.Comparable(lt, rt, relOpKind(r.Op)) {
		p.sk.Report(diag.IncompatibleOperator, r.OpPos.Line, r.OpPos.Col, relOpText(r.Op), p.cat.String(lt))
		return p.cat.Error()
	}
	return p.cat.Boolean()
}

func (p *TypePass) visitLogical(l *ast.Logical) types.ID {
	lt := p.visitExpr(l.Left)
	rt := p.visitExpr(l.Right)
	if p.cat.IsError(lt) || p.cat.IsError(rt) {
		return p.cat.Error()
	}
	if lt != p.cat.Boolean() || rt != p.cat.Boolean() {
		text := "and"
		if l.Op == ast.LogicalOr {
			text = "or"
		}
		p.sk.Report(diag.IncompatibleOperator, l.OpPos.Line, l.OpPos.Col, text, p.cat.String(lt))
		return p.cat.Error()
	}
	return p.cat.Boolean()
}

// visitArray resolves the shared `ident [ expr ]` production for both
// l-value and r-value uses.
func (p *TypePass) visitArray(a *ast.Array) (types.ID, bool) {
	baseType, _ := p.visitIdent(a.Ident)
	idxType := p.visitExpr(a.Index)

	if !p.cat.IsError(idxType) && idxType != p.cat.Integer() {
		pos := a.Index.Pos()
		p.sk.Report(diag.NonIntegerIndex, pos.Line, pos.Col, p.cat.String(idxType))
	}
	if p.cat.IsError(baseType) {
		return p.cat.Error(), false
	}
	if !p.cat.IsArray(baseType) {
		pos := a.Ident.Pos()
		p.sk.Report(diag.NonArrayInArrayAccess, pos.Line, pos.Col, a.Ident.Name)
		return p.cat.Error(), false
	}
	return p.cat.ArrayElem(baseType), true
}

func (p *TypePass) visitFunctionCall(call *ast.FunctionCall) types.ID {
	calleeType, _ := p.visitIdent(call.Callee)

	argTypes := make([]types.ID, len(call.Args))
	for i, arg := range call.Args {
		argTypes[i] = p.visitExpr(arg)
	}

	if p.cat.IsError(calleeType) {
		p.decorate(call, p.cat.Error(), false)
		return p.cat.Error()
	}
	if !p.cat.IsFunc(calleeType) {
		pos := call.Callee.Pos()
		p.sk.Report(diag.NotCallable, pos.Line, pos.Col, call.Callee.Name)
		p.decorate(call, p.cat.Error(), false)
		return p.cat.Error()
	}

	arity := p.cat.FuncArity(calleeType)
	if arity != len(call.Args) {
		pos := call.Callee.Pos()
		p.sk.Report(diag.WrongNumberOfParameters, pos.Line, pos.Col, call.Callee.Name, arity, len(call.Args))
	} else {
		for i, argType := range argTypes {
			declared := p.cat.FuncParam(calleeType, i)
			if !p.cat.IsError(argType) && !p.cat.Copyable(declared, argType) {
				pos := call.Args[i].Pos()
				p.sk.Report(diag.IncompatibleParameter, pos.Line, pos.Col, i+1, call.Callee.Name,
					p.cat.String(argType), p.cat.String(declared))
			}
		}
	}

	ret := p.cat.FuncRet(calleeType)
	p.decorate(call, ret, false)
	return ret
}
