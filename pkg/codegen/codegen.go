// Package codegen lowers a typed, decorated tree to three-address code,
// per §4.5. It is invoked only once the type pass produced no diagnostics.
//
// Each expression visitor returns a CodeAttribs triple {addr, offs, code}:
// array access is deliberately not dereferenced at the access site, so
// that an l-value use can write with XLOAD while an r-value use inserts
// the LOADX/coercion sequence. This is the one non-obvious design
// decision the core specification calls out in §9.
package codegen

import (
	"fmt"

	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/decoration"
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/tac"
	"github.com/usoler/asl/pkg/types"
)

// CodeAttribs is the triple-return record every expression lowering rule
// produces.
type CodeAttribs struct {
	Addr string
	Offs string // empty unless Addr is the base of an array access
	Code tac.List
}

func isElementAccess(a CodeAttribs) bool { return a.Offs != "" }

// Generator holds the shared, whole-compilation state (types, symbols,
// decoration) plus the counters owned exclusively by codegen for the
// duration of lowering one function.
type Generator struct {
	cat *types.Catalog
	tab *symtab.Table
	dec *decoration.Map

	counters   *tac.Counters
	curFnType  types.ID
	byRefNames map[string]bool // parameters of the current function passed by reference
}

func NewGenerator(cat *types.Catalog, tab *symtab.Table, dec *decoration.Map) *Generator {
	return &Generator{cat: cat, tab: tab, dec: dec}
}

// Generate lowers a fully type-checked program to a tac.Program.
func (g *Generator) Generate(prog *ast.Program) *tac.Program {
	out := &tac.Program{}
	for _, fn := range prog.Functions {
		out.Subroutines = append(out.Subroutines, g.generateFunction(fn))
	}
	return out
}

func (g *Generator) generateFunction(fn *ast.Function) *tac.Subroutine {
	scopeID, _ := g.dec.Scope(fn)
	g.tab.PushExistingScope(scopeID)
	defer g.tab.Pop()

	fnType, _ := g.dec.Type(fn)
	g.curFnType = fnType
	g.counters = &tac.Counters{}
	g.byRefNames = make(map[string]bool)

	sub := &tac.Subroutine{Name: fn.Name}

	retType := g.cat.FuncRet(fnType)
	if !g.cat.IsVoid(retType) {
		sub.Params = append(sub.Params, tac.Param{Name: "_result", Repr: g.cat.Repr(retType)})
	}

	for _, param := range fn.Params {
		paramType, _ := g.dec.Type(param)
		byRef := g.cat.IsArray(paramType)
		if byRef {
			g.byRefNames[param.Name] = true
		}
		sub.Params = append(sub.Params, tac.Param{Name: param.Name, Repr: g.cat.Repr(paramType), ByRef: byRef})
	}

	for _, decl := range fn.Decls {
		for i := range decl.Groups {
			group := &decl.Groups[i]
			groupType, _ := g.dec.Type(group)
			for _, name := range group.Names {
				sub.Locals = append(sub.Locals, tac.Local{Name: name, Repr: g.cat.Repr(groupType), Size: g.cat.SizeOf(groupType)})
			}
		}
	}

	sub.Body = tac.Concat(g.generateStatements(fn.Body), tac.One(tac.Inst(tac.RETURN)))
	return sub
}

func (g *Generator) generateStatements(block *ast.Statements) tac.List {
	var out tac.List
	for _, st := range block.List {
		out = tac.Concat(out, g.generateStatement(st))
	}
	return out
}

func (g *Generator) generateStatement(st ast.Statement) tac.List {
	switch s := st.(type) {
	case *ast.AssignStmt:
		return g.generateAssign(s)
	case *ast.IfStmt:
		return g.generateIf(s)
	case *ast.WhileStmt:
		return g.generateWhile(s)
	case *ast.ProcCallStmt:
		a := g.generateFunctionCall(s.Call)
		return a.Code
	case *ast.ReadStmt:
		return g.generateRead(s)
	case *ast.WriteExprStmt:
		return g.generateWriteExpr(s)
	case *ast.WriteStringStmt:
		return tac.One(tac.Inst(tac.WRITES, s.Literal))
	case *ast.ReturnStmt:
		return g.generateReturn(s)
	}
	return nil
}

// materialize turns an element-access attribs into an r-value held in a
// fresh temp, inserting a LOAD of the base pointer first when the base is
// a by-reference parameter.
func (g *Generator) materialize(a CodeAttribs) CodeAttribs {
	if !isElementAccess(a) {
		return a
	}
	code := a.Code
	base := a.Addr
	if g.byRefNames[a.Addr] {
		ptr := g.counters.NewTemp()
		code = tac.Concat(code, tac.One(tac.Inst(tac.LOAD, ptr, a.Addr)))
		base = ptr
	}
	t := g.counters.NewTemp()
	code = tac.Concat(code, tac.One(tac.Inst(tac.LOADX, t, base, a.Offs)))
	return CodeAttribs{Addr: t, Code: code}
}

// coerceTo materializes a to an r-value and, if target is Float and a's
// static type is Integer, inserts a fresh-temp FLOAT coercion. aType is
// the static type decoration recorded for the expression a was lowered
// from.
func (g *Generator) coerceTo(a CodeAttribs, aType, target types.ID) CodeAttribs {
	a = g.materialize(a)
	if target == g.cat.Float() && aType == g.cat.Integer() {
		t := g.counters.NewTemp()
		code := tac.Concat(a.Code, tac.One(tac.Inst(tac.FLOAT, t, a.Addr)))
		return CodeAttribs{Addr: t, Code: code}
	}
	return a
}

func (g *Generator) generateAssign(s *ast.AssignStmt) tac.List {
	leftType, _ := g.dec.Type(s.Left)
	rightType, _ := g.dec.Type(s.Right)

	left := g.generateLeftExpr(s.Left)
	right := g.generateExpr(s.Right)

	leftIsArray := isElementAccess(left) == false && g.cat.IsArray(leftType)
	rightIsElement := isElementAccess(right)
	rightIsWholeArray := !rightIsElement && g.cat.IsArray(rightType)

	switch {
	case leftIsArray && rightIsWholeArray:
		return g.generateArrayCopy(left, right, leftType)
	case !leftIsArray && !isElementAccess(left) && !rightIsElement:
		// scalar <- scalar
		rv := g.coerceTo(right, rightType, leftType)
		return tac.Concat(rv.Code, tac.One(tac.Inst(scalarLoadOp(g.cat, leftType), left.Addr, rv.Addr)))
	case !isElementAccess(left) && rightIsElement:
		// scalar <- element
		rv := g.elementRValue(right)
		return tac.Concat(rv.Code, tac.One(tac.Inst(tac.LOADX, left.Addr, rv.Addr, rv.Offs)))
	case isElementAccess(left) && !rightIsElement:
		// element <- scalar
		rv := g.coerceTo(right, rightType, leftType)
		base, code := g.baseAddr(left)
		code = tac.Concat(code, rv.Code, tac.One(tac.Inst(tac.XLOAD, base, left.Offs, rv.Addr)))
		return code
	case isElementAccess(left) && rightIsElement:
		// element <- element
		rv := g.materialize(right)
		base, code := g.baseAddr(left)
		code = tac.Concat(code, rv.Code, tac.One(tac.Inst(tac.XLOAD, base, left.Offs, rv.Addr)))
		return code
	}
	return tac.Concat(left.Code, right.Code)
}

// elementRValue fetches src's base pointer (materializing a by-reference
// parameter's address first) while leaving the element undereferenced, for
// the scalar<-element LOADX path which needs both base and offs directly.
func (g *Generator) elementRValue(a CodeAttribs) CodeAttribs {
	if !g.byRefNames[a.Addr] {
		return a
	}
	ptr := g.counters.NewTemp()
	code := tac.Concat(a.Code, tac.One(tac.Inst(tac.LOAD, ptr, a.Addr)))
	return CodeAttribs{Addr: ptr, Offs: a.Offs, Code: code}
}

// baseAddr resolves the base pointer to use with XLOAD against an element
// l-value, materializing a by-reference parameter's address first.
func (g *Generator) baseAddr(a CodeAttribs) (string, tac.List) {
	if g.byRefNames[a.Addr] {
		ptr := g.counters.NewTemp()
		return ptr, tac.Concat(a.Code, tac.One(tac.Inst(tac.LOAD, ptr, a.Addr)))
	}
	return a.Addr, a.Code
}

// generateArrayCopy lowers `dst = src` for two whole-array names by
// materializing any by-reference base and emitting an N-element transfer
// loop, per §4.5.
func (g *Generator) generateArrayCopy(dst, src CodeAttribs, arrayType types.ID) tac.List {
	dstBase, code := g.baseAddr(CodeAttribs{Addr: dst.Addr})
	var srcPtr string
	if g.byRefNames[src.Addr] {
		srcPtr = g.counters.NewTemp()
		code = tac.Concat(code, tac.One(tac.Inst(tac.LOAD, srcPtr, src.Addr)))
	} else {
		srcPtr = src.Addr
	}

	size := g.cat.ArraySize(arrayType)
	idx := g.counters.NewTemp()
	elem := g.counters.NewTemp()
	for i := 0; i < size; i++ {
		lit := fmt.Sprintf("%d", i)
		code = tac.Concat(code,
			tac.One(tac.Inst(tac.ILOAD, idx, lit)),
			tac.One(tac.Inst(tac.LOADX, elem, srcPtr, idx)),
			tac.One(tac.Inst(tac.XLOAD, dstBase, idx, elem)),
		)
	}
	return code
}

func scalarLoadOp(cat *types.Catalog, t types.ID) tac.Op {
	switch {
	case t == cat.Integer():
		return tac.ILOAD
	case t == cat.Float():
		return tac.FLOAD
	case t == cat.Character():
		return tac.CHLOAD
	case t == cat.Boolean():
		return tac.ILOAD
	}
	return tac.ILOAD
}

func (g *Generator) generateLeftExpr(le ast.LeftExpr) CodeAttribs {
	switch l := le.(type) {
	case *ast.LeftExprIdent:
		return CodeAttribs{Addr: l.Ident.Name}
	case *ast.LeftArrayAccess:
		return g.generateArray(l.Array)
	}
	return CodeAttribs{}
}

func (g *Generator) generateArray(a *ast.Array) CodeAttribs {
	idx := g.materialize(g.generateExpr(a.Index))
	return CodeAttribs{Addr: a.Ident.Name, Offs: idx.Addr, Code: idx.Code}
}

func (g *Generator) generateExpr(e ast.Expr) CodeAttribs {
	switch ex := e.(type) {
	case *ast.Literal:
		return g.generateLiteral(ex)
	case *ast.Parenthesis:
		return g.generateExpr(ex.Inner)
	case *ast.ExprFunc:
		return g.generateFunctionCall(ex.Call)
	case *ast.Unary:
		return g.generateUnary(ex)
	case *ast.Arithmetic:
		return g.generateArithmetic(ex)
	case *ast.Relational:
		return g.generateRelational(ex)
	case *ast.Logical:
		return g.generateLogical(ex)
	case *ast.ArrayAccess:
		return g.generateArray(ex.Array)
	case *ast.ExprIdent:
		return CodeAttribs{Addr: ex.Ident.Name}
	}
	return CodeAttribs{}
}

func (g *Generator) generateLiteral(lit *ast.Literal) CodeAttribs {
	t := g.counters.NewTemp()
	switch lit.Kind {
	case ast.LitInt:
		return CodeAttribs{Addr: t, Code: tac.One(tac.Inst(tac.ILOAD, t, lit.Text))}
	case ast.LitFloat:
		return CodeAttribs{Addr: t, Code: tac.One(tac.Inst(tac.FLOAD, t, lit.Text))}
	case ast.LitChar:
		return CodeAttribs{Addr: t, Code: tac.One(tac.Inst(tac.CHLOAD, t, lit.Text))}
	case ast.LitBool:
		v := "0"
		if lit.Text == "true" {
			v = "1"
		}
		return CodeAttribs{Addr: t, Code: tac.One(tac.Inst(tac.ILOAD, t, v))}
	}
	return CodeAttribs{Addr: t}
}

func (g *Generator) generateUnary(u *ast.Unary) CodeAttribs {
	operandType, _ := g.dec.Type(u.Operand)
	v := g.generateExpr(u.Operand)
	v = g.materialize(v)

	switch u.Op {
	case ast.UnaryPlus:
		return v
	case ast.UnaryNot:
		t := g.counters.NewTemp()
		code := tac.Concat(v.Code, tac.One(tac.Inst(tac.NOT, t, v.Addr)))
		return CodeAttribs{Addr: t, Code: code}
	case ast.UnaryMinus:
		t := g.counters.NewTemp()
		op := tac.NEG
		if operandType == g.cat.Float() {
			op = tac.FNEG
		}
		code := tac.Concat(v.Code, tac.One(tac.Inst(op, t, v.Addr)))
		return CodeAttribs{Addr: t, Code: code}
	}
	return v
}

func (g *Generator) generateArithmetic(a *ast.Arithmetic) CodeAttribs {
	leftType, _ := g.dec.Type(a.Left)
	rightType, _ := g.dec.Type(a.Right)
	resultFloat := leftType == g.cat.Float() || rightType == g.cat.Float()

	lv := g.generateExpr(a.Left)
	rv := g.generateExpr(a.Right)

	if a.Op == ast.ArithMod {
		lv = g.materialize(lv)
		rv = g.materialize(rv)
		q := g.counters.NewTemp()
		prod := g.counters.NewTemp()
		r := g.counters.NewTemp()
		code := tac.Concat(lv.Code, rv.Code,
			tac.One(tac.Inst(tac.DIV, q, lv.Addr, rv.Addr)),
			tac.One(tac.Inst(tac.MUL, prod, rv.Addr, q)),
			tac.One(tac.Inst(tac.SUB, r, lv.Addr, prod)),
		)
		return CodeAttribs{Addr: r, Code: code}
	}

	target := g.cat.Integer()
	if resultFloat {
		target = g.cat.Float()
	}
	lv = g.coerceTo(lv, leftType, target)
	rv = g.coerceTo(rv, rightType, target)

	op := intArithOp(a.Op)
	if resultFloat {
		op = floatArithOp(a.Op)
	}
	t := g.counters.NewTemp()
	code := tac.Concat(lv.Code, rv.Code, tac.One(tac.Inst(op, t, lv.Addr, rv.Addr)))
	return CodeAttribs{Addr: t, Code: code}
}

func intArithOp(op ast.ArithOp) tac.Op {
	switch op {
	case ast.ArithMul:
		return tac.MUL
	case ast.ArithDiv:
		return tac.DIV
	case ast.ArithAdd:
		return tac.ADD
	case ast.ArithSub:
		return tac.SUB
	}
	return tac.ADD
}

func floatArithOp(op ast.ArithOp) tac.Op {
	switch op {
	case ast.ArithMul:
		return tac.FMUL
	case ast.ArithDiv:
		return tac.FDIV
	case ast.ArithAdd:
		return tac.FADD
	case ast.ArithSub:
		return tac.FSUB
	}
	return tac.FADD
}

// generateRelational lowers comparisons. Float comparisons coerce each
// operand into a fresh temp (never in place — one variant in the source
// this is grounded on rewrote its own operand with `FLOAT src,src`, which
// has no effect on an Integer value; §9 calls this out as a bug to avoid).
// `!=` is EQ followed by NOT; `>`/`>=` swap operands of `<`/`<=`.
func (g *Generator) generateRelational(r *ast.Relational) CodeAttribs {
	leftType, _ := g.dec.Type(r.Left)
	rightType, _ := g.dec.Type(r.Right)
	isFloat := leftType == g.cat.Float() || rightType == g.cat.Float()

	lv := g.generateExpr(r.Left)
	rv := g.generateExpr(r.Right)

	op, swap := relOpFor(r.Op, isFloat)
	if swap {
		lv, rv = rv, lv
		leftType, rightType = rightType, leftType
	}

	if isFloat {
		target := g.cat.Float()
		lv = g.coerceTo(lv, leftType, target)
		rv = g.coerceTo(rv, rightType, target)
	} else {
		lv = g.materialize(lv)
		rv = g.materialize(rv)
	}

	t := g.counters.NewTemp()
	code := tac.Concat(lv.Code, rv.Code, tac.One(tac.Inst(op, t, lv.Addr, rv.Addr)))
	if r.Op == ast.RelDiff {
		notT := g.counters.NewTemp()
		code = tac.Concat(code, tac.One(tac.Inst(tac.NOT, notT, t)))
		t = notT
	}
	return CodeAttribs{Addr: t, Code: code}
}

// relOpFor maps a source relational operator (after normalizing != to ==)
// to its opcode and whether operands must be swapped (> as < swapped, >=
// as <= swapped).
func relOpFor(op ast.RelOp, isFloat bool) (tac.Op, bool) {
	switch op {
	case ast.RelEq, ast.RelDiff:
		if isFloat {
			return tac.FEQ, false
		}
		return tac.EQ, false
	case ast.RelLT:
		if isFloat {
			return tac.FLT, false
		}
		return tac.LT, false
	case ast.RelGT:
		if isFloat {
			return tac.FLT, true
		}
		return tac.LT, true
	case ast.RelLE:
		if isFloat {
			return tac.FLE, false
		}
		return tac.LE, false
	case ast.RelGE:
		if isFloat {
			return tac.FLE, true
		}
		return tac.LE, true
	}
	return tac.EQ, false
}

// generateLogical lowers and/or onto the integer representation of
// booleans with AND/OR opcodes. The source is not required to
// short-circuit (§9), so both operands are always evaluated.
func (g *Generator) generateLogical(l *ast.Logical) CodeAttribs {
	lv := g.materialize(g.generateExpr(l.Left))
	rv := g.materialize(g.generateExpr(l.Right))
	op := tac.AND
	if l.Op == ast.LogicalOr {
		op = tac.OR
	}
	t := g.counters.NewTemp()
	code := tac.Concat(lv.Code, rv.Code, tac.One(tac.Inst(op, t, lv.Addr, rv.Addr)))
	return CodeAttribs{Addr: t, Code: code}
}

// generateIf emits both branches per §4.5/§9; the paired else/endif labels
// share one counter value.
func (g *Generator) generateIf(s *ast.IfStmt) tac.List {
	cond := g.materialize(g.generateExpr(s.Cond))
	elseLabel, endLabel := g.counters.NewIfLabels()
	thenCode := g.generateStatements(s.Then)

	if s.Else == nil {
		return tac.Concat(cond.Code,
			tac.One(tac.Inst(tac.FJUMP, cond.Addr, endLabel)),
			thenCode,
			tac.One(tac.Inst(tac.LABEL, endLabel)),
		)
	}

	elseCode := g.generateStatements(s.Else)
	return tac.Concat(cond.Code,
		tac.One(tac.Inst(tac.FJUMP, cond.Addr, elseLabel)),
		thenCode,
		tac.One(tac.Inst(tac.UJUMP, endLabel)),
		tac.One(tac.Inst(tac.LABEL, elseLabel)),
		elseCode,
		tac.One(tac.Inst(tac.LABEL, endLabel)),
	)
}

func (g *Generator) generateWhile(s *ast.WhileStmt) tac.List {
	whileLabel, endLabel := g.counters.NewWhileLabels()
	cond := g.materialize(g.generateExpr(s.Cond))
	body := g.generateStatements(s.Body)
	return tac.Concat(
		tac.One(tac.Inst(tac.LABEL, whileLabel)),
		cond.Code,
		tac.One(tac.Inst(tac.FJUMP, cond.Addr, endLabel)),
		body,
		tac.One(tac.Inst(tac.UJUMP, whileLabel)),
		tac.One(tac.Inst(tac.LABEL, endLabel)),
	)
}

func (g *Generator) generateRead(s *ast.ReadStmt) tac.List {
	leftType, _ := g.dec.Type(s.Left)
	left := g.generateLeftExpr(s.Left)
	op := readOp(g.cat, leftType)

	if isElementAccess(left) {
		t := g.counters.NewTemp()
		base, code := g.baseAddr(left)
		code = tac.Concat(code, tac.One(tac.Inst(op, t)), tac.One(tac.Inst(tac.XLOAD, base, left.Offs, t)))
		return code
	}
	return tac.Concat(left.Code, tac.One(tac.Inst(op, left.Addr)))
}

func readOp(cat *types.Catalog, t types.ID) tac.Op {
	switch {
	case t == cat.Float():
		return tac.READF
	case t == cat.Character():
		return tac.READC
	}
	return tac.READI
}

func (g *Generator) generateWriteExpr(s *ast.WriteExprStmt) tac.List {
	valType, _ := g.dec.Type(s.Value)
	v := g.materialize(g.generateExpr(s.Value))
	op := writeOp(g.cat, valType)
	return tac.Concat(v.Code, tac.One(tac.Inst(op, v.Addr)))
}

func writeOp(cat *types.Catalog, t types.ID) tac.Op {
	switch {
	case t == cat.Float():
		return tac.WRITEF
	case t == cat.Character():
		return tac.WRITEC
	}
	return tac.WRITEI
}

func (g *Generator) generateReturn(s *ast.ReturnStmt) tac.List {
	if s.Value == nil {
		return nil
	}
	valType, _ := g.dec.Type(s.Value)
	retType := g.cat.FuncRet(g.curFnType)
	v := g.coerceTo(g.generateExpr(s.Value), valType, retType)
	return tac.Concat(v.Code, tac.One(tac.Inst(tac.LOAD, "_result", v.Addr)))
}

// generateFunctionCall lowers a call per §4.5: a result slot is pushed
// first when the callee is non-Void, each argument is evaluated
// left-to-right with FLOAT/ALOAD coercions as needed, then PUSH/CALL/POP
// in that order.
func (g *Generator) generateFunctionCall(call *ast.FunctionCall) CodeAttribs {
	sym, _ := g.tab.FindInStack(call.Callee.Name)
	fnType := sym.Type

	retType := g.cat.FuncRet(fnType)
	nonVoid := !g.cat.IsVoid(retType)

	var code tac.List
	if nonVoid {
		code = tac.Concat(code, tac.One(tac.Inst(tac.PUSH)))
	}

	argAddrs := make([]string, len(call.Args))
	for i, arg := range call.Args {
		argType, _ := g.dec.Type(arg)
		paramType := g.cat.FuncParam(fnType, i)

		v := g.generateExpr(arg)

		if g.cat.IsArray(paramType) {
			v = g.materialize(CodeAttribs{Addr: v.Addr, Code: v.Code})
			if !g.byRefNames[v.Addr] && g.isLocalArrayName(v.Addr) {
				t := g.counters.NewTemp()
				v.Code = tac.Concat(v.Code, tac.One(tac.Inst(tac.ALOAD, t, v.Addr)))
				v.Addr = t
			}
		} else {
			v = g.materialize(v)
			v = g.coerceTo(v, argType, paramType)
		}

		code = tac.Concat(code, v.Code, tac.One(tac.Inst(tac.PUSH, v.Addr)))
		argAddrs[i] = v.Addr
	}

	code = tac.Concat(code, tac.One(tac.Inst(tac.CALL, call.Callee.Name)))
	for range call.Args {
		code = tac.Concat(code, tac.One(tac.Inst(tac.POP)))
	}

	if !nonVoid {
		return CodeAttribs{Code: code}
	}
	t := g.counters.NewTemp()
	code = tac.Concat(code, tac.One(tac.Inst(tac.POP, t)))
	return CodeAttribs{Addr: t, Code: code}
}

func (g *Generator) isLocalArrayName(name string) bool {
	return g.tab.IsLocal(name)
}
