// Package parser builds pkg/ast trees from a pkg/token stream by recursive
// descent. The core spec treats parsing as an external concern; this
// package exists so the repository is runnable end to end and so tests can
// build trees from Asl source text instead of by hand.
package parser

import (
	"fmt"

	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/lexer"
	"github.com/usoler/asl/pkg/token"
)

type Parser struct {
	toks []token.Token
	pos  int
}

// Parse lexes and parses a full Asl program.
func Parse(source string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses a full Asl program from an already-lexed token
// stream, letting callers (such as the CLI driver's verbose mode) observe
// the tokenize and parse stages separately.
func ParseTokens(toks []token.Token) (*ast.Program, error) {
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, error) {
	if !p.at(k) {
		t := p.cur()
		return token.Token{}, fmt.Errorf("%d:%d: expected %s, found %q", t.Line, t.Col, what, t.Text)
	}
	return p.advance(), nil
}

func pos(t token.Token) ast.Position { return ast.Position{Line: t.Line, Col: t.Col} }

func base(t token.Token) ast.Base { return ast.NewBase(t.Line, t.Col) }

func (p *Parser) parseProgram() (*ast.Program, error) {
	start := p.cur()
	prog := &ast.Program{Base: base(start)}
	for !p.at(token.EOF) {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	start, err := p.expect(token.Func, "'func'")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident, "function name")
	if err != nil {
		return nil, err
	}
	fn := &ast.Function{Base: base(start), Name: nameTok.Text, NameTok: pos(nameTok)}

	if _, err := p.expect(token.LParen, "'('"); err != nil {
		return nil, err
	}
	for !p.at(token.RParen) {
		param, err := p.parseParameter()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen, "')'"); err != nil {
		return nil, err
	}

	if p.at(token.Colon) {
		p.advance()
		bt, err := p.parseBasicType()
		if err != nil {
			return nil, err
		}
		fn.ReturnType = bt
	}

	for p.at(token.Var) {
		decl, err := p.parseVariableDecl()
		if err != nil {
			return nil, err
		}
		fn.Decls = append(fn.Decls, decl)
	}

	body, err := p.parseStatements(token.EndFunc)
	if err != nil {
		return nil, err
	}
	fn.Body = body

	if _, err := p.expect(token.EndFunc, "'endfunc'"); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseParameter() (*ast.Parameter, error) {
	nameTok, err := p.expect(token.Ident, "parameter name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon, "':'"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &ast.Parameter{Base: base(nameTok), Name: nameTok.Text, Type: typ}, nil
}

// parseVariableDecl parses one `var` statement: one or more comma-
// separated groups, each a name list followed by `: type`, the whole
// statement terminated by `;`.
func (p *Parser) parseVariableDecl() (*ast.VariableDecl, error) {
	start, err := p.expect(token.Var, "'var'")
	if err != nil {
		return nil, err
	}
	decl := &ast.VariableDecl{Base: base(start)}
	for {
		group, err := p.parseDeclGroup()
		if err != nil {
			return nil, err
		}
		decl.Groups = append(decl.Groups, group)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseDeclGroup() (ast.DeclGroup, error) {
	var group ast.DeclGroup
	for {
		nameTok, err := p.expect(token.Ident, "variable name")
		if err != nil {
			return group, err
		}
		group.Names = append(group.Names, nameTok.Text)
		group.NamePos = append(group.NamePos, pos(nameTok))
		if p.at(token.Colon) {
			break
		}
		if _, err := p.expect(token.Comma, "',' or ':'"); err != nil {
			return group, err
		}
	}
	p.advance() // ':'
	typ, err := p.parseType()
	if err != nil {
		return group, err
	}
	group.Type = typ
	return group, nil
}

func (p *Parser) parseType() (ast.TypeNode, error) {
	if p.at(token.Array) {
		start := p.advance()
		if _, err := p.expect(token.LBracket, "'['"); err != nil {
			return nil, err
		}
		sizeTok, err := p.expect(token.IntVal, "array size")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket, "']'"); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Of, "'of'"); err != nil {
			return nil, err
		}
		elem, err := p.parseBasicType()
		if err != nil {
			return nil, err
		}
		size := 0
		for _, c := range sizeTok.Text {
			size = size*10 + int(c-'0')
		}
		return &ast.ArrayType{Base: base(start), Size: size, Elem: elem}, nil
	}
	return p.parseBasicType()
}

func (p *Parser) parseBasicType() (*ast.BasicType, error) {
	t := p.cur()
	var kind ast.BasicKind
	switch t.Kind {
	case token.IntType:
		kind = ast.KInt
	case token.FloatType:
		kind = ast.KFloat
	case token.BoolType:
		kind = ast.KBool
	case token.CharType:
		kind = ast.KChar
	default:
		return nil, fmt.Errorf("%d:%d: expected a basic type, found %q", t.Line, t.Col, t.Text)
	}
	p.advance()
	return &ast.BasicType{Base: base(t), Kind: kind}, nil
}

// parseStatements parses statements until it sees `stop` (without
// consuming it) — used both for function bodies and if/while blocks, which
// use different terminator keywords.
func (p *Parser) parseStatements(stop token.Kind) (*ast.Statements, error) {
	start := p.cur()
	block := &ast.Statements{Base: base(start)}
	for !p.at(stop) && !p.at(token.Else) && !p.at(token.EndIf) && !p.at(token.EndWhile) {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.List = append(block.List, st)
	}
	return block, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Read:
		return p.parseRead()
	case token.Write:
		return p.parseWrite()
	case token.Return:
		return p.parseReturn()
	case token.Ident:
		return p.parseIdentStatement()
	}
	t := p.cur()
	return nil, fmt.Errorf("%d:%d: unexpected token %q in statement", t.Line, t.Col, t.Text)
}

func (p *Parser) parseIf() (ast.Statement, error) {
	start := p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Then, "'then'"); err != nil {
		return nil, err
	}
	then, err := p.parseStatements(token.EndIf)
	if err != nil {
		return nil, err
	}
	st := &ast.IfStmt{Base: base(start), Cond: cond, Then: then}
	if p.at(token.Else) {
		p.advance()
		els, err := p.parseStatements(token.EndIf)
		if err != nil {
			return nil, err
		}
		st.Else = els
	}
	if _, err := p.expect(token.EndIf, "'endif'"); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	start := p.advance() // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Do, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.parseStatements(token.EndWhile)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.EndWhile, "'endwhile'"); err != nil {
		return nil, err
	}
	if p.at(token.Semi) {
		p.advance() // optional ';' after 'endwhile'
	}
	return &ast.WhileStmt{Base: base(start), Cond: cond, Body: body}, nil
}

func (p *Parser) parseRead() (ast.Statement, error) {
	start := p.advance() // 'read'
	left, err := p.parseLeftExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ReadStmt{Base: base(start), Left: left}, nil
}

func (p *Parser) parseWrite() (ast.Statement, error) {
	start := p.advance() // 'write'
	if p.at(token.StringVal) {
		str := p.advance()
		if _, err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
		return &ast.WriteStringStmt{Base: base(start), Literal: str.Text}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.WriteExprStmt{Base: base(start), Value: expr}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	start := p.advance() // 'return'
	st := &ast.ReturnStmt{Base: base(start), RetPos: pos(start)}
	if !p.at(token.Semi) {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		st.Value = expr
	}
	if _, err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	return st, nil
}

// parseIdentStatement disambiguates assignment from a procedure call, both
// of which start with an identifier.
func (p *Parser) parseIdentStatement() (ast.Statement, error) {
	identTok := p.cur()
	if p.toks[p.pos+1].Kind == token.LParen {
		call, err := p.parseFunctionCall()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi, "';'"); err != nil {
			return nil, err
		}
		return &ast.ProcCallStmt{Base: base(identTok), Call: call}, nil
	}
	left, err := p.parseLeftExpr()
	if err != nil {
		return nil, err
	}
	assignTok, err := p.expect(token.Assign, "'='")
	if err != nil {
		return nil, err
	}
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Base: base(identTok), Left: left, AssignPos: pos(assignTok), Right: right}, nil
}

func (p *Parser) parseLeftExpr() (ast.LeftExpr, error) {
	identTok, err := p.expect(token.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	ident := &ast.Ident{Base: base(identTok), Name: identTok.Text}
	if p.at(token.LBracket) {
		p.advance()
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket, "']'"); err != nil {
			return nil, err
		}
		arr := &ast.Array{Base: base(identTok), Ident: ident, Index: idx}
		return &ast.LeftArrayAccess{Base: base(identTok), Array: arr}, nil
	}
	return &ast.LeftExprIdent{Base: base(identTok), Ident: ident}, nil
}

func (p *Parser) parseFunctionCall() (*ast.FunctionCall, error) {
	identTok, err := p.expect(token.Ident, "function name")
	if err != nil {
		return nil, err
	}
	call := &ast.FunctionCall{Base: base(identTok), Callee: &ast.Ident{Base: base(identTok), Name: identTok.Text}}
	if _, err := p.expect(token.LParen, "'('"); err != nil {
		return nil, err
	}
	for !p.at(token.RParen) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen, "')'"); err != nil {
		return nil, err
	}
	return call, nil
}

// Expression grammar, lowest to highest precedence:
//   or  <  and  <  relational  <  additive(+,-)  <  multiplicative(*,/,%)  <  unary  <  primary

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.Or) {
		opTok := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Base: base(opTok), Op: ast.LogicalOr, OpPos: pos(opTok), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.at(token.And) {
		opTok := p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Base: base(opTok), Op: ast.LogicalAnd, OpPos: pos(opTok), Left: left, Right: right}
	}
	return left, nil
}

var relOps = map[token.Kind]ast.RelOp{
	token.Equal: ast.RelEq,
	token.Diff:  ast.RelDiff,
	token.LT:    ast.RelLT,
	token.LE:    ast.RelLE,
	token.GT:    ast.RelGT,
	token.GE:    ast.RelGE,
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := relOps[p.cur().Kind]; ok {
		opTok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Relational{Base: base(opTok), Op: op, OpPos: pos(opTok), Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		opTok := p.advance()
		op := ast.ArithAdd
		if opTok.Kind == token.Minus {
			op = ast.ArithSub
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{Base: base(opTok), Op: op, OpPos: pos(opTok), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.Mul) || p.at(token.Div) || p.at(token.Mod) {
		opTok := p.advance()
		var op ast.ArithOp
		switch opTok.Kind {
		case token.Mul:
			op = ast.ArithMul
		case token.Div:
			op = ast.ArithDiv
		case token.Mod:
			op = ast.ArithMod
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{Base: base(opTok), Op: op, OpPos: pos(opTok), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur().Kind {
	case token.Not:
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: base(opTok), Op: ast.UnaryNot, OpPos: pos(opTok), Operand: operand}, nil
	case token.Plus:
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: base(opTok), Op: ast.UnaryPlus, OpPos: pos(opTok), Operand: operand}, nil
	case token.Minus:
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: base(opTok), Op: ast.UnaryMinus, OpPos: pos(opTok), Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.IntVal:
		p.advance()
		return &ast.Literal{Base: base(t), Kind: ast.LitInt, Text: t.Text}, nil
	case token.FloatVal:
		p.advance()
		return &ast.Literal{Base: base(t), Kind: ast.LitFloat, Text: t.Text}, nil
	case token.BoolVal:
		p.advance()
		return &ast.Literal{Base: base(t), Kind: ast.LitBool, Text: t.Text}, nil
	case token.CharVal:
		p.advance()
		return &ast.Literal{Base: base(t), Kind: ast.LitChar, Text: t.Text}, nil
	case token.LParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.Parenthesis{Base: base(t), Inner: inner}, nil
	case token.Ident:
		if p.toks[p.pos+1].Kind == token.LParen {
			call, err := p.parseFunctionCall()
			if err != nil {
				return nil, err
			}
			return &ast.ExprFunc{Base: base(t), Call: call}, nil
		}
		p.advance()
		ident := &ast.Ident{Base: base(t), Name: t.Text}
		if p.at(token.LBracket) {
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket, "']'"); err != nil {
				return nil, err
			}
			arr := &ast.Array{Base: base(t), Ident: ident, Index: idx}
			return &ast.ArrayAccess{Base: base(t), Array: arr}, nil
		}
		return &ast.ExprIdent{Base: base(t), Ident: ident}, nil
	}
	return nil, fmt.Errorf("%d:%d: unexpected token %q in expression", t.Line, t.Col, t.Text)
}
