// Package token defines the lexical token kinds produced by pkg/lexer.
package token

// Kind identifies the lexical category of a Token.
type Kind int

const (
	EOF Kind = iota

	Ident
	IntVal
	FloatVal
	CharVal
	BoolVal
	StringVal

	Func
	EndFunc
	Var
	Array
	Of
	If
	Then
	Else
	EndIf
	While
	Do
	EndWhile
	Read
	Write
	Return
	And
	Or
	Not

	IntType
	FloatType
	BoolType
	CharType

	Assign
	Equal
	Diff
	LT
	LE
	GT
	GE
	Plus
	Minus
	Mul
	Div
	Mod

	LParen
	RParen
	LBracket
	RBracket
	Colon
	Comma
	Semi
)

var keywords = map[string]Kind{
	"func":     Func,
	"endfunc":  EndFunc,
	"var":      Var,
	"array":    Array,
	"of":       Of,
	"if":       If,
	"then":     Then,
	"else":     Else,
	"endif":    EndIf,
	"while":    While,
	"do":       Do,
	"endwhile": EndWhile,
	"read":     Read,
	"write":    Write,
	"return":   Return,
	"and":      And,
	"or":       Or,
	"not":      Not,
	"int":      IntType,
	"float":    FloatType,
	"bool":     BoolType,
	"char":     CharType,
	"true":     BoolVal,
	"false":    BoolVal,
}

// Lookup returns the keyword Kind for text, or (Ident, false) when text is
// an ordinary identifier.
func Lookup(text string) (Kind, bool) {
	if k, ok := keywords[text]; ok {
		return k, true
	}
	return Ident, false
}

// Token is one lexical unit together with its source position.
type Token struct {
	Kind Kind
	Text string
	Line int
	Col  int
}
