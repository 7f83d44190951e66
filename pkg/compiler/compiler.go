// Package compiler orchestrates the three semantic passes end to end:
// parse (via pkg/parser, the stand-in for the external parser generator),
// symbol pass, type pass, and — only if no diagnostic was produced —
// codegen.
package compiler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/check"
	"github.com/usoler/asl/pkg/codegen"
	"github.com/usoler/asl/pkg/decoration"
	"github.com/usoler/asl/pkg/diag"
	"github.com/usoler/asl/pkg/lexer"
	"github.com/usoler/asl/pkg/parser"
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/tac"
	"github.com/usoler/asl/pkg/types"
)

// Result is the outcome of compiling one source file.
type Result struct {
	Program     *tac.Program // nil if any diagnostic was produced
	Diagnostics string       // the formatted diagnostic text, empty on success
	OK          bool
}

// Options configures a single compilation.
type Options struct {
	Color bool // ANSI-color diagnostics

	// Verbose, when non-nil, receives one line per pipeline stage
	// (tokenize/parse/symbols/typecheck/codegen) as it runs, mirroring
	// the stage banners the teacher's cmd/gbc/main.go prints.
	Verbose io.Writer
}

func (o Options) announce(stage string) {
	if o.Verbose != nil {
		fmt.Fprintf(o.Verbose, "%s...\n", stage)
	}
}

// Compile runs the full pipeline over source text.
func Compile(source string, opts Options) (*Result, error) {
	opts.announce("Tokenizing source")
	toks, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}

	opts.announce("Parsing tokens into AST")
	tree, err := parser.ParseTokens(toks)
	if err != nil {
		return nil, err
	}
	return CompileTree(tree, opts), nil
}

// CompileTree runs the semantic pipeline over an already-parsed tree.
// Compile calls it after parsing; callers holding a hand-built tree can
// call it directly.
func CompileTree(tree *ast.Program, opts Options) *Result {
	cat := types.NewCatalog()
	tab := symtab.NewTable()
	dec := decoration.New()
	sink := diag.NewSink()
	sink.Color = opts.Color

	opts.announce("Running symbol pass")
	sym := check.NewSymbolPass(cat, tab, dec, sink)
	sym.Run(tree)

	opts.announce("Running type pass")
	var buf bytes.Buffer
	typ := check.NewTypePass(cat, tab, dec, sink)
	typ.Run(tree, &buf)

	if sink.HasErrors() {
		return &Result{OK: false, Diagnostics: buf.String()}
	}

	opts.announce("Generating code")
	gen := codegen.NewGenerator(cat, tab, dec)
	prog := gen.Generate(tree)
	return &Result{OK: true, Program: prog}
}
