package check

import (
	"bytes"
	"strings"
	"testing"

	"github.com/usoler/asl/pkg/ast"
	"github.com/usoler/asl/pkg/decoration"
	"github.com/usoler/asl/pkg/diag"
	"github.com/usoler/asl/pkg/parser"
	"github.com/usoler/asl/pkg/symtab"
	"github.com/usoler/asl/pkg/types"
)

type checked struct {
	cat  *types.Catalog
	tab  *symtab.Table
	dec  *decoration.Map
	sink *diag.Sink
	out  string
	tree *ast.Program
}

func runChecks(t *testing.T, src string) checked {
	t.Helper()
	tree, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	cat := types.NewCatalog()
	tab := symtab.NewTable()
	dec := decoration.New()
	sink := diag.NewSink()

	NewSymbolPass(cat, tab, dec, sink).Run(tree)

	var buf bytes.Buffer
	NewTypePass(cat, tab, dec, sink).Run(tree, &buf)

	return checked{cat: cat, tab: tab, dec: dec, sink: sink, out: buf.String(), tree: tree}
}

func TestNoDiagnosticsOnWellTypedProgram(t *testing.T) {
	c := runChecks(t, `func main() var x:int; x = 2+3; write x; endfunc`)
	if c.sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", c.out)
	}
}

func TestIncompatibleAssignmentSurfacesOnce(t *testing.T) {
	c := runChecks(t, `func main() var b:bool; b = 1+2; endfunc`)
	recs := c.sink.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(recs), recs)
	}
	if recs[0].Kind != diag.IncompatibleAssignment {
		t.Errorf("got kind %v, want IncompatibleAssignment", recs[0].Kind)
	}
}

func TestUndeclaredIdentifier(t *testing.T) {
	c := runChecks(t, `func main() write y; endfunc`)
	if !strings.Contains(c.out, "undeclared identifier 'y'") {
		t.Errorf("missing diagnostic: %q", c.out)
	}
}

func TestNoMainProperlyDeclared(t *testing.T) {
	c := runChecks(t, `func foo() endfunc`)
	recs := c.sink.Records()
	if len(recs) != 1 || recs[0].Kind != diag.NoMainProperlyDeclared {
		t.Fatalf("got %v, want exactly one NoMainProperlyDeclared", recs)
	}
}

func TestDuplicateDeclarationInSameScope(t *testing.T) {
	c := runChecks(t, `func main() var x:int; var x:float; endfunc`)
	found := false
	for _, r := range c.sink.Records() {
		if r.Kind == diag.DuplicateDeclaration {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a duplicate declaration diagnostic: %s", c.out)
	}
}

func TestBooleanRequiredForIfCondition(t *testing.T) {
	c := runChecks(t, `func main() if 1 then write 1; endif endfunc`)
	recs := c.sink.Records()
	if len(recs) != 1 || recs[0].Kind != diag.BooleanRequired {
		t.Fatalf("got %v, want exactly one BooleanRequired", recs)
	}
}

func TestArrayAccessTypingAndLValue(t *testing.T) {
	c := runChecks(t, `func sum(a: array[3] of int): int
var s,i:int;
s=0; i=0;
while i<3 do s=s+a[i]; i=i+1; endwhile;
return s;
endfunc`)
	if c.sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", c.out)
	}
	whileStmt := c.tree.Functions[0].Body.List[2].(*ast.WhileStmt)
	assign := whileStmt.Body.List[0].(*ast.AssignStmt)
	arith := assign.Right.(*ast.Arithmetic)
	access := arith.Right.(*ast.ArrayAccess)
	typ, ok := c.dec.Type(access)
	if !ok || typ != c.cat.Integer() {
		t.Errorf("a[i] should decorate to Integer")
	}
	lv, ok := c.dec.LValue(access)
	if !ok || !lv {
		t.Errorf("a[i] should decorate as an l-value")
	}
}

func TestWrongNumberOfParameters(t *testing.T) {
	c := runChecks(t, `func f(x:int) endfunc
func main() f(1,2); endfunc`)
	found := false
	for _, r := range c.sink.Records() {
		if r.Kind == diag.WrongNumberOfParameters {
			found = true
		}
	}
	if !found {
		t.Errorf("expected WrongNumberOfParameters: %s", c.out)
	}
}

func TestVoidFunctionNotUsableAsValue(t *testing.T) {
	c := runChecks(t, `func f() endfunc
func main() var x:int; x = f(); endfunc`)
	found := false
	for _, r := range c.sink.Records() {
		if r.Kind == diag.NotAFunction {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NotAFunction: %s", c.out)
	}
}

func TestNotCallable(t *testing.T) {
	c := runChecks(t, `func main() var x:int; x = 0; x(); endfunc`)
	found := false
	for _, r := range c.sink.Records() {
		if r.Kind == diag.NotCallable {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NotCallable: %s", c.out)
	}
}

func TestIncompatibleReturnDirectionIsDeclaredThenValue(t *testing.T) {
	// float declared, int returned is fine (Copyable(Float, Integer));
	// int declared, float returned must fail.
	c1 := runChecks(t, `func f(): float return 1; endfunc
func main() endfunc`)
	if c1.sink.HasErrors() {
		t.Errorf("Float <- Integer return should be fine: %s", c1.out)
	}

	c2 := runChecks(t, `func f(): int return 1.5; endfunc
func main() endfunc`)
	found := false
	for _, r := range c2.sink.Records() {
		if r.Kind == diag.IncompatibleReturn {
			found = true
		}
	}
	if !found {
		t.Errorf("Integer <- Float return should fail: %s", c2.out)
	}
}
