package compiler

import (
	"bytes"
	"strings"
	"testing"
)

func mustCompile(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Compile(src, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return res
}

// Scenario 1: hello integer.
func TestHelloInteger(t *testing.T) {
	res := mustCompile(t, `func main() var x:int; x = 2+3; write x; endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	if !strings.Contains(out, "WRITEI") {
		t.Errorf("expected a WRITEI instruction: %s", out)
	}
	if !strings.Contains(out, "ADD") {
		t.Errorf("expected an integer ADD instruction: %s", out)
	}
	if strings.HasSuffix(strings.TrimRight(out, "\n"), "RETURN") == false {
		t.Errorf("subroutine should end with RETURN: %s", out)
	}
}

// Scenario 2: float coercion on i+0.5 inserts FLOAT then FADD.
func TestFloatCoercion(t *testing.T) {
	res := mustCompile(t, `func main() var f:float, i:int; i=3; f=i+0.5; write f; endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	floatIdx := strings.Index(out, "FLOAT ")
	faddIdx := strings.Index(out, "FADD ")
	if floatIdx == -1 || faddIdx == -1 {
		t.Fatalf("expected FLOAT then FADD in output: %s", out)
	}
	if floatIdx > faddIdx {
		t.Errorf("FLOAT should precede FADD: %s", out)
	}
	if !strings.Contains(out, "WRITEF") {
		t.Errorf("expected WRITEF: %s", out)
	}
}

// Scenario 3: array sum via a by-reference parameter uses LOAD then LOADX.
func TestArraySumByReferenceParameter(t *testing.T) {
	res := mustCompile(t, `func sum(a: array[3] of int): int
var s,i:int;
s=0; i=0;
while i<3 do s=s+a[i]; i=i+1; endwhile;
return s;
endfunc
func main()
var v: array[3] of int, total:int;
total = sum(v);
write total;
endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	if !strings.Contains(out, "param a: int byref") {
		t.Errorf("expected a's header to carry the by-reference marker: %s", out)
	}
	var loadIdx, loadxIdx = -1, -1
	for i, line := range strings.Split(out, "\n") {
		if loadIdx == -1 && strings.Contains(line, "LOAD ") && strings.HasSuffix(strings.TrimSpace(line), ", a") {
			loadIdx = i
		}
		if loadxIdx == -1 && strings.Contains(line, "LOADX") {
			loadxIdx = i
		}
	}
	if loadIdx == -1 || loadxIdx == -1 || loadIdx > loadxIdx {
		t.Errorf("expected a LOAD of the parameter base before any LOADX: %s", out)
	}
	if !strings.Contains(out, "ALOAD") {
		t.Errorf("expected ALOAD to take v's address for the call: %s", out)
	}
}

// Scenario 4: exactly one incompatible-assignment diagnostic, no cascade.
func TestTypeErrorSurfacesOnce(t *testing.T) {
	res := mustCompile(t, `func main() var b:bool; b = 1+2; endfunc`)
	if res.OK {
		t.Fatal("expected diagnostics")
	}
	if strings.Count(res.Diagnostics, "incompatible assignment") != 1 {
		t.Errorf("expected exactly one incompatible assignment diagnostic: %s", res.Diagnostics)
	}
}

// Scenario 5: paired if/else labels count up per function.
func TestIfElseLabelNumbering(t *testing.T) {
	res := mustCompile(t, `func main()
var b:bool;
b = true;
if b then write 1; else write 2; endif
if b then write 3; else write 4; endif
endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	for _, want := range []string{"else0:", "endif0:", "else1:", "endif1:"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing label %q in: %s", want, out)
		}
	}
}

// Scenario 6: no main yields exactly one diagnostic and no emitted code.
func TestNoMainEmitsNoCode(t *testing.T) {
	res := mustCompile(t, `func foo() endfunc`)
	if res.OK {
		t.Fatal("expected a diagnostic")
	}
	if res.Program != nil {
		t.Error("no code should be emitted when there is a diagnostic")
	}
	if strings.Count(res.Diagnostics, "no main properly declared") != 1 {
		t.Errorf("expected exactly one no-main diagnostic: %s", res.Diagnostics)
	}
}

func TestModuloLoweredWithoutDedicatedOpcode(t *testing.T) {
	res := mustCompile(t, `func main() var x:int; x = 7 % 2; endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	if strings.Contains(out, "MOD") {
		t.Errorf("there is no MOD opcode in the instruction set: %s", out)
	}
	if !strings.Contains(out, "DIV") || !strings.Contains(out, "MUL") || !strings.Contains(out, "SUB") {
		t.Errorf("expected the three-instruction DIV/MUL/SUB sequence for %%: %s", out)
	}
}

func TestNotEqualLoweredAsEqThenNot(t *testing.T) {
	res := mustCompile(t, `func main() var b:bool; b = 1 != 2; endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	eqIdx := strings.Index(out, "EQ ")
	notIdx := strings.Index(out, "NOT ")
	if eqIdx == -1 || notIdx == -1 || eqIdx > notIdx {
		t.Errorf("expected EQ followed by NOT for !=: %s", out)
	}
}

func TestLogicalOperatorsAreNotShortCircuit(t *testing.T) {
	res := mustCompile(t, `func main() var b:bool; b = true and false; endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	if !strings.Contains(out, "AND") {
		t.Errorf("expected an AND opcode (no short-circuit branching): %s", out)
	}
	if strings.Contains(out, "FJUMP") {
		t.Errorf("logical and/or must not introduce branches: %s", out)
	}
}

func TestVerboseOptionPrintsOneLinePerStage(t *testing.T) {
	var buf bytes.Buffer
	res, err := Compile(`func main() endfunc`, Options{Verbose: &buf})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := buf.String()
	for _, want := range []string{
		"Tokenizing source",
		"Parsing tokens into AST",
		"Running symbol pass",
		"Running type pass",
		"Generating code",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing stage banner %q in: %s", want, out)
		}
	}
	if strings.Count(out, "\n") != 5 {
		t.Errorf("expected exactly one line per stage, got: %q", out)
	}
}

func TestWholeArrayCopyEmitsTransferLoop(t *testing.T) {
	res := mustCompile(t, `func main()
var a: array[3] of int, b: array[3] of int;
a = b;
endfunc`)
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	out := res.Program.Render()
	if strings.Count(out, "LOADX") != 3 || strings.Count(out, "XLOAD") != 3 {
		t.Errorf("expected a 3-element transfer loop: %s", out)
	}
}
