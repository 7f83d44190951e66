package codegen_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/usoler/asl/pkg/compiler"
	"github.com/usoler/asl/pkg/tac"
)

func compileOK(t *testing.T, src string) string {
	t.Helper()
	res, err := compiler.Compile(src, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	return res.Program.Render()
}

func TestCallProtocolOrderForNonVoidFunction(t *testing.T) {
	out := compileOK(t, `func inc(x:int): int return x+1; endfunc
func main() var r:int; r = inc(1); endfunc`)
	pushIdx := strings.Index(out, "PUSH")
	callIdx := strings.Index(out, "CALL inc")
	popIdx := strings.LastIndex(out, "POP")
	if pushIdx == -1 || callIdx == -1 || popIdx == -1 {
		t.Fatalf("missing call protocol instructions: %s", out)
	}
	if !(pushIdx < callIdx && callIdx < popIdx) {
		t.Errorf("expected PUSH...CALL...POP order: %s", out)
	}
}

func TestVoidProcCallHasNoResultPop(t *testing.T) {
	out := compileOK(t, `func noop() endfunc
func main() noop(); endfunc`)
	// no argument pushes (zero arguments) and no result slot: neither a
	// PUSH nor a POP is emitted.
	if strings.Count(out, "PUSH") != 0 {
		t.Errorf("a zero-argument void call should not push anything: %s", out)
	}
	if strings.Count(out, "POP") != 0 {
		t.Errorf("a zero-argument void call should not pop anything: %s", out)
	}
}

func TestFunctionBodyEndsWithReturn(t *testing.T) {
	out := compileOK(t, `func main() endfunc`)
	trimmed := strings.TrimRight(out, "\n")
	if !strings.HasSuffix(trimmed, "RETURN") {
		t.Errorf("subroutine body must end with RETURN: %s", out)
	}
}

func TestReadChoosesOpcodeByType(t *testing.T) {
	out := compileOK(t, `func main() var c:char; read c; endfunc`)
	if !strings.Contains(out, "READC") {
		t.Errorf("expected READC for a char read target: %s", out)
	}
}

func TestUnaryMinusOnFloatUsesFNEG(t *testing.T) {
	out := compileOK(t, `func main() var f:float; f = -1.5; endfunc`)
	if !strings.Contains(out, "FNEG") {
		t.Errorf("expected FNEG for unary minus on a float: %s", out)
	}
}

func TestArithmeticInstructionShape(t *testing.T) {
	res, err := compiler.Compile(`func main() var r:int; r = 2+3*4; endfunc`, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.OK {
		t.Fatalf("unexpected diagnostics: %s", res.Diagnostics)
	}
	sub := res.Program.Subroutines[0]
	want := tac.List{
		tac.Inst(tac.ILOAD, "%T0", "2"),
		tac.Inst(tac.ILOAD, "%T1", "3"),
		tac.Inst(tac.ILOAD, "%T2", "4"),
		tac.Inst(tac.MUL, "%T3", "%T1", "%T2"),
		tac.Inst(tac.ADD, "%T4", "%T0", "%T3"),
		tac.Inst(tac.ILOAD, "r", "%T4"),
		tac.Inst(tac.RETURN),
	}
	if diff := cmp.Diff(want, sub.Body); diff != "" {
		t.Errorf("instruction shape mismatch (-want +got):\n%s", diff)
	}
}

func TestWhileLoopLabelsAndJumps(t *testing.T) {
	out := compileOK(t, `func main()
var i:int;
i = 0;
while i < 3 do i = i + 1; endwhile
endfunc`)
	for _, want := range []string{"while0:", "endwhile0:", "UJUMP while0", "FJUMP"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in: %s", want, out)
		}
	}
}
