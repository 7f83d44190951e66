package tac

import (
	"strings"
	"testing"
)

func TestInstructionStringRendering(t *testing.T) {
	cases := []struct {
		inst Instruction
		want string
	}{
		{Inst(ADD, "%T0", "a", "b"), "ADD %T0, a, b"},
		{Inst(LABEL, "else0"), "LABEL else0:"},
		{Inst(UJUMP, "endif0"), "UJUMP endif0"},
		{Inst(RETURN), "RETURN"},
		{Inst(PUSH), "PUSH"},
		{Inst(PUSH, "%T0"), "PUSH %T0"},
		{Inst(POP), "POP"},
		{Inst(POP, "%T1"), "POP %T1"},
		{Inst(CALL, "sum"), "CALL sum"},
	}
	for _, tc := range cases {
		if got := tc.inst.String(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestConcatPreservesOrderAndDoesNotMutate(t *testing.T) {
	a := One(Inst(ILOAD, "%T0", "1"))
	b := One(Inst(ILOAD, "%T1", "2"))
	combined := Concat(a, b)
	if len(combined) != 2 {
		t.Fatalf("got %d instructions, want 2", len(combined))
	}
	if len(a) != 1 || len(b) != 1 {
		t.Error("Concat should not mutate its inputs")
	}
}

func TestCountersAreMonotonicAndResettable(t *testing.T) {
	c := &Counters{}
	if c.NewTemp() != "%T0" || c.NewTemp() != "%T1" {
		t.Error("temps should be monotonic starting at temp 0")
	}

	fresh := &Counters{}
	e0, n0 := fresh.NewIfLabels()
	e1, n1 := fresh.NewIfLabels()
	if e0 != "else0" || n0 != "endif0" {
		t.Errorf("got %s/%s, want else0/endif0", e0, n0)
	}
	if e1 != "else1" || n1 != "endif1" {
		t.Errorf("got %s/%s, want else1/endif1", e1, n1)
	}

	w0, we0 := fresh.NewWhileLabels()
	if w0 != "while0" || we0 != "endwhile0" {
		t.Errorf("got %s/%s, want while0/endwhile0", w0, we0)
	}
}

func TestProgramRenderIncludesHeaderAndReturn(t *testing.T) {
	sub := &Subroutine{
		Name:   "main",
		Locals: []Local{{Name: "x", Repr: "int", Size: 1}},
		Body:   List{Inst(ILOAD, "x", "5"), Inst(RETURN)},
	}
	prog := &Program{Subroutines: []*Subroutine{sub}}
	out := prog.Render()
	if !strings.Contains(out, "main:") {
		t.Error("missing subroutine header")
	}
	if !strings.Contains(out, "local x: int size 1") {
		t.Error("missing local declaration")
	}
	if !strings.HasSuffix(strings.TrimRight(out, "\n"), "RETURN") {
		t.Error("subroutine body should end with RETURN")
	}
}

func TestByRefParamRendering(t *testing.T) {
	sub := &Subroutine{
		Name:   "sum",
		Params: []Param{{Name: "a", Repr: "int", ByRef: true}},
		Body:   List{Inst(RETURN)},
	}
	prog := &Program{Subroutines: []*Subroutine{sub}}
	out := prog.Render()
	if !strings.Contains(out, "param a: int byref") {
		t.Errorf("missing by-reference marker: %q", out)
	}
}
