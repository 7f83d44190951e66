package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestRecordsSortedByPosition(t *testing.T) {
	s := NewSink()
	s.Report(UndeclaredIdentifier, 5, 1, "z")
	s.Report(UndeclaredIdentifier, 2, 9, "y")
	s.Report(UndeclaredIdentifier, 2, 3, "x")

	recs := s.Records()
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	wantOrder := []string{"x", "y", "z"}
	for i, name := range wantOrder {
		if got := recs[i].Args[0]; got != name {
			t.Errorf("record %d: got %v, want %s", i, got, name)
		}
	}
}

func TestHasErrors(t *testing.T) {
	s := NewSink()
	if s.HasErrors() {
		t.Error("a fresh sink should report no errors")
	}
	s.Report(NoMainProperlyDeclared, 1, 1)
	if !s.HasErrors() {
		t.Error("sink should report errors after Report")
	}
}

func TestFlushPrintsEveryDiagnostic(t *testing.T) {
	s := NewSink()
	s.Report(DuplicateDeclaration, 3, 4, "x")
	s.Report(NoMainProperlyDeclared, 1, 1)

	var buf bytes.Buffer
	s.Flush(&buf)
	out := buf.String()
	if !strings.Contains(out, "duplicate declaration of 'x'") {
		t.Errorf("missing duplicate declaration message: %q", out)
	}
	if !strings.Contains(out, "no main properly declared") {
		t.Errorf("missing no-main message: %q", out)
	}
	if strings.Index(out, "1:1") > strings.Index(out, "3:4") {
		t.Errorf("diagnostics not printed in position order: %q", out)
	}
}

func TestFlushColorWrapsWithANSI(t *testing.T) {
	s := NewSink()
	s.Color = true
	s.Report(NoMainProperlyDeclared, 1, 1)
	var buf bytes.Buffer
	s.Flush(&buf)
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Error("expected an ANSI red escape when Color is enabled")
	}
}
