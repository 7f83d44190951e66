// Package diag is the compiler's diagnostics sink: semantic errors are
// accumulated as typed records during the type pass, then sorted by source
// position and printed once, rather than aborting the walk at the first
// error the way the teacher's util.Error does with os.Exit(1). The core
// specification requires every diagnostic kind to be recoverable so that a
// single source file can report every problem it has in one run.
package diag

import (
	"fmt"
	"io"
	"sort"
)

// Kind enumerates the sixteen semantic diagnostic kinds the core produces.
type Kind int

const (
	DuplicateDeclaration Kind = iota
	UndeclaredIdentifier
	IncompatibleAssignment
	NonReferenceableLeft
	BooleanRequired
	ReadWriteRequiresBasic
	NonReferenceableReadTarget
	IncompatibleReturn
	NoMainProperlyDeclared
	NotCallable
	NotAFunction
	WrongNumberOfParameters
	IncompatibleParameter
	NonArrayInArrayAccess
	NonIntegerIndex
	IncompatibleOperator
)

var messages = map[Kind]string{
	DuplicateDeclaration:       "duplicate declaration of '%s'",
	UndeclaredIdentifier:       "undeclared identifier '%s'",
	IncompatibleAssignment:     "incompatible assignment: cannot assign %s to %s",
	NonReferenceableLeft:       "left-hand side of assignment is not referenceable",
	BooleanRequired:            "condition must be boolean, found %s",
	ReadWriteRequiresBasic:     "'%s' requires a basic type, found %s",
	NonReferenceableReadTarget: "read target is not referenceable",
	IncompatibleReturn:         "incompatible return: cannot return %s from a function declared to return %s",
	NoMainProperlyDeclared:     "no main properly declared",
	NotCallable:                "'%s' is not callable",
	NotAFunction:               "'%s' returns void and cannot be used as a value",
	WrongNumberOfParameters:    "wrong number of parameters in call to '%s': expected %d, found %d",
	IncompatibleParameter:      "incompatible argument %d in call to '%s': cannot pass %s where %s is expected",
	NonArrayInArrayAccess:      "'%s' is not an array",
	NonIntegerIndex:            "array index must be int, found %s",
	IncompatibleOperator:       "operator '%s' is not defined for %s",
}

// Record is one accumulated diagnostic.
type Record struct {
	Kind Kind
	Line int
	Col  int
	Args []any
}

func (r Record) String() string {
	format, ok := messages[r.Kind]
	if !ok {
		format = "unknown diagnostic"
	}
	return fmt.Sprintf(format, r.Args...)
}

// Sink accumulates records; it is write-only from the passes and flushed
// exactly once, at the end of the type pass.
type Sink struct {
	records []Record
	Color   bool // enable ANSI coloring when printing, set by the CLI driver
}

func NewSink() *Sink { return &Sink{} }

// Report records one diagnostic at line, col.
func (s *Sink) Report(kind Kind, line, col int, args ...any) {
	s.records = append(s.records, Record{Kind: kind, Line: line, Col: col, Args: args})
}

// HasErrors reports whether any diagnostic was recorded.
func (s *Sink) HasErrors() bool { return len(s.records) > 0 }

// Records returns the accumulated diagnostics sorted by (line, column). The
// sink itself is not cleared.
func (s *Sink) Records() []Record {
	sorted := append([]Record(nil), s.records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line < sorted[j].Line
		}
		return sorted[i].Col < sorted[j].Col
	})
	return sorted
}

// Flush prints every accumulated diagnostic, sorted by position, to w.
func (s *Sink) Flush(w io.Writer) {
	for _, r := range s.Records() {
		if s.Color {
			fmt.Fprintf(w, "%d:%d: \033[31merror:\033[0m %s\n", r.Line, r.Col, r.String())
		} else {
			fmt.Fprintf(w, "%d:%d: error: %s\n", r.Line, r.Col, r.String())
		}
	}
}
