// Package errs centralizes the compiler's error taxonomy (spec.md §7):
// semantic errors accumulate into a list and never abort a walk in
// progress; internal-consistency errors are fatal and carry a stack
// trace (github.com/pkg/errors); the driver prints only their message.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the semantic-error subcategories the analyzer and
// code generator raise. Lexical/syntactic errors are produced by the
// (out of scope) parser and never appear here; runtime errors are
// reported by the C runtime at execution time and also never appear
// here.
type Kind int

const (
	// KindConstViolation: modifying a const list, or writing through
	// HD/TL of a const list.
	KindConstViolation Kind = iota
	// KindHeterogeneousInitializer: a vector initializer whose elements
	// do not share a common type.
	KindHeterogeneousInitializer
	// KindBadIntrinsicUse: e.g. SETTYPE called on a non-list operand.
	KindBadIntrinsicUse
	// KindTypeMismatch: an assignment or operation coerced across
	// int/float in a way the analyzer flags.
	KindTypeMismatch
	// KindUnresolvedGoto: a GOTO whose target label is never defined in
	// the enclosing function.
	KindUnresolvedGoto
	// KindManifestCycle: a manifest constant whose definition depends on
	// itself, directly or transitively. Not named in spec.md's
	// taxonomy; added per SPEC_FULL.md §3 to upgrade undefined behavior
	// on a manifest cycle into a reported error.
	KindManifestCycle
)

func (k Kind) String() string {
	switch k {
	case KindConstViolation:
		return "const-violation"
	case KindHeterogeneousInitializer:
		return "heterogeneous-initializer"
	case KindBadIntrinsicUse:
		return "bad-intrinsic-use"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindUnresolvedGoto:
		return "unresolved-goto"
	case KindManifestCycle:
		return "manifest-cycle"
	default:
		return "unknown"
	}
}

// SemanticError is a single diagnostic collected by the analyzer. It
// never aborts the walk that produced it; callers decide, after
// analysis finishes, whether to continue to code generation.
type SemanticError struct {
	Kind    Kind
	Message string
	// Function is the name of the enclosing function/routine, empty at
	// top level.
	Function string
}

func (e SemanticError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: in %s: %s", e.Kind, e.Function, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// List accumulates SemanticErrors across an entire analysis run.
type List struct {
	errors []SemanticError
}

// Add appends a semantic error to the list.
func (l *List) Add(kind Kind, function, format string, args ...any) {
	l.errors = append(l.errors, SemanticError{
		Kind:     kind,
		Function: function,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errors returns the accumulated errors, in the order they were added.
func (l *List) Errors() []SemanticError { return l.errors }

// HasErrors reports whether any semantic error was collected.
func (l *List) HasErrors() bool { return len(l.errors) > 0 }

// Fatal constructs an internal-consistency error: these are never
// accumulated, they abort the compilation immediately with a
// descriptive, stack-trace-carrying error. Examples from spec.md §7:
// mismatched prologue/epilogue sequence lengths, a stack-offset request
// before the frame is laid out, scratch-register exhaustion with no
// spill candidate, an undefined label at link time, a PC-relative
// branch out of range.
func Fatal(format string, args ...any) error {
	return errors.Errorf(format, args...)
}

// Wrap attaches additional context to an existing fatal error without
// discarding its stack trace.
func Wrap(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
