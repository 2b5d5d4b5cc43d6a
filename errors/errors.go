package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/script-aot/diag"
)

// Phase indicates which pass produced the error
type Phase string

const (
	PhaseDecode    Phase = "decode"    // bytecode decoding
	PhaseBlocks    Phase = "blocks"    // basic block construction
	PhasePropagate Phase = "propagate" // type propagation
	PhaseOptimize  Phase = "optimize"  // dead store elimination, narrowing
	PhaseConfig    Phase = "config"    // options loading
)

// Kind categorizes the error
type Kind string

const (
	KindStructural        Kind = "structural"
	KindInvalidBytecode   Kind = "invalid_bytecode"
	KindUnresolvedName    Kind = "unresolved_name"
	KindUnresolvedMember  Kind = "unresolved_member"
	KindArity             Kind = "arity"
	KindConversion        Kind = "conversion"
	KindAmbiguousOverload Kind = "ambiguous_overload"
	KindReadOnly          Kind = "read_only"
	KindUnsupported       Kind = "unsupported"
	KindAssertion         Kind = "assertion"
	KindInvalidInput      Kind = "invalid_input"
)

// Class is the coarse taxonomy callers branch on.
type Class uint8

const (
	// ClassStructural: the block graph violates an invariant. Analysis
	// results are available for diagnostics but must not be used for
	// code generation.
	ClassStructural Class = iota
	// ClassType: a type judgment failed; the function falls back to the
	// interpreter.
	ClassType
	// ClassAssertion: an internal inconsistency, a compiler defect.
	ClassAssertion
)

func (c Class) String() string {
	switch c {
	case ClassStructural:
		return "structural"
	case ClassType:
		return "type"
	case ClassAssertion:
		return "assertion"
	}
	return "unknown"
}

// Error is the structured error type used throughout the pipeline
type Error struct {
	Cause    error
	Fix      *diag.FixSuggestion
	Phase    Phase
	Kind     Kind
	Function string
	Detail   string
	Location diag.Location
	Offset   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Class maps the kind onto the structural / type / assertion taxonomy
func (e *Error) Class() Class {
	switch e.Kind {
	case KindStructural, KindInvalidBytecode:
		return ClassStructural
	case KindAssertion:
		return ClassAssertion
	}
	return ClassType
}

// Diagnostic converts the error into an error-severity diagnostic
func (e *Error) Diagnostic() diag.Diagnostic {
	cat := diag.CategoryType
	if e.Class() == ClassStructural {
		cat = diag.CategoryStructure
	} else if e.Class() == ClassAssertion {
		cat = diag.CategoryCompiler
	}
	msg := e.Detail
	if msg == "" {
		msg = string(e.Kind)
	}
	return diag.Diagnostic{
		Message:  msg,
		Severity: diag.SeverityError,
		Category: cat,
		Function: e.Function,
		Location: e.Location,
		Fix:      e.Fix,
	}
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Function sets the name of the function being compiled
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// At sets the instruction offset and its source location
func (b *Builder) At(offset int, loc diag.Location) *Builder {
	b.err.Offset = offset
	b.err.Location = loc
	return b
}

// Fix attaches a fix suggestion
func (b *Builder) Fix(fix *diag.FixSuggestion) *Builder {
	b.err.Fix = fix
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Structural creates a block graph invariant violation
func Structural(detail string, args ...any) *Error {
	return New(PhaseBlocks, KindStructural).Detail(detail, args...).Build()
}

// InvalidBytecode wraps a decode failure
func InvalidBytecode(cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidBytecode,
		Detail: "cannot decode function body",
		Cause:  cause,
		Offset: -1,
	}
}

// Assertion creates an internal consistency error
func Assertion(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindAssertion).Detail(detail, args...).Build()
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
		Offset: -1,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
		Offset: -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Offset: -1,
	}
}

// ClassOf returns the class of err if it is an *Error
func ClassOf(err error) (Class, bool) {
	var e *Error
	if !stderrors.As(err, &e) {
		return 0, false
	}
	return e.Class(), true
}

// IsStructural reports whether err is a structural error
func IsStructural(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassStructural
}

// IsTypeError reports whether err is a type error
func IsTypeError(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassType
}

// IsAssertion reports whether err is an internal assertion failure
func IsAssertion(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassAssertion
}
