package errors

import "fmt"

// EngineError is the interface implemented by every error kind the core can
// produce or propagate. A Throw error additionally satisfies Thrown below
// for callers that need the original JS value.
type EngineError interface {
	error
	Pos() Position
	Kind() string
	Message() string
}

// Thrown is implemented by error kinds that carry an arbitrary value rather
// than (or in addition to) a string message — i.e. the Throw kind, where a
// `throw someValue` statement propagated a non-Error value out of the VM.
// ThrownValue returns an opaque payload; callers in pkg/vm type-assert it
// back to vm.Value to avoid an import cycle (pkg/errors cannot import
// pkg/vm, since pkg/vm imports pkg/errors for Position and Thrown).
type Thrown interface {
	EngineError
	ThrownValue() any
}

// --- Concrete error kinds, one per spec.md §7 "Error kinds" entry ---

type SyntaxError struct {
	Position
	Msg string
}

func (e *SyntaxError) Error() string   { return fmt.Sprintf("SyntaxError at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }

type TypeError struct {
	Position
	Msg string
}

func (e *TypeError) Error() string   { return fmt.Sprintf("TypeError at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *TypeError) Pos() Position   { return e.Position }
func (e *TypeError) Kind() string    { return "Type" }
func (e *TypeError) Message() string { return e.Msg }

type ReferenceError struct {
	Position
	Msg string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("ReferenceError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *ReferenceError) Pos() Position   { return e.Position }
func (e *ReferenceError) Kind() string    { return "Reference" }
func (e *ReferenceError) Message() string { return e.Msg }

type RangeError struct {
	Position
	Msg string
}

func (e *RangeError) Error() string   { return fmt.Sprintf("RangeError at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *RangeError) Pos() Position   { return e.Position }
func (e *RangeError) Kind() string    { return "Range" }
func (e *RangeError) Message() string { return e.Msg }

type URIError struct {
	Position
	Msg string
}

func (e *URIError) Error() string   { return fmt.Sprintf("URIError at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *URIError) Pos() Position   { return e.Position }
func (e *URIError) Kind() string    { return "URI" }
func (e *URIError) Message() string { return e.Msg }

// EvalError represents a failure inside the host-supplied eval hook itself
// (e.g. the hook returned malformed bytecode), distinct from errors the
// evaluated program throws.
type EvalError struct {
	Position
	Msg string
}

func (e *EvalError) Error() string   { return fmt.Sprintf("EvalError at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *EvalError) Pos() Position   { return e.Position }
func (e *EvalError) Kind() string    { return "Eval" }
func (e *EvalError) Message() string { return e.Msg }

// InternalError signals an engine-side invariant violation (a bug in the
// core itself, not in the program being executed) — e.g. a corrupt bytecode
// operand or a GC invariant failure caught by an assertion.
type InternalError struct {
	Position
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("InternalError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *InternalError) Pos() Position   { return e.Position }
func (e *InternalError) Kind() string    { return "Internal" }
func (e *InternalError) Message() string { return e.Msg }

// RuntimeError is the catch-all kind for VM-detected failures that don't
// have a more specific ECMAScript error kind (stack overflow, out of
// registers, malformed call).
type RuntimeError struct {
	Position
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RuntimeError at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }

// ThrowError carries a JS value that a `throw` statement raised, untouched.
// Value is `any` rather than vm.Value to avoid pkg/errors depending on
// pkg/vm. pkg/vm does not construct these: it reports throws through its
// own thrownValue type, which also implements Thrown.
type ThrowError struct {
	Position
	Value any
	// Render formats Value into a human-readable string; when nil, Error()
	// reports only the position.
	Render func(any) string
}

func (e *ThrowError) Error() string {
	if e.Render != nil {
		return e.Render(e.Value)
	}
	return fmt.Sprintf("uncaught exception at %d:%d", e.Line, e.Column)
}
func (e *ThrowError) Pos() Position    { return e.Position }
func (e *ThrowError) Kind() string     { return "Throw" }
func (e *ThrowError) Message() string  { return e.Error() }
func (e *ThrowError) ThrownValue() any { return e.Value }

// CallFrame records one call-stack entry for StackTrace to render. pkg/vm
// does not build these: the errors it throws carry no call stack.
type CallFrame struct {
	FunctionName string
	Pos          Position
}

// StackTrace renders accumulated call frames the way V8-family engines do:
// "at <name> (<file>:<line>:<col>)" per frame, most-recent first.
func StackTrace(frames []CallFrame) string {
	s := ""
	for _, f := range frames {
		name := f.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		file := "<unknown>"
		if f.Pos.Source != nil {
			file = f.Pos.Source.DisplayPath()
		}
		s += fmt.Sprintf("    at %s (%s:%d:%d)\n", name, file, f.Pos.Line, f.Pos.Column)
	}
	return s
}
