// Package errors provides the structured error type used throughout the
// LightPlayer compiler core.
//
// Errors are categorized by Phase (which pipeline stage raised them) and
// Kind (the specific defect). The Error type carries a source Span for
// user-facing diagnostics, plus an optional wrapped cause for internal
// errors that originate from a lower layer.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseSemantic, errors.KindTypeMismatch).
//		At(span).
//		Detail("cannot assign float to int without explicit cast").
//		Build()
//
// Or use the convenience constructors for common patterns:
//
//	err := errors.UnknownIdentifier(span, "foo")
//	err := errors.ArityMismatch(span, "mix", 2, 3)
//
// All errors implement the standard error interface and support
// errors.Is/As. Internal compiler errors (bugs in lowering or the Q32
// transform, never user errors) use PhaseInternal and should be treated
// as fatal by callers — see Internal.
package errors
