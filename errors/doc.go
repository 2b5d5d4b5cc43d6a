// Package errors provides the structured error type returned by the compiler
// pipeline.
//
// Errors are categorized by Phase (which pass failed) and Kind (what went
// wrong). Every Kind belongs to one Class:
//
//	structural  block graph invariant violated, analysis output kept for
//	            diagnostics only
//	type        a type judgment failed, the function falls back
//	assertion   internal inconsistency, a compiler defect
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePropagate, errors.KindUnresolvedName).
//		Function("onClicked").
//		At(12, loc).
//		Detail("Cannot find name %s", name).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
