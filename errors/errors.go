// Package errors provides error handling for the GLAO error-budget engine.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Sentinel error kinds for the budget pipeline
//
// Usage:
//
//	// Wrap with context
//	if err := fit(frame); err != nil {
//	    return errors.Wrapf(err, "frame %d", idx)
//	}
//
//	// Check error kinds
//	if errors.Is(err, errors.ErrEmptyFrame) {
//	    // skip or abort per policy
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel error kinds for the error-budget pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the kind.
var (
	// ErrSchemaMismatch indicates an input array's shape or dtype disagrees
	// with the configuration. Detected before any numeric work begins.
	ErrSchemaMismatch = New("schema mismatch")

	// ErrUnderdeterminedFit indicates a frame has fewer valid pixels than
	// the basis has modes, so a least-squares solution would be degenerate.
	ErrUnderdeterminedFit = New("underdetermined fit")

	// ErrIllConditionedFit indicates the masked design matrix's condition
	// number exceeds the configured threshold.
	ErrIllConditionedFit = New("ill-conditioned fit")

	// ErrEmptyFrame indicates a frame with zero valid pixels. Callers decide
	// whether to skip the frame or abort the series.
	ErrEmptyFrame = New("empty frame")

	// ErrUnknownCorrelationTag indicates a correlation tag that references
	// no matching contributor.
	ErrUnknownCorrelationTag = New("unknown correlation tag")

	// ErrDuplicateContributor indicates two contributors share a name.
	ErrDuplicateContributor = New("duplicate contributor")

	// ErrArraySourceIO wraps any failure reading the external archive.
	// Fatal and never retried: this is an offline batch job.
	ErrArraySourceIO = New("array source I/O")

	// ErrInvalidBasis indicates a degenerate modal basis: two requested
	// modes are numerically indistinguishable on the sampling grid.
	ErrInvalidBasis = New("invalid basis")
)

// IsFatal reports whether err carries one of the pipeline's error kinds.
// Per-frame kinds (underdetermined, ill-conditioned, empty frame) are
// fatal by default but may be downgraded to gaps by the frame policy;
// everything else always aborts the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return IsAny(err,
		ErrSchemaMismatch,
		ErrUnderdeterminedFit,
		ErrIllConditionedFit,
		ErrEmptyFrame,
		ErrUnknownCorrelationTag,
		ErrDuplicateContributor,
		ErrArraySourceIO,
		ErrInvalidBasis,
	)
}

// IsFrameError reports whether err is a per-frame error kind, i.e. one the
// frame policy is allowed to downgrade to a recorded gap.
func IsFrameError(err error) bool {
	if err == nil {
		return false
	}
	return IsAny(err, ErrUnderdeterminedFit, ErrIllConditionedFit, ErrEmptyFrame)
}

// WrapFrame annotates a per-frame error with the originating frame index.
func WrapFrame(err error, frame int) error {
	if err == nil {
		return nil
	}
	return Wrapf(err, "frame %d", frame)
}
