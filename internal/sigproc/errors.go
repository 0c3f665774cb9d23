// Package sigproc provides the numeric primitives of the photometry
// pipeline: Savitzky-Golay smoothing, baseline fitting and isosbestic
// motion correction. All functions are pure; inputs are never mutated.
package sigproc

import "errors"

// Typed failures of the numeric stages. Callers match with errors.Is;
// returned errors wrap these with stage context (offending parameter,
// indices, timestamps).
var (
	// ErrInvalidParameter is returned for malformed numeric configuration,
	// e.g. an even or too-small smoothing window.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShapeMismatch is returned when two channels that must share a
	// timestamp axis have different lengths or diverging timestamps.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDegenerateReference is returned when the reference channel has
	// near-zero variance and regression would be ill-conditioned.
	ErrDegenerateReference = errors.New("degenerate reference channel")

	// ErrFitDivergence is returned when nonlinear least squares does not
	// converge within the iteration budget. The caller decides whether to
	// fall back to a polynomial baseline; it is never substituted silently.
	ErrFitDivergence = errors.New("baseline fit did not converge")

	// ErrSingularSystem is returned when a least-squares normal system is
	// singular, e.g. a polynomial order too high for the data.
	ErrSingularSystem = errors.New("singular least-squares system")
)
