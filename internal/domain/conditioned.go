package domain

// BaselineMethod selects the slow-drift model fit during conditioning.
type BaselineMethod string

const (
	BaselinePolynomial  BaselineMethod = "polynomial"
	BaselineExponential BaselineMethod = "exponential"
)

// IsValid checks if the method is a known value.
func (m BaselineMethod) IsValid() bool {
	return m == BaselinePolynomial || m == BaselineExponential
}

// ConditioningMeta records how a conditioned trace was produced.
// The caller configured these values; nothing here is a hidden default.
type ConditioningMeta struct {
	SmoothingApplied bool
	SmoothingWindow  int
	SmoothingOrder   int
	MotionCorrected  bool
	BaselineMethod   BaselineMethod // method actually used, after any caller-selected fallback
	BaselineOrder    int
	// InvalidSamples are indices where the fitted baseline was too close to
	// zero for dF/F to be defined. Values at these indices are 0, not NaN.
	InvalidSamples []int
}

// ConditionedTrace is the output of the signal conditioner: dF/F and Z-score
// traces over the recording's timestamp axis, plus processing metadata.
// Immutable once produced; downstream consumers must not modify it.
type ConditionedTrace struct {
	SessionID string
	DFF       Trace
	ZScore    Trace
	Meta      ConditioningMeta
}
