package sigproc

import (
	"fmt"

	"photometry-lab/internal/domain"
)

// refVarianceFloor is the minimum reference-channel variance accepted for
// regression. Below it the slope estimate divides by near-zero.
const refVarianceFloor = 1e-12

// Regression holds the OLS fit of signal onto reference.
type Regression struct {
	Slope     float64
	Intercept float64
}

// RegressOLS fits signal ~= slope*reference + intercept by ordinary least
// squares. Both slices must have equal length >= 2.
func RegressOLS(signal, reference []float64) (Regression, error) {
	if len(signal) != len(reference) {
		return Regression{}, fmt.Errorf("motion correction: signal length %d vs reference length %d: %w",
			len(signal), len(reference), ErrShapeMismatch)
	}
	if len(signal) < 2 {
		return Regression{}, fmt.Errorf("motion correction: %d samples: %w", len(signal), ErrInvalidParameter)
	}

	refVar := variance(reference)
	if refVar < refVarianceFloor {
		return Regression{}, fmt.Errorf("motion correction: reference variance %.3e below %.0e: %w",
			refVar, refVarianceFloor, ErrDegenerateReference)
	}

	meanRef := mean(reference)
	meanSig := mean(signal)
	cov := 0.0
	for i := range signal {
		cov += (reference[i] - meanRef) * (signal[i] - meanSig)
	}
	cov /= float64(len(signal))

	slope := cov / refVar
	return Regression{Slope: slope, Intercept: meanSig - slope*meanRef}, nil
}

// Predict evaluates the fitted line at ref.
func (r Regression) Predict(ref float64) float64 {
	return r.Slope*ref + r.Intercept
}

// CorrectMotion removes the component of the signal channel explained by the
// isosbestic reference: signal - (slope*reference + intercept) + mean(signal).
// Adding the mean back preserves the signal level so downstream dF/F stays
// on the original scale. Inputs must share a timestamp axis.
func CorrectMotion(signal, reference domain.Trace) (domain.Trace, error) {
	if signal.Len() != reference.Len() {
		return domain.Trace{}, fmt.Errorf("motion correction: signal has %d samples, reference %d: %w",
			signal.Len(), reference.Len(), ErrShapeMismatch)
	}

	reg, err := RegressOLS(signal.Values, reference.Values)
	if err != nil {
		return domain.Trace{}, err
	}

	meanSig := mean(signal.Values)
	out := domain.Trace{
		Timestamps: append([]float64(nil), signal.Timestamps...),
		Values:     make([]float64, signal.Len()),
	}
	for i, v := range signal.Values {
		out.Values[i] = v - reg.Predict(reference.Values[i]) + meanSig
	}
	return out, nil
}
