package sigproc

import (
	"fmt"
	"math"

	"photometry-lab/internal/domain"
)

// expFitMaxIter bounds the Gauss-Newton iterations of the exponential fit.
// The fit either converges within the budget or fails with ErrFitDivergence.
const expFitMaxIter = 200

// FitBaseline fits a slow-varying baseline over the whole trace and returns
// it evaluated at every timestamp.
//
// BaselinePolynomial fits a degree-order polynomial by least squares.
// BaselineExponential fits the bleaching model a*exp(-t/tau)+c by bounded
// nonlinear least squares; order is ignored. A divergent exponential fit
// returns ErrFitDivergence and the caller chooses whether to fall back.
func FitBaseline(trace domain.Trace, method domain.BaselineMethod, order int) (domain.Trace, error) {
	if !trace.IsValid() {
		return domain.Trace{}, fmt.Errorf("baseline: input trace invalid (len %d): %w", trace.Len(), ErrInvalidParameter)
	}
	return fitBaselineEval(trace, trace.Timestamps, method, order)
}

// FitBaselineWindow fits the model only over the samples inside [start, end]
// and evaluates it at every timestamp of the full trace. Level changes after
// the window, such as a sustained drug response, cannot tilt the fit.
func FitBaselineWindow(trace domain.Trace, start, end float64, method domain.BaselineMethod, order int) (domain.Trace, error) {
	if !trace.IsValid() {
		return domain.Trace{}, fmt.Errorf("baseline: input trace invalid (len %d): %w", trace.Len(), ErrInvalidParameter)
	}

	fit := windowTrace(trace, start, end)
	if fit.Len() < 2 {
		return domain.Trace{}, fmt.Errorf("baseline window [%g, %g]: %d samples inside: %w",
			start, end, fit.Len(), ErrInvalidParameter)
	}
	return fitBaselineEval(fit, trace.Timestamps, method, order)
}

// windowTrace copies the samples of trace whose timestamps fall in [start, end].
func windowTrace(trace domain.Trace, start, end float64) domain.Trace {
	var out domain.Trace
	for i, ts := range trace.Timestamps {
		if ts < start || ts > end {
			continue
		}
		out.Timestamps = append(out.Timestamps, ts)
		out.Values = append(out.Values, trace.Values[i])
	}
	return out
}

// fitBaselineEval fits the model to fit and evaluates it at evalTS.
func fitBaselineEval(fit domain.Trace, evalTS []float64, method domain.BaselineMethod, order int) (domain.Trace, error) {
	switch method {
	case domain.BaselinePolynomial:
		return fitPolynomialBaseline(fit, evalTS, order)
	case domain.BaselineExponential:
		return fitExponentialBaseline(fit, evalTS)
	default:
		return domain.Trace{}, fmt.Errorf("baseline method %q: %w", method, ErrInvalidParameter)
	}
}

func fitPolynomialBaseline(fit domain.Trace, evalTS []float64, order int) (domain.Trace, error) {
	coeffs, err := polyfit(fit.Timestamps, fit.Values, order)
	if err != nil {
		return domain.Trace{}, fmt.Errorf("polynomial baseline order %d: %w", order, err)
	}

	out := domain.Trace{
		Timestamps: append([]float64(nil), evalTS...),
		Values:     make([]float64, len(evalTS)),
	}
	for i, ts := range evalTS {
		out.Values[i] = polyval(coeffs, ts)
	}
	return out, nil
}

// fitExponentialBaseline fits v(t) = a*exp(-t/tau) + c with Gauss-Newton and
// Levenberg damping, then evaluates the model at evalTS. The initial guess
// comes from the fit-span endpoints: c ~ final value, a ~ initial minus
// final value, tau ~ a third of the span.
func fitExponentialBaseline(fit domain.Trace, evalTS []float64) (domain.Trace, error) {
	ts := fit.Timestamps
	vs := fit.Values
	n := len(vs)

	// Three parameters need more than three points to converge on anything;
	// an underdetermined fit is reported as divergence so the caller can
	// apply its configured fallback.
	if n < 4 {
		return domain.Trace{}, fmt.Errorf("exponential baseline: %d samples cannot constrain 3 parameters: %w", n, ErrFitDivergence)
	}

	span := fit.End() - fit.Start()
	a := vs[0] - vs[n-1]
	if a <= 0 {
		// Bleaching decays; a non-decaying trace still gets a positive
		// starting amplitude so the solver has a valid slope to descend.
		a = math.Max(1e-6, math.Abs(a))
	}
	tau := span / 3
	if tau <= 0 {
		return domain.Trace{}, fmt.Errorf("exponential baseline: non-positive time span %g: %w", span, ErrInvalidParameter)
	}
	c := vs[n-1]

	lambda := 1e-3
	sse := expSSE(ts, vs, a, tau, c)

	for iter := 0; iter < expFitMaxIter; iter++ {
		// Normal equations J^T J dp = J^T r for parameters (a, tau, c).
		var jtj [3][3]float64
		var jtr [3]float64
		for i := 0; i < n; i++ {
			e := math.Exp(-ts[i] / tau)
			pred := a*e + c
			r := vs[i] - pred
			// Partial derivatives of the model.
			da := e
			dtau := a * e * ts[i] / (tau * tau)
			dc := 1.0
			j := [3]float64{da, dtau, dc}
			for p := 0; p < 3; p++ {
				jtr[p] += j[p] * r
				for q := 0; q < 3; q++ {
					jtj[p][q] += j[p] * j[q]
				}
			}
		}

		m := make([][]float64, 3)
		rhs := make([]float64, 3)
		for p := 0; p < 3; p++ {
			m[p] = make([]float64, 3)
			for q := 0; q < 3; q++ {
				m[p][q] = jtj[p][q]
			}
			m[p][p] *= 1 + lambda
			rhs[p] = jtr[p]
		}

		step, err := solveLinear(m, rhs)
		if err != nil {
			return domain.Trace{}, fmt.Errorf("exponential baseline iteration %d: %w", iter, ErrFitDivergence)
		}

		newA, newTau, newC := a+step[0], tau+step[1], c+step[2]
		if newTau <= 0 || math.IsNaN(newTau) || math.IsNaN(newA) || math.IsNaN(newC) {
			lambda *= 10
			if lambda > 1e12 {
				return domain.Trace{}, fmt.Errorf("exponential baseline: damping exhausted at iteration %d: %w", iter, ErrFitDivergence)
			}
			continue
		}

		newSSE := expSSE(ts, vs, newA, newTau, newC)
		if newSSE > sse {
			lambda *= 10
			if lambda > 1e12 {
				return domain.Trace{}, fmt.Errorf("exponential baseline: damping exhausted at iteration %d: %w", iter, ErrFitDivergence)
			}
			continue
		}

		improved := sse - newSSE
		a, tau, c, sse = newA, newTau, newC, newSSE
		lambda = math.Max(lambda/10, 1e-12)

		if improved <= 1e-12*(sse+1e-12) {
			out := domain.Trace{
				Timestamps: append([]float64(nil), evalTS...),
				Values:     make([]float64, len(evalTS)),
			}
			for i, t := range evalTS {
				out.Values[i] = a*math.Exp(-t/tau) + c
			}
			return out, nil
		}
	}

	return domain.Trace{}, fmt.Errorf("exponential baseline: no convergence in %d iterations: %w", expFitMaxIter, ErrFitDivergence)
}

func expSSE(ts, vs []float64, a, tau, c float64) float64 {
	sse := 0.0
	for i := range ts {
		r := vs[i] - (a*math.Exp(-ts[i]/tau) + c)
		sse += r * r
	}
	return sse
}
