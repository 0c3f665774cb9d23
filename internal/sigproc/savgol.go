package sigproc

import "fmt"

// Smooth applies a Savitzky-Golay filter: within each sliding window a
// polynomial of the given order is fit by least squares and the center
// sample is replaced by the fitted value. Boundaries are handled by
// mirroring the trace, so output length equals input length.
//
// window must be odd, positive and > order; window must not exceed len(values).
func Smooth(values []float64, window, order int) ([]float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("smoothing window %d must be odd and positive: %w", window, ErrInvalidParameter)
	}
	if order < 0 || window <= order {
		return nil, fmt.Errorf("smoothing window %d must exceed polynomial order %d: %w", window, order, ErrInvalidParameter)
	}
	if window > len(values) {
		return nil, fmt.Errorf("smoothing window %d exceeds trace length %d: %w", window, len(values), ErrInvalidParameter)
	}

	weights, err := savgolWeights(window, order)
	if err != nil {
		return nil, err
	}

	half := window / 2
	n := len(values)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		acc := 0.0
		for j := -half; j <= half; j++ {
			acc += weights[j+half] * values[mirrorIndex(i+j, n)]
		}
		out[i] = acc
	}
	return out, nil
}

// savgolWeights computes the convolution weights for the window center.
// With Vandermonde matrix A over positions -h..h, the fitted center value is
// the constant coefficient of the least-squares polynomial, which makes the
// weight vector A * (A^T A)^{-1} e0.
func savgolWeights(window, order int) ([]float64, error) {
	half := window / 2
	n := order + 1

	normal := make([][]float64, n)
	for i := range normal {
		normal[i] = make([]float64, n)
	}
	powers := make([]float64, 2*n-1)
	vander := make([][]float64, window)
	for r := 0; r < window; r++ {
		x := float64(r - half)
		xp := 1.0
		for p := range powers {
			powers[p] = xp
			xp *= x
		}
		vander[r] = make([]float64, n)
		copy(vander[r], powers[:n])
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				normal[i][j] += powers[i+j]
			}
		}
	}

	e0 := make([]float64, n)
	e0[0] = 1
	g, err := solveLinear(normal, e0)
	if err != nil {
		return nil, fmt.Errorf("savgol window %d order %d: %w", window, order, err)
	}

	weights := make([]float64, window)
	for r := 0; r < window; r++ {
		acc := 0.0
		for j := 0; j < n; j++ {
			acc += vander[r][j] * g[j]
		}
		weights[r] = acc
	}
	return weights, nil
}

// mirrorIndex reflects an out-of-range index back into [0, n) without
// repeating the edge sample (scipy-style mirror padding).
func mirrorIndex(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
