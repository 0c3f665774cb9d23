package sigproc

import (
	"fmt"
	"math"
)

// solveLinear solves the square system m*x = rhs in place using Gaussian
// elimination with partial pivoting. m and rhs are destroyed.
func solveLinear(m [][]float64, rhs []float64) ([]float64, error) {
	n := len(m)
	for col := 0; col < n; col++ {
		// Pivot on the largest remaining entry in this column.
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-14 {
			return nil, fmt.Errorf("column %d: %w", col, ErrSingularSystem)
		}
		m[col], m[pivot] = m[pivot], m[col]
		rhs[col], rhs[pivot] = rhs[pivot], rhs[col]

		for row := col + 1; row < n; row++ {
			f := m[row][col] / m[col][col]
			rhs[row] -= f * rhs[col]
			for k := col; k < n; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return x, nil
}

// polyfit computes least-squares polynomial coefficients (lowest order first)
// for the points (xs, ys) via the normal equations.
func polyfit(xs, ys []float64, order int) ([]float64, error) {
	if order < 0 {
		return nil, fmt.Errorf("polynomial order %d: %w", order, ErrInvalidParameter)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("polyfit: %d x values vs %d y values: %w", len(xs), len(ys), ErrShapeMismatch)
	}
	if len(xs) < order+1 {
		return nil, fmt.Errorf("polyfit: %d points for order %d: %w", len(xs), order, ErrInvalidParameter)
	}

	n := order + 1
	normal := make([][]float64, n)
	rhs := make([]float64, n)
	for i := range normal {
		normal[i] = make([]float64, n)
	}

	// Accumulate A^T*A and A^T*y without materializing the Vandermonde matrix.
	powers := make([]float64, 2*n-1)
	for k, x := range xs {
		xp := 1.0
		for p := range powers {
			powers[p] = xp
			xp *= x
		}
		for i := 0; i < n; i++ {
			rhs[i] += powers[i] * ys[k]
			for j := 0; j < n; j++ {
				normal[i][j] += powers[i+j]
			}
		}
	}

	return solveLinear(normal, rhs)
}

// polyval evaluates coefficients (lowest order first) at x.
func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		v = v*x + coeffs[i]
	}
	return v
}

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// variance returns the population variance of xs around its mean.
func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}
