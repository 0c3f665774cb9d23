package sigproc

import (
	"errors"
	"math"
	"testing"
)

func TestSmooth_InvalidParameters(t *testing.T) {
	values := make([]float64, 50)

	tests := []struct {
		name   string
		window int
		order  int
	}{
		{name: "even window", window: 10, order: 3},
		{name: "zero window", window: 0, order: 0},
		{name: "negative window", window: -5, order: 2},
		{name: "window equals order", window: 3, order: 3},
		{name: "window below order", window: 3, order: 5},
		{name: "window exceeds trace", window: 51, order: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Smooth(values, tt.window, tt.order)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestSmooth_PreservesLength(t *testing.T) {
	values := make([]float64, 101)
	for i := range values {
		values[i] = math.Sin(float64(i) / 10)
	}

	out, err := Smooth(values, 11, 3)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}
	if len(out) != len(values) {
		t.Errorf("expected output length %d, got %d", len(values), len(out))
	}
}

func TestSmooth_ConstantIsFixedPoint(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 7.25
	}

	out, err := Smooth(values, 9, 2)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}
	for i, v := range out {
		if math.Abs(v-7.25) > 1e-9 {
			t.Fatalf("sample %d: expected 7.25, got %g", i, v)
		}
	}
}

func TestSmooth_ReproducesPolynomialInterior(t *testing.T) {
	// A cubic is invariant under an order-3 fit away from the mirrored edges.
	n := 60
	values := make([]float64, n)
	for i := range values {
		x := float64(i) * 0.1
		values[i] = 2 - x + 0.5*x*x - 0.02*x*x*x
	}

	window := 11
	out, err := Smooth(values, window, 3)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	half := window / 2
	for i := half; i < n-half; i++ {
		if math.Abs(out[i]-values[i]) > 1e-8 {
			t.Fatalf("sample %d: expected %g, got %g", i, values[i], out[i])
		}
	}
}

func TestSmooth_ReducesNoiseVariance(t *testing.T) {
	// Deterministic pseudo-noise around a flat signal.
	n := 200
	values := make([]float64, n)
	seed := 12345
	for i := range values {
		seed = (seed*1103515245 + 12345) & 0x7fffffff
		values[i] = 5 + (float64(seed%1000)/1000-0.5)*0.2
	}

	out, err := Smooth(values, 21, 2)
	if err != nil {
		t.Fatalf("Smooth failed: %v", err)
	}

	if variance(out) >= variance(values) {
		t.Errorf("smoothing did not reduce variance: %g vs %g", variance(out), variance(values))
	}
}

func TestMirrorIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{i: 0, n: 10, want: 0},
		{i: 9, n: 10, want: 9},
		{i: -1, n: 10, want: 1},
		{i: -3, n: 10, want: 3},
		{i: 10, n: 10, want: 8},
		{i: 12, n: 10, want: 6},
	}
	for _, tt := range tests {
		if got := mirrorIndex(tt.i, tt.n); got != tt.want {
			t.Errorf("mirrorIndex(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
