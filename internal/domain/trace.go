package domain

import (
	"math"
	"sort"
)

// Trace is an ordered sequence of samples with monotonically increasing
// timestamps (seconds) and a fixed or near-fixed sampling interval.
// Timestamps and Values are parallel slices of equal length.
type Trace struct {
	Timestamps []float64
	Values     []float64
}

// Len returns the number of samples.
func (t Trace) Len() int {
	return len(t.Values)
}

// Start returns the first timestamp, or 0 for an empty trace.
func (t Trace) Start() float64 {
	if len(t.Timestamps) == 0 {
		return 0
	}
	return t.Timestamps[0]
}

// End returns the last timestamp, or 0 for an empty trace.
func (t Trace) End() float64 {
	if len(t.Timestamps) == 0 {
		return 0
	}
	return t.Timestamps[len(t.Timestamps)-1]
}

// IsValid checks the basic trace invariants: parallel slices, length >= 2,
// strictly increasing timestamps, no NaN/Inf timestamps.
func (t Trace) IsValid() bool {
	if len(t.Timestamps) != len(t.Values) || len(t.Values) < 2 {
		return false
	}
	for i, ts := range t.Timestamps {
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return false
		}
		if i > 0 && ts <= t.Timestamps[i-1] {
			return false
		}
	}
	return true
}

// SamplingInterval returns the median timestamp difference. The median is
// robust against a handful of dropped samples in otherwise regular recordings.
func (t Trace) SamplingInterval() float64 {
	n := len(t.Timestamps)
	if n < 2 {
		return 0
	}
	diffs := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		diffs = append(diffs, t.Timestamps[i]-t.Timestamps[i-1])
	}
	return median(diffs)
}

// Clone returns a deep copy. Stages that transform a trace operate on a
// clone so the input is never mutated.
func (t Trace) Clone() Trace {
	out := Trace{
		Timestamps: make([]float64, len(t.Timestamps)),
		Values:     make([]float64, len(t.Values)),
	}
	copy(out.Timestamps, t.Timestamps)
	copy(out.Values, t.Values)
	return out
}

// median returns the middle value of xs without mutating it.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
