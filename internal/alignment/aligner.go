// Package alignment extracts trace windows around event onsets and
// aggregates them into per-condition group statistics. Extraction resamples
// every window onto a canonical relative-time grid so windows from sessions
// with different sampling rates are directly comparable.
package alignment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/sigproc"
)

// ErrEdgeTruncated marks an event whose window would extend past the trace
// bounds. Such events are skipped, never zero padded.
var ErrEdgeTruncated = errors.New("alignment window exceeds trace bounds")

// Params controls window extraction.
type Params struct {
	// Pre and Post are the window extents around the event onset, in
	// seconds. Both must be positive.
	Pre  float64
	Post float64

	// GridStep overrides the canonical grid spacing. Zero means use the
	// median sampling interval of the trace being windowed.
	GridStep float64
}

// Validate checks the extraction parameters.
func (p Params) Validate() error {
	if p.Pre <= 0 || p.Post <= 0 {
		return fmt.Errorf("window extents pre=%g post=%g must be positive: %w",
			p.Pre, p.Post, sigproc.ErrInvalidParameter)
	}
	if p.GridStep < 0 {
		return fmt.Errorf("grid step %g must be non-negative: %w", p.GridStep, sigproc.ErrInvalidParameter)
	}
	return nil
}

// Skipped records an event excluded from alignment and why.
type Skipped struct {
	Event  domain.Event
	Reason error
}

// ExtractWindows cuts one window per event out of the trace, resampled onto
// the canonical grid by linear interpolation. Events whose window would
// cross either trace edge are returned in skipped rather than padded or
// silently dropped. Window order follows event onset order.
func ExtractWindows(trace domain.Trace, events []domain.Event, p Params) ([]domain.AlignedWindow, []Skipped, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if !trace.IsValid() {
		return nil, nil, fmt.Errorf("trace invalid (len %d): %w", trace.Len(), sigproc.ErrInvalidParameter)
	}

	step := p.GridStep
	if step == 0 {
		step = trace.SamplingInterval()
	}
	if step <= 0 {
		return nil, nil, fmt.Errorf("grid step resolved to %g: %w", step, sigproc.ErrInvalidParameter)
	}
	grid := relativeGrid(p.Pre, p.Post, step)

	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OnsetTime < sorted[j].OnsetTime })

	var windows []domain.AlignedWindow
	var skipped []Skipped
	for _, ev := range sorted {
		if ev.OnsetTime-p.Pre < trace.Start() || ev.OnsetTime+p.Post > trace.End() {
			skipped = append(skipped, Skipped{
				Event: ev,
				Reason: fmt.Errorf("event %s at t=%.3f needs [%.3f, %.3f] within [%.3f, %.3f]: %w",
					ev.EventID, ev.OnsetTime, ev.OnsetTime-p.Pre, ev.OnsetTime+p.Post,
					trace.Start(), trace.End(), ErrEdgeTruncated),
			})
			continue
		}

		values := make([]float64, len(grid))
		for i, rel := range grid {
			values[i] = interp(trace.Timestamps, trace.Values, ev.OnsetTime+rel)
		}
		windows = append(windows, domain.AlignedWindow{
			Event:    ev,
			PreTime:  p.Pre,
			PostTime: p.Post,
			RelTimes: grid,
			Values:   values,
		})
	}
	return windows, skipped, nil
}

// relativeGrid builds the canonical grid from -pre to +post inclusive.
func relativeGrid(pre, post, step float64) []float64 {
	n := int(math.Floor((pre+post)/step+1e-9)) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = -pre + float64(i)*step
	}
	return grid
}

// interp linearly interpolates values at t. Timestamps must be strictly
// increasing; t outside the range clamps to the nearest endpoint.
func interp(ts, vs []float64, t float64) float64 {
	n := len(ts)
	if t <= ts[0] {
		return vs[0]
	}
	if t >= ts[n-1] {
		return vs[n-1]
	}
	// Index of the first timestamp > t.
	hi := sort.SearchFloat64s(ts, t)
	if ts[hi] == t {
		return vs[hi]
	}
	lo := hi - 1
	frac := (t - ts[lo]) / (ts[hi] - ts[lo])
	return vs[lo] + frac*(vs[hi]-vs[lo])
}
