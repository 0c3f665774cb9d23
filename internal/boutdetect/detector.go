// Package boutdetect segments a running-speed trace into discrete
// locomotion bouts. Detection is an explicit two-state machine (Idle,
// Running) with hysteresis thresholds and dwell-time debouncing, followed
// by a merge/minimum-duration pass.
package boutdetect

import (
	"fmt"
	"math"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
	"photometry-lab/internal/sigproc"
)

// Config holds every bout-detection parameter. All values are caller
// supplied; Detect rejects rather than defaults a zero threshold.
type Config struct {
	// SmoothWindow is the moving-average window in samples applied to the
	// absolute speed before thresholding. 1 disables smoothing.
	SmoothWindow int

	// EnterThreshold and ExitThreshold implement hysteresis: the machine
	// enters Running above EnterThreshold and leaves below ExitThreshold.
	// ExitThreshold must not exceed EnterThreshold.
	EnterThreshold float64
	ExitThreshold  float64

	// MinOnsetDuration is how long speed must stay above EnterThreshold
	// before a bout onset is confirmed (seconds). MinOffsetDuration is the
	// same for falling below ExitThreshold.
	MinOnsetDuration  float64
	MinOffsetDuration float64

	// MinBoutDuration drops or merges shorter running intervals.
	// MergeGap is the largest idle gap across which a short interval is
	// merged with its neighbor instead of discarded.
	MinBoutDuration float64
	MergeGap        float64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SmoothWindow < 1 {
		return fmt.Errorf("smooth window %d must be >= 1: %w", c.SmoothWindow, sigproc.ErrInvalidParameter)
	}
	if c.EnterThreshold <= 0 {
		return fmt.Errorf("enter threshold %g must be positive: %w", c.EnterThreshold, sigproc.ErrInvalidParameter)
	}
	if c.ExitThreshold <= 0 || c.ExitThreshold > c.EnterThreshold {
		return fmt.Errorf("exit threshold %g must be in (0, %g]: %w", c.ExitThreshold, c.EnterThreshold, sigproc.ErrInvalidParameter)
	}
	if c.MinOnsetDuration < 0 || c.MinOffsetDuration < 0 || c.MinBoutDuration < 0 || c.MergeGap < 0 {
		return fmt.Errorf("durations and merge gap must be non-negative: %w", sigproc.ErrInvalidParameter)
	}
	return nil
}

// detector state machine states.
type state int

const (
	stateIdle state = iota
	stateRunning
)

// interval is a half-open candidate bout over sample indices [start, end].
type interval struct {
	start, end int
}

// Detect segments the speed trace into locomotion bouts for one session.
// Bouts are returned time-ordered and non-overlapping by construction.
// Running intervals still open at either recording edge are discarded as
// truncated.
func Detect(sessionID string, speed domain.Trace, cfg Config) ([]domain.Bout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bout detection %s: %w", sessionID, err)
	}
	if !speed.IsValid() {
		return nil, fmt.Errorf("bout detection %s: speed trace invalid (len %d): %w",
			sessionID, speed.Len(), sigproc.ErrInvalidParameter)
	}

	smoothed := movingAverageAbs(speed.Values, cfg.SmoothWindow)
	ts := speed.Timestamps

	intervals := scan(ts, smoothed, cfg)
	intervals = mergeShort(ts, intervals, cfg)

	var bouts []domain.Bout
	for _, iv := range intervals {
		start, end := ts[iv.start], ts[iv.end]
		if end-start < cfg.MinBoutDuration {
			continue
		}
		peak, sum := 0.0, 0.0
		for i := iv.start; i <= iv.end; i++ {
			if smoothed[i] > peak {
				peak = smoothed[i]
			}
			sum += smoothed[i]
		}
		bouts = append(bouts, domain.Bout{
			BoutID:    idhash.ComputeBoutID(sessionID, start, end),
			SessionID: sessionID,
			StartTime: start,
			EndTime:   end,
			PeakSpeed: peak,
			MeanSpeed: sum / float64(iv.end-iv.start+1),
		})
	}
	return bouts, nil
}

// scan runs the Idle/Running state machine over the smoothed speed.
func scan(ts, speed []float64, cfg Config) []interval {
	var intervals []interval
	st := stateIdle
	candidate := -1 // first sample above EnterThreshold while Idle
	below := -1     // first sample below ExitThreshold while Running
	start := -1

	for i, v := range speed {
		switch st {
		case stateIdle:
			if v >= cfg.EnterThreshold {
				if candidate < 0 {
					candidate = i
				}
				if ts[i]-ts[candidate] >= cfg.MinOnsetDuration {
					st = stateRunning
					start = candidate
					below = -1
				}
			} else {
				candidate = -1
			}
		case stateRunning:
			if v < cfg.ExitThreshold {
				if below < 0 {
					below = i
				}
				if ts[i]-ts[below] >= cfg.MinOffsetDuration {
					// Bout ends at the last sample before speed fell away.
					intervals = append(intervals, interval{start: start, end: below - 1})
					st = stateIdle
					candidate = -1
				}
			} else {
				below = -1
			}
		}
	}

	// An interval still running at the end of the recording is truncated;
	// same for one that began on the very first sample.
	var kept []interval
	for _, iv := range intervals {
		if iv.start == 0 || iv.end >= len(speed)-1 {
			continue
		}
		kept = append(kept, iv)
	}
	return kept
}

// mergeShort merges below-minimum intervals with an adjacent interval when
// the idle gap between them is under MergeGap; unmergeable short intervals
// are dropped later by the duration filter.
func mergeShort(ts []float64, intervals []interval, cfg Config) []interval {
	if len(intervals) == 0 {
		return intervals
	}

	out := []interval{intervals[0]}
	for _, iv := range intervals[1:] {
		prev := &out[len(out)-1]
		gap := ts[iv.start] - ts[prev.end]
		prevShort := ts[prev.end]-ts[prev.start] < cfg.MinBoutDuration
		curShort := ts[iv.end]-ts[iv.start] < cfg.MinBoutDuration
		if gap < cfg.MergeGap && (prevShort || curShort) {
			prev.end = iv.end
			continue
		}
		out = append(out, iv)
	}
	return out
}

// movingAverageAbs smooths the absolute speed with a centered boxcar.
// Window edges average over the in-range samples only.
func movingAverageAbs(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if window <= 1 {
		for i, v := range values {
			out[i] = math.Abs(v)
		}
		return out
	}

	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > n-1 {
			hi = n - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += math.Abs(values[j])
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
