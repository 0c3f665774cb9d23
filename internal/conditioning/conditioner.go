// Package conditioning turns a raw two-channel photometry recording into
// dF/F and Z-score traces. The pipeline order is fixed: optional smoothing
// of both channels, optional isosbestic motion correction, baseline fit,
// dF/F, Z-score. Each stage allocates its own output; the input recording
// is never mutated.
package conditioning

import (
	"errors"
	"fmt"
	"math"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/sigproc"
)

// ErrBaselineCollapse is returned when the fitted baseline is too close to
// zero for more samples than Options.MaxInvalidFraction allows, leaving
// dF/F undefined over a meaningful part of the trace.
var ErrBaselineCollapse = errors.New("baseline collapse: dF/F undefined")

// baselineFloor is the absolute magnitude below which a baseline value
// cannot serve as a dF/F denominator.
const baselineFloor = 1e-9

// Window is an absolute-time interval [Start, End] in trace seconds.
type Window struct {
	Start float64
	End   float64
}

// Options enumerates every conditioning choice explicitly. There are no
// hidden defaults: the zero value means no smoothing, no motion correction,
// polynomial baseline of order 0 and zero tolerance for invalid samples.
type Options struct {
	Smoothing    bool
	SmoothWindow int
	SmoothOrder  int

	MotionCorrection bool

	BaselineMethod domain.BaselineMethod
	BaselineOrder  int
	// FallbackToPolynomial refits with the polynomial model when the
	// exponential fit diverges. Off by default; without it the divergence
	// propagates to the caller.
	FallbackToPolynomial bool

	// BaselineWindow restricts the baseline fit to an interval, typically
	// the span before the first drug administration. The fitted model is
	// still evaluated over the whole trace. Nil fits over everything.
	BaselineWindow *Window

	// ZScoreWindow restricts the mean/std used for Z-scoring to a baseline
	// interval. Nil means whole-trace statistics.
	ZScoreWindow *Window

	// MaxInvalidFraction is the tolerated fraction of samples whose baseline
	// is too close to zero for dF/F. Zero tolerates none.
	MaxInvalidFraction float64

	// ChannelTolerance is the per-sample timestamp agreement required
	// between signal and reference channels, in seconds.
	ChannelTolerance float64
}

// Condition runs the full conditioning pipeline on a recording and returns
// an immutable conditioned trace with processing metadata.
func Condition(rec domain.TwoChannelRecording, opts Options) (*domain.ConditionedTrace, error) {
	if !rec.Signal.IsValid() {
		return nil, fmt.Errorf("condition %s: signal channel invalid (len %d): %w",
			rec.SessionID, rec.Signal.Len(), sigproc.ErrInvalidParameter)
	}
	if !rec.Reference.IsValid() {
		return nil, fmt.Errorf("condition %s: reference channel invalid (len %d): %w",
			rec.SessionID, rec.Reference.Len(), sigproc.ErrInvalidParameter)
	}
	if !rec.Aligned(opts.ChannelTolerance) {
		return nil, fmt.Errorf("condition %s: channels not timestamp-aligned within %gs: %w",
			rec.SessionID, opts.ChannelTolerance, sigproc.ErrShapeMismatch)
	}
	if !opts.BaselineMethod.IsValid() {
		return nil, fmt.Errorf("condition %s: baseline method %q: %w",
			rec.SessionID, opts.BaselineMethod, sigproc.ErrInvalidParameter)
	}

	signal := rec.Signal.Clone()
	reference := rec.Reference.Clone()
	meta := domain.ConditioningMeta{
		BaselineMethod: opts.BaselineMethod,
		BaselineOrder:  opts.BaselineOrder,
	}

	// Stage 1: smoothing, each channel independently.
	if opts.Smoothing {
		sv, err := sigproc.Smooth(signal.Values, opts.SmoothWindow, opts.SmoothOrder)
		if err != nil {
			return nil, fmt.Errorf("condition %s: smooth signal: %w", rec.SessionID, err)
		}
		rv, err := sigproc.Smooth(reference.Values, opts.SmoothWindow, opts.SmoothOrder)
		if err != nil {
			return nil, fmt.Errorf("condition %s: smooth reference: %w", rec.SessionID, err)
		}
		signal.Values = sv
		reference.Values = rv
		meta.SmoothingApplied = true
		meta.SmoothingWindow = opts.SmoothWindow
		meta.SmoothingOrder = opts.SmoothOrder
	}

	// Stage 2: motion correction against the isosbestic reference.
	if opts.MotionCorrection {
		corrected, err := sigproc.CorrectMotion(signal, reference)
		if err != nil {
			return nil, fmt.Errorf("condition %s: %w", rec.SessionID, err)
		}
		signal = corrected
		meta.MotionCorrected = true
	}

	// Stage 3: baseline fit, with caller-selected fallback only.
	fitBaseline := func(method domain.BaselineMethod) (domain.Trace, error) {
		if w := opts.BaselineWindow; w != nil {
			return sigproc.FitBaselineWindow(signal, w.Start, w.End, method, opts.BaselineOrder)
		}
		return sigproc.FitBaseline(signal, method, opts.BaselineOrder)
	}
	baseline, err := fitBaseline(opts.BaselineMethod)
	if err != nil {
		if opts.FallbackToPolynomial && errors.Is(err, sigproc.ErrFitDivergence) {
			baseline, err = fitBaseline(domain.BaselinePolynomial)
			if err != nil {
				return nil, fmt.Errorf("condition %s: polynomial fallback: %w", rec.SessionID, err)
			}
			meta.BaselineMethod = domain.BaselinePolynomial
		} else {
			return nil, fmt.Errorf("condition %s: %w", rec.SessionID, err)
		}
	}

	// Stage 4: dF/F with invalid-sample flagging.
	dff := domain.Trace{
		Timestamps: append([]float64(nil), signal.Timestamps...),
		Values:     make([]float64, signal.Len()),
	}
	for i, v := range signal.Values {
		b := baseline.Values[i]
		if math.Abs(b) < baselineFloor {
			meta.InvalidSamples = append(meta.InvalidSamples, i)
			dff.Values[i] = 0
			continue
		}
		dff.Values[i] = (v - b) / b
	}
	if frac := float64(len(meta.InvalidSamples)) / float64(dff.Len()); frac > opts.MaxInvalidFraction {
		first := meta.InvalidSamples[0]
		return nil, fmt.Errorf("condition %s: %.1f%% of samples invalid (first at index %d, t=%.3fs), allowed %.1f%%: %w",
			rec.SessionID, frac*100, first, dff.Timestamps[first], opts.MaxInvalidFraction*100, ErrBaselineCollapse)
	}

	// Stage 5: Z-score over the whole trace or the designated window.
	zscore, err := zScore(dff, meta.InvalidSamples, opts.ZScoreWindow)
	if err != nil {
		return nil, fmt.Errorf("condition %s: %w", rec.SessionID, err)
	}

	return &domain.ConditionedTrace{
		SessionID: rec.SessionID,
		DFF:       dff,
		ZScore:    zscore,
		Meta:      meta,
	}, nil
}

// zScore standardizes dff using mean/std computed over the window (or the
// whole trace). Invalid samples are excluded from the statistics but still
// standardized in the output. A zero std yields an all-zero trace rather
// than dividing by zero.
func zScore(dff domain.Trace, invalid []int, window *Window) (domain.Trace, error) {
	skip := make(map[int]struct{}, len(invalid))
	for _, i := range invalid {
		skip[i] = struct{}{}
	}

	var stats []float64
	for i, ts := range dff.Timestamps {
		if _, bad := skip[i]; bad {
			continue
		}
		if window != nil && (ts < window.Start || ts > window.End) {
			continue
		}
		stats = append(stats, dff.Values[i])
	}
	if len(stats) < 2 {
		return domain.Trace{}, fmt.Errorf("z-score: %d usable baseline samples: %w", len(stats), sigproc.ErrInvalidParameter)
	}

	m := 0.0
	for _, v := range stats {
		m += v
	}
	m /= float64(len(stats))
	sd := 0.0
	for _, v := range stats {
		d := v - m
		sd += d * d
	}
	sd = math.Sqrt(sd / float64(len(stats)))

	out := domain.Trace{
		Timestamps: append([]float64(nil), dff.Timestamps...),
		Values:     make([]float64, dff.Len()),
	}
	if sd == 0 {
		return out, nil
	}
	for i, v := range dff.Values {
		out.Values[i] = (v - m) / sd
	}
	return out, nil
}
