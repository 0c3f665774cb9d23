package boutdetect

import (
	"errors"
	"math"
	"testing"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/sigproc"
)

func makeSpeed(n int, dt float64, fn func(t float64) float64) domain.Trace {
	tr := domain.Trace{
		Timestamps: make([]float64, n),
		Values:     make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		tr.Timestamps[i] = t
		tr.Values[i] = fn(t)
	}
	return tr
}

func baseConfig() Config {
	return Config{
		SmoothWindow:      1,
		EnterThreshold:    2.0,
		ExitThreshold:     1.0,
		MinOnsetDuration:  0.1,
		MinOffsetDuration: 0.1,
		MinBoutDuration:   1.0,
		MergeGap:          0.5,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero smooth window", func(c *Config) { c.SmoothWindow = 0 }},
		{"zero enter threshold", func(c *Config) { c.EnterThreshold = 0 }},
		{"exit above enter", func(c *Config) { c.ExitThreshold = 3.0 }},
		{"negative min bout", func(c *Config) { c.MinBoutDuration = -1 }},
		{"negative merge gap", func(c *Config) { c.MergeGap = -0.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}

	if err := baseConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestDetectSingleRectangularPulse(t *testing.T) {
	speed := makeSpeed(6000, 0.01, func(t float64) float64 {
		if t >= 20 && t < 30 {
			return 10
		}
		return 0
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 1 {
		t.Fatalf("got %d bouts, want 1", len(bouts))
	}

	b := bouts[0]
	if math.Abs(b.StartTime-20) > 0.05 {
		t.Errorf("start time %.3f, want ~20", b.StartTime)
	}
	if math.Abs(b.EndTime-30) > 0.05 {
		t.Errorf("end time %.3f, want ~30", b.EndTime)
	}
	if b.PeakSpeed != 10 {
		t.Errorf("peak speed %.3f, want 10", b.PeakSpeed)
	}
	if math.Abs(b.MeanSpeed-10) > 1e-9 {
		t.Errorf("mean speed %.3f, want 10", b.MeanSpeed)
	}
	if b.SessionID != "sess-1" {
		t.Errorf("session id %q, want sess-1", b.SessionID)
	}
	if b.BoutID == "" {
		t.Error("bout id is empty")
	}
}

func TestDetectShortIsolatedPulseDropped(t *testing.T) {
	speed := makeSpeed(6000, 0.01, func(t float64) float64 {
		if t >= 20 && t < 20.4 {
			return 10
		}
		return 0
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 0 {
		t.Fatalf("got %d bouts, want 0", len(bouts))
	}
}

func TestDetectMergesAcrossSmallGap(t *testing.T) {
	// Two sub-minimum pulses separated by a gap under MergeGap become one
	// bout whose span clears the minimum duration.
	speed := makeSpeed(6000, 0.01, func(t float64) float64 {
		if (t >= 20 && t < 20.6) || (t >= 20.9 && t < 21.5) {
			return 10
		}
		return 0
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 1 {
		t.Fatalf("got %d bouts, want 1 merged bout", len(bouts))
	}
	if math.Abs(bouts[0].StartTime-20) > 0.05 {
		t.Errorf("merged start %.3f, want ~20", bouts[0].StartTime)
	}
	if math.Abs(bouts[0].EndTime-21.5) > 0.05 {
		t.Errorf("merged end %.3f, want ~21.5", bouts[0].EndTime)
	}
}

func TestDetectHysteresisHoldsThroughDips(t *testing.T) {
	// A dip into the hysteresis band and a sub-debounce dropout must not
	// split the bout.
	speed := makeSpeed(6000, 0.01, func(t float64) float64 {
		switch {
		case t >= 24 && t < 25:
			return 1.5 // between exit (1) and enter (2)
		case t >= 27 && t < 27.05:
			return 0 // shorter than MinOffsetDuration
		case t >= 20 && t < 30:
			return 10
		default:
			return 0
		}
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 1 {
		t.Fatalf("got %d bouts, want 1", len(bouts))
	}
	if math.Abs(bouts[0].StartTime-20) > 0.05 || math.Abs(bouts[0].EndTime-30) > 0.05 {
		t.Errorf("bout [%.3f, %.3f], want ~[20, 30]", bouts[0].StartTime, bouts[0].EndTime)
	}
}

func TestDetectDiscardsEdgeTruncatedBouts(t *testing.T) {
	// Running at the first or last sample means the true onset or offset is
	// outside the recording.
	atEnd := makeSpeed(6000, 0.01, func(t float64) float64 {
		if t >= 50 {
			return 10
		}
		return 0
	})
	atStart := makeSpeed(6000, 0.01, func(t float64) float64 {
		if t < 10 {
			return 10
		}
		return 0
	})

	for name, speed := range map[string]domain.Trace{"end": atEnd, "start": atStart} {
		bouts, err := Detect("sess-1", speed, baseConfig())
		if err != nil {
			t.Fatalf("%s: Detect: %v", name, err)
		}
		if len(bouts) != 0 {
			t.Errorf("%s: got %d bouts, want 0", name, len(bouts))
		}
	}
}

func TestDetectBoutsOrderedAndDisjoint(t *testing.T) {
	speed := makeSpeed(12000, 0.01, func(t float64) float64 {
		for _, start := range []float64{10, 30, 50, 70, 90} {
			if t >= start && t < start+5 {
				return 8
			}
		}
		return 0
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 5 {
		t.Fatalf("got %d bouts, want 5", len(bouts))
	}
	seen := make(map[string]bool)
	for i, b := range bouts {
		if b.EndTime <= b.StartTime {
			t.Errorf("bout %d has non-positive span [%.3f, %.3f]", i, b.StartTime, b.EndTime)
		}
		if i > 0 && b.StartTime <= bouts[i-1].EndTime {
			t.Errorf("bout %d overlaps or precedes bout %d", i, i-1)
		}
		if seen[b.BoutID] {
			t.Errorf("duplicate bout id %s", b.BoutID)
		}
		seen[b.BoutID] = true
	}
}

func TestDetectNegativeSpeedRectified(t *testing.T) {
	// Wheel encoders report direction as sign; bout detection works on
	// magnitude.
	speed := makeSpeed(6000, 0.01, func(t float64) float64 {
		if t >= 20 && t < 30 {
			return -10
		}
		return 0
	})

	bouts, err := Detect("sess-1", speed, baseConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(bouts) != 1 {
		t.Fatalf("got %d bouts, want 1", len(bouts))
	}
	if bouts[0].PeakSpeed != 10 {
		t.Errorf("peak speed %.3f, want rectified 10", bouts[0].PeakSpeed)
	}
}

func TestDetectInvalidInputs(t *testing.T) {
	if _, err := Detect("sess-1", domain.Trace{}, baseConfig()); !errors.Is(err, sigproc.ErrInvalidParameter) {
		t.Errorf("empty trace: got %v, want ErrInvalidParameter", err)
	}

	cfg := baseConfig()
	cfg.EnterThreshold = -1
	speed := makeSpeed(100, 0.01, func(float64) float64 { return 0 })
	if _, err := Detect("sess-1", speed, cfg); !errors.Is(err, sigproc.ErrInvalidParameter) {
		t.Errorf("bad config: got %v, want ErrInvalidParameter", err)
	}
}

func TestMovingAverageAbs(t *testing.T) {
	values := []float64{-3, 3, -3, 3, -3}

	got := movingAverageAbs(values, 1)
	for i, v := range got {
		if v != 3 {
			t.Errorf("window 1: sample %d = %.3f, want 3", i, v)
		}
	}

	got = movingAverageAbs(values, 3)
	for i, v := range got {
		if math.Abs(v-3) > 1e-12 {
			t.Errorf("window 3: sample %d = %.3f, want 3", i, v)
		}
	}
}
