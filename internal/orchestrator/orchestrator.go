// Package orchestrator runs the batch analysis pipeline: per session it
// conditions the photometry recording, detects locomotion bouts and derives
// running events, aligns conditioned traces on events, then aggregates
// aligned windows across animals and persists the group statistics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"photometry-lab/internal/alignment"
	"photometry-lab/internal/boutdetect"
	"photometry-lab/internal/conditioning"
	"photometry-lab/internal/domain"
	"photometry-lab/internal/ingestion"
	"photometry-lab/internal/observability"
	"photometry-lab/internal/storage"
)

// Stores bundles every store the pipeline reads or writes.
type Stores struct {
	Sessions    storage.SessionStore
	Events      storage.EventStore
	Bouts       storage.BoutStore
	Speed       storage.SpeedSampleStore
	Fluor       storage.FluorSampleStore
	Conditioned storage.ConditionedSampleStore
	GroupStats  storage.GroupStatsStore
}

// Options is the complete pipeline configuration. Every analysis choice is
// explicit; the zero value is not runnable.
type Options struct {
	Conditioning conditioning.Options
	Bout         boutdetect.Config
	Alignment    alignment.Params

	// AlignChannel selects which conditioned channel feeds alignment,
	// ChannelDFF or ChannelZScore.
	AlignChannel domain.Channel

	// MinAnimals is the animal count below which a condition group is
	// flagged LowN.
	MinAnimals int
}

// Validate checks the options before a run.
func (o Options) Validate() error {
	if err := o.Bout.Validate(); err != nil {
		return fmt.Errorf("bout config: %w", err)
	}
	if err := o.Alignment.Validate(); err != nil {
		return fmt.Errorf("alignment params: %w", err)
	}
	if o.AlignChannel != domain.ChannelDFF && o.AlignChannel != domain.ChannelZScore {
		return fmt.Errorf("align channel %q is not a conditioned channel", o.AlignChannel)
	}
	if o.MinAnimals < 1 {
		return fmt.Errorf("min animals %d, need >= 1", o.MinAnimals)
	}
	return nil
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	SessionsProcessed int
	SessionsFailed    int
	BoutsDetected     int
	RunningEvents     int
	WindowsAligned    int
	EventsSkipped     int
	GroupsAggregated  int
}

// Orchestrator executes the pipeline over all stored sessions.
type Orchestrator struct {
	stores  Stores
	opts    Options
	metrics *observability.Metrics
	logger  *log.Logger
	clock   func() time.Time
}

// New creates an orchestrator. A nil logger falls back to the standard one.
func New(stores Stores, opts Options, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		stores:  stores,
		opts:    opts,
		metrics: observability.DefaultMetrics,
		logger:  logger,
		clock:   time.Now,
	}
}

// WithMetrics replaces the default metrics instance.
func (o *Orchestrator) WithMetrics(m *observability.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Run executes every phase over all sessions. A session whose conditioning
// or detection fails is logged, counted and skipped; storage errors outside
// per-session work abort the run.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if err := o.opts.Validate(); err != nil {
		return nil, err
	}

	sessions, err := o.stores.Sessions.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return &RunResult{}, nil
	}

	result := &RunResult{}
	experimentOf := make(map[string]domain.ExperimentType, len(sessions))
	var windows []domain.AlignedWindow

	for _, session := range sessions {
		experimentOf[session.SessionID] = session.ExperimentType

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sessionWindows, err := o.runSession(ctx, session, result)
		if err != nil {
			o.logger.Printf("session %s (%s %s): %v", session.SessionID, session.AnimalID, session.Day, err)
			result.SessionsFailed++
			continue
		}
		windows = append(windows, sessionWindows...)
		result.SessionsProcessed++
	}

	stats, err := o.aggregate(ctx, windows, experimentOf)
	if err != nil {
		return nil, err
	}
	result.GroupsAggregated = len(stats)

	o.metrics.LastSuccessfulPipeline.Set(float64(o.clock().Unix()))
	return result, nil
}

// runSession executes the per-session phases and returns the session's
// aligned windows.
func (o *Orchestrator) runSession(ctx context.Context, session *domain.Session, result *RunResult) ([]domain.AlignedWindow, error) {
	conditioned, err := o.conditionSession(ctx, session)
	if err != nil {
		return nil, err
	}

	bouts, err := o.detectBouts(ctx, session, result)
	if err != nil {
		return nil, err
	}

	if err := o.deriveRunningEvents(ctx, session, bouts, result); err != nil {
		return nil, err
	}

	if conditioned == nil {
		return nil, nil
	}
	return o.alignSession(ctx, session, conditioned, result)
}

// conditionSession loads the raw channels, runs conditioning and persists
// the derived samples. Sessions without fluorescence data are skipped.
func (o *Orchestrator) conditionSession(ctx context.Context, session *domain.Session) (*domain.ConditionedTrace, error) {
	start := o.clock()

	signal, err := o.loadFluorTrace(ctx, session.SessionID, domain.ChannelSignal)
	if err != nil {
		return nil, err
	}
	reference, err := o.loadFluorTrace(ctx, session.SessionID, domain.ChannelReference)
	if err != nil {
		return nil, err
	}
	if signal.Len() == 0 || reference.Len() == 0 {
		return nil, nil
	}

	rec := domain.TwoChannelRecording{
		SessionID: session.SessionID,
		Signal:    signal,
		Reference: reference,
	}
	conditioned, err := conditioning.Condition(rec, o.opts.Conditioning)
	if err != nil {
		o.recordPhase("condition", "error", start)
		o.metrics.ConditioningFailures.WithLabelValues(failureStage(err)).Inc()
		return nil, fmt.Errorf("condition: %w", err)
	}

	if err := o.storeConditioned(ctx, conditioned); err != nil {
		o.recordPhase("condition", "error", start)
		return nil, err
	}

	o.metrics.SessionsConditioned.Inc()
	o.metrics.ArtifactSamplesMarked.Add(float64(len(conditioned.Meta.InvalidSamples)))
	if o.opts.Conditioning.BaselineMethod == domain.BaselineExponential &&
		conditioned.Meta.BaselineMethod == domain.BaselinePolynomial {
		o.metrics.BaselineFallbacks.Inc()
	}
	o.recordPhase("condition", "ok", start)
	return conditioned, nil
}

func (o *Orchestrator) loadFluorTrace(ctx context.Context, sessionID string, ch domain.Channel) (domain.Trace, error) {
	samples, err := o.stores.Fluor.GetBySessionChannel(ctx, sessionID, ch)
	if err != nil {
		return domain.Trace{}, fmt.Errorf("load %s channel: %w", ch, err)
	}
	trace := domain.Trace{
		Timestamps: make([]float64, len(samples)),
		Values:     make([]float64, len(samples)),
	}
	for i, s := range samples {
		trace.Timestamps[i] = s.Time
		trace.Values[i] = s.Value
	}
	return trace, nil
}

func (o *Orchestrator) storeConditioned(ctx context.Context, ct *domain.ConditionedTrace) error {
	invalid := make(map[int]bool, len(ct.Meta.InvalidSamples))
	for _, i := range ct.Meta.InvalidSamples {
		invalid[i] = true
	}

	samples := make([]*domain.ConditionedSample, 0, 2*ct.DFF.Len())
	for i := range ct.DFF.Values {
		samples = append(samples, &domain.ConditionedSample{
			SessionID: ct.SessionID,
			Channel:   domain.ChannelDFF,
			Time:      ct.DFF.Timestamps[i],
			Value:     ct.DFF.Values[i],
			Invalid:   invalid[i],
		})
	}
	for i := range ct.ZScore.Values {
		samples = append(samples, &domain.ConditionedSample{
			SessionID: ct.SessionID,
			Channel:   domain.ChannelZScore,
			Time:      ct.ZScore.Timestamps[i],
			Value:     ct.ZScore.Values[i],
			Invalid:   invalid[i],
		})
	}

	if err := o.stores.Conditioned.InsertBulk(ctx, samples); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil // already conditioned on a previous run
		}
		return fmt.Errorf("store conditioned samples: %w", err)
	}
	return nil
}

// detectBouts loads the speed trace and persists detected bouts. Sessions
// without speed data yield no bouts.
func (o *Orchestrator) detectBouts(ctx context.Context, session *domain.Session, result *RunResult) ([]domain.Bout, error) {
	start := o.clock()

	samples, err := o.stores.Speed.GetBySessionID(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load speed samples: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	speed := domain.Trace{
		Timestamps: make([]float64, len(samples)),
		Values:     make([]float64, len(samples)),
	}
	for i, s := range samples {
		speed.Timestamps[i] = s.Time
		speed.Values[i] = s.Speed
	}

	bouts, err := boutdetect.Detect(session.SessionID, speed, o.opts.Bout)
	if err != nil {
		o.recordPhase("boutdetect", "error", start)
		return nil, fmt.Errorf("detect bouts: %w", err)
	}

	if len(bouts) > 0 {
		rows := make([]*domain.Bout, len(bouts))
		for i := range bouts {
			rows[i] = &bouts[i]
		}
		if err := o.stores.Bouts.InsertBulk(ctx, rows); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			o.recordPhase("boutdetect", "error", start)
			return nil, fmt.Errorf("store bouts: %w", err)
		}
	}

	result.BoutsDetected += len(bouts)
	o.metrics.BoutsDetected.Add(float64(len(bouts)))
	o.recordPhase("boutdetect", "ok", start)
	return bouts, nil
}

// deriveRunningEvents persists start/stop events for the session's bouts,
// labeled by the drug timing of each bout midpoint.
func (o *Orchestrator) deriveRunningEvents(ctx context.Context, session *domain.Session, bouts []domain.Bout, result *RunResult) error {
	if len(bouts) == 0 {
		return nil
	}

	admins, err := o.drugAdmins(ctx, session.SessionID)
	if err != nil {
		return err
	}

	events := ingestion.RunningEvents(session, bouts, admins)
	if err := o.stores.Events.InsertBulk(ctx, events); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil // already derived on a previous run
		}
		return fmt.Errorf("store running events: %w", err)
	}

	result.RunningEvents += len(events)
	o.metrics.EventsIngested.WithLabelValues(string(domain.EventRunningStart)).Add(float64(len(events) / 2))
	o.metrics.EventsIngested.WithLabelValues(string(domain.EventRunningStop)).Add(float64(len(events) / 2))
	return nil
}

// drugAdmins reads the session's drug events back as an administration
// sequence for timing classification.
func (o *Orchestrator) drugAdmins(ctx context.Context, sessionID string) ([]ingestion.DrugAdmin, error) {
	events, err := o.stores.Events.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	var admins []ingestion.DrugAdmin
	for _, e := range events {
		if e.Type == domain.EventDrug {
			admins = append(admins, ingestion.DrugAdmin{Time: e.OnsetTime, Name: e.Label})
		}
	}
	return admins, nil
}

// alignSession extracts aligned windows for every event of the session from
// the selected conditioned channel.
func (o *Orchestrator) alignSession(ctx context.Context, session *domain.Session, ct *domain.ConditionedTrace, result *RunResult) ([]domain.AlignedWindow, error) {
	start := o.clock()

	trace := ct.DFF
	if o.opts.AlignChannel == domain.ChannelZScore {
		trace = ct.ZScore
	}

	stored, err := o.stores.Events.GetBySessionID(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}

	events := make([]domain.Event, len(stored))
	for i, e := range stored {
		events[i] = *e
	}

	windows, skipped, err := alignment.ExtractWindows(trace, events, o.opts.Alignment)
	if err != nil {
		o.recordPhase("align", "error", start)
		return nil, fmt.Errorf("align: %w", err)
	}

	for _, s := range skipped {
		if errors.Is(s.Reason, alignment.ErrEdgeTruncated) {
			o.metrics.EventsEdgeTruncated.Inc()
		}
	}
	for _, w := range windows {
		o.metrics.WindowsAligned.WithLabelValues(string(w.Event.Type)).Inc()
	}

	result.WindowsAligned += len(windows)
	result.EventsSkipped += len(skipped)
	o.recordPhase("align", "ok", start)
	return windows, nil
}

// aggregate groups all windows by (experiment, event type, label) and
// persists the resulting statistics.
func (o *Orchestrator) aggregate(ctx context.Context, windows []domain.AlignedWindow, experimentOf map[string]domain.ExperimentType) ([]domain.ConditionGroupStats, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	start := o.clock()

	keyOf := func(w domain.AlignedWindow) domain.ConditionKey {
		return domain.ConditionKey{
			Experiment: experimentOf[w.Event.SessionID],
			EventType:  w.Event.Type,
			Label:      w.Event.Label,
		}
	}

	stats, err := alignment.Aggregate(windows, keyOf, o.opts.MinAnimals)
	if err != nil {
		o.recordPhase("aggregate", "error", start)
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	ptrs := make([]*domain.ConditionGroupStats, len(stats))
	for i := range stats {
		ptrs[i] = &stats[i]
		o.metrics.GroupsAggregated.Inc()
		if stats[i].LowN {
			o.metrics.LowNGroups.Inc()
		}
	}

	if err := o.stores.GroupStats.InsertBulk(ctx, ptrs); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		o.recordPhase("aggregate", "error", start)
		return nil, fmt.Errorf("store group stats: %w", err)
	}

	o.recordPhase("aggregate", "ok", start)
	return stats, nil
}

func (o *Orchestrator) recordPhase(phase, status string, start time.Time) {
	o.metrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	o.metrics.PipelineDuration.WithLabelValues(phase).Observe(o.clock().Sub(start).Seconds())
}

// failureStage maps a conditioning error to the metric stage label.
func failureStage(err error) string {
	if errors.Is(err, conditioning.ErrBaselineCollapse) {
		return "baseline"
	}
	return "conditioning"
}
