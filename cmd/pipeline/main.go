// Package main runs the full analysis pipeline over a CSV session directory
// with in-memory stores: ingest -> condition -> bout detection -> alignment
// -> aggregation -> reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"photometry-lab/internal/alignment"
	"photometry-lab/internal/boutdetect"
	"photometry-lab/internal/conditioning"
	"photometry-lab/internal/config"
	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
	"photometry-lab/internal/ingestion"
	"photometry-lab/internal/orchestrator"
	"photometry-lab/internal/reporting"
	"photometry-lab/internal/storage"
	"photometry-lab/internal/storage/memory"
)

func main() {
	cfg := config.Load()

	dataDir := flag.String("data-dir", cfg.DataDir, "Directory of <animal>_<day>_<experiment> session folders")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Output directory for reports")
	optoPower := flag.Float64("opto-power", 0, "Laser power in mW recorded for optogenetic sessions")

	smoothWindow := flag.Int("smooth-window", 11, "Savitzky-Golay window length (odd), 0 disables smoothing")
	smoothOrder := flag.Int("smooth-order", 3, "Savitzky-Golay polynomial order")
	motionCorrection := flag.Bool("motion-correction", true, "Regress out the isosbestic reference")
	baseline := flag.String("baseline", "exponential", "Baseline model: exponential or polynomial")
	baselineOrder := flag.Int("baseline-order", 2, "Polynomial baseline order")
	baselineFallback := flag.Bool("baseline-fallback", true, "Fall back to polynomial when the exponential fit diverges")
	maxInvalidFrac := flag.Float64("max-invalid-frac", 0.05, "Tolerated fraction of baseline-collapse samples")

	enterThreshold := flag.Float64("bout-enter", 2, "Speed threshold to enter a bout (cm/s)")
	exitThreshold := flag.Float64("bout-exit", 1, "Speed threshold to stay in a bout (cm/s)")
	boutSmoothWindow := flag.Int("bout-smooth-window", 5, "Boxcar window for speed smoothing (samples)")
	minOnset := flag.Float64("bout-min-onset", 0.2, "Seconds above threshold to confirm bout onset")
	minOffset := flag.Float64("bout-min-offset", 0.2, "Seconds below threshold to confirm bout offset")
	minBout := flag.Float64("bout-min-duration", 1, "Minimum bout duration in seconds")
	mergeGap := flag.Float64("bout-merge-gap", 0.5, "Gap below which short bouts merge, seconds")

	pre := flag.Float64("pre", 5, "Window seconds before event onset")
	post := flag.Float64("post", 10, "Window seconds after event onset")
	gridStep := flag.Float64("grid-step", 0, "Canonical grid step in seconds, 0 uses the trace sampling interval")
	alignChannel := flag.String("align-channel", "zscore", "Conditioned channel for alignment: dff or zscore")
	minAnimals := flag.Int("min-animals", 2, "Animal count below which a group is flagged LOW_N")

	flag.Parse()

	logger := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling", sig)
		cancel()
	}()

	stores := orchestrator.Stores{
		Sessions:    memory.NewSessionStore(),
		Events:      memory.NewEventStore(),
		Bouts:       memory.NewBoutStore(),
		Speed:       memory.NewSpeedSampleStore(),
		Fluor:       memory.NewFluorSampleStore(),
		Conditioned: memory.NewConditionedSampleStore(),
		GroupStats:  memory.NewGroupStatsStore(),
	}
	animalStore := memory.NewAnimalStore()

	if err := ingestSessions(ctx, logger, *dataDir, *optoPower, animalStore, stores); err != nil {
		logger.Fatalf("ingest: %v", err)
	}

	opts := orchestrator.Options{
		Conditioning: conditioning.Options{
			Smoothing:            *smoothWindow > 0,
			SmoothWindow:         *smoothWindow,
			SmoothOrder:          *smoothOrder,
			MotionCorrection:     *motionCorrection,
			BaselineMethod:       domain.BaselineMethod(*baseline),
			BaselineOrder:        *baselineOrder,
			FallbackToPolynomial: *baselineFallback,
			MaxInvalidFraction:   *maxInvalidFrac,
			ChannelTolerance:     1e-6,
		},
		Bout: boutdetect.Config{
			SmoothWindow:      *boutSmoothWindow,
			EnterThreshold:    *enterThreshold,
			ExitThreshold:     *exitThreshold,
			MinOnsetDuration:  *minOnset,
			MinOffsetDuration: *minOffset,
			MinBoutDuration:   *minBout,
			MergeGap:          *mergeGap,
		},
		Alignment: alignment.Params{
			Pre:      *pre,
			Post:     *post,
			GridStep: *gridStep,
		},
		AlignChannel: domain.Channel(*alignChannel),
		MinAnimals:   *minAnimals,
	}

	result, err := orchestrator.New(stores, opts, logger).Run(ctx)
	if err != nil {
		logger.Fatalf("pipeline: %v", err)
	}
	logger.Printf("sessions processed=%d failed=%d bouts=%d windows=%d skipped=%d groups=%d",
		result.SessionsProcessed, result.SessionsFailed, result.BoutsDetected,
		result.WindowsAligned, result.EventsSkipped, result.GroupsAggregated)

	if err := writeReports(ctx, *outputDir, animalStore, stores); err != nil {
		logger.Fatalf("reports: %v", err)
	}
	logger.Printf("reports written to %s", *outputDir)
}

// ingestSessions loads every session directory into the stores.
func ingestSessions(ctx context.Context, logger *log.Logger, dataDir string, optoPower float64,
	animalStore storage.AnimalStore, stores orchestrator.Stores) error {

	sessions, err := ingestion.ScanSessionDir(dataDir)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no session directories under %s", dataDir)
	}

	for _, sf := range sessions {
		animal := &domain.Animal{AnimalID: sf.AnimalID}
		if err := animalStore.Insert(ctx, animal); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert animal %s: %w", sf.AnimalID, err)
		}

		session := &domain.Session{
			SessionID:      idhash.ComputeSessionID(sf.AnimalID, sf.Day, sf.Experiment),
			AnimalID:       sf.AnimalID,
			Day:            sf.Day,
			ExperimentType: sf.Experiment,
		}
		if err := stores.Sessions.Insert(ctx, session); err != nil {
			return fmt.Errorf("insert session %s %s: %w", sf.AnimalID, sf.Day, err)
		}

		mgrOpts := sf.ManagerOptionsFor(session, optoPower)
		mgrOpts.SpeedStore = stores.Speed
		mgrOpts.FluorStore = stores.Fluor
		mgrOpts.EventStore = stores.Events
		mgr := ingestion.NewManager(mgrOpts)

		nSpeed, err := mgr.IngestSpeed(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: speed: %w", sf.AnimalID, sf.Day, err)
		}
		nFluor, err := mgr.IngestFluor(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: fluorescence: %w", sf.AnimalID, sf.Day, err)
		}
		nEvents, err := mgr.IngestEvents(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: events: %w", sf.AnimalID, sf.Day, err)
		}
		nOpto, err := mgr.IngestOptoEvents(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: opto: %w", sf.AnimalID, sf.Day, err)
		}

		logger.Printf("ingested %s %s: %d speed, %d fluor, %d events, %d opto",
			sf.AnimalID, sf.Day, nSpeed, nFluor, nEvents, nOpto)
	}
	return nil
}

// writeReports renders the Markdown summary and CSV tables.
func writeReports(ctx context.Context, outputDir string, animalStore storage.AnimalStore, stores orchestrator.Stores) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	gen := reporting.NewGenerator(animalStore, stores.Sessions, stores.Events, stores.Bouts, stores.GroupStats)
	report, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	traces, err := gen.GroupTraces(ctx)
	if err != nil {
		return err
	}

	files := map[string]string{
		"report.md":        reporting.RenderMarkdown(report),
		"group_stats.csv":  reporting.RenderGroupStatsCSV(report.GroupStats),
		"group_traces.csv": reporting.RenderGroupTracesCSV(traces),
		"bouts.csv":        reporting.RenderBoutsCSV(report.BoutSummaries),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
