// Package main loads CSV session data into PostgreSQL and ClickHouse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photometry-lab/internal/config"
	"photometry-lab/internal/domain"
	"photometry-lab/internal/idhash"
	"photometry-lab/internal/ingestion"
	"photometry-lab/internal/observability"
	"photometry-lab/internal/storage"
	chstore "photometry-lab/internal/storage/clickhouse"
	"photometry-lab/internal/storage/migrations"
	pgstore "photometry-lab/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	dataDir := flag.String("data-dir", cfg.DataDir, "Directory of <animal>_<day>_<experiment> session folders")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	optoPower := flag.Float64("opto-power", 0, "Laser power in mW recorded for optogenetic sessions")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("both -postgres-dsn and -clickhouse-dsn are required")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling", sig)
		cancel()
	}()

	if err := run(ctx, logger, *dataDir, *postgresDSN, *clickhouseDSN, *optoPower); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Println("cancelled")
			os.Exit(1)
		}
		logger.Fatalf("ingest: %v", err)
	}
}

func run(ctx context.Context, logger *log.Logger, dataDir, postgresDSN, clickhouseDSN string, optoPower float64) error {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	defer conn.Close()

	animalStore := pgstore.NewAnimalStore(pool)
	sessionStore := pgstore.NewSessionStore(pool)
	eventStore := pgstore.NewEventStore(pool)
	speedStore := chstore.NewSpeedSampleStore(conn)
	fluorStore := chstore.NewFluorSampleStore(conn)

	sessions, err := ingestion.ScanSessionDir(dataDir)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no session directories under %s", dataDir)
	}

	start := time.Now()
	for _, sf := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}

		animal := &domain.Animal{AnimalID: sf.AnimalID}
		if err := animalStore.Insert(ctx, animal); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert animal %s: %w", sf.AnimalID, err)
		}

		session := &domain.Session{
			SessionID:      idhash.ComputeSessionID(sf.AnimalID, sf.Day, sf.Experiment),
			AnimalID:       sf.AnimalID,
			Day:            sf.Day,
			ExperimentType: sf.Experiment,
			RecordedAt:     time.Now().UnixMilli(),
		}
		if err := sessionStore.Insert(ctx, session); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("session %s %s already ingested, skipping", sf.AnimalID, sf.Day)
				continue
			}
			return fmt.Errorf("insert session %s %s: %w", sf.AnimalID, sf.Day, err)
		}

		mgrOpts := sf.ManagerOptionsFor(session, optoPower)
		mgrOpts.SpeedStore = speedStore
		mgrOpts.FluorStore = fluorStore
		mgrOpts.EventStore = eventStore
		mgr := ingestion.NewManager(mgrOpts)

		nSpeed, err := mgr.IngestSpeed(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: speed: %w", sf.AnimalID, sf.Day, err)
		}
		observability.DefaultMetrics.SpeedSamplesStored.Add(float64(nSpeed))

		nFluor, err := mgr.IngestFluor(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: fluorescence: %w", sf.AnimalID, sf.Day, err)
		}
		observability.DefaultMetrics.FluorSamplesStored.Add(float64(nFluor))

		nEvents, err := mgr.IngestEvents(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: events: %w", sf.AnimalID, sf.Day, err)
		}

		nOpto, err := mgr.IngestOptoEvents(ctx)
		if err != nil {
			return fmt.Errorf("session %s %s: opto: %w", sf.AnimalID, sf.Day, err)
		}
		observability.DefaultMetrics.OptoSessionsResolved.Add(float64(nOpto))

		logger.Printf("ingested %s %s: %d speed, %d fluor, %d events, %d opto",
			sf.AnimalID, sf.Day, nSpeed, nFluor, nEvents, nOpto)
	}

	logger.Printf("ingested %d sessions in %s", len(sessions), time.Since(start).Round(time.Millisecond))
	return nil
}
