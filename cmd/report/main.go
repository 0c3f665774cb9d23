// Package main renders analysis reports from stored pipeline results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"photometry-lab/internal/config"
	"photometry-lab/internal/reporting"
	chstore "photometry-lab/internal/storage/clickhouse"
	pgstore "photometry-lab/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory to write report files")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("both -postgres-dsn and -clickhouse-dsn are required")
	}

	if err := run(context.Background(), logger, *postgresDSN, *clickhouseDSN, *outputDir); err != nil {
		logger.Fatalf("report: %v", err)
	}
}

func run(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN, outputDir string) error {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer conn.Close()

	gen := reporting.NewGenerator(
		pgstore.NewAnimalStore(pool),
		pgstore.NewSessionStore(pool),
		pgstore.NewEventStore(pool),
		pgstore.NewBoutStore(pool),
		chstore.NewGroupStatsStore(conn),
	)

	report, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	traces, err := gen.GroupTraces(ctx)
	if err != nil {
		return fmt.Errorf("load group traces: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"report.md":        reporting.RenderMarkdown(report),
		"group_stats.csv":  reporting.RenderGroupStatsCSV(report.GroupStats),
		"group_traces.csv": reporting.RenderGroupTracesCSV(traces),
		"bouts.csv":        reporting.RenderBoutsCSV(report.BoutSummaries),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		logger.Printf("wrote %s", path)
	}

	logger.Printf("report: %d animals, %d sessions, %d condition groups",
		report.AnimalCount, report.SessionCount, report.ConditionGroups)
	return nil
}
