package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/batch"
	"github.com/textmill/textmill/internal/config"
	"github.com/textmill/textmill/internal/history"
	"github.com/textmill/textmill/internal/logger"
	"github.com/textmill/textmill/internal/masking"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSONL)")
		outputFile = flag.String("output", "", "Output file path (default: <input>.masked.<ext>)")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for processing")
		noValidate = flag.Bool("no-validate", false, "Skip record validation")
		showStats  = flag.Bool("stats", false, "Show usage history statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input prompts.parquet --output prompts.clean.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	// Optional Postgres usage history
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(&cfg.History, log.WithComponent("history").Logger)
		if err != nil {
			log.Fatal("Failed to connect to history store", zap.Error(err))
		}
		defer store.Close()
	}

	if *showStats {
		if err := showHistoryStats(ctx, store); err != nil {
			log.Fatal("Failed to show stats", zap.Error(err))
		}
		return
	}

	engine, err := masking.New(cfg.Masking, log.WithComponent("masking"))
	if err != nil {
		log.Fatal("Failed to create masking engine", zap.Error(err))
	}

	output := *outputFile
	if output == "" {
		output = defaultOutputPath(*inputFile)
	}

	batchConfig := &batch.Config{
		BatchSize:      *batchSize,
		ValidateData:   !*noValidate,
		ProgressReport: 1000,
		RecordHistory:  store != nil,
	}

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	pipeline := batch.NewPipeline(engine, store, batchConfig, log.Logger)
	result, err := pipeline.ProcessFile(ctx, *inputFile, output)
	if err != nil {
		log.Fatal("Batch masking failed", zap.Error(err))
	}

	log.Info("Dataset masking completed",
		zap.String("input", *inputFile),
		zap.String("output", output),
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("masked_records", result.MaskedRecords),
		zap.Int64("skipped", result.Skipped),
		zap.Int64("total_findings", result.TotalFindings),
		zap.Duration("duration", result.Duration),
		zap.Float64("records_per_second", float64(result.TotalRecords)/result.Duration.Seconds()))

	for entity, count := range result.FindingsByType {
		log.Info("Findings by type", zap.String("entity", entity), zap.Int64("count", count))
	}

	if len(result.Errors) > 0 {
		log.Warn("Processing completed with errors", zap.Strings("errors", result.Errors))
	}
}

// defaultOutputPath derives the output path from the input file name
func defaultOutputPath(input string) string {
	if idx := strings.LastIndex(input, "."); idx != -1 {
		return input[:idx] + ".masked" + input[idx:]
	}
	return input + ".masked"
}

// showHistoryStats displays usage statistics from the history store
func showHistoryStats(ctx context.Context, store *history.Store) error {
	if store == nil {
		return fmt.Errorf("history store is not enabled")
	}

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get history stats: %w", err)
	}

	fmt.Printf("\n=== textmill Usage Statistics ===\n")
	fmt.Printf("Total Operations:   %d\n", stats.TotalEntries)
	fmt.Printf("Failed:             %d\n", stats.FailedEntries)
	fmt.Printf("Total Findings:     %d\n", stats.TotalFindings)
	fmt.Printf("Avg Duration:       %.2f ms\n", stats.AvgDurationMS)

	counts, err := store.CountByOperation(ctx)
	if err != nil {
		return fmt.Errorf("failed to get per-operation counts: %w", err)
	}

	fmt.Printf("\n=== By Operation ===\n")
	for _, c := range counts {
		fmt.Printf("%-16s %d\n", c.Operation, c.Count)
	}

	return nil
}
