// ABOUTME: Command-line runner for persona evolution benchmarks
// ABOUTME: Executes ground-truth scenarios and an optional load run, then writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harper/persona/benchmarks/evolution"
	"github.com/harper/persona/internal/logging"
)

func main() {
	// Command-line flags
	scenarioID := flag.String("test", "", "Run specific scenario (gate_01, union_01, batch_01, reject_01, resolve_01, resolve_02). If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	dataDir := flag.String("data-dir", "", "Directory for throwaway benchmark databases (default in-memory)")
	clients := flag.Int("load-clients", 0, "Clients in the load run (0 skips it)")
	batches := flag.Int("load-batches", 20, "Batches per client in the load run")
	items := flag.Int("load-items", 4, "Items per batch in the load run")
	parallelism := flag.Int("load-parallelism", 8, "Clients ingested concurrently in the load run")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	logger, err := logging.New(*verbose, !*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("========================================")
	fmt.Println("Persona Evolution Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner := evolution.NewRunner(evolution.RunnerOptions{
		DataDir: *dataDir,
		Verbose: *verbose,
		Out:     os.Stdout,
		Logger:  logger,
	})

	var results []evolution.Result
	if *scenarioID == "" {
		fmt.Println("Running all benchmark scenarios...")
		results, err = runner.RunAll(ctx)
		if err != nil {
			logger.Fatal("benchmark failed", zap.Error(err))
		}
	} else {
		scenario, ok := evolution.ScenarioByID(*scenarioID)
		if !ok {
			logger.Fatal("unknown scenario", zap.String("id", *scenarioID))
		}
		fmt.Printf("Running scenario: %s\n", scenario.Name)
		result, err := runner.RunScenario(ctx, scenario)
		if err != nil {
			logger.Fatal("scenario failed", zap.String("id", scenario.ID), zap.Error(err))
		}
		results = []evolution.Result{result}
	}

	var load *evolution.LoadResult
	if *clients > 0 {
		fmt.Printf("\nRunning load: %d clients x %d batches x %d items...\n", *clients, *batches, *items)
		load, err = runner.RunLoad(ctx, evolution.LoadConfig{
			Clients:          *clients,
			BatchesPerClient: *batches,
			ItemsPerBatch:    *items,
			Parallelism:      *parallelism,
		})
		if err != nil {
			logger.Fatal("load run failed", zap.Error(err))
		}
	}

	summary := evolution.Summarize(results, load)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	for _, result := range summary.Results {
		fmt.Printf("\n%s: %s\n", result.ScenarioID, result.ScenarioName)
		fmt.Printf("  Persona Accuracy: %.2f\n", result.PersonaAccuracy)
		fmt.Printf("  Ledger Consistency: %.2f\n", result.LedgerConsistency)
		fmt.Printf("  Insight Fidelity: %.2f\n", result.InsightFidelity)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
	}

	if load != nil {
		fmt.Printf("\nLoad: %d batches, %d deltas, %d failed, %.1f ms (%.0f batches/s)\n",
			load.Batches, load.Deltas, load.Failed, load.DurationMillis, load.BatchesPerSecond)
		if len(load.Drifted) > 0 {
			fmt.Printf("  Drifted: %v\n", load.Drifted)
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Scenarios: %d\n", summary.TotalTests)
	fmt.Printf("Passed: %d\n", summary.Passed)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Println("========================================")

	if err := evolution.ExportResults(summary, *outputPath); err != nil {
		logger.Fatal("failed to export results", zap.Error(err))
	}
	fmt.Printf("Results exported to: %s\n", *outputPath)

	if summary.Failed > 0 || (load != nil && (load.Failed > 0 || len(load.Drifted) > 0)) {
		os.Exit(1)
	}
}
