// ABOUTME: Runner for evolution benchmarks: executes scenarios and load runs on fresh ledgers
// ABOUTME: Scores each scenario and exports results as JSON

package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/metrics"
	"github.com/harper/persona/internal/models"
	"github.com/harper/persona/internal/storage/sqlite"
)

// benchmarkConfidence is the confidence given to profile lists from processed sessions
const benchmarkConfidence = 0.7

// RunnerOptions configures a Runner. Zero values pick defaults.
type RunnerOptions struct {
	// DataDir holds one throwaway database per run; empty runs in memory
	DataDir string
	Verbose bool
	Out     io.Writer
	Logger  *zap.Logger
}

// Runner executes benchmark scenarios
type Runner struct {
	dataDir string
	verbose bool
	out     io.Writer
	logger  *zap.Logger
	metrics *MetricsCalculator
}

// NewRunner creates a new benchmark runner
func NewRunner(opts RunnerOptions) *Runner {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		dataDir: opts.DataDir,
		verbose: opts.Verbose,
		out:     out,
		logger:  logger,
		metrics: NewMetricsCalculator(),
	}
}

// pipeline is the storage and write path for one run
type pipeline struct {
	store     *sqlite.Storage
	ingestor  *core.Ingestor
	processor *core.SessionProcessor
	cleanup   func()
}

func (r *Runner) newPipeline(name string, parallelism int) (*pipeline, error) {
	var (
		store *sqlite.Storage
		err   error
		path  string
	)
	if r.dataDir == "" {
		store, err = sqlite.NewStorageInMemory()
	} else {
		path = filepath.Join(r.dataDir, fmt.Sprintf("persona_bench_%s_%d.db", name, time.Now().UnixNano()))
		store, err = sqlite.NewStorageWithPath(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create benchmark storage: %w", err)
	}

	rec := metrics.New()
	ingestor := core.NewIngestor(store, core.IngestorOptions{
		Logger:      r.logger,
		Metrics:     rec,
		Parallelism: parallelism,
	})

	return &pipeline{
		store:     store,
		ingestor:  ingestor,
		processor: core.NewSessionProcessor(ingestor, store, nil, benchmarkConfidence, r.logger, rec),
		cleanup: func() {
			_ = store.Close()
			if path != "" {
				for _, suffix := range []string{"", "-wal", "-shm"} {
					_ = os.Remove(path + suffix)
				}
			}
		},
	}, nil
}

// RunScenario executes a scenario against a fresh ledger and scores it.
// A step that misbehaves fails the scenario; only infrastructure errors are returned.
func (r *Runner) RunScenario(ctx context.Context, scenario Scenario) (Result, error) {
	if r.verbose {
		fmt.Fprintf(r.out, "\n========================================\n")
		fmt.Fprintf(r.out, "RUNNING: %s\n", scenario.Name)
		fmt.Fprintf(r.out, "========================================\n")
		fmt.Fprintf(r.out, "Description: %s\n\n", scenario.Description)
	}

	p, err := r.newPipeline(scenario.ID, 0)
	if err != nil {
		return Result{}, err
	}
	defer p.cleanup()

	for i, step := range scenario.Steps {
		if err := r.runStep(ctx, p, step); err != nil {
			return Result{
				ScenarioID:   scenario.ID,
				ScenarioName: scenario.Name,
				Status:       "FAIL",
				ErrorMessage: fmt.Sprintf("step %d: %v", i+1, err),
			}, nil
		}
	}

	truth := scenario.GroundTruth
	snap, err := p.store.GetSnapshot(ctx, truth.ClientID)
	if err != nil {
		return Result{}, fmt.Errorf("reading snapshot: %w", err)
	}
	count, err := p.store.CountDeltas(ctx, truth.ClientID)
	if err != nil {
		return Result{}, fmt.Errorf("counting deltas: %w", err)
	}
	drift, err := p.store.VerifySnapshot(ctx, truth.ClientID)
	if err != nil {
		return Result{}, fmt.Errorf("verifying snapshot: %w", err)
	}
	insights := make(map[string]*models.StoredInsight, len(truth.ExpectedInsights))
	for session := range truth.ExpectedInsights {
		insight, err := p.store.GetInsight(ctx, session)
		if err != nil {
			return Result{}, fmt.Errorf("reading insight %s: %w", session, err)
		}
		insights[session] = insight
	}

	result := r.metrics.Evaluate(scenario, snap, count, drift, insights)

	if r.verbose {
		fmt.Fprintf(r.out, "Persona Accuracy:   %.2f\n", result.PersonaAccuracy)
		fmt.Fprintf(r.out, "Ledger Consistency: %.2f\n", result.LedgerConsistency)
		fmt.Fprintf(r.out, "Insight Fidelity:   %.2f\n", result.InsightFidelity)
		fmt.Fprintf(r.out, "Status: %s\n", result.Status)
	}

	return result, nil
}

func (r *Runner) runStep(ctx context.Context, p *pipeline, step Step) error {
	switch {
	case step.Batch != nil:
		res, err := p.ingestor.Ingest(ctx, *step.Batch)
		var verr *models.ValidationError
		if step.ExpectRejected {
			if !errors.As(err, &verr) {
				return fmt.Errorf("batch %s should have been rejected, got %v", step.Batch.SessionID, err)
			}
			if r.verbose {
				fmt.Fprintf(r.out, "[%s] rejected as expected: %v\n", step.Batch.SessionID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("ingesting batch %s: %w", step.Batch.SessionID, err)
		}
		if r.verbose {
			fmt.Fprintf(r.out, "[%s] %d delta(s)\n", step.Batch.SessionID, len(res.Deltas))
		}
		return nil

	case step.Session != nil:
		res, err := p.processor.Process(ctx, *step.Session)
		if err != nil {
			return fmt.Errorf("processing session %s: %w", step.Session.SessionID, err)
		}
		if r.verbose {
			n := 0
			if res.Ingest != nil {
				n = len(res.Ingest.Deltas)
			}
			fmt.Fprintf(r.out, "[%s] insight stored, %d delta(s)\n", step.Session.SessionID, n)
		}
		return nil

	default:
		return fmt.Errorf("step has neither a batch nor a session")
	}
}

// RunAll executes every scenario
func (r *Runner) RunAll(ctx context.Context) ([]Result, error) {
	scenarios := AllScenarios()
	results := make([]Result, 0, len(scenarios))

	for _, scenario := range scenarios {
		result, err := r.RunScenario(ctx, scenario)
		if err != nil {
			return nil, fmt.Errorf("scenario %s failed: %w", scenario.ID, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// LoadConfig shapes a synthetic load run
type LoadConfig struct {
	Clients          int
	BatchesPerClient int
	ItemsPerBatch    int
	Parallelism      int
}

// LoadResult reports throughput and ledger health after a load run
type LoadResult struct {
	Clients          int      `json:"clients"`
	Batches          int      `json:"batches"`
	Deltas           int      `json:"deltas"`
	Failed           int      `json:"failed"`
	Drifted          []string `json:"drifted"`
	DurationMillis   float64  `json:"duration_ms"`
	BatchesPerSecond float64  `json:"batches_per_second"`
}

var loadFields = []models.Field{
	models.FieldOccupation,
	models.FieldValues,
	models.FieldLocation,
	models.FieldStrengths,
	models.FieldGoalsPrimary,
	models.FieldCommStyle,
	models.FieldBehaviors,
	models.FieldAchievements,
}

// LoadBatches generates interleaved batches; per client, confidence rises with each batch
func LoadBatches(cfg LoadConfig) []models.ExtractionBatch {
	batches := make([]models.ExtractionBatch, 0, cfg.Clients*cfg.BatchesPerClient)
	for b := 0; b < cfg.BatchesPerClient; b++ {
		confidence := 0.5 + 0.49*float64(b+1)/float64(cfg.BatchesPerClient)
		for c := 0; c < cfg.Clients; c++ {
			batch := models.ExtractionBatch{
				ClientID:  fmt.Sprintf("load-%04d", c),
				SessionID: fmt.Sprintf("load-%04d-s%03d", c, b),
			}
			for i := 0; i < cfg.ItemsPerBatch; i++ {
				field := loadFields[(b+i)%len(loadFields)]
				value := models.SetValue(fmt.Sprintf("item-%d-%d", b, i))
				if kind, _ := field.Kind(); kind == models.KindScalar {
					value = models.ScalarValue(fmt.Sprintf("value-%d-%d", b, i))
				}
				batch.Items = append(batch.Items, models.ExtractionItem{
					Field:      field,
					Value:      value,
					Confidence: confidence,
				})
			}
			batches = append(batches, batch)
		}
	}
	return batches
}

// RunLoad ingests generated batches in parallel and verifies every snapshot afterwards
func (r *Runner) RunLoad(ctx context.Context, cfg LoadConfig) (*LoadResult, error) {
	if cfg.Clients < 1 || cfg.BatchesPerClient < 1 || cfg.ItemsPerBatch < 1 {
		return nil, fmt.Errorf("load run needs at least one client, batch, and item")
	}

	p, err := r.newPipeline("load", cfg.Parallelism)
	if err != nil {
		return nil, err
	}
	defer p.cleanup()

	batches := LoadBatches(cfg)

	start := time.Now()
	outcomes, err := p.ingestor.IngestAll(ctx, batches)
	if err != nil {
		return nil, fmt.Errorf("ingesting load: %w", err)
	}
	elapsed := time.Since(start)

	result := &LoadResult{
		Clients:        cfg.Clients,
		Batches:        len(batches),
		Drifted:        []string{},
		DurationMillis: float64(elapsed.Microseconds()) / 1000,
	}
	if elapsed > 0 {
		result.BatchesPerSecond = float64(len(batches)) / elapsed.Seconds()
	}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			result.Failed++
			r.logger.Warn("load batch failed", zap.Error(o.Err))
		case o.Result != nil:
			result.Deltas += len(o.Result.Deltas)
		}
	}

	for c := 0; c < cfg.Clients; c++ {
		id := fmt.Sprintf("load-%04d", c)
		drift, err := p.store.VerifySnapshot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", id, err)
		}
		if len(drift) > 0 {
			result.Drifted = append(result.Drifted, id)
		}
	}

	return result, nil
}

// Summary is the exported form of a benchmark run
type Summary struct {
	Timestamp  string      `json:"timestamp"`
	TotalTests int         `json:"total_tests"`
	Passed     int         `json:"passed"`
	Failed     int         `json:"failed"`
	Results    []Result    `json:"results"`
	Load       *LoadResult `json:"load,omitempty"`
}

// Summarize counts passes and failures
func Summarize(results []Result, load *LoadResult) Summary {
	s := Summary{
		Timestamp:  time.Now().Format(time.RFC3339),
		TotalTests: len(results),
		Results:    results,
		Load:       load,
	}
	for _, result := range results {
		if result.Status == "PASS" {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// ExportResults writes the summary to outputPath as JSON
func ExportResults(summary Summary, outputPath string) error {
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
