// ABOUTME: Test runner for RAGAS benchmarks - executes scenarios and collects results
// ABOUTME: Runs each scenario through the pipeline and scores answer and context

package ragas

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ummati/ummati/internal/core"
)

// BenchmarkRunner executes RAGAS benchmark tests
type BenchmarkRunner struct {
	pipeline *core.Pipeline
	metrics  *MetricsCalculator
	verbose  bool
}

// NewBenchmarkRunner creates a new benchmark runner over pipeline
func NewBenchmarkRunner(pipeline *core.Pipeline, verbose bool) *BenchmarkRunner {
	return &BenchmarkRunner{
		pipeline: pipeline,
		metrics:  NewMetricsCalculator(),
		verbose:  verbose,
	}
}

// RunTest executes a single benchmark test. Pipeline failures become a
// failed result rather than an error so the remaining tests still run.
func (r *BenchmarkRunner) RunTest(ctx context.Context, scenario TestScenario) TestResult {
	if r.verbose {
		fmt.Printf("\n========================================\n")
		fmt.Printf("RUNNING: %s\n", scenario.Name)
		fmt.Printf("========================================\n")
		fmt.Printf("Description: %s\n\n", scenario.Description)
	}

	start := time.Now()
	stream, err := r.pipeline.Run(ctx, scenario.History)
	if err != nil {
		return failed(scenario, err)
	}
	response, err := stream.Collect()
	if err != nil {
		return failed(scenario, err)
	}

	retrieved := make([]string, 0, len(stream.Matches()))
	for _, m := range stream.Matches() {
		retrieved = append(retrieved, core.FormatRestaurant(m.Restaurant))
	}

	result := r.metrics.EvaluateTest(scenario, response, retrieved)
	result.Details["duration_ms"] = time.Since(start).Milliseconds()

	if r.verbose {
		fmt.Printf("Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("Status: %s\n", result.Status)
	}

	return result
}

func failed(scenario TestScenario, err error) TestResult {
	return TestResult{
		TestID:       scenario.ID,
		TestName:     scenario.Name,
		Status:       "FAIL",
		ErrorMessage: err.Error(),
	}
}

// RunAllTests executes every scenario in order
func (r *BenchmarkRunner) RunAllTests(ctx context.Context, scenarios []TestScenario) []TestResult {
	results := make([]TestResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		results = append(results, r.RunTest(ctx, scenario))
	}
	return results
}

// ExportResults exports test results to JSON
func ExportResults(results []TestResult, outputPath string) error {
	passed := 0
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
	}

	summary := map[string]interface{}{
		"timestamp":   time.Now().Format(time.RFC3339),
		"total_tests": len(results),
		"passed":      passed,
		"failed":      len(results) - passed,
		"results":     results,
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
