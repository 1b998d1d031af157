// ABOUTME: Command-line benchmark runner for RAGAS tests
// ABOUTME: Seeds a local index namespace, runs every scenario, writes JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ummati/ummati/benchmarks/ragas"
	"github.com/ummati/ummati/internal/config"
	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/index"
	"github.com/ummati/ummati/internal/ingest"
	"github.com/ummati/ummati/internal/llm"
)

func main() {
	// Command-line flags
	testID := flag.String("test", "", "Run a single scenario by ID. If empty, runs all tests.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	namespace := flag.String("namespace", "bench", "Local index namespace to seed and query")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireOpenAI(); err != nil {
		log.Fatal("OPENAI_API_KEY environment variable is required for benchmarks")
	}
	cfg.IndexBackend = config.BackendLocal
	cfg.PineconeNamespace = *namespace

	fmt.Println("========================================")
	fmt.Println("ummati RAGAS Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	clientCfg := llm.DefaultConfig(cfg.OpenAIKey)
	clientCfg.BaseURL = cfg.OpenAIBaseURL
	clientCfg.ChatModel = cfg.ChatModel
	clientCfg.EmbeddingModel = cfg.EmbeddingModel
	client, err := llm.NewOpenAIClientWithConfig(clientCfg)
	if err != nil {
		log.Fatalf("Failed to create OpenAI client: %v", err)
	}

	idx, err := index.OpenLocal(cfg)
	if err != nil {
		log.Fatalf("Failed to open local index: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := seed(ctx, client, idx, *verbose); err != nil {
		log.Fatalf("Failed to seed benchmark index: %v", err)
	}

	pipeline := core.NewPipeline(client, idx, client, core.Options{
		EmbedTimeout:      cfg.EmbedTimeout,
		RetrieveTimeout:   cfg.RetrieveTimeout,
		StreamOpenTimeout: cfg.StreamOpenTimeout,
		StreamIdleTimeout: cfg.StreamIdleTimeout,
	})
	runner := ragas.NewBenchmarkRunner(pipeline, *verbose)

	scenarios := ragas.GetAllTests()
	if *testID != "" {
		scenario, ok := ragas.GetTest(*testID)
		if !ok {
			log.Fatalf("Unknown test ID: %s", *testID)
		}
		scenarios = []ragas.TestScenario{scenario}
	}

	fmt.Printf("Running %d RAGAS benchmark test(s)...\n", len(scenarios))
	results := runner.RunAllTests(ctx, scenarios)

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")

	failed := 0
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.TestID, result.TestName)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		fmt.Printf("  Faithfulness: %.2f\n", result.FaithfulnessScore)
		fmt.Printf("  Context Recall: %.2f\n", result.ContextRecallScore)
		fmt.Printf("  Overall: %.2f\n", result.OverallScore)
		fmt.Printf("  Status: %s\n", result.Status)
		if result.Status != "PASS" {
			failed++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total Tests: %d\n", len(results))
	fmt.Printf("Passed: %d\n", len(results)-failed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := ragas.ExportResults(results, *outputPath); err != nil {
		log.Fatalf("Failed to export results: %v", err)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// seed replaces the namespace contents with the benchmark restaurants
func seed(ctx context.Context, client *llm.OpenAIClient, idx *index.LocalIndex, verbose bool) error {
	restaurants, err := ragas.SeedRestaurants()
	if err != nil {
		return err
	}
	if _, err := idx.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", idx.Namespace(), err)
	}
	result, err := ingest.NewIngester(client, idx, verbose).Ingest(ctx, restaurants)
	if err != nil {
		return err
	}
	if result.Skipped > 0 {
		return fmt.Errorf("%d seed records skipped: %v", result.Skipped, result.Errors)
	}
	if verbose {
		log.Printf("Seeded %d restaurants into namespace %s", result.Indexed, idx.Namespace())
	}
	return nil
}
