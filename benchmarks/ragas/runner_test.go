// ABOUTME: Tests for the benchmark runner, scenarios and result export
// ABOUTME: Runs scenarios through a pipeline backed by in-memory fakes
package ragas

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/llm"
	"github.com/ummati/ummati/internal/models"
)

type fixedEmbedder struct{ err error }

func (e fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, e.err
}

type seededIndex struct{ restaurants []models.Restaurant }

func (i seededIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	var matches []models.Match
	for n, r := range i.restaurants {
		if n == topK {
			break
		}
		matches = append(matches, models.Match{ID: r.ID, Score: 0.9, Restaurant: r})
	}
	return matches, nil
}

type scriptedStream struct {
	parts []string
	next  int
}

func (s *scriptedStream) Recv() (llm.Delta, error) {
	if s.next < len(s.parts) {
		s.next++
		return llm.Delta{Content: s.parts[s.next-1]}, nil
	}
	if s.next == len(s.parts) {
		s.next++
		return llm.Delta{FinishReason: "stop"}, nil
	}
	return llm.Delta{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }

type scriptedCompleter struct{ answer string }

func (c scriptedCompleter) OpenStream(ctx context.Context, messages []models.Message) (llm.Stream, error) {
	return &scriptedStream{parts: strings.SplitAfter(c.answer, " ")}, nil
}

func newTestRunner(t *testing.T, embedErr error, answer string) *BenchmarkRunner {
	t.Helper()
	seeds, err := SeedRestaurants()
	if err != nil {
		t.Fatalf("SeedRestaurants() failed: %v", err)
	}
	pipeline := core.NewPipeline(fixedEmbedder{err: embedErr}, seededIndex{restaurants: seeds}, scriptedCompleter{answer: answer}, core.Options{})
	return NewBenchmarkRunner(pipeline, false)
}

func TestSeedRestaurants(t *testing.T) {
	seeds, err := SeedRestaurants()
	if err != nil {
		t.Fatalf("SeedRestaurants() failed: %v", err)
	}
	if len(seeds) < 5 {
		t.Fatalf("got %d seed restaurants, want at least 5", len(seeds))
	}
	for _, r := range seeds {
		if err := r.Validate(); err != nil {
			t.Errorf("seed %q invalid: %v", r.Name, err)
		}
	}
}

func TestScenariosAreWellFormed(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range GetAllTests() {
		if seen[s.ID] {
			t.Errorf("duplicate scenario ID %s", s.ID)
		}
		seen[s.ID] = true
		if err := models.ValidateHistory(s.History); err != nil {
			t.Errorf("scenario %s has invalid history: %v", s.ID, err)
		}
	}

	if _, ok := GetTest("chicago_spicy"); !ok {
		t.Error("GetTest(chicago_spicy) not found")
	}
	if _, ok := GetTest("nope"); ok {
		t.Error("GetTest(nope) should not be found")
	}
}

func TestRunTest_Pass(t *testing.T) {
	runner := newTestRunner(t, nil, "Sabri Nihari on Devon Ave has spicy chicken.")
	scenario, _ := GetTest("chicago_spicy")

	result := runner.RunTest(context.Background(), scenario)

	if result.Status != "PASS" {
		t.Fatalf("Status = %s, want PASS (%v)", result.Status, result.Details)
	}
	if result.Details["context_items"] != 5 {
		t.Errorf("context_items = %v, want 5", result.Details["context_items"])
	}
}

func TestRunTest_PipelineFailure(t *testing.T) {
	runner := newTestRunner(t, errors.New("embedding service down"), "unused")
	scenario, _ := GetTest("chicago_spicy")

	result := runner.RunTest(context.Background(), scenario)

	if result.Status != "FAIL" {
		t.Errorf("Status = %s, want FAIL", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "embedding service down") {
		t.Errorf("ErrorMessage = %q", result.ErrorMessage)
	}
}

func TestRunAllTests_AndExport(t *testing.T) {
	runner := newTestRunner(t, nil, "Sabri Nihari")
	results := runner.RunAllTests(context.Background(), GetAllTests())
	if len(results) != len(GetAllTests()) {
		t.Fatalf("got %d results, want %d", len(results), len(GetAllTests()))
	}

	path := filepath.Join(t.TempDir(), "results.json")
	if err := ExportResults(results, path); err != nil {
		t.Fatalf("ExportResults() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var summary struct {
		Total   int          `json:"total_tests"`
		Passed  int          `json:"passed"`
		Failed  int          `json:"failed"`
		Results []TestResult `json:"results"`
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if summary.Total != len(results) || summary.Passed+summary.Failed != summary.Total {
		t.Errorf("summary counts = %+v", summary)
	}
	if summary.Passed != 1 {
		t.Errorf("Passed = %d, want 1 (only the Chicago answer names its restaurant)", summary.Passed)
	}
}
