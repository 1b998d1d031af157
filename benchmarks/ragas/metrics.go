// ABOUTME: RAGAS-style metrics for faithfulness and context recall
// ABOUTME: Deterministic string matching against scenario ground truth

package ragas

import (
	"fmt"
	"strings"
)

// PassThreshold is the minimum faithfulness and recall for a PASS
const PassThreshold = 0.9

// MetricsCalculator computes RAGAS scores for benchmark tests
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness scores an answer against the restaurants it must
// name and the claims it must not make. Naming every expected restaurant
// with nothing forbidden scores 1.0, one kind of miss scores 0.5 and both
// score 0.0.
func (m *MetricsCalculator) CalculateFaithfulness(
	response string,
	expectedInResponse []string,
	forbiddenInResponse []string,
) (float64, string) {
	unnamed := absentFrom(response, expectedInResponse)
	forbidden := presentIn(response, forbiddenInResponse)

	switch {
	case len(unnamed) == 0 && len(forbidden) == 0:
		return 1.0, "Answer names every expected restaurant and nothing forbidden"
	case len(unnamed) > 0 && len(forbidden) > 0:
		return 0.0, fmt.Sprintf("Answer omits %v and mentions %v", unnamed, forbidden)
	case len(unnamed) > 0:
		return 0.5, fmt.Sprintf("Answer omits %v", unnamed)
	default:
		return 0.5, fmt.Sprintf("Answer mentions %v", forbidden)
	}
}

// CalculateContextRecall is the share of expected restaurants that appear
// in the retrieved context blocks
func (m *MetricsCalculator) CalculateContextRecall(
	retrievedContext []string,
	expectedContextItems []string,
) (float64, string) {
	if len(expectedContextItems) == 0 {
		return 1.0, "Scenario expects no particular restaurants"
	}

	notRetrieved := absentFrom(strings.Join(retrievedContext, "\n"), expectedContextItems)
	recall := float64(len(expectedContextItems)-len(notRetrieved)) / float64(len(expectedContextItems))
	if len(notRetrieved) == 0 {
		return recall, "Every expected restaurant was retrieved"
	}
	return recall, fmt.Sprintf("Recall %.2f, not retrieved: %v", recall, notRetrieved)
}

// EvaluateTest scores one scenario's answer and retrieved context
func (m *MetricsCalculator) EvaluateTest(
	scenario TestScenario,
	finalResponse string,
	retrievedContext []string,
) TestResult {
	truth := scenario.GroundTruth
	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(finalResponse, truth.ExpectedInResponse, truth.ForbiddenInResponse)
	recall, recallDetail := m.CalculateContextRecall(retrievedContext, truth.ExpectedContextItems)

	status := "FAIL"
	if faithfulness >= PassThreshold && recall >= PassThreshold {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: recall,
		OverallScore:       (faithfulness + recall) / 2,
		Status:             status,
		Details: map[string]interface{}{
			"faithfulness_detail": faithfulnessDetail,
			"recall_detail":       recallDetail,
			"final_response":      truncateResponse(finalResponse, 200),
			"context_items":       len(retrievedContext),
		},
	}
}

// absentFrom returns the needles not found in text, ignoring case
func absentFrom(text string, needles []string) []string {
	var missing []string
	lower := strings.ToLower(text)
	for _, n := range needles {
		if !strings.Contains(lower, strings.ToLower(n)) {
			missing = append(missing, n)
		}
	}
	return missing
}

// presentIn returns the needles found in text, ignoring case
func presentIn(text string, needles []string) []string {
	var found []string
	lower := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			found = append(found, n)
		}
	}
	return found
}

func truncateResponse(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
