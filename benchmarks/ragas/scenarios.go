// ABOUTME: Benchmark scenarios with ground truth for the halal food pipeline
// ABOUTME: Seed restaurants are embedded so every run indexes the same data

package ragas

import (
	"bytes"
	_ "embed"

	"github.com/ummati/ummati/internal/ingest"
	"github.com/ummati/ummati/internal/models"
)

//go:embed testdata/restaurants.yaml
var seedYAML []byte

// SeedRestaurants returns the restaurants every scenario's ground truth refers to
func SeedRestaurants() ([]models.Restaurant, error) {
	return ingest.Load(bytes.NewReader(seedYAML))
}

// TestScenario represents a complete RAGAS benchmark test
type TestScenario struct {
	ID          string
	Name        string
	Description string
	History     []models.Message
	GroundTruth GroundTruth
}

// GroundTruth defines expected outcomes for RAGAS evaluation
type GroundTruth struct {
	ExpectedInResponse  []string // Strings that MUST appear in response
	ForbiddenInResponse []string // Strings that MUST NOT appear in response

	// Restaurants that should be in the retrieved context
	ExpectedContextItems []string
}

// TestResult represents the outcome of a benchmark test
type TestResult struct {
	TestID             string                 `json:"test_id"`
	TestName           string                 `json:"test_name"`
	FaithfulnessScore  float64                `json:"faithfulness"`
	ContextRecallScore float64                `json:"context_recall"`
	OverallScore       float64                `json:"overall"`
	Status             string                 `json:"status"` // "PASS" or "FAIL"
	Details            map[string]interface{} `json:"details,omitempty"`
	ErrorMessage       string                 `json:"error,omitempty"`
}

func user(content string) models.Message {
	return models.Message{Role: models.RoleUser, Content: content}
}

func assistant(content string) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: content}
}

// GetAllTests returns every benchmark scenario
func GetAllTests() []TestScenario {
	return []TestScenario{
		{
			ID:          "chicago_spicy",
			Name:        "Spicy chicken in Chicago",
			Description: "Single-turn query that should surface the Devon Avenue restaurants",
			History:     []models.Message{user("spicy chicken in Chicago")},
			GroundTruth: GroundTruth{
				ExpectedInResponse:   []string{"Sabri Nihari"},
				ExpectedContextItems: []string{"Sabri Nihari", "Ghareeb Nawaz"},
			},
		},
		{
			ID:          "dearborn_followup",
			Name:        "Dearborn follow-up",
			Description: "Multi-turn history where only the last message carries the query",
			History: []models.Message{
				user("Salaam! I'm visiting Michigan next week."),
				assistant("Wa alaikum salaam! What kind of food are you in the mood for?"),
				user("Lebanese shawarma in Dearborn"),
			},
			GroundTruth: GroundTruth{
				ExpectedInResponse:   []string{"Al-Bayan"},
				ExpectedContextItems: []string{"Al-Bayan"},
			},
		},
		{
			ID:          "houston_bbq",
			Name:        "Houston barbecue",
			Description: "Answer must stay inside the retrieved records",
			History:     []models.Message{user("halal barbecue in Houston, Texas")},
			GroundTruth: GroundTruth{
				ExpectedInResponse:   []string{"Himalaya"},
				ForbiddenInResponse:  []string{"pork"},
				ExpectedContextItems: []string{"Himalaya Restaurant"},
			},
		},
	}
}

// GetTest looks up a scenario by ID
func GetTest(id string) (TestScenario, bool) {
	for _, scenario := range GetAllTests() {
		if scenario.ID == id {
			return scenario, true
		}
	}
	return TestScenario{}, false
}
