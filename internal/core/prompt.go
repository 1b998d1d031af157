// ABOUTME: System prompt and retrieval-augmented message assembly
// ABOUTME: Only the final user turn is rewritten; earlier turns pass through untouched
package core

import (
	"strings"

	"github.com/ummati/ummati/internal/models"
)

// SystemPrompt is the fixed instruction sent first on every completion
const SystemPrompt = `You are an Ummati Halal Food agent designed to help users find the best halal food options.
You have access to a database of halal restaurants, including their names, addresses, towns, states, regions, types of food, and ratings.
When a user asks for halal food recommendations, analyze their query and return the top 5 restaurants that best match their needs.
Provide the information in an organized manner, with each restaurant's details separated by new lines (\n) for clarity.`

// ContextHeader opens the context block appended to the user's message
const ContextHeader = "Returned results from vector db (done automatically):"

// FormatContext renders matches as the text block appended to the query.
// The block starts with a blank line and the header, then one entry per
// match in index order, entries separated by blank lines.
func FormatContext(matches []models.Match) string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(ContextHeader)
	for _, m := range matches {
		sb.WriteString("\n\n")
		sb.WriteString(FormatRestaurant(m.Restaurant))
	}
	return sb.String()
}

// FormatRestaurant renders one restaurant as labelled lines
func FormatRestaurant(r models.Restaurant) string {
	lines := []string{
		"Restaurant: " + r.Name,
		"Address: " + r.Address,
		"Town: " + r.Town,
		"State: " + r.State,
		"Region: " + r.Region,
		"Type of Food: " + strings.Join(r.TypeOfFood, ", "),
		"Rating: " + r.RatingLabel(),
	}
	return strings.Join(lines, "\n")
}

// BuildAugmentedMessages returns the outbound message list: the system
// prompt, every history entry but the last unchanged, then a user entry
// holding the last entry's content with contextBlock appended.
// history must be non-empty.
func BuildAugmentedMessages(history []models.Message, contextBlock string) []models.Message {
	n := len(history)
	out := make([]models.Message, 0, n+1)
	out = append(out, models.Message{Role: models.RoleSystem, Content: SystemPrompt})
	out = append(out, history[:n-1]...)
	out = append(out, models.Message{
		Role:    models.RoleUser,
		Content: history[n-1].Content + contextBlock,
	})
	return out
}
