// ABOUTME: Retrieval match returned by vector index queries
// ABOUTME: Rank is implicit in slice order, highest similarity first
package models

// Match is one nearest-neighbour result from the restaurant index
type Match struct {
	ID         string     `json:"id"`
	Score      float64    `json:"score"`
	Restaurant Restaurant `json:"restaurant"`
}
