// ABOUTME: Restaurant record stored as vector-index metadata
// ABOUTME: Decodes loosely typed metadata maps into a typed Restaurant
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Restaurant describes one halal restaurant in the content index
type Restaurant struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Address    string   `json:"address" yaml:"address"`
	Town       string   `json:"town" yaml:"town"`
	State      string   `json:"state" yaml:"state"`
	Region     string   `json:"region" yaml:"region"`
	TypeOfFood []string `json:"typeOfFood" yaml:"typeOfFood"`
	Rating     float64  `json:"rating" yaml:"rating"`

	// RatingText is the rating exactly as index metadata held it, such as
	// "4.5/5" or "N/A". Empty when the metadata had no rating.
	RatingText string `json:"-" yaml:"-"`
}

// Validate checks the fields required to index a restaurant
func (r *Restaurant) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("restaurant name cannot be empty")
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("restaurant %q rating must be 0-5, got %v", r.Name, r.Rating)
	}
	return nil
}

// EmbeddingText is the text embedded for a restaurant at ingest time
func (r *Restaurant) EmbeddingText() string {
	parts := []string{r.Name, r.Address, r.Town, r.State, r.Region}
	if len(r.TypeOfFood) > 0 {
		parts = append(parts, strings.Join(r.TypeOfFood, ", "))
	}
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ". ")
}

// Metadata converts the restaurant into the flat map stored next to its vector
func (r *Restaurant) Metadata() map[string]any {
	foods := make([]any, len(r.TypeOfFood))
	for i, f := range r.TypeOfFood {
		foods[i] = f
	}
	md := map[string]any{
		"name":       r.Name,
		"address":    r.Address,
		"town":       r.Town,
		"state":      r.State,
		"region":     r.Region,
		"typeOfFood": foods,
	}
	switch label := r.RatingLabel(); {
	case label == "":
	case label == FormatRating(r.Rating):
		md["rating"] = r.Rating
	default:
		md["rating"] = label
	}
	return md
}

// RatingLabel is the rating as it should be shown: the index's own text
// when there is one, otherwise the numeric rating. An unrated restaurant
// gets an empty label rather than "0".
func (r *Restaurant) RatingLabel() string {
	if r.RatingText != "" {
		return r.RatingText
	}
	if r.Rating == 0 {
		return ""
	}
	return FormatRating(r.Rating)
}

// RestaurantFromMetadata decodes index metadata. Missing fields stay zero;
// typeOfFood may be a list or a comma separated string. Rating is parsed
// when numeric and RatingText keeps the stored value unchanged.
func RestaurantFromMetadata(md map[string]any) Restaurant {
	return Restaurant{
		Name:       stringField(md, "name"),
		Address:    stringField(md, "address"),
		Town:       stringField(md, "town"),
		State:      stringField(md, "state"),
		Region:     stringField(md, "region"),
		TypeOfFood: stringListField(md, "typeOfFood"),
		Rating:     floatField(md, "rating"),
		RatingText: stringField(md, "rating"),
	}
}

func stringField(md map[string]any, key string) string {
	switch v := md[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func stringListField(md map[string]any, key string) []string {
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

func floatField(md map[string]any, key string) float64 {
	switch v := md[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// FormatRating renders a rating without trailing zeros (4.5, 4, 3.75)
func FormatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64)
}
