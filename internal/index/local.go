// ABOUTME: Local restaurant index with Charm KV backend and cosine similarity search
// ABOUTME: Records are namespaced so one KV database can hold several indexes
package index

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/ummati/ummati/internal/charm"
	"github.com/ummati/ummati/internal/models"
)

// kvStore is the subset of charm.Client the local index needs
type kvStore interface {
	SetJSON(key string, value interface{}) error
	GetJSON(key string, dest interface{}) error
	ListKeys(prefix string) ([]string, error)
	Delete(key string) error
}

// record is the JSON value stored per restaurant. Metadata uses the same
// flat layout as the hosted index so both decode through one path.
type record struct {
	ID        string         `json:"id"`
	Vector    []float32      `json:"vector"`
	Metadata  map[string]any `json:"metadata"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LocalIndex stores restaurant vectors in a key-value store and scans them
// for every query
type LocalIndex struct {
	store     kvStore
	namespace string
	closer    io.Closer
}

// NewLocalIndex creates a LocalIndex over store scoped to namespace
func NewLocalIndex(store kvStore, namespace string) *LocalIndex {
	return &LocalIndex{
		store:     store,
		namespace: namespace,
	}
}

// Namespace returns the namespace this index reads and writes
func (li *LocalIndex) Namespace() string {
	return li.namespace
}

// Upsert saves or replaces the vector and metadata for id
func (li *LocalIndex) Upsert(ctx context.Context, id string, vector []float32, r models.Restaurant) error {
	if id == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if len(vector) == 0 {
		return fmt.Errorf("record %s has an empty vector", id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := record{
		ID:        id,
		Vector:    vector,
		Metadata:  r.Metadata(),
		UpdatedAt: time.Now().UTC(),
	}
	return li.store.SetJSON(charm.RestaurantKey(li.namespace, id), rec)
}

// Query performs cosine similarity search across all records in the namespace.
// Records whose dimension differs from the query are skipped.
func (li *LocalIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	keys, err := li.store.ListKeys(charm.NamespacePrefix(li.namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurant keys: %w", err)
	}

	var matches []models.Match
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec record
		if err := li.store.GetJSON(key, &rec); err != nil {
			continue
		}
		if len(rec.Vector) != len(vector) {
			continue
		}

		r := models.RestaurantFromMetadata(rec.Metadata)
		r.ID = rec.ID
		matches = append(matches, models.Match{
			ID:         rec.ID,
			Score:      cosineSimilarity(vector, rec.Vector),
			Restaurant: r,
		})
	}

	// Sort by similarity score (descending), ID breaks ties
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of records in the namespace
func (li *LocalIndex) Count(ctx context.Context) (int, error) {
	keys, err := li.store.ListKeys(charm.NamespacePrefix(li.namespace))
	if err != nil {
		return 0, fmt.Errorf("failed to list restaurant keys: %w", err)
	}
	return len(keys), nil
}

// DeleteAll removes every record in the namespace and returns how many were removed
func (li *LocalIndex) DeleteAll(ctx context.Context) (int, error) {
	keys, err := li.store.ListKeys(charm.NamespacePrefix(li.namespace))
	if err != nil {
		return 0, fmt.Errorf("failed to list restaurant keys: %w", err)
	}
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := li.store.Delete(key); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

// Sync replicates the backing store with the cloud when it supports it
func (li *LocalIndex) Sync() error {
	s, ok := li.store.(interface{ Sync() error })
	if !ok {
		return fmt.Errorf("index store does not support sync")
	}
	return s.Sync()
}

// AccountID returns the cloud account the backing store syncs to
func (li *LocalIndex) AccountID() (string, error) {
	s, ok := li.store.(interface{ ID() (string, error) })
	if !ok {
		return "", fmt.Errorf("index store has no cloud account")
	}
	return s.ID()
}

// Reset wipes every local record in every namespace
func (li *LocalIndex) Reset() error {
	s, ok := li.store.(interface{ Reset() error })
	if !ok {
		return fmt.Errorf("index store does not support reset")
	}
	return s.Reset()
}

// Close releases the underlying store when the index owns it
func (li *LocalIndex) Close() error {
	if li.closer != nil {
		return li.closer.Close()
	}
	return nil
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
