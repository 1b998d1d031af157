// ABOUTME: Embeds restaurant records and upserts them into the local index
// ABOUTME: Embedding uses retry with backoff; one bad record never stops the batch
package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/ummati/ummati/internal/models"
)

// Embedder produces vectors for ingest, retrying transient failures
type Embedder interface {
	EmbedWithRetry(ctx context.Context, text string) ([]float32, error)
}

// Writer stores restaurant vectors
type Writer interface {
	Upsert(ctx context.Context, id string, vector []float32, r models.Restaurant) error
}

// Result contains the results of an ingest run
type Result struct {
	Indexed int
	Skipped int
	Errors  []string
}

// Ingester loads restaurants into an index
type Ingester struct {
	embedder Embedder
	writer   Writer
	verbose  bool
}

// NewIngester creates a new Ingester
func NewIngester(embedder Embedder, writer Writer, verbose bool) *Ingester {
	return &Ingester{
		embedder: embedder,
		writer:   writer,
		verbose:  verbose,
	}
}

// Ingest embeds and stores every valid restaurant. Invalid records are
// skipped and reported in the result; a cancelled context stops the run.
func (in *Ingester) Ingest(ctx context.Context, restaurants []models.Restaurant) (*Result, error) {
	result := &Result{}

	for i, r := range restaurants {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := r.Validate(); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i+1, err))
			continue
		}
		if r.ID == "" {
			r.ID = StableID(r)
		}

		vector, err := in.embedder.EmbedWithRetry(ctx, r.EmbeddingText())
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Name, err))
			continue
		}

		if err := in.writer.Upsert(ctx, r.ID, vector, r); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to store: %v", r.Name, err))
			continue
		}

		result.Indexed++
		if in.verbose {
			log.Printf("Indexed %s (%s)", r.Name, r.ID)
		}
	}

	return result, nil
}
