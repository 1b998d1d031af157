// ABOUTME: Query encoder and retriever: embeds the active query and searches the index
// ABOUTME: Each call is a single attempt bounded by its own stage timeout
package core

import (
	"context"
	"errors"
	"time"

	"github.com/ummati/ummati/internal/models"
)

// TopK is the fixed number of matches requested per query
const TopK = 5

// Embedder turns text into a dense vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex answers nearest-neighbour queries
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
}

// Retrieval is the outcome of embedding and searching one query
type Retrieval struct {
	Query   string
	Matches []models.Match
	Context string
}

// Retriever handles the embed and search stages
type Retriever struct {
	embedder        Embedder
	index           VectorIndex
	minScore        float64
	embedTimeout    time.Duration
	retrieveTimeout time.Duration
}

// NewRetriever creates a Retriever. A minScore of 0 keeps every match.
func NewRetriever(embedder Embedder, index VectorIndex, minScore float64, embedTimeout, retrieveTimeout time.Duration) *Retriever {
	if embedTimeout <= 0 {
		embedTimeout = 15 * time.Second
	}
	if retrieveTimeout <= 0 {
		retrieveTimeout = 10 * time.Second
	}
	return &Retriever{
		embedder:        embedder,
		index:           index,
		minScore:        minScore,
		embedTimeout:    embedTimeout,
		retrieveTimeout: retrieveTimeout,
	}
}

// Embed runs the embedding stage for query
func (r *Retriever) Embed(ctx context.Context, query string) ([]float32, error) {
	stageCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	defer cancel()

	vector, err := r.embedder.Embed(stageCtx, query)
	if err == nil && len(vector) == 0 {
		err = errors.New("empty embedding vector")
	}
	if err != nil {
		return nil, stageFailure(ctx, stageCtx, StateAwaitingEmbedding, ErrEmbedding, err)
	}
	return vector, nil
}

// Search runs the retrieval stage, requesting exactly TopK matches
func (r *Retriever) Search(ctx context.Context, vector []float32) ([]models.Match, error) {
	stageCtx, cancel := context.WithTimeout(ctx, r.retrieveTimeout)
	defer cancel()

	matches, err := r.index.Query(stageCtx, vector, TopK)
	if err != nil {
		return nil, stageFailure(ctx, stageCtx, StateAwaitingRetrieval, ErrRetrieval, err)
	}
	return r.filter(matches), nil
}

// filter drops matches under minScore, keeping index order
func (r *Retriever) filter(matches []models.Match) []models.Match {
	if r.minScore <= 0 {
		return matches
	}
	kept := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score >= r.minScore {
			kept = append(kept, m)
		}
	}
	return kept
}

// Retrieve validates history, then embeds its last message and searches
func (r *Retriever) Retrieve(ctx context.Context, history []models.Message) (*Retrieval, error) {
	if err := models.ValidateHistory(history); err != nil {
		return nil, &StageError{Stage: StateIdle, Kind: models.ErrInvalidHistory, Err: err}
	}

	query := models.LastContent(history)
	vector, err := r.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := r.Search(ctx, vector)
	if err != nil {
		return nil, err
	}

	return &Retrieval{
		Query:   query,
		Matches: matches,
		Context: FormatContext(matches),
	}, nil
}

// stageFailure classifies err. A stage context that hit its deadline while
// the caller's context is still live is a timeout; a cancelled caller
// surfaces the caller's context error.
func stageFailure(parent, stageCtx context.Context, stage State, kind, err error) error {
	switch {
	case parent.Err() != nil:
		return &StageError{Stage: stage, Kind: kind, Err: parent.Err()}
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		return &StageError{Stage: stage, Kind: ErrTimeout, Err: err}
	default:
		return &StageError{Stage: stage, Kind: kind, Err: err}
	}
}
