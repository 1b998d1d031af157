// ABOUTME: Retrieval-augmented chat pipeline: validate, embed, retrieve, stream
// ABOUTME: Stages run sequentially and the first failure short-circuits the request
package core

import (
	"context"
	"time"

	"github.com/ummati/ummati/internal/models"
)

// Options configures a Pipeline. Zero durations fall back to defaults.
type Options struct {
	MinScore          float64
	EmbedTimeout      time.Duration
	RetrieveTimeout   time.Duration
	StreamOpenTimeout time.Duration
	StreamIdleTimeout time.Duration
	Observer          Observer
}

// Pipeline answers conversation histories with a streamed, retrieval-augmented completion
type Pipeline struct {
	retriever *Retriever
	streamer  *Streamer
	observer  Observer
}

// NewPipeline wires the three upstream services into a Pipeline
func NewPipeline(embedder Embedder, index VectorIndex, completer Completer, opts Options) *Pipeline {
	return &Pipeline{
		retriever: NewRetriever(embedder, index, opts.MinScore, opts.EmbedTimeout, opts.RetrieveTimeout),
		streamer:  NewStreamer(completer, opts.StreamOpenTimeout, opts.StreamIdleTimeout),
		observer:  opts.Observer,
	}
}

// Retriever exposes the retrieval stages for search-only callers
func (p *Pipeline) Retriever() *Retriever {
	return p.retriever
}

// Run executes the pipeline for history. Any failure before the first
// chunk is returned as a *StageError and no Stream is created. Once a
// Stream is returned, later failures are reported through Stream.Err.
func (p *Pipeline) Run(ctx context.Context, history []models.Message) (*Stream, error) {
	if err := models.ValidateHistory(history); err != nil {
		return nil, p.fail(&StageError{Stage: StateIdle, Kind: models.ErrInvalidHistory, Err: err})
	}

	p.transition(StateAwaitingEmbedding)
	vector, err := p.retriever.Embed(ctx, models.LastContent(history))
	if err != nil {
		return nil, p.fail(err)
	}

	p.transition(StateAwaitingRetrieval)
	matches, err := p.retriever.Search(ctx, vector)
	if err != nil {
		return nil, p.fail(err)
	}

	messages := BuildAugmentedMessages(history, FormatContext(matches))

	p.transition(StateAwaitingCompletionStream)
	stream, err := p.streamer.Start(ctx, messages, matches, p.observer)
	if err != nil {
		return nil, p.fail(err)
	}
	return stream, nil
}

func (p *Pipeline) transition(state State) {
	if p.observer != nil {
		p.observer(state, nil)
	}
}

func (p *Pipeline) fail(err error) error {
	if p.observer != nil {
		p.observer(StateErrored, err)
	}
	return err
}
