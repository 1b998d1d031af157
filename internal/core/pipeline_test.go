// ABOUTME: Tests for the retrieval-augmented chat pipeline
// ABOUTME: Covers stage ordering, short-circuiting on failure and the end-to-end flow
package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ummati/ummati/internal/models"
)

func newTestPipeline(e *fakeEmbedder, idx *fakeIndex, c *fakeCompleter, opts Options) *Pipeline {
	return NewPipeline(e, idx, c, opts)
}

func TestPipeline_EndToEnd(t *testing.T) {
	matches := sampleMatches(5)
	embedder := &fakeEmbedder{}
	index := &fakeIndex{matches: matches}
	completer := &fakeCompleter{deltas: deltas("Try ", "Restaurant 1", " on Devon Ave.")}

	p := newTestPipeline(embedder, index, completer, Options{})
	history := []models.Message{{Role: models.RoleUser, Content: "spicy chicken in Chicago"}}

	stream, err := p.Run(context.Background(), history)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var got []Chunk
	for c := range stream.Chunks() {
		got = append(got, c)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream ended with error: %v", err)
	}
	if stream.State() != StateClosed {
		t.Errorf("State() = %s, want closed", stream.State())
	}

	var body strings.Builder
	for i, c := range got {
		if c.Seq != i {
			t.Errorf("chunk %d has Seq %d", i, c.Seq)
		}
		body.WriteString(c.Text)
	}
	if body.String() != "Try Restaurant 1 on Devon Ave." {
		t.Errorf("body = %q", body.String())
	}

	if embedder.Calls() != 1 || embedder.texts[0] != "spicy chicken in Chicago" {
		t.Errorf("embedder calls = %d texts = %v", embedder.Calls(), embedder.texts)
	}
	if index.Calls() != 1 || index.topK != 5 {
		t.Errorf("index calls = %d topK = %d, want 1 and 5", index.Calls(), index.topK)
	}
	if completer.Calls() != 1 {
		t.Fatalf("completer calls = %d, want 1", completer.Calls())
	}

	sent := completer.messages
	if len(sent) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(sent))
	}
	if sent[0].Role != models.RoleSystem || sent[0].Content != SystemPrompt {
		t.Errorf("first message = %+v", sent[0])
	}
	wantUser := "spicy chicken in Chicago" + FormatContext(matches)
	if sent[1].Role != models.RoleUser || sent[1].Content != wantUser {
		t.Errorf("final user message =\n%q\nwant\n%q", sent[1].Content, wantUser)
	}
	if n := strings.Count(sent[1].Content, "\nRestaurant: "); n != 5 {
		t.Errorf("context has %d blocks, want 5", n)
	}
	if !reflect.DeepEqual(stream.Matches(), matches) {
		t.Error("Matches() should return the retrieved matches")
	}
	if !completer.Stream().closed.Load() {
		t.Error("upstream stream should be closed after a clean end")
	}
}

func TestPipeline_MultiTurnPassThrough(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "salaam"},
		{Role: models.RoleAssistant, Content: "Wa alaikum salaam! Where are you?"},
		{Role: models.RoleUser, Content: "Houston, TX"},
	}
	completer := &fakeCompleter{deltas: deltas("ok")}
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{matches: sampleMatches(2)}, completer, Options{})

	stream, err := p.Run(context.Background(), history)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	sent := completer.messages
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sent))
	}
	if !reflect.DeepEqual(sent[1:3], history[:2]) {
		t.Errorf("earlier turns changed: %+v", sent[1:3])
	}
	if !strings.HasPrefix(sent[3].Content, "Houston, TX\n\n"+ContextHeader) {
		t.Errorf("last message = %q", sent[3].Content)
	}
}

func TestPipeline_InvalidHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []models.Message
	}{
		{"empty", nil},
		{"blank last message", []models.Message{{Role: models.RoleUser, Content: "   "}}},
		{"unknown role", []models.Message{{Role: "tool", Content: "hi"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &fakeEmbedder{}
			index := &fakeIndex{}
			completer := &fakeCompleter{}
			p := newTestPipeline(embedder, index, completer, Options{})

			stream, err := p.Run(context.Background(), tt.history)
			if err == nil || stream != nil {
				t.Fatalf("Run() = %v, %v; want error", stream, err)
			}
			if !errors.Is(err, models.ErrInvalidHistory) {
				t.Errorf("error %v should wrap ErrInvalidHistory", err)
			}
			if embedder.Calls()+index.Calls()+completer.Calls() != 0 {
				t.Error("no upstream call should happen for an invalid history")
			}
		})
	}
}

func TestPipeline_EmbeddingFailureShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("401 unauthorized")}
	index := &fakeIndex{}
	completer := &fakeCompleter{}
	rec := &stateRecorder{}
	p := newTestPipeline(embedder, index, completer, Options{Observer: rec.observe})

	stream, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if stream != nil {
		t.Fatal("no stream should be returned")
	}
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("error %v should wrap ErrEmbedding", err)
	}
	if stage, ok := StageOf(err); !ok || stage != StateAwaitingEmbedding {
		t.Errorf("StageOf() = %s, %v", stage, ok)
	}
	if index.Calls() != 0 || completer.Calls() != 0 {
		t.Errorf("retrieval calls = %d completion calls = %d, want 0", index.Calls(), completer.Calls())
	}

	want := []State{StateAwaitingEmbedding, StateErrored}
	if got := rec.States(); !reflect.DeepEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestPipeline_RetrievalFailureShortCircuits(t *testing.T) {
	index := &fakeIndex{err: errors.New("index not found")}
	completer := &fakeCompleter{}
	p := newTestPipeline(&fakeEmbedder{}, index, completer, Options{})

	_, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("error %v should wrap ErrRetrieval", err)
	}
	if completer.Calls() != 0 {
		t.Error("completion must not be requested after a retrieval failure")
	}
}

func TestPipeline_CompletionOpenFailure(t *testing.T) {
	completer := &fakeCompleter{openErr: errors.New("model overloaded")}
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{}, completer, Options{})

	_, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("error %v should wrap ErrCompletion", err)
	}
	if stage, _ := StageOf(err); stage != StateAwaitingCompletionStream {
		t.Errorf("stage = %s", stage)
	}
}

func TestPipeline_StageTimeouts(t *testing.T) {
	tests := []struct {
		name      string
		embedder  *fakeEmbedder
		completer *fakeCompleter
		opts      Options
		stage     State
	}{
		{
			name:      "embedding",
			embedder:  &fakeEmbedder{block: true},
			completer: &fakeCompleter{},
			opts:      Options{EmbedTimeout: 20 * time.Millisecond},
			stage:     StateAwaitingEmbedding,
		},
		{
			name:      "stream open",
			embedder:  &fakeEmbedder{},
			completer: &fakeCompleter{openBlock: true},
			opts:      Options{StreamOpenTimeout: 20 * time.Millisecond},
			stage:     StateAwaitingCompletionStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.embedder, &fakeIndex{}, tt.completer, tt.opts)
			_, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
			if !errors.Is(err, ErrTimeout) {
				t.Fatalf("error %v should wrap ErrTimeout", err)
			}
			if stage, _ := StageOf(err); stage != tt.stage {
				t.Errorf("stage = %s, want %s", stage, tt.stage)
			}
		})
	}
}

func TestPipeline_CallerCancelBeforeStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &fakeEmbedder{block: true}
	p := newTestPipeline(embedder, &fakeIndex{}, &fakeCompleter{}, Options{})

	_, err := p.Run(ctx, []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error %v should wrap context.Canceled", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("a cancelled caller is not a timeout")
	}
}

func TestPipeline_MinScoreFilter(t *testing.T) {
	completer := &fakeCompleter{deltas: deltas("ok")}
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{matches: sampleMatches(5)}, completer,
		Options{MinScore: 0.65})

	stream, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	stream.Collect()

	// scores are 0.9, 0.8, 0.7, 0.6, 0.5
	if n := len(stream.Matches()); n != 3 {
		t.Errorf("kept %d matches, want 3", n)
	}
	if n := strings.Count(completer.messages[1].Content, "\nRestaurant: "); n != 3 {
		t.Errorf("context has %d blocks, want 3", n)
	}
}

func TestPipeline_ObserverTransitions(t *testing.T) {
	rec := &stateRecorder{}
	p := newTestPipeline(&fakeEmbedder{}, &fakeIndex{matches: sampleMatches(1)},
		&fakeCompleter{deltas: deltas("a", "b")}, Options{Observer: rec.observe})

	stream, err := p.Run(context.Background(), []models.Message{{Role: models.RoleUser, Content: "kebab"}})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if _, err := stream.Collect(); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}

	want := []State{
		StateAwaitingEmbedding,
		StateAwaitingRetrieval,
		StateAwaitingCompletionStream,
		StateStreaming,
		StateClosed,
	}
	if got := rec.States(); !reflect.DeepEqual(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}
