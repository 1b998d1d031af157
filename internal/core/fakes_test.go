// ABOUTME: Test doubles for the embedding, index and completion services
// ABOUTME: Record every call so tests can assert call counts and payloads
package core

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ummati/ummati/internal/llm"
	"github.com/ummati/ummati/internal/models"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	texts  []string
	vector []float32
	err    error
	block  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIndex struct {
	mu      sync.Mutex
	calls   int
	topK    int
	matches []models.Match
	err     error
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeIndex) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStream replays deltas, then ends with endErr (io.EOF when nil) or,
// with block set, waits for its context to be cancelled
type fakeStream struct {
	ctx    context.Context
	deltas []llm.Delta
	endErr error
	block  bool
	next   int
	closed atomic.Bool
}

func (f *fakeStream) Recv() (llm.Delta, error) {
	if f.next < len(f.deltas) {
		d := f.deltas[f.next]
		f.next++
		return d, nil
	}
	if f.block {
		<-f.ctx.Done()
		return llm.Delta{}, f.ctx.Err()
	}
	if f.endErr != nil {
		return llm.Delta{}, f.endErr
	}
	return llm.Delta{}, io.EOF
}

func (f *fakeStream) Close() error {
	f.closed.Store(true)
	return nil
}

type fakeCompleter struct {
	mu        sync.Mutex
	calls     int
	messages  []models.Message
	deltas    []llm.Delta
	endErr    error
	block     bool
	openErr   error
	openBlock bool
	stream    *fakeStream
}

func (f *fakeCompleter) OpenStream(ctx context.Context, messages []models.Message) (llm.Stream, error) {
	f.mu.Lock()
	f.calls++
	f.messages = append([]models.Message(nil), messages...)
	f.mu.Unlock()

	if f.openBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.openErr != nil {
		return nil, f.openErr
	}

	s := &fakeStream{ctx: ctx, deltas: f.deltas, endErr: f.endErr, block: f.block}
	f.mu.Lock()
	f.stream = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCompleter) Stream() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stream
}

func deltas(parts ...string) []llm.Delta {
	out := make([]llm.Delta, 0, len(parts)+1)
	for _, p := range parts {
		out = append(out, llm.Delta{Content: p})
	}
	return append(out, llm.Delta{FinishReason: "stop"})
}

// stateRecorder collects observer callbacks
type stateRecorder struct {
	mu     sync.Mutex
	states []State
	errs   []error
}

func (r *stateRecorder) observe(state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *stateRecorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
