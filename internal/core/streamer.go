// ABOUTME: Augmented completion streamer relaying model deltas to the caller
// ABOUTME: Chunks keep arrival order; the stream ends closed or errored, never silently
package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ummati/ummati/internal/llm"
	"github.com/ummati/ummati/internal/models"
)

// Completer opens streamed chat completions
type Completer interface {
	OpenStream(ctx context.Context, messages []models.Message) (llm.Stream, error)
}

// Chunk is one non-empty text fragment. Seq starts at 0 and increases by one.
type Chunk struct {
	Seq  int
	Text string
}

// Stream delivers the chunks of one completion. Read Chunks until it is
// closed, then Err tells a clean end (nil) from an abort.
type Stream struct {
	chunks  chan Chunk
	done    chan struct{}
	cancel  context.CancelFunc
	matches []models.Match
	notify  Observer

	mu    sync.Mutex
	state State
	err   error
}

// Chunks returns the channel of fragments. It is unbuffered, so the model
// is read no faster than the caller consumes.
func (s *Stream) Chunks() <-chan Chunk {
	return s.chunks
}

// Matches returns the retrieval matches used to build the prompt
func (s *Stream) Matches() []models.Match {
	return s.matches
}

// State returns the current state
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err blocks until the stream ends and returns nil for a clean close
func (s *Stream) Err() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close aborts the stream if it is still running and releases the upstream
// connection. It returns once the relay has stopped.
func (s *Stream) Close() error {
	s.cancel()
	for range s.chunks {
	}
	<-s.done
	return nil
}

// Collect drains the stream and returns the concatenated text. On abort
// the text received so far is returned along with the error.
func (s *Stream) Collect() (string, error) {
	var sb strings.Builder
	for c := range s.chunks {
		sb.WriteString(c.Text)
	}
	return sb.String(), s.Err()
}

func (s *Stream) finish(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.mu.Unlock()
	if s.notify != nil {
		s.notify(state, err)
	}
}

// Streamer opens completion streams with bounded waits
type Streamer struct {
	completer   Completer
	openTimeout time.Duration
	idleTimeout time.Duration
}

// NewStreamer creates a Streamer. openTimeout bounds the wait for the
// response headers, idleTimeout the wait between two model deltas.
func NewStreamer(completer Completer, openTimeout, idleTimeout time.Duration) *Streamer {
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	return &Streamer{
		completer:   completer,
		openTimeout: openTimeout,
		idleTimeout: idleTimeout,
	}
}

// Start opens the completion stream for messages and begins relaying.
// Errors opening the stream are returned directly and no Stream is created.
func (st *Streamer) Start(ctx context.Context, messages []models.Message, matches []models.Match, notify Observer) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	var openTimedOut atomic.Bool
	openTimer := time.AfterFunc(st.openTimeout, func() {
		openTimedOut.Store(true)
		cancel()
	})

	upstream, err := st.completer.OpenStream(streamCtx, messages)
	openTimer.Stop()
	if err == nil && openTimedOut.Load() {
		upstream.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel()
		stage := StateAwaitingCompletionStream
		switch {
		case ctx.Err() != nil:
			return nil, &StageError{Stage: stage, Kind: ErrCompletion, Err: ctx.Err()}
		case openTimedOut.Load():
			return nil, &StageError{Stage: stage, Kind: ErrTimeout, Err: err}
		default:
			return nil, &StageError{Stage: stage, Kind: ErrCompletion, Err: err}
		}
	}

	s := &Stream{
		chunks:  make(chan Chunk),
		done:    make(chan struct{}),
		cancel:  cancel,
		matches: matches,
		notify:  notify,
		state:   StateStreaming,
	}
	if notify != nil {
		notify(StateStreaming, nil)
	}

	go st.relay(ctx, streamCtx, upstream, s)
	return s, nil
}

func (st *Streamer) relay(parent, ctx context.Context, upstream llm.Stream, s *Stream) {
	defer close(s.done)
	defer close(s.chunks)
	defer s.cancel()
	defer upstream.Close()

	var idleTimedOut atomic.Bool
	idle := time.AfterFunc(st.idleTimeout, func() {
		idleTimedOut.Store(true)
		s.cancel()
	})
	defer idle.Stop()

	abort := func(err error) {
		kind := ErrCompletion
		switch {
		case idleTimedOut.Load():
			kind = ErrTimeout
		case parent.Err() != nil:
			err = parent.Err()
		case ctx.Err() != nil:
			// Close was called
			err = context.Canceled
		}
		s.finish(StateErrored, &StageError{Stage: StateStreaming, Kind: kind, Err: err})
	}

	seq := 0
	for {
		delta, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			s.finish(StateClosed, nil)
			return
		}
		if err != nil {
			abort(err)
			return
		}
		if delta.Content == "" {
			idle.Reset(st.idleTimeout)
			continue
		}

		// The idle limit measures the model, not a slow consumer
		idle.Stop()
		select {
		case s.chunks <- Chunk{Seq: seq, Text: delta.Content}:
			seq++
		case <-ctx.Done():
			abort(ctx.Err())
			return
		}
		idle.Reset(st.idleTimeout)
	}
}
