// ABOUTME: Request state machine and stage errors for the chat pipeline
// ABOUTME: Every failure names the stage it happened in and a sentinel kind
package core

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of one chat request
type State int

const (
	StateIdle State = iota
	StateAwaitingEmbedding
	StateAwaitingRetrieval
	StateAwaitingCompletionStream
	StateStreaming
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingEmbedding:
		return "awaiting-embedding"
	case StateAwaitingRetrieval:
		return "awaiting-retrieval"
	case StateAwaitingCompletionStream:
		return "awaiting-completion-stream"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

var (
	// ErrEmbedding marks a failed embedding request
	ErrEmbedding = errors.New("embedding request failed")
	// ErrRetrieval marks a failed index query
	ErrRetrieval = errors.New("index query failed")
	// ErrCompletion marks a failed or aborted completion stream
	ErrCompletion = errors.New("completion failed")
	// ErrTimeout marks a stage that exceeded its limit
	ErrTimeout = errors.New("stage timed out")
)

// StageError is returned for any failed request. Kind is one of the
// sentinels above or models.ErrInvalidHistory; Err is the cause.
type StageError struct {
	Stage State
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// StageOf returns the stage a pipeline error happened in
func StageOf(err error) (State, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return StateIdle, false
}

// Observer is told about every state transition. err is set only when the
// new state is StateErrored.
type Observer func(state State, err error)
