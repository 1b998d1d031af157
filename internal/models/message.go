// ABOUTME: Conversation message model shared by the chat pipeline and transports
// ABOUTME: Validates role-tagged histories before any upstream call is made
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role tags a conversation message with its author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	// ErrInvalidHistory is the parent of every history validation error
	ErrInvalidHistory = errors.New("invalid conversation history")
	// ErrEmptyHistory is returned when no messages were supplied
	ErrEmptyHistory = fmt.Errorf("%w: no messages", ErrInvalidHistory)
	// ErrEmptyQuery is returned when the last message has no content
	ErrEmptyQuery = fmt.Errorf("%w: last message content is empty", ErrInvalidHistory)
)

// Message is a single {role, content} entry of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Valid reports whether r is a role the chat service accepts
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ValidateHistory checks that history is non-empty, that every role is known
// and that the last message carries a non-blank query
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return ErrEmptyHistory
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	if strings.TrimSpace(history[len(history)-1].Content) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// LastContent returns the content of the final message, the active query
func LastContent(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}
