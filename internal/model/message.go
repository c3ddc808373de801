// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Source is a retrieval hit attached to an assistant message when RAG was
// used. Relevance is normalized to [0, 1].
type Source struct {
	Document  string  `json:"document"`
	Relevance float64 `json:"relevance"`
	Snippet   string  `json:"snippet"`
}

// Usage holds token accounting for a single exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Message represents a single message in a conversation. Messages are
// immutable once appended to a controller's list; the only transient state
// is the streaming buffer held by the chat controller, which is committed
// as a Message when the stream completes.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Sources is non-empty only when RAG was requested and the backend
	// (or the demo responder) returned at least one hit.
	Sources []Source `json:"sources,omitempty"`

	// Usage is set on assistant messages when the backend reports it.
	Usage *Usage `json:"usage,omitempty"`

	// IsError marks an informational message produced in place of a reply
	// that could not be obtained. The conversation continues past it.
	IsError bool `json:"is_error,omitempty"`
}

// NewMessage creates a message with a generated ID and current timestamp.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) *Message {
	return NewMessage(RoleAssistant, content)
}

// NewErrorMessage creates an error-flagged assistant message.
func NewErrorMessage(content string) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.IsError = true
	return msg
}

// WithSources attaches the given sources and returns the message. A nil or
// empty slice leaves Sources empty rather than storing a non-nil
// zero-length slice.
func (m *Message) WithSources(sources []Source) *Message {
	if len(sources) > 0 {
		m.Sources = sources
	}
	return m
}

// Preview returns a rune-safe truncated preview of the message content.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}
