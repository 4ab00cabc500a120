// Package models defines the canonical domain types for Ekko.
//
// Every provider normalizes into these types, and everything downstream
// (thread reconstruction, search, export) consumes only these types.
// All of them are value types: once constructed they are never mutated,
// which makes them safe to share across goroutines without locks.
// "Updates" go through the With* helpers, which return copies.
package models

import "time"

// Role classifies who authored a message.
type Role string

// The closed set of canonical roles. Provider-specific sender labels
// outside this set map to RoleAssistant during normalization.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Message is a single normalized message within a conversation.
//
// Content may be empty: deleted, redacted, and tool-only messages keep
// their place in the thread with empty content. Timestamp is always
// UTC; when the source value was missing or unparsable it carries the
// parent conversation's CreatedAt instead. ParentID is set only by
// tree-structured providers and is empty for linear exports.
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	ParentID  string            `json:"parent_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Conversation is a fully normalized conversation from one export record.
//
// UpdatedAt is optional; the zero time means the source did not carry
// one. Metadata is an opaque bag of provider-specific fields that the
// core never interprets.
type Conversation struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Messages  []Message         `json:"messages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// WithMessages returns a copy of c carrying msgs instead of c.Messages.
// The original value is left untouched.
func (c Conversation) WithMessages(msgs []Message) Conversation {
	out := c
	out.Messages = make([]Message, len(msgs))
	copy(out.Messages, msgs)
	return out
}

// Message returns the message with the given id, if present.
func (c Conversation) Message(id string) (Message, bool) {
	for _, m := range c.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// MessageCount returns the number of messages in the conversation.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}
