// Package conversation provides durable persistence for chat conversations.
//
// Responsibilities: Save/load conversations and their message logs to PostgreSQL.
// Thread Safety: Store is safe for concurrent use by multiple goroutines.
package conversation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Message roles stored in the database.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one the store accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Conversation is the durable container for a chat history.
//
// IDs are opaque text: callers may supply their own identifiers and the
// store materializes a conversation for any id it has not seen before.
type Conversation struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single entry in a conversation's append-only log.
type Message struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID string          `json:"conversationId"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Meta           json.RawMessage `json:"meta,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// NewMessage builds a message ready for Append. The store assigns
// ID and CreatedAt on insert.
func NewMessage(conversationID string, role Role, content string) *Message {
	return &Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
}
