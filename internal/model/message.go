package model

import (
    "time"

    "github.com/google/uuid"
)

// Roles a message may carry.  The column is an ENUM so the database
// rejects anything else.
const (
    RoleUser      = "user"
    RoleAssistant = "assistant"
    RoleSystem    = "system"
)

// ValidRole reports whether r is one of the three allowed roles.
func ValidRole(r string) bool {
    return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Message is one turn in a chat.  User messages are committed before
// generation starts; assistant messages are only committed once their
// full content is known.
//
// Fields:
//  ID         – primary key identifier (UUID).
//  ChatID     – owning chat.
//  Role       – one of user/assistant/system.
//  Content    – message text, non-empty at creation.
//  TokenCount – optional token metric (nil when unknown).
//  CreatedAt  – timestamp of creation.
type Message struct {
    ID         uuid.UUID // messages.id
    ChatID     uuid.UUID // messages.chat_id
    Role       string    // messages.role
    Content    string    // messages.content
    TokenCount *int      // messages.token_count (nullable)
    CreatedAt  time.Time // messages.created_at
}
