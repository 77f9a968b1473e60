// Package queue defines message payloads exchanged over the message broker.
package queue

// TurnCompletedEvent is published when a chat turn finishes with a
// committed assistant message. It contains enough information for
// downstream consumers to log or trigger analytics without querying
// the primary database.
type TurnCompletedEvent struct {
    ChatID      string `json:"chat_id"`
    UserID      string `json:"user_id"`
    MessageID   string `json:"message_id"`
    Model       string `json:"model"`
    Fragments   int    `json:"fragments"`
    Chars       int    `json:"chars"`
    DurationMS  int64  `json:"duration_ms"`
    CompletedAt string `json:"completed_at"`
}
