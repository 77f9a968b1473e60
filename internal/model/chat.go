package model

import (
    "time"

    "github.com/google/uuid"
)

// Chat is a conversation container owned by exactly one user.
// Deleting a chat cascades to its messages at the database level.
//
// Fields:
//  ID        – primary key identifier (UUID).
//  UserID    – owner of the chat.
//  Title     – display title; defaults to "New chat".
//  CreatedAt – timestamp of creation.
//  UpdatedAt – bumped whenever a turn completes in the chat.
type Chat struct {
    ID        uuid.UUID // chats.id
    UserID    uuid.UUID // chats.user_id
    Title     string    // chats.title
    CreatedAt time.Time // chats.created_at
    UpdatedAt time.Time // chats.updated_at
}
