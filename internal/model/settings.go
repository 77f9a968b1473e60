package model

import (
    "time"

    "github.com/google/uuid"
)

// DefaultModel is used when an account has no stored preference.
const DefaultModel = "gemini-2.5-flash-lite"

// AvailableModels lists the generation models a user may select.
var AvailableModels = []string{
    "gemini-2.5-flash-lite",
    "gemini-2.5-flash",
    "gemini-3-flash-preview",
}

// UserSettings holds per-account generation preferences from the
// `user_settings` table.  When APIKey is empty the server-wide key is
// used instead.
type UserSettings struct {
    ID        uuid.UUID // user_settings.id
    UserID    uuid.UUID // user_settings.user_id (unique)
    APIKey    string    // user_settings.api_key (may be empty)
    Model     string    // user_settings.model
    CreatedAt time.Time // user_settings.created_at
    UpdatedAt time.Time // user_settings.updated_at
}
