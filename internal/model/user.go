package model

import (
    "time"

    "github.com/google/uuid"
)

// User represents an application account record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier (UUID).
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.  Inactive accounts
//                 fail every authentication and authorization check.
//  IsAdmin      – administrator flag.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uuid.UUID // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active
    IsAdmin      bool      // users.is_admin
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
