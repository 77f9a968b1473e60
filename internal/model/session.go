package model

import (
    "time"

    "github.com/google/uuid"
)

// Session models an entry in the `sessions` table.  Each session backs
// one refresh-token lineage: it is created at login, replaced on
// rotation, and revoked on logout or by the expiry sweep.  The plain
// refresh token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier (UUID).
//  UserID    – owner of the session.
//  TokenHash – SHA-256 hex digest of the refresh token value.
//  UserAgent – optional client User-Agent captured at issuance.
//  IPAddress – optional client network address captured at issuance.
//  ExpiresAt – expiration timestamp of the session.
//  RevokedAt – when the session was revoked (null if still live).
//  CreatedAt – timestamp of creation.
type Session struct {
    ID        uuid.UUID  // sessions.id
    UserID    uuid.UUID  // sessions.user_id
    TokenHash string     // sessions.token_hash
    UserAgent string     // sessions.user_agent (may be empty)
    IPAddress string     // sessions.ip_address (may be empty)
    ExpiresAt time.Time  // sessions.expires_at
    RevokedAt *time.Time // sessions.revoked_at (nullable)
    CreatedAt time.Time  // sessions.created_at
}

// Live reports whether the session may still mint access tokens: it
// must be neither revoked nor expired at the given instant.
func (s Session) Live(now time.Time) bool {
    return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
