package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// SessionRepo persists refresh sessions (single 'token_hash' column
// keyed by the SHA-256 of the raw refresh token).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at) VALUES (?,?,?,?,?,?,?)",
		s.ID.String(), s.UserID.String(), s.TokenHash, nullable(s.UserAgent), nullable(s.IPAddress), s.ExpiresAt, s.CreatedAt)
	return err
}

// FindByHash returns the session row for a token hash regardless of
// its liveness, or ErrNotFound when no such session was ever created.
// Callers decide what a revoked or expired row means; the distinction
// matters because a hash that never backed a session is not evidence
// of token reuse.
func (r *SessionRepo) FindByHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var (
		s         model.Session
		id, uid   string
		ua, ip    sql.NullString
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_hash,user_agent,ip_address,expires_at,revoked_at,created_at FROM sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&id, &uid, &s.TokenHash, &ua, &ip, &s.ExpiresAt, &revokedAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return model.Session{}, err
	}
	if s.UserID, err = uuid.Parse(uid); err != nil {
		return model.Session{}, err
	}
	s.UserAgent = ua.String
	s.IPAddress = ip.String
	if revokedAt.Valid {
		t := revokedAt.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// Rotate revokes the session identified by oldHash and inserts next as
// a single transaction, so no reader ever observes both the old and the
// new session live at once.  It fails with ErrNotFound when the old
// session is already revoked or expired, which is how refresh-token
// reuse surfaces.
func (r *SessionRepo) Rotate(ctx context.Context, oldHash string, next model.Session) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()",
		oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at) VALUES (?,?,?,?,?,?,?)",
		next.ID.String(), next.UserID.String(), next.TokenHash, nullable(next.UserAgent), nullable(next.IPAddress), next.ExpiresAt, next.CreatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeByHash marks a session as revoked.  Revoking an already-revoked
// or unknown session is a no-op, which makes logout idempotent.
func (r *SessionRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes every live session of an account.  Used on
// refresh-token reuse when the hardening flag is enabled.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID.String())
	return err
}

// DeleteExpired removes sessions whose expiry passed more than the
// grace period ago.  Run periodically by the sweep job; rows are kept
// for the grace window so recent activity stays inspectable.
func (r *SessionRepo) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?",
		time.Now().UTC().Add(-grace))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
