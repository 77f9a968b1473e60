// Package auth orchestrates the login / refresh / logout lifecycle on
// top of the token codec, the bcrypt verifier and the session store.
// Failures are reported as typed sentinel errors so handlers can map
// them to HTTP statuses without string matching.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
	"github.com/iliyamo/gemini-chat-api/internal/token"
	"github.com/iliyamo/gemini-chat-api/internal/utils"
)

// Error kinds surfaced by the gate.  ErrInvalidCredentials covers both
// unknown email and wrong password so callers cannot enumerate
// accounts.  Refresh-token failures of every kind collapse into
// token.ErrInvalidToken.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailTaken         = repository.ErrEmailExists
	ErrInvalidToken       = token.ErrInvalidToken
)

// UserStore is the slice of the account repository the gate needs.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// SessionStore is the slice of the session repository the gate needs.
// FindByHash ignores liveness so the gate can tell a rotated-or-revoked
// session apart from a hash that never backed one.  Rotate must revoke
// the old session and insert the next one atomically; it returns
// repository.ErrNotFound when the old session is no longer live, which
// the gate treats as token reuse.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	FindByHash(ctx context.Context, tokenHash string) (model.Session, error)
	Rotate(ctx context.Context, oldHash string, next model.Session) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// ClientMeta carries optional audit-only client details captured at
// login and refresh.  It never participates in authorization decisions.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	Access     string
	AccessExp  time.Time
	Refresh    string
	RefreshExp time.Time
}

// Config tunes the gate.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
	// RevokeAllOnReuse additionally revokes every live session of an
	// account when one of its rotated refresh tokens is presented
	// again (theft-detection hardening).
	RevokeAllOnReuse bool
}

// Service is the authentication gate.
type Service struct {
	codec    *token.Codec
	users    UserStore
	sessions SessionStore
	cfg      Config
}

func NewService(codec *token.Codec, users UserStore, sessions SessionStore, cfg Config) *Service {
	return &Service{codec: codec, users: users, sessions: sessions, cfg: cfg}
}

// Register creates an account and immediately issues a token pair, the
// same shape a login would return.
func (s *Service) Register(ctx context.Context, email, password string, meta ClientMeta) (model.User, TokenPair, error) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	u, err := s.users.Create(ctx, email, hash)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := s.issuePair(ctx, u.ID, meta)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Login verifies credentials and mints a token pair backed by a fresh
// session.  Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (model.User, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return model.User{}, TokenPair{}, ErrAccountDisabled
	}
	pair, err := s.issuePair(ctx, u.ID, meta)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented session is revoked and
// a new session plus token pair is minted in its place, atomically.
// Refresh tokens are single use; presenting one that was already
// rotated or revoked fails with ErrInvalidToken and, when the hardening
// flag is set, revokes all of the account's sessions.
func (s *Service) Refresh(ctx context.Context, rawRefresh string, meta ClientMeta) (TokenPair, error) {
	subject, err := s.codec.Verify(rawRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	oldHash := token.Hash(rawRefresh)

	sess, err := s.sessions.FindByHash(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		// Codec-valid but never session-backed, e.g. an access token
		// presented at the refresh endpoint.  Invalid, but not reuse.
		return TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !sess.Live(time.Now().UTC()) {
		// The session existed and died: this token was rotated, revoked
		// or expired, and presenting it again is the reuse signal.
		s.handleReuse(ctx, subject)
		return TokenPair{}, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, ErrUnauthorized
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !u.IsActive {
		return TokenPair{}, ErrAccountDisabled
	}

	access, err := s.codec.Issue(u.ID, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.Issue(u.ID, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	next := newSession(u.ID, refresh, meta)
	if err := s.sessions.Rotate(ctx, oldHash, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost the race with a concurrent rotation of the same
			// token; treat it as reuse.
			s.handleReuse(ctx, subject)
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return TokenPair{
		Access:     access.Token,
		AccessExp:  access.Exp,
		Refresh:    refresh.Token,
		RefreshExp: refresh.Exp,
	}, nil
}

// Logout revokes the session behind a refresh token.  It is idempotent:
// unknown, expired and already-revoked tokens all succeed silently.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if _, err := s.codec.Verify(rawRefresh); err != nil {
		return nil
	}
	return s.sessions.RevokeByHash(ctx, token.Hash(rawRefresh))
}

// Authorize validates an access token and resolves its account.  Access
// tokens are stateless, so this never touches the session store; only
// refresh operations are session-backed.  The account must still exist
// and be active.
func (s *Service) Authorize(ctx context.Context, rawAccess string) (model.User, error) {
	subject, err := s.codec.Verify(rawAccess)
	if err != nil {
		return model.User{}, ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, ErrUnauthorized
	}
	return u, nil
}

func (s *Service) issuePair(ctx context.Context, userID uuid.UUID, meta ClientMeta) (TokenPair, error) {
	access, err := s.codec.Issue(userID, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.Issue(userID, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.sessions.Create(ctx, newSession(userID, refresh, meta)); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		Access:     access.Token,
		AccessExp:  access.Exp,
		Refresh:    refresh.Token,
		RefreshExp: refresh.Exp,
	}, nil
}

func (s *Service) handleReuse(ctx context.Context, userID uuid.UUID) {
	if !s.cfg.RevokeAllOnReuse {
		return
	}
	log.Printf("auth: refresh token reuse detected for user %s; revoking all sessions", userID)
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("auth: revoke-all after reuse failed: %v", err)
	}
}

func newSession(userID uuid.UUID, refresh token.Issued, meta ClientMeta) model.Session {
	return model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: token.Hash(refresh.Token),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: refresh.Exp,
		CreatedAt: time.Now().UTC(),
	}
}
