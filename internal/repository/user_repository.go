package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// UserRepo persists accounts in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts an account with an already-computed password hash and
// returns the stored row.  Emails are normalized to lower case before
// insert so uniqueness holds regardless of caller casing.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (model.User, error) {
	u := model.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, is_active, is_admin, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		u.ID.String(), u.Email, u.PasswordHash, u.IsActive, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		// MySQL duplicate-key errors carry code 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return u, nil
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,is_admin,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,is_active,is_admin,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id.String()))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u  model.User
		id string
	)
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.ID, err = uuid.Parse(id)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}
