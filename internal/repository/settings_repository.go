package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// SettingsRepo persists per-account generation preferences.
type SettingsRepo struct{ DB *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{DB: db} }

// GetByUser fetches an account's settings, or ErrNotFound when none
// were ever saved.
func (r *SettingsRepo) GetByUser(ctx context.Context, userID uuid.UUID) (model.UserSettings, error) {
	var (
		s       model.UserSettings
		id, uid string
		key     sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,api_key,model,created_at,updated_at FROM user_settings WHERE user_id=? LIMIT 1",
		userID.String()).Scan(&id, &uid, &key, &s.Model, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.UserSettings{}, ErrNotFound
	}
	if err != nil {
		return model.UserSettings{}, err
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return model.UserSettings{}, err
	}
	if s.UserID, err = uuid.Parse(uid); err != nil {
		return model.UserSettings{}, err
	}
	s.APIKey = key.String
	return s, nil
}

// Upsert creates or updates an account's settings in one statement.
func (r *SettingsRepo) Upsert(ctx context.Context, userID uuid.UUID, apiKey, modelName string) (model.UserSettings, error) {
	if modelName == "" {
		modelName = model.DefaultModel
	}
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_settings (id, user_id, api_key, model, created_at, updated_at) VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE api_key=VALUES(api_key), model=VALUES(model), updated_at=VALUES(updated_at)`,
		uuid.New().String(), userID.String(), nullable(apiKey), modelName, now, now)
	if err != nil {
		return model.UserSettings{}, err
	}
	return r.GetByUser(ctx, userID)
}
