package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// ChatRepo persists chats.  Every lookup is scoped to an owner; a chat
// belonging to someone else is indistinguishable from a missing one.
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// Create inserts a chat for the given owner and returns the stored row.
func (r *ChatRepo) Create(ctx context.Context, userID uuid.UUID, title string) (model.Chat, error) {
	if title == "" {
		title = "New chat"
	}
	c := model.Chat{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?,?,?,?,?)",
		c.ID.String(), c.UserID.String(), c.Title, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return model.Chat{}, err
	}
	return c, nil
}

// GetOwned fetches a chat by id if it belongs to userID, else ErrNotFound.
func (r *ChatRepo) GetOwned(ctx context.Context, chatID, userID uuid.UUID) (model.Chat, error) {
	var (
		c       model.Chat
		id, uid string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,title,created_at,updated_at FROM chats WHERE id=? AND user_id=? LIMIT 1",
		chatID.String(), userID.String()).Scan(&id, &uid, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Chat{}, ErrNotFound
	}
	if err != nil {
		return model.Chat{}, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return model.Chat{}, err
	}
	if c.UserID, err = uuid.Parse(uid); err != nil {
		return model.Chat{}, err
	}
	return c, nil
}

// ListByUser returns the owner's chats newest first.
func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Chat, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,title,created_at,updated_at FROM chats WHERE user_id=? ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		userID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Chat{}
	for rows.Next() {
		var (
			c       model.Chat
			id, uid string
		)
		if err := rows.Scan(&id, &uid, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if c.UserID, err = uuid.Parse(uid); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteOwned removes a chat and, via the FK cascade, its messages.
// Returns ErrNotFound when the chat does not exist for this owner.
func (r *ChatRepo) DeleteOwned(ctx context.Context, chatID, userID uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM chats WHERE id=? AND user_id=?",
		chatID.String(), userID.String())
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
	return nil
}
