package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

// MessageRepo persists chat messages.  User messages are committed
// individually; assistant messages only ever reach the table through
// FinalizeAssistant, with their full content.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// Create inserts one message row.
func (r *MessageRepo) Create(ctx context.Context, m model.Message) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, role, content, token_count, created_at) VALUES (?,?,?,?,?,?)",
		m.ID.String(), m.ChatID.String(), m.Role, m.Content, nullableInt(m.TokenCount), m.CreatedAt)
	return err
}

// FinalizeAssistant commits a finished assistant message and bumps the
// chat's updated_at within one transaction.  Until this call nothing of
// the assistant turn exists in the database, so a failed or cancelled
// turn leaves no partial row behind.
func (r *MessageRepo) FinalizeAssistant(ctx context.Context, m model.Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (id, chat_id, role, content, token_count, created_at) VALUES (?,?,?,?,?,?)",
		m.ID.String(), m.ChatID.String(), m.Role, m.Content, nullableInt(m.TokenCount), m.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET updated_at=UTC_TIMESTAMP() WHERE id=?",
		m.ChatID.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByChat returns a chat's messages oldest first.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,chat_id,role,content,token_count,created_at FROM messages WHERE chat_id=? ORDER BY created_at ASC, id ASC",
		chatID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var (
			m       model.Message
			id, cid string
			tokens  sql.NullInt64
		)
		if err := rows.Scan(&id, &cid, &m.Role, &m.Content, &tokens, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if m.ChatID, err = uuid.Parse(cid); err != nil {
			return nil, err
		}
		if tokens.Valid {
			n := int(tokens.Int64)
			m.TokenCount = &n
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
