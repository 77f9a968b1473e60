package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the application tables when they do not exist yet.
// Statements are idempotent so the server can run them on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            CHAR(36)     NOT NULL,
			email         VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			is_active     TINYINT(1)   NOT NULL DEFAULT 1,
			is_admin      TINYINT(1)   NOT NULL DEFAULT 0,
			created_at    DATETIME(6)  NOT NULL,
			updated_at    DATETIME(6)  NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id         CHAR(36)     NOT NULL,
			user_id    CHAR(36)     NOT NULL,
			token_hash CHAR(64)     NOT NULL,
			user_agent VARCHAR(512) NULL,
			ip_address VARCHAR(64)  NULL,
			expires_at DATETIME(6)  NOT NULL,
			revoked_at DATETIME(6)  NULL,
			created_at DATETIME(6)  NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY uq_sessions_token_hash (token_hash),
			KEY ix_sessions_user (user_id),
			KEY ix_sessions_expires (expires_at),
			CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS chats (
			id         CHAR(36)     NOT NULL,
			user_id    CHAR(36)     NOT NULL,
			title      VARCHAR(255) NOT NULL,
			created_at DATETIME(6)  NOT NULL,
			updated_at DATETIME(6)  NOT NULL,
			PRIMARY KEY (id),
			KEY ix_chats_user_updated (user_id, updated_at),
			CONSTRAINT fk_chats_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS messages (
			id          CHAR(36)    NOT NULL,
			chat_id     CHAR(36)    NOT NULL,
			role        ENUM('user','assistant','system') NOT NULL,
			content     MEDIUMTEXT  NOT NULL,
			token_count INT         NULL,
			created_at  DATETIME(6) NOT NULL,
			PRIMARY KEY (id),
			KEY ix_messages_chat_created (chat_id, created_at),
			CONSTRAINT fk_messages_chat FOREIGN KEY (chat_id) REFERENCES chats (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS user_settings (
			id         CHAR(36)     NOT NULL,
			user_id    CHAR(36)     NOT NULL,
			api_key    VARCHAR(255) NULL,
			model      VARCHAR(100) NOT NULL,
			created_at DATETIME(6)  NOT NULL,
			updated_at DATETIME(6)  NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY uq_user_settings_user (user_id),
			CONSTRAINT fk_user_settings_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
