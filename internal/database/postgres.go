package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 25

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations applies the schema. Every statement is idempotent, so the
// list can be re-run on every boot.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			bio TEXT NOT NULL DEFAULT '',
			avatar_type TEXT NOT NULL DEFAULT 'dicebear',
			avatar_style TEXT NOT NULL DEFAULT 'avataaars',
			avatar_seed TEXT NOT NULL DEFAULT '',
			chat_theme TEXT NOT NULL DEFAULT 'purple',
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token TEXT,
			reset_token TEXT,
			reset_token_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_verification_token ON users(verification_token)`,
		`CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT friend_requests_pair UNIQUE (sender_id, receiver_id)
		)`,
		// The ordered constraint alone would admit both A->B and B->A under
		// concurrent inserts; the pair must be unique regardless of direction.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pair_unordered
			ON friend_requests (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id))`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_sender ON friend_requests(sender_id, status)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_read ON messages(receiver_id, read)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, id)`,
		`CREATE TABLE IF NOT EXISTS chat_themes (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			friend_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			theme TEXT NOT NULL DEFAULT 'purple',
			CONSTRAINT chat_themes_pair UNIQUE (user_id, friend_id)
		)`,
		`CREATE TABLE IF NOT EXISTS subjects (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '#8b5cf6',
			icon TEXT NOT NULL DEFAULT 'book-stack',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subjects_user ON subjects(user_id)`,
		`CREATE TABLE IF NOT EXISTS study_files (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			subject_id BIGINT REFERENCES subjects(id) ON DELETE SET NULL,
			filename TEXT NOT NULL,
			original_name TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_study_files_user ON study_files(user_id)`,
		`CREATE TABLE IF NOT EXISTS study_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			topic TEXT NOT NULL DEFAULT '',
			duration_minutes INT NOT NULL DEFAULT 0,
			questions_answered INT NOT NULL DEFAULT 0,
			correct_answers INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_study_sessions_user_started ON study_sessions(user_id, started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS bot_conversations (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			file_id BIGINT NOT NULL REFERENCES study_files(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bot_conversations_user_file ON bot_conversations(user_id, file_id, sent_at)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
