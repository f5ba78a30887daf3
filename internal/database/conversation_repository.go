package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

// ConversationRepo persists the visible bot chat history per (user, file).
// The bot's working memory lives in the conversation store (Redis or
// in-process); this table only backs the chat transcript on the study page.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Append(ctx context.Context, userID, fileID int64, role, content string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bot_conversations (user_id, file_id, role, content)
		VALUES ($1, $2, $3, $4)`, userID, fileID, role, content)
	return err
}

func (r *ConversationRepo) History(ctx context.Context, userID, fileID int64) ([]*domain.BotMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, file_id, role, content, sent_at
		FROM bot_conversations
		WHERE user_id = $1 AND file_id = $2
		ORDER BY sent_at ASC, id ASC`, userID, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.BotMessage
	for rows.Next() {
		var m domain.BotMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.FileID, &m.Role, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		history = append(history, &m)
	}
	return history, rows.Err()
}

func (r *ConversationRepo) Clear(ctx context.Context, userID, fileID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM bot_conversations WHERE user_id = $1 AND file_id = $2`, userID, fileID)
	return err
}
