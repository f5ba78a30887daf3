package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const messageColumns = `id, sender_id, receiver_id, content, sent_at, read`

// MessageRepo implements domain.MessageRepository backed by PostgreSQL.
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.SentAt, &m.Read)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+messageColumns, senderID, receiverID, content))
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) Between(ctx context.Context, userID, friendID int64) ([]*domain.Message, error) {
	return r.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at ASC, id ASC`, userID, friendID)
}

func (r *MessageRepo) BetweenSince(ctx context.Context, userID, friendID, sinceID int64) ([]*domain.Message, error) {
	return r.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE id > $3
		AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		ORDER BY sent_at ASC, id ASC`, userID, friendID, sinceID)
}

func (r *MessageRepo) queryMessages(ctx context.Context, query string, args ...any) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND read = FALSE`, senderID, receiverID)
	return err
}

func (r *MessageRepo) UnreadCount(ctx context.Context, receiverID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND read = FALSE`,
		receiverID).Scan(&count)
	return count, err
}

func (r *MessageRepo) UnreadCountFrom(ctx context.Context, senderID, receiverID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = $1 AND receiver_id = $2 AND read = FALSE`,
		senderID, receiverID).Scan(&count)
	return count, err
}

func (r *MessageRepo) LastBetween(ctx context.Context, userID, friendID int64) (*domain.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at DESC, id DESC
		LIMIT 1`, userID, friendID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}
