package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const requestColumns = `id, sender_id, receiver_id, status, created_at`

// FriendRepo implements domain.FriendRepository backed by PostgreSQL.
// A friendship is represented by an accepted friend_requests row; the pair
// (sender, receiver) is unique regardless of direction.
type FriendRepo struct {
	pool *pgxpool.Pool
}

func NewFriendRepo(pool *pgxpool.Pool) *FriendRepo {
	return &FriendRepo{pool: pool}
}

func scanRequest(row pgx.Row) (*domain.FriendRequest, error) {
	var fr domain.FriendRequest
	err := row.Scan(&fr.ID, &fr.SenderID, &fr.ReceiverID, &fr.Status, &fr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

func (r *FriendRepo) CreateRequest(ctx context.Context, senderID, receiverID int64) (*domain.FriendRequest, error) {
	existing, err := r.GetRequestBetween(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, domain.ErrRequestNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrRequestExists
	}

	fr, err := scanRequest(r.pool.QueryRow(ctx, `
		INSERT INTO friend_requests (sender_id, receiver_id)
		VALUES ($1, $2)
		RETURNING `+requestColumns, senderID, receiverID))
	if err != nil {
		return nil, createRequestError(err)
	}
	return fr, nil
}

// createRequestError maps the unordered-pair unique index violation to
// ErrRequestExists. The existence check above is not atomic with the insert,
// so concurrent requests for the same pair land here.
func createRequestError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrRequestExists
	}
	return fmt.Errorf("failed to create friend request: %w", err)
}

func (r *FriendRepo) GetRequest(ctx context.Context, requestID int64) (*domain.FriendRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM friend_requests WHERE id = $1`, requestID))
}

func (r *FriendRepo) GetRequestBetween(ctx context.Context, userID, otherID int64) (*domain.FriendRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM friend_requests
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)`,
		userID, otherID))
}

func (r *FriendRepo) UpdateStatus(ctx context.Context, requestID int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE friend_requests SET status = $1 WHERE id = $2`, status, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *FriendRepo) DeleteRequest(ctx context.Context, requestID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, requestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *FriendRepo) DeleteBetween(ctx context.Context, userID, otherID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM friend_requests
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)`,
		userID, otherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *FriendRepo) Friends(ctx context.Context, userID int64) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id IN (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END
			FROM friend_requests
			WHERE (sender_id = $1 OR receiver_id = $1) AND status = 'accepted'
		)
		ORDER BY username`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		friends = append(friends, user)
	}
	return friends, rows.Err()
}

func (r *FriendRepo) PendingReceived(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return r.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM friend_requests
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
}

func (r *FriendRepo) PendingSent(ctx context.Context, userID int64) ([]*domain.FriendRequest, error) {
	return r.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM friend_requests
		WHERE sender_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
}

func (r *FriendRepo) queryRequests(ctx context.Context, query string, args ...any) ([]*domain.FriendRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.FriendRequest
	for rows.Next() {
		fr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, fr)
	}
	return requests, rows.Err()
}

func (r *FriendRepo) AreFriends(ctx context.Context, userID, otherID int64) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM friend_requests
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		AND status = 'accepted'`, userID, otherID).Scan(&count)
	return count > 0, err
}

func (r *FriendRepo) PendingReceivedCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM friend_requests
		WHERE receiver_id = $1 AND status = 'pending'`, userID).Scan(&count)
	return count, err
}

func (r *FriendRepo) GetChatTheme(ctx context.Context, userID, friendID int64) (string, error) {
	var theme string
	err := r.pool.QueryRow(ctx, `
		SELECT theme FROM chat_themes WHERE user_id = $1 AND friend_id = $2`,
		userID, friendID).Scan(&theme)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultChatTheme, nil
	}
	if err != nil {
		return "", err
	}
	return theme, nil
}

func (r *FriendRepo) SetChatTheme(ctx context.Context, userID, friendID int64, theme string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_themes (user_id, friend_id, theme)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, friend_id) DO UPDATE SET theme = EXCLUDED.theme`,
		userID, friendID, theme)
	return err
}
