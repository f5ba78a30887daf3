package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, username, email, password_hash, bio, avatar_type, avatar_style, avatar_seed,
	chat_theme, email_verified, COALESCE(verification_token, ''), COALESCE(reset_token, ''),
	reset_token_expiry, created_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var resetExpiry *time.Time
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Bio,
		&user.AvatarType, &user.AvatarStyle, &user.AvatarSeed, &user.ChatTheme,
		&user.EmailVerified, &user.VerificationToken, &user.ResetToken,
		&resetExpiry, &user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if resetExpiry != nil {
		user.ResetTokenExpiry = *resetExpiry
	}
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash, verificationToken string, emailVerified bool) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, verification_token, email_verified)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING `+userColumns,
		username, email, passwordHash, verificationToken, emailVerified))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return nil, domain.ErrEmailTaken
			}
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int64) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token))
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token))
}

func (r *UserRepo) MarkVerified(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET email_verified = TRUE, verification_token = NULL
		WHERE id = $1`, userID)
	return err
}

func (r *UserRepo) SetVerificationToken(ctx context.Context, userID int64, token string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET verification_token = $1 WHERE id = $2`, token, userID)
	return err
}

func (r *UserRepo) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3`, token, expiry, userID)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL
		WHERE id = $2`, passwordHash, userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, userID int64, username, bio string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $1, bio = $2 WHERE id = $3`, username, bio, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrUsernameTaken
		}
	}
	return err
}

func (r *UserRepo) UpdateAvatar(ctx context.Context, userID int64, avatarType, avatarStyle, avatarSeed string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET avatar_type = $1, avatar_style = $2, avatar_seed = $3
		WHERE id = $4`, avatarType, avatarStyle, avatarSeed, userID)
	return err
}

func (r *UserRepo) UpdateChatTheme(ctx context.Context, userID int64, theme string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET chat_theme = $1 WHERE id = $2`, theme, userID)
	return err
}

func (r *UserRepo) SearchByUsername(ctx context.Context, query string, excludeUserID int64, limit int) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username ILIKE '%' || $1 || '%' AND id != $2
		ORDER BY username
		LIMIT $3`, query, excludeUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
