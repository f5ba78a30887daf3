package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const subjectColumns = `id, user_id, name, color, icon, created_at`

// SubjectRepo implements domain.SubjectRepository backed by PostgreSQL.
type SubjectRepo struct {
	pool *pgxpool.Pool
}

func NewSubjectRepo(pool *pgxpool.Pool) *SubjectRepo {
	return &SubjectRepo{pool: pool}
}

func scanSubject(row pgx.Row) (*domain.Subject, error) {
	var s domain.Subject
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Color, &s.Icon, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubjectRepo) Create(ctx context.Context, userID int64, name, color, icon string) (*domain.Subject, error) {
	s, err := scanSubject(r.pool.QueryRow(ctx, `
		INSERT INTO subjects (user_id, name, color, icon)
		VALUES ($1, $2, $3, $4)
		RETURNING `+subjectColumns, userID, name, color, icon))
	if err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	return s, nil
}

func (r *SubjectRepo) Get(ctx context.Context, subjectID int64) (*domain.Subject, error) {
	return scanSubject(r.pool.QueryRow(ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE id = $1`, subjectID))
}

func (r *SubjectRepo) ByUser(ctx context.Context, userID int64) ([]*domain.Subject, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subjectColumns+` FROM subjects
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*domain.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepo) Delete(ctx context.Context, subjectID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, subjectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubjectNotFound
	}
	return nil
}

func (r *SubjectRepo) EnsureDefaults(ctx context.Context, userID int64) error {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subjects WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, s := range domain.DefaultSubjects {
		if _, err := r.pool.Exec(ctx, `
			INSERT INTO subjects (user_id, name, color, icon)
			VALUES ($1, $2, $3, $4)`, userID, s.Name, s.Color, s.Icon); err != nil {
			return fmt.Errorf("failed to seed default subjects: %w", err)
		}
	}
	return nil
}
