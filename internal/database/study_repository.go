package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const fileColumns = `id, user_id, COALESCE(subject_id, 0), filename, original_name, content, uploaded_at`
const sessionColumns = `id, user_id, topic, duration_minutes, questions_answered, correct_answers, started_at, ended_at`

// StudyRepo implements domain.StudyRepository backed by PostgreSQL.
type StudyRepo struct {
	pool *pgxpool.Pool
}

func NewStudyRepo(pool *pgxpool.Pool) *StudyRepo {
	return &StudyRepo{pool: pool}
}

func scanFile(row pgx.Row) (*domain.StudyFile, error) {
	var f domain.StudyFile
	err := row.Scan(&f.ID, &f.UserID, &f.SubjectID, &f.Filename, &f.OriginalName, &f.Content, &f.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanSession(row pgx.Row) (*domain.StudySession, error) {
	var s domain.StudySession
	var endedAt *time.Time
	err := row.Scan(&s.ID, &s.UserID, &s.Topic, &s.DurationMinutes,
		&s.QuestionsAnswered, &s.CorrectAnswers, &s.StartedAt, &endedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if endedAt != nil {
		s.EndedAt = *endedAt
	}
	return &s, nil
}

func (r *StudyRepo) CreateFile(ctx context.Context, userID int64, filename, originalName, content string) (*domain.StudyFile, error) {
	f, err := scanFile(r.pool.QueryRow(ctx, `
		INSERT INTO study_files (user_id, filename, original_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+fileColumns, userID, filename, originalName, content))
	if err != nil {
		return nil, fmt.Errorf("failed to create study file: %w", err)
	}
	return f, nil
}

func (r *StudyRepo) GetFile(ctx context.Context, fileID int64) (*domain.StudyFile, error) {
	return scanFile(r.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM study_files WHERE id = $1`, fileID))
}

func (r *StudyRepo) FilesByUser(ctx context.Context, userID int64) ([]*domain.StudyFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fileColumns+` FROM study_files
		WHERE user_id = $1
		ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*domain.StudyFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *StudyRepo) AssignSubject(ctx context.Context, fileID, subjectID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE study_files SET subject_id = NULLIF($1, 0) WHERE id = $2`, subjectID, fileID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *StudyRepo) DeleteFile(ctx context.Context, fileID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM study_files WHERE id = $1`, fileID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *StudyRepo) StartSession(ctx context.Context, userID int64, topic string) (*domain.StudySession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO study_sessions (user_id, topic)
		VALUES ($1, $2)
		RETURNING `+sessionColumns, userID, topic))
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return s, nil
}

func (r *StudyRepo) GetSession(ctx context.Context, sessionID int64) (*domain.StudySession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, sessionID))
}

func (r *StudyRepo) EndSession(ctx context.Context, sessionID int64, duration, questions, correct int, endedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET duration_minutes = $1, questions_answered = $2, correct_answers = $3, ended_at = $4
		WHERE id = $5`, duration, questions, correct, endedAt, sessionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// RecordQuiz stores a completed quiz as a finished session. The five minute
// duration mirrors how quiz time has always been estimated on the dashboard.
func (r *StudyRepo) RecordQuiz(ctx context.Context, userID int64, topic string, total, correct int, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_sessions (user_id, topic, duration_minutes, questions_answered, correct_answers, ended_at)
		VALUES ($1, $2, 5, $3, $4, $5)`, userID, topic, total, correct, endedAt)
	return err
}

func (r *StudyRepo) SessionsByUser(ctx context.Context, userID int64, limit int) ([]*domain.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *StudyRepo) SessionCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM study_sessions WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (r *StudyRepo) SessionDays(ctx context.Context, userID int64) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT date_trunc('day', started_at AT TIME ZONE 'UTC') AS day
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY day DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (r *StudyRepo) Totals(ctx context.Context, userID int64) (minutes, questions, correct int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(duration_minutes), 0),
		       COALESCE(SUM(questions_answered), 0),
		       COALESCE(SUM(correct_answers), 0)
		FROM study_sessions
		WHERE user_id = $1`, userID).Scan(&minutes, &questions, &correct)
	return minutes, questions, correct, err
}
