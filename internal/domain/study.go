package domain

import (
	"context"
	"time"
)

type StudyFile struct {
	ID           int64
	UserID       int64
	SubjectID    int64 // 0 means unassigned
	Filename     string
	OriginalName string
	Content      string
	UploadedAt   time.Time
}

type StudySession struct {
	ID                int64
	UserID            int64
	Topic             string
	DurationMinutes   int
	QuestionsAnswered int
	CorrectAnswers    int
	StartedAt         time.Time
	EndedAt           time.Time // zero until the session ends
}

// Conversation roles for persisted bot chat history.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

type BotMessage struct {
	ID      int64
	UserID  int64
	FileID  int64
	Role    string
	Content string
	SentAt  time.Time
}

type Subject struct {
	ID        int64
	UserID    int64
	Name      string
	Color     string
	Icon      string
	CreatedAt time.Time
}

type StudyRepository interface {
	CreateFile(ctx context.Context, userID int64, filename, originalName, content string) (*StudyFile, error)
	GetFile(ctx context.Context, fileID int64) (*StudyFile, error)
	FilesByUser(ctx context.Context, userID int64) ([]*StudyFile, error)
	AssignSubject(ctx context.Context, fileID, subjectID int64) error
	DeleteFile(ctx context.Context, fileID int64) error

	StartSession(ctx context.Context, userID int64, topic string) (*StudySession, error)
	GetSession(ctx context.Context, sessionID int64) (*StudySession, error)
	EndSession(ctx context.Context, sessionID int64, duration, questions, correct int, endedAt time.Time) error
	RecordQuiz(ctx context.Context, userID int64, topic string, total, correct int, endedAt time.Time) error
	SessionsByUser(ctx context.Context, userID int64, limit int) ([]*StudySession, error)
	SessionCount(ctx context.Context, userID int64) (int, error)
	// SessionDays returns the distinct UTC days with at least one session,
	// most recent first. Used for streak calculation.
	SessionDays(ctx context.Context, userID int64) ([]time.Time, error)
	Totals(ctx context.Context, userID int64) (minutes, questions, correct int, err error)
}

type ConversationRepository interface {
	Append(ctx context.Context, userID, fileID int64, role, content string) error
	History(ctx context.Context, userID, fileID int64) ([]*BotMessage, error)
	Clear(ctx context.Context, userID, fileID int64) error
}

type SubjectRepository interface {
	Create(ctx context.Context, userID int64, name, color, icon string) (*Subject, error)
	Get(ctx context.Context, subjectID int64) (*Subject, error)
	ByUser(ctx context.Context, userID int64) ([]*Subject, error)
	Delete(ctx context.Context, subjectID int64) error
	// EnsureDefaults inserts the default subject set for a user that has none.
	EnsureDefaults(ctx context.Context, userID int64) error
}
