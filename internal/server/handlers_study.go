package server

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ct-rrya/study-buddy/internal/bot"
	"github.com/ct-rrya/study-buddy/internal/domain"
	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
	"github.com/ct-rrya/study-buddy/internal/extract"
	"github.com/ct-rrya/study-buddy/internal/logging"
	"github.com/ct-rrya/study-buddy/internal/metrics"
)

func (s *Server) handleStudyPage(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	files, err := s.deps.Study.FilesByUser(ctx, userID)
	if err != nil {
		slog.Error("failed to load study files", "user_id", userID, "error", err)
		return c.String(500, "Failed to load files")
	}

	subjects, err := s.deps.Subjects.ByUser(ctx, userID)
	if err != nil {
		slog.Error("failed to load subjects", "user_id", userID, "error", err)
		return c.String(500, "Failed to load subjects")
	}

	// Repeated ?subject= params narrow the file list; no params shows all.
	filter := domain.NewSubjectFilter()
	selected := make(map[int64]bool)
	for _, raw := range c.QueryParams()["subject"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || selected[id] {
			continue
		}
		filter.Toggle(id)
		selected[id] = true
	}

	return s.render(c, "study", map[string]any{
		"Files":            filter.Apply(files),
		"Subjects":         subjects,
		"ShowsAll":         filter.ShowsAll(),
		"SelectedSubjects": selected,
	})
}

// ownedFile loads a study file and verifies ownership.
func (s *Server) ownedFile(c echo.Context, fileID int64) (*domain.StudyFile, error) {
	file, err := s.deps.Study.GetFile(c.Request().Context(), fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != currentUserID(c) {
		return nil, domain.ErrFileNotFound
	}
	return file, nil
}

func fileIDParam(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("file_id"), 10, 64)
}

// sanitizeFilename strips directory components and characters that don't
// belong in a stored name.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *Server) handleUpload(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.ValidationError("No file provided")
	}
	if fileHeader.Filename == "" {
		return apperrors.ValidationError("No file selected")
	}

	ext := strings.ToLower(path.Ext(fileHeader.Filename))
	if !extract.Allowed(fileHeader.Filename) {
		metrics.UploadsTotal.WithLabelValues(ext, "rejected").Inc()
		return apperrors.ValidationError(fmt.Sprintf("File type not allowed. Use %s files", extract.AllowedList()))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperrors.ValidationError("Could not read file")
	}
	defer src.Close()

	content, err := extract.Text(fileHeader.Filename, src)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(ext, "failed").Inc()
		if errors.Is(err, extract.ErrTooShort) {
			return apperrors.ValidationError("Could not extract text from file or file is empty")
		}
		return apperrors.ValidationError(fmt.Sprintf("Error processing file: %v", err))
	}

	filename := sanitizeFilename(fileHeader.Filename)
	file, err := s.deps.Study.CreateFile(ctx, userID, filename, fileHeader.Filename, content)
	if err != nil {
		return apperrors.InternalError("failed to save file", err)
	}

	metrics.UploadsTotal.WithLabelValues(ext, "ok").Inc()
	slog.Info("study file uploaded", "user_id", userID, "file_id", file.ID, "chars", len(content))
	return c.JSON(200, map[string]any{"success": true, "file_id": file.ID, "filename": filename})
}

func (s *Server) handleChatHistory(c echo.Context) error {
	userID := currentUserID(c)
	fileID, err := fileIDParam(c)
	if err != nil {
		return apperrors.ValidationError("Invalid file id")
	}

	history, err := s.deps.Conversations.History(c.Request().Context(), userID, fileID)
	if err != nil {
		return apperrors.InternalError("failed to load history", err).WithContext("file_id", fileID)
	}

	out := make([]map[string]any, 0, len(history))
	for _, m := range history {
		out = append(out, map[string]any{
			"role":    m.Role,
			"content": m.Content,
			"sent_at": m.SentAt.Format(time.RFC3339),
		})
	}
	return c.JSON(200, out)
}

func (s *Server) handleSaveChatMessage(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		FileID  int64  `json:"file_id"`
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}
	if req.Role != domain.RoleUser && req.Role != domain.RoleBot {
		return apperrors.ValidationError("Invalid role")
	}

	if err := s.deps.Conversations.Append(c.Request().Context(), userID, req.FileID, req.Role, req.Content); err != nil {
		return apperrors.InternalError("failed to save message", err).WithContext("file_id", req.FileID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleClearChatHistory(c echo.Context) error {
	userID := currentUserID(c)
	fileID, err := fileIDParam(c)
	if err != nil {
		return apperrors.ValidationError("Invalid file id")
	}

	if err := s.deps.Conversations.Clear(c.Request().Context(), userID, fileID); err != nil {
		return apperrors.InternalError("failed to clear history", err).WithContext("file_id", fileID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleBotAction(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		FileID       int64  `json:"file_id"`
		Action       string `json:"action"`
		Input        string `json:"input"`
		Question     string `json:"question"`
		NumQuestions int    `json:"num_questions"`
		QuestionType string `json:"question_type"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	file, err := s.ownedFile(c, req.FileID)
	if err != nil {
		return apperrors.NotFoundError("File not found")
	}

	history, err := s.deps.Memory.Load(ctx, userID, file.ID)
	if err != nil {
		logging.WithFile(file.ID).Warn("failed to load bot memory, starting fresh", "user_id", userID, "error", err)
	}
	studyBot := bot.NewStudyBot(s.deps.ChatClient, file.Content, history)

	var result *bot.Result
	switch req.Action {
	case "quiz":
		count, questionType := req.NumQuestions, req.QuestionType
		if count == 0 {
			count = domain.DefaultQuestionCount
		}
		if questionType == "" {
			questionType = domain.QuestionMixed
		}
		if err := domain.ValidateQuizConfig(count, questionType); err != nil {
			return apperrors.ValidationError(err.Error())
		}
		result, err = studyBot.GenerateQuiz(ctx, count, questionType)
	case "flashcards":
		result, err = studyBot.GenerateFlashcards(ctx)
	case "question":
		result, err = studyBot.AskQuestion(ctx)
	case "ask":
		result, err = studyBot.AnswerQuestion(ctx, req.Input)
	case "check_answer":
		result, err = studyBot.CheckAnswer(ctx, req.Input)
	default:
		return apperrors.ValidationError("Invalid action")
	}

	if err != nil {
		metrics.BotRequestsTotal.WithLabelValues(req.Action, "error").Inc()
		return apperrors.ExternalError("The study buddy is unavailable right now. Try again in a moment.", err).
			WithContext("action", req.Action).
			WithContext("file_id", file.ID)
	}
	metrics.BotRequestsTotal.WithLabelValues(req.Action, "ok").Inc()

	if req.Action == "quiz" && result.Type == "quiz" {
		metrics.QuizzesGenerated.Inc()
	}

	// Celebratory or encouraging GIF on answer feedback
	if result.Type == "feedback" {
		if result.Correct {
			result.GIF = s.deps.Giphy.CorrectAnswer(ctx)
		} else {
			result.GIF = s.deps.Giphy.WrongAnswer(ctx)
		}
	}

	if err := s.deps.Memory.Save(ctx, userID, file.ID, studyBot.History()); err != nil {
		slog.Warn("failed to save bot memory", "user_id", userID, "file_id", file.ID, "error", err)
	}

	return c.JSON(200, result)
}

func (s *Server) handleClearBotMemory(c echo.Context) error {
	userID := currentUserID(c)
	fileID, err := fileIDParam(c)
	if err != nil {
		return apperrors.ValidationError("Invalid file id")
	}

	if err := s.deps.Memory.Clear(c.Request().Context(), userID, fileID); err != nil {
		logging.WithUser(userID).Warn("failed to clear bot memory", "file_id", fileID, "error", err)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleTrackQuiz(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		FileID  int64 `json:"file_id"`
		Total   int   `json:"total"`
		Correct int   `json:"correct"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	topic := "Quiz"
	if file, err := s.ownedFile(c, req.FileID); err == nil {
		topic = file.OriginalName
	}

	if err := s.deps.Study.RecordQuiz(ctx, userID, topic, req.Total, req.Correct, time.Now().UTC()); err != nil {
		return apperrors.InternalError("failed to track quiz", err)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleStartSession(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}
	if req.Topic == "" {
		req.Topic = "General Study"
	}

	session, err := s.deps.Study.StartSession(c.Request().Context(), userID, req.Topic)
	if err != nil {
		return apperrors.InternalError("failed to start session", err)
	}
	return c.JSON(200, map[string]any{"session_id": session.ID})
}

func (s *Server) handleEndSession(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		SessionID int64 `json:"session_id"`
		Duration  int   `json:"duration"`
		Questions int   `json:"questions"`
		Correct   int   `json:"correct"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	session, err := s.deps.Study.GetSession(ctx, req.SessionID)
	if err != nil || session.UserID != userID {
		return apperrors.NotFoundError("Session not found")
	}

	if err := s.deps.Study.EndSession(ctx, session.ID, req.Duration, req.Questions, req.Correct, time.Now().UTC()); err != nil {
		return apperrors.InternalError("failed to end session", err).WithContext("session_id", session.ID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

// --- Subjects ---

func (s *Server) handleListSubjects(c echo.Context) error {
	userID := currentUserID(c)

	subjects, err := s.deps.Subjects.ByUser(c.Request().Context(), userID)
	if err != nil {
		return apperrors.InternalError("failed to load subjects", err)
	}

	out := make([]map[string]any, 0, len(subjects))
	for _, sub := range subjects {
		out = append(out, map[string]any{
			"id":    sub.ID,
			"name":  sub.Name,
			"color": sub.Color,
			"icon":  sub.Icon,
		})
	}
	return c.JSON(200, out)
}

func (s *Server) handleCreateSubject(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperrors.ValidationError("Subject name is required")
	}
	if req.Color == "" {
		req.Color = "#64748b"
	}

	icon, ok := domain.IconoirSubjectIcons[req.Name]
	if !ok {
		icon = domain.DefaultSubjectIcon
	}

	subject, err := s.deps.Subjects.Create(c.Request().Context(), userID, req.Name, req.Color, icon)
	if err != nil {
		return apperrors.InternalError("failed to create subject", err)
	}
	return c.JSON(200, map[string]any{"success": true, "subject_id": subject.ID})
}

func (s *Server) handleDeleteSubject(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	subjectID, err := strconv.ParseInt(c.Param("subject_id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("Invalid subject id")
	}

	subject, err := s.deps.Subjects.Get(ctx, subjectID)
	if err != nil || subject.UserID != userID {
		return apperrors.NotFoundError("Subject not found")
	}

	if err := s.deps.Subjects.Delete(ctx, subjectID); err != nil {
		return apperrors.InternalError("failed to delete subject", err).WithContext("subject_id", subjectID)
	}
	return c.JSON(200, map[string]any{"success": true})
}

func (s *Server) handleAssignSubject(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		FileID    int64 `json:"file_id"`
		SubjectID int64 `json:"subject_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	file, err := s.ownedFile(c, req.FileID)
	if err != nil {
		return apperrors.NotFoundError("File not found")
	}

	// SubjectID 0 clears the assignment
	if req.SubjectID != 0 {
		subject, err := s.deps.Subjects.Get(ctx, req.SubjectID)
		if err != nil || subject.UserID != userID {
			return apperrors.NotFoundError("Subject not found")
		}
	}

	if err := s.deps.Study.AssignSubject(ctx, file.ID, req.SubjectID); err != nil {
		return apperrors.InternalError("failed to assign subject", err).WithContext("file_id", file.ID)
	}
	return c.JSON(200, map[string]any{"success": true})
}
