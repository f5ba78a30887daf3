package server

import (
	"log/slog"
	"math"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ct-rrya/study-buddy/internal/domain"
	"github.com/ct-rrya/study-buddy/internal/motivation"
)

const recentSessionLimit = 10

func (s *Server) handleHome(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		slog.Error("failed to load user for home", "user_id", userID, "error", err)
		return c.String(500, "Failed to load page")
	}

	totalSessions, err := s.deps.Study.SessionCount(ctx, userID)
	if err != nil {
		slog.Error("failed to count sessions", "user_id", userID, "error", err)
		return c.String(500, "Failed to load stats")
	}

	streak, err := s.streak(c, userID)
	if err != nil {
		return c.String(500, "Failed to load stats")
	}

	pendingRequests, err := s.deps.Friends.PendingReceivedCount(ctx, userID)
	if err != nil {
		slog.Warn("failed to count pending requests", "user_id", userID, "error", err)
	}

	daily := motivation.DailyMotivation(streak, totalSessions)

	data := map[string]any{
		"Username":        user.Username,
		"AvatarURL":       user.AvatarURL(),
		"Streak":          streak,
		"TotalSessions":   totalSessions,
		"PendingRequests": pendingRequests,
		"Motivation":      daily.Encouragement,
		"Tip":             daily.Tip,
		"Meme":            daily.Meme,
	}

	if gif := s.deps.Giphy.Motivation(ctx); gif != nil {
		data["GIF"] = gif
	}

	return s.render(c, "home", data)
}

func (s *Server) handleDashboard(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	sessions, err := s.deps.Study.SessionsByUser(ctx, userID, recentSessionLimit)
	if err != nil {
		slog.Error("failed to load sessions", "user_id", userID, "error", err)
		return c.String(500, "Failed to load stats")
	}

	minutes, questions, correct, err := s.deps.Study.Totals(ctx, userID)
	if err != nil {
		slog.Error("failed to load totals", "user_id", userID, "error", err)
		return c.String(500, "Failed to load stats")
	}

	accuracy := 0.0
	if questions > 0 {
		accuracy = math.Round(float64(correct)/float64(questions)*1000) / 10
	}

	streak, err := s.streak(c, userID)
	if err != nil {
		return c.String(500, "Failed to load stats")
	}

	return s.render(c, "dashboard", map[string]any{
		"Sessions":       sessions,
		"TotalMinutes":   minutes,
		"TotalQuestions": questions,
		"Accuracy":       accuracy,
		"Streak":         streak,
		"Feedback":       motivation.SessionFeedback(questions, correct),
	})
}

func (s *Server) streak(c echo.Context, userID int64) (int, error) {
	days, err := s.deps.Study.SessionDays(c.Request().Context(), userID)
	if err != nil {
		slog.Error("failed to load session days", "user_id", userID, "error", err)
		return 0, err
	}
	return domain.Streak(days, time.Now()), nil
}
