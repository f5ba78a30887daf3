package server

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/ct-rrya/study-buddy/internal/domain"
	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
)

const maxBioLength = 200

func (s *Server) handleProfilePage(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		slog.Error("failed to load user for profile", "user_id", userID, "error", err)
		return c.String(500, "Failed to load profile")
	}

	return s.render(c, "profile", map[string]any{
		"Username":  user.Username,
		"Email":     user.Email,
		"Bio":       user.Bio,
		"AvatarURL": user.AvatarURL(),
		"ChatTheme": user.ChatTheme,
		"Themes":    domain.ValidChatThemes,
	})
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return c.String(500, "Failed to load profile")
	}

	username := c.FormValue("username")
	if username == "" {
		username = user.Username
	}

	bio := c.FormValue("bio")
	if len(bio) > maxBioLength {
		bio = bio[:maxBioLength]
	}

	if err := s.deps.Users.UpdateProfile(ctx, userID, username, bio); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			s.addFlash(c, flashError, "Username already taken")
			return c.Redirect(302, "/profile")
		}
		slog.Error("failed to update profile", "user_id", userID, "error", err)
		return c.String(500, "Failed to update profile")
	}

	s.addFlash(c, flashSuccess, "Profile updated!")
	return c.Redirect(302, "/profile")
}

func (s *Server) handleUpdateAvatar(c echo.Context) error {
	userID := currentUserID(c)
	ctx := c.Request().Context()

	var req struct {
		Type  string `json:"type"`
		Style string `json:"style"`
		Seed  string `json:"seed"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}

	if req.Type == "" {
		req.Type = domain.AvatarTypeDiceBear
	}
	if req.Style == "" {
		req.Style = domain.DefaultAvatarStyle
	}
	if req.Seed == "" {
		user, err := s.deps.Users.GetByID(ctx, userID)
		if err != nil {
			return apperrors.InternalError("failed to load user", err)
		}
		req.Seed = user.Username
	}

	if err := s.deps.Users.UpdateAvatar(ctx, userID, req.Type, req.Style, req.Seed); err != nil {
		return apperrors.InternalError("failed to update avatar", err)
	}

	user, err := s.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.InternalError("failed to load user", err)
	}
	return c.JSON(200, map[string]any{"success": true, "avatar_url": user.AvatarURL()})
}

func (s *Server) handleUpdateTheme(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request")
	}
	if req.Theme == "" {
		req.Theme = domain.DefaultChatTheme
	}

	if !domain.IsValidChatTheme(req.Theme) {
		return apperrors.ValidationError("Invalid theme")
	}

	if err := s.deps.Users.UpdateChatTheme(c.Request().Context(), userID, req.Theme); err != nil {
		return apperrors.InternalError("failed to update theme", err)
	}

	return c.JSON(200, map[string]any{"success": true})
}
