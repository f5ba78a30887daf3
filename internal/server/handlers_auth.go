package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/ct-rrya/study-buddy/internal/domain"
)

const (
	minPasswordLength = 6
	resetTokenTTL     = time.Hour
)

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Server) handleLoginPage(c echo.Context) error {
	return s.render(c, "login", nil)
}

func (s *Server) handleLogin(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			slog.Error("login lookup failed", "error", err)
		}
		s.addFlash(c, flashError, "Invalid username or password")
		return c.Redirect(302, "/login")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.addFlash(c, flashError, "Invalid username or password")
		return c.Redirect(302, "/login")
	}

	if !user.EmailVerified {
		s.addFlash(c, flashError, "Please verify your email first. Check your inbox!")
		return c.Redirect(302, "/login")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		// Corrupt cookie; start fresh
		session, _ = s.sessionStore.New(c.Request(), sessionName)
	}
	session.Values[sessionKeyUserID] = user.ID
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("failed to save login session", "error", err)
		return c.String(500, "Failed to save session")
	}

	return c.Redirect(302, "/home")
}

func (s *Server) handleRegisterPage(c echo.Context) error {
	return s.render(c, "register", nil)
}

func (s *Server) handleRegister(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")
	ctx := c.Request().Context()

	if username == "" || email == "" {
		s.addFlash(c, flashError, "Username and email are required")
		return c.Redirect(302, "/register")
	}
	if len(password) < minPasswordLength {
		s.addFlash(c, flashError, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		return c.Redirect(302, "/register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.String(500, "Internal error")
	}

	token, err := generateToken()
	if err != nil {
		slog.Error("failed to generate verification token", "error", err)
		return c.String(500, "Internal error")
	}

	// Without a mail relay, accounts are verified on creation so login works.
	autoVerify := !s.deps.Mailer.Enabled()

	user, err := s.deps.Users.Create(ctx, username, email, string(hash), token, autoVerify)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUsernameTaken):
			s.addFlash(c, flashError, "Username already exists")
		case errors.Is(err, domain.ErrEmailTaken):
			s.addFlash(c, flashError, "Email already registered")
		default:
			slog.Error("failed to create user", "error", err)
			s.addFlash(c, flashError, "Registration failed. Try again.")
		}
		return c.Redirect(302, "/register")
	}

	if err := s.deps.Subjects.EnsureDefaults(ctx, user.ID); err != nil {
		slog.Warn("failed to seed default subjects", "user_id", user.ID, "error", err)
	}

	if autoVerify {
		s.addFlash(c, flashSuccess, "Registration successful! You can now login.")
		return c.Redirect(302, "/login")
	}

	verifyURL := fmt.Sprintf("%s/verify/%s", s.config.BaseURL, token)
	if err := s.deps.Mailer.SendVerification(ctx, user.Email, user.Username, verifyURL); err != nil {
		slog.Error("failed to send verification email", "user_id", user.ID, "error", err)
		s.addFlash(c, flashError, "Could not send verification email. Use resend on the login page.")
	} else {
		s.addFlash(c, flashSuccess, "Registration successful! Check your inbox to verify your email.")
	}
	return c.Redirect(302, "/login")
}

func (s *Server) handleVerifyEmail(c echo.Context) error {
	token := c.Param("token")
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByVerificationToken(ctx, token)
	if err != nil {
		s.addFlash(c, flashError, "Invalid or expired verification link.")
		return c.Redirect(302, "/login")
	}

	if err := s.deps.Users.MarkVerified(ctx, user.ID); err != nil {
		slog.Error("failed to mark user verified", "user_id", user.ID, "error", err)
		return c.String(500, "Internal error")
	}

	s.addFlash(c, flashSuccess, "Email verified! You can now login.")
	return c.Redirect(302, "/login")
}

func (s *Server) handleResendVerification(c echo.Context) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil || user.EmailVerified {
		s.addFlash(c, flashError, "Email not found or already verified.")
		return c.Redirect(302, "/login")
	}

	token, err := generateToken()
	if err != nil {
		return c.String(500, "Internal error")
	}
	if err := s.deps.Users.SetVerificationToken(ctx, user.ID, token); err != nil {
		slog.Error("failed to store verification token", "user_id", user.ID, "error", err)
		return c.String(500, "Internal error")
	}

	verifyURL := fmt.Sprintf("%s/verify/%s", s.config.BaseURL, token)
	if err := s.deps.Mailer.SendVerification(ctx, user.Email, user.Username, verifyURL); err != nil {
		slog.Error("failed to resend verification email", "user_id", user.ID, "error", err)
		s.addFlash(c, flashError, "Could not send email. Try again later.")
	} else {
		s.addFlash(c, flashSuccess, "Verification email sent! Check your inbox.")
	}
	return c.Redirect(302, "/login")
}

func (s *Server) handleForgotPasswordPage(c echo.Context) error {
	return s.render(c, "forgot_password", nil)
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	ctx := c.Request().Context()

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		// Don't reveal whether the email exists
		s.addFlash(c, flashInfo, "If that email exists, a reset link has been sent.")
		return c.Redirect(302, "/login")
	}

	token, err := generateToken()
	if err != nil {
		return c.String(500, "Internal error")
	}
	if err := s.deps.Users.SetResetToken(ctx, user.ID, token, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		slog.Error("failed to store reset token", "user_id", user.ID, "error", err)
		return c.String(500, "Internal error")
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.config.BaseURL, token)
	if err := s.deps.Mailer.SendPasswordReset(ctx, user.Email, user.Username, resetURL); err != nil {
		slog.Error("failed to send reset email", "user_id", user.ID, "error", err)
		s.addFlash(c, flashError, "Could not send email. Try again later.")
	} else {
		s.addFlash(c, flashSuccess, "Password reset link sent to your email!")
	}
	return c.Redirect(302, "/login")
}

// resetTokenUser resolves a reset token to its user, enforcing expiry.
func (s *Server) resetTokenUser(c echo.Context, token string) (*domain.User, error) {
	user, err := s.deps.Users.GetByResetToken(c.Request().Context(), token)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if user.ResetTokenExpiry.IsZero() || user.ResetTokenExpiry.Before(time.Now().UTC()) {
		return nil, domain.ErrInvalidToken
	}
	return user, nil
}

func (s *Server) handleResetPasswordPage(c echo.Context) error {
	token := c.Param("token")
	if _, err := s.resetTokenUser(c, token); err != nil {
		s.addFlash(c, flashError, "Invalid or expired reset link.")
		return c.Redirect(302, "/forgot-password")
	}
	return s.render(c, "reset_password", map[string]any{"Token": token})
}

func (s *Server) handleResetPassword(c echo.Context) error {
	token := c.Param("token")
	ctx := c.Request().Context()

	user, err := s.resetTokenUser(c, token)
	if err != nil {
		s.addFlash(c, flashError, "Invalid or expired reset link.")
		return c.Redirect(302, "/forgot-password")
	}

	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	if password != confirm {
		s.addFlash(c, flashError, "Passwords do not match.")
		return c.Redirect(302, "/reset-password/"+token)
	}
	if len(password) < minPasswordLength {
		s.addFlash(c, flashError, fmt.Sprintf("Password must be at least %d characters.", minPasswordLength))
		return c.Redirect(302, "/reset-password/"+token)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return c.String(500, "Internal error")
	}

	if err := s.deps.Users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		slog.Error("failed to update password", "user_id", user.ID, "error", err)
		return c.String(500, "Internal error")
	}

	s.addFlash(c, flashSuccess, "Password reset successful! You can now login.")
	return c.Redirect(302, "/login")
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("failed to create new session during logout", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("failed to save logout session", "error", err)
		return c.String(500, "Failed to logout due to session error. Please try again or clear your browser cookies.")
	}

	return c.Redirect(302, "/login")
}
