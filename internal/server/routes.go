package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Root - unauthenticated users land on login
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(302, "/login")
	})

	// Credential endpoints are rate limited per IP
	credLimiter := newIPRateLimiter(rate.Limit(1), 10)

	// Auth
	s.echo.GET("/login", s.handleLoginPage)
	s.echo.POST("/login", s.handleLogin, rateLimitMiddleware(credLimiter))
	s.echo.GET("/register", s.handleRegisterPage)
	s.echo.POST("/register", s.handleRegister, rateLimitMiddleware(credLimiter))
	s.echo.GET("/verify/:token", s.handleVerifyEmail)
	s.echo.POST("/resend-verification", s.handleResendVerification, rateLimitMiddleware(credLimiter))
	s.echo.GET("/forgot-password", s.handleForgotPasswordPage)
	s.echo.POST("/forgot-password", s.handleForgotPassword, rateLimitMiddleware(credLimiter))
	s.echo.GET("/reset-password/:token", s.handleResetPasswordPage)
	s.echo.POST("/reset-password/:token", s.handleResetPassword, rateLimitMiddleware(credLimiter))
	s.echo.GET("/logout", s.handleLogout, s.requireAuth)

	// Profile
	s.echo.GET("/profile", s.handleProfilePage, s.requireAuth)
	s.echo.POST("/profile/update", s.handleUpdateProfile, s.requireAuth)
	s.echo.POST("/profile/avatar", s.handleUpdateAvatar, s.requireAuth)
	s.echo.POST("/profile/theme", s.handleUpdateTheme, s.requireAuth)

	// Dashboard
	s.echo.GET("/home", s.handleHome, s.requireAuth)
	s.echo.GET("/dashboard", s.handleDashboard, s.requireAuth)

	// Study
	s.echo.GET("/study", s.handleStudyPage, s.requireAuth)
	s.echo.POST("/upload", s.handleUpload, s.requireAuth)
	s.echo.GET("/chat/history/:file_id", s.handleChatHistory, s.requireAuth)
	s.echo.POST("/chat/save", s.handleSaveChatMessage, s.requireAuth)
	s.echo.POST("/chat/clear/:file_id", s.handleClearChatHistory, s.requireAuth)
	s.echo.POST("/bot/action", s.handleBotAction, s.requireAuth)
	s.echo.POST("/bot/clear-memory/:file_id", s.handleClearBotMemory, s.requireAuth)
	s.echo.POST("/track/quiz", s.handleTrackQuiz, s.requireAuth)
	s.echo.POST("/session/start", s.handleStartSession, s.requireAuth)
	s.echo.POST("/session/end", s.handleEndSession, s.requireAuth)

	// Subjects
	s.echo.GET("/subjects", s.handleListSubjects, s.requireAuth)
	s.echo.POST("/subjects", s.handleCreateSubject, s.requireAuth)
	s.echo.POST("/subjects/delete/:subject_id", s.handleDeleteSubject, s.requireAuth)
	s.echo.POST("/study/assign-subject", s.handleAssignSubject, s.requireAuth)

	// Social
	s.echo.GET("/friends", s.handleFriendsPage, s.requireAuth)
	s.echo.POST("/friends/search", s.handleSearchUsers, s.requireAuth)
	s.echo.POST("/friends/request/:user_id", s.handleSendRequest, s.requireAuth)
	s.echo.POST("/friends/accept/:request_id", s.handleAcceptRequest, s.requireAuth)
	s.echo.POST("/friends/decline/:request_id", s.handleDeclineRequest, s.requireAuth)
	s.echo.POST("/friends/cancel/:request_id", s.handleCancelRequest, s.requireAuth)
	s.echo.POST("/friends/remove/:user_id", s.handleRemoveFriend, s.requireAuth)
	s.echo.GET("/chat/:friend_id", s.handleChatPage, s.requireAuth)
	s.echo.POST("/chat/send", s.handleSendMessage, s.requireAuth)
	s.echo.GET("/chat/messages/:friend_id", s.handleGetMessages, s.requireAuth)
	s.echo.POST("/chat/theme/:friend_id", s.handleSetChatTheme, s.requireAuth)

	// Realtime
	s.echo.GET("/ws", s.handleWebSocket, s.requireAuth)
}
