package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ct-rrya/study-buddy/internal/bot"
	"github.com/ct-rrya/study-buddy/internal/config"
	"github.com/ct-rrya/study-buddy/internal/domain"
	apperrors "github.com/ct-rrya/study-buddy/internal/errors"
	"github.com/ct-rrya/study-buddy/internal/giphy"
	"github.com/ct-rrya/study-buddy/internal/mail"
	"github.com/ct-rrya/study-buddy/internal/websocket"
)

const sessionMaxAgeDays = 7

var pageTemplates = []string{
	"login", "register", "forgot_password", "reset_password",
	"home", "dashboard", "study", "profile", "friends", "chat",
}

// pinger is the minimal health-check surface of a backing store.
type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the server needs. Optional fields (Giphy, Redis)
// may be nil.
type Deps struct {
	Users         domain.UserRepository
	Friends       domain.FriendRepository
	Messages      domain.MessageRepository
	Study         domain.StudyRepository
	Conversations domain.ConversationRepository
	Subjects      domain.SubjectRepository

	ChatClient bot.ChatClient
	Memory     bot.MemoryStore
	Giphy      *giphy.Client
	Mailer     mail.Mailer
	Hub        *websocket.Hub

	Postgres pinger
	Redis    pinger
}

type Server struct {
	echo         *echo.Echo
	config       *config.Config
	deps         Deps
	sessionStore *sessions.CookieStore
	templates    map[string]*template.Template
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	// Parse templates once at startup
	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := template.ParseFiles(fmt.Sprintf("web/templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestIDMiddleware())
	e.Use(metricsMiddleware())
	e.Use(apperrors.Middleware())

	sessionStore := sessions.NewCookieStore([]byte(cfg.SecretKey))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * sessionMaxAgeDays,
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}

	srv := &Server{
		echo:         e,
		config:       cfg,
		deps:         deps,
		sessionStore: sessionStore,
		templates:    templates,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
