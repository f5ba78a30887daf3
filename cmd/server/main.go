package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/ct-rrya/study-buddy/internal/bot"
	"github.com/ct-rrya/study-buddy/internal/config"
	"github.com/ct-rrya/study-buddy/internal/database"
	"github.com/ct-rrya/study-buddy/internal/giphy"
	"github.com/ct-rrya/study-buddy/internal/logging"
	"github.com/ct-rrya/study-buddy/internal/mail"
	"github.com/ct-rrya/study-buddy/internal/redis"
	"github.com/ct-rrya/study-buddy/internal/server"
	"github.com/ct-rrya/study-buddy/internal/websocket"
)

func setupConfig() *config.Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupMailer(cfg *config.Config) mail.Mailer {
	if !cfg.MailConfigured() {
		slog.Warn("Mail credentials not set, email verification disabled")
		return mail.NoopMailer{}
	}
	return mail.NewSMTPMailer(cfg.MailServer, cfg.MailPort, cfg.MailUsername, cfg.MailPassword)
}

func runGracefulShutdown(srv *server.Server, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	deps := server.Deps{
		Users:         database.NewUserRepo(pool),
		Friends:       database.NewFriendRepo(pool),
		Messages:      database.NewMessageRepo(pool),
		Study:         database.NewStudyRepo(pool),
		Conversations: database.NewConversationRepo(pool),
		Subjects:      database.NewSubjectRepo(pool),
		ChatClient:    bot.NewGroqClient(cfg.GroqAPIKey),
		Giphy:         giphy.NewClient(cfg.GiphyAPIKey),
		Mailer:        setupMailer(cfg),
		Postgres:      pool,
	}

	// Redis is optional: bot conversation memory falls back to an in-process
	// store with the same TTL semantics.
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()

		deps.Memory = redis.NewConversationStore(redisClient)
		deps.Redis = redisClient
	} else {
		slog.Warn("REDIS_URL not set, using in-memory bot conversation store")
		deps.Memory = bot.NewInMemoryStore(clockwork.NewRealClock())
	}

	hub := websocket.NewHub()
	deps.Hub = hub

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
