package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ct-rrya/study-buddy/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		ping pinger
	}{
		{"postgres", s.deps.Postgres},
		{"redis", s.deps.Redis},
	}

	for _, check := range checks {
		// Redis is optional; a nil pinger means the dependency is not configured.
		if check.ping == nil {
			continue
		}
		if err := check.ping.Ping(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(200, version.Get())
}
