package server

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/ct-rrya/study-buddy/internal/metrics"
)

// Session keys
const (
	sessionName      = "studybuddy-session"
	sessionKeyUserID = "user_id"
	flashSuccess     = "success"
	flashError       = "error"
	flashInfo        = "info"
)

// requestIDMiddleware tags every request with a correlation ID, reusing the
// inbound X-Request-ID when a proxy already assigned one.
func requestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Set("requestID", requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(c)
		}
	}
}

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			method := c.Request().Method
			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return c.Redirect(302, "/login")
		}

		userID, ok := session.Values[sessionKeyUserID].(int64)
		if !ok || userID == 0 {
			return c.Redirect(302, "/login")
		}

		c.Set("userID", userID)
		return next(c)
	}
}

func currentUserID(c echo.Context) int64 {
	userID, _ := c.Get("userID").(int64)
	return userID
}

// --- Per-IP rate limiting for credential endpoints ---

// limiterIdleTTL bounds the limiter map: entries idle this long are evicted
// on the next lookup sweep.
const limiterIdleTTL = 15 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	clock     clockwork.Clock
	lastSweep time.Time
}

func newIPRateLimiter(r rate.Limit, burst int) *ipRateLimiter {
	return newIPRateLimiterWithClock(r, burst, clockwork.NewRealClock())
}

func newIPRateLimiterWithClock(r rate.Limit, burst int, clock clockwork.Clock) *ipRateLimiter {
	return &ipRateLimiter{
		entries:   make(map[string]*limiterEntry),
		rate:      r,
		burst:     burst,
		clock:     clock,
		lastSweep: clock.Now(),
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, entry := range l.entries {
			if now.Sub(entry.lastSeen) >= limiterIdleTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}

	entry, exists := l.entries[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// rateLimitMiddleware throttles brute-force attempts against login and reset
// endpoints per client IP.
func rateLimitMiddleware(l *ipRateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip, _, err := net.SplitHostPort(c.Request().RemoteAddr)
			if err != nil {
				ip = c.Request().RemoteAddr
			}
			if !l.get(ip).Allow() {
				return c.JSON(429, map[string]string{"error": "Too many attempts. Slow down."})
			}
			return next(c)
		}
	}
}

// --- Template rendering and flash helpers ---

// renderTemplate renders to a buffer first so a template failure never sends
// partial HTML.
func renderTemplate(c echo.Context, tmpl *template.Template, data map[string]any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("template execution failed", "path", c.Request().URL.Path, "error", err)
		return c.String(500, "Failed to render page")
	}
	return c.HTMLBlob(200, buf.Bytes())
}

func (s *Server) render(c echo.Context, name string, data map[string]any) error {
	tmpl, ok := s.templates[name]
	if !ok {
		slog.Error("unknown template", "name", name)
		return c.String(500, "Failed to render page")
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Flashes"]; !ok {
		data["Flashes"] = s.takeFlashes(c)
	}
	return renderTemplate(c, tmpl, data)
}

// Flash is a one-shot notice surfaced on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func (s *Server) addFlash(c echo.Context, kind, message string) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return
	}
	session.AddFlash(fmt.Sprintf("%s|%s", kind, message))
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Warn("failed to save flash", "error", err)
	}
}

func (s *Server) takeFlashes(c echo.Context) []Flash {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return nil
	}

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Warn("failed to clear flashes", "error", err)
	}

	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		encoded, ok := f.(string)
		if !ok {
			continue
		}
		kind, message := flashInfo, encoded
		if i := strings.IndexByte(encoded, '|'); i >= 0 {
			kind, message = encoded[:i], encoded[i+1:]
		}
		flashes = append(flashes, Flash{Kind: kind, Message: message})
	}
	return flashes
}
