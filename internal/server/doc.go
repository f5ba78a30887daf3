// Package server implements the HTTP server using Echo framework.
//
// Routes: auth (sessions, verification, password reset), profile, dashboard,
// study (uploads, bot actions, subjects, sessions), social (friends, chat),
// realtime (/ws), observability (/health, /metrics).
// Handlers split by domain: handlers_auth.go, handlers_profile.go,
// handlers_dashboard.go, handlers_study.go, handlers_social.go, handlers_ws.go.
package server
