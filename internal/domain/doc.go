// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (user.go, study.go, social.go,
// quiz.go, etc.) with shared types, cross-cutting interfaces and pure domain
// logic. Prevents circular imports by keeping interfaces on the consumer side.
package domain
