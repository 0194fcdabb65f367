// Package common defines shared constants and sentinel errors used across
// client and server layers of quicknotes. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// User registry errors.
	ErrUserExists = errors.New("username already taken")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Subscription lifecycle errors.
	ErrSubscriptionClosed = errors.New("subscription closed")
)
