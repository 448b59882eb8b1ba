package models

import (
	"fmt"
	"time"
)

// Session represents a persistent session between a browser and the gateway
type Session struct {
	ID string
	// UTC timestamp for when the session was created
	CreatedAt time.Time
	// UTC timestamp for when the session will expire
	ExpiresAt      time.Time
	IdleTTLSeconds SerializableInt
	MaxTTLSeconds  SerializableInt
	// The tracker user, set once the login succeeded
	UserID   string
	Username string
}

func (s *Session) Expired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// Authenticated reports whether a user logged in with this session.
func (s *Session) Authenticated() bool {
	return s.UserID != "" || s.Username != ""
}

// Touch updates a session's ExpiresAt field according to IdleTTLSeconds and MaxTTLSeconds
func (s *Session) Touch() {
	expiresAt := time.Now().UTC().Add(s.IdleTTL())
	if s.MaxTTLSeconds > 0 {
		maxExpiresAt := s.CreatedAt.Add(s.MaxTTL())
		if expiresAt.After(maxExpiresAt) {
			expiresAt = maxExpiresAt
		}
	}
	s.ExpiresAt = expiresAt
}

func (s *Session) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLSeconds) * time.Second
}

func (s *Session) MaxTTL() time.Duration {
	return time.Duration(s.MaxTTLSeconds) * time.Second
}

func (s Session) String() string {
	return fmt.Sprintf(
		"Session<ID: redacted, CreatedAt: %s, ExpiresAt: %s, UserID: %s, Username: %s>",
		s.CreatedAt,
		s.ExpiresAt,
		s.UserID,
		s.Username,
	)
}
