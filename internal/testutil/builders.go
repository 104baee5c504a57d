// Package testutil provides testing utilities and helpers for purumi packages.
package testutil

import (
	"time"

	"github.com/google/uuid"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

// SessionBuilder provides a fluent interface for building SessionToken values for testing.
type SessionBuilder struct {
	s domainauth.SessionToken
}

// NewSession creates a SessionBuilder for a one-hour bearer session.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		s: domainauth.SessionToken{
			AccessToken:  "access-" + uuid.NewString(),
			RefreshToken: "refresh-" + uuid.NewString(),
			TokenType:    "bearer",
			ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
			User:         domainauth.UserRef{ID: "user-test", Email: "test@example.com"},
		},
	}
}

// WithEmail sets the user email and derives the user id from it.
func (b *SessionBuilder) WithEmail(email string) *SessionBuilder {
	b.s.User.Email = email
	b.s.User.ID = "user-" + email
	return b
}

// WithUserID sets the user id.
func (b *SessionBuilder) WithUserID(id string) *SessionBuilder {
	b.s.User.ID = id
	return b
}

// WithTokens sets the access and refresh tokens.
func (b *SessionBuilder) WithTokens(access, refresh string) *SessionBuilder {
	b.s.AccessToken = access
	b.s.RefreshToken = refresh
	return b
}

// ExpiresAt sets the access token expiry.
func (b *SessionBuilder) ExpiresAt(t time.Time) *SessionBuilder {
	b.s.ExpiresAt = t
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() domainauth.SessionToken {
	return b.s
}

// BuildPtr returns a pointer to a copy of the session.
func (b *SessionBuilder) BuildPtr() *domainauth.SessionToken {
	s := b.s
	return &s
}
