package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

// SessionChangeFunc receives backend session-change notifications.
// session is nil after sign-out.
type SessionChangeFunc func(event domainauth.ChangeEvent, session *domainauth.SessionToken)

// BackendAuth is the hosted backend's auth capability set.
type BackendAuth interface {
	// GetSession returns the current session or nil when there is none.
	GetSession(ctx context.Context) (*domainauth.SessionToken, error)

	// OnSessionChange registers fn and returns a function that removes it.
	OnSessionChange(fn SessionChangeFunc) (unsubscribe func(), err error)

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*domainauth.SessionToken, error)

	// SignUp creates an account. The session is nil unless the backend signs the user in.
	SignUp(ctx context.Context, email, password string) (*domainauth.UserRef, *domainauth.SessionToken, error)

	// SignOut invalidates the current session.
	SignOut(ctx context.Context) error
}

// ProfileStore persists account profiles.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile domainauth.Profile) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Navigator is the navigation layer the controller drives.
type Navigator interface {
	// CurrentRoute returns the segments of the displayed screen.
	CurrentRoute() domainauth.Route
	// Replace navigates to target without keeping the current screen in history.
	Replace(target domainauth.Redirect) error
}
