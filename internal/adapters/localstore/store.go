package localstore

// Package localstore keeps device-scoped values in process memory. It is the
// default device store for the CLI and for tests that do not need Redis.

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/ports"
)

var (
	_ ports.SessionStore = (*Store)(nil)
	_ ports.DraftStore   = (*Store)(nil)
)

const (
	keyGuestID          = "guest_id"
	keyReservationDraft = "reservation_draft"
	keyUserSession      = "user_session"
)

// Options configures a Store.
type Options struct {
	// DraftTTL expires the reservation draft; zero keeps it until cleared.
	DraftTTL time.Duration
	// CleanupInterval is how often expired items are purged. Defaults to 15 minutes.
	CleanupInterval time.Duration
}

// Store is an in-memory SessionStore and DraftStore backed by go-cache.
// Values are copied on the way in and out.
type Store struct {
	cache    *cache.Cache
	draftTTL time.Duration
}

// New creates an empty store.
func New(opts Options) *Store {
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = 15 * time.Minute
	}
	return &Store{
		cache:    cache.New(cache.NoExpiration, cleanup),
		draftTTL: opts.DraftTTL,
	}
}

func (s *Store) GetGuestMarker(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if v, found := s.cache.Get(keyGuestID); found {
		return v.(string), nil
	}
	return "", nil
}

func (s *Store) SetGuestMarker(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return errors.New("guest id cannot be empty")
	}
	s.cache.Set(keyGuestID, id, cache.NoExpiration)
	return nil
}

func (s *Store) ClearGuestMarker(ctx context.Context) error {
	return s.delete(ctx, keyGuestID)
}

func (s *Store) SaveSession(ctx context.Context, session domainauth.SessionToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Set(keyUserSession, session, cache.NoExpiration)
	return nil
}

func (s *Store) LoadSession(ctx context.Context) (*domainauth.SessionToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, found := s.cache.Get(keyUserSession); found {
		session := v.(domainauth.SessionToken)
		return &session, nil
	}
	return nil, nil
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.delete(ctx, keyUserSession)
}

func (s *Store) SaveDraft(ctx context.Context, draft domainauth.ReservationDraft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ttl := cache.NoExpiration
	if s.draftTTL > 0 {
		ttl = s.draftTTL
	}
	s.cache.Set(keyReservationDraft, draft, ttl)
	return nil
}

func (s *Store) GetDraft(ctx context.Context) (*domainauth.ReservationDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, found := s.cache.Get(keyReservationDraft); found {
		draft := v.(domainauth.ReservationDraft)
		return &draft, nil
	}
	return nil, nil
}

func (s *Store) ClearDraft(ctx context.Context) error {
	return s.delete(ctx, keyReservationDraft)
}

func (s *Store) HasDraft(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, found := s.cache.Get(keyReservationDraft)
	return found, nil
}

// ClearAll removes every stored value.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}
