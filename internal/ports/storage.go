package ports

import (
	"context"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

// SessionStore is device key-value persistence for the guest marker and
// the backend session. Getters return the zero value and no error when the
// key is absent.
type SessionStore interface {
	GetGuestMarker(ctx context.Context) (string, error)
	SetGuestMarker(ctx context.Context, id string) error
	ClearGuestMarker(ctx context.Context) error

	SaveSession(ctx context.Context, session domainauth.SessionToken) error
	LoadSession(ctx context.Context) (*domainauth.SessionToken, error)
	ClearSession(ctx context.Context) error
}

// DraftStore persists the unfinished reservation on the device.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft domainauth.ReservationDraft) error
	GetDraft(ctx context.Context) (*domainauth.ReservationDraft, error)
	ClearDraft(ctx context.Context) error
	HasDraft(ctx context.Context) (bool, error)
}

// VideoStatsStore persists short-form video counters and per-user likes.
type VideoStatsStore interface {
	IncrementView(ctx context.Context, videoID string) error
	ToggleLike(ctx context.Context, videoID, userID string) (domainauth.LikeResult, error)
	GetStats(ctx context.Context, videoID string) (*domainauth.VideoStats, error)
	IsLiked(ctx context.Context, videoID, userID string) (bool, error)
}

// ReservationStore persists clinic services and reservations.
type ReservationStore interface {
	ListServices(ctx context.Context) ([]domainauth.ClinicService, error)
	// CreateReservation stores r and returns it with its id, status and
	// creation time filled in.
	CreateReservation(ctx context.Context, r domainauth.Reservation) (*domainauth.Reservation, error)
	ListReservations(ctx context.Context, userID string) ([]domainauth.Reservation, error)
}
