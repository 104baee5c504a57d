package auth

// Package auth contains domain-level types for identity, sessions and routing.
// It is pure and free of framework/adapter concerns.

import "time"

// UserRef identifies the account behind a backend session.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// Metadata carries provider user metadata (name, phone) when present.
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// SessionToken is the backend-issued credential proving an authenticated identity.
// It is owned by the backend adapter; the controller only reads it.
type SessionToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserRef   `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *SessionToken) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// ChangeEvent names a backend session-change notification.
type ChangeEvent string

const (
	EventInitialSession ChangeEvent = "INITIAL_SESSION"
	EventSignedIn       ChangeEvent = "SIGNED_IN"
	EventSignedOut      ChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
	EventUserUpdated    ChangeEvent = "USER_UPDATED"
)

// Profile holds the account profile fields collected by the signup wizard.
// Empty text fields are left untouched on upsert.
type Profile struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Marketing bool   `json:"marketing_agreed"`
}

// ReservationDraft is the unfinished reservation persisted on the device.
// ScheduledFor is an ISO-8601 timestamp.
type ReservationDraft struct {
	ServiceID    string `json:"service_id"`
	ScheduledFor string `json:"scheduled_for"`
	Note         string `json:"note,omitempty"`
}

// VideoStats is the aggregate counter row for a short-form video.
type VideoStats struct {
	ID        string    `json:"id"        db:"id"`
	Title     string    `json:"title"     db:"title"`
	VideoURL  string    `json:"video_url" db:"video_url"`
	Likes     int64     `json:"likes"     db:"likes"`
	Views     int64     `json:"views"     db:"views"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LikeResult is returned after toggling a like.
type LikeResult struct {
	Liked     bool  `json:"is_liked"`
	LikeCount int64 `json:"like_count"`
}

// ClinicService is a bookable treatment offered by a clinic.
type ClinicService struct {
	ID          string    `json:"id"           db:"id"`
	Name        string    `json:"name"         db:"name"`
	Description string    `json:"description"  db:"description"`
	DurationMin int       `json:"duration_min" db:"duration_min"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a booked service slot owned by a signed-in user.
type Reservation struct {
	ID           string            `json:"id"            db:"id"`
	UserID       string            `json:"user_id"       db:"user_id"`
	ServiceID    string            `json:"service_id"    db:"service_id"`
	ScheduledFor time.Time         `json:"scheduled_for" db:"scheduled_for"`
	Note         string            `json:"note,omitempty" db:"note"`
	Status       ReservationStatus `json:"status"        db:"status"`
	CreatedAt    time.Time         `json:"created_at"    db:"created_at"`
}
