package auth

import "fmt"

// Kind tags the IdentityState variant.
type Kind uint8

const (
	// KindAnonymous means no session and no guest marker.
	KindAnonymous Kind = iota
	// KindGuest means a guest marker is present and there is no session.
	KindGuest
	// KindAuthenticated means a backend session exists.
	KindAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindGuest:
		return "guest"
	case KindAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IdentityState is the single source of truth for who the current user is.
// Exactly one variant is active: GuestID is set only for KindGuest, Session
// only for KindAuthenticated. Build values with Anonymous, Guest,
// Authenticated or DeriveIdentity.
type IdentityState struct {
	kind    Kind
	guestID string
	session *SessionToken
}

// Anonymous returns the no-session, no-guest state.
func Anonymous() IdentityState { return IdentityState{kind: KindAnonymous} }

// Guest returns the guest state for id. An empty id yields Anonymous.
func Guest(id string) IdentityState {
	if id == "" {
		return Anonymous()
	}
	return IdentityState{kind: KindGuest, guestID: id}
}

// Authenticated returns the state for a live session. A nil session yields Anonymous.
func Authenticated(session *SessionToken) IdentityState {
	if session == nil {
		return Anonymous()
	}
	return IdentityState{kind: KindAuthenticated, session: session}
}

// DeriveIdentity computes the state from the two independent inputs.
// A real session always wins over the guest marker, whatever its persisted value.
func DeriveIdentity(session *SessionToken, guestMarker string) IdentityState {
	if session != nil {
		return Authenticated(session)
	}
	return Guest(guestMarker)
}

// Kind returns the active variant.
func (s IdentityState) Kind() Kind { return s.kind }

// IsAnonymous reports whether neither a session nor a guest marker is present.
func (s IdentityState) IsAnonymous() bool { return s.kind == KindAnonymous }

// IsGuest reports guest marker present AND no session.
func (s IdentityState) IsGuest() bool { return s.kind == KindGuest }

// IsAuthenticated reports whether a backend session exists.
func (s IdentityState) IsAuthenticated() bool { return s.kind == KindAuthenticated }

// GuestID returns the guest identifier, empty unless IsGuest.
func (s IdentityState) GuestID() string { return s.guestID }

// Session returns the backend session, nil unless IsAuthenticated.
func (s IdentityState) Session() *SessionToken { return s.session }

// User returns the session user, nil unless IsAuthenticated.
func (s IdentityState) User() *UserRef {
	if s.session == nil {
		return nil
	}
	u := s.session.User
	return &u
}

// Equal reports whether two states name the same identity.
// Authenticated states compare by access token.
func (s IdentityState) Equal(o IdentityState) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindGuest:
		return s.guestID == o.guestID
	case KindAuthenticated:
		return s.session.AccessToken == o.session.AccessToken
	default:
		return true
	}
}

func (s IdentityState) String() string {
	switch s.kind {
	case KindGuest:
		return "guest(" + s.guestID + ")"
	case KindAuthenticated:
		return "authenticated(" + s.session.User.ID + ")"
	default:
		return s.kind.String()
	}
}
