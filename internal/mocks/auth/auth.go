package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.BackendAuth  = (*FakeBackend)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.DraftStore   = (*MemorySessionStore)(nil)
	_ ports.ProfileStore = (*MemoryProfileStore)(nil)
	_ ports.Navigator    = (*RecordingNavigator)(nil)
)

// FakeBackend simulates the hosted auth backend. Accounts live in memory and
// session-change listeners are invoked synchronously, like the real client.
type FakeBackend struct {
	GetSessionFunc      func(ctx context.Context) (*domainauth.SessionToken, error)
	SignInFunc          func(ctx context.Context, email, password string) (*domainauth.SessionToken, error)
	SignUpFunc          func(ctx context.Context, email, password string) (*domainauth.UserRef, *domainauth.SessionToken, error)
	SignOutFunc         func(ctx context.Context) error
	SubscribeErr        error

	// AutoConfirm makes SignUp return a live session, as backends with
	// email confirmation disabled do.
	AutoConfirm bool

	mu           sync.Mutex
	accounts     map[string]string
	session      *domainauth.SessionToken
	listeners    map[int]ports.SessionChangeFunc
	nextListener int
	counter      int
	unsubscribes int
}

// NewFakeBackend creates a FakeBackend with no accounts and no session.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		accounts:  make(map[string]string),
		listeners: make(map[int]ports.SessionChangeFunc),
	}
}

// AddAccount registers credentials that SignInWithPassword accepts.
func (f *FakeBackend) AddAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = password
}

// SetSession replaces the stored session without notifying listeners.
func (f *FakeBackend) SetSession(s *domainauth.SessionToken) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// Emit notifies every listener, as the backend does when its session changes
// outside of a controller operation (token refresh, another tab).
func (f *FakeBackend) Emit(event domainauth.ChangeEvent, s *domainauth.SessionToken) {
	f.mu.Lock()
	f.session = s
	fns := make([]ports.SessionChangeFunc, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

// ListenerCount reports the number of active subscriptions.
func (f *FakeBackend) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// Unsubscribes reports how many times an unsubscribe function released a listener.
func (f *FakeBackend) Unsubscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribes
}

func (f *FakeBackend) GetSession(ctx context.Context) (*domainauth.SessionToken, error) {
	if f.GetSessionFunc != nil {
		return f.GetSessionFunc(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *FakeBackend) OnSessionChange(fn ports.SessionChangeFunc) (func(), error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	f.mu.Lock()
	id := f.nextListener
	f.nextListener++
	f.listeners[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.listeners[id]; ok {
				delete(f.listeners, id)
				f.unsubscribes++
			}
		})
	}, nil
}

func (f *FakeBackend) SignInWithPassword(ctx context.Context, email, password string) (*domainauth.SessionToken, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	f.mu.Lock()
	want, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || want != password {
		return nil, &apperrors.BackendError{
			Status:  400,
			Code:    "invalid_credentials",
			Message: "Invalid login credentials",
		}
	}
	s := f.newSession(email)
	f.Emit(domainauth.EventSignedIn, s)
	return s, nil
}

func (f *FakeBackend) SignUp(ctx context.Context, email, password string) (*domainauth.UserRef, *domainauth.SessionToken, error) {
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, email, password)
	}
	f.mu.Lock()
	_, exists := f.accounts[email]
	if !exists {
		f.accounts[email] = password
	}
	f.mu.Unlock()
	if exists {
		return nil, nil, &apperrors.BackendError{
			Status:  422,
			Code:    "user_already_exists",
			Message: "User already registered",
		}
	}
	s := f.newSession(email)
	if !f.AutoConfirm {
		u := s.User
		return &u, nil, nil
	}
	f.Emit(domainauth.EventSignedIn, s)
	u := s.User
	return &u, s, nil
}

func (f *FakeBackend) SignOut(ctx context.Context) error {
	var err error
	if f.SignOutFunc != nil {
		err = f.SignOutFunc(ctx)
	}
	f.Emit(domainauth.EventSignedOut, nil)
	return err
}

func (f *FakeBackend) newSession(email string) *domainauth.SessionToken {
	f.mu.Lock()
	f.counter++
	n := f.counter
	f.mu.Unlock()
	return &domainauth.SessionToken{
		AccessToken:  fmt.Sprintf("access-%d", n),
		RefreshToken: fmt.Sprintf("refresh-%d", n),
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domainauth.UserRef{ID: fmt.Sprintf("user-%s", email), Email: email},
	}
}

// MemorySessionStore is an in-memory device store for unit tests.
// Set Err to make every call fail, or SetErr to fail only guest marker writes.
type MemorySessionStore struct {
	Err    error
	SetErr error

	mu      sync.Mutex
	guest   string
	session *domainauth.SessionToken
	draft   *domainauth.ReservationDraft
	sets    int
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// GuestSets counts successful SetGuestMarker calls.
func (m *MemorySessionStore) GuestSets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func (m *MemorySessionStore) GetGuestMarker(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.guest, nil
}

func (m *MemorySessionStore) SetGuestMarker(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.SetErr != nil {
		return m.SetErr
	}
	if id == "" {
		return errors.New("guest id cannot be empty")
	}
	m.guest = id
	m.sets++
	return nil
}

func (m *MemorySessionStore) ClearGuestMarker(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.guest = ""
	return nil
}

func (m *MemorySessionStore) SaveSession(_ context.Context, s domainauth.SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.session = &s
	return nil
}

func (m *MemorySessionStore) LoadSession(context.Context) (*domainauth.SessionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemorySessionStore) ClearSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.session = nil
	return nil
}

func (m *MemorySessionStore) SaveDraft(_ context.Context, d domainauth.ReservationDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.draft = &d
	return nil
}

func (m *MemorySessionStore) GetDraft(context.Context) (*domainauth.ReservationDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.draft == nil {
		return nil, nil
	}
	d := *m.draft
	return &d, nil
}

func (m *MemorySessionStore) ClearDraft(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.draft = nil
	return nil
}

func (m *MemorySessionStore) HasDraft(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.draft != nil, nil
}

// MemoryProfileStore records upserted profiles keyed by user id.
type MemoryProfileStore struct {
	ExistsErr error
	UpsertErr error

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
}

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
}

// Profile returns the stored profile for userID.
func (m *MemoryProfileStore) Profile(userID string) (domainauth.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	return p, ok
}

func (m *MemoryProfileStore) UpsertProfile(_ context.Context, p domainauth.Profile) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if p.UserID == "" {
		return errors.New("profile user id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

func (m *MemoryProfileStore) EmailExists(_ context.Context, email string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// RecordingNavigator holds a current route and records every Replace.
// Replace moves the current route to the target path.
type RecordingNavigator struct {
	ReplaceErr error

	mu       sync.Mutex
	route    domainauth.Route
	replaced []domainauth.Redirect
}

// NewRecordingNavigator starts at path.
func NewRecordingNavigator(path string) *RecordingNavigator {
	return &RecordingNavigator{route: domainauth.ParseRoute(path)}
}

// SetRoute simulates the user opening a screen.
func (n *RecordingNavigator) SetRoute(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = domainauth.ParseRoute(path)
}

// Replaced returns the hrefs of every Replace call in order.
func (n *RecordingNavigator) Replaced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.replaced))
	for i, r := range n.replaced {
		out[i] = r.Href()
	}
	return out
}

func (n *RecordingNavigator) CurrentRoute() domainauth.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append(domainauth.Route(nil), n.route...)
}

func (n *RecordingNavigator) Replace(target domainauth.Redirect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ReplaceErr != nil {
		return n.ReplaceErr
	}
	n.replaced = append(n.replaced, target)
	n.route = domainauth.ParseRoute(target.Path)
	return nil
}
