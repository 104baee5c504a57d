package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

var tracer = otel.Tracer("github.com/purumi/purumi/internal/service")

// ErrControllerNotRunning is the panic value for operations used before Start or after Close.
var ErrControllerNotRunning = errors.New("auth session controller is not running")

// ErrControllerStarted is returned when Start is called twice.
var ErrControllerStarted = errors.New("auth session controller already started")

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

const updateQueueSize = 16

// AuthSessionOptions groups dependencies for AuthSessionController.
type AuthSessionOptions struct {
	Backend   ports.BackendAuth
	Store     ports.SessionStore
	Navigator ports.Navigator
	// Profiles is optional; without it sign-up skips the duplicate check and profile upsert.
	Profiles ports.ProfileStore
	// Guard defaults to the default route table and policy.
	Guard *domainauth.Guard
	// NewGuestID defaults to random UUIDs.
	NewGuestID func() string
	Logger     *slog.Logger
}

// AuthState is an immutable snapshot of the controller state.
type AuthState struct {
	Identity domainauth.IdentityState
	Loading  bool
}

// Session returns the backend session, nil unless authenticated.
func (s AuthState) Session() *domainauth.SessionToken { return s.Identity.Session() }

// User returns the session user, nil unless authenticated.
func (s AuthState) User() *domainauth.UserRef { return s.Identity.User() }

// IsGuest reports guest marker present and no session.
func (s AuthState) IsGuest() bool { return s.Identity.IsGuest() }

type sessionSource uint8

const (
	sessionFromUpdate sessionSource = iota
	sessionKeep
	sessionClear
)

type guestSource uint8

const (
	guestRead guestSource = iota
	guestSet
	guestClear
)

// stateUpdate is one recomputation request. Updates are applied by a single
// worker in arrival order.
type stateUpdate struct {
	ctx           context.Context
	event         domainauth.ChangeEvent
	sessionSrc    sessionSource
	session       *domainauth.SessionToken
	guestSrc      guestSource
	guestID       string
	navigate      bool
	finishLoading bool
	barrier       bool
	applied       chan AuthState
}

// AuthSessionController is the single source of truth for identity state.
// It is the only component that talks to the backend auth service and the
// only one that decides where the app navigates after identity changes.
//
// Listener callbacks run on the controller's worker goroutine and must not
// call controller operations synchronously.
type AuthSessionController struct {
	backend    ports.BackendAuth
	store      ports.SessionStore
	nav        ports.Navigator
	profiles   ports.ProfileStore
	guard      domainauth.Guard
	newGuestID func() string
	logger     *slog.Logger

	mu    sync.RWMutex
	state AuthState
	// guestMu serializes guest id creation.
	guestMu sync.Mutex
	// fallbackGuestID is used when the store cannot hand out a guest id.
	fallbackGuestID string

	listenersMu  sync.Mutex
	listeners    map[uint64]func(AuthState)
	nextListener uint64

	started     atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
	unsubscribe func()
	updates     chan stateUpdate
	done        chan struct{}
	workerDone  chan struct{}
}

// NewAuthSessionController constructs a controller. It does no I/O until Start.
func NewAuthSessionController(opts AuthSessionOptions) *AuthSessionController {
	if opts.Backend == nil || opts.Store == nil || opts.Navigator == nil {
		panic("service: AuthSessionController requires Backend, Store and Navigator")
	}
	guard := domainauth.NewGuard(domainauth.DefaultRouteTable, domainauth.DefaultGuardPolicy)
	if opts.Guard != nil {
		guard = *opts.Guard
	}
	newID := opts.NewGuestID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthSessionController{
		backend:    opts.Backend,
		store:      opts.Store,
		nav:        opts.Navigator,
		profiles:   opts.Profiles,
		guard:      guard,
		newGuestID: newID,
		logger:     logger.With("component", "auth_session"),
		state:      AuthState{Identity: domainauth.Anonymous(), Loading: true},
		listeners:  make(map[uint64]func(AuthState)),
		updates:    make(chan stateUpdate, updateQueueSize),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

// Start loads the initial identity, runs the guard once and subscribes to
// backend session changes. On failure the controller is closed.
func (c *AuthSessionController) Start(ctx context.Context) (err error) {
	if c.closed.Load() {
		return ErrControllerNotRunning
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrControllerStarted
	}
	go c.run()
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.setLoading(true)

	var (
		session *domainauth.SessionToken
		marker  string
		g       errgroup.Group
	)
	g.Go(func() error {
		s, getErr := c.backend.GetSession(ctx)
		if getErr != nil {
			c.logger.ErrorContext(ctx, "session lookup failed", "error", getErr)
			return nil
		}
		session = s
		return nil
	})
	g.Go(func() error {
		m, getErr := c.store.GetGuestMarker(ctx)
		if getErr != nil {
			c.logger.ErrorContext(ctx, "guest marker lookup failed", "error", getErr)
			return nil
		}
		marker = m
		return nil
	})
	_ = g.Wait()

	st, err := c.submit(ctx, stateUpdate{
		event:         domainauth.EventInitialSession,
		sessionSrc:    sessionFromUpdate,
		session:       session,
		guestSrc:      guestSet,
		guestID:       marker,
		navigate:      true,
		finishLoading: true,
	})
	if err != nil {
		return fmt.Errorf("apply initial identity: %w", err)
	}

	unsub, err := c.backend.OnSessionChange(c.onSessionChange)
	if err != nil {
		return fmt.Errorf("subscribe to session changes: %w", err)
	}
	c.mu.Lock()
	c.unsubscribe = unsub
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "auth session started", "identity", st.Identity.Kind().String())
	return nil
}

// Close unsubscribes from the backend and stops the worker. Safe to call
// more than once; the backend subscription is released exactly once.
func (c *AuthSessionController) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.mu.Lock()
		unsub := c.unsubscribe
		c.unsubscribe = nil
		c.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		close(c.done)
		if c.started.Load() {
			<-c.workerDone
		}
	})
	return nil
}

// State returns the current snapshot.
func (c *AuthSessionController) State() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe registers fn to receive every published state. The returned
// function removes the listener.
func (c *AuthSessionController) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

// GuardRoutes returns the route table the controller navigates with.
func (c *AuthSessionController) GuardRoutes() domainauth.RouteTable { return c.guard.Routes() }

// Evaluate runs the guard against the navigator's current route and
// performs the redirect, if any. Nothing happens while loading.
func (c *AuthSessionController) Evaluate(ctx context.Context) (domainauth.Decision, error) {
	c.mustRun()
	st := c.State()
	if st.Loading {
		return domainauth.Decision{}, nil
	}
	return c.applyGuard(ctx, st.Identity)
}

// SignIn delegates credential validation to the backend. It does not
// navigate; the backend's session-change notification drives the guard.
// The returned error is an *apperrors.AppError iff sign-in failed.
func (c *AuthSessionController) SignIn(ctx context.Context, email, password string) error {
	c.mustRun()
	ctx, span := tracer.Start(ctx, "AuthSession.SignIn")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return endSpan(span, apperrors.ValidationField("email", "이메일을 입력해주세요."))
	}
	if password == "" {
		return endSpan(span, apperrors.ValidationField("password", "비밀번호를 입력해주세요."))
	}

	if _, err := c.backend.SignInWithPassword(ctx, email, password); err != nil {
		appErr := apperrors.ClassifyAuthError(err, apperrors.MsgSignInFailed)
		c.logAuthFailure(ctx, "sign in failed", appErr)
		return endSpan(span, appErr)
	}
	c.flush(ctx)
	return nil
}

// SignUp creates an account and, when profile is given, upserts the profile
// record for the new user. It does not sign the user in unless the backend does.
func (c *AuthSessionController) SignUp(
	ctx context.Context,
	email, password string,
	profile *domainauth.Profile,
) error {
	c.mustRun()
	ctx, span := tracer.Start(ctx, "AuthSession.SignUp")
	defer span.End()

	email = strings.TrimSpace(email)
	if err := validateSignUp(email, password); err != nil {
		return endSpan(span, err)
	}

	if c.profiles != nil {
		exists, err := c.profiles.EmailExists(ctx, email)
		switch {
		case err != nil:
			// duplicate check is advisory; the backend rejects real duplicates
			c.logger.WarnContext(ctx, "email duplicate check failed", "error", err)
		case exists:
			return endSpan(span, &apperrors.AppError{
				Code:    apperrors.ErrCodeConflict,
				Message: "이미 사용 중인 이메일입니다.",
				Field:   "email",
			})
		}
	}

	user, _, err := c.backend.SignUp(ctx, email, password)
	if err != nil {
		appErr := apperrors.ClassifyAuthError(err, apperrors.MsgSignUpFailed)
		c.logAuthFailure(ctx, "sign up failed", appErr)
		return endSpan(span, appErr)
	}

	if profile != nil && c.profiles != nil && user != nil {
		p := *profile
		p.UserID = user.ID
		if p.Email == "" {
			p.Email = email
		}
		if upsertErr := c.profiles.UpsertProfile(ctx, p); upsertErr != nil {
			c.logger.ErrorContext(ctx, "profile upsert failed", "user_id", user.ID, "error", upsertErr)
			code := apperrors.GetCode(upsertErr)
			if code == "" {
				code = apperrors.ErrCodeInternal
			}
			return endSpan(span, apperrors.Wrap(upsertErr, code, "프로필 저장에 실패했습니다."))
		}
	}
	c.flush(ctx)
	return nil
}

// SignOut invalidates the backend session and clears the guest marker. It
// is best effort: failures are logged and the identity always ends Anonymous.
func (c *AuthSessionController) SignOut(ctx context.Context) {
	c.mustRun()
	ctx, span := tracer.Start(ctx, "AuthSession.SignOut")
	defer span.End()

	// The backend emits SIGNED_OUT synchronously and that recomputation reads
	// the marker, so the marker goes first.
	if err := c.store.ClearGuestMarker(ctx); err != nil {
		span.RecordError(err)
		c.logger.ErrorContext(ctx, "clear guest marker failed", "error", err)
	}
	c.mu.Lock()
	c.fallbackGuestID = ""
	c.mu.Unlock()

	if err := c.backend.SignOut(ctx); err != nil {
		span.RecordError(err)
		c.logger.ErrorContext(ctx, "backend sign out failed", "error", err)
	}

	if _, err := c.submit(context.WithoutCancel(ctx), stateUpdate{
		event:      domainauth.EventSignedOut,
		sessionSrc: sessionClear,
		guestSrc:   guestClear,
		navigate:   true,
	}); err != nil {
		c.logger.WarnContext(ctx, "sign out state not applied", "error", err)
	}
}

// ContinueAsGuest ensures a guest id exists (created once, never regenerated),
// marks the identity as guest and navigates home. It returns the guest id.
func (c *AuthSessionController) ContinueAsGuest(ctx context.Context) (string, error) {
	c.mustRun()
	ctx, span := tracer.Start(ctx, "AuthSession.ContinueAsGuest")
	defer span.End()

	id := c.ensureGuestID(ctx)
	span.SetAttributes(attribute.String("guest.id", id))

	if _, err := c.submit(ctx, stateUpdate{
		sessionSrc: sessionKeep,
		guestSrc:   guestSet,
		guestID:    id,
	}); err != nil {
		return id, endSpan(span, apperrors.Wrap(err, apperrors.ErrCodeInternal, apperrors.MsgGuestFailed))
	}

	home := domainauth.Redirect{Path: c.guard.Routes().HomePath}
	if err := c.nav.Replace(home); err != nil {
		c.logger.ErrorContext(ctx, "navigate home failed", "error", err)
		return id, endSpan(span, apperrors.Wrap(err, apperrors.ErrCodeInternal, apperrors.MsgGuestFailed))
	}
	return id, nil
}

func (c *AuthSessionController) ensureGuestID(ctx context.Context) string {
	c.guestMu.Lock()
	defer c.guestMu.Unlock()

	id, err := c.store.GetGuestMarker(ctx)
	if err == nil && id != "" {
		return id
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "guest marker lookup failed", "error", err)
		return c.fallbackGuest()
	}

	id = c.newGuestID()
	if setErr := c.store.SetGuestMarker(ctx, id); setErr != nil {
		c.logger.ErrorContext(ctx, "guest marker save failed", "error", setErr)
		return c.fallbackGuest()
	}
	return id
}

// fallbackGuest hands out one process-local id when the store is unusable.
func (c *AuthSessionController) fallbackGuest() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallbackGuestID == "" {
		c.fallbackGuestID = c.newGuestID()
	}
	return c.fallbackGuestID
}

func (c *AuthSessionController) onSessionChange(event domainauth.ChangeEvent, session *domainauth.SessionToken) {
	email := ""
	if session != nil {
		email = session.User.Email
	}
	c.logger.Info("session changed", "event", string(event), "email", email)

	upd := stateUpdate{
		ctx:        context.Background(),
		event:      event,
		sessionSrc: sessionFromUpdate,
		session:    session,
		guestSrc:   guestRead,
		navigate:   true,
	}
	select {
	case c.updates <- upd:
	case <-c.done:
	}
}

// submit enqueues upd and waits until the worker has applied it.
func (c *AuthSessionController) submit(ctx context.Context, upd stateUpdate) (AuthState, error) {
	upd.ctx = ctx
	upd.applied = make(chan AuthState, 1)
	select {
	case c.updates <- upd:
	case <-c.done:
		return AuthState{}, ErrControllerNotRunning
	case <-ctx.Done():
		return AuthState{}, ctx.Err()
	}
	select {
	case st := <-upd.applied:
		return st, nil
	case <-c.done:
		return AuthState{}, ErrControllerNotRunning
	case <-ctx.Done():
		return AuthState{}, ctx.Err()
	}
}

// flush waits until every update queued so far has been applied.
func (c *AuthSessionController) flush(ctx context.Context) {
	if _, err := c.submit(ctx, stateUpdate{barrier: true}); err != nil {
		c.logger.DebugContext(ctx, "flush interrupted", "error", err)
	}
}

func (c *AuthSessionController) run() {
	defer close(c.workerDone)
	for {
		select {
		case <-c.done:
			return
		case upd := <-c.updates:
			st := c.apply(upd)
			if upd.applied != nil {
				upd.applied <- st
			}
		}
	}
}

func (c *AuthSessionController) apply(upd stateUpdate) AuthState {
	if upd.barrier {
		return c.State()
	}
	ctx := upd.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.RLock()
	current := c.state
	c.mu.RUnlock()

	var session *domainauth.SessionToken
	switch upd.sessionSrc {
	case sessionFromUpdate:
		session = upd.session
	case sessionKeep:
		session = current.Session()
	case sessionClear:
		session = nil
	}

	var marker string
	switch upd.guestSrc {
	case guestRead:
		m, err := c.store.GetGuestMarker(ctx)
		if err != nil {
			c.logger.ErrorContext(ctx, "guest marker lookup failed", "error", err)
		} else {
			marker = m
		}
	case guestSet:
		marker = upd.guestID
	case guestClear:
		marker = ""
	}

	identity := domainauth.DeriveIdentity(session, marker)

	c.mu.Lock()
	c.state.Identity = identity
	if upd.finishLoading {
		c.state.Loading = false
	}
	st := c.state
	c.mu.Unlock()

	if !current.Identity.Equal(identity) {
		c.logger.InfoContext(ctx, "identity changed",
			"from", current.Identity.Kind().String(),
			"to", identity.Kind().String(),
			"event", string(upd.event))
	}

	if upd.navigate {
		if _, err := c.applyGuard(ctx, identity); err != nil {
			c.logger.ErrorContext(ctx, "guard redirect failed", "error", err)
		}
	}
	c.publish(st)
	return st
}

func (c *AuthSessionController) applyGuard(ctx context.Context, identity domainauth.IdentityState) (domainauth.Decision, error) {
	route := c.nav.CurrentRoute()
	decision := c.guard.Decide(identity, route)
	if !decision.Redirects() {
		return decision, nil
	}
	c.logger.DebugContext(ctx, "guard redirect",
		"rule", decision.Rule.String(),
		"route", route.Path(),
		"target", decision.Redirect.Href())
	if err := c.nav.Replace(*decision.Redirect); err != nil {
		return decision, fmt.Errorf("replace route: %w", err)
	}
	return decision, nil
}

func (c *AuthSessionController) publish(st AuthState) {
	c.listenersMu.Lock()
	fns := make([]func(AuthState), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		c.callListener(fn, st)
	}
}

func (c *AuthSessionController) callListener(fn func(AuthState), st AuthState) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("auth state listener panicked", "panic", r)
		}
	}()
	fn(st)
}

func (c *AuthSessionController) setLoading(loading bool) {
	c.mu.Lock()
	c.state.Loading = loading
	c.mu.Unlock()
}

func (c *AuthSessionController) mustRun() {
	if !c.started.Load() || c.closed.Load() {
		panic(ErrControllerNotRunning)
	}
}

func (c *AuthSessionController) logAuthFailure(ctx context.Context, msg string, err *apperrors.AppError) {
	switch err.Code {
	case apperrors.ErrCodeUnavailable, apperrors.ErrCodeInternal, apperrors.ErrCodeTimeout:
		c.logger.ErrorContext(ctx, msg, "code", string(err.Code), "error", err)
	default:
		c.logger.InfoContext(ctx, msg, "code", string(err.Code))
	}
}

func validateSignUp(email, password string) *apperrors.AppError {
	if email == "" {
		return apperrors.ValidationField("email", "이메일을 입력해주세요.")
	}
	if !validEmail(email) {
		return apperrors.ValidationField("email", "올바른 이메일 형식이 아닙니다.")
	}
	if password == "" {
		return apperrors.ValidationField("password", "비밀번호를 입력해주세요.")
	}
	if len([]rune(password)) < MinPasswordLength {
		return apperrors.ValidationField("password", "비밀번호는 8자 이상이어야 합니다.")
	}
	return nil
}

// validEmail accepts a bare address (no display name) on a deliverable domain.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	if addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return deliverableDomain(email[at+1:])
}

// deliverableDomain reports whether domain sits under an ICANN public suffix
// with at least one label of its own.
func deliverableDomain(domain string) bool {
	domain = strings.ToLower(domain)
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return false
	}
	_, icann := publicsuffix.PublicSuffix(domain)
	return icann
}

// endSpan records err on span and returns it unchanged.
func endSpan(span trace.Span, err *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Code))
	return err
}
