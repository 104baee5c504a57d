package supabase

// Package supabase is a client for the hosted backend's auth REST API. It
// owns the session: it restores and persists it through a device store,
// refreshes it before expiry and notifies listeners of every change.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	apperrors "github.com/purumi/purumi/internal/errors"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.BackendAuth = (*Client)(nil)

var tracer = otel.Tracer("github.com/purumi/purumi/internal/adapters/supabase")

// ErrNoSession is returned by calls that need a signed-in user.
var ErrNoSession = errors.New("no active session")

const (
	defaultTimeout       = 30 * time.Second
	defaultRefreshMargin = 30 * time.Second
)

// Config holds configuration for the auth client.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL     string
	AnonKey string
	// HTTPClient is optional, defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Store persists the session on the device. Optional.
	Store ports.SessionStore
	// Verifier checks access-token signatures. Optional; without it claims
	// are read unverified.
	Verifier TokenVerifier
	// RefreshMargin refreshes the session this long before it expires.
	RefreshMargin time.Duration
	Logger        *slog.Logger
}

// Client implements ports.BackendAuth over the GoTrue REST API.
type Client struct {
	authURL  string
	anonKey  string
	http     *http.Client
	store    ports.SessionStore
	verifier TokenVerifier
	margin   time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	session  *domainauth.SessionToken
	restored bool

	listenersMu  sync.Mutex
	listeners    map[uint64]ports.SessionChangeFunc
	nextListener uint64

	refreshGroup singleflight.Group
}

// New creates a client. It performs no network I/O.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("backend URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("backend anon key is required")
	}
	u, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.URL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = defaultRefreshMargin
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		authURL:   u.String() + "/auth/v1",
		anonKey:   cfg.AnonKey,
		http:      httpClient,
		store:     cfg.Store,
		verifier:  cfg.Verifier,
		margin:    margin,
		logger:    logger.With("component", "backend_auth"),
		now:       time.Now,
		listeners: make(map[uint64]ports.SessionChangeFunc),
	}, nil
}

// GetSession returns the current session, restoring it from the device
// store on first use and refreshing it when it is about to expire. A
// session the backend no longer accepts is dropped and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*domainauth.SessionToken, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetSession")
	defer span.End()

	s := c.current(ctx)
	if s == nil {
		return nil, nil
	}
	if !c.needsRefresh(s) {
		return s, nil
	}
	if s.RefreshToken == "" {
		if s.Expired(c.now()) {
			c.dropSession(ctx)
			return nil, nil
		}
		return s, nil
	}

	refreshed, err := c.refresh(ctx, s.RefreshToken)
	if err != nil {
		if isRejected(err) {
			c.logger.InfoContext(ctx, "stored session rejected by backend", "error", err)
			c.dropSession(ctx)
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return refreshed, nil
}

// OnSessionChange registers fn. fn is called synchronously with
// EventInitialSession and the current session before OnSessionChange returns.
func (c *Client) OnSessionChange(fn ports.SessionChangeFunc) (func(), error) {
	if fn == nil {
		return nil, errors.New("session change listener is nil")
	}
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	fn(domainauth.EventInitialSession, c.current(context.Background()))

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domainauth.SessionToken, error) {
	ctx, span := tracer.Start(ctx, "supabase.SignInWithPassword")
	defer span.End()

	var tr tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, c.http, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, body, "", &tr); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s, err := c.toSession(ctx, tr)
	if err != nil {
		return nil, err
	}
	c.setSession(ctx, s)
	c.emit(domainauth.EventSignedIn, s)
	span.SetAttributes(attribute.String("user.id", s.User.ID))
	return clone(s), nil
}

// SignUp creates an account. When the project requires email confirmation
// the backend returns only the user and the session is nil.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domainauth.UserRef, *domainauth.SessionToken, error) {
	ctx, span := tracer.Start(ctx, "supabase.SignUp")
	defer span.End()

	var resp signupResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, c.http, http.MethodPost, "/signup", nil, body, "", &resp); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	if resp.AccessToken == "" {
		if resp.ID == "" {
			return nil, nil, errors.New("signup response has neither session nor user")
		}
		u := resp.userResponse.toUserRef()
		return &u, nil, nil
	}

	s, err := c.toSession(ctx, resp.tokenResponse)
	if err != nil {
		return nil, nil, err
	}
	c.setSession(ctx, s)
	c.emit(domainauth.EventSignedIn, s)
	u := s.User
	return &u, clone(s), nil
}

// SignOut drops the local session and revokes it on the backend. The local
// session is gone even when the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "supabase.SignOut")
	defer span.End()

	s := c.current(ctx)
	c.dropSession(ctx)
	if s == nil || s.AccessToken == "" {
		return nil
	}

	err := c.do(ctx, c.http, http.MethodPost, "/logout", url.Values{"scope": {"local"}}, nil, s.AccessToken, nil)
	var be *apperrors.BackendError
	if errors.As(err, &be) && (be.Status == http.StatusUnauthorized || be.Status == http.StatusNotFound) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// GetUser fetches the signed-in user from the backend, refreshing the
// access token first if needed.
func (c *Client) GetUser(ctx context.Context) (*domainauth.UserRef, error) {
	ctx, span := tracer.Start(ctx, "supabase.GetUser")
	defer span.End()

	ts, err := c.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), ts)

	var ur userResponse
	if err := c.do(ctx, authed, http.MethodGet, "/user", nil, nil, "", &ur); err != nil {
		span.RecordError(err)
		return nil, unwrapTokenError(err)
	}
	u := ur.toUserRef()
	return &u, nil
}

// TokenSource returns an oauth2.TokenSource for the current session that
// refreshes through the backend when the access token expires.
func (c *Client) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s := c.current(ctx)
	if s == nil {
		return nil, ErrNoSession
	}
	return oauth2.ReuseTokenSource(toOAuth2(s), &refreshingSource{ctx: ctx, c: c}), nil
}

type refreshingSource struct {
	ctx context.Context
	c   *Client
}

func (r *refreshingSource) Token() (*oauth2.Token, error) {
	s := r.c.current(r.ctx)
	if s == nil || s.RefreshToken == "" {
		return nil, ErrNoSession
	}
	refreshed, err := r.c.refresh(r.ctx, s.RefreshToken)
	if err != nil {
		return nil, err
	}
	return toOAuth2(refreshed), nil
}

// refresh exchanges refreshToken for a new session. Concurrent callers with
// the same refresh token share one request.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*domainauth.SessionToken, error) {
	v, err, _ := c.refreshGroup.Do(refreshToken, func() (any, error) {
		// Another caller may already have rotated this refresh token.
		if cur := c.current(ctx); cur != nil && cur.RefreshToken != refreshToken && !c.needsRefresh(cur) {
			return cur, nil
		}
		var tr tokenResponse
		body := map[string]string{"refresh_token": refreshToken}
		if err := c.do(ctx, c.http, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, body, "", &tr); err != nil {
			return nil, err
		}
		s, err := c.toSession(ctx, tr)
		if err != nil {
			return nil, err
		}
		c.setSession(ctx, s)
		c.emit(domainauth.EventTokenRefreshed, s)
		c.logger.DebugContext(ctx, "session refreshed", "user_id", s.User.ID)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*domainauth.SessionToken)), nil
}

func (c *Client) needsRefresh(s *domainauth.SessionToken) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !c.now().Add(c.margin).Before(s.ExpiresAt)
}

// current returns a copy of the in-memory session, restoring it from the
// store the first time.
func (c *Client) current(ctx context.Context) *domainauth.SessionToken {
	c.mu.RLock()
	s, restored := c.session, c.restored
	c.mu.RUnlock()
	if restored || c.store == nil {
		return clone(s)
	}

	loaded, err := c.store.LoadSession(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "restore session failed", "error", err)
		loaded = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.restored {
		c.session = loaded
		c.restored = true
	}
	return clone(c.session)
}

func (c *Client) setSession(ctx context.Context, s *domainauth.SessionToken) {
	c.mu.Lock()
	c.session = clone(s)
	c.restored = true
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.SaveSession(ctx, *s); err != nil {
		c.logger.WarnContext(ctx, "persist session failed", "error", err)
	}
}

// dropSession clears the local session and notifies listeners if there was one.
func (c *Client) dropSession(ctx context.Context) {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.restored = true
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.ClearSession(ctx); err != nil {
			c.logger.WarnContext(ctx, "clear persisted session failed", "error", err)
		}
	}
	if had {
		c.emit(domainauth.EventSignedOut, nil)
	}
}

func (c *Client) emit(event domainauth.ChangeEvent, s *domainauth.SessionToken) {
	c.listenersMu.Lock()
	fns := make([]ports.SessionChangeFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(event, clone(s))
	}
}

// do sends a JSON request to the auth API and decodes a JSON response into out.
func (c *Client) do(
	ctx context.Context,
	client *http.Client,
	method, path string,
	query url.Values,
	body any,
	bearer string,
	out any,
) error {
	ctx, span := tracer.Start(ctx, "supabase.http "+method+" "+path)
	defer span.End()

	target := c.authURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := decodeError(resp)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func isRejected(err error) bool {
	var be *apperrors.BackendError
	if !errors.As(err, &be) {
		return false
	}
	switch be.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

// unwrapTokenError surfaces the backend error behind an oauth2 transport failure.
func unwrapTokenError(err error) error {
	var be *apperrors.BackendError
	if errors.As(err, &be) {
		return be
	}
	return err
}

func clone(s *domainauth.SessionToken) *domainauth.SessionToken {
	if s == nil {
		return nil
	}
	cp := *s
	cp.User.Metadata = maps.Clone(s.User.Metadata)
	return &cp
}
