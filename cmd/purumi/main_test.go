package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	argv := append([]string{"-env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	code := run(context.Background(), argv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// withBackend points the CLI at a fake auth server and returns the number
// of requests it received.
func withBackend(t *testing.T, handler http.HandlerFunc) *atomic.Int32 {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("BACKEND_URL", srv.URL)
	t.Setenv("BACKEND_ANON_KEY", "anon")
	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "text")
	return &hits
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: purumi")
	assert.Contains(t, stderr, "sign-in")
	assert.Contains(t, stderr, "migrate")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "fly")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "fly"`)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_ANON_KEY", "")
	code, _, stderr := runCLI(t, "status")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "BACKEND_URL is required")
}

func TestRun_StatusRedirectsAnonymousFromProtected(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, stdout, _ := runCLI(t, "-route", "/reservation/new", "status")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "→ /sign-in?redirect=/reservation/new")
	assert.Contains(t, stdout, "identity: anonymous")
	assert.Contains(t, stdout, "screen: /(auth)/sign-in")
}

func TestRun_GuestGoesHome(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, stdout, _ := runCLI(t, "-route", "/sign-in", "guest")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "identity: guest")
	assert.Contains(t, stdout, "guest id: ")
	assert.Contains(t, stdout, "screen: /home")
}

func TestRun_GuardDryRun(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, stdout, _ := runCLI(t, "-route", "/sign-in", "guard", "-path", "/reservation/new")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "identity=anonymous route=/reservation/new rule=anonymous_in_protected")
	assert.NotContains(t, stdout, "→", "dry run does not navigate")
}

func TestRun_SignInRejected(t *testing.T) {
	hits := withBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	code, _, stderr := runCLI(t, "-route", "/sign-in", "sign-in", "-email", "a@b.co", "-password", "wrong-password")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: ")
	assert.Equal(t, int32(1), hits.Load())
}

func TestRun_SignInValidation(t *testing.T) {
	hits := withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, _, stderr := runCLI(t, "-route", "/sign-in", "sign-in", "-email", "a@b.co")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "비밀번호를 입력해주세요.")
	assert.Zero(t, hits.Load())
}

func TestRun_VideoCommandsNeedDatabase(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, _, stderr := runCLI(t, "stats", "-video", "v1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "DB_ENABLED=true")
}

func TestRun_ReservationCommandsNeedDatabase(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	for _, args := range [][]string{
		{"services"},
		{"reserve", "-service", "lift", "-at", "2026-10-20T10:00:00Z"},
		{"reservations"},
	} {
		code, _, stderr := runCLI(t, args...)
		assert.Equal(t, 1, code, args[0])
		assert.Contains(t, stderr, "DB_ENABLED=true", args[0])
	}
}

func TestRun_DraftRoundTrip(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, stdout, _ := runCLI(t, "draft", "save", "-service", "svc-1", "-at", "2026-10-20T10:00:00Z")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "draft saved")

	// memory storage does not outlive the process
	code, stdout, _ = runCLI(t, "draft", "get")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "no draft")

	code, _, stderr := runCLI(t, "draft", "save", "-at", "tomorrow")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "service id is required")
}

func TestRun_ResetNeedsConfirmation(t *testing.T) {
	withBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	code, _, stderr := runCLI(t, "reset")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-yes")

	code, stdout, _ := runCLI(t, "reset", "-yes")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "device storage cleared")
}

func TestRun_MigrateNeedsDatabase(t *testing.T) {
	t.Setenv("DB_ENABLED", "false")
	code, _, stderr := runCLI(t, "migrate", "-status")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "DB_ENABLED=true")
}

func TestTerminalNavigator(t *testing.T) {
	var out bytes.Buffer
	nav := newTerminalNavigator(&out, domainauth.DefaultRouteTable, "/home")
	assert.Equal(t, domainauth.Route{"home"}, nav.CurrentRoute())

	route := nav.CurrentRoute()
	route[0] = "mutated"
	assert.Equal(t, "/home", nav.CurrentRoute().Path(), "CurrentRoute returns a copy")

	require.NoError(t, nav.Replace(domainauth.Redirect{
		Path:   "/sign-in",
		Params: map[string]string{"redirect": "/reservation/new"},
	}))
	assert.Equal(t, domainauth.Route{"(auth)", "sign-in"}, nav.CurrentRoute())
	assert.Equal(t, "→ /sign-in?redirect=/reservation/new\n", out.String())
}
