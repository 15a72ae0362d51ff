package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradnet/cmd/identity"
	"gradnet/internal/auth/session"
)

type testEnv struct {
	store   *identity.MemoryStore
	handler *Handler
	server  *httptest.Server
	client  *http.Client
}

func newTestEnv(t *testing.T, sessCfg session.Config) *testEnv {
	t.Helper()

	store := identity.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := session.NewService(sessCfg, store, log)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.CookieSecure = false // plain http in tests

	h, err := NewHandler(log, cfg, store, svc, NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	// Admin-gated probe endpoint for role tests.
	mux.Handle("/admin/ping", h.RequireAuth(h.RequireRole(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		identity.RoleAdmin,
	)))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		store:   store,
		handler: h,
		server:  srv,
		client:  &http.Client{Jar: jar},
	}
}

func testSessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	return cfg
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := e.client.Post(e.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		rd = &buf
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) register(t *testing.T, email string) userResponse {
	t.Helper()

	resp := e.postJSON(t, "/auth/register", registerRequest{
		Name:     "Riya Sharma",
		Email:    email,
		Password: "correct horse battery",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out registerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.User
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Error.Code
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSetsBothCookies(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	resp := e.postJSON(t, "/auth/register", registerRequest{
		Name:     "Riya Sharma",
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	access := cookieByName(resp, "accessToken")
	require.NotNil(t, access)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)

	refresh := cookieByName(resp, "refreshToken")
	require.NotNil(t, refresh)
	assert.Equal(t, "/auth/refresh", refresh.Path)
	assert.True(t, refresh.HttpOnly)

	// No token material in the body.
	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	_, hasUser := raw["user"]
	assert.True(t, hasUser)
	assert.NotContains(t, raw, "access_token")
	assert.NotContains(t, raw, "refresh_token")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	resp := e.postJSON(t, "/auth/register", registerRequest{
		Name:     "Someone Else",
		Email:    "RIYA@Example.edu", // normalized duplicate
		Password: "another password",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeErrorCode(t, resp))
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	resp := e.postJSON(t, "/auth/register", registerRequest{
		Name:     "Sneaky",
		Email:    "sneaky@example.edu",
		Password: "correct horse battery",
		Role:     "admin",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginSuccessAndMe(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	u := e.register(t, "riya@example.edu")

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, u.ID, out.User.ID)
	assert.NotNil(t, out.User.LastLoginAt)

	me, err := e.client.Get(e.server.URL + "/auth/me")
	require.NoError(t, err)
	defer me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)

	var meOut meResponse
	require.NoError(t, json.NewDecoder(me.Body).Decode(&meOut))
	assert.Equal(t, u.ID, meOut.User.ID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	for name, req := range map[string]loginRequest{
		"wrong password": {Email: "riya@example.edu", Password: "wrong"},
		"unknown email":  {Email: "nobody@example.edu", Password: "correct horse battery"},
	} {
		resp := e.postJSON(t, "/auth/login", req)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		assert.Equal(t, "invalid_credentials", decodeErrorCode(t, resp), name)
		resp.Body.Close()
	}
}

func TestLoginInactivePrincipal(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	u := e.register(t, "riya@example.edu")
	e.store.SetActive(u.ID, false)

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	// Same generic code as a wrong password.
	assert.Equal(t, "invalid_credentials", decodeErrorCode(t, resp))
}

func TestMeWithoutCredential(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	resp, err := e.client.Get(e.server.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeErrorCode(t, resp))
}

func TestGateRejectsDisabledPrincipal(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	u := e.register(t, "riya@example.edu")

	// Cookie still cryptographically valid; account disabled after issue.
	e.store.SetActive(u.ID, false)

	resp, err := e.client.Get(e.server.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRotatesAndReplayFails(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	// Capture the first refresh cookie value before rotation replaces it.
	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := cookieByName(resp, "refreshToken")
	require.NotNil(t, first)

	// Rotation via the jar-held cookie succeeds and reissues both cookies.
	r1 := e.do(t, http.MethodPost, "/auth/refresh", nil)
	r1.Body.Close()
	require.Equal(t, http.StatusOK, r1.StatusCode)
	require.NotNil(t, cookieByName(r1, "accessToken"))
	rotated := cookieByName(r1, "refreshToken")
	require.NotNil(t, rotated)
	assert.NotEqual(t, first.Value, rotated.Value)

	// Replaying the consumed value fails even though it still verifies.
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: first.Value})
	replay, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)

	// The failed replay also expires the cookies it saw.
	cleared := cookieByName(replay, "refreshToken")
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestRefreshAcceptsBodyCredential(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refresh := cookieByName(resp, "refreshToken")
	require.NotNil(t, refresh)

	// No cookie at all: a non-browser client hands the value over in the body.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(refreshRequest{RefreshToken: refresh.Value}))
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/refresh", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	out, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer out.Body.Close()
	require.Equal(t, http.StatusOK, out.StatusCode)

	require.NotNil(t, cookieByName(out, "accessToken"))
	rotated := cookieByName(out, "refreshToken")
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	// The body-presented value was consumed like any other rotation.
	rr, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	rr.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	replay, err := http.DefaultTransport.RoundTrip(rr)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestRefreshWithoutCookie(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	resp := e.do(t, http.MethodPost, "/auth/refresh", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshCookieIsPathScoped(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	// The jar must not present the refresh cookie outside its path.
	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/auth/me", nil)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(req.URL) {
		assert.NotEqual(t, "refreshToken", c.Name)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	resp.Body.Close()
	refresh := cookieByName(resp, "refreshToken")
	require.NotNil(t, refresh)

	out := e.do(t, http.MethodPost, "/auth/logout", nil)
	out.Body.Close()
	require.Equal(t, http.StatusOK, out.StatusCode)

	// Both cookies expired in the response.
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieByName(out, name)
		require.NotNil(t, c, name)
		assert.Less(t, c.MaxAge, 0, name)
	}

	// The stored digest is gone: the old refresh value cannot rotate.
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	replay, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestLogoutWithBodyFallback(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "riya@example.edu",
		Password: "correct horse battery",
	})
	resp.Body.Close()
	refresh := cookieByName(resp, "refreshToken")
	require.NotNil(t, refresh)

	// No access cookie at all: logout still clears via the body value.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(logoutRequest{RefreshToken: refresh.Value}))
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/logout", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	out, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	out.Body.Close()
	require.Equal(t, http.StatusOK, out.StatusCode)

	rr, err := http.NewRequest(http.MethodPost, e.server.URL+"/auth/refresh", nil)
	require.NoError(t, err)
	rr.AddCookie(&http.Cookie{Name: "refreshToken", Value: refresh.Value})
	replay, err := http.DefaultTransport.RoundTrip(rr)
	require.NoError(t, err)
	defer replay.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	for i := 0; i < 2; i++ {
		resp := e.do(t, http.MethodPost, "/auth/logout", nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRoleGate(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu") // student by default

	resp, err := e.client.Get(e.server.URL + "/admin/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoleGateAdmitsAdmin(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	admin, err := e.store.CreateUser(context.Background(), identity.CreateUserInput{
		Name:     "Site Admin",
		Email:    "admin@example.edu",
		Password: "correct horse battery",
		Role:     identity.RoleAdmin,
	})
	require.NoError(t, err)
	_ = admin

	resp := e.postJSON(t, "/auth/login", loginRequest{
		Email:    "admin@example.edu",
		Password: "correct horse battery",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ping, err := e.client.Get(e.server.URL + "/admin/ping")
	require.NoError(t, err)
	ping.Body.Close()
	assert.Equal(t, http.StatusOK, ping.StatusCode)
}

func TestRoleChangeTakesEffectOnNextRequest(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	u := e.register(t, "riya@example.edu")

	// Promote after the token was minted; the gate re-reads the store.
	e.store.SetRole(u.ID, identity.RoleAdmin)

	resp, err := e.client.Get(e.server.URL + "/admin/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProfileUpdate(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	course := "B.Tech CSE"
	year := 2024
	resp := e.do(t, http.MethodPut, "/auth/profile", updateProfileRequest{
		Course:        &course,
		YearOfPassing: &year,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out profileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.User.Course)
	assert.Equal(t, course, *out.User.Course)
	require.NotNil(t, out.User.YearOfPassing)
	assert.Equal(t, year, *out.User.YearOfPassing)
}

func TestProfileUpdateImplausibleYear(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())
	e.register(t, "riya@example.edu")

	year := 1776
	resp := e.do(t, http.MethodPut, "/auth/profile", updateProfileRequest{YearOfPassing: &year})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExpiredAccessCookieIsRejected(t *testing.T) {
	cfg := testSessionConfig()
	cfg.AccessTTL = 1 * time.Millisecond
	cfg.ClockSkew = 0
	e := newTestEnv(t, cfg)
	e.register(t, "riya@example.edu")

	time.Sleep(10 * time.Millisecond)

	resp, err := e.client.Get(e.server.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	body := strings.NewReader(`{"email":"a@b.c","password":"x","extra":true}`)
	resp, err := e.client.Post(e.server.URL+"/auth/login", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, testSessionConfig())

	resp, err := e.client.Get(e.server.URL + "/auth/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
