package authsession

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/events"
	"github.com/kochabx/authsession/internal/mockbackend"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/session"
	"github.com/kochabx/authsession/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	backend *mockbackend.Backend
	server  *httptest.Server
	clock   *clockwork.FakeClock
	storage *storage.Memory
	events  *events.Recorder

	mu        sync.Mutex
	redirects []string
}

func newHarness(t *testing.T, backendOpts ...mockbackend.Option) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)),
		storage: storage.NewMemory(),
		events:  &events.Recorder{},
	}
	opts := append([]mockbackend.Option{
		mockbackend.WithClock(h.clock),
		mockbackend.WithLogger(log.Nop()),
	}, backendOpts...)
	h.backend = mockbackend.New(opts...)
	h.server = httptest.NewServer(h.backend.Handler())
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) config() Config {
	return Config{
		BaseURL: h.server.URL,
		Events:  events.Config{Driver: "none"},
	}
}

func (h *harness) manager(t *testing.T) *Manager {
	t.Helper()
	return h.managerWith(t, h.config())
}

func (h *harness) managerWith(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := New(context.Background(), cfg,
		WithLogger(log.Nop()),
		WithStorage(h.storage),
		WithClock(h.clock),
		WithPublisher(h.events),
		WithNavigator(session.NavigatorFunc(func(_ context.Context, reason string) {
			h.mu.Lock()
			h.redirects = append(h.redirects, reason)
			h.mu.Unlock()
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func (h *harness) redirected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.redirects...)
}

func get(t *testing.T, m *Manager, url string) (*http.Response, error) {
	t.Helper()
	resp, err := m.HTTPClient().Get(url)
	if err == nil {
		t.Cleanup(func() { _ = resp.Body.Close() })
	}
	return resp, err
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), Config{}, WithLogger(log.Nop()), WithStorage(storage.NewMemory()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	ctx := context.Background()

	s, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "42", s.UserID)
	assert.Equal(t, "7", s.ProjectID)
	assert.Equal(t, "supervisor", s.DjangoUserType)
	require.NotNil(t, s.IsApproved)
	assert.True(t, *s.IsApproved)
	assert.Equal(t, h.clock.Now().Add(55*time.Minute), s.AccessTokenExpiry)
	assert.True(t, m.Valid())

	token, ok, err := h.storage.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s.AccessToken, token)
	assert.Contains(t, h.events.Types(), events.TypeLogin)

	verified, err := m.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)

	_, err := m.Login(context.Background(), "alice", "nope")
	require.Error(t, err)
	assert.False(t, m.Session().HasToken())
	assert.False(t, m.Valid())
}

func TestAuthenticatedRequests(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	_, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	resp, err := get(t, m, h.server.URL+"/api/permits/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// csrf cookie from login is echoed on unsafe methods
	resp, err = m.HTTPClient().Post(h.server.URL+"/api/permits/", "application/json", strings.NewReader(`{"title":"hot work"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpiredAccessTokenIsRefreshedAndReplayed(t *testing.T) {
	h := newHarness(t, mockbackend.WithTTL(time.Minute, time.Hour))
	m := h.manager(t)
	before, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)

	resp, err := get(t, m, h.server.URL+"/api/permits/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	after := m.Session()
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.Equal(t, before.RefreshToken, after.RefreshToken)
	assert.Equal(t, h.clock.Now(), after.LastRefresh)
	assert.EqualValues(t, 1, h.backend.Counts().Refresh)
	assert.Contains(t, h.events.Types(), events.TypeRefreshed)
	assert.Empty(t, h.redirected())
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	h := newHarness(t, mockbackend.WithTTL(time.Minute, time.Hour))
	m := h.manager(t)
	_, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)
	h.backend.SetRefreshDelay(50 * time.Millisecond)

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := m.HTTPClient().Get(h.server.URL + "/api/permits/")
			if err != nil {
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			codes[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.EqualValues(t, 1, h.backend.Counts().Refresh)
}

func TestRejectedRefreshLogsOut(t *testing.T) {
	h := newHarness(t, mockbackend.WithTTL(time.Minute, 3*time.Minute))
	m := h.manager(t)
	_, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)

	h.clock.Advance(4 * time.Minute)

	_, err = get(t, m, h.server.URL+"/api/permits/")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAuthenticationFailed)
	assert.False(t, m.Session().HasToken())
	assert.Equal(t, []string{session.ReasonRefreshRejected}, h.redirected())

	_, ok, err := h.storage.Get(context.Background(), session.KeyRefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshOutageKeepsSession(t *testing.T) {
	h := newHarness(t, mockbackend.WithTTL(time.Minute, time.Hour))
	m := h.manager(t)
	before, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)
	h.backend.FailRefresh(http.StatusBadGateway)

	_, err = get(t, m, h.server.URL+"/api/permits/")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSessionExpired)

	after := m.Session()
	assert.Equal(t, before.AccessToken, after.AccessToken)
	assert.Equal(t, h.clock.Now(), after.LastRefresh)
	assert.Empty(t, h.redirected())
}

func TestRefreshBudgetStopsHittingBackend(t *testing.T) {
	h := newHarness(t, mockbackend.WithTTL(time.Minute, time.Hour))
	cfg := h.config()
	cfg.Interceptor.MaxGenerations = 10
	m := h.managerWith(t, cfg)
	ctx := context.Background()
	_, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Minute)
	h.backend.FailRefresh(http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)

	for i := 1; i <= 3; i++ {
		_, err = get(t, m, h.server.URL+"/api/permits/")
		require.ErrorIs(t, err, errors.ErrSessionExpired)
		assert.EqualValues(t, i, h.backend.Counts().Refresh)
		assert.True(t, m.Session().HasToken())
		h.clock.Advance(31 * time.Second)
	}

	// fourth attempt in the window: cooldown, no network call
	_, err = get(t, m, h.server.URL+"/api/permits/")
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	assert.EqualValues(t, 3, h.backend.Counts().Refresh)
	assert.False(t, m.Session().HasToken())
	assert.Equal(t, []string{session.ReasonSessionExpired}, h.redirected())
	assert.Equal(t, "cooldown", m.Status().RefreshState)

	// a new login does not lift the cooldown
	_, err = m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)

	_, err = get(t, m, h.server.URL+"/api/permits/")
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	assert.EqualValues(t, 3, h.backend.Counts().Refresh)
	assert.Contains(t, h.events.Types(), events.TypeCooldown)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	res := m.Logout(ctx, true)
	assert.True(t, res.Success)
	assert.True(t, res.Announce)
	assert.False(t, m.Session().HasToken())
	assert.EqualValues(t, 1, h.backend.Counts().Logout)
	assert.Empty(t, h.storage.Snapshot())
	assert.Contains(t, h.events.Types(), events.TypeLogout)
}

func TestLogoutWhenBackendIsDown(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	ctx := context.Background()
	_, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	h.server.Close()

	res := m.Logout(ctx, false)
	assert.True(t, res.Success)
	assert.False(t, m.Session().HasToken())
	assert.Empty(t, h.storage.Snapshot())
}

func TestSessionSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	first := h.manager(t)
	s, err := first.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := h.manager(t)
	restored := second.Session()
	assert.Equal(t, s.AccessToken, restored.AccessToken)
	assert.Equal(t, s.RefreshToken, restored.RefreshToken)
	assert.Equal(t, s.Username, restored.Username)
	assert.True(t, s.AccessTokenExpiry.Equal(restored.AccessTokenExpiry))

	resp, err := get(t, second, h.server.URL+"/api/permits/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	ctx := context.Background()
	before, err := m.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	after := m.UpdateProfile(ctx, func(id *session.Identity) {
		id.Department = "Operations"
		id.HasSubmittedDetails = session.Bool(true)
	})
	assert.Equal(t, "Operations", after.Department)
	assert.Equal(t, before.AccessToken, after.AccessToken)

	v, ok, err := h.storage.Get(ctx, session.KeyDepartment)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Operations", v)
}

func TestAdminServer(t *testing.T) {
	h := newHarness(t)
	m := h.manager(t)
	_, err := m.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	handler := m.AdminServer().Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), m.Session().AccessToken)

	var body struct {
		Data Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.Data.Username)
	assert.True(t, body.Data.Authenticated)
	assert.Equal(t, "idle", body.Data.RefreshState)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	m.Logout(context.Background(), false)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "authsession_")
}
