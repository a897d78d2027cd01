package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	mw "github.com/curbsidehq/curbside/internal/api/middleware"
	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCache is an in-memory cache.Cache for middleware tests.
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	counts map[string]int64
	fail   bool
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, counts: map[string]int64{}}
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }

func (m *memCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errors.New("redis down")
	}
	m.counts[key]++
	return m.counts[key], nil
}

func newTokens() *auth.TokenManager {
	return auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
}

// prewarm puts a tenant status in the cache so Authenticate never needs
// the registry.
func prewarm(c *memCache, tenantID uuid.UUID, status string) {
	c.Set(context.Background(), cache.TenantStatusKey(tenantID), []byte(status), time.Minute)
}

func okHandler(hit *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	tokens := newTokens()
	c := newMemCache()
	a := mw.NewAuth(tokens, nil, c)

	userID, tenantID := uuid.New(), uuid.New()
	prewarm(c, tenantID, "active")

	token, err := tokens.SignAccess(userID, tenantID, "a@b.com", "mechanic")
	require.NoError(t, err)

	var gotTenant, gotUser uuid.UUID
	var gotRole string
	handler := a.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = mw.GetTenantID(r)
		gotUser, _ = mw.GetUserID(r)
		gotRole, _ = mw.GetRole(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenantID, gotTenant)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "mechanic", gotRole)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	a := mw.NewAuth(newTokens(), nil, newMemCache())

	var hit bool
	handler := a.Authenticate(okHandler(&hit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, hit)
}

func TestAuthenticate_BadToken(t *testing.T) {
	a := mw.NewAuth(newTokens(), nil, newMemCache())

	var hit bool
	handler := a.Authenticate(okHandler(&hit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, hit)
}

func TestAuthenticate_SuspendedTenant(t *testing.T) {
	tokens := newTokens()
	c := newMemCache()
	a := mw.NewAuth(tokens, nil, c)

	tenantID := uuid.New()
	prewarm(c, tenantID, "suspended")

	token, err := tokens.SignAccess(uuid.New(), tenantID, "a@b.com", "owner")
	require.NoError(t, err)

	var hit bool
	handler := a.Authenticate(okHandler(&hit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, hit)
}

func TestRequireRole(t *testing.T) {
	a := mw.NewAuth(newTokens(), nil, newMemCache())

	var hit bool
	handler := a.RequireRole("owner", "admin")(okHandler(&hit))

	// Dispatcher is rejected.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/customers/x", nil)
	req = req.WithContext(mw.SetRole(req.Context(), "dispatcher"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, hit)

	// Admin passes.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/customers/x", nil)
	req = req.WithContext(mw.SetRole(req.Context(), "admin"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hit)
}

func TestRateLimit_Exceeded(t *testing.T) {
	c := newMemCache()
	rl := mw.NewRateLimit(c, 2)

	var hits int
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))

	tenantID, userID := uuid.New(), uuid.New()
	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
		ctx := mw.SetTenantID(req.Context(), tenantID)
		ctx = mw.SetUserID(ctx, userID)
		req = req.WithContext(ctx)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, 2, hits)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	c := newMemCache()
	c.fail = true
	rl := mw.NewRateLimit(c, 1)

	var hit bool
	handler := rl.Limit(okHandler(&hit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	ctx := mw.SetTenantID(req.Context(), uuid.New())
	ctx = mw.SetUserID(ctx, uuid.New())
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hit)
}

func TestRateLimit_SkipsUnauthenticated(t *testing.T) {
	rl := mw.NewRateLimit(newMemCache(), 1)

	var hit bool
	handler := rl.Limit(okHandler(&hit))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hit)
}
