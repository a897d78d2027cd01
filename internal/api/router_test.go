package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbsidehq/curbside/internal/api"
	mw "github.com/curbsidehq/curbside/internal/api/middleware"
	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/cache"
)

// --- in-memory cache stub ---

type stubCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string][]byte{}}
}

func (c *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *stubCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *stubCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *stubCache) Ping(context.Context) error { return nil }

func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*stubCache)(nil)

// --- router tests ---

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenManager, *stubCache) {
	t.Helper()
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	c := newStubCache()
	// The tenant status gate reads the cache first, so a prewarmed
	// entry keeps the nil store out of the request path.
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(tokens, nil, c),
		RateLimit: mw.NewRateLimit(c, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	}), tokens, c
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/customers"},
		{"POST", "/api/v1/vehicles"},
		{"GET", "/api/v1/jobs"},
		{"POST", "/api/v1/templates"},
		{"GET", "/api/v1/parts"},
		{"POST", "/api/v1/inventory/transfer"},
		{"GET", "/api/v1/artifacts"},
		{"DELETE", "/api/v1/customers/" + uuid.NewString()},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_DeleteEndpoints_RequireElevatedRole(t *testing.T) {
	router, tokens, c := newTestRouter(t)

	tenantID := uuid.New()
	c.Set(context.Background(), cache.TenantStatusKey(tenantID), []byte("active"), time.Minute)

	token, err := tokens.SignAccess(uuid.New(), tenantID, "mech@example.com", "mechanic")
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/v1/jobs/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "FORBIDDEN", errObj["code"])
}

func TestRouter_UnwiredEndpoint_NotImplemented(t *testing.T) {
	router, tokens, c := newTestRouter(t)

	tenantID := uuid.New()
	c.Set(context.Background(), cache.TenantStatusKey(tenantID), []byte("trial"), time.Minute)

	token, err := tokens.SignAccess(uuid.New(), tenantID, "owner@example.com", "owner")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
