package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/cache"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/google/uuid"
)

const tenantStatusTTL = time.Minute

// Auth provides JWT authentication and role-checking middleware.
type Auth struct {
	tokens *auth.TokenManager
	store  *store.Store
	cache  cache.Cache
}

// NewAuth creates a new Auth middleware.
func NewAuth(tokens *auth.TokenManager, s *store.Store, c cache.Cache) *Auth {
	return &Auth{tokens: tokens, store: s, cache: c}
}

// Authenticate validates the Bearer access token, checks that the
// token's tenant is still allowed to operate, and sets tenant_id,
// user_id, and role in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		claims, err := a.tokens.VerifyAccess(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired access token", nil)
			return
		}

		status, err := a.tenantStatus(r.Context(), claims.TenantID)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Unknown tenant", nil)
			return
		}
		if status != "active" && status != "trial" {
			response.Error(w, http.StatusForbidden,
				"TENANT_SUSPENDED", "This account is suspended", nil)
			return
		}

		ctx := r.Context()
		ctx = SetTenantID(ctx, claims.TenantID)
		ctx = SetUserID(ctx, claims.UserID)
		ctx = SetRole(ctx, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantStatus resolves a tenant's status through the cache; the status
// gate must not cost a registry query on every request.
func (a *Auth) tenantStatus(ctx context.Context, tenantID uuid.UUID) (string, error) {
	key := cache.TenantStatusKey(tenantID)
	if cached, found, err := a.cache.Get(ctx, key); err == nil && found {
		return string(cached), nil
	}

	tenant, err := a.store.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	// Best effort; a cache write failure just means a DB hit next time.
	a.cache.Set(ctx, key, []byte(tenant.Status), tenantStatusTTL)
	return tenant.Status, nil
}

// RequireRole returns middleware that permits only the listed roles.
func (a *Auth) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRole(r)
			if ok {
				for _, allowed := range roles {
					if role == allowed {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Insufficient permissions", nil)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
