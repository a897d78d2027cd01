// Package handler contains the HTTP handlers for the v1 API. Each
// constructor returns an http.HandlerFunc wired to its dependencies.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	mw "github.com/curbsidehq/curbside/internal/api/middleware"
	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeValid decodes the JSON body into dst and runs struct validation.
// On failure it writes the error response and returns false.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		details := map[string]string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
		return false
	}
	return true
}

// tenantScope resolves the authenticated tenant's store. A missing or
// malformed tenant id means the auth middleware did not run.
func tenantScope(w http.ResponseWriter, r *http.Request, s *store.Store) (*store.TenantStore, bool) {
	tenantID, ok := mw.GetTenantID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
		return nil, false
	}
	ts, err := s.ForTenant(tenantID)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid tenant", nil)
		return nil, false
	}
	return ts, true
}

// urlID parses the {id} route parameter.
func urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter; uuid.Nil when absent.
func queryUUID(r *http.Request, name string) uuid.UUID {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// queryBool parses an optional boolean query parameter; nil when absent
// or malformed.
func queryBool(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// storeError maps store sentinel errors onto API error responses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE_RESOURCE", err.Error(), nil)
	case errors.Is(err, store.ErrInsufficientInventory):
		response.Error(w, http.StatusConflict, "INSUFFICIENT_INVENTORY", err.Error(), nil)
	case errors.Is(err, store.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
