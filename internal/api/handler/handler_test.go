package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curbsidehq/curbside/internal/store"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	code, _ := errObj["code"].(string)
	details, _ := errObj["details"].(map[string]any)
	return code, details
}

func TestRegisterHandler_RejectsInvalidBody(t *testing.T) {
	// Validation failures return before the service is touched.
	h := NewRegisterHandler(nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"slug":`},
		{"missing fields", `{}`},
		{"short password", `{"slug":"joes-mobile","business_name":"Joe's Mobile",
			"contact_email":"joe@example.com","owner_name":"Joe",
			"owner_email":"joe@example.com","password":"short"}`},
		{"bad email", `{"slug":"joes-mobile","business_name":"Joe's Mobile",
			"contact_email":"not-an-email","owner_name":"Joe",
			"owner_email":"joe@example.com","password":"longenough123"}`},
		{"slug with space", `{"slug":"joes mobile","business_name":"Joe's Mobile",
			"contact_email":"joe@example.com","owner_name":"Joe",
			"owner_email":"joe@example.com","password":"longenough123"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterHandler_ValidationDetailsNameFields(t *testing.T) {
	h := NewRegisterHandler(nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(`{
		"slug":"joes-mobile","business_name":"Joe's Mobile",
		"contact_email":"joe@example.com","owner_name":"Joe",
		"owner_email":"joe@example.com","password":"short"}`))
	w := httptest.NewRecorder()
	h(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	code, details := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", code)
	assert.Contains(t, details, "Password")
}

func TestLoginHandler_RejectsMissingPassword(t *testing.T) {
	h := NewLoginHandler(nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"email":"joe@example.com"}`))
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	code, _ := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", code)
}

func TestStoreError_Mapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{store.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{fmt.Errorf("%w: customer", store.ErrNotFound), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{store.ErrDuplicateKey, http.StatusConflict, "DUPLICATE_RESOURCE"},
		{store.ErrInsufficientInventory, http.StatusConflict, "INSUFFICIENT_INVENTORY"},
		{store.ErrConflict, http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			storeError(w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			code, _ := decodeError(t, w)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest("GET",
		"/api/v1/jobs?customer_id="+id.String()+"&limit=25&low_stock=true&bad_uuid=zzz", nil)

	assert.Equal(t, id, queryUUID(req, "customer_id"))
	assert.Equal(t, uuid.Nil, queryUUID(req, "bad_uuid"))
	assert.Equal(t, uuid.Nil, queryUUID(req, "absent"))
	assert.Equal(t, 25, queryInt(req, "limit"))
	assert.Equal(t, 0, queryInt(req, "absent"))

	require.NotNil(t, queryBool(req, "low_stock"))
	assert.True(t, *queryBool(req, "low_stock"))
	assert.Nil(t, queryBool(req, "absent"))
}

func TestQueryStatuses_FiltersUnknown(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/jobs?status=draft,bogus,%20completed", nil)
	assert.Equal(t, []string{"draft", "completed"}, queryStatuses(req))

	req = httptest.NewRequest("GET", "/api/v1/jobs", nil)
	assert.Nil(t, queryStatuses(req))
}

func TestTenantScope_MissingAuthContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/customers", nil)
	w := httptest.NewRecorder()

	_, ok := tenantScope(w, req, nil)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
