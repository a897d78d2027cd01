package handler

import (
	"errors"
	"net/http"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/auth"
)

func authError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, auth.ErrAccountDisabled):
		response.Error(w, http.StatusForbidden, "ACCOUNT_DISABLED", "This account cannot log in", nil)
	case errors.Is(err, auth.ErrSlugTaken):
		response.Error(w, http.StatusConflict, "SLUG_TAKEN", "That shop URL is already taken", nil)
	case errors.Is(err, auth.ErrEmailTaken):
		response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "That email is already registered", nil)
	case errors.Is(err, auth.ErrProvisioningFailed):
		response.Error(w, http.StatusInternalServerError, "PROVISIONING_FAILED",
			"Workspace provisioning failed, registration was rolled back", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

// NewRegisterHandler returns the handler for POST /api/v1/auth/register.
func NewRegisterHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Slug         string  `json:"slug"          validate:"required,min=3,max=63,excludesall= "`
			BusinessName string  `json:"business_name" validate:"required,max=255"`
			ContactEmail string  `json:"contact_email" validate:"required,email"`
			ContactPhone *string `json:"contact_phone"`
			Timezone     string  `json:"timezone"`
			Currency     string  `json:"currency"      validate:"omitempty,len=3"`
			OwnerName    string  `json:"owner_name"    validate:"required,max=255"`
			OwnerEmail   string  `json:"owner_email"   validate:"required,email"`
			Password     string  `json:"password"      validate:"required,min=10"`
		}
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Timezone == "" {
			req.Timezone = "UTC"
		}
		if req.Currency == "" {
			req.Currency = "USD"
		}

		result, err := svc.Register(r.Context(), auth.RegisterInput{
			Slug:         req.Slug,
			BusinessName: req.BusinessName,
			ContactEmail: req.ContactEmail,
			ContactPhone: req.ContactPhone,
			Timezone:     req.Timezone,
			Currency:     req.Currency,
			OwnerName:    req.OwnerName,
			OwnerEmail:   req.OwnerEmail,
			Password:     req.Password,
		})
		if err != nil {
			authError(w, err)
			return
		}
		response.Created(w, result)
	}
}

// NewLoginHandler returns the handler for POST /api/v1/auth/login.
func NewLoginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"    validate:"required,email"`
			Password string `json:"password" validate:"required"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		result, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			authError(w, err)
			return
		}
		response.JSON(w, result)
	}
}

// NewRefreshHandler returns the handler for POST /api/v1/auth/refresh.
func NewRefreshHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token" validate:"required"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			authError(w, err)
			return
		}
		response.JSON(w, pair)
	}
}

// NewLogoutHandler returns the handler for POST /api/v1/auth/logout.
func NewLogoutHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token" validate:"required"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		if err := svc.Logout(r.Context(), req.RefreshToken); err != nil {
			authError(w, err)
			return
		}
		response.NoContent(w)
	}
}
