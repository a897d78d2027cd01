package handler

import (
	"net/http"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
)

// NewListCustomersHandler returns the handler for GET /api/v1/customers.
func NewListCustomersHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.CustomerFilter{
			Search: r.URL.Query().Get("search"),
			Email:  r.URL.Query().Get("email"),
			Phone:  r.URL.Query().Get("phone"),
			Limit:  queryInt(r, "limit"),
			Offset: queryInt(r, "offset"),
		}
		customers, total, err := ts.ListCustomers(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, customers, response.Paginate(limit, offset, total))
	}
}

// NewGetCustomerHandler returns the handler for GET /api/v1/customers/{id}.
func NewGetCustomerHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		customer, err := ts.GetCustomer(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, customer)
	}
}

// NewCreateCustomerHandler returns the handler for POST /api/v1/customers.
func NewCreateCustomerHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			FirstName    string  `json:"first_name" validate:"required,max=100"`
			LastName     string  `json:"last_name"  validate:"required,max=100"`
			Email        *string `json:"email"      validate:"omitempty,email"`
			Phone        string  `json:"phone"      validate:"required,max=30"`
			AddressLine1 *string `json:"address_line1"`
			AddressLine2 *string `json:"address_line2"`
			City         *string `json:"city"`
			State        *string `json:"state"`
			PostalCode   *string `json:"postal_code"`
			Notes        *string `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		customer := &models.Customer{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
			Notes:        req.Notes,
		}
		if err := ts.CreateCustomer(r.Context(), customer); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, customer)
	}
}

// NewUpdateCustomerHandler returns the handler for PATCH /api/v1/customers/{id}.
func NewUpdateCustomerHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		var req struct {
			FirstName    *string `json:"first_name" validate:"omitempty,max=100"`
			LastName     *string `json:"last_name"  validate:"omitempty,max=100"`
			Email        *string `json:"email"`
			Phone        *string `json:"phone"      validate:"omitempty,max=30"`
			AddressLine1 *string `json:"address_line1"`
			AddressLine2 *string `json:"address_line2"`
			City         *string `json:"city"`
			State        *string `json:"state"`
			PostalCode   *string `json:"postal_code"`
			Notes        *string `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		customer, err := ts.UpdateCustomer(r.Context(), id, store.CustomerUpdate{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			Phone:        req.Phone,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			State:        req.State,
			PostalCode:   req.PostalCode,
			Notes:        req.Notes,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, customer)
	}
}

// NewDeleteCustomerHandler returns the handler for DELETE /api/v1/customers/{id}.
func NewDeleteCustomerHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeleteCustomer(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}
