package handler

import (
	"encoding/json"
	"net/http"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
)

// NewListPartsHandler returns the handler for GET /api/v1/parts.
func NewListPartsHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.PartFilter{
			Category:     r.URL.Query().Get("category"),
			Manufacturer: r.URL.Query().Get("manufacturer"),
			IsActive:     queryBool(r, "is_active"),
			Search:       r.URL.Query().Get("search"),
			Limit:        queryInt(r, "limit"),
			Offset:       queryInt(r, "offset"),
		}
		parts, total, err := ts.ListParts(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, parts, response.Paginate(limit, offset, total))
	}
}

// NewGetPartHandler returns the handler for GET /api/v1/parts/{id}.
func NewGetPartHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		part, err := ts.GetPart(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, part)
	}
}

// NewCreatePartHandler returns the handler for POST /api/v1/parts.
func NewCreatePartHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			PartNumber             string          `json:"part_number" validate:"required,max=100"`
			Name                   string          `json:"name"        validate:"required,max=255"`
			Description            *string         `json:"description"`
			Category               *string         `json:"category"`
			Manufacturer           *string         `json:"manufacturer"`
			ManufacturerPartNumber *string         `json:"manufacturer_part_number"`
			DefaultCost            float64         `json:"default_cost"  validate:"gte=0"`
			DefaultPrice           float64         `json:"default_price" validate:"gte=0"`
			MinimumStock           int             `json:"minimum_stock" validate:"gte=0"`
			ReorderPoint           int             `json:"reorder_point" validate:"gte=0"`
			Specifications         json.RawMessage `json:"specifications"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		part := &models.Part{
			PartNumber:             req.PartNumber,
			Name:                   req.Name,
			Description:            req.Description,
			Category:               req.Category,
			Manufacturer:           req.Manufacturer,
			ManufacturerPartNumber: req.ManufacturerPartNumber,
			DefaultCost:            req.DefaultCost,
			DefaultPrice:           req.DefaultPrice,
			MinimumStock:           req.MinimumStock,
			ReorderPoint:           req.ReorderPoint,
			Specifications:         req.Specifications,
			IsActive:               true,
		}
		if err := ts.CreatePart(r.Context(), part); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, part)
	}
}

// NewUpdatePartHandler returns the handler for PATCH /api/v1/parts/{id}.
func NewUpdatePartHandler(s *store.Store) http.HandlerFunc {
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
			Name                   *string         `json:"name" validate:"omitempty,max=255"`
			Description            *string         `json:"description"`
			Category               *string         `json:"category"`
			Manufacturer           *string         `json:"manufacturer"`
			ManufacturerPartNumber *string         `json:"manufacturer_part_number"`
			DefaultCost            *float64        `json:"default_cost"  validate:"omitempty,gte=0"`
			DefaultPrice           *float64        `json:"default_price" validate:"omitempty,gte=0"`
			MinimumStock           *int            `json:"minimum_stock" validate:"omitempty,gte=0"`
			ReorderPoint           *int            `json:"reorder_point" validate:"omitempty,gte=0"`
			Specifications         json.RawMessage `json:"specifications"`
			IsActive               *bool           `json:"is_active"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		part, err := ts.UpdatePart(r.Context(), id, store.PartUpdate{
			Name:                   req.Name,
			Description:            req.Description,
			Category:               req.Category,
			Manufacturer:           req.Manufacturer,
			ManufacturerPartNumber: req.ManufacturerPartNumber,
			DefaultCost:            req.DefaultCost,
			DefaultPrice:           req.DefaultPrice,
			MinimumStock:           req.MinimumStock,
			ReorderPoint:           req.ReorderPoint,
			Specifications:         req.Specifications,
			IsActive:               req.IsActive,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, part)
	}
}

// NewDeletePartHandler returns the handler for DELETE /api/v1/parts/{id}.
func NewDeletePartHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeletePart(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}
