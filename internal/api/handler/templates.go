package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/cache"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"

	mw "github.com/curbsidehq/curbside/internal/api/middleware"
)

// NewListTemplatesHandler returns the handler for GET /api/v1/templates.
func NewListTemplatesHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.TemplateFilter{
			Category: r.URL.Query().Get("category"),
			IsActive: queryBool(r, "is_active"),
			Search:   r.URL.Query().Get("search"),
			Limit:    queryInt(r, "limit"),
			Offset:   queryInt(r, "offset"),
		}
		templates, total, err := ts.ListTemplates(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, templates, response.Paginate(limit, offset, total))
	}
}

// NewGetTemplateHandler returns the handler for GET /api/v1/templates/{id}.
func NewGetTemplateHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		tpl, err := ts.GetTemplate(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, tpl)
	}
}

// NewCreateTemplateHandler returns the handler for POST /api/v1/templates.
func NewCreateTemplateHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			Name                      string          `json:"name" validate:"required,max=255"`
			Slug                      string          `json:"slug" validate:"required,min=2,max=100,lowercase"`
			Description               *string         `json:"description"`
			Category                  *string         `json:"category"`
			DefaultLaborMinutes       float64         `json:"default_labor_minutes"        validate:"gte=0"`
			DefaultLaborRate          float64         `json:"default_labor_rate"           validate:"gte=0"`
			DefaultPartsMarkupPercent float64         `json:"default_parts_markup_percent" validate:"gte=0"`
			Steps                     json.RawMessage `json:"steps"`
			RequiredParts             json.RawMessage `json:"required_parts"`
			ChecklistItems            json.RawMessage `json:"checklist_items"`
			IsActive                  *bool           `json:"is_active"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		tpl := &models.JobTemplate{
			Name:                      req.Name,
			Slug:                      req.Slug,
			Description:               req.Description,
			Category:                  req.Category,
			DefaultLaborMinutes:       req.DefaultLaborMinutes,
			DefaultLaborRate:          req.DefaultLaborRate,
			DefaultPartsMarkupPercent: req.DefaultPartsMarkupPercent,
			Steps:                     req.Steps,
			RequiredParts:             req.RequiredParts,
			ChecklistItems:            req.ChecklistItems,
			IsActive:                  active,
		}
		if err := ts.CreateTemplate(r.Context(), tpl); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, tpl)
	}
}

// NewUpdateTemplateHandler returns the handler for PATCH /api/v1/templates/{id}.
func NewUpdateTemplateHandler(s *store.Store) http.HandlerFunc {
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
			Name                      *string         `json:"name" validate:"omitempty,max=255"`
			Description               *string         `json:"description"`
			Category                  *string         `json:"category"`
			DefaultLaborMinutes       *float64        `json:"default_labor_minutes"        validate:"omitempty,gte=0"`
			DefaultLaborRate          *float64        `json:"default_labor_rate"           validate:"omitempty,gte=0"`
			DefaultPartsMarkupPercent *float64        `json:"default_parts_markup_percent" validate:"omitempty,gte=0"`
			Steps                     json.RawMessage `json:"steps"`
			RequiredParts             json.RawMessage `json:"required_parts"`
			ChecklistItems            json.RawMessage `json:"checklist_items"`
			IsActive                  *bool           `json:"is_active"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		tpl, err := ts.UpdateTemplate(r.Context(), id, store.TemplateUpdate{
			Name:                      req.Name,
			Description:               req.Description,
			Category:                  req.Category,
			DefaultLaborMinutes:       req.DefaultLaborMinutes,
			DefaultLaborRate:          req.DefaultLaborRate,
			DefaultPartsMarkupPercent: req.DefaultPartsMarkupPercent,
			Steps:                     req.Steps,
			RequiredParts:             req.RequiredParts,
			ChecklistItems:            req.ChecklistItems,
			IsActive:                  req.IsActive,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, tpl)
	}
}

// NewDeleteTemplateHandler returns the handler for DELETE /api/v1/templates/{id}.
func NewDeleteTemplateHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeleteTemplate(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewSpawnJobHandler returns the handler for POST /api/v1/templates/{id}/spawn.
func NewSpawnJobHandler(s *store.Store) http.HandlerFunc {
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
			CustomerID     uuid.UUID  `json:"customer_id" validate:"required"`
			VehicleID      uuid.UUID  `json:"vehicle_id"  validate:"required"`
			ScheduledStart *time.Time `json:"scheduled_start"`
			ScheduledEnd   *time.Time `json:"scheduled_end"`
			Notes          *string    `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		job, err := ts.SpawnJobFromTemplate(r.Context(), id, store.SpawnInput{
			CustomerID:     req.CustomerID,
			VehicleID:      req.VehicleID,
			ScheduledStart: req.ScheduledStart,
			ScheduledEnd:   req.ScheduledEnd,
			Notes:          req.Notes,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// templateUsageTTL keeps the aggregate fresh enough for dashboards
// without hitting the jobs table on every request.
const templateUsageTTL = 5 * time.Minute

// NewTemplateUsageHandler returns the handler for
// GET /api/v1/templates/{id}/usage. Results are cached per tenant and
// template; cache failures fall through to the database.
func NewTemplateUsageHandler(s *store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		tenantID, _ := mw.GetTenantID(r)
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		key := cache.TemplateUsageKey(tenantID, id)
		if raw, hit, err := c.Get(r.Context(), key); err == nil && hit {
			var stats models.TemplateUsageStats
			if json.Unmarshal(raw, &stats) == nil {
				response.JSON(w, &stats)
				return
			}
		}

		stats, err := ts.TemplateUsage(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if raw, err := json.Marshal(stats); err == nil {
			_ = c.Set(r.Context(), key, raw, templateUsageTTL)
		}
		response.JSON(w, stats)
	}
}
