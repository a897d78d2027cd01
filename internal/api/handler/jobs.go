package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
)

// queryStatuses splits the status query parameter on commas and keeps
// only recognized job statuses.
func queryStatuses(r *http.Request) []string {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	var statuses []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if models.ValidJobStatus(s) {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

func queryTime(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NewListJobsHandler returns the handler for GET /api/v1/jobs.
func NewListJobsHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.JobFilter{
			CustomerID:         queryUUID(r, "customer_id"),
			VehicleID:          queryUUID(r, "vehicle_id"),
			Statuses:           queryStatuses(r),
			AssignedMechanicID: queryUUID(r, "mechanic_id"),
			ScheduledAfter:     queryTime(r, "scheduled_after"),
			ScheduledBefore:    queryTime(r, "scheduled_before"),
			Search:             r.URL.Query().Get("search"),
			Limit:              queryInt(r, "limit"),
			Offset:             queryInt(r, "offset"),
		}
		jobs, total, err := ts.ListJobs(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, jobs, response.Paginate(limit, offset, total))
	}
}

// NewGetJobHandler returns the handler for GET /api/v1/jobs/{id}.
func NewGetJobHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		job, err := ts.GetJob(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewCreateJobHandler returns the handler for POST /api/v1/jobs.
func NewCreateJobHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			CustomerID               uuid.UUID  `json:"customer_id" validate:"required"`
			VehicleID                uuid.UUID  `json:"vehicle_id"  validate:"required"`
			AssignedMechanicID       *uuid.UUID `json:"assigned_mechanic_id"`
			Title                    string     `json:"title"       validate:"required,max=255"`
			Description              *string    `json:"description"`
			Status                   string     `json:"status"`
			ScheduledStart           *time.Time `json:"scheduled_start"`
			ScheduledEnd             *time.Time `json:"scheduled_end"`
			EstimatedDurationMinutes *int       `json:"estimated_duration_minutes" validate:"omitempty,gt=0"`
			ServiceLocationAddress   *string    `json:"service_location_address"`
			ServiceLocationLat       *float64   `json:"service_location_lat" validate:"omitempty,gte=-90,lte=90"`
			ServiceLocationLng       *float64   `json:"service_location_lng" validate:"omitempty,gte=-180,lte=180"`
			LaborMinutes             float64    `json:"labor_minutes"   validate:"gte=0"`
			LaborRate                float64    `json:"labor_rate"      validate:"gte=0"`
			TaxRate                  float64    `json:"tax_rate"        validate:"gte=0,lte=100"`
			DiscountAmount           float64    `json:"discount_amount" validate:"gte=0"`
			Notes                    *string    `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}
		if req.Status != "" && !models.ValidJobStatus(req.Status) {
			response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown job status", nil)
			return
		}

		job := &models.Job{
			CustomerID:               req.CustomerID,
			VehicleID:                req.VehicleID,
			AssignedMechanicID:       req.AssignedMechanicID,
			Title:                    req.Title,
			Description:              req.Description,
			Status:                   req.Status,
			ScheduledStart:           req.ScheduledStart,
			ScheduledEnd:             req.ScheduledEnd,
			EstimatedDurationMinutes: req.EstimatedDurationMinutes,
			ServiceLocationAddress:   req.ServiceLocationAddress,
			ServiceLocationLat:       req.ServiceLocationLat,
			ServiceLocationLng:       req.ServiceLocationLng,
			LaborMinutes:             req.LaborMinutes,
			LaborRate:                req.LaborRate,
			TaxRate:                  req.TaxRate,
			DiscountAmount:           req.DiscountAmount,
			Notes:                    req.Notes,
		}
		if err := ts.CreateJob(r.Context(), job); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// NewUpdateJobHandler returns the handler for PATCH /api/v1/jobs/{id}.
func NewUpdateJobHandler(s *store.Store) http.HandlerFunc {
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
			AssignedMechanicID       *uuid.UUID `json:"assigned_mechanic_id"`
			Title                    *string    `json:"title" validate:"omitempty,max=255"`
			Description              *string    `json:"description"`
			ScheduledStart           *time.Time `json:"scheduled_start"`
			ScheduledEnd             *time.Time `json:"scheduled_end"`
			EstimatedDurationMinutes *int       `json:"estimated_duration_minutes" validate:"omitempty,gt=0"`
			ServiceLocationAddress   *string    `json:"service_location_address"`
			ServiceLocationLat       *float64   `json:"service_location_lat" validate:"omitempty,gte=-90,lte=90"`
			ServiceLocationLng       *float64   `json:"service_location_lng" validate:"omitempty,gte=-180,lte=180"`
			LaborMinutes             *float64   `json:"labor_minutes"   validate:"omitempty,gte=0"`
			LaborRate                *float64   `json:"labor_rate"      validate:"omitempty,gte=0"`
			TaxRate                  *float64   `json:"tax_rate"        validate:"omitempty,gte=0,lte=100"`
			DiscountAmount           *float64   `json:"discount_amount" validate:"omitempty,gte=0"`
			Notes                    *string    `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		job, err := ts.UpdateJob(r.Context(), id, store.JobUpdate{
			AssignedMechanicID:       req.AssignedMechanicID,
			Title:                    req.Title,
			Description:              req.Description,
			ScheduledStart:           req.ScheduledStart,
			ScheduledEnd:             req.ScheduledEnd,
			EstimatedDurationMinutes: req.EstimatedDurationMinutes,
			ServiceLocationAddress:   req.ServiceLocationAddress,
			ServiceLocationLat:       req.ServiceLocationLat,
			ServiceLocationLng:       req.ServiceLocationLng,
			LaborMinutes:             req.LaborMinutes,
			LaborRate:                req.LaborRate,
			TaxRate:                  req.TaxRate,
			DiscountAmount:           req.DiscountAmount,
			Notes:                    req.Notes,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewUpdateJobStatusHandler returns the handler for
// PATCH /api/v1/jobs/{id}/status.
func NewUpdateJobStatusHandler(s *store.Store) http.HandlerFunc {
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
			Status string `json:"status" validate:"required"`
		}
		if !decodeValid(w, r, &req) {
			return
		}
		if !models.ValidJobStatus(req.Status) {
			response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown job status", nil)
			return
		}

		job, err := ts.UpdateJobStatus(r.Context(), id, req.Status)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewDeleteJobHandler returns the handler for DELETE /api/v1/jobs/{id}.
func NewDeleteJobHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeleteJob(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewListJobPartsHandler returns the handler for GET /api/v1/jobs/{id}/parts.
func NewListJobPartsHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		parts, err := ts.ListJobParts(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, parts)
	}
}
