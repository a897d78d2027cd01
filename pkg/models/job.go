package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusDraft      = "draft"
	JobStatusEstimate   = "estimate"
	JobStatusScheduled  = "scheduled"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
	JobStatusOnHold     = "on_hold"
)

// ValidJobStatus reports whether s is one of the known job statuses.
func ValidJobStatus(s string) bool {
	switch s {
	case JobStatusDraft, JobStatusEstimate, JobStatusScheduled,
		JobStatusInProgress, JobStatusCompleted, JobStatusCancelled, JobStatusOnHold:
		return true
	}
	return false
}

// Job is a unit of service work on a vehicle. TemplateSnapshot holds a
// frozen point-in-time copy of the spawning template's content; edits
// to the template after the job is created never alter it.
type Job struct {
	ID                       uuid.UUID       `db:"id"                         json:"id"`
	CustomerID               uuid.UUID       `db:"customer_id"                json:"customer_id"`
	VehicleID                uuid.UUID       `db:"vehicle_id"                 json:"vehicle_id"`
	JobTemplateID            *uuid.UUID      `db:"job_template_id"            json:"job_template_id,omitempty"`
	AssignedMechanicID       *uuid.UUID      `db:"assigned_mechanic_id"       json:"assigned_mechanic_id,omitempty"`
	JobNumber                string          `db:"job_number"                 json:"job_number"`
	Title                    string          `db:"title"                      json:"title"`
	Description              *string         `db:"description"                json:"description,omitempty"`
	Status                   string          `db:"status"                     json:"status"`
	ScheduledStart           *time.Time      `db:"scheduled_start"            json:"scheduled_start,omitempty"`
	ScheduledEnd             *time.Time      `db:"scheduled_end"              json:"scheduled_end,omitempty"`
	ActualStart              *time.Time      `db:"actual_start"               json:"actual_start,omitempty"`
	ActualEnd                *time.Time      `db:"actual_end"                 json:"actual_end,omitempty"`
	EstimatedDurationMinutes *int            `db:"estimated_duration_minutes" json:"estimated_duration_minutes,omitempty"`
	ServiceLocationAddress   *string         `db:"service_location_address"   json:"service_location_address,omitempty"`
	ServiceLocationLat       *float64        `db:"service_location_lat"       json:"service_location_lat,omitempty"`
	ServiceLocationLng       *float64        `db:"service_location_lng"       json:"service_location_lng,omitempty"`
	LaborMinutes             float64         `db:"labor_minutes"              json:"labor_minutes"`
	LaborRate                float64         `db:"labor_rate"                 json:"labor_rate"`
	PartsTotal               float64         `db:"parts_total"                json:"parts_total"`
	TaxRate                  float64         `db:"tax_rate"                   json:"tax_rate"`
	DiscountAmount           float64         `db:"discount_amount"            json:"discount_amount"`
	Total                    float64         `db:"total"                      json:"total"`
	TemplateSnapshot         json.RawMessage `db:"template_snapshot"          json:"template_snapshot"`
	CompletedSteps           json.RawMessage `db:"completed_steps"            json:"completed_steps"`
	ChecklistResults         json.RawMessage `db:"checklist_results"          json:"checklist_results"`
	Notes                    *string         `db:"notes"                      json:"notes,omitempty"`
	CreatedAt                time.Time       `db:"created_at"                 json:"created_at"`
	UpdatedAt                time.Time       `db:"updated_at"                 json:"updated_at"`
	DeletedAt                *time.Time      `db:"deleted_at"                 json:"-"`
}
