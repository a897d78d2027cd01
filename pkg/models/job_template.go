package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobTemplate is a reusable "job in a box": a named bundle of steps,
// required parts, and checklist items with default pricing. Spawning a
// job copies the content into the job's snapshot at that moment.
type JobTemplate struct {
	ID                        uuid.UUID       `db:"id"                           json:"id"`
	Name                      string          `db:"name"                         json:"name"`
	Slug                      string          `db:"slug"                         json:"slug"`
	Description               *string         `db:"description"                  json:"description,omitempty"`
	Category                  *string         `db:"category"                     json:"category,omitempty"`
	DefaultLaborMinutes       float64         `db:"default_labor_minutes"        json:"default_labor_minutes"`
	DefaultLaborRate          float64         `db:"default_labor_rate"           json:"default_labor_rate"`
	DefaultPartsMarkupPercent float64         `db:"default_parts_markup_percent" json:"default_parts_markup_percent"`
	Steps                     json.RawMessage `db:"steps"                        json:"steps"`
	RequiredParts             json.RawMessage `db:"required_parts"               json:"required_parts"`
	ChecklistItems            json.RawMessage `db:"checklist_items"              json:"checklist_items"`
	IsActive                  bool            `db:"is_active"                    json:"is_active"`
	IsGlobal                  bool            `db:"is_global"                    json:"is_global"`
	CreatedAt                 time.Time       `db:"created_at"                   json:"created_at"`
	UpdatedAt                 time.Time       `db:"updated_at"                   json:"updated_at"`
	DeletedAt                 *time.Time      `db:"deleted_at"                   json:"-"`
}

// TemplateSnapshot is the frozen content copied onto a job at spawn time.
type TemplateSnapshot struct {
	Name           string          `json:"name"`
	Steps          json.RawMessage `json:"steps"`
	RequiredParts  json.RawMessage `json:"required_parts"`
	ChecklistItems json.RawMessage `json:"checklist_items"`
}

// TemplateUsageStats summarizes the jobs spawned from a template.
type TemplateUsageStats struct {
	TemplateID           uuid.UUID      `json:"template_id"`
	TemplateName         string         `json:"template_name"`
	TotalJobs            int            `json:"total_jobs"`
	JobsByStatus         map[string]int `json:"jobs_by_status"`
	AvgCompletionMinutes *int           `json:"avg_completion_minutes,omitempty"`
}
