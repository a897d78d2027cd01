// Package models contains shared data models used across the Curbside codebase.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusCancelled = "cancelled"
	TenantStatusTrial     = "trial"
)

const (
	TenantPlanFree         = "free"
	TenantPlanStarter      = "starter"
	TenantPlanProfessional = "professional"
	TenantPlanEnterprise   = "enterprise"
)

// Tenant is a registered shop account. Each tenant owns a dedicated
// database schema named tenant_<id>; the tenants row itself lives in
// the public schema.
type Tenant struct {
	ID                   uuid.UUID       `db:"id"                     json:"id"`
	Slug                 string          `db:"slug"                   json:"slug"`
	BusinessName         string          `db:"business_name"          json:"business_name"`
	ContactEmail         string          `db:"contact_email"          json:"contact_email"`
	ContactPhone         *string         `db:"contact_phone"          json:"contact_phone,omitempty"`
	Plan                 string          `db:"plan"                   json:"plan"`
	Status               string          `db:"status"                 json:"status"`
	TrialEndsAt          *time.Time      `db:"trial_ends_at"          json:"trial_ends_at,omitempty"`
	SubscriptionStartsAt *time.Time      `db:"subscription_starts_at" json:"subscription_starts_at,omitempty"`
	SubscriptionEndsAt   *time.Time      `db:"subscription_ends_at"   json:"subscription_ends_at,omitempty"`
	Settings             json.RawMessage `db:"settings"               json:"settings"`
	Timezone             string          `db:"timezone"               json:"timezone"`
	Currency             string          `db:"currency"               json:"currency"`
	CreatedAt            time.Time       `db:"created_at"             json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"             json:"updated_at"`
	DeletedAt            *time.Time      `db:"deleted_at"             json:"-"`
}

// CanLogin reports whether users of this tenant may authenticate.
func (t *Tenant) CanLogin() bool {
	return t.Status == TenantStatusActive || t.Status == TenantStatusTrial
}
