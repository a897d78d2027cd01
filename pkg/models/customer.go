package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Customer lives inside a tenant schema. No tenant_id column: isolation
// is structural, every row is reachable only through its schema.
type Customer struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	FirstName    string          `db:"first_name"    json:"first_name"`
	LastName     string          `db:"last_name"     json:"last_name"`
	Email        *string         `db:"email"         json:"email,omitempty"`
	Phone        string          `db:"phone"         json:"phone"`
	AddressLine1 *string         `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2 *string         `db:"address_line2" json:"address_line2,omitempty"`
	City         *string         `db:"city"          json:"city,omitempty"`
	State        *string         `db:"state"         json:"state,omitempty"`
	PostalCode   *string         `db:"postal_code"   json:"postal_code,omitempty"`
	Notes        *string         `db:"notes"         json:"notes,omitempty"`
	CustomFields json.RawMessage `db:"custom_fields" json:"custom_fields"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
	DeletedAt    *time.Time      `db:"deleted_at"    json:"-"`
}
