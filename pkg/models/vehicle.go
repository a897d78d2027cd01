package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle belongs to a customer within the same tenant schema.
type Vehicle struct {
	ID                uuid.UUID  `db:"id"                  json:"id"`
	CustomerID        uuid.UUID  `db:"customer_id"         json:"customer_id"`
	FleetID           *uuid.UUID `db:"fleet_id"            json:"fleet_id,omitempty"`
	VIN               *string    `db:"vin"                 json:"vin,omitempty"`
	Year              string     `db:"year"                json:"year"`
	Make              string     `db:"make"                json:"make"`
	Model             string     `db:"model"               json:"model"`
	Trim              *string    `db:"trim"                json:"trim,omitempty"`
	Color             *string    `db:"color"               json:"color,omitempty"`
	LicensePlate      *string    `db:"license_plate"       json:"license_plate,omitempty"`
	LicensePlateState *string    `db:"license_plate_state" json:"license_plate_state,omitempty"`
	Odometer          *int       `db:"odometer"            json:"odometer,omitempty"`
	Engine            *string    `db:"engine"              json:"engine,omitempty"`
	Transmission      *string    `db:"transmission"        json:"transmission,omitempty"`
	Notes             *string    `db:"notes"               json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"          json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at"          json:"-"`
}
