package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Part is a catalog entry. Stock levels live in InventoryItem rows,
// one per storage location.
type Part struct {
	ID                     uuid.UUID       `db:"id"                       json:"id"`
	PartNumber             string          `db:"part_number"              json:"part_number"`
	Name                   string          `db:"name"                     json:"name"`
	Description            *string         `db:"description"              json:"description,omitempty"`
	Category               *string         `db:"category"                 json:"category,omitempty"`
	Manufacturer           *string         `db:"manufacturer"             json:"manufacturer,omitempty"`
	ManufacturerPartNumber *string         `db:"manufacturer_part_number" json:"manufacturer_part_number,omitempty"`
	DefaultCost            float64         `db:"default_cost"             json:"default_cost"`
	DefaultPrice           float64         `db:"default_price"            json:"default_price"`
	MinimumStock           int             `db:"minimum_stock"            json:"minimum_stock"`
	ReorderPoint           int             `db:"reorder_point"            json:"reorder_point"`
	Specifications         json.RawMessage `db:"specifications"           json:"specifications"`
	IsActive               bool            `db:"is_active"                json:"is_active"`
	CreatedAt              time.Time       `db:"created_at"               json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at"               json:"updated_at"`
	DeletedAt              *time.Time      `db:"deleted_at"               json:"-"`
}
