package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks stock of one part at one location ("Van #1",
// "Shop", ...). Available quantity is QuantityOnHand minus
// QuantityAllocated; allocated stock is reserved by open jobs.
type InventoryItem struct {
	ID                uuid.UUID  `db:"id"                 json:"id"`
	PartID            uuid.UUID  `db:"part_id"            json:"part_id"`
	Location          string     `db:"location"           json:"location"`
	QuantityOnHand    int        `db:"quantity_on_hand"   json:"quantity_on_hand"`
	QuantityAllocated int        `db:"quantity_allocated" json:"quantity_allocated"`
	BinLocation       *string    `db:"bin_location"       json:"bin_location,omitempty"`
	Notes             *string    `db:"notes"              json:"notes,omitempty"`
	CreatedAt         time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"         json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at"         json:"-"`
}

// Available returns the quantity not yet reserved by a job.
func (i *InventoryItem) Available() int {
	return i.QuantityOnHand - i.QuantityAllocated
}

// JobPart records a part line on a job, created by an inventory
// allocation. Deleting it deallocates the reserved quantity.
type JobPart struct {
	ID                 uuid.UUID  `db:"id"                  json:"id"`
	JobID              uuid.UUID  `db:"job_id"              json:"job_id"`
	PartID             uuid.UUID  `db:"part_id"             json:"part_id"`
	InventoryItemID    *uuid.UUID `db:"inventory_item_id"   json:"inventory_item_id,omitempty"`
	Quantity           int        `db:"quantity"            json:"quantity"`
	UnitCost           float64    `db:"unit_cost"           json:"unit_cost"`
	UnitPrice          float64    `db:"unit_price"          json:"unit_price"`
	Subtotal           float64    `db:"subtotal"            json:"subtotal"`
	IsCustomerSupplied bool       `db:"is_customer_supplied" json:"is_customer_supplied"`
	Notes              *string    `db:"notes"               json:"notes,omitempty"`
	CreatedAt          time.Time  `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"          json:"updated_at"`
}
