package handler

import (
	"net/http"
	"strconv"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
)

// NewListInventoryHandler returns the handler for GET /api/v1/inventory.
func NewListInventoryHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		lowStock, _ := strconv.ParseBool(r.URL.Query().Get("low_stock"))
		filter := store.InventoryFilter{
			PartID:   queryUUID(r, "part_id"),
			Location: r.URL.Query().Get("location"),
			LowStock: lowStock,
			Limit:    queryInt(r, "limit"),
			Offset:   queryInt(r, "offset"),
		}
		items, total, err := ts.ListInventory(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, items, response.Paginate(limit, offset, total))
	}
}

// NewGetInventoryItemHandler returns the handler for GET /api/v1/inventory/{id}.
func NewGetInventoryItemHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		item, err := ts.GetInventoryItem(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, item)
	}
}

// NewAddInventoryHandler returns the handler for POST /api/v1/inventory.
func NewAddInventoryHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			PartID         uuid.UUID `json:"part_id"  validate:"required"`
			Location       string    `json:"location" validate:"required,max=255"`
			QuantityOnHand int       `json:"quantity_on_hand" validate:"gte=0"`
			BinLocation    *string   `json:"bin_location"`
			Notes          *string   `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		item := &models.InventoryItem{
			PartID:         req.PartID,
			Location:       req.Location,
			QuantityOnHand: req.QuantityOnHand,
			BinLocation:    req.BinLocation,
			Notes:          req.Notes,
		}
		if err := ts.AddInventory(r.Context(), item); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, item)
	}
}

// NewUpdateInventoryHandler returns the handler for PATCH /api/v1/inventory/{id}.
func NewUpdateInventoryHandler(s *store.Store) http.HandlerFunc {
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
			QuantityOnHand *int    `json:"quantity_on_hand" validate:"omitempty,gte=0"`
			BinLocation    *string `json:"bin_location"`
			Notes          *string `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		item, err := ts.UpdateInventory(r.Context(), id, store.InventoryUpdate{
			QuantityOnHand: req.QuantityOnHand,
			BinLocation:    req.BinLocation,
			Notes:          req.Notes,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, item)
	}
}

// NewTransferInventoryHandler returns the handler for
// POST /api/v1/inventory/transfer. Moves stock between two locations
// holding the same part.
func NewTransferInventoryHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			FromItemID uuid.UUID `json:"from_item_id" validate:"required"`
			ToItemID   uuid.UUID `json:"to_item_id"   validate:"required"`
			Quantity   int       `json:"quantity"     validate:"required,gt=0"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		if err := ts.TransferInventory(r.Context(), req.FromItemID, req.ToItemID, req.Quantity); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewAllocateInventoryHandler returns the handler for
// POST /api/v1/inventory/{id}/allocate. Reserves stock for a job and
// adds the matching part line.
func NewAllocateInventoryHandler(s *store.Store) http.HandlerFunc {
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
			JobID    uuid.UUID `json:"job_id"   validate:"required"`
			Quantity int       `json:"quantity" validate:"required,gt=0"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		jobPart, err := ts.AllocateToJob(r.Context(), id, req.JobID, req.Quantity)
		if err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, jobPart)
	}
}

// NewDeallocateInventoryHandler returns the handler for
// DELETE /api/v1/job-parts/{id}. Releases the reserved quantity and
// removes the part line from its job.
func NewDeallocateInventoryHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.DeallocateFromJob(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewDeleteInventoryHandler returns the handler for DELETE /api/v1/inventory/{id}.
func NewDeleteInventoryHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeleteInventory(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}
