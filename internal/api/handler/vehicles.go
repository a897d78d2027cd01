package handler

import (
	"net/http"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
)

// NewListVehiclesHandler returns the handler for GET /api/v1/vehicles.
func NewListVehiclesHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.VehicleFilter{
			CustomerID: queryUUID(r, "customer_id"),
			FleetID:    queryUUID(r, "fleet_id"),
			Search:     r.URL.Query().Get("search"),
			Limit:      queryInt(r, "limit"),
			Offset:     queryInt(r, "offset"),
		}
		vehicles, total, err := ts.ListVehicles(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, vehicles, response.Paginate(limit, offset, total))
	}
}

// NewGetVehicleHandler returns the handler for GET /api/v1/vehicles/{id}.
func NewGetVehicleHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		vehicle, err := ts.GetVehicle(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, vehicle)
	}
}

// NewCreateVehicleHandler returns the handler for POST /api/v1/vehicles.
func NewCreateVehicleHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		var req struct {
			CustomerID        uuid.UUID  `json:"customer_id" validate:"required"`
			FleetID           *uuid.UUID `json:"fleet_id"`
			VIN               *string    `json:"vin"         validate:"omitempty,len=17"`
			Year              string     `json:"year"        validate:"required,len=4,numeric"`
			Make              string     `json:"make"        validate:"required,max=100"`
			Model             string     `json:"model"       validate:"required,max=100"`
			Trim              *string    `json:"trim"`
			Color             *string    `json:"color"`
			LicensePlate      *string    `json:"license_plate"`
			LicensePlateState *string    `json:"license_plate_state"`
			Odometer          *int       `json:"odometer"    validate:"omitempty,gte=0"`
			Engine            *string    `json:"engine"`
			Transmission      *string    `json:"transmission"`
			Notes             *string    `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		vehicle := &models.Vehicle{
			CustomerID:        req.CustomerID,
			FleetID:           req.FleetID,
			VIN:               req.VIN,
			Year:              req.Year,
			Make:              req.Make,
			Model:             req.Model,
			Trim:              req.Trim,
			Color:             req.Color,
			LicensePlate:      req.LicensePlate,
			LicensePlateState: req.LicensePlateState,
			Odometer:          req.Odometer,
			Engine:            req.Engine,
			Transmission:      req.Transmission,
			Notes:             req.Notes,
		}
		if err := ts.CreateVehicle(r.Context(), vehicle); err != nil {
			storeError(w, err)
			return
		}
		response.Created(w, vehicle)
	}
}

// NewUpdateVehicleHandler returns the handler for PATCH /api/v1/vehicles/{id}.
func NewUpdateVehicleHandler(s *store.Store) http.HandlerFunc {
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
			Color             *string `json:"color"`
			LicensePlate      *string `json:"license_plate"`
			LicensePlateState *string `json:"license_plate_state"`
			Odometer          *int    `json:"odometer" validate:"omitempty,gte=0"`
			Engine            *string `json:"engine"`
			Transmission      *string `json:"transmission"`
			Notes             *string `json:"notes"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		vehicle, err := ts.UpdateVehicle(r.Context(), id, store.VehicleUpdate{
			Color:             req.Color,
			LicensePlate:      req.LicensePlate,
			LicensePlateState: req.LicensePlateState,
			Odometer:          req.Odometer,
			Engine:            req.Engine,
			Transmission:      req.Transmission,
			Notes:             req.Notes,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, vehicle)
	}
}

// NewDeleteVehicleHandler returns the handler for DELETE /api/v1/vehicles/{id}.
func NewDeleteVehicleHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		if err := ts.SoftDeleteVehicle(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		response.NoContent(w)
	}
}
