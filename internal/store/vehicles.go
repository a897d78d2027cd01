package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const vehicleColumns = `id, customer_id, fleet_id, vin, year, make, model, trim, color,
	license_plate, license_plate_state, odometer, engine, transmission, notes,
	created_at, updated_at, deleted_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.CustomerID, &v.FleetID, &v.VIN, &v.Year, &v.Make, &v.Model,
		&v.Trim, &v.Color, &v.LicensePlate, &v.LicensePlateState, &v.Odometer,
		&v.Engine, &v.Transmission, &v.Notes, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type VehicleFilter struct {
	CustomerID uuid.UUID
	FleetID    uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

func (t *TenantStore) ListVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.CustomerID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, filter.CustomerID)
		argIdx++
	}
	if filter.FleetID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("fleet_id = $%d", argIdx))
		args = append(args, filter.FleetID)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(vin ILIKE $%d OR make ILIKE $%d OR model ILIKE $%d OR license_plate ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("vehicles"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		vehicleColumns, t.table("vehicles"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, total, rows.Err()
}

func (t *TenantStore) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	v, err := scanVehicle(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		vehicleColumns, t.table("vehicles")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return v, err
}

func (t *TenantStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	if _, err := t.GetCustomer(ctx, v.CustomerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: customer", ErrNotFound)
		}
		return err
	}

	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (customer_id, fleet_id, vin, year, make, model, trim, color,
			license_plate, license_plate_state, odometer, engine, transmission, notes)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`, t.table("vehicles")),
		v.CustomerID, v.FleetID, derefString(v.VIN), v.Year, v.Make, v.Model, v.Trim,
		v.Color, v.LicensePlate, v.LicensePlateState, v.Odometer, v.Engine, v.Transmission, v.Notes,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: VIN already registered", ErrDuplicateKey)
		}
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

type VehicleUpdate struct {
	FleetID           *uuid.UUID
	VIN               *string
	Year              *string
	Make              *string
	Model             *string
	Trim              *string
	Color             *string
	LicensePlate      *string
	LicensePlateState *string
	Odometer          *int
	Engine            *string
	Transmission      *string
	Notes             *string
}

func (t *TenantStore) UpdateVehicle(ctx context.Context, id uuid.UUID, in VehicleUpdate) (*models.Vehicle, error) {
	if _, err := t.GetVehicle(ctx, id); err != nil {
		return nil, err
	}

	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.FleetID != nil {
		add("fleet_id", *in.FleetID)
	}
	if in.VIN != nil {
		set = append(set, fmt.Sprintf("vin = NULLIF($%d, '')", argIdx))
		args = append(args, *in.VIN)
		argIdx++
	}
	if in.Year != nil {
		add("year", *in.Year)
	}
	if in.Make != nil {
		add("make", *in.Make)
	}
	if in.Model != nil {
		add("model", *in.Model)
	}
	if in.Trim != nil {
		add("trim", *in.Trim)
	}
	if in.Color != nil {
		add("color", *in.Color)
	}
	if in.LicensePlate != nil {
		add("license_plate", *in.LicensePlate)
	}
	if in.LicensePlateState != nil {
		add("license_plate_state", *in.LicensePlateState)
	}
	if in.Odometer != nil {
		add("odometer", *in.Odometer)
	}
	if in.Engine != nil {
		add("engine", *in.Engine)
	}
	if in.Transmission != nil {
		add("transmission", *in.Transmission)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("vehicles"), strings.Join(set, ", "), vehicleColumns)

	v, err := scanVehicle(t.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: VIN already registered", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return v, nil
}

// SoftDeleteVehicle marks a vehicle deleted unless it still has live jobs.
func (t *TenantStore) SoftDeleteVehicle(ctx context.Context, id uuid.UUID) error {
	if _, err := t.GetVehicle(ctx, id); err != nil {
		return err
	}

	var jobCount int
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE vehicle_id = $1 AND deleted_at IS NULL",
		t.table("jobs")), id).Scan(&jobCount)
	if err != nil {
		return fmt.Errorf("count vehicle jobs: %w", err)
	}
	if jobCount > 0 {
		return fmt.Errorf("%w: vehicle has %d active job(s)", ErrConflict, jobCount)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		t.table("vehicles")), id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
