package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const partColumns = `id, part_number, name, description, category, manufacturer,
	manufacturer_part_number, default_cost, default_price, minimum_stock, reorder_point,
	specifications, is_active, created_at, updated_at, deleted_at`

func scanPart(row pgx.Row) (*models.Part, error) {
	var p models.Part
	err := row.Scan(&p.ID, &p.PartNumber, &p.Name, &p.Description, &p.Category,
		&p.Manufacturer, &p.ManufacturerPartNumber, &p.DefaultCost, &p.DefaultPrice,
		&p.MinimumStock, &p.ReorderPoint, &p.Specifications, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type PartFilter struct {
	Category     string
	Manufacturer string
	IsActive     *bool
	Search       string
	Limit        int
	Offset       int
}

func (t *TenantStore) ListParts(ctx context.Context, filter PartFilter) ([]*models.Part, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Manufacturer != "" {
		conditions = append(conditions, fmt.Sprintf("manufacturer = $%d", argIdx))
		args = append(args, filter.Manufacturer)
		argIdx++
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *filter.IsActive)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(part_number ILIKE $%d OR name ILIKE $%d OR manufacturer_part_number ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("parts"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parts: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY part_number LIMIT $%d OFFSET $%d",
		partColumns, t.table("parts"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []*models.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	return parts, total, rows.Err()
}

func (t *TenantStore) GetPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	p, err := scanPart(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		partColumns, t.table("parts")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get part: %w", err)
	}
	return p, err
}

func (t *TenantStore) CreatePart(ctx context.Context, p *models.Part) error {
	var exists bool
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE part_number = $1 AND deleted_at IS NULL)",
		t.table("parts")), p.PartNumber).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check part number: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: part number already in catalog", ErrDuplicateKey)
	}

	if p.Specifications == nil {
		p.Specifications = json.RawMessage("{}")
	}

	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (part_number, name, description, category, manufacturer,
			manufacturer_part_number, default_cost, default_price, minimum_stock,
			reorder_point, specifications, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`, t.table("parts")),
		p.PartNumber, p.Name, p.Description, p.Category, p.Manufacturer,
		p.ManufacturerPartNumber, p.DefaultCost, p.DefaultPrice, p.MinimumStock,
		p.ReorderPoint, p.Specifications, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	return nil
}

type PartUpdate struct {
	Name                   *string
	Description            *string
	Category               *string
	Manufacturer           *string
	ManufacturerPartNumber *string
	DefaultCost            *float64
	DefaultPrice           *float64
	MinimumStock           *int
	ReorderPoint           *int
	Specifications         json.RawMessage
	IsActive               *bool
}

func (t *TenantStore) UpdatePart(ctx context.Context, id uuid.UUID, in PartUpdate) (*models.Part, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Category != nil {
		add("category", *in.Category)
	}
	if in.Manufacturer != nil {
		add("manufacturer", *in.Manufacturer)
	}
	if in.ManufacturerPartNumber != nil {
		add("manufacturer_part_number", *in.ManufacturerPartNumber)
	}
	if in.DefaultCost != nil {
		add("default_cost", *in.DefaultCost)
	}
	if in.DefaultPrice != nil {
		add("default_price", *in.DefaultPrice)
	}
	if in.MinimumStock != nil {
		add("minimum_stock", *in.MinimumStock)
	}
	if in.ReorderPoint != nil {
		add("reorder_point", *in.ReorderPoint)
	}
	if in.Specifications != nil {
		add("specifications", in.Specifications)
	}
	if in.IsActive != nil {
		add("is_active", *in.IsActive)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("parts"), strings.Join(set, ", "), partColumns)

	p, err := scanPart(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update part: %w", err)
	}
	return p, err
}

// SoftDeletePart removes a part from the catalog. Parts with stock on
// hand or usage history on jobs must be deactivated instead so old job
// records keep resolving.
func (t *TenantStore) SoftDeletePart(ctx context.Context, id uuid.UUID) error {
	var hasInventory bool
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE part_id = $1 AND deleted_at IS NULL)",
		t.table("inventory_items")), id).Scan(&hasInventory)
	if err != nil {
		return fmt.Errorf("check part inventory: %w", err)
	}
	if hasInventory {
		return fmt.Errorf("%w: part has inventory records, deactivate it instead", ErrConflict)
	}

	var usedOnJobs bool
	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE part_id = $1)",
		t.table("job_parts")), id).Scan(&usedOnJobs)
	if err != nil {
		return fmt.Errorf("check part usage: %w", err)
	}
	if usedOnJobs {
		return fmt.Errorf("%w: part is referenced by jobs, deactivate it instead", ErrConflict)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		t.table("parts")), id)
	if err != nil {
		return fmt.Errorf("delete part: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
