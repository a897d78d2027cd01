package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/curbsidehq/curbside/pkg/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inventoryColumns = `id, part_id, location, quantity_on_hand, quantity_allocated,
	bin_location, notes, created_at, updated_at, deleted_at`

func scanInventoryItem(row pgx.Row) (*models.InventoryItem, error) {
	var i models.InventoryItem
	err := row.Scan(&i.ID, &i.PartID, &i.Location, &i.QuantityOnHand, &i.QuantityAllocated,
		&i.BinLocation, &i.Notes, &i.CreatedAt, &i.UpdatedAt, &i.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

type InventoryFilter struct {
	PartID   uuid.UUID
	Location string
	LowStock bool
	Limit    int
	Offset   int
}

func (t *TenantStore) ListInventory(ctx context.Context, filter InventoryFilter) ([]*models.InventoryItem, int, error) {
	conditions := []string{"i.deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.PartID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("i.part_id = $%d", argIdx))
		args = append(args, filter.PartID)
		argIdx++
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("i.location = $%d", argIdx))
		args = append(args, filter.Location)
		argIdx++
	}
	if filter.LowStock {
		conditions = append(conditions, "i.quantity_on_hand - i.quantity_allocated <= p.reorder_point")
	}

	where := strings.Join(conditions, " AND ")
	from := fmt.Sprintf("%s i JOIN %s p ON p.id = i.part_id", t.table("inventory_items"), t.table("parts"))

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", from, where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		`SELECT i.id, i.part_id, i.location, i.quantity_on_hand, i.quantity_allocated,
			i.bin_location, i.notes, i.created_at, i.updated_at, i.deleted_at
		 FROM %s WHERE %s ORDER BY i.location, p.part_number LIMIT $%d OFFSET $%d`,
		from, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, i)
	}
	return items, total, rows.Err()
}

func (t *TenantStore) GetInventoryItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	i, err := scanInventoryItem(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		inventoryColumns, t.table("inventory_items")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return i, err
}

// AddInventory creates a stock record for a part at a location. One
// record per part/location pair.
func (t *TenantStore) AddInventory(ctx context.Context, i *models.InventoryItem) error {
	if _, err := t.GetPart(ctx, i.PartID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: part", ErrNotFound)
		}
		return err
	}

	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (part_id, location, quantity_on_hand, bin_location, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, quantity_allocated, created_at, updated_at`, t.table("inventory_items")),
		i.PartID, i.Location, i.QuantityOnHand, i.BinLocation, i.Notes,
	).Scan(&i.ID, &i.QuantityAllocated, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: part already stocked at this location", ErrDuplicateKey)
		}
		return fmt.Errorf("add inventory: %w", err)
	}
	return nil
}

type InventoryUpdate struct {
	QuantityOnHand *int
	BinLocation    *string
	Notes          *string
}

func (t *TenantStore) UpdateInventory(ctx context.Context, id uuid.UUID, in InventoryUpdate) (*models.InventoryItem, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.QuantityOnHand != nil {
		if *in.QuantityOnHand < 0 {
			return nil, fmt.Errorf("%w: quantity_on_hand cannot be negative", ErrConflict)
		}
		add("quantity_on_hand", *in.QuantityOnHand)
	}
	if in.BinLocation != nil {
		add("bin_location", *in.BinLocation)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL AND quantity_allocated <= quantity_on_hand RETURNING %s",
		t.table("inventory_items"), strings.Join(set, ", "), inventoryColumns)

	i, err := scanInventoryItem(t.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		// Either the row is gone or the new on-hand quantity would drop
		// below what is already allocated.
		if existing, getErr := t.GetInventoryItem(ctx, id); getErr == nil && existing != nil {
			return nil, fmt.Errorf("%w: on-hand quantity below allocated amount", ErrConflict)
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	return i, nil
}

// TransferInventory moves unallocated stock between two records of the
// same part. Both sides change in one transaction.
func (t *TenantStore) TransferInventory(ctx context.Context, fromID, toID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: transfer quantity must be positive", ErrConflict)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var fromPart, toPart uuid.UUID
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT part_id FROM %s WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		t.table("inventory_items")), fromID).Scan(&fromPart)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: source inventory item", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock source item: %w", err)
	}
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT part_id FROM %s WHERE id = $1 AND deleted_at IS NULL FOR UPDATE",
		t.table("inventory_items")), toID).Scan(&toPart)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: destination inventory item", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock destination item: %w", err)
	}
	if fromPart != toPart {
		return fmt.Errorf("%w: records hold different parts", ErrConflict)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET quantity_on_hand = quantity_on_hand - $2, updated_at = NOW()
		 WHERE id = $1 AND quantity_on_hand - quantity_allocated >= $2`,
		t.table("inventory_items")), fromID, quantity)
	if err != nil {
		return fmt.Errorf("debit source item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: source cannot cover %d units", ErrInsufficientInventory, quantity)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW() WHERE id = $1",
		t.table("inventory_items")), toID, quantity); err != nil {
		return fmt.Errorf("credit destination item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}

// AllocateToJob reserves stock for a job and records a part line. The
// reservation is a single conditional update, so two concurrent
// allocations can never oversubscribe the same record. On-hand
// quantity is untouched until the part is consumed; only the allocated
// counter moves.
func (t *TenantStore) AllocateToJob(ctx context.Context, itemID, jobID uuid.UUID, quantity int) (*models.JobPart, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: allocation quantity must be positive", ErrConflict)
	}

	job, err := t.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: job", ErrNotFound)
		}
		return nil, err
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return nil, fmt.Errorf("%w: job is %s", ErrConflict, job.Status)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin allocate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var partID uuid.UUID
	err = tx.QueryRow(ctx, fmt.Sprintf(
		`UPDATE %s SET quantity_allocated = quantity_allocated + $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL
		   AND quantity_on_hand - quantity_allocated >= $2
		 RETURNING part_id`, t.table("inventory_items")), itemID, quantity).Scan(&partID)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := t.GetInventoryItem(ctx, itemID); errors.Is(getErr, ErrNotFound) {
			return nil, fmt.Errorf("%w: inventory item", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %d requested", ErrInsufficientInventory, quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("allocate inventory: %w", err)
	}

	var unitCost, unitPrice float64
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT default_cost, default_price FROM %s WHERE id = $1", t.table("parts")),
		partID).Scan(&unitCost, &unitPrice)
	if err != nil {
		return nil, fmt.Errorf("load part pricing: %w", err)
	}

	jp := &models.JobPart{
		JobID:           jobID,
		PartID:          partID,
		InventoryItemID: &itemID,
		Quantity:        quantity,
		UnitCost:        unitCost,
		UnitPrice:       unitPrice,
		Subtotal:        pricing.LineSubtotal(unitPrice, quantity),
	}
	err = tx.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (job_id, part_id, inventory_item_id, quantity, unit_cost, unit_price, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, is_customer_supplied, created_at, updated_at`, t.table("job_parts")),
		jp.JobID, jp.PartID, jp.InventoryItemID, jp.Quantity, jp.UnitCost, jp.UnitPrice, jp.Subtotal,
	).Scan(&jp.ID, &jp.IsCustomerSupplied, &jp.CreatedAt, &jp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("record job part: %w", err)
	}

	if err := t.recomputeJobPartsTotal(ctx, tx, jobID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit allocate tx: %w", err)
	}
	return jp, nil
}

// DeallocateFromJob releases a reservation: the part line is removed
// and the allocated counter decremented by the same quantity, so total
// stock is conserved.
func (t *TenantStore) DeallocateFromJob(ctx context.Context, jobPartID uuid.UUID) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin deallocate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var jobID uuid.UUID
	var itemID *uuid.UUID
	var quantity int
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT job_id, inventory_item_id, quantity FROM %s WHERE id = $1", t.table("job_parts")),
		jobPartID).Scan(&jobID, &itemID, &quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: job part", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load job part: %w", err)
	}

	if itemID != nil {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET quantity_allocated = GREATEST(quantity_allocated - $2, 0), updated_at = NOW()
			 WHERE id = $1`, t.table("inventory_items")), *itemID, quantity); err != nil {
			return fmt.Errorf("release allocation: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1", t.table("job_parts")), jobPartID); err != nil {
		return fmt.Errorf("remove job part: %w", err)
	}

	if err := t.recomputeJobPartsTotal(ctx, tx, jobID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit deallocate tx: %w", err)
	}
	return nil
}

// recomputeJobPartsTotal refreshes a job's parts_total from its part
// lines and reprices the job total inside the caller's transaction.
func (t *TenantStore) recomputeJobPartsTotal(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error {
	var partsTotal float64
	err := tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT COALESCE(SUM(subtotal), 0) FROM %s WHERE job_id = $1", t.table("job_parts")),
		jobID).Scan(&partsTotal)
	if err != nil {
		return fmt.Errorf("sum job parts: %w", err)
	}

	var laborMinutes, laborRate, taxRate, discount float64
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT labor_minutes, labor_rate, tax_rate, discount_amount FROM %s WHERE id = $1",
		t.table("jobs")), jobID).Scan(&laborMinutes, &laborRate, &taxRate, &discount)
	if err != nil {
		return fmt.Errorf("load job pricing inputs: %w", err)
	}

	total := pricing.Total(pricing.JobInputs{
		LaborMinutes:   laborMinutes,
		LaborRate:      laborRate,
		PartsTotal:     partsTotal,
		TaxRate:        taxRate,
		DiscountAmount: discount,
	})

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET parts_total = $2, total = $3, updated_at = NOW() WHERE id = $1",
		t.table("jobs")), jobID, partsTotal, total); err != nil {
		return fmt.Errorf("reprice job: %w", err)
	}
	return nil
}

// SoftDeleteInventory removes a stock record. Records with an active
// allocation are protected.
func (t *TenantStore) SoftDeleteInventory(ctx context.Context, id uuid.UUID) error {
	existing, err := t.GetInventoryItem(ctx, id)
	if err != nil {
		return err
	}
	if existing.QuantityAllocated > 0 {
		return fmt.Errorf("%w: %d units still allocated to jobs", ErrConflict, existing.QuantityAllocated)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL AND quantity_allocated = 0",
		t.table("inventory_items")), id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
