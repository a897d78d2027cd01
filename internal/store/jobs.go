package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/curbsidehq/curbside/pkg/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, customer_id, vehicle_id, job_template_id, assigned_mechanic_id,
	job_number, title, description, status, scheduled_start, scheduled_end, actual_start,
	actual_end, estimated_duration_minutes, service_location_address, service_location_lat,
	service_location_lng, labor_minutes, labor_rate, parts_total, tax_rate, discount_amount,
	total, template_snapshot, completed_steps, checklist_results, notes,
	created_at, updated_at, deleted_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.CustomerID, &j.VehicleID, &j.JobTemplateID, &j.AssignedMechanicID,
		&j.JobNumber, &j.Title, &j.Description, &j.Status, &j.ScheduledStart, &j.ScheduledEnd,
		&j.ActualStart, &j.ActualEnd, &j.EstimatedDurationMinutes, &j.ServiceLocationAddress,
		&j.ServiceLocationLat, &j.ServiceLocationLng, &j.LaborMinutes, &j.LaborRate,
		&j.PartsTotal, &j.TaxRate, &j.DiscountAmount, &j.Total, &j.TemplateSnapshot,
		&j.CompletedSteps, &j.ChecklistResults, &j.Notes, &j.CreatedAt, &j.UpdatedAt, &j.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type JobFilter struct {
	CustomerID         uuid.UUID
	VehicleID          uuid.UUID
	Statuses           []string
	AssignedMechanicID uuid.UUID
	ScheduledAfter     time.Time
	ScheduledBefore    time.Time
	Search             string
	Limit              int
	Offset             int
}

func (t *TenantStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.CustomerID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argIdx))
		args = append(args, filter.CustomerID)
		argIdx++
	}
	if filter.VehicleID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", argIdx))
		args = append(args, filter.VehicleID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIdx))
		args = append(args, filter.Statuses)
		argIdx++
	}
	if filter.AssignedMechanicID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("assigned_mechanic_id = $%d", argIdx))
		args = append(args, filter.AssignedMechanicID)
		argIdx++
	}
	if !filter.ScheduledAfter.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_start >= $%d", argIdx))
		args = append(args, filter.ScheduledAfter)
		argIdx++
	}
	if !filter.ScheduledBefore.IsZero() {
		conditions = append(conditions, fmt.Sprintf("scheduled_start <= $%d", argIdx))
		args = append(args, filter.ScheduledBefore)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(job_number ILIKE $%d OR title ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("jobs"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		jobColumns, t.table("jobs"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (t *TenantStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		jobColumns, t.table("jobs")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, err
}

// nextJobNumber produces JOB-YYYYMMDD-NNNN with a per-day sequence.
// The count is not locked; a concurrent collision hits the unique
// constraint on job_number and surfaces as a duplicate-key error.
func (t *TenantStore) nextJobNumber(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}) (string, error) {
	dateStr := time.Now().UTC().Format("20060102")

	var count int
	err := q.QueryRow(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE job_number LIKE $1", t.table("jobs")),
		"JOB-"+dateStr+"-%").Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count jobs for number: %w", err)
	}
	return fmt.Sprintf("JOB-%s-%04d", dateStr, count+1), nil
}

// CreateJob validates the customer/vehicle pair, assigns a job number,
// computes the total, and inserts the job.
func (t *TenantStore) CreateJob(ctx context.Context, j *models.Job) error {
	if _, err := t.GetCustomer(ctx, j.CustomerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: customer", ErrNotFound)
		}
		return err
	}

	var belongs bool
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND customer_id = $2 AND deleted_at IS NULL)",
		t.table("vehicles")), j.VehicleID, j.CustomerID).Scan(&belongs)
	if err != nil {
		return fmt.Errorf("check vehicle ownership: %w", err)
	}
	if !belongs {
		return fmt.Errorf("%w: vehicle not found for this customer", ErrNotFound)
	}

	jobNumber, err := t.nextJobNumber(ctx, t.pool)
	if err != nil {
		return err
	}
	j.JobNumber = jobNumber

	if j.Status == "" {
		j.Status = models.JobStatusDraft
	}
	j.Total = pricing.Total(pricing.JobInputs{
		LaborMinutes:   j.LaborMinutes,
		LaborRate:      j.LaborRate,
		PartsTotal:     j.PartsTotal,
		TaxRate:        j.TaxRate,
		DiscountAmount: j.DiscountAmount,
	})

	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (customer_id, vehicle_id, job_template_id, assigned_mechanic_id,
			job_number, title, description, status, scheduled_start, scheduled_end,
			estimated_duration_minutes, service_location_address, service_location_lat,
			service_location_lng, labor_minutes, labor_rate, parts_total, tax_rate,
			discount_amount, total, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		 RETURNING id, template_snapshot, completed_steps, checklist_results, created_at, updated_at`,
		t.table("jobs")),
		j.CustomerID, j.VehicleID, j.JobTemplateID, j.AssignedMechanicID, j.JobNumber,
		j.Title, j.Description, j.Status, j.ScheduledStart, j.ScheduledEnd,
		j.EstimatedDurationMinutes, j.ServiceLocationAddress, j.ServiceLocationLat,
		j.ServiceLocationLng, j.LaborMinutes, j.LaborRate, j.PartsTotal, j.TaxRate,
		j.DiscountAmount, j.Total, j.Notes,
	).Scan(&j.ID, &j.TemplateSnapshot, &j.CompletedSteps, &j.ChecklistResults, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: job number collision, retry", ErrDuplicateKey)
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

type JobUpdate struct {
	AssignedMechanicID       *uuid.UUID
	Title                    *string
	Description              *string
	ScheduledStart           *time.Time
	ScheduledEnd             *time.Time
	EstimatedDurationMinutes *int
	ServiceLocationAddress   *string
	ServiceLocationLat       *float64
	ServiceLocationLng       *float64
	LaborMinutes             *float64
	LaborRate                *float64
	PartsTotal               *float64
	TaxRate                  *float64
	DiscountAmount           *float64
	Notes                    *string
}

func (u JobUpdate) touchesPricing() bool {
	return u.LaborMinutes != nil || u.LaborRate != nil || u.PartsTotal != nil ||
		u.TaxRate != nil || u.DiscountAmount != nil
}

// UpdateJob applies field changes and recomputes the total whenever any
// pricing input changed.
func (t *TenantStore) UpdateJob(ctx context.Context, id uuid.UUID, in JobUpdate) (*models.Job, error) {
	existing, err := t.GetJob(ctx, id)
	if err != nil {
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

	if in.AssignedMechanicID != nil {
		add("assigned_mechanic_id", *in.AssignedMechanicID)
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.ScheduledStart != nil {
		add("scheduled_start", *in.ScheduledStart)
	}
	if in.ScheduledEnd != nil {
		add("scheduled_end", *in.ScheduledEnd)
	}
	if in.EstimatedDurationMinutes != nil {
		add("estimated_duration_minutes", *in.EstimatedDurationMinutes)
	}
	if in.ServiceLocationAddress != nil {
		add("service_location_address", *in.ServiceLocationAddress)
	}
	if in.ServiceLocationLat != nil {
		add("service_location_lat", *in.ServiceLocationLat)
	}
	if in.ServiceLocationLng != nil {
		add("service_location_lng", *in.ServiceLocationLng)
	}
	if in.LaborMinutes != nil {
		add("labor_minutes", *in.LaborMinutes)
	}
	if in.LaborRate != nil {
		add("labor_rate", *in.LaborRate)
	}
	if in.PartsTotal != nil {
		add("parts_total", *in.PartsTotal)
	}
	if in.TaxRate != nil {
		add("tax_rate", *in.TaxRate)
	}
	if in.DiscountAmount != nil {
		add("discount_amount", *in.DiscountAmount)
	}
	if in.Notes != nil {
		add("notes", *in.Notes)
	}

	if in.touchesPricing() {
		inputs := pricing.JobInputs{
			LaborMinutes:   existing.LaborMinutes,
			LaborRate:      existing.LaborRate,
			PartsTotal:     existing.PartsTotal,
			TaxRate:        existing.TaxRate,
			DiscountAmount: existing.DiscountAmount,
		}
		if in.LaborMinutes != nil {
			inputs.LaborMinutes = *in.LaborMinutes
		}
		if in.LaborRate != nil {
			inputs.LaborRate = *in.LaborRate
		}
		if in.PartsTotal != nil {
			inputs.PartsTotal = *in.PartsTotal
		}
		if in.TaxRate != nil {
			inputs.TaxRate = *in.TaxRate
		}
		if in.DiscountAmount != nil {
			inputs.DiscountAmount = *in.DiscountAmount
		}
		add("total", pricing.Total(inputs))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("jobs"), strings.Join(set, ", "), jobColumns)

	j, err := scanJob(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return j, err
}

// UpdateJobStatus moves a job to a new status, stamping actual_start on
// the first transition to in_progress and actual_end on completion.
func (t *TenantStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string) (*models.Job, error) {
	existing, err := t.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	set := []string{"status = $2", "updated_at = NOW()"}
	args := []any{id, status}

	if status == models.JobStatusInProgress && existing.ActualStart == nil {
		set = append(set, "actual_start = NOW()")
	}
	if status == models.JobStatusCompleted && existing.ActualEnd == nil {
		set = append(set, "actual_end = NOW()")
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("jobs"), strings.Join(set, ", "), jobColumns)

	j, err := scanJob(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	return j, err
}

// SoftDeleteJob marks a job deleted. Completed jobs cannot be deleted;
// cancel them instead so the work history stays intact.
func (t *TenantStore) SoftDeleteJob(ctx context.Context, id uuid.UUID) error {
	existing, err := t.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == models.JobStatusCompleted {
		return fmt.Errorf("%w: completed jobs cannot be deleted, cancel instead", ErrConflict)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		t.table("jobs")), id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobParts returns the part lines attached to a job.
func (t *TenantStore) ListJobParts(ctx context.Context, jobID uuid.UUID) ([]*models.JobPart, error) {
	rows, err := t.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, job_id, part_id, inventory_item_id, quantity, unit_cost, unit_price,
			subtotal, is_customer_supplied, notes, created_at, updated_at
		 FROM %s WHERE job_id = $1 ORDER BY created_at`, t.table("job_parts")), jobID)
	if err != nil {
		return nil, fmt.Errorf("list job parts: %w", err)
	}
	defer rows.Close()

	var parts []*models.JobPart
	for rows.Next() {
		var p models.JobPart
		if err := rows.Scan(&p.ID, &p.JobID, &p.PartID, &p.InventoryItemID, &p.Quantity,
			&p.UnitCost, &p.UnitPrice, &p.Subtotal, &p.IsCustomerSupplied, &p.Notes,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job part: %w", err)
		}
		parts = append(parts, &p)
	}
	return parts, rows.Err()
}
