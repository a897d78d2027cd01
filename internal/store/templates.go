package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/curbsidehq/curbside/pkg/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, name, slug, description, category, default_labor_minutes,
	default_labor_rate, default_parts_markup_percent, steps, required_parts,
	checklist_items, is_active, is_global, created_at, updated_at, deleted_at`

func scanTemplate(row pgx.Row) (*models.JobTemplate, error) {
	var tpl models.JobTemplate
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Slug, &tpl.Description, &tpl.Category,
		&tpl.DefaultLaborMinutes, &tpl.DefaultLaborRate, &tpl.DefaultPartsMarkupPercent,
		&tpl.Steps, &tpl.RequiredParts, &tpl.ChecklistItems, &tpl.IsActive, &tpl.IsGlobal,
		&tpl.CreatedAt, &tpl.UpdatedAt, &tpl.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

type TemplateFilter struct {
	Category string
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}

func (t *TenantStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]*models.JobTemplate, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *filter.IsActive)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("job_templates"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY name LIMIT $%d OFFSET $%d",
		templateColumns, t.table("job_templates"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.JobTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, total, rows.Err()
}

func (t *TenantStore) GetTemplate(ctx context.Context, id uuid.UUID) (*models.JobTemplate, error) {
	tpl, err := scanTemplate(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		templateColumns, t.table("job_templates")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tpl, err
}

func (t *TenantStore) CreateTemplate(ctx context.Context, tpl *models.JobTemplate) error {
	if tpl.Steps == nil {
		tpl.Steps = json.RawMessage("[]")
	}
	if tpl.RequiredParts == nil {
		tpl.RequiredParts = json.RawMessage("[]")
	}
	if tpl.ChecklistItems == nil {
		tpl.ChecklistItems = json.RawMessage("[]")
	}

	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (name, slug, description, category, default_labor_minutes,
			default_labor_rate, default_parts_markup_percent, steps, required_parts,
			checklist_items, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, is_global, created_at, updated_at`, t.table("job_templates")),
		tpl.Name, tpl.Slug, tpl.Description, tpl.Category, tpl.DefaultLaborMinutes,
		tpl.DefaultLaborRate, tpl.DefaultPartsMarkupPercent, tpl.Steps, tpl.RequiredParts,
		tpl.ChecklistItems, tpl.IsActive,
	).Scan(&tpl.ID, &tpl.IsGlobal, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: template slug already in use", ErrDuplicateKey)
		}
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

type TemplateUpdate struct {
	Name                      *string
	Description               *string
	Category                  *string
	DefaultLaborMinutes       *float64
	DefaultLaborRate          *float64
	DefaultPartsMarkupPercent *float64
	Steps                     json.RawMessage
	RequiredParts             json.RawMessage
	ChecklistItems            json.RawMessage
	IsActive                  *bool
}

// UpdateTemplate edits a template in place. Jobs already spawned keep
// their snapshot; only future spawns see the new content. Global
// templates are read-only.
func (t *TenantStore) UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateUpdate) (*models.JobTemplate, error) {
	existing, err := t.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsGlobal {
		return nil, fmt.Errorf("%w: global templates cannot be modified", ErrConflict)
	}

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
	if in.DefaultLaborMinutes != nil {
		add("default_labor_minutes", *in.DefaultLaborMinutes)
	}
	if in.DefaultLaborRate != nil {
		add("default_labor_rate", *in.DefaultLaborRate)
	}
	if in.DefaultPartsMarkupPercent != nil {
		add("default_parts_markup_percent", *in.DefaultPartsMarkupPercent)
	}
	if in.Steps != nil {
		add("steps", in.Steps)
	}
	if in.RequiredParts != nil {
		add("required_parts", in.RequiredParts)
	}
	if in.ChecklistItems != nil {
		add("checklist_items", in.ChecklistItems)
	}
	if in.IsActive != nil {
		add("is_active", *in.IsActive)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("job_templates"), strings.Join(set, ", "), templateColumns)

	tpl, err := scanTemplate(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tpl, err
}

func (t *TenantStore) SoftDeleteTemplate(ctx context.Context, id uuid.UUID) error {
	existing, err := t.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsGlobal {
		return fmt.Errorf("%w: global templates cannot be deleted", ErrConflict)
	}

	tag, err := t.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		t.table("job_templates")), id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SpawnInput carries per-job overrides for SpawnJobFromTemplate.
type SpawnInput struct {
	CustomerID     uuid.UUID
	VehicleID      uuid.UUID
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	Notes          *string
}

// SpawnJobFromTemplate creates a job prefilled from a template. The
// template's content is copied into the job's snapshot as it exists
// right now, so later template edits never change the job.
func (t *TenantStore) SpawnJobFromTemplate(ctx context.Context, templateID uuid.UUID, in SpawnInput) (*models.Job, error) {
	tpl, err := t.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive {
		return nil, fmt.Errorf("%w: template is inactive", ErrConflict)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin spawn tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerExists bool
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND deleted_at IS NULL)",
		t.table("customers")), in.CustomerID).Scan(&customerExists)
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !customerExists {
		return nil, fmt.Errorf("%w: customer", ErrNotFound)
	}

	var vehicleBelongs bool
	err = tx.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND customer_id = $2 AND deleted_at IS NULL)",
		t.table("vehicles")), in.VehicleID, in.CustomerID).Scan(&vehicleBelongs)
	if err != nil {
		return nil, fmt.Errorf("check vehicle ownership: %w", err)
	}
	if !vehicleBelongs {
		return nil, fmt.Errorf("%w: vehicle not found for this customer", ErrNotFound)
	}

	jobNumber, err := t.nextJobNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(models.TemplateSnapshot{
		Name:           tpl.Name,
		Steps:          tpl.Steps,
		RequiredParts:  tpl.RequiredParts,
		ChecklistItems: tpl.ChecklistItems,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal template snapshot: %w", err)
	}

	total := pricing.Total(pricing.JobInputs{
		LaborMinutes: tpl.DefaultLaborMinutes,
		LaborRate:    tpl.DefaultLaborRate,
	})
	estimated := int(tpl.DefaultLaborMinutes)

	j, err := scanJob(tx.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (customer_id, vehicle_id, job_template_id, job_number, title, status,
			scheduled_start, scheduled_end, estimated_duration_minutes, labor_minutes,
			labor_rate, total, template_snapshot, notes)
		 VALUES ($1, $2, $3, $4, $5, 'draft', $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING %s`, t.table("jobs"), jobColumns),
		in.CustomerID, in.VehicleID, tpl.ID, jobNumber, tpl.Name,
		in.ScheduledStart, in.ScheduledEnd, estimated, tpl.DefaultLaborMinutes,
		tpl.DefaultLaborRate, total, snapshot, in.Notes))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: job number collision, retry", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("spawn job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit spawn tx: %w", err)
	}
	return j, nil
}

// TemplateUsage reports how many jobs a template has spawned, broken
// down by status, with the mean completion time of finished jobs.
func (t *TenantStore) TemplateUsage(ctx context.Context, templateID uuid.UUID) (*models.TemplateUsageStats, error) {
	tpl, err := t.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	stats := &models.TemplateUsageStats{
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		JobsByStatus: map[string]int{},
	}

	rows, err := t.pool.Query(ctx, fmt.Sprintf(
		"SELECT status, COUNT(*) FROM %s WHERE job_template_id = $1 AND deleted_at IS NULL GROUP BY status",
		t.table("jobs")), templateID)
	if err != nil {
		return nil, fmt.Errorf("template usage counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan usage count: %w", err)
		}
		stats.JobsByStatus[status] = count
		stats.TotalJobs += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg *float64
	err = t.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT AVG(EXTRACT(EPOCH FROM (actual_end - actual_start)) / 60)
		 FROM %s
		 WHERE job_template_id = $1 AND deleted_at IS NULL
		   AND actual_start IS NOT NULL AND actual_end IS NOT NULL`,
		t.table("jobs")), templateID).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("template avg completion: %w", err)
	}
	if avg != nil {
		minutes := int(*avg)
		stats.AvgCompletionMinutes = &minutes
	}
	return stats, nil
}
