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

const artifactColumns = `id, job_id, vehicle_id, type, title, description, file_url,
	blob_name, mime_type, file_size, inspection_data, captured_at, captured_by,
	created_at, updated_at, deleted_at`

func scanArtifact(row pgx.Row) (*models.TrustArtifact, error) {
	var a models.TrustArtifact
	err := row.Scan(&a.ID, &a.JobID, &a.VehicleID, &a.Type, &a.Title, &a.Description,
		&a.FileURL, &a.BlobName, &a.MimeType, &a.FileSize, &a.InspectionData,
		&a.CapturedAt, &a.CapturedBy, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type ArtifactFilter struct {
	JobID     uuid.UUID
	VehicleID uuid.UUID
	Type      string
	Limit     int
	Offset    int
}

func (t *TenantStore) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*models.TrustArtifact, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}
	argIdx := 1

	if filter.JobID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIdx))
		args = append(args, filter.JobID)
		argIdx++
	}
	if filter.VehicleID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("vehicle_id = $%d", argIdx))
		args = append(args, filter.VehicleID)
		argIdx++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, filter.Type)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.table("trust_artifacts"), where)
	if err := t.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count artifacts: %w", err)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	dataQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY captured_at DESC LIMIT $%d OFFSET $%d",
		artifactColumns, t.table("trust_artifacts"), where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := t.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.TrustArtifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, total, rows.Err()
}

func (t *TenantStore) GetArtifact(ctx context.Context, id uuid.UUID) (*models.TrustArtifact, error) {
	a, err := scanArtifact(t.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = $1 AND deleted_at IS NULL",
		artifactColumns, t.table("trust_artifacts")), id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, err
}

// CreateArtifact records an artifact's metadata. The file has already
// been written to blob storage by the caller; BlobName points at it.
func (t *TenantStore) CreateArtifact(ctx context.Context, a *models.TrustArtifact) error {
	if !models.ValidArtifactType(a.Type) {
		return fmt.Errorf("%w: unknown artifact type %q", ErrConflict, a.Type)
	}
	if a.JobID != nil {
		if _, err := t.GetJob(ctx, *a.JobID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: job", ErrNotFound)
			}
			return err
		}
	}
	if a.VehicleID != nil {
		if _, err := t.GetVehicle(ctx, *a.VehicleID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: vehicle", ErrNotFound)
			}
			return err
		}
	}
	if a.InspectionData == nil {
		a.InspectionData = json.RawMessage("{}")
	}

	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (job_id, vehicle_id, type, title, description, file_url, blob_name,
			mime_type, file_size, inspection_data, captured_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, captured_at, created_at, updated_at`, t.table("trust_artifacts")),
		a.JobID, a.VehicleID, a.Type, a.Title, a.Description, a.FileURL, a.BlobName,
		a.MimeType, a.FileSize, a.InspectionData, a.CapturedBy,
	).Scan(&a.ID, &a.CapturedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	return nil
}

type ArtifactUpdate struct {
	Title          *string
	Description    *string
	InspectionData json.RawMessage
}

// UpdateArtifact edits descriptive metadata only. The stored file and
// its type are immutable; replace the artifact to change them.
func (t *TenantStore) UpdateArtifact(ctx context.Context, id uuid.UUID, in ArtifactUpdate) (*models.TrustArtifact, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.InspectionData != nil {
		add("inspection_data", in.InspectionData)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 AND deleted_at IS NULL RETURNING %s",
		t.table("trust_artifacts"), strings.Join(set, ", "), artifactColumns)

	a, err := scanArtifact(t.pool.QueryRow(ctx, query, args...))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update artifact: %w", err)
	}
	return a, err
}

// SoftDeleteArtifact marks an artifact deleted and returns its blob
// name, if any, so the caller can remove the stored file.
func (t *TenantStore) SoftDeleteArtifact(ctx context.Context, id uuid.UUID) (*string, error) {
	var blobName *string
	err := t.pool.QueryRow(ctx, fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL RETURNING blob_name",
		t.table("trust_artifacts")), id).Scan(&blobName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete artifact: %w", err)
	}
	return blobName, nil
}
