package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ArtifactTypePhoto      = "photo"
	ArtifactTypeVideo      = "video"
	ArtifactTypeInspection = "inspection"
	ArtifactTypeSummary    = "summary"
)

// ValidArtifactType reports whether s is one of the known artifact types.
func ValidArtifactType(s string) bool {
	switch s {
	case ArtifactTypePhoto, ArtifactTypeVideo, ArtifactTypeInspection, ArtifactTypeSummary:
		return true
	}
	return false
}

// TrustArtifact is a stored media or document file evidencing work
// performed: before/after photos, inspection reports, video summaries.
// The file itself lives in blob storage under a tenant-prefixed key.
type TrustArtifact struct {
	ID             uuid.UUID       `db:"id"               json:"id"`
	JobID          *uuid.UUID      `db:"job_id"           json:"job_id,omitempty"`
	VehicleID      *uuid.UUID      `db:"vehicle_id"       json:"vehicle_id,omitempty"`
	Type           string          `db:"type"             json:"type"`
	Title          *string         `db:"title"            json:"title,omitempty"`
	Description    *string         `db:"description"      json:"description,omitempty"`
	FileURL        *string         `db:"file_url"         json:"file_url,omitempty"`
	BlobName       *string         `db:"blob_name"        json:"-"`
	MimeType       *string         `db:"mime_type"        json:"mime_type,omitempty"`
	FileSize       int64           `db:"file_size"        json:"file_size"`
	InspectionData json.RawMessage `db:"inspection_data"  json:"inspection_data"`
	CapturedAt     time.Time       `db:"captured_at"      json:"captured_at"`
	CapturedBy     *uuid.UUID      `db:"captured_by"      json:"captured_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at"       json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"       json:"updated_at"`
	DeletedAt      *time.Time      `db:"deleted_at"       json:"-"`
}
