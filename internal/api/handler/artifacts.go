package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/blob"
	"github.com/curbsidehq/curbside/internal/store"
	"github.com/curbsidehq/curbside/pkg/models"
	"github.com/google/uuid"

	mw "github.com/curbsidehq/curbside/internal/api/middleware"
)

// maxArtifactSize bounds multipart parsing; per-type caps below are
// tighter for everything but video.
const maxArtifactSize = 200 << 20

var artifactMimeTypes = map[string]map[string]bool{
	models.ArtifactTypePhoto:      {"image/jpeg": true, "image/png": true, "image/webp": true, "image/heic": true},
	models.ArtifactTypeVideo:      {"video/mp4": true, "video/quicktime": true, "video/webm": true},
	models.ArtifactTypeInspection: {"application/pdf": true, "application/json": true, "image/jpeg": true, "image/png": true},
	models.ArtifactTypeSummary:    {"video/mp4": true, "application/pdf": true, "text/plain": true},
}

var artifactSizeCaps = map[string]int64{
	models.ArtifactTypePhoto:      15 << 20,
	models.ArtifactTypeVideo:      200 << 20,
	models.ArtifactTypeInspection: 25 << 20,
	models.ArtifactTypeSummary:    200 << 20,
}

// NewListArtifactsHandler returns the handler for GET /api/v1/artifacts.
func NewListArtifactsHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}

		filter := store.ArtifactFilter{
			JobID:     queryUUID(r, "job_id"),
			VehicleID: queryUUID(r, "vehicle_id"),
			Type:      r.URL.Query().Get("type"),
			Limit:     queryInt(r, "limit"),
			Offset:    queryInt(r, "offset"),
		}
		artifacts, total, err := ts.ListArtifacts(r.Context(), filter)
		if err != nil {
			storeError(w, err)
			return
		}
		limit, offset := store.NormalizePage(filter.Limit, filter.Offset)
		response.Collection(w, artifacts, response.Paginate(limit, offset, total))
	}
}

// NewGetArtifactHandler returns the handler for GET /api/v1/artifacts/{id}.
func NewGetArtifactHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		artifact, err := ts.GetArtifact(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, artifact)
	}
}

// NewUploadArtifactHandler returns the handler for POST /api/v1/artifacts.
// Expects multipart form data: a "file" part plus metadata fields. The
// file goes to blob storage first; the metadata row points at it.
func NewUploadArtifactHandler(s *store.Store, blobs blob.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		tenantID, _ := mw.GetTenantID(r)

		if err := r.ParseMultipartForm(maxArtifactSize); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed multipart body", nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing file part", nil)
			return
		}
		defer file.Close()

		artifactType := r.FormValue("type")
		if !models.ValidArtifactType(artifactType) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown artifact type", nil)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if base, _, found := strings.Cut(mimeType, ";"); found {
			mimeType = strings.TrimSpace(base)
		}
		if !artifactMimeTypes[artifactType][mimeType] {
			response.Error(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
				fmt.Sprintf("%s not accepted for %s artifacts", mimeType, artifactType), nil)
			return
		}
		if header.Size > artifactSizeCaps[artifactType] {
			response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("File exceeds the %s size cap", artifactType), nil)
			return
		}

		artifact := &models.TrustArtifact{Type: artifactType}
		if raw := r.FormValue("job_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed job_id", nil)
				return
			}
			artifact.JobID = &id
		}
		if raw := r.FormValue("vehicle_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed vehicle_id", nil)
				return
			}
			artifact.VehicleID = &id
		}
		if v := r.FormValue("title"); v != "" {
			artifact.Title = &v
		}
		if v := r.FormValue("description"); v != "" {
			artifact.Description = &v
		}
		if v := r.FormValue("inspection_data"); v != "" {
			if !json.Valid([]byte(v)) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "inspection_data must be valid JSON", nil)
				return
			}
			artifact.InspectionData = json.RawMessage(v)
		}
		if userID, ok := mw.GetUserID(r); ok {
			artifact.CapturedBy = &userID
		}

		key := blob.Key(tenantID, header.Filename)
		url, size, err := blobs.Upload(r.Context(), key, file)
		if err != nil {
			logger.Error("artifact upload failed", "key", key, "error", err)
			response.Error(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Could not store file", nil)
			return
		}

		artifact.FileURL = &url
		artifact.BlobName = &key
		artifact.FileSize = size
		artifact.MimeType = &mimeType

		if err := ts.CreateArtifact(r.Context(), artifact); err != nil {
			// Orphaned blobs are harmless; removing one here keeps
			// storage tidy when the metadata write fails.
			if derr := blobs.Delete(r.Context(), key); derr != nil {
				logger.Warn("orphan blob cleanup failed", "key", key, "error", derr)
			}
			storeError(w, err)
			return
		}
		response.Created(w, artifact)
	}
}

// NewUpdateArtifactHandler returns the handler for PATCH /api/v1/artifacts/{id}.
func NewUpdateArtifactHandler(s *store.Store) http.HandlerFunc {
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
			Title          *string         `json:"title" validate:"omitempty,max=255"`
			Description    *string         `json:"description"`
			InspectionData json.RawMessage `json:"inspection_data"`
		}
		if !decodeValid(w, r, &req) {
			return
		}

		artifact, err := ts.UpdateArtifact(r.Context(), id, store.ArtifactUpdate{
			Title:          req.Title,
			Description:    req.Description,
			InspectionData: req.InspectionData,
		})
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, artifact)
	}
}

// NewDeleteArtifactHandler returns the handler for DELETE /api/v1/artifacts/{id}.
// The metadata row is soft deleted first; blob removal is best effort.
func NewDeleteArtifactHandler(s *store.Store, blobs blob.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, ok := tenantScope(w, r, s)
		if !ok {
			return
		}
		id, ok := urlID(w, r)
		if !ok {
			return
		}

		blobName, err := ts.SoftDeleteArtifact(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if blobName != nil {
			if err := blobs.Delete(r.Context(), *blobName); err != nil {
				logger.Warn("artifact blob delete failed", "key", *blobName, "error", err)
			}
		}
		response.NoContent(w)
	}
}
