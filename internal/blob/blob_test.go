package blob_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/curbsidehq/curbside/internal/blob"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_TenantPrefixAndExtension(t *testing.T) {
	tenantID := uuid.New()
	key := blob.Key(tenantID, "Before Photo.JPG")

	assert.True(t, strings.HasPrefix(key, "tenant_"+tenantID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestFSStore_UploadOpenDelete(t *testing.T) {
	ctx := context.Background()
	s, err := blob.NewFSStore(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	key := blob.Key(uuid.New(), "photo.jpg")
	url, size, err := s.Upload(ctx, key, strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/"+key, url)
	assert.Equal(t, int64(10), size)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestFSStore_DeleteMissing(t *testing.T) {
	s, err := blob.NewFSStore(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	err = s.Delete(context.Background(), "tenant_x/nope.jpg")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s, err := blob.NewFSStore(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	_, _, err = s.Upload(context.Background(), "../outside.txt", strings.NewReader("x"))
	assert.Error(t, err)
}
