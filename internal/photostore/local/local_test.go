package local

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/applicheck/internal/photostore"
)

func TestStoreSaveAndGet(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake png data")

	key, err := store.Save(ctx, "app-1", "image/png", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestStoreDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key, err := store.Save(ctx, "app-1", "image/jpeg", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), photostore.ErrNotFound)
}

func TestStorePathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, photostore.ErrNotFound)
	assert.Error(t, store.Delete(ctx, "../outside.jpg"))
}
