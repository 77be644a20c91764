package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	return store
}

func TestFileStoreRoundtrip(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	revision, err := store.Write(ctx, "documents/legal/nda/README.md", []byte("# NDA"), "", "create")
	require.NoError(t, err)

	doc, err := store.Read(ctx, "documents/legal/nda/README.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("# NDA"), doc.Content)
	assert.Equal(t, revision, doc.Revision)
}

func TestFileStoreRevisionCheck(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	first, err := store.Write(ctx, "documents/a", []byte("v1"), "", "create")
	require.NoError(t, err)

	_, err = store.Write(ctx, "documents/a", []byte("v2"), first, "update")
	require.NoError(t, err)

	_, err = store.Write(ctx, "documents/a", []byte("v3"), first, "stale")
	require.ErrorIs(t, err, interfaces.ErrRevisionConflict)

	doc, err := store.Read(ctx, "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), doc.Content)
}

func TestFileStoreReadMissing(t *testing.T) {
	store := newTestFileStore(t)

	_, err := store.Read(context.Background(), "documents/missing")
	require.ErrorIs(t, err, interfaces.ErrDocumentNotFound)
}

func TestFileStoreRejectsEscapingPaths(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	for _, path := range []string{"../outside", "a/../../outside", "/etc/passwd"} {
		_, err := store.Read(ctx, path)
		require.Error(t, err, "path %q must be rejected", path)

		_, err = store.Write(ctx, path, []byte("x"), "", "create")
		require.Error(t, err, "path %q must be rejected", path)
	}
}
