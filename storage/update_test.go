package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateDocument(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("documents/a", []byte("v1"))

	revision, err := UpdateDocument(context.Background(), store, testLogger(), "documents/a", "update", func(current []byte) ([]byte, error) {
		assert.Equal(t, []byte("v1"), current)
		return []byte("v2"), nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, revision)

	doc, err := store.Read(context.Background(), "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), doc.Content)
	assert.Equal(t, revision, doc.Revision)
}

func TestUpdateDocumentRetriesOnConflict(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("documents/a", []byte("v1"))

	// One contending write: the first attempt conflicts, the second sees
	// the contending content.
	store.SetWriteHook(func(path string) {
		store.Seed("documents/a", []byte("contending"))
	})

	seen := [][]byte{}
	_, err := UpdateDocument(context.Background(), store, testLogger(), "documents/a", "update", func(current []byte) ([]byte, error) {
		seen = append(seen, current)
		return append([]byte("updated-from-"), current...), nil
	})
	require.NoError(t, err)

	// The mutator ran once per attempt, against fresh content each time.
	require.Len(t, seen, 2)
	assert.Equal(t, []byte("v1"), seen[0])
	assert.Equal(t, []byte("contending"), seen[1])

	doc, err := store.Read(context.Background(), "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated-from-contending"), doc.Content)
}

func TestUpdateDocumentConflictExhaustion(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("documents/a", []byte("v1"))

	var hook func(path string)
	hook = func(path string) {
		store.Seed("documents/a", []byte("contending"))
		store.SetWriteHook(hook)
	}
	store.SetWriteHook(hook)

	attempts := 0
	_, err := UpdateDocument(context.Background(), store, testLogger(), "documents/a", "update", func(current []byte) ([]byte, error) {
		attempts++
		return []byte("next"), nil
	})
	require.Error(t, err)
	assert.Equal(t, interfaces.KindConflict, interfaces.KindOf(err))
	assert.Equal(t, DefaultUpdateAttempts, attempts)
}

func TestUpdateDocumentMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := UpdateDocument(context.Background(), store, testLogger(), "documents/missing", "update", func(current []byte) ([]byte, error) {
		t.Fatal("mutator must not run for a missing document")
		return nil, nil
	})
	require.ErrorIs(t, err, interfaces.ErrDocumentNotFound)
}

func TestUpdateDocumentMutatorError(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("documents/a", []byte("v1"))

	mutatorErr := errors.New("cannot compute replacement")
	_, err := UpdateDocument(context.Background(), store, testLogger(), "documents/a", "update", func(current []byte) ([]byte, error) {
		return nil, mutatorErr
	})
	require.ErrorIs(t, err, mutatorErr)

	// No write happened.
	doc, err := store.Read(context.Background(), "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), doc.Content)
}

func TestReadDocument(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("documents/a", []byte("v1"))

	doc, err := ReadDocument(context.Background(), store, "documents/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), doc.Content)

	_, err = ReadDocument(context.Background(), store, "documents/missing")
	require.ErrorIs(t, err, interfaces.ErrDocumentNotFound)
}
