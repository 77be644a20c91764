package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

func TestFactoryMemoryStore(t *testing.T) {
	factory := NewFactory(testLogger(), nil)

	location, err := interfaces.NewStoreLocation("memory://")
	require.NoError(t, err)

	store, err := factory.StoreFor(location)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())
}

func TestFactoryFileStore(t *testing.T) {
	factory := NewFactory(testLogger(), nil)

	location, err := interfaces.NewStoreLocation(fmt.Sprintf("file://%s", t.TempDir()))
	require.NoError(t, err)

	store, err := factory.StoreFor(location)
	require.NoError(t, err)
	assert.True(t, store.Available(context.Background()))
}

func TestFactoryGitHubStore(t *testing.T) {
	factory := NewFactory(testLogger(), &staticCredentials{token: "t"})

	location, err := interfaces.NewStoreLocation("github://acme/agreements?branch=main")
	require.NoError(t, err)

	store, err := factory.StoreFor(location)
	require.NoError(t, err)
	assert.Equal(t, "github-acme-agreements", store.Name())
	assert.Equal(t, "github://acme/agreements", store.LocationURI())
}

func TestFactoryInvalidGitHubURI(t *testing.T) {
	factory := NewFactory(testLogger(), nil)

	for _, uri := range []string{"github://", "github://owner", "github://owner/repo/extra"} {
		location, err := interfaces.NewStoreLocation(uri)
		require.NoError(t, err)

		_, err = factory.StoreFor(location)
		require.Error(t, err, "uri %q must be rejected", uri)
	}
}

func TestStoreLocationRejectsUnknownScheme(t *testing.T) {
	_, err := interfaces.NewStoreLocation("ftp://host/path")
	require.Error(t, err)
}
