package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// Factory creates document stores from location URIs.
type Factory struct {
	log         *slog.Logger
	credentials interfaces.CredentialProvider
}

// NewFactory creates a factory. The credential provider, when set, is used
// by backends that authenticate against an upstream API (currently GitHub).
func NewFactory(log *slog.Logger, credentials interfaces.CredentialProvider) *Factory {
	return &Factory{log: log, credentials: credentials}
}

// StoreFor creates a document store from a location URI.
//
// Supported schemes:
//   - github://owner/repo[?branch=main] - GitHub contents API
//   - vault://host:port/mount/path[?token=...] - Vault KV v2
//   - nats://host:port/bucket - NATS JetStream KV
//   - file:///absolute/path - local filesystem
//   - memory:// - in-process store
func (f *Factory) StoreFor(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	switch location.Scheme {
	case "github":
		return f.createGitHubStore(location)
	case "vault":
		return f.createVaultStore(location)
	case "nats":
		return f.createNATSStore(location)
	case "file":
		return f.createFileStore(location)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", location.Scheme)
	}
}

// createGitHubStore creates a GitHub-backed store.
// URI format: github://owner/repo?branch=main
func (f *Factory) createGitHubStore(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	f.log.Debug("Creating GitHub store", slog.String("uri", location.Raw))

	owner := location.Host
	repo := strings.Trim(location.Path, "/")
	if owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("invalid GitHub URI format, expected github://owner/repo")
	}

	return NewGitHubStore(owner, repo, location.GetParam("branch"), f.credentials, f.log), nil
}

// createVaultStore creates a Vault KV v2 backed store.
// URI format: vault://host:port/mount/path?token=...&scheme=https
func (f *Factory) createVaultStore(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	f.log.Debug("Creating Vault store", slog.String("uri", location.Raw))

	segments := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if segments[0] == "" {
		return nil, fmt.Errorf("invalid Vault URI format, expected vault://host/mount/path")
	}

	mountPath := segments[0]
	dataPath := ""
	if len(segments) == 2 {
		dataPath = segments[1]
	}

	scheme := location.GetParam("scheme")
	if scheme == "" {
		scheme = "https"
	}

	address := fmt.Sprintf("%s://%s", scheme, location.Host)
	return NewVaultStore(address, mountPath, dataPath, location.GetParam("token"), f.log)
}

// createNATSStore creates a NATS JetStream KV backed store.
// URI format: nats://host:port/bucket
func (f *Factory) createNATSStore(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	f.log.Debug("Creating NATS store", slog.String("uri", location.Raw))

	bucket := strings.Trim(location.Path, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid NATS URI format, expected nats://host/bucket")
	}

	serverURL := fmt.Sprintf("nats://%s", location.Host)
	return NewNATSStore(context.Background(), serverURL, bucket, f.log)
}

// createFileStore creates a filesystem-backed store.
// URI format: file:///absolute/path or file://./relative/path
func (f *Factory) createFileStore(location interfaces.StoreLocation) (interfaces.DocumentStore, error) {
	f.log.Debug("Creating file store", slog.String("uri", location.Raw))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", location.Raw)
	}

	return NewFileStore(path, f.log)
}
