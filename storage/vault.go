package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// VaultStore implements a document store backed by HashiCorp Vault's KV v2
// secrets engine. KV v2 versions every secret and supports check-and-set
// natively: the secret version is the revision token and writes carry it in
// the cas option, so a stale token is rejected by Vault itself.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed document store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path prefix within the mount (e.g. "agreements")
//   - token: Vault client token
//   - log: structured logger
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Read retrieves a document and its KV version from Vault.
func (s *VaultStore) Read(ctx context.Context, path string) (interfaces.Document, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath(path))
	if err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return interfaces.Document{}, interfaces.ErrDocumentNotFound
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// A nil data field with present metadata means the version was
		// deleted.
		return interfaces.Document{}, interfaces.ErrDocumentNotFound
	}

	encoded, ok := data["content"].(string)
	if !ok {
		return interfaces.Document{}, fmt.Errorf("%w: content key missing in Vault data", interfaces.ErrStoreUnavailable)
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: failed to decode Vault content: %v", interfaces.ErrStoreUnavailable, err)
	}

	version, err := vaultVersion(secret.Data["metadata"])
	if err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Read document from Vault",
		slog.String("path", path),
		slog.Int64("version", version))

	return interfaces.Document{
		Content:  content,
		Revision: interfaces.RevisionToken(strconv.FormatInt(version, 10)),
	}, nil
}

// Write replaces a document using Vault's check-and-set. An empty expected
// revision writes with cas=0, which Vault only accepts for a secret that
// does not exist yet.
func (s *VaultStore) Write(ctx context.Context, path string, content []byte, expectedRevision interfaces.RevisionToken, message string) (interfaces.RevisionToken, error) {
	cas := int64(0)
	if expectedRevision != "" {
		parsed, err := strconv.ParseInt(expectedRevision.String(), 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid revision token %q: %w", expectedRevision, err)
		}
		cas = parsed
	}

	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(content),
			"message": message,
		},
		"options": map[string]interface{}{
			"cas": cas,
		},
	}

	secret, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(path), payload)
	if err != nil {
		if isVaultCASFailure(err) {
			s.log.Debug("Revision conflict on Vault write",
				slog.String("path", path),
				slog.String("expectedRevision", expectedRevision.String()))
			return "", interfaces.ErrRevisionConflict
		}
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: empty response from Vault write", interfaces.ErrStoreUnavailable)
	}

	version, err := vaultVersion(secret.Data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	return interfaces.RevisionToken(strconv.FormatInt(version, 10)), nil
}

// Available checks if Vault is reachable and unsealed.
func (s *VaultStore) Available(ctx context.Context) bool {
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		s.log.Debug("Vault store unavailable", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s", s.mountPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

// secretPath builds the KV v2 data path for a document path.
func (s *VaultStore) secretPath(path string) string {
	if s.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", s.mountPath, path)
	}
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, path)
}

// vaultVersion extracts the version number from KV v2 metadata, which
// arrives as either a nested metadata map or the write response data.
func vaultVersion(raw interface{}) (int64, error) {
	meta, ok := raw.(map[string]interface{})
	if !ok {
		return 0, errors.New("missing metadata in Vault response")
	}

	switch v := meta["version"].(type) {
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	default:
		return 0, errors.New("missing version in Vault metadata")
	}
}

// isVaultCASFailure reports whether a write error is KV v2's check-and-set
// rejection, which Vault surfaces as a 400 with a fixed message.
func isVaultCASFailure(err error) bool {
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}

	if respErr.StatusCode != http.StatusBadRequest {
		return false
	}

	for _, msg := range respErr.Errors {
		if strings.Contains(msg, "check-and-set") {
			return true
		}
	}
	return false
}
