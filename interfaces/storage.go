package interfaces

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DocumentStore provides revisioned document storage with optimistic
// concurrency. The store never locks: concurrent writers are serialized by
// the compare-and-swap contract on Write, and conflicts are resolved by the
// caller re-reading and re-applying its change.
type DocumentStore interface {
	// Read retrieves a document and its current revision token.
	// Returns ErrDocumentNotFound if the document does not exist and
	// ErrStoreUnavailable on transport or parse failure.
	Read(ctx context.Context, path string) (Document, error)

	// Write replaces a document's content. expectedRevision must be the
	// token returned by the most recent Read of the same path; if it no
	// longer matches the store's current revision the write fails with
	// ErrRevisionConflict and nothing is applied. An empty expectedRevision
	// creates the document and fails with ErrRevisionConflict if it already
	// exists. The message describes the change for version-controlled
	// backends; others ignore it.
	Write(ctx context.Context, path string, content []byte, expectedRevision RevisionToken, message string) (RevisionToken, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this store.
	LocationURI() string
}

// DocumentStoreFactory creates document stores from location URIs.
type DocumentStoreFactory interface {
	// StoreFor creates a document store from a URI.
	// Supports github://, vault://, nats://, file:// and memory://.
	StoreFor(location StoreLocation) (DocumentStore, error)
}

// StoreLocation represents a parsed document store URI.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStoreLocation creates a store location from a URI string with
// validation.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("invalid URI format: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "github", "vault", "nats", "file", "memory":
	default:
		return StoreLocation{}, fmt.Errorf("unsupported store scheme: %s", parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}
