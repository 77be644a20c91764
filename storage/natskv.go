package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// NATSStore implements a document store backed by a NATS JetStream
// key-value bucket. JetStream tracks a revision sequence per key and
// rejects updates against a stale sequence, which maps directly onto the
// revision-token contract.
type NATSStore struct {
	conn        *nats.Conn
	kv          jetstream.KeyValue
	bucket      string
	log         *slog.Logger
	locationURI string
}

// NewNATSStore connects to a NATS server and binds the named KV bucket,
// creating it if it does not exist.
func NewNATSStore(ctx context.Context, serverURL, bucket string, log *slog.Logger) (*NATSStore, error) {
	conn, err := nats.Connect(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind KV bucket %q: %w", bucket, err)
	}

	return &NATSStore{
		conn:        conn,
		kv:          kv,
		bucket:      bucket,
		log:         log,
		locationURI: fmt.Sprintf("nats://%s/%s", serverURL, bucket),
	}, nil
}

// Read retrieves a document and its KV revision sequence.
func (s *NATSStore) Read(ctx context.Context, path string) (interfaces.Document, error) {
	entry, err := s.kv.Get(ctx, path)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return interfaces.Document{}, interfaces.ErrDocumentNotFound
		}
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Read document from NATS KV",
		slog.String("path", path),
		slog.Uint64("revision", entry.Revision()))

	return interfaces.Document{
		Content:  entry.Value(),
		Revision: interfaces.RevisionToken(strconv.FormatUint(entry.Revision(), 10)),
	}, nil
}

// Write replaces a document, passing the expected revision sequence to
// JetStream. The message argument is ignored; JetStream keeps its own
// history.
func (s *NATSStore) Write(ctx context.Context, path string, content []byte, expectedRevision interfaces.RevisionToken, message string) (interfaces.RevisionToken, error) {
	if expectedRevision == "" {
		revision, err := s.kv.Create(ctx, path, content)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				return "", interfaces.ErrRevisionConflict
			}
			return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
		}
		return interfaces.RevisionToken(strconv.FormatUint(revision, 10)), nil
	}

	expected, err := strconv.ParseUint(expectedRevision.String(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid revision token %q: %w", expectedRevision, err)
	}

	revision, err := s.kv.Update(ctx, path, content, expected)
	if err != nil {
		if isNATSSequenceMismatch(err) {
			s.log.Debug("Revision conflict on NATS KV write",
				slog.String("path", path),
				slog.Uint64("expectedRevision", expected))
			return "", interfaces.ErrRevisionConflict
		}
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	return interfaces.RevisionToken(strconv.FormatUint(revision, 10)), nil
}

// Available checks if the NATS connection is up.
func (s *NATSStore) Available(ctx context.Context) bool {
	return s.conn != nil && s.conn.Status() == nats.CONNECTED
}

// Name returns a unique identifier for this store.
func (s *NATSStore) Name() string {
	return fmt.Sprintf("nats-%s", s.bucket)
}

// LocationURI returns the URI that identifies this store.
func (s *NATSStore) LocationURI() string {
	return s.locationURI
}

// Close drains the underlying connection.
func (s *NATSStore) Close() {
	s.conn.Close()
}

// isNATSSequenceMismatch reports whether a KV update failed because the
// expected revision sequence is stale.
func isNATSSequenceMismatch(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}
