package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agreement-center/agreement-backend/interfaces"
	"github.com/agreement-center/agreement-backend/metrics"
)

// DefaultUpdateAttempts bounds the read-modify-write retry loop. Exceeding
// it surfaces a Conflict to the caller instead of looping indefinitely.
const DefaultUpdateAttempts = 3

// Mutator computes a document's replacement content from its current
// content. It is re-invoked against fresh content after every revision
// conflict, so it must apply the semantic change rather than patch bytes it
// saw earlier, and must be safe to run more than once.
type Mutator func(current []byte) ([]byte, error)

// UpdateDocument applies a read-modify-write cycle against a document with
// the store's compare-and-swap contract: read the document, compute new
// content, write with the observed revision, and on conflict re-read and
// re-apply the change. Attempts are bounded by DefaultUpdateAttempts.
//
// Errors from mutate propagate unchanged. Store failures and retry
// exhaustion are returned as taxonomy errors.
func UpdateDocument(ctx context.Context, store interfaces.DocumentStore, log *slog.Logger, path, message string, mutate Mutator) (interfaces.RevisionToken, error) {
	var lastErr error

	for attempt := 1; attempt <= DefaultUpdateAttempts; attempt++ {
		doc, err := store.Read(ctx, path)
		if err != nil {
			metrics.DocumentReads.WithLabelValues(store.Name(), "error").Inc()
			if errors.Is(err, interfaces.ErrDocumentNotFound) {
				return "", err
			}
			return "", interfaces.UnavailableError(err, "failed to read %s", path)
		}
		metrics.DocumentReads.WithLabelValues(store.Name(), "ok").Inc()

		next, err := mutate(doc.Content)
		if err != nil {
			return "", err
		}

		revision, err := store.Write(ctx, path, next, doc.Revision, message)
		if err == nil {
			metrics.DocumentWrites.WithLabelValues(store.Name(), "ok").Inc()
			return revision, nil
		}

		if !errors.Is(err, interfaces.ErrRevisionConflict) {
			metrics.DocumentWrites.WithLabelValues(store.Name(), "error").Inc()
			return "", interfaces.UnavailableError(err, "failed to write %s", path)
		}

		metrics.DocumentWrites.WithLabelValues(store.Name(), "conflict").Inc()
		metrics.RevisionConflicts.WithLabelValues(store.Name()).Inc()
		log.Debug("Revision conflict, re-reading document",
			slog.String("path", path),
			slog.Int("attempt", attempt))
		lastErr = err
	}

	return "", interfaces.ConflictError(lastErr, "update of %s exceeded %d attempts", path, DefaultUpdateAttempts)
}

// ReadDocument reads a document, recording metrics and mapping store
// sentinels into taxonomy errors other than NotFound, which callers
// usually want to branch on.
func ReadDocument(ctx context.Context, store interfaces.DocumentStore, path string) (interfaces.Document, error) {
	doc, err := store.Read(ctx, path)
	if err != nil {
		metrics.DocumentReads.WithLabelValues(store.Name(), "error").Inc()
		if errors.Is(err, interfaces.ErrDocumentNotFound) {
			return interfaces.Document{}, err
		}
		return interfaces.Document{}, interfaces.UnavailableError(err, "failed to read %s", path)
	}

	metrics.DocumentReads.WithLabelValues(store.Name(), "ok").Inc()
	return doc, nil
}
