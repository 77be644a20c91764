package agreement

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agreement-center/agreement-backend/interfaces"
	"github.com/agreement-center/agreement-backend/storage"
)

// AccessIndex answers whether a party may touch an agreement, backed by the
// per-party index documents in the content repository. It never exposes
// whether an agreement exists: a missing index document and a path absent
// from the index are both simply "not authorized".
type AccessIndex struct {
	store interfaces.DocumentStore
	log   *slog.Logger
}

// NewAccessIndex creates an access index over the given store.
func NewAccessIndex(store interfaces.DocumentStore, log *slog.Logger) *AccessIndex {
	return &AccessIndex{store: store, log: log}
}

// Authorize reports whether the party's index lists the agreement path.
// Store failures other than absence surface as Unavailable.
func (a *AccessIndex) Authorize(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath) (bool, error) {
	paths, err := a.Paths(ctx, identity)
	if err != nil {
		return false, err
	}

	for _, candidate := range paths {
		if candidate == path {
			return true, nil
		}
	}

	a.log.Debug("Party not authorized for agreement",
		slog.String("identity", identity.String()),
		slog.String("path", path.String()))
	return false, nil
}

// Paths returns every agreement path in the party's index. A party without
// an index document has no agreements.
func (a *AccessIndex) Paths(ctx context.Context, identity interfaces.PartyIdentity) ([]interfaces.AgreementPath, error) {
	doc, err := storage.ReadDocument(ctx, a.store, IndexPath(identity))
	if err != nil {
		if errors.Is(err, interfaces.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var raw []string
	if err := decodeDocument(doc.Content, &raw, "access index"); err != nil {
		return nil, err
	}

	paths := make([]interfaces.AgreementPath, 0, len(raw))
	for _, entry := range raw {
		path, err := interfaces.NewAgreementPath(entry)
		if err != nil {
			a.log.Warn("Skipping malformed path in access index",
				slog.String("identity", identity.String()),
				slog.String("entry", entry))
			continue
		}
		paths = append(paths, path)
	}

	return paths, nil
}
