package agreement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/agreement-center/agreement-backend/interfaces"
	"github.com/agreement-center/agreement-backend/metrics"
	"github.com/agreement-center/agreement-backend/storage"
)

// Intent qualifies a GetAgreement call.
type Intent string

const (
	// IntentView reads the agreement without side effects.
	IntentView Intent = ""

	// IntentSign reads the agreement in preparation for signing, which
	// upserts a view event for the caller.
	IntentSign Intent = "sign"
)

// signNotRecordedMessage marks the state where the inputs write committed
// but the sign event did not. See ErrSignNotRecorded.
const signNotRecordedMessage = "inputs were updated but the sign event was not recorded"

// ErrSignNotRecorded is returned by SignAgreement when the input values
// were persisted but recording the sign event exhausted the retry budget.
// The caller can safely retry the whole operation: re-applying equal input
// values is a value-level no-op and the signature is still absent.
var ErrSignNotRecorded = &interfaces.Error{Kind: interfaces.KindConflict, Message: signNotRecordedMessage}

// Bundle is the readable representation of an agreement returned to an
// authorized party.
type Bundle struct {
	Text        string      `json:"text"`
	Inputs      Inputs      `json:"inputs"`
	Permissions Permissions `json:"permissions"`
}

// Summary is one row of a party's agreement list.
type Summary struct {
	Path   interfaces.AgreementPath `json:"path"`
	Name   string                   `json:"name"`
	Status Status                   `json:"status"`
}

// Service orchestrates the document store, access index, event log and
// input set into the operations exposed to external callers. It holds no
// per-agreement state: correctness under concurrent requests relies
// entirely on the store's compare-and-swap contract.
type Service struct {
	store  interfaces.DocumentStore
	access *AccessIndex
	cipher interfaces.LocationCipher
	log    *slog.Logger

	// now is the clock used for event timestamps, replaceable in tests.
	now func() time.Time
}

// NewService creates an agreement service over the given store. The cipher
// encrypts the request origin recorded in view and sign events.
func NewService(store interfaces.DocumentStore, cipher interfaces.LocationCipher, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		access: NewAccessIndex(store, log),
		cipher: cipher,
		log:    log,
		now:    time.Now,
	}
}

// SetClock replaces the event timestamp source. Tests use it for
// deterministic timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetAgreement returns the agreement's text, inputs and permissions to an
// authorized party. With IntentSign it also upserts a view event carrying
// the encrypted request origin, retrying on revision conflicts within the
// fixed budget.
func (s *Service) GetAgreement(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath, intent Intent, requestOrigin string) (Bundle, error) {
	if err := s.authorize(ctx, identity, path); err != nil {
		return Bundle{}, err
	}

	if intent == IntentSign {
		if err := s.recordView(ctx, identity, path, requestOrigin); err != nil {
			return Bundle{}, err
		}
	}

	textDoc, err := storage.ReadDocument(ctx, s.store, TextPath(path))
	if err != nil {
		return Bundle{}, err
	}

	inputsDoc, err := storage.ReadDocument(ctx, s.store, InputsPath(path))
	if err != nil {
		return Bundle{}, err
	}

	var inputs Inputs
	if err := decodeDocument(inputsDoc.Content, &inputs, "inputs"); err != nil {
		return Bundle{}, err
	}

	permissionsDoc, err := storage.ReadDocument(ctx, s.store, PermissionsPath(path))
	if err != nil {
		return Bundle{}, err
	}

	var permissions Permissions
	if err := decodeDocument(permissionsDoc.Content, &permissions, "permissions"); err != nil {
		return Bundle{}, err
	}

	s.log.Info("Returned agreement to party",
		slog.String("path", path.String()),
		slog.String("intent", string(intent)))

	return Bundle{
		Text:        string(textDoc.Content),
		Inputs:      inputs,
		Permissions: permissions,
	}, nil
}

// ListAgreements returns a summary of every agreement in the party's index
// whose permissions include the party, with a status derived from the
// event log.
func (s *Service) ListAgreements(ctx context.Context, identity interfaces.PartyIdentity) ([]Summary, error) {
	paths, err := s.access.Paths(ctx, identity)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(paths))
	for _, path := range paths {
		permissionsDoc, err := storage.ReadDocument(ctx, s.store, PermissionsPath(path))
		if err != nil {
			return nil, err
		}

		var permissions Permissions
		if err := decodeDocument(permissionsDoc.Content, &permissions, "permissions"); err != nil {
			return nil, err
		}

		if !permissions.Includes(identity) {
			continue
		}

		eventsDoc, err := storage.ReadDocument(ctx, s.store, EventsPath(path))
		if err != nil {
			return nil, err
		}

		events := Events{}
		if err := decodeDocument(eventsDoc.Content, &events, "events"); err != nil {
			return nil, err
		}

		summaries = append(summaries, Summary{
			Path:   path,
			Name:   path.Name(),
			Status: DeriveStatus(events, identity),
		})
	}

	s.log.Info("Listed agreements for party", slog.Int("count", len(summaries)))
	return summaries, nil
}

// UpdateInputs applies a batch of input value updates on behalf of the
// party. The batch is validated against field ownership as a whole; the
// write retries on revision conflicts within the fixed budget.
func (s *Service) UpdateInputs(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath, updates []InputUpdate) error {
	if err := s.authorize(ctx, identity, path); err != nil {
		return err
	}

	_, err := storage.UpdateDocument(ctx, s.store, s.log, InputsPath(path), "Add inputs from "+identity.String(), func(current []byte) ([]byte, error) {
		var inputs Inputs
		if err := decodeDocument(current, &inputs, "inputs"); err != nil {
			return nil, err
		}

		next, err := ApplyOwnedUpdates(inputs, updates, identity)
		if err != nil {
			return nil, err
		}

		return encodeDocument(next)
	})
	if err != nil {
		return err
	}

	s.log.Info("Updated agreement inputs",
		slog.String("path", path.String()),
		slog.Int("updates", len(updates)))
	return nil
}

// SignAgreement records the party's signature after applying any final
// input updates. The two documents are not transactional: if the inputs
// write commits and the events write then exhausts its retry budget, the
// call fails with ErrSignNotRecorded so the caller knows the signature is
// still absent and a retry of the whole operation is safe.
func (s *Service) SignAgreement(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath, updates []InputUpdate, requestOrigin string) error {
	if err := s.authorize(ctx, identity, path); err != nil {
		metrics.SignOperations.WithLabelValues("denied").Inc()
		return err
	}

	// Check preconditions up front so that a party that cannot sign does
	// not get its inputs written.
	eventsDoc, err := storage.ReadDocument(ctx, s.store, EventsPath(path))
	if err != nil {
		metrics.SignOperations.WithLabelValues("error").Inc()
		return err
	}

	events := Events{}
	if err := decodeDocument(eventsDoc.Content, &events, "events"); err != nil {
		metrics.SignOperations.WithLabelValues("error").Inc()
		return err
	}

	if _, err := RecordSign(events, identity, s.now().UnixMilli(), nil); err != nil {
		metrics.SignOperations.WithLabelValues("rejected").Inc()
		return err
	}

	if len(updates) > 0 {
		_, err := storage.UpdateDocument(ctx, s.store, s.log, InputsPath(path), "Add inputs from "+identity.String(), func(current []byte) ([]byte, error) {
			var inputs Inputs
			if err := decodeDocument(current, &inputs, "inputs"); err != nil {
				return nil, err
			}

			next, err := ApplyOwnedUpdates(inputs, updates, identity)
			if err != nil {
				return nil, err
			}

			return encodeDocument(next)
		})
		if err != nil {
			metrics.SignOperations.WithLabelValues("error").Inc()
			return err
		}
	}

	encryptedOrigin, err := s.encryptOrigin(requestOrigin)
	if err != nil {
		metrics.SignOperations.WithLabelValues("error").Inc()
		return err
	}

	// The events document may have moved since the precondition check, so
	// the sign event is always recomputed against a freshly read revision.
	_, err = storage.UpdateDocument(ctx, s.store, s.log, EventsPath(path), "Update events", func(current []byte) ([]byte, error) {
		fresh := Events{}
		if err := decodeDocument(current, &fresh, "events"); err != nil {
			return nil, err
		}

		next, err := RecordSign(fresh, identity, s.now().UnixMilli(), encryptedOrigin)
		if err != nil {
			return nil, err
		}

		return encodeDocument(next)
	})
	if err != nil {
		if interfaces.KindOf(err) == interfaces.KindConflict && len(updates) > 0 {
			metrics.SignOperations.WithLabelValues("sign_not_recorded").Inc()
			return &interfaces.Error{Kind: interfaces.KindConflict, Message: signNotRecordedMessage, Err: err}
		}
		metrics.SignOperations.WithLabelValues("error").Inc()
		return err
	}

	metrics.SignOperations.WithLabelValues("ok").Inc()
	s.log.Info("Recorded agreement signature", slog.String("path", path.String()))
	return nil
}

// authorize conflates missing authorization with a missing agreement, per
// the access-opacity contract.
func (s *Service) authorize(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath) error {
	authorized, err := s.access.Authorize(ctx, identity, path)
	if err != nil {
		return err
	}
	if !authorized {
		return interfaces.NotFoundError("agreement doesn't exist or this party doesn't have access to it")
	}
	return nil
}

// recordView upserts the caller's view event with the encrypted request
// origin.
func (s *Service) recordView(ctx context.Context, identity interfaces.PartyIdentity, path interfaces.AgreementPath, requestOrigin string) error {
	encryptedOrigin, err := s.encryptOrigin(requestOrigin)
	if err != nil {
		return err
	}

	_, err = storage.UpdateDocument(ctx, s.store, s.log, EventsPath(path), "Add view event", func(current []byte) ([]byte, error) {
		events := Events{}
		if err := decodeDocument(current, &events, "events"); err != nil {
			return nil, err
		}

		next, err := RecordView(events, identity, s.now().UnixMilli(), encryptedOrigin)
		if err != nil {
			return nil, err
		}

		return encodeDocument(next)
	})
	return err
}

// encryptOrigin encrypts a non-empty request origin; an empty origin is
// recorded as a null location, matching agreements provisioned before
// origin capture existed.
func (s *Service) encryptOrigin(requestOrigin string) (*string, error) {
	if requestOrigin == "" || s.cipher == nil {
		return nil, nil
	}

	encrypted, err := s.cipher.Encrypt(requestOrigin)
	if err != nil {
		return nil, interfaces.UnavailableError(err, "failed to encrypt request origin")
	}
	return &encrypted, nil
}

// IsSignNotRecorded reports whether an error is the distinguishable
// inputs-committed-but-unsigned condition.
func IsSignNotRecorded(err error) bool {
	return errors.Is(err, ErrSignNotRecorded)
}
