package agreement

import (
	"encoding/json"
	"fmt"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// Event is a timestamped, optionally location-encrypted marker of one
// lifecycle transition for one party on one agreement. The location is the
// request origin encrypted with the server-held secret; the core treats it
// as opaque.
type Event struct {
	Timestamp         int64   `json:"timestamp"`
	EncryptedLocation *string `json:"encryptedLocation"`
}

// PartyEvents holds the lifecycle events recorded for a single party.
type PartyEvents struct {
	Receive *Event `json:"receive,omitempty"`
	View    *Event `json:"view,omitempty"`
	Sign    *Event `json:"sign,omitempty"`
	Void    *Event `json:"void,omitempty"`
}

// Events maps each party to its lifecycle record.
type Events map[interfaces.PartyIdentity]PartyEvents

// Clone returns a copy of the event map that can be mutated without
// affecting the original.
func (e Events) Clone() Events {
	clone := make(Events, len(e))
	for identity, partyEvents := range e {
		clone[identity] = partyEvents
	}
	return clone
}

// InputField is one fillable field of an agreement. Only the owner identity
// may change its value.
type InputField struct {
	OwnerIdentity interfaces.PartyIdentity `json:"ownerIdentity"`
	Value         any                      `json:"value"`
}

// Inputs is the ordered field list of an agreement; fields are addressed by
// index.
type Inputs []InputField

// Clone returns a copy of the input list.
func (in Inputs) Clone() Inputs {
	clone := make(Inputs, len(in))
	copy(clone, in)
	return clone
}

// Permissions lists the identities allowed to view, edit or review an
// agreement.
type Permissions struct {
	ViewerIdentities   []interfaces.PartyIdentity `json:"viewerIdentities"`
	EditorIdentities   []interfaces.PartyIdentity `json:"editorIdentities"`
	ReviewerIdentities []interfaces.PartyIdentity `json:"reviewerIdentities"`
}

// Includes reports whether the identity appears in any of the three lists.
func (p Permissions) Includes(identity interfaces.PartyIdentity) bool {
	for _, list := range [][]interfaces.PartyIdentity{p.ViewerIdentities, p.EditorIdentities, p.ReviewerIdentities} {
		for _, member := range list {
			if member == identity {
				return true
			}
		}
	}
	return false
}

// Document path layout within the content repository.

// TextPath returns the store path of the agreement body.
func TextPath(path interfaces.AgreementPath) string {
	return fmt.Sprintf("documents/%s/README.md", path)
}

// InputsPath returns the store path of the inputs document.
func InputsPath(path interfaces.AgreementPath) string {
	return fmt.Sprintf("documents/%s/inputs.json", path)
}

// PermissionsPath returns the store path of the permissions document.
func PermissionsPath(path interfaces.AgreementPath) string {
	return fmt.Sprintf("documents/%s/permissions.json", path)
}

// EventsPath returns the store path of the events document.
func EventsPath(path interfaces.AgreementPath) string {
	return fmt.Sprintf("documents/%s/events.json", path)
}

// IndexPath returns the store path of a party's access index document.
func IndexPath(identity interfaces.PartyIdentity) string {
	return fmt.Sprintf("index/%s.json", identity)
}

// decodeDocument unmarshals a JSON document, reporting parse failures as
// store unavailability: a document that cannot be parsed is as unusable as
// one that cannot be fetched.
func decodeDocument(content []byte, v any, what string) error {
	if err := json.Unmarshal(content, v); err != nil {
		return interfaces.UnavailableError(err, "malformed %s document", what)
	}
	return nil
}

// encodeDocument marshals a document with indentation, keeping the stored
// JSON readable in the version-controlled repository.
func encodeDocument(v any) ([]byte, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, interfaces.UnavailableError(err, "failed to encode document")
	}
	return content, nil
}
