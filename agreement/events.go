package agreement

import (
	"github.com/agreement-center/agreement-backend/interfaces"
)

// Status is the per-party view of an agreement's progress. The values are
// the strings presented to callers.
type Status string

const (
	// StatusCompleted means every party has signed.
	StatusCompleted Status = "Completed"

	// StatusAwaitingYou means the queried party still has to sign.
	StatusAwaitingYou Status = "Awaiting action from you"

	// StatusAwaitingOthers means the queried party has signed but at least
	// one other party has not.
	StatusAwaitingOthers Status = "Awaiting action from others"
)

// RecordReceive marks the agreement as received by the party, returning an
// updated copy of the event map. Receipt is recorded by provisioning
// tooling when an agreement is handed to a party; re-recording overwrites
// the prior event.
func RecordReceive(events Events, identity interfaces.PartyIdentity, timestamp int64, encryptedLocation *string) Events {
	next := events.Clone()
	partyEvents := next[identity]
	partyEvents.Receive = &Event{Timestamp: timestamp, EncryptedLocation: encryptedLocation}
	next[identity] = partyEvents
	return next
}

// RecordView marks the agreement as viewed by the party, returning an
// updated copy of the event map. Viewing is idempotent and the latest view
// always wins. A party that has already signed cannot re-view: the view
// trail backing an existing signature must stay intact.
func RecordView(events Events, identity interfaces.PartyIdentity, timestamp int64, encryptedLocation *string) (Events, error) {
	if events[identity].Sign != nil {
		return nil, interfaces.ForbiddenError("party %s already signed this agreement and cannot view it for signing again", identity)
	}

	next := events.Clone()
	partyEvents := next[identity]
	partyEvents.View = &Event{Timestamp: timestamp, EncryptedLocation: encryptedLocation}
	next[identity] = partyEvents
	return next, nil
}

// CanSign reports whether the party may record a signature: receive and
// view must be present and sign absent.
func CanSign(events Events, identity interfaces.PartyIdentity) bool {
	partyEvents := events[identity]
	return partyEvents.Receive != nil && partyEvents.View != nil && partyEvents.Sign == nil
}

// RecordSign records the party's signature, returning an updated copy of
// the event map. An existing signature is immutable and re-signing fails
// Forbidden; a missing receive or view event fails BadRequest.
func RecordSign(events Events, identity interfaces.PartyIdentity, timestamp int64, encryptedLocation *string) (Events, error) {
	partyEvents := events[identity]

	if partyEvents.Sign != nil {
		return nil, interfaces.ForbiddenError("party %s already signed this agreement", identity)
	}
	if partyEvents.Receive == nil || partyEvents.View == nil {
		return nil, interfaces.BadRequestError("party %s needs to receive and view this agreement before signing", identity)
	}

	next := events.Clone()
	partyEvents = next[identity]
	partyEvents.Sign = &Event{Timestamp: timestamp, EncryptedLocation: encryptedLocation}
	next[identity] = partyEvents
	return next, nil
}

// DeriveStatus computes the agreement status as seen by the given party:
// Completed when every party has signed, AwaitingYou when the party itself
// has not signed, AwaitingOthers otherwise. An agreement with no parties
// derives Completed.
func DeriveStatus(events Events, identity interfaces.PartyIdentity) Status {
	status := StatusCompleted
	for party, partyEvents := range events {
		if partyEvents.Sign != nil {
			continue
		}
		if party == identity {
			return StatusAwaitingYou
		}
		status = StatusAwaitingOthers
	}
	return status
}
