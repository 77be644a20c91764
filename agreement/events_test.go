package agreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

const (
	alice interfaces.PartyIdentity = "alice@example.com"
	bob   interfaces.PartyIdentity = "bob@example.com"
	carol interfaces.PartyIdentity = "carol@example.com"
)

func signedParty(ts int64) PartyEvents {
	return PartyEvents{
		Receive: &Event{Timestamp: ts},
		View:    &Event{Timestamp: ts},
		Sign:    &Event{Timestamp: ts},
	}
}

func TestRecordReceive(t *testing.T) {
	events := Events{}

	next := RecordReceive(events, alice, 1000, nil)

	require.NotNil(t, next[alice].Receive)
	assert.Equal(t, int64(1000), next[alice].Receive.Timestamp)

	// The original map stays untouched.
	assert.Nil(t, events[alice].Receive)

	// Re-recording overwrites the prior event.
	next = RecordReceive(next, alice, 2000, nil)
	assert.Equal(t, int64(2000), next[alice].Receive.Timestamp)
}

func TestRecordView(t *testing.T) {
	events := RecordReceive(Events{}, alice, 1000, nil)

	location := "encrypted-origin"
	next, err := RecordView(events, alice, 1500, &location)
	require.NoError(t, err)
	require.NotNil(t, next[alice].View)
	assert.Equal(t, int64(1500), next[alice].View.Timestamp)
	assert.Equal(t, &location, next[alice].View.EncryptedLocation)

	// Viewing again replaces the event, latest wins.
	next, err = RecordView(next, alice, 1800, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), next[alice].View.Timestamp)
	assert.Nil(t, next[alice].View.EncryptedLocation)
}

func TestRecordViewAfterSign(t *testing.T) {
	events := Events{alice: signedParty(1000)}

	_, err := RecordView(events, alice, 2000, nil)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindForbidden, interfaces.KindOf(err))

	// The signed party's view trail is untouched.
	assert.Equal(t, int64(1000), events[alice].View.Timestamp)
}

func TestCanSign(t *testing.T) {
	tests := []struct {
		name    string
		events  PartyEvents
		canSign bool
	}{
		{
			name:    "no events",
			events:  PartyEvents{},
			canSign: false,
		},
		{
			name:    "received only",
			events:  PartyEvents{Receive: &Event{Timestamp: 1}},
			canSign: false,
		},
		{
			name:    "viewed only",
			events:  PartyEvents{View: &Event{Timestamp: 1}},
			canSign: false,
		},
		{
			name:    "received and viewed",
			events:  PartyEvents{Receive: &Event{Timestamp: 1}, View: &Event{Timestamp: 2}},
			canSign: true,
		},
		{
			name:    "already signed",
			events:  signedParty(1),
			canSign: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Events{alice: tt.events}
			assert.Equal(t, tt.canSign, CanSign(events, alice))
		})
	}
}

func TestRecordSign(t *testing.T) {
	events := RecordReceive(Events{}, alice, 1000, nil)
	events, err := RecordView(events, alice, 1100, nil)
	require.NoError(t, err)

	next, err := RecordSign(events, alice, 1200, nil)
	require.NoError(t, err)
	require.NotNil(t, next[alice].Sign)
	assert.Equal(t, int64(1200), next[alice].Sign.Timestamp)

	// The pre-sign map is unchanged.
	assert.Nil(t, events[alice].Sign)
}

func TestRecordSignMissingPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		events PartyEvents
	}{
		{name: "no events", events: PartyEvents{}},
		{name: "missing view", events: PartyEvents{Receive: &Event{Timestamp: 1}}},
		{name: "missing receive", events: PartyEvents{View: &Event{Timestamp: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordSign(Events{alice: tt.events}, alice, 2000, nil)
			require.Error(t, err)
			assert.Equal(t, interfaces.KindBadRequest, interfaces.KindOf(err))
		})
	}
}

func TestRecordSignTwice(t *testing.T) {
	events := Events{alice: signedParty(1000)}

	_, err := RecordSign(events, alice, 2000, nil)
	require.Error(t, err)
	assert.Equal(t, interfaces.KindForbidden, interfaces.KindOf(err))

	// The first signature's timestamp survives.
	assert.Equal(t, int64(1000), events[alice].Sign.Timestamp)
}

func TestDeriveStatus(t *testing.T) {
	received := PartyEvents{Receive: &Event{Timestamp: 1}, View: &Event{Timestamp: 2}}

	tests := []struct {
		name     string
		events   Events
		identity interfaces.PartyIdentity
		expected Status
	}{
		{
			name:     "no parties",
			events:   Events{},
			identity: alice,
			expected: StatusCompleted,
		},
		{
			name:     "everyone signed",
			events:   Events{alice: signedParty(1), bob: signedParty(2)},
			identity: alice,
			expected: StatusCompleted,
		},
		{
			name:     "queried party has not signed",
			events:   Events{alice: received, bob: signedParty(2)},
			identity: alice,
			expected: StatusAwaitingYou,
		},
		{
			name:     "only others have not signed",
			events:   Events{alice: signedParty(1), bob: received},
			identity: alice,
			expected: StatusAwaitingOthers,
		},
		{
			name:     "nobody signed, queried party pending",
			events:   Events{alice: received, bob: received, carol: received},
			identity: alice,
			expected: StatusAwaitingYou,
		},
		{
			name:     "party not in events at all",
			events:   Events{bob: received},
			identity: alice,
			expected: StatusAwaitingOthers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(tt.events, tt.identity))
		})
	}
}
