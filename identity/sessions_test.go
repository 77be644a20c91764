package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

func TestSessionsResolve(t *testing.T) {
	sessions := NewSessions(time.Hour)
	sessions.Put("token-a", "alice@example.com")

	identity, err := sessions.Resolve(context.Background(), "token-a")
	require.NoError(t, err)
	assert.Equal(t, interfaces.PartyIdentity("alice@example.com"), identity)
}

func TestSessionsResolveUnknown(t *testing.T) {
	sessions := NewSessions(time.Hour)

	for _, token := range []string{"", "unknown"} {
		_, err := sessions.Resolve(context.Background(), token)
		require.Error(t, err)
		assert.Equal(t, interfaces.KindUnauthorized, interfaces.KindOf(err))
	}
}

func TestSessionsExpiry(t *testing.T) {
	sessions := NewSessions(time.Hour)

	now := time.Unix(1700000000, 0)
	sessions.Cache().SetClock(func() time.Time { return now })

	sessions.Put("token-a", "alice@example.com")

	now = now.Add(2 * time.Hour)
	_, err := sessions.Resolve(context.Background(), "token-a")
	require.Error(t, err)
	assert.Equal(t, interfaces.KindUnauthorized, interfaces.KindOf(err))
}

func TestSessionsRevoke(t *testing.T) {
	sessions := NewSessions(time.Hour)
	sessions.Put("token-a", "alice@example.com")
	sessions.Revoke("token-a")

	_, err := sessions.Resolve(context.Background(), "token-a")
	require.Error(t, err)
	assert.Equal(t, interfaces.KindUnauthorized, interfaces.KindOf(err))
}
