package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// countingProvider mints sequential tokens and counts how often it is
// asked.
type countingProvider struct {
	calls     int
	lifetime  time.Duration
	now       func() time.Time
	returnErr error
}

func (p *countingProvider) GetToken(ctx context.Context) (interfaces.Credential, error) {
	if p.returnErr != nil {
		return interfaces.Credential{}, p.returnErr
	}

	p.calls++
	return interfaces.Credential{
		Token:     "token-" + string(rune('a'+p.calls-1)),
		ExpiresAt: p.now().Add(p.lifetime),
	}, nil
}

func TestCachedReusesLiveCredential(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	provider := &countingProvider{lifetime: time.Hour, now: clock}
	cached := NewCached(provider)
	cached.SetClock(clock)

	first, err := cached.GetToken(context.Background())
	require.NoError(t, err)

	second, err := cached.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, 1, provider.calls)
}

func TestCachedRefreshesBeforeExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	provider := &countingProvider{lifetime: time.Hour, now: clock}
	cached := NewCached(provider)
	cached.SetClock(clock)

	first, err := cached.GetToken(context.Background())
	require.NoError(t, err)

	// The cached entry dies one refresh skew before the credential does.
	now = now.Add(time.Hour - 30*time.Second)

	second, err := cached.GetToken(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 2, provider.calls)
}

func TestCachedShortLivedCredentialNotCached(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	// Credentials that expire within the refresh skew are never cached.
	provider := &countingProvider{lifetime: 30 * time.Second, now: clock}
	cached := NewCached(provider)
	cached.SetClock(clock)

	_, err := cached.GetToken(context.Background())
	require.NoError(t, err)

	_, err = cached.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestCachedPropagatesErrors(t *testing.T) {
	mintErr := errors.New("mint failed")
	provider := &countingProvider{returnErr: mintErr, now: time.Now}
	cached := NewCached(provider)

	_, err := cached.GetToken(context.Background())
	require.ErrorIs(t, err, mintErr)
}
