// Package identity resolves inbound access tokens to party identities.
//
// The authentication flow that issues access tokens (email verification,
// OAuth exchange) lives outside this backend; it hands sessions to this
// package, and the route layer resolves them on every request.
package identity

import (
	"context"
	"time"

	"github.com/agreement-center/agreement-backend/cache"
	"github.com/agreement-center/agreement-backend/interfaces"
)

// Sessions maps access tokens to party identities with a bounded lifetime.
// Unknown and expired tokens both resolve to Unauthorized: the caller
// cannot tell the difference, and must not.
type Sessions struct {
	store *cache.TTL[string, interfaces.PartyIdentity]
}

// NewSessions creates a session resolver whose sessions live for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{store: cache.NewTTL[string, interfaces.PartyIdentity](ttl)}
}

// Put registers a session for an access token.
func (s *Sessions) Put(accessToken string, identity interfaces.PartyIdentity) {
	s.store.Set(accessToken, identity)
}

// Revoke removes a session.
func (s *Sessions) Revoke(accessToken string) {
	s.store.Evict(accessToken)
}

// Resolve returns the party identity behind an access token.
func (s *Sessions) Resolve(ctx context.Context, accessToken string) (interfaces.PartyIdentity, error) {
	if accessToken == "" {
		return "", interfaces.UnauthorizedError("access token required")
	}

	identity, ok := s.store.Get(accessToken)
	if !ok {
		return "", interfaces.UnauthorizedError("invalid or expired access token")
	}

	return identity, nil
}

// Cache exposes the underlying TTL cache, for tests that manipulate the
// clock.
func (s *Sessions) Cache() *cache.TTL[string, interfaces.PartyIdentity] {
	return s.store
}
