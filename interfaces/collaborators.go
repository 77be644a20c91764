package interfaces

import (
	"context"
	"time"
)

// Credential is a short-lived upstream access token together with its
// expiry.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the credential is expired at the given instant.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// CredentialProvider issues short-lived access tokens for the upstream
// content repository.
type CredentialProvider interface {
	// GetToken returns a currently valid credential, minting a fresh one if
	// necessary.
	GetToken(ctx context.Context) (Credential, error)
}

// IdentityResolver maps an inbound access token to an opaque party
// identity. Resolution failure surfaces as a KindUnauthorized error.
type IdentityResolver interface {
	Resolve(ctx context.Context, accessToken string) (PartyIdentity, error)
}

// LocationCipher encrypts and decrypts the request-origin value recorded in
// lifecycle events. The core treats ciphertexts as opaque strings.
type LocationCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
