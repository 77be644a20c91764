package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// AgreementPath identifies an agreement's document group. It has the form
// "project/name", where neither segment is empty, "." or "..".
type AgreementPath string

// NewAgreementPath validates a raw path string and returns it as an
// AgreementPath.
func NewAgreementPath(raw string) (AgreementPath, error) {
	segments := strings.Split(raw, "/")
	if len(segments) != 2 {
		return "", fmt.Errorf("invalid agreement path %q: expected project/name", raw)
	}

	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid agreement path %q: bad segment %q", raw, segment)
		}
	}

	return AgreementPath(raw), nil
}

// String returns the path as a string.
func (p AgreementPath) String() string {
	return string(p)
}

// Name returns the final segment of the path, used as the agreement's
// display name.
func (p AgreementPath) Name() string {
	if idx := strings.LastIndex(string(p), "/"); idx >= 0 {
		return string(p[idx+1:])
	}
	return string(p)
}

// Validate checks that the path has a valid format.
func (p AgreementPath) Validate() error {
	_, err := NewAgreementPath(string(p))
	return err
}

// PartyIdentity is an opaque string identifying a signer, viewer or
// reviewer. It is resolved by an external identity resolver; the core never
// authenticates it, only authorizes it.
type PartyIdentity string

// NewPartyIdentity validates a raw identity string.
func NewPartyIdentity(raw string) (PartyIdentity, error) {
	if raw == "" {
		return "", errors.New("party identity must not be empty")
	}
	if strings.ContainsAny(raw, "/\\") {
		return "", fmt.Errorf("invalid party identity %q: path separators not allowed", raw)
	}
	return PartyIdentity(raw), nil
}

// String returns the identity as a string.
func (id PartyIdentity) String() string {
	return string(id)
}

// RevisionToken is the opaque compare-and-swap version marker returned by a
// document read and required by the next write to the same document. The
// core never interprets it beyond equality comparison.
type RevisionToken string

// String returns the token as a string.
func (r RevisionToken) String() string {
	return string(r)
}

// Equal compares two revision tokens.
func (r RevisionToken) Equal(other RevisionToken) bool {
	return r == other
}

// Document pairs raw document content with the revision token observed when
// it was read.
type Document struct {
	Content  []byte
	Revision RevisionToken
}
