// Package interfaces defines the core interfaces and types for the agreement
// center backend, separating interface definitions from implementations.
//
// The package provides the contracts between the components of the system:
//
// # Storage Interfaces
//
// DocumentStore: read/write primitive over a remote, version-controlled
// content repository. Every read returns a revision token, and every write
// must supply the revision token from the most recent read of the same
// document. A stale token always fails with ErrRevisionConflict, never a
// silent overwrite.
//
// DocumentStoreFactory: creates document stores from location URI strings
// (github://, vault://, nats://, file://, memory://).
//
// # Collaborator Interfaces
//
// CredentialProvider: issues short-lived upstream access tokens for the
// content repository.
//
// IdentityResolver: maps an inbound access token to an opaque party
// identity.
//
// LocationCipher: symmetric encryption for the request-origin value recorded
// in lifecycle events.
//
// # Core Types
//
// AgreementPath, PartyIdentity and RevisionToken are opaque, validated
// domain identifiers. Document pairs raw content with its revision token.
//
// # Error Taxonomy
//
// All fallible operations surface one of six closed error kinds: NotFound,
// Forbidden, BadRequest, Conflict, Unauthorized and Unavailable. The Error
// type carries the kind together with a caller-safe message; KindOf
// classifies any error, converting unknown failures to Unavailable so that
// internal detail never leaks to callers.
package interfaces
