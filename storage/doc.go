// Package storage implements document store backends for the agreement
// center backend.
//
// Each backend satisfies interfaces.DocumentStore: reads return the current
// content together with an opaque revision token, and writes must supply
// the token from the most recent read. A stale token always fails with
// interfaces.ErrRevisionConflict; no backend ever silently overwrites.
//
// Available backends:
//
//   - GitHubStore: the GitHub contents API, using the blob SHA as the
//     revision token. This is the backend the system was built around: the
//     agreement repository doubles as a human-auditable change history.
//   - VaultStore: HashiCorp Vault KV v2, using the secret version as the
//     revision token and Vault's native check-and-set on writes.
//   - NATSStore: NATS JetStream key-value buckets, using the KV revision
//     sequence as the token.
//   - FileStore: local filesystem, for development. The revision token is
//     the SHA-256 of the current content.
//   - MemoryStore: in-process store for tests and examples.
//
// The Factory creates backends from location URIs (github://owner/repo,
// vault://host/mount/path, nats://host/bucket, file:///dir, memory://).
//
// UpdateDocument implements the read-modify-write discipline shared by all
// callers: on a revision conflict it re-reads the current document and
// re-applies the semantic change, bounded by a fixed retry budget.
package storage
