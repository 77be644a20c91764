package storage

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// MemoryStore implements an in-process document store for tests and
// examples. Each path carries a monotonic revision counter; writes verify
// the expected revision under the store mutex, giving the same
// compare-and-swap behavior as the remote backends.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memoryDocument

	hookMu    sync.Mutex
	writeHook func(path string)
}

type memoryDocument struct {
	content  []byte
	revision uint64
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDocument)}
}

// Read retrieves a document and its current revision.
func (s *MemoryStore) Read(ctx context.Context, path string) (interfaces.Document, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return interfaces.Document{}, interfaces.ErrDocumentNotFound
	}

	content := make([]byte, len(doc.content))
	copy(content, doc.content)

	return interfaces.Document{
		Content:  content,
		Revision: interfaces.RevisionToken(strconv.FormatUint(doc.revision, 10)),
	}, nil
}

// Write replaces a document if the expected revision matches the current
// one. An empty expected revision creates the document.
func (s *MemoryStore) Write(ctx context.Context, path string, content []byte, expectedRevision interfaces.RevisionToken, message string) (interfaces.RevisionToken, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if hook := s.takeWriteHook(); hook != nil {
		hook(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[path]

	switch {
	case !exists && expectedRevision != "":
		return "", interfaces.ErrRevisionConflict
	case exists && interfaces.RevisionToken(strconv.FormatUint(doc.revision, 10)) != expectedRevision:
		return "", interfaces.ErrRevisionConflict
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	next := doc.revision + 1
	s.docs[path] = memoryDocument{content: stored, revision: next}

	return interfaces.RevisionToken(strconv.FormatUint(next, 10)), nil
}

// Available always reports true.
func (s *MemoryStore) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this store.
func (s *MemoryStore) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this store.
func (s *MemoryStore) LocationURI() string {
	return "memory://"
}

// Seed writes a document directly, bypassing the revision check. Tests use
// it to provision fixtures the way the external provisioning process would.
func (s *MemoryStore) Seed(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.docs[path]
	stored := make([]byte, len(content))
	copy(stored, content)
	s.docs[path] = memoryDocument{content: stored, revision: doc.revision + 1}
}

// SetWriteHook arms a one-shot hook that runs immediately before the next
// write's revision check, outside the store mutex. Tests use it to inject
// contending writes; a hook may re-arm itself to keep contending.
func (s *MemoryStore) SetWriteHook(hook func(path string)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.writeHook = hook
}

func (s *MemoryStore) takeWriteHook() func(path string) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	hook := s.writeHook
	s.writeHook = nil
	return hook
}
