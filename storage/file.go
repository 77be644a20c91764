package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// FileStore implements a document store on the local filesystem, intended
// for development and provisioning tooling. The revision token is the
// SHA-256 of the current content, verified under a per-store mutex before
// the file is atomically replaced.
type FileStore struct {
	baseDir     string
	mu          sync.Mutex
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed document store rooted at baseDir,
// creating the directory if necessary.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Read retrieves a document and the hash of its current content.
func (s *FileStore) Read(ctx context.Context, path string) (interfaces.Document, error) {
	filePath, err := s.filePath(path)
	if err != nil {
		return interfaces.Document{}, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return interfaces.Document{}, interfaces.ErrDocumentNotFound
		}
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Read document from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return interfaces.Document{
		Content:  data,
		Revision: contentRevision(data),
	}, nil
}

// Write replaces a document after verifying that the on-disk content still
// hashes to the expected revision. The replacement is a temp-file rename,
// so a write is never partially applied.
func (s *FileStore) Write(ctx context.Context, path string, content []byte, expectedRevision interfaces.RevisionToken, message string) (interfaces.RevisionToken, error) {
	filePath, err := s.filePath(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := os.ReadFile(filePath)
	switch {
	case os.IsNotExist(err):
		if expectedRevision != "" {
			return "", interfaces.ErrRevisionConflict
		}
	case err != nil:
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	default:
		if contentRevision(current) != expectedRevision {
			s.log.Debug("Revision conflict on file write",
				slog.String("path", filePath),
				slog.String("expectedRevision", expectedRevision.String()))
			return "", interfaces.ErrRevisionConflict
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".write-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Wrote document to file",
		slog.String("path", filePath),
		slog.Int("size", len(content)))

	return contentRevision(content), nil
}

// Available checks if the base directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

// filePath resolves a document path inside the base directory, rejecting
// escapes.
func (s *FileStore) filePath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid document path: %s", path)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// contentRevision computes the revision token of a content blob.
func contentRevision(data []byte) interfaces.RevisionToken {
	hash := sha256.Sum256(data)
	return interfaces.RevisionToken(hex.EncodeToString(hash[:]))
}
