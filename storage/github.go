package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// GitHubStore implements a document store backed by the GitHub contents
// API. The git blob SHA returned on every read serves as the revision
// token; writes send it back in the PUT body, and GitHub rejects the write
// when the SHA no longer matches the current blob.
type GitHubStore struct {
	owner       string
	repo        string
	branch      string
	credentials interfaces.CredentialProvider
	client      *http.Client
	baseURL     string
	log         *slog.Logger
	locationURI string
}

// githubContents represents the contents-API response for a single file.
type githubContents struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// githubWriteRequest is the PUT body for creating or updating a file.
type githubWriteRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// githubWriteResponse is the relevant part of the PUT response.
type githubWriteResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// NewGitHubStore creates a document store over the given GitHub repository.
// Credentials are requested per call so that short-lived installation
// tokens are always fresh. An empty branch uses the repository default.
func NewGitHubStore(owner, repo, branch string, credentials interfaces.CredentialProvider, log *slog.Logger) *GitHubStore {
	return &GitHubStore{
		owner:       owner,
		repo:        repo,
		branch:      branch,
		credentials: credentials,
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     "https://api.github.com",
		log:         log,
		locationURI: fmt.Sprintf("github://%s/%s", owner, repo),
	}
}

// Read retrieves a document and its blob SHA from the contents API.
func (s *GitHubStore) Read(ctx context.Context, path string) (interfaces.Document, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return interfaces.Document{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return interfaces.Document{}, interfaces.ErrDocumentNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return interfaces.Document{}, fmt.Errorf("%w: GitHub API error on read: %s, %s", interfaces.ErrStoreUnavailable, resp.Status, string(body))
	}

	var contents githubContents
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: failed to decode contents response: %v", interfaces.ErrStoreUnavailable, err)
	}

	if contents.Encoding != "base64" {
		return interfaces.Document{}, fmt.Errorf("%w: unexpected contents encoding: %s", interfaces.ErrStoreUnavailable, contents.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return interfaces.Document{}, fmt.Errorf("%w: failed to decode contents: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Read document from GitHub",
		slog.String("path", path),
		slog.String("revision", contents.SHA),
		slog.Int("size", len(data)))

	return interfaces.Document{
		Content:  data,
		Revision: interfaces.RevisionToken(contents.SHA),
	}, nil
}

// Write replaces a document via the contents API. GitHub answers a stale or
// missing SHA with 409 or 422; both map to ErrRevisionConflict.
func (s *GitHubStore) Write(ctx context.Context, path string, content []byte, expectedRevision interfaces.RevisionToken, message string) (interfaces.RevisionToken, error) {
	writeReq := githubWriteRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     expectedRevision.String(),
		Branch:  s.branch,
	}

	body, err := json.Marshal(writeReq)
	if err != nil {
		return "", fmt.Errorf("failed to encode write request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		s.log.Debug("Revision conflict on GitHub write",
			slog.String("path", path),
			slog.String("expectedRevision", expectedRevision.String()))
		return "", interfaces.ErrRevisionConflict
	case http.StatusNotFound:
		return "", interfaces.ErrDocumentNotFound
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: GitHub API error on write: %s, %s", interfaces.ErrStoreUnavailable, resp.Status, string(respBody))
	}

	var writeResp githubWriteResponse
	if err := json.NewDecoder(resp.Body).Decode(&writeResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode write response: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Wrote document to GitHub",
		slog.String("path", path),
		slog.String("revision", writeResp.Content.SHA))

	return interfaces.RevisionToken(writeResp.Content.SHA), nil
}

// Available checks if the repository is reachable with current credentials.
func (s *GitHubStore) Available(ctx context.Context) bool {
	url := fmt.Sprintf("%s/repos/%s/%s", s.baseURL, s.owner, s.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.log.Debug("Failed to create request", "err", err)
		return false
	}

	if err := s.authorize(ctx, req); err != nil {
		s.log.Debug("GitHub store unavailable", "err", err)
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("GitHub store unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Debug("GitHub store unavailable", slog.String("status", resp.Status))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (s *GitHubStore) Name() string {
	return fmt.Sprintf("github-%s-%s", s.owner, s.repo)
}

// LocationURI returns the URI that identifies this store.
func (s *GitHubStore) LocationURI() string {
	return s.locationURI
}

// SetBaseURL overrides the API base URL, for GitHub Enterprise and tests.
func (s *GitHubStore) SetBaseURL(baseURL string) {
	s.baseURL = strings.TrimSuffix(baseURL, "/")
}

func (s *GitHubStore) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.baseURL, s.owner, s.repo, path)
	if s.branch != "" && method == http.MethodGet {
		url = fmt.Sprintf("%s?ref=%s", url, s.branch)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "agreement-center")

	if err := s.authorize(ctx, req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *GitHubStore) authorize(ctx context.Context, req *http.Request) error {
	if s.credentials == nil {
		return nil
	}

	credential, err := s.credentials.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to obtain credential: %v", interfaces.ErrStoreUnavailable, err)
	}

	req.Header.Set("Authorization", "Bearer "+credential.Token)
	return nil
}
