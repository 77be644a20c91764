// Package credentials implements the upstream credential provider for the
// content repository: short-lived GitHub App installation tokens, minted
// on demand and cached until shortly before expiry.
package credentials

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agreement-center/agreement-backend/interfaces"
)

// appJWTLifetime is how long the minted app JWT is valid. It only needs to
// survive the two API calls of the token exchange.
const appJWTLifetime = time.Minute

// GitHubAppProvider mints installation access tokens for a GitHub App.
// The app JWT is signed RS256 with the app's private key; the resulting
// installation token is what the document store sends to the contents API.
type GitHubAppProvider struct {
	clientID  string
	accountID int64
	key       *rsa.PrivateKey
	client    *http.Client
	baseURL   string
	log       *slog.Logger

	// now is the clock used for JWT claims, replaceable in tests.
	now func() time.Time
}

// NewGitHubAppProvider creates a provider for the app identified by
// clientID, scoped to the installation on the account with accountID.
// privateKeyPEM is the app's RSA signing key in PKCS#1 or PKCS#8 PEM form.
func NewGitHubAppProvider(clientID string, accountID int64, privateKeyPEM []byte, log *slog.Logger) (*GitHubAppProvider, error) {
	key, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	return &GitHubAppProvider{
		clientID:  clientID,
		accountID: accountID,
		key:       key,
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   "https://api.github.com",
		log:       log,
		now:       time.Now,
	}, nil
}

// SetBaseURL overrides the API base URL, for GitHub Enterprise and tests.
func (p *GitHubAppProvider) SetBaseURL(baseURL string) {
	p.baseURL = strings.TrimSuffix(baseURL, "/")
}

// SetClock replaces the JWT claim clock, for tests.
func (p *GitHubAppProvider) SetClock(now func() time.Time) {
	p.now = now
}

// GetToken mints a fresh installation access token.
func (p *GitHubAppProvider) GetToken(ctx context.Context) (interfaces.Credential, error) {
	appJWT, err := p.mintAppJWT()
	if err != nil {
		return interfaces.Credential{}, err
	}

	installationID, err := p.findInstallation(ctx, appJWT)
	if err != nil {
		return interfaces.Credential{}, err
	}

	credential, err := p.createInstallationToken(ctx, appJWT, installationID)
	if err != nil {
		return interfaces.Credential{}, err
	}

	p.log.Debug("Minted installation access token",
		slog.Int64("installationID", installationID),
		slog.Time("expiresAt", credential.ExpiresAt))

	return credential, nil
}

// mintAppJWT builds and signs the RS256 app JWT. The claims are the
// standard GitHub App triplet: issuer, issued-at (backdated a little for
// clock skew) and expiry.
func (p *GitHubAppProvider) mintAppJWT() (string, error) {
	now := p.now()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}

	claims, err := json.Marshal(map[string]any{
		"iss": p.clientID,
		"iat": now.Add(-30 * time.Second).Unix(),
		"exp": now.Add(appJWTLifetime).Unix(),
	})
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(claims)

	digest := sha256.Sum256([]byte(signingInput))
	signature, err := rsa.SignPKCS1v15(rand.Reader, p.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign app JWT: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// findInstallation returns the ID of the app installation on the
// configured account.
func (p *GitHubAppProvider) findInstallation(ctx context.Context, appJWT string) (int64, error) {
	var installations []struct {
		ID      int64 `json:"id"`
		Account struct {
			ID int64 `json:"id"`
		} `json:"account"`
	}

	if err := p.doJSON(ctx, http.MethodGet, "/app/installations", appJWT, nil, &installations); err != nil {
		return 0, err
	}

	for _, installation := range installations {
		if installation.Account.ID == p.accountID {
			return installation.ID, nil
		}
	}

	return 0, fmt.Errorf("no installation found for account %d", p.accountID)
}

// createInstallationToken exchanges the app JWT for an installation access
// token.
func (p *GitHubAppProvider) createInstallationToken(ctx context.Context, appJWT string, installationID int64) (interfaces.Credential, error) {
	var tokenResp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	path := fmt.Sprintf("/app/installations/%d/access_tokens", installationID)
	if err := p.doJSON(ctx, http.MethodPost, path, appJWT, []byte("{}"), &tokenResp); err != nil {
		return interfaces.Credential{}, err
	}

	if tokenResp.Token == "" {
		return interfaces.Credential{}, errors.New("malformed token response from GitHub")
	}

	return interfaces.Credential{Token: tokenResp.Token, ExpiresAt: tokenResp.ExpiresAt}, nil
}

// doJSON performs an authenticated API call and decodes the JSON response.
func (p *GitHubAppProvider) doJSON(ctx context.Context, method, path, appJWT string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "agreement-center")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach GitHub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitHub returned %d for %s: %s", resp.StatusCode, path, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response from GitHub: %w", err)
	}

	return nil
}

// parseRSAPrivateKey accepts PKCS#1 and PKCS#8 PEM encodings.
func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("failed to decode private key PEM")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}

	return key, nil
}
