package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/api"
	"github.com/agreement-center/agreement-backend/interfaces"
)

// AgreementClient implements api.AgreementProvider over HTTP. Every request
// carries the configured access token, which the server resolves to a party
// identity.
type AgreementClient struct {
	// ServerAddr is the base URL of the agreement server.
	ServerAddr string

	// AccessToken authenticates the caller on every request.
	AccessToken string

	// HTTPClient is used for requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// GetAgreement fetches an agreement's text, inputs and permissions. With
// IntentSign the server also records a view event for the caller.
func (c *AgreementClient) GetAgreement(path interfaces.AgreementPath, intent agreement.Intent) (*api.AgreementResponse, error) {
	url := fmt.Sprintf("%s/api/agreements/%s", c.ServerAddr, path)
	if intent == agreement.IntentSign {
		url += "?mode=" + api.SignQueryMode
	}

	var parsed api.AgreementResponse
	if err := c.doJSON(http.MethodGet, url, nil, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ListAgreements fetches the caller's agreement list with per-agreement
// status.
func (c *AgreementClient) ListAgreements() (api.ListResponse, error) {
	url := fmt.Sprintf("%s/api/agreements", c.ServerAddr)

	var parsed api.ListResponse
	if err := c.doJSON(http.MethodGet, url, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

// UpdateInputs submits a batch of input value updates.
func (c *AgreementClient) UpdateInputs(path interfaces.AgreementPath, updates []agreement.InputUpdate) error {
	url := fmt.Sprintf("%s/api/agreements/%s/inputs", c.ServerAddr, path)
	return c.doJSON(http.MethodPut, url, api.UpdateInputsRequest{Updates: updates}, nil)
}

// SignAgreement records the caller's signature, applying any final input
// updates first.
func (c *AgreementClient) SignAgreement(path interfaces.AgreementPath, updates []agreement.InputUpdate) error {
	url := fmt.Sprintf("%s/api/agreements/%s/sign", c.ServerAddr, path)
	return c.doJSON(http.MethodPut, url, api.SignRequest{Updates: updates}, nil)
}

// doJSON issues a request with an optional JSON body and decodes the
// response into out when it is non-nil. Non-200 responses are turned back
// into typed errors using the status code mapping, so callers can classify
// remote failures the same way as local ones.
func (c *AgreementClient) doJSON(method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}

	req.Header.Set(api.AccessTokenHeader, c.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach agreement server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

// remoteError rebuilds a typed error from an error response body.
func remoteError(resp *http.Response) error {
	kind := api.KindFromStatus(resp.StatusCode)

	var parsed api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Message == "" {
		return &interfaces.Error{Kind: kind, Message: fmt.Sprintf("agreement server returned status %d", resp.StatusCode)}
	}
	return &interfaces.Error{Kind: kind, Message: parsed.Message}
}

// MockAgreementProvider implements a mock AgreementProvider for testing.
type MockAgreementProvider struct {
	mock.Mock
}

// GetAgreement implements the AgreementProvider interface for testing.
func (m *MockAgreementProvider) GetAgreement(path interfaces.AgreementPath, intent agreement.Intent) (*api.AgreementResponse, error) {
	args := m.Called(path, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AgreementResponse), args.Error(1)
}

// ListAgreements implements the AgreementProvider interface for testing.
func (m *MockAgreementProvider) ListAgreements() (api.ListResponse, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(api.ListResponse), args.Error(1)
}

// UpdateInputs implements the AgreementProvider interface for testing.
func (m *MockAgreementProvider) UpdateInputs(path interfaces.AgreementPath, updates []agreement.InputUpdate) error {
	args := m.Called(path, updates)
	return args.Error(0)
}

// SignAgreement implements the AgreementProvider interface for testing.
func (m *MockAgreementProvider) SignAgreement(path interfaces.AgreementPath, updates []agreement.InputUpdate) error {
	args := m.Called(path, updates)
	return args.Error(0)
}
