package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/api"
	"github.com/agreement-center/agreement-backend/identity"
	"github.com/agreement-center/agreement-backend/interfaces"
	"github.com/agreement-center/agreement-backend/storage"
)

const (
	aliceToken = "token-alice"
	aliceID    = interfaces.PartyIdentity("alice@example.com")
)

type handlerFixture struct {
	store  *storage.MemoryStore
	router http.Handler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()

	sessions := identity.NewSessions(time.Hour)
	sessions.Put(aliceToken, aliceID)

	service := agreement.NewService(store, nil, logger)
	handler := NewHandler(service, sessions, logger)

	server, err := New(&HTTPServerConfig{
		ListenAddr: "127.0.0.1:0",
		Log:        logger,
	}, handler)
	require.NoError(t, err)

	return &handlerFixture{store: store, router: server.getRouter()}
}

func (f *handlerFixture) seedAgreement(t *testing.T, path interfaces.AgreementPath) {
	t.Helper()

	f.store.Seed(agreement.TextPath(path), []byte("# NDA"))
	f.store.Seed(agreement.InputsPath(path), []byte(`[{"ownerIdentity":"alice@example.com","value":null}]`))
	f.store.Seed(agreement.PermissionsPath(path), []byte(`{"viewerIdentities":["alice@example.com","bob@example.com"]}`))
	f.store.Seed(agreement.EventsPath(path), []byte(`{"alice@example.com":{"receive":{"timestamp":1,"encryptedLocation":null}}}`))
	f.store.Seed(agreement.IndexPath(aliceID), []byte(`["`+string(path)+`"]`))
}

func (f *handlerFixture) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set(api.AccessTokenHeader, token)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandlerRequiresToken(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/api/agreements", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var parsed api.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed.Message)
}

func TestHandlerUnknownToken(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/api/agreements", "bad-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestHandlerListAgreements(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	resp := f.do(t, http.MethodGet, "/api/agreements", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, aliceID.String(), resp.Header().Get(api.PartyIdentityHeader))

	var parsed api.ListResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, interfaces.AgreementPath("legal/nda"), parsed[0].Path)
	assert.Equal(t, agreement.StatusAwaitingYou, parsed[0].Status)
}

func TestHandlerGetAgreement(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	resp := f.do(t, http.MethodGet, "/api/agreements/legal/nda", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var parsed api.AgreementResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.Equal(t, "# NDA", parsed.Text)
	require.Len(t, parsed.Inputs, 1)
	assert.Equal(t, aliceID, parsed.Inputs[0].OwnerIdentity)
}

func TestHandlerGetAgreementNotFound(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	resp := f.do(t, http.MethodGet, "/api/agreements/legal/other", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The body does not reveal whether the agreement exists.
	var parsed api.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.Contains(t, parsed.Message, "doesn't exist or")
}

func TestHandlerSignFlow(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	// Signing before viewing fails the precondition.
	resp := f.do(t, http.MethodPut, "/api/agreements/legal/nda/sign", aliceToken, api.SignRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Opening in sign mode records the view.
	resp = f.do(t, http.MethodGet, "/api/agreements/legal/nda?mode=sign", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPut, "/api/agreements/legal/nda/sign", aliceToken, api.SignRequest{
		Updates: []agreement.InputUpdate{{Index: 0, Value: "Alice A."}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	// Re-signing is forbidden.
	resp = f.do(t, http.MethodPut, "/api/agreements/legal/nda/sign", aliceToken, api.SignRequest{})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHandlerUpdateInputs(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	resp := f.do(t, http.MethodPut, "/api/agreements/legal/nda/inputs", aliceToken, api.UpdateInputsRequest{
		Updates: []agreement.InputUpdate{{Index: 0, Value: "Alice A."}},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/agreements/legal/nda", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var parsed api.AgreementResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.Equal(t, "Alice A.", parsed.Inputs[0].Value)
}

func TestHandlerUpdateInputsMissingIndex(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	resp := f.do(t, http.MethodPut, "/api/agreements/legal/nda/inputs", aliceToken, api.UpdateInputsRequest{
		Updates: []agreement.InputUpdate{{Index: 5, Value: "x"}},
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandlerMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedAgreement(t, "legal/nda")

	req := httptest.NewRequest(http.MethodPut, "/api/agreements/legal/nda/inputs", bytes.NewReader([]byte("{not json")))
	req.Header.Set(api.AccessTokenHeader, aliceToken)

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandlerHealthEndpoints(t *testing.T) {
	f := newHandlerFixture(t)

	resp := f.do(t, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/drain", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = f.do(t, http.MethodGet, "/undrain", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}
