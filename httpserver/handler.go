package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/api"
	"github.com/agreement-center/agreement-backend/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler processes HTTP requests for the agreement service. It resolves
// the caller's identity, parses the payload, delegates to the service and
// maps the resulting error kind to a status code.
type Handler struct {
	service  *agreement.Service
	resolver interfaces.IdentityResolver
	log      *slog.Logger
}

// NewHandler creates an HTTP request handler.
func NewHandler(service *agreement.Service, resolver interfaces.IdentityResolver, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		resolver: resolver,
		log:      log,
	}
}

// HandleListAgreements returns every agreement the caller can see.
//
// URL format: GET /api/agreements
func (h *Handler) HandleListAgreements(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.ListAgreements(r.Context(), identity)
	if err != nil {
		h.writeError(w, "list agreements", err)
		return
	}

	h.writeJSON(w, identity, api.ListResponse(summaries))
}

// HandleGetAgreement returns an agreement's text, inputs and permissions.
// With ?mode=sign it also records a view event for the caller.
//
// URL format: GET /api/agreements/{project}/{agreement}?mode=sign
func (h *Handler) HandleGetAgreement(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	path, err := agreementPath(r)
	if err != nil {
		h.writeError(w, "get agreement", err)
		return
	}

	intent := agreement.IntentView
	if r.URL.Query().Get("mode") == api.SignQueryMode {
		intent = agreement.IntentSign
	}

	bundle, err := h.service.GetAgreement(r.Context(), identity, path, intent, requestOrigin(r))
	if err != nil {
		h.writeError(w, "get agreement", err)
		return
	}

	h.writeJSON(w, identity, api.AgreementResponse{
		Text:        bundle.Text,
		Inputs:      bundle.Inputs,
		Permissions: bundle.Permissions,
	})
}

// HandleUpdateInputs applies a batch of input value updates.
//
// URL format: PUT /api/agreements/{project}/{agreement}/inputs
func (h *Handler) HandleUpdateInputs(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	path, err := agreementPath(r)
	if err != nil {
		h.writeError(w, "update inputs", err)
		return
	}

	var req api.UpdateInputsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, "update inputs", err)
		return
	}

	if err := h.service.UpdateInputs(r.Context(), identity, path, req.Updates); err != nil {
		h.writeError(w, "update inputs", err)
		return
	}

	h.writeJSON(w, identity, map[string]bool{"success": true})
}

// HandleSignAgreement records the caller's signature after applying any
// final input updates.
//
// URL format: PUT /api/agreements/{project}/{agreement}/sign
func (h *Handler) HandleSignAgreement(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	path, err := agreementPath(r)
	if err != nil {
		h.writeError(w, "sign agreement", err)
		return
	}

	var req api.SignRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, "sign agreement", err)
		return
	}

	if err := h.service.SignAgreement(r.Context(), identity, path, req.Updates, requestOrigin(r)); err != nil {
		h.writeError(w, "sign agreement", err)
		return
	}

	h.writeJSON(w, identity, map[string]bool{"success": true})
}

// authenticate resolves the caller's identity from the access-token
// header, answering 401 itself when resolution fails.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (interfaces.PartyIdentity, bool) {
	identity, err := h.resolver.Resolve(r.Context(), r.Header.Get(api.AccessTokenHeader))
	if err != nil {
		h.writeError(w, "authenticate", err)
		return "", false
	}
	return identity, true
}

// writeError maps an error to its transport status code. Anything without
// a recognized kind is logged and reported as unavailable without internal
// detail.
func (h *Handler) writeError(w http.ResponseWriter, operation string, err error) {
	kind := interfaces.KindOf(err)

	message := err.Error()
	var typed *interfaces.Error
	if !errors.As(err, &typed) {
		// Untyped errors may carry internal detail; log them and answer
		// with a generic message.
		h.log.Error("Request failed with internal error", "err", err, slog.String("operation", operation))
		message = "service unavailable"
	} else if kind == interfaces.KindUnavailable {
		h.log.Error("Request failed with upstream error", "err", err, slog.String("operation", operation))
		message = typed.Message
	} else {
		h.log.Info("Request rejected",
			slog.String("operation", operation),
			slog.String("kind", kind.String()),
			slog.String("message", message))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(api.StatusCode(kind))
	json.NewEncoder(w).Encode(api.ErrorResponse{Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, identity interfaces.PartyIdentity, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(api.PartyIdentityHeader, identity.String())
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// agreementPath builds the validated agreement path from the URL.
func agreementPath(r *http.Request) (interfaces.AgreementPath, error) {
	raw := fmt.Sprintf("%s/%s", chi.URLParam(r, "project"), chi.URLParam(r, "agreement"))
	path, err := interfaces.NewAgreementPath(raw)
	if err != nil {
		return "", interfaces.BadRequestError("%v", err)
	}
	return path, nil
}

// decodeBody parses a JSON request body with a size cap.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return interfaces.BadRequestError("failed to read request body")
	}

	if err := json.Unmarshal(body, v); err != nil {
		return interfaces.BadRequestError("malformed request body")
	}
	return nil
}

// requestOrigin extracts the caller's network origin, recorded (encrypted)
// in view and sign events.
func requestOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
