// Package api defines the transport contract of the agreement service:
// request/response bodies, header names, and the mapping from error kinds
// to HTTP status codes. The route layer and the typed client both build on
// it.
package api

import (
	"net/http"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/interfaces"
)

// Header constants used in HTTP requests and responses.
const (
	// AccessTokenHeader carries the caller's session token, resolved to a
	// party identity on every request.
	AccessTokenHeader = "Access-Token"

	// PartyIdentityHeader echoes the resolved identity back to the caller.
	PartyIdentityHeader = "Party-Identity"
)

// SignQueryMode is the query value that requests a view event alongside an
// agreement read.
const SignQueryMode = "sign"

// AgreementResponse is the body returned by the get-agreement endpoint.
type AgreementResponse struct {
	Text        string                `json:"text"`
	Inputs      agreement.Inputs      `json:"inputs"`
	Permissions agreement.Permissions `json:"permissions"`
}

// ListResponse is the body returned by the list-agreements endpoint.
type ListResponse []agreement.Summary

// UpdateInputsRequest is the body accepted by the update-inputs endpoint.
type UpdateInputsRequest struct {
	Updates []agreement.InputUpdate `json:"updates"`
}

// SignRequest is the body accepted by the sign endpoint.
type SignRequest struct {
	Updates []agreement.InputUpdate `json:"updates"`
}

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
}

// AgreementProvider is the caller-side surface of the agreement API. The
// party identity is resolved server-side from the access token carried by
// the implementation, so no method takes one.
type AgreementProvider interface {
	GetAgreement(path interfaces.AgreementPath, intent agreement.Intent) (*AgreementResponse, error)
	ListAgreements() (ListResponse, error)
	UpdateInputs(path interfaces.AgreementPath, updates []agreement.InputUpdate) error
	SignAgreement(path interfaces.AgreementPath, updates []agreement.InputUpdate) error
}

// StatusCode maps an error kind to its transport status code.
func StatusCode(kind interfaces.ErrorKind) int {
	switch kind {
	case interfaces.KindNotFound:
		return http.StatusNotFound
	case interfaces.KindForbidden:
		return http.StatusForbidden
	case interfaces.KindBadRequest:
		return http.StatusBadRequest
	case interfaces.KindConflict:
		return http.StatusConflict
	case interfaces.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}

// KindFromStatus is the inverse mapping, used by the typed client.
func KindFromStatus(status int) interfaces.ErrorKind {
	switch status {
	case http.StatusNotFound:
		return interfaces.KindNotFound
	case http.StatusForbidden:
		return interfaces.KindForbidden
	case http.StatusBadRequest:
		return interfaces.KindBadRequest
	case http.StatusConflict:
		return interfaces.KindConflict
	case http.StatusUnauthorized:
		return interfaces.KindUnauthorized
	default:
		return interfaces.KindUnavailable
	}
}
