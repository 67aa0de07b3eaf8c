// Package httputil writes JSON responses and maps coded errors to HTTP status.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "chainaudit/pkg/domain-errors"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes an error body. Internal errors
// never leak their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := errorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// StatusFor returns the HTTP status for a code.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeInvalidHTTPMethod:
		return http.StatusBadRequest
	case dErrors.CodeInvalidModel,
		dErrors.CodeIdentityModelFKNotValid,
		dErrors.CodeInvalidCurrentModelID,
		dErrors.CodeInvalidIdentityModelFK:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNotFound, dErrors.CodeOwnerNotFound, dErrors.CodeIdentityNotFound, dErrors.CodeMissingAuditChain:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeAmbiguousAuditChain:
		return http.StatusConflict
	case dErrors.CodeUnavailable, dErrors.CodeQueueFull:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
