package handler

import (
	"strings"

	dErrors "chainaudit/pkg/domain-errors"
)

// FactomizeRequest is the body of POST /v1/factomize.
type FactomizeRequest struct {
	Model      string         `json:"model"`
	Body       map[string]any `json:"body"`
	Method     string         `json:"method"`
	ForeignKey string         `json:"foreign_key"`
	CurrentID  string         `json:"current_id"`
}

// Validate trims identifiers. Method and model are checked by the service so
// that their error kinds stay identical for HTTP and in-process callers.
func (r *FactomizeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Model = strings.TrimSpace(r.Model)
	r.Method = strings.TrimSpace(r.Method)
	r.ForeignKey = strings.TrimSpace(r.ForeignKey)
	r.CurrentID = strings.TrimSpace(r.CurrentID)
	if len(r.Model) > 128 || len(r.ForeignKey) > 128 || len(r.CurrentID) > 256 {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier too long")
	}
	return nil
}
