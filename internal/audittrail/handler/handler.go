// Package handler exposes the audit service over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Factomizer,IdentityProvisioner

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/service"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/httputil"
	"chainaudit/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Factomizer records one mutation.
type Factomizer interface {
	Factomize(ctx context.Context, req service.Request) (models.Outcome, error)
}

// IdentityProvisioner creates identities and their audit chains.
type IdentityProvisioner interface {
	CreateAuditedIdentity(ctx context.Context) (models.Identity, models.Chain, error)
	ProvisionAuditChain(ctx context.Context, identityID string) (models.Chain, bool, error)
}

type Handler struct {
	factomizer  Factomizer
	provisioner IdentityProvisioner
	logger      *slog.Logger
}

func New(factomizer Factomizer, provisioner IdentityProvisioner, logger *slog.Logger) *Handler {
	return &Handler{
		factomizer:  factomizer,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Register mounts the audit endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/factomize", h.HandleFactomize)
	r.Post("/identities", h.HandleCreateIdentity)
	r.Put("/identities/{identityID}/audit-chain", h.HandleProvisionAuditChain)
}

// HandleFactomize handles POST /v1/factomize. A queued entry answers 202;
// every other outcome, including a logged build failure, answers 200.
func (h *Handler) HandleFactomize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FactomizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.factomizer.Factomize(ctx, service.Request{
		Model:      req.Model,
		Body:       req.Body,
		Method:     req.Method,
		ForeignKey: req.ForeignKey,
		CurrentID:  req.CurrentID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == models.OutcomeQueued {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, FromOutcome(outcome))
}

// HandleCreateIdentity handles POST /v1/identities.
func (h *Handler) HandleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, chain, err := h.provisioner.CreateAuditedIdentity(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "identity creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromIdentity(identity, chain))
}

// HandleProvisionAuditChain handles PUT /v1/identities/{identityID}/audit-chain.
// It is idempotent: 201 when the chain was created, 200 when it existed.
func (h *Handler) HandleProvisionAuditChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chain, created, err := h.provisioner.ProvisionAuditChain(ctx, chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, FromChain(chain))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req *FactomizeRequest) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	// Keep numeric ids exact; float64 rounds anything above 2^53.
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		h.logger.DebugContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid json request body"))
		return false
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return false
	}
	return true
}
