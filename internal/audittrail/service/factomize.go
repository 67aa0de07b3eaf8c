package service

import (
	"context"
	"fmt"

	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
	id "chainaudit/pkg/domain"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/requestcontext"
)

// Request describes one mutation of a tracked record.
type Request struct {
	Model  string
	Body   map[string]any
	Method string
	// ForeignKey names the field pointing at the owner. Empty falls back to
	// the registry's configured key for Model.
	ForeignKey string
	// CurrentID is the id of the mutated record. PUT rejects a missing id
	// outright; DELETE and PATCH fail the stored-record lookup without it.
	CurrentID string
}

// Factomize validates a mutation and appends one entry to the audit chain of
// the identity owning the record. Validation errors are returned as-is and
// always precede any entry side effect. What happens to build failures
// depends on the FailurePolicy.
func (s *Service) Factomize(ctx context.Context, req Request) (models.Outcome, error) {
	outcome, err := s.factomize(ctx, req)
	if s.metrics != nil {
		result := string(outcome.Status)
		if err != nil {
			result = string(dErrors.CodeOf(err))
		}
		s.metrics.RecordFactomize(methodLabel(req.Method), result)
	}
	if err != nil {
		s.logger.DebugContext(ctx, "factomize rejected",
			"request_id", requestcontext.RequestID(ctx),
			"model", req.Model,
			"method", req.Method,
			"error", err,
		)
	}
	return outcome, err
}

func (s *Service) factomize(ctx context.Context, req Request) (models.Outcome, error) {
	method, err := id.ParseMethod(req.Method)
	if err != nil {
		return models.Outcome{}, err
	}

	model, ok := s.registry.Resolve(req.Model)
	if !ok {
		return models.Outcome{}, dErrors.New(dErrors.CodeInvalidModel, fmt.Sprintf("model %q is not registered", req.Model))
	}

	fk := req.ForeignKey
	if fk == "" {
		fk = model.ForeignKey()
	}

	reassignable := s.reassignable(method)
	if method.ReadsStoredRecord() && req.CurrentID == "" {
		if reassignable {
			return models.Outcome{}, ErrInvalidCurrentModelID
		}
		// No id means no stored record to read the owner from.
		return models.Outcome{}, dErrors.New(dErrors.CodeInvalidModel, fmt.Sprintf("cannot load %s without a record id", model.Name()))
	}
	if reassignable && fk == "" {
		return models.Outcome{}, ErrInvalidIdentityModelFK
	}

	if method == id.MethodPost {
		ownerID := models.StringValue(req.Body[fk])
		if fk == "" || ownerID == "" {
			return models.Outcome{}, ErrIdentityModelFKNotValid
		}
		return s.dispatch(ctx, model, method, ownerID, req.Body, nil)
	}

	if fk == "" {
		return models.Outcome{}, ErrIdentityModelFKNotValid
	}

	unlock, err := s.locker.Lock(ctx, lockKey(model.Name(), req.CurrentID))
	if err != nil {
		return models.Outcome{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock record")
	}
	handedOff := false
	defer func() {
		if !handedOff {
			s.release(ctx, unlock)
		}
	}()

	stored, present, err := s.resolveForeignKey(ctx, model, req.CurrentID, fk)
	if err != nil {
		return models.Outcome{}, err
	}
	if reassignable && !present {
		return models.Outcome{}, ErrInvalidIdentityModelFK
	}
	if stored == "" {
		return models.Outcome{}, ErrIdentityModelFKNotValid
	}

	switch {
	case reassignable:
		ownerID := stored
		if raw, ok := req.Body[fk]; ok {
			if next := models.StringValue(raw); next != stored {
				ownerID = next
			}
		}
		handedOff = true
		return s.dispatch(ctx, model, method, ownerID, req.Body, unlock)
	case method == id.MethodDelete:
		handedOff = true
		return s.dispatch(ctx, model, method, stored, map[string]any{"id": req.CurrentID}, unlock)
	default:
		return models.Outcome{Status: models.OutcomeSkipped, OwnerID: stored, Action: method}, nil
	}
}

// reassignable reports whether the method may re-point the record at another
// owner, so the entry follows the owner named in the body.
func (s *Service) reassignable(method id.Method) bool {
	return method == id.MethodPut || (method == id.MethodPatch && s.patchPolicy == PatchPolicyAudit)
}

// dispatch builds the entry inline or queues it. It takes ownership of unlock.
func (s *Service) dispatch(ctx context.Context, model registry.TrackedModel, method id.Method, ownerID string, payload any, unlock ports.Unlock) (models.Outcome, error) {
	req := models.BuildRequest{
		OwnerID:    ownerID,
		OwnerModel: model.OwnerModel(),
		Content:    models.EntryContent{Record: payload, Action: method},
	}
	outcome := models.Outcome{OwnerID: ownerID, Action: method}

	if s.queue != nil {
		job := func(jobCtx context.Context) {
			defer s.release(jobCtx, unlock)
			if _, err := s.builder.BuildEntry(jobCtx, req); err != nil {
				s.reportFailure(jobCtx, req, err)
			}
		}
		if s.queue.Submit(context.WithoutCancel(ctx), job) {
			outcome.Status = models.OutcomeQueued
			return outcome, nil
		}
		s.release(ctx, unlock)
		return s.failed(ctx, outcome, req, ErrQueueFull)
	}

	defer s.release(ctx, unlock)
	if _, err := s.builder.BuildEntry(ctx, req); err != nil {
		return s.failed(ctx, outcome, req, err)
	}
	outcome.Status = models.OutcomeAppended
	return outcome, nil
}

func (s *Service) failed(ctx context.Context, outcome models.Outcome, req models.BuildRequest, err error) (models.Outcome, error) {
	s.reportFailure(ctx, req, err)
	outcome.Status = models.OutcomeFailed
	outcome.Err = err
	if s.failurePolicy == FailurePolicyPropagate {
		return outcome, err
	}
	return outcome, nil
}

func (s *Service) reportFailure(ctx context.Context, req models.BuildRequest, err error) {
	code := dErrors.CodeOf(err)
	s.logger.ErrorContext(ctx, "audit entry not appended",
		"request_id", requestcontext.RequestID(ctx),
		"owner_model", req.OwnerModel,
		"owner_id", req.OwnerID,
		"action", req.Content.Action,
		"code", code,
		"error", err,
	)
	if s.tracker != nil {
		s.tracker.Capture(ctx, err, map[string]string{
			"owner_model": req.OwnerModel,
			"action":      req.Content.Action.String(),
			"code":        string(code),
		})
	}
}

func lockKey(model, recordID string) string {
	return model + ":" + recordID
}

func methodLabel(raw string) string {
	method, err := id.ParseMethod(raw)
	if err != nil {
		return "invalid"
	}
	return method.String()
}
