// Package service turns record mutations into signed audit chain entries.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"chainaudit/internal/audittrail/lock"
	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
)

// FailurePolicy decides what Factomize does when the entry cannot be built.
type FailurePolicy int

const (
	// FailurePolicyLog records the failure and reports success to the caller.
	// Outcome.Status is still OutcomeFailed.
	FailurePolicyLog FailurePolicy = iota
	// FailurePolicyPropagate returns the build error from Factomize.
	FailurePolicyPropagate
)

// PatchPolicy decides whether PATCH produces an entry.
type PatchPolicy int

const (
	// PatchPolicySkip validates PATCH like any other method but builds no entry.
	PatchPolicySkip PatchPolicy = iota
	// PatchPolicyAudit treats PATCH like PUT, recorded with action PATCH.
	PatchPolicyAudit
)

// ModelRegistry resolves tracked model names.
type ModelRegistry interface {
	Resolve(name string) (registry.TrackedModel, bool)
}

// Queue runs entry builds off the request path.
type Queue interface {
	Submit(ctx context.Context, job func(ctx context.Context)) bool
}

type Service struct {
	registry      ModelRegistry
	builder       ports.EntryBuilder
	locker        ports.Locker
	tracker       ports.ErrorTracker
	queue         Queue
	metrics       *metrics.Metrics
	logger        *slog.Logger
	failurePolicy FailurePolicy
	patchPolicy   PatchPolicy
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocker replaces the in-process record lock, e.g. with a redis lock
// when several instances write the same records.
func WithLocker(locker ports.Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

func WithErrorTracker(tracker ports.ErrorTracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(s *Service) {
		s.failurePolicy = policy
	}
}

func WithPatchPolicy(policy PatchPolicy) Option {
	return func(s *Service) {
		s.patchPolicy = policy
	}
}

// WithAsyncEntries hands entry builds to queue; Factomize then reports
// OutcomeQueued instead of waiting for the ledger.
func WithAsyncEntries(queue Queue) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

func New(reg ModelRegistry, builder ports.EntryBuilder, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, fmt.Errorf("model registry is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("entry builder is required")
	}

	svc := &Service{
		registry: reg,
		builder:  builder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.locker == nil {
		svc.locker = lock.NewKeyed()
	}

	return svc, nil
}

func (s *Service) release(ctx context.Context, unlock ports.Unlock) {
	if unlock == nil {
		return
	}
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.logger.WarnContext(ctx, "failed to release record lock", "error", err)
	}
}
