package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/pkg/platform/circuit"
	"chainaudit/pkg/platform/sentinel"
)

// Breaker stops hammering a failing ledger backend. Request errors (bad keys,
// missing chain id) do not count as backend failures.
type Breaker struct {
	next    ports.Ledger
	backend string
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type BreakerOption func(*Breaker)

func WithBreakerMetrics(m *metrics.Metrics) BreakerOption {
	return func(b *Breaker) {
		b.metrics = m
	}
}

func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// NewBreaker wraps next. backend labels metrics and logs.
func NewBreaker(next ports.Ledger, backend string, cb *circuit.Breaker, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		next:    next,
		backend: backend,
		breaker: cb,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) AppendEntry(ctx context.Context, req models.AppendRequest) (models.Entry, error) {
	if !b.breaker.Allow() {
		return models.Entry{}, fmt.Errorf("ledger %s: circuit open: %w", b.backend, sentinel.ErrUnavailable)
	}

	entry, err := b.next.AppendEntry(ctx, req)
	if b.metrics != nil {
		b.metrics.RecordLedgerAppend(b.backend, err)
	}

	switch {
	case err == nil:
		if _, change := b.breaker.RecordSuccess(); change.Closed {
			b.logger.InfoContext(ctx, "ledger circuit closed", "backend", b.backend)
			b.setOpen(false)
		}
	case isRequestError(err):
	default:
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.logger.WarnContext(ctx, "ledger circuit opened", "backend", b.backend, "error", err)
			b.setOpen(true)
		}
	}
	return entry, err
}

func (b *Breaker) setOpen(open bool) {
	if b.metrics != nil {
		b.metrics.SetBreakerOpen(open)
	}
}

func isRequestError(err error) bool {
	return errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrInvalidRequest)
}
