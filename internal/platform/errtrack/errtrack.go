// Package errtrack forwards audit failures to Sentry.
package errtrack

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"chainaudit/internal/platform/config"
	"chainaudit/pkg/requestcontext"
)

// Sentry implements the audit service's error tracker.
type Sentry struct {
	hub *sentry.Hub
}

// New initialises a Sentry client. It returns nil, nil without a DSN so the
// tracker stays optional.
func New(cfg config.Sentry, release string) (*Sentry, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  sampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return NewWithHub(sentry.NewHub(client, sentry.NewScope())), nil
}

// NewWithHub wraps an existing hub. Tests pass a hub with a recording transport.
func NewWithHub(hub *sentry.Hub) *Sentry {
	return &Sentry{hub: hub}
}

// Capture reports err with tags and the request id of ctx.
func (s *Sentry) Capture(ctx context.Context, err error, tags map[string]string) {
	if s == nil || err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if reqID := requestcontext.RequestID(ctx); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		s.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events to be sent.
func (s *Sentry) Flush(timeout time.Duration) bool {
	if s == nil {
		return true
	}
	return s.hub.Flush(timeout)
}
