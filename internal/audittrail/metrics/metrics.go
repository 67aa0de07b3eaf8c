package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FactomizeTotal     *prometheus.CounterVec
	EntryBuildFailures *prometheus.CounterVec
	EntryBuildDuration prometheus.Histogram
	LedgerAppends      *prometheus.CounterVec
	LedgerBreakerOpen  prometheus.Gauge
	AsyncQueueDepth    prometheus.Gauge
	IdentitiesCreated  prometheus.Counter
	AuditChainsCreated prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FactomizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainaudit_factomize_total",
			Help: "Factomize calls by method and result (outcome status or error code)",
		}, []string{"method", "result"}),
		EntryBuildFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainaudit_entry_build_failures_total",
			Help: "Entry builds that failed, by error code",
		}, []string{"code"}),
		EntryBuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainaudit_entry_build_duration_seconds",
			Help:    "Time spent resolving owner, identity and chain and appending the entry",
			Buckets: prometheus.DefBuckets,
		}),
		LedgerAppends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainaudit_ledger_appends_total",
			Help: "Ledger appends by backend and result",
		}, []string{"backend", "result"}),
		LedgerBreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "chainaudit_ledger_breaker_open",
			Help: "1 while the ledger circuit breaker rejects appends",
		}),
		AsyncQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "chainaudit_async_queue_depth",
			Help: "Entry build jobs waiting in the async worker inbox",
		}),
		IdentitiesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "chainaudit_identities_created_total",
			Help: "Identities created through the identity factory",
		}),
		AuditChainsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "chainaudit_audit_chains_created_total",
			Help: "Audit chains provisioned for identities",
		}),
	}
}

func (m *Metrics) RecordFactomize(method, result string) {
	m.FactomizeTotal.WithLabelValues(method, result).Inc()
}

func (m *Metrics) RecordBuild(start time.Time, failureCode string) {
	m.EntryBuildDuration.Observe(time.Since(start).Seconds())
	if failureCode != "" {
		m.EntryBuildFailures.WithLabelValues(failureCode).Inc()
	}
}

func (m *Metrics) RecordLedgerAppend(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.LedgerAppends.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.LedgerBreakerOpen.Set(1)
		return
	}
	m.LedgerBreakerOpen.Set(0)
}

func (m *Metrics) SetQueueDepth(n int) {
	m.AsyncQueueDepth.Set(float64(n))
}

func (m *Metrics) IncrementIdentitiesCreated() {
	m.IdentitiesCreated.Inc()
}

func (m *Metrics) IncrementAuditChainsCreated() {
	m.AuditChainsCreated.Inc()
}
