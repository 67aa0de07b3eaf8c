package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"chainaudit/internal/audittrail/handler"
	"chainaudit/internal/audittrail/ledger"
	"chainaudit/internal/audittrail/lock"
	auditmetrics "chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
	"chainaudit/internal/audittrail/service"
	"chainaudit/internal/audittrail/store"
	"chainaudit/internal/audittrail/worker"
	"chainaudit/internal/platform/config"
	"chainaudit/internal/platform/errtrack"
	"chainaudit/internal/platform/httpserver"
	"chainaudit/internal/platform/kafka"
	"chainaudit/internal/platform/logger"
	"chainaudit/internal/platform/metrics"
	"chainaudit/internal/platform/postgres"
	"chainaudit/internal/platform/redis"
	"chainaudit/internal/platform/tracing"
	"chainaudit/pkg/platform/circuit"
)

const serviceName = "chainaudit"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/audittrail.
func main() {
	cfg, errs := config.Load(os.Getenv("CHAINAUDIT_CONFIG"))
	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if len(errs) > 0 {
		for _, err := range errs {
			log.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	log.Info("starting chainaudit", "version", version, "config", cfg.LogSummary())

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  serviceName,
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Insecure:     cfg.Tracing.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownWithTimeout(log, "tracing", tp.Shutdown)

	tracker, err := errtrack.New(cfg.Sentry, version)
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer tracker.Flush(2 * time.Second)

	schema, err := registry.LoadSchema(cfg.Audit.RegistryFile)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	rows := store.NewPostgres(db, schema)

	reg := metrics.NewRegistry()
	m := auditmetrics.NewWithRegistry(reg)
	checks := map[string]handler.HealthCheck{"postgres": db.PingContext}

	led, closeLedger, err := newLedger(ctx, cfg, m, log, checks)
	if err != nil {
		return err
	}
	defer closeLedger()

	locker, closeLocker, err := newLocker(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeLocker()

	tracked, err := registry.New(schema, rows)
	if err != nil {
		return err
	}
	builder, err := service.NewBuilder(rows, led, schema,
		service.WithBuilderLogger(log),
		service.WithBuilderMetrics(m),
	)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithLocker(locker),
		service.WithFailurePolicy(failurePolicy(cfg.Audit.FailurePolicy)),
		service.WithPatchPolicy(patchPolicy(cfg.Audit.PatchPolicy)),
	}
	if tracker != nil {
		opts = append(opts, service.WithErrorTracker(tracker))
	}

	var queue *worker.Worker
	if cfg.Audit.Async {
		queue = worker.New(cfg.Audit.AsyncBuffer,
			worker.WithLogger(log),
			worker.WithMetrics(m),
			worker.WithConcurrency(cfg.Audit.AsyncWorkers),
		)
		queue.Start()
		opts = append(opts, service.WithAsyncEntries(queue))
	}

	svc, err := service.New(tracked, builder, opts...)
	if err != nil {
		return err
	}
	provisioner, err := service.NewProvisioner(store.NewIdentityFactory(rows, schema), rows, schema,
		service.WithProvisionerLocker(locker),
		service.WithProvisionerLogger(log),
		service.WithProvisionerMetrics(m),
		service.WithProvisionerTx(rows.InTx),
	)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.New(svc, provisioner, log), reg, checks, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if queue != nil {
		g.Go(func() error {
			<-gctx.Done()
			// Drain after the server stops accepting requests.
			drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := queue.Close(drainCtx); err != nil {
				return fmt.Errorf("drain entry queue: %w", err)
			}
			log.Info("entry queue drained")
			return nil
		})
	}
	return g.Wait()
}

// newLedger builds the configured ledger behind a circuit breaker. The
// returned func releases backend connections.
func newLedger(ctx context.Context, cfg config.Config, m *auditmetrics.Metrics, log *slog.Logger, checks map[string]handler.HealthCheck) (ports.Ledger, func(), error) {
	codec, err := ledger.NewCodec(cfg.Ledger.Encoding)
	if err != nil {
		return nil, nil, err
	}

	var (
		next    ports.Ledger
		closeFn = func() {}
	)
	switch cfg.Ledger.Kind {
	case config.LedgerKafka:
		client, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka, log); err != nil {
			client.Close()
			return nil, nil, err
		}
		checks["kafka"] = func(ctx context.Context) error { return kafka.Health(ctx, client) }
		kl := ledger.NewKafka(client, cfg.Kafka.Topic, codec)
		chains, err := kl.RecoverHeads(ctx, kafka.NewReplayer(cfg.Kafka, client))
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("ledger chain heads recovered", "topic", cfg.Kafka.Topic, "chains", chains)
		next = kl
		closeFn = func() { flushAndClose(client, log) }
	case config.LedgerMemory:
		log.Warn("using in-memory ledger; entries are lost on restart")
		next = ledger.NewMemory(codec)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownLedger, cfg.Ledger.Kind)
	}

	cb := circuit.New(cfg.Ledger.Kind,
		circuit.WithFailureThreshold(cfg.Ledger.BreakerFailures),
		circuit.WithCooldown(cfg.Ledger.BreakerCooldown),
	)
	return ledger.NewBreaker(next, cfg.Ledger.Kind, cb,
		ledger.WithBreakerMetrics(m),
		ledger.WithBreakerLogger(log),
	), closeFn, nil
}

// newLocker uses redis when configured so several instances serialize on the
// same records, otherwise an in-process lock.
func newLocker(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]handler.HealthCheck) (ports.Locker, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("redis not configured; record locks are process-local")
		return lock.NewKeyed(lock.WithWait(cfg.Audit.LockWait)), func() {}, nil
	}
	checks["redis"] = client.Health
	locker := lock.NewRedis(client.Client,
		lock.WithTTL(cfg.Audit.LockTTL),
		lock.WithRedisWait(cfg.Audit.LockWait),
	)
	return locker, func() {
		if err := client.Close(); err != nil {
			log.Error("close redis", "error", err)
		}
	}, nil
}

func flushAndClose(client *kgo.Client, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Flush(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("flush kafka producer", "error", err)
	}
	client.Close()
}

func shutdownWithTimeout(log *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("shutdown failed", "component", name, "error", err)
	}
}

func failurePolicy(s string) service.FailurePolicy {
	if s == config.FailurePolicyPropagate {
		return service.FailurePolicyPropagate
	}
	return service.FailurePolicyLog
}

func patchPolicy(s string) service.PatchPolicy {
	if s == config.PatchPolicyAudit {
		return service.PatchPolicyAudit
	}
	return service.PatchPolicySkip
}
