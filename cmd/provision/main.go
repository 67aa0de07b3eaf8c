// Command provision creates audited identities, or the missing audit chain of
// an existing identity, directly against the configured store.
//
//	provision -n 3
//	provision -identity 5f0c...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"chainaudit/internal/audittrail/handler"
	"chainaudit/internal/audittrail/lock"
	"chainaudit/internal/audittrail/registry"
	"chainaudit/internal/audittrail/service"
	"chainaudit/internal/audittrail/store"
	"chainaudit/internal/platform/config"
	"chainaudit/internal/platform/logger"
	"chainaudit/internal/platform/postgres"
	"chainaudit/internal/platform/redis"
)

func main() {
	configPath := flag.String("config", os.Getenv("CHAINAUDIT_CONFIG"), "path to the YAML config file")
	count := flag.Int("n", 1, "number of audited identities to create")
	identityID := flag.String("identity", "", "provision the audit chain of this existing identity instead")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	log := logger.New(os.Stderr, cfg.Log.Level, "text")
	if len(errs) > 0 {
		for _, err := range errs {
			log.Error("invalid configuration", "error", err)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, *count, *identityID); err != nil {
		log.Error("provisioning failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, count int, identityID string) error {
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

	opts := []service.ProvisionerOption{
		service.WithProvisionerLogger(log),
		service.WithProvisionerTx(rows.InTx),
	}
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
		opts = append(opts, service.WithProvisionerLocker(lock.NewRedis(client.Client, lock.WithTTL(cfg.Audit.LockTTL))))
	}

	provisioner, err := service.NewProvisioner(store.NewIdentityFactory(rows, schema), rows, schema, opts...)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	if identityID != "" {
		chain, created, err := provisioner.ProvisionAuditChain(ctx, identityID)
		if err != nil {
			return err
		}
		log.Info("audit chain ready", "identity_id", identityID, "created", created)
		return out.Encode(handler.FromChain(chain))
	}

	if count < 1 {
		return fmt.Errorf("-n must be at least 1, got %d", count)
	}
	for range count {
		identity, chain, err := provisioner.CreateAuditedIdentity(ctx)
		if err != nil {
			return err
		}
		if err := out.Encode(handler.FromIdentity(identity, chain)); err != nil {
			return err
		}
	}
	return nil
}
