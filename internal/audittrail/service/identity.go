package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chainaudit/internal/audittrail/lock"
	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/sentinel"
)

// Provisioner creates identities and guarantees each has exactly one audit
// chain.
type Provisioner struct {
	factory ports.IdentityFactory
	repo    ports.Repository
	locker  ports.Locker
	ident   registry.Named
	chain   registry.Named
	metrics *metrics.Metrics
	logger  *slog.Logger
	inTx    TxRunner
}

// TxRunner runs fn atomically against the store.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type ProvisionerOption func(*Provisioner)

func WithProvisionerLocker(locker ports.Locker) ProvisionerOption {
	return func(p *Provisioner) {
		p.locker = locker
	}
}

func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

func WithProvisionerMetrics(m *metrics.Metrics) ProvisionerOption {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

// WithProvisionerTx makes CreateAuditedIdentity commit the identity and its
// audit chain together.
func WithProvisionerTx(run TxRunner) ProvisionerOption {
	return func(p *Provisioner) {
		p.inTx = run
	}
}

func NewProvisioner(factory ports.IdentityFactory, repo ports.Repository, schema registry.Schema, opts ...ProvisionerOption) (*Provisioner, error) {
	if factory == nil {
		return nil, fmt.Errorf("identity factory is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	p := &Provisioner{
		factory: factory,
		repo:    repo,
		ident:   schema.Identity,
		chain:   schema.Chain,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.locker == nil {
		p.locker = lock.NewKeyed()
	}
	if p.inTx == nil {
		p.inTx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	return p, nil
}

// CreateIdentity creates a new identity with a fresh signing key pair.
func (p *Provisioner) CreateIdentity(ctx context.Context) (models.Identity, error) {
	identity, err := p.factory.CreateIdentity(ctx)
	if err != nil {
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}
	if p.metrics != nil {
		p.metrics.IncrementIdentitiesCreated()
	}
	p.logger.InfoContext(ctx, "identity created", "identity_id", identity.ID, "chain_id", identity.ChainID)
	return identity, nil
}

// ProvisionAuditChain returns the identity's audit chain, creating it when
// none exists. created reports whether a chain was inserted. An unknown
// identity is not_found; one that already has several audit chains is
// rejected rather than repaired.
func (p *Provisioner) ProvisionAuditChain(ctx context.Context, identityID string) (models.Chain, bool, error) {
	if identityID == "" {
		return models.Chain{}, false, dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	if _, err := p.repo.FindByID(ctx, p.ident.Name, identityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Chain{}, false, dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("identity %q not found", identityID))
		}
		return models.Chain{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return p.provisionChain(ctx, identityID)
}

// provisionChain is ProvisionAuditChain for an identity known to exist.
func (p *Provisioner) provisionChain(ctx context.Context, identityID string) (chain models.Chain, created bool, err error) {
	unlock, err := p.locker.Lock(ctx, "identity:"+identityID)
	if err != nil {
		return models.Chain{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to lock identity")
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			p.logger.WarnContext(ctx, "failed to release identity lock", "identity_id", identityID, "error", uerr)
		}
	}()

	existing, err := findAuditChain(ctx, p.repo, p.chain, identityID)
	switch {
	case err == nil:
		return existing, false, nil
	case !dErrors.HasCode(err, dErrors.CodeMissingAuditChain):
		return models.Chain{}, false, err
	}

	chain, err = p.factory.CreateChain(ctx, identityID, models.AuditChainContent)
	if err != nil {
		return models.Chain{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create audit chain")
	}
	if p.metrics != nil {
		p.metrics.IncrementAuditChainsCreated()
	}
	p.logger.InfoContext(ctx, "audit chain provisioned", "identity_id", identityID, "chain_id", chain.ChainID)
	return chain, true, nil
}

// CreateAuditedIdentity creates an identity together with its audit chain.
// Under WithProvisionerTx a failure leaves neither row behind.
func (p *Provisioner) CreateAuditedIdentity(ctx context.Context) (models.Identity, models.Chain, error) {
	var (
		identity models.Identity
		chain    models.Chain
	)
	err := p.inTx(ctx, func(ctx context.Context) error {
		var err error
		if identity, err = p.CreateIdentity(ctx); err != nil {
			return err
		}
		chain, _, err = p.provisionChain(ctx, identity.ID)
		return err
	})
	if err != nil {
		return models.Identity{}, models.Chain{}, err
	}
	return identity, chain, nil
}
