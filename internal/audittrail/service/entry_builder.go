package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"chainaudit/internal/audittrail/metrics"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/internal/audittrail/registry"
	"chainaudit/internal/platform/tracing"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/sentinel"
)

// Chain columns used to select the audit chain of an identity.
const (
	chainIdentityColumn = "identity"
	chainContentColumn  = "content"
)

// Builder resolves owner -> identity -> audit chain and appends the entry.
type Builder struct {
	repo    ports.Repository
	ledger  ports.Ledger
	schema  registry.Schema
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type BuilderOption func(*Builder)

func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

func WithBuilderMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(repo ports.Repository, ledger ports.Ledger, schema registry.Schema, opts ...BuilderOption) (*Builder, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	b := &Builder{
		repo:   repo,
		ledger: ledger,
		schema: schema,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildEntry appends req.Content to the audit chain of the owner's identity.
// Every failure carries one of the builder error codes.
func (b *Builder) BuildEntry(ctx context.Context, req models.BuildRequest) (entry models.Entry, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "audittrail.build_entry")
	tracing.SetAttributes(ctx,
		attribute.String("audittrail.owner_model", req.OwnerModel),
		attribute.String("audittrail.action", req.Content.Action.String()),
	)
	start := time.Now()
	defer func() {
		endSpan(err)
		if b.metrics != nil {
			var code string
			if err != nil {
				code = string(dErrors.CodeOf(err))
			}
			b.metrics.RecordBuild(start, code)
		}
	}()

	appendReq, err := b.resolve(ctx, req)
	if err != nil {
		return models.Entry{}, err
	}

	entry, err = b.ledger.AppendEntry(ctx, appendReq)
	if err != nil {
		return models.Entry{}, dErrors.Wrap(err, dErrors.CodeLedgerAppendFailed, "failed to append entry to chain "+appendReq.ChainID)
	}

	b.logger.DebugContext(ctx, "audit entry appended",
		"owner_model", req.OwnerModel,
		"owner_id", req.OwnerID,
		"chain_id", appendReq.ChainID,
		"entry_id", entry.ID,
	)
	return entry, nil
}

func (b *Builder) resolve(ctx context.Context, req models.BuildRequest) (models.AppendRequest, error) {
	owner, ok := b.schema.Owners[req.OwnerModel]
	if !ok {
		return models.AppendRequest{}, dErrors.New(dErrors.CodeInvalidModel, fmt.Sprintf("owner model %q is not registered", req.OwnerModel))
	}

	ownerRow, err := b.repo.FindByID(ctx, req.OwnerModel, req.OwnerID)
	if err != nil {
		return models.AppendRequest{}, lookupError(err, dErrors.CodeOwnerNotFound, fmt.Sprintf("%s %q", req.OwnerModel, req.OwnerID))
	}

	identityRef := ownerRow.String(owner.IdentityColumn)
	if identityRef == "" {
		return models.AppendRequest{}, dErrors.New(dErrors.CodeMissingIdentity, fmt.Sprintf("%s %q has no %s", req.OwnerModel, req.OwnerID, owner.IdentityColumn))
	}

	identitySpec := b.schema.Identity
	identityRow, err := b.repo.FindOne(ctx, identitySpec.Name, models.Filter{identitySpec.PrimaryKey: identityRef})
	if err != nil {
		return models.AppendRequest{}, lookupError(err, dErrors.CodeIdentityNotFound, fmt.Sprintf("identity %q", identityRef))
	}

	chain, err := b.auditChain(ctx, identityRef)
	if err != nil {
		return models.AppendRequest{}, err
	}

	identity, err := models.IdentityFromRow(identityRow, identitySpec.PrimaryKey)
	if err != nil {
		return models.AppendRequest{}, dErrors.Wrap(err, dErrors.CodeMissingKeyPair, fmt.Sprintf("identity %q has unreadable key pairs", identityRef))
	}
	signer, ok := identity.Signer()
	if !ok {
		return models.AppendRequest{}, dErrors.New(dErrors.CodeMissingKeyPair, fmt.Sprintf("identity %q has no key pairs", identityRef))
	}

	return models.AppendRequest{
		ChainID:          chain.ChainID,
		SignerPrivateKey: signer.PrivateKey,
		SignerChainID:    identity.ChainID,
		Content:          req.Content,
		ParentRef:        chain.ID,
	}, nil
}

// auditChain returns the single audit chain of an identity.
func (b *Builder) auditChain(ctx context.Context, identityRef string) (models.Chain, error) {
	return findAuditChain(ctx, b.repo, b.schema.Chain, identityRef)
}

func findAuditChain(ctx context.Context, repo ports.Repository, chains registry.Named, identityRef string) (models.Chain, error) {
	rows, err := repo.FindMany(ctx, chains.Name, models.Filter{
		chainIdentityColumn: identityRef,
		chainContentColumn:  models.AuditChainContent,
	}, 2)
	if err != nil {
		return models.Chain{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit chains")
	}
	switch len(rows) {
	case 0:
		return models.Chain{}, dErrors.New(dErrors.CodeMissingAuditChain, fmt.Sprintf("identity %q has no audit chain", identityRef))
	case 1:
		return models.ChainFromRow(rows[0], chains.PrimaryKey), nil
	default:
		return models.Chain{}, dErrors.New(dErrors.CodeAmbiguousAuditChain, fmt.Sprintf("identity %q has more than one audit chain", identityRef))
	}
}

func lookupError(err error, notFound dErrors.Code, subject string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, notFound, subject+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+subject)
}
