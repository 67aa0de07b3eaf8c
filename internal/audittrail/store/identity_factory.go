package store

import (
	"context"
	"fmt"

	"chainaudit/internal/audittrail/ledger"
	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/registry"
	id "chainaudit/pkg/domain"
	"chainaudit/pkg/requestcontext"
)

// Inserter writes one row of a model.
type Inserter interface {
	Insert(ctx context.Context, model string, row models.Row) error
}

// IdentityFactory creates identity and chain rows with fresh ids and an
// ed25519 signing key.
type IdentityFactory struct {
	rows     Inserter
	identity registry.Named
	chain    registry.Named
}

func NewIdentityFactory(rows Inserter, schema registry.Schema) *IdentityFactory {
	return &IdentityFactory{
		rows:     rows,
		identity: schema.Identity,
		chain:    schema.Chain,
	}
}

func (f *IdentityFactory) CreateIdentity(ctx context.Context) (models.Identity, error) {
	keyPair, err := ledger.GenerateKeyPair()
	if err != nil {
		return models.Identity{}, err
	}
	identity := models.Identity{
		ID:       id.NewIdentityID().String(),
		ChainID:  id.NewChainID().String(),
		KeyPairs: []models.KeyPair{keyPair},
	}
	row := models.Row{
		f.identity.PrimaryKey: identity.ID,
		"chain_id":            identity.ChainID,
		"key_pairs":           identity.KeyPairs,
		"created_at":          requestcontext.Now(ctx),
	}
	if err := f.rows.Insert(ctx, f.identity.Name, row); err != nil {
		return models.Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return identity, nil
}

func (f *IdentityFactory) CreateChain(ctx context.Context, identityID, content string) (models.Chain, error) {
	chain := models.Chain{
		ID:         id.NewChainID().String(),
		ChainID:    id.NewChainID().String(),
		IdentityID: identityID,
		Content:    content,
		CreatedAt:  requestcontext.Now(ctx),
	}
	row := models.Row{
		f.chain.PrimaryKey: chain.ID,
		"chain_id":         chain.ChainID,
		"identity":         chain.IdentityID,
		"content":          chain.Content,
		"created_at":       chain.CreatedAt,
	}
	if err := f.rows.Insert(ctx, f.chain.Name, row); err != nil {
		return models.Chain{}, fmt.Errorf("create chain: %w", err)
	}
	return chain, nil
}
