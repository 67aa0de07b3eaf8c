// Package ports defines the collaborators the audit trail service consumes.
// Adapters live in store, ledger and lock; mocks are generated into ../mocks.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"

	"chainaudit/internal/audittrail/models"
)

// Repository performs point lookups by model name. A missing row is reported
// as sentinel.ErrNotFound.
type Repository interface {
	FindByID(ctx context.Context, model, id string) (models.Row, error)
	FindOne(ctx context.Context, model string, filter models.Filter) (models.Row, error)
	// FindMany returns at most limit rows; limit <= 0 means no limit.
	FindMany(ctx context.Context, model string, filter models.Filter, limit int) ([]models.Row, error)
}

// Ledger durably appends a signed entry to a chain.
type Ledger interface {
	AppendEntry(ctx context.Context, req models.AppendRequest) (models.Entry, error)
}

// IdentityFactory creates identities and their chains.
type IdentityFactory interface {
	CreateIdentity(ctx context.Context) (models.Identity, error)
	CreateChain(ctx context.Context, identityID, content string) (models.Chain, error)
}

// EntryBuilder walks owner -> identity -> audit chain and appends one entry.
type EntryBuilder interface {
	BuildEntry(ctx context.Context, req models.BuildRequest) (models.Entry, error)
}

// Unlock releases a lock taken by Locker.Lock.
type Unlock func(ctx context.Context) error

// Locker serializes work on one key across goroutines or instances.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// ErrorTracker forwards failures that are not returned to the caller.
type ErrorTracker interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}
