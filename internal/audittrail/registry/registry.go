package registry

import (
	"context"
	"fmt"

	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/ports"
	"chainaudit/pkg/platform/sentinel"
)

// TrackedModel is the per-type capability the orchestrator works against.
type TrackedModel interface {
	Name() string
	// OwnerModel is the model holding the identity reference ("factomized").
	OwnerModel() string
	// ForeignKey is the configured field pointing at the owner. May be empty.
	ForeignKey() string
	FetchByID(ctx context.Context, id string) (models.Row, error)
	// FetchOwnerID loads the record filtered on its own primary key and reads
	// fk. present is false when the stored row has no such field.
	FetchOwnerID(ctx context.Context, id, fk string) (value string, present bool, err error)
}

// Registry binds a Schema to a repository.
type Registry struct {
	schema  Schema
	tracked map[string]*trackedModel
}

func New(schema Schema, repo ports.Repository) (*Registry, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if errs := schema.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid registry schema: %w", errs[0])
	}
	r := &Registry{schema: schema, tracked: make(map[string]*trackedModel, len(schema.Tracked))}
	for name, t := range schema.Tracked {
		r.tracked[name] = &trackedModel{name: name, cfg: t, repo: repo}
	}
	return r, nil
}

// Resolve returns the capability for a tracked model name.
func (r *Registry) Resolve(name string) (TrackedModel, bool) {
	t, ok := r.tracked[name]
	if !ok {
		return nil, false
	}
	return t, true
}

func (r *Registry) Schema() Schema {
	return r.schema
}

type trackedModel struct {
	name string
	cfg  Tracked
	repo ports.Repository
}

func (t *trackedModel) Name() string       { return t.name }
func (t *trackedModel) OwnerModel() string { return t.cfg.Factomized }
func (t *trackedModel) ForeignKey() string { return t.cfg.ForeignKey }

func (t *trackedModel) FetchByID(ctx context.Context, id string) (models.Row, error) {
	return t.repo.FindByID(ctx, t.name, id)
}

func (t *trackedModel) FetchOwnerID(ctx context.Context, id, fk string) (string, bool, error) {
	row, err := t.repo.FindOne(ctx, t.name, models.Filter{t.cfg.PrimaryKey: id})
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, fmt.Errorf("%s %q: %w", t.name, id, sentinel.ErrNotFound)
	}
	if !row.Has(fk) {
		return "", false, nil
	}
	return row.String(fk), true, nil
}
