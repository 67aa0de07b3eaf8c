// Package store holds Repository adapters over the tables named in the
// registry schema, plus the identity factory writing through them.
package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/registry"
	"chainaudit/pkg/platform/sentinel"
)

// InMemoryStore keeps rows per model in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	schema registry.Schema
	rows   map[string][]models.Row
}

func NewMemory(schema registry.Schema) *InMemoryStore {
	return &InMemoryStore{
		schema: schema,
		rows:   make(map[string][]models.Row),
	}
}

// Insert stores a copy of row. The primary key must be set.
func (s *InMemoryStore) Insert(_ context.Context, model string, row models.Row) error {
	entity, ok := s.schema.Entity(model)
	if !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	pk := row.String(entity.PrimaryKey)
	if pk == "" {
		return fmt.Errorf("insert %s: %s is required", model, entity.PrimaryKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows[model] {
		if existing.String(entity.PrimaryKey) == pk {
			return fmt.Errorf("insert %s %q: %w", model, pk, sentinel.ErrConflict)
		}
	}
	s.rows[model] = append(s.rows[model], maps.Clone(row))
	return nil
}

// Update merges fields into the row with primary key id.
func (s *InMemoryStore) Update(_ context.Context, model, id string, fields models.Row) error {
	entity, ok := s.schema.Entity(model)
	if !ok {
		return fmt.Errorf("unknown model %q", model)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows[model] {
		if row.String(entity.PrimaryKey) == id {
			maps.Copy(row, fields)
			return nil
		}
	}
	return fmt.Errorf("update %s %q: %w", model, id, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByID(ctx context.Context, model, id string) (models.Row, error) {
	entity, ok := s.schema.Entity(model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", model)
	}
	return s.FindOne(ctx, model, models.Filter{entity.PrimaryKey: id})
}

func (s *InMemoryStore) FindOne(ctx context.Context, model string, filter models.Filter) (models.Row, error) {
	rows, err := s.FindMany(ctx, model, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("find %s: %w", model, sentinel.ErrNotFound)
	}
	return rows[0], nil
}

func (s *InMemoryStore) FindMany(_ context.Context, model string, filter models.Filter, limit int) ([]models.Row, error) {
	if _, ok := s.schema.Entity(model); !ok {
		return nil, fmt.Errorf("unknown model %q", model)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Row
	for _, row := range s.rows[model] {
		if !matches(row, filter) {
			continue
		}
		out = append(out, maps.Clone(row))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// matches compares values in their string form, so "42" equals 42.
func matches(row models.Row, filter models.Filter) bool {
	for col, want := range filter {
		got, ok := row[col]
		if !ok || models.StringValue(got) != models.StringValue(want) {
			return false
		}
	}
	return true
}
