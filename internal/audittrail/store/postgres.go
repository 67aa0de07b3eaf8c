package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"chainaudit/internal/audittrail/models"
	"chainaudit/internal/audittrail/registry"
	"chainaudit/pkg/platform/sentinel"
	"chainaudit/pkg/platform/tx"
)

// uniqueViolation is the postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// PostgresStore reads and writes the registry's tables. Column names come
// from the filter and are quoted; values are always bound.
type PostgresStore struct {
	db     *sql.DB
	schema registry.Schema
	psql   sq.StatementBuilderType
}

func NewPostgres(db *sql.DB, schema registry.Schema) *PostgresStore {
	return &PostgresStore{
		db:     db,
		schema: schema,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// conn returns the transaction carried by ctx, if any, so reads and writes
// inside InTx see each other.
func (s *PostgresStore) conn(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// InTx runs fn in a single transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return tx.Run(ctx, s.db, fn)
}

func (s *PostgresStore) table(model string) (registry.Entity, error) {
	entity, ok := s.schema.Entity(model)
	if !ok {
		return registry.Entity{}, fmt.Errorf("unknown model %q", model)
	}
	return entity, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, model, id string) (models.Row, error) {
	entity, err := s.table(model)
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, model, models.Filter{entity.PrimaryKey: id})
}

func (s *PostgresStore) FindOne(ctx context.Context, model string, filter models.Filter) (models.Row, error) {
	rows, err := s.FindMany(ctx, model, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("find %s: %w", model, sentinel.ErrNotFound)
	}
	return rows[0], nil
}

func (s *PostgresStore) FindMany(ctx context.Context, model string, filter models.Filter, limit int) ([]models.Row, error) {
	entity, err := s.table(model)
	if err != nil {
		return nil, err
	}

	where := sq.Eq{}
	for col, v := range filter {
		where[pq.QuoteIdentifier(col)] = v
	}
	query := s.psql.Select("*").
		From(pq.QuoteIdentifier(entity.Table)).
		Where(where).
		OrderBy(pq.QuoteIdentifier(entity.PrimaryKey))
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", model, err)
	}
	rows, err := s.conn(ctx).QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", model, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", model, err)
	}
	return out, nil
}

// Insert writes row into the model's table. Slice and map values are stored
// as JSON.
func (s *PostgresStore) Insert(ctx context.Context, model string, row models.Row) error {
	entity, err := s.table(model)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	values := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
		v, err := columnValue(row[col])
		if err != nil {
			return fmt.Errorf("insert %s.%s: %w", model, col, err)
		}
		values[i] = v
	}

	stmt, args, err := s.psql.Insert(pq.QuoteIdentifier(entity.Table)).
		Columns(quoted...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", model, err)
	}
	if _, err := s.conn(ctx).ExecContext(ctx, stmt, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert %s: %w", model, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", model, err)
	}
	return nil
}

func columnValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, []byte, bool, int, int32, int64, float32, float64, time.Time:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []models.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(models.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
