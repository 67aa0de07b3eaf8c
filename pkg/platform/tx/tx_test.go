package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBeginner struct{ err error }

func (f failingBeginner) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	return nil, f.err
}

func TestFromEmptyContext(t *testing.T) {
	got, ok := From(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWithTxIgnoresNil(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestRunBeginFailure(t *testing.T) {
	boom := errors.New("connection refused")
	called := false

	err := Run(context.Background(), failingBeginner{err: boom}, func(context.Context) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, boom)
	assert.False(t, called, "fn must not run without a transaction")
}
