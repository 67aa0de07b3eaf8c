package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "chainaudit/pkg/domain-errors"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	l := NewKeyed()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "Patient:P1")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			require.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, l.size())
}

func TestKeyed_DistinctKeysNeverContend(t *testing.T) {
	l := NewKeyed(WithWait(20 * time.Millisecond))
	ctx := context.Background()

	held := make([]func(context.Context) error, 0, 1000)
	for i := 0; i < 1000; i++ {
		unlock, err := l.Lock(ctx, fmt.Sprintf("Patient:P%d", i))
		require.NoError(t, err, "key %d", i)
		held = append(held, unlock)
	}

	unlock, err := l.Lock(ctx, "Patient:UNRELATED")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))

	for _, release := range held {
		require.NoError(t, release(ctx))
	}
	assert.Zero(t, l.size())
}

func TestKeyed_TimesOutWhileHeld(t *testing.T) {
	l := NewKeyed(WithWait(20 * time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "Patient:P1")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "Patient:P1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.Equal(t, 1, l.size(), "a timed-out waiter drops its reference")

	require.NoError(t, unlock(ctx))
	assert.Zero(t, l.size())
}

func TestKeyed_CancelledContext(t *testing.T) {
	l := NewKeyed()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Lock(ctx, "Patient:P1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.Zero(t, l.size())
}

func TestKeyed_UnlockIsIdempotent(t *testing.T) {
	l := NewKeyed(WithWait(50 * time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx))

	// A second release must not free a slot taken by someone else.
	unlock2, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	_, err = l.Lock(ctx, "k")
	require.Error(t, err)
	require.NoError(t, unlock2(ctx))
	assert.Zero(t, l.size())
}
