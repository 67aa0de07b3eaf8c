// Package lock serializes audit work on one record so the owner read and the
// entry append see the same state.
package lock

import (
	"context"
	"sync"
	"time"

	"chainaudit/internal/audittrail/ports"
	dErrors "chainaudit/pkg/domain-errors"
)

const defaultWait = 5 * time.Second

// Keyed is an in-process Locker with one slot per key. Only callers locking
// the same key wait on each other. A slot is dropped once no holder or
// waiter refers to it.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// slot is a one-place semaphore so a waiter can give up when its context
// ends. refs counts the holder and every waiter.
type slot struct {
	ch   chan struct{}
	refs int
}

type KeyedOption func(*Keyed)

// WithWait bounds how long Lock blocks when the caller's context has no
// deadline.
func WithWait(d time.Duration) KeyedOption {
	return func(k *Keyed) {
		k.wait = d
	}
}

func NewKeyed(opts ...KeyedOption) *Keyed {
	k := &Keyed{wait: defaultWait, slots: make(map[string]*slot)}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keyed) Lock(ctx context.Context, key string) (ports.Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && k.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.wait)
		defer cancel()
	}

	sl := k.ref(key)
	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key, sl)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for lock on "+key)
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-sl.ch
			k.unref(key, sl)
		})
		return nil
	}, nil
}

func (k *Keyed) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	sl, ok := k.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = sl
	}
	sl.refs++
	return sl
}

func (k *Keyed) unref(key string, sl *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(k.slots, key)
	}
}

// size reports how many keys are held or waited on.
func (k *Keyed) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
