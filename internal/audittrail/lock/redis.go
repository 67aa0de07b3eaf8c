package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chainaudit/internal/audittrail/ports"
	dErrors "chainaudit/pkg/domain-errors"
	"chainaudit/pkg/platform/sentinel"
)

const (
	redisKeyPrefix    = "chainaudit:lock:"
	defaultTTL        = 30 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	maxRetryDelay     = 250 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance talking to the same redis.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	wait   time.Duration
}

type RedisOption func(*Redis)

// WithTTL sets how long a lock survives a holder that never releases it.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithRedisWait bounds how long Lock retries when the caller's context has no
// deadline.
func WithRedisWait(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.wait = d
	}
}

func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultTTL, wait: defaultWait}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Lock(ctx context.Context, key string) (ports.Unlock, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()
	delay := defaultRetryDelay
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for lock on "+key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w: %w", key, sentinel.ErrUnavailable, err)
		}
		if ok {
			return r.unlockFunc(redisKey, token), nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, dErrors.Wrap(sentinel.ErrLocked, dErrors.CodeTimeout, "timed out waiting for lock on "+key)
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (r *Redis) unlockFunc(redisKey, token string) ports.Unlock {
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", redisKey, err)
		}
		return nil
	}
}
