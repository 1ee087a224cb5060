package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

const (
	lockKeyPrefix    = "lock:"
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
)

var ErrLockLost = errors.New("store lock lease lost")

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end

return 0
`)

// RedisAdapter guards a shared store with a leased Redis key. Only the holder of
// the lease token can release it.
type RedisAdapter struct {
	client   *redis.Client
	key      string
	ttl      time.Duration
	timeout  time.Duration
	retry    time.Duration
	newToken func() string
}

func NewRedisAdapter(client *redis.Client, name string, timeout time.Duration) *RedisAdapter {
	return &RedisAdapter{
		client:   client,
		key:      lockKeyPrefix + name,
		ttl:      defaultLockTTL,
		timeout:  timeout,
		retry:    defaultLockRetry,
		newToken: uuid.NewString,
	}
}

func (r *RedisAdapter) Lock(ctx context.Context) (func() error, error) {
	token := r.newToken()
	deadline := time.Now().Add(r.timeout)

	for {
		ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", r.key, err)
		}
		if ok {
			return func() error { return r.release(token) }, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s held by another process", domain.ErrConcurrencyConflict, r.key)
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RedisAdapter) release(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := releaseLockScript.Run(ctx, r.client, []string{r.key}, token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", r.key, err)
	}
	if result == 0 {
		return ErrLockLost
	}
	return nil
}
