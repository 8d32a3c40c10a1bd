package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
)

const (
	lockTTL      = 10 * time.Second
	retryBackoff = 50 * time.Millisecond
	retryLimit   = 100
)

// Redis is a Locker shared by every instance talking to the same Redis.
type Redis struct {
	locker *redislock.Client
}

func NewRedis(locker *redislock.Client) *Redis {
	return &Redis{locker: locker}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lk, err := r.locker.Obtain(ctx, "lock:"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryBackoff), retryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtaining lock %s: %w", key, err)
	}
	return func() {
		// the lock may have expired; the version check still protects the write
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}
