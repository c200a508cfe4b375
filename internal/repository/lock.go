package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// releaseScript deletes the lock only while it is still held by ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lock is a held distributed lock. It self-releases when its TTL lapses.
type Lock struct {
	Key   string
	Owner string
}

// Locker is a set-if-absent mutex in Redis.
type Locker interface {
	// TryAcquire never waits: a held lock yields (nil, false, nil).
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error)
	Release(ctx context.Context, lock *Lock) error
}

type redisLocker struct {
	rdb *redis.Client
	log logger.Logger
}

func NewLocker(rdb *redis.Client, log logger.Logger) Locker {
	return &redisLocker{rdb: rdb, log: log}
}

func (l *redisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	owner := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		l.log.Error("Failed to acquire lock", "error", err, "key", key)
		return nil, false, apperrors.StoreUnavailable(err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{Key: key, Owner: owner}, true, nil
}

func (l *redisLocker) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.rdb, []string{lock.Key}, lock.Owner).Err(); err != nil {
		l.log.Error("Failed to release lock", "error", err, "key", lock.Key)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// WithLock runs fn while holding key. The lock is released after fn returns,
// on every path, even if ctx was cancelled meanwhile. acquired is false when
// another holder owns the lock; fn is not called then.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) (acquired bool, err error) {
	lock, ok, err := locker.TryAcquire(ctx, key, ttl)
	if err != nil || !ok {
		return false, err
	}
	defer func() {
		if releaseErr := locker.Release(context.WithoutCancel(ctx), lock); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return true, fn(ctx)
}
