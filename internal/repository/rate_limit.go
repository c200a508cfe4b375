package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// hitScript runs one fixed-window rate limit check.
// KEYS[1] counter, KEYS[2] block marker.
// ARGV[1] window ms, ARGV[2] limit, ARGV[3] block ms.
// Returns {blocked, count, ttl ms}; ttl is the block TTL when blocked.
var hitScript = redis.NewScript(`
local blockTTL = redis.call('PTTL', KEYS[2])
if blockTTL > 0 then
	return {1, 0, blockTTL}
end

local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end

local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end

if count > tonumber(ARGV[2]) then
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[3])
	return {1, count, tonumber(ARGV[3])}
end

return {0, count, ttl}
`)

// RateLimitHit is the raw outcome of one counted request.
type RateLimitHit struct {
	Count   int64
	TTL     time.Duration
	Blocked bool
}

type RateLimitRepository interface {
	Hit(ctx context.Context, client string, limit int, window, block time.Duration) (*RateLimitHit, error)
}

type rateLimitRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewRateLimitRepository(rdb *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{rdb: rdb, log: log}
}

func (r *rateLimitRepository) Hit(ctx context.Context, client string, limit int, window, block time.Duration) (*RateLimitHit, error) {
	keys := []string{RateLimitKey(client), RateLimitBlockKey(client)}

	res, err := hitScript.Run(ctx, r.rdb, keys, window.Milliseconds(), limit, block.Milliseconds()).Int64Slice()
	if err != nil {
		r.log.Error("Failed to check rate limit", "error", err, "client", client)
		return nil, apperrors.StoreUnavailable(err)
	}

	return &RateLimitHit{
		Blocked: res[0] == 1,
		Count:   res[1],
		TTL:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}
