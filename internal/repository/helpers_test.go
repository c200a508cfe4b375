package repository

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"vanish/pkg/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestRepositories(t *testing.T) (*miniredis.Miniredis, *Repositories) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	return mr, NewRepositories(rdb, logger.NewNop())
}
