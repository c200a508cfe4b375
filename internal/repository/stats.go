package repository

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"vanish/internal/domain"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// StatsRepository keeps global counters. Counters never expire and hold no
// room identifiers.
type StatsRepository interface {
	IncrementRooms(ctx context.Context) error
	IncrementMessages(ctx context.Context) error
	IncrementVanished(ctx context.Context) error
	Get(ctx context.Context) (*domain.Stats, error)
}

type statsRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewStatsRepository(rdb *redis.Client, log logger.Logger) StatsRepository {
	return &statsRepository{rdb: rdb, log: log}
}

func (r *statsRepository) IncrementRooms(ctx context.Context) error {
	return r.incr(ctx, StatsTotalRoomsKey)
}

func (r *statsRepository) IncrementMessages(ctx context.Context) error {
	return r.incr(ctx, StatsTotalMessagesKey)
}

func (r *statsRepository) IncrementVanished(ctx context.Context) error {
	return r.incr(ctx, StatsTotalVanishedKey)
}

func (r *statsRepository) incr(ctx context.Context, key string) error {
	if err := r.rdb.Incr(ctx, key).Err(); err != nil {
		r.log.Error("Failed to increment stats counter", "error", err, "key", key)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func (r *statsRepository) Get(ctx context.Context) (*domain.Stats, error) {
	vals, err := r.rdb.MGet(ctx, StatsTotalRoomsKey, StatsTotalMessagesKey, StatsTotalVanishedKey).Result()
	if err != nil {
		r.log.Error("Failed to get stats", "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	return &domain.Stats{
		TotalRooms:    counterValue(vals[0]),
		TotalMessages: counterValue(vals[1]),
		TotalVanished: counterValue(vals[2]),
	}, nil
}

func counterValue(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
