package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// TokenRepository keeps the membership token set of each room. A token's
// presence in the set is the only authorization a participant carries.
type TokenRepository interface {
	NewToken() string
	IsMember(ctx context.Context, roomID, token string) (bool, error)
	Count(ctx context.Context, roomID string) (int64, error)
	Add(ctx context.Context, roomID, token string) error
}

type tokenRepository struct {
	rdb      *redis.Client
	log      logger.Logger
	newToken func() string
}

func NewTokenRepository(rdb *redis.Client, log logger.Logger) TokenRepository {
	return &tokenRepository{
		rdb:      rdb,
		log:      log,
		newToken: newIDGenerator(),
	}
}

func (r *tokenRepository) NewToken() string {
	return r.newToken()
}

func (r *tokenRepository) IsMember(ctx context.Context, roomID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := r.rdb.SIsMember(ctx, RoomTokensKey(roomID), token).Result()
	if err != nil {
		r.log.Error("Failed to check room token", "error", err, "room_id", roomID)
		return false, apperrors.StoreUnavailable(err)
	}
	return ok, nil
}

func (r *tokenRepository) Count(ctx context.Context, roomID string) (int64, error) {
	n, err := r.rdb.SCard(ctx, RoomTokensKey(roomID)).Result()
	if err != nil {
		r.log.Error("Failed to count room tokens", "error", err, "room_id", roomID)
		return 0, apperrors.StoreUnavailable(err)
	}
	return n, nil
}

func (r *tokenRepository) Add(ctx context.Context, roomID, token string) error {
	if err := r.rdb.SAdd(ctx, RoomTokensKey(roomID), token).Err(); err != nil {
		r.log.Error("Failed to add room token", "error", err, "room_id", roomID)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}
