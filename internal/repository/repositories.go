package repository

import (
	"github.com/redis/go-redis/v9"
	"vanish/pkg/logger"
)

type Repositories struct {
	Room        RoomRepository
	Token       TokenRepository
	Chat        ChatRepository
	RateLimit   RateLimitRepository
	Matchmaking MatchmakingRepository
	Locker      Locker
	Stats       StatsRepository
}

func NewRepositories(rdb *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Room:        NewRoomRepository(rdb, log),
		Token:       NewTokenRepository(rdb, log),
		Chat:        NewChatRepository(rdb, log),
		RateLimit:   NewRateLimitRepository(rdb, log),
		Matchmaking: NewMatchmakingRepository(rdb, log),
		Locker:      NewLocker(rdb, log),
		Stats:       NewStatsRepository(rdb, log),
	}

	log.Info("Redis repositories initialized")

	return repos
}
