package service

import (
	"vanish/internal/config"
	"vanish/internal/metrics"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	"vanish/pkg/logger"
	"vanish/pkg/sealer"
)

type Services struct {
	RateLimit   RateLimitService
	Room        RoomService
	Gatekeeper  GatekeeperService
	Chat        ChatService
	Matchmaking MatchmakingService
	Stats       StatsService
}

func NewServices(
	repos *repository.Repositories,
	publisher realtime.Publisher,
	s sealer.Sealer,
	m *metrics.Metrics,
	cfg *config.Config,
	log logger.Logger,
) *Services {
	rooms := NewRoomService(repos.Room, repos.Matchmaking, repos.Stats, publisher, m, cfg.Room, log)

	return &Services{
		RateLimit:   NewRateLimitService(repos.RateLimit, cfg.RateLimit, log),
		Room:        rooms,
		Gatekeeper:  NewGatekeeperService(repos.Room, repos.Token, m, log),
		Chat:        NewChatService(repos.Chat, repos.Room, repos.Stats, publisher, s, m, log),
		Matchmaking: NewMatchmakingService(repos.Matchmaking, repos.Locker, rooms, publisher, m, cfg.Matchmaking, log),
		Stats:       NewStatsService(repos.Stats, log),
	}
}
