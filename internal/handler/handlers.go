package handler

import (
	"vanish/internal/service"
	"vanish/pkg/logger"
)

type Handlers struct {
	Health      *HealthHandler
	Room        *RoomHandler
	Chat        *ChatHandler
	Matchmaking *MatchmakingHandler
	Stats       *StatsHandler
	WebSocket   *WebSocketHandler
}

func NewHandlers(services *service.Services, redis Pinger, stream EventStream, log logger.Logger) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(redis, log),
		Room:        NewRoomHandler(services.Room, log),
		Chat:        NewChatHandler(services.Chat, log),
		Matchmaking: NewMatchmakingHandler(services.Matchmaking, log),
		Stats:       NewStatsHandler(services.Stats, log),
		WebSocket:   NewWebSocketHandler(stream, services.Matchmaking, log),
	}
}
