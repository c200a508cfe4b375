package service

import (
	"context"
	"net/http"
	"time"

	"vanish/internal/config"
	"vanish/internal/domain"
	"vanish/internal/metrics"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

type CreateRoomInput struct {
	TTLMinutes      int
	MaxParticipants int
}

type RoomService interface {
	Create(ctx context.Context, input CreateRoomInput) (*domain.Room, error)
	// CreateRandom creates a two-seat room for a matchmaking pair.
	CreateRandom(ctx context.Context) (*domain.Room, error)
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	// TTL returns whole seconds left, 0 when the room is gone.
	TTL(ctx context.Context, roomID string) (int64, error)
	// Destroy notifies subscribers, waits for the destroy delay and purges
	// every key of the room. It keeps going if the caller goes away.
	Destroy(ctx context.Context, roomID string) error
}

type roomService struct {
	roomRepo        repository.RoomRepository
	matchmakingRepo repository.MatchmakingRepository
	statsRepo       repository.StatsRepository
	publisher       realtime.Publisher
	metrics         *metrics.Metrics
	cfg             config.RoomConfig
	log             logger.Logger
	sleep           func(time.Duration)
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	matchmakingRepo repository.MatchmakingRepository,
	statsRepo repository.StatsRepository,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	cfg config.RoomConfig,
	log logger.Logger,
) RoomService {
	return &roomService{
		roomRepo:        roomRepo,
		matchmakingRepo: matchmakingRepo,
		statsRepo:       statsRepo,
		publisher:       publisher,
		metrics:         m,
		cfg:             cfg,
		log:             log,
		sleep:           time.Sleep,
	}
}

func (s *roomService) Create(ctx context.Context, input CreateRoomInput) (*domain.Room, error) {
	maxParticipants := input.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = domain.PrivateRoomCapacity
	}
	if maxParticipants < domain.MinParticipants || maxParticipants > domain.MaxParticipants {
		return nil, apperrors.NewAPIError("maxParticipants must be between 2 and 5", http.StatusBadRequest)
	}

	room := &domain.Room{MaxParticipants: maxParticipants}

	ttl := time.Duration(input.TTLMinutes) * time.Minute
	if input.TTLMinutes == 0 {
		ttl = s.cfg.DefaultTTL
		if room.IsGroup() {
			ttl = s.cfg.DefaultGroupTTL
		}
	}
	if ttl < s.cfg.MinTTL || ttl > s.cfg.MaxTTL {
		return nil, apperrors.NewAPIError("ttl is out of range", http.StatusBadRequest)
	}
	room.TTLMinutes = int(ttl / time.Minute)

	return s.create(ctx, room)
}

func (s *roomService) CreateRandom(ctx context.Context) (*domain.Room, error) {
	return s.create(ctx, &domain.Room{
		TTLMinutes:      int(s.cfg.RandomTTL / time.Minute),
		MaxParticipants: domain.RandomRoomCapacity,
		Random:          true,
	})
}

func (s *roomService) create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	if err := s.statsRepo.IncrementRooms(ctx); err != nil {
		s.log.Warn("Failed to count room", "error", err, "room_id", room.ID)
	}
	s.metrics.RoomCreated(room.Random)

	s.log.Info("Room created",
		"room_id", room.ID,
		"ttl_minutes", room.TTLMinutes,
		"max_participants", room.MaxParticipants,
		"random", room.Random,
	)
	return room, nil
}

func (s *roomService) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.roomRepo.Get(ctx, roomID)
}

func (s *roomService) TTL(ctx context.Context, roomID string) (int64, error) {
	ttl, err := s.roomRepo.TTL(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return ceilSeconds(ttl), nil
}

func (s *roomService) Destroy(ctx context.Context, roomID string) error {
	ctx = context.WithoutCancel(ctx)

	ttl, err := s.roomRepo.TTL(ctx, roomID)
	if err != nil {
		return err
	}
	existed := ttl > 0

	if existed {
		payload := domain.DestroyPayload{IsDestroyed: true}
		if err := s.publisher.Publish(ctx, roomID, domain.EventChatDestroy, payload, ttl); err != nil {
			s.log.Warn("Failed to broadcast room destruction", "error", err, "room_id", roomID)
		}
		if s.cfg.DestroyDelay > 0 {
			s.sleep(s.cfg.DestroyDelay)
		}
	}

	purged, err := s.matchmakingRepo.PurgeRoomMatches(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.roomRepo.Purge(ctx, roomID); err != nil {
		return err
	}

	if existed {
		if err := s.statsRepo.IncrementVanished(ctx); err != nil {
			s.log.Warn("Failed to count vanished room", "error", err, "room_id", roomID)
		}
		s.metrics.RoomDestroyed()
	}

	s.log.Info("Room destroyed", "room_id", roomID, "existed", existed, "match_records", purged)
	return nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
