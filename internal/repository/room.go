package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"vanish/internal/domain"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// touchScript copies the remaining lifetime of KEYS[1] onto KEYS[2..n].
// Returns the remaining TTL in milliseconds, or a negative PTTL when the room
// record is gone (nothing is touched in that case).
var touchScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
	return ttl
end
for i = 2, #KEYS do
	redis.call('PEXPIRE', KEYS[i], ttl)
end
return ttl
`)

type RoomRepository interface {
	// Create stores the room record with its canonical expiry and assigns room.ID.
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	// TTL returns the room's remaining lifetime, 0 when the room is absent.
	TTL(ctx context.Context, roomID string) (time.Duration, error)
	// Touch re-applies the room's remaining TTL to the given dependent keys.
	Touch(ctx context.Context, roomID string, keys ...string) (time.Duration, error)
	// Purge deletes the room's whole key family in one batch.
	Purge(ctx context.Context, roomID string) error
}

type roomRepository struct {
	rdb   *redis.Client
	log   logger.Logger
	newID func() string
}

func NewRoomRepository(rdb *redis.Client, log logger.Logger) RoomRepository {
	return &roomRepository{
		rdb:   rdb,
		log:   log,
		newID: newIDGenerator(),
	}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = r.newID()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}

	key := RoomMetaKey(room.ID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"createdAt":       room.CreatedAt.UnixMilli(),
			"ttlMinutes":      room.TTLMinutes,
			"maxParticipants": room.MaxParticipants,
			"random":          strconv.FormatBool(room.Random),
		})
		pipe.Expire(ctx, key, time.Duration(room.TTLMinutes)*time.Minute)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to create room", "error", err, "room_id", room.ID)
		return apperrors.StoreUnavailable(err)
	}

	return nil
}

func (r *roomRepository) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	fields, err := r.rdb.HGetAll(ctx, RoomMetaKey(roomID)).Result()
	if err != nil {
		r.log.Error("Failed to get room", "error", err, "room_id", roomID)
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrRoomNotFound
	}

	return parseRoom(roomID, fields), nil
}

func (r *roomRepository) TTL(ctx context.Context, roomID string) (time.Duration, error) {
	ttl, err := r.rdb.PTTL(ctx, RoomMetaKey(roomID)).Result()
	if err != nil {
		r.log.Error("Failed to get room TTL", "error", err, "room_id", roomID)
		return 0, apperrors.StoreUnavailable(err)
	}
	// go-redis reports -2 (missing) and -1 (no expiry) as negative durations
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *roomRepository) Touch(ctx context.Context, roomID string, keys ...string) (time.Duration, error) {
	scriptKeys := append([]string{RoomMetaKey(roomID)}, keys...)

	ms, err := touchScript.Run(ctx, r.rdb, scriptKeys).Int64()
	if err != nil {
		r.log.Error("Failed to propagate room TTL", "error", err, "room_id", roomID)
		return 0, apperrors.StoreUnavailable(err)
	}
	if ms <= 0 {
		return 0, apperrors.ErrRoomNotFound
	}

	return time.Duration(ms) * time.Millisecond, nil
}

func (r *roomRepository) Purge(ctx context.Context, roomID string) error {
	keys := RoomKeyFamily(roomID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to purge room", "error", err, "room_id", roomID)
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

func parseRoom(roomID string, fields map[string]string) *domain.Room {
	room := &domain.Room{ID: roomID}

	if ms, err := strconv.ParseInt(fields["createdAt"], 10, 64); err == nil {
		room.CreatedAt = time.UnixMilli(ms)
	}
	room.TTLMinutes, _ = strconv.Atoi(fields["ttlMinutes"])
	room.MaxParticipants, _ = strconv.Atoi(fields["maxParticipants"])
	room.Random, _ = strconv.ParseBool(fields["random"])

	// Records written without a capacity behave as private rooms.
	if room.MaxParticipants < domain.MinParticipants {
		room.MaxParticipants = domain.PrivateRoomCapacity
	}
	return room
}

