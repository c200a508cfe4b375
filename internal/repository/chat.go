package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"vanish/internal/domain"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// ChatRepository stores a room's messages as an append-only list. The list
// expiry is owned by the room record and propagated by the caller.
type ChatRepository interface {
	NewMessageID() string
	Append(ctx context.Context, roomID string, message *domain.Message) error
	List(ctx context.Context, roomID string) ([]*domain.Message, error)
}

type chatRepository struct {
	rdb   *redis.Client
	log   logger.Logger
	newID func() string
}

func NewChatRepository(rdb *redis.Client, log logger.Logger) ChatRepository {
	return &chatRepository{
		rdb:   rdb,
		log:   log,
		newID: newIDGenerator(),
	}
}

func (r *chatRepository) NewMessageID() string {
	return r.newID()
}

func (r *chatRepository) Append(ctx context.Context, roomID string, message *domain.Message) error {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		r.log.Error("Failed to marshal message", "error", err)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := r.rdb.RPush(ctx, RoomMessagesKey(roomID), messageJSON).Err(); err != nil {
		r.log.Error("Failed to save message to Redis", "error", err, "room_id", roomID)
		return apperrors.StoreUnavailable(err)
	}

	return nil
}

func (r *chatRepository) List(ctx context.Context, roomID string) ([]*domain.Message, error) {
	messagesJSON, err := r.rdb.LRange(ctx, RoomMessagesKey(roomID), 0, -1).Result()
	if err != nil {
		r.log.Error("Failed to get messages from Redis", "error", err, "room_id", roomID)
		return nil, apperrors.StoreUnavailable(err)
	}

	messages := make([]*domain.Message, 0, len(messagesJSON))
	for _, msgJSON := range messagesJSON {
		var message domain.Message
		if err := json.Unmarshal([]byte(msgJSON), &message); err != nil {
			r.log.Warn("Failed to unmarshal message", "error", err, "room_id", roomID)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, nil
}
