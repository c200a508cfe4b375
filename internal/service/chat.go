package service

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"vanish/internal/domain"
	"vanish/internal/metrics"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
	"vanish/pkg/sealer"
)

type PostMessageInput struct {
	Sender string
	Text   string
}

type ChatService interface {
	// Post stores an encrypted message and broadcasts the plaintext to the room.
	Post(ctx context.Context, roomID, token string, input PostMessageInput) (*domain.Message, error)
	// List returns the room's messages in order. Tokens are kept only on the
	// viewer's own messages.
	List(ctx context.Context, roomID, viewerToken string) ([]*domain.Message, error)
	// Typing is broadcast only, never stored.
	Typing(ctx context.Context, roomID string, state domain.TypingState) error
}

type chatService struct {
	chatRepo  repository.ChatRepository
	roomRepo  repository.RoomRepository
	statsRepo repository.StatsRepository
	publisher realtime.Publisher
	sealer    sealer.Sealer
	metrics   *metrics.Metrics
	log       logger.Logger
}

func NewChatService(
	chatRepo repository.ChatRepository,
	roomRepo repository.RoomRepository,
	statsRepo repository.StatsRepository,
	publisher realtime.Publisher,
	s sealer.Sealer,
	m *metrics.Metrics,
	log logger.Logger,
) ChatService {
	return &chatService{
		chatRepo:  chatRepo,
		roomRepo:  roomRepo,
		statsRepo: statsRepo,
		publisher: publisher,
		sealer:    s,
		metrics:   m,
		log:       log,
	}
}

func (s *chatService) Post(ctx context.Context, roomID, token string, input PostMessageInput) (*domain.Message, error) {
	sender, err := normalizeSender(input.Sender)
	if err != nil {
		return nil, err
	}
	text := input.Text
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return nil, apperrors.NewAPIError("text must be 1-1000 characters", http.StatusBadRequest)
	}

	ttl, err := s.roomRepo.TTL(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, apperrors.ErrRoomNotFound
	}

	ciphertext, err := s.sealer.Encrypt(text)
	if err != nil {
		s.log.Error("Failed to encrypt message", "error", err, "room_id", roomID)
		return nil, apperrors.ErrInternalServer
	}

	message := &domain.Message{
		ID:        s.chatRepo.NewMessageID(),
		Sender:    sender,
		Text:      ciphertext,
		Timestamp: time.Now().UnixMilli(),
		RoomID:    roomID,
		Token:     token,
	}
	if err := s.chatRepo.Append(ctx, roomID, message); err != nil {
		return nil, err
	}

	outgoing := *message
	outgoing.Text = text
	outgoing.Token = ""
	if err := s.publisher.Publish(ctx, roomID, domain.EventChatMessage, outgoing, ttl); err != nil {
		// Subscribers recover by listing messages.
		s.log.Warn("Failed to broadcast message", "error", err, "room_id", roomID)
	}

	if _, err := s.roomRepo.Touch(ctx, roomID, repository.RoomDependentKeys(roomID)...); err != nil {
		if apperrors.Is(err, apperrors.ErrRoomNotFound) {
			if purgeErr := s.roomRepo.Purge(ctx, roomID); purgeErr != nil {
				s.log.Warn("Failed to drop orphan message list", "error", purgeErr, "room_id", roomID)
			}
		}
		return nil, err
	}

	if err := s.statsRepo.IncrementMessages(ctx); err != nil {
		s.log.Warn("Failed to count message", "error", err, "room_id", roomID)
	}
	s.metrics.MessageSent()

	return &outgoing, nil
}

func (s *chatService) List(ctx context.Context, roomID, viewerToken string) ([]*domain.Message, error) {
	stored, err := s.chatRepo.List(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return lo.Map(stored, func(m *domain.Message, _ int) *domain.Message {
		out := *m
		plain, err := s.sealer.Decrypt(m.Text)
		if err != nil {
			s.log.Warn("Failed to decrypt message, returning stored text", "error", err, "room_id", roomID, "message_id", m.ID)
		} else {
			out.Text = plain
		}
		if viewerToken == "" || out.Token != viewerToken {
			out.Token = ""
		}
		return &out
	}), nil
}

func (s *chatService) Typing(ctx context.Context, roomID string, state domain.TypingState) error {
	sender, err := normalizeSender(state.Sender)
	if err != nil {
		return err
	}
	state.Sender = sender
	return s.publisher.Publish(ctx, roomID, domain.EventChatTyping, state, 0)
}

func normalizeSender(sender string) (string, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" || utf8.RuneCountInString(sender) > domain.MaxSenderLength {
		return "", apperrors.NewAPIError("sender must be 1-100 characters", http.StatusBadRequest)
	}
	return sender, nil
}
