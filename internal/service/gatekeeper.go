package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"vanish/internal/domain"
	"vanish/internal/metrics"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

// botSignatures are user-agent fragments of link-preview fetchers and
// crawlers. They may look at a room but never take a seat.
var botSignatures = []string{
	"whatsapp",
	"telegrambot",
	"twitterbot",
	"facebookexternalhit",
	"linkedinbot",
	"slackbot",
	"discordbot",
	"bot",
	"preview",
	"crawler",
	"spider",
}

func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	return lo.ContainsBy(botSignatures, func(sig string) bool {
		return strings.Contains(ua, sig)
	})
}

type GatekeeperService interface {
	// Admit decides whether a room-page request may proceed, issuing a
	// membership token when a seat is free.
	Admit(ctx context.Context, roomID, token, userAgent string) (*domain.Admission, error)
	// Authorize checks an API caller's token against the room's token set.
	Authorize(ctx context.Context, roomID, token string) (*domain.Room, error)
}

type gatekeeperService struct {
	roomRepo  repository.RoomRepository
	tokenRepo repository.TokenRepository
	metrics   *metrics.Metrics
	log       logger.Logger
}

func NewGatekeeperService(roomRepo repository.RoomRepository, tokenRepo repository.TokenRepository, m *metrics.Metrics, log logger.Logger) GatekeeperService {
	return &gatekeeperService{
		roomRepo:  roomRepo,
		tokenRepo: tokenRepo,
		metrics:   m,
		log:       log,
	}
}

func (s *gatekeeperService) Admit(ctx context.Context, roomID, token, userAgent string) (*domain.Admission, error) {
	room, err := s.roomRepo.Get(ctx, roomID)
	if apperrors.Is(err, apperrors.ErrRoomNotFound) {
		s.metrics.Admission("not_found")
		return domain.Reject(domain.RejectNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	if IsBot(userAgent) {
		s.metrics.Admission("bot")
		admission := domain.Proceed(room, "", false)
		admission.Bot = true
		return admission, nil
	}

	member, err := s.tokenRepo.IsMember(ctx, roomID, token)
	if err != nil {
		return nil, err
	}
	if member {
		s.metrics.Admission("reentry")
		return domain.Proceed(room, token, false), nil
	}

	// Count and add are separate commands: concurrent admissions can both
	// pass the check and overshoot the capacity by a seat or two.
	count, err := s.tokenRepo.Count(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if count >= int64(room.MaxParticipants) {
		s.metrics.Admission("full")
		return domain.Reject(domain.RejectFull), nil
	}

	newToken := s.tokenRepo.NewToken()
	if err := s.tokenRepo.Add(ctx, roomID, newToken); err != nil {
		return nil, err
	}
	if _, err := s.roomRepo.Touch(ctx, roomID, repository.RoomTokensKey(roomID)); err != nil {
		if apperrors.Is(err, apperrors.ErrRoomNotFound) {
			// Expired between the lookup and the add; drop the orphan set.
			if purgeErr := s.roomRepo.Purge(ctx, roomID); purgeErr != nil {
				s.log.Warn("Failed to drop orphan token set", "error", purgeErr, "room_id", roomID)
			}
			s.metrics.Admission("not_found")
			return domain.Reject(domain.RejectNotFound), nil
		}
		return nil, err
	}

	s.metrics.Admission("issued")
	s.log.Debug("Token issued", "room_id", roomID, "token_prefix", tokenPrefix(newToken))
	return domain.Proceed(room, newToken, true), nil
}

func (s *gatekeeperService) Authorize(ctx context.Context, roomID, token string) (*domain.Room, error) {
	room, err := s.roomRepo.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	member, err := s.tokenRepo.IsMember(ctx, roomID, token)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrUnauthorized
	}
	return room, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[:6]
}
