package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"vanish/internal/config"
	"vanish/internal/domain"
	"vanish/internal/metrics"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	apperrors "vanish/pkg/errors"
	"vanish/pkg/logger"
)

const maxSessionIDLength = 128

type MatchmakingService interface {
	Join(ctx context.Context, sessionID, displayName string) (*domain.MatchStatus, error)
	Leave(ctx context.Context, sessionID string) error
	// Status consumes a pending match record, so a match is reported once.
	Status(ctx context.Context, sessionID string) (*domain.MatchStatus, error)
	// ConsumeMatch claims the session's match record for push delivery.
	ConsumeMatch(ctx context.Context, sessionID string) (string, bool, error)
}

type matchmakingService struct {
	matchmakingRepo repository.MatchmakingRepository
	locker          repository.Locker
	rooms           RoomService
	publisher       realtime.Publisher
	metrics         *metrics.Metrics
	cfg             config.MatchmakingConfig
	log             logger.Logger
}

func NewMatchmakingService(
	matchmakingRepo repository.MatchmakingRepository,
	locker repository.Locker,
	rooms RoomService,
	publisher realtime.Publisher,
	m *metrics.Metrics,
	cfg config.MatchmakingConfig,
	log logger.Logger,
) MatchmakingService {
	return &matchmakingService{
		matchmakingRepo: matchmakingRepo,
		locker:          locker,
		rooms:           rooms,
		publisher:       publisher,
		metrics:         m,
		cfg:             cfg,
		log:             log,
	}
}

func (s *matchmakingService) Join(ctx context.Context, sessionID, displayName string) (*domain.MatchStatus, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	entry := &domain.QueueEntry{
		SessionID:   sessionID,
		DisplayName: NormalizeDisplayName(displayName),
		JoinedAt:    time.Now(),
	}

	// A retried join after a match gets the same room back.
	if roomID, ok, err := s.matchmakingRepo.ConsumeMatch(ctx, sessionID); err != nil {
		return nil, err
	} else if ok {
		s.metrics.QueueJoin(string(domain.QueueStateMatched))
		return domain.Matched(roomID), nil
	}

	var status *domain.MatchStatus
	acquired, err := repository.WithLock(ctx, s.locker, repository.MatchmakingLockKey, s.cfg.LockTTL, func(ctx context.Context) error {
		var err error
		status, err = s.match(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.log.Debug("Matchmaking lock busy, queueing", "session_id", sessionID)
		if err := s.matchmakingRepo.Enqueue(ctx, entry, s.cfg.QueueTTL); err != nil {
			return nil, err
		}
		status = domain.Queued()
	}

	s.metrics.QueueJoin(string(status.Status))
	return status, nil
}

// match runs under the matchmaking lock. The caller is queued when nobody
// else is waiting.
func (s *matchmakingService) match(ctx context.Context, entry *domain.QueueEntry) (*domain.MatchStatus, error) {
	s.prune(ctx)

	partnerID, found, err := s.matchmakingRepo.OldestExcept(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return s.enqueue(ctx, entry)
	}

	status, err := s.pair(ctx, entry, partnerID)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return s.enqueue(ctx, entry)
	}
	return status, nil
}

// matchQueued runs under the matchmaking lock for a session that is already
// waiting. It leaves the session queued when nobody else is.
func (s *matchmakingService) matchQueued(ctx context.Context, sessionID string) error {
	// Another session may have paired with it, or it left, since the poll.
	queued, err := s.matchmakingRepo.IsQueued(ctx, sessionID)
	if err != nil || !queued {
		return err
	}
	s.prune(ctx)

	partnerID, found, err := s.matchmakingRepo.OldestExcept(ctx, sessionID)
	if err != nil || !found {
		return err
	}

	_, err = s.pair(ctx, s.sessionEntry(ctx, sessionID), partnerID)
	return err
}

// pair claims partnerID and opens a random room for both sessions. A nil
// status means the partner was taken first. On failure every claimed entry
// goes back to its original position.
func (s *matchmakingService) pair(ctx context.Context, caller *domain.QueueEntry, partnerID string) (*domain.MatchStatus, error) {
	partnerScore, claimed, err := s.matchmakingRepo.Claim(ctx, partnerID)
	if err != nil || !claimed {
		return nil, err
	}
	partner := s.sessionEntry(ctx, partnerID)

	// The caller may hold an entry from an earlier join.
	callerScore, callerQueued, err := s.matchmakingRepo.Claim(ctx, caller.SessionID)
	if err != nil {
		s.requeue(ctx, partnerID, partnerScore)
		return nil, err
	}

	room, err := s.openRoom(ctx, caller, partner)
	if err != nil {
		s.requeue(ctx, partnerID, partnerScore)
		if callerQueued {
			s.requeue(ctx, caller.SessionID, callerScore)
		}
		return nil, err
	}

	status := domain.Matched(room.ID)
	status.Partner = partner.DisplayName
	return status, nil
}

func (s *matchmakingService) openRoom(ctx context.Context, caller, partner *domain.QueueEntry) (*domain.Room, error) {
	room, err := s.rooms.CreateRandom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.matchmakingRepo.SaveMatch(ctx, room.ID, s.cfg.MatchTTL, caller.SessionID, partner.SessionID); err != nil {
		// The unused room expires on its own.
		return nil, err
	}

	payload := domain.MatchedPayload{RoomID: room.ID, Partner: caller.DisplayName}
	if err := s.publisher.Publish(ctx, partner.SessionID, domain.EventRandomMatched, payload, s.cfg.MatchTTL); err != nil {
		// The partner still finds the match by polling.
		s.log.Warn("Failed to notify matched partner", "error", err, "session_id", partner.SessionID)
	}

	s.metrics.Matched()
	s.log.Info("Sessions matched", "room_id", room.ID, "session_id", caller.SessionID, "partner_id", partner.SessionID)
	return room, nil
}

// sessionEntry reads a queued session's record, falling back to the default
// display name when it is gone.
func (s *matchmakingService) sessionEntry(ctx context.Context, sessionID string) *domain.QueueEntry {
	entry, err := s.matchmakingRepo.Session(ctx, sessionID)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrInvalidSession) {
			s.log.Warn("Failed to read queue session", "error", err, "session_id", sessionID)
		}
		return &domain.QueueEntry{SessionID: sessionID, DisplayName: domain.DefaultDisplayName}
	}
	return entry
}

func (s *matchmakingService) requeue(ctx context.Context, sessionID string, score float64) {
	if err := s.matchmakingRepo.Requeue(ctx, sessionID, score, s.cfg.QueueTTL); err != nil {
		s.log.Error("Failed to requeue session after failed match", "error", err, "session_id", sessionID)
	}
}

func (s *matchmakingService) prune(ctx context.Context) {
	if _, err := s.matchmakingRepo.PruneExpired(ctx, s.cfg.QueueTTL); err != nil {
		s.log.Warn("Failed to prune matchmaking queue", "error", err)
	}
}

func (s *matchmakingService) enqueue(ctx context.Context, entry *domain.QueueEntry) (*domain.MatchStatus, error) {
	if err := s.matchmakingRepo.Enqueue(ctx, entry, s.cfg.QueueTTL); err != nil {
		return nil, err
	}
	return domain.Queued(), nil
}

func (s *matchmakingService) Leave(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	return s.matchmakingRepo.Leave(ctx, sessionID)
}

// Status reports a pending match, consuming it. A session still waiting
// makes one non-blocking attempt to pair with whoever else is queued, so two
// sessions that both missed the lock on join still meet on their next poll.
func (s *matchmakingService) Status(ctx context.Context, sessionID string) (*domain.MatchStatus, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	status, err := s.poll(ctx, sessionID)
	if err != nil || status.Status != domain.QueueStateQueued {
		return status, err
	}

	acquired, err := repository.WithLock(ctx, s.locker, repository.MatchmakingLockKey, s.cfg.LockTTL, func(ctx context.Context) error {
		return s.matchQueued(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		return status, nil
	}
	return s.poll(ctx, sessionID)
}

func (s *matchmakingService) poll(ctx context.Context, sessionID string) (*domain.MatchStatus, error) {
	roomID, ok, err := s.matchmakingRepo.ConsumeMatch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		return domain.Matched(roomID), nil
	}

	queued, err := s.matchmakingRepo.IsQueued(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if queued {
		return domain.Queued(), nil
	}
	return domain.NotInQueue(), nil
}

func (s *matchmakingService) ConsumeMatch(ctx context.Context, sessionID string) (string, bool, error) {
	return s.matchmakingRepo.ConsumeMatch(ctx, sessionID)
}

// NormalizeDisplayName trims the name, falls back to the default and caps the length.
func NormalizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DefaultDisplayName
	}
	if utf8.RuneCountInString(name) > domain.MaxDisplayNameLength {
		name = string([]rune(name)[:domain.MaxDisplayNameLength])
	}
	return name
}

func validateSessionID(sessionID string) error {
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return apperrors.ErrInvalidSession
	}
	return nil
}
