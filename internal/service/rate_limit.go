package service

import (
	"context"
	"time"

	"vanish/internal/config"
	"vanish/internal/domain"
	"vanish/internal/repository"
	"vanish/pkg/logger"
)

type RateLimitService interface {
	// Check counts one request for client and reports whether it may proceed.
	Check(ctx context.Context, client string) (*domain.RateLimitResult, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	cfg           config.RateLimitConfig
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, cfg config.RateLimitConfig, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		cfg:           cfg,
		log:           log,
	}
}

func (s *rateLimitService) Check(ctx context.Context, client string) (*domain.RateLimitResult, error) {
	if client == "" {
		client = domain.UnknownClient
	}

	hit, err := s.rateLimitRepo.Hit(ctx, client, s.cfg.MaxRequests, s.cfg.Window, s.cfg.BlockDuration)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &domain.RateLimitResult{
		Allowed: !hit.Blocked,
		Limit:   s.cfg.MaxRequests,
		ResetAt: now.Add(hit.TTL),
		Blocked: hit.Blocked,
	}
	if hit.Blocked {
		result.RetryAfter = hit.TTL
		s.log.Warn("Client rate limited", "client", client, "retry_after", hit.TTL)
		return result, nil
	}

	if remaining := int64(s.cfg.MaxRequests) - hit.Count; remaining > 0 {
		result.Remaining = int(remaining)
	}
	return result, nil
}
