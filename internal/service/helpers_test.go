package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"vanish/internal/config"
	"vanish/internal/metrics"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	"vanish/pkg/logger"
	"vanish/pkg/sealer"
)

type testEnv struct {
	mr      *miniredis.Miniredis
	repos   *repository.Repositories
	broker  *realtime.Broker
	sealer  sealer.Sealer
	metrics *metrics.Metrics
	cfg     *config.Config
	log     logger.Logger
}

func testConfig() *config.Config {
	return &config.Config{
		RateLimit: config.RateLimitConfig{
			Window:        10 * time.Second,
			MaxRequests:   3,
			BlockDuration: time.Minute,
		},
		Room: config.RoomConfig{
			MinTTL:          time.Minute,
			MaxTTL:          20 * time.Minute,
			DefaultTTL:      10 * time.Minute,
			DefaultGroupTTL: 15 * time.Minute,
			RandomTTL:       10 * time.Minute,
		},
		Matchmaking: config.MatchmakingConfig{
			LockTTL:  5 * time.Second,
			QueueTTL: time.Hour,
			MatchTTL: time.Minute,
		},
		Realtime: config.RealtimeConfig{HistorySize: 100},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := sealer.New(sealer.CipherAESGCM, []byte(sealer.DevelopmentKey))
	require.NoError(t, err)

	log := logger.NewNop()
	cfg := testConfig()
	return &testEnv{
		mr:      mr,
		repos:   repository.NewRepositories(rdb, log),
		broker:  realtime.NewBroker(rdb, cfg.Realtime.HistorySize, log),
		sealer:  s,
		metrics: metrics.New(),
		cfg:     cfg,
		log:     log,
	}
}

func (e *testEnv) services() *Services {
	return NewServices(e.repos, e.broker, e.sealer, e.metrics, e.cfg, e.log)
}
