package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"vanish/internal/config"
	"vanish/internal/metrics"
	"vanish/internal/middleware"
	"vanish/internal/realtime"
	"vanish/internal/repository"
	"vanish/internal/service"
	"vanish/pkg/logger"
	"vanish/pkg/sealer"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/121.0 Safari/537.36"

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	broker   *realtime.Broker
	services *service.Services
	router   *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := sealer.New(sealer.CipherXChaCha, []byte(sealer.DevelopmentKey))
	require.NoError(t, err)

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{Window: 10 * time.Second, MaxRequests: 5, BlockDuration: time.Minute},
		Room: config.RoomConfig{
			MinTTL: time.Minute, MaxTTL: 20 * time.Minute,
			DefaultTTL: 10 * time.Minute, DefaultGroupTTL: 15 * time.Minute, RandomTTL: 10 * time.Minute,
		},
		Matchmaking: config.MatchmakingConfig{LockTTL: 5 * time.Second, QueueTTL: time.Hour, MatchTTL: time.Minute},
		Realtime:    config.RealtimeConfig{HistorySize: 100},
	}
	log := logger.NewNop()
	m := metrics.New()
	repos := repository.NewRepositories(rdb, log)
	broker := realtime.NewBroker(rdb, cfg.Realtime.HistorySize, log)
	services := service.NewServices(repos, broker, s, m, cfg, log)
	handlers := NewHandlers(services, rdb, broker, log)

	rateLimit := middleware.NewRateLimitMiddleware(services.RateLimit, m, log)
	roomAuth := middleware.NewRoomAuthMiddleware(services.Gatekeeper, log)
	roomGate := middleware.NewRoomGateMiddleware(services.Gatekeeper, false, m, log)

	router := gin.New()
	router.Use(middleware.Client())
	router.Use(middleware.ErrorHandler(log))
	router.GET("/health", handlers.Health.Check)
	router.GET("/api/stats", handlers.Stats.GetStats)
	router.POST("/api/room/create", rateLimit.Limit(), handlers.Room.Create)
	router.GET("/api/room/ttl", roomAuth.RequireMember(), handlers.Room.GetTTL)
	router.DELETE("/api/room", roomAuth.RequireMember(), handlers.Room.Destroy)
	router.GET("/api/messages", roomAuth.RequireMember(), handlers.Chat.GetMessages)
	router.POST("/api/messages", roomAuth.RequireMember(), handlers.Chat.SendMessage)
	router.POST("/api/messages/typing", roomAuth.RequireMember(), handlers.Chat.Typing)
	router.POST("/api/random/queue/join", handlers.Matchmaking.Join)
	router.POST("/api/random/queue/leave", handlers.Matchmaking.Leave)
	router.GET("/api/random/queue/status", handlers.Matchmaking.Status)
	router.GET("/room/:roomId", roomGate.Private(), handlers.Room.View)
	router.GET("/random/:roomId", roomGate.Random(), handlers.Room.View)
	router.GET("/ws/room/:roomId", roomAuth.RequireMember(), handlers.WebSocket.HandleRoom)
	router.GET("/ws/random/:sessionId", handlers.WebSocket.HandleSession)

	return &testApp{
		mr:       mr,
		rdb:      rdb,
		broker:   broker,
		services: services,
		router:   router,
	}
}

// do sends a request with an optional JSON body and auth token.
func (a *testApp) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("User-Agent", browserUA)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

// enter creates a room through the API and walks through the room gate,
// returning the room ID and the issued token.
func (a *testApp) enter(t *testing.T, body interface{}) (string, string) {
	t.Helper()
	w := a.do(http.MethodPost, "/api/room/create", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = a.do(http.MethodGet, "/room/"+created.RoomID, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookieName {
			return created.RoomID, c.Value
		}
	}
	t.Fatal("no auth cookie issued")
	return "", ""
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
