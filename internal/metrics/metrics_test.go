package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	router := gin.New()
	router.GET("/metrics", m.Handler())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)
	m := New()

	m.RoomCreated(false)
	m.RoomCreated(true)
	m.RoomCreated(true)
	m.Admission("issued")
	m.MessageSent()
	m.RateLimited()
	m.Matched()

	body := scrape(t, m)
	for _, line := range []string{
		`vanish_rooms_created_total{kind="private"} 1`,
		`vanish_rooms_created_total{kind="random"} 2`,
		`vanish_admissions_total{result="issued"} 1`,
		`vanish_messages_sent_total 1`,
		`vanish_rate_limited_total 1`,
		`vanish_matches_total 1`,
	} {
		req.Contains(body, line)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RoomCreated(false)
	m.RoomDestroyed()
	m.MessageSent()
	m.Admission("full")
	m.RateLimited()
	m.QueueJoin("queued")
	m.Matched()
	require.Nil(t, m.Registry())
}

func TestMetrics_HandlerAndMiddleware(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	req.Equal(http.StatusNoContent, w.Code)

	req.Contains(scrape(t, m), `vanish_http_requests_total{method="GET",route="/ping",status="204"} 1`)
}
