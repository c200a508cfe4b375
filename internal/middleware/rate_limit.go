package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"vanish/internal/metrics"
	"vanish/internal/service"
	"vanish/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	metrics          *metrics.Metrics
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, m *metrics.Metrics, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		metrics:          m,
		log:              log,
	}
}

func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := GetClient(c)

		result, err := m.rateLimitService.Check(c.Request.Context(), client)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err, "client", client)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", result.ResetAt.UTC().Format(time.RFC3339))

		if !result.Allowed {
			m.metrics.RateLimited()
			retryAfter := result.RetryAfterSeconds()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests",
				"message":    "Rate limit exceeded. Try again in " + strconv.Itoa(retryAfter) + " seconds.",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}
