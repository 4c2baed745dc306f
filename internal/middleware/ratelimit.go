package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"realtyhub/internal/metrics"
	"realtyhub/internal/ratelimit"
)

// RateLimit admits requests per client key. A failing counter store lets the
// request through rather than taking the API down with it.
func RateLimit(limiter *ratelimit.Limiter, log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ratelimit.ClientKey(c.Request)
		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Error().Err(err).Str("client", key).Msg("rate limit store failed")
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			m.RateLimited()
			retry := res.RetryAfterSeconds()
			h.Set("Retry-After", strconv.Itoa(retry))
			log.Warn().
				Str("client", key).
				Int("count", res.Count).
				Str("request_id", RequestIDFrom(c)).
				Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests, try again later",
				"retryAfter": retry,
			})
			return
		}
		c.Next()
	}
}
