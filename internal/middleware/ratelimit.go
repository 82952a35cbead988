package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/response"
)

type rateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

type rateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimit throttles requests per signed-in user, falling back to the client IP.
func RateLimit(limiter rateLimiter, recorder rateLimitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if identity := Identity(c); identity != nil {
			key = "user:" + identity.ID
		}

		allowed, wait := limiter.Allow(key)
		if allowed {
			c.Next()
			return
		}
		if recorder != nil {
			recorder.RecordRateLimited()
		}
		seconds := int(math.Ceil(wait.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		response.Error(c, appErrors.WithDetail(appErrors.ErrTooManyRequests, "retry_after_seconds", seconds))
		c.Abort()
	}
}
