package ginserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// WindowCounter increments the hit count of key within the current window.
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed-window counter shared by every API instance.
type RedisCounter struct {
	Client *redis.Client
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func (r RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = time.Minute.Milliseconds()
	}
	res, err := fixedWindowScript.Run(ctx, r.Client, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}

type RateLimiter struct {
	Counter  WindowCounter
	Limit    int
	Window   time.Duration
	Prefix   string
	FailOpen bool
	Logger   *slog.Logger
}

// Middleware rejects clients over Limit requests per Window with 429.
func (rl RateLimiter) Middleware() gin.HandlerFunc {
	limit := rl.Limit
	if limit <= 0 {
		limit = 60
	}
	window := rl.Window
	if window <= 0 {
		window = time.Minute
	}
	prefix := strings.TrimSpace(rl.Prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return func(c *gin.Context) {
		key := prefix + ":" + c.ClientIP()
		count, err := rl.Counter.Incr(c.Request.Context(), key, window)
		if err != nil {
			if rl.Logger != nil {
				rl.Logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "error", err)
			}
			if rl.FailOpen {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: "rate limiter unavailable", Code: "rate_limiter_unavailable", Retryable: true})
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: "rate_limited", Retryable: true})
			return
		}
		c.Next()
	}
}
