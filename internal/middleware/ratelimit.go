package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "helio:rate_limit:"

// Limiter is a Redis fixed-window counter keyed by caller.
type Limiter struct {
	rdb    *redis.Client
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	onLimited func(ctx context.Context, key string)
}

// LimiterOption customizes a Limiter.
type LimiterOption func(*Limiter)

// OnLimited registers fn to run whenever a hit is rejected.
func OnLimited(fn func(ctx context.Context, key string)) LimiterOption {
	return func(l *Limiter) { l.onLimited = fn }
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewLimiter builds a limiter allowing limit hits per window. A non-positive
// limit or a nil client disables limiting.
func NewLimiter(rdb *redis.Client, name string, limit int, window time.Duration, opts ...LimiterOption) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{rdb: rdb, name: name, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts one hit for key. Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil || l.rdb == nil || l.limit <= 0 || key == "" {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s%s:%s:%d", rateLimitPrefix, l.name, key, slot)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{Allowed: true, Remaining: -1}, err
	}
	if count == 1 {
		l.rdb.PExpire(ctx, redisKey, l.window+time.Second)
	}

	windowEnd := time.Unix(0, (slot+1)*int64(l.window))
	d := Decision{
		Allowed:    count <= int64(l.limit),
		Remaining:  max(l.limit-int(count), 0),
		RetryAfter: windowEnd.Sub(now),
	}
	if !d.Allowed && l.onLimited != nil {
		l.onLimited(ctx, key)
	}
	return d, nil
}

// RateLimit enforces the limiter per client IP. Authenticated admins bypass it.
func RateLimit(l *Limiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAuthenticated(c) {
			c.Next()
			return
		}

		d, _ := l.Allow(c.Request.Context(), c.ClientIP())
		if d.Remaining >= 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			secs := int(d.RetryAfter.Round(time.Second) / time.Second)
			c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
			response.TooManyRequests(c, message)
			return
		}
		c.Next()
	}
}
