package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prohmpiriya/event-registration/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-registration/pkg/redis"
	"github.com/prohmpiriya/event-registration/pkg/response"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// PerMinute is the sustained number of requests per key per minute
	PerMinute int
	// BurstSize is the token bucket capacity
	BurstSize int
	// RedisClient enables distributed limiting when set
	RedisClient *pkgredis.Client
	// KeyPrefix namespaces the Redis keys
	KeyPrefix string
	// EntryTTL is how long an idle local bucket is kept
	EntryTTL time.Duration
	// KeyFunc derives the limit key from the request (default: client IP)
	KeyFunc func(c *gin.Context) string
	// Logger reports Redis failures
	Logger *logger.Logger
}

// DefaultRateLimitConfig returns defaults suited to the login endpoint
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		PerMinute: 10,
		BurstSize: 5,
		KeyPrefix: "ratelimit:login:",
		EntryTTL:  5 * time.Minute,
	}
}

// Limiter decides whether a request under key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter is an in-process token bucket per key
type LocalRateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu      sync.Mutex
	buckets map[string]*localBucket
	stop    chan struct{}
	once    sync.Once

	totalAllowed  atomic.Uint64
	totalRejected atomic.Uint64
}

// NewLocalRateLimiter creates a local limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.EntryTTL <= 0 {
		config.EntryTTL = 5 * time.Minute
	}
	rl := &LocalRateLimiter{
		limit:   rate.Limit(float64(config.PerMinute) / 60),
		burst:   config.BurstSize,
		ttl:     config.EntryTTL,
		buckets: make(map[string]*localBucket),
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow consumes one token from key's bucket
func (rl *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	if b.lim.AllowN(now, 1) {
		rl.totalAllowed.Add(1)
		return true, nil
	}
	rl.totalRejected.Add(1)
	return false, nil
}

// GetStats returns rate limiter statistics
func (rl *LocalRateLimiter) GetStats() (allowed, rejected uint64) {
	return rl.totalAllowed.Load(), rl.totalRejected.Load()
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.ttl)
			rl.mu.Lock()
			for k, b := range rl.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

const rateLimitScriptName = "rate_limit"

// rateLimitScript is a token bucket kept in a hash. ARGV: rate per second,
// burst, now in seconds.
const rateLimitScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, math.ceil(burst / rate) + 60)
return {allowed, tostring(tokens)}
`

// RedisRateLimiter shares buckets between instances through Redis
type RedisRateLimiter struct {
	client    *pkgredis.Client
	prefix    string
	perSecond float64
	burst     int
}

// NewRedisRateLimiter loads the limiter script
func NewRedisRateLimiter(ctx context.Context, config RateLimitConfig) (*RedisRateLimiter, error) {
	if config.RedisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if _, err := config.RedisClient.LoadScript(ctx, rateLimitScriptName, rateLimitScript); err != nil {
		return nil, err
	}
	return &RedisRateLimiter{
		client:    config.RedisClient,
		prefix:    config.KeyPrefix,
		perSecond: float64(config.PerMinute) / 60,
		burst:     config.BurstSize,
	}, nil
}

// Allow consumes one token from key's shared bucket
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9

	values, err := rl.client.EvalShaByName(ctx, rateLimitScriptName,
		[]string{rl.prefix + key},
		rl.perSecond,
		rl.burst,
		now,
	).Slice()
	if err != nil {
		return false, err
	}
	if len(values) < 1 {
		return false, fmt.Errorf("unexpected result length")
	}

	allowed, _ := values[0].(int64)
	return allowed == 1, nil
}

// RateLimiter creates a rate limiting middleware over limiter. Limiter
// errors fail open.
func RateLimiter(limiter Limiter, config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}
	retryAfter := 60
	if config.PerMinute > 0 {
		retryAfter = max(1, 60/config.PerMinute)
	}

	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.WarnContext(c.Request.Context(), "rate limiter unavailable", zap.Error(err))
			allowed = true
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.PerMinute))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.TooManyRequests("Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" second(s)."))
			return
		}

		c.Next()
	}
}
