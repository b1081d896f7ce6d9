package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/config"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error)
}

// RateLimitResult 限流结果
type RateLimitResult struct {
	// 是否允许通过
	Allowed bool
	// 剩余请求数
	Remaining int
	// 重置时间（Unix时间戳）
	ResetAt int64
	// 总限制数
	Limit int
}

// windowOf returns the fixed window index and its reset time
func windowOf(now time.Time, window time.Duration) (int64, int64) {
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 1
	}
	idx := now.Unix() / secs
	return idx, (idx + 1) * secs
}

// RedisRateLimiter 基于Redis的固定窗口限流器
type RedisRateLimiter struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(redis *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{redis: redis, now: time.Now}
}

// fixedWindowScript counts the request only when it is admitted
const fixedWindowScript = `
	local current = tonumber(redis.call('GET', KEYS[1]) or 0)
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local allowed = current < limit
	local remaining = limit - current - 1

	if allowed then
		redis.call('INCR', KEYS[1])
		if current == 0 then
			redis.call('EXPIRE', KEYS[1], ttl)
		end
	else
		remaining = 0
	end

	return {allowed and 1 or 0, remaining, limit}
`

// Allow 检查是否允许请求通过
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error) {
	window, resetAt := windowOf(r.now(), rule.Window)
	windowKey := fmt.Sprintf("flota:ratelimit:%s:%d", key, window)

	result, err := r.redis.Eval(ctx, fixedWindowScript, []string{windowKey},
		rule.Limit,
		int(rule.Window.Seconds())+1,
	).Result()
	if err != nil {
		return nil, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply %v", result)
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	limit, _ := values[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   resetAt,
		Limit:     int(limit),
	}, nil
}

// MemoryRateLimiter 进程内固定窗口限流器，未配置Redis时使用
type MemoryRateLimiter struct {
	counters *cache.Cache
	now      func() time.Time
}

// NewMemoryRateLimiter 创建内存限流器
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		counters: cache.New(time.Minute, 5*time.Minute),
		now:      time.Now,
	}
}

// Allow 检查是否允许请求通过
func (m *MemoryRateLimiter) Allow(_ context.Context, key string, rule config.RateLimitRule) (*RateLimitResult, error) {
	window, resetAt := windowOf(m.now(), rule.Window)
	windowKey := fmt.Sprintf("%s:%d", key, window)

	// Add is a no-op when the window already has a counter
	_ = m.counters.Add(windowKey, 0, rule.Window+time.Second)
	n, err := m.counters.IncrementInt(windowKey, 1)
	if err != nil {
		return nil, err
	}

	remaining := rule.Limit - n
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   n <= rule.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		Limit:     rule.Limit,
	}, nil
}

// RateLimit 限流中间件，按路径选择规则，按用户或IP计数
//
// Limiter errors let the request through.
func RateLimit(limiter RateLimiter, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("ratelimit")
	return func(c *gin.Context) {
		if !cfg.RateLimit.Enabled {
			c.Next()
			return
		}

		rule := cfg.RuleForPath(c.Request.URL.Path)
		key := rule.Path + ":" + clientKey(c)

		result, err := limiter.Allow(c.Request.Context(), key, rule)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": result.ResetAt - time.Now().Unix(),
			})
			return
		}

		c.Next()
	}
}

// clientKey 用户ID优先，未登录时使用IP
func clientKey(c *gin.Context) string {
	if uid, ok := c.Get(ContextUserID); ok {
		return fmt.Sprintf("user:%v", uid)
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}
