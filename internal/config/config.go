package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimitRule 限流规则配置
type RateLimitRule struct {
	// 路径匹配（前缀匹配）
	Path string
	// 请求限制数
	Limit int
	// 窗口大小
	Window time.Duration
}

// RateLimitConfig 限流总配置
type RateLimitConfig struct {
	Enabled       bool
	DefaultRule   RateLimitRule
	SpecificRules []RateLimitRule
}

// MonitorConfig 车队巡检配置
type MonitorConfig struct {
	TickInterval      time.Duration
	SimulateMovement  bool
	JitterDegrees     float64
	InspectionDueDays int
	AlertFeedCapacity int
}

// Config holds all configuration for the API server
type Config struct {
	APIPort             int
	GinMode             string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	TokenTTL            time.Duration
	LocationHistorySize int
	IntervalsFile       string
	SummaryCacheTTL     time.Duration
	Monitor             MonitorConfig
	RateLimit           RateLimitConfig
}

// Load loads configuration from environment variables, reading a .env file first when present.
// Redis and NATS are optional: an empty URL disables them.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIPort:             getEnvAsInt("API_PORT", 3000),
		GinMode:             getEnv("GIN_MODE", "release"),
		RedisURL:            getEnv("REDIS_URL", ""),
		NATSURL:             getEnv("NATS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", "gestion-flota-secret-change-in-production"),
		TokenTTL:            getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		LocationHistorySize: getEnvAsInt("LOCATION_HISTORY_SIZE", 100),
		IntervalsFile:       getEnv("INTERVALS_FILE", ""),
		SummaryCacheTTL:     getEnvAsDuration("SUMMARY_CACHE_TTL", 30*time.Second),
		Monitor: MonitorConfig{
			TickInterval:      getEnvAsDuration("TICK_INTERVAL", 3*time.Second),
			SimulateMovement:  getEnvAsBool("SIMULATE_MOVEMENT", true),
			JitterDegrees:     getEnvAsFloat("JITTER_DEGREES", 0.0005),
			InspectionDueDays: getEnvAsInt("INSPECTION_DUE_DAYS", 60),
			AlertFeedCapacity: getEnvAsInt("ALERT_FEED_CAPACITY", 200),
		},
		RateLimit: loadRateLimitConfig(),
	}
}

// loadRateLimitConfig 加载限流配置
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: getEnvAsBool("RATE_LIMIT_ENABLED", true),
		DefaultRule: RateLimitRule{
			Path:   "*",
			Limit:  getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
			Window: time.Duration(getEnvAsInt("RATE_LIMIT_DEFAULT_WINDOW", 60)) * time.Second,
		},
		SpecificRules: []RateLimitRule{
			// 登录接口限流：5次/分钟
			{
				Path:   "/api/v1/auth/login",
				Limit:  getEnvAsInt("RATE_LIMIT_LOGIN_LIMIT", 5),
				Window: time.Duration(getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW", 60)) * time.Second,
			},
			{
				Path:   "/api/v1/auth/register",
				Limit:  getEnvAsInt("RATE_LIMIT_LOGIN_LIMIT", 5),
				Window: time.Duration(getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW", 60)) * time.Second,
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// RuleForPath 获取指定路径的限流规则
func (c *Config) RuleForPath(path string) RateLimitRule {
	for _, rule := range c.RateLimit.SpecificRules {
		if rule.Path != "" && strings.HasPrefix(path, rule.Path) {
			return rule
		}
	}
	return c.RateLimit.DefaultRule
}
