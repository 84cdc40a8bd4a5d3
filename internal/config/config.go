package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Text generation (OpenAI-compatible)
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	// Upstream social network (AT protocol / Bluesky)
	BlueskyAccount    string
	BlueskyKey        string
	BlueskyServiceURL string

	// Feed fetching
	FeedLimit             int
	FeedRequestsPerSecond float64
	UpstreamTimeout       time.Duration

	// Schedules
	SessionRefreshInterval time.Duration
	CacheClearInterval     time.Duration
	CacheClearCron         string // overrides CacheClearInterval when set
	CacheTTL               time.Duration

	// HTTP surface
	SiteDir        string
	PromptsFile    string
	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3333"),
		Environment: getEnv("ENVIRONMENT", "development"),

		OpenAIKey:     getEnv("SUMUP_OPENAI", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		BlueskyAccount:    getEnv("SUMUP_BLUESKY_ACCOUNT", ""),
		BlueskyKey:        getEnv("SUMUP_BLUESKY_KEY", ""),
		BlueskyServiceURL: strings.TrimRight(getEnv("BLUESKY_SERVICE_URL", "https://bsky.social"), "/"),

		FeedLimit:             getIntEnv("FEED_LIMIT", 55),
		FeedRequestsPerSecond: getFloatEnv("FEED_REQUESTS_PER_SECOND", 5),
		UpstreamTimeout:       getDurationEnv("UPSTREAM_TIMEOUT", 60*time.Second),

		SessionRefreshInterval: getDurationEnv("SESSION_REFRESH_INTERVAL", time.Hour),
		CacheClearInterval:     getDurationEnv("CACHE_CLEAR_INTERVAL", 24*time.Hour),
		CacheClearCron:         getEnv("CACHE_CLEAR_CRON", ""),
		CacheTTL:               getDurationEnv("CACHE_TTL", 0),

		SiteDir:        getEnv("SITE_DIR", "site"),
		PromptsFile:    getEnv("PROMPTS_FILE", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}
}

// MissingCredentials returns the names of required variables that are unset
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.OpenAIKey == "" {
		missing = append(missing, "SUMUP_OPENAI")
	}
	if c.BlueskyAccount == "" {
		missing = append(missing, "SUMUP_BLUESKY_ACCOUNT")
	}
	if c.BlueskyKey == "" {
		missing = append(missing, "SUMUP_BLUESKY_KEY")
	}
	return missing
}

// Mask hides all but the first few characters of a secret for logging
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
