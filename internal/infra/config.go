package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Webhook endpoint pairs: the direct upstream URL plus the same-origin
	// proxy path the transport falls back to when the direct call is blocked.
	PromptWebhookURL   string
	AnalysisWebhookURL string
	ProxyBasePath      string

	KlingBaseURL       string
	KlingAPIKey        string
	KlingCreateTimeout time.Duration
	KlingStatusTimeout time.Duration

	PollInterval time.Duration

	AllowedOrigins  []string
	DefaultLocale   string
	RateLimitPerMin int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		PromptWebhookURL:   os.Getenv("PROMPT_WEBHOOK_URL"),
		AnalysisWebhookURL: os.Getenv("ANALYSIS_WEBHOOK_URL"),
		ProxyBasePath:      getEnv("PROXY_BASE_PATH", "/v1/proxy"),
		KlingBaseURL:       getEnv("KLING_BASE_URL", "https://api.klingai.com"),
		KlingAPIKey:        os.Getenv("KLING_API_KEY"),
		KlingCreateTimeout: time.Second * time.Duration(getEnvInt("KLING_CREATE_TIMEOUT_SECONDS", 55)),
		KlingStatusTimeout: time.Second * time.Duration(getEnvInt("KLING_STATUS_TIMEOUT_SECONDS", 10)),
		PollInterval:       time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.PromptWebhookURL == "" {
		return nil, fmt.Errorf("PROMPT_WEBHOOK_URL is required")
	}
	if cfg.AnalysisWebhookURL == "" {
		cfg.AnalysisWebhookURL = cfg.PromptWebhookURL
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
