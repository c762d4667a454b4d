package digest

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
)

// Config holds the full runtime configuration, built once in main and
// passed explicitly into each component. No package-level defaults.
type Config struct {
	Query             string
	Limit             int
	PreferredLanguage string

	YouTubeAPIKey string

	LLMAPIKey      string
	LLMAPIBase     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	MaxTranscriptChars int

	ResendAPIKey string
	FromEmail    string
	Recipients   []string

	SubscriptionsFile string
	OutputDir         string
	SeenDBPath        string

	FetchTimeout time.Duration
}

// FromEnv reads the configuration surface from the environment.
func FromEnv() Config {
	return Config{
		Query:             env.Str("SEARCH_KEYWORD", "News"),
		Limit:             env.Int("SEARCH_LIMIT", 5),
		PreferredLanguage: env.Str("PREFERRED_LANGUAGE", "en"),

		YouTubeAPIKey: env.Str("YOUTUBE_API_KEY", ""),

		LLMAPIKey:      env.Str("LLM_API_KEY", ""),
		LLMAPIBase:     env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:       env.Str("LLM_MODEL", "gpt-5-mini-2025-08-07"),
		LLMMaxTokens:   env.Int("LLM_MAX_TOKENS", 4096),
		LLMTemperature: env.Float("LLM_TEMPERATURE", 0.3),

		MaxTranscriptChars: env.Int("MAX_TRANSCRIPT_CHARS", 25000),

		ResendAPIKey: env.Str("RESEND_API_KEY", ""),
		FromEmail:    env.Str("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
		Recipients:   env.List("DIGEST_RECIPIENTS", ""),

		SubscriptionsFile: env.Str("SUBSCRIPTIONS_FILE", ""),
		OutputDir:         env.Str("OUTPUT_DIR", "out"),
		SeenDBPath:        env.Str("SEEN_DB_PATH", ""),

		FetchTimeout: env.Duration("FETCH_TIMEOUT", 15*time.Second),
	}
}

// NewHTTPClient builds the shared HTTP client. Proxy configuration
// (HTTPS_PROXY et al.) is honored through the standard transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}
}
