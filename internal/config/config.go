package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// OpenAI (content generation)
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32

	// Dev.to
	DevToAPIKey string

	// Mastodon
	MastodonServer      string
	MastodonAccessToken string

	// Threads official API
	ThreadsMode         string // "api" or "browser"
	ThreadsClientID     string
	ThreadsClientSecret string
	ThreadsRedirectURI  string
	ThreadsAccessToken  string
	ThreadsRefreshToken string
	ThreadsTokenExpiry  time.Time

	// Threads browser automation (Instagram login)
	InstagramUsername string
	InstagramPassword string
	BrowserHeadless   bool

	// LinkedIn session cookies
	LinkedInJSESSIONID string
	LinkedInLiAt       string

	// Threads rate limits
	ThreadsPostsPerHour int
	ThreadsPostsPerDay  int
	ThreadsMinInterval  time.Duration
	ThreadsCooldown     time.Duration

	// Serve mode
	ListenAddr string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:        getEnv("DATABASE_PATH", "data/syndibot.db"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		DevToAPIKey:         getEnv("DEVTO_API_KEY", ""),
		MastodonServer:      getEnv("MASTODON_SERVER", "https://mastodon.social"),
		MastodonAccessToken: getEnv("MASTODON_ACCESS_TOKEN", ""),
		ThreadsMode:         strings.ToLower(getEnv("THREADS_MODE", "api")),
		ThreadsClientID:     getEnv("THREADS_CLIENT_ID", ""),
		ThreadsClientSecret: getEnv("THREADS_CLIENT_SECRET", ""),
		ThreadsRedirectURI:  getEnv("THREADS_REDIRECT_URI", ""),
		ThreadsAccessToken:  getEnv("THREADS_ACCESS_TOKEN", ""),
		ThreadsRefreshToken: getEnv("THREADS_REFRESH_TOKEN", ""),
		InstagramUsername:   getEnv("INSTAGRAM_USERNAME", ""),
		InstagramPassword:   getEnv("INSTAGRAM_PASSWORD", ""),
		LinkedInJSESSIONID:  strings.Trim(getEnv("LINKEDIN_JSESSIONID", ""), "\" "),
		LinkedInLiAt:        strings.TrimSpace(getEnv("LINKEDIN_LI_AT", "")),
		ListenAddr:          getEnv("LISTEN_ADDR", ":8090"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	headless, err := strconv.ParseBool(getEnv("BROWSER_HEADLESS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_HEADLESS: %w", err)
	}
	cfg.BrowserHeadless = headless

	// Parse floats
	temp, err := strconv.ParseFloat(getEnv("OPENAI_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_TEMPERATURE: %w", err)
	}
	cfg.OpenAITemperature = float32(temp)

	// Parse token expiry (unix seconds, matching what `syndibot setup` prints)
	if raw := getEnv("THREADS_TOKEN_EXPIRY", ""); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid THREADS_TOKEN_EXPIRY: %w", err)
		}
		cfg.ThreadsTokenExpiry = time.Unix(int64(secs), 0)
	}

	// Parse rate limits
	cfg.ThreadsPostsPerHour, err = strconv.Atoi(getEnv("THREADS_POSTS_PER_HOUR", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid THREADS_POSTS_PER_HOUR: %w", err)
	}
	cfg.ThreadsPostsPerDay, err = strconv.Atoi(getEnv("THREADS_POSTS_PER_DAY", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid THREADS_POSTS_PER_DAY: %w", err)
	}
	minInterval, err := strconv.Atoi(getEnv("THREADS_MIN_INTERVAL", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid THREADS_MIN_INTERVAL: %w", err)
	}
	cfg.ThreadsMinInterval = time.Duration(minInterval) * time.Second
	cooldown, err := strconv.Atoi(getEnv("THREADS_COOLDOWN", "3600"))
	if err != nil {
		return nil, fmt.Errorf("invalid THREADS_COOLDOWN: %w", err)
	}
	cfg.ThreadsCooldown = time.Duration(cooldown) * time.Second

	if cfg.ThreadsMode != "api" && cfg.ThreadsMode != "browser" {
		return nil, fmt.Errorf("invalid THREADS_MODE: %s (must be 'api' or 'browser')", cfg.ThreadsMode)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// DevToEnabled reports whether Dev.to credentials are configured.
func (c *Config) DevToEnabled() bool {
	return c.DevToAPIKey != ""
}

// MastodonEnabled reports whether Mastodon credentials are configured.
func (c *Config) MastodonEnabled() bool {
	return c.MastodonAccessToken != ""
}

// ThreadsEnabled reports whether the configured Threads variant has
// credentials.
func (c *Config) ThreadsEnabled() bool {
	if c.ThreadsMode == "browser" {
		return c.InstagramUsername != "" && c.InstagramPassword != ""
	}
	return c.ThreadsAccessToken != "" || c.ThreadsRefreshToken != ""
}

// LinkedInEnabled reports whether LinkedIn session cookies are configured.
func (c *Config) LinkedInEnabled() bool {
	return c.LinkedInJSESSIONID != "" && c.LinkedInLiAt != ""
}

// ValidateForPosting checks that at least one platform is configured.
func (c *Config) ValidateForPosting() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.DevToEnabled() && !c.MastodonEnabled() && !c.ThreadsEnabled() && !c.LinkedInEnabled() {
		return fmt.Errorf("no platform credentials configured (set DEVTO_API_KEY, MASTODON_ACCESS_TOKEN, THREADS_* or LINKEDIN_* variables)")
	}
	return nil
}

// ValidateForGeneration checks configuration needed for content generation.
func (c *Config) ValidateForGeneration() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for content generation")
	}
	return nil
}

// ValidateForSetup checks configuration needed for the Threads OAuth setup
// flow.
func (c *Config) ValidateForSetup() error {
	if c.ThreadsClientID == "" || c.ThreadsClientSecret == "" {
		return fmt.Errorf("THREADS_CLIENT_ID and THREADS_CLIENT_SECRET are required for setup")
	}
	if c.ThreadsRedirectURI == "" {
		return fmt.Errorf("THREADS_REDIRECT_URI is required for setup")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
