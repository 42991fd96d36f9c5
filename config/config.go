package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetcher   FetcherConfig
	Discovery DiscoveryConfig
	Digest    DigestConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// FetcherConfig controls per-page fetching behavior.
type FetcherConfig struct {
	// PageTimeout is the hard deadline for fetching one page.
	PageTimeout time.Duration // default: 30s

	// HTTPTimeout is the deadline for the HTTP-first attempt before
	// escalating to the browser.
	HTTPTimeout time.Duration // default: 5s

	// BlockedResourceTypes lists browser resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// ContentSelector optionally scopes extraction to a CSS selector
	// (e.g. "main, article" for documentation sites). Empty = whole page.
	ContentSelector string

	// Stealth enables anti-bot-detection evasions in the browser path.
	Stealth bool // default: false
}

// DiscoveryConfig controls link discovery from the seed page.
type DiscoveryConfig struct {
	// RestrictedSubstrings excludes any link whose resolved URL contains
	// one of these substrings (case-insensitive). The match is deliberately
	// substring-wide, not per path segment.
	RestrictedSubstrings []string
}

// DigestConfig controls content aggregation.
type DigestConfig struct {
	// Concurrency is the number of pages fetched in parallel. The output
	// document keeps input order regardless. default: 1 (sequential).
	Concurrency int
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the fetch outcome cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached outcomes.
	MaxEntries int // default: 1000

	// TTL is how long a cached outcome stays valid.
	TTL time.Duration // default: 15m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultRestrictedSubstrings is the path denylist the product shipped with.
var DefaultRestrictedSubstrings = []string{
	"login", "signup", "register", "logout", "account", "profile", "admin",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("DIGEST_HOST", "0.0.0.0"),
			Port: envIntOr("DIGEST_PORT", 8080),
			Mode: envOr("DIGEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("DIGEST_HEADLESS", true),
			MaxPages:   envIntOr("DIGEST_MAX_PAGES", 10),
			NoSandbox:  envBoolOr("DIGEST_NO_SANDBOX", false),
			BrowserBin: os.Getenv("DIGEST_BROWSER_BIN"),
		},
		Fetcher: FetcherConfig{
			PageTimeout: envDurationOr("DIGEST_PAGE_TIMEOUT", 30*time.Second),
			HTTPTimeout: envDurationOr("DIGEST_HTTP_TIMEOUT", 5*time.Second),
			BlockedResourceTypes: envSliceOr("DIGEST_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			ContentSelector: os.Getenv("DIGEST_CONTENT_SELECTOR"),
			Stealth:         envBoolOr("DIGEST_STEALTH", false),
		},
		Discovery: DiscoveryConfig{
			RestrictedSubstrings: envSliceOr("DIGEST_RESTRICTED_PATHS", DefaultRestrictedSubstrings),
		},
		Digest: DigestConfig{
			Concurrency: envIntOr("DIGEST_CONCURRENCY", 1),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("DIGEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("DIGEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("DIGEST_RATE_RPS", 5.0),
			Burst:             envIntOr("DIGEST_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("DIGEST_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("DIGEST_CACHE_TTL", 15*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("DIGEST_LOG_LEVEL", "info"),
			Format: envOr("DIGEST_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
