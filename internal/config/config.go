package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Env            string
	LogLevel       string
	BackendURL     string
	BackendTimeout time.Duration
	SessionSecret  string
	SessionTTL     time.Duration
	CookieSecure   bool
	SearchDebounce time.Duration
	PageSize       int
	CORSOrigins    []string
}

// Load reads configuration from the environment with defaults.
// Precedence: explicit env var > .env file (loaded by main) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.BackendURL = strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/")
	cfg.BackendTimeout = parseDuration("BACKEND_TIMEOUT", 30*time.Second)
	cfg.SessionSecret = getEnv("SESSION_SECRET", "")
	cfg.SessionTTL = parseDuration("SESSION_TTL", 12*time.Hour)
	cfg.CookieSecure = ParseBool("COOKIE_SECURE", false)
	cfg.SearchDebounce = parseDuration("SEARCH_DEBOUNCE", 500*time.Millisecond)
	cfg.PageSize = parseInt("PAGE_SIZE", 10)
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", ""))

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("SESSION_SECRET environment variable is required in production")
		}
		cfg.SessionSecret = "dev-session-secret"
	}
	return cfg
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			log.Printf("invalid duration for %s: %s", key, v)
			return def
		}
		return d
	}
	return def
}

func parseInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
