package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by BOOKBOARD_STORE.
const (
	StoreRedis  = "redis"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, covers awaiting remote writes

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store            string // "redis" | "badger" | "memory"
	BadgerDir        string // data directory when Store == "badger"
	LocalFile        string // YAML file caching device-local state (theme, auth flag)
	MaxDocumentBytes int    // documents larger than this are rejected by the backend

	GCInterval time.Duration // how often the store collects garbage (redis index, badger value log)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisKeyPrefix        string        // namespace for every document key
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts   []string // optional, restrict access to specific Host headers
	AllowedCIDRS   []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	AllowedOrigins []string // CORS origins of the browser UI
	TrustProxy     bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitBurst  int // requests allowed in a burst per client IP
	RateLimitPerMin int // token refill per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BOOKBOARD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BOOKBOARD_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("BOOKBOARD_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:  getenv("BOOKBOARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BOOKBOARD_PRETTY_LOG", true),

		// Storage
		Store:            strings.ToLower(getenv("BOOKBOARD_STORE", StoreRedis)),
		BadgerDir:        getenv("BOOKBOARD_BADGER_DIR", "/data/bookboard"),
		LocalFile:        getenv("BOOKBOARD_LOCAL_FILE", "bookboard.local.yaml"),
		MaxDocumentBytes: getenvInt("BOOKBOARD_MAX_DOCUMENT_BYTES", 1<<20),
		GCInterval:       mustDuration("BOOKBOARD_GC_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisUser:             getenv("BOOKBOARD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BOOKBOARD_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("BOOKBOARD_REDIS_PASSWORD", ""),
		RedisKeyPrefix:        getenv("BOOKBOARD_REDIS_KEY_PREFIX", "bookboard:"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:   splitAndTrim(getenv("BOOKBOARD_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("BOOKBOARD_ALLOWED_CIDRS", "")),
		AllowedOrigins: splitAndTrim(getenv("BOOKBOARD_ALLOWED_ORIGINS", "http://localhost:3000")),
		TrustProxy:     mustBool("BOOKBOARD_TRUST_PROXY", false),

		RateLimitBurst:  getenvInt("BOOKBOARD_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("BOOKBOARD_RATE_LIMIT_PER_MIN", 600),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.RedisAddr = requireEnv("BOOKBOARD_REDIS_ADDR")
		cfg.RedisDB = requireEnvInt("BOOKBOARD_REDIS_DB")
		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: BOOKBOARD_REDIS_PASSWORD is required when BOOKBOARD_REDIS_PASSWORD_REQUIRED=true")
		}
	case StoreBadger, StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: BOOKBOARD_STORE must be one of redis, badger, memory (got %q)", cfg.Store))
	}

	if cfg.MaxDocumentBytes <= 0 {
		panic(fmt.Sprintf("❌ FATAL: BOOKBOARD_MAX_DOCUMENT_BYTES must be > 0 (got %d)", cfg.MaxDocumentBytes))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
