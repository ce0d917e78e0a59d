package mw

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/utils"
)

// RateLimitConfig is a per-client token bucket. Burst and PerMin come from
// BOOKBOARD_RATE_LIMIT_BURST and BOOKBOARD_RATE_LIMIT_PER_MIN.
type RateLimitConfig struct {
	Burst         int
	PerMin        int
	MaxClients    int           // sweep idle clients early once this many are tracked
	SweepInterval time.Duration // defaults to a minute
	IdleTTL       time.Duration // defaults to 15 minutes
	TrustProxy    bool          // resolve the client from proxy headers
}

type clientBucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

type limiter struct {
	cfg       RateLimitConfig
	perSec    float64
	capacity  float64
	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	cfg.Burst = max(cfg.Burst, 1)
	cfg.PerMin = max(cfg.PerMin, 1)
	return &limiter{
		cfg:       cfg,
		perSec:    float64(cfg.PerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		clients:   make(map[string]*clientBucket),
		lastSweep: time.Now(),
	}
}

func (l *limiter) bucket(client string, now time.Time) *clientBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxClients > 0 && len(l.clients) >= l.cfg.MaxClients) {
		l.sweepLocked(now)
	}
	b := l.clients[client]
	if b == nil {
		b = &clientBucket{tokens: l.capacity, refilled: now, seen: now}
		l.clients[client] = b
	}
	return b
}

// take consumes a token for client. When none is left it reports how long
// until the next one.
func (l *limiter) take(client string, now time.Time) (remaining int, retryAfter time.Duration, ok bool) {
	b := l.bucket(client, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.refilled).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.perSec)
		b.refilled = now
	}
	b.seen = now

	if b.tokens < 1 {
		wait := math.Ceil((1 - b.tokens) / l.perSec)
		return 0, time.Duration(max(wait, 1)) * time.Second, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

func (l *limiter) sweepLocked(now time.Time) {
	for client, b := range l.clients {
		if now.Sub(b.seen) > l.cfg.IdleTTL {
			delete(l.clients, client)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects a client with 429 once its bucket is empty. Limit
// headers are set before the handler runs so they reach the client.
func RateLimit(cfg RateLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)
	log = log.With(logger.String("component", "rate_limit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := utils.ClientIP(r, l.cfg.TrustProxy)
			remaining, retryAfter, ok := l.take(client, time.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(retryAfter / time.Second)
				log.Debug("client rate limited",
					logger.String("client_ip", client),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after_s", secs))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				reject(w, http.StatusTooManyRequests, fmt.Sprintf("too many requests, retry in %ds", secs))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
