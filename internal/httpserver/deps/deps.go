package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/validation"
)

// DocumentCounter is implemented by every store backend.
type DocumentCounter interface {
	CountDocuments(ctx context.Context, pathPrefix string) (int, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time      // for testing, defaults to time.Now
	AllowedHosts   []string              // Host headers allowed to access the server
	AllowedCIDRS   []string              // IPs allowed to access readyz/infra endpoints
	AllowedOrigins []string              // CORS origins of the browser UI
	TrustProxy     bool                  // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimit      RateLimit             // per-IP limits on /api
	Limiter        Middleware            // shared limiter built from RateLimit by the server
	RequestTimeout time.Duration         // per-request timeout, covers awaiting remote writes
	StoreKind      string                // "redis" | "badger" | "memory"
	Backend        docstore.Backend      // document database
	Gateway        *docstore.Gateway     // issues the session's reads and writes
	Counter        DocumentCounter       // backend statistics, nil if unsupported
	State          *appstate.State       // the in-memory session
	Validator      *validation.Validator // request body validation
}

type Middleware = func(http.Handler) http.Handler

// RateLimit mirrors the configured token bucket.
type RateLimit struct {
	Burst  int
	PerMin int
}
