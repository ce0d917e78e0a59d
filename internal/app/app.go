package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/appstate"
	"github.com/MrSnakeDoc/bookboard/internal/auth"
	"github.com/MrSnakeDoc/bookboard/internal/config"
	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/domain"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver"
	"github.com/MrSnakeDoc/bookboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookboard/internal/localstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
	"github.com/MrSnakeDoc/bookboard/internal/redis"
	"github.com/MrSnakeDoc/bookboard/internal/scheduler"
	badgerstore "github.com/MrSnakeDoc/bookboard/internal/store/badger"
	"github.com/MrSnakeDoc/bookboard/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/bookboard/internal/store/redis"
	"github.com/MrSnakeDoc/bookboard/internal/validation"
	"github.com/MrSnakeDoc/bookboard/internal/version"
)

// backend is what every store implementation offers.
type backend interface {
	docstore.Backend
	deps.DocumentCounter
}

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	backend backend
	gateway *docstore.Gateway
	gc      *scheduler.GarbageCollector
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	// Open the document store early - fail fast if unavailable
	store, collector, err := openStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	loggerClient.Info("document store initialized", logger.String("store", cfg.Store))

	local, err := localstore.Open(cfg.LocalFile)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	session := auth.NewSession(local, loggerClient)
	gateway := docstore.NewGateway(store, session, loggerClient)
	state := appstate.New(ctx, gateway, session, local, domain.NewNotifier(), loggerClient)

	var gc *scheduler.GarbageCollector
	if collector != nil {
		gc = scheduler.NewGarbageCollector(collector, cfg.Store, loggerClient, cfg.GCInterval)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		RateLimit:      deps.RateLimit{Burst: cfg.RateLimitBurst, PerMin: cfg.RateLimitPerMin},
		RequestTimeout: cfg.RequestTimeout,
		StoreKind:      cfg.Store,
		Backend:        store,
		Gateway:        gateway,
		Counter:        store,
		State:          state,
		Validator:      validation.New(),
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		server:  server,
		backend: store,
		gateway: gateway,
		gc:      gc,
	}, nil
}

// openStore opens the configured backend. The collector is nil for
// backends without garbage to collect.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (backend, scheduler.Collector, error) {
	switch cfg.Store {
	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := redisstore.NewStore(client, redisstore.Options{
			KeyPrefix: cfg.RedisKeyPrefix,
			MaxBytes:  cfg.MaxDocumentBytes,
		})
		return store, store, nil

	case config.StoreBadger:
		store, err := badgerstore.New(badgerstore.Options{
			Dir:      cfg.BadgerDir,
			MaxBytes: cfg.MaxDocumentBytes,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case config.StoreMemory:
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New(cfg.MaxDocumentBytes), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Bookboard v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Bookboard %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start garbage collector
	if a.gc != nil {
		if err := a.gc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start garbage collector: %w", err)
		}
		a.logger.Info("garbage collector started",
			logger.Duration("interval", a.cfg.GCInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop garbage collector
	if a.gc != nil {
		a.gc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// Let issued remote writes land before the store goes away
	if err := a.gateway.Flush(shutdownCtx); err != nil {
		a.logger.Warn("remote writes still in flight at shutdown", logger.Error(err))
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Warnf("failed to close %s store: %v", a.cfg.Store, err)
	} else {
		a.logger.Infof("✅ %s store closed cleanly", a.cfg.Store)
	}

	a.logger.Info("✅ Bookboard stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
