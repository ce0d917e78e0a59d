package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

const (
	// DefaultGCInterval is how often storage garbage is collected
	DefaultGCInterval = 10 * time.Minute
)

// Collector reclaims storage left behind by deleted documents and
// returns how much it cleaned up.
type Collector interface {
	CollectGarbage(ctx context.Context) (int, error)
}

// GarbageCollector periodically runs a store's garbage collection
type GarbageCollector struct {
	collector Collector
	name      string
	logger    logger.Logger
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	collector Collector,
	name string,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		collector: collector,
		name:      name,
		logger:    log,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.String("store", gc.name),
			logger.Error(err))
	}

	// Start periodic collection
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.String("store", gc.name),
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector. It is safe to call more than once.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect runs one garbage collection pass
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	start := time.Now()
	n, err := gc.collector.CollectGarbage(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		gc.logger.Info("garbage collection completed",
			logger.String("store", gc.name),
			logger.Int("collected", n),
			logger.Duration("duration", time.Since(start)))
	} else {
		gc.logger.Debug("no garbage to collect",
			logger.String("store", gc.name))
	}

	return nil
}
