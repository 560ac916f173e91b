package drafts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically removes drafts nobody has touched within maxAge
type Janitor struct {
	cron    *cron.Cron
	purger  Purger
	maxAge  time.Duration
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor. It does nothing until Start is called.
func NewJanitor(purger Purger, maxAge time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(),
		purger: purger,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep using a standard cron spec such as "@every 1h"
func (j *Janitor) Start(spec string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("draft janitor already running")
	}
	if _, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("Draft janitor started", zap.String("schedule", spec), zap.Duration("max_age", j.maxAge))
	return nil
}

// Stop waits for a running sweep to finish
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
}

// Sweep runs one purge pass
func (j *Janitor) Sweep(ctx context.Context) int64 {
	cutoff := j.now().Add(-j.maxAge)
	removed, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("Draft purge failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		j.logger.Info("Purged abandoned drafts", zap.Int64("count", removed))
	}
	return removed
}
