package service

import (
	"context"
	"errors"
	"fmt"

	"phonedeck/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs background sync on a cron schedule. A tick that lands while
// a manually triggered run is in flight is skipped, not queued.
type Scheduler struct {
	cron *cron.Cron
	sync *SyncService
	spec string
}

// NewScheduler creates a scheduler for the given cron spec.
func NewScheduler(sync *SyncService, spec string) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		sync: sync,
		spec: spec,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	logger.Log.Info("sync scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Log.Info("sync scheduler stopped")
}

func (s *Scheduler) tick() {
	events, err := s.sync.Run(context.Background())
	if errors.Is(err, ErrSyncRunning) {
		logger.Log.Info("scheduled sync skipped, run already in flight")
		return
	}
	if err != nil {
		logger.Log.Error("scheduled sync failed to start", zap.Error(err))
		return
	}

	// Drain so the engine never blocks on a consumer.
	var last Event
	for ev := range events {
		last = ev
	}

	switch last.Type {
	case EventComplete:
		logger.Log.Info("scheduled sync finished",
			zap.Int("synced", last.Synced),
			zap.Int("errors", last.Errors),
			zap.Int("total", last.Total))
	case EventError:
		logger.Log.Error("scheduled sync failed", zap.String("message", last.Message))
	}
}
