package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"phonedeck/internal/cache"
	"phonedeck/internal/logger"
	"phonedeck/internal/repository"
	"phonedeck/internal/wholecell"

	"go.uber.org/zap"
)

// CheckpointKey names the one tracked checkpoint: the instant the previous
// fully-clean sync run started.
const CheckpointKey = "wholecell_last_sync"

// ErrSyncRunning is returned when a run is requested while one is in flight.
var ErrSyncRunning = errors.New("sync is already running")

// Event types on the sync progress stream.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one frame on the sync progress stream. Exactly one terminal event
// (complete or error) ends every stream.
type Event struct {
	Type     string
	Progress int
	Synced   int
	Errors   int
	Total    int
	Message  string
}

// MarshalJSON shapes each event type to its wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProgress:
		return json.Marshal(struct {
			Type     string `json:"type"`
			Progress int    `json:"progress"`
			Synced   int    `json:"synced"`
			Errors   int    `json:"errors"`
			Total    int    `json:"total"`
		}{e.Type, e.Progress, e.Synced, e.Errors, e.Total})
	case EventComplete:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Success bool   `json:"success"`
			Synced  int    `json:"synced"`
			Errors  int    `json:"errors"`
			Total   int    `json:"total"`
			Message string `json:"message,omitempty"`
		}{e.Type, true, e.Synced, e.Errors, e.Total, e.Message})
	default:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{e.Type, e.Message})
	}
}

// Result summarizes one finished sync run.
type Result struct {
	Synced      int       `json:"synced"`
	Errors      int       `json:"errors"`
	Total       int       `json:"total"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// VendorClient is the slice of the WholeCell client the engine needs.
type VendorClient interface {
	FetchAll(ctx context.Context, status string, updatedSince *time.Time) ([]wholecell.InventoryRecord, error)
}

// SyncService reconciles the local item store against WholeCell. One run at
// a time: overlapping triggers get ErrSyncRunning instead of racing the
// checkpoint.
type SyncService struct {
	vendor       VendorClient
	items        repository.ItemRepository
	checkpoints  repository.CheckpointRepository
	cache        cache.Cache
	statusFilter string

	mu      sync.Mutex
	running bool
	lastRun *Result
}

// NewSyncService creates the reconciliation engine. cache may be nil when no
// list cache is configured.
func NewSyncService(
	vendor VendorClient,
	items repository.ItemRepository,
	checkpoints repository.CheckpointRepository,
	c cache.Cache,
	statusFilter string,
) *SyncService {
	return &SyncService{
		vendor:       vendor,
		items:        items,
		checkpoints:  checkpoints,
		cache:        c,
		statusFilter: statusFilter,
	}
}

// Running reports whether a run is currently in flight.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastRun returns the most recent finished run, or nil.
func (s *SyncService) LastRun() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil
	}
	out := *s.lastRun
	return &out
}

// Run starts a sync run and returns its ordered event stream. The channel is
// unbuffered so a slow consumer pauses event delivery, and it is closed after
// the single terminal event. ctx cancellation (caller disconnect) stops event
// delivery and any in-flight vendor fetch, but upserts already in the loop
// run to completion so partial visibility never means partial persistence.
func (s *SyncService) Run(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncRunning
	}
	s.running = true
	s.mu.Unlock()

	ch := make(chan Event)
	go func() {
		defer close(ch)
		result := s.run(ctx, ch)

		s.mu.Lock()
		s.running = false
		if result != nil {
			s.lastRun = result
		}
		s.mu.Unlock()
	}()
	return ch, nil
}

// emit delivers one event unless the consumer is gone.
func (s *SyncService) emit(ctx context.Context, ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}

func (s *SyncService) run(ctx context.Context, ch chan<- Event) *Result {
	// Storage operations use a detached context: once the loop has started,
	// a disconnected consumer only loses visibility, not persistence.
	storeCtx := context.WithoutCancel(ctx)

	since := s.readCheckpoint(storeCtx)

	// The candidate checkpoint is the run's start, not its end, so records
	// modified while the run is fetching are re-fetched next time.
	runStartedAt := time.Now().UTC()

	records, err := s.vendor.FetchAll(ctx, s.statusFilter, since)
	if err != nil {
		logger.Log.Error("sync: vendor fetch failed", zap.Error(err))
		s.emit(ctx, ch, Event{Type: EventError, Message: err.Error()})
		return nil
	}

	total := len(records)
	if total == 0 {
		// Nothing to retry, so the window still advances.
		s.writeCheckpoint(storeCtx, runStartedAt)
		s.invalidateListCache(storeCtx)
		s.emit(ctx, ch, Event{
			Type:    EventComplete,
			Message: "Synced 0 items from WholeCell",
		})
		return &Result{StartedAt: runStartedAt, CompletedAt: time.Now().UTC()}
	}

	logger.Log.Info("sync: run started",
		zap.Int("total", total),
		zap.Bool("incremental", since != nil))

	synced, errCount := 0, 0
	s.emit(ctx, ch, Event{Type: EventProgress, Total: total})

	for _, rec := range records {
		fields := wholecell.MapRecord(rec)
		if _, err := s.items.UpsertByWholecellID(storeCtx, rec.ID, fields); err != nil {
			logger.Log.Error("sync: upsert failed",
				zap.Int64("wholecell_id", rec.ID),
				zap.Error(err))
			errCount++
		} else {
			synced++
		}

		progress := int(math.Round(float64(synced+errCount) / float64(total) * 100))
		s.emit(ctx, ch, Event{
			Type:     EventProgress,
			Progress: progress,
			Synced:   synced,
			Errors:   errCount,
			Total:    total,
		})
	}

	if errCount == 0 {
		s.writeCheckpoint(storeCtx, runStartedAt)
	} else {
		// Frozen checkpoint: the next run re-fetches the same window and
		// retries the failed records.
		logger.Log.Warn("sync: checkpoint frozen",
			zap.Int("errors", errCount),
			zap.Int("synced", synced))
	}

	s.invalidateListCache(storeCtx)

	message := fmt.Sprintf("Synced %d items from WholeCell", synced)
	if errCount > 0 {
		message = fmt.Sprintf("%d synced, %d errors; failed items will be retried next sync", synced, errCount)
	}
	s.emit(ctx, ch, Event{
		Type:    EventComplete,
		Synced:  synced,
		Errors:  errCount,
		Total:   total,
		Message: message,
	})

	return &Result{
		Synced:      synced,
		Errors:      errCount,
		Total:       total,
		StartedAt:   runStartedAt,
		CompletedAt: time.Now().UTC(),
	}
}

func (s *SyncService) readCheckpoint(ctx context.Context) *time.Time {
	value, err := s.checkpoints.GetCheckpoint(ctx, CheckpointKey)
	if err != nil {
		logger.Log.Error("sync: checkpoint read failed, falling back to full fetch", zap.Error(err))
		return nil
	}
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		logger.Log.Warn("sync: unparseable checkpoint, falling back to full fetch",
			zap.String("value", value))
		return nil
	}
	return &t
}

func (s *SyncService) writeCheckpoint(ctx context.Context, startedAt time.Time) {
	if err := s.checkpoints.SetCheckpoint(ctx, CheckpointKey, startedAt.Format(time.RFC3339)); err != nil {
		logger.Log.Error("sync: checkpoint write failed", zap.Error(err))
	}
}

func (s *SyncService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ItemListCacheKey); err != nil {
		logger.Log.Warn("sync: list cache invalidation failed", zap.Error(err))
	}
}

var _ VendorClient = (*wholecell.Client)(nil)
