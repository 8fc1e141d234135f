package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"phonedeck/internal/cache"
	"phonedeck/internal/model"
	"phonedeck/internal/wholecell"
)

func vendorRecord(id int64, status string) wholecell.InventoryRecord {
	return wholecell.InventoryRecord{
		ID:     id,
		HexID:  "HEX",
		Status: status,
	}
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func runSync(t *testing.T, s *SyncService) []Event {
	t.Helper()
	events, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return collect(t, events)
}

func waitNotRunning(t *testing.T, s *SyncService) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Running() {
		if time.Now().After(deadline) {
			t.Fatal("sync still running")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunSyncsAllRecords(t *testing.T) {
	store := newFakeStore()
	vendor := &fakeVendor{records: []wholecell.InventoryRecord{
		vendorRecord(1, "Received"),
		vendorRecord(2, "Ready for Photos"),
		vendorRecord(3, "Sold - Direct"),
	}}
	s := NewSyncService(vendor, store, store, nil, "")

	before := time.Now().UTC()
	events := runSync(t, s)
	waitNotRunning(t, s)

	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("terminal event = %q, want complete", last.Type)
	}
	if last.Synced != 3 || last.Errors != 0 || last.Total != 3 {
		t.Errorf("complete = %d synced %d errors %d total", last.Synced, last.Errors, last.Total)
	}
	if store.itemCount() != 3 {
		t.Errorf("store has %d items, want 3", store.itemCount())
	}

	// Checkpoint is the run start, not its end.
	cp, err := time.Parse(time.RFC3339, store.checkpoint())
	if err != nil {
		t.Fatalf("checkpoint %q is not RFC3339: %v", store.checkpoint(), err)
	}
	if cp.Before(before.Truncate(time.Second)) || cp.After(time.Now().UTC()) {
		t.Errorf("checkpoint %v outside run window", cp)
	}

	if item := store.byVendor(3); item == nil || item.Status != model.StatusListingGenerated {
		t.Errorf("vendor 3 status = %v, want listing_generated", item)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := newFakeStore()
	vendor := &fakeVendor{records: []wholecell.InventoryRecord{
		vendorRecord(1, "Received"),
		vendorRecord(2, "Received"),
	}}
	s := NewSyncService(vendor, store, store, nil, "")

	runSync(t, s)
	waitNotRunning(t, s)
	firstCreated := store.byVendor(1).CreatedAt

	runSync(t, s)
	waitNotRunning(t, s)

	if store.itemCount() != 2 {
		t.Errorf("store has %d items after re-sync, want 2", store.itemCount())
	}
	if !store.byVendor(1).CreatedAt.Equal(firstCreated) {
		t.Error("created_at changed on re-sync")
	}
}

func TestRunPreservesCollaboratorFields(t *testing.T) {
	store := newFakeStore()
	vendor := &fakeVendor{records: []wholecell.InventoryRecord{vendorRecord(1, "Received")}}
	s := NewSyncService(vendor, store, store, nil, "")

	runSync(t, s)
	waitNotRunning(t, s)

	// A collaborator adds photos and a listing between runs.
	item := store.byVendor(1)
	photos := []string{"a.jpg", "b.jpg"}
	listing := model.Listing{Title: "T", Price: 100}
	if _, err := store.Update(context.Background(), item.ID, model.ItemUpdate{
		Photos:  &photos,
		Listing: &listing,
	}); err != nil {
		t.Fatal(err)
	}

	runSync(t, s)
	waitNotRunning(t, s)

	got := store.byVendor(1)
	if len(got.Photos) != 2 {
		t.Errorf("photos = %v, clobbered by sync", got.Photos)
	}
	if got.Listing == nil || got.Listing.Title != "T" {
		t.Errorf("listing = %v, clobbered by sync", got.Listing)
	}
}

func TestRunPartialFailureFreezesCheckpoint(t *testing.T) {
	store := newFakeStore()
	store.failUpserts[2] = true
	vendor := &fakeVendor{records: []wholecell.InventoryRecord{
		vendorRecord(1, "Received"),
		vendorRecord(2, "Received"),
		vendorRecord(3, "Received"),
	}}
	s := NewSyncService(vendor, store, store, nil, "")

	events := runSync(t, s)
	waitNotRunning(t, s)

	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("terminal event = %q, want complete even with record errors", last.Type)
	}
	if last.Synced != 2 || last.Errors != 1 || last.Total != 3 {
		t.Errorf("complete = %d synced %d errors %d total", last.Synced, last.Errors, last.Total)
	}
	if store.itemCount() != 2 {
		t.Errorf("store has %d items, want the 2 successful upserts", store.itemCount())
	}
	if store.checkpoint() != "" {
		t.Errorf("checkpoint = %q, want frozen (absent)", store.checkpoint())
	}
}

func TestRunVendorFailureEmitsErrorEvent(t *testing.T) {
	store := newFakeStore()
	store.checkpoints[CheckpointKey] = "2026-01-01T00:00:00Z"
	vendor := &fakeVendor{err: errors.New("wholecell api error: 500 - boom")}
	s := NewSyncService(vendor, store, store, nil, "")

	events := runSync(t, s)
	waitNotRunning(t, s)

	if len(events) != 1 {
		t.Fatalf("got %d events, want exactly one terminal error", len(events))
	}
	if events[0].Type != EventError {
		t.Errorf("event type = %q, want error", events[0].Type)
	}
	if store.checkpoint() != "2026-01-01T00:00:00Z" {
		t.Errorf("checkpoint = %q, changed on vendor failure", store.checkpoint())
	}
	if store.itemCount() != 0 {
		t.Errorf("store has %d items after failed fetch", store.itemCount())
	}
}

func TestRunEmptyResultAdvancesCheckpoint(t *testing.T) {
	store := newFakeStore()
	vendor := &fakeVendor{}
	s := NewSyncService(vendor, store, store, nil, "")

	events := runSync(t, s)
	waitNotRunning(t, s)

	last := events[len(events)-1]
	if last.Type != EventComplete || last.Total != 0 {
		t.Errorf("terminal = %+v, want complete with zero total", last)
	}
	if store.checkpoint() == "" {
		t.Error("checkpoint not advanced on empty result")
	}
}

func TestRunUsesCheckpointAsLowerBound(t *testing.T) {
	store := newFakeStore()
	store.checkpoints[CheckpointKey] = "2026-03-01T08:00:00Z"
	vendor := &fakeVendor{}
	s := NewSyncService(vendor, store, store, nil, "")

	runSync(t, s)
	waitNotRunning(t, s)

	if vendor.lastSince == nil {
		t.Fatal("updated_since not forwarded to vendor")
	}
	want := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if !vendor.lastSince.Equal(want) {
		t.Errorf("updated_since = %v, want %v", vendor.lastSince, want)
	}
}

func TestRunUnparseableCheckpointFallsBackToFullFetch(t *testing.T) {
	store := newFakeStore()
	store.checkpoints[CheckpointKey] = "not-a-timestamp"
	vendor := &fakeVendor{}
	s := NewSyncService(vendor, store, store, nil, "")

	runSync(t, s)
	waitNotRunning(t, s)

	if vendor.lastSince != nil {
		t.Errorf("updated_since = %v, want nil for corrupt checkpoint", vendor.lastSince)
	}
}

func TestRunProgressMonotonicTo100(t *testing.T) {
	store := newFakeStore()
	records := make([]wholecell.InventoryRecord, 7)
	for i := range records {
		records[i] = vendorRecord(int64(i+1), "Received")
	}
	vendor := &fakeVendor{records: records}
	s := NewSyncService(vendor, store, store, nil, "")

	events := runSync(t, s)
	waitNotRunning(t, s)

	prev := -1
	lastProgress := 0
	for _, ev := range events {
		if ev.Type != EventProgress {
			continue
		}
		if ev.Progress < prev {
			t.Errorf("progress went backwards: %d after %d", ev.Progress, prev)
		}
		prev = ev.Progress
		lastProgress = ev.Progress
	}
	if lastProgress != 100 {
		t.Errorf("final progress = %d, want 100", lastProgress)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	store := newFakeStore()
	block := make(chan struct{})
	vendor := &fakeVendor{block: block}
	s := NewSyncService(vendor, store, store, nil, "")

	events, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}

	if _, err := s.Run(context.Background()); !errors.Is(err, ErrSyncRunning) {
		t.Errorf("second Run() error = %v, want ErrSyncRunning", err)
	}

	close(block)
	collect(t, events)
	waitNotRunning(t, s)

	// A finished run releases the guard.
	again, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() after completion failed: %v", err)
	}
	collect(t, again)
	waitNotRunning(t, s)
}

func TestRunInvalidatesListCache(t *testing.T) {
	store := newFakeStore()
	c := cache.NewMemoryCache()
	defer c.Close()
	if err := c.Set(context.Background(), ItemListCacheKey, []byte("stale"), time.Hour); err != nil {
		t.Fatal(err)
	}

	vendor := &fakeVendor{records: []wholecell.InventoryRecord{vendorRecord(1, "Received")}}
	s := NewSyncService(vendor, store, store, c, "")

	runSync(t, s)
	waitNotRunning(t, s)

	if _, err := c.Get(context.Background(), ItemListCacheKey); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("list cache not invalidated after sync, err = %v", err)
	}
}

func TestRunRecordsLastRun(t *testing.T) {
	store := newFakeStore()
	vendor := &fakeVendor{records: []wholecell.InventoryRecord{vendorRecord(1, "Received")}}
	s := NewSyncService(vendor, store, store, nil, "")

	if s.LastRun() != nil {
		t.Error("LastRun() non-nil before any run")
	}

	runSync(t, s)
	waitNotRunning(t, s)

	last := s.LastRun()
	if last == nil {
		t.Fatal("LastRun() nil after a run")
	}
	if last.Synced != 1 || last.Total != 1 {
		t.Errorf("LastRun = %+v", last)
	}
	if last.CompletedAt.Before(last.StartedAt) {
		t.Error("CompletedAt before StartedAt")
	}
}

func TestEventMarshalShapes(t *testing.T) {
	progress, _ := Event{Type: EventProgress, Progress: 50, Synced: 1, Errors: 0, Total: 2}.MarshalJSON()
	if string(progress) != `{"type":"progress","progress":50,"synced":1,"errors":0,"total":2}` {
		t.Errorf("progress frame = %s", progress)
	}

	complete, _ := Event{Type: EventComplete, Synced: 2, Total: 2, Message: "done"}.MarshalJSON()
	if string(complete) != `{"type":"complete","success":true,"synced":2,"errors":0,"total":2,"message":"done"}` {
		t.Errorf("complete frame = %s", complete)
	}

	errEvent, _ := Event{Type: EventError, Message: "boom"}.MarshalJSON()
	if string(errEvent) != `{"type":"error","message":"boom"}` {
		t.Errorf("error frame = %s", errEvent)
	}
}
