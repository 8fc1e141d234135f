package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"phonedeck/internal/repository"
	"phonedeck/internal/service"
	"phonedeck/internal/wholecell"
)

type scriptedVendor struct {
	records []wholecell.InventoryRecord
	err     error
	block   chan struct{}
}

func (v *scriptedVendor) FetchAll(ctx context.Context, status string, updatedSince *time.Time) ([]wholecell.InventoryRecord, error) {
	if v.block != nil {
		select {
		case <-v.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return v.records, v.err
}

func newSyncHandler(t *testing.T, vendor service.VendorClient) (*SyncHandler, *service.SyncService) {
	t.Helper()
	repo, err := repository.NewSQLiteItemRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := service.NewSyncService(vendor, repo, repo, nil, "")
	return NewSyncHandler(svc), svc
}

type frame struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Progress int    `json:"progress"`
	Synced   int    `json:"synced"`
	Errors   int    `json:"errors"`
	Total    int    `json:"total"`
	Message  string `json:"message"`
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var frames []frame
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var f frame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, f)
	}
	return frames
}

func TestTriggerStreamsEvents(t *testing.T) {
	vendor := &scriptedVendor{records: []wholecell.InventoryRecord{
		{ID: 1, HexID: "A", Status: "Received"},
		{ID: 2, HexID: "B", Status: "Sold"},
	}}
	h, _ := newSyncHandler(t, vendor)

	rec := httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	frames := parseFrames(t, rec.Body.String())
	if len(frames) == 0 {
		t.Fatal("no frames in response")
	}

	last := frames[len(frames)-1]
	if last.Type != "complete" || !last.Success {
		t.Errorf("terminal frame = %+v, want successful complete", last)
	}
	if last.Synced != 2 || last.Total != 2 {
		t.Errorf("terminal frame = %+v", last)
	}

	terminal := 0
	for _, f := range frames {
		if f.Type == "complete" || f.Type == "error" {
			terminal++
		}
	}
	if terminal != 1 {
		t.Errorf("got %d terminal frames, want exactly 1", terminal)
	}
}

func TestTriggerVendorFailure(t *testing.T) {
	vendor := &scriptedVendor{err: &wholecell.APIError{StatusCode: 500, Body: "boom"}}
	h, _ := newSyncHandler(t, vendor)

	rec := httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	frames := parseFrames(t, rec.Body.String())
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1 terminal error", len(frames))
	}
	if frames[0].Type != "error" || frames[0].Message == "" {
		t.Errorf("frame = %+v", frames[0])
	}
}

func TestTriggerConflictWhileRunning(t *testing.T) {
	block := make(chan struct{})
	vendor := &scriptedVendor{block: block}
	h, svc := newSyncHandler(t, vendor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		h.Trigger(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	}()

	// Wait for the first run to take the guard.
	deadline := time.Now().Add(2 * time.Second)
	for !svc.Running() {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	rec := httptest.NewRecorder()
	h.Trigger(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while a run is in flight", rec.Code)
	}

	close(block)
	<-done
}

func TestStatusReportsLastRun(t *testing.T) {
	vendor := &scriptedVendor{records: []wholecell.InventoryRecord{{ID: 1, HexID: "A"}}}
	h, _ := newSyncHandler(t, vendor)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var before struct {
		Data SyncStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatal(err)
	}
	if before.Data.Running || before.Data.LastRun != nil {
		t.Errorf("initial status = %+v", before.Data)
	}

	trigger := httptest.NewRecorder()
	h.Trigger(trigger, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))

	var after struct {
		Data SyncStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	if after.Data.LastRun == nil || after.Data.LastRun.Synced != 1 {
		t.Errorf("status after run = %+v", after.Data)
	}
}
