package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"phonedeck/internal/logger"
	"phonedeck/internal/service"
	"phonedeck/pkg/apierror"
	"phonedeck/pkg/response"

	"go.uber.org/zap"
)

// SyncHandler exposes the sync trigger and its progress stream.
type SyncHandler struct {
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Trigger handles POST /api/sync. The response is a server-sent event stream
// of progress frames ending in exactly one complete or error frame.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, apierror.InternalError("streaming not supported"))
		return
	}

	events, err := h.syncService.Run(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncRunning) {
			response.Error(w, apierror.Conflict("sync is already running"))
			return
		}
		response.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Log.Error("failed to encode sync event", zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

// SyncStatusResponse reports whether a run is in flight and how the last one
// went.
type SyncStatusResponse struct {
	Running bool            `json:"running"`
	LastRun *service.Result `json:"lastRun"`
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, SyncStatusResponse{
		Running: h.syncService.Running(),
		LastRun: h.syncService.LastRun(),
	})
}
