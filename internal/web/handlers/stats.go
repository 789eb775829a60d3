package handlers

import (
	"net/http"

	"github.com/kozaktomas/mask-sentry/internal/alert"
	"github.com/kozaktomas/mask-sentry/internal/pipeline"
)

// PipelineStats exposes the controller counters.
type PipelineStats interface {
	Stats() pipeline.Stats
}

// AlertStats exposes the dispatcher counters.
type AlertStats interface {
	Stats() alert.DispatcherStats
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	pipeline PipelineStats
	alerts   AlertStats
	store    RecordStore
	queue    Reviewer
}

// StatsResponse represents the stats response
type StatsResponse struct {
	Pipeline      pipeline.Stats        `json:"pipeline"`
	Alerts        alert.DispatcherStats `json:"alerts"`
	Registered    int                   `json:"registered"`
	PendingReview int                   `json:"pending_review"`
}

// NewStatsHandler creates a new stats handler. alerts and queue may be nil.
func NewStatsHandler(p PipelineStats, alerts AlertStats, store RecordStore, queue Reviewer) *StatsHandler {
	return &StatsHandler{pipeline: p, alerts: alerts, store: store, queue: queue}
}

// Get returns the counters of every component.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Pipeline:   h.pipeline.Stats(),
		Registered: h.store.Len(),
	}
	if h.alerts != nil {
		resp.Alerts = h.alerts.Stats()
	}
	if h.queue != nil {
		resp.PendingReview = len(h.queue.List())
	}
	respondJSON(w, http.StatusOK, resp)
}
