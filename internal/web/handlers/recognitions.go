package handlers

import (
	"net/http"

	"github.com/kozaktomas/mask-sentry/internal/tracker"
)

// SnapshotSource provides the latest tracked frame.
type SnapshotSource interface {
	Snapshot() tracker.Snapshot
}

// RecognitionsHandler serves the faces of the most recent frame.
type RecognitionsHandler struct {
	source SnapshotSource
}

// NewRecognitionsHandler creates a new recognitions handler
func NewRecognitionsHandler(source SnapshotSource) *RecognitionsHandler {
	return &RecognitionsHandler{source: source}
}

// Get returns the current tracks.
func (h *RecognitionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if snap.Tracks == nil {
		snap.Tracks = []tracker.Track{}
	}
	respondJSON(w, http.StatusOK, snap)
}
