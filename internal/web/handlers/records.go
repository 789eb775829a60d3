package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
	"github.com/kozaktomas/mask-sentry/internal/record"
)

// RecordStore reads registered faces.
type RecordStore interface {
	Labels() []string
	Get(label string) (record.Record, bool)
	Lookup(name string) (string, record.Record, bool)
	Len() int
}

// ContactLookup resolves the alert contact of a label.
type ContactLookup interface {
	Lookup(label string) (string, bool)
}

// RecordsHandler serves the registered faces.
type RecordsHandler struct {
	store    RecordStore
	contacts ContactLookup
}

// NewRecordsHandler creates a new records handler. contacts may be nil.
func NewRecordsHandler(store RecordStore, contacts ContactLookup) *RecordsHandler {
	return &RecordsHandler{store: store, contacts: contacts}
}

// RecordResponse describes one registered face without its pixels.
type RecordResponse struct {
	Label         string        `json:"label"`
	ID            string        `json:"id"`
	Distance      *float32      `json:"distance"`
	EmbeddingSize int           `json:"embedding_size"`
	Location      geometry.Rect `json:"location"`
	HasCrop       bool          `json:"has_crop"`
	Contact       string        `json:"contact,omitempty"`
}

// List returns every registered face sorted by label.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	labels := h.store.Labels()
	out := make([]RecordResponse, 0, len(labels))
	for _, label := range labels {
		if rec, ok := h.store.Get(label); ok {
			out = append(out, h.response(label, rec))
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one registered face. The label is matched ignoring case and
// diacritics when there is no exact match.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	label, rec, ok := h.store.Lookup(chi.URLParam(r, "label"))
	if !ok {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, h.response(label, rec))
}

func (h *RecordsHandler) response(label string, rec record.Record) RecordResponse {
	resp := RecordResponse{
		Label:         label,
		ID:            rec.ID,
		Distance:      rec.Distance,
		EmbeddingSize: len(rec.Embedding),
		Location:      rec.Location,
		HasCrop:       rec.Crop != nil,
	}
	if h.contacts != nil {
		resp.Contact, _ = h.contacts.Lookup(label)
	}
	return resp
}

// Crop returns the registration crop of a face.
func (h *RecordsHandler) Crop(w http.ResponseWriter, r *http.Request) {
	_, rec, ok := h.store.Lookup(chi.URLParam(r, "label"))
	if !ok {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if rec.Crop == nil {
		respondError(w, http.StatusNotFound, "record has no crop")
		return
	}
	respondPNG(w, rec.Crop)
}
