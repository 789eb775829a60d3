package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/registration"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

// Capturer arms the pipeline to capture the next face.
type Capturer interface {
	RequestRegistration()
	RegistrationPending() bool
}

// Reviewer holds captured faces until they are named.
type Reviewer interface {
	List() []registration.Pending
	Get(id string) (registration.Pending, bool)
	Discard(id string) bool
	Confirm(id, label, email string) (registration.Result, error)
}

// RegistrationsHandler handles capture and review of new faces.
type RegistrationsHandler struct {
	capturer Capturer
	queue    Reviewer
}

// NewRegistrationsHandler creates a new registrations handler
func NewRegistrationsHandler(capturer Capturer, queue Reviewer) *RegistrationsHandler {
	return &RegistrationsHandler{capturer: capturer, queue: queue}
}

// PendingResponse is a captured face in the review list.
type PendingResponse struct {
	registration.Pending
	CropURL string `json:"crop_url,omitempty"`
}

// ConfirmRequest names a captured face.
type ConfirmRequest struct {
	Label string `json:"label"`
	Email string `json:"email"`
}

// Capture asks the pipeline to register the next face it sees.
func (h *RegistrationsHandler) Capture(w http.ResponseWriter, r *http.Request) {
	h.capturer.RequestRegistration()
	respondJSON(w, http.StatusAccepted, map[string]bool{"pending": true})
}

// List returns the captured faces, oldest first.
func (h *RegistrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	pending := h.queue.List()
	out := make([]PendingResponse, 0, len(pending))
	for _, p := range pending {
		resp := PendingResponse{Pending: p}
		if p.Recognition.Crop != nil {
			resp.CropURL = "/api/v1/registrations/" + p.ID + "/crop"
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"capture_pending": h.capturer.RegistrationPending(),
		"registrations":   out,
	})
}

// Crop returns the captured face image.
func (h *RegistrationsHandler) Crop(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queue.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "registration not found")
		return
	}
	if p.Recognition.Crop == nil {
		respondError(w, http.StatusNotFound, "registration has no crop")
		return
	}
	respondPNG(w, p.Recognition.Crop)
}

// Confirm registers a captured face under the given label.
func (h *RegistrationsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConfirmRequest
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	req.Email = strings.TrimSpace(req.Email)

	res, err := h.queue.Confirm(id, req.Label, req.Email)
	switch {
	case errors.Is(err, registration.ErrNotFound):
		respondError(w, http.StatusNotFound, "registration not found")
		return
	case errors.Is(err, registry.ErrInvalidLabel), errors.Is(err, registration.ErrInvalidEmail):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, registration.ErrNoEmbedding):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		log.WithFields(log.Fields{"id": sanitizeForLog(id), "error": err}).Error("Failed to confirm registration")
		respondError(w, http.StatusInternalServerError, "failed to register face")
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Discard drops a captured face.
func (h *RegistrationsHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if !h.queue.Discard(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "registration not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
