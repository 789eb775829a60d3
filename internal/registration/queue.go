// Package registration holds faces captured for registration until the user
// names them, then writes them to the registry.
package registration

import (
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/mask-sentry/internal/pipeline"
	"github.com/kozaktomas/mask-sentry/internal/record"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

var (
	// ErrNotFound is returned for unknown or expired request ids.
	ErrNotFound = errors.New("registration request not found")

	// ErrNoEmbedding is returned when a captured face carries no embedding.
	ErrNoEmbedding = errors.New("captured face has no embedding")

	// ErrInvalidEmail is returned for contact addresses that do not parse.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Store persists confirmed faces.
type Store interface {
	Register(label string, rec record.Record) error
}

// ContactBook stores notification addresses.
type ContactBook interface {
	Set(label, address string) error
}

// Pending is a captured face waiting for a name.
type Pending struct {
	ID          string               `json:"id"`
	Recognition pipeline.Recognition `json:"recognition"`
	Seq         uint64               `json:"seq"`
	CapturedAt  time.Time            `json:"captured_at"`
	ReceivedAt  time.Time            `json:"received_at"`
}

// Result describes a confirmed registration.
type Result struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Persisted bool   `json:"persisted"`
	Warning   string `json:"warning,omitempty"`
}

// Queue keeps the most recent pending requests. It implements
// pipeline.Registrar and is safe for concurrent use.
type Queue struct {
	store    Store
	contacts ContactBook
	capacity int

	mu      sync.Mutex
	pending []*Pending
}

// NewQueue returns a queue holding at most capacity requests. contacts may
// be nil.
func NewQueue(store Store, contacts ContactBook, capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{store: store, contacts: contacts, capacity: capacity}
}

// Offer stores a captured face, evicting the oldest one when full.
func (q *Queue) Offer(req pipeline.RegistrationRequest) {
	p := &Pending{
		ID:          uuid.New().String(),
		Recognition: req.Recognition,
		Seq:         req.Seq,
		CapturedAt:  req.CapturedAt,
		ReceivedAt:  time.Now(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, p)
	if over := len(q.pending) - q.capacity; over > 0 {
		q.pending = q.pending[over:]
	}
	q.mu.Unlock()

	log.WithFields(log.Fields{"id": p.ID, "seq": p.Seq}).Info("Face captured for registration")
}

// List returns the pending requests, oldest first.
func (q *Queue) List() []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Pending, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, *p)
	}
	return out
}

// Get returns one pending request.
func (q *Queue) Get(id string) (Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.find(id); i >= 0 {
		return *q.pending[i], true
	}
	return Pending{}, false
}

// Discard drops a pending request.
func (q *Queue) Discard(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.find(id)
	if i < 0 {
		return false
	}
	q.pending = append(q.pending[:i], q.pending[i+1:]...)
	return true
}

// Confirm registers the pending face under label. Validation errors leave
// the request pending. A persist failure still consumes the request, since
// the face is registered in memory, and is reported in the result.
func (q *Queue) Confirm(id, label, email string) (Result, error) {
	if err := registry.ValidateLabel(label); err != nil {
		return Result{}, err
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
		}
	}

	p, ok := q.Get(id)
	if !ok {
		return Result{}, ErrNotFound
	}
	rec := p.Recognition
	if len(rec.Embedding) == 0 {
		return Result{}, ErrNoEmbedding
	}

	res := Result{ID: id, Label: label, Persisted: true}
	err := q.store.Register(label, record.Record{
		ID:        string(rec.ID),
		Title:     label,
		Distance:  rec.Distance,
		Embedding: rec.Embedding,
		Location:  rec.Location,
		Crop:      rec.Crop,
	})
	switch {
	case errors.Is(err, registry.ErrPersist):
		res.Persisted = false
		res.Warning = err.Error()
	case err != nil:
		return Result{}, err
	}
	q.Discard(id)

	if email != "" && q.contacts != nil {
		if err := q.contacts.Set(label, email); err != nil {
			log.WithFields(log.Fields{"label": label, "error": err}).Warn("Failed to store contact")
			res.Warning = err.Error()
		}
	}

	log.WithFields(log.Fields{"id": id, "label": label, "persisted": res.Persisted}).Info("Registration confirmed")
	return res, nil
}

// find must be called with mu held.
func (q *Queue) find(id string) int {
	for i, p := range q.pending {
		if p.ID == id {
			return i
		}
	}
	return -1
}
