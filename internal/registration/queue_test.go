package registration

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/mask-sentry/internal/alert"
	"github.com/kozaktomas/mask-sentry/internal/facematch"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
	"github.com/kozaktomas/mask-sentry/internal/pipeline"
	"github.com/kozaktomas/mask-sentry/internal/registry"
)

func request(seq uint64) pipeline.RegistrationRequest {
	d := float32(2.5)
	return pipeline.RegistrationRequest{
		Seq: seq,
		Recognition: pipeline.Recognition{
			ID:        facematch.StateUnknown,
			Label:     facematch.UnknownLabel,
			Distance:  &d,
			Location:  geometry.Rect{Left: 1, Top: 2, Right: 3, Bottom: 4},
			Embedding: []float32{0.1, 0.2},
			Crop:      image.NewRGBA(image.Rect(0, 0, 8, 8)),
			Register:  true,
		},
	}
}

func setup(t *testing.T) (*Queue, *registry.Store, *alert.Contacts) {
	t.Helper()
	dir := t.TempDir()
	store, err := registry.Open(registry.Options{Dir: filepath.Join(dir, "faces"), ExportDir: filepath.Join(dir, "export")})
	if err != nil {
		t.Fatal(err)
	}
	contacts, err := alert.LoadContacts(filepath.Join(dir, "contacts.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return NewQueue(store, contacts, 2), store, contacts
}

func TestQueue_ConfirmRegisters(t *testing.T) {
	q, store, contacts := setup(t)
	q.Offer(request(1))

	pending := q.List()
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}

	res, err := q.Confirm(pending[0].ID, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !res.Persisted || res.Label != "alice" {
		t.Errorf("result = %+v", res)
	}
	if len(q.List()) != 0 {
		t.Error("confirmed request should leave the queue")
	}
	if addr, ok := contacts.Lookup("alice"); !ok || addr != "alice@example.com" {
		t.Errorf("contact = %q, %v", addr, ok)
	}

	// A fresh store reads what was confirmed.
	fresh, err := registry.Open(registry.Options{Dir: store.Dir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fresh.Load(); err != nil {
		t.Fatal(err)
	}
	rec, ok := fresh.Get("alice")
	if !ok {
		t.Fatal("alice not persisted")
	}
	if rec.ID != string(facematch.StateUnknown) || rec.Distance == nil || *rec.Distance != 2.5 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Crop == nil {
		t.Error("crop not persisted")
	}
}

func TestQueue_ValidationKeepsRequest(t *testing.T) {
	q, _, _ := setup(t)
	q.Offer(request(1))
	id := q.List()[0].ID

	if _, err := q.Confirm(id, "../x", ""); !errors.Is(err, registry.ErrInvalidLabel) {
		t.Errorf("bad label error = %v", err)
	}
	if _, err := q.Confirm(id, "alice", "nope"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email error = %v", err)
	}
	if _, err := q.Confirm("missing", "alice", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id error = %v", err)
	}
	if len(q.List()) != 1 {
		t.Error("failed confirmations must keep the request")
	}
}

func TestQueue_NoEmbedding(t *testing.T) {
	q, _, _ := setup(t)
	req := request(1)
	req.Recognition.Embedding = nil
	q.Offer(req)

	if _, err := q.Confirm(q.List()[0].ID, "alice", ""); !errors.Is(err, ErrNoEmbedding) {
		t.Errorf("error = %v, want ErrNoEmbedding", err)
	}
}

func TestQueue_PersistFailureIsReported(t *testing.T) {
	q, store, _ := setup(t)
	q.Offer(request(1))

	if err := os.RemoveAll(store.Dir()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Dir(), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := q.Confirm(q.List()[0].ID, "alice", "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Persisted || res.Warning == "" {
		t.Errorf("result = %+v, want not persisted with a warning", res)
	}
	if _, ok := store.Get("alice"); !ok {
		t.Error("face must still be registered in memory")
	}
}

func TestQueue_EvictsOldest(t *testing.T) {
	q, _, _ := setup(t)
	for seq := uint64(1); seq <= 3; seq++ {
		q.Offer(request(seq))
	}

	pending := q.List()
	if len(pending) != 2 || pending[0].Seq != 2 || pending[1].Seq != 3 {
		t.Errorf("pending seqs = %v, want [2 3]", pending)
	}

	if !q.Discard(pending[0].ID) || q.Discard(pending[0].ID) {
		t.Error("Discard should succeed once")
	}
	if _, ok := q.Get(pending[1].ID); !ok {
		t.Error("remaining request missing")
	}
}
