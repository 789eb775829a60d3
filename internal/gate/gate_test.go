package gate

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGate_DropsWhileBusy(t *testing.T) {
	g := New()

	if !g.TryAdmit() {
		t.Fatal("first TryAdmit should succeed")
	}
	if g.TryAdmit() {
		t.Fatal("second TryAdmit without Release should fail")
	}

	g.Release()

	if !g.TryAdmit() {
		t.Fatal("TryAdmit after Release should succeed")
	}

	stats := g.Stats()
	if stats.Admitted != 2 {
		t.Errorf("Admitted = %d, want 2", stats.Admitted)
	}
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
	if !stats.Busy {
		t.Error("gate should be busy after the third admit")
	}
}

func TestGate_ReleaseWhenIdle(t *testing.T) {
	g := New()
	g.Release()

	if g.Busy() {
		t.Error("gate should stay idle")
	}
	if got := g.Stats().IdleReleases; got != 1 {
		t.Errorf("IdleReleases = %d, want 1", got)
	}
	if !g.TryAdmit() {
		t.Error("idle release must not block admission")
	}
}

func TestGate_ConcurrentAdmitOnlyOneWins(t *testing.T) {
	g := New()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAdmit() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one admitted frame, got %d", wins.Load())
	}
	if got := g.Stats().Dropped; got != 63 {
		t.Errorf("Dropped = %d, want 63", got)
	}
}
