// Package gate implements single-flight frame admission: at most one detection
// cycle runs at a time and frames that arrive meanwhile are dropped, never queued.
package gate

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Gate admits one frame at a time.
//
// TryAdmit is called from the capture callback and Release from whichever
// goroutine finishes the cycle, so the busy flag is an atomic rather than a
// plain bool. It is not a lock: callers never wait on it.
type Gate struct {
	busy atomic.Bool

	admitted     atomic.Uint64
	dropped      atomic.Uint64
	idleReleases atomic.Uint64
}

// Stats is a snapshot of gate counters.
type Stats struct {
	Admitted uint64 `json:"admitted"`
	Dropped  uint64 `json:"dropped"`
	Busy     bool   `json:"busy"`
	// IdleReleases counts Release calls made while no frame was admitted.
	// Non-zero means a cycle released twice.
	IdleReleases uint64 `json:"idle_releases"`
}

// New returns an idle gate.
func New() *Gate {
	return &Gate{}
}

// TryAdmit claims the gate. It returns false immediately when a cycle is
// already in flight; the frame must then be dropped.
func (g *Gate) TryAdmit() bool {
	if !g.busy.CompareAndSwap(false, true) {
		g.dropped.Add(1)
		return false
	}
	g.admitted.Add(1)
	return true
}

// Release ends the current cycle. It must run exactly once per admitted frame
// on every exit path.
func (g *Gate) Release() {
	if !g.busy.Swap(false) {
		n := g.idleReleases.Add(1)
		log.WithField("idle_releases", n).Debug("Release on an idle gate")
	}
}

// Busy reports whether a cycle is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Stats returns the current counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Admitted:     g.admitted.Load(),
		Dropped:      g.dropped.Load(),
		Busy:         g.busy.Load(),
		IdleReleases: g.idleReleases.Load(),
	}
}
