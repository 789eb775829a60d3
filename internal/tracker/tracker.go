// Package tracker gives recognitions stable ids across frames and keeps the
// latest frame for rendering.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
	"github.com/kozaktomas/mask-sentry/internal/pipeline"
)

// Track is one face followed across frames.
type Track struct {
	ID          int                  `json:"track_id"`
	Recognition pipeline.Recognition `json:"recognition"`
	FirstSeq    uint64               `json:"first_seq"`
	LastSeq     uint64               `json:"last_seq"`

	missed int
}

// Snapshot is the state after the most recent update.
type Snapshot struct {
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
	Tracks    []Track   `json:"tracks"`
}

// Tracker associates boxes by greedy best IoU. Safe for concurrent use.
type Tracker struct {
	threshold float64
	maxMissed int

	mu        sync.RWMutex
	nextID    int
	tracks    []*Track
	seq       uint64
	updatedAt time.Time
	now       func() time.Time
}

// New returns a tracker with the default thresholds.
func New() *Tracker {
	return &Tracker{
		threshold: constants.TrackIoUThreshold,
		maxMissed: constants.MaxTrackAge,
		nextID:    1,
		now:       time.Now,
	}
}

type pair struct {
	track, rec int
	iou        float64
}

// Update associates the recognitions of frame seq with the existing tracks.
func (t *Tracker) Update(recs []pipeline.Recognition, seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pairs []pair
	for ti, tr := range t.tracks {
		for ri := range recs {
			iou := geometry.IoU(tr.Recognition.Location, recs[ri].Location)
			if iou >= t.threshold {
				pairs = append(pairs, pair{track: ti, rec: ri, iou: iou})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].iou > pairs[j].iou })

	trackUsed := make([]bool, len(t.tracks))
	recUsed := make([]bool, len(recs))
	for _, p := range pairs {
		if trackUsed[p.track] || recUsed[p.rec] {
			continue
		}
		trackUsed[p.track], recUsed[p.rec] = true, true

		tr := t.tracks[p.track]
		tr.Recognition = recs[p.rec]
		tr.LastSeq = seq
		tr.missed = 0
	}

	kept := t.tracks[:0]
	for i, tr := range t.tracks {
		if !trackUsed[i] {
			tr.missed++
			if tr.missed > t.maxMissed {
				continue
			}
		}
		kept = append(kept, tr)
	}
	t.tracks = kept

	for ri, rec := range recs {
		if recUsed[ri] {
			continue
		}
		t.tracks = append(t.tracks, &Track{
			ID:          t.nextID,
			Recognition: rec,
			FirstSeq:    seq,
			LastSeq:     seq,
		})
		t.nextID++
	}

	t.seq = seq
	t.updatedAt = t.now()
}

// Snapshot returns the tracks seen in the latest frame, ordered by id.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{Seq: t.seq, UpdatedAt: t.updatedAt, Tracks: []Track{}}
	for _, tr := range t.tracks {
		if tr.missed == 0 {
			s.Tracks = append(s.Tracks, *tr)
		}
	}
	sort.Slice(s.Tracks, func(i, j int) bool { return s.Tracks[i].ID < s.Tracks[j].ID })
	return s
}
