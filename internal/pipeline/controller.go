// Package pipeline runs the per-frame face cycle: admission, detection,
// per-face mask and identity decisions, and hand-off to tracking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/mask-sentry/internal/alert"
	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/facematch"
	"github.com/kozaktomas/mask-sentry/internal/gate"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// Options wires the collaborators of a Controller. Registrar and Notifier
// are optional.
type Options struct {
	Detector   Detector
	Extractor  Extractor
	Classifier MaskClassifier
	Tracker    Tracker
	Registrar  Registrar
	Notifier   Notifier
}

// Stats is a snapshot of the controller counters.
type Stats struct {
	Gate         gate.Stats `json:"gate"`
	Cycles       uint64     `json:"cycles"`
	FailedCycles uint64     `json:"failed_cycles"`
	Faces        uint64     `json:"faces"`
	LastCycleMs  int64      `json:"last_cycle_ms"`
}

// Controller owns the admission gate, the matcher state and the cycle
// buffers. Submit may be called from any goroutine.
type Controller struct {
	opts Options
	gate *gate.Gate

	// Owned by the admitted cycle.
	matcher  *facematch.Matcher
	layout   *Layout
	crop     *image.RGBA
	portrait *image.RGBA
	alerted  map[string]bool

	registerIntent atomic.Bool
	wg             sync.WaitGroup

	cycles    atomic.Uint64
	failed    atomic.Uint64
	faces     atomic.Uint64
	lastCycle atomic.Int64
}

// New creates a controller. Detector, Extractor, Classifier and Tracker are
// required.
func New(opts Options) (*Controller, error) {
	if opts.Detector == nil || opts.Extractor == nil || opts.Classifier == nil || opts.Tracker == nil {
		return nil, errors.New("pipeline: detector, extractor, classifier and tracker are required")
	}
	return &Controller{
		opts:    opts,
		gate:    gate.New(),
		matcher: facematch.NewMatcher(),
		alerted: make(map[string]bool),
	}, nil
}

// cycle carries the per-frame values into the background goroutine.
type cycle struct {
	seq        uint64
	capturedAt time.Time
	facing     Facing
	layout     *Layout
	crop       *image.RGBA
	portrait   *image.RGBA
	started    time.Time
}

// Submit offers a frame to the pipeline. It returns false when the frame was
// dropped because a cycle is still running. Ready is called exactly once in
// either case, as soon as the frame pixels are no longer needed.
func (c *Controller) Submit(ctx context.Context, f Frame) bool {
	if !c.gate.TryAdmit() {
		f.ready()
		return false
	}

	b := f.Image.Bounds()
	if !c.layout.Fits(b.Dx(), b.Dy(), f.Rotation) {
		layout, err := NewLayout(b.Dx(), b.Dy(), f.Rotation)
		if err != nil {
			log.WithFields(log.Fields{"seq": f.Seq, "error": err}).Warn("Unusable frame geometry")
			c.gate.Release()
			f.ready()
			return false
		}
		log.WithFields(log.Fields{
			"preview":  fmt.Sprintf("%dx%d", layout.PreviewW, layout.PreviewH),
			"crop":     fmt.Sprintf("%dx%d", layout.CropW, layout.CropH),
			"rotation": layout.Rotation,
		}).Info("Frame layout changed")
		c.layout = layout
	}

	l := c.layout
	c.crop = ensureBuffer(c.crop, l.CropW, l.CropH)
	c.portrait = ensureBuffer(c.portrait, l.TargetW, l.TargetH)

	// Translate frame coordinates to the image origin before warping.
	origin := geometry.Translate(-float64(b.Min.X), -float64(b.Min.Y))
	warp(c.crop, f.Image, origin.Then(l.FrameToCrop))
	warp(c.portrait, f.Image, origin.Then(l.FrameToPortrait))
	f.ready()

	cy := cycle{
		seq:        f.Seq,
		capturedAt: f.CapturedAt,
		facing:     f.Facing,
		layout:     l,
		crop:       c.crop,
		portrait:   c.portrait,
		started:    time.Now(),
	}

	c.wg.Add(1)
	go c.run(context.WithoutCancel(ctx), cy)
	return true
}

// RequestRegistration asks the next cycle that sees a face to capture it
// for registration.
func (c *Controller) RequestRegistration() {
	c.registerIntent.Store(true)
}

// RegistrationPending reports whether a registration request is waiting for
// a face.
func (c *Controller) RegistrationPending() bool {
	return c.registerIntent.Load()
}

// Wait blocks until the in-flight cycle, if any, has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Gate:         c.gate.Stats(),
		Cycles:       c.cycles.Load(),
		FailedCycles: c.failed.Load(),
		Faces:        c.faces.Load(),
		LastCycleMs:  c.lastCycle.Load(),
	}
}

func (c *Controller) run(ctx context.Context, cy cycle) {
	defer c.wg.Done()

	out, err := c.process(ctx, cy)
	if err != nil {
		c.failed.Add(1)
		log.WithFields(log.Fields{"seq": cy.seq, "error": err}).Warn("Detection cycle failed")
		out = cycleOutcome{}
	}
	if out.slot != nil {
		c.matcher.Commit(out.slot)
	}

	c.aggregate(cy, out.recs, c.dedupeAlerts(out.events))
}

// cycleOutcome is what a successful cycle hands to aggregation. slot holds
// the matcher state to commit, nil when no face was matched against.
type cycleOutcome struct {
	recs   []Recognition
	events []alert.Event
	slot   *facematch.Matcher
}

// process runs detection and the per-face work. Any collaborator error aborts
// the whole cycle and leaves the matcher slot untouched.
func (c *Controller) process(ctx context.Context, cy cycle) (out cycleOutcome, err error) {
	var register bool
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collaborator panic: %v", r)
		}
		// A failed cycle leaves the registration request for the next one.
		if err != nil && register {
			c.registerIntent.Store(true)
		}
	}()

	regions, err := c.opts.Detector.Detect(ctx, cy.crop)
	if err != nil {
		return cycleOutcome{}, fmt.Errorf("detecting faces: %w", err)
	}
	if len(regions) == 0 {
		return cycleOutcome{}, nil
	}

	register = c.registerIntent.Swap(false)

	slot := c.matcher.Begin()
	recs := make([]Recognition, 0, len(regions))
	var events []alert.Event
	for i, region := range regions {
		sensor, portraitBox := cy.layout.FaceBoxes(region)

		embedIn, err := ModelInput(cy.portrait, portraitBox, constants.EmbeddingInputSize)
		if err != nil {
			return cycleOutcome{}, fmt.Errorf("face %d embedding input: %w", i, err)
		}
		maskIn, err := ModelInput(cy.portrait, portraitBox, constants.MaskInputSize)
		if err != nil {
			return cycleOutcome{}, fmt.Errorf("face %d mask input: %w", i, err)
		}

		maskResults, err := c.opts.Classifier.Classify(ctx, maskIn)
		if err != nil {
			return cycleOutcome{}, fmt.Errorf("classifying face %d: %w", i, err)
		}
		masked := facematch.DecideMask(maskResults)

		candidates, err := c.opts.Extractor.Extract(ctx, embedIn, register)
		if err != nil {
			return cycleOutcome{}, fmt.Errorf("extracting face %d: %w", i, err)
		}

		match, change := slot.Match(candidates)
		if change != nil {
			events = append(events, alert.Event{
				Kind:          alert.KindIdentityChanged,
				Label:         change.Label,
				PreviousLabel: change.Previous,
				At:            cy.capturedAt,
			})
		}
		if match.Matched() && !masked {
			events = append(events, alert.Event{
				Kind:  alert.KindUnmasked,
				Label: match.Label,
				At:    cy.capturedAt,
			})
		}

		rec := Recognition{
			ID:       match.State,
			Label:    match.Label,
			Distance: match.Distance,
			Location: cy.layout.Emitted(sensor, cy.facing),
			Color:    facematch.ColorFor(masked),
			Masked:   masked,
		}
		if register {
			rec.Register = true
			rec.Embedding = match.Embedding
			rec.Crop = FaceCrop(cy.portrait, portraitBox, constants.RegistrationCropPadding)
		}
		recs = append(recs, rec)
	}

	return cycleOutcome{recs: recs, events: events, slot: slot}, nil
}

// dedupeAlerts keeps the first unmasked alert per label for the lifetime of
// the controller. It runs before the gate is released.
func (c *Controller) dedupeAlerts(events []alert.Event) []alert.Event {
	out := events[:0]
	for _, ev := range events {
		if ev.Kind == alert.KindUnmasked {
			if c.alerted[ev.Label] {
				continue
			}
			c.alerted[ev.Label] = true
		}
		out = append(out, ev)
	}
	return out
}

// aggregate finishes a cycle: release the gate, update the tracker, then
// surface at most one registration request.
func (c *Controller) aggregate(cy cycle, recs []Recognition, events []alert.Event) {
	c.cycles.Add(1)
	c.faces.Add(uint64(len(recs)))
	c.lastCycle.Store(time.Since(cy.started).Milliseconds())

	c.gate.Release()

	c.opts.Tracker.Update(recs, cy.seq)

	for _, rec := range recs {
		if !rec.Register {
			continue
		}
		if c.opts.Registrar != nil {
			c.opts.Registrar.Offer(RegistrationRequest{
				Recognition: rec,
				Seq:         cy.seq,
				CapturedAt:  cy.capturedAt,
			})
		}
		break
	}

	if c.opts.Notifier != nil {
		for _, ev := range events {
			c.opts.Notifier.Notify(ev)
		}
	}

	log.WithFields(log.Fields{"seq": cy.seq, "faces": len(recs)}).Debug("Cycle complete")
}
