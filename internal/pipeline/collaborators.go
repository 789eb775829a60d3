package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/kozaktomas/mask-sentry/internal/alert"
	"github.com/kozaktomas/mask-sentry/internal/facematch"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// Detector finds face regions in the crop-space image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error)
}

// Extractor returns identity candidates for an embedding-sized face, best first.
type Extractor interface {
	Extract(ctx context.Context, img image.Image, wantEmbedding bool) ([]facematch.Candidate, error)
}

// MaskClassifier returns mask classes for a classifier-sized face, best first.
type MaskClassifier interface {
	Classify(ctx context.Context, img image.Image) ([]facematch.MaskResult, error)
}

// Tracker receives every cycle's recognitions, including empty ones.
type Tracker interface {
	Update(recognitions []Recognition, seq uint64)
}

// Registrar receives faces the user asked to register.
type Registrar interface {
	Offer(req RegistrationRequest)
}

// Notifier receives alert events. It must not block.
type Notifier interface {
	Notify(ev alert.Event)
}

// Recognition is the result for one face in one frame.
type Recognition struct {
	ID       facematch.State `json:"id"`
	Label    string          `json:"label"`
	Distance *float32        `json:"distance"`
	// Location is in sensor space, mirrored for the front camera.
	Location geometry.Rect   `json:"location"`
	Color    facematch.Color `json:"color"`
	Masked   bool            `json:"masked"`

	// Only set on a registration cycle.
	Embedding []float32   `json:"-"`
	Crop      image.Image `json:"-"`
	Register  bool        `json:"register,omitempty"`
}

// RegistrationRequest hands a face to the confirmation flow.
type RegistrationRequest struct {
	Recognition Recognition
	Seq         uint64
	CapturedAt  time.Time
}
