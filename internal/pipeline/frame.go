package pipeline

import (
	"fmt"
	"image"
	"strings"
	"time"
)

// Facing is the lens direction of the camera that produced a frame.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// ParseFacing parses "front" or "back".
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "back", "":
		return FacingBack, nil
	case "front":
		return FacingFront, nil
	default:
		return FacingBack, fmt.Errorf("unknown camera facing %q", s)
	}
}

// ValidRotation reports whether degrees is a sensor orientation the pipeline
// supports.
func ValidRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// Frame is one captured camera image. The pixels are only valid until Ready
// is called.
type Frame struct {
	Image      image.Image
	Rotation   int // sensor to display orientation, degrees
	Facing     Facing
	Seq        uint64
	CapturedAt time.Time

	// Ready tells the capture source it may deliver the next frame.
	Ready func()
}

func (f Frame) ready() {
	if f.Ready != nil {
		f.Ready()
	}
}
