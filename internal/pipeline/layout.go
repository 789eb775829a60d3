package pipeline

import (
	"fmt"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// Layout holds the coordinate spaces derived from one preview size and
// sensor rotation.
type Layout struct {
	PreviewW, PreviewH int
	Rotation           int

	// Portrait space is the preview rotated upright.
	TargetW, TargetH int
	// Crop space is what the face detector sees.
	CropW, CropH int

	FrameToCrop     geometry.Transform
	CropToFrame     geometry.Transform
	FrameToPortrait geometry.Transform
	// Mirror flips sensor-space boxes for the front camera.
	Mirror geometry.Transform
}

// NewLayout derives every transform used by a cycle.
func NewLayout(previewW, previewH, rotation int) (*Layout, error) {
	if !ValidRotation(rotation) {
		return nil, fmt.Errorf("unsupported sensor rotation %d", rotation)
	}

	l := &Layout{
		PreviewW: previewW,
		PreviewH: previewH,
		Rotation: rotation,
		TargetW:  previewW,
		TargetH:  previewH,
	}
	sideways := rotation == 90 || rotation == 270
	if sideways {
		l.TargetW, l.TargetH = previewH, previewW
	}
	l.CropW, l.CropH = l.TargetW/2, l.TargetH/2

	var err error
	l.FrameToCrop, err = geometry.BuildTransform(previewW, previewH, l.CropW, l.CropH, float64(rotation), false)
	if err != nil {
		return nil, fmt.Errorf("frame to crop: %w", err)
	}
	l.CropToFrame, err = l.FrameToCrop.Invert()
	if err != nil {
		return nil, fmt.Errorf("crop to frame: %w", err)
	}
	l.FrameToPortrait, err = geometry.BuildRotationAboutCenter(previewW, previewH, l.TargetW, l.TargetH, float64(rotation))
	if err != nil {
		return nil, fmt.Errorf("frame to portrait: %w", err)
	}

	cx, cy := float64(previewW)/2, float64(previewH)/2
	if sideways {
		l.Mirror = geometry.ScaleAbout(1, -1, cx, cy)
	} else {
		l.Mirror = geometry.ScaleAbout(-1, 1, cx, cy)
	}

	return l, nil
}

// Fits reports whether the layout was built for this preview geometry.
func (l *Layout) Fits(w, h, rotation int) bool {
	return l != nil && l.PreviewW == w && l.PreviewH == h && l.Rotation == rotation
}

// FaceBoxes maps a detector region to the sensor-space box and the matching
// portrait-space box the model inputs are cut from.
func (l *Layout) FaceBoxes(region geometry.Rect) (sensor, portrait geometry.Rect) {
	sensor = l.CropToFrame.MapRect(region.Canon())
	portrait = l.FrameToPortrait.MapRect(sensor)
	return sensor, portrait
}

// Emitted returns the box reported to the tracker, mirrored for the front
// camera.
func (l *Layout) Emitted(sensor geometry.Rect, facing Facing) geometry.Rect {
	if facing == FacingFront {
		return l.Mirror.MapRect(sensor)
	}
	return sensor
}
