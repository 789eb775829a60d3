package pipeline

import (
	"testing"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		rotation       int
		targetW, cropW int
		targetH, cropH int
	}{
		{0, 640, 320, 480, 240},
		{90, 480, 240, 640, 320},
		{180, 640, 320, 480, 240},
		{270, 480, 240, 640, 320},
	}

	sensor := geometry.Rect{Right: 640, Bottom: 480}

	for _, tt := range tests {
		l, err := NewLayout(640, 480, tt.rotation)
		if err != nil {
			t.Fatalf("NewLayout(%d): %v", tt.rotation, err)
		}
		if l.TargetW != tt.targetW || l.TargetH != tt.targetH {
			t.Errorf("rotation %d: target = %dx%d, want %dx%d", tt.rotation, l.TargetW, l.TargetH, tt.targetW, tt.targetH)
		}
		if l.CropW != tt.cropW || l.CropH != tt.cropH {
			t.Errorf("rotation %d: crop = %dx%d, want %dx%d", tt.rotation, l.CropW, l.CropH, tt.cropW, tt.cropH)
		}

		// The whole crop maps back onto the whole sensor.
		crop := geometry.Rect{Right: float64(l.CropW), Bottom: float64(l.CropH)}
		if got := l.CropToFrame.MapRect(crop); !rectNear(got, sensor) {
			t.Errorf("rotation %d: crop to frame = %v, want %v", tt.rotation, got, sensor)
		}

		// And the whole sensor fills the portrait.
		portrait := geometry.Rect{Right: float64(l.TargetW), Bottom: float64(l.TargetH)}
		if got := l.FrameToPortrait.MapRect(sensor); !rectNear(got, portrait) {
			t.Errorf("rotation %d: frame to portrait = %v, want %v", tt.rotation, got, portrait)
		}

		if !l.Fits(640, 480, tt.rotation) || l.Fits(480, 640, tt.rotation) {
			t.Errorf("rotation %d: Fits mismatch", tt.rotation)
		}
	}
}

func TestNewLayout_Invalid(t *testing.T) {
	if _, err := NewLayout(640, 480, 45); err == nil {
		t.Error("expected error for 45 degrees")
	}
	if _, err := NewLayout(0, 480, 0); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestLayout_Emitted(t *testing.T) {
	l, err := NewLayout(640, 480, 0)
	if err != nil {
		t.Fatal(err)
	}
	box := geometry.Rect{Left: 0, Top: 0, Right: 100, Bottom: 50}

	if got := l.Emitted(box, FacingBack); got != box {
		t.Errorf("back camera box changed: %v", got)
	}
	want := geometry.Rect{Left: 540, Top: 0, Right: 640, Bottom: 50}
	if got := l.Emitted(box, FacingFront); !rectNear(got, want) {
		t.Errorf("front camera box = %v, want %v", got, want)
	}
}

func TestParseFacing(t *testing.T) {
	for in, want := range map[string]Facing{"front": FacingFront, "BACK": FacingBack, "": FacingBack} {
		got, err := ParseFacing(in)
		if err != nil || got != want {
			t.Errorf("ParseFacing(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFacing("sideways"); err == nil {
		t.Error("expected error for unknown facing")
	}
}
