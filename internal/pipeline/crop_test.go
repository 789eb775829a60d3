package pipeline

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

func TestModelInput(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 20; y < 60; y++ {
		for x := 20; x < 60; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	in, err := ModelInput(src, geometry.Rect{Left: 20, Top: 20, Right: 60, Bottom: 60}, 112)
	if err != nil {
		t.Fatalf("ModelInput() error = %v", err)
	}
	if b := in.Bounds(); b.Dx() != 112 || b.Dy() != 112 {
		t.Fatalf("bounds = %v, want 112x112", b)
	}
	if c := in.RGBAAt(56, 56); c.R != 255 {
		t.Errorf("centre pixel = %v, want red", c)
	}
}

func TestModelInput_EmptyBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	_, err := ModelInput(src, geometry.Rect{Left: 5, Top: 5, Right: 5, Bottom: 8}, 112)
	if !errors.Is(err, geometry.ErrDegenerate) {
		t.Errorf("error = %v, want ErrDegenerate", err)
	}
}

func TestFaceCrop(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))

	tests := []struct {
		name string
		box  geometry.Rect
		want image.Rectangle
	}{
		{"padded", geometry.Rect{Left: 40, Top: 40, Right: 60, Bottom: 60}, image.Rect(0, 0, 26, 26)},
		{"clipped at edge", geometry.Rect{Left: 0, Top: 0, Right: 20, Bottom: 20}, image.Rect(0, 0, 23, 23)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crop := FaceCrop(src, tt.box, 0.15)
			if crop == nil {
				t.Fatal("FaceCrop() = nil")
			}
			if got := crop.Bounds(); got != tt.want {
				t.Errorf("bounds = %v, want %v", got, tt.want)
			}
		})
	}

	if crop := FaceCrop(src, geometry.Rect{Left: 200, Top: 200, Right: 220, Bottom: 220}, 0.15); crop != nil {
		t.Errorf("crop outside the image = %v, want nil", crop.Bounds())
	}
}
