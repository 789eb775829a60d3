package geometry

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-3

func approxRect(a, b Rect) bool {
	return math.Abs(a.Left-b.Left) <= tolerance &&
		math.Abs(a.Top-b.Top) <= tolerance &&
		math.Abs(a.Right-b.Right) <= tolerance &&
		math.Abs(a.Bottom-b.Bottom) <= tolerance
}

func TestBuildTransform_RoundTrip(t *testing.T) {
	sizes := []struct {
		srcW, srcH, dstW, dstH int
	}{
		{640, 480, 320, 240},
		{640, 480, 240, 320},
		{1280, 720, 112, 112},
		{480, 640, 480, 640},
	}

	for _, rotation := range []float64{0, 90, 180, 270} {
		for _, maintain := range []bool{false, true} {
			for _, s := range sizes {
				tr, err := BuildTransform(s.srcW, s.srcH, s.dstW, s.dstH, rotation, maintain)
				if err != nil {
					t.Fatalf("BuildTransform(%v, rot=%v) error: %v", s, rotation, err)
				}
				inv, err := tr.Invert()
				if err != nil {
					t.Fatalf("Invert(rot=%v) error: %v", rotation, err)
				}

				roundTrip := tr.Then(inv)
				src := Rect{0, 0, float64(s.srcW), float64(s.srcH)}
				for _, c := range src.Corners() {
					got := roundTrip.MapPoint(c)
					if math.Abs(got.X-c.X) > tolerance || math.Abs(got.Y-c.Y) > tolerance {
						t.Errorf("rot=%v maintain=%v %v: corner %v mapped back to %v", rotation, maintain, s, c, got)
					}
				}

				if !roundTrip.ApproxEqual(Identity(), 1e-9) {
					t.Errorf("rot=%v: T then inverse(T) = %v, want identity", rotation, roundTrip)
				}

				back, err := inv.Invert()
				if err != nil {
					t.Fatalf("double Invert error: %v", err)
				}
				if !back.ApproxEqual(tr, 1e-9) {
					t.Errorf("rot=%v: inverse(inverse(T)) = %v, want %v", rotation, back, tr)
				}
			}
		}
	}
}

func TestBuildTransform_FillsDestination(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, dstW, dstH int
		rotation               float64
		maintain               bool
		expected               Rect
	}{
		{
			name: "no rotation halves",
			srcW: 640, srcH: 480, dstW: 320, dstH: 240,
			expected: Rect{0, 0, 320, 240},
		},
		{
			name: "quarter turn swaps extents",
			srcW: 640, srcH: 480, dstW: 240, dstH: 320, rotation: 90,
			expected: Rect{0, 0, 240, 320},
		},
		{
			name: "half turn",
			srcW: 640, srcH: 480, dstW: 320, dstH: 240, rotation: 180,
			expected: Rect{0, 0, 320, 240},
		},
		{
			name: "letterbox keeps aspect",
			srcW: 640, srcH: 480, dstW: 320, dstH: 320, maintain: true,
			// uniform scale 0.5, image 320x240 centred vertically
			expected: Rect{0, 40, 320, 280},
		},
		{
			name: "independent axes stretch",
			srcW: 640, srcH: 480, dstW: 320, dstH: 320,
			expected: Rect{0, 0, 320, 320},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := BuildTransform(tt.srcW, tt.srcH, tt.dstW, tt.dstH, tt.rotation, tt.maintain)
			if err != nil {
				t.Fatalf("BuildTransform() error: %v", err)
			}
			got := tr.MapRect(Rect{0, 0, float64(tt.srcW), float64(tt.srcH)})
			if !approxRect(got, tt.expected) {
				t.Errorf("MapRect(source) = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildTransform_Degenerate(t *testing.T) {
	if _, err := BuildTransform(0, 480, 320, 240, 0, false); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
	if _, err := BuildRotationAboutCenter(640, 480, 480, -1, 90); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestBuildRotationAboutCenter(t *testing.T) {
	tr, err := BuildRotationAboutCenter(640, 480, 480, 640, 90)
	if err != nil {
		t.Fatalf("BuildRotationAboutCenter() error: %v", err)
	}

	got := tr.MapRect(Rect{0, 0, 640, 480})
	if !approxRect(got, Rect{0, 0, 480, 640}) {
		t.Errorf("MapRect(sensor) = %v, want portrait 480x640", got)
	}

	// Top-left sensor pixel ends up on the right edge after a clockwise turn.
	p := tr.MapPoint(Point{0, 0})
	if math.Abs(p.X-480) > tolerance || math.Abs(p.Y) > tolerance {
		t.Errorf("MapPoint(0,0) = %v, want (480, 0)", p)
	}

	// No scaling: a 100px wide box stays 100px tall after the quarter turn.
	box := tr.MapRect(Rect{100, 100, 200, 150})
	if math.Abs(box.Height()-100) > tolerance || math.Abs(box.Width()-50) > tolerance {
		t.Errorf("MapRect(box) = %v, want 50x100", box)
	}
}

func TestMapRect_RotatedQuadIsBounded(t *testing.T) {
	got := Rotate(45).MapRect(Rect{-1, -1, 1, 1})
	want := Rect{-math.Sqrt2, -math.Sqrt2, math.Sqrt2, math.Sqrt2}
	if !approxRect(got, want) {
		t.Errorf("MapRect(rotate 45) = %v, want %v", got, want)
	}
}

func TestScaleAbout_Mirror(t *testing.T) {
	flip := ScaleAbout(-1, 1, 320, 240)
	got := flip.MapRect(Rect{10, 20, 110, 220})
	want := Rect{530, 20, 630, 220}
	if !approxRect(got, want) {
		t.Errorf("horizontal mirror = %v, want %v", got, want)
	}

	vflip := ScaleAbout(1, -1, 320, 240)
	got = vflip.MapRect(Rect{10, 20, 110, 220})
	want = Rect{10, 260, 110, 460}
	if !approxRect(got, want) {
		t.Errorf("vertical mirror = %v, want %v", got, want)
	}
}

func TestCropToSize(t *testing.T) {
	tr, err := CropToSize(Rect{100, 50, 300, 150}, 112)
	if err != nil {
		t.Fatalf("CropToSize() error: %v", err)
	}
	got := tr.MapRect(Rect{100, 50, 300, 150})
	if !approxRect(got, Rect{0, 0, 112, 112}) {
		t.Errorf("CropToSize mapped region to %v, want 112x112 at origin", got)
	}

	if _, err := CropToSize(Rect{10, 10, 10, 20}, 112); !errors.Is(err, ErrDegenerate) {
		t.Errorf("expected ErrDegenerate for empty region, got %v", err)
	}
}

func TestInvert_Singular(t *testing.T) {
	if _, err := Scale(0, 1).Invert(); !errors.Is(err, ErrSingular) {
		t.Errorf("expected ErrSingular, got %v", err)
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Rect
		expected float64
	}{
		{
			name:     "identical boxes",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{0, 0, 10, 10},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{20, 20, 30, 30},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			a:        Rect{0, 0, 10, 10},
			b:        Rect{5, 5, 15, 15},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			a:        Rect{0, 0, 20, 20},
			b:        Rect{5, 5, 15, 15},
			expected: 100.0 / 400.0,
		},
		{
			name:     "empty box",
			a:        Rect{0, 0, 0, 10},
			b:        Rect{0, 0, 10, 10},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IoU(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("IoU(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestRect_CanonAndImage(t *testing.T) {
	r := Rect{Left: 10.6, Top: 20.2, Right: 1.5, Bottom: 2.9}.Canon()
	if r.Left != 1.5 || r.Right != 10.6 || r.Top != 2.9 || r.Bottom != 20.2 {
		t.Errorf("Canon() = %v", r)
	}
	img := r.Image()
	if img.Min.X != 1 || img.Min.Y != 2 || img.Max.X != 11 || img.Max.Y != 21 {
		t.Errorf("Image() = %v", img)
	}
}
