package geometry

import (
	"errors"
	"math"

	"golang.org/x/image/math/f64"
)

var (
	// ErrDegenerate is returned when a source or destination extent is not positive.
	ErrDegenerate = errors.New("degenerate image dimensions")
	// ErrSingular is returned when a transform has no inverse.
	ErrSingular = errors.New("transform is not invertible")
)

// singularEpsilon is the smallest determinant treated as invertible.
const singularEpsilon = 1e-12

// Transform is a 2x3 affine matrix in row-major order. It has the same layout
// as f64.Aff3 so it can be handed to x/image/draw for resampling:
//
//	x' = m[0]*x + m[1]*y + m[2]
//	y' = m[3]*x + m[4]*y + m[5]
type Transform f64.Aff3

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{1, 0, 0, 0, 1, 0}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Transform {
	return Transform{1, 0, tx, 0, 1, ty}
}

// Scale returns an axis-aligned scale about the origin.
func Scale(sx, sy float64) Transform {
	return Transform{sx, 0, 0, 0, sy, 0}
}

// ScaleAbout returns a scale about the pivot (px, py). A factor of -1 mirrors
// along that axis.
func ScaleAbout(sx, sy, px, py float64) Transform {
	return Translate(-px, -py).Then(Scale(sx, sy)).Then(Translate(px, py))
}

// Rotate returns a rotation about the origin. Positive degrees turn clockwise
// in image coordinates (y grows downwards).
func Rotate(degrees float64) Transform {
	sin, cos := sinCos(degrees)
	return Transform{cos, -sin, 0, sin, cos, 0}
}

// sinCos uses exact values for quarter turns so boxes stay on whole pixels.
func sinCos(degrees float64) (float64, float64) {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	switch d {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(d * math.Pi / 180)
}

// Then returns the transform that applies t first and u second.
func (t Transform) Then(u Transform) Transform {
	return Transform{
		u[0]*t[0] + u[1]*t[3],
		u[0]*t[1] + u[1]*t[4],
		u[0]*t[2] + u[1]*t[5] + u[2],
		u[3]*t[0] + u[4]*t[3],
		u[3]*t[1] + u[4]*t[4],
		u[3]*t[2] + u[4]*t[5] + u[5],
	}
}

// Invert returns the inverse mapping.
func (t Transform) Invert() (Transform, error) {
	det := t[0]*t[4] - t[1]*t[3]
	if math.Abs(det) < singularEpsilon {
		return Transform{}, ErrSingular
	}
	return Transform{
		t[4] / det,
		-t[1] / det,
		(t[1]*t[5] - t[4]*t[2]) / det,
		-t[3] / det,
		t[0] / det,
		(t[3]*t[2] - t[0]*t[5]) / det,
	}, nil
}

// Aff3 exposes the matrix for x/image/draw.
func (t Transform) Aff3() f64.Aff3 {
	return f64.Aff3(t)
}

// MapPoint applies the transform to a single point.
func (t Transform) MapPoint(p Point) Point {
	return Point{
		X: t[0]*p.X + t[1]*p.Y + t[2],
		Y: t[3]*p.X + t[4]*p.Y + t[5],
	}
}

// MapRect maps the four corners of r and returns their axis-aligned bounds.
// A rotated rectangle becomes the smallest upright box that contains it.
func (t Transform) MapRect(r Rect) Rect {
	corners := r.Corners()
	first := t.MapPoint(corners[0])
	out := Rect{Left: first.X, Top: first.Y, Right: first.X, Bottom: first.Y}
	for _, c := range corners[1:] {
		p := t.MapPoint(c)
		out.Left = min(out.Left, p.X)
		out.Top = min(out.Top, p.Y)
		out.Right = max(out.Right, p.X)
		out.Bottom = max(out.Bottom, p.Y)
	}
	return out
}

// ApproxEqual reports whether every coefficient differs by at most tol.
func (t Transform) ApproxEqual(u Transform, tol float64) bool {
	for i := range t {
		if math.Abs(t[i]-u[i]) > tol {
			return false
		}
	}
	return true
}

// BuildTransform maps a srcW x srcH image onto a dstW x dstH image. The source
// is rotated about its centre, the rotated extents are scaled onto the
// destination and the result is centred on the destination. With
// maintainAspect a single uniform scale is used and the image is letterboxed;
// otherwise each axis is scaled independently.
func BuildTransform(srcW, srcH, dstW, dstH int, rotation float64, maintainAspect bool) (Transform, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Transform{}, ErrDegenerate
	}

	t := Translate(-float64(srcW)/2, -float64(srcH)/2).Then(Rotate(rotation))

	// A quarter turn swaps the extents that have to fit the destination.
	inW, inH := float64(srcW), float64(srcH)
	if isQuarterTurn(rotation) {
		inW, inH = inH, inW
	}

	sx := float64(dstW) / inW
	sy := float64(dstH) / inH
	if maintainAspect {
		s := min(sx, sy)
		sx, sy = s, s
	}

	return t.Then(Scale(sx, sy)).Then(Translate(float64(dstW)/2, float64(dstH)/2)), nil
}

// BuildRotationAboutCenter rotates a srcW x srcH image about its centre and
// re-centres it on a dstW x dstH image without scaling.
func BuildRotationAboutCenter(srcW, srcH, dstW, dstH int, rotation float64) (Transform, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Transform{}, ErrDegenerate
	}
	return Translate(-float64(srcW)/2, -float64(srcH)/2).
		Then(Rotate(rotation)).
		Then(Translate(float64(dstW)/2, float64(dstH)/2)), nil
}

// CropToSize maps the region r onto a size x size model input.
func CropToSize(r Rect, size int) (Transform, error) {
	if r.Empty() || size <= 0 {
		return Transform{}, ErrDegenerate
	}
	return Translate(-r.Left, -r.Top).Then(Scale(float64(size)/r.Width(), float64(size)/r.Height())), nil
}

func isQuarterTurn(degrees float64) bool {
	d := math.Mod(math.Abs(degrees)+90, 180)
	return d == 0
}
