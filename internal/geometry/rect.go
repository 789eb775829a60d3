// Package geometry maps face boxes between the sensor, crop, portrait and
// model-input coordinate spaces.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in float pixel coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Canon returns the rectangle with swapped edges put back in order.
func (r Rect) Canon() Rect {
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

// Image rounds the rectangle outwards to integer pixel bounds.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.Left)),
		int(math.Floor(r.Top)),
		int(math.Ceil(r.Right)),
		int(math.Ceil(r.Bottom)),
	)
}

// Corners returns the four corners clockwise from the top-left.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.Left, r.Top},
		{r.Right, r.Top},
		{r.Right, r.Bottom},
		{r.Left, r.Bottom},
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%.1f, %.1f - %.1f, %.1f)", r.Left, r.Top, r.Right, r.Bottom)
}

// Point is a location in float pixel coordinates.
type Point struct {
	X, Y float64
}

// IoU calculates Intersection over Union between two rectangles in the same
// coordinate system.
func IoU(a, b Rect) float64 {
	if a.Empty() || b.Empty() {
		return 0
	}

	// Calculate intersection.
	x1 := max(a.Left, b.Left)
	y1 := max(a.Top, b.Top)
	x2 := min(a.Right, b.Right)
	y2 := min(a.Bottom, b.Bottom)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)

	// Calculate union.
	union := a.Width()*a.Height() + b.Width()*b.Height() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}
