package vision

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// FaceDetector runs an SSD face detector (res10 Caffe or compatible).
type FaceDetector struct {
	net           *network
	minConfidence float32
	minSize       float64
}

// NewFaceDetector loads the detector weights and prototxt.
func NewFaceDetector(model, config string) (*FaceDetector, error) {
	net, err := loadNetwork(model, config)
	if err != nil {
		return nil, err
	}
	return &FaceDetector{
		net:           net,
		minConfidence: constants.MinDetectionConfidence,
		minSize:       constants.MinFaceSizePx,
	}, nil
}

// Detect returns face boxes in the coordinates of img.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := d.net.forward(img, constants.DetectorInputSize, 1.0,
		gocv.NewScalar(104, 177, 123, 0), false)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return parseDetections(out, float64(b.Dx()), float64(b.Dy()), d.minConfidence, d.minSize), nil
}

// parseDetections decodes SSD rows of [batch, class, score, x1, y1, x2, y2]
// with corners normalised to [0,1].
func parseDetections(out []float32, w, h float64, minConfidence float32, minSize float64) []geometry.Rect {
	var rects []geometry.Rect
	for i := 0; i+7 <= len(out); i += 7 {
		if out[i+2] < minConfidence {
			continue
		}
		r := geometry.Rect{
			Left:   clamp(float64(out[i+3])) * w,
			Top:    clamp(float64(out[i+4])) * h,
			Right:  clamp(float64(out[i+5])) * w,
			Bottom: clamp(float64(out[i+6])) * h,
		}.Canon()
		if r.Width() < minSize || r.Height() < minSize {
			continue
		}
		rects = append(rects, r)
	}
	return rects
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

// Close releases the network.
func (d *FaceDetector) Close() error {
	return d.net.Close()
}
