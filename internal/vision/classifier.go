package vision

import (
	"context"
	"image"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/mask-sentry/internal/constants"
	"github.com/kozaktomas/mask-sentry/internal/facematch"
)

// MaskClassifier scores 224x224 face crops. Class 0 must be "mask".
type MaskClassifier struct {
	net    *network
	labels []string
}

// NewMaskClassifier loads a classifier model with the given class labels.
func NewMaskClassifier(model, config string, labels []string) (*MaskClassifier, error) {
	net, err := loadNetwork(model, config)
	if err != nil {
		return nil, err
	}
	return &MaskClassifier{net: net, labels: labels}, nil
}

// Classify returns the classes ranked by confidence.
func (c *MaskClassifier) Classify(ctx context.Context, img image.Image) ([]facematch.MaskResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := c.net.forward(img, constants.MaskInputSize, 1.0/255,
		gocv.NewScalar(0, 0, 0, 0), true)
	if err != nil {
		return nil, err
	}
	return facematch.RankMaskScores(out, c.labels), nil
}

// Close releases the network.
func (c *MaskClassifier) Close() error {
	return c.net.Close()
}
