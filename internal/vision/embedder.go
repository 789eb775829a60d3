package vision

import (
	"context"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/mask-sentry/internal/constants"
)

// Embedder computes L2-normalised face embeddings from 112x112 crops
// (MobileFaceNet / ArcFace style models).
type Embedder struct {
	net *network
}

// NewEmbedder loads an embedding model. config may be empty for ONNX models.
func NewEmbedder(model, config string) (*Embedder, error) {
	net, err := loadNetwork(model, config)
	if err != nil {
		return nil, err
	}
	return &Embedder{net: net}, nil
}

// Embed returns the normalised embedding of img.
func (e *Embedder) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// (x - 127.5) / 127.5
	out, err := e.net.forward(img, constants.EmbeddingInputSize, 1.0/127.5,
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true)
	if err != nil {
		return nil, err
	}
	return normalize(out), nil
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm < 1e-10 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Close releases the network.
func (e *Embedder) Close() error {
	return e.net.Close()
}
