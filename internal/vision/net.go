// Package vision adapts OpenCV models and cameras to the pipeline
// collaborator interfaces.
package vision

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ErrModel marks a model that could not be loaded. It is fatal at startup.
var ErrModel = errors.New("model unavailable")

// network serialises access to a gocv.Net, which is not safe for concurrent use.
type network struct {
	mu  sync.Mutex
	net gocv.Net
}

func loadNetwork(model, config string) (*network, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModel)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModel, err)
	}

	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot read %s", ErrModel, model)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", ErrModel, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("%w: %v", ErrModel, err)
	}
	return &network{net: net}, nil
}

// forward runs one image through the network and returns the flattened
// float output.
func (n *network) forward(img image.Image, size int, scale float64, mean gocv.Scalar, swapRB bool) ([]float32, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("converting image: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, scale, image.Pt(size, size), mean, swapRB, false)
	defer blob.Close()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading output: %w", err)
	}
	return append([]float32(nil), data...), nil
}

func (n *network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}
