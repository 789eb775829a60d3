package vision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/kozaktomas/mask-sentry/internal/pipeline"
)

// Camera reads frames from a local device or a stream URL.
type Camera struct {
	source   string
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	rotation int
	facing   pipeline.Facing
}

// OpenCamera opens source, which is either a device index or a URL/path.
func OpenCamera(source string, rotation int, facing pipeline.Facing) (*Camera, error) {
	var device interface{} = source
	if id, err := strconv.Atoi(source); err == nil {
		device = id
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening camera %s: %w", source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s did not open", source)
	}

	return &Camera{
		source:   source,
		capture:  capture,
		mat:      gocv.NewMat(),
		rotation: rotation,
		facing:   facing,
	}, nil
}

// Stream delivers frames to submit until ctx is done or the source ends.
// The next frame is read only after the previous one signalled Ready.
func (c *Camera) Stream(ctx context.Context, submit func(pipeline.Frame)) error {
	ready := make(chan struct{}, 1)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if ok := c.capture.Read(&c.mat); !ok {
			return errors.New("camera stream ended")
		}
		if c.mat.Empty() {
			continue
		}

		img, err := c.mat.ToImage()
		if err != nil {
			log.WithError(err).Warn("Skipping unreadable frame")
			continue
		}

		seq++
		submit(pipeline.Frame{
			Image:      img,
			Rotation:   c.rotation,
			Facing:     c.facing,
			Seq:        seq,
			CapturedAt: time.Now(),
			Ready:      func() { ready <- struct{}{} },
		})

		select {
		case <-ready:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mat.Close()
	return c.capture.Close()
}
