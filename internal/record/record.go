// Package record encodes and decodes a single registered face.
//
// One record is stored per file, fields in a fixed order, big-endian:
//
//	magic    "MSRC"
//	version  uint16
//	id       uint16 length + UTF-8
//	title    uint16 length + UTF-8
//	distance uint8 present flag + float32
//	embed    uint32 count + count*float32
//	box      float32 top, bottom, left, right
//	image    uint8 present flag + uint32 length + PNG bytes
//
// Nothing follows the image block. A file that is truncated, carries trailing
// bytes or an image that does not decode is rejected as a whole.
package record

import (
	"errors"
	"image"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// Version is the current layout version.
const Version uint16 = 1

const (
	magic = "MSRC"

	maxStringLen    = 1024
	maxEmbeddingLen = 8192
	maxImageLen     = 16 << 20
)

var (
	// ErrCorrupt is returned for any payload that does not decode cleanly.
	ErrCorrupt = errors.New("record: corrupt payload")

	// ErrTooLarge is returned when a record exceeds the layout limits.
	ErrTooLarge = errors.New("record: field exceeds limit")
)

// Record is the persisted form of a recognition that was registered.
type Record struct {
	ID    string
	Title string
	// Distance is nil when the recognition had no candidates.
	Distance  *float32
	Embedding []float32
	// Location is stored at float32 precision.
	Location geometry.Rect
	Crop     image.Image
}
