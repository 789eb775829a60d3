package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"
	"math"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// Encode serialises a record. The same bytes are written to every location
// the record is persisted to.
func Encode(r Record) ([]byte, error) {
	if len(r.ID) > maxStringLen || len(r.Title) > maxStringLen {
		return nil, fmt.Errorf("%w: string longer than %d bytes", ErrTooLarge, maxStringLen)
	}
	if len(r.Embedding) > maxEmbeddingLen {
		return nil, fmt.Errorf("%w: embedding has %d values", ErrTooLarge, len(r.Embedding))
	}

	var img []byte
	if r.Crop != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, r.Crop); err != nil {
			return nil, fmt.Errorf("encoding crop: %w", err)
		}
		if buf.Len() > maxImageLen {
			return nil, fmt.Errorf("%w: crop is %d bytes", ErrTooLarge, buf.Len())
		}
		img = buf.Bytes()
	}

	out := make([]byte, 0, 64+len(r.ID)+len(r.Title)+4*len(r.Embedding)+len(img))
	out = append(out, magic...)
	out = binary.BigEndian.AppendUint16(out, Version)
	out = appendString(out, r.ID)
	out = appendString(out, r.Title)

	if r.Distance != nil {
		out = append(out, 1)
		out = appendFloat(out, *r.Distance)
	} else {
		out = append(out, 0)
		out = appendFloat(out, 0)
	}

	out = binary.BigEndian.AppendUint32(out, uint32(len(r.Embedding)))
	for _, v := range r.Embedding {
		out = appendFloat(out, v)
	}

	loc := r.Location
	for _, v := range []float64{loc.Top, loc.Bottom, loc.Left, loc.Right} {
		out = appendFloat(out, float32(v))
	}

	if img != nil {
		out = append(out, 1)
		out = binary.BigEndian.AppendUint32(out, uint32(len(img)))
		out = append(out, img...)
	} else {
		out = append(out, 0)
	}

	return out, nil
}

// Decode parses a record produced by Encode. Every failure wraps ErrCorrupt.
func Decode(data []byte) (Record, error) {
	d := &decoder{buf: data}

	if string(d.next(len(magic))) != magic {
		return Record{}, d.fail("bad magic")
	}
	if v := d.u16(); d.err == nil && v != Version {
		return Record{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	var r Record
	r.ID = d.str()
	r.Title = d.str()

	hasDistance := d.flag()
	distance := d.f32()
	if hasDistance {
		r.Distance = &distance
	}

	n := d.u32()
	if n > maxEmbeddingLen {
		return Record{}, fmt.Errorf("%w: embedding count %d", ErrCorrupt, n)
	}
	if n > 0 && d.err == nil {
		r.Embedding = make([]float32, n)
		for i := range r.Embedding {
			r.Embedding[i] = d.f32()
		}
	}

	top, bottom, left, right := d.f32(), d.f32(), d.f32(), d.f32()
	r.Location = geometry.Rect{
		Left:   float64(left),
		Top:    float64(top),
		Right:  float64(right),
		Bottom: float64(bottom),
	}

	if d.flag() {
		size := d.u32()
		if size > maxImageLen {
			return Record{}, fmt.Errorf("%w: image length %d", ErrCorrupt, size)
		}
		payload := d.next(int(size))
		if d.err == nil {
			img, err := png.Decode(bytes.NewReader(payload))
			if err != nil {
				return Record{}, fmt.Errorf("%w: image: %v", ErrCorrupt, err)
			}
			r.Crop = img
		}
	}

	if d.err != nil {
		return Record{}, d.err
	}
	if len(d.buf) != d.off {
		return Record{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(d.buf)-d.off)
	}
	return r, nil
}

func appendString(out []byte, s string) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(s)))
	return append(out, s...)
}

func appendFloat(out []byte, f float32) []byte {
	return binary.BigEndian.AppendUint32(out, math.Float32bits(f))
}

// decoder reads sequential fields and latches the first error.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(msg string) error {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s at offset %d", ErrCorrupt, msg, d.off)
	}
	return d.err
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.fail("truncated")
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u16() uint16 {
	b := d.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *decoder) f32() float32 {
	return math.Float32frombits(d.u32())
}

func (d *decoder) flag() bool {
	b := d.next(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("bad flag")
		return false
	}
}

func (d *decoder) str() string {
	n := int(d.u16())
	if n > maxStringLen {
		d.fail("string too long")
		return ""
	}
	return string(d.next(n))
}
