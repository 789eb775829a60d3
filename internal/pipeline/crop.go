package pipeline

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/kozaktomas/mask-sentry/internal/geometry"
)

// warp resamples src into dst through t, which maps src coordinates to dst
// coordinates. dst is cleared first so uncovered pixels are black.
func warp(dst *image.RGBA, src image.Image, t geometry.Transform) {
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	xdraw.ApproxBiLinear.Transform(dst, t.Aff3(), src, src.Bounds(), xdraw.Src, nil)
}

// ensureBuffer returns buf when it already has the requested size.
func ensureBuffer(buf *image.RGBA, w, h int) *image.RGBA {
	if buf != nil && buf.Bounds().Dx() == w && buf.Bounds().Dy() == h {
		return buf
	}
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// ModelInput cuts box out of img and scales it to a size x size model input.
// The live cycle passes the portrait buffer; enrollment passes a photo.
func ModelInput(img image.Image, box geometry.Rect, size int) (*image.RGBA, error) {
	t, err := geometry.CropToSize(box, size)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Transform(dst, t.Aff3(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// FaceCrop copies the face out of img with a margin of padding times the box
// size on every side. The result does not share pixels with img.
func FaceCrop(img image.Image, box geometry.Rect, padding float64) image.Image {
	padX, padY := box.Width()*padding, box.Height()*padding
	r := geometry.Rect{
		Left:   box.Left - padX,
		Top:    box.Top - padY,
		Right:  box.Right + padX,
		Bottom: box.Bottom + padY,
	}.Image().Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	return imaging.Crop(img, r)
}
