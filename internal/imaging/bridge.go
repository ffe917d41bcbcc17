package imaging

import (
	"fmt"
	"image"
	"image/draw"
)

// ToDisplay copies the buffer into an *image.NRGBA.
//
// The byte layout is identical (R, G, B, A, straight alpha), so the copy is
// byte-for-byte: no channel reordering and no resampling. Scaling to a
// viewport is left to the caller.
func (b *ImageBuffer) ToDisplay() *image.NRGBA {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &image.NRGBA{
		Pix:    pix,
		Stride: b.Stride(),
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromDisplay is the inverse of ToDisplay. Sub-images and non-zero origins are
// handled by copying row by row.
func FromDisplay(img *image.NRGBA) (*ImageBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("nil display buffer")
	}
	return FromImage(img)
}

// ToRGBA returns a premultiplied copy of the buffer for consumers that only
// accept *image.RGBA. Color values of partially transparent pixels are
// rounded by premultiplication; use ToDisplay when exact bytes matter.
func (b *ImageBuffer) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	draw.Draw(dst, dst.Rect, b.ToDisplay(), image.Point{}, draw.Src)
	return dst
}
