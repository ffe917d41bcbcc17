package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the size of one RGBA8 pixel in an ImageBuffer.
const BytesPerPixel = 4

// ImageBuffer is the canonical in-memory image used by the watermark engine.
//
// Pixels are stored row-major as R, G, B, A bytes with straight (not
// premultiplied) alpha, the same layout as image.NRGBA with a stride of
// Width*4. The buffer always owns its storage: every constructor allocates
// and Clone deep-copies, so a base image and a composited result never
// share bytes.
type ImageBuffer struct {
	// Width is the image width in pixels.
	Width int

	// Height is the image height in pixels.
	Height int

	// Pix holds Width*Height*4 bytes.
	Pix []byte
}

// NewImageBuffer allocates a fully transparent buffer of the given size.
func NewImageBuffer(width, height int) (*ImageBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer dimensions %dx%d", width, height)
	}
	return &ImageBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}, nil
}

// Validate checks the length invariant of the buffer.
func (b *ImageBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("nil image buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer dimensions %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * BytesPerPixel; len(b.Pix) != want {
		return fmt.Errorf("buffer length %d does not match %dx%d (want %d)", len(b.Pix), b.Width, b.Height, want)
	}
	return nil
}

// Stride returns the number of bytes per row.
func (b *ImageBuffer) Stride() int {
	return b.Width * BytesPerPixel
}

// Clone returns a deep copy of the buffer.
func (b *ImageBuffer) Clone() *ImageBuffer {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &ImageBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (b *ImageBuffer) PixOffset(x, y int) int {
	return y*b.Stride() + x*BytesPerPixel
}

// At returns the color at (x, y). Out-of-range coordinates return a zero Color.
func (b *ImageBuffer) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return Color{}
	}
	i := b.PixOffset(x, y)
	return Color{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set writes c at (x, y). Out-of-range coordinates are ignored.
func (b *ImageBuffer) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	i := b.PixOffset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = c.R, c.G, c.B, c.A
}

// Equal reports whether two buffers have identical dimensions and bytes.
func (b *ImageBuffer) Equal(o *ImageBuffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Opaque reports whether every pixel has alpha 255.
func (b *ImageBuffer) Opaque() bool {
	for i := 3; i < len(b.Pix); i += BytesPerPixel {
		if b.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// Color is an 8-bit-per-channel color with straight alpha.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NRGBA converts c to the standard library's straight-alpha color type.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// FromImage coerces any decoded image into a new ImageBuffer.
//
// Grayscale, paletted, YCbCr and other alpha-less images gain a fully opaque
// alpha channel. 16-bit images are reduced to 8 bits per channel. The result
// is re-origined so that the source's Bounds().Min maps to (0, 0).
func FromImage(img image.Image) (*ImageBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	buf, err := NewImageBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < buf.Height; y++ {
			start := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Pix[y*buf.Stride():(y+1)*buf.Stride()], src.Pix[start:start+buf.Stride()])
		}
		return buf, nil
	}

	dst := &image.NRGBA{Pix: buf.Pix, Stride: buf.Stride(), Rect: image.Rect(0, 0, buf.Width, buf.Height)}
	draw.Draw(dst, dst.Rect, img, bounds.Min, draw.Src)
	return buf, nil
}
