package watermark

import (
	"image"

	"golang.org/x/image/font"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// Render draws text onto a copy of base and returns the copy.
//
// The ink box of text is placed with its top-left corner at pos. Glyph
// coverage is rasterized into an alpha mask the size of base, so anything
// outside the canvas is clipped. Each layer pixel is (c.R, c.G, c.B,
// coverage*opacity/255): c.A is ignored and opacity alone sets the strength
// of the watermark. The layer is then composited over base with the
// straight-alpha "over" operator.
//
// base is never modified. With opacity 0 the result is byte-identical to
// base.
func Render(base *imaging.ImageBuffer, text string, face font.Face, pos image.Point, c imaging.Color, opacity uint8) *imaging.ImageBuffer {
	return composite(base, text, face, Measure(face, text), pos, c, opacity)
}

// composite is Render with the text already measured.
func composite(base *imaging.ImageBuffer, text string, face font.Face, m TextMetrics, pos image.Point, c imaging.Color, opacity uint8) *imaging.ImageBuffer {
	out := base.Clone()
	if opacity == 0 || text == "" {
		return out
	}

	mask := coverage(base.Width, base.Height, text, face, m, pos)
	op := uint32(opacity)
	for y := 0; y < base.Height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+base.Width]
		for x, cov := range row {
			if cov == 0 {
				continue
			}
			sa := (uint32(cov)*op + 127) / 255
			i := out.PixOffset(x, y)
			blendOver(out.Pix[i:i+4], c, sa)
		}
	}
	return out
}

// coverage rasterizes text into an alpha mask of the given size.
func coverage(width, height int, text string, face font.Face, m TextMetrics, pos image.Point) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  drawOrigin(face, m, pos.X, pos.Y),
	}
	d.DrawString(text)
	return mask
}

// blendOver composites a source pixel of color c and alpha sa (0-255) over
// the straight-alpha RGBA pixel dst in place:
//
//	outA = sA + dA(1-sA)
//	outC = (sC*sA + dC*dA*(1-sA)) / outA
//
// For an opaque dst this reduces to outC = sC*sA + dC*(1-sA).
func blendOver(dst []byte, c imaging.Color, sa uint32) {
	switch sa {
	case 0:
		return
	case 255:
		dst[0], dst[1], dst[2], dst[3] = c.R, c.G, c.B, 255
		return
	}

	da := uint32(dst[3])
	srcW := sa * 255
	dstW := da * (255 - sa)
	outW := srcW + dstW // outA scaled by 255
	if outW == 0 {
		dst[0], dst[1], dst[2], dst[3] = 0, 0, 0, 0
		return
	}

	half := outW / 2
	dst[0] = uint8((uint32(c.R)*srcW + uint32(dst[0])*dstW + half) / outW)
	dst[1] = uint8((uint32(c.G)*srcW + uint32(dst[1])*dstW + half) / outW)
	dst[2] = uint8((uint32(c.B)*srcW + uint32(dst[2])*dstW + half) / outW)
	dst[3] = uint8((outW + 127) / 255)
}
