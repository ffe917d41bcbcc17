package watermark

import (
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// TextMetrics is the ink bounding box of a rendered string.
//
// Coordinates are whole pixels relative to a drawing origin at the top-left
// of the line box, on the ascender line. Left and Top are usually small
// positive numbers (side bearing and the gap between the ascender and the
// tallest glyph). The box covers every pixel the glyphs can touch,
// including kerning.
type TextMetrics struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns Right-Left.
func (m TextMetrics) Width() int { return m.Right - m.Left }

// Height returns Bottom-Top.
func (m TextMetrics) Height() int { return m.Bottom - m.Top }

// Measure returns the ink bounds of text drawn with face. Empty text or text
// with no visible glyphs yields a zero-width box.
func Measure(face font.Face, text string) TextMetrics {
	bounds, _ := font.BoundString(face, text)
	ascent := face.Metrics().Ascent
	return TextMetrics{
		Left:   bounds.Min.X.Floor(),
		Top:    (bounds.Min.Y + ascent).Floor(),
		Right:  bounds.Max.X.Ceil(),
		Bottom: (bounds.Max.Y + ascent).Ceil(),
	}
}

// drawOrigin returns the baseline dot that puts the ink box of text, as
// described by m, at pos.
func drawOrigin(face font.Face, m TextMetrics, posX, posY int) fixed.Point26_6 {
	return fixed.Point26_6{
		X: fixed.I(posX - m.Left),
		Y: fixed.I(posY-m.Top) + face.Metrics().Ascent,
	}
}
