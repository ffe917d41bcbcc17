package imaging

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
//
// This struct provides the same color in four formats:
//   - Hex: Compact "#RRGGBB" string (alpha excluded)
//   - RGB: Standard 8-bit components without alpha
//   - RGBA: 8-bit components with straight alpha
//   - HSL: Perceptual color space for intuitive comparisons
type ColorResult struct {
	Hex  string   `json:"hex"`
	RGB  RGBColor `json:"rgb"`
	RGBA Color    `json:"rgba"`
	HSL  HSLColor `json:"hsl"`
}

// ParseColor parses a hex color string: "#RGB", "#RRGGBB" or "#RRGGBBAA".
// The leading '#' is optional. Colors without an alpha component are opaque.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if hex == "" {
		return Color{}, fmt.Errorf("empty color string")
	}

	alpha := uint8(255)
	switch len(hex) {
	case 3, 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid alpha in color %q: %w", s, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	default:
		return Color{}, fmt.Errorf("invalid hex color length in %q", s)
	}

	c, err := colorful.Hex("#" + strings.ToLower(hex))
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b, A: alpha}, nil
}

// Hex formats the color as "#RRGGBB", or "#RRGGBBAA" when it is not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// Describe converts c into all ColorResult representations.
func Describe(c Color) ColorResult {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGB:  RGBColor{R: c.R, G: c.G, B: c.B},
		RGBA: c,
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at top-left:
//   - Valid X range: 0 to width-1
//   - Valid Y range: 0 to height-1
func SampleColor(buf *ImageBuffer, x, y int) (*ColorResult, error) {
	if x < 0 || x >= buf.Width || y < 0 || y >= buf.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	result := Describe(buf.At(x, y))
	return &result, nil
}

// LabeledPoint represents a pixel coordinate with an optional descriptive label.
type LabeledPoint struct {
	X     int    // X coordinate (0-based)
	Y     int    // Y coordinate (0-based)
	Label string // Optional descriptive label for this point
}

// LabeledColorResult combines a color sample with its location and optional label.
type LabeledColorResult struct {
	Label string      `json:"label,omitempty"`
	X     int         `json:"x"`
	Y     int         `json:"y"`
	Color ColorResult `json:"color"`
}

// MultiColorResult contains color samples from multiple points, in input order.
type MultiColorResult struct {
	Samples []LabeledColorResult `json:"samples"`
}

// SampleColorsMulti extracts colors at multiple pixel coordinates in a single call.
//
// On error, no partial results are returned.
func SampleColorsMulti(buf *ImageBuffer, points []LabeledPoint) (*MultiColorResult, error) {
	results := make([]LabeledColorResult, 0, len(points))

	for _, p := range points {
		color, err := SampleColor(buf, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", p.X, p.Y, err)
		}
		results = append(results, LabeledColorResult{
			Label: p.Label,
			X:     p.X,
			Y:     p.Y,
			Color: *color,
		})
	}

	return &MultiColorResult{Samples: results}, nil
}
