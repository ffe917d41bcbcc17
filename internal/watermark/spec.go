package watermark

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// Defaults applied to fields a caller leaves unset.
const (
	DefaultText       = "Watermark"
	DefaultFontFamily = "Arial"
	DefaultFontSize   = 20
	DefaultOpacity    = 128
	DefaultMargin     = 10

	MinFontSize = 10
	MaxFontSize = 100
)

// DefaultColor is opaque white.
var DefaultColor = imaging.Color{R: 255, G: 255, B: 255, A: 255}

// Spec describes one text watermark. A Spec is a plain value: the pipeline
// never keeps a reference to it between runs.
type Spec struct {
	Text       string        `json:"text"`
	FontFamily string        `json:"font_family"`
	FontSize   int           `json:"font_size"`
	Color      imaging.Color `json:"color"`
	Opacity    uint8         `json:"opacity"`
	Anchor     Anchor        `json:"anchor"`
	Margin     int           `json:"margin"`
}

// DefaultSpec returns the watermark used when nothing is configured.
func DefaultSpec() Spec {
	return Spec{
		Text:       DefaultText,
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
		Color:      DefaultColor,
		Opacity:    DefaultOpacity,
		Anchor:     DefaultAnchor,
		Margin:     DefaultMargin,
	}
}

// Normalize returns a copy of s ready for rendering: text in Unicode NFC,
// font size clamped to [MinFontSize, MaxFontSize], an empty family replaced
// by DefaultFontFamily and an unknown anchor replaced by DefaultAnchor.
func (s Spec) Normalize() Spec {
	s.Text = norm.NFC.String(s.Text)
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = DefaultFontFamily
	}
	s.FontSize = clampFontSize(s.FontSize)
	if !s.Anchor.Valid() {
		s.Anchor = DefaultAnchor
	}
	return s
}

// Validate reports the first problem that makes s unrenderable.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return inputErr("text", "watermark text is empty", nil)
	}
	if s.Margin < 0 {
		return inputErr("margin", fmt.Sprintf("must not be negative, got %d", s.Margin), nil)
	}
	return nil
}

func clampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// Options is the loosely typed form of a Spec accepted from MCP tool
// arguments and HTTP requests. Nil and empty fields take their defaults.
type Options struct {
	Text    *string `json:"text,omitempty"`
	Font    string  `json:"font,omitempty"`
	Size    *int    `json:"size,omitempty"`
	Color   string  `json:"color,omitempty"`
	Opacity *int    `json:"opacity,omitempty"`
	Anchor  string  `json:"anchor,omitempty"`
	Margin  *int    `json:"margin,omitempty"`
}

// Spec converts o into a normalized Spec. Values that cannot be interpreted
// are reported as *InputError; an unknown anchor is not an error.
func (o Options) Spec() (Spec, error) {
	s := DefaultSpec()
	if o.Text != nil {
		s.Text = *o.Text
	}
	if o.Font != "" {
		s.FontFamily = o.Font
	}
	if o.Size != nil {
		s.FontSize = *o.Size
	}
	if o.Color != "" {
		c, err := imaging.ParseColor(o.Color)
		if err != nil {
			return Spec{}, inputErr("color", "expected #RGB, #RRGGBB or #RRGGBBAA", err)
		}
		s.Color = c
	}
	if o.Opacity != nil {
		if *o.Opacity < 0 || *o.Opacity > 255 {
			return Spec{}, inputErr("opacity", fmt.Sprintf("must be in [0,255], got %d", *o.Opacity), nil)
		}
		s.Opacity = uint8(*o.Opacity)
	}
	if o.Anchor != "" {
		s.Anchor = ParseAnchor(o.Anchor)
	}
	if o.Margin != nil {
		s.Margin = *o.Margin
	}

	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}
