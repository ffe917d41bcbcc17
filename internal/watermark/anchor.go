package watermark

import (
	"image"
	"strings"
)

// Anchor names one of the nine positions a watermark can be attached to.
type Anchor string

// The nine supported anchors. BottomRight is the default.
const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	CenterLeft   Anchor = "center-left"
	Center       Anchor = "center"
	CenterRight  Anchor = "center-right"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

// DefaultAnchor is used for empty or unrecognised anchor names.
const DefaultAnchor = BottomRight

// Anchors returns every anchor in reading order, top-left first.
func Anchors() []Anchor {
	return []Anchor{
		TopLeft, TopCenter, TopRight,
		CenterLeft, Center, CenterRight,
		BottomLeft, BottomCenter, BottomRight,
	}
}

// Valid reports whether a is one of the nine known anchors.
func (a Anchor) Valid() bool {
	for _, known := range Anchors() {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAnchor maps a user-supplied name onto an Anchor.
//
// Matching ignores case and surrounding space, and accepts '_' or ' ' in place
// of '-' ("Top Left", "bottom_center"). Anything else, including the empty
// string, yields DefaultAnchor; an unknown anchor is not an error.
func ParseAnchor(s string) Anchor {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("_", "-", " ", "-").Replace(name)
	if a := Anchor(name); a.Valid() {
		return a
	}
	return DefaultAnchor
}

// Resolve computes the top-left corner of a textW x textH box placed at
// anchor inside an imageW x imageH image, keeping margin pixels from the
// anchored edges.
//
// Centered axes use Go integer division, which truncates toward zero. The
// result is never clamped: a box larger than the image yields negative
// coordinates and the compositor clips whatever falls off the canvas.
func Resolve(anchor Anchor, imageW, imageH, textW, textH, margin int) image.Point {
	left := margin
	hcenter := (imageW - textW) / 2
	right := imageW - textW - margin

	top := margin
	vcenter := (imageH - textH) / 2
	bottom := imageH - textH - margin

	switch anchor {
	case TopLeft:
		return image.Pt(left, top)
	case TopCenter:
		return image.Pt(hcenter, top)
	case TopRight:
		return image.Pt(right, top)
	case CenterLeft:
		return image.Pt(left, vcenter)
	case Center:
		return image.Pt(hcenter, vcenter)
	case CenterRight:
		return image.Pt(right, vcenter)
	case BottomLeft:
		return image.Pt(left, bottom)
	case BottomCenter:
		return image.Pt(hcenter, bottom)
	default:
		return image.Pt(right, bottom)
	}
}
