package ocr

import (
	"errors"
	"image"
	"strings"
	"unicode"
)

// DefaultLanguage is the Tesseract language used when none is given.
const DefaultLanguage = "eng"

// RegionPadding is added around a watermark's ink box before OCR.
const RegionPadding = 4

// MatchThreshold is the minimum similarity at which recognized text counts
// as the expected watermark.
const MatchThreshold = 0.8

// minOCRHeight is the crop height below which regions are upscaled.
const minOCRHeight = 48

// ErrUnavailable is returned when the binary was built without OCR support.
var ErrUnavailable = errors.New("OCR support not available (built without cgo/tesseract)")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the results of text extraction.
type OCRResult struct {
	FullText string       `json:"full_text"`
	Regions  []TextRegion `json:"regions"`
}

// OCRInfo contains information about the OCR subsystem.
type OCRInfo struct {
	Available bool     `json:"available"`
	Backend   string   `json:"backend"`
	Version   string   `json:"version,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Verification reports whether a rendered watermark reads back as intended.
type Verification struct {
	Expected   string       `json:"expected"`
	Recognized string       `json:"recognized"`
	Similarity float64      `json:"similarity"`
	Match      bool         `json:"match"`
	Regions    []TextRegion `json:"regions,omitempty"`
}

// Evaluate compares expected with recognized text. Both are compared
// case-insensitively with whitespace and punctuation removed, so OCR noise
// such as a trailing newline or a dropped comma does not fail the match.
func Evaluate(expected, recognized string) Verification {
	a := comparable(expected)
	b := comparable(recognized)
	sim := similarity(a, b)
	return Verification{
		Expected:   expected,
		Recognized: strings.TrimSpace(recognized),
		Similarity: sim,
		Match:      len(a) > 0 && sim >= MatchThreshold,
	}
}

func comparable(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

// similarity is 1 - levenshtein(a, b)/max(len(a), len(b)).
func similarity(a, b []rune) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// padRegion grows r by pad pixels on every side and clamps it to a
// width x height image.
func padRegion(r image.Rectangle, pad, width, height int) image.Rectangle {
	return r.Inset(-pad).Intersect(image.Rect(0, 0, width, height))
}
