//go:build !cgo

package ocr

import (
	"image"

	wmimaging "github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// ExtractText is unavailable without cgo.
func ExtractText(imagePath string, language string) (*OCRResult, error) {
	return nil, ErrUnavailable
}

// ExtractFromBuffer is unavailable without cgo.
func ExtractFromBuffer(buf *wmimaging.ImageBuffer, region image.Rectangle, language string) (*OCRResult, error) {
	return nil, ErrUnavailable
}

// VerifyWatermark is unavailable without cgo.
func VerifyWatermark(buf *wmimaging.ImageBuffer, region image.Rectangle, expected, language string) (*Verification, error) {
	return nil, ErrUnavailable
}

// GetOCRInfo reports that OCR was not compiled in.
func GetOCRInfo() OCRInfo {
	return OCRInfo{Available: false, Backend: "none", Error: ErrUnavailable.Error()}
}
