//go:build cgo

package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	wmimaging "github.com/ironsheep/watermark-tools-mcp/internal/imaging"
)

// ExtractText performs OCR on an entire image file and returns recognized text.
//
// Parameters:
//   - imagePath: Absolute path to the image file. Supports PNG, JPEG, TIFF, BMP.
//   - language: Tesseract language code (e.g., "eng" for English). The corresponding
//     language data must be installed on the system.
//
// If word-level bounding box extraction fails (which can happen with some
// Tesseract configurations), the function still returns the full text in
// FullText with an empty Regions slice.
func ExtractText(imagePath string, language string) (*OCRResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return recognize(client, language)
}

// ExtractFromBuffer performs OCR on a region of an in-memory image.
//
// The region is clamped to the image, padded by RegionPadding pixels and,
// when shorter than minOCRHeight, upscaled so that small watermark text is
// still legible to Tesseract. Returned bounding boxes are in the coordinates
// of the original image.
func ExtractFromBuffer(buf *wmimaging.ImageBuffer, region image.Rectangle, language string) (*OCRResult, error) {
	rect := padRegion(region, RegionPadding, buf.Width, buf.Height)
	if rect.Empty() {
		return nil, fmt.Errorf("region %v lies outside the %dx%d image", region, buf.Width, buf.Height)
	}

	// Flatten onto white so translucent watermarks over transparency read as
	// dark-on-light or light-on-dark rather than as invisible pixels.
	cropped := imaging.Crop(wmimaging.Flatten(buf, wmimaging.FlattenBackground), rect)
	scale := 1
	if h := cropped.Bounds().Dy(); h < minOCRHeight {
		scale = (minOCRHeight + h - 1) / h
		cropped = imaging.Resize(cropped, cropped.Bounds().Dx()*scale, 0, imaging.Lanczos)
	}

	crop, err := wmimaging.FromImage(cropped)
	if err != nil {
		return nil, err
	}
	data, err := wmimaging.EncodeBytes(crop, wmimaging.FormatPNG, wmimaging.EncodeOptions{})
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	result, err := recognize(client, language)
	if err != nil {
		return nil, err
	}

	// Map boxes back to the original image
	for i := range result.Regions {
		b := &result.Regions[i].Bounds
		b.X1 = rect.Min.X + b.X1/scale
		b.Y1 = rect.Min.Y + b.Y1/scale
		b.X2 = rect.Min.X + b.X2/scale
		b.Y2 = rect.Min.Y + b.Y2/scale
	}
	return result, nil
}

// VerifyWatermark reads the text inside region of buf and compares it with
// the expected watermark text.
func VerifyWatermark(buf *wmimaging.ImageBuffer, region image.Rectangle, expected, language string) (*Verification, error) {
	result, err := ExtractFromBuffer(buf, region, language)
	if err != nil {
		return nil, err
	}
	v := Evaluate(expected, result.FullText)
	v.Regions = result.Regions
	return &v, nil
}

func recognize(client *gosseract.Client, language string) (*OCRResult, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	// A watermark is a single line of text.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Return just text if boxes fail
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// GetOCRInfo reports whether Tesseract can be used.
func GetOCRInfo() OCRInfo {
	client := gosseract.NewClient()
	defer client.Close()

	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return OCRInfo{Available: false, Backend: "gosseract", Error: err.Error()}
	}
	return OCRInfo{
		Available: true,
		Backend:   "gosseract",
		Version:   client.Version(),
		Languages: langs,
	}
}
