// Package ocr checks that a rendered watermark is legible, using the
// Tesseract OCR engine through gosseract/v2.
//
// VerifyWatermark crops the watermark's ink box (plus RegionPadding) out of a
// composited image, upscales small crops, runs single-line OCR and compares
// the result with the expected text using a normalized edit-distance score.
// A watermark whose opacity or color makes it unreadable to Tesseract will
// usually be hard for people to read as well.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system and the
// binary built with cgo:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Without cgo the package still builds; every OCR call returns
// ErrUnavailable and GetOCRInfo reports Available=false.
package ocr
